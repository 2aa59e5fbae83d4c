// Package online tracks every user with at least one attached session and
// announces users coming online and going offline.
package online

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kisumi/kisumi/internal/session"
)

// EventKind distinguishes presence events.
type EventKind uint8

const (
	Joined EventKind = iota
	Left
)

func (k EventKind) String() string {
	if k == Joined {
		return "joined"
	}
	return "left"
}

// Event announces that a user came online or went offline.
type Event struct {
	Kind    EventKind
	User    *session.User
	Session *session.Session
}

// Listener receives presence events. Listeners are called synchronously, in
// registration order, without the registry lock held. Events are delivered in
// the order the registry decided them, possibly from the goroutine of a later
// Attach or Detach. A listener must not attach or detach sessions itself.
type Listener interface {
	OnPresence(ctx context.Context, ev Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, ev Event)

func (f ListenerFunc) OnPresence(ctx context.Context, ev Event) { f(ctx, ev) }

// ErrStaleUser is returned by Attach when another *session.User for the same
// account is already online.
var ErrStaleUser = errors.New("online: account is online as another user instance")

// Registry maps session tokens to sessions and account ids to online users.
// Iteration always happens over a copy taken under the lock.
//
// mu is always taken before the lock of a user's ClientList, so attaching and
// detaching a user's sessions is atomic with the registry update.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[string]*session.Session
	users     map[uint64]*session.User
	listeners []Listener
	pending   []Event

	// publishing serializes delivery of pending events.
	publishing sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*session.Session),
		users:    make(map[uint64]*session.User),
	}
}

// Subscribe registers l to receive every future presence event.
func (r *Registry) Subscribe(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Attach attaches s to u and indexes it. The first session attached to a user
// brings the user online and publishes a Joined event. It fails with
// ErrStaleUser if the account is online through a different *session.User.
func (r *Registry) Attach(ctx context.Context, u *session.User, s *session.Session) error {
	if err := r.attach(u, s); err != nil {
		return err
	}
	r.flush(ctx)
	return nil
}

func (r *Registry) attach(u *session.User, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := u.ID()
	if current, ok := r.users[id]; ok && current != u {
		return fmt.Errorf("attaching %s to account %d: %w", s, id, ErrStaleUser)
	}

	first, err := u.Clients.Attach(s)
	if err != nil {
		return err
	}
	if !first {
		r.sessions[s.Token()] = s
		return nil
	}

	sessions := u.Clients.Snapshot()
	r.users[id] = u
	for _, attached := range sessions {
		r.sessions[attached.Token()] = attached
	}
	r.pending = append(r.pending, Event{Kind: Joined, User: u, Session: sessions[0]})
	return nil
}

// Get returns the session holding token, or nil.
func (r *Registry) Get(token string) *session.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[token]
}

// User returns the online user with the account id, or nil.
func (r *Registry) User(id uint64) *session.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.users[id]
}

// Detach removes s from its user and from the registry. Removing the last
// session of a user takes the user offline and publishes a Left event.
// Detaching a session that is not attached does nothing.
func (r *Registry) Detach(ctx context.Context, s *session.Session) {
	r.detach(s)
	r.flush(ctx)
}

func (r *Registry) detach(s *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u := s.User()
	if u == nil {
		return
	}

	token := s.Token()
	if r.sessions[token] == s {
		delete(r.sessions, token)
	}

	remaining, found := u.Clients.Detach(s)
	if !found || remaining > 0 {
		return
	}
	if r.users[u.ID()] != u {
		return
	}
	delete(r.users, u.ID())
	r.pending = append(r.pending, Event{Kind: Left, User: u, Session: s})
}

// Sessions returns a point-in-time copy of every indexed session.
func (r *Registry) Sessions() []*session.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Users returns a point-in-time copy of every online user.
func (r *Registry) Users() []*session.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*session.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out
}

func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// flush delivers every pending event. Whoever holds publishing drains the
// queue, so events decided by concurrent callers keep their order.
func (r *Registry) flush(ctx context.Context) {
	r.publishing.Lock()
	defer r.publishing.Unlock()

	for {
		r.mu.Lock()
		events := r.pending
		r.pending = nil
		listeners := append([]Listener(nil), r.listeners...)
		r.mu.Unlock()

		if len(events) == 0 {
			return
		}
		for _, ev := range events {
			for _, l := range listeners {
				l.OnPresence(ctx, ev)
			}
		}
	}
}
