package session

import (
	"fmt"
	"sync"
)

// ClientList is the ordered set of sessions attached to a user. A stable
// session always occupies position 0 when one is attached; later stable
// sessions and every other variant are appended.
type ClientList struct {
	mu       sync.Mutex
	owner    *User
	sessions []*Session
}

// Attach adds s to the list and runs its attach hook, reporting whether the
// list was empty beforehand.
func (l *ClientList) Attach(s *Session) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, existing := range l.sessions {
		if existing == s {
			return false, fmt.Errorf("attaching %s: already attached", s)
		}
	}

	first := len(l.sessions) == 0
	if s.Variant == Stable && !l.primaryIsStable() {
		l.sessions = append([]*Session{s}, l.sessions...)
	} else {
		l.sessions = append(l.sessions, s)
	}

	if err := s.OnAttach(l.owner); err != nil {
		l.remove(s)
		return false, err
	}
	return first, nil
}

// Detach removes s, returning the number of sessions left and whether s was
// attached at all.
func (l *ClientList) Detach(s *Session) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.remove(s) {
		return len(l.sessions), false
	}
	s.onDetach()
	return len(l.sessions), true
}

func (l *ClientList) remove(s *Session) bool {
	for i, existing := range l.sessions {
		if existing == s {
			l.sessions = append(l.sessions[:i:i], l.sessions[i+1:]...)
			return true
		}
	}
	return false
}

func (l *ClientList) primaryIsStable() bool {
	return len(l.sessions) > 0 && l.sessions[0].Variant == Stable
}

func (l *ClientList) ByID(id string) *Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (l *ClientList) HasVariant(v Variant) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.sessions {
		if s.Variant == v {
			return true
		}
	}
	return false
}

func (l *ClientList) AllOfVariant(v Variant) []*Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*Session
	for _, s := range l.sessions {
		if s.Variant == v {
			out = append(out, s)
		}
	}
	return out
}

// PrimaryStable returns the session at position 0 if it is a stable session.
func (l *ClientList) PrimaryStable() *Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.primaryIsStable() {
		return nil
	}
	return l.sessions[0]
}

// Primary returns the session at position 0 of any variant.
func (l *ClientList) Primary() *Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.sessions) == 0 {
		return nil
	}
	return l.sessions[0]
}

// Snapshot returns a copy of the list in priority order.
func (l *ClientList) Snapshot() []*Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Session(nil), l.sessions...)
}

func (l *ClientList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}
