package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kisumi/kisumi/internal/geo"
)

// PresenceFilter selects whose status updates a session wants to receive.
type PresenceFilter int32

const (
	PresenceFilterNone PresenceFilter = iota
	PresenceFilterAll
	PresenceFilterFriends
)

// Session is one connected client. It starts detached and unauthenticated and
// belongs to exactly one User once attached.
type Session struct {
	ID      string
	Variant Variant
	Queue   *ByteQueue
	Auth    Authenticator

	// HWID is only set for stable sessions.
	HWID     *StableHWID
	Location geo.Location
	// Version is the client build string reported at login.
	Version string

	mu                sync.Mutex
	user              *User
	action            Action
	blockNonFriendDMs bool
	presenceFilter    PresenceFilter
	lastActivity      time.Time
}

func New(variant Variant, authenticator Authenticator) *Session {
	return &Session{
		ID:             uuid.NewString(),
		Variant:        variant,
		Queue:          &ByteQueue{},
		Auth:           authenticator,
		Location:       geo.DefaultLocation,
		presenceFilter: PresenceFilterAll,
		lastActivity:   time.Now(),
	}
}

func (s *Session) String() string {
	return fmt.Sprintf("%s session %s", s.Variant, s.ID)
}

// User returns the owning user, or nil before the session is attached.
func (s *Session) User() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// BindAuth binds the authenticator to the user's stored credential so that a
// login can be verified before the session is attached.
func (s *Session) BindAuth(u *User) {
	s.Auth.Bind(u.ID(), u.PasswordHash())
}

// OnAttach is called by ClientList.Attach once the session has been placed in
// the list. It binds the authenticator if needed and issues a fresh token.
func (s *Session) OnAttach(u *User) error {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()

	if !s.Auth.Bound() {
		s.BindAuth(u)
	}
	if _, err := s.Auth.IssueToken(); err != nil {
		return fmt.Errorf("attaching %s: %w", s, err)
	}
	return nil
}

func (s *Session) onDetach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
}

// Token returns the token currently issued to the session.
func (s *Session) Token() string {
	return s.Auth.Token()
}

func (s *Session) Action() Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.action
}

func (s *Session) SetAction(a Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.action = a
}

func (s *Session) BlockNonFriendDMs() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blockNonFriendDMs
}

func (s *Session) SetBlockNonFriendDMs(block bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blockNonFriendDMs = block
}

func (s *Session) PresenceFilter() PresenceFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presenceFilter
}

func (s *Session) SetPresenceFilter(f PresenceFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presenceFilter = f
}

// Touch records activity at t.
func (s *Session) Touch(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = t
}

func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Enqueue appends packets to be sent on the session's next response.
func (s *Session) Enqueue(packets ...[]byte) {
	s.Queue.Append(packets...)
}
