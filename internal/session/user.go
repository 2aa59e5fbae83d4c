package session

import (
	"sync"

	"github.com/kisumi/kisumi/internal/core/data"
	"github.com/kisumi/kisumi/internal/packets"
)

type statsKey struct {
	mode   data.Mode
	custom data.CustomMode
}

// User is the in-memory form of an account along with the sessions attached
// to it.
type User struct {
	Clients *ClientList

	mu      sync.RWMutex
	account data.Account
	stats   map[statsKey]data.ModeStats
}

func NewUser(account data.Account, stats []data.ModeStats) *User {
	u := &User{
		account: account,
		stats:   make(map[statsKey]data.ModeStats, len(stats)),
	}
	for _, s := range stats {
		u.stats[statsKey{s.Mode, s.CustomMode}] = s
	}
	u.Clients = &ClientList{owner: u}
	return u
}

func (u *User) ID() uint64 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.account.ID
}

func (u *User) Name() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.account.Username
}

func (u *User) SafeName() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.account.SafeName
}

func (u *User) PasswordHash() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.account.Password
}

// SetPasswordHash replaces the stored hash and invalidates the password
// cached by every attached session.
func (u *User) SetPasswordHash(hash string) {
	u.mu.Lock()
	u.account.Password = hash
	u.mu.Unlock()

	for _, s := range u.Clients.Snapshot() {
		s.Auth.Reload()
		s.BindAuth(u)
	}
}

func (u *User) Privileges() data.Privileges {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.account.Privileges
}

func (u *User) Banned() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.account.Banned || u.account.Privileges.Has(data.PrivilegeRestricted)
}

// Account returns a copy of the underlying account record.
func (u *User) Account() data.Account {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.account
}

// Stats returns the statistics for a mode combination, zeroed if the user has
// none recorded.
func (u *User) Stats(mode data.Mode, custom data.CustomMode) data.ModeStats {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if s, ok := u.stats[statsKey{mode, custom}]; ok {
		return s
	}
	return data.ModeStats{AccountID: u.account.ID, Mode: mode, CustomMode: custom}
}

// PreferredStats returns the statistics for the account's preferred mode.
func (u *User) PreferredStats() data.ModeStats {
	u.mu.RLock()
	mode, custom := data.Mode(u.account.PreferredMode), data.CustomMode(u.account.PreferredCustomMode)
	u.mu.RUnlock()
	return u.Stats(mode, custom)
}

// ClientPrivileges converts the account's privileges into the flags shown by
// the stable client.
func (u *User) ClientPrivileges() uint32 {
	p := u.Privileges()
	var out uint32
	if !p.Has(data.PrivilegeRestricted) {
		out |= packets.ClientPrivilegePlayer
	}
	if p.Has(data.PrivilegeSupporter) {
		out |= packets.ClientPrivilegeSupporter
	}
	if p.Has(data.PrivilegeModerator) {
		out |= packets.ClientPrivilegeModerator
	}
	if p.Has(data.PrivilegeAdministrator) {
		out |= packets.ClientPrivilegeOwner
	}
	if p.Has(data.PrivilegeDeveloper) {
		out |= packets.ClientPrivilegeDeveloper
	}
	if p.Has(data.PrivilegeTournamentStaff) {
		out |= packets.ClientPrivilegeTournament
	}
	return out
}

// Online reports whether any session is attached.
func (u *User) Online() bool {
	return u.Clients.Len() > 0
}
