package bancho

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"github.com/kisumi/kisumi/internal/core/auth"
	"github.com/kisumi/kisumi/internal/core/cache"
	"github.com/kisumi/kisumi/internal/core/data"
	"github.com/kisumi/kisumi/internal/online"
	"github.com/kisumi/kisumi/internal/session"
)

// SafeName folds a username into the form used for lookups, so that names
// differing only in case or spaces collide.
func SafeName(name string) string {
	return strings.ReplaceAll(cases.Fold().String(strings.TrimSpace(name)), " ", "_")
}

// AccountManager loads users, making sure at most one *session.User exists
// for each account. Online users are served from the registry, offline ones
// from a TTL cache in front of the database.
type AccountManager struct {
	DB       *gorm.DB
	Registry *online.Registry
	Verifier auth.Verifier

	offline *cache.TTL[*session.User]
	loads   singleflight.Group
}

func NewAccountManager(db *gorm.DB, registry *online.Registry, verifier auth.Verifier, ttl time.Duration) *AccountManager {
	return &AccountManager{
		DB:       db,
		Registry: registry,
		Verifier: verifier,
		offline:  cache.NewTTL[*session.User](ttl),
	}
}

// ByID returns the user with the account id, or nil if there is none.
func (m *AccountManager) ByID(ctx context.Context, id uint64) (*session.User, error) {
	if u := m.Registry.User(id); u != nil {
		return u, nil
	}
	return m.load(ctx, idKey(id), func(db *gorm.DB) (*data.Account, error) {
		return data.FindAccountByID(db, id)
	})
}

// ByName returns the user whose safe name matches name, or nil if there is
// none.
func (m *AccountManager) ByName(ctx context.Context, name string) (*session.User, error) {
	safe := SafeName(name)
	return m.load(ctx, nameKey(safe), func(db *gorm.DB) (*data.Account, error) {
		return data.FindAccountBySafeName(db, safe)
	})
}

func (m *AccountManager) load(ctx context.Context, key string, find func(*gorm.DB) (*data.Account, error)) (*session.User, error) {
	if u, ok := m.offline.Get(key); ok {
		return m.preferOnline(u), nil
	}

	v, err, _ := m.loads.Do(key, func() (interface{}, error) {
		account, err := find(m.DB.WithContext(ctx))
		if err != nil || account == nil {
			return nil, err
		}
		if u := m.Registry.User(account.ID); u != nil {
			return u, nil
		}
		// Another key may already have loaded this account.
		if u, ok := m.offline.Get(idKey(account.ID)); ok {
			return u, nil
		}

		stats, err := data.FindAllModeStats(m.DB.WithContext(ctx), account.ID)
		if err != nil {
			return nil, fmt.Errorf("loading stats for account %d: %w", account.ID, err)
		}
		u := session.NewUser(*account, stats)
		m.offline.Put(idKey(account.ID), u)
		m.offline.Put(nameKey(account.SafeName), u)
		return u, nil
	})
	if err != nil || v == nil {
		return nil, err
	}
	return m.preferOnline(v.(*session.User)), nil
}

// preferOnline swaps a cached user for the registry's instance if the account
// came online through another path.
func (m *AccountManager) preferOnline(u *session.User) *session.User {
	if current := m.Registry.User(u.ID()); current != nil {
		return current
	}
	return u
}

// UpdatePassword hashes the new password digest, stores it and rebinds every
// session of the user to it.
func (m *AccountManager) UpdatePassword(ctx context.Context, u *session.User, passwordMD5 string) error {
	hash, err := m.Verifier.Hash(ctx, passwordMD5)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	account := u.Account()
	if err := data.UpdatePassword(m.DB.WithContext(ctx), &account, hash); err != nil {
		return fmt.Errorf("updating password of account %d: %w", account.ID, err)
	}
	u.SetPasswordHash(hash)
	return nil
}

// Forget drops any cached copy of the account.
func (m *AccountManager) Forget(u *session.User) {
	m.offline.Delete(idKey(u.ID()))
	m.offline.Delete(nameKey(u.SafeName()))
}

func idKey(id uint64) string        { return "id:" + strconv.FormatUint(id, 10) }
func nameKey(safeName string) string { return "name:" + safeName }
