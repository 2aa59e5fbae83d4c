package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kisumi/kisumi/internal/core/auth"
)

var (
	ErrUnbound = errors.New("session: authenticator is not bound to an account")
	// ErrCredentialShape is returned for credentials that are neither a
	// password digest nor a session token.
	ErrCredentialShape = errors.New("session: unrecognised credential")
)

// Authenticator verifies the credentials presented by one session and holds
// the token issued to it. A fresh Authenticator is unauthenticated; it becomes
// authenticated after the first successful Authenticate call.
type Authenticator interface {
	// Bind associates the authenticator with an account's stored password hash.
	Bind(accountID uint64, storedHash string)
	Bound() bool
	// Authenticate checks a password digest or session token. A false result
	// with a nil error is a plain rejection.
	Authenticate(ctx context.Context, credential string) (bool, error)
	// Reload forgets the cached password digest without touching the token.
	Reload()
	// IssueToken replaces the session token with a new one and returns it.
	IssueToken() (string, error)
	Token() string
	Authenticated() bool
}

// AuthDeps are the collaborators shared by every Authenticator.
type AuthDeps struct {
	Verifier auth.Verifier
	Signer   auth.Signer
}

// NewAuthenticator returns the Authenticator used by sessions of variant.
func NewAuthenticator(variant Variant, deps AuthDeps) Authenticator {
	if variant.UsesJWT() {
		return &JWTAuth{passwordState: passwordState{verifier: deps.Verifier}, signer: deps.Signer, variant: variant}
	}
	return &StableAuth{passwordState: passwordState{verifier: deps.Verifier}}
}

// passwordState is the password half shared by both authenticators. Its fields
// are guarded by the owning authenticator's mutex.
type passwordState struct {
	verifier   auth.Verifier
	accountID  uint64
	stored     string
	bound      bool
	cachedMD5  string
	authorized bool
}

func (c *passwordState) bind(accountID uint64, stored string) {
	c.accountID = accountID
	c.stored = stored
	c.bound = true
}

// checkPassword compares md5 against the stored hash, trusting a previously
// verified digest without recomputing.
func (c *passwordState) checkPassword(ctx context.Context, md5 string) (bool, error) {
	if !c.bound {
		return false, ErrUnbound
	}
	if c.cachedMD5 != "" && c.cachedMD5 == md5 {
		return true, nil
	}

	ok, err := c.verifier.Verify(ctx, md5, c.stored)
	if err != nil || !ok {
		return false, err
	}
	c.cachedMD5 = md5
	return true, nil
}

// StableAuth authenticates stable clients with password digests and
// TokenStrings.
type StableAuth struct {
	mu sync.Mutex
	passwordState
	token auth.TokenString
}

func (a *StableAuth) Bind(accountID uint64, storedHash string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bind(accountID, storedHash)
}

func (a *StableAuth) Bound() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bound
}

func (a *StableAuth) Authenticate(ctx context.Context, credential string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var (
		ok  bool
		err error
	)
	switch {
	case len(credential) == 32:
		// A 32 character credential is always a digest; anything non-hex of
		// that length is rejected rather than tried as a token.
		if !auth.IsMD5Hex(credential) {
			return false, ErrCredentialShape
		}
		ok, err = a.checkPassword(ctx, strings.ToLower(credential))
	default:
		token, parsed := auth.ParseTokenString(credential)
		if !parsed {
			return false, ErrCredentialShape
		}
		ok = !a.token.IsZero() && token == a.token
	}

	if ok {
		a.authorized = true
	}
	return ok, err
}

func (a *StableAuth) Reload() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cachedMD5 = ""
}

func (a *StableAuth) IssueToken() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.bound {
		return "", ErrUnbound
	}
	a.token = auth.NewTokenString(a.accountID)
	return a.token.String(), nil
}

func (a *StableAuth) Token() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.token.IsZero() {
		return ""
	}
	return a.token.String()
}

func (a *StableAuth) Authenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authorized
}

// JWTAuth authenticates the non-stable variants with password digests and
// signed session tokens.
type JWTAuth struct {
	mu sync.Mutex
	passwordState
	signer  auth.Signer
	variant Variant
	token   string
}

func (a *JWTAuth) Bind(accountID uint64, storedHash string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bind(accountID, storedHash)
}

func (a *JWTAuth) Bound() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bound
}

// Authenticate accepts a password digest or a token signed for this account
// and variant. Expired and forged tokens are rejected with auth.ErrTokenExpired
// and auth.ErrTokenInvalid respectively.
func (a *JWTAuth) Authenticate(ctx context.Context, credential string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var (
		ok  bool
		err error
	)
	switch {
	case len(credential) == 32:
		if !auth.IsMD5Hex(credential) {
			return false, ErrCredentialShape
		}
		ok, err = a.checkPassword(ctx, strings.ToLower(credential))
	case strings.Count(credential, ".") == 2:
		var claims *auth.Claims
		claims, err = a.signer.Verify(credential)
		if err != nil {
			return false, err
		}
		ok = a.bound && claims.AccountID == a.accountID && Variant(claims.Variant) == a.variant
	default:
		return false, ErrCredentialShape
	}

	if ok {
		a.authorized = true
	}
	return ok, err
}

func (a *JWTAuth) Reload() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cachedMD5 = ""
}

func (a *JWTAuth) IssueToken() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.bound {
		return "", ErrUnbound
	}
	token, err := a.signer.Sign(a.signer.NewClaims(a.accountID, uint8(a.variant)))
	if err != nil {
		return "", fmt.Errorf("issuing token: %w", err)
	}
	a.token = token
	return token, nil
}

func (a *JWTAuth) Token() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token
}

func (a *JWTAuth) Authenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.authorized
}
