package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/awnumar/memguard"
	"github.com/cristalhq/jwt/v4"
	"github.com/google/uuid"
)

var (
	// ErrTokenInvalid is returned for tokens that are malformed or carry a bad signature.
	ErrTokenInvalid = errors.New("auth: invalid session token")
	// ErrTokenExpired is returned for correctly signed tokens outside of their validity window.
	ErrTokenExpired = errors.New("auth: session token expired")
)

// Claims are the contents of a signed session token.
type Claims struct {
	jwt.RegisteredClaims
	AccountID uint64 `json:"user_id"`
	// Variant is the client variant the token was issued to.
	Variant uint8 `json:"type"`
}

// Signer issues and verifies signed session tokens.
type Signer interface {
	NewClaims(accountID uint64, variant uint8) Claims
	Sign(claims Claims) (string, error)
	Verify(token string) (*Claims, error)
}

// JWTSigner signs tokens with HS256. The key is kept in an encrypted enclave
// and only decrypted for the duration of each operation.
type JWTSigner struct {
	key    *memguard.Enclave
	expiry time.Duration
	now    func() time.Time
}

// NewJWTSigner takes ownership of secret, wiping it once it has been sealed. A
// random key is generated if secret is empty.
func NewJWTSigner(secret []byte, expiry time.Duration) (*JWTSigner, error) {
	if len(secret) == 0 {
		secret = make([]byte, 64)
		if _, err := io.ReadFull(rand.Reader, secret); err != nil {
			return nil, fmt.Errorf("generating signing key: %w", err)
		}
	}
	return &JWTSigner{
		key:    memguard.NewEnclave(secret),
		expiry: expiry,
		now:    time.Now,
	}, nil
}

// NewClaims returns claims for a token issued now.
func (s *JWTSigner) NewClaims(accountID uint64, variant uint8) Claims {
	now := s.now()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
		AccountID: accountID,
		Variant:   variant,
	}
}

func (s *JWTSigner) Sign(claims Claims) (string, error) {
	key, err := s.key.Open()
	if err != nil {
		return "", fmt.Errorf("opening signing key: %w", err)
	}
	defer key.Destroy()

	signer, err := jwt.NewSignerHS(jwt.HS256, key.Bytes())
	if err != nil {
		return "", fmt.Errorf("creating signer: %w", err)
	}
	token, err := jwt.NewBuilder(signer).Build(claims)
	if err != nil {
		return "", fmt.Errorf("building token: %w", err)
	}
	return token.String(), nil
}

// Verify checks the signature of token and that the current time lies
// strictly between its issue and expiry times.
func (s *JWTSigner) Verify(token string) (*Claims, error) {
	key, err := s.key.Open()
	if err != nil {
		return nil, fmt.Errorf("opening signing key: %w", err)
	}
	defer key.Destroy()

	verifier, err := jwt.NewVerifierHS(jwt.HS256, key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("creating verifier: %w", err)
	}

	var claims Claims
	if err := jwt.ParseClaims([]byte(token), verifier, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, ErrTokenInvalid
	}

	now := s.now()
	if !claims.IssuedAt.Before(now) || !now.Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}
	return &claims, nil
}
