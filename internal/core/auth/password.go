package auth

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Verifier hashes and checks passwords. Verify reports a mismatch as false
// with a nil error; errors are reserved for failures to perform the check.
type Verifier interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, stored string) (bool, error)
}

// BcryptVerifier stores passwords as bcrypt hashes of their MD5 hex digest,
// which is the form the client submits them in. Hashing and verification run
// on the Pool so that only a bounded number of them execute at once.
type BcryptVerifier struct {
	Cost int
	Pool *Pool
}

func NewBcryptVerifier(cost int, pool *Pool) *BcryptVerifier {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptVerifier{Cost: cost, Pool: pool}
}

// Hash returns the bcrypt hash of an MD5 hex digest.
func (v *BcryptVerifier) Hash(ctx context.Context, md5Hex string) (string, error) {
	var hash []byte
	err := v.Pool.Do(ctx, func() error {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(md5Hex), v.Cost)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func (v *BcryptVerifier) Verify(ctx context.Context, md5Hex, stored string) (bool, error) {
	var match bool
	err := v.Pool.Do(ctx, func() error {
		err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(md5Hex))
		switch {
		case err == nil:
			match = true
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		default:
			return err
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("verifying password: %w", err)
	}
	return match, nil
}

// MD5Hex returns the lowercase hex MD5 digest of a plaintext password.
func MD5Hex(plaintext string) string {
	sum := md5.Sum([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// IsMD5Hex reports whether s has the shape of an MD5 hex digest.
func IsMD5Hex(s string) bool {
	if len(s) != md5.Size*2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}
