package auth

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// TokenString is the session handle given to stable clients, sent back by
// them in the osu-token header as "{account_id}|{secret}".
type TokenString struct {
	AccountID uint64
	Secret    string
}

// NewTokenString issues a token with a fresh random secret.
func NewTokenString(accountID uint64) TokenString {
	return TokenString{AccountID: accountID, Secret: uuid.NewString()}
}

// ParseTokenString parses the text form of a token. It fails unless s holds
// exactly one separator preceded by a non-negative integer.
func ParseTokenString(s string) (TokenString, bool) {
	if strings.Count(s, "|") != 1 {
		return TokenString{}, false
	}
	left, secret, _ := strings.Cut(s, "|")
	// ParseUint accepts neither signs nor whitespace.
	id, err := strconv.ParseUint(left, 10, 64)
	if err != nil {
		return TokenString{}, false
	}
	return TokenString{AccountID: id, Secret: secret}, true
}

func (t TokenString) String() string {
	return fmt.Sprintf("%d|%s", t.AccountID, t.Secret)
}

func (t TokenString) IsZero() bool {
	return t == TokenString{}
}
