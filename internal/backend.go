package internal

import (
	"context"
)

// Backend is the protocol half of the server. The frontend owns the HTTP
// details and hands request bodies to a Backend.
type Backend interface {
	// Identifier returns a uniquely identifying string.
	Identifier() string

	// Init is called before a Backend is started as a hook for the Backend to
	// perform any necessary initialization before it can accept clients.
	Init(ctx context.Context) error

	// HandleLogin authenticates a login body and returns the response body
	// along with the token of the new session, or "" if the login failed.
	HandleLogin(ctx context.Context, body []byte, ip string) ([]byte, string)

	// HandlePackets processes the packets sent by the session holding token
	// and returns everything queued for it.
	HandlePackets(ctx context.Context, token string, body []byte) []byte
}
