package session

import (
	"errors"
	"strings"
)

var ErrMalformedHWID = errors.New("session: malformed client hashes")

// StableHWID is the set of hardware and install hashes sent by the stable
// client when logging in.
type StableHWID struct {
	ClientMD5      string
	Adapters       string
	AdaptersMD5    string
	UninstallerMD5 string
	SerialMD5      string
}

// ParseStableHWID parses the colon separated hash list of a login request,
// which carries a trailing separator.
func ParseStableHWID(s string) (*StableHWID, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 6 || parts[5] != "" {
		return nil, ErrMalformedHWID
	}
	return &StableHWID{
		ClientMD5:      parts[0],
		Adapters:       parts[1],
		AdaptersMD5:    parts[2],
		UninstallerMD5: parts[3],
		SerialMD5:      parts[4],
	}, nil
}

// RunningUnderWine reports whether the adapter list marks a wine install.
func (h *StableHWID) RunningUnderWine() bool {
	return h.Adapters == "runningunderwine"
}
