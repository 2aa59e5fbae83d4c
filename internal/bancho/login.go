package bancho

import (
	"errors"
	"strconv"
	"strings"

	"github.com/kisumi/kisumi/internal/session"
)

var ErrMalformedLogin = errors.New("bancho: malformed login request")

// LoginRequest is the body of a stable client login:
//
//	username\npassword_md5\nversion|utc_offset|display_city|hashes|block_non_friend_dms\n
type LoginRequest struct {
	Username    string
	PasswordMD5 string
	Version     string
	UTCOffset   int8
	DisplayCity bool
	HWID        *session.StableHWID

	BlockNonFriendDMs bool
}

// Tournament reports whether the client identifies as a tournament client.
func (r *LoginRequest) Tournament() bool {
	return strings.Contains(r.Version, "tourney")
}

func ParseLoginRequest(body []byte) (*LoginRequest, error) {
	lines := strings.Split(string(body), "\n")
	if len(lines) != 4 || lines[3] != "" {
		return nil, ErrMalformedLogin
	}

	username := strings.TrimSpace(lines[0])
	if username == "" || len(lines[1]) != 32 {
		return nil, ErrMalformedLogin
	}

	fields := strings.Split(lines[2], "|")
	if len(fields) != 5 {
		return nil, ErrMalformedLogin
	}

	offset, err := strconv.ParseInt(fields[1], 10, 8)
	if err != nil {
		return nil, ErrMalformedLogin
	}
	hwid, err := session.ParseStableHWID(fields[3])
	if err != nil {
		return nil, ErrMalformedLogin
	}

	return &LoginRequest{
		Username:          username,
		PasswordMD5:       lines[1],
		Version:           fields[0],
		UTCOffset:         int8(offset),
		DisplayCity:       fields[2] == "1",
		HWID:              hwid,
		BlockNonFriendDMs: fields[4] == "1",
	}, nil
}
