package session

import (
	"github.com/kisumi/kisumi/internal/packets"
)

// PresencePacket builds the user presence packet for the user as seen through
// the given session, which supplies location and mode.
func (u *User) PresencePacket(s *Session) []byte {
	action := s.Action()
	stats := u.Stats(action.Mode, action.CustomMode)
	return packets.UserPresence(packets.Presence{
		UserID:     int32(u.ID()),
		Name:       u.Name(),
		UTCOffset:  s.Location.UTCOffset,
		Country:    s.Location.Country(),
		Privileges: uint8(u.ClientPrivileges()),
		Mode:       uint8(action.Mode),
		Longitude:  s.Location.Longitude,
		Latitude:   s.Location.Latitude,
		Rank:       stats.Rank,
	})
}

// StatsPacket builds the user stats packet from the session's action and the
// user's statistics for the mode being played.
func (u *User) StatsPacket(s *Session) []byte {
	action := s.Action()
	stats := u.Stats(action.Mode, action.CustomMode)
	return packets.UserStats(packets.Stats{
		UserID:      int32(u.ID()),
		Action:      uint8(action.ID.Stable()),
		Text:        action.StableText(),
		MapMD5:      action.MapMD5,
		Mods:        action.Mods,
		Mode:        uint8(action.Mode),
		MapID:       action.MapID,
		RankedScore: stats.RankedScore,
		Accuracy:    stats.Accuracy / 100,
		PlayCount:   stats.PlayCount,
		TotalScore:  stats.TotalScore,
		Rank:        stats.Rank,
		PP:          int16(stats.PP),
	})
}

// PrimaryPresence builds the presence packet for the user's primary session,
// or nil when the user has none.
func (u *User) PrimaryPresence() []byte {
	s := u.Clients.Primary()
	if s == nil {
		return nil
	}
	return u.PresencePacket(s)
}

// PrimaryStats is the stats counterpart of PrimaryPresence.
func (u *User) PrimaryStats() []byte {
	s := u.Clients.Primary()
	if s == nil {
		return nil
	}
	return u.StatsPacket(s)
}
