package bancho

import (
	"context"
	"fmt"

	"github.com/kisumi/kisumi/internal/core/data"
	"github.com/kisumi/kisumi/internal/packets"
	"github.com/kisumi/kisumi/internal/router"
	"github.com/kisumi/kisumi/internal/session"
)

// Mod flags that select a custom mode.
const (
	modRelax     int32 = 1 << 7
	modAutopilot int32 = 1 << 13
)

func (s *Server) descriptors() []router.Descriptor {
	return []router.Descriptor{
		{ID: packets.ClientPing, Handler: s.handlePing},
		{ID: packets.ClientChangeAction, Handler: s.handleChangeAction},
		{ID: packets.ClientRequestStatusUpdate, Handler: s.handleRequestStatusUpdate},
		{ID: packets.ClientLogout, Handler: s.handleLogout},
		{ID: packets.ClientReceiveUpdates, Handler: s.handleReceiveUpdates},
		{ID: packets.ClientUserStatsRequest, Handler: s.handleUserStatsRequest},
		{ID: packets.ClientUserPresenceRequest, Handler: s.handleUserPresenceRequest},
		{ID: packets.ClientUserPresenceRequestAll, Handler: s.handleUserPresenceRequestAll},
		{ID: packets.ClientToggleBlockNonFriendDMs, Handler: s.handleToggleBlockNonFriendDMs},
	}
}

// Pings only exist to keep the session alive, which every request already does.
func (s *Server) handlePing() ([][]byte, error) {
	return nil, nil
}

func (s *Server) handleChangeAction(
	sess *session.Session,
	id uint8,
	text string,
	mapMD5 string,
	mods int32,
	mode uint8,
	mapID int32,
) ([][]byte, error) {
	u := sess.User()
	if u == nil {
		return nil, fmt.Errorf("change action: %s is not attached", sess)
	}
	if mode > uint8(data.ModeMania) {
		return nil, fmt.Errorf("change action: invalid mode %d", mode)
	}

	sess.SetAction(session.Action{
		ID:         session.ActionID(id),
		Text:       text,
		MapMD5:     mapMD5,
		MapID:      mapID,
		Mods:       mods,
		Mode:       data.Mode(mode),
		CustomMode: customModeFor(mods, data.Mode(mode)),
	})

	// Only the primary session's status is shown to other users.
	if u.Clients.Primary() != sess {
		return [][]byte{u.StatsPacket(sess)}, nil
	}
	stats := u.StatsPacket(sess)
	for _, other := range s.Registry.Sessions() {
		if other == sess || other.Variant != session.Stable || other.PresenceFilter() == session.PresenceFilterNone {
			continue
		}
		other.Enqueue(stats)
	}
	return [][]byte{stats}, nil
}

func customModeFor(mods int32, mode data.Mode) data.CustomMode {
	switch {
	case mods&modRelax != 0 && data.CustomModeRelax.Supports(mode):
		return data.CustomModeRelax
	case mods&modAutopilot != 0 && data.CustomModeAutopilot.Supports(mode):
		return data.CustomModeAutopilot
	}
	return data.CustomModeVanilla
}

func (s *Server) handleRequestStatusUpdate(sess *session.Session) ([][]byte, error) {
	u := sess.User()
	if u == nil {
		return nil, fmt.Errorf("status update: %s is not attached", sess)
	}
	return [][]byte{u.StatsPacket(sess)}, nil
}

func (s *Server) handleLogout(ctx context.Context, sess *session.Session) ([][]byte, error) {
	if u := sess.User(); u != nil {
		s.Logger.WithField("session", sess.ID).Infof("%s logged out", u.Name())
	}
	s.logout(ctx, sess)
	return nil, nil
}

func (s *Server) handleReceiveUpdates(sess *session.Session, filter int32) ([][]byte, error) {
	f := session.PresenceFilter(filter)
	if f < session.PresenceFilterNone || f > session.PresenceFilterFriends {
		return nil, fmt.Errorf("receive updates: invalid filter %d", filter)
	}
	sess.SetPresenceFilter(f)
	return nil, nil
}

func (s *Server) handleUserStatsRequest(sess *session.Session, ids []int32) ([][]byte, error) {
	return s.collect(sess, ids, (*session.User).PrimaryStats), nil
}

func (s *Server) handleUserPresenceRequest(sess *session.Session, ids []int32) ([][]byte, error) {
	return s.collect(sess, ids, (*session.User).PrimaryPresence), nil
}

func (s *Server) handleUserPresenceRequestAll(sess *session.Session) ([][]byte, error) {
	self := sess.User()
	var out [][]byte
	for _, u := range s.Registry.Users() {
		if u == self {
			continue
		}
		if p := u.PrimaryPresence(); p != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Server) handleToggleBlockNonFriendDMs(ctx context.Context, sess *session.Session, value int32) ([][]byte, error) {
	block := value == 1
	sess.SetBlockNonFriendDMs(block)
	if u := sess.User(); u != nil {
		if err := data.UpdateBlockNonFriendDMs(s.Accounts.DB.WithContext(ctx), u.ID(), block); err != nil {
			return nil, fmt.Errorf("saving dm setting: %w", err)
		}
	}
	return nil, nil
}

// collect builds one packet for every online user named in ids other than the
// requesting one. Offline and unknown ids are ignored.
func (s *Server) collect(sess *session.Session, ids []int32, build func(*session.User) []byte) [][]byte {
	self := sess.User()
	var out [][]byte
	for _, id := range ids {
		if id < 0 {
			continue
		}
		u := s.Registry.User(uint64(id))
		if u == nil || u == self {
			continue
		}
		if p := build(u); p != nil {
			out = append(out, p)
		}
	}
	return out
}
