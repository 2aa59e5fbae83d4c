package packets

import "sync"

var (
	heartbeat       = sync.OnceValue(func() []byte { return Empty(ServerHeartbeat) })
	channelInfoEnd  = sync.OnceValue(func() []byte { return Empty(ServerChannelInfoEnd) })
	protocolVersion = sync.OnceValue(func() []byte {
		return NewWriter().WriteI32(DefaultProtocolVersion).Finish(ServerProtocolVersion)
	})
	restart = sync.OnceValue(func() []byte { return NewWriter().WriteI32(0).Finish(ServerRestart) })
)

// The memoized packets below are shared; callers must not modify them.

func Heartbeat() []byte       { return heartbeat() }
func ChannelInfoEnd() []byte  { return channelInfoEnd() }
func ProtocolVersion() []byte { return protocolVersion() }

// Restart asks the client to discard its session and log in again.
func Restart() []byte { return restart() }

// ProtocolVersionOf builds a protocol version packet for a non-default version.
func ProtocolVersionOf(version int32) []byte {
	if version == DefaultProtocolVersion {
		return ProtocolVersion()
	}
	return NewWriter().WriteI32(version).Finish(ServerProtocolVersion)
}

func Notification(message string) []byte {
	return NewWriter().WriteString(message).Finish(ServerNotification)
}

// LoginResult carries either the user id of a successful login or one of the
// negative LoginReply codes.
func LoginResult(value int32) []byte {
	return NewWriter().WriteI32(value).Finish(ServerUserID)
}

func LoginRejected(reply LoginReply) []byte {
	return LoginResult(int32(reply))
}

func Privileges(privileges uint32) []byte {
	return NewWriter().WriteU32(privileges).Finish(ServerPrivileges)
}

func UserLogout(userID int32) []byte {
	return NewWriter().WriteI32(userID).WriteU8(0).Finish(ServerUserLogout)
}

// Presence is the data shown for a user in the online user list.
type Presence struct {
	UserID     int32
	Name       string
	UTCOffset  int8
	Country    uint8
	Privileges uint8
	Mode       uint8
	Longitude  float32
	Latitude   float32
	Rank       int32
}

func UserPresence(p Presence) []byte {
	return NewWriter().
		WriteI32(p.UserID).
		WriteString(p.Name).
		WriteU8(uint8(int16(p.UTCOffset) + 24)).
		WriteU8(p.Country).
		WriteU8(p.Privileges | p.Mode<<5).
		WriteF32(p.Longitude).
		WriteF32(p.Latitude).
		WriteI32(p.Rank).
		Finish(ServerUserPresence)
}

// Stats is the status and statistics of a user in their current mode.
type Stats struct {
	UserID      int32
	Action      uint8
	Text        string
	MapMD5      string
	Mods        int32
	Mode        uint8
	MapID       int32
	RankedScore int64
	Accuracy    float32
	PlayCount   int32
	TotalScore  int64
	Rank        int32
	PP          int16
}

func UserStats(s Stats) []byte {
	return NewWriter().
		WriteI32(s.UserID).
		WriteU8(s.Action).
		WriteString(s.Text).
		WriteString(s.MapMD5).
		WriteI32(s.Mods).
		WriteU8(s.Mode).
		WriteI32(s.MapID).
		WriteI64(s.RankedScore).
		WriteF32(s.Accuracy).
		WriteI32(s.PlayCount).
		WriteI64(s.TotalScore).
		WriteI32(s.Rank).
		WriteI16(s.PP).
		Finish(ServerUserStats)
}
