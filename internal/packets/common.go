// Packet identifiers and constants shared by the Bancho client and server.
package packets

// HeaderSize is the length of the header preceding every Bancho packet:
// a u16 packet id, a u8 pad byte that must always be zero and a u32 payload length.
const HeaderSize = 7

// ID identifies the type of a packet.
type ID uint16

// Packets sent by the client.
const (
	ClientChangeAction            ID = 0
	ClientSendPublicMessage       ID = 1
	ClientLogout                  ID = 2
	ClientRequestStatusUpdate     ID = 3
	ClientPing                    ID = 4
	ClientStartSpectating         ID = 16
	ClientStopSpectating          ID = 17
	ClientSendPrivateMessage      ID = 25
	ClientPartLobby               ID = 29
	ClientJoinLobby               ID = 30
	ClientChannelJoin             ID = 63
	ClientFriendAdd               ID = 73
	ClientFriendRemove            ID = 74
	ClientChannelPart             ID = 78
	ClientReceiveUpdates          ID = 79
	ClientSetAwayMessage          ID = 82
	ClientUserStatsRequest        ID = 85
	ClientUserPresenceRequest     ID = 97
	ClientUserPresenceRequestAll  ID = 98
	ClientToggleBlockNonFriendDMs ID = 99
)

// Packets sent by the server.
const (
	ServerUserID          ID = 5
	ServerSendMessage     ID = 7
	ServerHeartbeat       ID = 8
	ServerUserStats       ID = 11
	ServerUserLogout      ID = 12
	ServerNotification    ID = 24
	ServerPrivileges      ID = 71
	ServerProtocolVersion ID = 75
	ServerUserPresence    ID = 83
	ServerRestart         ID = 86
	ServerChannelInfoEnd  ID = 89
)

// LoginReply values are sent in place of the user id in the ServerUserID packet
// when a login attempt is rejected.
type LoginReply int32

const (
	LoginFailed        LoginReply = -1
	LoginOldVersion    LoginReply = -2
	LoginBanned        LoginReply = -3
	LoginLocked        LoginReply = -4
	LoginError         LoginReply = -5
	LoginNeedSupport   LoginReply = -6
	LoginPasswordReset LoginReply = -7
	LoginVerification  LoginReply = -8
)

// Privilege bits understood by the stable client.
const (
	ClientPrivilegePlayer     uint32 = 1 << 0
	ClientPrivilegeModerator  uint32 = 1 << 1
	ClientPrivilegeSupporter  uint32 = 1 << 2
	ClientPrivilegeOwner      uint32 = 1 << 3
	ClientPrivilegeDeveloper  uint32 = 1 << 4
	ClientPrivilegeTournament uint32 = 1 << 5
)

// DefaultProtocolVersion is the version every modern stable build speaks.
const DefaultProtocolVersion = 19
