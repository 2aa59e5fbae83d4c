package debug

import (
	"fmt"

	"github.com/kisumi/kisumi/internal/packets"
)

// Client and server ids overlap, so names are looked up in the client table
// first.
var clientPacketNames = map[packets.ID]string{
	packets.ClientChangeAction:            "ChangeAction",
	packets.ClientSendPublicMessage:       "SendPublicMessage",
	packets.ClientLogout:                  "Logout",
	packets.ClientRequestStatusUpdate:     "RequestStatusUpdate",
	packets.ClientPing:                    "Ping",
	packets.ClientStartSpectating:         "StartSpectating",
	packets.ClientStopSpectating:          "StopSpectating",
	packets.ClientSendPrivateMessage:      "SendPrivateMessage",
	packets.ClientPartLobby:               "PartLobby",
	packets.ClientJoinLobby:               "JoinLobby",
	packets.ClientChannelJoin:             "ChannelJoin",
	packets.ClientFriendAdd:               "FriendAdd",
	packets.ClientFriendRemove:            "FriendRemove",
	packets.ClientChannelPart:             "ChannelPart",
	packets.ClientReceiveUpdates:          "ReceiveUpdates",
	packets.ClientSetAwayMessage:          "SetAwayMessage",
	packets.ClientUserStatsRequest:        "UserStatsRequest",
	packets.ClientUserPresenceRequest:     "UserPresenceRequest",
	packets.ClientUserPresenceRequestAll:  "UserPresenceRequestAll",
	packets.ClientToggleBlockNonFriendDMs: "ToggleBlockNonFriendDMs",
}

var serverPacketNames = map[packets.ID]string{
	packets.ServerUserID:          "UserID",
	packets.ServerSendMessage:     "SendMessage",
	packets.ServerHeartbeat:       "Heartbeat",
	packets.ServerUserStats:       "UserStats",
	packets.ServerUserLogout:      "UserLogout",
	packets.ServerNotification:    "Notification",
	packets.ServerPrivileges:      "Privileges",
	packets.ServerProtocolVersion: "ProtocolVersion",
	packets.ServerUserPresence:    "UserPresence",
	packets.ServerRestart:         "Restart",
	packets.ServerChannelInfoEnd:  "ChannelInfoEnd",
}

// PacketName returns a readable name for id.
func PacketName(id packets.ID) string {
	if name, ok := clientPacketNames[id]; ok {
		return name
	}
	if name, ok := serverPacketNames[id]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%#x)", uint16(id))
}
