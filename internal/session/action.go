package session

import (
	"fmt"

	"github.com/kisumi/kisumi/internal/core/data"
)

// ActionID is what a user is currently doing.
type ActionID uint8

const (
	ActionIdle ActionID = iota
	ActionAFK
	ActionPlaying
	ActionEditing
	ActionModding
	ActionMultiplayer
	ActionWatching
	ActionUnknown
	ActionTesting
	ActionSubmitting
	ActionPaused
	ActionLobby
	ActionMultiplaying
	ActionDirect

	ActionBotIdle
	ActionBotWatching
	ActionBotTesting

	ActionWebIdle
	ActionWebMaps
	ActionWebProfile
)

func (a ActionID) IsGameClient() bool { return a <= ActionDirect }
func (a ActionID) IsBotClient() bool  { return a >= ActionBotIdle && a <= ActionBotTesting }
func (a ActionID) IsWebClient() bool  { return a >= ActionWebIdle && a <= ActionWebProfile }

// Stable maps bot and web actions onto the closest action the stable
// client can display.
func (a ActionID) Stable() ActionID {
	switch a {
	case ActionBotIdle, ActionWebIdle, ActionWebProfile:
		return ActionIdle
	case ActionBotWatching:
		return ActionWatching
	case ActionBotTesting:
		return ActionTesting
	case ActionWebMaps:
		return ActionDirect
	}
	if a.IsGameClient() {
		return a
	}
	return ActionUnknown
}

// Action is the status a session reports for its user.
type Action struct {
	ID         ActionID
	Text       string
	MapMD5     string
	MapID      int32
	Mods       int32
	Mode       data.Mode
	CustomMode data.CustomMode
}

// StableText returns the status text prefixed with where it came from, such
// as "[RX] playing a map".
func (a Action) StableText() string {
	var prefix string
	switch {
	case a.ID.IsGameClient():
		prefix = a.CustomMode.Prefix()
	case a.ID.IsBotClient():
		prefix = "BOT"
	case a.ID.IsWebClient():
		prefix = "Web"
	}
	return fmt.Sprintf("[%s] %s", prefix, a.Text)
}
