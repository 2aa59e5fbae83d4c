package online

import (
	"context"

	"github.com/kisumi/kisumi/internal/packets"
	"github.com/kisumi/kisumi/internal/session"
)

// Broadcaster queues a presence packet on every stable session when a user
// comes online, and a logout packet when one goes offline. Sessions owned by
// the user in question are skipped.
//
// The session set is a snapshot, so a session attaching or detaching while a
// broadcast is in progress may miss it or receive it after detaching.
type Broadcaster struct {
	Registry *Registry
}

func (b *Broadcaster) OnPresence(_ context.Context, ev Event) {
	var packet []byte
	switch ev.Kind {
	case Joined:
		if ev.Session == nil {
			return
		}
		packet = ev.User.PresencePacket(ev.Session)
	case Left:
		packet = packets.UserLogout(int32(ev.User.ID()))
	}

	for _, s := range b.Registry.Sessions() {
		if s.Variant != session.Stable || s.User() == ev.User {
			continue
		}
		s.Enqueue(packet)
	}
}
