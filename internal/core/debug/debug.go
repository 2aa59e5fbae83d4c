// Package debug holds the utilities that are only started when debugging is
// turned on in the config.
package debug

import (
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"

	"github.com/kisumi/kisumi/internal/core"
	"github.com/kisumi/kisumi/internal/packets"
)

// StartUtilities spins off the services associated with debug mode.
func StartUtilities(cfg *core.Config, logger *logrus.Logger) {
	if cfg.Debugging.PprofEnabled {
		startPprofServer(logger, cfg.Debugging.PprofPort)
	}
}

// This function starts the default pprof HTTP server that can be accessed via localhost
// to get runtime information about kisumi. See https://golang.org/pkg/net/http/pprof/
func startPprofServer(logger *logrus.Logger, port int) {
	listenerAddr := fmt.Sprintf("localhost:%d", port)
	logger.Infof("starting pprof server on %s", listenerAddr)

	go func() {
		if err := http.ListenAndServe(listenerAddr, nil); err != nil {
			logger.Infof("error starting pprof server: %s", err)
		}
	}()
}

// PacketLogger writes client and server packets to a logger at debug level.
type PacketLogger struct {
	Logger *logrus.Logger
}

// ClientPacket logs a packet received from a session.
func (p *PacketLogger) ClientPacket(session string, id packets.ID, payload []byte) {
	p.print(session, "client", "server", id, payload)
}

// ServerPacket logs a packet about to be sent to a session.
func (p *PacketLogger) ServerPacket(session string, id packets.ID, payload []byte) {
	p.print(session, "server", "client", id, payload)
}

func (p *PacketLogger) print(session, source, destination string, id packets.ID, payload []byte) {
	if p == nil || !p.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	p.Logger.WithFields(logrus.Fields{
		"session": session,
		"source":  source,
		"dest":    destination,
	}).Debugf("%s (%d), %d bytes\n%s", PacketName(id), id, len(payload), spew.Sdump(payload))
}

// ServerPackets logs every packet in a response body. Bodies that do not
// split into whole packets are logged as a single dump.
func (p *PacketLogger) ServerPackets(session string, body []byte) {
	if p == nil || !p.Logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	r := packets.NewReader(body)
	for r.Remaining() > 0 {
		id, length, err := r.ReadHeader()
		if err != nil {
			p.Logger.Debugf("undecodable response for %s\n%s", session, spew.Sdump(body))
			return
		}
		payload, err := r.ReadBytes(int(length))
		if err != nil {
			p.Logger.Debugf("truncated response for %s\n%s", session, spew.Sdump(body))
			return
		}
		p.ServerPacket(session, id, payload)
	}
}
