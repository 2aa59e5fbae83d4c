// Package bancho implements the login and packet polling flows of the Bancho
// protocol on top of the session model and the packet router.
package bancho

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kisumi/kisumi/internal/core"
	"github.com/kisumi/kisumi/internal/core/data"
	"github.com/kisumi/kisumi/internal/core/debug"
	"github.com/kisumi/kisumi/internal/geo"
	"github.com/kisumi/kisumi/internal/metrics"
	"github.com/kisumi/kisumi/internal/online"
	"github.com/kisumi/kisumi/internal/packets"
	"github.com/kisumi/kisumi/internal/router"
	"github.com/kisumi/kisumi/internal/session"
)

const alreadyOnlineMessage = "You are already logged in from another client."

// Login failure reasons recorded in metrics.
const (
	failureMalformed     = "malformed"
	failureUnknownUser   = "unknown_user"
	failureBanned        = "banned"
	failureCredentials   = "credentials"
	failureAlreadyOnline = "already_online"
	failureError         = "error"
)

// Server is the Bancho backend. It turns login bodies into sessions and
// packet bodies into handler calls, returning whatever the session has queued.
type Server struct {
	Name     string
	Config   *core.Config
	Logger   *logrus.Logger
	Accounts *AccountManager
	Registry *online.Registry
	Geo      geo.Resolver
	Metrics  *metrics.Metrics
	AuthDeps session.AuthDeps
	// Packets is set when packet logging is enabled.
	Packets *debug.PacketLogger

	router *router.Router
	now    func() time.Time
}

func (s *Server) Identifier() string {
	return s.Name
}

// Init builds the packet router. It must be called before the server handles
// any request.
func (s *Server) Init(_ context.Context) error {
	if s.Config == nil || s.Logger == nil || s.Accounts == nil || s.Registry == nil {
		return errors.New("bancho: server is missing a dependency")
	}
	if s.Geo == nil {
		s.Geo = geo.NopResolver{}
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.router = router.New(s.Logger, s.descriptors()...)
	s.router.Metrics = s.Metrics
	s.router.Packets = s.Packets
	s.router.MaxStringLength = s.Config.Bancho.MaxStringLength
	return nil
}

// HandleLogin authenticates a login body sent from ip. It returns the response
// body and, if the login succeeded, the token of the new session.
func (s *Server) HandleLogin(ctx context.Context, body []byte, ip string) ([]byte, string) {
	start := s.now()
	s.recordRequest(metrics.RequestLogin)

	req, err := ParseLoginRequest(body)
	if err != nil {
		s.Logger.WithField("ip", ip).Debugf("rejecting login: %v", err)
		return s.reject(failureMalformed, packets.LoginFailed), ""
	}
	logger := s.Logger.WithFields(logrus.Fields{"ip": ip, "username": req.Username})

	u, err := s.Accounts.ByName(ctx, req.Username)
	if err != nil {
		logger.Errorf("error loading account: %v", err)
		return s.reject(failureError, packets.LoginError), ""
	}
	if u == nil {
		return s.reject(failureUnknownUser, packets.LoginFailed), ""
	}
	if u.Banned() {
		return s.reject(failureBanned, packets.LoginBanned), ""
	}

	sess := session.New(session.Stable, session.NewAuthenticator(session.Stable, s.AuthDeps))
	sess.BindAuth(u)
	ok, err := sess.Auth.Authenticate(ctx, req.PasswordMD5)
	switch {
	case errors.Is(err, session.ErrCredentialShape):
		return s.reject(failureCredentials, packets.LoginFailed), ""
	case err != nil:
		logger.Errorf("error verifying password: %v", err)
		return s.reject(failureError, packets.LoginError), ""
	case !ok:
		return s.reject(failureCredentials, packets.LoginFailed), ""
	}

	sess.HWID = req.HWID
	sess.Version = req.Version
	sess.Location = s.Geo.Resolve(ip)
	if !req.DisplayCity {
		sess.Location.City = ""
	}
	if sess.Location.UTCOffset == 0 {
		sess.Location.UTCOffset = req.UTCOffset
	}
	sess.SetBlockNonFriendDMs(req.BlockNonFriendDMs)
	account := u.Account()
	sess.SetAction(session.Action{Mode: data.Mode(account.PreferredMode), CustomMode: data.CustomMode(account.PreferredCustomMode)})
	sess.Touch(s.now())

	// The account may have come online through another *session.User since it
	// was loaded, in which case the session joins that one instead.
	for attempt := 0; ; attempt++ {
		if u.Clients.HasVariant(session.Stable) && !(req.Tournament() && s.Config.Bancho.AllowTournamentClients) {
			s.recordLoginFailure(failureAlreadyOnline)
			return append(packets.Notification(alreadyOnlineMessage), packets.LoginRejected(packets.LoginFailed)...), ""
		}
		err := s.Registry.Attach(ctx, u, sess)
		if err == nil {
			break
		}
		current := s.Registry.User(u.ID())
		if !errors.Is(err, online.ErrStaleUser) || current == nil || attempt > 0 {
			logger.Errorf("error attaching session: %v", err)
			return s.reject(failureError, packets.LoginError), ""
		}
		u = current
	}
	s.updateOnline()

	bundle := [][]byte{
		packets.ProtocolVersionOf(s.Config.Bancho.ProtocolVersion),
		packets.LoginResult(int32(u.ID())),
		packets.Privileges(u.ClientPrivileges()),
		packets.Notification(s.welcome()),
		packets.ChannelInfoEnd(),
		u.PresencePacket(sess),
		u.StatsPacket(sess),
	}
	for _, other := range s.Registry.Users() {
		if other == u {
			continue
		}
		if p := other.PrimaryPresence(); p != nil {
			bundle = append(bundle, p)
		}
	}

	var resp []byte
	for _, p := range bundle {
		resp = append(resp, p...)
	}
	// Anything broadcast to the session while the bundle was built follows it.
	resp = append(resp, sess.Queue.Drain()...)

	logger.WithField("session", sess.ID).Infof("%s logged in", u.Name())
	if s.Metrics != nil {
		s.Metrics.RecordLoginDuration(s.now().Sub(start).Seconds())
	}
	s.Packets.ServerPackets(sess.ID, resp)
	return resp, sess.Token()
}

// HandlePackets processes a packet body for the session holding token and
// returns the session's queued packets. Unknown tokens get a restart packet so
// that the client logs in again.
func (s *Server) HandlePackets(ctx context.Context, token string, body []byte) []byte {
	sess := s.Registry.Get(token)
	if sess == nil {
		s.recordRequest(metrics.RequestRestart)
		return packets.Restart()
	}
	s.recordRequest(metrics.RequestPackets)
	sess.Touch(s.now())

	if err := s.router.Dispatch(ctx, sess, body); err != nil {
		s.Logger.WithFields(logrus.Fields{"session": sess.ID}).Warnf("abandoning request: %v", err)
	}

	resp := sess.Queue.Drain()
	s.Packets.ServerPackets(sess.ID, resp)
	return resp
}

// ReapIdle detaches every session that has not made a request since before
// the configured timeout and returns how many were detached.
func (s *Server) ReapIdle(ctx context.Context) int {
	timeout := s.Config.Bancho.SessionTimeout
	if timeout <= 0 {
		return 0
	}
	deadline := s.now().Add(-timeout)

	var reaped int
	for _, sess := range s.Registry.Sessions() {
		if sess.LastActivity().After(deadline) {
			continue
		}
		s.Logger.WithField("session", sess.ID).Infof("detaching idle %s", sess)
		s.logout(ctx, sess)
		reaped++
	}
	return reaped
}

func (s *Server) logout(ctx context.Context, sess *session.Session) {
	u := sess.User()
	s.Registry.Detach(ctx, sess)
	if u != nil && !u.Online() {
		// The account may change while offline, so reload it on next login.
		s.Accounts.Forget(u)
	}
	s.updateOnline()
}

func (s *Server) updateOnline() {
	if s.Metrics != nil {
		s.Metrics.SetOnline(s.Registry.SessionCount(), len(s.Registry.Users()))
	}
}

func (s *Server) welcome() string {
	msg := s.Config.Bancho.WelcomeMessage
	if msg == "" {
		msg = fmt.Sprintf("Welcome to %s!", s.Config.ServerName)
	}
	return msg
}

func (s *Server) reject(reason string, reply packets.LoginReply) []byte {
	s.recordLoginFailure(reason)
	if reply == packets.LoginError {
		return append(packets.Notification(cases.Title(language.English).String(reason)+" while logging in, please try again."), packets.LoginRejected(reply)...)
	}
	return packets.LoginRejected(reply)
}

func (s *Server) recordRequest(kind string) {
	if s.Metrics != nil {
		s.Metrics.RecordRequest(kind)
	}
}

func (s *Server) recordLoginFailure(reason string) {
	if s.Metrics != nil {
		s.Metrics.RecordLoginFailure(reason)
	}
}
