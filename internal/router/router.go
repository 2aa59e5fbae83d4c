// Package router maps client packet ids to typed handlers. Handler arguments
// are decoded from the packet payload according to the handler's signature.
package router

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	"github.com/kisumi/kisumi/internal/core/data"
	kdebug "github.com/kisumi/kisumi/internal/core/debug"
	"github.com/kisumi/kisumi/internal/metrics"
	"github.com/kisumi/kisumi/internal/packets"
	"github.com/kisumi/kisumi/internal/session"
)

// ErrHandlerPanic is returned by Dispatch when a handler panicked. Packets
// after the one that panicked are not processed.
var ErrHandlerPanic = errors.New("router: handler panicked")

// panicNotification is queued on the session whose packet made a handler panic.
const panicNotification = "An error occurred while processing your request."

// Descriptor binds a handler to a packet id.
//
// Handler must be a func returning ([][]byte, error). Its parameters are
// filled in order: a context.Context receives the dispatch context, a
// *session.Session the sending session and a *packets.Reader the payload
// reader at its current position. Every other parameter is decoded from the
// payload and must be a fixed width integer or float, a bool, a string or a
// slice of those.
type Descriptor struct {
	ID packets.ID
	// Privileges that the session's user must hold. Packets from users
	// without them are skipped.
	Privileges data.Privileges
	Handler    interface{}
}

// Policy decides whether a session may use a packet that requires privileges.
type Policy interface {
	Allowed(s *session.Session, required data.Privileges) bool
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(s *session.Session, required data.Privileges) bool

func (f PolicyFunc) Allowed(s *session.Session, required data.Privileges) bool { return f(s, required) }

// UserPrivileges allows a packet when the session's user holds every required
// privilege.
var UserPrivileges Policy = PolicyFunc(func(s *session.Session, required data.Privileges) bool {
	if required == 0 {
		return true
	}
	u := s.User()
	return u != nil && u.Privileges().Has(required)
})

type Router struct {
	Logger  *logrus.Logger
	Metrics *metrics.Metrics
	Policy  Policy
	// Packets is set when packet logging is enabled.
	Packets *kdebug.PacketLogger
	// MaxStringLength overrides the reader's default string limit when set.
	MaxStringLength int

	routes map[packets.ID]*route
}

type route struct {
	Descriptor
	fn    reflect.Value
	args  []argDecoder
	label string
}

// New returns a Router with the given handlers registered.
func New(logger *logrus.Logger, descriptors ...Descriptor) *Router {
	r := &Router{Logger: logger, Policy: UserPrivileges}
	for _, d := range descriptors {
		r.Register(d)
	}
	return r
}

// Register adds a handler. It panics if the handler's signature cannot be
// decoded or if the id is already taken, both of which are programming errors.
func (r *Router) Register(d Descriptor) {
	if r.routes == nil {
		r.routes = make(map[packets.ID]*route)
	}
	if _, ok := r.routes[d.ID]; ok {
		panic(fmt.Sprintf("router: packet %d registered twice", d.ID))
	}

	fn := reflect.ValueOf(d.Handler)
	if fn.Kind() != reflect.Func {
		panic(fmt.Sprintf("router: handler for packet %d is a %T, not a func", d.ID, d.Handler))
	}
	t := fn.Type()
	if t.NumOut() != 2 || t.Out(0) != packetsType || t.Out(1) != errorType {
		panic(fmt.Sprintf("router: handler for packet %d must return ([][]byte, error)", d.ID))
	}

	rt := &route{Descriptor: d, fn: fn, label: kdebug.PacketName(d.ID)}
	for i := 0; i < t.NumIn(); i++ {
		decoder, err := decoderFor(t.In(i))
		if err != nil {
			panic(fmt.Sprintf("router: handler for packet %d, parameter %d: %v", d.ID, i, err))
		}
		rt.args = append(rt.args, decoder)
	}
	r.routes[d.ID] = rt
}

// Registered reports whether a handler exists for id.
func (r *Router) Registered(id packets.ID) bool {
	_, ok := r.routes[id]
	return ok
}

// Dispatch processes every packet in body in order, appending handler output
// to the session queue. Unknown packets and packets the session is not allowed
// to send are skipped. A handler error is logged and processing continues; a
// malformed header or payload abandons the rest of the body.
func (r *Router) Dispatch(ctx context.Context, s *session.Session, body []byte) error {
	reader := packets.NewReader(body)
	if r.MaxStringLength > 0 {
		reader.MaxStringLength = r.MaxStringLength
	}

	for reader.Remaining() > 0 {
		id, length, err := reader.ReadHeader()
		if err != nil {
			return fmt.Errorf("reading packet header: %w", err)
		}
		payload, err := reader.Sub(int(length))
		if err != nil {
			return fmt.Errorf("reading payload of packet %d: %w", id, err)
		}

		rt, ok := r.routes[id]
		if !ok {
			r.Logger.WithFields(logrus.Fields{"session": s.ID, "packet": id}).Debugf("skipping unknown packet (%d bytes)", length)
			continue
		}
		if r.Metrics != nil {
			r.Metrics.RecordPacket(uint16(id))
		}
		if r.Packets != nil {
			r.Packets.ClientPacket(s.ID, id, body[reader.Offset()-int(length):reader.Offset()])
		}

		if !r.Policy.Allowed(s, rt.Privileges) {
			r.Logger.WithFields(logrus.Fields{"session": s.ID, "packet": rt.label}).Warn("packet denied")
			continue
		}

		out, err := r.invoke(ctx, s, rt, payload)
		switch {
		case errors.Is(err, ErrHandlerPanic):
			return err
		case isDecodeError(err):
			return fmt.Errorf("decoding %s: %w", rt.label, err)
		case err != nil:
			r.Logger.WithFields(logrus.Fields{"session": s.ID, "packet": rt.label}).Warnf("handler failed: %v", err)
			continue
		}
		s.Enqueue(out...)
	}
	return nil
}

func (r *Router) invoke(ctx context.Context, s *session.Session, rt *route, payload *packets.Reader) (out [][]byte, err error) {
	args := make([]reflect.Value, len(rt.args))
	for i, decode := range rt.args {
		if args[i], err = decode(ctx, s, payload); err != nil {
			return nil, err
		}
	}

	defer func() {
		if p := recover(); p != nil {
			r.Logger.WithFields(logrus.Fields{
				"session": s.ID,
				"packet":  rt.label,
			}).Errorf("handler panic: %v\n%s", p, debug.Stack())
			if r.Metrics != nil {
				r.Metrics.RecordHandlerPanic()
			}
			s.Enqueue(packets.Notification(panicNotification))
			out, err = nil, ErrHandlerPanic
		}
	}()

	results := rt.fn.Call(args)
	if e, _ := results[1].Interface().(error); e != nil {
		return nil, e
	}
	out, _ = results[0].Interface().([][]byte)
	return out, nil
}

func isDecodeError(err error) bool {
	return errors.Is(err, packets.ErrBufferUnderrun) ||
		errors.Is(err, packets.ErrBadPadding) ||
		errors.Is(err, packets.ErrInvalidUTF8) ||
		errors.Is(err, packets.ErrLengthLimit)
}
