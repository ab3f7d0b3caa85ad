// Package socket owns the push channel lifecycle: it tracks the
// connection state machine and routes every received named event into the
// reducer table. It holds no business logic of its own.
package socket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/subwatch/internal/events"
)

// Message is one raw notification delivered by the transport, before kind
// resolution.
type Message struct {
	Name    string
	Action  string
	Payload json.RawMessage
}

// Transport is the reconnecting publish/subscribe channel the listener
// consumes. Implementations deliver lifecycle changes as the synthetic
// "connect", "connect_error" and "disconnect" events on the same stream as
// backend notifications, in delivery order.
type Transport interface {
	// Run drives the connection until the context is cancelled.
	Run(ctx context.Context) error
	// Events returns the delivery stream. The channel closes when the
	// transport shuts down.
	Events() <-chan Message
}

// State is the listener's connection state.
type State int

const (
	Disconnected State = iota
	Connected
	Errored
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Errored:
		return "errored"
	default:
		return "disconnected"
	}
}

// Listener consumes the transport stream, maintains the connection state
// machine, and dispatches events into the reducer table.
//
// Handlers fire in channel-delivery order. Some reducers suspend on an
// async fetch, so completion order may differ; only initiation order is
// guaranteed.
type Listener struct {
	transport Transport
	reducer   *events.Context
	logger    *log.Logger

	mu    sync.Mutex
	state State
}

// NewListener wires a transport to a reducer context.
func NewListener(transport Transport, reducer *events.Context, logger *log.Logger) *Listener {
	if logger == nil {
		logger = log.Default()
	}
	return &Listener{
		transport: transport,
		reducer:   reducer,
		logger:    logger,
	}
}

// Run consumes events until the context is cancelled or the transport
// closes its stream. Per-event processing is not cancelable mid-flight.
func (l *Listener) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-l.transport.Events():
			if !ok {
				return nil
			}
			l.handle(ctx, msg)
		}
	}
}

// handle resolves one message and applies it: state machine first, then the
// reducer table. Unknown event names are skipped, not errors.
func (l *Listener) handle(ctx context.Context, msg Message) {
	kind, ok := events.ParseKind(msg.Name)
	if !ok {
		l.logger.Debug("skipping unrecognized event", "name", msg.Name)
		return
	}

	l.transition(kind)
	l.reducer.Reduce(ctx, events.Event{
		Kind:    kind,
		Action:  events.ParseAction(msg.Action),
		Payload: msg.Payload,
	})
}

// transition applies the connection state machine:
// disconnected→connected on open, connected→disconnected on close, any
// state→errored on channel error. Errored is sticky until the next
// successful connect.
func (l *Listener) transition(kind events.Kind) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch kind {
	case events.KindConnect:
		if l.state != Connected {
			l.logger.Info("push channel connected")
		}
		l.state = Connected
	case events.KindConnectError:
		if l.state != Errored {
			l.logger.Error("push channel errored")
		}
		l.state = Errored
	case events.KindDisconnect:
		if l.state == Errored {
			return // sticky until a successful connect
		}
		if l.state == Connected {
			l.logger.Warn("push channel disconnected")
		}
		l.state = Disconnected
	}
}

// State returns the current connection state.
func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}
