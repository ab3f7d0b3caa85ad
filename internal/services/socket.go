package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/desertthunder/subwatch/internal/shared"
	"github.com/desertthunder/subwatch/internal/socket"
)

// frame is the wire shape of one push notification.
type frame struct {
	Type    string          `json:"type"`
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// PushSocket is the websocket transport behind the push channel listener.
// It dials the backend, reads notification frames, and reconnects with
// capped exponential backoff. Connection lifecycle is folded into the event
// stream as the synthetic connect, connect_error and disconnect events so
// the listener observes a single ordered stream.
type PushSocket struct {
	url        string
	apiKey     string
	dialer     *websocket.Dialer
	events     chan socket.Message
	minBackoff time.Duration
	maxBackoff time.Duration
	logger     *log.Logger
}

// NewPushSocket builds a transport from the backend and socket configuration.
func NewPushSocket(backend shared.BackendConfig, cfg shared.SocketConfig, logger *log.Logger) (*PushSocket, error) {
	if logger == nil {
		logger = log.Default()
	}

	wsURL, err := socketURL(backend.BaseURL, cfg.Path)
	if err != nil {
		return nil, err
	}

	minBackoff := time.Duration(cfg.ReconnectMinMs) * time.Millisecond
	if minBackoff <= 0 {
		minBackoff = 500 * time.Millisecond
	}
	maxBackoff := time.Duration(cfg.ReconnectMaxMs) * time.Millisecond
	if maxBackoff < minBackoff {
		maxBackoff = 30 * time.Second
	}
	handshake := time.Duration(cfg.HandshakeTimeoutMs) * time.Millisecond
	if handshake <= 0 {
		handshake = 10 * time.Second
	}

	return &PushSocket{
		url:        wsURL,
		apiKey:     backend.APIKey,
		dialer:     &websocket.Dialer{HandshakeTimeout: handshake},
		events:     make(chan socket.Message, 64),
		minBackoff: minBackoff,
		maxBackoff: maxBackoff,
		logger:     logger,
	}, nil
}

// socketURL derives the ws:// endpoint from the backend's HTTP base URL.
func socketURL(baseURL, path string) (string, error) {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:6767"
	}
	if path == "" {
		path = "/api/socket.io"
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", shared.ErrInvalidConfig
	}

	switch parsed.Scheme {
	case "https", "wss":
		parsed.Scheme = "wss"
	default:
		parsed.Scheme = "ws"
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + path
	return parsed.String(), nil
}

// Events returns the delivery stream. The channel closes when Run returns.
func (p *PushSocket) Events() <-chan socket.Message {
	return p.events
}

// Run dials and reads until the context is cancelled, reconnecting on every
// failure. Each failed dial emits connect_error and backs off exponentially;
// a successful dial emits connect and resets the backoff.
func (p *PushSocket) Run(ctx context.Context) error {
	defer close(p.events)

	backoff := p.minBackoff
	for {
		conn, err := p.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Warn("push channel dial failed", "error", err, "retry_in", backoff)
			p.emit(ctx, socket.Message{Name: "connect_error"})
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(backoff*2, p.maxBackoff)
			continue
		}

		backoff = p.minBackoff
		p.emit(ctx, socket.Message{Name: "connect"})
		p.read(ctx, conn)
		conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.emit(ctx, socket.Message{Name: "disconnect"})
		if !sleep(ctx, backoff) {
			return ctx.Err()
		}
	}
}

func (p *PushSocket) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if p.apiKey != "" {
		header.Set("X-API-KEY", p.apiKey)
	}

	conn, resp, err := p.dialer.DialContext(ctx, p.url, header)
	if resp != nil {
		resp.Body.Close()
	}
	return conn, err
}

// read pumps frames from an open connection until it fails or the context
// is cancelled. Frames that fail to decode are logged and skipped.
// The ctx watcher exits with the connection, so reconnect churn leaves no
// goroutines behind.
func (p *PushSocket) read(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				p.logger.Warn("push channel read failed", "error", err)
			}
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil || f.Type == "" {
			p.logger.Debug("skipping malformed frame", "error", err)
			continue
		}
		p.emit(ctx, socket.Message{Name: f.Type, Action: f.Action, Payload: f.Payload})
	}
}

func (p *PushSocket) emit(ctx context.Context, msg socket.Message) {
	select {
	case p.events <- msg:
	case <-ctx.Done():
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
