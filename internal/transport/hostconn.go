package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/opencode-ai/hostbridge/internal/event"
	"github.com/opencode-ai/hostbridge/internal/logging"
	"github.com/opencode-ai/hostbridge/pkg/types"
)

// ErrNotConnected is returned by Send while the connection is down.
var ErrNotConnected = errors.New("host connection is not established")

// HostConnOptions configures a HostConn.
type HostConnOptions struct {
	// URL is the host websocket endpoint, e.g. "ws://127.0.0.1:7777/bridge".
	URL string
	// Header is sent with the websocket handshake.
	Header http.Header
	// ReconnectAttempts limits dial retries (default: 5).
	ReconnectAttempts int
	// ReconnectDelay is the initial delay between dial retries (default: 1s).
	ReconnectDelay time.Duration
	// WriteTimeout bounds a single command write (default: 10s).
	WriteTimeout time.Duration
}

// HostConn is a websocket connection to the host. Commands are written as
// types.Message; every message read from the host is published on the bus.
type HostConn struct {
	opts   HostConnOptions
	bus    *event.Bus
	dialer *websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	writeMu sync.Mutex
	done    chan struct{}

	// ctx is cancelled by Close so that a reconnect in progress stops.
	ctx    context.Context
	cancel context.CancelFunc
}

// Dial connects to the host, retrying with exponential backoff, and starts
// forwarding inbound events to bus.
func Dial(ctx context.Context, bus *event.Bus, opts HostConnOptions) (*HostConn, error) {
	if opts.ReconnectAttempts == 0 {
		opts.ReconnectAttempts = 5
	}
	if opts.ReconnectDelay == 0 {
		opts.ReconnectDelay = time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 10 * time.Second
	}

	c := &HostConn{
		opts:   opts,
		bus:    bus,
		dialer: websocket.DefaultDialer,
		done:   make(chan struct{}),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	conn, err := c.dial(ctx)
	if err != nil {
		c.cancel()
		return nil, err
	}
	c.conn = conn

	go c.readLoop(conn)
	return c, nil
}

func (c *HostConn) newBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.ReconnectDelay
	b.MaxInterval = 30 * time.Second
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.opts.ReconnectAttempts)), ctx)
}

func (c *HostConn) dial(ctx context.Context) (*websocket.Conn, error) {
	var conn *websocket.Conn
	op := func() error {
		var err error
		conn, _, err = c.dialer.DialContext(ctx, c.opts.URL, c.opts.Header)
		return err
	}
	notify := func(err error, wait time.Duration) {
		logging.Info().Err(err).Str("url", c.opts.URL).Dur("retryIn", wait).Msg("host dial failed")
	}
	if err := backoff.RetryNotify(op, c.newBackoff(ctx), notify); err != nil {
		return nil, fmt.Errorf("failed to connect to host %s: %w", c.opts.URL, err)
	}
	logging.Info().Str("url", c.opts.URL).Msg("connected to host")
	return conn, nil
}

func (c *HostConn) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			if conn = c.reconnect(err); conn == nil {
				close(c.done)
				return
			}
			continue
		}

		var msg types.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logging.Warn().Err(err).Msg("dropping malformed host message")
			continue
		}
		if msg.EventType == "" {
			continue
		}
		c.bus.Publish(event.Event{Name: event.Name(msg.EventType), Payload: msg.EventData})
	}
}

// reconnect replaces a broken connection and returns the one it installed.
// It returns nil when the connection was closed on purpose or could not be
// re-established.
func (c *HostConn) reconnect(cause error) *websocket.Conn {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.conn = nil
	c.mu.Unlock()

	logging.Warn().Err(cause).Msg("host connection lost, reconnecting")
	conn, err := c.dial(c.ctx)
	if err != nil {
		if c.ctx.Err() == nil {
			logging.Error().Err(err).Msg("giving up on host connection")
		}
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		conn.Close()
		return nil
	}
	c.conn = conn
	return conn
}

// Send writes a command to the host.
func (c *HostConn) Send(ctx context.Context, method string, params any) error {
	data, err := EncodeParams(params)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(types.Message{EventType: method, EventData: data})
	if err != nil {
		return fmt.Errorf("failed to encode command: %w", err)
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	deadline := time.Now().Add(c.opts.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("failed to write command %s: %w", method, err)
	}
	return nil
}

// Done returns a channel closed once the connection is gone for good.
func (c *HostConn) Done() <-chan struct{} {
	return c.done
}

// Close closes the connection and stops reconnecting.
func (c *HostConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	c.cancel()

	if conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return conn.Close()
}
