// Package transport delivers commands from the bridge to the host.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
)

// Sender sends a one-way command to the host. A nil error only means the
// command left the bridge; replies, if any, arrive later as events.
type Sender interface {
	Send(ctx context.Context, method string, params any) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, method string, params any) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, method string, params any) error {
	return f(ctx, method, params)
}

// Handler receives commands on the host side.
type Handler interface {
	Handle(ctx context.Context, method string, params json.RawMessage) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, method string, params json.RawMessage) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, method string, params json.RawMessage) error {
	return f(ctx, method, params)
}

// Loopback hands commands straight to an in-process Handler. Events the
// handler emits are delivered before Send returns when the handler publishes
// synchronously.
type Loopback struct {
	handler Handler
}

// NewLoopback creates a loop-back sender.
func NewLoopback(h Handler) *Loopback {
	return &Loopback{handler: h}
}

// Send encodes params and calls the handler.
func (l *Loopback) Send(ctx context.Context, method string, params any) error {
	data, err := EncodeParams(params)
	if err != nil {
		return err
	}
	return l.handler.Handle(ctx, method, data)
}

// EncodeParams converts command params to raw JSON. Nil params encode to nothing.
func EncodeParams(params any) (json.RawMessage, error) {
	switch p := params.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	case []byte:
		return json.RawMessage(p), nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}
	return data, nil
}
