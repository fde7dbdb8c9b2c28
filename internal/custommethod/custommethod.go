// Package custommethod calls methods the host exposes through
// web_app_invoke_custom_method.
//
// Each call carries a fresh req_id and waits for the custom_method_invoked
// event echoing it. A non-empty error in that event is returned as
// *MethodError.
package custommethod

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/opencode-ai/hostbridge/internal/event"
	"github.com/opencode-ai/hostbridge/internal/request"
	"github.com/opencode-ai/hostbridge/pkg/types"
)

// MethodError is returned when the host reported a failure for the method.
type MethodError struct {
	Method  string
	Message string
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("custom method %s failed: %s", e.Method, e.Message)
}

// IsMethodError checks if an error is a MethodError.
func IsMethodError(err error) bool {
	var me *MethodError
	return errors.As(err, &me)
}

// Invoker calls host custom methods.
type Invoker struct {
	engine *request.Engine
	opts   request.Options
}

// New creates an invoker on top of engine. opts are applied to every call;
// Capture is always replaced by req_id correlation.
func New(engine *request.Engine, opts request.Options) *Invoker {
	return &Invoker{engine: engine, opts: opts}
}

type invokedPayload struct {
	ReqID  string          `json:"req_id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Invoke calls method with params and returns the raw result, which is nil
// when the host sent none.
func (i *Invoker) Invoke(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	if method == "" {
		return nil, request.ErrNoMethod
	}
	if params == nil {
		params = map[string]any{}
	}
	reqID := ulid.Make().String()

	opts := i.opts
	opts.Capture = func(ev event.Event) bool {
		var p invokedPayload
		return ev.Decode(&p) == nil && p.ReqID == reqID
	}

	wire := types.InvokeCustomMethodParams{ReqID: reqID, Method: method, Params: params}
	payload, err := i.engine.Do(ctx, types.MethodInvokeCustomMethod, wire, event.CustomMethodInvoked, opts)
	if err != nil {
		return nil, err
	}

	var reply invokedPayload
	if err := json.Unmarshal(payload, &reply); err != nil {
		return nil, fmt.Errorf("failed to decode %s reply: %w", method, err)
	}
	if reply.Error != "" {
		return nil, &MethodError{Method: method, Message: reply.Error}
	}
	if string(reply.Result) == "null" {
		return nil, nil
	}
	return reply.Result, nil
}

// InvokeInto is Invoke followed by decoding the result into v. A missing
// result leaves v untouched.
func (i *Invoker) InvokeInto(ctx context.Context, method string, params map[string]any, v any) error {
	result, err := i.Invoke(ctx, method, params)
	if err != nil || len(result) == 0 {
		return err
	}
	if err := json.Unmarshal(result, v); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}
