// Package hostsim emulates the host side of the bridge.
//
// A Host receives commands and answers them with events, the way the real host
// would. Answers are published synchronously from inside Handle, which makes the
// emulator suitable both as a loop-back test environment and as the backend of
// the websocket server.
package hostsim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/opencode-ai/hostbridge/internal/event"
	"github.com/opencode-ai/hostbridge/internal/logging"
	"github.com/opencode-ai/hostbridge/internal/storage"
	"github.com/opencode-ai/hostbridge/pkg/types"
)

// Publisher receives the events emitted by the host.
type Publisher func(ev event.Event)

// CustomMethod answers web_app_invoke_custom_method for one method name.
type CustomMethod func(ctx context.Context, params map[string]any) (any, error)

// PopupAnswerer picks the button pressed for a popup. Returning "" means the
// popup was dismissed.
type PopupAnswerer func(params types.OpenPopupParams) string

// Host is an in-process host emulator.
type Host struct {
	store   *storage.Storage
	publish Publisher

	mu       sync.RWMutex
	theme    map[string]string
	viewport event.ViewportChangedData
	custom   map[string]CustomMethod
	popup    PopupAnswerer
	handled  map[string]int
}

// Option configures a Host.
type Option func(*Host)

// WithTheme sets the theme params reported by web_app_request_theme.
func WithTheme(theme map[string]string) Option {
	return func(h *Host) {
		h.theme = theme
	}
}

// WithViewport sets the viewport reported by web_app_request_viewport.
func WithViewport(vp event.ViewportChangedData) Option {
	return func(h *Host) {
		h.viewport = vp
	}
}

// WithCustomMethod registers a custom method.
func WithCustomMethod(name string, fn CustomMethod) Option {
	return func(h *Host) {
		h.custom[name] = fn
	}
}

// WithPopupAnswerer sets how popups are answered. The default presses the
// first button.
func WithPopupAnswerer(fn PopupAnswerer) Option {
	return func(h *Host) {
		h.popup = fn
	}
}

// New creates a host emulator persisting values in store and emitting events
// through publish.
func New(store *storage.Storage, publish Publisher, opts ...Option) *Host {
	h := &Host{
		store:   store,
		publish: publish,
		theme: map[string]string{
			"bg_color":   "#ffffff",
			"text_color": "#000000",
		},
		viewport: event.ViewportChangedData{Height: 640, Width: 360, IsExpanded: true, IsStateStable: true},
		custom:   make(map[string]CustomMethod),
		popup:    firstButton,
		handled:  make(map[string]int),
	}
	if store != nil {
		h.registerCloudStorage()
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func firstButton(params types.OpenPopupParams) string {
	if len(params.Buttons) == 0 {
		return ""
	}
	return params.Buttons[0].ID
}

// Handle processes one command. It returns an error only when params cannot be
// decoded; commands the host does not know are ignored, as a real host would.
func (h *Host) Handle(ctx context.Context, method string, params json.RawMessage) error {
	h.mu.Lock()
	h.handled[method]++
	h.mu.Unlock()

	logging.Debug().Str("method", method).RawJSON("params", orNull(params)).Msg("host received command")

	switch method {
	case types.MethodOpenPopup:
		return h.openPopup(params)
	case types.MethodRequestTheme:
		h.mu.RLock()
		theme := h.theme
		h.mu.RUnlock()
		return h.emit(event.ThemeChanged, event.ThemeChangedData{ThemeParams: theme})
	case types.MethodRequestViewport:
		h.mu.RLock()
		vp := h.viewport
		h.mu.RUnlock()
		return h.emit(event.ViewportChanged, vp)
	case types.MethodInvokeCustomMethod:
		return h.invokeCustom(ctx, params)
	case types.MethodSecureStorageSave, types.MethodSecureStorageGet,
		types.MethodSecureStorageRest, types.MethodSecureStorageClear:
		return h.secureStorage(ctx, method, params)
	}

	logging.Debug().Str("method", method).Msg("host ignored unknown command")
	return nil
}

// Handled returns how many times method was received.
func (h *Host) Handled(method string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.handled[method]
}

// SetTheme changes the theme and broadcasts theme_changed.
func (h *Host) SetTheme(theme map[string]string) error {
	h.mu.Lock()
	h.theme = theme
	h.mu.Unlock()
	return h.emit(event.ThemeChanged, event.ThemeChangedData{ThemeParams: theme})
}

// Emit broadcasts an arbitrary event, e.g. visibility_changed.
func (h *Host) Emit(name event.Name, payload any) error {
	return h.emit(name, payload)
}

func (h *Host) emit(name event.Name, payload any) error {
	ev, err := event.New(name, payload)
	if err != nil {
		return err
	}
	h.publish(ev)
	return nil
}

func (h *Host) openPopup(raw json.RawMessage) error {
	var params types.OpenPopupParams
	if err := decode(raw, &params); err != nil {
		return err
	}
	h.mu.RLock()
	answer := h.popup
	h.mu.RUnlock()
	return h.emit(event.PopupClosed, event.PopupClosedData{ButtonID: answer(params)})
}

func (h *Host) invokeCustom(ctx context.Context, raw json.RawMessage) error {
	var params types.InvokeCustomMethodParams
	if err := decode(raw, &params); err != nil {
		return err
	}

	h.mu.RLock()
	fn, ok := h.custom[params.Method]
	h.mu.RUnlock()

	reply := event.CustomMethodInvokedData{ReqID: params.ReqID}
	if !ok {
		reply.Error = "UNKNOWN_METHOD"
	} else if result, err := fn(ctx, params.Params); err != nil {
		reply.Error = err.Error()
	} else {
		reply.Result = result
	}
	return h.emit(event.CustomMethodInvoked, reply)
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New("missing params")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

func orNull(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
