// Package theme tracks the host theme parameters.
package theme

import (
	"context"
	"maps"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/opencode-ai/hostbridge/internal/event"
	"github.com/opencode-ai/hostbridge/internal/logging"
	"github.com/opencode-ai/hostbridge/internal/request"
	"github.com/opencode-ai/hostbridge/pkg/types"
)

// Theme holds the last theme reported by the host. Once mounted it follows
// every theme_changed event.
type Theme struct {
	engine *request.Engine
	opts   request.Options

	mu        sync.RWMutex
	params    map[string]string
	listeners map[uint64]func(map[string]string)
	nextID    uint64
	unsub     func()
}

// New creates a theme tracker. opts are applied to Request.
func New(engine *request.Engine, opts request.Options) *Theme {
	return &Theme{
		engine:    engine,
		opts:      opts,
		params:    map[string]string{},
		listeners: make(map[uint64]func(map[string]string)),
	}
}

// Mount starts following theme_changed. Mounting twice is a no-op.
func (t *Theme) Mount() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.unsub != nil {
		return
	}
	t.unsub = t.engine.Bus().Subscribe(event.ThemeChanged, t.onEvent)
}

// Unmount stops following theme_changed. The last params are kept.
func (t *Theme) Unmount() {
	t.mu.Lock()
	unsub := t.unsub
	t.unsub = nil
	t.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// IsMounted reports whether the theme follows host events.
func (t *Theme) IsMounted() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.unsub != nil
}

// Request asks the host for its theme and stores the answer.
func (t *Theme) Request(ctx context.Context) (map[string]string, error) {
	var data event.ThemeChangedData
	if err := t.engine.DoInto(ctx, types.MethodRequestTheme, nil, event.ThemeChanged, t.opts, &data); err != nil {
		return nil, err
	}
	t.apply(data.ThemeParams)
	return t.Params(), nil
}

// Params returns a copy of the current params.
func (t *Theme) Params() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.params)
}

// Get returns one param, e.g. "bg_color".
func (t *Theme) Get(key string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.params[key]
	return v, ok
}

// IsDark reports whether bg_color is a dark color. It is false when the
// background is unknown.
func (t *Theme) IsDark() bool {
	bg, ok := t.Get("bg_color")
	return ok && isDarkColor(bg)
}

// OnChange registers fn to be called with the new params whenever they
// change. The returned function removes it.
func (t *Theme) OnChange(fn func(map[string]string)) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

func (t *Theme) onEvent(ev event.Event) {
	var data event.ThemeChangedData
	if err := ev.Decode(&data); err != nil {
		logging.Warn().Err(err).Msg("ignoring malformed theme_changed")
		return
	}
	t.apply(data.ThemeParams)
}

// apply stores params and notifies listeners when they differ from the
// current ones.
func (t *Theme) apply(params map[string]string) {
	if params == nil {
		params = map[string]string{}
	}

	t.mu.Lock()
	if maps.Equal(t.params, params) {
		t.mu.Unlock()
		return
	}
	t.params = maps.Clone(params)
	listeners := make([]func(map[string]string), 0, len(t.listeners))
	for _, fn := range t.listeners {
		listeners = append(listeners, fn)
	}
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(maps.Clone(params))
	}
}

// isDarkColor parses #rgb or #rrggbb and compares its perceived brightness
// against the midpoint used by the host.
func isDarkColor(color string) bool {
	hex := strings.TrimPrefix(strings.TrimSpace(color), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return false
	}
	r, g, b := float64(v>>16&0xff), float64(v>>8&0xff), float64(v&0xff)
	return math.Sqrt(0.299*r*r+0.587*g*g+0.114*b*b) < 120
}
