package request

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/opencode-ai/hostbridge/internal/cleanup"
	"github.com/opencode-ai/hostbridge/internal/event"
	"github.com/opencode-ai/hostbridge/internal/latch"
	"github.com/opencode-ai/hostbridge/internal/logging"
	"github.com/opencode-ai/hostbridge/internal/task"
	"github.com/opencode-ai/hostbridge/internal/transport"
)

// Terminal states of an exchange.
const (
	Fulfilled = task.Fulfilled
	Rejected  = task.Rejected
	Cancelled = task.Cancelled
)

// CaptureFunc decides whether an occurrence of a tracked event answers the
// request. It runs inside the bus dispatch and must be fast and free of side
// effects.
type CaptureFunc func(ev event.Event) bool

// Options configures a single request.
type Options struct {
	// Capture selects the answering occurrence. Nil accepts the first
	// occurrence of any tracked event.
	Capture CaptureFunc
	// Timeout cancels the wait once elapsed. Zero uses the engine default.
	Timeout time.Duration
	// Sender overrides the engine sender for this request.
	Sender transport.Sender
}

// Outcome is the total result of an exchange.
type Outcome struct {
	State task.State
	// Event is the captured occurrence when State is Fulfilled.
	Event event.Event
	// Err is set when State is Rejected or Cancelled.
	Err error
}

// Result converts the outcome to the usual value/error pair.
func (o Outcome) Result() (event.Event, error) {
	if o.State != Fulfilled {
		return event.Event{}, o.Err
	}
	return o.Event, nil
}

// Engine correlates commands with the host events that answer them.
type Engine struct {
	bus     *event.Bus
	sender  transport.Sender
	timeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the timeout applied to requests that do not set their own.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// New creates an engine listening on bus and sending through sender.
// sender may be nil if every request supplies Options.Sender.
func New(bus *event.Bus, sender transport.Sender, opts ...Option) *Engine {
	e := &Engine{bus: bus, sender: sender}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// pending is the correlation state of one exchange.
type pending struct {
	id       string
	method   string
	params   any
	events   []event.Name
	capture  CaptureFunc
	sender   transport.Sender
	timeout  time.Duration
	captured *latch.Latch[event.Event]
	releases *cleanup.Collector
}

// Exchange sends method and waits for the first occurrence of one of events
// accepted by opts.Capture. Every listener it installs is removed exactly once
// before Exchange returns, whatever the outcome.
func (e *Engine) Exchange(ctx context.Context, method string, params any, events []event.Name, opts Options) Outcome {
	p, err := e.prepare(ctx, method, params, events, opts)
	if err != nil {
		return Outcome{State: Rejected, Err: err}
	}

	log := logging.With().Str("request", p.id).Str("method", method).Logger()
	log.Debug().Interface("events", events).Msg("request started")

	p.subscribe(e.bus)

	if err := p.sender.Send(ctx, method, params); err != nil {
		_ = p.releases.Run()
		log.Debug().Err(err).Msg("request send failed")
		return Outcome{State: Rejected, Err: &SendError{Method: method, Err: err}}
	}

	t := task.Run(ctx, task.Options{Timeout: p.timeout}, func(t *task.Task[event.Event]) {
		// Subscribe before checking so that a value set concurrently between
		// the two steps is not missed. The host may also have answered
		// synchronously while the command was being sent.
		t.OnFinalized(p.captured.Subscribe(func(ev event.Event) {
			t.Resolve(ev)
		}))
		if ev, ok := p.captured.Get(); ok {
			t.Resolve(ev)
		}
	})
	t.OnFinalized(func() {
		_ = p.releases.Run()
	})

	ev, err := t.Wait()
	out := Outcome{State: t.State(), Event: ev, Err: err}
	log.Debug().Str("state", out.State.String()).Str("event", string(ev.Name)).Err(err).Msg("request settled")
	return out
}

func (e *Engine) prepare(ctx context.Context, method string, params any, events []event.Name, opts Options) (*pending, error) {
	if method == "" {
		return nil, ErrNoMethod
	}
	if len(events) == 0 {
		return nil, ErrNoEvents
	}

	sender := opts.Sender
	if sender == nil {
		sender = e.sender
	}
	if sender == nil {
		return nil, ErrNoSender
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = e.timeout
	}

	capture := opts.Capture
	if capture == nil {
		capture = func(event.Event) bool { return true }
	} else if timeout <= 0 && ctx.Done() == nil {
		return nil, ErrUnbounded
	}

	tracked := make([]event.Name, len(events))
	copy(tracked, events)

	return &pending{
		id:       ulid.Make().String(),
		method:   method,
		params:   params,
		events:   tracked,
		capture:  capture,
		sender:   sender,
		timeout:  timeout,
		captured: latch.New[event.Event](),
		releases: cleanup.New(),
	}, nil
}

// subscribe installs one listener per tracked name, duplicates included.
func (p *pending) subscribe(bus *event.Bus) {
	for _, name := range p.events {
		p.releases.Add(bus.Subscribe(name, p.listen))
	}
}

func (p *pending) listen(ev event.Event) {
	if p.accepts(ev) {
		p.captured.Set(ev)
	}
}

func (p *pending) accepts(ev event.Event) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Str("request", p.id).Interface("panic", r).Msg("capture predicate panicked")
			ok = false
		}
	}()
	return p.capture(ev)
}

// Do sends method and returns the payload of the first accepted occurrence of
// the single tracked event name.
func (e *Engine) Do(ctx context.Context, method string, params any, name event.Name, opts Options) (json.RawMessage, error) {
	ev, err := e.Exchange(ctx, method, params, []event.Name{name}, opts).Result()
	if err != nil {
		return nil, err
	}
	return ev.Payload, nil
}

// DoMany sends method and returns the first accepted occurrence of any of the
// tracked names, tagged with the name that answered.
func (e *Engine) DoMany(ctx context.Context, method string, params any, names []event.Name, opts Options) (event.Event, error) {
	return e.Exchange(ctx, method, params, names, opts).Result()
}

// DoInto is Do followed by decoding the payload into v.
func (e *Engine) DoInto(ctx context.Context, method string, params any, name event.Name, opts Options, v any) error {
	payload, err := e.Do(ctx, method, params, name, opts)
	if err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", name, err)
	}
	return nil
}

// Bus returns the bus the engine listens on.
func (e *Engine) Bus() *event.Bus {
	return e.bus
}
