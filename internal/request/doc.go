/*
Package request correlates commands sent to the host with the broadcast events
that answer them.

The host has no request/response channel: a command goes out through a
transport.Sender and any reply comes back later as an ordinary event on the
event.Bus, visible to everyone. An Engine turns that into a single exchange:

	engine := request.New(bus, sender, request.WithTimeout(10*time.Second))

	payload, err := engine.Do(ctx, types.MethodOpenPopup, params, event.PopupClosed, request.Options{})

# Lifecycle

Each exchange goes through Idle → Subscribed → Sent → Waiting and ends in exactly
one of Fulfilled, Rejected or Cancelled:

  - Subscribed: one listener per tracked event name is installed on the bus.
    Listeners are installed before the command is sent because the host may
    answer from inside the send call.
  - Sent: the command is handed to the sender. A failure ends the exchange as
    Rejected with a *SendError.
  - Waiting: if an accepted occurrence was already captured the exchange is
    fulfilled immediately, otherwise it waits for one, for ctx to be cancelled or
    for the timeout.

Whatever the outcome, every listener is removed exactly once before the exchange
returns. The captured value is kept in a single-assignment latch, so an
occurrence that slips in during cleanup cannot replace the first one.

# Result shapes

Exchange returns a total Outcome and never a separate error. Do (one tracked
event, bare payload) and DoMany (several tracked events, tagged with the event
name) are thin value/error adapters over Exchange.

# Capture predicates

Options.Capture picks the answering occurrence, typically by comparing a request
id echoed by the host:

	reqID := ulid.Make().String()
	ev, err := engine.DoMany(ctx, types.MethodSecureStorageGet, params,
		[]event.Name{event.SecureStorageFailed, event.SecureStorageKeyRecv},
		request.Options{
			Timeout: 5 * time.Second,
			Capture: func(ev event.Event) bool {
				var p struct{ ReqID string `json:"req_id"` }
				return ev.Decode(&p) == nil && p.ReqID == reqID
			},
		})

A custom predicate may never match, so it requires a timeout: either
Options.Timeout, the engine default, or a cancellable ctx. Otherwise the request
is rejected with ErrUnbounded before anything is sent.

# Errors

  - ErrNoMethod, ErrNoEvents, ErrNoSender, ErrUnbounded: invalid usage, nothing sent
  - *SendError: the sender failed
  - *task.AbortedError: ctx was cancelled, the cause is kept as Reason
  - *task.TimeoutError: the timeout elapsed before an occurrence was captured

The engine never retries. Failure events defined by a host feature (for example
secure_storage_failed) are decoded by the caller, see package securestorage.
*/
package request
