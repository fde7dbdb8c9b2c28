/*
Package event provides the pub/sub bus that carries host events into the bridge.

The host talks to the bridge with broadcast events: they are not addressed to any
particular caller, they may arrive in any order, and the same event may be of
interest to several parts of the program at once. The Bus fans every event out to
the subscribers registered for its name.

# Delivery

Publish is synchronous. Subscribers of the event run first, in subscription order,
followed by SubscribeAll subscribers, all in the publisher's goroutine. A host
emulator or loop-back transport may therefore deliver an event from inside the call
that sent a command, and anyone who wants to observe that event must subscribe
before sending.

A subscriber removed while a dispatch is in progress is not called for the rest of
that dispatch.

# Basic Usage

	bus := event.NewBus()
	defer bus.Close()

	unsubscribe := bus.Subscribe(event.PopupClosed, func(e event.Event) {
		var data event.PopupClosedData
		if err := e.Decode(&data); err == nil {
			logging.Info().Str("button", data.ButtonID).Msg("popup closed")
		}
	})
	defer unsubscribe()

	ev, _ := event.New(event.PopupClosed, event.PopupClosedData{ButtonID: "ok"})
	bus.Publish(ev)

# Subscriber Safety Guidelines

Subscribers run inside Publish, so they MUST:

  - Complete quickly (avoid long-running operations)
  - Use non-blocking channel sends (select with default case)
  - Never acquire locks that the publisher might hold

# Streams

Every published event is mirrored onto a watermill gochannel topic named after the
event. Stream exposes that topic as a Go channel for consumers that prefer to range
over events than to register a callback:

	events, err := bus.Stream(ctx, event.ThemeChanged)
	for e := range events {
		...
	}

PubSub returns the underlying GoChannel for middleware or routing.
*/
package event
