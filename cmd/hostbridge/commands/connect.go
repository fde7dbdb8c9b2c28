package commands

import (
	"context"

	"github.com/opencode-ai/hostbridge/internal/event"
	"github.com/opencode-ai/hostbridge/internal/transport"
)

// connect dials the configured host and forwards its events to a new bus.
func connect(ctx context.Context) (*event.Bus, *transport.HostConn, error) {
	bus := event.NewBus()
	conn, err := transport.Dial(ctx, bus, transport.HostConnOptions{
		URL:               appConfig.Host.URL,
		ReconnectAttempts: appConfig.Host.ReconnectAttempts,
		ReconnectDelay:    appConfig.Host.ReconnectDelay.Std(),
	})
	if err != nil {
		bus.Close()
		return nil, nil, err
	}
	return bus, conn, nil
}
