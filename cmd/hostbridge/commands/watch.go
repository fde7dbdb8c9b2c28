package commands

import (
	"os"
	"os/signal"
	"sync"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/hostbridge/internal/event"
	"github.com/opencode-ai/hostbridge/internal/logging"
)

var watchCmd = &cobra.Command{
	Use:   "watch [event...]",
	Short: "Print host events as they arrive",
	Long: `Connect to the host and print events until interrupted. With no event
names every event is printed.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	bus, conn, err := connect(ctx)
	if err != nil {
		return err
	}
	defer bus.Close()
	defer conn.Close()

	r := NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), jsonOut, noColor)
	r.Banner(appConfig.Host.URL)

	// Printing happens under one lock so lines from different streams do not
	// interleave.
	var mu sync.Mutex
	show := func(ev event.Event) {
		mu.Lock()
		defer mu.Unlock()
		r.Event(ev)
	}

	var wg sync.WaitGroup
	if len(args) == 0 {
		unsub := bus.SubscribeAll(show)
		defer unsub()
	} else {
		for _, arg := range args {
			events, err := bus.Stream(ctx, event.Name(arg))
			if err != nil {
				return err
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				for ev := range events {
					show(ev)
				}
			}()
		}
	}

	select {
	case <-ctx.Done():
	case <-conn.Done():
		logging.Warn().Msg("host connection closed")
	}

	// Cancelling the context closes the streams.
	stop()
	wg.Wait()
	return nil
}
