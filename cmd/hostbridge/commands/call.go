package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/hostbridge/internal/event"
	"github.com/opencode-ai/hostbridge/internal/request"
)

var (
	callParams  string
	callMatch   []string
	callTimeout time.Duration
)

var callCmd = &cobra.Command{
	Use:   "call <method> <event> [event...]",
	Short: "Send a command and print the event that answers it",
	Long: `Send a command to the host and wait for the first occurrence of one of
the given events.

--match narrows which occurrence counts as the answer: every key=value pair
must equal the top-level field of the event payload, compared as text.

Example:
  hostbridge call web_app_invoke_custom_method custom_method_invoked \
    --params '{"req_id":"1","method":"ping","params":{}}' --match req_id=1`,
	Args: cobra.MinimumNArgs(2),
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringVar(&callParams, "params", "", "Command params as JSON")
	callCmd.Flags().StringArrayVar(&callMatch, "match", nil, "Only accept events whose payload field equals value (key=value, repeatable)")
	callCmd.Flags().DurationVar(&callTimeout, "timeout", 0, "How long to wait for the answer (default from config)")
}

func runCall(cmd *cobra.Command, args []string) error {
	method := args[0]
	names := make([]event.Name, 0, len(args)-1)
	for _, arg := range args[1:] {
		names = append(names, event.Name(arg))
	}

	var params any
	if callParams != "" {
		if !json.Valid([]byte(callParams)) {
			return fmt.Errorf("--params is not valid JSON")
		}
		params = json.RawMessage(callParams)
	}

	capture, err := matchCapture(callMatch)
	if err != nil {
		return err
	}

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

	engine := request.New(bus, conn, request.WithTimeout(appConfig.Request.Timeout.Std()))
	ev, err := engine.DoMany(ctx, method, params, names, request.Options{
		Capture: capture,
		Timeout: callTimeout,
	})
	if err != nil {
		r.Error(method, err)
		return err
	}

	r.Event(ev)
	return nil
}

// matchCapture builds a predicate requiring every key=value pair to match the
// payload's top-level fields. No pairs means no predicate.
func matchCapture(pairs []string) (request.CaptureFunc, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	want := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --match %q, expected key=value", pair)
		}
		want[key] = value
	}

	return func(ev event.Event) bool {
		var payload map[string]any
		if err := ev.Decode(&payload); err != nil || payload == nil {
			return false
		}
		for key, value := range want {
			got, ok := payload[key]
			if !ok || fieldText(got) != value {
				return false
			}
		}
		return true
	}, nil
}

// fieldText renders a decoded JSON value the way it would be typed on the
// command line.
func fieldText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return "null"
	case float64, bool:
		return fmt.Sprint(t)
	}
	b, _ := json.Marshal(v)
	return string(b)
}
