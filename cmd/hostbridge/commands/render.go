package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/opencode-ai/hostbridge/internal/event"
)

// Renderer prints bridge activity for humans or, with --json, as JSON lines.
type Renderer struct {
	out  io.Writer
	err  io.Writer
	json bool
}

// NewRenderer creates a renderer writing results to out and notices to errOut.
func NewRenderer(out, errOut io.Writer, asJSON, disableColor bool) *Renderer {
	if disableColor {
		color.NoColor = true
	}
	return &Renderer{out: out, err: errOut, json: asJSON}
}

// Banner reports the host the command talks to.
func (r *Renderer) Banner(url string) {
	fmt.Fprintln(r.err, color.New(color.FgHiBlack).Sprintf("Connected to %s", url))
}

// Event prints one event.
func (r *Renderer) Event(ev event.Event) {
	if r.json {
		b, _ := json.Marshal(map[string]any{
			"time":      time.Now().Format(time.RFC3339Nano),
			"eventType": ev.Name,
			"eventData": rawOrNull(ev.Payload),
		})
		fmt.Fprintln(r.out, string(b))
		return
	}
	fmt.Fprintf(r.out, "%s %s\n",
		color.New(color.FgCyan, color.Bold).Sprint(string(ev.Name)+" ›"),
		string(rawOrNull(ev.Payload)))
}

// Error prints a failed request.
func (r *Renderer) Error(method string, err error) {
	if r.json {
		b, _ := json.Marshal(map[string]string{"method": method, "error": err.Error()})
		fmt.Fprintln(r.out, string(b))
		return
	}
	fmt.Fprintf(r.err, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint(method+" ✗"), err)
}

func rawOrNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
