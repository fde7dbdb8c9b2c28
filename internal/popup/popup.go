// Package popup shows native host popups.
package popup

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/opencode-ai/hostbridge/internal/event"
	"github.com/opencode-ai/hostbridge/internal/request"
	"github.com/opencode-ai/hostbridge/pkg/types"
)

// Button types.
const (
	ButtonDefault     = "default"
	ButtonOK          = "ok"
	ButtonClose       = "close"
	ButtonCancel      = "cancel"
	ButtonDestructive = "destructive"
)

// Limits enforced by the host.
const (
	MaxTitleLength   = 64
	MaxMessageLength = 256
	MaxButtons       = 3
	MaxButtonIDLen   = 64
	MaxButtonTextLen = 64
)

// ValidationError describes invalid popup params. Nothing is sent to the host
// when validation fails.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid popup %s: %s", e.Field, e.Reason)
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Params describes a popup. Buttons default to a single "ok" button.
type Params struct {
	Title   string
	Message string
	Buttons []types.PopupButton
}

// Popup opens popups through a request engine.
type Popup struct {
	engine *request.Engine
	opts   request.Options
}

// New creates a popup client. opts are applied to every request.
func New(engine *request.Engine, opts request.Options) *Popup {
	return &Popup{engine: engine, opts: opts}
}

// Open shows a popup and waits until it is closed. It returns the id of the
// pressed button, or "" when the popup was dismissed.
func (p *Popup) Open(ctx context.Context, params Params) (string, error) {
	wire, err := prepare(params)
	if err != nil {
		return "", err
	}

	var data event.PopupClosedData
	if err := p.engine.DoInto(ctx, types.MethodOpenPopup, wire, event.PopupClosed, p.opts, &data); err != nil {
		return "", err
	}
	return data.ButtonID, nil
}

func prepare(params Params) (types.OpenPopupParams, error) {
	if n := utf8.RuneCountInString(params.Title); n > MaxTitleLength {
		return types.OpenPopupParams{}, &ValidationError{Field: "title", Reason: fmt.Sprintf("%d characters, at most %d allowed", n, MaxTitleLength)}
	}
	n := utf8.RuneCountInString(params.Message)
	if n == 0 {
		return types.OpenPopupParams{}, &ValidationError{Field: "message", Reason: "must not be empty"}
	}
	if n > MaxMessageLength {
		return types.OpenPopupParams{}, &ValidationError{Field: "message", Reason: fmt.Sprintf("%d characters, at most %d allowed", n, MaxMessageLength)}
	}

	buttons := params.Buttons
	if len(buttons) == 0 {
		buttons = []types.PopupButton{{ID: "", Type: ButtonOK}}
	}
	if len(buttons) > MaxButtons {
		return types.OpenPopupParams{}, &ValidationError{Field: "buttons", Reason: fmt.Sprintf("%d buttons, at most %d allowed", len(buttons), MaxButtons)}
	}

	out := make([]types.PopupButton, len(buttons))
	for i, b := range buttons {
		if utf8.RuneCountInString(b.ID) > MaxButtonIDLen {
			return types.OpenPopupParams{}, &ValidationError{Field: fmt.Sprintf("buttons[%d].id", i), Reason: "too long"}
		}
		if b.Type == "" {
			b.Type = ButtonDefault
		}
		switch b.Type {
		case ButtonDefault, ButtonDestructive:
			if l := utf8.RuneCountInString(b.Text); l == 0 || l > MaxButtonTextLen {
				return types.OpenPopupParams{}, &ValidationError{Field: fmt.Sprintf("buttons[%d].text", i), Reason: fmt.Sprintf("must be 1 to %d characters", MaxButtonTextLen)}
			}
		case ButtonOK, ButtonClose, ButtonCancel:
			// the host supplies the label
			b.Text = ""
		default:
			return types.OpenPopupParams{}, &ValidationError{Field: fmt.Sprintf("buttons[%d].type", i), Reason: fmt.Sprintf("unknown type %q", b.Type)}
		}
		out[i] = b
	}

	return types.OpenPopupParams{Title: params.Title, Message: params.Message, Buttons: out}, nil
}
