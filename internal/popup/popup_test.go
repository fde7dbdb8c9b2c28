package popup

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/hostbridge/internal/event"
	"github.com/opencode-ai/hostbridge/internal/hostsim"
	"github.com/opencode-ai/hostbridge/internal/request"
	"github.com/opencode-ai/hostbridge/internal/transport"
	"github.com/opencode-ai/hostbridge/pkg/types"
)

func newPopup(t *testing.T, opts ...hostsim.Option) (*Popup, *hostsim.Host) {
	t.Helper()
	bus := event.NewBus()
	t.Cleanup(func() { bus.Close() })
	host := hostsim.New(nil, bus.Publish, opts...)
	engine := request.New(bus, transport.NewLoopback(host), request.WithTimeout(time.Second))
	return New(engine, request.Options{}), host
}

func TestOpen_ReturnsPressedButton(t *testing.T) {
	p, _ := newPopup(t, hostsim.WithPopupAnswerer(func(params types.OpenPopupParams) string {
		return params.Buttons[1].ID
	}))

	id, err := p.Open(context.Background(), Params{
		Title:   "Confirm",
		Message: "Delete the file?",
		Buttons: []types.PopupButton{
			{ID: "delete", Type: ButtonDestructive, Text: "Delete"},
			{ID: "cancel", Type: ButtonCancel},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "cancel", id)
}

func TestOpen_DefaultButton(t *testing.T) {
	var sent types.OpenPopupParams
	p, _ := newPopup(t, hostsim.WithPopupAnswerer(func(params types.OpenPopupParams) string {
		sent = params
		return ""
	}))

	id, err := p.Open(context.Background(), Params{Message: "Saved"})
	require.NoError(t, err)
	assert.Empty(t, id)
	require.Len(t, sent.Buttons, 1)
	assert.Equal(t, ButtonOK, sent.Buttons[0].Type)
}

func TestOpen_Validation(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		field  string
	}{
		{name: "empty message", params: Params{}, field: "message"},
		{name: "long message", params: Params{Message: strings.Repeat("x", MaxMessageLength+1)}, field: "message"},
		{name: "long title", params: Params{Title: strings.Repeat("t", MaxTitleLength+1), Message: "m"}, field: "title"},
		{name: "too many buttons", params: Params{Message: "m", Buttons: []types.PopupButton{
			{Type: ButtonOK}, {Type: ButtonClose}, {Type: ButtonCancel}, {Type: ButtonOK},
		}}, field: "buttons"},
		{name: "default without text", params: Params{Message: "m", Buttons: []types.PopupButton{{ID: "a"}}}, field: "buttons[0].text"},
		{name: "unknown type", params: Params{Message: "m", Buttons: []types.PopupButton{{ID: "a", Type: "big"}}}, field: "buttons[0].type"},
		{name: "long id", params: Params{Message: "m", Buttons: []types.PopupButton{{ID: strings.Repeat("i", MaxButtonIDLen+1), Type: ButtonOK}}}, field: "buttons[0].id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, host := newPopup(t)

			_, err := p.Open(context.Background(), tt.params)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Zero(t, host.Handled(types.MethodOpenPopup))
		})
	}
}

func TestOpen_TextIsDroppedForHostLabelledButtons(t *testing.T) {
	var sent json.RawMessage
	bus := event.NewBus()
	defer bus.Close()
	sender := transport.SenderFunc(func(ctx context.Context, method string, params any) error {
		sent, _ = transport.EncodeParams(params)
		ev, _ := event.New(event.PopupClosed, event.PopupClosedData{ButtonID: "x"})
		bus.Publish(ev)
		return nil
	})
	p := New(request.New(bus, sender), request.Options{})

	_, err := p.Open(context.Background(), Params{Message: "m", Buttons: []types.PopupButton{{ID: "x", Type: ButtonClose, Text: "ignored"}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"","message":"m","buttons":[{"id":"x","type":"close"}]}`, string(sent))
}

func TestOpen_Timeout(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()
	silent := transport.SenderFunc(func(context.Context, string, any) error { return nil })
	p := New(request.New(bus, silent), request.Options{Timeout: 20 * time.Millisecond})

	_, err := p.Open(context.Background(), Params{Message: "m"})
	require.Error(t, err)
	assert.Zero(t, bus.SubscriberCount(event.PopupClosed))
}
