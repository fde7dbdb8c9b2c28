package transport

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopback_Send(t *testing.T) {
	var gotMethod string
	var gotParams json.RawMessage
	lb := NewLoopback(HandlerFunc(func(ctx context.Context, method string, params json.RawMessage) error {
		gotMethod = method
		gotParams = params
		return nil
	}))

	err := lb.Send(context.Background(), "web_app_open_popup", map[string]string{"message": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "web_app_open_popup", gotMethod)
	assert.JSONEq(t, `{"message":"hi"}`, string(gotParams))
}

func TestLoopback_HandlerError(t *testing.T) {
	boom := errors.New("boom")
	lb := NewLoopback(HandlerFunc(func(ctx context.Context, method string, params json.RawMessage) error {
		return boom
	}))

	err := lb.Send(context.Background(), "m", nil)
	assert.ErrorIs(t, err, boom)
}

func TestLoopback_UnencodableParams(t *testing.T) {
	called := false
	lb := NewLoopback(HandlerFunc(func(ctx context.Context, method string, params json.RawMessage) error {
		called = true
		return nil
	}))

	err := lb.Send(context.Background(), "m", make(chan int))
	assert.Error(t, err)
	assert.False(t, called)
}

func TestEncodeParams(t *testing.T) {
	tests := []struct {
		name   string
		params any
		want   string
	}{
		{name: "nil", params: nil, want: ""},
		{name: "raw", params: json.RawMessage(`{"a":1}`), want: `{"a":1}`},
		{name: "bytes", params: []byte(`[1,2]`), want: `[1,2]`},
		{name: "struct", params: struct {
			Key string `json:"key"`
		}{Key: "k"}, want: `{"key":"k"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeParams(tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestSenderFunc(t *testing.T) {
	var calls int
	var s Sender = SenderFunc(func(ctx context.Context, method string, params any) error {
		calls++
		return nil
	})
	require.NoError(t, s.Send(context.Background(), "m", nil))
	assert.Equal(t, 1, calls)
}
