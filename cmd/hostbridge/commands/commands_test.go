package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/hostbridge/internal/event"
	"github.com/opencode-ai/hostbridge/internal/hostsim"
	"github.com/opencode-ai/hostbridge/internal/logging"
	"github.com/opencode-ai/hostbridge/internal/server"
	"github.com/opencode-ai/hostbridge/internal/storage"
	"github.com/opencode-ai/hostbridge/pkg/types"
)

func TestMatchCapture(t *testing.T) {
	capture, err := matchCapture([]string{"req_id=7", "ok=true"})
	require.NoError(t, err)

	mk := func(payload string) event.Event {
		return event.Event{Name: "x", Payload: json.RawMessage(payload)}
	}

	assert.True(t, capture(mk(`{"req_id":"7","ok":true}`)))
	assert.True(t, capture(mk(`{"req_id":7,"ok":true,"extra":1}`)))
	assert.False(t, capture(mk(`{"req_id":"8","ok":true}`)))
	assert.False(t, capture(mk(`{"req_id":"7"}`)))
	assert.False(t, capture(mk(`[1,2]`)))
	assert.False(t, capture(event.Event{Name: "x"}))
}

func TestMatchCapture_NoPairs(t *testing.T) {
	capture, err := matchCapture(nil)
	require.NoError(t, err)
	assert.Nil(t, capture)
}

func TestMatchCapture_Invalid(t *testing.T) {
	for _, pair := range []string{"novalue", "=x"} {
		_, err := matchCapture([]string{pair})
		assert.Error(t, err, pair)
	}
}

func TestFieldText(t *testing.T) {
	assert.Equal(t, "abc", fieldText("abc"))
	assert.Equal(t, "42", fieldText(float64(42)))
	assert.Equal(t, "1.5", fieldText(1.5))
	assert.Equal(t, "false", fieldText(false))
	assert.Equal(t, "null", fieldText(nil))
	assert.Equal(t, `{"a":1}`, fieldText(map[string]any{"a": float64(1)}))
}

func TestRenderer(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut, true, true)

	r.Event(event.Event{Name: event.PopupClosed, Payload: json.RawMessage(`{"button_id":"ok"}`)})
	r.Event(event.Event{Name: event.ThemeChanged})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "popup_closed", first["eventType"])
	assert.Equal(t, map[string]any{"button_id": "ok"}, first["eventData"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Nil(t, second["eventData"])
}

func TestCallAgainstEmulator(t *testing.T) {
	srv := server.New(server.DefaultConfig(), storage.New(t.TempDir()),
		hostsim.WithTheme(map[string]string{"bg_color": "#abcdef"}))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("HOSTBRIDGE_HOST_URL", "ws"+strings.TrimPrefix(ts.URL, "http")+"/bridge")
	t.Setenv("HOSTBRIDGE_REQUEST_TIMEOUT", "2s")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"call", "web_app_request_theme", "theme_changed", "--json", "--no-color", "--directory", home})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, Execute())

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &line))
	assert.Equal(t, "theme_changed", line["eventType"])
	assert.Equal(t, map[string]any{"theme_params": map[string]any{"bg_color": "#abcdef"}}, line["eventData"])

	srv.Shutdown(context.Background())
}

func TestLoggingConfig(t *testing.T) {
	pretty := true
	cfg := &types.Config{Log: &types.LogConfig{Level: "debug", Pretty: &pretty, Dir: t.TempDir()}}

	printLogs = false
	lc := loggingConfig(cfg)
	assert.Equal(t, logging.DebugLevel, lc.Level)
	assert.True(t, lc.Pretty)
	assert.True(t, lc.LogToFile)
	assert.Equal(t, cfg.Log.Dir, lc.LogDir)
	assert.Equal(t, io.Discard, lc.Output)

	printLogs = true
	defer func() { printLogs = false }()
	lc = loggingConfig(&types.Config{})
	assert.Equal(t, logging.InfoLevel, lc.Level)
	assert.False(t, lc.LogToFile)
	assert.NotEqual(t, io.Discard, lc.Output)
}

func TestTeardownClosesLogFile(t *testing.T) {
	dir := t.TempDir()
	logging.Init(loggingConfig(&types.Config{Log: &types.LogConfig{Dir: dir}}))
	path := logging.GetLogFilePath()
	require.NotEmpty(t, path)
	assert.Equal(t, dir, filepath.Dir(path))

	teardown(rootCmd, nil)
	assert.Empty(t, logging.GetLogFilePath())
	logging.Init(logging.DefaultConfig())
}
