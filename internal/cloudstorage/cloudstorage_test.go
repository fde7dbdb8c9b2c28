package cloudstorage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/hostbridge/internal/custommethod"
	"github.com/opencode-ai/hostbridge/internal/event"
	"github.com/opencode-ai/hostbridge/internal/hostsim"
	"github.com/opencode-ai/hostbridge/internal/request"
	"github.com/opencode-ai/hostbridge/internal/storage"
	"github.com/opencode-ai/hostbridge/internal/transport"
	"github.com/opencode-ai/hostbridge/pkg/types"
)

func newStorage(t *testing.T, store *storage.Storage) (*Storage, *hostsim.Host) {
	t.Helper()
	bus := event.NewBus()
	t.Cleanup(func() { bus.Close() })
	host := hostsim.New(store, bus.Publish)
	engine := request.New(bus, transport.NewLoopback(host), request.WithTimeout(time.Second))
	return New(custommethod.New(engine, request.Options{})), host
}

func TestSetGetDelete(t *testing.T) {
	s, _ := newStorage(t, storage.New(t.TempDir()))
	ctx := context.Background()

	require.NoError(t, s.SetItem(ctx, "theme", "dark"))
	require.NoError(t, s.SetItem(ctx, "lang", "en"))

	value, err := s.GetItem(ctx, "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", value)

	values, err := s.GetItems(ctx, "theme", "lang", "unset")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"theme": "dark", "lang": "en", "unset": ""}, values)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"lang", "theme"}, keys)

	require.NoError(t, s.DeleteItems(ctx, "theme", "unset"))
	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"lang"}, keys)

	value, err = s.GetItem(ctx, "theme")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestKeys_Empty(t *testing.T) {
	s, _ := newStorage(t, storage.New(t.TempDir()))

	keys, err := s.Keys(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, keys)
	assert.Empty(t, keys)
}

func TestValidationHappensLocally(t *testing.T) {
	s, host := newStorage(t, storage.New(t.TempDir()))
	ctx := context.Background()

	assert.ErrorIs(t, s.SetItem(ctx, "", "v"), ErrInvalidKey)
	assert.ErrorIs(t, s.SetItem(ctx, "a b", "v"), ErrInvalidKey)
	assert.ErrorIs(t, s.SetItem(ctx, strings.Repeat("k", MaxKeyLength+1), "v"), ErrInvalidKey)
	assert.ErrorIs(t, s.SetItem(ctx, "k", strings.Repeat("é", MaxValueLength+1)), ErrValueTooLong)
	_, err := s.GetItems(ctx, "ok", "../escape")
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.ErrorIs(t, s.DeleteItems(ctx, "bad/key"), ErrInvalidKey)

	assert.Zero(t, host.Handled(types.MethodInvokeCustomMethod))

	require.NoError(t, s.SetItem(ctx, strings.Repeat("k", MaxKeyLength), strings.Repeat("é", MaxValueLength)))
	assert.Equal(t, 1, host.Handled(types.MethodInvokeCustomMethod))
}

func TestNoKeysIsLocal(t *testing.T) {
	s, host := newStorage(t, storage.New(t.TempDir()))

	values, err := s.GetItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, values)
	require.NoError(t, s.DeleteItems(context.Background()))
	assert.Zero(t, host.Handled(types.MethodInvokeCustomMethod))
}

func TestHostWithoutStorage(t *testing.T) {
	s, _ := newStorage(t, nil)

	err := s.SetItem(context.Background(), "k", "v")
	require.Error(t, err)

	var me *custommethod.MethodError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "saveStorageValue", me.Method)
	assert.Equal(t, "UNKNOWN_METHOD", me.Message)
}
