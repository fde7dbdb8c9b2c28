// Package securestorage reads and writes the host's secure key storage.
//
// Every call sends one web_app_secure_storage_* command tagged with a fresh
// req_id and waits for either the matching success event or
// secure_storage_failed carrying the same req_id.
package securestorage

import (
	"context"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/opencode-ai/hostbridge/internal/event"
	"github.com/opencode-ai/hostbridge/internal/request"
	"github.com/opencode-ai/hostbridge/pkg/types"
)

// MethodError is returned when the host answered with secure_storage_failed.
type MethodError struct {
	Method string
	Code   string
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Method, e.Code)
}

// IsMethodError checks if an error is a MethodError.
func IsMethodError(err error) bool {
	var me *MethodError
	return errors.As(err, &me)
}

// Item is the result of GetItem.
type Item struct {
	// Value is nil when the key is not set.
	Value *string
	// CanRestore reports whether a deleted value can be brought back with
	// RestoreItem.
	CanRestore bool
}

// Storage is a secure storage client.
type Storage struct {
	engine *request.Engine
	opts   request.Options
}

// New creates a secure storage client on top of engine. opts are applied to
// every request; Capture is always replaced by req_id correlation, so either
// opts.Timeout, the engine timeout or the caller's context must bound each call.
func New(engine *request.Engine, opts request.Options) *Storage {
	return &Storage{engine: engine, opts: opts}
}

// GetItem reads key.
func (s *Storage) GetItem(ctx context.Context, key string) (Item, error) {
	var data event.SecureStorageKeyReceivedData
	params := &types.SecureStorageParams{Key: key}
	if err := s.invoke(ctx, types.MethodSecureStorageGet, event.SecureStorageKeyRecv, params, &params.ReqID, &data); err != nil {
		return Item{}, err
	}
	return Item{Value: data.Value, CanRestore: data.CanRestore}, nil
}

// SetItem writes value under key.
func (s *Storage) SetItem(ctx context.Context, key, value string) error {
	params := &types.SecureStorageParams{Key: key, Value: &value}
	return s.invoke(ctx, types.MethodSecureStorageSave, event.SecureStorageKeySaved, params, &params.ReqID, nil)
}

// DeleteItem removes key by saving a null value. The host keeps the old value
// restorable.
func (s *Storage) DeleteItem(ctx context.Context, key string) error {
	params := &types.SecureStorageDeleteParams{Key: key}
	return s.invoke(ctx, types.MethodSecureStorageSave, event.SecureStorageKeySaved, params, &params.ReqID, nil)
}

// RestoreItem restores a previously deleted key and returns its value, or nil
// if there was nothing to restore.
func (s *Storage) RestoreItem(ctx context.Context, key string) (*string, error) {
	var data event.SecureStorageKeyRestoredData
	params := &types.SecureStorageParams{Key: key}
	if err := s.invoke(ctx, types.MethodSecureStorageRest, event.SecureStorageRestored, params, &params.ReqID, &data); err != nil {
		return nil, err
	}
	return data.Value, nil
}

// Clear removes every key.
func (s *Storage) Clear(ctx context.Context) error {
	params := &types.SecureStorageParams{}
	return s.invoke(ctx, types.MethodSecureStorageClear, event.SecureStorageCleared, params, &params.ReqID, nil)
}

type reqIDPayload struct {
	ReqID *string `json:"req_id"`
}

// invoke tags params with a fresh req_id through reqIDField and sends them.
func (s *Storage) invoke(ctx context.Context, method string, ok event.Name, params any, reqIDField *string, out any) error {
	reqID := ulid.Make().String()
	*reqIDField = reqID

	opts := s.opts
	opts.Capture = func(ev event.Event) bool {
		// Events without a req_id cannot be attributed to anyone else.
		var p reqIDPayload
		if err := ev.Decode(&p); err != nil || p.ReqID == nil {
			return true
		}
		return *p.ReqID == reqID
	}

	ev, err := s.engine.DoMany(ctx, method, params, []event.Name{event.SecureStorageFailed, ok}, opts)
	if err != nil {
		return err
	}

	if ev.Name == event.SecureStorageFailed {
		var failed event.SecureStorageFailedData
		if err := ev.Decode(&failed); err != nil {
			return err
		}
		code := failed.Error
		if code == "" {
			code = "UNKNOWN_ERROR"
		}
		return &MethodError{Method: method, Code: code}
	}

	if out != nil {
		return ev.Decode(out)
	}
	return nil
}
