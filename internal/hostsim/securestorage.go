package hostsim

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/opencode-ai/hostbridge/internal/event"
	"github.com/opencode-ai/hostbridge/internal/logging"
	"github.com/opencode-ai/hostbridge/internal/storage"
	"github.com/opencode-ai/hostbridge/pkg/types"
)

// Failure codes reported through secure_storage_failed.
const (
	FailKeyInvalid   = "KEY_INVALID"
	FailUnsupported  = "UNSUPPORTED"
	FailStorageError = "STORAGE_ERROR"
)

var (
	securePath  = []string{"secure"}
	restorePath = []string{"secure_restore"}
)

type secureRecord struct {
	Value string `json:"value"`
}

func keyPath(base []string, key string) []string {
	return append(append([]string{}, base...), key)
}

func (h *Host) secureStorage(ctx context.Context, method string, raw json.RawMessage) error {
	var params types.SecureStorageParams
	if err := decode(raw, &params); err != nil {
		return err
	}

	if h.store == nil {
		return h.emit(event.SecureStorageFailed, event.SecureStorageFailedData{ReqID: params.ReqID, Error: FailUnsupported})
	}
	if method != types.MethodSecureStorageClear && params.Key == "" {
		return h.emit(event.SecureStorageFailed, event.SecureStorageFailedData{ReqID: params.ReqID, Error: FailKeyInvalid})
	}

	var (
		name    event.Name
		payload any
		err     error
	)
	switch method {
	case types.MethodSecureStorageSave:
		name, payload, err = h.secureSave(ctx, params)
	case types.MethodSecureStorageGet:
		name, payload, err = h.secureGet(ctx, params)
	case types.MethodSecureStorageRest:
		name, payload, err = h.secureRestore(ctx, params)
	case types.MethodSecureStorageClear:
		name, payload, err = h.secureClear(ctx, params)
	}

	if err != nil {
		code := FailStorageError
		if errors.Is(err, storage.ErrInvalidKey) {
			code = FailKeyInvalid
		}
		logging.Warn().Err(err).Str("method", method).Msg("secure storage failed")
		return h.emit(event.SecureStorageFailed, event.SecureStorageFailedData{ReqID: params.ReqID, Error: code})
	}
	return h.emit(name, payload)
}

// secureSave stores the value; a nil value deletes the key and keeps the old
// value restorable.
func (h *Host) secureSave(ctx context.Context, params types.SecureStorageParams) (event.Name, any, error) {
	path := keyPath(securePath, params.Key)
	if params.Value == nil {
		var old secureRecord
		switch err := h.store.Get(ctx, path, &old); {
		case err == nil:
			if err := h.store.Put(ctx, keyPath(restorePath, params.Key), old); err != nil {
				return "", nil, err
			}
		case !errors.Is(err, storage.ErrNotFound):
			return "", nil, err
		}
		if err := h.store.Delete(ctx, path); err != nil {
			return "", nil, err
		}
	} else if err := h.store.Put(ctx, path, secureRecord{Value: *params.Value}); err != nil {
		return "", nil, err
	}
	return event.SecureStorageKeySaved, event.SecureStorageKeySavedData{ReqID: params.ReqID}, nil
}

func (h *Host) secureGet(ctx context.Context, params types.SecureStorageParams) (event.Name, any, error) {
	reply := event.SecureStorageKeyReceivedData{ReqID: params.ReqID}

	var rec secureRecord
	switch err := h.store.Get(ctx, keyPath(securePath, params.Key), &rec); {
	case err == nil:
		reply.Value = &rec.Value
	case errors.Is(err, storage.ErrNotFound):
		reply.CanRestore = h.store.Exists(ctx, keyPath(restorePath, params.Key))
	default:
		return "", nil, err
	}
	return event.SecureStorageKeyRecv, reply, nil
}

func (h *Host) secureRestore(ctx context.Context, params types.SecureStorageParams) (event.Name, any, error) {
	reply := event.SecureStorageKeyRestoredData{ReqID: params.ReqID}

	var rec secureRecord
	switch err := h.store.Get(ctx, keyPath(restorePath, params.Key), &rec); {
	case err == nil:
		if err := h.store.Put(ctx, keyPath(securePath, params.Key), rec); err != nil {
			return "", nil, err
		}
		if err := h.store.Delete(ctx, keyPath(restorePath, params.Key)); err != nil {
			return "", nil, err
		}
		reply.Value = &rec.Value
	case !errors.Is(err, storage.ErrNotFound):
		return "", nil, err
	}
	return event.SecureStorageRestored, reply, nil
}

func (h *Host) secureClear(ctx context.Context, params types.SecureStorageParams) (event.Name, any, error) {
	for _, base := range [][]string{securePath, restorePath} {
		keys, err := h.store.List(ctx, base)
		if err != nil {
			return "", nil, err
		}
		for _, key := range keys {
			if err := h.store.Delete(ctx, keyPath(base, key)); err != nil {
				return "", nil, err
			}
		}
	}
	return event.SecureStorageCleared, event.SecureStorageClearedData{ReqID: params.ReqID}, nil
}
