package hostsim

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/opencode-ai/hostbridge/internal/storage"
)

// Cloud storage custom methods answered by every host with a store.
const (
	CloudSaveValue    = "saveStorageValue"
	CloudGetValues    = "getStorageValues"
	CloudGetKeys      = "getStorageKeys"
	CloudDeleteValues = "deleteStorageValues"
)

// Cloud storage limits.
const (
	MaxCloudKeyLen   = 128
	MaxCloudValueLen = 4096
)

var (
	cloudPath     = []string{"cloud"}
	cloudKeyRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

type cloudRecord struct {
	Value string `json:"value"`
}

// cloudStorage serves the cloud storage methods from store.
type cloudStorage struct {
	store *storage.Storage
}

func (h *Host) registerCloudStorage() {
	cs := &cloudStorage{store: h.store}
	h.custom[CloudSaveValue] = cs.save
	h.custom[CloudGetValues] = cs.get
	h.custom[CloudGetKeys] = cs.keys
	h.custom[CloudDeleteValues] = cs.delete
}

func (cs *cloudStorage) save(ctx context.Context, params map[string]any) (any, error) {
	key, err := stringParam(params, "key")
	if err != nil {
		return nil, err
	}
	if err := checkCloudKey(key); err != nil {
		return nil, err
	}
	value, err := stringParam(params, "value")
	if err != nil {
		return nil, err
	}
	if len([]rune(value)) > MaxCloudValueLen {
		return nil, errors.New("VALUE_TOO_LONG")
	}
	if err := cs.store.Put(ctx, keyPath(cloudPath, key), cloudRecord{Value: value}); err != nil {
		return nil, err
	}
	return true, nil
}

func (cs *cloudStorage) get(ctx context.Context, params map[string]any) (any, error) {
	keys, err := keysParam(params)
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		var rec cloudRecord
		switch err := cs.store.Get(ctx, keyPath(cloudPath, key), &rec); {
		case err == nil:
			values[key] = rec.Value
		case errors.Is(err, storage.ErrNotFound):
			values[key] = ""
		default:
			return nil, err
		}
	}
	return values, nil
}

func (cs *cloudStorage) keys(ctx context.Context, params map[string]any) (any, error) {
	keys, err := cs.store.List(ctx, cloudPath)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (cs *cloudStorage) delete(ctx context.Context, params map[string]any) (any, error) {
	keys, err := keysParam(params)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		if err := cs.store.Delete(ctx, keyPath(cloudPath, key)); err != nil {
			return nil, err
		}
	}
	return true, nil
}

func checkCloudKey(key string) error {
	if len(key) > MaxCloudKeyLen || !cloudKeyRegex.MatchString(key) {
		return fmt.Errorf("KEY_INVALID: %q", key)
	}
	return nil
}

func stringParam(params map[string]any, name string) (string, error) {
	v, ok := params[name].(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", name)
	}
	return v, nil
}

// keysParam reads the "keys" array and validates every key.
func keysParam(params map[string]any) ([]string, error) {
	raw, ok := params["keys"].([]any)
	if !ok {
		return nil, errors.New("keys must be an array")
	}
	keys := make([]string, 0, len(raw))
	for _, item := range raw {
		key, ok := item.(string)
		if !ok {
			return nil, errors.New("keys must be strings")
		}
		if err := checkCloudKey(key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}
