// Package cloudstorage reads and writes the host's per-user cloud storage.
//
// Cloud storage has no commands of its own; every operation is a custom
// method call made through custommethod.Invoker. Keys and values are checked
// locally so that invalid input never reaches the host.
package cloudstorage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/opencode-ai/hostbridge/internal/custommethod"
)

// Custom methods backing cloud storage.
const (
	methodSave   = "saveStorageValue"
	methodGet    = "getStorageValues"
	methodKeys   = "getStorageKeys"
	methodDelete = "deleteStorageValues"
)

// Limits enforced by the host.
const (
	MaxKeyLength   = 128
	MaxValueLength = 4096
)

// ErrInvalidKey is returned for keys outside [A-Za-z0-9_-]{1,128}.
var ErrInvalidKey = errors.New("invalid cloud storage key")

// ErrValueTooLong is returned for values longer than MaxValueLength.
var ErrValueTooLong = errors.New("cloud storage value too long")

var keyRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Storage is a cloud storage client.
type Storage struct {
	invoker *custommethod.Invoker
}

// New creates a cloud storage client.
func New(invoker *custommethod.Invoker) *Storage {
	return &Storage{invoker: invoker}
}

func checkKeys(keys ...string) error {
	for _, key := range keys {
		if len(key) > MaxKeyLength || !keyRegex.MatchString(key) {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// SetItem stores value under key.
func (s *Storage) SetItem(ctx context.Context, key, value string) error {
	if err := checkKeys(key); err != nil {
		return err
	}
	if utf8.RuneCountInString(value) > MaxValueLength {
		return fmt.Errorf("%w: %d characters", ErrValueTooLong, utf8.RuneCountInString(value))
	}
	_, err := s.invoker.Invoke(ctx, methodSave, map[string]any{"key": key, "value": value})
	return err
}

// GetItem returns the value of key, or "" when it is not set.
func (s *Storage) GetItem(ctx context.Context, key string) (string, error) {
	values, err := s.GetItems(ctx, key)
	if err != nil {
		return "", err
	}
	return values[key], nil
}

// GetItems returns the values of keys. Keys that are not set map to "".
func (s *Storage) GetItems(ctx context.Context, keys ...string) (map[string]string, error) {
	if len(keys) == 0 {
		return map[string]string{}, nil
	}
	if err := checkKeys(keys...); err != nil {
		return nil, err
	}
	values := map[string]string{}
	if err := s.invoker.InvokeInto(ctx, methodGet, map[string]any{"keys": keys}, &values); err != nil {
		return nil, err
	}
	for _, key := range keys {
		if _, ok := values[key]; !ok {
			values[key] = ""
		}
	}
	return values, nil
}

// DeleteItems removes keys. Deleting a key that is not set is not an error.
func (s *Storage) DeleteItems(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := checkKeys(keys...); err != nil {
		return err
	}
	_, err := s.invoker.Invoke(ctx, methodDelete, map[string]any{"keys": keys})
	return err
}

// Keys lists every stored key.
func (s *Storage) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := s.invoker.InvokeInto(ctx, methodKeys, nil, &keys); err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}
