// Package kvstore provides the opaque key-value storage the contacts
// repository persists its collection into.
//
// Stores offer no transactions: a read followed by a write is not atomic and
// concurrent writers to the same key race, the last write winning.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

type Store interface {
	// GetItem returns the value stored under key and whether it was present.
	GetItem(ctx context.Context, key string) ([]byte, bool, error)
	// SetItem stores value under key, replacing any previous value.
	SetItem(ctx context.Context, key string, value []byte) error
	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(ctx context.Context, key string) error
	Close() error
}

var ErrClosed = errors.New("kvstore: store closed")

// GetJSON decodes the JSON value stored under key into a T.
// The zero T and false are returned when key is absent.
func GetJSON[T any](ctx context.Context, s Store, key string) (T, bool, error) {
	var v T
	b, ok, err := s.GetItem(ctx, key)
	if err != nil || !ok {
		return v, false, err
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, false, fmt.Errorf("kvstore: decode %q: %w", key, err)
	}
	return v, true, nil
}

// SetJSON encodes v as JSON and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kvstore: encode %q: %w", key, err)
	}
	return s.SetItem(ctx, key, b)
}
