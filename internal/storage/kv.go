package storage

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get when the key is absent.
var ErrKeyNotFound = errors.New("key not found")

// IKeyValueStore is the durable storage contract the engine persists through.
// The Sync Queue and the Offer Store snapshot are written after every mutation
// and read back on startup so the device can resume after a process restart.
type IKeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}
