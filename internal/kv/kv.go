package kv

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("key not found")
)

// Store is the key-value capability the persistence layer is built on.
// Implementations are interchangeable: an in-memory cache, a local file
// database or an encrypted-at-rest store. Every operation takes a context
// because a backend may block on I/O.
//
// Get returns ErrNotFound for a key that was never set. Delete of an absent
// key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
