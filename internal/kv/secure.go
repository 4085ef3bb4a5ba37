package kv

import (
	"context"
	"fmt"

	"gitlab.com/elixxir/ekv"
)

// Secure is a durable Store whose values are encrypted at rest with a key
// derived from a passphrase. It stands in for a platform secure store.
type Secure struct {
	fs *ekv.Filestore
}

func NewSecure(dir, passphrase string) (*Secure, error) {
	fs, err := ekv.NewFilestore(dir, passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted filestore: %w", err)
	}
	return &Secure{fs: fs}, nil
}

func (s *Secure) Get(_ context.Context, key string) (string, error) {
	var value string
	if err := s.fs.GetInterface(key, &value); err != nil {
		if !ekv.Exists(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return value, nil
}

func (s *Secure) Set(_ context.Context, key, value string) error {
	if err := s.fs.SetInterface(key, value); err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

func (s *Secure) Delete(_ context.Context, key string) error {
	if err := s.fs.Delete(key); err != nil {
		if !ekv.Exists(err) {
			return nil
		}
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}
