package store

import (
	"context"
	"errors"
	"fmt"

	"perepiska/internal/models"

	"github.com/vmihailenco/msgpack/v5"
)

// Snapshot is a point-in-time copy of everything the store owns, encoded as
// one msgpack blob. It backs local export/import of the chat database.
type Snapshot struct {
	CurrentUser *models.User     `msgpack:"currentUser"`
	Messages    []models.Message `msgpack:"messages"`
	Chats       []models.Chat    `msgpack:"chats"`
	Contacts    []models.Contact `msgpack:"contacts"`
}

func (sn *Snapshot) MarshalBinary() (data []byte, err error) {
	type alias Snapshot
	return msgpack.Marshal((*alias)(sn))
}

func (sn *Snapshot) UnmarshalBinary(data []byte) error {
	type alias Snapshot
	return msgpack.Unmarshal(data, (*alias)(sn))
}

// Export reads all collections and returns them as a single encoded snapshot.
func (s *Store) Export(ctx context.Context) ([]byte, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	var sn Snapshot

	user, err := s.CurrentUser(ctx)
	switch {
	case err == nil:
		sn.CurrentUser = &user
	case errors.Is(err, models.ErrNotFound):
		// no local account, still a valid snapshot
	default:
		return nil, err
	}

	if sn.Messages, err = load[models.Message](ctx, s.kv, keyMessages); err != nil {
		return nil, err
	}
	if sn.Chats, err = load[models.Chat](ctx, s.kv, keyChats); err != nil {
		return nil, err
	}
	if sn.Contacts, err = load[models.Contact](ctx, s.kv, keyContacts); err != nil {
		return nil, err
	}

	data, err := sn.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// Import replaces all collections with the contents of an exported snapshot.
func (s *Store) Import(ctx context.Context, data []byte) error {
	var sn Snapshot
	if err := sn.UnmarshalBinary(data); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	if sn.CurrentUser != nil {
		if err := s.SaveCurrentUser(ctx, *sn.CurrentUser); err != nil {
			return err
		}
	} else if err := s.ClearCurrentUser(ctx); err != nil {
		return err
	}

	if err := save(ctx, s.kv, keyMessages, sn.Messages); err != nil {
		return err
	}
	if err := save(ctx, s.kv, keyChats, sn.Chats); err != nil {
		return err
	}
	return save(ctx, s.kv, keyContacts, sn.Contacts)
}
