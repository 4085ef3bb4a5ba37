package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"perepiska/internal/kv"
	"perepiska/internal/models"
)

// Storage keys. These must stay bit-for-bit stable: existing installations
// already hold data under them.
const (
	keyCurrentUser = "currentUser"
	keyMessages    = "messages"
	keyChats       = "chats"
	keyContacts    = "contacts"
)

var (
	// ErrCorrupt is returned when a stored value exists but cannot be
	// decoded. Corrupt state is surfaced instead of being read as an empty
	// collection, so it cannot masquerade as a fresh install.
	ErrCorrupt = errors.New("stored data is corrupt")
)

// Store owns all durable application state: the current-user pointer and the
// messages, chats and contacts collections. Each collection is one JSON array
// under a single key, so every mutation is a load-mutate-store cycle over the
// whole collection. An internal mutex serializes those cycles; the backend
// itself is free to be shared.
type Store struct {
	kv  kv.Store
	mux sync.Mutex
}

func New(backend kv.Store) *Store {
	return &Store{kv: backend}
}

// SaveCurrentUser persists user under the current-user key.
func (s *Store) SaveCurrentUser(ctx context.Context, user models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal current user: %w", err)
	}
	if err := s.kv.Set(ctx, keyCurrentUser, string(data)); err != nil {
		return fmt.Errorf("failed to save current user: %w", err)
	}
	return nil
}

// CurrentUser returns the locally authenticated account, or
// models.ErrNotFound if nobody is logged in.
func (s *Store) CurrentUser(ctx context.Context) (models.User, error) {
	raw, err := s.kv.Get(ctx, keyCurrentUser)
	if errors.Is(err, kv.ErrNotFound) {
		return models.User{}, models.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to load current user: %w", err)
	}
	var user models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return models.User{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, keyCurrentUser, err)
	}
	return user, nil
}

// ClearCurrentUser removes the current-user pointer. Clearing an absent
// pointer is not an error.
func (s *Store) ClearCurrentUser(ctx context.Context) error {
	if err := s.kv.Delete(ctx, keyCurrentUser); err != nil {
		return fmt.Errorf("failed to clear current user: %w", err)
	}
	return nil
}

// SaveMessage appends the message to the log.
func (s *Store) SaveMessage(ctx context.Context, message models.Message) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	messages, err := load[models.Message](ctx, s.kv, keyMessages)
	if err != nil {
		return err
	}
	return save(ctx, s.kv, keyMessages, append(messages, message))
}

// ListMessages returns the full message log in append order.
func (s *Store) ListMessages(ctx context.Context) ([]models.Message, error) {
	return load[models.Message](ctx, s.kv, keyMessages)
}

// ListChatMessages returns log entries whose sender or receiver is chatID, in
// append order. The chat id of a direct conversation is the counterpart's
// user id, so this cannot express group threads.
func (s *Store) ListChatMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	messages, err := load[models.Message](ctx, s.kv, keyMessages)
	if err != nil {
		return nil, err
	}
	var filtered []models.Message
	for _, msg := range messages {
		if msg.SenderID == chatID || msg.ReceiverID == chatID {
			filtered = append(filtered, msg)
		}
	}
	return filtered, nil
}

// UpsertChat upserts the chat by id, replacing the whole record. The unread
// count is clamped at zero.
func (s *Store) UpsertChat(ctx context.Context, chat models.Chat) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.upsertChatLocked(ctx, chat)
}

func (s *Store) upsertChatLocked(ctx context.Context, chat models.Chat) error {
	if chat.UnreadCount < 0 {
		chat.UnreadCount = 0
	}
	chats, err := load[models.Chat](ctx, s.kv, keyChats)
	if err != nil {
		return err
	}
	replaced := false
	for i := range chats {
		if chats[i].ID == chat.ID {
			chats[i] = chat
			replaced = true
			break
		}
	}
	if !replaced {
		chats = append(chats, chat)
	}
	return save(ctx, s.kv, keyChats, chats)
}

// ListChats returns all chat summaries.
func (s *Store) ListChats(ctx context.Context) ([]models.Chat, error) {
	return load[models.Chat](ctx, s.kv, keyChats)
}

// ApplyMessage appends the message to the log and refreshes the summary of
// the conversation it belongs to in one operation: the last message is
// replaced and, for an incoming message, the unread count is incremented.
// selfID identifies the local account; the counterpart's id doubles as the
// chat id.
func (s *Store) ApplyMessage(ctx context.Context, message models.Message, selfID string) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	messages, err := load[models.Message](ctx, s.kv, keyMessages)
	if err != nil {
		return err
	}
	if err := save(ctx, s.kv, keyMessages, append(messages, message)); err != nil {
		return err
	}

	chatID := message.SenderID
	incoming := true
	if message.SenderID == selfID {
		chatID = message.ReceiverID
		incoming = false
	}

	chats, err := load[models.Chat](ctx, s.kv, keyChats)
	if err != nil {
		return err
	}
	chat := models.Chat{ID: chatID}
	for _, c := range chats {
		if c.ID == chatID {
			chat = c
			break
		}
	}
	chat.LastMessage = &message
	if incoming {
		chat.UnreadCount++
	}
	return s.upsertChatLocked(ctx, chat)
}

// MarkChatRead zeroes the unread count of the chat. Unknown ids are a no-op.
func (s *Store) MarkChatRead(ctx context.Context, chatID string) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	chats, err := load[models.Chat](ctx, s.kv, keyChats)
	if err != nil {
		return err
	}
	for i := range chats {
		if chats[i].ID == chatID {
			if chats[i].UnreadCount == 0 {
				return nil
			}
			chats[i].UnreadCount = 0
			return save(ctx, s.kv, keyChats, chats)
		}
	}
	return nil
}

// UpsertContact upserts the contact by id, replacing the whole record.
func (s *Store) UpsertContact(ctx context.Context, contact models.Contact) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	contacts, err := load[models.Contact](ctx, s.kv, keyContacts)
	if err != nil {
		return err
	}
	replaced := false
	for i := range contacts {
		if contacts[i].ID == contact.ID {
			contacts[i] = contact
			replaced = true
			break
		}
	}
	if !replaced {
		contacts = append(contacts, contact)
	}
	return save(ctx, s.kv, keyContacts, contacts)
}

// ListContacts returns all address-book entries.
func (s *Store) ListContacts(ctx context.Context) ([]models.Contact, error) {
	return load[models.Contact](ctx, s.kv, keyContacts)
}

// DeleteContact removes the contact with the given id. Deleting an absent id
// is a no-op success.
func (s *Store) DeleteContact(ctx context.Context, contactID string) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	contacts, err := load[models.Contact](ctx, s.kv, keyContacts)
	if err != nil {
		return err
	}
	filtered := contacts[:0:0]
	for _, c := range contacts {
		if c.ID != contactID {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == len(contacts) {
		return nil
	}
	return save(ctx, s.kv, keyContacts, filtered)
}

// load reads a whole collection. An absent key reads as an empty collection,
// a present but undecodable value is ErrCorrupt.
func load[T any](ctx context.Context, backend kv.Store, key string) ([]T, error) {
	raw, err := backend.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return items, nil
}

func save[T any](ctx context.Context, backend kv.Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := backend.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}
