package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"perepiska/internal/content"
	"perepiska/internal/kv"
	"perepiska/internal/models"
	"perepiska/internal/store"

	"golang.org/x/crypto/bcrypt"
)

// Demo account baked into the client. It exists so the app is usable before
// any backend account system exists; first login seeds example data.
const (
	demoEmail    = "test@example.com"
	demoPassword = "password"
	demoUserID   = "1"
	demoUserName = "Test User"
)

const keyCredentials = "credentials"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// credential is one registered account: identity plus a bcrypt password hash.
type credential struct {
	UserID       string `json:"userId"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
}

// Service handles login, registration and logout against the local store.
// Registered credentials live under their own storage key; the five core
// collections stay owned by the store.
type Service struct {
	store    *store.Store
	kv       kv.Store
	demoHash []byte
	now      func() time.Time
}

func NewService(st *store.Store, backend kv.Store) (*Service, error) {
	demoHash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash demo password: %w", err)
	}
	return &Service{
		store:    st,
		kv:       backend,
		demoHash: demoHash,
		now:      time.Now,
	}, nil
}

// Login verifies the credentials and makes the matching user the current
// user. The demo pair always works; anything else must have been registered
// first. Failed logins leave the current-user pointer untouched.
func (s *Service) Login(ctx context.Context, email, password string) (models.User, error) {
	if email == demoEmail && bcrypt.CompareHashAndPassword(s.demoHash, []byte(password)) == nil {
		user := models.User{
			ID:       demoUserID,
			Name:     demoUserName,
			Email:    email,
			IsOnline: true,
		}
		if err := s.store.SaveCurrentUser(ctx, user); err != nil {
			return models.User{}, err
		}
		if err := s.seedDemoData(ctx); err != nil {
			return models.User{}, err
		}
		return user, nil
	}

	creds, err := s.loadCredentials(ctx)
	if err != nil {
		return models.User{}, err
	}
	for _, cred := range creds {
		if cred.Email != email {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
			break
		}
		user := models.User{
			ID:       cred.UserID,
			Name:     cred.Name,
			Email:    cred.Email,
			IsOnline: true,
		}
		if err := s.store.SaveCurrentUser(ctx, user); err != nil {
			return models.User{}, err
		}
		return user, nil
	}

	return models.User{}, ErrInvalidCredentials
}

// Register creates a local account with a millisecond-timestamp id, stores
// its bcrypt credential and makes it the current user. Registering an email
// again replaces the stored credential.
func (s *Service) Register(ctx context.Context, name, email, password string) (models.User, error) {
	if err := content.ValidateEmail(email); err != nil {
		return models.User{}, err
	}
	name = content.Sanitize(name)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:       strconv.FormatInt(s.now().UnixMilli(), 10),
		Name:     name,
		Email:    email,
		IsOnline: true,
	}

	creds, err := s.loadCredentials(ctx)
	if err != nil {
		return models.User{}, err
	}
	cred := credential{
		UserID:       user.ID,
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: string(hash),
	}
	replaced := false
	for i := range creds {
		if creds[i].Email == email {
			creds[i] = cred
			replaced = true
			break
		}
	}
	if !replaced {
		creds = append(creds, cred)
	}
	if err := s.saveCredentials(ctx, creds); err != nil {
		return models.User{}, err
	}

	if err := s.store.SaveCurrentUser(ctx, user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Logout clears the current-user pointer. Idempotent.
func (s *Service) Logout(ctx context.Context) error {
	return s.store.ClearCurrentUser(ctx)
}

// seedDemoData populates example contacts, a chat and its messages on the
// first demo login. It only runs while the contacts collection is empty, so
// repeated logins do not duplicate the fixtures.
func (s *Service) seedDemoData(ctx context.Context) error {
	existing, err := s.store.ListContacts(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	now := s.now().UnixMilli()

	contacts := []models.Contact{
		{ID: "2", Name: "Andrew Parker", Email: "andrew@example.com", IsOnline: true},
		{ID: "3", Name: "Алек макканли", Email: "alek@example.com", IsOnline: false},
	}
	for _, contact := range contacts {
		if err := s.store.UpsertContact(ctx, contact); err != nil {
			return err
		}
	}

	chat := models.Chat{
		ID: "2",
		Participants: []models.User{
			{ID: "2", Name: "Andrew Parker", Email: "andrew@example.com", IsOnline: true},
		},
		LastMessage: &models.Message{
			ID:          "1",
			Text:        "What kind of strategy is better?",
			SenderID:    "2",
			ReceiverID:  "1",
			Timestamp:   now - 24*time.Hour.Milliseconds(),
			IsEncrypted: true,
			Status:      models.MessageStatusRead,
		},
		UnreadCount: 0,
		IsGroup:     false,
	}
	if err := s.store.UpsertChat(ctx, chat); err != nil {
		return err
	}

	messages := []models.Message{
		{
			ID:          "1",
			Text:        "Hi, I just wanna know that how much time you'll be updated.",
			SenderID:    "2",
			ReceiverID:  "1",
			Timestamp:   now - time.Hour.Milliseconds(),
			IsEncrypted: true,
			Status:      models.MessageStatusRead,
		},
		{
			ID:          "2",
			Text:        "Maybe, Nearly July, 2022",
			SenderID:    "1",
			ReceiverID:  "2",
			Timestamp:   now - 30*time.Minute.Milliseconds(),
			IsEncrypted: true,
			Status:      models.MessageStatusRead,
		},
		{
			ID:          "3",
			Text:        `OKay, I"m Waiting....`,
			SenderID:    "2",
			ReceiverID:  "1",
			Timestamp:   now - 15*time.Minute.Milliseconds(),
			IsEncrypted: true,
			Status:      models.MessageStatusRead,
		},
	}
	for _, message := range messages {
		if err := s.store.SaveMessage(ctx, message); err != nil {
			return err
		}
	}

	slog.Info("seeded demo data", "contacts", len(contacts), "messages", len(messages))
	return nil
}

func (s *Service) loadCredentials(ctx context.Context) ([]credential, error) {
	raw, err := s.kv.Get(ctx, keyCredentials)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	var creds []credential
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", store.ErrCorrupt, keyCredentials, err)
	}
	return creds, nil
}

func (s *Service) saveCredentials(ctx context.Context, creds []credential) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := s.kv.Set(ctx, keyCredentials, string(data)); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}
