package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"perepiska/internal/kv"
	"perepiska/internal/models"
	"perepiska/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	backend := kv.NewMemory()
	st := store.New(backend)
	svc, err := NewService(st, backend)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	svc.now = func() time.Time { return time.Unix(1700000000, 0) }
	return svc, st
}

func TestLoginDemo(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	if _, err := st.CurrentUser(ctx); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected no current user on fresh store, got %v", err)
	}

	user, err := svc.Login(ctx, "test@example.com", "password")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.ID != "1" {
		t.Errorf("expected user id 1, got %s", user.ID)
	}
	if user.Name != "Test User" {
		t.Errorf("expected name Test User, got %s", user.Name)
	}

	current, err := st.CurrentUser(ctx)
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if current.ID != "1" {
		t.Errorf("expected current user 1, got %s", current.ID)
	}

	// First login seeds the demo fixtures
	contacts, _ := st.ListContacts(ctx)
	if len(contacts) != 2 {
		t.Errorf("expected 2 seeded contacts, got %d", len(contacts))
	}
	chats, _ := st.ListChats(ctx)
	if len(chats) != 1 {
		t.Errorf("expected 1 seeded chat, got %d", len(chats))
	}
	messages, _ := st.ListMessages(ctx)
	if len(messages) != 3 {
		t.Errorf("expected 3 seeded messages, got %d", len(messages))
	}

	// Second login must not duplicate the seed
	if _, err := svc.Login(ctx, "test@example.com", "password"); err != nil {
		t.Fatalf("second Login failed: %v", err)
	}
	contacts, _ = st.ListContacts(ctx)
	if len(contacts) != 2 {
		t.Errorf("expected 2 contacts after second login, got %d", len(contacts))
	}
	messages, _ = st.ListMessages(ctx)
	if len(messages) != 3 {
		t.Errorf("expected 3 messages after second login, got %d", len(messages))
	}

	if err := svc.Logout(ctx); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := st.CurrentUser(ctx); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected no current user after logout, got %v", err)
	}
}

func TestLoginRejected(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	cases := [][2]string{
		{"test@example.com", "wrong"},
		{"other@example.com", "password"},
		{"", ""},
	}
	for _, c := range cases {
		if _, err := svc.Login(ctx, c[0], c[1]); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials for %q/%q, got %v", c[0], c[1], err)
		}
	}

	// Failed logins must not touch the current-user pointer
	if _, err := st.CurrentUser(ctx); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected no current user after failed logins, got %v", err)
	}
	contacts, _ := st.ListContacts(ctx)
	if len(contacts) != 0 {
		t.Errorf("expected no seeded contacts after failed logins, got %d", len(contacts))
	}
}

func TestRegister(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice", "alice@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.ID != "1700000000000" {
		t.Errorf("expected timestamp-derived id, got %s", user.ID)
	}

	current, err := st.CurrentUser(ctx)
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if current.Email != "alice@example.com" {
		t.Errorf("expected registered user as current, got %+v", current)
	}

	// Registered accounts can log back in
	if err := svc.Logout(ctx); err != nil {
		t.Fatal(err)
	}
	back, err := svc.Login(ctx, "alice@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Login after Register failed: %v", err)
	}
	if back.ID != user.ID {
		t.Errorf("expected id %s, got %s", user.ID, back.ID)
	}

	if _, err := svc.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}

	if _, err := svc.Register(ctx, "X", "not-an-email", "pw"); err == nil {
		t.Error("expected invalid email to be rejected")
	}

	// Names are sanitized before storage
	tagged, err := svc.Register(ctx, "Bob <script>alert(1)</script>", "bob@example.com", "pw")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if tagged.Name != "Bob " {
		t.Errorf("expected sanitized name, got %q", tagged.Name)
	}
}
