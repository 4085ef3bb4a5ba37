package keyring

import (
	"context"
	"errors"
	"testing"

	"perepiska/internal/kv"
)

func TestKeyring(t *testing.T) {
	ctx := context.Background()
	ring := New(kv.NewMemory())

	if _, err := ring.Load(ctx); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before generation, got %v", err)
	}

	kp, err := ring.LoadOrGenerate(ctx)
	if err != nil {
		t.Fatalf("LoadOrGenerate failed: %v", err)
	}
	if kp.Public == ([32]byte{}) || kp.Private == ([32]byte{}) {
		t.Fatal("expected non-zero key material")
	}
	// RFC 7748 clamping
	if kp.Private[0]&7 != 0 {
		t.Error("expected low bits of private key cleared")
	}
	if kp.Private[31]&64 == 0 {
		t.Error("expected high bit 6 of private key set")
	}

	// Second call must return the same pair, not a fresh one
	again, err := ring.LoadOrGenerate(ctx)
	if err != nil {
		t.Fatalf("LoadOrGenerate failed: %v", err)
	}
	if again != kp {
		t.Error("expected stored pair to be reused")
	}

	if len(kp.Fingerprint()) != 20 {
		t.Errorf("expected 20-char fingerprint, got %q", kp.Fingerprint())
	}

	// Generate replaces the stored pair
	fresh, err := ring.Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if fresh == kp {
		t.Error("expected a new pair after regeneration")
	}
	loaded, err := ring.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != fresh {
		t.Error("expected the regenerated pair to be the stored one")
	}
}
