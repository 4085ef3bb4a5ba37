package keyring

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"perepiska/internal/kv"

	"golang.org/x/crypto/curve25519"
)

// Storage keys the keyring owns. Kept stable for interop with existing
// installations.
const (
	keyPublic  = "publicKey"
	keyPrivate = "privateKey"
)

// KeyPair is an X25519 identity key pair, hex-encoded at rest.
type KeyPair struct {
	Public  [32]byte
	Private [32]byte
}

// Fingerprint returns a short digest of the public key for display.
func (kp KeyPair) Fingerprint() string {
	sum := sha256.Sum256(kp.Public[:])
	return hex.EncodeToString(sum[:10])
}

// Keyring persists the local identity key pair in the injected store.
type Keyring struct {
	kv kv.Store
}

func New(backend kv.Store) *Keyring {
	return &Keyring{kv: backend}
}

// Load returns the stored key pair, or kv.ErrNotFound if none was generated
// yet.
func (k *Keyring) Load(ctx context.Context) (KeyPair, error) {
	pubHex, err := k.kv.Get(ctx, keyPublic)
	if err != nil {
		return KeyPair{}, err
	}
	privHex, err := k.kv.Get(ctx, keyPrivate)
	if err != nil {
		return KeyPair{}, err
	}

	var kp KeyPair
	if err := decodeKey(pubHex, &kp.Public); err != nil {
		return KeyPair{}, fmt.Errorf("stored public key is invalid: %w", err)
	}
	if err := decodeKey(privHex, &kp.Private); err != nil {
		return KeyPair{}, fmt.Errorf("stored private key is invalid: %w", err)
	}
	return kp, nil
}

// Generate creates a fresh X25519 key pair, stores it and returns it. Any
// previously stored pair is replaced.
func (k *Keyring) Generate(ctx context.Context) (KeyPair, error) {
	var kp KeyPair
	if _, err := rand.Read(kp.Private[:]); err != nil {
		return KeyPair{}, fmt.Errorf("failed to generate private key: %w", err)
	}
	// Clamp per RFC 7748
	kp.Private[0] &= 248
	kp.Private[31] &= 127
	kp.Private[31] |= 64

	pub, err := curve25519.X25519(kp.Private[:], curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, fmt.Errorf("failed to derive public key: %w", err)
	}
	copy(kp.Public[:], pub)

	if err := k.kv.Set(ctx, keyPublic, hex.EncodeToString(kp.Public[:])); err != nil {
		return KeyPair{}, fmt.Errorf("failed to store public key: %w", err)
	}
	if err := k.kv.Set(ctx, keyPrivate, hex.EncodeToString(kp.Private[:])); err != nil {
		return KeyPair{}, fmt.Errorf("failed to store private key: %w", err)
	}

	slog.Info("generated identity key pair", "fingerprint", kp.Fingerprint())
	return kp, nil
}

// LoadOrGenerate returns the stored key pair, generating one on first use.
func (k *Keyring) LoadOrGenerate(ctx context.Context) (KeyPair, error) {
	kp, err := k.Load(ctx)
	if err == nil {
		return kp, nil
	}
	if errors.Is(err, kv.ErrNotFound) {
		return k.Generate(ctx)
	}
	return KeyPair{}, err
}

func decodeKey(value string, out *[32]byte) error {
	raw, err := hex.DecodeString(value)
	if err != nil {
		return err
	}
	if len(raw) != len(out) {
		return fmt.Errorf("expected %d bytes, got %d", len(out), len(raw))
	}
	copy(out[:], raw)
	return nil
}
