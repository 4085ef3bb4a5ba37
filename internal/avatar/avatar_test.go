package avatar

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"perepiska/internal/filestore"
	"perepiska/internal/kv"
	"perepiska/internal/models"
)

// Minimal valid PNG accepted by h2non/filetype.
const pngBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="

func TestAvatarService(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "avatar_test")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	files, err := filestore.NewLocal(tmpDir)
	if err != nil {
		t.Fatalf("failed to create filestore: %v", err)
	}
	svc := NewService(kv.NewMemory(), files)
	ctx := context.Background()

	png, err := base64.StdEncoding.DecodeString(pngBase64)
	if err != nil {
		t.Fatal(err)
	}

	meta, err := svc.Save(ctx, bytes.NewReader(png))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if meta.MimeType != "image/png" {
		t.Errorf("expected image/png, got %s", meta.MimeType)
	}
	if meta.Size != int64(len(png)) {
		t.Errorf("expected size %d, got %d", len(png), meta.Size)
	}
	if meta.ID == "" || meta.Hash == "" {
		t.Errorf("expected id and hash set, got %+v", meta)
	}

	rc, got, err := svc.Open(ctx, meta.ID)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = rc.Close() }()
	content, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(content, png) {
		t.Error("expected stored blob to round-trip")
	}
	if got.Hash != meta.Hash {
		t.Errorf("expected hash %s, got %s", meta.Hash, got.Hash)
	}

	// Same content, new id, same blob hash
	second, err := svc.Save(ctx, bytes.NewReader(png))
	if err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	if second.ID == meta.ID {
		t.Error("expected a fresh id per save")
	}
	if second.Hash != meta.Hash {
		t.Error("expected identical content to share a hash")
	}

	if _, err := svc.Save(ctx, strings.NewReader("just some text")); !errors.Is(err, ErrNotImage) {
		t.Errorf("expected ErrNotImage for non-image data, got %v", err)
	}

	if _, err := svc.Get(ctx, "no-such-avatar"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}
}
