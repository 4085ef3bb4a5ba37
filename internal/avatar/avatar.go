package avatar

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"perepiska/internal/filestore"
	"perepiska/internal/kv"
	"perepiska/internal/models"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

const keyAvatars = "avatars"

var (
	ErrNotImage = errors.New("avatar is not a supported image")
)

// Metadata describes one stored avatar. The blob itself lives in the
// filestore under Hash; the id goes into User.Avatar or Contact.Avatar.
type Metadata struct {
	ID        string `json:"id"`
	Hash      string `json:"hash"`
	MimeType  string `json:"mimeType"`
	Size      int64  `json:"size"`
	CreatedAt int64  `json:"createdAt"`
}

// Service stores avatar images: blobs hash-addressed in a filestore,
// metadata as a collection in the key-value store.
type Service struct {
	kv    kv.Store
	files filestore.Store
	mux   sync.Mutex
	now   func() time.Time
}

func NewService(backend kv.Store, files filestore.Store) *Service {
	return &Service{
		kv:    backend,
		files: files,
		now:   time.Now,
	}
}

// Save reads the image, verifies it actually is one, stores the blob
// deduplicated by content hash and records its metadata. It returns the
// metadata whose id callers put on the user or contact record.
func (s *Service) Save(ctx context.Context, r io.Reader) (Metadata, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read avatar data: %w", err)
	}

	kind, err := filetype.Match(data)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to detect avatar type: %w", err)
	}
	if !filetype.IsImage(data) {
		return Metadata{}, ErrNotImage
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	if err := s.files.Save(bytes.NewReader(data), hash); err != nil {
		return Metadata{}, fmt.Errorf("failed to store avatar blob: %w", err)
	}

	meta := Metadata{
		ID:        uuid.NewString(),
		Hash:      hash,
		MimeType:  kind.MIME.Value,
		Size:      int64(len(data)),
		CreatedAt: s.now().UnixMilli(),
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	metas, err := s.loadMetadata(ctx)
	if err != nil {
		return Metadata{}, err
	}
	return meta, s.saveMetadata(ctx, append(metas, meta))
}

// Open returns the avatar content and metadata for the given id.
func (s *Service) Open(ctx context.Context, id string) (io.ReadCloser, Metadata, error) {
	meta, err := s.Get(ctx, id)
	if err != nil {
		return nil, Metadata{}, err
	}
	rc, err := s.files.Get(meta.Hash)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("failed to open avatar blob: %w", err)
	}
	return rc, meta, nil
}

// Get returns the metadata for the given id, or models.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (Metadata, error) {
	metas, err := s.loadMetadata(ctx)
	if err != nil {
		return Metadata{}, err
	}
	for _, meta := range metas {
		if meta.ID == id {
			return meta, nil
		}
	}
	return Metadata{}, models.ErrNotFound
}

func (s *Service) loadMetadata(ctx context.Context) ([]Metadata, error) {
	raw, err := s.kv.Get(ctx, keyAvatars)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load avatar metadata: %w", err)
	}
	var metas []Metadata
	if err := json.Unmarshal([]byte(raw), &metas); err != nil {
		return nil, fmt.Errorf("avatar metadata is corrupt: %w", err)
	}
	return metas, nil
}

func (s *Service) saveMetadata(ctx context.Context, metas []Metadata) error {
	data, err := json.Marshal(metas)
	if err != nil {
		return fmt.Errorf("failed to marshal avatar metadata: %w", err)
	}
	if err := s.kv.Set(ctx, keyAvatars, string(data)); err != nil {
		return fmt.Errorf("failed to save avatar metadata: %w", err)
	}
	return nil
}
