package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goliatone/go-casefile/internal/hydrate"
)

// Migration rewrites a raw persisted payload before it is decoded, so old
// on-disk shapes keep loading as the document model evolves.
type Migration func(id string, payload map[string]any) (map[string]any, error)

// FileStore persists one JSON file per document under a base directory.
// Writes go through a temp file plus rename so a crashed save never leaves
// a half-written snapshot behind.
type FileStore[T any] struct {
	dir        string
	migrations []Migration
	mu         sync.Mutex
}

// FileStoreOption configures NewFileStore.
type FileStoreOption[T any] func(*FileStore[T])

// WithMigrations registers payload migrations, applied in order on Load.
func WithMigrations[T any](migrations ...Migration) FileStoreOption[T] {
	return func(s *FileStore[T]) {
		for _, migration := range migrations {
			if migration != nil {
				s.migrations = append(s.migrations, migration)
			}
		}
	}
}

// NewFileStore creates the base directory and returns a store over it.
func NewFileStore[T any](dir string, opts ...FileStoreOption[T]) (*FileStore[T], error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("store: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create %q: %w", dir, err)
	}
	s := &FileStore[T]{dir: dir}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// envelope is the on-disk shape: storage metadata wrapping the snapshot.
type envelope struct {
	Meta     Meta            `json:"meta"`
	Snapshot json.RawMessage `json:"snapshot"`
}

func (s *FileStore[T]) Load(_ context.Context, ref Ref) (T, Meta, bool, error) {
	var zero T
	path, err := s.pathFor(ref)
	if err != nil {
		return zero, Meta{}, false, err
	}

	s.mu.Lock()
	raw, err := os.ReadFile(path)
	s.mu.Unlock()
	if errors.Is(err, os.ErrNotExist) {
		return zero, Meta{}, false, nil
	}
	if err != nil {
		return zero, Meta{}, false, fmt.Errorf("store: read %q: %w", path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return zero, Meta{}, false, fmt.Errorf("store: parse %q: %w", path, err)
	}

	var payload map[string]any
	if err := json.Unmarshal(env.Snapshot, &payload); err != nil {
		return zero, Meta{}, false, fmt.Errorf("store: parse snapshot %q: %w", path, err)
	}

	decoder := hydrate.NewDecoder(s.decoderOptions()...)
	snapshot, err := decoder.Decode(hydrate.Context{ID: ref.DocumentID}, payload)
	if err != nil {
		return zero, Meta{}, false, err
	}
	return snapshot, cloneMeta(env.Meta), true, nil
}

func (s *FileStore[T]) Save(_ context.Context, ref Ref, snapshot T, meta Meta) (Meta, error) {
	path, err := s.pathFor(ref)
	if err != nil {
		return Meta{}, err
	}

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return Meta{}, fmt.Errorf("store: marshal snapshot %q: %w", ref.DocumentID, err)
	}
	payload, err := json.MarshalIndent(envelope{Meta: meta, Snapshot: raw}, "", "  ")
	if err != nil {
		return Meta{}, fmt.Errorf("store: marshal envelope %q: %w", ref.DocumentID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return Meta{}, fmt.Errorf("store: write %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return Meta{}, fmt.Errorf("store: rename %q: %w", tmp, err)
	}
	return cloneMeta(meta), nil
}

func (s *FileStore[T]) decoderOptions() []hydrate.DecoderOption[T] {
	opts := make([]hydrate.DecoderOption[T], 0, len(s.migrations))
	for _, migration := range s.migrations {
		migration := migration
		opts = append(opts, hydrate.WithPreHook[T](func(ctx hydrate.Context, payload map[string]any) (map[string]any, error) {
			return migration(ctx.ID, payload)
		}))
	}
	return opts
}

func (s *FileStore[T]) pathFor(ref Ref) (string, error) {
	key, err := ref.Identifier()
	if err != nil {
		return "", err
	}
	name := strings.ReplaceAll(key, "/", "__") + ".json"
	return filepath.Join(s.dir, name), nil
}
