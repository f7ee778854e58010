package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrETagMismatch signals a concurrent modification detected during Mutate.
var ErrETagMismatch = errors.New("store: etag mismatch")

// Ref identifies one persisted case document.
type Ref struct {
	DocumentID string
}

// Identifier returns the canonical storage key for the reference.
func (r Ref) Identifier() (string, error) {
	id := strings.TrimSpace(r.DocumentID)
	if id == "" {
		return "", fmt.Errorf("store: document id is required")
	}
	return fmt.Sprintf("casefile/%s", id), nil
}

// Meta is storage-owned metadata used for trace/audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads/saves one snapshot for a single document reference.
type Store[T any] interface {
	Load(ctx context.Context, ref Ref) (snapshot T, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error)
}

// Mutator applies an in-place change to a loaded snapshot.
type Mutator[T any] func(*T) error

// Manager wraps a Store with optimistic concurrency and snapshot stamping.
type Manager[T any] struct {
	Store Store[T]
}

// Mutate loads the snapshot for ref, applies fn, and saves the result. When
// meta carries an ETag it must match the stored one or the mutation fails
// with ErrETagMismatch. Every save is stamped with a fresh snapshot id and
// timestamp unless the caller supplied them.
func (m Manager[T]) Mutate(ctx context.Context, ref Ref, meta Meta, fn Mutator[T]) (T, Meta, error) {
	var zero T
	if m.Store == nil {
		return zero, Meta{}, fmt.Errorf("store: store is required")
	}
	if fn == nil {
		return zero, Meta{}, fmt.Errorf("store: mutator is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return zero, Meta{}, err
	}

	snapshot, loadedMeta, ok, err := m.Store.Load(ctx, ref)
	if err != nil {
		return zero, Meta{}, fmt.Errorf("store: load %q: %w", ref.DocumentID, err)
	}
	if !ok {
		snapshot = zero
		loadedMeta = Meta{}
	}

	if meta.ETag != "" && loadedMeta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return zero, loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	if err := fn(&snapshot); err != nil {
		return zero, loadedMeta, err
	}

	saveMeta := StampMeta(mergeMeta(loadedMeta, meta))
	savedMeta, err := m.Store.Save(ctx, ref, snapshot, saveMeta)
	if err != nil {
		return zero, loadedMeta, fmt.Errorf("store: save %q: %w", ref.DocumentID, err)
	}
	return snapshot, savedMeta, nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}

// StampMeta fills in the snapshot id, etag and timestamp a save needs. A
// fresh snapshot id doubles as the next etag so successive mutations chain.
func StampMeta(meta Meta) Meta {
	out := meta
	id := uuid.NewString()
	out.SnapshotID = id
	out.ETag = id
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = time.Now()
	}
	return out
}
