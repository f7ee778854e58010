package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultSaveDelay is how long an AutoSaver waits after the last Schedule
// call before persisting a document.
const DefaultSaveDelay = 1000 * time.Millisecond

// SaveErrorHandler receives failures from background saves. Handlers must not
// block; the auto-saver calls them from its flush goroutine.
type SaveErrorHandler func(ref Ref, err error)

// SaveObserver is notified after a snapshot lands in the underlying store,
// whether the save was triggered by the timer or by Flush.
type SaveObserver[T any] func(ref Ref, snapshot T, meta Meta)

// AutoSaver coalesces rapid Schedule calls per document into a single save
// once the document goes quiet for the configured delay. Burst edits during
// form filling then cost one write instead of one per keystroke.
type AutoSaver[T any] struct {
	store    Store[T]
	delay    time.Duration
	onError  SaveErrorHandler
	observer SaveObserver[T]

	mu      sync.Mutex
	pending map[string]*pendingSave[T]
	closed  bool
}

type pendingSave[T any] struct {
	ref      Ref
	snapshot T
	meta     Meta
	timer    *time.Timer
}

// AutoSaverOption configures NewAutoSaver.
type AutoSaverOption[T any] func(*AutoSaver[T])

// WithSaveDelay overrides the quiet period before a scheduled save fires.
func WithSaveDelay[T any](delay time.Duration) AutoSaverOption[T] {
	return func(s *AutoSaver[T]) {
		if delay > 0 {
			s.delay = delay
		}
	}
}

// WithSaveErrorHandler registers a callback for background save failures.
// Without one, failures are dropped; callers that need delivery guarantees
// should use Flush and check its error.
func WithSaveErrorHandler[T any](handler SaveErrorHandler) AutoSaverOption[T] {
	return func(s *AutoSaver[T]) {
		s.onError = handler
	}
}

// WithSaveObserver registers a callback invoked after each successful save.
func WithSaveObserver[T any](observer SaveObserver[T]) AutoSaverOption[T] {
	return func(s *AutoSaver[T]) {
		s.observer = observer
	}
}

// NewAutoSaver wraps store with debounced persistence.
func NewAutoSaver[T any](store Store[T], opts ...AutoSaverOption[T]) (*AutoSaver[T], error) {
	if store == nil {
		return nil, fmt.Errorf("store: store is required")
	}
	s := &AutoSaver[T]{
		store:   store,
		delay:   DefaultSaveDelay,
		pending: map[string]*pendingSave[T]{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Schedule queues snapshot for persistence after the quiet period. Calling
// Schedule again for the same ref before the timer fires replaces the queued
// snapshot and restarts the timer, so only the latest state is written.
func (s *AutoSaver[T]) Schedule(ref Ref, snapshot T, meta Meta) error {
	key, err := ref.Identifier()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store: auto-saver is closed")
	}

	if entry, ok := s.pending[key]; ok {
		entry.snapshot = snapshot
		entry.meta = meta
		entry.timer.Reset(s.delay)
		return nil
	}

	entry := &pendingSave[T]{ref: ref, snapshot: snapshot, meta: meta}
	entry.timer = time.AfterFunc(s.delay, func() {
		s.fire(key)
	})
	s.pending[key] = entry
	return nil
}

// fire persists the pending snapshot for key if it is still queued.
func (s *AutoSaver[T]) fire(key string) {
	s.mu.Lock()
	entry, ok := s.pending[key]
	if ok {
		delete(s.pending, key)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	saved, err := s.store.Save(context.Background(), entry.ref, entry.snapshot, entry.meta)
	if err != nil {
		s.reportError(entry.ref, err)
		return
	}
	s.notify(entry.ref, entry.snapshot, saved)
}

// Flush persists every pending snapshot immediately and cancels their timers.
// It returns the first save error encountered, after attempting all saves.
func (s *AutoSaver[T]) Flush(ctx context.Context) error {
	s.mu.Lock()
	entries := make([]*pendingSave[T], 0, len(s.pending))
	for key, entry := range s.pending {
		entry.timer.Stop()
		entries = append(entries, entry)
		delete(s.pending, key)
	}
	s.mu.Unlock()

	var firstErr error
	for _, entry := range entries {
		saved, err := s.store.Save(ctx, entry.ref, entry.snapshot, entry.meta)
		if err != nil {
			s.reportError(entry.ref, err)
			if firstErr == nil {
				firstErr = fmt.Errorf("store: flush %q: %w", entry.ref.DocumentID, err)
			}
			continue
		}
		s.notify(entry.ref, entry.snapshot, saved)
	}
	return firstErr
}

// Pending reports how many documents have a queued save.
func (s *AutoSaver[T]) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close flushes pending saves and rejects further Schedule calls.
func (s *AutoSaver[T]) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.Flush(ctx)
}

func (s *AutoSaver[T]) reportError(ref Ref, err error) {
	if s.onError != nil {
		s.onError(ref, err)
	}
}

func (s *AutoSaver[T]) notify(ref Ref, snapshot T, meta Meta) {
	if s.observer != nil {
		s.observer(ref, snapshot, meta)
	}
}
