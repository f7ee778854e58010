// Package session keeps one case document live in memory and funnels every
// edit through the engine, the debounced auto-saver, and the activity stream.
// It is the piece a form-driven caller talks to: edits apply immediately,
// persistence happens once the document goes quiet, and CRM pushes run in the
// background without blocking the edit path.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	casefile "github.com/goliatone/go-casefile"
	"github.com/goliatone/go-casefile/pkg/activity"
	"github.com/goliatone/go-casefile/pkg/store"
)

// Session owns the current in-memory state of a single case document. All
// methods are safe for concurrent use; the session serializes edits itself.
type Session struct {
	engine  *casefile.Engine
	store   store.Store[casefile.Document]
	saver   *store.AutoSaver[casefile.Document]
	emitter *activity.Emitter
	pusher  CRMPusher
	logger  casefile.Logger
	actor   string
	ref     store.Ref

	mu   sync.Mutex
	doc  casefile.Document
	meta store.Meta

	pushes sync.WaitGroup
}

// Option configures Open and Create.
type Option func(*config)

type config struct {
	engine    *casefile.Engine
	pusher    CRMPusher
	logger    casefile.Logger
	hooks     activity.Hooks
	actor     string
	saveDelay time.Duration
}

// WithEngine supplies a configured engine. Without it the session uses a
// default engine over the built-in field catalog.
func WithEngine(engine *casefile.Engine) Option {
	return func(cfg *config) {
		if engine != nil {
			cfg.engine = engine
		}
	}
}

// WithCRMPusher enables background CRM pushes after each persisted save.
func WithCRMPusher(pusher CRMPusher) Option {
	return func(cfg *config) {
		cfg.pusher = pusher
	}
}

// WithLogger attaches a logger for background save and push failures.
func WithLogger(logger casefile.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithActivityHooks registers hooks for session-level events, currently the
// saved event emitted when a snapshot lands in the store.
func WithActivityHooks(hooks ...activity.ActivityHook) Option {
	return func(cfg *config) {
		for _, hook := range hooks {
			if hook != nil {
				cfg.hooks = append(cfg.hooks, hook)
			}
		}
	}
}

// WithActor sets the actor recorded on session-initiated changes.
func WithActor(actor string) Option {
	return func(cfg *config) {
		if actor != "" {
			cfg.actor = actor
		}
	}
}

// WithSaveDelay overrides the auto-save quiet period.
func WithSaveDelay(delay time.Duration) Option {
	return func(cfg *config) {
		if delay > 0 {
			cfg.saveDelay = delay
		}
	}
}

// Open loads an existing document into a session. It fails when the document
// is not in the store; use Create for new documents.
func Open(ctx context.Context, st store.Store[casefile.Document], documentID string, opts ...Option) (*Session, error) {
	if st == nil {
		return nil, fmt.Errorf("session: store is required")
	}
	ref := store.Ref{DocumentID: documentID}
	doc, meta, ok, err := st.Load(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("session: load %q: %w", documentID, err)
	}
	if !ok {
		return nil, fmt.Errorf("session: document %q not found", documentID)
	}
	return newSession(st, ref, doc, meta, opts)
}

// Create starts a session over a fresh discovery-phase document and schedules
// its first save.
func Create(ctx context.Context, st store.Store[casefile.Document], clientName string, opts ...Option) (*Session, error) {
	if st == nil {
		return nil, fmt.Errorf("session: store is required")
	}

	cfg := buildConfig(opts)
	doc := casefile.NewDocument(clientName, casefile.WithCreatedBy(cfg.actor))
	ref := store.Ref{DocumentID: doc.ID}

	s, err := newSession(st, ref, doc, store.Meta{}, opts)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, activity.BuildDocumentCreatedEvent(activity.CaseEventInput{
		ActorID:    s.actor,
		DocumentID: doc.ID,
		OccurredAt: doc.CreatedAt,
	}))
	if err := s.scheduleSave(); err != nil {
		return nil, err
	}
	return s, nil
}

func buildConfig(opts []Option) config {
	cfg := config{
		actor:     casefile.SystemActor,
		saveDelay: store.DefaultSaveDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func newSession(st store.Store[casefile.Document], ref store.Ref, doc casefile.Document, meta store.Meta, opts []Option) (*Session, error) {
	cfg := buildConfig(opts)
	if cfg.engine == nil {
		cfg.engine = casefile.New()
	}

	s := &Session{
		engine:  cfg.engine,
		store:   st,
		emitter: activity.NewEmitter(cfg.hooks, activity.Config{Enabled: len(cfg.hooks) > 0}),
		pusher:  cfg.pusher,
		logger:  cfg.logger,
		actor:   cfg.actor,
		ref:     ref,
		doc:     doc,
		meta:    meta,
	}

	saver, err := store.NewAutoSaver(st,
		store.WithSaveDelay[casefile.Document](cfg.saveDelay),
		store.WithSaveErrorHandler[casefile.Document](s.onSaveError),
		store.WithSaveObserver[casefile.Document](s.onSaved),
	)
	if err != nil {
		return nil, err
	}
	s.saver = saver
	return s, nil
}

// Document returns a deep copy of the current in-memory document.
func (s *Session) Document() casefile.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Meta returns the storage metadata of the last scheduled save.
func (s *Session) Meta() store.Meta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

// Ref returns the storage reference for the session's document.
func (s *Session) Ref() store.Ref {
	return s.ref
}

// UpdateModule merges values into the named discovery module and schedules a
// save.
func (s *Session) UpdateModule(ctx context.Context, module string, values map[string]any) error {
	return s.apply(ctx, func(doc casefile.Document) (casefile.Document, error) {
		return casefile.UpdateModule(doc, module, values), nil
	})
}

// SyncField validates value and writes it to every bound location of fieldID.
func (s *Session) SyncField(ctx context.Context, fieldID string, value any) error {
	return s.apply(ctx, func(doc casefile.Document) (casefile.Document, error) {
		return s.engine.SyncFieldValue(ctx, doc, fieldID, value, s.actor)
	})
}

// TransitionPhase moves the document to target when prerequisites allow it.
func (s *Session) TransitionPhase(ctx context.Context, target casefile.Phase, notes string) error {
	return s.apply(ctx, func(doc casefile.Document) (casefile.Document, error) {
		return s.engine.TransitionPhase(ctx, doc, target, s.actor, notes)
	})
}

// UpdateStatus sets the document's in-phase status.
func (s *Session) UpdateStatus(ctx context.Context, status casefile.Status) error {
	return s.apply(ctx, func(doc casefile.Document) (casefile.Document, error) {
		return s.engine.UpdatePhaseStatus(ctx, doc, status)
	})
}

// Bind applies one smart field binding and schedules a save when it changed
// the document.
func (s *Session) Bind(ctx context.Context, cfg casefile.BindingConfig, value any) (casefile.BindingResult, error) {
	if cfg.Actor == "" {
		cfg.Actor = s.actor
	}
	var result casefile.BindingResult
	err := s.apply(ctx, func(doc casefile.Document) (casefile.Document, error) {
		next, res, err := s.engine.Bind(ctx, doc, cfg, value)
		result = res
		return next, err
	})
	return result, err
}

// PrePopulateService binds every auto-populate field for a service entry from
// values already present in the document.
func (s *Session) PrePopulateService(ctx context.Context, category casefile.ServiceCategory, serviceID string) ([]casefile.BindingResult, error) {
	var results []casefile.BindingResult
	err := s.apply(ctx, func(doc casefile.Document) (casefile.Document, error) {
		next, res, err := s.engine.PrePopulateService(ctx, doc, category, serviceID, s.actor)
		results = res
		return next, err
	})
	return results, err
}

// Progress reports completion for the document's current phase.
func (s *Session) Progress() casefile.PhaseProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return casefile.Progress(s.doc)
}

// Flush persists any pending save immediately.
func (s *Session) Flush(ctx context.Context) error {
	return s.saver.Flush(ctx)
}

// Close flushes pending saves, waits for in-flight CRM pushes, and releases
// the session.
func (s *Session) Close(ctx context.Context) error {
	err := s.saver.Close(ctx)
	s.pushes.Wait()
	return err
}

// apply runs one edit against the current document and schedules persistence
// when the edit succeeds.
func (s *Session) apply(_ context.Context, fn func(casefile.Document) (casefile.Document, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.doc)
	if err != nil {
		return err
	}
	s.doc = next
	return s.scheduleSaveLocked()
}

func (s *Session) scheduleSave() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduleSaveLocked()
}

func (s *Session) scheduleSaveLocked() error {
	s.meta = store.StampMeta(store.Meta{Extra: s.meta.Extra})
	return s.saver.Schedule(s.ref, s.doc, s.meta)
}

// onSaved runs on the auto-saver's goroutine after a snapshot lands. It emits
// the saved event and kicks off the background CRM push.
func (s *Session) onSaved(ref store.Ref, snapshot casefile.Document, meta store.Meta) {
	ctx := context.Background()
	s.emit(ctx, activity.BuildDocumentSavedEvent(activity.CaseEventInput{
		ActorID:    s.actor,
		DocumentID: snapshot.ID,
		Metadata:   map[string]any{"snapshot_id": meta.SnapshotID},
		OccurredAt: meta.UpdatedAt,
	}))
	s.pushCRM(snapshot)
}

func (s *Session) onSaveError(ref store.Ref, err error) {
	s.log(casefile.LogEvent{
		Op:      "session.save",
		Err:     err,
		Message: fmt.Sprintf("auto-save failed for %q", ref.DocumentID),
	})
}

// pushCRM sends the snapshot to the CRM in the background. Push failures are
// logged and dropped; the persisted snapshot remains the source of truth.
func (s *Session) pushCRM(snapshot casefile.Document) {
	if s.pusher == nil {
		return
	}
	s.pushes.Add(1)
	go func() {
		defer s.pushes.Done()
		if err := s.pusher.Push(context.Background(), snapshot); err != nil {
			s.log(casefile.LogEvent{
				Op:      "session.crm.push",
				Err:     err,
				Message: fmt.Sprintf("crm push failed for %q", snapshot.ID),
			})
		}
	}()
}

func (s *Session) emit(ctx context.Context, event activity.Event) {
	if !s.emitter.Enabled() {
		return
	}
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.log(casefile.LogEvent{Op: "session.activity", Err: err})
	}
}

func (s *Session) log(event casefile.LogEvent) {
	if s.logger != nil {
		s.logger.Log(event)
	}
}
