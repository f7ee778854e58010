package store

import (
	"context"
	"sync"
	"testing"
	"time"

	casefile "github.com/goliatone/go-casefile"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestAutoSaverCoalescesBurstEdits(t *testing.T) {
	counting := &countingStore[casefile.Document]{inner: NewMemoryStore[casefile.Document]()}
	saver, err := NewAutoSaver[casefile.Document](counting, WithSaveDelay[casefile.Document](30*time.Millisecond))
	if err != nil {
		t.Fatalf("NewAutoSaver: %v", err)
	}
	defer saver.Close(context.Background())

	ref := Ref{DocumentID: "doc-1"}
	doc := casefile.NewDocument("Acme", casefile.WithDocumentID("doc-1"))
	for i := 0; i < 5; i++ {
		doc = casefile.UpdateModule(doc, "overview", map[string]any{"edit": i})
		if err := saver.Schedule(ref, doc, Meta{}); err != nil {
			t.Fatalf("Schedule: %v", err)
		}
	}
	if saver.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", saver.Pending())
	}

	waitFor(t, time.Second, func() bool { return counting.count() == 1 })

	loaded, _, ok, err := counting.Load(context.Background(), ref)
	if err != nil || !ok {
		t.Fatalf("Load = ok %t, err %v", ok, err)
	}
	if loaded.Modules["overview"]["edit"] != 4 {
		t.Fatalf("persisted edit = %v, want latest", loaded.Modules["overview"]["edit"])
	}
}

func TestAutoSaverTracksDocumentsIndependently(t *testing.T) {
	counting := &countingStore[casefile.Document]{inner: NewMemoryStore[casefile.Document]()}
	saver, err := NewAutoSaver[casefile.Document](counting, WithSaveDelay[casefile.Document](20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewAutoSaver: %v", err)
	}
	defer saver.Close(context.Background())

	for _, id := range []string{"doc-1", "doc-2"} {
		doc := casefile.NewDocument("Acme", casefile.WithDocumentID(id))
		if err := saver.Schedule(Ref{DocumentID: id}, doc, Meta{}); err != nil {
			t.Fatalf("Schedule(%s): %v", id, err)
		}
	}
	if saver.Pending() != 2 {
		t.Fatalf("pending = %d, want 2", saver.Pending())
	}
	waitFor(t, time.Second, func() bool { return counting.count() == 2 })
}

func TestAutoSaverFlushPersistsImmediately(t *testing.T) {
	counting := &countingStore[casefile.Document]{inner: NewMemoryStore[casefile.Document]()}
	saver, err := NewAutoSaver[casefile.Document](counting, WithSaveDelay[casefile.Document](time.Hour))
	if err != nil {
		t.Fatalf("NewAutoSaver: %v", err)
	}

	ref := Ref{DocumentID: "doc-1"}
	doc := casefile.NewDocument("Acme", casefile.WithDocumentID("doc-1"))
	if err := saver.Schedule(ref, doc, Meta{}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	if err := saver.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if counting.count() != 1 {
		t.Fatalf("saves = %d", counting.count())
	}
	if saver.Pending() != 0 {
		t.Fatalf("pending = %d after flush", saver.Pending())
	}
	// flushing again is a no-op
	if err := saver.Flush(context.Background()); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	if counting.count() != 1 {
		t.Fatalf("saves = %d after second flush", counting.count())
	}
}

func TestAutoSaverReportsFailuresToHandler(t *testing.T) {
	counting := &countingStore[casefile.Document]{inner: NewMemoryStore[casefile.Document](), fail: true}

	var mu sync.Mutex
	var failures []Ref
	saver, err := NewAutoSaver[casefile.Document](counting,
		WithSaveDelay[casefile.Document](time.Hour),
		WithSaveErrorHandler[casefile.Document](func(ref Ref, err error) {
			mu.Lock()
			failures = append(failures, ref)
			mu.Unlock()
		}),
	)
	if err != nil {
		t.Fatalf("NewAutoSaver: %v", err)
	}

	ref := Ref{DocumentID: "doc-1"}
	if err := saver.Schedule(ref, casefile.NewDocument("Acme"), Meta{}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if err := saver.Flush(context.Background()); err == nil {
		t.Fatal("Flush succeeded against a failing store")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(failures) != 1 || failures[0].DocumentID != "doc-1" {
		t.Fatalf("failures = %+v", failures)
	}
}

func TestAutoSaverNotifiesObserver(t *testing.T) {
	counting := &countingStore[casefile.Document]{inner: NewMemoryStore[casefile.Document]()}

	var mu sync.Mutex
	var observed []string
	saver, err := NewAutoSaver[casefile.Document](counting,
		WithSaveDelay[casefile.Document](time.Hour),
		WithSaveObserver[casefile.Document](func(ref Ref, snapshot casefile.Document, meta Meta) {
			mu.Lock()
			observed = append(observed, snapshot.ID)
			mu.Unlock()
		}),
	)
	if err != nil {
		t.Fatalf("NewAutoSaver: %v", err)
	}

	doc := casefile.NewDocument("Acme", casefile.WithDocumentID("doc-1"))
	if err := saver.Schedule(Ref{DocumentID: "doc-1"}, doc, Meta{}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if err := saver.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(observed) != 1 || observed[0] != "doc-1" {
		t.Fatalf("observed = %v", observed)
	}
}

func TestAutoSaverCloseRejectsFurtherSchedules(t *testing.T) {
	saver, err := NewAutoSaver[casefile.Document](NewMemoryStore[casefile.Document]())
	if err != nil {
		t.Fatalf("NewAutoSaver: %v", err)
	}
	if err := saver.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := saver.Schedule(Ref{DocumentID: "doc-1"}, casefile.NewDocument("Acme"), Meta{}); err == nil {
		t.Fatal("Schedule accepted after Close")
	}
	// closing twice is fine
	if err := saver.Close(context.Background()); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
