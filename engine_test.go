package casefile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-casefile/pkg/activity"
)

type memoryLogger struct {
	mu     sync.Mutex
	events []LogEvent
}

func (l *memoryLogger) Log(event LogEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *memoryLogger) byOp(op string) []LogEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []LogEvent
	for _, event := range l.events {
		if event.Op == op {
			out = append(out, event)
		}
	}
	return out
}

func TestNewDefaultsToExprEngine(t *testing.T) {
	engine := New()
	if engine.Registry() == nil || engine.Registry().Len() == 0 {
		t.Fatal("default registry missing")
	}
	evaluator, err := engine.resolveEvaluator()
	if err != nil {
		t.Fatalf("resolveEvaluator: %v", err)
	}
	if engineName(evaluator) != "expr" {
		t.Fatalf("default engine = %s", engineName(evaluator))
	}
}

func TestEngineNameDetection(t *testing.T) {
	if got := engineName(NewExprEvaluator()); got != "expr" {
		t.Fatalf("expr name = %s", got)
	}
	if got := engineName(NewCELEvaluator()); got != "cel" {
		t.Fatalf("cel name = %s", got)
	}
	if got := engineName(nil); got != "unknown" {
		t.Fatalf("nil name = %s", got)
	}
}

func TestEngineTransitionPhaseEmitsActivity(t *testing.T) {
	capture := &activity.CaptureHook{}
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	engine := New(
		WithActivityHooks(capture),
		WithEngineClock(func() time.Time { return fixed }),
	)
	doc := NewDocument("Acme")
	doc.Status = StatusClientApproved

	next, err := engine.TransitionPhase(context.Background(), doc, PhaseImplementationSpec, "alex", "signed off")
	if err != nil {
		t.Fatalf("TransitionPhase: %v", err)
	}
	if next.Phase != PhaseImplementationSpec {
		t.Fatalf("phase = %s", next.Phase)
	}

	if len(capture.Events) != 1 {
		t.Fatalf("events = %d, want 1", len(capture.Events))
	}
	event := capture.Events[0]
	if event.Verb != "casefile.phase.transitioned" || event.ObjectID != doc.ID {
		t.Fatalf("event = %+v", event)
	}
	if event.Channel != "casefile" {
		t.Fatalf("channel = %s", event.Channel)
	}
	if event.Metadata["from_phase"] != "discovery" || event.Metadata["to_phase"] != "implementation_spec" {
		t.Fatalf("metadata = %v", event.Metadata)
	}
	if !event.OccurredAt.Equal(fixed) {
		t.Fatalf("occurredAt = %v", event.OccurredAt)
	}
}

func TestEngineTransitionPhaseDeniedEmitsNothing(t *testing.T) {
	capture := &activity.CaptureHook{}
	logger := &memoryLogger{}
	engine := New(WithActivityHooks(capture), WithLogger(logger))

	_, err := engine.TransitionPhase(context.Background(), NewDocument("Acme"), PhaseCompleted, "", "")
	if !errors.Is(err, ErrTransitionDenied) {
		t.Fatalf("err = %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("events = %d, want 0", len(capture.Events))
	}
	if len(logger.byOp("phase.transition")) == 0 {
		t.Fatal("denial not logged")
	}
}

func TestEngineTransitionPhaseDefaultsActor(t *testing.T) {
	capture := &activity.CaptureHook{}
	engine := New(WithActivityHooks(capture), WithActor("ops-bot"))
	doc := NewDocument("Acme")
	doc.Status = StatusClientApproved

	next, err := engine.TransitionPhase(context.Background(), doc, PhaseImplementationSpec, "", "")
	if err != nil {
		t.Fatalf("TransitionPhase: %v", err)
	}
	if got := next.PhaseHistory[1].TransitionedBy; got != "ops-bot" {
		t.Fatalf("transitionedBy = %q", got)
	}
	if capture.Events[0].ActorID != "ops-bot" {
		t.Fatalf("actor = %q", capture.Events[0].ActorID)
	}
}

func TestEngineUpdatePhaseStatusEmitsOldAndNew(t *testing.T) {
	capture := &activity.CaptureHook{}
	engine := New(WithActivityHooks(capture))

	next, err := engine.UpdatePhaseStatus(context.Background(), NewDocument("Acme"), StatusDiscoveryComplete)
	if err != nil {
		t.Fatalf("UpdatePhaseStatus: %v", err)
	}
	if next.Status != StatusDiscoveryComplete {
		t.Fatalf("status = %s", next.Status)
	}
	event := capture.Events[0]
	if event.Verb != "casefile.status.updated" {
		t.Fatalf("verb = %s", event.Verb)
	}
	if event.Metadata["old_value"] != "discovery_in_progress" || event.Metadata["new_value"] != "discovery_complete" {
		t.Fatalf("metadata = %v", event.Metadata)
	}
}

func TestEngineEvaluateRuleLogsAttempts(t *testing.T) {
	logger := &memoryLogger{}
	registry := NewRegistry(Field{
		ID:            "team_size",
		Label:         "Team Size",
		Type:          FieldNumber,
		PrimarySource: FieldLocation{Path: "modules.overview.teamSize"},
		Validation:    &Validation{Custom: "value > 0"},
	})
	engine := New(WithRegistry(registry), WithLogger(logger))

	if _, err := engine.ValidateFieldValue(NewDocument("Acme"), "team_size", 4); err != nil {
		t.Fatalf("ValidateFieldValue: %v", err)
	}

	logged := logger.byOp("rule.evaluate")
	if len(logged) != 1 {
		t.Fatalf("rule.evaluate logs = %d", len(logged))
	}
	entry := logged[0]
	if entry.Engine != "expr" || entry.Expr != "value > 0" || entry.FieldID != "team_size" {
		t.Fatalf("entry = %+v", entry)
	}
	if entry.Err != nil {
		t.Fatalf("entry err = %v", entry.Err)
	}
}

func TestEngineCustomFunctionsReachRules(t *testing.T) {
	registry := NewRegistry(Field{
		ID:            "domain",
		Label:         "Domain",
		Type:          FieldText,
		PrimarySource: FieldLocation{Path: "modules.overview.domain"},
		Validation:    &Validation{Custom: `call("hasSuffix", value, ".com")`},
	})
	engine := New(
		WithRegistry(registry),
		WithCustomFunction("hasSuffix", func(args ...any) (any, error) {
			text, _ := args[0].(string)
			suffix, _ := args[1].(string)
			return len(text) >= len(suffix) && text[len(text)-len(suffix):] == suffix, nil
		}),
	)

	problems, err := engine.ValidateFieldValue(NewDocument("Acme"), "domain", "acme.com")
	if err != nil {
		t.Fatalf("ValidateFieldValue: %v", err)
	}
	if len(problems) != 0 {
		t.Fatalf("problems = %v", problems)
	}

	problems, err = engine.ValidateFieldValue(NewDocument("Acme"), "domain", "acme.org")
	if err != nil {
		t.Fatalf("ValidateFieldValue: %v", err)
	}
	if len(problems) != 1 {
		t.Fatalf("problems = %v", problems)
	}
}

func TestEngineHookFailureIsLoggedNotFatal(t *testing.T) {
	capture := &activity.CaptureHook{Err: errors.New("sink offline")}
	logger := &memoryLogger{}
	engine := New(WithActivityHooks(capture), WithLogger(logger))
	doc := NewDocument("Acme")
	doc.Status = StatusClientApproved

	next, err := engine.TransitionPhase(context.Background(), doc, PhaseImplementationSpec, "alex", "")
	if err != nil {
		t.Fatalf("TransitionPhase: %v", err)
	}
	if next.Phase != PhaseImplementationSpec {
		t.Fatalf("phase = %s", next.Phase)
	}
	if len(logger.byOp("activity.emit")) != 1 {
		t.Fatal("hook failure not logged")
	}
}
