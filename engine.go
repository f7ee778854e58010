package casefile

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-casefile/pkg/activity"
)

// Engine binds a field registry to a rule evaluator and activity hooks. It
// is the entry point for field resolution, smart binding, and the audited
// variants of the lifecycle operations. Engines are safe for concurrent use
// once constructed.
type Engine struct {
	cfg     engineConfig
	emitter *activity.Emitter
}

// EngineOption configures New.
type EngineOption func(*engineConfig)

type engineConfig struct {
	registry     *Registry
	evaluator    RuleEvaluator
	programCache ProgramCache
	functions    *FunctionRegistry
	logger       Logger
	hooks        activity.Hooks
	activityCfg  activity.Config
	actor        string
	now          func() time.Time
}

// New constructs an engine. Without options it serves the built-in field
// catalog with the expr rule engine and no activity emission.
func New(opts ...EngineOption) *Engine {
	cfg := engineConfig{
		actor: SystemActor,
		now:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.registry == nil {
		cfg.registry = DefaultRegistry()
	}
	if cfg.evaluator == nil {
		var exprOpts []ExprEvaluatorOption
		if cfg.programCache != nil {
			exprOpts = append(exprOpts, ExprWithProgramCache(cfg.programCache))
		}
		if cfg.functions != nil {
			exprOpts = append(exprOpts, ExprWithFunctionRegistry(cfg.functions))
		}
		cfg.evaluator = NewExprEvaluator(exprOpts...)
	}
	return &Engine{
		cfg:     cfg,
		emitter: activity.NewEmitter(cfg.hooks, cfg.activityCfg),
	}
}

// WithRegistry overrides the default field catalog.
func WithRegistry(registry *Registry) EngineOption {
	return func(cfg *engineConfig) {
		if registry != nil {
			cfg.registry = registry
		}
	}
}

// WithRuleEvaluator overrides the default expr engine for custom rules.
func WithRuleEvaluator(evaluator RuleEvaluator) EngineOption {
	return func(cfg *engineConfig) {
		cfg.evaluator = evaluator
	}
}

// WithProgramCache registers a compiled-rule cache on the engine.
func WithProgramCache(cache ProgramCache) EngineOption {
	return func(cfg *engineConfig) {
		cfg.programCache = cache
	}
}

// WithFunctionRegistry configures the engine to expose registry's functions
// to custom rules.
func WithFunctionRegistry(registry *FunctionRegistry) EngineOption {
	return func(cfg *engineConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for custom rules.
func WithCustomFunction(name string, fn Function) EngineOption {
	return func(cfg *engineConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// WithLogger attaches a logger to the engine.
func WithLogger(logger Logger) EngineOption {
	return func(cfg *engineConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithActivityHooks registers activity hooks and enables emission.
func WithActivityHooks(hooks ...activity.ActivityHook) EngineOption {
	return func(cfg *engineConfig) {
		for _, hook := range hooks {
			if hook != nil {
				cfg.hooks = append(cfg.hooks, hook)
			}
		}
		cfg.activityCfg.Enabled = len(cfg.hooks) > 0
	}
}

// WithActivityConfig overrides activity emission defaults.
func WithActivityConfig(config activity.Config) EngineOption {
	return func(cfg *engineConfig) {
		cfg.activityCfg = config
	}
}

// WithActor sets the default actor recorded on engine-initiated changes.
func WithActor(actor string) EngineOption {
	return func(cfg *engineConfig) {
		if actor != "" {
			cfg.actor = actor
		}
	}
}

// WithEngineClock overrides the time source, primarily for tests.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(cfg *engineConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}

// Registry returns the engine's field catalog.
func (e *Engine) Registry() *Registry {
	if e == nil {
		return nil
	}
	return e.cfg.registry
}

func (e *Engine) logger() Logger {
	if e.cfg.logger != nil {
		return e.cfg.logger
	}
	return noopLogger{}
}

func (e *Engine) emit(ctx context.Context, event activity.Event) {
	if !e.emitter.Enabled() {
		return
	}
	if err := e.emitter.Emit(ctx, event); err != nil {
		e.logger().Log(LogEvent{Op: "activity.emit", Err: err})
	}
}

// resolveEvaluator returns the configured evaluator. New falls back to the
// default expr engine, so the error path guards only hand-built engines.
func (e *Engine) resolveEvaluator() (RuleEvaluator, error) {
	if e.cfg.evaluator == nil {
		return nil, ErrNoRuleEvaluator
	}
	return e.cfg.evaluator, nil
}

func engineName(e RuleEvaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*casefile.exprEvaluator":
		return "expr"
	case "*casefile.celEvaluator":
		return "cel"
	case "*casefile.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}

// evaluateRule runs a custom rule and logs the attempt.
func (e *Engine) evaluateRule(ctx RuleContext, expr string) (any, error) {
	evaluator, err := e.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	name := engineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	evalErr = wrapRuleError(name, expr, ctx.fieldID(), evalErr)
	e.logger().Log(LogEvent{
		Op:       "rule.evaluate",
		FieldID:  ctx.fieldID(),
		Engine:   name,
		Expr:     expr,
		Duration: duration,
		Err:      evalErr,
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

// TransitionPhase is the audited variant of the package-level function: on
// success it emits a phase-transition activity event.
func (e *Engine) TransitionPhase(ctx context.Context, doc Document, target Phase, actor, notes string) (Document, error) {
	if actor == "" {
		actor = e.cfg.actor
	}
	from := doc.Phase
	next, err := TransitionPhase(doc, target, actor, notes)
	if err != nil {
		e.logger().Log(LogEvent{Op: "phase.transition", Err: err})
		return doc, err
	}
	e.logger().Log(LogEvent{
		Op:      "phase.transition",
		Message: fmt.Sprintf("%s -> %s", from, target),
	})
	e.emit(ctx, activity.BuildPhaseTransitionedEvent(activity.CaseEventInput{
		ActorID:    actor,
		DocumentID: next.ID,
		FromPhase:  string(from),
		ToPhase:    string(target),
		OccurredAt: e.cfg.now(),
	}))
	return next, nil
}

// UpdatePhaseStatus is the audited variant of the package-level function.
// Invalid statuses are logged and rejected without touching the document.
func (e *Engine) UpdatePhaseStatus(ctx context.Context, doc Document, status Status) (Document, error) {
	prior := doc.Status
	next, err := UpdatePhaseStatus(doc, status)
	if err != nil {
		e.logger().Log(LogEvent{Op: "status.update", Err: err})
		return doc, err
	}
	e.emit(ctx, activity.BuildStatusUpdatedEvent(activity.CaseEventInput{
		ActorID:    e.cfg.actor,
		DocumentID: next.ID,
		OldValue:   string(prior),
		NewValue:   string(status),
		OccurredAt: e.cfg.now(),
	}))
	return next, nil
}
