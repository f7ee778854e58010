package casefile

import (
	"errors"
	"time"
)

// ErrNoRuleEvaluator signals a custom rule with no evaluator configured.
var ErrNoRuleEvaluator = errors.New("casefile: rule evaluator not configured")

// RuleContext carries the bindings visible to a custom validation rule:
// the candidate value, the field's registry metadata, and a snapshot of the
// whole document.
type RuleContext struct {
	Value    any
	Field    map[string]any
	Document map[string]any
	Now      *time.Time
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Field == nil {
		ctx.Field = map[string]any{}
	}
	if ctx.Document == nil {
		ctx.Document = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) fieldID() string {
	if id, ok := ctx.Field["id"].(string); ok {
		return id
	}
	return ""
}

// bindings is the flat environment exposed to every engine.
func (ctx RuleContext) bindings() map[string]any {
	ctx = ctx.withDefaultMaps()
	return map[string]any{
		"value":    ctx.Value,
		"field":    ctx.Field,
		"document": ctx.Document,
		"now":      ctx.timestamp(),
	}
}

// ruleBindingFor builds the field metadata binding for a registry entry.
func ruleBindingFor(field Field) map[string]any {
	binding := map[string]any{
		"id":         field.ID,
		"label":      field.Label,
		"type":       string(field.Type),
		"category":   string(field.Category),
		"importance": string(field.Importance),
	}
	if len(field.Options) > 0 {
		values := make([]any, 0, len(field.Options))
		for _, opt := range field.Options {
			values = append(values, opt.Value)
		}
		binding["optionValues"] = values
	}
	return binding
}

// RuleEvaluator executes custom validation expressions. Implementations must
// be safe for concurrent use; a rule must yield a boolean to pass or fail a
// value, any other result is treated as a rule error.
type RuleEvaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is a reusable compiled expression.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}
