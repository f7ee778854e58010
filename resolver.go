package casefile

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-casefile/pkg/activity"
)

// Pre-population confidence levels. A primary-source hit is authoritative,
// a secondary-source hit is advisory and rendered as a suggestion.
const (
	ConfidencePrimary   = 1.0
	ConfidenceSecondary = 0.8
)

// ResolutionUsePrimary is the suggested resolution attached to every
// detected conflict: the primary source wins.
const ResolutionUsePrimary = "use_primary"

// PrePopulation is the outcome of resolving a field from already-collected
// data. Populated is false when no location holds a meaningful value.
type PrePopulation struct {
	FieldID    string  `json:"fieldId"`
	Value      any     `json:"value,omitempty"`
	SourcePath string  `json:"sourcePath,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Populated  bool    `json:"populated"`
}

// ConflictValue is one divergent reading of a logical field.
type ConflictValue struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// Conflict reports a logical field whose storage locations disagree.
// PrimaryLocation names the path a "use_primary" resolution should keep.
type Conflict struct {
	FieldID             string          `json:"fieldId"`
	Values              []ConflictValue `json:"values"`
	SuggestedResolution string          `json:"suggestedResolution"`
	PrimaryLocation     string          `json:"primaryLocation"`
}

// FieldValue reads a logical field: the primary source first, then each
// secondary source in declaration order. It returns the value, the path it
// was read from, and whether any location held a meaningful value.
func (e *Engine) FieldValue(doc Document, fieldID string) (any, string, bool) {
	field, ok := e.cfg.registry.FieldByID(fieldID)
	if !ok {
		return nil, "", false
	}
	for _, location := range field.locations() {
		if value, found := e.valueAt(doc, location.Path); found {
			return value, location.Path, true
		}
	}
	return nil, "", false
}

// PrePopulateField resolves one field from already-collected data. A
// primary-source hit carries ConfidencePrimary, a secondary-source hit
// ConfidenceSecondary. Unknown fields and fields not flagged for
// auto-population resolve as not populated.
func (e *Engine) PrePopulateField(doc Document, fieldID string) PrePopulation {
	result := PrePopulation{FieldID: fieldID}
	field, ok := e.cfg.registry.FieldByID(fieldID)
	if !ok {
		e.logger().Log(LogEvent{Op: "field.prepopulate", FieldID: fieldID, Err: ErrFieldNotRegistered})
		return result
	}
	if !field.AutoPopulate {
		return result
	}

	if value, found := e.valueAt(doc, field.PrimarySource.Path); found {
		result.Value = value
		result.SourcePath = field.PrimarySource.Path
		result.Confidence = ConfidencePrimary
		result.Populated = true
		return result
	}
	for _, location := range field.SecondarySources {
		if value, found := e.valueAt(doc, location.Path); found {
			result.Value = value
			result.SourcePath = location.Path
			result.Confidence = ConfidenceSecondary
			result.Populated = true
			return result
		}
	}
	return result
}

// PrePopulateForService resolves every auto-populate field a service needs,
// keyed by field id. Fields that resolve to nothing are omitted.
func (e *Engine) PrePopulateForService(doc Document, serviceID string) map[string]PrePopulation {
	out := map[string]PrePopulation{}
	for _, field := range e.cfg.registry.FieldsForService(serviceID) {
		if !field.AutoPopulate {
			continue
		}
		if populated := e.PrePopulateField(doc, field.ID); populated.Populated {
			out[field.ID] = populated
		}
	}
	return out
}

// DetectFieldConflicts compares every storage location of a field and
// reports a conflict when two locations hold differing meaningful values.
// Strings are compared case-insensitively after trimming.
func (e *Engine) DetectFieldConflicts(doc Document, fieldID string) *Conflict {
	field, ok := e.cfg.registry.FieldByID(fieldID)
	if !ok {
		return nil
	}

	var readings []ConflictValue
	for _, location := range field.locations() {
		if value, found := e.valueAt(doc, location.Path); found {
			readings = append(readings, ConflictValue{Path: location.Path, Value: value})
		}
	}
	if len(readings) < 2 {
		return nil
	}
	conflicting := false
	for _, reading := range readings[1:] {
		if !valuesEquivalent(readings[0].Value, reading.Value) {
			conflicting = true
			break
		}
	}
	if !conflicting {
		return nil
	}
	return &Conflict{
		FieldID:             field.ID,
		Values:              readings,
		SuggestedResolution: ResolutionUsePrimary,
		PrimaryLocation:     field.PrimarySource.Path,
	}
}

// DetectConflicts scans the whole catalog, returning conflicts ordered by
// field id.
func (e *Engine) DetectConflicts(doc Document) []Conflict {
	var out []Conflict
	for _, id := range e.cfg.registry.IDs() {
		if conflict := e.DetectFieldConflicts(doc, id); conflict != nil {
			out = append(out, *conflict)
		}
	}
	return out
}

// SyncFieldValue mirrors value to every registered location of a field
// flagged bidirectional: the primary source and each secondary source,
// last-write-wins. Fields without the flag are returned unchanged.
// Aggregated paths cannot be written and are skipped with a log entry. On
// validation failure the document is returned unchanged with a
// *ValidationError.
func (e *Engine) SyncFieldValue(ctx context.Context, doc Document, fieldID string, value any, actor string) (Document, error) {
	field, ok := e.cfg.registry.FieldByID(fieldID)
	if !ok {
		return doc, fmt.Errorf("%w: %s", ErrFieldNotRegistered, fieldID)
	}
	if !field.SyncBidirectional {
		e.logger().Log(LogEvent{
			Op:      "field.sync",
			FieldID: fieldID,
			Message: "sync disabled for field",
		})
		return doc, nil
	}
	if problems := e.validate(doc, field, value); len(problems) > 0 {
		e.logger().Log(LogEvent{
			Op:      "field.sync",
			FieldID: fieldID,
			Message: "validation rejected",
		})
		return doc, &ValidationError{FieldID: fieldID, Errors: problems}
	}
	if actor == "" {
		actor = e.cfg.actor
	}

	targets := append([]FieldLocation{field.PrimarySource}, field.SecondarySources...)

	next := doc
	oldValue, _, _ := e.FieldValue(doc, fieldID)
	for _, location := range targets {
		path, err := ParsePath(location.Path)
		if err != nil {
			e.logger().Log(LogEvent{Op: "field.sync", FieldID: fieldID, Path: location.Path, Err: err})
			continue
		}
		if path.Aggregated() {
			e.logger().Log(LogEvent{
				Op:      "field.sync",
				FieldID: fieldID,
				Path:    location.Path,
				Message: "aggregated path skipped",
			})
			continue
		}
		updated, err := path.Set(next, value)
		if err != nil {
			e.logger().Log(LogEvent{Op: "field.sync", FieldID: fieldID, Path: location.Path, Err: err})
			continue
		}
		next = updated
	}

	e.emit(ctx, activity.BuildFieldSyncedEvent(activity.CaseEventInput{
		ActorID:    actor,
		DocumentID: next.ID,
		FieldID:    fieldID,
		Path:       field.PrimarySource.Path,
		OldValue:   oldValue,
		NewValue:   value,
		OccurredAt: e.cfg.now(),
	}))
	return next, nil
}

// ValidateFieldValue runs the field's validation rules against value
// without writing anything. It returns the rule failures, empty when the
// value is acceptable.
func (e *Engine) ValidateFieldValue(doc Document, fieldID string, value any) ([]string, error) {
	field, ok := e.cfg.registry.FieldByID(fieldID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFieldNotRegistered, fieldID)
	}
	return e.validate(doc, field, value), nil
}

func (e *Engine) validate(doc Document, field Field, value any) []string {
	var problems []string

	rules := field.Validation
	empty := isEmptyValue(value)
	if rules != nil && rules.Required && empty {
		problems = append(problems, fmt.Sprintf("%s is required", field.Label))
	}
	if empty {
		return problems
	}

	if problem := checkFieldType(field, value); problem != "" {
		problems = append(problems, problem)
	}
	if len(field.Options) > 0 {
		if text, ok := value.(string); ok && !optionAllowed(field.Options, text) {
			problems = append(problems, fmt.Sprintf("%q is not a valid option for %s", text, field.Label))
		}
	}

	if rules == nil {
		return problems
	}
	if rules.Pattern != "" {
		if text, ok := value.(string); ok {
			matched, err := regexp.MatchString(rules.Pattern, text)
			if err != nil {
				problems = append(problems, fmt.Sprintf("invalid pattern for %s: %v", field.Label, err))
			} else if !matched {
				problems = append(problems, fmt.Sprintf("%s does not match the expected format", field.Label))
			}
		}
	}
	if rules.Min != nil || rules.Max != nil {
		if number, ok := toFloat(value); ok {
			if rules.Min != nil && number < *rules.Min {
				problems = append(problems, fmt.Sprintf("%s must be at least %v", field.Label, *rules.Min))
			}
			if rules.Max != nil && number > *rules.Max {
				problems = append(problems, fmt.Sprintf("%s must be at most %v", field.Label, *rules.Max))
			}
		}
	}
	if rules.MinLength != nil || rules.MaxLength != nil {
		if text, ok := value.(string); ok {
			length := utf8.RuneCountInString(text)
			if rules.MinLength != nil && length < *rules.MinLength {
				problems = append(problems, fmt.Sprintf("%s must be at least %d characters", field.Label, *rules.MinLength))
			}
			if rules.MaxLength != nil && length > *rules.MaxLength {
				problems = append(problems, fmt.Sprintf("%s must be at most %d characters", field.Label, *rules.MaxLength))
			}
		}
	}
	if rules.Custom != "" {
		result, err := e.evaluateRule(RuleContext{
			Value:    value,
			Field:    ruleBindingFor(field),
			Document: documentAsMap(doc),
		}, rules.Custom)
		switch {
		case err != nil:
			problems = append(problems, fmt.Sprintf("rule error for %s: %v", field.Label, err))
		default:
			passed, ok := result.(bool)
			if !ok {
				problems = append(problems, fmt.Sprintf("rule for %s must yield a boolean", field.Label))
			} else if !passed {
				problems = append(problems, fmt.Sprintf("%s failed validation rule", field.Label))
			}
		}
	}
	return problems
}

// valueAt reads path out of doc, treating parse failures as "not found".
func (e *Engine) valueAt(doc Document, rawPath string) (any, bool) {
	path, err := ParsePath(rawPath)
	if err != nil {
		e.logger().Log(LogEvent{Op: "field.read", Path: rawPath, Err: err})
		return nil, false
	}
	return path.Get(doc)
}

func checkFieldType(field Field, value any) string {
	switch field.Type {
	case FieldNumber:
		if _, ok := toFloat(value); !ok {
			return fmt.Sprintf("%s must be a number", field.Label)
		}
	case FieldBoolean, FieldCheckbox:
		if _, ok := value.(bool); !ok {
			return fmt.Sprintf("%s must be a boolean", field.Label)
		}
	case FieldText, FieldTextarea, FieldEmail, FieldURL, FieldSelect:
		if _, ok := value.(string); !ok {
			return fmt.Sprintf("%s must be a string", field.Label)
		}
	}
	return ""
}

func optionAllowed(options []FieldOption, value string) bool {
	for _, opt := range options {
		if strings.EqualFold(opt.Value, value) {
			return true
		}
	}
	return false
}

func valuesEquivalent(a, b any) bool {
	if textA, ok := a.(string); ok {
		if textB, ok := b.(string); ok {
			return strings.EqualFold(strings.TrimSpace(textA), strings.TrimSpace(textB))
		}
	}
	if numA, ok := toFloat(a); ok {
		if numB, ok := toFloat(b); ok {
			return numA == numB
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		number, err := v.Float64()
		return number, err == nil
	default:
		return 0, false
	}
}

// documentAsMap renders the document as the generic map rule engines bind.
func documentAsMap(doc Document) map[string]any {
	raw, err := json.Marshal(doc)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}
