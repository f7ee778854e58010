package casefile

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-casefile/pkg/activity"
)

// BindingConfig names the target of a smart field write: one service entry
// inside one implementation-spec category.
type BindingConfig struct {
	Category  ServiceCategory
	ServiceID string
	FieldID   string
	Actor     string
}

// BindingResult reports what a binding write did. Applied is false when an
// existing meaningful value won over the incoming one; Existing then holds
// the value that was kept.
type BindingResult struct {
	FieldID  string `json:"fieldId"`
	Path     string `json:"path"`
	Applied  bool   `json:"applied"`
	Value    any    `json:"value,omitempty"`
	Existing any    `json:"existing,omitempty"`
}

// Bind writes value into the target service entry's requirements.
//
// The write is existing-wins: a requirement already holding meaningful
// input is never overwritten, the incoming value is dropped and reported
// via BindingResult.Existing. The service entry is created lazily on first
// write; entries are never auto-removed. Validation failures reject the
// write with a *ValidationError and an unchanged document.
func (e *Engine) Bind(ctx context.Context, doc Document, cfg BindingConfig, value any) (Document, BindingResult, error) {
	result := BindingResult{FieldID: cfg.FieldID}

	field, ok := e.cfg.registry.FieldByID(cfg.FieldID)
	if !ok {
		return doc, result, fmt.Errorf("%w: %s", ErrFieldNotRegistered, cfg.FieldID)
	}
	if problems := e.validate(doc, field, value); len(problems) > 0 {
		return doc, result, &ValidationError{FieldID: cfg.FieldID, Errors: problems}
	}

	key := requirementKey(field, cfg.Category)
	next, entry, index := ensureRequirementTarget(doc, cfg)
	result.Path = requirementPath(cfg.Category, index, key)

	if existing, found := requirementValue(entry.Requirements, key); found && !isEmptyValue(existing) {
		result.Existing = existing
		e.logger().Log(LogEvent{
			Op:      "binding.apply",
			FieldID: cfg.FieldID,
			Path:    result.Path,
			Message: "existing value kept",
		})
		return doc, result, nil
	}

	setRequirement(entry.Requirements, key, value)
	result.Applied = true
	result.Value = value

	actor := cfg.Actor
	if actor == "" {
		actor = e.cfg.actor
	}
	e.emit(ctx, activity.BuildBindingAppliedEvent(activity.CaseEventInput{
		ActorID:    actor,
		DocumentID: next.ID,
		FieldID:    cfg.FieldID,
		Path:       result.Path,
		NewValue:   value,
		OccurredAt: e.cfg.now(),
	}))
	return next, result, nil
}

// PrePopulateService resolves every auto-populate field a service needs
// from already-collected data and binds the hits into the service's entry,
// creating the entry on first write. Existing requirement values win.
func (e *Engine) PrePopulateService(ctx context.Context, doc Document, category ServiceCategory, serviceID, actor string) (Document, []BindingResult, error) {
	populated := e.PrePopulateForService(doc, serviceID)

	var results []BindingResult
	next := doc
	for _, fieldID := range sortedKeys(populated) {
		hit := populated[fieldID]
		updated, result, err := e.Bind(ctx, next, BindingConfig{
			Category:  category,
			ServiceID: serviceID,
			FieldID:   fieldID,
			Actor:     actor,
		}, hit.Value)
		if err != nil {
			e.logger().Log(LogEvent{Op: "binding.prepopulate", FieldID: fieldID, Err: err})
			continue
		}
		if result.Applied {
			e.emit(ctx, activity.BuildFieldPrePopulatedEvent(activity.CaseEventInput{
				ActorID:    actor,
				DocumentID: updated.ID,
				FieldID:    fieldID,
				Path:       hit.SourcePath,
				NewValue:   hit.Value,
				OccurredAt: e.cfg.now(),
			}))
		}
		next = updated
		results = append(results, result)
	}
	return next, results, nil
}

// Binding is the per-field edit handle a form collaborator holds: one
// logical field bound to one service entry's requirements. Initialization
// resolves the current value (existing data first, pre-population only when
// the target is empty) and exposes any detected conflict as advisory data.
type Binding struct {
	engine *Engine
	cfg    BindingConfig
	field  Field
	key    string

	doc             Document
	value           any
	isAutoPopulated bool
	source          string
	conflict        *Conflict
}

// NewBinding builds the edit handle for one field against one service
// entry. An existing meaningful value at the target path binds as-is;
// only an empty target falls back to pre-population.
func (e *Engine) NewBinding(doc Document, cfg BindingConfig) (*Binding, error) {
	field, ok := e.cfg.registry.FieldByID(cfg.FieldID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFieldNotRegistered, cfg.FieldID)
	}
	b := &Binding{
		engine:   e,
		cfg:      cfg,
		field:    field,
		key:      requirementKey(field, cfg.Category),
		doc:      doc,
		conflict: e.DetectFieldConflicts(doc, cfg.FieldID),
	}

	if entry := doc.ServiceEntryFor(cfg.Category, cfg.ServiceID); entry != nil {
		if existing, found := requirementValue(entry.Requirements, b.key); found && !isEmptyValue(existing) {
			b.value = existing
			return b, nil
		}
	}
	if populated := e.PrePopulateField(doc, cfg.FieldID); populated.Populated {
		b.value = populated.Value
		b.isAutoPopulated = true
		b.source = populated.SourcePath
	}
	return b, nil
}

// Value returns the currently bound value, nil when the target is empty
// and nothing could be pre-populated.
func (b *Binding) Value() any { return b.value }

// IsAutoPopulated reports whether the bound value came from pre-population
// rather than explicit data. A user edit clears it.
func (b *Binding) IsAutoPopulated() bool { return b.isAutoPopulated }

// Source is the location a pre-populated value was read from, empty for
// explicit data.
func (b *Binding) Source() string { return b.source }

// Conflict returns the conflict detected at initialization, nil when the
// field's locations agree.
func (b *Binding) Conflict() *Conflict { return b.conflict }

// Document returns the binding's current view of the document.
func (b *Binding) Document() Document { return b.doc }

// SetValue validates value and writes it at the target path, creating the
// owning service entry lazily. Unlike Engine.Bind, a user edit overwrites
// whatever the target held and clears auto-population provenance. Fields
// flagged bidirectional additionally mirror the value to their other
// registered locations. Validation failures return a *ValidationError and
// leave the binding's document unchanged.
func (b *Binding) SetValue(ctx context.Context, value any) (Document, error) {
	e := b.engine
	if problems := e.validate(b.doc, b.field, value); len(problems) > 0 {
		return b.doc, &ValidationError{FieldID: b.cfg.FieldID, Errors: problems}
	}

	next, entry, index := ensureRequirementTarget(b.doc, b.cfg)
	setRequirement(entry.Requirements, b.key, value)
	path := requirementPath(b.cfg.Category, index, b.key)

	if b.field.SyncBidirectional {
		synced, err := e.SyncFieldValue(ctx, next, b.cfg.FieldID, value, b.cfg.Actor)
		if err != nil {
			e.logger().Log(LogEvent{Op: "binding.sync", FieldID: b.cfg.FieldID, Err: err})
		} else {
			next = synced
		}
	}

	actor := b.cfg.Actor
	if actor == "" {
		actor = e.cfg.actor
	}
	e.emit(ctx, activity.BuildBindingAppliedEvent(activity.CaseEventInput{
		ActorID:    actor,
		DocumentID: next.ID,
		FieldID:    b.cfg.FieldID,
		Path:       path,
		NewValue:   value,
		OccurredAt: e.cfg.now(),
	}))

	b.doc = next
	b.value = value
	b.isAutoPopulated = false
	b.source = ""
	return next, nil
}

// ensureRequirementTarget clones doc and returns it with the target
// service entry in place, created with empty requirements when missing.
func ensureRequirementTarget(doc Document, cfg BindingConfig) (Document, *ServiceEntry, int) {
	next := doc.Clone()
	if next.ImplementationSpec == nil {
		next.ImplementationSpec = &ImplementationSpec{}
	}
	entries := next.ImplementationSpec.entries(cfg.Category)
	index := -1
	for i := range entries {
		if entries[i].ServiceID == cfg.ServiceID {
			index = i
			break
		}
	}
	if index == -1 {
		entries = append(entries, ServiceEntry{
			ServiceID:    cfg.ServiceID,
			Requirements: map[string]any{},
		})
		index = len(entries) - 1
	}
	next.ImplementationSpec.setEntries(cfg.Category, entries)
	entry := &entries[index]
	if entry.Requirements == nil {
		entry.Requirements = map[string]any{}
	}
	return next, entry, index
}

func requirementPath(category ServiceCategory, index int, key string) string {
	return fmt.Sprintf("implementationSpec.%s.%d.requirements.%s", category, index, key)
}

// requirementKey extracts the requirements sub-path for category from the
// field's storage locations, falling back to the field id when the field
// has no location inside that category.
func requirementKey(field Field, category ServiceCategory) string {
	prefix := fmt.Sprintf("implementationSpec.%s[].requirements.", category)
	for _, location := range field.locations() {
		if suffix, ok := strings.CutPrefix(location.Path, prefix); ok && suffix != "" {
			return suffix
		}
	}
	return field.ID
}

// requirementValue reads a dotted key out of a requirements record.
func requirementValue(requirements map[string]any, key string) (any, bool) {
	parts := strings.Split(key, ".")
	current := any(requirements)
	for _, part := range parts {
		record, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = record[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// setRequirement writes a dotted key into a requirements record, creating
// intermediate records as needed.
func setRequirement(requirements map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	current := requirements
	for _, part := range parts[:len(parts)-1] {
		child, ok := current[part].(map[string]any)
		if !ok {
			child = map[string]any{}
			current[part] = child
		}
		current = child
	}
	current[parts[len(parts)-1]] = value
}

func sortedKeys(m map[string]PrePopulation) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
