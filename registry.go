package casefile

import "sort"

// FieldType identifies the input widget a field expects.
type FieldType string

const (
	FieldText        FieldType = "text"
	FieldNumber      FieldType = "number"
	FieldEmail       FieldType = "email"
	FieldURL         FieldType = "url"
	FieldSelect      FieldType = "select"
	FieldMultiSelect FieldType = "multiselect"
	FieldCheckbox    FieldType = "checkbox"
	FieldTextarea    FieldType = "textarea"
	FieldBoolean     FieldType = "boolean"
	FieldArray       FieldType = "array"
	FieldObject      FieldType = "object"
)

// FieldCategory groups related fields for registry queries.
type FieldCategory string

const (
	CategoryCRM            FieldCategory = "crm"
	CategoryEmail          FieldCategory = "email"
	CategoryForms          FieldCategory = "forms"
	CategorySystems        FieldCategory = "systems"
	CategoryAuthentication FieldCategory = "authentication"
	CategoryIntegration    FieldCategory = "integration"
	CategoryWorkflow       FieldCategory = "workflow"
	CategoryBusiness       FieldCategory = "business"
	CategoryTechnical      FieldCategory = "technical"
)

// CollectionPhase marks the lifecycle stage a field is gathered in.
type CollectionPhase string

const (
	CollectedInDiscovery   CollectionPhase = "discovery"
	CollectedInSpec        CollectionPhase = "implementation_spec"
	CollectedInDevelopment CollectionPhase = "development"
)

// FieldLocation names one place a logical field's value is stored inside a
// case document.
type FieldLocation struct {
	Path        string          `json:"path"`
	Phase       CollectionPhase `json:"phase"`
	Module      string          `json:"module,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Validation describes the rules applied before a field value is written.
// Custom holds a rule expression evaluated by the engine's RuleEvaluator
// with "value", "field" and "document" bound; it must yield a boolean.
type Validation struct {
	Required  bool
	Pattern   string
	Min       *float64
	Max       *float64
	MinLength *int
	MaxLength *int
	Custom    string
}

// FieldOption is one selectable value for select-typed fields.
type FieldOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Importance ranks how load-bearing a field is for downstream services.
type Importance string

const (
	ImportanceCritical Importance = "critical"
	ImportanceHigh     Importance = "high"
	ImportanceMedium   Importance = "medium"
	ImportanceLow      Importance = "low"
)

// Field is one registry entry: a logical field's identity, its canonical
// and duplicate storage locations, and the flags controlling
// auto-population and mirroring.
type Field struct {
	ID    string
	Label string
	Type  FieldType

	Category    FieldCategory
	CollectedIn []CollectionPhase
	UsedBy      []string

	PrimarySource    FieldLocation
	SecondarySources []FieldLocation

	AutoPopulate      bool
	SyncBidirectional bool

	Validation *Validation
	Options    []FieldOption

	Importance Importance
}

// locations returns the primary source followed by every secondary source.
func (f Field) locations() []FieldLocation {
	out := make([]FieldLocation, 0, 1+len(f.SecondarySources))
	out = append(out, f.PrimarySource)
	out = append(out, f.SecondarySources...)
	return out
}

// Registry is a static, load-once catalog of fields looked up by id. It is
// configuration, not state: there is no mutation API after construction.
type Registry struct {
	fields map[string]Field
}

// NewRegistry builds a registry from entries. Later duplicates win so
// callers can overlay the default catalog with adjusted entries.
func NewRegistry(fields ...Field) *Registry {
	table := make(map[string]Field, len(fields))
	for _, field := range fields {
		if field.ID == "" {
			continue
		}
		table[field.ID] = field
	}
	return &Registry{fields: table}
}

// FieldByID returns the entry for id.
func (r *Registry) FieldByID(id string) (Field, bool) {
	if r == nil {
		return Field{}, false
	}
	field, ok := r.fields[id]
	return field, ok
}

// Len returns the number of registered fields.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.fields)
}

// IDs returns every registered field id sorted alphabetically.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.fields))
	for id := range r.fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FieldsForService returns the fields used by serviceID, ordered by id.
func (r *Registry) FieldsForService(serviceID string) []Field {
	return r.filter(func(f Field) bool {
		for _, id := range f.UsedBy {
			if id == serviceID {
				return true
			}
		}
		return false
	})
}

// FieldsByCategory returns the fields in category, ordered by id.
func (r *Registry) FieldsByCategory(category FieldCategory) []Field {
	return r.filter(func(f Field) bool {
		return f.Category == category
	})
}

// AutoPopulateFields returns every field flagged for auto-population.
func (r *Registry) AutoPopulateFields() []Field {
	return r.filter(func(f Field) bool {
		return f.AutoPopulate
	})
}

// FieldsByPhase returns the fields collected in phase, ordered by id.
func (r *Registry) FieldsByPhase(phase CollectionPhase) []Field {
	return r.filter(func(f Field) bool {
		for _, collected := range f.CollectedIn {
			if collected == phase {
				return true
			}
		}
		return false
	})
}

func (r *Registry) filter(keep func(Field) bool) []Field {
	if r == nil {
		return nil
	}
	var out []Field
	for _, id := range r.IDs() {
		field := r.fields[id]
		if keep(field) {
			out = append(out, field)
		}
	}
	return out
}
