// Package casefile coordinates a multi-phase business record (the case
// document) through ordered lifecycle phases, and keeps duplicated field
// values consistent as the same facts are reused across phases.
//
// The package is persistence-agnostic: every operation takes a Document and
// returns a new Document. See pkg/store for persistence contracts and
// pkg/session for a thin "current document" adapter.
package casefile

import (
	"time"

	"github.com/google/uuid"
)

// Phase is a lifecycle stage of the case document, strictly ordered.
type Phase string

const (
	PhaseDiscovery          Phase = "discovery"
	PhaseImplementationSpec Phase = "implementation_spec"
	PhaseDevelopment        Phase = "development"
	PhaseCompleted          Phase = "completed"
)

// phaseOrder lists phases in transition order. Index is the ordering key.
var phaseOrder = []Phase{
	PhaseDiscovery,
	PhaseImplementationSpec,
	PhaseDevelopment,
	PhaseCompleted,
}

func (p Phase) order() int {
	for i, phase := range phaseOrder {
		if phase == p {
			return i
		}
	}
	return -1
}

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	return p.order() >= 0
}

// Status is a phase-scoped progress marker. Valid values differ per phase.
type Status string

const (
	StatusDiscoveryInProgress    Status = "discovery_in_progress"
	StatusDiscoveryComplete      Status = "discovery_complete"
	StatusAwaitingClientDecision Status = "awaiting_client_decision"
	StatusClientApproved         Status = "client_approved"

	StatusSpecInProgress Status = "spec_in_progress"
	StatusSpecComplete   Status = "spec_complete"

	StatusDevNotStarted         Status = "dev_not_started"
	StatusDevInProgress         Status = "dev_in_progress"
	StatusDevTesting            Status = "dev_testing"
	StatusDevReadyForDeployment Status = "dev_ready_for_deployment"
	StatusDeployed              Status = "deployed"

	StatusCompleted Status = "completed"
)

var statusesByPhase = map[Phase][]Status{
	PhaseDiscovery: {
		StatusDiscoveryInProgress,
		StatusDiscoveryComplete,
		StatusAwaitingClientDecision,
		StatusClientApproved,
	},
	PhaseImplementationSpec: {
		StatusSpecInProgress,
		StatusSpecComplete,
	},
	PhaseDevelopment: {
		StatusDevNotStarted,
		StatusDevInProgress,
		StatusDevTesting,
		StatusDevReadyForDeployment,
		StatusDeployed,
	},
	PhaseCompleted: {
		StatusCompleted,
	},
}

var defaultStatusByPhase = map[Phase]Status{
	PhaseDiscovery:          StatusDiscoveryInProgress,
	PhaseImplementationSpec: StatusSpecInProgress,
	PhaseDevelopment:        StatusDevNotStarted,
	PhaseCompleted:          StatusCompleted,
}

// StatusesForPhase returns the valid status set for phase. The returned
// slice is a copy and can be safely mutated by the caller.
func StatusesForPhase(phase Phase) []Status {
	statuses, ok := statusesByPhase[phase]
	if !ok {
		return nil
	}
	return append([]Status(nil), statuses...)
}

// DefaultStatusForPhase returns the status a document receives when it
// enters phase.
func DefaultStatusForPhase(phase Phase) Status {
	return defaultStatusByPhase[phase]
}

// PhaseTransition is one append-only audit entry in a document's history.
// Entries are never mutated or removed after being appended.
type PhaseTransition struct {
	FromPhase      *Phase    `json:"fromPhase"`
	ToPhase        Phase     `json:"toPhase"`
	Timestamp      time.Time `json:"timestamp"`
	TransitionedBy string    `json:"transitionedBy"`
	Notes          string    `json:"notes,omitempty"`
}

// ServiceEntry is a per-purchased-capability record inside the
// implementation spec. Requirements holds collected smart-field values keyed
// by each field's logical sub-path. Entries are created lazily on first
// write and never auto-removed.
type ServiceEntry struct {
	ServiceID    string         `json:"serviceId"`
	Requirements map[string]any `json:"requirements"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
}

// ImplementationSpec holds phase-two data: category arrays of service
// entries plus rollup progress metadata.
type ImplementationSpec struct {
	Automations           []ServiceEntry `json:"automations"`
	AIAgentServices       []ServiceEntry `json:"aiAgentServices"`
	IntegrationServices   []ServiceEntry `json:"integrationServices"`
	SystemImplementations []ServiceEntry `json:"systemImplementations"`
	AdditionalServices    []ServiceEntry `json:"additionalServices"`

	CompletionPercentage int       `json:"completionPercentage"`
	TotalEstimatedHours  int       `json:"totalEstimatedHours,omitempty"`
	LastUpdated          time.Time `json:"lastUpdated,omitempty"`
	UpdatedBy            string    `json:"updatedBy,omitempty"`
}

// ServiceCategory names one of the implementation spec category arrays.
type ServiceCategory string

const (
	CategoryAutomations           ServiceCategory = "automations"
	CategoryAIAgentServices       ServiceCategory = "aiAgentServices"
	CategoryIntegrationServices   ServiceCategory = "integrationServices"
	CategorySystemImplementations ServiceCategory = "systemImplementations"
	CategoryAdditionalServices    ServiceCategory = "additionalServices"
)

// ServiceCategories lists the category arrays in a stable order.
var ServiceCategories = []ServiceCategory{
	CategoryAutomations,
	CategoryAIAgentServices,
	CategoryIntegrationServices,
	CategorySystemImplementations,
	CategoryAdditionalServices,
}

func (s *ImplementationSpec) entries(category ServiceCategory) []ServiceEntry {
	if s == nil {
		return nil
	}
	switch category {
	case CategoryAutomations:
		return s.Automations
	case CategoryAIAgentServices:
		return s.AIAgentServices
	case CategoryIntegrationServices:
		return s.IntegrationServices
	case CategorySystemImplementations:
		return s.SystemImplementations
	case CategoryAdditionalServices:
		return s.AdditionalServices
	default:
		return nil
	}
}

func (s *ImplementationSpec) setEntries(category ServiceCategory, entries []ServiceEntry) {
	switch category {
	case CategoryAutomations:
		s.Automations = entries
	case CategoryAIAgentServices:
		s.AIAgentServices = entries
	case CategoryIntegrationServices:
		s.IntegrationServices = entries
	case CategorySystemImplementations:
		s.SystemImplementations = entries
	case CategoryAdditionalServices:
		s.AdditionalServices = entries
	}
}

// TaskStatus tracks one development task. StatusDone is terminal.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskInReview   TaskStatus = "in_review"
	TaskBlocked    TaskStatus = "blocked"
	TaskDone       TaskStatus = "done"
)

// Task is a development-phase work item.
type Task struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Status   TaskStatus `json:"status"`
	Assignee string     `json:"assignee,omitempty"`
}

// DevelopmentTracking holds phase-three data.
type DevelopmentTracking struct {
	Tasks []Task `json:"tasks"`
}

// Document is the root aggregate tracked through its lifecycle. It is a
// value: operations in this package never mutate a Document in place, they
// return a new one, so a caller's prior reference remains valid for
// comparison or undo.
type Document struct {
	ID         string    `json:"id"`
	ClientName string    `json:"clientName"`
	CreatedAt  time.Time `json:"createdAt"`

	Phase        Phase             `json:"phase"`
	Status       Status            `json:"status"`
	PhaseHistory []PhaseTransition `json:"phaseHistory"`

	Modules map[string]map[string]any `json:"modules"`

	ImplementationSpec  *ImplementationSpec  `json:"implementationSpec,omitempty"`
	DevelopmentTracking *DevelopmentTracking `json:"developmentTracking,omitempty"`
}

// NewDocument creates a case document in the discovery phase with a single
// bootstrap history entry and empty module records.
func NewDocument(clientName string, opts ...DocumentOption) Document {
	cfg := documentConfig{
		now:   time.Now,
		actor: SystemActor,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	now := cfg.now()
	id := cfg.id
	if id == "" {
		id = uuid.NewString()
	}

	return Document{
		ID:         id,
		ClientName: clientName,
		CreatedAt:  now,
		Phase:      PhaseDiscovery,
		Status:     StatusDiscoveryInProgress,
		PhaseHistory: []PhaseTransition{{
			FromPhase:      nil,
			ToPhase:        PhaseDiscovery,
			Timestamp:      now,
			TransitionedBy: cfg.actor,
			Notes:          "case document created",
		}},
		Modules: map[string]map[string]any{},
	}
}

// DocumentOption configures NewDocument.
type DocumentOption func(*documentConfig)

type documentConfig struct {
	id    string
	actor string
	now   func() time.Time
}

// WithDocumentID overrides the generated document identifier.
func WithDocumentID(id string) DocumentOption {
	return func(cfg *documentConfig) {
		cfg.id = id
	}
}

// WithCreatedBy attributes the bootstrap history entry.
func WithCreatedBy(actor string) DocumentOption {
	return func(cfg *documentConfig) {
		if actor != "" {
			cfg.actor = actor
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(now func() time.Time) DocumentOption {
	return func(cfg *documentConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}

// ServiceEntryFor returns the entry with serviceID in category, or nil.
func (d Document) ServiceEntryFor(category ServiceCategory, serviceID string) *ServiceEntry {
	if d.ImplementationSpec == nil {
		return nil
	}
	entries := d.ImplementationSpec.entries(category)
	for i := range entries {
		if entries[i].ServiceID == serviceID {
			return &entries[i]
		}
	}
	return nil
}
