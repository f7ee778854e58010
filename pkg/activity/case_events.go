package activity

import (
	"strings"
	"time"
)

// CaseEventInput describes the common fields for case-document lifecycle
// events. DocumentID becomes the event's object id.
type CaseEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	DocumentID string
	Channel    string
	Recipients []string
	Metadata   map[string]any

	FieldID   string
	Path      string
	OldValue  any
	NewValue  any
	FromPhase string
	ToPhase   string

	OccurredAt time.Time
}

// BuildDocumentCreatedEvent constructs an event for case-document creation.
func BuildDocumentCreatedEvent(input CaseEventInput) Event {
	return buildCaseEvent("casefile.created", "casefile.document", input)
}

// BuildPhaseTransitionedEvent constructs an event for a phase transition.
func BuildPhaseTransitionedEvent(input CaseEventInput) Event {
	return buildCaseEvent("casefile.phase.transitioned", "casefile.document", input)
}

// BuildStatusUpdatedEvent constructs an event for an in-phase status change.
func BuildStatusUpdatedEvent(input CaseEventInput) Event {
	return buildCaseEvent("casefile.status.updated", "casefile.document", input)
}

// BuildFieldSyncedEvent constructs an event for a field sync write.
func BuildFieldSyncedEvent(input CaseEventInput) Event {
	return buildCaseEvent("casefile.field.synced", "casefile.field", input)
}

// BuildFieldPrePopulatedEvent constructs an event for a pre-population hit.
func BuildFieldPrePopulatedEvent(input CaseEventInput) Event {
	return buildCaseEvent("casefile.field.prepopulated", "casefile.field", input)
}

// BuildBindingAppliedEvent constructs an event for a smart binding write.
func BuildBindingAppliedEvent(input CaseEventInput) Event {
	return buildCaseEvent("casefile.binding.applied", "casefile.field", input)
}

// BuildDocumentSavedEvent constructs an event for a persisted snapshot.
func BuildDocumentSavedEvent(input CaseEventInput) Event {
	return buildCaseEvent("casefile.saved", "casefile.document", input)
}

func buildCaseEvent(verb, objectType string, input CaseEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.FieldID != "" {
		metadata = ensureMetadata(metadata)
		metadata["field_id"] = input.FieldID
	}
	if input.Path != "" {
		metadata = ensureMetadata(metadata)
		metadata["path"] = input.Path
	}
	if input.FromPhase != "" {
		metadata = ensureMetadata(metadata)
		metadata["from_phase"] = input.FromPhase
	}
	if input.ToPhase != "" {
		metadata = ensureMetadata(metadata)
		metadata["to_phase"] = input.ToPhase
	}
	if input.OldValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["new_value"] = input.NewValue
	}

	recipients := input.Recipients
	if len(recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	objectID := strings.TrimSpace(input.DocumentID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.FieldID)
	}
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Recipients: recipients,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
