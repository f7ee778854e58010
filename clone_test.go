package casefile

import (
	"testing"
	"time"
)

func TestCloneIsDeep(t *testing.T) {
	doc := NewDocument("Acme")
	doc.Modules["overview"] = map[string]any{
		"crmName": "HubSpot",
		"contacts": []any{
			map[string]any{"name": "Dana"},
		},
	}
	doc.ImplementationSpec = &ImplementationSpec{
		Automations: []ServiceEntry{{
			ServiceID:    "svc-1",
			Requirements: map[string]any{"trigger": "webhook"},
		}},
		CompletionPercentage: 40,
	}

	clone := doc.Clone()
	clone.Modules["overview"]["crmName"] = "Salesforce"
	contacts := clone.Modules["overview"]["contacts"].([]any)
	contacts[0].(map[string]any)["name"] = "Riley"
	clone.ImplementationSpec.Automations[0].Requirements["trigger"] = "schedule"
	clone.ImplementationSpec.CompletionPercentage = 90
	clone.PhaseHistory[0].Notes = "edited"

	if doc.Modules["overview"]["crmName"] != "HubSpot" {
		t.Fatal("module value shared with clone")
	}
	original := doc.Modules["overview"]["contacts"].([]any)
	if original[0].(map[string]any)["name"] != "Dana" {
		t.Fatal("nested slice element shared with clone")
	}
	if doc.ImplementationSpec.Automations[0].Requirements["trigger"] != "webhook" {
		t.Fatal("requirements shared with clone")
	}
	if doc.ImplementationSpec.CompletionPercentage != 40 {
		t.Fatal("spec pointer shared with clone")
	}
	if doc.PhaseHistory[0].Notes == "edited" {
		t.Fatal("phase history shared with clone")
	}
}

func TestCloneHandlesNilCollections(t *testing.T) {
	doc := Document{ID: "doc-1"}
	clone := doc.Clone()
	if clone.ID != "doc-1" {
		t.Fatalf("clone = %+v", clone)
	}
	if clone.Modules != nil || clone.ImplementationSpec != nil {
		t.Fatalf("nil collections materialized: %+v", clone)
	}
}

func TestClonePreservesTimestamps(t *testing.T) {
	doc := NewDocument("Acme")
	if doc.CreatedAt.IsZero() || doc.PhaseHistory[0].Timestamp.IsZero() {
		t.Fatalf("fixture timestamps missing: %+v", doc)
	}
	completed := doc.CreatedAt.Add(time.Hour)
	doc.ImplementationSpec = &ImplementationSpec{
		Automations: []ServiceEntry{{ServiceID: "svc-1", CompletedAt: &completed}},
		LastUpdated: doc.CreatedAt,
	}

	clone := doc.Clone()
	if !clone.CreatedAt.Equal(doc.CreatedAt) {
		t.Fatalf("createdAt = %v, want %v", clone.CreatedAt, doc.CreatedAt)
	}
	if !clone.PhaseHistory[0].Timestamp.Equal(doc.PhaseHistory[0].Timestamp) {
		t.Fatalf("history timestamp = %v", clone.PhaseHistory[0].Timestamp)
	}
	if !clone.ImplementationSpec.LastUpdated.Equal(doc.CreatedAt) {
		t.Fatalf("lastUpdated = %v", clone.ImplementationSpec.LastUpdated)
	}
	got := clone.ImplementationSpec.Automations[0].CompletedAt
	if got == nil || !got.Equal(completed) {
		t.Fatalf("completedAt = %v, want %v", got, completed)
	}
}

func TestTransitionKeepsPriorHistoryIntact(t *testing.T) {
	doc := approvedDiscoveryDoc()
	bootstrap := doc.PhaseHistory[0]
	if bootstrap.Timestamp.IsZero() {
		t.Fatal("bootstrap history entry has no timestamp")
	}

	next, err := TransitionPhase(doc, PhaseImplementationSpec, "alex", "")
	if err != nil {
		t.Fatalf("TransitionPhase: %v", err)
	}
	if !next.CreatedAt.Equal(doc.CreatedAt) {
		t.Fatalf("createdAt = %v, want %v", next.CreatedAt, doc.CreatedAt)
	}
	first := next.PhaseHistory[0]
	if !first.Timestamp.Equal(bootstrap.Timestamp) || first.ToPhase != bootstrap.ToPhase ||
		first.TransitionedBy != bootstrap.TransitionedBy {
		t.Fatalf("prior history entry changed: %+v, want %+v", first, bootstrap)
	}
	if next.PhaseHistory[1].Timestamp.IsZero() {
		t.Fatal("new history entry has no timestamp")
	}
}
