package casefile

import (
	"testing"
	"time"
)

func TestNewDocumentDefaults(t *testing.T) {
	doc := NewDocument("Acme")
	if doc.ID == "" {
		t.Fatal("no generated id")
	}
	if doc.Phase != PhaseDiscovery || doc.Status != StatusDiscoveryInProgress {
		t.Fatalf("phase=%s status=%s", doc.Phase, doc.Status)
	}
	if len(doc.PhaseHistory) != 1 {
		t.Fatalf("history = %d entries", len(doc.PhaseHistory))
	}
	bootstrap := doc.PhaseHistory[0]
	if bootstrap.FromPhase != nil || bootstrap.ToPhase != PhaseDiscovery {
		t.Fatalf("bootstrap = %+v", bootstrap)
	}
	if bootstrap.TransitionedBy != SystemActor {
		t.Fatalf("transitionedBy = %q", bootstrap.TransitionedBy)
	}
	if doc.Modules == nil {
		t.Fatal("modules not initialized")
	}
}

func TestNewDocumentOptions(t *testing.T) {
	fixed := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	doc := NewDocument("Acme",
		WithDocumentID("case-123"),
		WithCreatedBy("alex"),
		WithClock(func() time.Time { return fixed }),
	)
	if doc.ID != "case-123" {
		t.Fatalf("id = %s", doc.ID)
	}
	if !doc.CreatedAt.Equal(fixed) || !doc.PhaseHistory[0].Timestamp.Equal(fixed) {
		t.Fatalf("timestamps = %v / %v", doc.CreatedAt, doc.PhaseHistory[0].Timestamp)
	}
	if doc.PhaseHistory[0].TransitionedBy != "alex" {
		t.Fatalf("transitionedBy = %q", doc.PhaseHistory[0].TransitionedBy)
	}
}

func TestStatusesForPhase(t *testing.T) {
	statuses := StatusesForPhase(PhaseDiscovery)
	if len(statuses) != 4 {
		t.Fatalf("discovery statuses = %v", statuses)
	}
	statuses[0] = "mutated"
	if StatusesForPhase(PhaseDiscovery)[0] == "mutated" {
		t.Fatal("returned slice aliases internal state")
	}
	if StatusesForPhase(Phase("archived")) != nil {
		t.Fatal("unknown phase returned statuses")
	}
}

func TestPhaseValidAndOrder(t *testing.T) {
	for _, phase := range []Phase{PhaseDiscovery, PhaseImplementationSpec, PhaseDevelopment, PhaseCompleted} {
		if !phase.Valid() {
			t.Fatalf("%s not valid", phase)
		}
	}
	if Phase("archived").Valid() {
		t.Fatal("unknown phase valid")
	}
}

func TestServiceEntryFor(t *testing.T) {
	doc := NewDocument("Acme")
	if doc.ServiceEntryFor(CategoryAutomations, "svc-1") != nil {
		t.Fatal("entry found without a spec")
	}

	doc.ImplementationSpec = &ImplementationSpec{
		Automations: []ServiceEntry{
			{ServiceID: "svc-1"},
			{ServiceID: "svc-2"},
		},
	}
	entry := doc.ServiceEntryFor(CategoryAutomations, "svc-2")
	if entry == nil || entry.ServiceID != "svc-2" {
		t.Fatalf("entry = %+v", entry)
	}
	if doc.ServiceEntryFor(CategoryAIAgentServices, "svc-1") != nil {
		t.Fatal("entry found in wrong category")
	}
}
