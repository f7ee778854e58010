package casefile

import (
	"sort"
	"testing"
)

func TestHasUserInput(t *testing.T) {
	answered := []any{
		"text",
		42,
		true,
		[]any{map[string]any{"channel": "web"}},
		map[string]any{"nested": map[string]any{"deep": "value"}},
	}
	for _, v := range answered {
		if !hasUserInput(v) {
			t.Fatalf("hasUserInput(%#v) = false", v)
		}
	}

	unanswered := []any{
		nil,
		"",
		0,
		false,
		[]any{},
		[]any{map[string]any{"channel": ""}},
		map[string]any{"nested": nil},
	}
	for _, v := range unanswered {
		if hasUserInput(v) {
			t.Fatalf("hasUserInput(%#v) = true", v)
		}
	}
}

func TestDiscoveryProgressWeightsModules(t *testing.T) {
	doc := NewDocument("Acme")

	percent, breakdown := DiscoveryProgress(doc)
	if percent != 0 {
		t.Fatalf("empty document percent = %d", percent)
	}
	if len(breakdown) != len(ModuleNames()) {
		t.Fatalf("breakdown has %d modules", len(breakdown))
	}

	// 3 of overview's 6 questions out of 39 total
	doc = UpdateModule(doc, "overview", map[string]any{
		"companyOverview": "Manufacturer",
		"crmName":         "HubSpot",
		"teamSize":        12,
	})
	percent, breakdown = DiscoveryProgress(doc)
	if percent != 3*100/39 {
		t.Fatalf("percent = %d, want %d", percent, 3*100/39)
	}
	for _, module := range breakdown {
		if module.Module == "overview" && module.Answered != 3 {
			t.Fatalf("overview answered = %d", module.Answered)
		}
	}
}

func TestDiscoveryProgressCapsAtModuleBudget(t *testing.T) {
	doc := NewDocument("Acme")
	values := map[string]any{}
	for _, key := range []string{"a", "b", "c", "d", "e"} {
		values[key] = "answered"
	}
	doc = UpdateModule(doc, "roi", values)

	_, breakdown := DiscoveryProgress(doc)
	for _, module := range breakdown {
		if module.Module == "roi" {
			if module.Answered != 2 || module.Expected != 2 {
				t.Fatalf("roi = %+v, want capped at 2", module)
			}
			return
		}
	}
	t.Fatal("roi module missing from breakdown")
}

func TestDiscoveryProgressIgnoresEmptyAnswers(t *testing.T) {
	doc := NewDocument("Acme")
	doc = UpdateModule(doc, "overview", map[string]any{
		"companyOverview": "",
		"teamSize":        0,
		"crmName":         "HubSpot",
	})

	_, breakdown := DiscoveryProgress(doc)
	for _, module := range breakdown {
		if module.Module == "overview" && module.Answered != 1 {
			t.Fatalf("overview answered = %d, want 1", module.Answered)
		}
	}
}

func TestModuleNamesSortedAndStable(t *testing.T) {
	names := ModuleNames()
	if !sort.StringsAreSorted(names) {
		t.Fatalf("names not sorted: %v", names)
	}
	if len(names) != 9 {
		t.Fatalf("names = %v", names)
	}
}

func TestProgressPerPhase(t *testing.T) {
	doc := NewDocument("Acme")
	if got := Progress(doc); got.Phase != PhaseDiscovery || got.Modules == nil {
		t.Fatalf("discovery progress = %+v", got)
	}

	doc.Phase = PhaseImplementationSpec
	doc.ImplementationSpec = &ImplementationSpec{CompletionPercentage: 140}
	if got := Progress(doc); got.Percent != 100 {
		t.Fatalf("spec percent = %d, want clamped to 100", got.Percent)
	}
	doc.ImplementationSpec = nil
	if got := Progress(doc); got.Percent != 0 {
		t.Fatalf("spec percent without spec = %d", got.Percent)
	}

	doc.Phase = PhaseDevelopment
	doc.DevelopmentTracking = &DevelopmentTracking{Tasks: []Task{
		{ID: "t1", Status: TaskDone},
		{ID: "t2", Status: TaskInProgress},
		{ID: "t3", Status: TaskDone},
		{ID: "t4", Status: TaskTodo},
	}}
	if got := Progress(doc); got.Percent != 50 {
		t.Fatalf("development percent = %d, want 50", got.Percent)
	}
	doc.DevelopmentTracking = &DevelopmentTracking{Tasks: []Task{
		{ID: "t1", Status: TaskDone},
		{ID: "t2", Status: TaskDone},
		{ID: "t3", Status: TaskInProgress},
	}}
	if got := Progress(doc); got.Percent != 67 {
		t.Fatalf("development percent = %d, want 2 of 3 rounded to 67", got.Percent)
	}

	doc.Phase = PhaseCompleted
	if got := Progress(doc); got.Percent != 100 {
		t.Fatalf("completed percent = %d", got.Percent)
	}
}

func TestUpdateModuleMergesWithoutMutating(t *testing.T) {
	doc := NewDocument("Acme")
	doc = UpdateModule(doc, "overview", map[string]any{"crmName": "HubSpot"})

	next := UpdateModule(doc, "overview", map[string]any{"teamSize": 12})
	if next.Modules["overview"]["crmName"] != "HubSpot" {
		t.Fatal("merge dropped the prior answer")
	}
	if next.Modules["overview"]["teamSize"] != 12 {
		t.Fatal("merge lost the new answer")
	}
	if _, ok := doc.Modules["overview"]["teamSize"]; ok {
		t.Fatal("input document mutated")
	}
}
