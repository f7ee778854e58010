package casefile

import (
	"math"
	"sort"
)

// moduleQuestionCounts weights each discovery module by the number of
// questions it contributes to overall completion.
var moduleQuestionCounts = map[string]int{
	"overview":        6,
	"leadsAndSales":   5,
	"customerService": 6,
	"operations":      6,
	"reporting":       4,
	"aiAgents":        3,
	"systems":         3,
	"roi":             2,
	"planning":        4,
}

// ModuleNames lists the discovery modules in stable order.
func ModuleNames() []string {
	names := make([]string, 0, len(moduleQuestionCounts))
	for name := range moduleQuestionCounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ModuleProgress is one module's contribution to discovery completion.
type ModuleProgress struct {
	Module   string `json:"module"`
	Answered int    `json:"answered"`
	Expected int    `json:"expected"`
}

// PhaseProgress is the completion rollup for a document's current phase.
type PhaseProgress struct {
	Phase   Phase            `json:"phase"`
	Percent int              `json:"percent"`
	Modules []ModuleProgress `json:"modules,omitempty"`
}

// hasUserInput reports whether value carries a real answer. Records and
// lists count when any nested value does.
func hasUserInput(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case map[string]any:
		for _, nested := range v {
			if hasUserInput(nested) {
				return true
			}
		}
		return false
	case []any:
		for _, nested := range v {
			if hasUserInput(nested) {
				return true
			}
		}
		return false
	default:
		return !isEmptyValue(value)
	}
}

// countAnswered counts the module's answered questions, capped at the
// module's question budget.
func countAnswered(module map[string]any, expected int) int {
	answered := 0
	for _, value := range module {
		if hasUserInput(value) {
			answered++
		}
	}
	if answered > expected {
		return expected
	}
	return answered
}

// DiscoveryProgress computes weighted discovery completion as a 0-100
// percentage, with the per-module breakdown ordered by module name.
func DiscoveryProgress(doc Document) (int, []ModuleProgress) {
	totalExpected := 0
	totalAnswered := 0
	breakdown := make([]ModuleProgress, 0, len(moduleQuestionCounts))
	for _, name := range ModuleNames() {
		expected := moduleQuestionCounts[name]
		answered := countAnswered(doc.Modules[name], expected)
		totalExpected += expected
		totalAnswered += answered
		breakdown = append(breakdown, ModuleProgress{
			Module:   name,
			Answered: answered,
			Expected: expected,
		})
	}
	if totalExpected == 0 {
		return 0, breakdown
	}
	return totalAnswered * 100 / totalExpected, breakdown
}

// Progress computes the completion rollup for the document's current phase:
// weighted module answers during discovery, the spec's own completion
// percentage during implementation_spec, done-task ratio during
// development, and a flat 100 once completed.
func Progress(doc Document) PhaseProgress {
	switch doc.Phase {
	case PhaseDiscovery:
		percent, modules := DiscoveryProgress(doc)
		return PhaseProgress{Phase: doc.Phase, Percent: percent, Modules: modules}
	case PhaseImplementationSpec:
		percent := 0
		if doc.ImplementationSpec != nil {
			percent = doc.ImplementationSpec.CompletionPercentage
		}
		return PhaseProgress{Phase: doc.Phase, Percent: clampPercent(percent)}
	case PhaseDevelopment:
		percent := 0
		if doc.DevelopmentTracking != nil && len(doc.DevelopmentTracking.Tasks) > 0 {
			done := 0
			for _, task := range doc.DevelopmentTracking.Tasks {
				if task.Status == TaskDone {
					done++
				}
			}
			percent = int(math.Round(float64(done) / float64(len(doc.DevelopmentTracking.Tasks)) * 100))
		}
		return PhaseProgress{Phase: doc.Phase, Percent: percent}
	case PhaseCompleted:
		return PhaseProgress{Phase: doc.Phase, Percent: 100}
	default:
		return PhaseProgress{Phase: doc.Phase}
	}
}

func clampPercent(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// UpdateModule merges values into a discovery module's record, returning
// the updated copy. Unknown module names are accepted; they simply do not
// count toward progress.
func UpdateModule(doc Document, module string, values map[string]any) Document {
	next := doc.Clone()
	if next.Modules == nil {
		next.Modules = map[string]map[string]any{}
	}
	record := next.Modules[module]
	if record == nil {
		record = map[string]any{}
	}
	for key, value := range values {
		record[key] = value
	}
	next.Modules[module] = record
	return next
}
