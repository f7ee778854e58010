package store

import (
	"fmt"
	"time"

	casefile "github.com/goliatone/go-casefile"
)

// DocumentMigrations returns the migrations a FileStore needs to load case
// documents persisted by earlier revisions of the model. They run in order
// and each one is a no-op on payloads that already have the current shape.
func DocumentMigrations() []Migration {
	return []Migration{
		migratePhaseField,
		migrateStatusField,
		migratePhaseHistory,
	}
}

// migratePhaseField renames the legacy "currentPhase" key to "phase" and
// defaults missing phases to discovery.
func migratePhaseField(_ string, payload map[string]any) (map[string]any, error) {
	if _, ok := payload["phase"]; !ok {
		if legacy, ok := payload["currentPhase"]; ok {
			payload["phase"] = legacy
		} else {
			payload["phase"] = string(casefile.PhaseDiscovery)
		}
	}
	delete(payload, "currentPhase")
	return payload, nil
}

// legacyStatusAliases maps pre-rename status values to their phase-scoped
// replacements.
var legacyStatusAliases = map[string]casefile.Status{
	"in_progress":      casefile.StatusDiscoveryInProgress,
	"complete":         casefile.StatusDiscoveryComplete,
	"approved":         casefile.StatusClientApproved,
	"spec":             casefile.StatusSpecInProgress,
	"not_started":      casefile.StatusDevNotStarted,
	"testing":          casefile.StatusDevTesting,
	"ready_for_deploy": casefile.StatusDevReadyForDeployment,
}

// migrateStatusField rewrites legacy short status values and fills a missing
// status with the default for the document's phase.
func migrateStatusField(id string, payload map[string]any) (map[string]any, error) {
	phase := casefile.Phase(stringValue(payload["phase"]))
	if !phase.Valid() {
		return nil, fmt.Errorf("store: document %q has unknown phase %q", id, payload["phase"])
	}

	status := stringValue(payload["status"])
	if status == "" {
		payload["status"] = string(casefile.DefaultStatusForPhase(phase))
		return payload, nil
	}
	if replacement, ok := legacyStatusAliases[status]; ok {
		payload["status"] = string(replacement)
	}
	return payload, nil
}

// migratePhaseHistory synthesizes the bootstrap history entry for documents
// persisted before history tracking existed.
func migratePhaseHistory(_ string, payload map[string]any) (map[string]any, error) {
	if history, ok := payload["phaseHistory"].([]any); ok && len(history) > 0 {
		return payload, nil
	}

	entry := map[string]any{
		"fromPhase":      nil,
		"toPhase":        stringValue(payload["phase"]),
		"transitionedBy": "system",
		"notes":          "history backfilled on load",
	}
	if created := stringValue(payload["createdAt"]); created != "" {
		entry["timestamp"] = created
	} else {
		entry["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	}
	payload["phaseHistory"] = []any{entry}
	return payload, nil
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
