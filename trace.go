package casefile

import (
	"encoding/json"
	"fmt"
)

// Trace captures provenance for a logical field: what every registered
// storage location currently holds, primary source first.
type Trace struct {
	FieldID  string       `json:"fieldId"`
	Readings []Provenance `json:"readings"`
}

// Provenance details one storage location's contribution to a traced field.
type Provenance struct {
	Path    string          `json:"path"`
	Phase   CollectionPhase `json:"phase,omitempty"`
	Module  string          `json:"module,omitempty"`
	Primary bool            `json:"primary"`
	Value   any             `json:"value,omitempty"`
	Found   bool            `json:"found"`
}

// TraceField reads every storage location of a field and reports what each
// one holds. Unlike FieldValue it does not stop at the first hit, so the
// result shows exactly which duplicates agree and which are stale.
func (e *Engine) TraceField(doc Document, fieldID string) (Trace, error) {
	field, ok := e.cfg.registry.FieldByID(fieldID)
	if !ok {
		return Trace{}, fmt.Errorf("%w: %s", ErrFieldNotRegistered, fieldID)
	}

	trace := Trace{FieldID: fieldID}
	for i, location := range field.locations() {
		value, found := e.valueAt(doc, location.Path)
		trace.Readings = append(trace.Readings, Provenance{
			Path:    location.Path,
			Phase:   location.Phase,
			Module:  location.Module,
			Primary: i == 0,
			Value:   value,
			Found:   found,
		})
	}
	return trace, nil
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
