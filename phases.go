package casefile

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SystemActor attributes system-initiated changes when no actor is given.
const SystemActor = "system"

// ErrTransitionDenied is the base error for rejected phase transitions.
// Rejections carry a *TransitionError that unwraps to this sentinel.
var ErrTransitionDenied = errors.New("casefile: phase transition denied")

// ErrInvalidStatus signals a status update with a value outside the
// document's current phase.
var ErrInvalidStatus = errors.New("casefile: status not valid for phase")

// Transition denial reason codes. Prerequisite failures use the
// ReasonPrerequisiteNotMet prefix followed by ":" and a detail string.
const (
	ReasonSamePhase          = "same_phase"
	ReasonBackward           = "backward"
	ReasonSkip               = "skip"
	ReasonUnknownPhase       = "unknown_phase"
	ReasonPrerequisiteNotMet = "prerequisite_not_met"
)

// specReadyThresholdPercent gates the move into development.
const specReadyThresholdPercent = 90

// TransitionError reports why a phase transition was rejected.
type TransitionError struct {
	From   Phase
	To     Phase
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("casefile: transition %s -> %s denied: %s", e.From, e.To, e.Reason)
}

func (e *TransitionError) Unwrap() error { return ErrTransitionDenied }

// TransitionCheck is the outcome of a transition feasibility query.
type TransitionCheck struct {
	Allowed bool
	Reason  string
}

// CheckTransition reports whether the document may move to target, and the
// reason code when it may not. It never mutates the document.
//
// Only the immediate next phase is reachable. Prerequisites are
// phase-specific:
//
//   - discovery -> implementation_spec: status must be client_approved
//   - implementation_spec -> development: spec completion >= 90%
//   - development -> completed: a non-empty task list, all tasks done
func CheckTransition(doc Document, target Phase) TransitionCheck {
	from, to := doc.Phase.order(), target.order()
	switch {
	case to < 0:
		return TransitionCheck{Reason: ReasonUnknownPhase}
	case to == from:
		return TransitionCheck{Reason: ReasonSamePhase}
	case to < from:
		return TransitionCheck{Reason: ReasonBackward}
	case to > from+1:
		return TransitionCheck{Reason: ReasonSkip}
	}

	if detail := prerequisiteFailure(doc, target); detail != "" {
		return TransitionCheck{Reason: ReasonPrerequisiteNotMet + ":" + detail}
	}
	return TransitionCheck{Allowed: true}
}

// CanTransitionTo reports whether the document may move to target.
func CanTransitionTo(doc Document, target Phase) bool {
	return CheckTransition(doc, target).Allowed
}

// prerequisiteFailure returns a human-readable detail when the entry
// prerequisite for target is unmet, or "" when satisfied.
func prerequisiteFailure(doc Document, target Phase) string {
	switch target {
	case PhaseImplementationSpec:
		// Client approval is the only gate: module completion levels do
		// not block the move.
		if doc.Status != StatusClientApproved {
			return fmt.Sprintf("status must be %s, got %s", StatusClientApproved, doc.Status)
		}
	case PhaseDevelopment:
		pct := 0
		if doc.ImplementationSpec != nil {
			pct = doc.ImplementationSpec.CompletionPercentage
		}
		if pct < specReadyThresholdPercent {
			return fmt.Sprintf("implementation spec %d%% complete, need %d%%", pct, specReadyThresholdPercent)
		}
	case PhaseCompleted:
		if doc.DevelopmentTracking == nil || len(doc.DevelopmentTracking.Tasks) == 0 {
			return "no development tasks recorded"
		}
		var open []string
		for _, task := range doc.DevelopmentTracking.Tasks {
			if task.Status != TaskDone {
				open = append(open, task.ID)
			}
		}
		if len(open) > 0 {
			return fmt.Sprintf("tasks not done: %s", strings.Join(open, ", "))
		}
	}
	return ""
}

// TransitionPhase moves the document to target, stamps the phase's default
// status, and appends an audit entry. The input document is never mutated:
// on success the returned document carries all three changes, on denial the
// error unwraps to ErrTransitionDenied and the input is returned unchanged.
//
// An empty actor is recorded as SystemActor.
func TransitionPhase(doc Document, target Phase, actor, notes string) (Document, error) {
	check := CheckTransition(doc, target)
	if !check.Allowed {
		return doc, &TransitionError{From: doc.Phase, To: target, Reason: check.Reason}
	}
	if actor == "" {
		actor = SystemActor
	}

	next := doc.Clone()
	from := doc.Phase
	next.Phase = target
	next.Status = DefaultStatusForPhase(target)
	next.PhaseHistory = append(next.PhaseHistory, PhaseTransition{
		FromPhase:      &from,
		ToPhase:        target,
		Timestamp:      time.Now(),
		TransitionedBy: actor,
		Notes:          notes,
	})
	return next, nil
}

// UpdatePhaseStatus sets a new status within the document's current phase.
// Statuses belonging to another phase are rejected with ErrInvalidStatus.
// Status changes do not append to the phase history.
func UpdatePhaseStatus(doc Document, status Status) (Document, error) {
	valid := false
	for _, s := range statusesByPhase[doc.Phase] {
		if s == status {
			valid = true
			break
		}
	}
	if !valid {
		return doc, fmt.Errorf("%w: %s in phase %s", ErrInvalidStatus, status, doc.Phase)
	}

	next := doc.Clone()
	next.Status = status
	return next, nil
}

// NextPhase returns the phase after current, or "" when current is terminal
// or unknown.
func NextPhase(current Phase) Phase {
	i := current.order()
	if i < 0 || i+1 >= len(phaseOrder) {
		return ""
	}
	return phaseOrder[i+1]
}
