package casefile

import "errors"

// ErrFieldNotRegistered signals an operation referencing an unknown field
// id. Resolver operations degrade to "not populated / invalid" results
// instead of returning it; it surfaces only where a caller asked for the
// field entry itself.
var ErrFieldNotRegistered = errors.New("casefile: field not registered")

// ValidationError carries the rule failures from a rejected field write.
// The write does not occur and the prior value is retained.
type ValidationError struct {
	FieldID string
	Errors  []string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := "casefile: field " + e.FieldID + " failed validation"
	for _, detail := range e.Errors {
		msg += "; " + detail
	}
	return msg
}
