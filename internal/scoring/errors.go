package scoring

import (
	"errors"
	"fmt"
)

var (
	ErrConfigurationInconsistent = errors.New("configuration inconsistent")
	ErrCoercion                  = errors.New("coercion error")
	ErrNotAuthorized             = errors.New("not authorized")
	ErrNoteRequired              = errors.New("note required for red classification")
)

// Field names used in coercion errors.
const (
	FieldActual          = "actualValue"
	FieldTarget          = "targetValue"
	FieldThresholdRed    = "thresholdRed"
	FieldThresholdYellow = "thresholdYellow"
)

// CoercionError reports a value that could not be parsed for its field.
type CoercionError struct {
	Field string
	Value string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("%s: %s %q is not a valid number", ErrCoercion, e.Field, e.Value)
}

func (e *CoercionError) Unwrap() error { return ErrCoercion }

// Reason maps an ingestion error to a stable tag for reports.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfigurationInconsistent):
		return "configuration_inconsistent"
	case errors.Is(err, ErrCoercion):
		return "coercion_error"
	case errors.Is(err, ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, ErrNoteRequired):
		return "note_required"
	default:
		return "internal"
	}
}
