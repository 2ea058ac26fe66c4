package table

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument matches every *InvalidArgumentError via errors.Is.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrTransformNotApplicable reports that a transform cannot run on the
// column's value type. Callers may recover from it.
var ErrTransformNotApplicable = errors.New("transform not applicable")

// InvalidArgumentError is returned when a caller-supplied column name, role or
// numeric argument is invalid. Stage names the validation step that failed.
type InvalidArgumentError struct {
	Op     string
	Stage  string
	Name   string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	msg := e.Op
	if e.Stage != "" {
		msg += " [" + e.Stage + "]"
	}
	if e.Name != "" {
		msg += fmt.Sprintf(": %q", e.Name)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Is lets errors.Is(err, ErrInvalidArgument) match.
func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// Invalid builds an *InvalidArgumentError.
func Invalid(op, stage, name, reason string) *InvalidArgumentError {
	return &InvalidArgumentError{Op: op, Stage: stage, Name: name, Reason: reason}
}

// NotApplicable wraps ErrTransformNotApplicable with the column and reason.
func NotApplicable(column, reason string) error {
	return fmt.Errorf("%w: column %q: %s", ErrTransformNotApplicable, column, reason)
}
