package domain

import (
	"errors"
	"fmt"
)

var (
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrRunNotFound      = errors.New("no running backup")
)

// ValidationError is a rejected schedule definition or query parameter.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// TriggerError means a syntactically valid trigger has no future run.
type TriggerError struct {
	Expression string
	Message    string
}

func (e *TriggerError) Error() string {
	return fmt.Sprintf("trigger %q: %s", e.Expression, e.Message)
}

// CollaboratorError is a run-level failure of the file source or storage.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsTriggerError(err error) bool {
	var t *TriggerError
	return errors.As(err, &t)
}
