package services

import "fmt"

// ValidationError reports malformed or missing caller input. No state was
// changed.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an unknown request or task id.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func notFoundErrorf(format string, args ...interface{}) error {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// InvalidStateError reports an operation that is not legal in the record's
// current workflow state, such as deciding an already-decided task.
type InvalidStateError struct {
	Message string
}

func (e *InvalidStateError) Error() string {
	return e.Message
}

func invalidStateErrorf(format string, args ...interface{}) error {
	return &InvalidStateError{Message: fmt.Sprintf(format, args...)}
}

// UnsupportedStepError indicates a task whose step code has no decision
// handler. It points at a data or logic inconsistency rather than bad input.
type UnsupportedStepError struct {
	StepCode string
}

func (e *UnsupportedStepError) Error() string {
	return fmt.Sprintf("unsupported task step: %s", e.StepCode)
}
