package runner

import (
	"fmt"
)

// ErrorKind classifies a module failure during a processing run.
type ErrorKind string

const (
	KindConfig       ErrorKind = "config"
	KindMissingInput ErrorKind = "missing_input"
	KindExecution    ErrorKind = "execution"
	KindCancelled    ErrorKind = "cancelled"
)

// RunError wraps a module failure with its classification so the caller can
// distinguish bad flight constants from genuine processing faults.
type RunError struct {
	Kind    ErrorKind
	Module  string
	Message string
	Cause   error
}

func (e *RunError) Error() string {
	if e.Module != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Module, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *RunError) Unwrap() error {
	return e.Cause
}

// NewConfigError reports invalid or missing flight constants.
func NewConfigError(module, message string) *RunError {
	return &RunError{Kind: KindConfig, Module: module, Message: message}
}

// NewMissingInputError reports an input variable the dataset never produced.
func NewMissingInputError(module, input string) *RunError {
	return &RunError{
		Kind:    KindMissingInput,
		Module:  module,
		Message: "input not available: " + input,
	}
}

// NewExecutionError reports a failure inside a module's processing step.
func NewExecutionError(module string, cause error) *RunError {
	return &RunError{
		Kind:    KindExecution,
		Module:  module,
		Message: "module execution failed",
		Cause:   cause,
	}
}
