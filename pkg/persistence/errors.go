package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrTestCaseNotFound indicates no test case exists for the given identifier.
	ErrTestCaseNotFound = errors.New("test case not found")

	// ErrExecutionResultNotFound indicates no stored result exists for the given execution.
	ErrExecutionResultNotFound = errors.New("execution result not found")

	// ErrInvalidID indicates an identifier that cannot be used as a storage key.
	ErrInvalidID = errors.New("invalid identifier")
)

// TestCaseError wraps test case errors with the operation and identifier.
type TestCaseError struct {
	Op         string
	TestCaseID string
	Err        error
}

func (e *TestCaseError) Error() string {
	return fmt.Sprintf("%s operation failed for test case %s: %v", e.Op, e.TestCaseID, e.Err)
}

func (e *TestCaseError) Unwrap() error {
	return e.Err
}

func (e *TestCaseError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewTestCaseError(op, testCaseID string, err error) *TestCaseError {
	return &TestCaseError{Op: op, TestCaseID: testCaseID, Err: err}
}

// ExecutionResultError wraps execution result errors with the operation and identifier.
type ExecutionResultError struct {
	Op          string
	ExecutionID string
	Err         error
}

func (e *ExecutionResultError) Error() string {
	return fmt.Sprintf("%s operation failed for execution %s: %v", e.Op, e.ExecutionID, e.Err)
}

func (e *ExecutionResultError) Unwrap() error {
	return e.Err
}

func (e *ExecutionResultError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewExecutionResultError(op, executionID string, err error) *ExecutionResultError {
	return &ExecutionResultError{Op: op, ExecutionID: executionID, Err: err}
}

// IsTestCaseNotFound checks if an error indicates a test case was not found.
func IsTestCaseNotFound(err error) bool {
	return errors.Is(err, ErrTestCaseNotFound)
}

// IsExecutionResultNotFound checks if an error indicates an execution result was not found.
func IsExecutionResultNotFound(err error) bool {
	return errors.Is(err, ErrExecutionResultNotFound)
}
