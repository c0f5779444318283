package core

import (
	"errors"
	"fmt"
)

// Engine errors - every failure the computation engine reports wraps one of these
var (
	ErrInvalidVariable    = errors.New("invalid variable")
	ErrInsufficientData   = errors.New("insufficient data for analysis")
	ErrInsufficientItems  = fmt.Errorf("%w: scale needs at least 2 items", ErrInsufficientData)
	ErrInsufficientGroups = errors.New("insufficient groups for comparison")
	ErrConvergence        = errors.New("iterative estimation did not converge")
	ErrUnsupportedTest    = errors.New("unsupported test type")
	ErrSingularMatrix     = errors.New("singular matrix")
	ErrCapability         = errors.New("test not available for this plan")
)

// Error kinds reported to callers alongside the message
const (
	KindInvalidVariable    = "InvalidVariableError"
	KindInsufficientData   = "InsufficientDataError"
	KindInsufficientGroups = "InsufficientGroupsError"
	KindConvergence        = "ConvergenceError"
	KindUnsupportedTest    = "UnsupportedTestError"
	KindSingularMatrix     = "SingularMatrixError"
	KindCapability         = "CapabilityError"
	KindInternal           = "InternalError"
)

// Error constructors with context
func NewInvalidVariableError(name string, reason string) error {
	if reason == "" {
		return fmt.Errorf("%w: %q is not a column of the dataset", ErrInvalidVariable, name)
	}
	return fmt.Errorf("%w: %q %s", ErrInvalidVariable, name, reason)
}

func NewInsufficientDataError(test string, required, available int) error {
	return fmt.Errorf("%w: %s requires at least %d valid observations, %d available", ErrInsufficientData, test, required, available)
}

func NewInsufficientItemsError(test string, available int) error {
	return fmt.Errorf("%w (%s received %d)", ErrInsufficientItems, test, available)
}

func NewInsufficientGroupsError(test string, required, available int) error {
	return fmt.Errorf("%w: %s requires at least %d groups with 2 or more observations, %d available", ErrInsufficientGroups, test, required, available)
}

func NewConvergenceError(procedure string, iterations int) error {
	return fmt.Errorf("%w: %s stopped after %d iterations", ErrConvergence, procedure, iterations)
}

func NewUnsupportedTestError(testType string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedTest, testType)
}

func NewSingularMatrixError(context string) error {
	return fmt.Errorf("%w: %s", ErrSingularMatrix, context)
}

func NewCapabilityError(testType string) error {
	return fmt.Errorf("%w: %q requires the advanced capability", ErrCapability, testType)
}

// Error checking helpers
func IsInvalidVariableError(err error) bool {
	return errors.Is(err, ErrInvalidVariable)
}

func IsInsufficientDataError(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}

func IsInsufficientGroupsError(err error) bool {
	return errors.Is(err, ErrInsufficientGroups)
}

func IsConvergenceError(err error) bool {
	return errors.Is(err, ErrConvergence)
}

func IsUnsupportedTestError(err error) bool {
	return errors.Is(err, ErrUnsupportedTest)
}

// IsClientError reports whether err was caused by the request rather than the engine
func IsClientError(err error) bool {
	return IsInvalidVariableError(err) ||
		IsInsufficientDataError(err) ||
		IsInsufficientGroupsError(err) ||
		IsUnsupportedTestError(err) ||
		errors.Is(err, ErrSingularMatrix) ||
		errors.Is(err, ErrCapability)
}

// ErrorKind names the failure kind of err for structured error responses
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsInvalidVariableError(err):
		return KindInvalidVariable
	case IsInsufficientDataError(err):
		return KindInsufficientData
	case IsInsufficientGroupsError(err):
		return KindInsufficientGroups
	case IsConvergenceError(err):
		return KindConvergence
	case IsUnsupportedTestError(err):
		return KindUnsupportedTest
	case errors.Is(err, ErrSingularMatrix):
		return KindSingularMatrix
	case errors.Is(err, ErrCapability):
		return KindCapability
	default:
		return KindInternal
	}
}
