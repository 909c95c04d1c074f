package pipeline

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes pipeline errors.
type ErrorCode string

const (
	// ErrCodeMissingOrderID indicates a trigger without an order id.
	ErrCodeMissingOrderID ErrorCode = "MISSING_ORDER_ID"

	// ErrCodePrecondition indicates an order the job must not touch: not
	// found, not a group order, or not in the picking state.
	ErrCodePrecondition ErrorCode = "PRECONDITION"

	// ErrCodeLoadFailed indicates the order, plan or related entities could
	// not be read or decoded.
	ErrCodeLoadFailed ErrorCode = "LOAD_FAILED"

	// ErrCodeCommitFailed indicates the resolved order detail could not be
	// written back to the plan.
	ErrCodeCommitFailed ErrorCode = "COMMIT_FAILED"
)

// Error is a pipeline failure with the order it concerns.
type Error struct {
	Code    ErrorCode
	Message string
	OrderID string
	PlanID  string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.OrderID != "" && e.PlanID != "":
		msg += fmt.Sprintf(" (order=%s, plan=%s)", e.OrderID, e.PlanID)
	case e.OrderID != "":
		msg += fmt.Sprintf(" (order=%s)", e.OrderID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsPreconditionError returns true for errors that make a run a no-op:
// missing order id or an order outside the picking phase.
// Uses errors.As to handle wrapped errors.
func IsPreconditionError(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == ErrCodePrecondition || pe.Code == ErrCodeMissingOrderID
	}
	return false
}

// IsCommitError returns true if the order detail write failed.
func IsCommitError(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeCommitFailed
	}
	return false
}

// IsLoadError returns true if reading the order data failed.
func IsLoadError(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeLoadFailed
	}
	return false
}
