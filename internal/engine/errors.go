package engine

import (
	"errors"
	"fmt"
)

// SyncError represents an error detected while reconciling an entity or
// flushing the buffers.
//
// Sync errors include:
//   - Not found: the entity cannot be referenced at all
//   - Parent pending: the parent only exists inside an on-ledger proposal
//   - Submission failures: broadcast errors, quota exhaustion
//   - Already exists: the ledger rejected a proposal duplicating a pending one
//
// Structural problems (shape errors, missing fields, grading invariants)
// are not SyncErrors; they propagate as returned by their packages.
type SyncError struct {
	// Code identifies the error category.
	Code SyncErrorCode

	// Identifier names the affected entity, if any.
	Identifier string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause.
	Err error
}

// SyncErrorCode categorizes sync errors.
type SyncErrorCode string

const (
	// ErrCodeNotFound indicates no id could be resolved for the entity.
	ErrCodeNotFound SyncErrorCode = "NOT_FOUND"

	// ErrCodeParentPending indicates the parent awaits approval in an
	// on-ledger proposal and cannot be referenced yet.
	ErrCodeParentPending SyncErrorCode = "PARENT_PENDING"

	// ErrCodeSubmissionFailed indicates a broadcast failed.
	ErrCodeSubmissionFailed SyncErrorCode = "SUBMISSION_FAILED"

	// ErrCodeAlreadyExists indicates a proposed operation is already
	// pending in another proposal.
	ErrCodeAlreadyExists SyncErrorCode = "ALREADY_EXISTS"

	// ErrCodeQuotaExceeded indicates the proposal buffer is full.
	ErrCodeQuotaExceeded SyncErrorCode = "QUOTA_EXCEEDED"
)

// Error implements the error interface.
func (e *SyncError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Identifier != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Identifier)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SyncError) Unwrap() error { return e.Err }

func hasCode(err error, codes ...SyncErrorCode) bool {
	var se *SyncError
	if !errors.As(err, &se) {
		return false
	}
	for _, c := range codes {
		if se.Code == c {
			return true
		}
	}
	return false
}

// IsNotFound returns true if the entity could not be referenced, either
// because nothing matches it or because its parent is still pending.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound, ErrCodeParentPending)
}

// IsParentPending returns true if the parent awaits proposal approval.
func IsParentPending(err error) bool {
	return hasCode(err, ErrCodeParentPending)
}

// IsSubmissionError returns true for errors that fail one entity or one
// flush without invalidating the rest of the pass.
func IsSubmissionError(err error) bool {
	return hasCode(err, ErrCodeSubmissionFailed, ErrCodeAlreadyExists, ErrCodeQuotaExceeded)
}

// IsAlreadyExists returns true if the ledger reported a duplicate of a
// pending proposal.
func IsAlreadyExists(err error) bool {
	return hasCode(err, ErrCodeAlreadyExists)
}

// IsQuotaError returns true if the proposal quota was exhausted.
func IsQuotaError(err error) bool {
	return hasCode(err, ErrCodeQuotaExceeded)
}

// NewNotFoundError creates a SyncError for an entity without any id.
func NewNotFoundError(identifier string) *SyncError {
	return &SyncError{
		Code:       ErrCodeNotFound,
		Identifier: identifier,
		Message:    "object not found on the ledger, in pending proposals or in the buffer",
	}
}

// NewParentPendingError creates a SyncError for a parent that only exists
// in an on-ledger proposal.
func NewParentPendingError(identifier string) *SyncError {
	return &SyncError{
		Code:       ErrCodeParentPending,
		Identifier: identifier,
		Message:    "object is pending approval and cannot be referenced yet",
	}
}

// NewSubmissionError wraps a broadcast failure.
func NewSubmissionError(buffer string, err error) *SyncError {
	return &SyncError{
		Code:    ErrCodeSubmissionFailed,
		Message: fmt.Sprintf("broadcast of %s buffer failed", buffer),
		Err:     err,
	}
}
