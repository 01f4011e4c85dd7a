package domain

import (
	"errors"
	"fmt"
)

// Lifecycle error taxonomy. Callers match with errors.Is.
var (
	ErrValidation          = errors.New("validation failed")
	ErrUnauthorized        = errors.New("authentication required")
	ErrForbidden           = errors.New("access forbidden")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrPartialRegistration = errors.New("partial registration")
	ErrRoleSyncFailure     = errors.New("role sync failure")
	ErrCoachCreationFailed = errors.New("coach creation failed")
	ErrUnavailable         = errors.New("store unavailable")
)

// Conflict reasons. A *ConflictError unwraps to one of these.
var (
	ErrAlreadyApproved = errors.New("lead already approved")
	ErrNotALead        = errors.New("not a lead")
	ErrTargetNotLead   = errors.New("target is not a lead")
	ErrEmailTaken      = errors.New("email already registered")
	ErrNoProfile       = errors.New("target has no profile")
	ErrWrongState      = errors.New("target in wrong state")
)

// Store-level errors returned by identity and profile store adapters. They never
// leave the lifecycle engine unclassified.
var (
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrIdentityExists     = errors.New("identity already exists")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrProfileExists      = errors.New("profile already exists")
	ErrProfileStale       = errors.New("profile changed concurrently")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError describes malformed caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + " " + e.Reason
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConflictError is a request that cannot apply to the target's current state.
// Callers should treat it as a no-op rather than retry.
type ConflictError struct {
	Reason error
}

// NewConflict wraps a conflict reason.
func NewConflict(reason error) *ConflictError {
	return &ConflictError{Reason: reason}
}

func (e *ConflictError) Error() string { return "conflict: " + e.Reason.Error() }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func (e *ConflictError) Unwrap() error { return e.Reason }

// Store names one side of a dual write.
type Store string

const (
	StoreIdentity Store = "identity"
	StoreProfile  Store = "profile"
)

// SyncError reports a transition in which one store was written and its pair was not.
// Kind is one of ErrPartialRegistration, ErrRoleSyncFailure or ErrCoachCreationFailed.
// Cause and CompensationErr are kept for internal logs; Unwrap exposes only Kind.
type SyncError struct {
	Kind            error
	Transition      Transition
	ID              string
	Succeeded       Store
	Failed          Store
	Detail          string
	Compensated     bool
	Cause           error
	CompensationErr error
}

func (e *SyncError) Error() string {
	msg := fmt.Sprintf("%s: %s %s: %s store written, %s store failed",
		e.Kind, e.Transition, e.ID, e.Succeeded, e.Failed)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Compensated {
		msg += "; compensated"
	}
	return msg
}

func (e *SyncError) Unwrap() error { return e.Kind }

// IsPartialFailure reports whether err is one of the dual-write failure classes.
func IsPartialFailure(err error) bool {
	var se *SyncError
	return errors.As(err, &se)
}
