package services

import (
	"errors"
	"fmt"
)

// ErrTreeTooDeep is returned when a production tree exceeds MaxTreeDepth,
// which only happens on malformed (cyclic) builder output.
var ErrTreeTooDeep = errors.New("production tree exceeds maximum depth")

// ValidationError reports malformed input the user can fix.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// DuplicateContributionError means the member already holds a pending or
// approved claim on the same line with the same contribution type.
type DuplicateContributionError struct {
	MemberID  uint
	BomItemID uint
	Type      string
}

func (e *DuplicateContributionError) Error() string {
	return fmt.Sprintf("contribution already submitted, awaiting review (member %d, bom item %d, type %s)",
		e.MemberID, e.BomItemID, e.Type)
}

// InvalidStateTransitionError is returned when a review hits a contribution
// (or an invitation) that is no longer pending.
type InvalidStateTransitionError struct {
	Entity string
	ID     uint
	From   string
	To     string
}

func (e *InvalidStateTransitionError) Error() string {
	entity := e.Entity
	if entity == "" {
		entity = "contribution"
	}
	return fmt.Sprintf("%s %d cannot move from %s to %s", entity, e.ID, e.From, e.To)
}

// UpstreamUnavailableError wraps a failure of the tree builder or pricing service.
type UpstreamUnavailableError struct {
	Service string
	Err     error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsDuplicateContribution reports whether err is, or wraps, a DuplicateContributionError.
func IsDuplicateContribution(err error) bool {
	var target *DuplicateContributionError
	return errors.As(err, &target)
}

// IsInvalidStateTransition reports whether err is, or wraps, an InvalidStateTransitionError.
func IsInvalidStateTransition(err error) bool {
	var target *InvalidStateTransitionError
	return errors.As(err, &target)
}

// IsUpstreamUnavailable reports whether err is, or wraps, an UpstreamUnavailableError.
func IsUpstreamUnavailable(err error) bool {
	var target *UpstreamUnavailableError
	return errors.As(err, &target)
}
