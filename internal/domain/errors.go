package domain

import (
	"fmt"
	"strings"
)

var (
	ErrNotFound         = fmt.Errorf("review not found")
	ErrDuplicateVote    = fmt.Errorf("user already voted on this review")
	ErrDisputeExists    = fmt.Errorf("a dispute has already been filed for this review")
	ErrNoOpenDispute    = fmt.Errorf("no open dispute to resolve")
	ErrSupplierMismatch = fmt.Errorf("response supplier does not own this review")
	ErrStateConflict    = fmt.Errorf("review was modified concurrently, retry")
)

// ValidationError carries every violation found in one pass; validation is
// never fail-fast.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// EligibilityError rejects a submission before creation (cooldown or rate
// limit). Reason is a human-readable message including remaining time.
type EligibilityError struct {
	Reason string
}

func (e *EligibilityError) Error() string { return "not eligible: " + e.Reason }

// TransitionError reports an illegal moderation state change.
type TransitionError struct {
	From, To ModerationState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal moderation transition %s -> %s", e.From, e.To)
}
