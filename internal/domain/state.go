package domain

import "time"

// ModerationState is an enumerated variant, not a free-form string; illegal
// transitions are rejected before any mutation.
type ModerationState string

const (
	StatePending          ModerationState = "pending"
	StateApproved         ModerationState = "approved"
	StateRejected         ModerationState = "rejected"
	StateChangesRequested ModerationState = "changes_requested"
	StateDisputed         ModerationState = "disputed"
	StateDisputeApproved  ModerationState = "dispute_approved"
	StateDisputeRejected  ModerationState = "dispute_rejected"
)

func (s ModerationState) Valid() bool {
	switch s {
	case StatePending, StateApproved, StateRejected, StateChangesRequested,
		StateDisputed, StateDisputeApproved, StateDisputeRejected:
		return true
	}
	return false
}

// legalTransitions encodes the moderation lifecycle. dispute_approved and
// dispute_rejected are terminal.
var legalTransitions = map[ModerationState][]ModerationState{
	StatePending:  {StateApproved, StateRejected, StateChangesRequested, StateDisputed},
	StateApproved: {StateChangesRequested, StateDisputed},
	StateDisputed: {StateDisputeApproved, StateDisputeRejected},
}

func canTransition(from, to ModerationState) bool {
	for _, t := range legalTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Transition moves the review to a new moderation state. Each call appends
// exactly one audit entry recording the prior state, then overwrites the
// current state, actor and reason. The audit trail only ever grows.
func (r *Review) Transition(to ModerationState, actorID, reason string, now time.Time) error {
	if !canTransition(r.Moderation.State, to) {
		return &TransitionError{From: r.Moderation.State, To: to}
	}
	r.Moderation.PreviousStates = append(r.Moderation.PreviousStates, StateChange{
		PriorState: r.Moderation.State,
		ChangedAt:  now,
		ChangedBy:  actorID,
	})
	r.Moderation.State = to
	r.Moderation.ModeratorID = &actorID
	r.Moderation.ModeratedAt = &now
	r.Moderation.Reason = reason
	r.UpdatedAt = now
	return nil
}

// FileDispute contests a pending or approved moderation decision. At most
// one dispute is ever filed per review: the dispute record is never cleared
// on resolution, so a later changes_requested cycle cannot re-dispute.
// Filing flips the state without an audit entry; the entry for the disputed
// episode is written when the arbitrator resolves it.
func (r *Review) FileDispute(by, reason string, evidence []string, now time.Time) error {
	if r.Dispute != nil && r.Dispute.Filed {
		return ErrDisputeExists
	}
	if !canTransition(r.Moderation.State, StateDisputed) {
		return &TransitionError{From: r.Moderation.State, To: StateDisputed}
	}
	r.Moderation.State = StateDisputed
	r.Dispute = &Dispute{
		Filed:    true,
		FiledBy:  by,
		Reason:   reason,
		Evidence: evidence,
		FiledAt:  now,
	}
	r.UpdatedAt = now
	return nil
}

// ResolveDispute closes an open dispute. "approve" reinstates the review as
// dispute_approved; "reject" and "remove" both end in dispute_rejected, the
// latter signalling the caller should also hide the content.
func (r *Review) ResolveDispute(resolution DisputeResolution, arbitratorID string, now time.Time) error {
	if r.Dispute == nil || !r.Dispute.Filed || r.Dispute.Resolution != nil {
		return ErrNoOpenDispute
	}
	switch resolution {
	case ResolutionApprove, ResolutionReject, ResolutionRemove:
	default:
		return &ValidationError{Violations: []string{"resolution must be one of approve, reject, remove"}}
	}
	to := StateDisputeRejected
	if resolution == ResolutionApprove {
		to = StateDisputeApproved
	}
	if err := r.Transition(to, arbitratorID, "dispute resolved: "+string(resolution), now); err != nil {
		return err
	}
	r.Dispute.Resolution = &resolution
	r.Dispute.ResolvedAt = &now
	r.Dispute.ResolvedBy = &arbitratorID
	return nil
}
