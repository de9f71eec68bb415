package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"reviewtrust/internal/adapters/observability"
	"reviewtrust/internal/domain"
)

type ModerationAction string

const (
	ActionApprove        ModerationAction = "approve"
	ActionReject         ModerationAction = "reject"
	ActionRequestChanges ModerationAction = "request_changes"
)

// Moderate applies a moderator decision to a review. The transition is
// validated on an in-memory copy first, then persisted conditionally on the
// state the copy was loaded in, so a concurrent decision loses cleanly.
func (s *ReviewService) Moderate(ctx context.Context, reviewID, moderatorID string, action ModerationAction, reason string) (domain.Review, error) {
	r, err := s.repo.Get(ctx, reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	prior := r.Moderation.State

	var to domain.ModerationState
	switch action {
	case ActionApprove:
		to = domain.StateApproved
		if reason == "" {
			reason = "approved by moderator"
		}
	case ActionReject:
		to = domain.StateRejected
		if reason == "" {
			reason = "rejected by moderator"
		}
	case ActionRequestChanges:
		to = domain.StateChangesRequested
		if reason == "" {
			return domain.Review{}, &domain.ValidationError{
				Violations: []string{"a reason is required when requesting changes"},
			}
		}
	default:
		return domain.Review{}, &domain.ValidationError{
			Violations: []string{fmt.Sprintf("unknown moderation action %q", action)},
		}
	}

	if err := r.Transition(to, moderatorID, reason, s.now()); err != nil {
		return domain.Review{}, err
	}
	if err := s.persistTransition(ctx, r, prior, true); err != nil {
		return domain.Review{}, err
	}

	observability.ObserveTransition(string(prior), string(to))
	log.Info().
		Str("review_id", reviewID).
		Str("moderator_id", moderatorID).
		Str("from", string(prior)).
		Str("to", string(to)).
		Msg("moderation decision")
	return r, nil
}

// FileDispute contests a pending or approved decision. At most one dispute
// per review, ever.
func (s *ReviewService) FileDispute(ctx context.Context, reviewID, by, reason string, evidence []string) (domain.Review, error) {
	if reason == "" {
		return domain.Review{}, &domain.ValidationError{Violations: []string{"a dispute reason is required"}}
	}
	r, err := s.repo.Get(ctx, reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	prior := r.Moderation.State

	if err := r.FileDispute(by, reason, evidence, s.now()); err != nil {
		return domain.Review{}, err
	}
	if err := s.persistTransition(ctx, r, prior, false); err != nil {
		return domain.Review{}, err
	}

	observability.ObserveTransition(string(prior), string(domain.StateDisputed))
	log.Info().Str("review_id", reviewID).Str("filed_by", by).Msg("dispute filed")
	return r, nil
}

// ResolveDispute closes the open dispute with an arbitrator decision.
func (s *ReviewService) ResolveDispute(ctx context.Context, reviewID, arbitratorID string, resolution domain.DisputeResolution) (domain.Review, error) {
	r, err := s.repo.Get(ctx, reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	prior := r.Moderation.State

	if err := r.ResolveDispute(resolution, arbitratorID, s.now()); err != nil {
		return domain.Review{}, err
	}
	if err := s.persistTransition(ctx, r, prior, true); err != nil {
		return domain.Review{}, err
	}

	observability.ObserveTransition(string(prior), string(r.Moderation.State))
	log.Info().
		Str("review_id", reviewID).
		Str("arbitrator_id", arbitratorID).
		Str("resolution", string(resolution)).
		Msg("dispute resolved")
	return r, nil
}

// persistTransition writes the mutated moderation/dispute sub-records with a
// conditional update on the state the record was loaded in. withAudit is
// false for dispute filing, which changes state without an audit entry.
func (s *ReviewService) persistTransition(ctx context.Context, r domain.Review, expect domain.ModerationState, withAudit bool) error {
	var entry *domain.StateChange
	if withAudit {
		entry = &r.Moderation.PreviousStates[len(r.Moderation.PreviousStates)-1]
	}
	if err := s.repo.ApplyTransition(ctx, r.ID, expect, r.Moderation, r.Dispute, entry); err != nil {
		return err
	}
	s.invalidateSupplier(ctx, r.SupplierID)
	s.invalidateQueue(ctx)
	return nil
}
