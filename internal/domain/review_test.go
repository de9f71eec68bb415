package domain_test

import (
	"errors"
	"testing"
	"time"

	"reviewtrust/internal/domain"
)

func newPending(t *testing.T) domain.Review {
	t.Helper()
	return domain.NewReview(domain.NewReviewInput{
		SupplierID: "sup-1",
		AuthorID:   "auth-1",
		Rating:     4,
		Title:      "Solid work",
		Text:       "Arrived on time and did a good job overall.",
	}, time.Now().UTC())
}

func TestValidateNewReview_CollectsAllViolations(t *testing.T) {
	verr := domain.ValidateNewReview(domain.NewReviewInput{Rating: 6, Text: "short"})
	if verr == nil {
		t.Fatal("expected validation error")
	}
	// rating range, text length, missing supplier, missing author
	if len(verr.Violations) < 2 {
		t.Fatalf("expected at least 2 violations, got %v", verr.Violations)
	}
	if len(verr.Violations) != 4 {
		t.Fatalf("expected 4 violations, got %v", verr.Violations)
	}
}

func TestValidateNewReview_Valid(t *testing.T) {
	if verr := domain.ValidateNewReview(domain.NewReviewInput{
		SupplierID: "s", AuthorID: "a", Rating: 5, Text: "long enough review text",
	}); verr != nil {
		t.Fatalf("unexpected violations: %v", verr.Violations)
	}
}

func TestValidateNewReview_MissingRating(t *testing.T) {
	verr := domain.ValidateNewReview(domain.NewReviewInput{SupplierID: "s", AuthorID: "a"})
	if verr == nil || len(verr.Violations) != 1 {
		t.Fatalf("expected exactly the rating violation, got %v", verr)
	}
}

func TestTransition_AppendsAuditTrail(t *testing.T) {
	r := newPending(t)
	now := time.Now().UTC()

	if err := r.Transition(domain.StateApproved, "mod-1", "looks fine", now); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := r.Transition(domain.StateChangesRequested, "mod-2", "tone it down", now.Add(time.Minute)); err != nil {
		t.Fatalf("request changes: %v", err)
	}

	if len(r.Moderation.PreviousStates) != 2 {
		t.Fatalf("audit trail length = %d, want 2", len(r.Moderation.PreviousStates))
	}
	if r.Moderation.PreviousStates[0].PriorState != domain.StatePending {
		t.Errorf("entry 0 prior = %s, want pending", r.Moderation.PreviousStates[0].PriorState)
	}
	if r.Moderation.PreviousStates[1].PriorState != domain.StateApproved {
		t.Errorf("entry 1 prior = %s, want approved", r.Moderation.PreviousStates[1].PriorState)
	}
	if r.Moderation.State != domain.StateChangesRequested {
		t.Errorf("state = %s, want changes_requested", r.Moderation.State)
	}
	if r.Moderation.ModeratorID == nil || *r.Moderation.ModeratorID != "mod-2" {
		t.Errorf("moderator id not updated: %v", r.Moderation.ModeratorID)
	}
}

func TestTransition_IllegalRejected(t *testing.T) {
	r := newPending(t)
	if err := r.Transition(domain.StateRejected, "mod-1", "spam", time.Now()); err != nil {
		t.Fatalf("reject: %v", err)
	}

	var terr *domain.TransitionError
	err := r.Transition(domain.StateApproved, "mod-1", "oops", time.Now())
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	// failed transition leaves the record untouched
	if r.Moderation.State != domain.StateRejected || len(r.Moderation.PreviousStates) != 1 {
		t.Fatalf("record mutated by illegal transition: %+v", r.Moderation)
	}
}

func TestAddVote_OnePerUser(t *testing.T) {
	r := newPending(t)
	now := time.Now().UTC()

	if err := r.AddVote("u1", true, now); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if err := r.AddVote("u1", true, now); !errors.Is(err, domain.ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}
	if r.Votes.Helpful != 1 || r.Votes.Unhelpful != 0 {
		t.Fatalf("counters changed by rejected vote: %+v", r.Votes)
	}

	if err := r.AddVote("u2", false, now); err != nil {
		t.Fatalf("second user: %v", err)
	}
	if r.Votes.Helpful != 1 || r.Votes.Unhelpful != 1 {
		t.Fatalf("unexpected counters: %+v", r.Votes)
	}
}

func TestSetResponse(t *testing.T) {
	r := newPending(t)
	first := time.Now().UTC()

	if err := r.SetResponse("other-supplier", "thanks for the kind words!", first); !errors.Is(err, domain.ErrSupplierMismatch) {
		t.Fatalf("expected supplier mismatch, got %v", err)
	}
	if err := r.SetResponse("sup-1", "short", first); err == nil {
		t.Fatal("expected length violation")
	}

	if err := r.SetResponse("sup-1", "thanks for the kind words!", first); err != nil {
		t.Fatalf("first response: %v", err)
	}
	later := first.Add(time.Hour)
	if err := r.SetResponse("sup-1", "updated: thanks again for the review!", later); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if !r.Response.RespondedAt.Equal(first) {
		t.Errorf("RespondedAt not preserved across edit: %v", r.Response.RespondedAt)
	}
	if !r.Response.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt not refreshed: %v", r.Response.UpdatedAt)
	}
}

func TestDisputeLifecycle(t *testing.T) {
	r := newPending(t)
	now := time.Now().UTC()

	// resolving before any dispute exists fails
	if err := r.ResolveDispute(domain.ResolutionApprove, "admin-1", now); !errors.Is(err, domain.ErrNoOpenDispute) {
		t.Fatalf("expected ErrNoOpenDispute, got %v", err)
	}

	if err := r.Transition(domain.StateApproved, "mod-1", "", now); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := r.FileDispute("sup-1", "review is factually wrong", []string{"invoice.pdf"}, now); err != nil {
		t.Fatalf("file dispute: %v", err)
	}
	if r.Moderation.State != domain.StateDisputed {
		t.Fatalf("state = %s, want disputed", r.Moderation.State)
	}

	if err := r.ResolveDispute(domain.ResolutionApprove, "admin-1", now.Add(time.Hour)); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if r.Moderation.State != domain.StateDisputeApproved {
		t.Fatalf("state = %s, want dispute_approved", r.Moderation.State)
	}
	// pending->approved and disputed->dispute_approved; filing itself does
	// not write an audit entry
	if len(r.Moderation.PreviousStates) != 2 {
		t.Fatalf("audit trail = %d entries, want 2: %+v", len(r.Moderation.PreviousStates), r.Moderation.PreviousStates)
	}
	if r.Dispute.Resolution == nil || *r.Dispute.Resolution != domain.ResolutionApprove {
		t.Fatalf("resolution not recorded: %+v", r.Dispute)
	}
}

func TestDispute_AtMostOneEver(t *testing.T) {
	r := newPending(t)
	now := time.Now().UTC()

	if err := r.FileDispute("auth-1", "unfair pending decision", nil, now); err != nil {
		t.Fatalf("file: %v", err)
	}
	if err := r.FileDispute("auth-1", "again", nil, now); !errors.Is(err, domain.ErrDisputeExists) {
		t.Fatalf("expected ErrDisputeExists, got %v", err)
	}

	if err := r.ResolveDispute(domain.ResolutionReject, "admin-1", now); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if r.Moderation.State != domain.StateDisputeRejected {
		t.Fatalf("state = %s, want dispute_rejected", r.Moderation.State)
	}

	// the dispute record survives resolution, so a second dispute is
	// impossible for the rest of the review's life
	if err := r.FileDispute("auth-1", "one more try", nil, now); !errors.Is(err, domain.ErrDisputeExists) {
		t.Fatalf("expected ErrDisputeExists after resolution, got %v", err)
	}
	// and the closed dispute cannot be resolved again
	if err := r.ResolveDispute(domain.ResolutionApprove, "admin-2", now); !errors.Is(err, domain.ErrNoOpenDispute) {
		t.Fatalf("expected ErrNoOpenDispute, got %v", err)
	}
}

func TestDispute_RemoveMapsToRejected(t *testing.T) {
	r := newPending(t)
	now := time.Now().UTC()
	if err := r.FileDispute("sup-1", "abusive content", nil, now); err != nil {
		t.Fatalf("file: %v", err)
	}
	if err := r.ResolveDispute(domain.ResolutionRemove, "admin-1", now); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if r.Moderation.State != domain.StateDisputeRejected {
		t.Fatalf("state = %s, want dispute_rejected", r.Moderation.State)
	}
}

func TestDispute_RejectedReviewCannotBeDisputed(t *testing.T) {
	r := newPending(t)
	now := time.Now().UTC()
	if err := r.Transition(domain.StateRejected, "mod-1", "spam", now); err != nil {
		t.Fatalf("reject: %v", err)
	}
	var terr *domain.TransitionError
	if err := r.FileDispute("auth-1", "why", nil, now); !errors.As(err, &terr) {
		t.Fatalf("expected TransitionError from rejected state, got %v", err)
	}
}
