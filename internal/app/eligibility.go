package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"reviewtrust/internal/domain"
)

const (
	cooldownPeriod  = 30 * 24 * time.Hour
	rateLimitWindow = time.Hour
	rateLimitMax    = 5
)

// Eligibility is the successful gate outcome.
type Eligibility struct {
	Eligible        bool
	BookingVerified bool
	ReviewDeadline  time.Time
}

// CheckEligibility enforces the per-author cooldown and rate limit, then
// verifies the booking when one is supplied. Rules apply in that order; the
// first failure wins. The checks read recent history and are advisory under
// concurrent bursts (the submission limiter covers that hole in-process).
func (s *ReviewService) CheckEligibility(ctx context.Context, authorID, supplierID, bookingID string) (Eligibility, error) {
	now := s.now()

	last, err := s.repo.LastReviewAt(ctx, authorID, supplierID)
	if err != nil {
		return Eligibility{}, err
	}
	if last != nil {
		if elapsed := now.Sub(*last); elapsed < cooldownPeriod {
			days := int(math.Ceil((cooldownPeriod - elapsed).Hours() / 24))
			return Eligibility{}, &domain.EligibilityError{
				Reason: fmt.Sprintf("you already reviewed this supplier; you can review again in %d day(s)", days),
			}
		}
	}

	n, err := s.repo.CountByAuthorSince(ctx, authorID, now.Add(-rateLimitWindow))
	if err != nil {
		return Eligibility{}, err
	}
	if n >= rateLimitMax {
		return Eligibility{}, &domain.EligibilityError{
			Reason: fmt.Sprintf("rate limit of %d reviews per hour reached; please try again later", rateLimitMax),
		}
	}

	elig := Eligibility{Eligible: true, ReviewDeadline: now.Add(cooldownPeriod)}
	if bookingID != "" {
		ok, err := s.engagements.HasEngagement(ctx, authorID, supplierID, bookingID)
		if err != nil {
			return Eligibility{}, err
		}
		elig.BookingVerified = ok
	}
	return elig, nil
}
