package app

import (
	"context"
	"encoding/json"
	"sort"

	"reviewtrust/internal/domain"
)

// Queue sort modes.
const (
	QueueSortDate      = "date"
	QueueSortSentiment = "sentiment"
	QueueSortPriority  = "priority"
)

// queueScanLimit bounds how many pending/disputed candidates one queue read
// pulls before ranking; pagination happens on the ranked slice.
const queueScanLimit = 500

func (s *ReviewService) GetReview(ctx context.Context, id string) (domain.Review, error) {
	return s.repo.Get(ctx, id)
}

// ListSupplierReviews returns a supplier's reviews, approved-only by default
// (gating, not deletion: other states exist but are not publicly listed).
// Cache-aside with explicit invalidation on every mutation.
func (s *ReviewService) ListSupplierReviews(ctx context.Context, supplierID string, approvedOnly bool, pg domain.PageQuery) (domain.ReviewsPage, error) {
	if pg.Limit <= 0 {
		pg.Limit = 20
	}
	key := supplierReviewsKey(supplierID, approvedOnly, pg.Limit, pg.Offset)

	var out domain.ReviewsPage
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &out); ok {
			return out, nil
		}
	}

	page, err := s.repo.ListBySupplier(ctx, supplierID, approvedOnly, pg)
	if err != nil {
		return domain.ReviewsPage{}, err
	}

	// copy before caching so callers can't mutate the cached value
	cp := deepCopyPage(page)
	if s.cache != nil {
		if b, _ := json.Marshal(cp); len(b) < 1_000_000 {
			_ = s.cache.Set(ctx, key, cp, int(s.cacheTTL.Seconds()))
		}
	}
	return cp, nil
}

// GetModerationQueue returns pending and disputed reviews ranked for human
// reviewers. Sort modes: date (oldest first), sentiment (most negative
// first), priority (disputes, then very negative, then spammy).
func (s *ReviewService) GetModerationQueue(ctx context.Context, sortBy string, pg domain.PageQuery) ([]domain.Review, error) {
	switch sortBy {
	case QueueSortDate, QueueSortSentiment, QueueSortPriority:
	case "":
		sortBy = QueueSortDate
	default:
		return nil, &domain.ValidationError{
			Violations: []string{"sort must be one of date, sentiment, priority"},
		}
	}
	if pg.Limit <= 0 {
		pg.Limit = 20
	}
	key := queueKey(sortBy, pg.Limit, pg.Offset)

	var cached []domain.Review
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &cached); ok {
			return cached, nil
		}
	}

	items, err := s.repo.ListForModeration(ctx, queueScanLimit)
	if err != nil {
		return nil, err
	}
	rankQueue(items, sortBy)

	lo := pg.Offset
	if lo > len(items) {
		lo = len(items)
	}
	hi := lo + pg.Limit
	if hi > len(items) {
		hi = len(items)
	}
	window := make([]domain.Review, hi-lo)
	copy(window, items[lo:hi])

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, window, int(s.cacheTTL.Seconds()))
	}
	return window, nil
}

func rankQueue(items []domain.Review, sortBy string) {
	switch sortBy {
	case QueueSortSentiment:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Sentiment.Score < items[j].Sentiment.Score
		})
	case QueueSortPriority:
		sort.SliceStable(items, func(i, j int) bool {
			pi, pj := queuePriority(items[i]), queuePriority(items[j])
			if pi != pj {
				return pi > pj
			}
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		})
	default: // date: FIFO fairness
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		})
	}
}

// queuePriority: disputes outrank everything, then strongly negative
// sentiment, then likely spam.
func queuePriority(r domain.Review) int {
	p := 0
	if r.Moderation.State == domain.StateDisputed {
		p += 100
	}
	if r.Sentiment.Score < -0.5 {
		p += 50
	}
	if r.Sentiment.SpamScore > 0.5 {
		p += 25
	}
	return p
}

func deepCopyPage(in domain.ReviewsPage) domain.ReviewsPage {
	out := domain.ReviewsPage{Total: in.Total}
	if n := len(in.Items); n > 0 {
		out.Items = make([]domain.Review, n)
		copy(out.Items, in.Items)
	}
	return out
}
