package domain

import (
	"context"
	"time"
)

type PageQuery struct {
	Limit  int
	Offset int
}

type ReviewsPage struct {
	Items []Review
	Total int
}

// ReviewRepository is the persistence collaborator. Mutating methods must be
// atomic per record: AddVote dedupes on (review, voter) and ApplyTransition
// is a conditional write on the expected current state, so concurrent
// writers cannot double-count votes or race a transition.
type ReviewRepository interface {
	// Write paths
	Insert(ctx context.Context, r Review) error
	AddVote(ctx context.Context, reviewID, voterID string, helpful bool) error
	SetResponse(ctx context.Context, reviewID string, resp SupplierResponse) error
	ApplyTransition(ctx context.Context, reviewID string, expect ModerationState, m Moderation, d *Dispute, entry *StateChange) error
	UpdateSentiment(ctx context.Context, reviewID string, s Sentiment) error

	// Read paths
	Get(ctx context.Context, id string) (Review, error)
	ListBySupplier(ctx context.Context, supplierID string, onlyApproved bool, pg PageQuery) (ReviewsPage, error)
	ListForModeration(ctx context.Context, limit int) ([]Review, error)
	List(ctx context.Context, pg PageQuery) ([]Review, error)
	LastReviewAt(ctx context.Context, authorID, supplierID string) (*time.Time, error)
	CountByAuthorSince(ctx context.Context, authorID string, since time.Time) (int, error)
}

// EngagementChecker resolves whether an (author, supplier) pair has an
// existing engagement backing a booking id.
type EngagementChecker interface {
	HasEngagement(ctx context.Context, authorID, supplierID, bookingID string) (bool, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
