package domain

import (
	"time"

	"github.com/google/uuid"
)

type VerificationStatus string

const (
	Unverified       VerificationStatus = "unverified"
	VerifiedBooking  VerificationStatus = "verified_booking"
	VerifiedPurchase VerificationStatus = "verified_purchase"
)

type Verification struct {
	Status      VerificationStatus
	BookingDate *time.Time
	EventType   *string
	VerifiedAt  *time.Time
}

// Keyword is a sentiment-bearing word surfaced by analysis, kept on the
// record for moderator transparency.
type Keyword struct {
	Word      string
	Sentiment float64
	Frequency int
	Type      string
}

// Sentiment is derived by the analysis pipeline at creation time (and by
// backfill re-analysis); it is never user-supplied.
type Sentiment struct {
	Score      float64
	Label      string
	Keywords   []Keyword
	SpamScore  float64
	AnalyzedAt time.Time
}

// StateChange is one entry of the append-only moderation audit trail. It
// records the state a review was in *before* the transition that wrote it.
type StateChange struct {
	PriorState ModerationState
	ChangedAt  time.Time
	ChangedBy  string
}

type Moderation struct {
	State          ModerationState
	AutoApproved   bool
	ModeratorID    *string
	ModeratedAt    *time.Time
	Reason         string
	PreviousStates []StateChange
}

type SupplierResponse struct {
	SupplierID  string
	Text        string
	RespondedAt time.Time // set on first response, preserved across edits
	UpdatedAt   time.Time
}

type Votes struct {
	Helpful   int
	Unhelpful int
	Voters    map[string]bool // one vote per author id for the review's life
}

type DisputeResolution string

const (
	ResolutionApprove DisputeResolution = "approve"
	ResolutionReject  DisputeResolution = "reject"
	ResolutionRemove  DisputeResolution = "remove"
)

type Dispute struct {
	Filed      bool
	FiledBy    string
	Reason     string
	Evidence   []string
	FiledAt    time.Time
	Resolution *DisputeResolution
	ResolvedAt *time.Time
	ResolvedBy *string
}

// Review is the durable trust-layer record for one (author, supplier,
// optional booking) submission. Never physically deleted; public display
// filters on moderation state instead.
type Review struct {
	ID         string
	SupplierID string
	AuthorID   string
	BookingID  *string

	Rating int // 1..5, fixed at creation
	Title  string
	Text   string

	Verification Verification
	Sentiment    Sentiment
	Moderation   Moderation
	Response     *SupplierResponse
	Votes        Votes
	Dispute      *Dispute

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewReviewInput is caller-supplied content; everything derived (sentiment,
// moderation) is attached by the creation pipeline.
type NewReviewInput struct {
	SupplierID string
	AuthorID   string
	BookingID  *string
	Rating     int
	Title      string
	Text       string
}

// NewReview builds a pending, unverified record with zeroed vote counters.
// Construction is pure: analysis results and verification are folded in by
// the caller afterwards.
func NewReview(in NewReviewInput, now time.Time) Review {
	return Review{
		ID:           uuid.NewString(),
		SupplierID:   in.SupplierID,
		AuthorID:     in.AuthorID,
		BookingID:    in.BookingID,
		Rating:       in.Rating,
		Title:        in.Title,
		Text:         in.Text,
		Verification: Verification{Status: Unverified},
		Moderation:   Moderation{State: StatePending},
		Votes:        Votes{Voters: map[string]bool{}},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// AddVote records one helpful/unhelpful vote. A user votes at most once per
// review; a repeat attempt fails without touching the counters.
func (r *Review) AddVote(userID string, helpful bool, now time.Time) error {
	if r.Votes.Voters[userID] {
		return ErrDuplicateVote
	}
	if r.Votes.Voters == nil {
		r.Votes.Voters = map[string]bool{}
	}
	r.Votes.Voters[userID] = true
	if helpful {
		r.Votes.Helpful++
	} else {
		r.Votes.Unhelpful++
	}
	r.UpdatedAt = now
	return nil
}

// SetResponse attaches or edits the supplier rebuttal. RespondedAt survives
// edits; UpdatedAt always refreshes.
func (r *Review) SetResponse(supplierID, text string, now time.Time) error {
	if supplierID != r.SupplierID {
		return ErrSupplierMismatch
	}
	if n := len([]rune(text)); n < 10 || n > 2000 {
		return &ValidationError{Violations: []string{"response text must be between 10 and 2000 characters"}}
	}
	respondedAt := now
	if r.Response != nil {
		respondedAt = r.Response.RespondedAt
	}
	r.Response = &SupplierResponse{
		SupplierID:  supplierID,
		Text:        text,
		RespondedAt: respondedAt,
		UpdatedAt:   now,
	}
	r.UpdatedAt = now
	return nil
}
