package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"reviewtrust/internal/adapters/observability"
	"reviewtrust/internal/analysis"
	"reviewtrust/internal/domain"
)

const (
	// autoApproveMinSentiment: below this score a verified review still
	// goes to a human.
	autoApproveMinSentiment = -0.3

	defaultCacheTTLSec = 300
)

// ReviewService orchestrates the trust pipeline: validation, eligibility,
// analysis, auto-approval and every later lifecycle mutation. Actor ids are
// trusted as supplied; authorization happens upstream.
type ReviewService struct {
	repo        domain.ReviewRepository
	engagements domain.EngagementChecker
	analyzer    *analysis.Analyzer
	spam        *analysis.SpamDetector
	cache       domain.Cache
	limiter     *SubmitLimiter
	cacheTTL    time.Duration
	now         func() time.Time
}

func NewReviewService(
	repo domain.ReviewRepository,
	engagements domain.EngagementChecker,
	analyzer *analysis.Analyzer,
	spam *analysis.SpamDetector,
	cache domain.Cache,
	limiter *SubmitLimiter,
	cacheTTL time.Duration,
) *ReviewService {
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTLSec * time.Second
	}
	return &ReviewService{
		repo:        repo,
		engagements: engagements,
		analyzer:    analyzer,
		spam:        spam,
		cache:       cache,
		limiter:     limiter,
		cacheTTL:    cacheTTL,
		now:         time.Now,
	}
}

type SentimentSummary struct {
	Score     float64
	Label     string
	SpamScore float64
}

type CreateReviewResult struct {
	ReviewID     string
	Status       domain.ModerationState
	AutoApproved bool
	Sentiment    SentimentSummary
	Message      string
}

// CreateReview runs the full creation pipeline. Validation failures surface
// every violation at once; eligibility failures carry a remaining-time
// message. Analysis is best-effort enrichment and cannot fail creation.
func (s *ReviewService) CreateReview(ctx context.Context, in domain.NewReviewInput) (CreateReviewResult, error) {
	if verr := domain.ValidateNewReview(in); verr != nil {
		return CreateReviewResult{}, verr
	}

	if s.limiter != nil && !s.limiter.Allow(in.AuthorID) {
		return CreateReviewResult{}, &domain.EligibilityError{
			Reason: "submitting too quickly; please try again later",
		}
	}

	bookingID := ""
	if in.BookingID != nil {
		bookingID = *in.BookingID
	}
	elig, err := s.CheckEligibility(ctx, in.AuthorID, in.SupplierID, bookingID)
	if err != nil {
		return CreateReviewResult{}, err
	}

	now := s.now()
	res := analysis.Analyze(s.analyzer, s.spam, in.Title+" "+in.Text, now)

	r := domain.NewReview(in, now)
	r.Sentiment = domain.Sentiment{
		Score:      res.Sentiment.Score,
		Label:      res.Sentiment.Label,
		Keywords:   mapKeywords(res.Keywords),
		SpamScore:  res.Spam.SpamScore,
		AnalyzedAt: res.AnalyzedAt,
	}
	if in.BookingID != nil && elig.BookingVerified {
		r.Verification = domain.Verification{
			Status:     domain.VerifiedBooking,
			VerifiedAt: &now,
		}
	}

	msg := "review submitted and awaiting moderation"
	if r.Verification.Status == domain.VerifiedBooking && !res.Spam.IsSpam &&
		res.Sentiment.Score >= autoApproveMinSentiment {
		system := "system"
		r.Moderation = domain.Moderation{
			State:        domain.StateApproved,
			AutoApproved: true,
			ModeratorID:  &system,
			ModeratedAt:  &now,
			Reason:       "auto-approved: verified booking, no spam indicators, acceptable sentiment",
		}
		msg = "review published"
	} else if res.Spam.IsSpam {
		r.Moderation.Reason = fmt.Sprintf("pending review: spam indicators detected (%v)", res.Spam.Indicators)
	} else {
		r.Moderation.Reason = "pending review: awaiting moderation"
	}

	if err := s.repo.Insert(ctx, r); err != nil {
		return CreateReviewResult{}, err
	}
	s.invalidateSupplier(ctx, r.SupplierID)
	s.invalidateQueue(ctx)

	observability.ObserveReviewCreated(string(r.Moderation.State), r.Moderation.AutoApproved)
	if res.Spam.IsSpam {
		observability.SpamFlagged.Inc()
	}

	log.Info().
		Str("review_id", r.ID).
		Str("supplier_id", r.SupplierID).
		Str("state", string(r.Moderation.State)).
		Bool("auto_approved", r.Moderation.AutoApproved).
		Float64("sentiment", r.Sentiment.Score).
		Float64("spam_score", r.Sentiment.SpamScore).
		Msg("review created")

	return CreateReviewResult{
		ReviewID:     r.ID,
		Status:       r.Moderation.State,
		AutoApproved: r.Moderation.AutoApproved,
		Sentiment: SentimentSummary{
			Score:     r.Sentiment.Score,
			Label:     r.Sentiment.Label,
			SpamScore: r.Sentiment.SpamScore,
		},
		Message: msg,
	}, nil
}

// VoteOnReview records one helpful/unhelpful vote. The repository enforces
// one vote per user atomically.
func (s *ReviewService) VoteOnReview(ctx context.Context, reviewID, userID string, helpful bool) error {
	if err := s.repo.AddVote(ctx, reviewID, userID, helpful); err != nil {
		return err
	}
	if r, err := s.repo.Get(ctx, reviewID); err == nil {
		s.invalidateSupplier(ctx, r.SupplierID)
	}
	return nil
}

// AddSupplierResponse attaches or edits the supplier rebuttal.
func (s *ReviewService) AddSupplierResponse(ctx context.Context, reviewID, supplierID, text string) (domain.Review, error) {
	r, err := s.repo.Get(ctx, reviewID)
	if err != nil {
		return domain.Review{}, err
	}
	if err := r.SetResponse(supplierID, text, s.now()); err != nil {
		return domain.Review{}, err
	}
	if err := s.repo.SetResponse(ctx, reviewID, *r.Response); err != nil {
		return domain.Review{}, err
	}
	s.invalidateSupplier(ctx, r.SupplierID)
	return r, nil
}

func mapKeywords(in []analysis.Keyword) []domain.Keyword {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Keyword, len(in))
	for i, k := range in {
		out[i] = domain.Keyword{Word: k.Word, Sentiment: k.Sentiment, Frequency: k.Frequency, Type: k.Type}
	}
	return out
}

// invalidate the most common listing cache variants
func (s *ReviewService) invalidateSupplier(ctx context.Context, supplierID string) {
	if s.cache == nil {
		return
	}
	for _, approved := range []bool{true, false} {
		for _, lim := range []int{20, 50} {
			_ = s.cache.Del(ctx, supplierReviewsKey(supplierID, approved, lim, 0))
		}
	}
}

func (s *ReviewService) invalidateQueue(ctx context.Context) {
	if s.cache == nil {
		return
	}
	for _, sort := range []string{QueueSortDate, QueueSortSentiment, QueueSortPriority} {
		for _, lim := range []int{20, 50} {
			_ = s.cache.Del(ctx, queueKey(sort, lim, 0))
		}
	}
}

func supplierReviewsKey(supplierID string, approvedOnly bool, limit, offset int) string {
	return fmt.Sprintf("reviews:%s:%t:%d:%d", supplierID, approvedOnly, limit, offset)
}

func queueKey(sort string, limit, offset int) string {
	return fmt.Sprintf("modqueue:%s:%d:%d", sort, limit, offset)
}
