package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"reviewtrust/internal/domain"
)

const (
	mysqlErrDuplicate = 1062
	mysqlErrNoRefRow  = 1452
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return *p
}
func valJSON(v any) any {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return nil
	}
	return string(b)
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Insert(ctx context.Context, rv domain.Review) error {
	_, err := r.db.ExecContext(ctx, insertReviewSQL,
		rv.ID,
		rv.SupplierID,
		rv.AuthorID,
		valStr(rv.BookingID),
		rv.Rating,
		rv.Title,
		rv.Text,
		string(rv.Verification.Status),
		valTime(rv.Verification.BookingDate),
		valStr(rv.Verification.EventType),
		valTime(rv.Verification.VerifiedAt),
		rv.Sentiment.Score,
		rv.Sentiment.Label,
		valJSON(rv.Sentiment.Keywords),
		rv.Sentiment.SpamScore,
		rv.Sentiment.AnalyzedAt,
		string(rv.Moderation.State),
		rv.Moderation.AutoApproved,
		valStr(rv.Moderation.ModeratorID),
		valTime(rv.Moderation.ModeratedAt),
		rv.Moderation.Reason,
		rv.CreatedAt,
		rv.UpdatedAt,
	)
	return err
}

// AddVote inserts the voter row and bumps the counter in one transaction.
// The (review_id, voter_id) primary key is the dedup guard; the duplicate
// key error maps to the domain conflict so no counter is ever touched twice.
func (r *Repo) AddVote(ctx context.Context, reviewID, voterID string, helpful bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, insertVoteSQL, reviewID, voterID, helpful, now); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) {
			switch me.Number {
			case mysqlErrDuplicate:
				return domain.ErrDuplicateVote
			case mysqlErrNoRefRow:
				return domain.ErrNotFound
			}
		}
		return err
	}

	up, down := 0, 1
	if helpful {
		up, down = 1, 0
	}
	if _, err := tx.ExecContext(ctx, bumpVoteCountSQL, up, down, now, reviewID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Repo) SetResponse(ctx context.Context, reviewID string, resp domain.SupplierResponse) error {
	res, err := r.db.ExecContext(ctx, setResponseSQL,
		resp.SupplierID, resp.Text, resp.RespondedAt, resp.UpdatedAt, resp.UpdatedAt, reviewID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// affected may legitimately be 0 on an identical rewrite; confirm existence
		var one int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM reviews WHERE id = ?`, reviewID).Scan(&one); err == sql.ErrNoRows {
			return domain.ErrNotFound
		} else if err != nil {
			return err
		}
	}
	return nil
}

// ApplyTransition is the single-writer guard for moderation state: the
// UPDATE only matches while the row is still in the expected state, so a
// concurrent transition surfaces as ErrStateConflict instead of a lost write.
func (r *Repo) ApplyTransition(ctx context.Context, reviewID string, expect domain.ModerationState, m domain.Moderation, d *domain.Dispute, entry *domain.StateChange) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var (
		dFiled                      bool
		dFiledBy, dReason           any
		dEvidence                   any
		dFiledAt                    any
		dResolution, dResolvedBy    any
		dResolvedAt                 any
	)
	if d != nil {
		dFiled = d.Filed
		dFiledBy = d.FiledBy
		dReason = d.Reason
		dEvidence = valJSON(d.Evidence)
		dFiledAt = d.FiledAt
		if d.Resolution != nil {
			dResolution = string(*d.Resolution)
		}
		dResolvedAt = valTime(d.ResolvedAt)
		if d.ResolvedBy != nil {
			dResolvedBy = *d.ResolvedBy
		}
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, applyTransitionSQL,
		string(m.State),
		m.AutoApproved,
		valStr(m.ModeratorID),
		valTime(m.ModeratedAt),
		m.Reason,
		dFiled, dFiledBy, dReason, dEvidence, dFiledAt,
		dResolution, dResolvedAt, dResolvedBy,
		now,
		reviewID, string(expect),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var cur string
		err := tx.QueryRowContext(ctx, `SELECT moderation_state FROM reviews WHERE id = ?`, reviewID).Scan(&cur)
		if err == sql.ErrNoRows {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		if cur != string(expect) {
			return domain.ErrStateConflict
		}
		// identical rewrite; fall through and still log the entry
	}

	if entry != nil {
		if _, err := tx.ExecContext(ctx, insertStateLogSQL,
			reviewID, string(entry.PriorState), entry.ChangedAt, entry.ChangedBy); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Repo) UpdateSentiment(ctx context.Context, reviewID string, s domain.Sentiment) error {
	res, err := r.db.ExecContext(ctx, updateSentimentSQL,
		s.Score, s.Label, valJSON(s.Keywords), s.SpamScore, s.AnalyzedAt, time.Now().UTC(), reviewID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM reviews WHERE id = ?`, reviewID).Scan(&one); err == sql.ErrNoRows {
			return domain.ErrNotFound
		} else if err != nil {
			return err
		}
	}
	return nil
}

// Get loads the full record including voters and the audit trail. Listing
// methods skip those two joins and return counters only.
func (r *Repo) Get(ctx context.Context, id string) (domain.Review, error) {
	row := r.db.QueryRowContext(ctx, getReviewSQL, id)
	rv, err := scanReview(row)
	if err == sql.ErrNoRows {
		return domain.Review{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Review{}, err
	}

	voters, err := r.db.QueryContext(ctx, selectVotersSQL, id)
	if err != nil {
		return domain.Review{}, err
	}
	defer voters.Close()
	rv.Votes.Voters = map[string]bool{}
	for voters.Next() {
		var v string
		if err := voters.Scan(&v); err != nil {
			return domain.Review{}, err
		}
		rv.Votes.Voters[v] = true
	}
	if err := voters.Err(); err != nil {
		return domain.Review{}, err
	}

	log, err := r.db.QueryContext(ctx, selectStateLogSQL, id)
	if err != nil {
		return domain.Review{}, err
	}
	defer log.Close()
	for log.Next() {
		var sc domain.StateChange
		var prior string
		if err := log.Scan(&prior, &sc.ChangedAt, &sc.ChangedBy); err != nil {
			return domain.Review{}, err
		}
		sc.PriorState = domain.ModerationState(prior)
		rv.Moderation.PreviousStates = append(rv.Moderation.PreviousStates, sc)
	}
	if err := log.Err(); err != nil {
		return domain.Review{}, err
	}
	return rv, nil
}

func (r *Repo) ListBySupplier(ctx context.Context, supplierID string, onlyApproved bool, pg domain.PageQuery) (domain.ReviewsPage, error) {
	listQ, countQ := listBySupplierSQL, countBySupplierSQL
	if onlyApproved {
		listQ, countQ = listBySupplierApprovedSQL, countBySupplierApprovedSQL
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQ, supplierID).Scan(&total); err != nil {
		return domain.ReviewsPage{}, err
	}

	rows, err := r.db.QueryContext(ctx, listQ, supplierID, pg.Limit, pg.Offset)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	defer rows.Close()

	items, err := collectReviews(rows)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	return domain.ReviewsPage{Items: items, Total: total}, nil
}

func (r *Repo) ListForModeration(ctx context.Context, limit int) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, listForModerationSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReviews(rows)
}

func (r *Repo) List(ctx context.Context, pg domain.PageQuery) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, listAllSQL, pg.Limit, pg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReviews(rows)
}

func (r *Repo) LastReviewAt(ctx context.Context, authorID, supplierID string) (*time.Time, error) {
	var t sql.NullTime
	if err := r.db.QueryRowContext(ctx, lastReviewAtSQL, authorID, supplierID).Scan(&t); err != nil {
		return nil, err
	}
	if !t.Valid {
		return nil, nil
	}
	return &t.Time, nil
}

func (r *Repo) CountByAuthorSince(ctx context.Context, authorID string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countByAuthorSinceSQL, authorID, since).Scan(&n)
	return n, err
}

// HasEngagement implements domain.EngagementChecker against the engagements
// table maintained by the booking system.
func (r *Repo) HasEngagement(ctx context.Context, authorID, supplierID, bookingID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, hasEngagementSQL, bookingID, authorID, supplierID).Scan(&n)
	return n > 0, err
}

// ---- scanning ----

type rowScanner interface{ Scan(dest ...any) error }

func scanReview(row rowScanner) (domain.Review, error) {
	var (
		rv domain.Review

		bookingID                       sql.NullString
		bookingDate, verifiedAt         sql.NullTime
		eventType                       sql.NullString
		keywordsJSON                    []byte
		analyzedAt                      sql.NullTime
		moderatorID                     sql.NullString
		moderatedAt                     sql.NullTime
		moderationReason                sql.NullString
		respSupplier, respText          sql.NullString
		respondedAt, respUpdatedAt      sql.NullTime
		disputeFiled                    bool
		dFiledBy, dReason               sql.NullString
		dEvidenceJSON                   []byte
		dFiledAt                        sql.NullTime
		dResolution, dResolvedBy        sql.NullString
		dResolvedAt                     sql.NullTime
		verification, state, sentLabel  string
	)

	err := row.Scan(
		&rv.ID, &rv.SupplierID, &rv.AuthorID, &bookingID, &rv.Rating, &rv.Title, &rv.Text,
		&verification, &bookingDate, &eventType, &verifiedAt,
		&rv.Sentiment.Score, &sentLabel, &keywordsJSON, &rv.Sentiment.SpamScore, &analyzedAt,
		&state, &rv.Moderation.AutoApproved, &moderatorID, &moderatedAt, &moderationReason,
		&respSupplier, &respText, &respondedAt, &respUpdatedAt,
		&rv.Votes.Helpful, &rv.Votes.Unhelpful,
		&disputeFiled, &dFiledBy, &dReason, &dEvidenceJSON, &dFiledAt,
		&dResolution, &dResolvedAt, &dResolvedBy,
		&rv.CreatedAt, &rv.UpdatedAt,
	)
	if err != nil {
		return domain.Review{}, err
	}

	if bookingID.Valid {
		s := bookingID.String
		rv.BookingID = &s
	}
	rv.Verification.Status = domain.VerificationStatus(verification)
	if bookingDate.Valid {
		t := bookingDate.Time
		rv.Verification.BookingDate = &t
	}
	if eventType.Valid {
		s := eventType.String
		rv.Verification.EventType = &s
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		rv.Verification.VerifiedAt = &t
	}

	rv.Sentiment.Label = sentLabel
	if len(keywordsJSON) > 0 {
		_ = json.Unmarshal(keywordsJSON, &rv.Sentiment.Keywords)
	}
	if analyzedAt.Valid {
		rv.Sentiment.AnalyzedAt = analyzedAt.Time
	}

	rv.Moderation.State = domain.ModerationState(state)
	if moderatorID.Valid {
		s := moderatorID.String
		rv.Moderation.ModeratorID = &s
	}
	if moderatedAt.Valid {
		t := moderatedAt.Time
		rv.Moderation.ModeratedAt = &t
	}
	if moderationReason.Valid {
		rv.Moderation.Reason = moderationReason.String
	}

	if respSupplier.Valid {
		resp := domain.SupplierResponse{SupplierID: respSupplier.String, Text: respText.String}
		if respondedAt.Valid {
			resp.RespondedAt = respondedAt.Time
		}
		if respUpdatedAt.Valid {
			resp.UpdatedAt = respUpdatedAt.Time
		}
		rv.Response = &resp
	}

	if disputeFiled {
		d := domain.Dispute{Filed: true, FiledBy: dFiledBy.String, Reason: dReason.String}
		if len(dEvidenceJSON) > 0 {
			_ = json.Unmarshal(dEvidenceJSON, &d.Evidence)
		}
		if dFiledAt.Valid {
			d.FiledAt = dFiledAt.Time
		}
		if dResolution.Valid {
			res := domain.DisputeResolution(dResolution.String)
			d.Resolution = &res
		}
		if dResolvedAt.Valid {
			t := dResolvedAt.Time
			d.ResolvedAt = &t
		}
		if dResolvedBy.Valid {
			s := dResolvedBy.String
			d.ResolvedBy = &s
		}
		rv.Dispute = &d
	}
	return rv, nil
}

func collectReviews(rows *sql.Rows) ([]domain.Review, error) {
	var out []domain.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
