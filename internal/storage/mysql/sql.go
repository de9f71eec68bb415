package mysql

const insertReviewSQL = `
INSERT INTO reviews
  (id, supplier_id, author_id, booking_id, rating, title, ` + "`text`" + `,
   verification_status, booking_date, event_type, verified_at,
   sentiment_score, sentiment_label, keywords, spam_score, analyzed_at,
   moderation_state, auto_approved, moderator_id, moderated_at, moderation_reason,
   created_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?,
   ?, ?, ?, ?,
   ?, ?, ?, ?, ?,
   ?, ?, ?, ?, ?,
   ?, ?)
`

const insertVoteSQL = `
INSERT INTO review_votes (review_id, voter_id, helpful, voted_at)
VALUES (?, ?, ?, ?)
`

const bumpVoteCountSQL = `
UPDATE reviews
SET helpful_count   = helpful_count + ?,
    unhelpful_count = unhelpful_count + ?,
    updated_at      = ?
WHERE id = ?
`

const setResponseSQL = `
UPDATE reviews
SET response_supplier_id = ?,
    response_text        = ?,
    responded_at         = ?,
    response_updated_at  = ?,
    updated_at           = ?
WHERE id = ?
`

// Conditional write: only applies when the row is still in the state the
// caller loaded it in. Zero affected rows means a concurrent transition won.
const applyTransitionSQL = `
UPDATE reviews
SET moderation_state     = ?,
    auto_approved        = ?,
    moderator_id         = ?,
    moderated_at         = ?,
    moderation_reason    = ?,
    dispute_filed        = ?,
    dispute_filed_by     = ?,
    dispute_reason       = ?,
    dispute_evidence     = ?,
    dispute_filed_at     = ?,
    dispute_resolution   = ?,
    dispute_resolved_at  = ?,
    dispute_resolved_by  = ?,
    updated_at           = ?
WHERE id = ? AND moderation_state = ?
`

const insertStateLogSQL = `
INSERT INTO review_state_log (review_id, prior_state, changed_at, changed_by)
VALUES (?, ?, ?, ?)
`

const updateSentimentSQL = `
UPDATE reviews
SET sentiment_score = ?,
    sentiment_label = ?,
    keywords        = ?,
    spam_score      = ?,
    analyzed_at     = ?,
    updated_at      = ?
WHERE id = ?
`

const selectReviewColumns = `
  id, supplier_id, author_id, booking_id, rating, title, ` + "`text`" + `,
  verification_status, booking_date, event_type, verified_at,
  sentiment_score, sentiment_label, keywords, spam_score, analyzed_at,
  moderation_state, auto_approved, moderator_id, moderated_at, moderation_reason,
  response_supplier_id, response_text, responded_at, response_updated_at,
  helpful_count, unhelpful_count,
  dispute_filed, dispute_filed_by, dispute_reason, dispute_evidence, dispute_filed_at,
  dispute_resolution, dispute_resolved_at, dispute_resolved_by,
  created_at, updated_at
`

const getReviewSQL = `SELECT ` + selectReviewColumns + ` FROM reviews WHERE id = ?`

const listBySupplierSQL = `
SELECT ` + selectReviewColumns + `
FROM reviews
WHERE supplier_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?
`

const listBySupplierApprovedSQL = `
SELECT ` + selectReviewColumns + `
FROM reviews
WHERE supplier_id = ? AND moderation_state = 'approved'
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?
`

const countBySupplierSQL = `SELECT COUNT(*) FROM reviews WHERE supplier_id = ?`

const countBySupplierApprovedSQL = `
SELECT COUNT(*) FROM reviews WHERE supplier_id = ? AND moderation_state = 'approved'`

const listForModerationSQL = `
SELECT ` + selectReviewColumns + `
FROM reviews
WHERE moderation_state IN ('pending', 'disputed')
ORDER BY created_at ASC, id ASC
LIMIT ?
`

const listAllSQL = `
SELECT ` + selectReviewColumns + `
FROM reviews
ORDER BY created_at ASC, id ASC
LIMIT ? OFFSET ?
`

const lastReviewAtSQL = `
SELECT MAX(created_at) FROM reviews WHERE author_id = ? AND supplier_id = ?`

const countByAuthorSinceSQL = `
SELECT COUNT(*) FROM reviews WHERE author_id = ? AND created_at >= ?`

const selectVotersSQL = `
SELECT voter_id FROM review_votes WHERE review_id = ?`

const hasEngagementSQL = `
SELECT COUNT(*) FROM engagements
WHERE booking_id = ? AND author_id = ? AND supplier_id = ?`

const selectStateLogSQL = `
SELECT prior_state, changed_at, changed_by
FROM review_state_log
WHERE review_id = ?
ORDER BY id ASC
`
