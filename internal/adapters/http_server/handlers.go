package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"reviewtrust/internal/app"
	"reviewtrust/internal/domain"
)

// actorHeader carries the caller-resolved actor id. Authentication happens
// upstream; this layer trusts the header.
const actorHeader = "X-Actor-ID"

type Handlers struct{ Svc *app.ReviewService }

type problem struct {
	Type   string   `json:"type"`
	Title  string   `json:"title"`
	Status int      `json:"status"`
	Detail string   `json:"detail,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Post("/v1/reviews", h.createReview)
	s.mux.Get("/v1/reviews/eligibility", h.checkEligibility)
	s.mux.Get("/v1/reviews/{id}", h.getReview)
	s.mux.Post("/v1/reviews/{id}/votes", h.vote)
	s.mux.Put("/v1/reviews/{id}/response", h.respond)
	s.mux.Post("/v1/reviews/{id}/moderation", h.moderate)
	s.mux.Post("/v1/reviews/{id}/dispute", h.fileDispute)
	s.mux.Post("/v1/reviews/{id}/dispute/resolution", h.resolveDispute)
	s.mux.Get("/v1/suppliers/{id}/reviews", h.listSupplierReviews)
	s.mux.Get("/v1/moderation/queue", h.moderationQueue)
}

// writeError maps the domain error taxonomy onto problem+json responses.
func writeError(w http.ResponseWriter, err error) {
	var (
		verr *domain.ValidationError
		eerr *domain.EligibilityError
		terr *domain.TransitionError
	)
	switch {
	case errors.As(err, &verr):
		writeProblem(w, http.StatusUnprocessableEntity, "Validation Failed", "", verr.Violations)
	case errors.As(err, &eerr):
		writeProblem(w, http.StatusTooManyRequests, "Not Eligible", eerr.Reason, nil)
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "review not found", nil)
	case errors.Is(err, domain.ErrSupplierMismatch):
		writeProblem(w, http.StatusForbidden, "Forbidden", err.Error(), nil)
	case errors.Is(err, domain.ErrDuplicateVote),
		errors.Is(err, domain.ErrDisputeExists),
		errors.Is(err, domain.ErrNoOpenDispute),
		errors.Is(err, domain.ErrStateConflict),
		errors.As(err, &terr):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error(), nil)
	default:
		log.Error().Err(err).Msg("internal error")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "", nil)
	}
}

func writeProblem(w http.ResponseWriter, status int, title, detail string, errs []string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	p := problem{Type: "about:blank", Title: title, Status: status, Detail: detail, Errors: errs}
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func actor(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(actorHeader)
	if id == "" {
		writeProblem(w, http.StatusBadRequest, "Missing Actor", actorHeader+" header is required", nil)
		return "", false
	}
	return id, true
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body
}

func pageQuery(r *http.Request) domain.PageQuery {
	pg := domain.PageQuery{Limit: 20}
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if l, err := strconv.Atoi(ls); err == nil && l > 0 && l <= 200 {
			pg.Limit = l
		}
	}
	if os := r.URL.Query().Get("offset"); os != "" {
		if o, err := strconv.Atoi(os); err == nil && o >= 0 {
			pg.Offset = o
		}
	}
	return pg
}

// ---- handlers ----

func (h *Handlers) createReview(w http.ResponseWriter, r *http.Request) {
	authorID, ok := actor(w, r)
	if !ok {
		return
	}
	var body struct {
		SupplierID string  `json:"supplier_id"`
		BookingID  *string `json:"booking_id"`
		Rating     int     `json:"rating"`
		Title      string  `json:"title"`
		Text       string  `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON", nil)
		return
	}
	res, err := h.Svc.CreateReview(r.Context(), domain.NewReviewInput{
		SupplierID: body.SupplierID,
		AuthorID:   authorID,
		BookingID:  body.BookingID,
		Rating:     body.Rating,
		Title:      body.Title,
		Text:       body.Text,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handlers) checkEligibility(w http.ResponseWriter, r *http.Request) {
	authorID, ok := actor(w, r)
	if !ok {
		return
	}
	supplierID := r.URL.Query().Get("supplier_id")
	if supplierID == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Query", "supplier_id is required", nil)
		return
	}
	elig, err := h.Svc.CheckEligibility(r.Context(), authorID, supplierID, r.URL.Query().Get("booking_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, elig)
}

func (h *Handlers) getReview(w http.ResponseWriter, r *http.Request) {
	rv, err := h.Svc.GetReview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

func (h *Handlers) vote(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	var body struct {
		Helpful bool `json:"helpful"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON", nil)
		return
	}
	if err := h.Svc.VoteOnReview(r.Context(), chi.URLParam(r, "id"), userID, body.Helpful); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) respond(w http.ResponseWriter, r *http.Request) {
	supplierID, ok := actor(w, r)
	if !ok {
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON", nil)
		return
	}
	rv, err := h.Svc.AddSupplierResponse(r.Context(), chi.URLParam(r, "id"), supplierID, body.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rv.Response)
}

func (h *Handlers) moderate(w http.ResponseWriter, r *http.Request) {
	moderatorID, ok := actor(w, r)
	if !ok {
		return
	}
	var body struct {
		Action string `json:"action"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON", nil)
		return
	}
	rv, err := h.Svc.Moderate(r.Context(), chi.URLParam(r, "id"), moderatorID, app.ModerationAction(body.Action), body.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rv.Moderation)
}

func (h *Handlers) fileDispute(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	var body struct {
		Reason   string   `json:"reason"`
		Evidence []string `json:"evidence"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON", nil)
		return
	}
	rv, err := h.Svc.FileDispute(r.Context(), chi.URLParam(r, "id"), actorID, body.Reason, body.Evidence)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rv.Dispute)
}

func (h *Handlers) resolveDispute(w http.ResponseWriter, r *http.Request) {
	arbitratorID, ok := actor(w, r)
	if !ok {
		return
	}
	var body struct {
		Resolution string `json:"resolution"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "request body must be JSON", nil)
		return
	}
	rv, err := h.Svc.ResolveDispute(r.Context(), chi.URLParam(r, "id"), arbitratorID, domain.DisputeResolution(body.Resolution))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rv.Dispute)
}

func (h *Handlers) listSupplierReviews(w http.ResponseWriter, r *http.Request) {
	approvedOnly := r.URL.Query().Get("all") != "1"
	page, err := h.Svc.ListSupplierReviews(r.Context(), chi.URLParam(r, "id"), approvedOnly, pageQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}

	etag, body := calcETagAndBody(page)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write listSupplierReviews body")
	}
}

func (h *Handlers) moderationQueue(w http.ResponseWriter, r *http.Request) {
	items, err := h.Svc.GetModerationQueue(r.Context(), r.URL.Query().Get("sort"), pageQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}

	etag, body := calcETagAndBody(items)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write moderationQueue body")
	}
}
