package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rychipman/bridge-practice/internal/application/command"
	"github.com/rychipman/bridge-practice/internal/application/query"
	"github.com/rychipman/bridge-practice/internal/domain/bridge"
	"github.com/rychipman/bridge-practice/internal/domain/learner"
	"github.com/rychipman/bridge-practice/internal/domain/practice"
	"github.com/rychipman/bridge-practice/internal/domain/shared"
	"github.com/rychipman/bridge-practice/internal/interface/http/handlers"
	"github.com/rychipman/bridge-practice/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE SHAPES
// ══════════════════════════════════════════════════════════════════════════════

type exerciseDTO struct {
	ID          string             `json:"id"`
	DealID      string             `json:"deal_id"`
	Bids        bridge.BidSequence `json:"bids"`
	ParentID    *string            `json:"parent_id,omitempty"`
	SourceBidID *string            `json:"source_bid_id,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

func toExerciseDTO(e *practice.Exercise) *exerciseDTO {
	if e == nil {
		return nil
	}
	return &exerciseDTO{
		ID:          e.ID,
		DealID:      e.DealID,
		Bids:        e.Bids,
		ParentID:    e.ParentID,
		SourceBidID: e.SourceBidID,
		CreatedAt:   e.CreatedAt,
	}
}

type dealDTO struct {
	ID         string                 `json:"id"`
	Dealer     bridge.Seat            `json:"dealer"`
	Vulnerable bridge.Vulnerability   `json:"vulnerable"`
	Hands      map[string]bridge.Hand `json:"hands"`
	HCP        map[string]int         `json:"hcp"`
	CreatedAt  time.Time              `json:"created_at"`
}

func toDealDTO(d *practice.Deal) dealDTO {
	dto := dealDTO{
		ID:         d.ID,
		Dealer:     d.Deal.Dealer,
		Vulnerable: d.Deal.Vulnerable,
		Hands:      make(map[string]bridge.Hand, 4),
		HCP:        make(map[string]int, 4),
		CreatedAt:  d.CreatedAt,
	}
	for _, seat := range bridge.Seats {
		hand := d.Deal.Hand(seat)
		dto.Hands[seat.String()] = hand
		dto.HCP[seat.String()] = hand.HighCardPoints()
	}
	return dto
}

type exerciseBidDTO struct {
	ID         string     `json:"id"`
	ExerciseID string     `json:"exercise_id"`
	LearnerID  string     `json:"learner_id"`
	Bid        bridge.Bid `json:"bid"`
	CreatedAt  time.Time  `json:"created_at"`
}

func toExerciseBidDTO(b *practice.ExerciseBid) exerciseBidDTO {
	return exerciseBidDTO{
		ID:         b.ID,
		ExerciseID: b.ExerciseID,
		LearnerID:  b.LearnerID,
		Bid:        b.Bid,
		CreatedAt:  b.CreatedAt,
	}
}

type commentDTO struct {
	ID         string    `json:"id"`
	ExerciseID string    `json:"exercise_id"`
	LearnerID  string    `json:"learner_id"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

func toCommentDTO(c *practice.Comment) commentDTO {
	return commentDTO{
		ID:         c.ID,
		ExerciseID: c.ExerciseID,
		LearnerID:  c.LearnerID,
		Text:       c.Text,
		CreatedAt:  c.CreatedAt,
	}
}

type exerciseViewDTO struct {
	exerciseDTO
	Deal       dealDTO      `json:"deal"`
	Comments   []commentDTO `json:"comments"`
	NextSeat   bridge.Seat  `json:"next_seat"`
	Finished   bool         `json:"finished"`
	Table      string       `json:"table"`
	LegalCalls []bridge.Bid `json:"legal_calls"`

	// Created is only set by the next-exercise endpoint.
	Created *bool `json:"created,omitempty"`
}

func toExerciseViewDTO(v *query.ExerciseView) exerciseViewDTO {
	comments := make([]commentDTO, 0, len(v.Comments))
	for _, c := range v.Comments {
		comments = append(comments, toCommentDTO(c))
	}
	legal := v.LegalCalls
	if legal == nil {
		legal = []bridge.Bid{}
	}
	return exerciseViewDTO{
		exerciseDTO: *toExerciseDTO(v.Exercise),
		Deal:        toDealDTO(v.Deal),
		Comments:    comments,
		NextSeat:    v.NextSeat,
		Finished:    v.Finished,
		Table:       v.Table,
		LegalCalls:  legal,
	}
}

type reviewDTO struct {
	Unbid        []string `json:"unbid"`
	Single       []string `json:"single"`
	Rebid        []string `json:"rebid"`
	Inconsistent []string `json:"inconsistent"`
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"name":    "Bridge Practice API",
		"version": "v1",
		"endpoints": map[string]string{
			"health":   "/health",
			"register": "/api/v1/register",
			"login":    "/api/v1/login",
			"next":     "/api/v1/exercises/next",
			"review":   "/api/v1/exercises/review",
		},
	})
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, r, http.StatusOK, map[string]any{
			"status": "healthy",
			"uptime": s.Uptime().Round(time.Second).String(),
		})
		return
	}

	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, status)
}

// handleReady handles the readiness probe endpoint.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSONErrorWithDetails(w, r, http.StatusServiceUnavailable, "not_ready", "Service is not ready", status.Message)
			return
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// LEARNER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleRegister handles POST /api/v1/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if s.deps.RegisterLearner == nil {
		s.notConfigured(w, r)
		return
	}

	var req credentialsRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	l, err := s.deps.RegisterLearner.Handle(r.Context(), command.RegisterLearnerCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, query.ToLearnerDTO(l))
}

type loginResponse struct {
	LearnerID string    `json:"learner_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleLogin handles POST /api/v1/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.deps.LoginLearner == nil {
		s.notConfigured(w, r)
		return
	}

	var req credentialsRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	res, err := s.deps.LoginLearner.Handle(r.Context(), command.LoginLearnerCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, loginResponse{
		LearnerID: res.LearnerID,
		Email:     res.Email,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
	})
}

// handleListLearners handles GET /api/v1/learners
func (s *Server) handleListLearners(w http.ResponseWriter, r *http.Request) {
	if s.deps.ListLearners == nil {
		s.notConfigured(w, r)
		return
	}

	defaults := learner.DefaultListOptions()
	opts := defaults.
		WithLimit(getQueryParamInt(r, "limit", defaults.Limit)).
		WithOffset(getQueryParamInt(r, "offset", 0))

	learners, err := s.deps.ListLearners.Handle(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if learners == nil {
		learners = []query.LearnerDTO{}
	}
	writeJSON(w, r, http.StatusOK, learners)
}

// handleGetLearner handles GET /api/v1/learners/{id}
func (s *Server) handleGetLearner(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetLearner == nil {
		s.notConfigured(w, r)
		return
	}

	l, err := s.deps.GetLearner.Handle(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, l)
}

// ══════════════════════════════════════════════════════════════════════════════
// PRACTICE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleNextExercise handles GET /api/v1/exercises/next
func (s *Server) handleNextExercise(w http.ResponseWriter, r *http.Request) {
	if s.deps.NextExercise == nil || s.deps.GetExercise == nil {
		s.notConfigured(w, r)
		return
	}
	learnerID, _ := handlers.LearnerIDFromContext(r.Context())

	res, err := s.deps.NextExercise.Handle(r.Context(), query.NextExerciseQuery{LearnerID: learnerID})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	view, err := s.deps.GetExercise.Handle(r.Context(), query.GetExerciseQuery{ExerciseID: res.Exercise.ID})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	dto := toExerciseViewDTO(view)
	dto.Created = &res.Created
	writeJSON(w, r, http.StatusOK, dto)
}

// handleConflictingExercise handles GET /api/v1/exercises/conflict
func (s *Server) handleConflictingExercise(w http.ResponseWriter, r *http.Request) {
	if s.deps.ConflictingExercise == nil || s.deps.GetExercise == nil {
		s.notConfigured(w, r)
		return
	}
	learnerID, _ := handlers.LearnerIDFromContext(r.Context())

	ex, err := s.deps.ConflictingExercise.Handle(r.Context(), learnerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeExerciseView(w, r, ex.ID)
}

// handleGetExercise handles GET /api/v1/exercises/{id}
func (s *Server) handleGetExercise(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetExercise == nil {
		s.notConfigured(w, r)
		return
	}
	s.writeExerciseView(w, r, r.PathValue("id"))
}

func (s *Server) writeExerciseView(w http.ResponseWriter, r *http.Request, exerciseID string) {
	view, err := s.deps.GetExercise.Handle(r.Context(), query.GetExerciseQuery{ExerciseID: exerciseID})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toExerciseViewDTO(view))
}

// handleReview handles GET /api/v1/exercises/review
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	if s.deps.ReviewExercises == nil {
		s.notConfigured(w, r)
		return
	}

	summary, err := s.deps.ReviewExercises.Handle(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, reviewDTO{
		Unbid:        nonNil(summary.Unbid),
		Single:       nonNil(summary.Single),
		Rebid:        nonNil(summary.Rebid),
		Inconsistent: nonNil(summary.Inconsistent),
	})
}

// handleListExerciseBids handles GET /api/v1/exercises/{id}/bids
func (s *Server) handleListExerciseBids(w http.ResponseWriter, r *http.Request) {
	if s.deps.ListExerciseBids == nil {
		s.notConfigured(w, r)
		return
	}

	bids, err := s.deps.ListExerciseBids.Handle(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]exerciseBidDTO, 0, len(bids))
	for _, b := range bids {
		out = append(out, toExerciseBidDTO(b))
	}
	writeJSON(w, r, http.StatusOK, out)
}

type submitBidRequest struct {
	Bid string `json:"bid"`
}

type submitBidResponse struct {
	ExerciseBid exerciseBidDTO `json:"exercise_bid"`

	// FollowUp is null when the call ended the auction.
	FollowUp *exerciseDTO `json:"follow_up"`
}

// handleSubmitBid handles POST /api/v1/exercises/{id}/bids
func (s *Server) handleSubmitBid(w http.ResponseWriter, r *http.Request) {
	if s.deps.SubmitBid == nil {
		s.notConfigured(w, r)
		return
	}
	learnerID, _ := handlers.LearnerIDFromContext(r.Context())

	var req submitBidRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	res, err := s.deps.SubmitBid.Handle(r.Context(), command.SubmitBidCommand{
		ExerciseID: r.PathValue("id"),
		LearnerID:  learnerID,
		Bid:        req.Bid,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, submitBidResponse{
		ExerciseBid: toExerciseBidDTO(res.ExerciseBid),
		FollowUp:    toExerciseDTO(res.FollowUp),
	})
}

type addCommentRequest struct {
	Text string `json:"text"`
}

// handleAddComment handles POST /api/v1/exercises/{id}/comments
func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	if s.deps.AddComment == nil {
		s.notConfigured(w, r)
		return
	}
	learnerID, _ := handlers.LearnerIDFromContext(r.Context())

	var req addCommentRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	c, err := s.deps.AddComment.Handle(r.Context(), command.AddCommentCommand{
		ExerciseID: r.PathValue("id"),
		LearnerID:  learnerID,
		Text:       req.Text,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toCommentDTO(c))
}

// handleGetExerciseBid handles GET /api/v1/bids/{id}
func (s *Server) handleGetExerciseBid(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetExerciseBid == nil {
		s.notConfigured(w, r)
		return
	}

	b, err := s.deps.GetExerciseBid.Handle(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toExerciseBidDTO(b))
}

// handleGetDeal handles GET /api/v1/deals/{id}
func (s *Server) handleGetDeal(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetDeal == nil {
		s.notConfigured(w, r)
		return
	}

	d, err := s.deps.GetDeal.Handle(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toDealDTO(d))
}

// handleGetComment handles GET /api/v1/comments/{id}
func (s *Server) handleGetComment(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetComment == nil {
		s.notConfigured(w, r)
		return
	}

	c, err := s.deps.GetComment.Handle(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toCommentDTO(c))
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST AND ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) notConfigured(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Endpoint is not configured")
}

// decodeBody reads a JSON body into dst. It writes the error response and
// returns false on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large")
			return false
		}
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "invalid_json", "Request body is not valid JSON", err.Error())
		return false
	}
	return true
}

// writeError maps domain errors onto HTTP statuses. Anything unrecognised is
// logged and reported as 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		illegal   *bridge.InvalidContinuationError
		domainErr *shared.DomainError
	)
	message := ""
	if errors.As(err, &domainErr) {
		message = domainErr.Message
	}

	switch {
	case errors.As(err, &illegal):
		writeJSONErrorWithDetails(w, r, http.StatusUnprocessableEntity,
			"invalid_continuation", illegal.Reason.Message(), string(illegal.Reason))
	case shared.IsUnauthorized(err):
		writeJSONError(w, r, http.StatusUnauthorized, "unauthorized", orDefault(message, "Unauthorized"))
	case shared.IsNotFound(err):
		writeJSONError(w, r, http.StatusNotFound, "not_found", orDefault(message, "Not found"))
	case shared.IsAlreadyExists(err):
		writeJSONError(w, r, http.StatusConflict, "already_exists", orDefault(message, "Already exists"))
	case shared.IsValidation(err):
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "invalid_request",
			orDefault(message, "Invalid request"), err.Error())
	default:
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, logger.Err(err))
		writeJSONError(w, r, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
