package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rychipman/bridge-practice/internal/application/command"
	"github.com/rychipman/bridge-practice/internal/application/query"
	"github.com/rychipman/bridge-practice/internal/infrastructure/auth"
	"github.com/rychipman/bridge-practice/internal/infrastructure/persistence/memory"
	"github.com/rychipman/bridge-practice/internal/infrastructure/service"
	"github.com/rychipman/bridge-practice/internal/interface/http/handlers"
	"github.com/rychipman/bridge-practice/pkg/logger"
)

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *APIError       `json:"error"`
	RequestID string          `json:"request_id"`
}

type testAPI struct {
	t        *testing.T
	handler  http.Handler
	sessions *auth.Sessions
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store := memory.NewStore()
	ids := service.NewIDGenerator()
	log := logger.Discard()

	sessions, err := auth.NewSessions(auth.Config{Secret: []byte("http-test")})
	require.NoError(t, err)

	deps := Dependencies{
		RegisterLearner: command.NewRegisterLearnerHandler(store, ids, nil, bcrypt.MinCost),
		LoginLearner:    command.NewLoginLearnerHandler(store, sessions, nil),
		SubmitBid:       command.NewSubmitBidHandler(store, store, ids, nil, log),
		AddComment:      command.NewAddCommentHandler(store, store, ids, nil),

		NextExercise:        query.NewNextExerciseHandler(store, ids, nil, log, query.NextExerciseConfig{Locker: memory.NewLocker()}),
		GetExercise:         query.NewGetExerciseHandler(store, nil, log),
		ListExerciseBids:    query.NewListExerciseBidsHandler(store),
		GetExerciseBid:      query.NewGetExerciseBidHandler(store),
		ReviewExercises:     query.NewReviewExercisesHandler(store),
		ConflictingExercise: query.NewConflictingExerciseHandler(store),
		GetDeal:             query.NewGetDealHandler(store, nil),
		GetComment:          query.NewGetCommentHandler(store),
		ListLearners:        query.NewListLearnersHandler(store),
		GetLearner:          query.NewGetLearnerHandler(store),

		Sessions:      sessions,
		HealthChecker: handlers.NewCompositeHealthChecker("test"),
		Logger:        log,
	}

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	return &testAPI{t: t, handler: NewServer(cfg, deps).Handler(), sessions: sessions}
}

func (a *testAPI) do(method, path, token string, body any) (int, envelope) {
	a.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (a *testAPI) login(email, password string) string {
	a.t.Helper()
	code, _ := a.do(http.MethodPost, "/api/v1/register", "", credentialsRequest{Email: email, Password: password})
	require.Equal(a.t, http.StatusCreated, code)

	code, env := a.do(http.MethodPost, "/api/v1/login", "", credentialsRequest{Email: email, Password: password})
	require.Equal(a.t, http.StatusOK, code)
	var res loginResponse
	require.NoError(a.t, json.Unmarshal(env.Data, &res))
	require.NotEmpty(a.t, res.Token)
	return res.Token
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

type exerciseViewJSON struct {
	ID         string   `json:"id"`
	DealID     string   `json:"deal_id"`
	Bids       string   `json:"bids"`
	NextSeat   string   `json:"next_seat"`
	Finished   bool     `json:"finished"`
	LegalCalls []string `json:"legal_calls"`
	Created    *bool    `json:"created"`
	Deal       struct {
		Hands map[string]string `json:"hands"`
	} `json:"deal"`
}

func TestRegisterAndLogin(t *testing.T) {
	api := newTestAPI(t)
	api.login("alice@example.com", "correct-horse")

	code, env := api.do(http.MethodPost, "/api/v1/register", "", credentialsRequest{Email: "alice@example.com", Password: "correct-horse"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "already_exists", env.Error.Code)

	code, env = api.do(http.MethodPost, "/api/v1/login", "", credentialsRequest{Email: "alice@example.com", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)

	code, _ = api.do(http.MethodPost, "/api/v1/register", "", credentialsRequest{Email: "not-an-email", Password: "correct-horse"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = api.do(http.MethodGet, "/api/v1/learners", "", nil)
	require.Equal(t, http.StatusOK, code)
	learners := decode[[]query.LearnerDTO](t, env)
	require.Len(t, learners, 1)
	assert.Equal(t, "alice@example.com", learners[0].Email)

	code, _ = api.do(http.MethodGet, "/api/v1/learners/"+learners[0].ID, "", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = api.do(http.MethodGet, "/api/v1/learners/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestProtectedEndpointsRequireSession(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.do(http.MethodGet, "/api/v1/exercises/next", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "missing_token", env.Error.Code)
	assert.NotEmpty(t, env.RequestID)

	code, env = api.do(http.MethodGet, "/api/v1/exercises/next", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid_token", env.Error.Code)
}

func TestPracticeFlow(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("bob@example.com", "correct-horse")

	code, env := api.do(http.MethodGet, "/api/v1/exercises/next", token, nil)
	require.Equal(t, http.StatusOK, code)
	root := decode[exerciseViewJSON](t, env)
	require.NotNil(t, root.Created)
	assert.True(t, *root.Created)
	assert.Empty(t, root.Bids)
	assert.False(t, root.Finished)
	assert.Len(t, root.Deal.Hands, 4)
	assert.Contains(t, root.LegalCalls, "Pass")
	assert.Contains(t, root.LegalCalls, "1C")
	assert.NotContains(t, root.LegalCalls, "Dbl")

	bidsPath := "/api/v1/exercises/" + root.ID + "/bids"

	code, env = api.do(http.MethodPost, bidsPath, token, submitBidRequest{Bid: "Dbl"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "invalid_continuation", env.Error.Code)
	assert.Equal(t, "nothing_to_double", env.Error.Details)

	code, env = api.do(http.MethodPost, bidsPath, token, submitBidRequest{Bid: "7Q"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = api.do(http.MethodPost, bidsPath, token, submitBidRequest{Bid: "1NT"})
	require.Equal(t, http.StatusCreated, code)
	var submitted struct {
		ExerciseBid struct {
			ID  string `json:"id"`
			Bid string `json:"bid"`
		} `json:"exercise_bid"`
		FollowUp *struct {
			ID       string `json:"id"`
			Bids     string `json:"bids"`
			ParentID string `json:"parent_id"`
		} `json:"follow_up"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &submitted))
	assert.Equal(t, "1NT", submitted.ExerciseBid.Bid)
	require.NotNil(t, submitted.FollowUp)
	assert.Equal(t, "1NT", submitted.FollowUp.Bids)
	assert.Equal(t, root.ID, submitted.FollowUp.ParentID)

	code, env = api.do(http.MethodGet, "/api/v1/exercises/"+submitted.FollowUp.ID, "", nil)
	require.Equal(t, http.StatusOK, code)
	child := decode[exerciseViewJSON](t, env)
	assert.Equal(t, root.DealID, child.DealID)
	assert.Contains(t, child.LegalCalls, "Dbl")
	assert.Nil(t, child.Created)

	code, env = api.do(http.MethodGet, bidsPath, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]exerciseBidDTO](t, env), 1)

	code, _ = api.do(http.MethodGet, "/api/v1/bids/"+submitted.ExerciseBid.ID, "", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = api.do(http.MethodGet, "/api/v1/deals/"+root.DealID, "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodPost, "/api/v1/exercises/"+root.ID+"/comments", token, addCommentRequest{Text: "1NT shows 15-17"})
	require.Equal(t, http.StatusCreated, code)
	comment := decode[commentDTO](t, env)
	code, _ = api.do(http.MethodGet, "/api/v1/comments/"+comment.ID, "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = api.do(http.MethodPost, "/api/v1/exercises/"+root.ID+"/comments", token, addCommentRequest{Text: "  "})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = api.do(http.MethodGet, "/api/v1/exercises/review", "", nil)
	require.Equal(t, http.StatusOK, code)
	review := decode[reviewDTO](t, env)
	assert.Contains(t, review.Single, root.ID)
	assert.Contains(t, review.Unbid, child.ID)

	code, env = api.do(http.MethodGet, "/api/v1/exercises/conflict", token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUnknownExerciseAndBadJSON(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("carol@example.com", "correct-horse")

	code, env := api.do(http.MethodGet, "/api/v1/exercises/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", env.Error.Code)

	code, _ = api.do(http.MethodPost, "/api/v1/exercises/nope/bids", token, submitBidRequest{Bid: "1C"})
	assert.Equal(t, http.StatusNotFound, code)

	code, env = api.do(http.MethodPost, "/api/v1/login", "", map[string]string{"user": "x"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_json", env.Error.Code)
}

func TestWritesForUnknownLearnerAreRejected(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("dave@example.com", "correct-horse")

	code, env := api.do(http.MethodGet, "/api/v1/exercises/next", token, nil)
	require.Equal(t, http.StatusOK, code)
	root := decode[exerciseViewJSON](t, env)

	// a validly signed session for a learner that was never registered
	ghost, _, err := api.sessions.Issue("ghost", time.Now())
	require.NoError(t, err)

	code, env = api.do(http.MethodPost, "/api/v1/exercises/"+root.ID+"/bids", ghost, submitBidRequest{Bid: "1NT"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", env.Error.Code)

	code, _ = api.do(http.MethodPost, "/api/v1/exercises/"+root.ID+"/comments", ghost, map[string]string{"text": "hi"})
	assert.Equal(t, http.StatusNotFound, code)

	code, env = api.do(http.MethodGet, "/api/v1/exercises/"+root.ID+"/bids", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, "[]", string(env.Data))
}

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	code, _ = api.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	defer rl.Stop()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, rl.Allow("ip", now))
	assert.True(t, rl.Allow("ip", now))
	assert.False(t, rl.Allow("ip", now))
	assert.True(t, rl.Allow("other", now))
	assert.True(t, rl.Allow("ip", now.Add(time.Minute+time.Second)))
}
