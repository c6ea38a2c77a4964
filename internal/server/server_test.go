package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/rounds/internal/apperr"
	"github.com/abhisek/rounds/internal/document"
	"github.com/abhisek/rounds/internal/grading"
	"github.com/abhisek/rounds/internal/simulator"
	"github.com/abhisek/rounds/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeSimulator records the last request and returns canned values.
type fakeSimulator struct {
	err        error
	lastSubmit simulator.SubmitRequest
	lastGen    simulator.GenerateRequest
	lastIngest document.IngestRequest
	submits    int
}

func (f *fakeSimulator) GenerateQuestion(_ context.Context, req simulator.GenerateRequest) (simulator.Question, error) {
	f.lastGen = req
	if f.err != nil {
		return simulator.Question{}, f.err
	}
	return simulator.Question{ID: "q1", DocumentID: req.DocumentID, Level: 1, Content: "Should lactate be measured?"}, nil
}

func (f *fakeSimulator) SubmitAnswer(_ context.Context, req simulator.SubmitRequest) (simulator.GradingOutcome, error) {
	f.lastSubmit = req
	f.submits++
	if f.err != nil {
		return simulator.GradingOutcome{}, f.err
	}
	return simulator.GradingOutcome{
		AnswerID:    "a1",
		Scores:      store.ScoreVector{ClinicalAccuracy: 4, RiskAssessment: 3, Communication: 1, Efficiency: 1, Total: 9},
		LevelChange: simulator.LevelChange{Before: 1, After: 2, Change: 1, Reason: "Excellent work! Score: 9.0/10. You've advanced a level!"},
	}, nil
}

func (f *fakeSimulator) GetProgress(_ context.Context, _, documentID string) (simulator.Progress, error) {
	if f.err != nil {
		return simulator.Progress{}, f.err
	}
	return simulator.Progress{DocumentID: documentID, CurrentLevel: 2, QuestionsAnswered: 3, AvgScore: 7.5}, nil
}

func (f *fakeSimulator) IngestDocument(_ context.Context, req document.IngestRequest) (simulator.Document, error) {
	f.lastIngest = req
	if f.err != nil {
		return simulator.Document{}, f.err
	}
	return simulator.Document{ID: "d1", Title: req.Title, ChunkCount: len(req.Pages)}, nil
}

func (f *fakeSimulator) GetDocument(_ context.Context, _, id string) (simulator.Document, error) {
	if f.err != nil {
		return simulator.Document{}, f.err
	}
	return simulator.Document{ID: id, Title: "Sepsis", UserMasteryLevel: 2}, nil
}

func (f *fakeSimulator) ListDocuments(_ context.Context, specialty store.Specialty) ([]simulator.Document, error) {
	return []simulator.Document{{ID: "d1", Specialty: specialty}}, f.err
}

func (f *fakeSimulator) Statistics(context.Context) (simulator.Statistics, error) {
	return simulator.Statistics{TotalAnswers: 4}, f.err
}

func (f *fakeSimulator) Rubric() grading.RubricDescription { return grading.Rubric() }

func newTestServer(cfg Config, sim Simulator) *Server {
	return New(cfg, sim, nil)
}

func do(t *testing.T, h http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Error
}

func TestRoutesRegistered(t *testing.T) {
	s := newTestServer(DefaultConfig(), &fakeSimulator{})
	want := map[string]bool{
		"GET /health":                              false,
		"GET /metrics":                             false,
		"GET /api/grading/rubric":                  false,
		"GET /api/grading/statistics":              false,
		"POST /api/documents":                      false,
		"GET /api/documents":                       false,
		"GET /api/documents/:id":                   false,
		"POST /api/simulator/generate":             false,
		"POST /api/simulator/submit":               false,
		"GET /api/simulator/progress/:document_id": false,
	}
	for _, r := range s.router.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, found := range want {
		assert.True(t, found, "route %s not registered", route)
	}
}

func TestHealthAndRubric(t *testing.T) {
	s := New(DefaultConfig(), &fakeSimulator{}, nil, WithHealthCheck(func(context.Context) error { return nil }))

	rec := do(t, s.Handler(), http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s.Handler(), http.MethodGet, "/api/grading/rubric", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var r grading.RubricDescription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	assert.Len(t, r.Categories, 4)

	down := New(DefaultConfig(), &fakeSimulator{}, nil, WithHealthCheck(func(context.Context) error { return errors.New("db gone") }))
	rec = do(t, down.Handler(), http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuth(t *testing.T) {
	s := newTestServer(DefaultConfig(), &fakeSimulator{})

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic dXNlcg=="},
		{"no token", "Bearer "},
		{"too many parts", "Bearer a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/simulator/progress/d1", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}

	rec := do(t, s.Handler(), http.MethodGet, "/api/simulator/progress/d1", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p simulator.Progress
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, 2, p.CurrentLevel)
}

func TestSubmitValidation(t *testing.T) {
	fake := &fakeSimulator{}
	s := newTestServer(DefaultConfig(), fake)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"ok", `{"question_id":"q1","answer_text":"Start norepinephrine now."}`, http.StatusOK},
		{"too short", `{"question_id":"q1","answer_text":"fluids"}`, http.StatusUnprocessableEntity},
		{"non-answer", `{"question_id":"q1","answer_text":"I dont know"}`, http.StatusUnprocessableEntity},
		{"padded non-answer", `{"question_id":"q1","answer_text":"   I don't know   "}`, http.StatusUnprocessableEntity},
		{"too long", `{"question_id":"q1","answer_text":"` + strings.Repeat("a", 2001) + `"}`, http.StatusUnprocessableEntity},
		{"missing question", `{"answer_text":"Start norepinephrine now."}`, http.StatusUnprocessableEntity},
		{"malformed json", `{"question_id":`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s.Handler(), http.MethodPost, "/api/simulator/submit", "u1", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
	assert.Equal(t, 1, fake.submits)
	assert.Equal(t, "u1", fake.lastSubmit.UserID)
}

func TestSubmitIdempotencyHeader(t *testing.T) {
	fake := &fakeSimulator{}
	s := newTestServer(DefaultConfig(), fake)

	req := httptest.NewRequest(http.MethodPost, "/api/simulator/submit",
		strings.NewReader(`{"question_id":"q1","answer_text":"Start norepinephrine now."}`))
	req.Header.Set("Authorization", "Bearer u1")
	req.Header.Set("Idempotency-Key", "key-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "key-123", fake.lastSubmit.IdempotencyKey)

	var out simulator.GradingOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 2, out.LevelChange.After)
}

func TestErrorMapping(t *testing.T) {
	insufficient := &apperr.NotFoundError{Resource: "chunks", ID: "d1", Err: apperr.ErrInsufficientMaterial}
	badOutput := apperr.Invalid("generated output", errors.New("schema validation failed: missing vignette"))

	tests := []struct {
		name    string
		debug   bool
		err     error
		path    string
		body    string
		code    int
		errCode string
		message string
	}{
		{"insufficient material", false, insufficient, "/api/simulator/generate", `{"document_id":"d1"}`, http.StatusNotFound, "insufficient_material", "insufficient material at this level"},
		{"not found", false, apperr.NotFound("question", "q9"), "/api/simulator/submit", `{"question_id":"q9","answer_text":"Start norepinephrine now."}`, http.StatusNotFound, "not_found", "question not found"},
		{"transient", false, apperr.Transient("grade answer", errors.New("503")), "/api/simulator/generate", `{"document_id":"d1"}`, http.StatusServiceUnavailable, "unavailable", msgUnavailable},
		{"grading failure is apologetic", false, apperr.Invariant("total mismatch"), "/api/simulator/submit", `{"question_id":"q1","answer_text":"Start norepinephrine now."}`, http.StatusInternalServerError, "internal", msgGradingFailed},
		{"malformed grade is apologetic", false, badOutput, "/api/simulator/submit", `{"question_id":"q1","answer_text":"Start norepinephrine now."}`, http.StatusUnprocessableEntity, "invalid", msgGradingFailed},
		{"malformed question", false, badOutput, "/api/simulator/generate", `{"document_id":"d1"}`, http.StatusUnprocessableEntity, "invalid", msgGenerateFail},
		{"debug shows detail", true, apperr.Invariant("total mismatch"), "/api/simulator/submit", `{"question_id":"q1","answer_text":"Start norepinephrine now."}`, http.StatusInternalServerError, "internal", "internal invariant violated: total mismatch"},
		{"unclassified", false, errors.New("boom"), "/api/simulator/generate", `{"document_id":"d1"}`, http.StatusInternalServerError, "internal", msgInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Debug = tt.debug
			s := newTestServer(cfg, &fakeSimulator{err: tt.err})

			rec := do(t, s.Handler(), http.MethodPost, tt.path, "u1", tt.body)
			assert.Equal(t, tt.code, rec.Code)
			e := decodeError(t, rec)
			assert.Equal(t, tt.errCode, e.Code)
			assert.Equal(t, tt.message, e.Message)
		})
	}
}

func TestUploadDocument(t *testing.T) {
	fake := &fakeSimulator{}
	s := newTestServer(DefaultConfig(), fake)

	rec := do(t, s.Handler(), http.MethodPost, "/api/documents", "admin",
		`{"title":"Sepsis","specialty":"icu","pages":["page one","page two"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "admin", fake.lastIngest.UploadedBy)
	assert.Equal(t, store.SpecialtyICU, fake.lastIngest.Specialty)
	assert.Len(t, fake.lastIngest.Pages, 2)

	rec = do(t, s.Handler(), http.MethodPost, "/api/documents", "admin", `{"title":"Sepsis","specialty":"dermatology","pages":["x"]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, s.Handler(), http.MethodGet, "/api/documents?specialty=icu", "u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)
}

func TestRequestBodyLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBodyBytes = 64
	s := newTestServer(cfg, &fakeSimulator{})

	rec := do(t, s.Handler(), http.MethodPost, "/api/documents", "admin",
		`{"title":"Sepsis","pages":["`+strings.Repeat("x", 200)+`"]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 2
	s := newTestServer(cfg, &fakeSimulator{})

	for i := range 2 {
		rec := do(t, s.Handler(), http.MethodGet, "/api/simulator/progress/d1", "u1", "")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
	rec := do(t, s.Handler(), http.MethodGet, "/api/simulator/progress/d1", "u1", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Buckets are per user.
	rec = do(t, s.Handler(), http.MethodGet, "/api/simulator/progress/d1", "u2", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUserLimiterSweepsIdleEntries(t *testing.T) {
	l := newUserLimiter(1, 1)
	start := time.Now()
	for i := range limiterSweep {
		l.allow(string(rune('a'+i%26))+strings.Repeat("x", i), start)
	}
	assert.Len(t, l.limiters, limiterSweep)

	l.allow("fresh", start.Add(limiterIdle+time.Minute))
	assert.Len(t, l.limiters, 1)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Addr = ""
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.RateBurst = 0
	assert.Error(t, cfg.Validate())
}
