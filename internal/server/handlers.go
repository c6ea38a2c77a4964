package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/rounds/internal/document"
	"github.com/abhisek/rounds/internal/grading"
	"github.com/abhisek/rounds/internal/simulator"
	"github.com/abhisek/rounds/internal/store"
)

// Simulator is the engine surface the HTTP layer serves.
type Simulator interface {
	GenerateQuestion(ctx context.Context, req simulator.GenerateRequest) (simulator.Question, error)
	SubmitAnswer(ctx context.Context, req simulator.SubmitRequest) (simulator.GradingOutcome, error)
	GetProgress(ctx context.Context, userID, documentID string) (simulator.Progress, error)
	IngestDocument(ctx context.Context, req document.IngestRequest) (simulator.Document, error)
	GetDocument(ctx context.Context, userID, id string) (simulator.Document, error)
	ListDocuments(ctx context.Context, specialty store.Specialty) ([]simulator.Document, error)
	Statistics(ctx context.Context) (simulator.Statistics, error)
	Rubric() grading.RubricDescription
}

type uploadRequest struct {
	Title        string   `json:"title" binding:"required,min=1,max=200"`
	DocumentType string   `json:"document_type" binding:"omitempty,oneof=guideline protocol textbook"`
	Specialty    string   `json:"specialty" binding:"omitempty,oneof=hospitalist cardiology icu"`
	Pages        []string `json:"pages" binding:"required,min=1"`
}

type generateRequest struct {
	DocumentID string `json:"document_id" binding:"required"`
	Topic      string `json:"topic" binding:"max=200"`
}

type submitRequest struct {
	QuestionID     string `json:"question_id" binding:"required"`
	AnswerText     string `json:"answer_text" binding:"required,min=10,max=2000,substantive"`
	IdempotencyKey string `json:"idempotency_key" binding:"max=128"`
}

// bind decodes the JSON body and reports binding failures as 422.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		msg := err.Error()
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(c, http.StatusRequestEntityTooLarge, "too_large", "Request body too large")
			return false
		}
		respondError(c, http.StatusUnprocessableEntity, "invalid", msg)
		return false
	}
	return true
}

func (s *Server) health(c *gin.Context) {
	if s.ping != nil {
		if err := s.ping(c.Request.Context()); err != nil {
			s.log.Warn("health check failed", "error", err.Error())
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
	}
	respondOK(c, gin.H{"status": "healthy"})
}

func (s *Server) rubric(c *gin.Context) {
	respondOK(c, s.sim.Rubric())
}

func (s *Server) statistics(c *gin.Context) {
	st, err := s.sim.Statistics(c.Request.Context())
	if err != nil {
		s.respondAppError(c, err, false)
		return
	}
	respondOK(c, st)
}

func (s *Server) uploadDocument(c *gin.Context) {
	var req uploadRequest
	if !bind(c, &req) {
		return
	}
	doc, err := s.sim.IngestDocument(c.Request.Context(), document.IngestRequest{
		Title:      req.Title,
		Type:       store.DocumentType(req.DocumentType),
		Specialty:  store.Specialty(req.Specialty),
		UploadedBy: userID(c),
		Pages:      req.Pages,
	})
	if err != nil {
		s.respondAppError(c, err, false)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (s *Server) listDocuments(c *gin.Context) {
	docs, err := s.sim.ListDocuments(c.Request.Context(), store.Specialty(c.Query("specialty")))
	if err != nil {
		s.respondAppError(c, err, false)
		return
	}
	respondOK(c, gin.H{"documents": docs, "total": len(docs)})
}

func (s *Server) getDocument(c *gin.Context) {
	doc, err := s.sim.GetDocument(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		s.respondAppError(c, err, false)
		return
	}
	respondOK(c, doc)
}

func (s *Server) generate(c *gin.Context) {
	var req generateRequest
	if !bind(c, &req) {
		return
	}
	q, err := s.sim.GenerateQuestion(c.Request.Context(), simulator.GenerateRequest{
		DocumentID: req.DocumentID,
		UserID:     userID(c),
		Topic:      req.Topic,
	})
	if err != nil {
		s.respondAppError(c, err, false)
		return
	}
	respondOK(c, q)
}

func (s *Server) submit(c *gin.Context) {
	var req submitRequest
	if !bind(c, &req) {
		return
	}
	key := req.IdempotencyKey
	if key == "" {
		key = c.GetHeader("Idempotency-Key")
	}
	out, err := s.sim.SubmitAnswer(c.Request.Context(), simulator.SubmitRequest{
		QuestionID:     req.QuestionID,
		UserID:         userID(c),
		Text:           req.AnswerText,
		IdempotencyKey: key,
	})
	if err != nil {
		s.respondAppError(c, err, true)
		return
	}
	respondOK(c, out)
}

func (s *Server) progress(c *gin.Context) {
	p, err := s.sim.GetProgress(c.Request.Context(), userID(c), c.Param("document_id"))
	if err != nil {
		s.respondAppError(c, err, false)
		return
	}
	respondOK(c, p)
}
