// Package simulator is the caller-facing surface of the engine: it wires
// retrieval, question composition, grading and mastery tracking into the
// operations the HTTP server and the CLI expose.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/abhisek/rounds/internal/apperr"
	"github.com/abhisek/rounds/internal/document"
	"github.com/abhisek/rounds/internal/grading"
	"github.com/abhisek/rounds/internal/logger"
	"github.com/abhisek/rounds/internal/mastery"
	"github.com/abhisek/rounds/internal/question"
	"github.com/abhisek/rounds/internal/store"
)

const (
	referenceLen   = 200
	maxKeyLen      = 128
	maxAnswerRunes = 2000
)

// Store is the read side the simulator needs directly.
type Store interface {
	GetDocument(ctx context.Context, id string) (store.Document, error)
	ListDocuments(ctx context.Context) ([]store.Document, error)
	GetQuestion(ctx context.Context, id string) (store.Question, error)
	GetAnswer(ctx context.Context, id string) (store.Answer, error)
	ChunksByID(ctx context.Context, ids []string) ([]store.Chunk, error)
	GetSnapshot(ctx context.Context, userID, documentID string) (store.MasterySnapshot, error)
	AnswerStats(ctx context.Context) (store.AnswerStats, error)
}

type Composer interface {
	Compose(ctx context.Context, in question.ComposeInput) (question.Result, error)
}

type Grader interface {
	Grade(ctx context.Context, q store.Question, answer string, chunks []store.Chunk) (grading.Assessment, error)
}

type Recorder interface {
	Record(ctx context.Context, sub mastery.Submission) (mastery.Outcome, error)
}

type Ingester interface {
	Ingest(ctx context.Context, req document.IngestRequest) (store.Document, error)
}

// Deps are the collaborators of a Simulator.
type Deps struct {
	Store    Store
	Composer Composer
	Grader   Grader
	Recorder Recorder
	Ingester Ingester
	Logger   *logger.Logger
}

// Simulator runs the adaptive question and grading flows.
type Simulator struct {
	store    Store
	composer Composer
	grader   Grader
	recorder Recorder
	ingester Ingester
	log      *logger.Logger
}

func New(d Deps) *Simulator {
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Simulator{
		store:    d.Store,
		composer: d.Composer,
		grader:   d.Grader,
		recorder: d.Recorder,
		ingester: d.Ingester,
		log:      log,
	}
}

// GenerateQuestion composes a question at the learner's level.
func (s *Simulator) GenerateQuestion(ctx context.Context, req GenerateRequest) (Question, error) {
	if req.UserID == "" {
		return Question{}, apperr.Invalid("user", errors.New("missing user id"))
	}
	res, err := s.composer.Compose(ctx, question.ComposeInput{
		DocumentID: req.DocumentID,
		UserID:     req.UserID,
		Level:      req.Level,
		Topic:      strings.TrimSpace(req.Topic),
	})
	if err != nil {
		return Question{}, err
	}

	q := res.Question
	return Question{
		ID:         q.ID,
		DocumentID: q.DocumentID,
		Level:      q.Level,
		Topic:      q.Topic,
		Content:    q.PromptText,
		Options:    q.Options,
		Sources: lo.Map(res.Sources, func(c store.Chunk, _ int) ChunkSource {
			return ChunkSource{ChunkID: c.ID, Text: c.Text, Page: c.Page, Section: c.Section, Kind: c.Kind}
		}),
		Metadata: QuestionMetadata{Model: q.Model, Fallback: res.Fallback, CreatedAt: q.CreatedAt},
	}, nil
}

// SubmitAnswer grades an answer and records the level transition. Nothing
// is returned as success before the grade is committed.
func (s *Simulator) SubmitAnswer(ctx context.Context, req SubmitRequest) (GradingOutcome, error) {
	text := strings.TrimSpace(req.Text)
	switch {
	case req.UserID == "":
		return GradingOutcome{}, apperr.Invalid("user", errors.New("missing user id"))
	case text == "":
		return GradingOutcome{}, apperr.Invalid("answer_text", errors.New("must not be empty"))
	case utf8.RuneCountInString(text) > maxAnswerRunes:
		return GradingOutcome{}, apperr.Invalid("answer_text", fmt.Errorf("longer than %d characters", maxAnswerRunes))
	case len(req.IdempotencyKey) > maxKeyLen:
		return GradingOutcome{}, apperr.Invalid("idempotency_key", fmt.Errorf("longer than %d characters", maxKeyLen))
	}

	q, err := s.store.GetQuestion(ctx, req.QuestionID)
	if err != nil {
		return GradingOutcome{}, err
	}
	if q.UserID != req.UserID {
		return GradingOutcome{}, apperr.NotFound("question", req.QuestionID)
	}

	key := req.IdempotencyKey
	if key != "" {
		prior, err := s.store.GetAnswer(ctx, key)
		switch {
		case err == nil:
			if prior.QuestionID != q.ID || prior.UserID != req.UserID {
				return GradingOutcome{}, apperr.Invalid("idempotency_key", fmt.Errorf("key %q was used for another submission", key))
			}
			return s.outcome(ctx, q, prior, true)
		case !apperr.IsNotFound(err):
			return GradingOutcome{}, err
		}
	} else {
		key = uuid.NewString()
	}

	if q.Answered {
		return GradingOutcome{}, apperr.Invalid("question", store.ErrQuestionAnswered)
	}

	chunks, err := s.store.ChunksByID(ctx, q.SourceChunkIDs)
	if err != nil {
		return GradingOutcome{}, fmt.Errorf("load sources: %w", err)
	}

	assessment, err := s.grader.Grade(ctx, q, text, chunks)
	if err != nil {
		return GradingOutcome{}, err
	}
	result, err := grading.Validate(assessment.Raw)
	if err != nil {
		s.log.Error("rubric validation failed", "question_id", q.ID, "error", err.Error())
		return GradingOutcome{}, err
	}

	rec, err := s.recorder.Record(ctx, mastery.Submission{
		Answer: store.Answer{
			ID:                  key,
			QuestionID:          q.ID,
			UserID:              req.UserID,
			DocumentID:          q.DocumentID,
			Text:                text,
			Scores:              result.Scores,
			Feedback:            assessment.Feedback,
			Strengths:           assessment.Strengths,
			AreasForImprovement: assessment.AreasForImprovement,
			Model:               assessment.Model,
		},
		Hint: result.Hint,
	})
	if err != nil {
		return GradingOutcome{}, err
	}

	return buildOutcome(q, rec.Answer, chunks, rec.Duplicate), nil
}

// outcome rebuilds the response for an answer recorded earlier.
func (s *Simulator) outcome(ctx context.Context, q store.Question, a store.Answer, replayed bool) (GradingOutcome, error) {
	chunks, err := s.store.ChunksByID(ctx, q.SourceChunkIDs)
	if err != nil {
		return GradingOutcome{}, fmt.Errorf("load sources: %w", err)
	}
	return buildOutcome(q, a, chunks, replayed), nil
}

func buildOutcome(q store.Question, a store.Answer, chunks []store.Chunk, replayed bool) GradingOutcome {
	return GradingOutcome{
		AnswerID:            a.ID,
		Scores:              a.Scores,
		Feedback:            a.Feedback,
		Strengths:           lo.Ternary(a.Strengths == nil, []string{}, a.Strengths),
		AreasForImprovement: lo.Ternary(a.AreasForImprovement == nil, []string{}, a.AreasForImprovement),
		LevelChange: LevelChange{
			Before: a.LevelBefore,
			After:  a.LevelAfter,
			Change: a.LevelAfter - a.LevelBefore,
			Reason: a.Reason,
		},
		GuidelineReferences: lo.Map(chunks, func(c store.Chunk, _ int) Reference {
			return Reference{Content: truncate(c.Text, referenceLen), Page: c.Page}
		}),
		AnswerKey:   q.AnswerKey,
		Explanation: q.Explanation,
		Replayed:    replayed,
	}
}

// GetProgress returns the learner's snapshot for a document.
func (s *Simulator) GetProgress(ctx context.Context, userID, documentID string) (Progress, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return Progress{}, err
	}
	snap, err := s.store.GetSnapshot(ctx, userID, documentID)
	if err != nil {
		return Progress{}, err
	}
	p := Progress{
		DocumentID:        documentID,
		CurrentLevel:      snap.CurrentLevel,
		QuestionsAnswered: snap.QuestionsAnswered,
		QuestionsCorrect:  snap.QuestionsCorrect,
		AvgScore:          snap.AvgScore,
	}
	if !snap.LastActive.IsZero() {
		p.LastActive = &snap.LastActive
	}
	return p, nil
}

// IngestDocument splits, classifies and stores a document.
func (s *Simulator) IngestDocument(ctx context.Context, req document.IngestRequest) (Document, error) {
	doc, err := s.ingester.Ingest(ctx, req)
	if err != nil {
		return Document{}, err
	}
	return documentView(doc, 1), nil
}

// GetDocument returns a document with the learner's current level on it.
func (s *Simulator) GetDocument(ctx context.Context, userID, id string) (Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return Document{}, err
	}
	snap, err := s.store.GetSnapshot(ctx, userID, id)
	if err != nil {
		return Document{}, err
	}
	return documentView(doc, snap.CurrentLevel), nil
}

// ListDocuments returns all documents, optionally restricted to a specialty.
func (s *Simulator) ListDocuments(ctx context.Context, specialty store.Specialty) ([]Document, error) {
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	if specialty != "" {
		docs = lo.Filter(docs, func(d store.Document, _ int) bool { return d.Specialty == specialty })
	}
	return lo.Map(docs, func(d store.Document, _ int) Document { return documentView(d, 0) }), nil
}

// Rubric describes the grading rubric.
func (s *Simulator) Rubric() grading.RubricDescription {
	return grading.Rubric()
}

// Statistics returns aggregate grading statistics.
func (s *Simulator) Statistics(ctx context.Context) (Statistics, error) {
	st, err := s.store.AnswerStats(ctx)
	if err != nil {
		return Statistics{}, err
	}
	return Statistics{TotalAnswers: st.TotalAnswers, AverageScores: st.Average}, nil
}

func documentView(d store.Document, level int) Document {
	return Document{
		ID:               d.ID,
		Title:            d.Title,
		Type:             d.Type,
		Specialty:        d.Specialty,
		UploadedAt:       d.CreatedAt,
		ChunkCount:       d.ChunkCount,
		UserMasteryLevel: level,
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
