package question

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/abhisek/rounds/internal/apperr"
	"github.com/abhisek/rounds/internal/llm"
	"github.com/abhisek/rounds/internal/logger"
	"github.com/abhisek/rounds/internal/metrics"
	"github.com/abhisek/rounds/internal/retrieval"
	"github.com/abhisek/rounds/internal/store"
)

// Retriever selects grounding passages.
type Retriever interface {
	Select(ctx context.Context, documentID string, level int, topic string) (retrieval.Selection, error)
}

// Store is the persistence the Composer needs.
type Store interface {
	GetDocument(ctx context.Context, id string) (store.Document, error)
	GetSnapshot(ctx context.Context, userID, documentID string) (store.MasterySnapshot, error)
	CreateQuestion(ctx context.Context, q store.Question) (store.Question, error)
}

// Composer generates and persists questions.
type Composer struct {
	provider  llm.Provider
	retriever Retriever
	store     Store
	config    Config
	log       *logger.Logger
}

func NewComposer(provider llm.Provider, retriever Retriever, s Store, cfg Config, log *logger.Logger) *Composer {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Composer{provider: provider, retriever: retriever, store: s, config: cfg, log: log}
}

// Compose generates a question for the learner. When in.Level is 0 the
// learner's current mastery level is used.
func (c *Composer) Compose(ctx context.Context, in ComposeInput) (Result, error) {
	doc, err := c.store.GetDocument(ctx, in.DocumentID)
	if err != nil {
		return Result{}, err
	}

	level := in.Level
	if level == 0 {
		snap, err := c.store.GetSnapshot(ctx, in.UserID, in.DocumentID)
		if err != nil {
			return Result{}, fmt.Errorf("resolve level: %w", err)
		}
		level = snap.CurrentLevel
	}
	tmpl, err := TemplateFor(level)
	if err != nil {
		return Result{}, apperr.Invalid("level", err)
	}

	sel, err := c.retriever.Select(ctx, in.DocumentID, level, in.Topic)
	if err != nil {
		return Result{}, err
	}
	if len(sel.Chunks) == 0 {
		return Result{}, &apperr.NotFoundError{Resource: "chunks", ID: in.DocumentID, Err: apperr.ErrInsufficientMaterial}
	}

	draft, model, err := c.generate(ctx, doc, tmpl, sel.Chunks, in.Topic)
	if err != nil {
		return Result{}, err
	}

	q, err := c.store.CreateQuestion(ctx, store.Question{
		DocumentID:     in.DocumentID,
		UserID:         in.UserID,
		Level:          level,
		Topic:          in.Topic,
		PromptText:     promptText(draft),
		Options:        draft.Options,
		AnswerKey:      draft.Answer,
		Explanation:    draft.Explanation,
		SourceChunkIDs: lo.Map(sel.Chunks, func(ch store.Chunk, _ int) string { return ch.ID }),
		Model:          model,
	})
	if err != nil {
		return Result{}, fmt.Errorf("save question: %w", err)
	}

	metrics.QuestionGenerated(level, sel.Fallback)
	c.log.Info("question generated",
		"question_id", q.ID,
		"document_id", in.DocumentID,
		"user_id", in.UserID,
		"level", level,
		"chunks", len(sel.Chunks),
		"fallback", sel.Fallback,
	)
	return Result{Question: q, Sources: sel.Chunks, Fallback: sel.Fallback}, nil
}

// generate asks the model for a draft, regenerating once more per
// configured attempt when the draft fails a retryable structural check.
func (c *Composer) generate(ctx context.Context, doc store.Document, t Template, chunks []store.Chunk, topic string) (Draft, string, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeQuestionGen)
	req := llm.UserPrompt(systemPrompt, buildUserMessage(doc, t, chunks, topic))
	req.Schema = QuestionSchema
	req.MaxTokens = c.config.MaxTokens
	req.Temperature = c.config.Temperature

	var lastErr error
	for attempt := range c.config.MaxAttempts {
		resp, err := c.provider.Generate(ctx, req)
		if err != nil {
			return Draft{}, "", llm.Classify("generate question", err)
		}

		var d Draft
		if err := llm.Decode(QuestionSchema, resp.Content, &d); err != nil {
			return Draft{}, "", llm.Classify("generate question", err)
		}

		err = CheckStructure(d, t)
		if err == nil {
			return d, resp.Model, nil
		}
		lastErr = err

		var se *StructuralError
		if !errors.As(err, &se) || !se.Retryable {
			break
		}
		c.log.Warn("generated question rejected", "attempt", attempt+1, "level", t.Level, "error", err.Error())
	}
	return Draft{}, "", apperr.Invalid("generated question", lastErr)
}
