package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/abhisek/rounds/internal/apperr"
)

var questionColumns = []string{
	"id", "document_id", "user_id", "level", "topic", "prompt_text", "options",
	"answer_key", "explanation", "source_chunk_ids", "model", "answered", "created_at",
}

// CreateQuestion persists q with answered=false.
func (s *Store) CreateQuestion(ctx context.Context, q Question) (Question, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now()
	}
	q.Answered = false

	query, args := s.builder().Insert("questions").
		Columns(questionColumns...).
		Values(q.ID, q.DocumentID, q.UserID, q.Level, q.Topic, q.PromptText, toJSON(q.Options),
			q.AnswerKey, q.Explanation, toJSON(q.SourceChunkIDs), q.Model, q.Answered, q.CreatedAt).
		Query()

	err := withRetry(ctx, "create question", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return Question{}, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// GetQuestion returns the question with the given id.
func (s *Store) GetQuestion(ctx context.Context, id string) (Question, error) {
	query, args := s.builder().Select(questionColumns...).
		From(s.table("questions")).
		Where(entsql.EQ("id", id)).
		Query()

	var q Question
	err := withRetry(ctx, "get question", func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, query, args...).Scan(
			&q.ID, &q.DocumentID, &q.UserID, &q.Level, &q.Topic, &q.PromptText, jsonList{&q.Options},
			&q.AnswerKey, &q.Explanation, jsonList{&q.SourceChunkIDs}, &q.Model, &q.Answered, &q.CreatedAt,
		)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, apperr.NotFound("question", id)
	}
	if err != nil {
		return Question{}, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}
