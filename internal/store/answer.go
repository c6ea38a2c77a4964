package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/rounds/internal/apperr"
)

var answerColumns = []string{
	"id", "question_id", "user_id", "document_id", "answer_text",
	"clinical_accuracy", "risk_assessment", "communication", "efficiency", "total_score",
	"level_before", "level_after", "level_delta", "reason", "feedback",
	"strengths", "areas_for_improvement", "model", "created_at",
}

// CommitGrade records a graded answer in one transaction: the answer row
// (deduplicated by id), the compare-and-swap snapshot update and the
// question's answered flag. It returns ErrDuplicateAnswer if the answer id
// exists, ErrQuestionAnswered if the question was graded under another id
// and ErrSnapshotConflict if the snapshot moved past ExpectedVersion.
// Nothing is written in any of those cases.
func (s *Store) CommitGrade(ctx context.Context, c GradeCommit) error {
	a := c.Answer
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now()
	}

	insertAnswer, insertArgs := s.builder().Insert("answers").
		Columns(answerColumns...).
		Values(a.ID, a.QuestionID, a.UserID, a.DocumentID, a.Text,
			a.Scores.ClinicalAccuracy, a.Scores.RiskAssessment, a.Scores.Communication, a.Scores.Efficiency, a.Scores.Total,
			a.LevelBefore, a.LevelAfter, a.LevelDelta, a.Reason, a.Feedback,
			toJSON(a.Strengths), toJSON(a.AreasForImprovement), a.Model, a.CreatedAt).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing()).
		Query()

	markAnswered, markArgs := s.builder().Update("questions").
		Set("answered", true).
		Where(entsql.And(entsql.EQ("id", a.QuestionID), entsql.EQ("answered", false))).
		Query()

	return withRetry(ctx, "commit grade", func(ctx context.Context) error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			n, err := execAffected(ctx, tx, insertAnswer, insertArgs)
			if err != nil {
				return fmt.Errorf("insert answer: %w", err)
			}
			if n == 0 {
				return ErrDuplicateAnswer
			}

			if err := s.casSnapshot(ctx, tx, c.Snapshot, c.ExpectedVersion); err != nil {
				return err
			}

			n, err = execAffected(ctx, tx, markAnswered, markArgs)
			if err != nil {
				return fmt.Errorf("mark question answered: %w", err)
			}
			if n == 0 {
				return ErrQuestionAnswered
			}
			return nil
		})
	})
}

// GetAnswer returns the answer recorded under id.
func (s *Store) GetAnswer(ctx context.Context, id string) (Answer, error) {
	query, args := s.builder().Select(answerColumns...).
		From(s.table("answers")).
		Where(entsql.EQ("id", id)).
		Query()

	var a Answer
	err := withRetry(ctx, "get answer", func(ctx context.Context) error {
		return scanAnswer(s.db.QueryRowContext(ctx, query, args...), &a)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Answer{}, apperr.NotFound("answer", id)
	}
	if err != nil {
		return Answer{}, fmt.Errorf("get answer: %w", err)
	}
	return a, nil
}

// ListAnswers returns the pair's answers, oldest first.
func (s *Store) ListAnswers(ctx context.Context, userID, documentID string) ([]Answer, error) {
	query, args := s.builder().Select(answerColumns...).
		From(s.table("answers")).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("document_id", documentID))).
		OrderBy("created_at", "id").
		Query()

	var answers []Answer
	err := withRetry(ctx, "list answers", func(ctx context.Context) error {
		answers = answers[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var a Answer
			if err := scanAnswer(rows, &a); err != nil {
				return err
			}
			answers = append(answers, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return answers, nil
}

func scanAnswer(row scanner, a *Answer) error {
	return row.Scan(
		&a.ID, &a.QuestionID, &a.UserID, &a.DocumentID, &a.Text,
		&a.Scores.ClinicalAccuracy, &a.Scores.RiskAssessment, &a.Scores.Communication, &a.Scores.Efficiency, &a.Scores.Total,
		&a.LevelBefore, &a.LevelAfter, &a.LevelDelta, &a.Reason, &a.Feedback,
		jsonList{&a.Strengths}, jsonList{&a.AreasForImprovement}, &a.Model, &a.CreatedAt,
	)
}

// AnswerStats returns the answer count and mean scores across all answers.
func (s *Store) AnswerStats(ctx context.Context) (AnswerStats, error) {
	query, args := s.builder().Select(
		entsql.Count("*"),
		entsql.Avg("clinical_accuracy"),
		entsql.Avg("risk_assessment"),
		entsql.Avg("communication"),
		entsql.Avg("efficiency"),
		entsql.Avg("total_score"),
	).From(s.table("answers")).Query()

	var (
		stats AnswerStats
		avg   [5]sql.NullFloat64
	)
	err := withRetry(ctx, "answer stats", func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, query, args...).Scan(&stats.TotalAnswers, &avg[0], &avg[1], &avg[2], &avg[3], &avg[4])
	})
	if err != nil {
		return AnswerStats{}, fmt.Errorf("answer stats: %w", err)
	}
	stats.Average = ScoreVector{
		ClinicalAccuracy: avg[0].Float64,
		RiskAssessment:   avg[1].Float64,
		Communication:    avg[2].Float64,
		Efficiency:       avg[3].Float64,
		Total:            avg[4].Float64,
	}
	return stats, nil
}
