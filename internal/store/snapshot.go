package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

var snapshotColumns = []string{
	"user_id", "document_id", "current_level", "questions_answered", "questions_correct",
	"avg_score", "level_streak", "last_active", "version",
}

// GetSnapshot returns the mastery snapshot for the pair. A pair with no
// graded answers yields NewSnapshot (level 1, version 0).
func (s *Store) GetSnapshot(ctx context.Context, userID, documentID string) (MasterySnapshot, error) {
	query, args := s.builder().Select(snapshotColumns...).
		From(s.table("mastery_snapshots")).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("document_id", documentID))).
		Query()

	snap := NewSnapshot(userID, documentID)
	err := withRetry(ctx, "get snapshot", func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, query, args...).Scan(
			&snap.UserID, &snap.DocumentID, &snap.CurrentLevel, &snap.QuestionsAnswered,
			&snap.QuestionsCorrect, &snap.AvgScore, &snap.LevelStreak, &snap.LastActive, &snap.Version,
		)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return NewSnapshot(userID, documentID), nil
	}
	if err != nil {
		return MasterySnapshot{}, fmt.Errorf("get snapshot: %w", err)
	}
	return snap, nil
}

// casSnapshot writes snap if the stored version still equals expected and
// bumps the version. Version 0 means no row exists yet.
func (s *Store) casSnapshot(ctx context.Context, q querier, snap MasterySnapshot, expected int64) error {
	var (
		query string
		args  []any
	)
	if expected == 0 {
		query, args = s.builder().Insert("mastery_snapshots").
			Columns(snapshotColumns...).
			Values(snap.UserID, snap.DocumentID, snap.CurrentLevel, snap.QuestionsAnswered,
				snap.QuestionsCorrect, snap.AvgScore, snap.LevelStreak, snap.LastActive, int64(1)).
			OnConflict(entsql.ConflictColumns("user_id", "document_id"), entsql.DoNothing()).
			Query()
	} else {
		query, args = s.builder().Update("mastery_snapshots").
			Set("current_level", snap.CurrentLevel).
			Set("questions_answered", snap.QuestionsAnswered).
			Set("questions_correct", snap.QuestionsCorrect).
			Set("avg_score", snap.AvgScore).
			Set("level_streak", snap.LevelStreak).
			Set("last_active", snap.LastActive).
			Set("version", expected+1).
			Where(entsql.And(
				entsql.EQ("user_id", snap.UserID),
				entsql.EQ("document_id", snap.DocumentID),
				entsql.EQ("version", expected),
			)).
			Query()
	}

	n, err := execAffected(ctx, q, query, args)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if n == 0 {
		return ErrSnapshotConflict
	}
	return nil
}
