package mastery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/rounds/internal/apperr"
	"github.com/abhisek/rounds/internal/logger"
	"github.com/abhisek/rounds/internal/metrics"
	"github.com/abhisek/rounds/internal/store"
)

// maxCommitAttempts bounds re-decisions after a snapshot conflict.
const maxCommitAttempts = 5

// Store is the persistence the Aggregator needs.
type Store interface {
	GetSnapshot(ctx context.Context, userID, documentID string) (store.MasterySnapshot, error)
	CommitGrade(ctx context.Context, c store.GradeCommit) error
	GetAnswer(ctx context.Context, id string) (store.Answer, error)
}

// Submission is a validated grade waiting to be recorded. Answer carries the
// idempotency key as its ID and the validated scores; the level fields are
// filled in by Record.
type Submission struct {
	Answer store.Answer
	Hint   int
}

// Outcome is what Record committed, or what an earlier commit under the same
// idempotency key recorded.
type Outcome struct {
	Answer    store.Answer
	Snapshot  store.MasterySnapshot
	Duplicate bool
}

// Aggregator records graded answers against the mastery snapshot.
type Aggregator struct {
	engine *Engine
	store  Store
	log    *logger.Logger
	now    func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the time source used to stamp LastActive.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func NewAggregator(engine *Engine, s Store, log *logger.Logger, opts ...Option) *Aggregator {
	if log == nil {
		log = logger.Nop()
	}
	a := &Aggregator{engine: engine, store: s, log: log, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Record decides the level transition for sub against the current snapshot
// and commits the answer, the new snapshot and the question's answered flag
// together. A concurrent writer on the same snapshot makes the commit fail
// its version check; Record then re-reads and decides again.
func (a *Aggregator) Record(ctx context.Context, sub Submission) (Outcome, error) {
	ans := sub.Answer
	if ans.ID == "" {
		return Outcome{}, apperr.Invalid("answer id", errors.New("empty idempotency key"))
	}

	for attempt := range maxCommitAttempts {
		prev, err := a.store.GetSnapshot(ctx, ans.UserID, ans.DocumentID)
		if err != nil {
			return Outcome{}, fmt.Errorf("read snapshot: %w", err)
		}

		total := ans.Scores.Total
		d := a.engine.Decide(Input{
			Score:    total,
			Level:    prev.CurrentLevel,
			Answered: a.engine.Counter(prev),
			Hint:     sub.Hint,
		})
		next := a.engine.Apply(prev, total, d, a.now().UTC())

		ans.LevelBefore = d.Before
		ans.LevelAfter = d.After
		ans.LevelDelta = d.Delta
		ans.Reason = d.Reason

		err = a.store.CommitGrade(ctx, store.GradeCommit{Answer: ans, Snapshot: next, ExpectedVersion: prev.Version})
		switch {
		case err == nil:
			next.Version = prev.Version + 1
			metrics.AnswerGraded(total, d.Delta)
			a.log.Info("answer recorded",
				"answer_id", ans.ID,
				"question_id", ans.QuestionID,
				"user_id", ans.UserID,
				"total", total,
				"level_before", d.Before,
				"level_after", d.After,
			)
			return Outcome{Answer: ans, Snapshot: next}, nil

		case errors.Is(err, store.ErrSnapshotConflict):
			metrics.SnapshotConflict()
			a.log.Debug("snapshot conflict, re-deciding",
				"user_id", ans.UserID,
				"document_id", ans.DocumentID,
				"attempt", attempt+1,
			)
			continue

		case errors.Is(err, store.ErrDuplicateAnswer):
			return a.replay(ctx, ans)

		case errors.Is(err, store.ErrQuestionAnswered):
			return Outcome{}, apperr.Invalid("question", err)

		default:
			return Outcome{}, err
		}
	}

	return Outcome{}, apperr.Transient("record grade", store.ErrSnapshotConflict)
}

// replay returns the outcome recorded earlier under ans.ID.
func (a *Aggregator) replay(ctx context.Context, ans store.Answer) (Outcome, error) {
	stored, err := a.store.GetAnswer(ctx, ans.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load recorded answer: %w", err)
	}
	if stored.QuestionID != ans.QuestionID || stored.UserID != ans.UserID {
		return Outcome{}, apperr.Invalid("idempotency key", fmt.Errorf("key %q was used for another submission", ans.ID))
	}
	snap, err := a.store.GetSnapshot(ctx, ans.UserID, ans.DocumentID)
	if err != nil {
		return Outcome{}, fmt.Errorf("read snapshot: %w", err)
	}
	return Outcome{Answer: stored, Snapshot: snap, Duplicate: true}, nil
}
