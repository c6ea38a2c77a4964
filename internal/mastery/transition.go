// Package mastery decides level transitions from graded answers and keeps the
// per-learner, per-document mastery snapshot consistent under concurrent
// submissions.
package mastery

import (
	"fmt"
	"time"

	"github.com/abhisek/rounds/internal/store"
)

// Input is what a transition is decided on.
type Input struct {
	Score float64 // validated rubric total
	Level int
	// Answered is the consistency counter before this answer.
	Answered int
	Hint     int // -1, 0 or 1
}

// Decision is the outcome of one transition. Delta is the rule's verdict;
// After is clamped to the level range, so a demotion at level 1 has
// Delta -1 and After 1. Reason describes the actual move, not the verdict.
type Decision struct {
	Before int
	After  int
	Delta  int
	Reason string
}

// Changed reports whether the level actually moved.
func (d Decision) Changed() bool { return d.After != d.Before }

// Engine evaluates level transitions. It holds no state besides its
// configuration.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// RequiredConsistency returns how many answers level needs before a promotion.
func (e *Engine) RequiredConsistency(level int) int {
	if n, ok := e.cfg.RequiredConsistency[level]; ok {
		return n
	}
	return fallbackConsistency
}

// Counter returns the answer count that gates promotion for snap under the
// configured counter mode.
func (e *Engine) Counter(snap store.MasterySnapshot) int {
	if e.cfg.ConsistencyCounter == CounterLifetime {
		return snap.QuestionsAnswered
	}
	return snap.LevelStreak
}

// Decide applies the transition rules in order; the first match wins.
func (e *Engine) Decide(in Input) Decision {
	delta := 0
	switch {
	case in.Score < e.cfg.LevelDownThreshold:
		delta = -1
	case in.Hint > 0:
		if in.Answered >= e.RequiredConsistency(in.Level) && in.Score >= e.cfg.LevelUpThreshold {
			delta = 1
		}
	}

	after := clampLevel(in.Level + delta)
	return Decision{
		Before: in.Level,
		After:  after,
		Delta:  delta,
		Reason: e.reason(delta, after-in.Level, in.Score),
	}
}

// Move returns the level change actually applied.
func (d Decision) Move() int { return d.After - d.Before }

func (e *Engine) reason(delta, moved int, score float64) string {
	switch {
	case moved > 0:
		return fmt.Sprintf("Excellent work! Score: %.1f/10. You've advanced a level!", score)
	case moved < 0:
		return fmt.Sprintf("Score: %.1f/10. Let's review this topic before advancing.", score)
	case delta > 0:
		return fmt.Sprintf("Excellent work! Score: %.1f/10. You're already at the highest level.", score)
	case delta < 0:
		return fmt.Sprintf("Score: %.1f/10. Review the feedback and the basics of this guideline.", score)
	case score >= e.cfg.CorrectThreshold:
		return fmt.Sprintf("Good work! Score: %.1f/10. Keep practicing to advance.", score)
	default:
		return fmt.Sprintf("Score: %.1f/10. Review the feedback to improve.", score)
	}
}

// Apply folds one graded answer into prev. The version is left for the
// store to advance.
func (e *Engine) Apply(prev store.MasterySnapshot, total float64, d Decision, now time.Time) store.MasterySnapshot {
	next := prev
	n := float64(prev.QuestionsAnswered)
	next.AvgScore = (prev.AvgScore*n + total) / (n + 1)
	next.QuestionsAnswered++
	if total >= e.cfg.CorrectThreshold {
		next.QuestionsCorrect++
	}
	next.CurrentLevel = d.After
	if d.Changed() {
		next.LevelStreak = 0
	} else {
		next.LevelStreak++
	}
	next.LastActive = now
	return next
}

func clampLevel(level int) int {
	return max(MinLevel, min(MaxLevel, level))
}
