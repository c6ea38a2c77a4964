package simulator

import (
	"time"

	"github.com/abhisek/rounds/internal/store"
)

// Question is the learner-facing view of a generated question. The answer
// key stays server-side until the question is graded.
type Question struct {
	ID         string           `json:"question_id"`
	DocumentID string           `json:"document_id"`
	Level      int              `json:"level"`
	Topic      string           `json:"topic,omitempty"`
	Content    string           `json:"content"`
	Options    []string         `json:"options,omitempty"`
	Sources    []ChunkSource    `json:"sources"`
	Metadata   QuestionMetadata `json:"metadata"`
}

// ChunkSource is a passage a question was grounded on.
type ChunkSource struct {
	ChunkID string          `json:"chunk_id"`
	Text    string          `json:"text"`
	Page    int             `json:"page"`
	Section string          `json:"section,omitempty"`
	Kind    store.ChunkKind `json:"type"`
}

type QuestionMetadata struct {
	Model     string    `json:"model"`
	Fallback  bool      `json:"retrieval_fallback"`
	CreatedAt time.Time `json:"created_at"`
}

// GenerateRequest asks for a question. Level 0 uses the learner's current
// level.
type GenerateRequest struct {
	DocumentID string
	UserID     string
	Topic      string
	Level      int
}

// SubmitRequest is an answer to grade. IdempotencyKey is optional; a
// resubmission with the same key returns the recorded outcome.
type SubmitRequest struct {
	QuestionID     string
	UserID         string
	Text           string
	IdempotencyKey string
}

// GradingOutcome is the result of grading one answer.
type GradingOutcome struct {
	AnswerID            string            `json:"answer_id"`
	Scores              store.ScoreVector `json:"scores"`
	Feedback            string            `json:"feedback"`
	Strengths           []string          `json:"strengths"`
	AreasForImprovement []string          `json:"areas_for_improvement"`
	LevelChange         LevelChange       `json:"level_change"`
	GuidelineReferences []Reference       `json:"guideline_references"`
	AnswerKey           string            `json:"answer_key,omitempty"`
	Explanation         string            `json:"explanation,omitempty"`
	Replayed            bool              `json:"replayed,omitempty"`
}

type LevelChange struct {
	Before int    `json:"before"`
	After  int    `json:"after"`
	Change int    `json:"change"`
	Reason string `json:"reason"`
}

// Reference is a truncated guideline excerpt shown with a grade.
type Reference struct {
	Content string `json:"content"`
	Page    int    `json:"page"`
}

// Progress is a learner's standing on one document.
type Progress struct {
	DocumentID        string     `json:"document_id"`
	CurrentLevel      int        `json:"current_level"`
	QuestionsAnswered int        `json:"questions_answered"`
	QuestionsCorrect  int        `json:"questions_correct"`
	AvgScore          float64    `json:"avg_score"`
	LastActive        *time.Time `json:"last_active,omitempty"`
}

// Document is a document with the requesting learner's level.
type Document struct {
	ID               string             `json:"id"`
	Title            string             `json:"title"`
	Type             store.DocumentType `json:"document_type"`
	Specialty        store.Specialty    `json:"specialty"`
	UploadedAt       time.Time          `json:"uploaded_at"`
	ChunkCount       int                `json:"chunk_count"`
	UserMasteryLevel int                `json:"user_mastery_level"`
}

// Statistics summarizes every graded answer.
type Statistics struct {
	TotalAnswers  int               `json:"total_answers"`
	AverageScores store.ScoreVector `json:"average_scores"`
}
