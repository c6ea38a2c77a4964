package store

import "time"

// DocumentType classifies the source material.
type DocumentType string

const (
	DocumentGuideline DocumentType = "guideline"
	DocumentProtocol  DocumentType = "protocol"
	DocumentTextbook  DocumentType = "textbook"
)

// Specialty is the clinical area a document belongs to.
type Specialty string

const (
	SpecialtyHospitalist Specialty = "hospitalist"
	SpecialtyCardiology  Specialty = "cardiology"
	SpecialtyICU         Specialty = "icu"
)

// Document is an ingested source.
type Document struct {
	ID         string
	Title      string
	Type       DocumentType
	Specialty  Specialty
	UploadedBy string
	ChunkCount int
	CreatedAt  time.Time
}

// ChunkKind is the clinical character of a passage, assigned at ingestion.
type ChunkKind string

const (
	KindStandard          ChunkKind = "standard"
	KindException         ChunkKind = "exception"
	KindContraindication  ChunkKind = "contraindication"
	KindSpecialPopulation ChunkKind = "special_population"
)

// AllChunkKinds lists every kind, in classifier precedence order.
var AllChunkKinds = []ChunkKind{KindContraindication, KindException, KindSpecialPopulation, KindStandard}

// Chunk is an immutable passage of a document.
type Chunk struct {
	ID         string
	DocumentID string
	Ordinal    int
	Text       string
	Page       int
	Section    string
	Kind       ChunkKind
}

// Question is a generated scenario question.
type Question struct {
	ID             string
	DocumentID     string
	UserID         string
	Level          int
	Topic          string
	PromptText     string
	Options        []string
	AnswerKey      string
	Explanation    string
	SourceChunkIDs []string
	Model          string
	Answered       bool
	CreatedAt      time.Time
}

// ScoreVector is a clamped rubric score. Total is always the sum of the
// four sub-scores.
type ScoreVector struct {
	ClinicalAccuracy float64 `json:"clinical_accuracy"`
	RiskAssessment   float64 `json:"risk_assessment"`
	Communication    float64 `json:"communication"`
	Efficiency       float64 `json:"efficiency"`
	Total            float64 `json:"total"`
}

// Answer is one grading event in the append-only ledger.
type Answer struct {
	ID                  string
	QuestionID          string
	UserID              string
	DocumentID          string
	Text                string
	Scores              ScoreVector
	LevelBefore         int
	LevelAfter          int
	LevelDelta          int
	Reason              string
	Feedback            string
	Strengths           []string
	AreasForImprovement []string
	Model               string
	CreatedAt           time.Time
}

// MasterySnapshot is the running aggregate for one (user, document) pair.
// Version is zero for a pair that has never been graded.
type MasterySnapshot struct {
	UserID            string
	DocumentID        string
	CurrentLevel      int
	QuestionsAnswered int
	QuestionsCorrect  int
	AvgScore          float64
	LevelStreak       int
	LastActive        time.Time
	Version           int64
}

// NewSnapshot returns the implicit snapshot of a learner with no history.
func NewSnapshot(userID, documentID string) MasterySnapshot {
	return MasterySnapshot{UserID: userID, DocumentID: documentID, CurrentLevel: 1}
}

// GradeCommit is everything persisted when one answer is graded.
// ExpectedVersion is the snapshot version the decision was based on.
type GradeCommit struct {
	Answer          Answer
	Snapshot        MasterySnapshot
	ExpectedVersion int64
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a recorded LLM call.
type LLMRequestEvent struct {
	ID        int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsage aggregates recorded requests by one grouping key.
type LLMUsage struct {
	Key          string
	Requests     int
	Failures     int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs float64
}

// AnswerStats aggregates every graded answer.
type AnswerStats struct {
	TotalAnswers int
	Average      ScoreVector
}
