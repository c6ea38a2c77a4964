package grading

import (
	"context"

	"github.com/abhisek/rounds/internal/llm"
	"github.com/abhisek/rounds/internal/logger"
	"github.com/abhisek/rounds/internal/store"
)

// Assessment is the grader's unvalidated verdict.
type Assessment struct {
	Raw                 RawScores
	Feedback            string
	Strengths           []string
	AreasForImprovement []string
	Model               string
}

type gradeOutput struct {
	RawScores
	Feedback            string   `json:"feedback"`
	Strengths           []string `json:"strengths"`
	AreasForImprovement []string `json:"areas_for_improvement"`
}

// Config controls the Grader.
type Config struct {
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

func DefaultConfig() Config {
	return Config{MaxTokens: 1024, Temperature: 0.3}
}

// Grader asks the model to score an answer.
type Grader struct {
	provider llm.Provider
	config   Config
	log      *logger.Logger
}

func NewGrader(provider llm.Provider, cfg Config, log *logger.Logger) *Grader {
	if log == nil {
		log = logger.Nop()
	}
	return &Grader{provider: provider, config: cfg, log: log}
}

// Grade scores answer to q against the excerpts q was generated from.
// Malformed model output is returned as a ValidationError.
func (g *Grader) Grade(ctx context.Context, q store.Question, answer string, chunks []store.Chunk) (Assessment, error) {
	req := llm.UserPrompt(systemPrompt, buildUserMessage(q, answer, chunks))
	req.Schema = GradeSchema
	req.MaxTokens = g.config.MaxTokens
	req.Temperature = g.config.Temperature

	resp, err := g.provider.Generate(llm.WithPurpose(ctx, llm.PurposeGrading), req)
	if err != nil {
		return Assessment{}, llm.Classify("grade answer", err)
	}

	var out gradeOutput
	if err := llm.Decode(GradeSchema, resp.Content, &out); err != nil {
		g.log.Warn("grader returned malformed output", "question_id", q.ID, "error", err.Error())
		return Assessment{}, llm.Classify("grade answer", err)
	}

	return Assessment{
		Raw:                 out.RawScores,
		Feedback:            out.Feedback,
		Strengths:           out.Strengths,
		AreasForImprovement: out.AreasForImprovement,
		Model:               resp.Model,
	}, nil
}
