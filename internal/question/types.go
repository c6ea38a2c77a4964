// Package question composes level-calibrated clinical scenario questions
// grounded on retrieved guideline passages.
package question

import "github.com/abhisek/rounds/internal/store"

// Form is the shape of the question asked at a level.
type Form string

const (
	// FormBinary is a yes/no or true/false question.
	FormBinary Form = "binary"
	// FormMultipleChoice asks for the next step among four options.
	FormMultipleChoice Form = "multiple_choice"
	// FormOpenReasoning asks which finding matters, with one distractor.
	FormOpenReasoning Form = "open_reasoning"
	// FormTwoOption asks which of two defensible approaches is preferred.
	FormTwoOption Form = "two_option"
	// FormException asks why the standard approach would be harmful.
	FormException Form = "exception"
)

// Template is the generation brief for one difficulty level.
type Template struct {
	Level       int
	Label       string
	Goal        string
	Form        Form
	Vignette    string // expected vignette length
	OptionCount int    // 0 for free-text forms
	Rules       []string
}

// ComposeInput identifies what to generate. Level 0 means "use the learner's
// current level".
type ComposeInput struct {
	DocumentID string
	UserID     string
	Level      int
	Topic      string
}

// Draft is the generation output after schema validation, before it is
// persisted.
type Draft struct {
	Vignette    string   `json:"vignette"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation"`
}

// Result is a persisted question plus the passages that grounded it.
type Result struct {
	Question store.Question
	Sources  []store.Chunk
	Fallback bool
}
