package question

import "github.com/abhisek/rounds/internal/llm"

// QuestionSchema is the structured output requested from the model.
var QuestionSchema = &llm.Schema{
	Name:        "clinical-question",
	Description: "A clinical scenario question grounded on guideline excerpts",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"vignette": map[string]any{
				"type":        "string",
				"description": "The clinical vignette shown to the learner",
			},
			"question": map[string]any{
				"type":        "string",
				"description": "The question asked about the vignette",
			},
			"options": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Answer options without letter prefixes. Empty for free-text questions.",
			},
			"answer": map[string]any{
				"type":        "string",
				"description": "The correct answer: an option letter for option questions, otherwise the model answer",
			},
			"explanation": map[string]any{
				"type":        "string",
				"description": "Why the answer is correct, citing the excerpts",
			},
		},
		"required":             []any{"vignette", "question", "options", "answer", "explanation"},
		"additionalProperties": false,
	},
}
