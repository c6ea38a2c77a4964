package grading

import "github.com/abhisek/rounds/internal/llm"

// GradeSchema is the structured output requested from the grader. Score
// ranges are not constrained here; Validate clamps them.
var GradeSchema = &llm.Schema{
	Name:        "rubric-grade",
	Description: "A four-domain rubric evaluation of a clinical answer",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"clinical_accuracy_score": map[string]any{"type": "number", "description": "0-4"},
			"risk_assessment_score":   map[string]any{"type": "number", "description": "0-3"},
			"communication_score":     map[string]any{"type": "number", "description": "0-2"},
			"efficiency_score":        map[string]any{"type": "number", "description": "0-1"},
			"total_score":             map[string]any{"type": "number", "description": "0-10"},
			"feedback": map[string]any{
				"type":        "string",
				"description": "2-3 sentences explaining the scores",
			},
			"level_change": map[string]any{"type": "number", "description": "-1, 0 or 1"},
			"strengths": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"areas_for_improvement": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required": []any{
			"clinical_accuracy_score", "risk_assessment_score", "communication_score",
			"efficiency_score", "feedback", "level_change",
		},
	},
}
