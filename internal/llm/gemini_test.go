package llm

import (
	"testing"
)

func TestGeminiModelMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gemini-flash", "gemini-2.0-flash"},
		{"gemini-pro", "gemini-2.0-pro"},
		{"gemini-2.5-flash", "gemini-2.5-flash"}, // Pass-through
	}
	for _, tt := range tests {
		got := resolveModel(tt.input, geminiModels)
		if got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestBuildGeminiSchema(t *testing.T) {
	def := map[string]any{
		"type":        "object",
		"description": "rubric grade",
		"properties": map[string]any{
			"feedback":                map[string]any{"type": "string"},
			"clinical_accuracy_score": map[string]any{"type": "number"},
			"level_change":            map[string]any{"type": "integer"},
			"kind":                    map[string]any{"type": "string", "enum": []any{"standard", "exception", "contraindication"}},
			"strengths": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"confident": map[string]any{"type": "boolean"},
		},
		"required": []any{"feedback", "clinical_accuracy_score"},
	}

	schema := buildGeminiSchema(def)

	if schema.Type != "OBJECT" {
		t.Fatalf("expected OBJECT type, got %s", schema.Type)
	}
	if schema.Description != "rubric grade" {
		t.Fatalf("description = %q", schema.Description)
	}
	if len(schema.Properties) != 6 {
		t.Fatalf("expected 6 properties, got %d", len(schema.Properties))
	}
	wantTypes := map[string]string{
		"feedback":                "STRING",
		"clinical_accuracy_score": "NUMBER",
		"level_change":            "INTEGER",
		"strengths":               "ARRAY",
		"confident":               "BOOLEAN",
	}
	for name, want := range wantTypes {
		if got := string(schema.Properties[name].Type); got != want {
			t.Errorf("%s type = %s, want %s", name, got, want)
		}
	}
	if len(schema.Properties["kind"].Enum) != 3 {
		t.Fatalf("expected 3 enum values, got %d", len(schema.Properties["kind"].Enum))
	}
	if schema.Properties["strengths"].Items.Type != "STRING" {
		t.Fatalf("expected STRING items, got %s", schema.Properties["strengths"].Items.Type)
	}
	if len(schema.Required) != 2 {
		t.Fatalf("expected 2 required fields, got %d", len(schema.Required))
	}
}

func TestMapGeminiType_UnknownIsString(t *testing.T) {
	if got := mapGeminiType("null"); got != "STRING" {
		t.Fatalf("mapGeminiType(null) = %s", got)
	}
}
