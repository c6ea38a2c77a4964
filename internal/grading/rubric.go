// Package grading scores free-text answers against the four-domain clinical
// rubric. The model proposes a score vector; Validate turns it into one the
// rest of the engine can trust.
package grading

import (
	"math"

	"github.com/abhisek/rounds/internal/apperr"
	"github.com/abhisek/rounds/internal/store"
)

// Maximum points per rubric category.
const (
	MaxClinicalAccuracy = 4.0
	MaxRiskAssessment   = 3.0
	MaxCommunication    = 2.0
	MaxEfficiency       = 1.0
	MaxTotal            = MaxClinicalAccuracy + MaxRiskAssessment + MaxCommunication + MaxEfficiency
)

// RawScores is the score vector as reported by the model. None of it is
// trusted: values may be out of range and Total may disagree with the parts.
type RawScores struct {
	ClinicalAccuracy float64 `json:"clinical_accuracy_score"`
	RiskAssessment   float64 `json:"risk_assessment_score"`
	Communication    float64 `json:"communication_score"`
	Efficiency       float64 `json:"efficiency_score"`
	Total            float64 `json:"total_score"`
	LevelChangeHint  float64 `json:"level_change"`
}

// Result is a validated rubric score.
type Result struct {
	Scores store.ScoreVector
	// Hint is the model's suggested level change, one of -1, 0, 1.
	Hint int
}

// Validate clamps every sub-score into its range, recomputes the total from
// the clamped parts and clamps the level hint. The reported total is ignored.
func Validate(raw RawScores) (Result, error) {
	sv := store.ScoreVector{
		ClinicalAccuracy: clamp(raw.ClinicalAccuracy, MaxClinicalAccuracy),
		RiskAssessment:   clamp(raw.RiskAssessment, MaxRiskAssessment),
		Communication:    clamp(raw.Communication, MaxCommunication),
		Efficiency:       clamp(raw.Efficiency, MaxEfficiency),
	}
	sv.Total = sv.ClinicalAccuracy + sv.RiskAssessment + sv.Communication + sv.Efficiency

	res := Result{Scores: sv, Hint: clampHint(raw.LevelChangeHint)}
	if err := check(res); err != nil {
		return Result{}, err
	}
	return res, nil
}

func clamp(v, hi float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return math.Min(v, hi)
}

func clampHint(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Max(-1, math.Min(1, math.Round(v))))
}

// check is the post-condition on Validate's output.
func check(r Result) error {
	sv := r.Scores
	parts := []struct {
		name string
		v    float64
		hi   float64
	}{
		{"clinical_accuracy", sv.ClinicalAccuracy, MaxClinicalAccuracy},
		{"risk_assessment", sv.RiskAssessment, MaxRiskAssessment},
		{"communication", sv.Communication, MaxCommunication},
		{"efficiency", sv.Efficiency, MaxEfficiency},
		{"total", sv.Total, MaxTotal},
	}
	for _, p := range parts {
		if !(p.v >= 0 && p.v <= p.hi) {
			return apperr.Invariant("%s score %v outside [0, %v]", p.name, p.v, p.hi)
		}
	}
	if sum := sv.ClinicalAccuracy + sv.RiskAssessment + sv.Communication + sv.Efficiency; sum != sv.Total {
		return apperr.Invariant("total %v does not equal sub-score sum %v", sv.Total, sum)
	}
	if r.Hint < -1 || r.Hint > 1 {
		return apperr.Invariant("level hint %d outside {-1, 0, 1}", r.Hint)
	}
	return nil
}

// Category describes one rubric dimension.
type Category struct {
	Name        string   `json:"name"`
	MaxPoints   float64  `json:"max_points"`
	Weight      float64  `json:"weight"`
	Description string   `json:"description"`
	Criteria    []string `json:"criteria"`
}

// RubricDescription is the published rubric.
type RubricDescription struct {
	Categories []Category `json:"categories"`
	MaxTotal   float64    `json:"max_total"`
}

// Rubric returns the grading rubric shown to learners.
func Rubric() RubricDescription {
	return RubricDescription{
		MaxTotal: MaxTotal,
		Categories: []Category{
			{
				Name:        "Clinical Accuracy",
				MaxPoints:   MaxClinicalAccuracy,
				Weight:      0.4,
				Description: "Correct diagnosis and treatment per guidelines",
				Criteria: []string{
					"Evidence-based decision making",
					"Appropriate risk stratification",
					"Correct medication and dosing",
				},
			},
			{
				Name:        "Risk Assessment",
				MaxPoints:   MaxRiskAssessment,
				Weight:      0.3,
				Description: "Identifies complications and safety concerns",
				Criteria: []string{
					"Considers contraindications",
					"Identifies potential complications",
					"Appropriate monitoring plan",
				},
			},
			{
				Name:        "Communication",
				MaxPoints:   MaxCommunication,
				Weight:      0.2,
				Description: "Clear reasoning and stakeholder communication",
				Criteria: []string{
					"Clear explanation of reasoning",
					"Patient and family communication",
					"Appropriate consultation planning",
				},
			},
			{
				Name:        "Efficiency",
				MaxPoints:   MaxEfficiency,
				Weight:      0.1,
				Description: "Cost-effective and efficient care",
				Criteria: []string{
					"Avoids unnecessary tests",
					"Appropriate discharge planning",
					"Cost-conscious decisions",
				},
			},
		},
	}
}
