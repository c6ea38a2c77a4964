// Package report renders engine results for the terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/abhisek/rounds/internal/grading"
	"github.com/abhisek/rounds/internal/mastery"
	"github.com/abhisek/rounds/internal/question"
	"github.com/abhisek/rounds/internal/simulator"
	"github.com/abhisek/rounds/internal/store"
	"github.com/abhisek/rounds/internal/ui/components"
	"github.com/abhisek/rounds/internal/ui/theme"
)

const labelWidth = 18

// levelLabel returns the template label, or a bare "Level N".
func levelLabel(level int) string {
	if t, err := question.TemplateFor(level); err == nil {
		return t.Label
	}
	return fmt.Sprintf("Level %d", level)
}

// Question renders a generated question with lettered options.
func Question(q simulator.Question, width int) string {
	lines := []string{theme.Body.Render(q.Content)}
	if len(q.Options) > 0 {
		lines = append(lines, "")
		for i, opt := range q.Options {
			lines = append(lines, fmt.Sprintf("%c) %s", 'A'+i, opt))
		}
	}
	lines = append(lines, "", theme.Hint.Render("question id "+q.ID))
	if q.Metadata.Fallback {
		lines = append(lines, theme.Hint.Render("few passages matched this level; drawn from the whole document"))
	}

	title := levelLabel(q.Level)
	if q.Topic != "" {
		title += " · " + q.Topic
	}
	return components.Card(title, lines, width)
}

// Outcome renders a graded answer: score bars, level movement and feedback.
func Outcome(o simulator.GradingOutcome, width int) string {
	inner := width - 4
	bar := func(label string, v, max float64) string {
		b := components.NewProgressBar(label, v, max, inner)
		b.LabelWidth = labelWidth
		return b.View()
	}

	lines := []string{
		bar("Clinical accuracy", o.Scores.ClinicalAccuracy, grading.MaxClinicalAccuracy),
		bar("Risk assessment", o.Scores.RiskAssessment, grading.MaxRiskAssessment),
		bar("Communication", o.Scores.Communication, grading.MaxCommunication),
		bar("Efficiency", o.Scores.Efficiency, grading.MaxEfficiency),
		bar("Total", o.Scores.Total, grading.MaxTotal),
		"",
		levelLine(o.LevelChange),
	}

	if o.Feedback != "" {
		lines = append(lines, "", theme.Body.Render(o.Feedback))
	}
	lines = appendList(lines, "Strengths", o.Strengths)
	lines = appendList(lines, "To improve", o.AreasForImprovement)

	if o.AnswerKey != "" {
		lines = append(lines, "", components.Field("Answer key", o.AnswerKey, labelWidth))
	}
	if o.Explanation != "" {
		lines = append(lines, components.Field("Why", o.Explanation, labelWidth))
	}
	for _, ref := range o.GuidelineReferences {
		lines = append(lines, theme.Hint.Render(fmt.Sprintf("[Page %d] %s", ref.Page, ref.Content)))
	}

	title := "Grade"
	if o.Replayed {
		title += " (previously recorded)"
	}
	return components.Card(title, lines, width)
}

func levelLine(lc simulator.LevelChange) string {
	switch {
	case lc.After > lc.Before:
		return theme.Promoted.Render(fmt.Sprintf("▲ Level %d → %d", lc.Before, lc.After)) + "  " + lc.Reason
	case lc.After < lc.Before:
		return theme.Demoted.Render(fmt.Sprintf("▼ Level %d → %d", lc.Before, lc.After)) + "  " + lc.Reason
	default:
		return theme.Steady.Render(fmt.Sprintf("■ Level %d", lc.After)) + "  " + lc.Reason
	}
}

func appendList(lines []string, heading string, items []string) []string {
	if len(items) == 0 {
		return lines
	}
	lines = append(lines, "", theme.Label.Render(heading))
	for _, it := range items {
		lines = append(lines, "  • "+it)
	}
	return lines
}

// Progress renders a learner's standing on one document.
func Progress(p simulator.Progress, title string, width int) string {
	inner := width - 4
	level := components.NewProgressBar("Level", float64(p.CurrentLevel), mastery.MaxLevel, inner)
	level.LabelWidth = labelWidth
	avg := components.NewProgressBar("Average score", p.AvgScore, grading.MaxTotal, inner)
	avg.LabelWidth = labelWidth

	lines := []string{
		theme.Body.Render(levelLabel(p.CurrentLevel)),
		"",
		level.View(),
		avg.View(),
		"",
		components.Field("Answered", fmt.Sprintf("%d", p.QuestionsAnswered), labelWidth),
		components.Field("Correct", fmt.Sprintf("%d (%s)", p.QuestionsCorrect, percent(p.QuestionsCorrect, p.QuestionsAnswered)), labelWidth),
	}
	if p.LastActive != nil {
		lines = append(lines, components.Field("Last active", p.LastActive.Local().Format("2006-01-02 15:04"), labelWidth))
	} else {
		lines = append(lines, theme.Hint.Render("No answers yet."))
	}

	if title == "" {
		title = p.DocumentID
	}
	return components.Card(title, lines, width)
}

func percent(n, of int) string {
	if of == 0 {
		return "0%"
	}
	return fmt.Sprintf("%d%%", n*100/of)
}

// Rubric renders the grading rubric.
func Rubric(r grading.RubricDescription, width int) string {
	var lines []string
	for i, c := range r.Categories {
		if i > 0 {
			lines = append(lines, "")
		}
		lines = append(lines,
			theme.Title.Render(fmt.Sprintf("%s (%s pts, weight %.0f%%)", c.Name, trim(c.MaxPoints), c.Weight*100)),
			theme.Body.Render(c.Description),
		)
		for _, cr := range c.Criteria {
			lines = append(lines, "  • "+cr)
		}
	}
	lines = append(lines, "", components.Field("Maximum", trim(r.MaxTotal), labelWidth))
	return components.Card("Grading rubric", lines, width)
}

// Statistics renders grade averages across every learner.
func Statistics(s simulator.Statistics, width int) string {
	if s.TotalAnswers == 0 {
		return components.Card("Statistics", []string{theme.Hint.Render("No answers graded yet.")}, width)
	}
	inner := width - 4
	bar := func(label string, v, max float64) string {
		b := components.NewProgressBar(label, v, max, inner)
		b.LabelWidth = labelWidth
		return b.View()
	}
	avg := s.AverageScores
	lines := []string{
		components.Field("Answers", fmt.Sprintf("%d", s.TotalAnswers), labelWidth),
		"",
		bar("Clinical accuracy", round1(avg.ClinicalAccuracy), grading.MaxClinicalAccuracy),
		bar("Risk assessment", round1(avg.RiskAssessment), grading.MaxRiskAssessment),
		bar("Communication", round1(avg.Communication), grading.MaxCommunication),
		bar("Efficiency", round1(avg.Efficiency), grading.MaxEfficiency),
		bar("Total", round1(avg.Total), grading.MaxTotal),
	}
	return components.Card("Statistics", lines, width)
}

// Documents renders a plain table of documents.
func Documents(docs []simulator.Document) string {
	if len(docs) == 0 {
		return "No documents ingested yet.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-36s  %-32s  %-10s  %-12s  %6s  %s\n",
		"ID", "Title", "Type", "Specialty", "Chunks", "Uploaded")
	b.WriteString(strings.Repeat("─", 120))
	b.WriteString("\n")
	for _, d := range docs {
		fmt.Fprintf(&b, "%-36s  %-32s  %-10s  %-12s  %6d  %s\n",
			d.ID, clip(d.Title, 32), d.Type, specialtyName(d.Specialty), d.ChunkCount,
			d.UploadedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&b, "\n%d documents\n", len(docs))
	return b.String()
}

func specialtyName(s store.Specialty) string {
	if s == store.SpecialtyICU {
		return "ICU"
	}
	return string(s)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func trim(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}
