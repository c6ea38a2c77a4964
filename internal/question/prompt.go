package question

import (
	"fmt"
	"strings"

	"github.com/abhisek/rounds/internal/store"
)

const systemPrompt = `You write clinical scenario questions for hospital physicians in training.

Rules:
- Ground every clinical fact in the guideline excerpts provided. Do not invent recommendations.
- Follow the difficulty brief exactly: vignette length, question form and option count.
- Options are plain text without "A)" style prefixes.
- The explanation is revealed after the learner answers; cite the excerpt and page it relies on.`

// buildUserMessage renders the difficulty brief and the grounding excerpts.
func buildUserMessage(doc store.Document, t Template, chunks []store.Chunk, topic string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Document: %s (%s, %s)\n", doc.Title, doc.Type, doc.Specialty)
	fmt.Fprintf(&b, "Difficulty: %s\n", t.Label)
	fmt.Fprintf(&b, "Goal: %s\n", t.Goal)
	fmt.Fprintf(&b, "Vignette: %s\n", t.Vignette)
	if t.OptionCount > 0 {
		fmt.Fprintf(&b, "Options: exactly %d\n", t.OptionCount)
	} else {
		b.WriteString("Options: none (free-text answer)\n")
	}
	if topic != "" {
		fmt.Fprintf(&b, "Focus topic: %s\n", topic)
	}

	b.WriteString("\nRequirements:\n")
	for _, r := range t.Rules {
		fmt.Fprintf(&b, "- %s\n", r)
	}

	b.WriteString("\nGuideline excerpts:\n")
	for i, c := range chunks {
		fmt.Fprintf(&b, "\n[Excerpt %d, page %d, %s]\n%s\n", i+1, c.Page, c.Kind, c.Text)
	}

	return b.String()
}

// promptText is the learner-facing rendering of a draft.
func promptText(d Draft) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(d.Vignette))
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(d.Question))
	for i, opt := range d.Options {
		fmt.Fprintf(&b, "\n%c) %s", 'A'+i, strings.TrimSpace(opt))
	}
	return b.String()
}
