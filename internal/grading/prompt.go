package grading

import (
	"fmt"
	"strings"

	"github.com/abhisek/rounds/internal/store"
)

const systemPrompt = `You are a senior hospitalist mentor evaluating a colleague's clinical reasoning.

Grade against the whole job of a hospitalist, not medical accuracy alone:

1. CLINICAL ACCURACY (0-4): correct diagnosis and treatment per guidelines, evidence-based decisions, appropriate risk stratification.
2. RISK ASSESSMENT (0-3): identifies complications, considers contraindications, appropriate safety measures.
3. COMMUNICATION (0-2): clear reasoning, patient and family communication, consultation planning.
4. EFFICIENCY (0-1): cost-effective approach, discharge planning, avoids unnecessary tests.

Even a clinically correct answer loses points for failures in risk assessment, communication or efficiency.

level_change is +1 for excellent performance (total 8 or more), -1 when the answer needs review (total below 5), otherwise 0.`

// buildUserMessage renders the scenario, the learner's answer and the
// page-tagged guideline excerpts the question was grounded on.
func buildUserMessage(q store.Question, answer string, chunks []store.Chunk) string {
	var b strings.Builder

	b.WriteString("CLINICAL SCENARIO:\n")
	b.WriteString(q.PromptText)
	b.WriteString("\n\nLEARNER'S ANSWER:\n")
	b.WriteString(answer)
	b.WriteString("\n\nGUIDELINE REFERENCE:\n")
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Page %d] %s", c.Page, c.Text)
	}
	if q.AnswerKey != "" {
		fmt.Fprintf(&b, "\n\nEXPECTED ANSWER:\n%s", q.AnswerKey)
		if q.Explanation != "" {
			fmt.Fprintf(&b, "\n%s", q.Explanation)
		}
	}
	b.WriteString("\n\nEvaluate the answer with the four-domain rubric.")
	return b.String()
}
