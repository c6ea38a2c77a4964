package components

import (
	"strings"

	"github.com/abhisek/rounds/internal/ui/theme"
)

// Card wraps a titled block of lines in a rounded border.
func Card(title string, lines []string, width int) string {
	body := strings.Join(lines, "\n")
	if title != "" {
		body = theme.Title.Render(title) + "\n\n" + body
	}
	return theme.Card.Width(max(width, 10)).Render(body)
}

// Field renders a "label  value" row with the label padded to labelWidth.
func Field(label, value string, labelWidth int) string {
	if pad := labelWidth - len(label); pad > 0 {
		label += strings.Repeat(" ", pad)
	}
	return theme.Label.Render(label) + "  " + theme.Body.Render(value)
}
