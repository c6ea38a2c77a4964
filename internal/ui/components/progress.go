package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/rounds/internal/ui/theme"
)

// ProgressBar renders value out of max as a horizontal bar.
type ProgressBar struct {
	Label string
	// LabelWidth pads the label so stacked bars line up.
	LabelWidth int
	Value      float64
	Max        float64
	Width      int
}

func NewProgressBar(label string, value, max float64, width int) ProgressBar {
	return ProgressBar{Label: label, Value: value, Max: max, Width: width}
}

// Fraction is Value/Max clamped to [0, 1]. A non-positive Max yields 0.
func (p ProgressBar) Fraction() float64 {
	if p.Max <= 0 {
		return 0
	}
	f := p.Value / p.Max
	return min(max(f, 0), 1)
}

// View renders the bar. Glyphs carry the fill so it reads without color.
func (p ProgressBar) View() string {
	var b strings.Builder

	if p.Label != "" {
		label := p.Label
		if pad := p.LabelWidth - lipgloss.Width(label); pad > 0 {
			label += strings.Repeat(" ", pad)
		}
		b.WriteString(theme.Label.Render(label))
		b.WriteString("  ")
	}

	suffix := fmt.Sprintf("  %s/%s", trimFloat(p.Value), trimFloat(p.Max))

	barWidth := p.Width - lipgloss.Width(b.String()) - len(suffix)
	if barWidth < 4 {
		barWidth = 4
	}

	filled := int(float64(barWidth)*p.Fraction() + 0.5)
	b.WriteString(theme.ProgressFilled.Render(strings.Repeat("█", filled)))
	b.WriteString(theme.ProgressEmpty.Render(strings.Repeat("░", barWidth-filled)))
	b.WriteString(theme.Body.Render(suffix))
	return b.String()
}

// trimFloat prints whole numbers without a decimal point.
func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}
