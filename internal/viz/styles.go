package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ProgressBar renders frac of width cells, colored by how far along it is.
func (s Styles) ProgressBar(frac float64, width int) string {
	frac = min(max(frac, 0), 1)
	filled := int(frac * float64(width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case frac >= 1:
		return s.Good.Render(bar)
	case frac > 0.4:
		return s.Warn.Render(bar)
	}
	return s.Muted.Render(bar)
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// Sparkline squeezes values into at most width cells.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	stride := max(len(values)/width, 1)
	var b strings.Builder
	for i := 0; i < width && i*stride < len(values); i++ {
		idx := int(math.Round((values[i*stride] - lo) / span * float64(len(sparkRunes)-1)))
		b.WriteRune(sparkRunes[min(max(idx, 0), len(sparkRunes)-1)])
	}
	return b.String()
}

// KeyValues renders aligned label/value rows.
func (s Styles) KeyValues(rows [][2]string) string {
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(s.Label.Render(r[0]))
		b.WriteString(s.Value.Render(r[1]))
		b.WriteByte('\n')
	}
	return b.String()
}

// Box puts content under a title inside a rounded border.
func (s Styles) Box(title, content string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(s.Muted.GetForeground()).
		Padding(0, 1)
	return box.Render(s.Title.Render(title) + "\n" + strings.TrimRight(content, "\n"))
}

// Status is the colored verdict for a pass/fail check.
func (s Styles) Status(ok bool, format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if ok {
		return s.Good.Render("✓ " + msg)
	}
	return s.Bad.Render("✗ " + msg)
}
