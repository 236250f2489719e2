// Package report renders evaluation results for terminals, scripts and
// Prometheus node_exporter textfile collectors.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/goccy/go-json"

	"recipes/internal/domain"
)

// MetricOrder is the display order of evaluation metrics.
var MetricOrder = []string{
	domain.MetricPrecision,
	domain.MetricRecall,
	domain.MetricMRR,
	domain.MetricCoverage,
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Width(12)
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Chart draws one horizontal bar per metric. Bars are scaled to 1.0 or
// to the largest value when coverage exceeds it.
func Chart(r domain.EvalReport, width int) string {
	if width <= 0 {
		width = 40
	}
	values := r.Map()
	scale := 1.0
	for _, v := range values {
		scale = math.Max(scale, v)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Recommendation metrics (k=%d)", r.K)))
	b.WriteString("\n")
	for _, name := range MetricOrder {
		v := values[name]
		n := int(math.Round(v / scale * float64(width)))
		if n < 0 {
			n = 0
		}
		bar := barStyle.Render(strings.Repeat("█", n))
		pad := strings.Repeat(" ", width-n)
		fmt.Fprintf(&b, "%s %s%s %.4f\n", labelStyle.Render(name), bar, pad, v)
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// Table lists metric values and the run's sample accounting.
func Table(r domain.EvalReport) string {
	values := r.Map()
	var b strings.Builder
	for _, name := range MetricOrder {
		fmt.Fprintf(&b, "%s %.4f\n", labelStyle.Render(name), values[name])
	}
	b.WriteString(mutedStyle.Render(fmt.Sprintf(
		"sampled %d of %d test recipes (%d missing), train %d, universe %d, took %s",
		r.Sampled, r.TestSize, r.Missing, r.TrainSize, r.Universe, r.Duration.Round(1e6),
	)))
	return b.String()
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r domain.EvalReport) error {
	data, err := json.MarshalIndent(struct {
		domain.EvalReport
		Metrics map[string]float64 `json:"metrics"`
	}{r, r.Map()}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
