package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	dompanel "github.com/kailas-cloud/weightedterms/internal/domain/panel"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

// Text renders a payload for a terminal. Every chart type is drawn as a table;
// pie payloads get a percent column.
func Text(p Payload) string {
	var b strings.Builder
	title := p.Title
	if title == "" {
		title = p.ID
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	headers := []string{"#", "Term", "Count"}
	var rows [][]string
	switch {
	case p.Pie != nil:
		headers = append(headers, "%")
		for i, s := range p.Pie.Slices {
			rows = append(rows, []string{
				strconv.Itoa(i), s.Label, strconv.FormatInt(s.Value, 10), fmt.Sprintf("%.1f", s.Percent),
			})
		}
	case p.Table != nil:
		for i, r := range p.Table.Rows {
			rows = append(rows, []string{strconv.Itoa(i), r.Label, strconv.FormatInt(r.Value, 10)})
		}
	case p.Bar != nil:
		for _, s := range p.Bar.Series {
			rank, value := s.Data[0][0], s.Data[0][1]
			rows = append(rows, []string{strconv.FormatInt(rank, 10), s.Label, strconv.FormatInt(value, 10)})
		}
	}

	if p.CounterPos == "above" {
		b.WriteString(dimStyle.Render(counter(p)))
		b.WriteString("\n")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...)
	b.WriteString(t.Render())

	if p.CounterPos == "below" {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(counter(p)))
	}
	return b.String()
}

func counter(p Payload) string {
	if p.Chart == dompanel.ChartPie && p.Pie != nil {
		return fmt.Sprintf("%d terms, %d total", len(p.Pie.Slices), p.Total)
	}
	return fmt.Sprintf("total %d", p.Total)
}
