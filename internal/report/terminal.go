package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	neon     = lipgloss.Color("#39ff14")
	amber    = lipgloss.Color("#facc15")
	red      = lipgloss.Color("#ef4444")
	gray     = lipgloss.Color("#9ca3af")
	dimGray  = lipgloss.Color("#4b5563")
	cardText = lipgloss.Color("#e5e7eb")
)

// Styles for the terminal report.
type Styles struct {
	Title      lipgloss.Style
	Label      lipgloss.Style
	Value      lipgloss.Style
	Summary    lipgloss.Style
	Card       lipgloss.Style
	Section    lipgloss.Style
	Muted      lipgloss.Style
	Disclaimer lipgloss.Style
	badge      map[Tone]lipgloss.Style
}

func NewStyles(width int) Styles {
	if width <= 0 {
		width = 80
	}
	badge := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c).Bold(true).Padding(0, 1).
			Border(lipgloss.NormalBorder(), false, true).BorderForeground(c)
	}
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(neon).
			Bold(true).
			MarginBottom(1),
		Label: lipgloss.NewStyle().
			Foreground(gray).
			Bold(true),
		Value: lipgloss.NewStyle().
			Foreground(cardText),
		Summary: lipgloss.NewStyle().
			Width(width-4).
			PaddingLeft(2).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(neon),
		Card: lipgloss.NewStyle().
			Width(width-4).
			Padding(0, 1).
			MarginTop(1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(dimGray),
		Section: lipgloss.NewStyle().
			Foreground(neon).
			Bold(true),
		Muted: lipgloss.NewStyle().
			Foreground(gray),
		Disclaimer: lipgloss.NewStyle().
			Width(width).
			MarginTop(1).
			Foreground(dimGray).
			Italic(true),
		badge: map[Tone]lipgloss.Style{
			ToneNormal:   badge(neon),
			ToneAltered:  badge(amber),
			ToneCritical: badge(red),
			ToneUnknown:  badge(gray),
		},
	}
}

// Render writes the report for v to w.
func Render(w io.Writer, v View, st Styles) error {
	var b strings.Builder
	b.WriteString(st.Title.Render("BIOSCAN AI · Relatório Laboratorial"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", st.Label.Render("Paciente:"), st.Value.Render(v.Patient))
	fmt.Fprintf(&b, "%s %s\n\n", st.Label.Render("Data da Análise:"), st.Value.Render(v.Date))

	b.WriteString(st.Section.Render("Resumo Clínico da IA"))
	b.WriteString("\n")
	b.WriteString(st.Summary.Render(v.Summary))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%s %s\n",
		st.Section.Render("Detalhamento Parâmetro a Parâmetro"),
		st.Muted.Render(fmt.Sprintf("(%d)", v.Count())))
	if parts := breakdown(v, st); parts != "" {
		b.WriteString(parts)
		b.WriteString("\n")
	}
	for _, e := range v.Exams {
		b.WriteString(st.Card.Render(renderExam(e, st)))
		b.WriteString("\n")
	}

	b.WriteString(st.Disclaimer.Render(Disclaimer))
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func breakdown(v View, st Styles) string {
	entries := v.Breakdown()
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, st.badge[e.Tone].Render(fmt.Sprintf("%d %s", e.Count, e.Label)))
	}
	return strings.Join(parts, " ")
}

func renderExam(e ExamView, st Styles) string {
	var b strings.Builder
	value := strings.TrimSpace(e.Value + " " + e.Unit)
	fmt.Fprintf(&b, "%s  %s  %s\n", st.Value.Bold(true).Render(e.Name), st.badge[e.Tone].Render(e.Status), st.Value.Render(value))
	if e.Reference != "" {
		fmt.Fprintf(&b, "%s\n", st.Muted.Render("Ref: "+e.Reference))
	}
	fmt.Fprintf(&b, "%s %s\n", st.Label.Render("Significado Clínico:"), e.Meaning)
	fmt.Fprintf(&b, "%s %s", st.Label.Render("Interpretação:"), e.Explanation)
	if e.Recommendation != "" {
		fmt.Fprintf(&b, "\n%s %s", st.Label.Render("Dica de Saúde:"), e.Recommendation)
	}
	return b.String()
}
