// Package report turns an analysis into the view model shared by the web
// page and the terminal renderer.
package report

import (
	"time"

	"github.com/bryanwahyu/bioscan/internal/domain/exams"
)

const (
	UnknownPatient = "Não Identificado"
	APIKeyURL      = "https://aistudio.google.com/app/apikey"
	DateLayout     = "02/01/2006"

	Disclaimer = "AVISO LEGAL: Este sistema utiliza Inteligência Artificial para interpretar dados. " +
		"As informações aqui apresentadas são apenas para fins educativos e informativos. " +
		"NÃO substituem o diagnóstico ou aconselhamento de um médico profissional. " +
		"Consulte sempre seu médico para interpretação oficial dos exames."
)

// Tone visual class of a status.
type Tone string

const (
	ToneNormal   Tone = "normal"
	ToneAltered  Tone = "altered"
	ToneCritical Tone = "critical"
	ToneUnknown  Tone = "unknown"
)

func ToneOf(s exams.Status) Tone {
	switch s {
	case exams.StatusNormal:
		return ToneNormal
	case exams.StatusAltered:
		return ToneAltered
	case exams.StatusCritical:
		return ToneCritical
	default:
		return ToneUnknown
	}
}

// Label shown on the status badge.
func Label(s exams.Status) string {
	switch s {
	case exams.StatusNormal:
		return "NORMAL"
	case exams.StatusAltered:
		return "ALTERADO"
	case exams.StatusCritical:
		return "CRÍTICO"
	default:
		return "SEM REFERÊNCIA"
	}
}

type ExamView struct {
	Name           string
	Value          string
	Unit           string
	Reference      string
	Status         string
	Tone           Tone
	Meaning        string
	Explanation    string
	Recommendation string
}

type View struct {
	Patient string
	Date    string
	Summary string
	Exams   []ExamView
	Tally   map[Tone]int
}

// Count number of exam cards.
func (v View) Count() int { return len(v.Exams) }

// TallyEntry one status group in the result header.
type TallyEntry struct {
	Label string
	Tone  Tone
	Count int
}

var tallyOrder = []struct {
	tone  Tone
	label string
}{
	{ToneNormal, "normais"},
	{ToneAltered, "alterados"},
	{ToneCritical, "críticos"},
	{ToneUnknown, "sem referência"},
}

// Breakdown returns the non-zero tally groups in severity order.
func (v View) Breakdown() []TallyEntry {
	var out []TallyEntry
	for _, o := range tallyOrder {
		if n := v.Tally[o.tone]; n > 0 {
			out = append(out, TallyEntry{Label: o.label, Tone: o.tone, Count: n})
		}
	}
	return out
}

// Build fills in the patient and date fallbacks; now is used when the
// document carries no date.
func Build(res *exams.AnalysisResponse, now time.Time) View {
	v := View{Patient: UnknownPatient, Date: now.Format(DateLayout), Tally: map[Tone]int{}}
	if res == nil {
		return v
	}
	if res.HasPatient() {
		v.Patient = res.Patient
	}
	if res.ExamDate != "" {
		v.Date = res.ExamDate
	}
	v.Summary = res.Summary
	for st, n := range res.CountByStatus() {
		v.Tally[ToneOf(st)] += n
	}
	v.Exams = make([]ExamView, 0, len(res.Exams))
	for _, it := range res.Exams {
		tone := ToneOf(it.Status)
		v.Exams = append(v.Exams, ExamView{
			Name:           it.Name,
			Value:          it.MeasuredValue,
			Unit:           it.Unit,
			Reference:      it.ReferenceRange,
			Status:         Label(it.Status),
			Tone:           tone,
			Meaning:        it.ClinicalMeaning,
			Explanation:    it.Explanation,
			Recommendation: it.Recommendation,
		})
	}
	return v
}
