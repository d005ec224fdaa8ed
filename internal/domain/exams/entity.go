package exams

import (
	"fmt"
	"strings"
)

// Status clinical classification of a single exam item
type Status string

const (
	StatusNormal   Status = "NORMAL"
	StatusAltered  Status = "ALTERADO"
	StatusCritical Status = "CRITICO"
	StatusUnknown  Status = "DESCONHECIDO"
)

// Statuses lists every accepted status, in schema order.
var Statuses = []Status{StatusNormal, StatusAltered, StatusCritical, StatusUnknown}

// ParseStatus returns the Status for a wire value. Anything outside the
// enumeration is rejected.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if s == string(st) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrParse, s)
}

// UnmarshalText keeps encoding/json from accepting free-form statuses.
func (s *Status) UnmarshalText(b []byte) error {
	st, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// PatientNotIdentified is the sentinel the model is asked to use when the
// document has no legible patient name.
const PatientNotIdentified = "Paciente não identificado"

// ExamItem one lab parameter extracted from the document
type ExamItem struct {
	Name            string `json:"nomeExame" yaml:"nomeExame"`
	MeasuredValue   string `json:"valorMedido" yaml:"valorMedido"`
	Unit            string `json:"unidade,omitempty" yaml:"unidade,omitempty"`
	ReferenceRange  string `json:"valorReferencia,omitempty" yaml:"valorReferencia,omitempty"`
	Status          Status `json:"status" yaml:"status"`
	ClinicalMeaning string `json:"significadoClinico" yaml:"significadoClinico"`
	Explanation     string `json:"explicacaoDetalhada" yaml:"explicacaoDetalhada"`
	Recommendation  string `json:"recomendacaoGeral,omitempty" yaml:"recomendacaoGeral,omitempty"`
}

// AnalysisResponse structured result of one analysis
type AnalysisResponse struct {
	Patient  string     `json:"paciente,omitempty" yaml:"paciente,omitempty"`
	ExamDate string     `json:"dataExame,omitempty" yaml:"dataExame,omitempty"`
	Summary  string     `json:"resumoGeral" yaml:"resumoGeral"`
	Exams    []ExamItem `json:"exames" yaml:"exames"`
}

// HasPatient reports whether the model identified the patient.
func (r *AnalysisResponse) HasPatient() bool {
	p := strings.TrimSpace(r.Patient)
	return p != "" && !strings.EqualFold(p, PatientNotIdentified)
}

// CountByStatus tallies exam items per status.
func (r *AnalysisResponse) CountByStatus() map[Status]int {
	out := make(map[Status]int, len(Statuses))
	for _, e := range r.Exams {
		out[e.Status]++
	}
	return out
}

// Validate checks the invariants that the response schema alone cannot
// express once the JSON has been decoded.
func (r *AnalysisResponse) Validate() error {
	if strings.TrimSpace(r.Summary) == "" {
		return fmt.Errorf("%w: resumoGeral is empty", ErrParse)
	}
	if r.Exams == nil {
		return fmt.Errorf("%w: exames is missing", ErrParse)
	}
	for i, e := range r.Exams {
		if strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("%w: exames[%d].nomeExame is empty", ErrParse, i)
		}
		if _, err := ParseStatus(string(e.Status)); err != nil {
			return fmt.Errorf("exames[%d]: %w", i, err)
		}
	}
	return nil
}
