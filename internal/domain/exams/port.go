package exams

import "context"

// MIMETypePDF the only document type accepted by the analyzer.
const MIMETypePDF = "application/pdf"

// Payload a document encoded for transmission
type Payload struct {
	Name     string
	MIMEType string
	Data     string // base64, no data-URL prefix
}

// Analyzer port (interface to the external AI service)
type Analyzer interface {
	Analyze(ctx context.Context, p Payload, credential string) (*AnalysisResponse, error)
}
