package exams

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	domain "github.com/bryanwahyu/bioscan/internal/domain/exams"
	"github.com/bryanwahyu/bioscan/internal/infra/payload"
	"github.com/bryanwahyu/bioscan/internal/infra/storage"
)

// DocumentSource opens documents stored outside the local filesystem.
type DocumentSource interface {
	Open(ctx context.Context, ref string) (name string, rc io.ReadCloser, err error)
}

// Observer is told about every analysis attempt.
type Observer interface {
	AnalysisStarted()
	AnalysisFinished(err error)
}

// Service implements use-cases untuk analisa exam.
// Stateless, aman dipakai concurrent.
type Service struct {
	Encoder  *payload.Encoder
	Analyzer domain.Analyzer
	Source   DocumentSource
	Observer Observer
	Log      *zap.Logger
}

func NewService(enc *payload.Encoder, analyzer domain.Analyzer, log *zap.Logger) *Service {
	if enc == nil {
		enc = payload.NewEncoder(0)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Encoder: enc, Analyzer: analyzer, Log: log}
}

// Encode reads a document into a payload.
func (s *Service) Encode(name string, r io.Reader) (domain.Payload, error) {
	return s.Encoder.Encode(name, r)
}

// EncodeDocument accepts base64 text or a data URL.
func (s *Service) EncodeDocument(name, document string) (domain.Payload, error) {
	return s.Encoder.FromDataURL(name, document)
}

// AnalyzePayload runs exactly one analysis; no retries.
func (s *Service) AnalyzePayload(ctx context.Context, p domain.Payload, credential string) (*domain.AnalysisResponse, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, domain.ErrMissingCredential
	}
	if s.Observer != nil {
		s.Observer.AnalysisStarted()
	}
	res, err := s.Analyzer.Analyze(ctx, p, credential)
	if err == nil && res == nil {
		err = domain.ErrEmptyResponse
	}
	if err != nil && domain.KindOf(err) == domain.KindUnexpected && !errors.Is(err, domain.ErrUnexpected) {
		err = fmt.Errorf("%w: %v", domain.ErrUnexpected, err)
	}
	if s.Observer != nil {
		s.Observer.AnalysisFinished(err)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Analyze reads r and analyzes it. The credential is checked before the
// document is read.
func (s *Service) Analyze(ctx context.Context, name string, r io.Reader, credential string) (*domain.AnalysisResponse, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, domain.ErrMissingCredential
	}
	p, err := s.Encode(name, r)
	if err != nil {
		return nil, err
	}
	return s.AnalyzePayload(ctx, p, credential)
}

// AnalyzeRef analyzes a local path or an object-storage reference.
func (s *Service) AnalyzeRef(ctx context.Context, ref, credential string) (*domain.AnalysisResponse, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, domain.ErrMissingCredential
	}
	name, rc, err := s.open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	s.Log.Debug("document opened", zap.String("document", name))
	return s.Analyze(ctx, name, rc, credential)
}

func (s *Service) open(ctx context.Context, ref string) (string, io.ReadCloser, error) {
	if storage.IsRef(ref) {
		if s.Source == nil {
			return "", nil, fmt.Errorf("%w: object storage is not configured", domain.ErrFileRead)
		}
		return s.Source.Open(ctx, ref)
	}
	f, err := os.Open(ref)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", domain.ErrFileRead, err)
	}
	return filepath.Base(ref), f, nil
}
