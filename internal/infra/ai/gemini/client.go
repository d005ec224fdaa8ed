package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/bryanwahyu/bioscan/internal/domain/exams"
	"github.com/bryanwahyu/bioscan/internal/infra/ai/prompt"
	"github.com/bryanwahyu/bioscan/internal/infra/payload"
)

const (
	DefaultModel   = "gemini-2.5-flash"
	DefaultTimeout = 2 * time.Minute
)

const tracerName = "github.com/bryanwahyu/bioscan/gemini"

// Client implements exams.Analyzer on the Gemini generateContent endpoint.
// The credential is supplied per call, so one Client serves every session.
type Client struct {
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Log        *zap.Logger
	// Tracer defaults to the global provider installed by telemetry.Setup.
	Tracer trace.Tracer
}

func NewClient(model, baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{Model: model, BaseURL: baseURL, Timeout: timeout, Log: log}
}

func (c *Client) model() string {
	if c.Model == "" {
		return DefaultModel
	}
	return c.Model
}

func (c *Client) tracer() trace.Tracer {
	if c.Tracer != nil {
		return c.Tracer
	}
	return otel.Tracer(tracerName)
}

func (c *Client) Analyze(ctx context.Context, p exams.Payload, credential string) (*exams.AnalysisResponse, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, exams.ErrMissingCredential
	}
	data, err := payload.Decode(p)
	if err != nil {
		return nil, err
	}
	mime := p.MIMEType
	if mime == "" {
		mime = exams.MIMETypePDF
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, span := c.tracer().Start(ctx, "gemini.GenerateContent", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("gemini.model", c.model()),
		attribute.Int("document.bytes", len(data)),
	)

	res, err := c.generate(ctx, data, mime, credential)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(exams.KindOf(err)))
		c.Log.Warn("analysis failed",
			zap.String("document", p.Name),
			zap.String("kind", string(exams.KindOf(err))),
			zap.Error(err))
		return nil, err
	}
	span.SetAttributes(attribute.Int("exams.count", len(res.Exams)))
	c.Log.Info("analysis completed",
		zap.String("document", p.Name),
		zap.Int("exams", len(res.Exams)))
	return res, nil
}

func (c *Client) generate(ctx context.Context, data []byte, mime, credential string) (*exams.AnalysisResponse, error) {
	cfg := &genai.ClientConfig{
		APIKey:     credential,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.HTTPClient,
	}
	if c.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %v", exams.ErrUnexpected, err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt.Instruction),
			genai.NewPartFromBytes(data, mime),
		}, genai.RoleUser),
	}

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, c.model(), contents, prompt.GenerateConfig())
	c.Log.Debug("generateContent returned",
		zap.String("model", c.model()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("ok", err == nil))
	if err != nil {
		return nil, classify(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, exams.ErrEmptyResponse
	}
	return prompt.Decode(text)
}

// authReasons ErrorInfo reasons reported for a bad or revoked key.
var authReasons = map[string]bool{
	"API_KEY_INVALID":                 true,
	"API_KEY_EXPIRED":                 true,
	"API_KEY_SERVICE_BLOCKED":         true,
	"ACCESS_TOKEN_SCOPE_INSUFFICIENT": true,
}

// classify maps transport and API errors onto the exams taxonomy.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyAPI(apiErr, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return classifyAPI(*apiErrPtr, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", exams.ErrUnexpected, err)
	}
	// unstructured errors carry no status code; fall back to the message
	if strings.Contains(strings.ToLower(err.Error()), "api key") {
		return fmt.Errorf("%w: %v", exams.ErrAuthorization, err)
	}
	return fmt.Errorf("%w: %v", exams.ErrUnexpected, err)
}

func classifyAPI(apiErr genai.APIError, err error) error {
	if isAuthorization(apiErr) {
		return fmt.Errorf("%w: %v", exams.ErrAuthorization, err)
	}
	return fmt.Errorf("%w: %v", exams.ErrUnexpected, err)
}

func isAuthorization(e genai.APIError) bool {
	switch e.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	switch e.Status {
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		return true
	}
	for _, d := range e.Details {
		if reason, ok := d["reason"].(string); ok && authReasons[reason] {
			return true
		}
	}
	return false
}
