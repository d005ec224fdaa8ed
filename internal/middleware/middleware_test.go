package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bryanwahyu/bioscan/internal/domain/exams"
)

func TestCredentialFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", nil)
	assert.Empty(t, CredentialFromRequest(r))

	r.Header.Set("Authorization", "Bearer  VALID_KEY ")
	assert.Equal(t, "VALID_KEY", CredentialFromRequest(r))

	r.Header.Set(HeaderGoogAPIKey, "HEADER_KEY")
	assert.Equal(t, "HEADER_KEY", CredentialFromRequest(r))

	r = httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, CredentialFromRequest(r))
}

func TestAPICredential(t *testing.T) {
	var got string
	h := APICredential(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetCredentialFromContext(r.Context())
	}))
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set(HeaderGoogAPIKey, "VALID_KEY")
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "VALID_KEY", got)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Empty(t, got)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "limits are per client")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("1.2.3.4"))

	now = now.Add(visitorIdle + 2*time.Minute)
	rl.Allow("9.9.9.9")
	assert.Len(t, rl.visitors, 1)
}

func TestRateLimiter_MiddlewareSkipsReads(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	post := func() int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload", nil))
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	h := HealthHandler(map[string]HealthChecker{
		"credentials": CheckFunc(func(context.Context) error { return nil }),
		"minio":       CheckFunc(func(context.Context) error { return errors.New("unreachable") }),
	})
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "healthy", body.Checks["credentials"].Status)
	assert.Equal(t, "unreachable", body.Checks["minio"].Message)
}

func TestReadinessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	ReadinessHandler(nil)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	ReadinessHandler(CheckFunc(func(context.Context) error { return errors.New("down") }))(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLoggingDoesNotLogCredentials(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := Logging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	r := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", nil)
	r.Header.Set(HeaderGoogAPIKey, "SECRET_KEY")
	h.ServeHTTP(httptest.NewRecorder(), r)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, int64(http.StatusTeapot), entry.ContextMap()["status"])
	for _, v := range entry.ContextMap() {
		if s, ok := v.(string); ok {
			assert.NotContains(t, s, "SECRET_KEY")
		}
	}
}

func TestAnalysisObserver(t *testing.T) {
	before := GetMetrics()
	var obs AnalysisObserver
	obs.AnalysisStarted()
	obs.AnalysisFinished(nil)
	obs.AnalysisStarted()
	obs.AnalysisFinished(exams.ErrParse)

	m := GetMetrics()
	assert.Equal(t, before.Analyses+2, m.Analyses)
	assert.Equal(t, before.AnalysesFailed+1, m.AnalysesFailed)
	assert.Equal(t, before.FailuresByKind["parse"]+1, m.FailuresByKind["parse"])
	assert.Equal(t, before.AnalysesRunning, m.AnalysesRunning)

	rec := httptest.NewRecorder()
	MetricsMiddleware(http.HandlerFunc(MetricsHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "analyses_failed_by_kind"))
}

func TestMetricsMiddleware_CountsErrors(t *testing.T) {
	before := GetMetrics()
	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/analyze", nil))
	assert.Equal(t, before.ServerErrors+1, GetMetrics().ServerErrors)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "exam.pdf", SanitizeFilename("exam.pdf"))
	assert.Equal(t, "passwd", SanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "laudo.pdf", SanitizeFilename(`C:\Users\ana\laudo.pdf`))
	assert.Equal(t, DefaultFilename, SanitizeFilename(""))
	assert.Equal(t, "ab.pdf", SanitizeFilename("a\x00b\n.pdf"))
	long := strings.Repeat("x", 300) + ".pdf"
	got := SanitizeFilename(long)
	assert.Len(t, got, maxFilenameLen)
	assert.True(t, strings.HasSuffix(got, ".pdf"))
}
