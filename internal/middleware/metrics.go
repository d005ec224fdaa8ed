package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryanwahyu/bioscan/internal/domain/exams"
)

// counters process-wide; /metrics is a JSON dump of these, not Prometheus.
type counters struct {
	requests   atomic.Uint64
	inFlight   atomic.Int64
	clientErrs atomic.Uint64
	serverErrs atomic.Uint64

	analyses atomic.Uint64
	running  atomic.Int64

	mu     sync.Mutex
	byKind map[exams.Kind]uint64

	start time.Time
}

var stats = &counters{byKind: make(map[exams.Kind]uint64), start: time.Now()}

// Snapshot point-in-time view served by MetricsHandler.
type Snapshot struct {
	Requests        uint64            `json:"requests_total"`
	InFlight        int64             `json:"requests_in_flight"`
	ClientErrors    uint64            `json:"requests_4xx"`
	ServerErrors    uint64            `json:"requests_5xx"`
	Analyses        uint64            `json:"analyses_total"`
	AnalysesRunning int64             `json:"analyses_running"`
	AnalysesFailed  uint64            `json:"analyses_failed"`
	FailuresByKind  map[string]uint64 `json:"analyses_failed_by_kind"`
	UptimeSeconds   float64           `json:"uptime_seconds"`
	Goroutines      int               `json:"goroutines"`
	HeapAllocBytes  uint64            `json:"heap_alloc_bytes"`
}

// GetMetrics returns current metrics
func GetMetrics() Snapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	s := Snapshot{
		Requests:        stats.requests.Load(),
		InFlight:        stats.inFlight.Load(),
		ClientErrors:    stats.clientErrs.Load(),
		ServerErrors:    stats.serverErrs.Load(),
		Analyses:        stats.analyses.Load(),
		AnalysesRunning: stats.running.Load(),
		FailuresByKind:  make(map[string]uint64),
		UptimeSeconds:   time.Since(stats.start).Seconds(),
		Goroutines:      runtime.NumGoroutine(),
		HeapAllocBytes:  m.HeapAlloc,
	}
	stats.mu.Lock()
	for k, v := range stats.byKind {
		s.FailuresByKind[string(k)] = v
		s.AnalysesFailed += v
	}
	stats.mu.Unlock()
	return s
}

// AnalysisObserver counts analyses; plug it into the exams service.
type AnalysisObserver struct{}

func (AnalysisObserver) AnalysisStarted() {
	stats.analyses.Add(1)
	stats.running.Add(1)
}

func (AnalysisObserver) AnalysisFinished(err error) {
	stats.running.Add(-1)
	if err == nil {
		return
	}
	stats.mu.Lock()
	stats.byKind[exams.KindOf(err)]++
	stats.mu.Unlock()
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats.requests.Add(1)
		stats.inFlight.Add(1)
		defer stats.inFlight.Add(-1)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		switch {
		case wrapped.statusCode >= 500:
			stats.serverErrs.Add(1)
		case wrapped.statusCode >= 400:
			stats.clientErrs.Add(1)
		}
	})
}

// MetricsHandler returns metrics as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GetMetrics())
}
