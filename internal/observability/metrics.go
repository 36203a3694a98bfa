package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/relocation-backend/internal/platform/envutil"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	extractionTurns      *CounterVec
	extractionCandidates *CounterVec
	extractionErrors     *CounterVec
	extractionLatency    *HistogramVec
	extractionQueueDepth *Gauge

	confirmationResolutions *CounterVec
	confirmationsExpired    *Counter

	llmRequests *CounterVec
	llmLatency  *HistogramVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

// Init builds the process-wide registry when METRICS_ENABLED is set. A nil
// *Metrics is valid and records nothing.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("rl_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"rl_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		apiInflight: NewGauge("rl_api_inflight_requests", "In-flight API requests."),

		extractionTurns:      NewCounterVec("rl_extraction_turns_total", "Turns processed by the extraction pipeline by result.", []string{"result"}),
		extractionCandidates: NewCounterVec("rl_extraction_candidates_total", "Extracted candidates by fact type and policy outcome.", []string{"fact_type", "outcome"}),
		extractionErrors:     NewCounterVec("rl_extraction_errors_total", "Per-candidate extraction failures by fact type and error code.", []string{"fact_type", "code"}),
		extractionLatency: NewHistogramVec(
			"rl_extraction_turn_duration_seconds",
			"Extraction latency per turn.",
			nil,
			[]float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		extractionQueueDepth: NewGauge("rl_extraction_queue_depth", "Turns waiting for an extraction worker."),

		confirmationResolutions: NewCounterVec("rl_confirmation_resolutions_total", "Confirmation resolutions by decision and result.", []string{"decision", "result"}),
		confirmationsExpired:    NewCounter("rl_confirmations_expired_total", "Pending confirmations rejected by the TTL sweep."),

		llmRequests: NewCounterVec("rl_llm_requests_total", "LLM extraction calls by model/status.", []string{"model", "status"}),
		llmLatency: NewHistogramVec(
			"rl_llm_request_duration_seconds",
			"LLM extraction latency by model.",
			[]string{"model"},
			[]float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests,
		m.apiLatency,
		m.apiInflight,
		m.extractionTurns,
		m.extractionCandidates,
		m.extractionErrors,
		m.extractionLatency,
		m.extractionQueueDepth,
		m.confirmationResolutions,
		m.confirmationsExpired,
		m.llmRequests,
		m.llmLatency,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveExtractionTurn(result string, dur time.Duration) {
	if m == nil {
		return
	}
	m.extractionTurns.Inc(result)
	m.extractionLatency.Observe(dur.Seconds())
}

func (m *Metrics) IncExtractionCandidate(factType, outcome string) {
	if m == nil {
		return
	}
	m.extractionCandidates.Inc(factType, outcome)
}

func (m *Metrics) IncExtractionError(factType, code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "unknown"
	}
	m.extractionErrors.Inc(factType, code)
}

func (m *Metrics) SetExtractionQueueDepth(n int) {
	if m == nil {
		return
	}
	m.extractionQueueDepth.Set(float64(n))
}

func (m *Metrics) IncConfirmationResolution(decision, result string) {
	if m == nil {
		return
	}
	m.confirmationResolutions.Inc(decision, result)
}

func (m *Metrics) AddConfirmationsExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.confirmationsExpired.Add(float64(n))
}

func (m *Metrics) ObserveLLMRequest(model, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.llmRequests.Inc(model, status)
	m.llmLatency.Observe(dur.Seconds(), model)
}
