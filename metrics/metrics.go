package metrics

import (
	"time"

	"github.com/dhamidi/javasyn/java/syntax"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Surfaces label which entry point ran an analysis.
const (
	SurfaceCLI  = "cli"
	SurfaceUI   = "ui"
	SurfaceLSP  = "lsp"
	SurfaceScan = "scan"
)

var (
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "javasyn_analyses_total",
		Help: "Total number of analyses, by surface and outcome (clean, diagnostics, fault).",
	}, []string{"surface", "outcome"})

	DiagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "javasyn_diagnostics_total",
		Help: "Total number of diagnostics reported.",
	}, []string{"surface"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "javasyn_analysis_seconds",
		Help:    "Time spent analyzing one source text.",
		Buckets: prometheus.DefBuckets,
	}, []string{"surface"})

	TokensPerAnalysis = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "javasyn_tokens",
		Help:    "Number of tokens produced per analysis.",
		Buckets: prometheus.ExponentialBuckets(16, 4, 8),
	}, []string{"surface"})

	ScanJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "javasyn_scan_jobs_total",
		Help: "Total number of finished scan jobs, by final status.",
	}, []string{"status"})

	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "javasyn_rate_limited_total",
		Help: "Total number of analysis requests rejected by the rate limiter.",
	})
)

// Outcome classifies a result for the outcome label.
func Outcome(r syntax.Result) string {
	switch {
	case r.Success:
		return "clean"
	case r.Outline == nil:
		return "fault"
	default:
		return "diagnostics"
	}
}

// Observe records one finished analysis that started at start.
func Observe(surface string, start time.Time, r syntax.Result) {
	AnalysisDuration.WithLabelValues(surface).Observe(time.Since(start).Seconds())
	AnalysesTotal.WithLabelValues(surface, Outcome(r)).Inc()
	DiagnosticsTotal.WithLabelValues(surface).Add(float64(len(r.Diagnostics)))
	TokensPerAnalysis.WithLabelValues(surface).Observe(float64(len(r.Tokens)))
}

// Analyze runs syntax.Analyze and records it.
func Analyze(surface, source string) syntax.Result {
	start := time.Now()
	result := syntax.Analyze(source)
	Observe(surface, start, result)
	return result
}
