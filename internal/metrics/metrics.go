// Package metrics exposes Prometheus metrics for the analysis worker.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	api "github.com/ossf/byte-analysis/pkg/api/bytedist"
)

const namespace = "byte_analysis"

// Stage labels the step of message processing at which an error occurred.
type Stage string

const (
	StageMessage Stage = "message"
	StageRead    Stage = "read"
	StageAnalyze Stage = "analyze"
	StageSave    Stage = "save"
	StageNotify  Stage = "notify"
)

// Verdict label values for FilesAnalyzed.
const (
	verdictAccepted     = "accepted"
	verdictRejected     = "rejected"
	verdictUnclassified = "unclassified"
)

// Metrics holds the collectors for one worker. Collectors are registered on
// their own registry so that several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	MessagesProcessed prometheus.Counter
	Errors            *prometheus.CounterVec
	FilesAnalyzed     *prometheus.CounterVec
	Entropy           prometheus.Histogram
	StdDev            prometheus.Histogram
	AnalysisDuration  prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		MessagesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_processed_total",
			Help:      "Number of analysis request messages processed",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Number of errors by processing stage",
		}, []string{"stage"}),
		FilesAnalyzed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_analyzed_total",
			Help:      "Number of files analysed by verdict",
		}, []string{"verdict"}),
		Entropy: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "entropy_bits",
			Help:      "Shannon entropy of analysed files",
			Buckets:   prometheus.LinearBuckets(0, 1, 9),
		}),
		StdDev: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "std_dev",
			Help:      "Standard deviation of byte values of analysed files",
			Buckets:   prometheus.LinearBuckets(0, 16, 9),
		}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time taken to process one analysis request",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	m.registry.MustRegister(
		m.MessagesProcessed,
		m.Errors,
		m.FilesAnalyzed,
		m.Entropy,
		m.StdDev,
		m.AnalysisDuration,
	)
	return m
}

// ObserveResults records the statistics and verdicts of a set of file results.
func (m *Metrics) ObserveResults(files []api.FileResult) {
	for _, f := range files {
		if f.Distribution != nil {
			m.Entropy.Observe(f.Distribution.Entropy)
			m.StdDev.Observe(f.Distribution.StdDev)
		}
		verdict := verdictUnclassified
		if f.Verdict != nil {
			verdict = verdictRejected
			if f.Verdict.Accepted {
				verdict = verdictAccepted
			}
		}
		m.FilesAnalyzed.WithLabelValues(verdict).Inc()
	}
}

func (m *Metrics) ObserveError(stage Stage) {
	m.Errors.WithLabelValues(string(stage)).Inc()
}

// Handler serves the metrics at /metrics and, if enablePprof is set, the
// runtime profiles under /debug/pprof/.
func (m *Metrics) Handler(enablePprof bool) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics",
		promhttp.InstrumentMetricHandler(
			m.registry,
			promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}),
		),
	)

	if enablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

// Serve runs an HTTP server for Handler on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, enablePprof bool) error {
	s := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(enablePprof),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to stop metrics server", "error", err)
		}
	}()

	slog.InfoContext(ctx, "starting metrics server", "addr", addr, "pprof", enablePprof)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
