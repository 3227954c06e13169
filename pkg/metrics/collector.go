// Package metrics exposes run and action counters in prometheus format.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/browserwing/actionrunner/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector records action and run outcomes. It is a result sink.
type Collector struct {
	actionsTotal    *prometheus.CounterVec
	actionDuration  *prometheus.HistogramVec
	locatorAttempts *prometheus.HistogramVec
	screenshots     prometheus.Counter

	runsTotal   *prometheus.CounterVec
	runDuration prometheus.Histogram

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewCollector registers every metric on reg.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		actionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_total",
				Help:      "Total number of executed actions",
			},
			[]string{"type", "status", "error_kind"},
		),
		actionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "action_duration_seconds",
				Help:      "Action execution time in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"type"},
		),
		locatorAttempts: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "locator_attempts",
				Help:      "Locator strategies tried per element lookup",
				Buckets:   []float64{1, 2, 3, 4},
			},
			[]string{"strategy"},
		),
		screenshots: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "screenshots_captured_total",
				Help:      "Total number of captured screenshots",
			},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of runs",
			},
			[]string{"status", "error_kind"},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Run duration in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
			},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// Emit records one action result.
func (c *Collector) Emit(_ context.Context, _ int, r models.ActionResult) error {
	c.actionsTotal.WithLabelValues(string(r.Action.Type), status(r.Success), string(r.ErrorKind)).Inc()
	c.actionDuration.WithLabelValues(string(r.Action.Type)).Observe(r.ExecutionTimeMS / 1000)
	if r.Attempts > 0 {
		strategy := string(r.Strategy)
		if strategy == "" {
			strategy = "none"
		}
		c.locatorAttempts.WithLabelValues(strategy).Observe(float64(r.Attempts))
	}
	if r.Success && r.HasScreenshot() {
		c.screenshots.Inc()
	}
	return nil
}

// RecordRun records a finished run.
func (c *Collector) RecordRun(summary *models.RunSummary, duration time.Duration) {
	if summary == nil {
		return
	}
	c.runsTotal.WithLabelValues(status(summary.Success), string(summary.ErrorKind)).Inc()
	c.runDuration.Observe(duration.Seconds())
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(method, path string, code int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(code)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
