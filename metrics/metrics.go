// Package metrics records vendor request counts and latencies with Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "lm"

// StatusError labels requests that failed without an HTTP response.
const StatusError = "error"

type Metrics struct {
	gatherer prometheus.Gatherer

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil reg uses a private registry.
// Collectors already registered on reg are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	var gatherer prometheus.Gatherer
	if reg == nil {
		r := prometheus.NewRegistry()
		reg, gatherer = r, r
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{
		gatherer: gatherer,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of vendor requests by provider and status",
			},
			[]string{"provider", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Vendor request latency in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider"},
		),
	}

	var err error
	if m.requests, err = register(reg, m.requests); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Observe records one request. status is the HTTP status code or StatusError.
func (m *Metrics) Observe(provider, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(provider, status).Inc()
	m.duration.WithLabelValues(provider).Observe(d.Seconds())
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// WriteText prints a short human readable summary of the lm metrics.
func (m *Metrics) WriteText(w io.Writer) error {
	if m == nil || m.gatherer == nil {
		return nil
	}
	families, err := m.gatherer.Gather()
	if err != nil {
		return err
	}
	for _, f := range families {
		if !strings.HasPrefix(f.GetName(), namespace+"_") {
			continue
		}
		for _, metric := range f.GetMetric() {
			labels := formatLabels(metric.GetLabel())
			switch f.GetType() {
			case dto.MetricType_COUNTER:
				fmt.Fprintf(w, "%s%s %v\n", f.GetName(), labels, metric.GetCounter().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := metric.GetHistogram()
				fmt.Fprintf(w, "%s_count%s %d\n", f.GetName(), labels, h.GetSampleCount())
				fmt.Fprintf(w, "%s_sum%s %.3f\n", f.GetName(), labels, h.GetSampleSum())
			}
		}
	}
	return nil
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	var sa []string
	for _, p := range pairs {
		sa = append(sa, fmt.Sprintf("%s=%q", p.GetName(), p.GetValue()))
	}
	sort.Strings(sa)
	return "{" + strings.Join(sa, ",") + "}"
}
