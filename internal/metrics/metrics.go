// Package metrics exposes Prometheus counters for submissions to the shop
// service and for local validation rejections.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	KindExchange           = "exchange"
	KindBulkPayment        = "bulk_payment"
	KindInstallmentPayment = "installment_payment"
)

type Recorder struct {
	registry    *prometheus.Registry
	submissions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "montshop_submissions_total",
			Help: "Submissions sent to the shop service, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "montshop_validation_rejections_total",
			Help: "Submissions blocked by local validation, by kind and code.",
		}, []string{"kind", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "montshop_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		r.submissions,
		r.rejections,
		r.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) Submission(kind, outcome string) {
	if r == nil {
		return
	}
	r.submissions.WithLabelValues(kind, outcome).Inc()
}

func (r *Recorder) ValidationRejected(kind, code string) {
	if r == nil {
		return
	}
	r.rejections.WithLabelValues(kind, code).Inc()
}

func (r *Recorder) ObserveRequest(method, route, status string, seconds float64) {
	if r == nil {
		return
	}
	r.latency.WithLabelValues(method, route, status).Observe(seconds)
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
