// Package metrics: Prometheus-метрики конвейера перепроверки и рассылки.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Provider собирает метрики. Реализации: Prometheus и noop.
type Provider interface {
	ObserveCycle(duration time.Duration)
	IncFetchFailure(site string)
	IncChange(kind string)
	IncNotification(result string)
	IncReclaimed()
	// Handler отдаёт метрики в формате Prometheus; у noop: 404.
	Handler() http.Handler
}

// Значения меток.
const (
	ChangePrice        = "price"
	ChangeAvailability = "availability"

	NotificationSent      = "sent"
	NotificationForbidden = "forbidden"
	NotificationFailed    = "failed"
	NotificationSkipped   = "skipped"
)

type promProvider struct {
	reg *prometheus.Registry

	cycleDuration prometheus.Histogram
	fetchFailures *prometheus.CounterVec
	changes       *prometheus.CounterVec
	notifications *prometheus.CounterVec
	reclaimed     prometheus.Counter
}

// New возвращает Prometheus-провайдер или noop, если метрики выключены.
// Каждый провайдер держит свой реестр.
func New(enabled bool) Provider {
	if !enabled {
		return noop{}
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &promProvider{
		reg: reg,
		cycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dm_recheck_duration_seconds",
			Help:    "Duration of a recheck cycle in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		fetchFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dm_fetch_failures_total",
			Help: "Total number of failed snapshot fetches",
		}, []string{"site"}),
		changes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dm_changes_total",
			Help: "Total number of persisted change records",
		}, []string{"kind"}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dm_notifications_total",
			Help: "Total number of notification attempts by result",
		}, []string{"result"}),
		reclaimed: f.NewCounter(prometheus.CounterOpts{
			Name: "dm_reclaimed_items_total",
			Help: "Total number of items removed as permanently gone",
		}),
	}
}

func (p *promProvider) ObserveCycle(d time.Duration) { p.cycleDuration.Observe(d.Seconds()) }

func (p *promProvider) IncFetchFailure(site string) { p.fetchFailures.WithLabelValues(site).Inc() }

func (p *promProvider) IncChange(kind string) { p.changes.WithLabelValues(kind).Inc() }

func (p *promProvider) IncNotification(result string) {
	p.notifications.WithLabelValues(result).Inc()
}

func (p *promProvider) IncReclaimed() { p.reclaimed.Inc() }

func (p *promProvider) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

type noop struct{}

func (noop) ObserveCycle(time.Duration) {}
func (noop) IncFetchFailure(string)     {}
func (noop) IncChange(string)           {}
func (noop) IncNotification(string)     {}
func (noop) IncReclaimed()              {}
func (noop) Handler() http.Handler      { return http.NotFoundHandler() }
