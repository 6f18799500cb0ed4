// Package metrics holds the perf counters of the acquisition sessions and
// exposes them to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "airspeed"

// Registry owns the metric vectors, labelled by device.
type Registry struct {
	gatherer    prometheus.Gatherer
	commsErrors *prometheus.CounterVec
	published   *prometheus.CounterVec
	collect     *prometheus.HistogramVec
}

// New creates the vectors and registers them with reg. A nil reg uses a
// private registry.
func New(reg *prometheus.Registry) (*Registry, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	r := &Registry{
		gatherer: reg,
		commsErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comms_errors_total",
			Help:      "Bus transfer failures, fault status and saturated readings.",
		}, []string{"device"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_published_total",
			Help:      "Accepted differential pressure samples.",
		}, []string{"device"}),
		collect: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collect_seconds",
			Help:      "Elapsed time of collects, failed reads included.",
			Buckets:   prometheus.ExponentialBuckets(50e-6, 2, 12),
		}, []string{"device"}),
	}
	for _, c := range []prometheus.Collector{r.commsErrors, r.published, r.collect} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// Perf binds the vectors to one device. Device returns a Perf whose methods
// are safe to call on a nil receiver.
func (r *Registry) Device(device string) *Perf {
	if r == nil {
		return nil
	}
	return &Perf{
		reg:         r,
		device:      device,
		commsErrors: r.commsErrors.WithLabelValues(device),
		published:   r.published.WithLabelValues(device),
		collect:     r.collect.WithLabelValues(device),
	}
}

// Perf is the per-device view of the counters.
type Perf struct {
	reg         *Registry
	device      string
	commsErrors prometheus.Counter
	published   prometheus.Counter
	collect     prometheus.Observer
}

func (p *Perf) CountError() {
	if p != nil {
		p.commsErrors.Inc()
	}
}

func (p *Perf) CountPublished() {
	if p != nil {
		p.published.Inc()
	}
}

func (p *Perf) ObserveCollect(d time.Duration) {
	if p != nil {
		p.collect.Observe(d.Seconds())
	}
}

// Forget drops the device's series, e.g. after the driver is stopped.
func (p *Perf) Forget() {
	if p == nil {
		return
	}
	p.reg.commsErrors.DeleteLabelValues(p.device)
	p.reg.published.DeleteLabelValues(p.device)
	p.reg.collect.DeleteLabelValues(p.device)
}
