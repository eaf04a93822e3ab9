// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-objpoller.
//
// go-objpoller is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	entityLabels = []string{"entity"}

	// LatencyBuckets covers sub-millisecond in-memory listings through
	// multi-second cloud listings.
	LatencyBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
)

// Prometheus reports into collectors registered on a caller-supplied
// registerer.
type Prometheus struct {
	checkDuration     *prometheus.HistogramVec
	checkErrors       *prometheus.CounterVec
	partitionsScanned *prometheus.CounterVec
	objectsScanned    *prometheus.CounterVec
	objectsAdmitted   *prometheus.CounterVec
	watermark         *prometheus.GaugeVec
	tickDuration      prometheus.Histogram
	tickFailures      prometheus.Counter
}

// NewPrometheus creates and registers the poller collectors on reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		checkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "objpoller_check_seconds",
			Help:    "the time spent in one strategy check for an entity",
			Buckets: LatencyBuckets,
		}, []string{"entity", "strategy"}),
		checkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "objpoller_check_errors_total",
			Help: "the number of failed strategy checks",
		}, []string{"entity", "strategy"}),
		partitionsScanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "objpoller_partitions_scanned_total",
			Help: "the number of partitions listed",
		}, entityLabels),
		objectsScanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "objpoller_objects_scanned_total",
			Help: "the number of listing entries visited",
		}, entityLabels),
		objectsAdmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "objpoller_objects_admitted_total",
			Help: "the number of records emitted",
		}, entityLabels),
		watermark: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "objpoller_watermark_seconds",
			Help: "the current watermark as a unix timestamp",
		}, entityLabels),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "objpoller_tick_seconds",
			Help:    "the time spent checking every registered entity once",
			Buckets: LatencyBuckets,
		}),
		tickFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "objpoller_tick_failed_checks_total",
			Help: "the number of entity checks that failed across all ticks",
		}),
	}
	for _, c := range []prometheus.Collector{
		p.checkDuration, p.checkErrors, p.partitionsScanned, p.objectsScanned,
		p.objectsAdmitted, p.watermark, p.tickDuration, p.tickFailures,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) CheckCompleted(entity, strategy string, d time.Duration, err error) {
	p.checkDuration.WithLabelValues(entity, strategy).Observe(d.Seconds())
	if err != nil {
		p.checkErrors.WithLabelValues(entity, strategy).Inc()
	}
}

func (p *Prometheus) ObjectsScanned(entity string, partitions, objects int) {
	p.partitionsScanned.WithLabelValues(entity).Add(float64(partitions))
	p.objectsScanned.WithLabelValues(entity).Add(float64(objects))
}

func (p *Prometheus) ObjectsAdmitted(entity string, n int) {
	p.objectsAdmitted.WithLabelValues(entity).Add(float64(n))
}

func (p *Prometheus) WatermarkAdvanced(entity string, t time.Time) {
	p.watermark.WithLabelValues(entity).Set(float64(t.UnixNano()) / 1e9)
}

func (p *Prometheus) TickCompleted(d time.Duration, _, failed int) {
	p.tickDuration.Observe(d.Seconds())
	p.tickFailures.Add(float64(failed))
}
