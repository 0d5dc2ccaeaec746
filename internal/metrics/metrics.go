// Package metrics holds the Prometheus collectors of the photo lifecycle.
// All Record methods are no-ops on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "photoapi"

// Status label values.
const (
	StatusSuccess  = "success"
	StatusFailed   = "failed"
	StatusRejected = "rejected"
)

// Metrics groups lifecycle and object store collectors.
type Metrics struct {
	uploads       *prometheus.CounterVec
	uploadBytes   prometheus.Counter
	renewals      *prometheus.CounterVec
	deletes       *prometheus.CounterVec
	orphans       prometheus.Counter
	storeOps      *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Photo uploads by outcome.",
		}, []string{"status"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Bytes of successfully uploaded photos.",
		}),
		renewals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "url_renewals_total",
			Help:      "Signed URL renewals by outcome.",
		}, []string{"status"}),
		deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deletes_total",
			Help:      "Photo deletions by outcome.",
		}, []string{"status"}),
		orphans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphaned_objects_total",
			Help:      "Objects stored without a metadata record after a failed upload.",
		}),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "object_store",
			Name:      "operations_total",
			Help:      "Object store operations by kind and outcome.",
		}, []string{"operation", "status"}),
		storeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "object_store",
			Name:      "duration_seconds",
			Help:      "Object store operation latency.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"operation"}),
	}

	for _, c := range []prometheus.Collector{
		m.uploads, m.uploadBytes, m.renewals, m.deletes, m.orphans, m.storeOps, m.storeDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) RecordUpload(status string, bytes int64) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(status).Inc()
	if status == StatusSuccess {
		m.uploadBytes.Add(float64(bytes))
	}
}

func (m *Metrics) RecordRenewal(status string) {
	if m == nil {
		return
	}
	m.renewals.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordDelete(status string) {
	if m == nil {
		return
	}
	m.deletes.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordOrphan() {
	if m == nil {
		return
	}
	m.orphans.Inc()
}

// RecordStoreOp counts one object store call and observes its latency.
func (m *Metrics) RecordStoreOp(operation string, err error, took time.Duration) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusFailed
	}
	m.storeOps.WithLabelValues(operation, status).Inc()
	m.storeDuration.WithLabelValues(operation).Observe(took.Seconds())
}
