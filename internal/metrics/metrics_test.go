package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.RecordUpload(StatusSuccess, 10)
	m.RecordUpload(StatusSuccess, 5)
	m.RecordUpload(StatusRejected, 99)
	m.RecordRenewal(StatusSuccess)
	m.RecordDelete(StatusFailed)
	m.RecordOrphan()
	m.RecordStoreOp("put", nil, 20*time.Millisecond)
	m.RecordStoreOp("put", errors.New("boom"), time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.uploads.WithLabelValues(StatusSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.uploads.WithLabelValues(StatusRejected)))
	assert.Equal(t, float64(15), testutil.ToFloat64(m.uploadBytes))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.renewals.WithLabelValues(StatusSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.deletes.WithLabelValues(StatusFailed)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.orphans))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.storeOps.WithLabelValues("put", StatusFailed)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.storeDuration))
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordUpload(StatusSuccess, 1)
		m.RecordRenewal(StatusFailed)
		m.RecordDelete(StatusSuccess)
		m.RecordOrphan()
		m.RecordStoreOp("delete", nil, time.Second)
	})
}
