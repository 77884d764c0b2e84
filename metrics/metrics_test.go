package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_Counters(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.CacheHit("embedding", "memory")
	r.CacheHit("embedding", "memory")
	r.CacheMiss("embedding")
	r.RecordReload(nil, 801)
	r.RecordReload(errors.New("bad csv"), 0)
	r.ObserveRequest("/api/v1/pokemon/{key}", 404, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.CacheHits.WithLabelValues("embedding", "memory")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.CacheMisses.WithLabelValues("embedding")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Reloads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Reloads.WithLabelValues("error")))
	assert.Equal(t, 801.0, testutil.ToFloat64(r.DatasetRows))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.HTTPRequests.WithLabelValues("/api/v1/pokemon/{key}", "404")))
}

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
