package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/fractree/fractree/internal/engine"
)

var _ engine.Observer = (*Metrics)(nil)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RenderCompleted(4095, 3*time.Millisecond)
	m.RenderCompleted(3, time.Millisecond)
	m.RenderDropped()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rendersTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rendersDropped))

	m.ObserveRequest("GET", "/api/trees/{treeId}", 200, time.Millisecond)
	m.ObserveRequest("GET", "/api/trees/{treeId}", 404, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/trees/{treeId}", "404")))

	m.RoomOpened()
	m.RoomOpened()
	m.RoomClosed()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rooms))

	m.ClientJoined()
	m.ClientLeft()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.clients))

	m.OpApplied("point.move", true)
	m.OpApplied("point.move", false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ops.WithLabelValues("point.move", "nack")))

	m.Saved(nil)
	m.Saved(errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.saves.WithLabelValues("error")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RenderCompleted(1, time.Millisecond)
		m.RenderDropped()
		m.ObserveRequest("GET", "/", 200, 0)
		m.RoomOpened()
		m.RoomClosed()
		m.ClientJoined()
		m.ClientLeft()
		m.OpApplied("x", true)
		m.Saved(nil)
	})
}
