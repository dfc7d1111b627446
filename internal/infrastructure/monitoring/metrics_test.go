package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecordAndSnapshot(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SetTreeCounts(2, 5, 4, 1)
	m.SetSiteGroups(3)
	m.RecordProcessGone()
	m.RecordViolation("commit_navigation")
	m.RecordNavigation("cross_site_group", "committed", 10*time.Millisecond)

	assert.Equal(t, float64(5), testutil.ToFloat64(m.FramesLive))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.ProxiesLive))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PendingDeletion))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Navigations.WithLabelValues("cross_site_group", "committed")))

	snap := m.Snapshot()
	assert.Equal(t, Snapshot{Frames: 5, Proxies: 4, SiteGroups: 3, ProcessGone: 1, ProtocolViolations: 1}, snap)
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FrameCreated()
		m.RecordSent("create_frame")
		m.RecordDropped("swap_out_ack", "unknown_route")
		m.RecordInput("child")
		m.UpdateUptime()
		_ = m.Snapshot()
	})
}
