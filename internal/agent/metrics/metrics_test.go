package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SetUp(SubsystemRadio, true)
		m.FrameSent(10)
		m.CaptureFailed()
		m.ProfileActive("quality", []string{"quality"}, true)
		m.CredentialApplied("radio", true)
		m.RadioRestarted()
		m.AdvertisementRegistered()
		m.FrameArchived(false)
	})
}

func TestCollectors(t *testing.T) {
	m := New()

	m.FrameSent(100)
	m.FrameSent(50)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FramesSent))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.FrameBytes))

	all := []string{"quality", "lowlight", "motion"}
	m.ProfileActive("quality", all, false)
	m.ProfileActive("motion", all, true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveProfile.WithLabelValues("motion")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActiveProfile.WithLabelValues("quality")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProfileSwitches.WithLabelValues("motion")))

	m.CredentialApplied("file", false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CredentialApplies.WithLabelValues("file", "failure")))

	m.SetUp(SubsystemStreaming, true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SubsystemUp.WithLabelValues(SubsystemStreaming)))
}

func TestHandler(t *testing.T) {
	m := New()
	m.RadioRestarted()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "optix_radio_restarts_total 1")
}
