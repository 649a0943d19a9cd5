// Package metrics holds the agent's prometheus collectors. They live on a
// private registry served by the local health endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "optix"

// Subsystem names used as label values.
const (
	SubsystemRadio     = "radio"
	SubsystemNetwork   = "network"
	SubsystemStreaming = "streaming"
)

// Metrics is nil-safe: every method on a nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	// SubsystemUp is 1 when the subsystem is Up.
	SubsystemUp *prometheus.GaugeVec

	FramesSent      prometheus.Counter
	FrameBytes      prometheus.Counter
	CaptureFailures prometheus.Counter

	// ProfileSwitches counts switches by destination profile.
	ProfileSwitches *prometheus.CounterVec
	ActiveProfile   *prometheus.GaugeVec

	// CredentialApplies counts apply attempts by source (radio/file) and result.
	CredentialApplies *prometheus.CounterVec

	RadioRestarts              prometheus.Counter
	AdvertisementRegistrations prometheus.Counter

	ArchivedFrames *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SubsystemUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subsystem_up",
			Help:      "Whether a supervised subsystem is up (1) or down (0).",
		}, []string{"subsystem"}),
		FramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Frames delivered to the collector.",
		}),
		FrameBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_bytes_total",
			Help:      "Image bytes delivered to the collector.",
		}),
		CaptureFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_failures_total",
			Help:      "Capture attempts that produced no image.",
		}),
		ProfileSwitches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_switches_total",
			Help:      "Active capture profile switches by destination profile.",
		}, []string{"profile"}),
		ActiveProfile: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_profile",
			Help:      "1 for the capture profile currently in use.",
		}, []string{"profile"}),
		CredentialApplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_applies_total",
			Help:      "WiFi credential apply attempts by source and result.",
		}, []string{"source", "result"}),
		RadioRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "radio_restarts_total",
			Help:      "Times the BLE provisioning service was (re)started.",
		}),
		AdvertisementRegistrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advertisement_registrations_total",
			Help:      "Advertisement registrations issued by the guard.",
		}),
		ArchivedFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archived_frames_total",
			Help:      "Frame archive uploads by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SubsystemUp,
		m.FramesSent,
		m.FrameBytes,
		m.CaptureFailures,
		m.ProfileSwitches,
		m.ActiveProfile,
		m.CredentialApplies,
		m.RadioRestarts,
		m.AdvertisementRegistrations,
		m.ArchivedFrames,
	)
	return m
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) SetUp(subsystem string, up bool) {
	if m == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	m.SubsystemUp.WithLabelValues(subsystem).Set(v)
}

func (m *Metrics) FrameSent(size int) {
	if m == nil {
		return
	}
	m.FramesSent.Inc()
	m.FrameBytes.Add(float64(size))
}

func (m *Metrics) CaptureFailed() {
	if m == nil {
		return
	}
	m.CaptureFailures.Inc()
}

// ProfileActive records profile as the one in use; switched also counts a switch.
func (m *Metrics) ProfileActive(profile string, all []string, switched bool) {
	if m == nil {
		return
	}
	for _, p := range all {
		v := 0.0
		if p == profile {
			v = 1
		}
		m.ActiveProfile.WithLabelValues(p).Set(v)
	}
	if switched {
		m.ProfileSwitches.WithLabelValues(profile).Inc()
	}
}

func (m *Metrics) CredentialApplied(source string, ok bool) {
	if m == nil {
		return
	}
	m.CredentialApplies.WithLabelValues(source, result(ok)).Inc()
}

func (m *Metrics) RadioRestarted() {
	if m == nil {
		return
	}
	m.RadioRestarts.Inc()
}

func (m *Metrics) AdvertisementRegistered() {
	if m == nil {
		return
	}
	m.AdvertisementRegistrations.Inc()
}

func (m *Metrics) FrameArchived(ok bool) {
	if m == nil {
		return
	}
	m.ArchivedFrames.WithLabelValues(result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
