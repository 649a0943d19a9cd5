package core

import (
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"
)

// State is the supervisor context shared by every subsystem. Each flag has a
// single writer: the supervisor for radio and network, the streamer for streaming.
type State struct {
	serial     string
	deviceHash string

	radioActive      atomic.Bool
	networkConnected atomic.Bool
	streamingActive  atomic.Bool

	// unix nanoseconds of the last time the advertisement was seen active
	advertisingConfirmedAt atomic.Int64
}

// NewState builds the context for the device identified by serial.
func NewState(serial string) *State {
	return &State{
		serial:     serial,
		deviceHash: DeviceHash(serial),
	}
}

// DeviceHash derives the stable device id used by the user store and the archive.
func DeviceHash(serial string) string {
	sum := sha256.Sum256([]byte("OPTIX-" + serial))
	return hex.EncodeToString(sum[:])
}

func (s *State) Serial() string     { return s.serial }
func (s *State) DeviceHash() string { return s.deviceHash }

func (s *State) RadioActive() bool          { return s.radioActive.Load() }
func (s *State) SetRadioActive(v bool)      { s.radioActive.Store(v) }
func (s *State) NetworkConnected() bool     { return s.networkConnected.Load() }
func (s *State) SetNetworkConnected(v bool) { s.networkConnected.Store(v) }
func (s *State) StreamingActive() bool      { return s.streamingActive.Load() }
func (s *State) SetStreamingActive(v bool)  { s.streamingActive.Store(v) }

// MarkAdvertisingConfirmed records t as the last time advertising was verified.
func (s *State) MarkAdvertisingConfirmed(t time.Time) {
	s.advertisingConfirmedAt.Store(t.UnixNano())
}

// AdvertisingConfirmedAt returns the zero time if advertising was never confirmed.
func (s *State) AdvertisingConfirmedAt() time.Time {
	ns := s.advertisingConfirmedAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Snapshot is the point-in-time view published as lifecycle telemetry.
type Snapshot struct {
	Serial                 string    `json:"serial"`
	DeviceHash             string    `json:"deviceHash"`
	RadioActive            bool      `json:"radioActive"`
	NetworkConnected       bool      `json:"networkConnected"`
	StreamingActive        bool      `json:"streamingActive"`
	AdvertisingConfirmedAt time.Time `json:"advertisingConfirmedAt,omitzero"`
	Timestamp              time.Time `json:"timestamp"`
}

// Snapshot captures the current flags.
func (s *State) Snapshot(now time.Time) Snapshot {
	return Snapshot{
		Serial:                 s.serial,
		DeviceHash:             s.deviceHash,
		RadioActive:            s.RadioActive(),
		NetworkConnected:       s.NetworkConnected(),
		StreamingActive:        s.StreamingActive(),
		AdvertisingConfirmedAt: s.AdvertisingConfirmedAt(),
		Timestamp:              now,
	}
}
