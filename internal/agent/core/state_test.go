package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeviceHash(t *testing.T) {
	// sha256("OPTIX-abc")
	h := DeviceHash("abc")
	assert.Len(t, h, 64)
	assert.Equal(t, h, DeviceHash("abc"))
	assert.NotEqual(t, h, DeviceHash("abd"))
}

func TestStateFlags(t *testing.T) {
	s := NewState("00000000deadbeef")

	assert.False(t, s.RadioActive())
	assert.False(t, s.NetworkConnected())
	assert.False(t, s.StreamingActive())
	assert.True(t, s.AdvertisingConfirmedAt().IsZero())

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.SetRadioActive(true)
	s.SetNetworkConnected(true)
	s.MarkAdvertisingConfirmed(now)

	snap := s.Snapshot(now)
	assert.Equal(t, "00000000deadbeef", snap.Serial)
	assert.Equal(t, DeviceHash("00000000deadbeef"), snap.DeviceHash)
	assert.True(t, snap.RadioActive)
	assert.True(t, snap.NetworkConnected)
	assert.False(t, snap.StreamingActive)
	assert.True(t, snap.AdvertisingConfirmedAt.Equal(now))
}

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Notify(_ context.Context, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func TestBroadcaster(t *testing.T) {
	b := NewBroadcaster()
	ble, mqtt := &recorder{}, &recorder{}

	b.Notify(context.Background(), "dropped")

	b.Attach("ble", ble)
	b.Attach("mqtt", mqtt)
	b.Notify(context.Background(), StatusWiFiConnected)

	b.Detach("mqtt")
	b.Notify(context.Background(), SerialStatus("abc"))

	assert.Equal(t, []string{"WiFi Connected", "Serial: abc"}, ble.msgs)
	assert.Equal(t, []string{"WiFi Connected"}, mqtt.msgs)
}
