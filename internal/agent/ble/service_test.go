package ble

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optix.io/optix/internal/agent/core"
	"optix.io/optix/internal/agent/wifi"
)

const (
	testService    = "12345678-1234-5678-9ABC-123456789ABC"
	testCredential = "87654321-4321-4321-4321-cba987654321"
	testStatus     = "11111111-2222-3333-4444-555555555555"
	testCommand    = "66666666-7777-8888-9999-aaaaaaaaaaaa"
)

type sink struct {
	mu    sync.Mutex
	cands []wifi.Candidate
}

func (s *sink) Submit(c wifi.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cands = append(s.cands, c)
}

func (s *sink) all() []wifi.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]wifi.Candidate(nil), s.cands...)
}

type dispatcher struct {
	mu   sync.Mutex
	cmds []string
}

func (d *dispatcher) Dispatch(_ context.Context, cmd string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cmds = append(d.cmds, cmd)
}

func (d *dispatcher) all() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.cmds...)
}

func newTestService(t *testing.T) (*Service, *core.State, *sink, *dispatcher) {
	t.Helper()
	state := core.NewState("00000000abcdef01")
	s, d := &sink{}, &dispatcher{}
	svc := NewService(ServiceConfig{
		ServiceUUID:    testService,
		CredentialUUID: testCredential,
		StatusUUID:     testStatus,
		CommandUUID:    testCommand,
	}, state, s, d)
	return svc, state, s, d
}

func mustLookup(t *testing.T, svc *Service, uuid string) *Endpoint {
	t.Helper()
	ep, ok := svc.Lookup(uuid)
	require.True(t, ok, "endpoint %s", uuid)
	return ep
}

func TestServiceEndpoints(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	assert.Equal(t, "12345678-1234-5678-9abc-123456789abc", svc.UUID())
	require.Len(t, svc.Endpoints(), 3)

	cred := mustLookup(t, svc, testCredential)
	assert.Equal(t, RoleCredential, cred.Role)
	assert.True(t, cred.HasFlag(FlagWrite))
	assert.True(t, cred.HasFlag(FlagWriteWithoutResponse))
	assert.False(t, cred.HasFlag(FlagRead))

	status := mustLookup(t, svc, testStatus)
	assert.True(t, status.HasFlag(FlagRead))
	assert.True(t, status.HasFlag(FlagNotify))
	assert.Equal(t, core.StatusReady, string(status.Value()))

	cmd := mustLookup(t, svc, "66666666-7777-8888-9999-AAAAAAAAAAAA")
	assert.Equal(t, RoleCommand, cmd.Role)
}

func TestCredentialWriteSubmitsCandidate(t *testing.T) {
	svc, _, s, _ := newTestService(t)
	ep := mustLookup(t, svc, testCredential)

	svc.HandleWrite(context.Background(), ep, []byte(`{"ssid":"home","password":"secret123"}`))

	got := s.all()
	require.Len(t, got, 1)
	assert.Equal(t, "home", got[0].SSID)
	assert.Equal(t, "secret123", got[0].Password)
	assert.Equal(t, wifi.SourceRadio, got[0].Source)
}

func TestMalformedCredentialWriteIsDropped(t *testing.T) {
	svc, _, s, _ := newTestService(t)
	ep := mustLookup(t, svc, testCredential)

	for _, payload := range []string{`not json`, `{"ssid":"home"}`, `{"password":"x"}`, ``} {
		svc.HandleWrite(context.Background(), ep, []byte(payload))
	}
	assert.Empty(t, s.all())
}

func TestStatusReadFollowsConnectivity(t *testing.T) {
	svc, state, _, _ := newTestService(t)
	ep := mustLookup(t, svc, testStatus)

	assert.Equal(t, core.StatusWiFiDisconnected, string(svc.HandleRead(ep, 0)))

	state.SetNetworkConnected(true)
	assert.Equal(t, core.StatusWiFiConnected, string(svc.HandleRead(ep, 0)))
	assert.Equal(t, "Connected", string(svc.HandleRead(ep, 5)))
	assert.Empty(t, svc.HandleRead(ep, 100))
}

func TestCommandWriteIsDispatched(t *testing.T) {
	svc, _, _, d := newTestService(t)
	ep := mustLookup(t, svc, testCommand)

	svc.HandleWrite(context.Background(), ep, []byte(" get_serial \n"))
	svc.HandleWrite(context.Background(), ep, []byte("   "))

	assert.Eventually(t, func() bool { return len(d.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"get_serial"}, d.all())
}

func TestNotifyUpdatesValueAndEmits(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	status := mustLookup(t, svc, testStatus)

	svc.Notify(context.Background(), "Serial: 00000000abcdef01")
	assert.Equal(t, "Serial: 00000000abcdef01", string(status.Value()))

	var emitted []string
	svc.SetEmitter(func(ep *Endpoint, value []byte) {
		assert.Same(t, status, ep)
		emitted = append(emitted, string(value))
	})
	svc.Notify(context.Background(), core.StatusAuthSuccess)
	assert.Equal(t, []string{core.StatusAuthSuccess}, emitted)

	svc.SetEmitter(nil)
	svc.Notify(context.Background(), core.StatusAuthFailed)
	assert.Len(t, emitted, 1)
	assert.Equal(t, core.StatusAuthFailed, string(status.Value()))
}

func TestNotifySubscriptionTracking(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	status := mustLookup(t, svc, testStatus)

	assert.False(t, status.Notifying())
	svc.StartNotify(status)
	assert.True(t, status.Notifying())
	svc.StopNotify(status)
	assert.False(t, status.Notifying())
}

func TestCommandName(t *testing.T) {
	assert.Equal(t, "auth", commandName(`auth:{"username":"a","password":"b"}`))
	assert.Equal(t, "scan_wifi", commandName("scan_wifi"))
}
