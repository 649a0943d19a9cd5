package wifi

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optix.io/optix/internal/agent/core"
)

type candidateSink struct {
	mu    sync.Mutex
	cands []Candidate
}

func (s *candidateSink) submit(c Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cands = append(s.cands, c)
}

func (s *candidateSink) all() []Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Candidate(nil), s.cands...)
}

func startWatcher(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
}

func TestWatcherCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifi_credentials.json")
	sink := &candidateSink{}
	startWatcher(t, NewWatcher(path, 10*time.Millisecond, sink.submit))

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, sink.all(), "an empty file yields no candidate")
}

func TestWatcherProcessesExistingContentAtStartup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifi_credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ssid":"Home","password":"secret123"}`), 0o600))

	sink := &candidateSink{}
	startWatcher(t, NewWatcher(path, 10*time.Millisecond, sink.submit))

	assert.Eventually(t, func() bool { return len(sink.all()) == 1 }, time.Second, 5*time.Millisecond)
	c := sink.all()[0]
	assert.Equal(t, "Home", c.SSID)
	assert.Equal(t, SourceFile, c.Source)
}

func TestWatcherFollowsChangesAndSkipsUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifi_credentials.json")
	sink := &candidateSink{}
	startWatcher(t, NewWatcher(path, 20*time.Millisecond, sink.submit))

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	payload := []byte(`{"ssid":"Cafe","password":"latte1234","timestamp":1}`)
	require.NoError(t, os.WriteFile(path, payload, 0o600))
	assert.Eventually(t, func() bool { return len(sink.all()) == 1 }, 2*time.Second, 5*time.Millisecond)

	// same bytes again
	require.NoError(t, os.WriteFile(path, payload, 0o600))
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, sink.all(), 1)

	// malformed content is ignored
	require.NoError(t, os.WriteFile(path, []byte(`{"ssid":`), 0o600))
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, sink.all(), 1)

	// replaced by rename
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(`{"ssid":"Cafe","password":"latte1234","timestamp":2}`), 0o600))
	require.NoError(t, os.Rename(tmp, path))
	assert.Eventually(t, func() bool { return len(sink.all()) == 2 }, 2*time.Second, 5*time.Millisecond)
}

// Both delivery channels carry the same pair at the same time: one apply, one status.
func TestRadioAndFileDeliverSamePairOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifi_credentials.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ssid":"Home","password":"secret123"}`), 0o600))

	state := core.NewState("s")
	applier := newFakeApplier()
	applier.release = make(chan struct{})
	notes := &statusRecorder{}

	conv := NewConverger(ConvergerConfig{RetryCooldown: time.Minute}, state, applier, notes)
	runConverger(t, conv)

	radio, err := ParseCandidate([]byte(`{"ssid":"Home","password":"secret123"}`), SourceRadio, time.Now())
	require.NoError(t, err)
	conv.Submit(radio)

	startWatcher(t, NewWatcher(path, 10*time.Millisecond, conv.Submit))

	<-applier.started
	time.Sleep(50 * time.Millisecond)
	close(applier.release)

	assert.Eventually(t, func() bool { return len(notes.Messages()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"Home/secret123"}, applier.Calls())
	assert.Equal(t, []string{core.StatusWiFiConnected}, notes.Messages())
}
