package archive

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"optix.io/optix/internal/agent/metrics"
)

type memStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	checkErr  error
	putErr    error
	checked   bool
	putCalled chan struct{}
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, putCalled: make(chan struct{}, 16)}
}

func (m *memStore) CheckBucket(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checked = true
	return m.checkErr
}

func (m *memStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	defer func() { m.putCalled <- struct{}{} }()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	if contentType != "image/jpeg" {
		return errors.New("unexpected content type")
	}
	m.objects[key] = data
	return nil
}

func (m *memStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}

func runArchiver(t *testing.T, a *Archiver) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
}

func TestKey(t *testing.T) {
	ts := time.Unix(1700000000, 123)
	assert.Equal(t, "hash/1700000000000000123-lowlight.jpg", Key("hash", ts, "lowlight"))
}

func TestArchiverKeepsEveryNthFrame(t *testing.T) {
	store := newMemStore()
	now := time.Unix(1700000000, 0)
	a := NewArchiver(store, 3, "dev", WithClock(clocktesting.NewFakePassiveClock(now)), WithMetrics(metrics.New()))
	runArchiver(t, a)

	ctx := context.Background()
	a.Offer(ctx, "quality", []byte("1"))
	a.Offer(ctx, "quality", []byte("2"))
	a.Offer(ctx, "motion", []byte("3"))

	select {
	case <-store.putCalled:
	case <-time.After(2 * time.Second):
		t.Fatal("frame not uploaded")
	}
	assert.Equal(t, []string{"dev/1700000000000000000-motion.jpg"}, store.keys())
	assert.True(t, store.checked)
}

func TestArchiverSurvivesStoreFailures(t *testing.T) {
	store := newMemStore()
	store.checkErr = errors.New("no such bucket")
	store.putErr = errors.New("denied")
	a := NewArchiver(store, 1, "dev")
	runArchiver(t, a)

	a.Offer(context.Background(), "quality", []byte("x"))
	select {
	case <-store.putCalled:
	case <-time.After(2 * time.Second):
		t.Fatal("upload not attempted")
	}
	assert.Empty(t, store.keys())
}

func TestOfferNeverBlocks(t *testing.T) {
	a := NewArchiver(newMemStore(), 1, "dev")

	done := make(chan struct{})
	go func() {
		for range 10 {
			a.Offer(context.Background(), "quality", []byte("x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Offer blocked without a running uploader")
	}
	assert.Len(t, a.queue, 1)
}
