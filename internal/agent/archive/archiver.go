// Package archive keeps a sample of streamed frames in object storage.
package archive

import (
	"context"
	"fmt"
	"time"

	"k8s.io/utils/clock"

	"optix.io/optix/internal/agent/metrics"
	"optix.io/optix/pkg/log"
)

const uploadTimeout = 30 * time.Second

type upload struct {
	key  string
	data []byte
}

// Archiver uploads every Nth offered frame in the background. At most one
// upload is pending; frames offered while it is full are not archived.
type Archiver struct {
	store   Store
	every   int
	prefix  string
	metrics *metrics.Metrics
	clock   clock.PassiveClock
	logger  log.Logger

	offered int
	queue   chan upload
}

type Option func(*Archiver)

func WithMetrics(m *metrics.Metrics) Option { return func(a *Archiver) { a.metrics = m } }
func WithClock(c clock.PassiveClock) Option { return func(a *Archiver) { a.clock = c } }

// NewArchiver stores objects under prefix (the device hash).
func NewArchiver(store Store, every int, prefix string, opts ...Option) *Archiver {
	if every < 1 {
		every = 1
	}
	a := &Archiver{
		store:  store,
		every:  every,
		prefix: prefix,
		clock:  clock.RealClock{},
		logger: log.WithName("archive"),
		queue:  make(chan upload, 1),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Key names an archived frame: <prefix>/<unix-nanos>-<profile>.jpg.
func Key(prefix string, t time.Time, profile string) string {
	return fmt.Sprintf("%s/%d-%s.jpg", prefix, t.UnixNano(), profile)
}

// Offer is called from the streaming loop only.
func (a *Archiver) Offer(_ context.Context, profile string, frame []byte) {
	a.offered++
	if a.offered%a.every != 0 {
		return
	}

	u := upload{key: Key(a.prefix, a.clock.Now(), profile), data: frame}
	select {
	case a.queue <- u:
	default:
		a.logger.Debug("Archive busy, frame skipped", "key", u.key)
	}
}

// Run ensures the bucket exists and uploads queued frames until ctx is done.
func (a *Archiver) Run(ctx context.Context) error {
	if err := a.store.CheckBucket(ctx); err != nil {
		// Uploads are still attempted; the bucket may appear later.
		a.logger.Error(err, "Archive bucket unavailable")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-a.queue:
			a.put(ctx, u)
		}
	}
}

func (a *Archiver) put(ctx context.Context, u upload) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	err := a.store.Put(ctx, u.key, u.data, "image/jpeg")
	a.metrics.FrameArchived(err == nil)
	if err != nil {
		a.logger.Error(err, "Frame upload failed", "key", u.key)
		return
	}
	a.logger.Debug("Frame archived", "key", u.key, "bytes", len(u.data))
}
