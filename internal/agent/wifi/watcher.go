package wifi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"k8s.io/utils/clock"

	"optix.io/optix/pkg/log"
)

// Watcher turns changes of the credential drop file into file candidates.
type Watcher struct {
	path     string
	debounce time.Duration
	submit   func(Candidate)
	clock    clock.Clock
	logger   log.Logger

	lastHash uint64
	seen     bool
}

func NewWatcher(path string, debounce time.Duration, submit func(Candidate)) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		submit:   submit,
		clock:    clock.RealClock{},
		logger:   log.WithName("watcher"),
	}
}

// Run creates the file if missing, processes its current content once and
// then follows changes until ctx is done. The parent directory is watched so
// that replace-by-rename writers are seen too.
func (w *Watcher) Run(ctx context.Context) error {
	if err := touch(w.path); err != nil {
		return fmt.Errorf("prepare credential file: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info("Watching credential file", "path", w.path)

	w.process()

	var (
		timer   clock.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = w.clock.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C():
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerCh = timer.C()

		case <-timerCh:
			timerCh = nil
			w.process()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error(err, "File watcher error")
		}
	}
}

// process submits the file content unless it is empty or unchanged.
func (w *Watcher) process() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			w.logger.Error(err, "Failed to read credential file", "path", w.path)
		}
		return
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return
	}

	h := xxhash.Sum64(data)
	if w.seen && h == w.lastHash {
		w.logger.Debug("Credential file unchanged, skipping")
		return
	}
	w.lastHash, w.seen = h, true

	cand, err := ParseCandidate(data, SourceFile, w.clock.Now())
	if err != nil {
		w.logger.Warn("Ignoring credential file", "error", err.Error())
		return
	}

	w.logger.Info("Credentials found in file", "ssid", cand.SSID)
	w.submit(cand)
}

func touch(path string) error {
	f, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0o600)
	if err != nil {
		return err
	}
	return f.Close()
}
