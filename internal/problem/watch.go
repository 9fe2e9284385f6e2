package problem

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Iron-Ham/quorum/internal/ensemble"
)

// debounce collapses the burst of events editors emit for one save.
const debounce = 50 * time.Millisecond

// Update is one read of a watched problem file.
type Update struct {
	Problem ensemble.Problem
	Err     error
}

// Watch emits the current problem, then a fresh read each time the file
// is written or replaced, until ctx is done. The parent directory is
// watched so editors that save via rename are seen too. The channel is
// closed when watching stops.
func (s *FileSource) Watch(ctx context.Context) (<-chan Update, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	target := filepath.Clean(s.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	out := make(chan Update, 1)
	go s.watchLoop(ctx, watcher, target, out)
	return out, nil
}

func (s *FileSource) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, target string, out chan<- Update) {
	defer close(out)
	defer func() { _ = watcher.Close() }()

	emit := func() bool {
		p, err := s.Read(ctx)
		select {
		case out <- Update{Problem: p, Err: err}:
			return true
		case <-ctx.Done():
			return false
		}
	}
	if !emit() {
		return
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			pending = true
			timer.Reset(debounce)

		case <-timer.C:
			if pending {
				pending = false
				if !emit() {
					return
				}
			}

		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
