package feed

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/intersim/intersim/internal/channel"
	"github.com/intersim/intersim/internal/sim"
)

// Watch loads the lane files whenever one is written and on every poll
// interval, sending the batches to out. It returns nil once ctx is done.
func (s *Source) Watch(ctx context.Context, poll time.Duration, out channel.Sender[Batch]) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(s.dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	var pollC <-chan time.Time
	if poll > 0 {
		t := time.NewTicker(poll)
		defer t.Stop()
		pollC = t.C
	}

	s.log.Info("Watching lane files", "dir", s.dir, "poll", poll)
	if !s.deliver(ctx, out) {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 || !s.isLaneFile(ev.Name) {
				continue
			}
			if !s.deliver(ctx, out) {
				return nil
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("Lane watcher error", "error", err)
		case <-pollC:
			if !s.deliver(ctx, out) {
				return nil
			}
		}
	}
}

// deliver loads and sends batches. It reports false when ctx ended.
func (s *Source) deliver(ctx context.Context, out channel.Sender[Batch]) bool {
	batches, err := s.Load()
	if err != nil {
		s.log.Warn("Error loading lane files", "error", err)
	}
	for _, b := range batches {
		s.log.Debug("Loaded arrivals", "origin", b.Origin, "count", len(b.IDs))
		if err := out.Send(ctx, b); err != nil {
			return false
		}
	}
	return ctx.Err() == nil
}

func (s *Source) isLaneFile(name string) bool {
	for _, o := range sim.Origins {
		if filepath.Clean(name) == filepath.Clean(LanePath(s.dir, o)) {
			return true
		}
	}
	return false
}
