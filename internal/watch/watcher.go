// Package watch audits decks as they land in a directory and schedules the
// Slack digest.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 2 * time.Second

// AuditFunc audits one deck.
type AuditFunc func(ctx context.Context, path string) error

// Watcher audits .pptx files created or rewritten in a directory. Saves
// arrive as bursts of events, so a deck is audited once it has been quiet
// for the debounce window.
type Watcher struct {
	dir      string
	audit    AuditFunc
	debounce time.Duration
	log      *zap.Logger
	now      func() time.Time

	pending map[string]time.Time
}

func NewWatcher(dir string, audit AuditFunc, log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		dir:      dir,
		audit:    audit,
		debounce: defaultDebounce,
		log:      log,
		now:      time.Now,
		pending:  make(map[string]time.Time),
	}
}

// SetDebounce overrides the quiet period before a changed deck is audited.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// IsDeck reports whether path names a deck worth auditing. Office lock
// files (~$name.pptx) are skipped.
func IsDeck(path string) bool {
	base := filepath.Base(path)
	return strings.EqualFold(filepath.Ext(base), ".pptx") && !strings.HasPrefix(base, "~$") && !strings.HasPrefix(base, ".")
}

// Run blocks until ctx is done. Audit failures are logged, not returned.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.log.Info("watching directory", zap.String("dir", w.dir), zap.Duration("debounce", w.debounce))

	tick := max(w.debounce/4, 10*time.Millisecond)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))
		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !IsDeck(event.Name) {
		return
	}
	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		w.pending[event.Name] = w.now()
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		delete(w.pending, event.Name)
	}
}

// flush audits every pending deck that has been quiet long enough, in path
// order.
func (w *Watcher) flush(ctx context.Context) {
	now := w.now()
	var ready []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			ready = append(ready, path)
		}
	}
	sort.Strings(ready)
	for _, path := range ready {
		delete(w.pending, path)
		w.log.Info("deck changed", zap.String("path", path))
		if err := w.audit(ctx, path); err != nil {
			w.log.Error("audit failed", zap.String("path", path), zap.Error(err))
		}
	}
}
