// Package watch renders glucose exports as they appear in a directory.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hpungsan/libreplot/internal/config"
	"github.com/hpungsan/libreplot/internal/ops"
)

// DefaultSettle is how long a file must stay unchanged before it is processed.
const DefaultSettle = 500 * time.Millisecond

// Handler processes one export file.
type Handler func(ctx context.Context, path string) error

// Watcher monitors a directory for new or rewritten export files.
type Watcher struct {
	dir    string
	log    *zap.Logger
	handle Handler
	settle time.Duration
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettle overrides DefaultSettle.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// New creates a Watcher for dir.
func New(dir string, log *zap.Logger, handle Handler, opts ...Option) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	w := &Watcher{dir: dir, log: log, handle: handle, settle: DefaultSettle}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// RenderHandler renders every day of an export into outDir.
func RenderHandler(cfg *config.Config, log *zap.Logger, outDir string) Handler {
	return func(ctx context.Context, path string) error {
		out, err := ops.Render(ctx, cfg, log, ops.RenderInput{Path: path, OutputDir: outDir})
		if err != nil {
			return err
		}
		log.Info("export rendered",
			zap.String("path", path),
			zap.Int("charts", len(out.Written)),
			zap.Int("failed", len(out.Failed)),
		)
		return nil
	}
}

// IsExport reports whether path looks like a glucose export.
func IsExport(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".debug.tsv") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".tsv":
		return true
	default:
		return false
	}
}

// Run watches the directory until ctx is canceled. Files are handled one at
// a time once they have been quiet for the settle period.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return err
	}
	w.log.Info("watching for exports", zap.String("dir", w.dir))

	ticker := time.NewTicker(max(w.settle/2, time.Millisecond))
	defer ticker.Stop()

	pending := make(map[string]time.Time)
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if evt.Op&(fsnotify.Create|fsnotify.Write) != 0 && IsExport(evt.Name) {
				pending[evt.Name] = time.Now()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))
		case now := <-ticker.C:
			w.flush(ctx, pending, now)
		}
	}
}

// flush handles every pending file that has settled.
func (w *Watcher) flush(ctx context.Context, pending map[string]time.Time, now time.Time) {
	for path, last := range pending {
		if now.Sub(last) < w.settle {
			continue
		}
		delete(pending, path)
		w.process(ctx, path)
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return
	}
	if err := w.handle(ctx, path); err != nil {
		w.log.Error("failed to process export", zap.String("path", path), zap.Error(err))
	}
}

// Backfill handles the exports already present in the directory.
func (w *Watcher) Backfill(ctx context.Context) error {
	entries, err := filepath.Glob(filepath.Join(w.dir, "*"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if IsExport(e) {
			w.process(ctx, e)
		}
	}
	return nil
}
