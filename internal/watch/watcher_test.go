package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
	seen  chan string
}

func newRecorder() *recorder {
	return &recorder{seen: make(chan string, 16)}
}

func (r *recorder) handle(_ context.Context, path string) error {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
	r.seen <- path
	return nil
}

func TestIsExport(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/data/export.txt", true},
		{"/data/EXPORT.TXT", true},
		{"/data/export.tsv", true},
		{"/data/export.debug.tsv", false},
		{"/data/.export.txt", false},
		{"/data/2024-01-05.png", false},
		{"/data/export", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, IsExport(tc.path), tc.path)
	}
}

func TestBackfill(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.tsv", "c.png", ".hidden.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0755))

	rec := newRecorder()
	w := New(dir, nil, rec.handle)
	require.NoError(t, w.Backfill(context.Background()))

	assert.ElementsMatch(t, []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.tsv")}, rec.paths)
}

func TestFlush_WaitsForSettle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	rec := newRecorder()
	w := New(dir, nil, rec.handle, WithSettle(time.Second))

	start := time.Now()
	pending := map[string]time.Time{path: start}

	w.flush(context.Background(), pending, start.Add(500*time.Millisecond))
	assert.Empty(t, rec.paths)
	assert.Len(t, pending, 1)

	w.flush(context.Background(), pending, start.Add(time.Second))
	assert.Equal(t, []string{path}, rec.paths)
	assert.Empty(t, pending)
}

func TestProcess_LogsHandlerErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	core, logs := observer.New(zapcore.ErrorLevel)
	w := New(dir, zap.New(core), func(context.Context, string) error {
		return os.ErrPermission
	})
	w.process(context.Background(), path)

	entries := logs.FilterMessage("failed to process export").All()
	require.Len(t, entries, 1)
	assert.Equal(t, path, entries[0].ContextMap()["path"])
}

func TestRun_HandlesNewExport(t *testing.T) {
	dir := t.TempDir()
	rec := newRecorder()
	w := New(dir, nil, rec.handle, WithSettle(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Rewrite until the watcher has registered the directory
	path := filepath.Join(dir, "new.txt")
	deadline := time.After(5 * time.Second)
	write := time.NewTicker(100 * time.Millisecond)
	defer write.Stop()

	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	for {
		select {
		case got := <-rec.seen:
			assert.Equal(t, path, got)
			return
		case <-write.C:
			require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		case <-deadline:
			t.Fatal("export was not handled")
		}
	}
}

func TestRun_MissingDir(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), nil, newRecorder().handle)
	assert.Error(t, w.Run(context.Background()))
}
