package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func runWatcher(t *testing.T, w *Watcher) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	return func() {
		stop()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("watcher did not stop")
		}
	}
}

func TestWatcher_ReloadsAfterWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inkforge.db")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o600))

	var reloads atomic.Int32
	w := NewWatcher(path, 50*time.Millisecond, func(context.Context) error {
		reloads.Add(1)
		return nil
	}, nil)
	stop := runWatcher(t, w)
	defer stop()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	// A burst of writes to the file and its WAL sibling is debounced.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path+"-wal", []byte{byte(i)}, 0o600))
	}

	assert.Eventually(t, func() bool { return reloads.Load() >= 1 }, 3*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), reloads.Load())
}

func TestWatcher_ReloadsOnMainFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inkforge.db")

	var reloads atomic.Int32
	w := NewWatcher(path, 20*time.Millisecond, func(context.Context) error {
		reloads.Add(1)
		return nil
	}, nil)
	stop := runWatcher(t, w)
	defer stop()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o600))

	assert.Eventually(t, func() bool { return reloads.Load() == 1 }, 3*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"unrelated file", "notes.txt"},
		{"shared memory index", "inkforge.db-shm"},
		{"rollback journal", "inkforge.db-journal"},
		{"same prefix", "inkforge.db.bak"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "inkforge.db")

			var reloads atomic.Int32
			w := NewWatcher(path, 20*time.Millisecond, func(context.Context) error {
				reloads.Add(1)
				return nil
			}, nil)
			stop := runWatcher(t, w)
			defer stop()

			time.Sleep(100 * time.Millisecond)
			require.NoError(t, os.WriteFile(filepath.Join(dir, tt.file), []byte("x"), 0o600))

			time.Sleep(200 * time.Millisecond)
			assert.Equal(t, int32(0), reloads.Load())
		})
	}
}

func TestWatcher_Relevant(t *testing.T) {
	w := NewWatcher("/data/inkforge.db", 0, func(context.Context) error { return nil }, nil)
	tests := []struct {
		name string
		file string
		op   fsnotify.Op
		want bool
	}{
		{"database write", "/data/inkforge.db", fsnotify.Write, true},
		{"database replaced", "/data/inkforge.db", fsnotify.Rename, true},
		{"wal write", "/data/inkforge.db-wal", fsnotify.Write, true},
		{"wal created", "/data/inkforge.db-wal", fsnotify.Create, true},
		{"shm write", "/data/inkforge.db-shm", fsnotify.Write, false},
		{"journal write", "/data/inkforge.db-journal", fsnotify.Write, false},
		{"backup write", "/data/inkforge.db.bak", fsnotify.Write, false},
		{"database chmod", "/data/inkforge.db", fsnotify.Chmod, false},
		{"database removed", "/data/inkforge.db", fsnotify.Remove, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := fsnotify.Event{Name: tt.file, Op: tt.op}
			assert.Equal(t, tt.want, w.relevant("inkforge.db", event))
		})
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "missing", "inkforge.db"), 0, func(context.Context) error { return nil }, nil)
	assert.Equal(t, DefaultDebounce, w.debounce)

	err := w.Run(context.Background())
	assert.Error(t, err)
}
