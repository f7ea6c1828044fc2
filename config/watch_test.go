package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitChange(t *testing.T, w *SecretsWatcher, what string) {
	t.Helper()
	select {
	case <-w.Changes:
	case <-time.After(3 * time.Second):
		t.Fatalf("no change signal after %s", what)
	}
}

// drainChanges discards anything delivered within one debounce window.
func drainChanges(w *SecretsWatcher) {
	deadline := time.After(400 * time.Millisecond)
	for {
		select {
		case <-w.Changes:
		case <-deadline:
			return
		}
	}
}

func TestSecretsWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".secrets.env")
	require.NoError(t, os.WriteFile(path, []byte("LAT=1\n"), 0600))

	w, err := NewSecretsWatcher(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("LAT=2\n"), 0600))
	waitChange(t, w, "write")
	drainChanges(w)

	tmp := filepath.Join(dir, "secrets.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("LAT=3\n"), 0600))
	require.NoError(t, os.Rename(tmp, path))
	waitChange(t, w, "rename over")

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestSecretsWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".secrets.env")

	w, err := NewSecretsWatcher(path)
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.env"), []byte("X=1\n"), 0600))
	select {
	case <-w.Changes:
		t.Fatal("unexpected change signal for an unrelated file")
	case <-time.After(600 * time.Millisecond):
	}
}
