package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputWatcherRelevant(t *testing.T) {
	dir := t.TempDir()
	catalogDir := filepath.Join(dir, "catalog")
	require.NoError(t, os.MkdirAll(filepath.Join(catalogDir, "Basketball"), 0755))
	events := filepath.Join(dir, "events.yaml")

	w, err := newInputWatcher(catalogDir, events, 10*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	tests := []struct {
		path string
		want bool
	}{
		{filepath.Join(catalogDir, "sport.yaml"), true},
		{filepath.Join(catalogDir, "Basketball", "NBA.yml"), true},
		{filepath.Join(catalogDir, "Basketball", "notes.txt"), false},
		{filepath.Join(catalogDir, "Basketball", ".NBA.yaml.swp"), false},
		{events, true},
		{filepath.Join(dir, "other.yaml"), false},
		{filepath.Join(dir, "elsewhere", "sport.yaml"), false},
	}

	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			assert.Equal(t, tt.want, w.relevant(tt.path))
		})
	}
}

func TestInputWatcherRun(t *testing.T) {
	catalogDir := t.TempDir()
	w, err := newInputWatcher(catalogDir, "", 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	changes := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) error {
			changes <- struct{}{}
			return nil
		})
	}()

	// A burst of writes is reported once the inputs are quiet.
	doc := filepath.Join(catalogDir, "sport.yaml")
	for i := range 3 {
		require.NoError(t, os.WriteFile(doc, []byte("name: {en: Basketball}\n# "+string(rune('a'+i))+"\n"), 0644))
	}

	select {
	case <-changes:
	case <-ctx.Done():
		t.Fatal("no change reported")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestInputWatcherMissingCatalog(t *testing.T) {
	_, err := newInputWatcher(filepath.Join(t.TempDir(), "nope"), "", time.Second)
	assert.Error(t, err)
}
