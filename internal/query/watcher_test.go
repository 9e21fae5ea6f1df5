package query

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanzil7890/schemarefly/internal/config"
)

func TestWatcherPushesFileChangesIntoInputs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.sql")
	require.NoError(t, os.WriteFile(path, []byte("select 1"), 0o644))

	c := New(config.DefaultConfig())
	w, err := NewWatcher(c, dir)
	require.NoError(t, err)
	w.debounce = 0
	w.Start()
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("select 2"), 0o644))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if text, ok := c.Inputs.FileText(path); ok && text == "select 2" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	text, ok := c.Inputs.FileText(path)
	assert.True(t, ok)
	assert.Equal(t, "select 2", text)
}
