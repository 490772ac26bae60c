package logger

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dispatchLine = `{"level":"info","tool_name":"gc-content","status":"success","message":"Call finished"}` + "\n"

func newTestWriter(t *testing.T, policy RotationPolicy) (*RotatingWriter, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "codexomics.log")
	w, err := NewRotatingWriter(path, policy)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	return w, path
}

func TestRotatingWriterAppends(t *testing.T) {
	w, path := newTestWriter(t, RotationPolicy{MaxSizeMB: 10})

	for i := 0; i < 3; i++ {
		n, err := w.Write([]byte(dispatchLine))
		require.NoError(t, err)
		assert.Equal(t, len(dispatchLine), n)
	}

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(content), "gc-content"))
}

func TestRotatingWriterCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "codexomics.log")
	w, err := NewRotatingWriter(path, RotationPolicy{MaxSizeMB: 1})
	require.NoError(t, err)
	defer w.Close()

	assert.FileExists(t, path)
}

func TestRotatingWriterRotatesAtSizeLimit(t *testing.T) {
	w, path := newTestWriter(t, RotationPolicy{MaxSizeMB: 1})
	// Shrink the threshold so two lines force a rotation
	w.maxBytes = int64(len(dispatchLine)) + 1

	_, err := w.Write([]byte(dispatchLine))
	require.NoError(t, err)
	_, err = w.Write([]byte(dispatchLine))
	require.NoError(t, err)

	archives, err := filepath.Glob(path + ".*")
	require.NoError(t, err)
	require.Len(t, archives, 1)

	// The live file holds only the post-rotation line
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(content), "gc-content"))
	assert.Equal(t, int64(len(dispatchLine)), w.written)
}

func TestRotatingWriterCompressesArchives(t *testing.T) {
	w, path := newTestWriter(t, RotationPolicy{MaxSizeMB: 1, Compress: true})
	w.maxBytes = int64(len(dispatchLine)) + 1

	_, err := w.Write([]byte(dispatchLine))
	require.NoError(t, err)
	_, err = w.Write([]byte(dispatchLine))
	require.NoError(t, err)

	archives, err := filepath.Glob(path + ".*.gz")
	require.NoError(t, err)
	require.Len(t, archives, 1)

	// The uncompressed archive is gone and the gzip content round-trips
	plain, err := filepath.Glob(path + ".2*")
	require.NoError(t, err)
	for _, p := range plain {
		assert.True(t, strings.HasSuffix(p, ".gz"))
	}

	f, err := os.Open(archives[0])
	require.NoError(t, err)
	defer f.Close()
	gzr, err := gzip.NewReader(f)
	require.NoError(t, err)
	restored, err := io.ReadAll(gzr)
	require.NoError(t, err)
	assert.Equal(t, dispatchLine, string(restored))
}

func TestRotatingWriterSweepsStaleArchives(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "codexomics.log")

	stale := path + ".2020-01-01T120000"
	fresh := path + "." + time.Now().Format(archiveTimeFormat)
	require.NoError(t, os.WriteFile(stale, []byte(dispatchLine), 0644))
	require.NoError(t, os.WriteFile(fresh, []byte(dispatchLine), 0644))

	old := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(stale, old, old))

	w, err := NewRotatingWriter(path, RotationPolicy{MaxSizeMB: 1, MaxAgeDays: 7})
	require.NoError(t, err)
	defer w.Close()

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
}

func TestRotatingWriterCloseTwice(t *testing.T) {
	w, _ := newTestWriter(t, RotationPolicy{MaxSizeMB: 1})

	require.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
