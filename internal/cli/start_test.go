package cli

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Scilence2022/CodeXomics-sub009/internal/config"
)

func TestGetPIDFilePath(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = "/var/lib/codexomics"
	assert.Equal(t, "/var/lib/codexomics/codexomics.pid", getPIDFilePath(cfg))

	cfg.DataDir = ""
	path := getPIDFilePath(cfg)
	assert.Contains(t, path, "codexomics.pid")
}

func TestIsRunning(t *testing.T) {
	t.Run("missing pid file", func(t *testing.T) {
		assert.False(t, isRunning(filepath.Join(t.TempDir(), "missing.pid")))
	})

	t.Run("garbage pid file", func(t *testing.T) {
		pidFile := filepath.Join(t.TempDir(), "bad.pid")
		require.NoError(t, os.WriteFile(pidFile, []byte("not-a-pid"), 0644))
		assert.False(t, isRunning(pidFile))
	})

	t.Run("current process", func(t *testing.T) {
		pidFile := filepath.Join(t.TempDir(), "self.pid")
		require.NoError(t, os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0644))
		assert.True(t, isRunning(pidFile))
	})
}

func TestReadPID(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "daemon.pid")
	require.NoError(t, os.WriteFile(pidFile, []byte("4321"), 0644))

	pid, err := readPID(pidFile)
	require.NoError(t, err)
	assert.Equal(t, 4321, pid)

	_, err = readPID(filepath.Join(t.TempDir(), "missing.pid"))
	assert.Error(t, err)
}
