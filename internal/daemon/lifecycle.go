package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Scilence2022/CodeXomics-sub009/internal/logger"
)

// pidFileName is created under the data directory while the daemon runs
const pidFileName = "codexomics.pid"

// LifecycleManager owns the daemon's on-disk run state: it claims the PID
// file under the data directory on start and releases it on stop. A stale
// file left by a crashed daemon is reclaimed; a live one blocks start.
type LifecycleManager struct {
	dataDir string
	pidFile string
	logger  *logger.Logger
}

// NewLifecycleManager creates a lifecycle manager rooted at dataDir
func NewLifecycleManager(dataDir string, log *logger.Logger) *LifecycleManager {
	return &LifecycleManager{
		dataDir: dataDir,
		pidFile: filepath.Join(dataDir, pidFileName),
		logger:  log,
	}
}

// Start claims the PID file for this process
func (l *LifecycleManager) Start() error {
	if err := os.MkdirAll(l.dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	if pid, err := l.GetPID(); err == nil {
		if processAlive(pid) {
			return fmt.Errorf("another dispatcher is running (pid %d, PID file %s)", pid, l.pidFile)
		}
		l.logger.Warn().Int("stale_pid", pid).Msg("Reclaiming stale PID file")
		os.Remove(l.pidFile)
	}

	pid := os.Getpid()
	if err := os.WriteFile(l.pidFile, []byte(strconv.Itoa(pid)), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	l.logger.Info().
		Str("pid_file", l.pidFile).
		Int("pid", pid).
		Msg("Claimed PID file")

	return nil
}

// Stop releases the PID file
func (l *LifecycleManager) Stop() error {
	if err := os.Remove(l.pidFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}

	l.logger.Info().Msg("Released PID file")

	return nil
}

// GetPID returns the PID recorded in the PID file
func (l *LifecycleManager) GetPID() (int, error) {
	data, err := os.ReadFile(l.pidFile)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file: %w", err)
	}

	return pid, nil
}

// IsRunning reports whether the recorded PID belongs to a live process
func (l *LifecycleManager) IsRunning() bool {
	pid, err := l.GetPID()
	if err != nil {
		return false
	}
	return processAlive(pid)
}

func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// On Unix, FindProcess always succeeds, so we need to send signal 0
	return process.Signal(os.Signal(nil)) == nil
}
