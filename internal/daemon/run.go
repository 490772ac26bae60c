package daemon

import (
	"os"
	"os/signal"
	"syscall"
)

// Run starts the daemon and blocks until SIGINT or SIGTERM, then shuts it
// down gracefully.
func (d *Daemon) Run() error {
	if err := d.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	d.logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	return d.Stop()
}
