package history

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Janitor prunes call records older than the retention window on a cron
// schedule.
type Janitor struct {
	store     *Store
	cron      *cron.Cron
	retention time.Duration
	logger    zerolog.Logger
}

// NewJanitor creates a janitor for the given store. The schedule uses cron
// syntax, including descriptors like "@hourly".
func NewJanitor(store *Store, retention time.Duration, schedule string, logger zerolog.Logger) (*Janitor, error) {
	if store == nil {
		return nil, fmt.Errorf("history store is required")
	}
	if retention <= 0 {
		return nil, fmt.Errorf("retention must be positive")
	}

	j := &Janitor{
		store:     store,
		cron:      cron.New(),
		retention: retention,
		logger:    logger.With().Str("component", "history-janitor").Logger(),
	}

	if _, err := j.cron.AddFunc(schedule, j.prune); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}

	return j, nil
}

// Start begins running the prune schedule
func (j *Janitor) Start() {
	j.cron.Start()
	j.logger.Info().Dur("retention", j.retention).Msg("History janitor started")
}

// Stop stops the schedule and waits for a running prune to finish
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info().Msg("History janitor stopped")
}

func (j *Janitor) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-j.retention)
	removed, err := j.store.Prune(ctx, cutoff)
	if err != nil {
		j.logger.Error().Err(err).Msg("Failed to prune call history")
		return
	}
	if removed > 0 {
		j.logger.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("Pruned call history")
	}
}
