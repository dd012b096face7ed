// Package sweeper reclaims disk space from stale uploads: a recurring
// background task that walks each category directory and deletes files
// older than the retention window.
package sweeper

import (
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultMaxAge is the retention window applied when none is configured
const DefaultMaxAge = 7 * 24 * time.Hour

// Sweeper deletes aged files from the upload directories on a fixed
// schedule. It only ever acts on whole, already-closed files: an in-flight
// upload is far younger than any sane retention window, so the sweep is
// safe to run concurrently with ingestion.
type Sweeper struct {
	dirs     []string
	maxAge   time.Duration
	schedule string
	logger   *zap.Logger
	cron     *cron.Cron
}

// NewSweeper creates a sweeper over the given absolute directories.
// schedule is a cron expression (e.g. "@daily").
func NewSweeper(dirs []string, maxAge time.Duration, schedule string, logger *zap.Logger) *Sweeper {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Sweeper{
		dirs:     dirs,
		maxAge:   maxAge,
		schedule: schedule,
		logger:   logger,
		cron:     cron.New(),
	}
}

// Start runs one sweep immediately and then on every schedule tick
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.Sweep); err != nil {
		return err
	}
	s.cron.Start()
	go s.Sweep()
	s.logger.Info("Retention sweeper started",
		zap.String("schedule", s.schedule),
		zap.Duration("max_age", s.maxAge),
	)
	return nil
}

// Stop stops the schedule. A sweep already in progress runs to completion.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Retention sweeper stopped")
}

// Sweep deletes every file older than the retention window in every
// category directory. Individual failures are logged and skipped; the sweep
// itself never fails, and running it twice is a no-op the second time.
func (s *Sweeper) Sweep() {
	cutoff := time.Now().Add(-s.maxAge)
	var removed int

	for _, dir := range s.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			s.logger.Error("Failed to read upload directory", zap.String("dir", dir), zap.Error(err))
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}

			info, err := entry.Info()
			if err != nil {
				// File may have been removed since the listing
				s.logger.Debug("Failed to stat file", zap.String("name", entry.Name()), zap.Error(err))
				continue
			}

			if !info.ModTime().Before(cutoff) {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				s.logger.Error("Failed to delete stale file", zap.String("path", path), zap.Error(err))
				continue
			}

			removed++
			s.logger.Debug("Deleted stale file",
				zap.String("path", path),
				zap.Time("mod_time", info.ModTime()),
			)
		}
	}

	if removed > 0 {
		s.logger.Info("Retention sweep complete", zap.Int("removed", removed))
	}
}
