package scheduler

import (
	"context"
	"time"

	"github.com/bizcomply/compliance-backend/internal/app/service"
	apperrors "github.com/bizcomply/compliance-backend/internal/errors"
	"github.com/bizcomply/compliance-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

const (
	purgeSchedule = "@hourly"
	scanTimeout   = 30 * time.Minute
)

// ResetPurger removes spent password reset grants.
type ResetPurger interface {
	PurgeExpired() (int64, error)
}

// Options configures the schedules. The scan spec is a standard five-field
// cron expression evaluated in Location.
type Options struct {
	ScanSchedule  string
	LookaheadDays int
	Location      *time.Location
}

// ExpiryScheduler runs the daily expiry scan and housekeeping jobs.
type ExpiryScheduler struct {
	cron    *cron.Cron
	scanner service.ExpiryScanner
	purger  ResetPurger
	opts    Options
}

// NewExpiryScheduler builds a stopped scheduler. purger may be nil.
func NewExpiryScheduler(scanner service.ExpiryScanner, purger ResetPurger, opts Options) *ExpiryScheduler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.LookaheadDays <= 0 {
		opts.LookaheadDays = scanner.DefaultLookahead()
	}
	return &ExpiryScheduler{
		cron:    cron.New(cron.WithLocation(opts.Location)),
		scanner: scanner,
		purger:  purger,
		opts:    opts,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *ExpiryScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.opts.ScanSchedule, s.runScan); err != nil {
		logger.Error("Failed to add cron job for expiry scan", err, map[string]interface{}{
			"schedule": s.opts.ScanSchedule,
		})
		return err
	}

	if s.purger != nil {
		if _, err := s.cron.AddFunc(purgeSchedule, s.runPurge); err != nil {
			logger.Error("Failed to add cron job for password reset purge", err)
			return err
		}
	}

	s.cron.Start()
	logger.Info("Expiry scheduler started", map[string]interface{}{
		"schedule":       s.opts.ScanSchedule,
		"timezone":       s.opts.Location.String(),
		"lookahead_days": s.opts.LookaheadDays,
	})
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *ExpiryScheduler) Stop() {
	logger.Info("Stopping expiry scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Expiry scheduler stopped")
}

// Entries reports how many jobs are registered.
func (s *ExpiryScheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *ExpiryScheduler) runScan() {
	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()

	logger.Info("Starting scheduled expiry scan")
	report, err := s.scanner.Run(ctx, s.opts.LookaheadDays)
	if err != nil {
		if apperrors.IsConflict(err) {
			logger.Info("Scheduled expiry scan skipped, already running elsewhere")
			return
		}
		logger.Error("Scheduled expiry scan failed", err)
		return
	}

	logger.Info("Scheduled expiry scan finished", map[string]interface{}{
		"candidates": report.Candidates,
		"notified":   report.Notified,
		"suppressed": report.Suppressed,
	})
}

func (s *ExpiryScheduler) runPurge() {
	purged, err := s.purger.PurgeExpired()
	if err != nil {
		logger.Error("Failed to purge password resets", err)
		return
	}
	if purged > 0 {
		logger.Info("Purged password resets", map[string]interface{}{
			"count": purged,
		})
	}
}
