package inventory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/HerbHall/assetscout/pkg/models"
	"go.uber.org/zap"
)

// scanStarter is the part of Module the scheduler drives.
type scanStarter interface {
	StartScan(trigger string) (*models.ScanRun, error)
	Running() bool
}

// Scheduler runs recurring printer scans on a fixed interval, skipping
// ticks inside the quiet window or while a scan is already running.
type Scheduler struct {
	cfg     Config
	scans   scanStarter
	logger  *zap.Logger
	nowFunc func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewScheduler creates a scheduler that starts scans through scans.
func NewScheduler(cfg Config, scans scanStarter, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		scans:   scans,
		logger:  logger,
		nowFunc: time.Now,
		stopCh:  make(chan struct{}),
	}
}

// Run starts the ticker loop. It blocks until ctx is cancelled or Stop is
// called.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	s.logger.Info("scan scheduler started",
		zap.Duration("interval", s.cfg.ScanInterval),
		zap.String("quiet_start", s.cfg.QuietStart),
		zap.String("quiet_end", s.cfg.QuietEnd),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scan scheduler stopped (context cancelled)")
			return
		case <-s.stopCh:
			s.logger.Info("scan scheduler stopped")
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// Stop signals the scheduler to exit its run loop.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// tick reports whether a scan was started.
func (s *Scheduler) tick() bool {
	if isQuietHours(s.nowFunc(), s.cfg.QuietStart, s.cfg.QuietEnd) {
		s.logger.Debug("scheduled scan skipped: quiet hours",
			zap.String("quiet_start", s.cfg.QuietStart),
			zap.String("quiet_end", s.cfg.QuietEnd),
		)
		return false
	}

	if s.scans.Running() {
		s.logger.Debug("scheduled scan skipped: scan already running")
		return false
	}

	scan, err := s.scans.StartScan(TriggerScheduled)
	if errors.Is(err, ErrScanInProgress) {
		s.logger.Debug("scheduled scan skipped: scan already running")
		return false
	}
	if err != nil {
		s.logger.Error("scheduled scan failed to start", zap.Error(err))
		return false
	}
	s.logger.Info("scheduled scan started", zap.String("scan_id", scan.ID))
	return true
}

// isQuietHours reports whether now falls within the window startHHMM to
// endHHMM. Overnight windows such as "23:00" to "06:00" are supported.
// Empty or malformed bounds disable the window.
func isQuietHours(now time.Time, startHHMM, endHHMM string) bool {
	if startHHMM == "" || endHHMM == "" {
		return false
	}

	startMin, ok := parseHHMM(startHHMM)
	if !ok {
		return false
	}
	endMin, ok := parseHHMM(endHHMM)
	if !ok {
		return false
	}

	nowMin := now.Hour()*60 + now.Minute()
	if startMin <= endMin {
		return nowMin >= startMin && nowMin < endMin
	}
	return nowMin >= startMin || nowMin < endMin
}

// parseHHMM parses "HH:MM" into minutes since midnight.
func parseHHMM(s string) (int, bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
