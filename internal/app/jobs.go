package app

import (
	"context"
	"time"

	"github.com/garyellow/ptc-frontdesk/internal/archive"
	"github.com/garyellow/ptc-frontdesk/internal/config"
)

// sessionCleanup drops expired in-memory sessions and updates the
// active-session gauge until ctx is canceled.
func (a *Application) sessionCleanup(ctx context.Context) {
	a.logger.Debug("Session cleanup job started")
	defer a.logger.Debug("Session cleanup job stopped")

	ticker := time.NewTicker(a.cfg.Session.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Debug("Session cleanup received shutdown signal")
			return
		case <-ticker.C:
			a.runSessionCleanup()
		}
	}
}

func (a *Application) runSessionCleanup() {
	removed := a.memSessions.Cleanup()
	active := a.memSessions.Count()
	a.metrics.SetActiveSessions(active)
	if removed > 0 {
		a.logger.WithField("removed", removed).
			WithField("active", active).
			Info("Expired sessions removed")
	}
}

// dailyArchive uploads the interaction log once a day at ARCHIVE_HOUR
// (Europe/Berlin), exits on context cancellation.
func (a *Application) dailyArchive(ctx context.Context) {
	a.logger.Debug("Archive job started")
	defer a.logger.Debug("Archive job stopped")

	loc := archive.Berlin()
	for {
		next := archive.NextRun(time.Now(), a.cfg.R2.ArchiveHour, loc)
		a.logger.WithField("next_run", next.Format(time.RFC3339)).
			Info("Scheduled next archive upload (Berlin time)")

		select {
		case <-ctx.Done():
			a.logger.Debug("Archive job received shutdown signal")
			return
		case <-time.After(time.Until(next)):
			a.runArchive(ctx)
		}
	}
}

func (a *Application) runArchive(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, config.ArchiveUpload)
	defer cancel()

	start := time.Now()
	res, err := a.archiver.Run(runCtx)
	if err != nil {
		a.logger.WithError(err).WithField("day", res.Day).Error("Archive upload failed")
		return
	}
	if !res.Skipped {
		a.logger.WithField("day", res.Day).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			Debug("Archive job finished")
	}
}
