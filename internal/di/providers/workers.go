package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/kidobra/kidobra-server/internal/logger"
	"github.com/kidobra/kidobra-server/internal/service"
)

// sessionCleanupInterval is how often expired sessions are purged.
const sessionCleanupInterval = time.Hour

// SessionCleanupJob periodically removes expired sessions from the store.
type SessionCleanupJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *SessionCleanupJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideSessionCleanupJob starts the expired-session cleanup worker.
func ProvideSessionCleanupJob(i do.Injector) (*SessionCleanupJob, error) {
	sessionService := do.MustInvoke[*service.SessionService](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		ticker := time.NewTicker(sessionCleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				count, err := sessionService.DeleteExpiredSessions(ctx)
				if err != nil {
					log.Warn("Session cleanup failed", "error", err)
					continue
				}
				if count > 0 {
					log.Info("Expired sessions removed", "count", count)
				}
			}
		}
	}()

	log.Info("Session cleanup worker started", "interval", sessionCleanupInterval)

	return &SessionCleanupJob{cancel: cancel}, nil
}
