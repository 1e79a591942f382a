// internal/app/system/workers/invitationpurge.go
package workers

import (
	"context"
	"sync"
	"time"

	invitationstore "github.com/dalemusser/tripdesk/internal/app/store/invitations"
	"github.com/dalemusser/tripdesk/internal/app/system/metrics"
	"github.com/dalemusser/tripdesk/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// InvitationPurge is a background worker that deletes terminal invitations
// (accepted, expired, canceled) once they are older than the retention window.
type InvitationPurge struct {
	invitations *invitationstore.Store
	metrics     *metrics.Metrics
	log         *zap.Logger
	interval    time.Duration
	retention   time.Duration
	now         func() time.Time
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// NewInvitationPurge creates a new purge worker.
//
// Parameters:
//   - store: the invitations store
//   - m: metrics sink (may be nil)
//   - logger: zap logger for logging
//   - interval: how often to run the purge (e.g., 1 hour)
//   - retention: how long terminal invitations are kept (e.g., 30 days)
func NewInvitationPurge(store *invitationstore.Store, m *metrics.Metrics, logger *zap.Logger, interval, retention time.Duration) *InvitationPurge {
	return &InvitationPurge{
		invitations: store,
		metrics:     m,
		log:         logger,
		interval:    interval,
		retention:   retention,
		now:         time.Now,
		stopCh:      make(chan struct{}),
	}
}

// WithClock replaces the worker's time source.
func (w *InvitationPurge) WithClock(now func() time.Time) *InvitationPurge {
	w.now = now
	return w
}

// Start begins the background purge loop.
func (w *InvitationPurge) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("invitation purge worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("retention", w.retention))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *InvitationPurge) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("invitation purge worker stopped")
}

func (w *InvitationPurge) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), timeouts.Long())
			_, _ = w.RunOnce(ctx)
			cancel()
		}
	}
}

// RunOnce performs a single purge pass and returns the number of deleted
// invitations.
func (w *InvitationPurge) RunOnce(ctx context.Context) (int64, error) {
	cutoff := w.now().Add(-w.retention)
	count, err := w.invitations.PurgeTerminal(ctx, cutoff)
	if err != nil {
		w.log.Error("failed to purge invitations", zap.Error(err))
		return 0, err
	}

	if count > 0 {
		w.metrics.Invitation("purged", int(count))
		w.log.Info("purged terminal invitations",
			zap.Int64("count", count),
			zap.Time("cutoff", cutoff))
	}
	return count, nil
}
