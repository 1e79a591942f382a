// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"sync"

	invitationstore "github.com/dalemusser/tripdesk/internal/app/store/invitations"
	"github.com/dalemusser/tripdesk/internal/app/system/ratelimit"
	"github.com/dalemusser/tripdesk/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// background holds long-lived components started by the lifecycle hooks and
// stopped in Shutdown.
var background struct {
	mu      sync.Mutex
	purge   *workers.InvitationPurge
	limiter *ratelimit.Limiter
}

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
//
// TripDesk starts the invitation purge worker here unless its interval is 0.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.InvitationPurgeInterval <= 0 {
		logger.Info("invitation purge worker disabled")
		return nil
	}

	w := workers.NewInvitationPurge(
		invitationstore.New(deps.TripDeskMongoDatabase),
		deps.Metrics,
		logger,
		appCfg.InvitationPurgeInterval,
		appCfg.InvitationRetention,
	)
	w.Start()

	background.mu.Lock()
	background.purge = w
	background.mu.Unlock()
	return nil
}

// newInviteLimiter picks the invitation rate limiter: Redis when configured,
// otherwise an in-process window. A limit of 0 disables limiting.
func newInviteLimiter(appCfg AppConfig, deps DBDeps, logger *zap.Logger) ratelimit.Allower {
	if appCfg.InviteRateLimit <= 0 {
		logger.Info("invitation rate limiting disabled")
		return nil
	}
	if deps.Redis != nil {
		logger.Info("invitation rate limiting via redis",
			zap.Int("limit", appCfg.InviteRateLimit),
			zap.Duration("window", appCfg.InviteRateWindow))
		return ratelimit.NewRedis(deps.Redis, "tripdesk:invites", appCfg.InviteRateLimit, appCfg.InviteRateWindow)
	}

	l := ratelimit.New(appCfg.InviteRateLimit, appCfg.InviteRateWindow)
	background.mu.Lock()
	background.limiter = l
	background.mu.Unlock()
	logger.Info("invitation rate limiting in-process",
		zap.Int("limit", appCfg.InviteRateLimit),
		zap.Duration("window", appCfg.InviteRateWindow))
	return l
}

// stopBackground stops whatever Startup and BuildHandler started. Safe to
// call more than once.
func stopBackground() {
	background.mu.Lock()
	defer background.mu.Unlock()
	if background.purge != nil {
		background.purge.Stop()
		background.purge = nil
	}
	if background.limiter != nil {
		background.limiter.Stop()
		background.limiter = nil
	}
}
