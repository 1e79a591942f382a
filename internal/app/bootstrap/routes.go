// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	agenciesfeature "github.com/dalemusser/tripdesk/internal/app/features/agencies"
	devsessionfeature "github.com/dalemusser/tripdesk/internal/app/features/devsession"
	healthfeature "github.com/dalemusser/tripdesk/internal/app/features/health"
	heartbeatfeature "github.com/dalemusser/tripdesk/internal/app/features/heartbeat"
	invitationsfeature "github.com/dalemusser/tripdesk/internal/app/features/invitations"
	membersfeature "github.com/dalemusser/tripdesk/internal/app/features/members"
	"github.com/dalemusser/tripdesk/internal/app/membership"
	"github.com/dalemusser/tripdesk/internal/app/store/audit"
	userstore "github.com/dalemusser/tripdesk/internal/app/store/users"
	"github.com/dalemusser/tripdesk/internal/app/system/auditlog"
	"github.com/dalemusser/tripdesk/internal/app/system/auth"
	"github.com/dalemusser/tripdesk/internal/app/system/mailer"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// TripDesk builds the caller-identity middleware (session cookie or bearer
// token), the membership service with its collaborators, and mounts the
// JSON feature routers plus /health and /metrics.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.TripDeskMongoDatabase

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Fetch fresh user data on each request so email verification and
	// disabled accounts take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	if appCfg.JWTSecret != "" {
		verifier, err := auth.NewBearerVerifier(appCfg.JWTSecret, appCfg.JWTIssuer)
		if err != nil {
			logger.Error("bearer verifier init failed", zap.Error(err))
			return nil, err
		}
		sessionMgr.SetBearerVerifier(verifier)
	}

	auditLogger := auditlog.New(audit.New(db), logger, auditlog.Config{
		Admin:    appCfg.AuditLogAdmin,
		Security: appCfg.AuditLogSecurity,
	})

	mail := mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		User:     appCfg.MailSMTPUser,
		Pass:     appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	}, logger)

	svc := membership.New(membership.Deps{
		DB:      db,
		Audit:   auditLogger,
		Mailer:  mail,
		Metrics: deps.Metrics,
		Limiter: newInviteLimiter(appCfg, deps, logger),
		Log:     logger,
	}, membership.Config{
		InvitationTTL: appCfg.InvitationTTL,
		SiteName:      appCfg.MailFromName,
		BaseURL:       appCfg.BaseURL,
	})

	r := chi.NewRouter()
	r.Use(deps.Metrics.Middleware)

	// Health check endpoint for load balancers and orchestrators
	var rdb redis.UniversalClient
	if deps.Redis != nil {
		rdb = deps.Redis
	}
	healthHandler := healthfeature.NewHandler(deps.TripDeskMongoClient, rdb, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", deps.Metrics.Handler())

	r.Group(func(api chi.Router) {
		// Loads the SessionUser into context when a cookie or bearer token
		// identifies one. Feature routers require it.
		api.Use(sessionMgr.LoadSessionUser)

		agenciesHandler := agenciesfeature.NewHandler(svc, logger)
		api.Mount("/agencies", agenciesfeature.Routes(agenciesHandler, sessionMgr))

		membersHandler := membersfeature.NewHandler(svc, logger)
		api.Mount("/members", membersfeature.Routes(membersHandler, sessionMgr))

		invitationsHandler := invitationsfeature.NewHandler(svc, logger)
		api.Mount("/invitations", invitationsfeature.Routes(invitationsHandler, sessionMgr))

		heartbeatHandler := heartbeatfeature.NewHandler(svc, logger)
		api.Mount("/api/heartbeat", heartbeatfeature.Routes(heartbeatHandler, sessionMgr))

		// Cookie sign-in for local development; production identities come
		// from the authentication service.
		if coreCfg.Env != "prod" {
			devHandler := devsessionfeature.NewHandler(userstore.New(db), sessionMgr, logger)
			api.Mount("/dev/session", devsessionfeature.Routes(devHandler))
		}
	})

	return r, nil
}
