// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/tripdesk/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// devSessionKey is the default signing key; rejected in production.
const devSessionKey = "dev-only-change-me-please-0123456789ABCDEF"

// appConfigKeys defines the configuration keys for TripDesk.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: TRIPDESK_MONGO_URI, TRIPDESK_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "tripdesk", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Redis (rate limiting)
	{Name: "redis_addr", Default: "", Desc: "Redis address for shared rate limiting (blank = in-process)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},

	// Caller identity
	{Name: "session_key", Default: devSessionKey, Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "tripdesk-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime"},
	{Name: "jwt_secret", Default: "", Desc: "HS256 secret for bearer tokens (blank disables bearer auth)"},
	{Name: "jwt_issuer", Default: "", Desc: "Required bearer token issuer (blank accepts any)"},

	// Invitations
	{Name: "invitation_ttl", Default: "168h", Desc: "How long a new invitation stays redeemable"},
	{Name: "invite_rate_limit", Default: 20, Desc: "Invitations per agency per window (0 disables)"},
	{Name: "invite_rate_window", Default: "1h", Desc: "Invitation rate limit window"},
	{Name: "invitation_retention", Default: "720h", Desc: "How long accepted/expired/canceled invitations are kept"},
	{Name: "invitation_purge_interval", Default: "1h", Desc: "How often terminal invitations are purged (0 disables)"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "", Desc: "SMTP server host (blank logs email instead of sending)"},
	{Name: "mail_smtp_port", Default: 587, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@tripdesk.app", Desc: "From email address"},
	{Name: "mail_from_name", Default: "TripDesk", Desc: "From display name"},

	// Base URL for email links
	{Name: "base_url", Default: "http://localhost:8080", Desc: "Base URL for invitation links"},

	// Audit logging settings
	{Name: "audit_log_admin", Default: "all", Desc: "Agency/membership event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_security", Default: "all", Desc: "Permission denial logging: 'all' (db+log), 'db', 'log', or 'off'"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, TRIPDESK_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
//
// Operation timeouts are read separately from TIMEOUT_* variables.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "TRIPDESK", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 720*time.Hour),
		JWTSecret:     appValues.String("jwt_secret"),
		JWTIssuer:     appValues.String("jwt_issuer"),

		InvitationTTL:           appValues.Duration("invitation_ttl", 7*24*time.Hour),
		InviteRateLimit:         appValues.Int("invite_rate_limit"),
		InviteRateWindow:        appValues.Duration("invite_rate_window", time.Hour),
		InvitationRetention:     appValues.Duration("invitation_retention", 30*24*time.Hour),
		InvitationPurgeInterval: appValues.Duration("invitation_purge_interval", time.Hour),

		// Email/SMTP
		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		BaseURL: appValues.String("base_url"),

		AuditLogAdmin:    appValues.String("audit_log_admin"),
		AuditLogSecurity: appValues.String("audit_log_security"),
	}

	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("operation timeouts configured from environment",
			zap.Int("count", n),
			zap.Duration("short", timeouts.Short()),
			zap.Duration("long", timeouts.Long()))
	}

	return coreCfg, appCfg, nil
}

var auditSettings = map[string]bool{"all": true, "db": true, "log": true, "off": true}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The MongoDB URI is validated to catch configuration errors early, before
// attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.InvitationTTL <= 0 {
		return fmt.Errorf("invitation_ttl must be positive, got %s", appCfg.InvitationTTL)
	}
	if appCfg.InviteRateLimit < 0 {
		return fmt.Errorf("invite_rate_limit must not be negative, got %d", appCfg.InviteRateLimit)
	}
	if appCfg.InviteRateLimit > 0 && appCfg.InviteRateWindow <= 0 {
		return fmt.Errorf("invite_rate_window must be positive when invite_rate_limit is set")
	}
	if appCfg.InvitationPurgeInterval > 0 && appCfg.InvitationRetention <= 0 {
		return fmt.Errorf("invitation_retention must be positive when the purge worker is enabled")
	}
	for key, v := range map[string]string{
		"audit_log_admin":    appCfg.AuditLogAdmin,
		"audit_log_security": appCfg.AuditLogSecurity,
	} {
		if !auditSettings[v] {
			return fmt.Errorf("%s must be one of all, db, log, off; got %q", key, v)
		}
	}
	if coreCfg != nil && coreCfg.Env == "prod" && appCfg.SessionKey == devSessionKey {
		return fmt.Errorf("session_key must be set in production")
	}
	return nil
}
