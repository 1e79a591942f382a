// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//
// The struct is passed to most lifecycle hooks, so any configuration needed
// during startup, request handling, or shutdown should live here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Redis backs the invitation rate limiter. Blank means in-process limiting.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: tripdesk-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Bearer tokens issued by the external identity service.
	JWTSecret string // HS256 secret; blank disables bearer authentication
	JWTIssuer string // expected "iss" claim; blank accepts any issuer

	// Invitations
	InvitationTTL           time.Duration // lifetime of a new invitation
	InviteRateLimit         int           // invitations per agency per window; 0 disables
	InviteRateWindow        time.Duration
	InvitationRetention     time.Duration // how long terminal invitations are kept
	InvitationPurgeInterval time.Duration // 0 disables the purge worker

	// Email/SMTP configuration
	MailSMTPHost string // SMTP server host; blank logs email instead of sending
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for SES)
	MailSMTPUser string // SMTP username
	MailSMTPPass string // SMTP password
	MailFrom     string // From email address (e.g., noreply@tripdesk.app)
	MailFromName string // From display name (e.g., TripDesk)

	// Base URL for email links (invitation accept links)
	BaseURL string // e.g., "https://tripdesk.app" or "http://localhost:8080"

	// Audit logging ("all", "db", "log", "off")
	AuditLogAdmin    string
	AuditLogSecurity string
}
