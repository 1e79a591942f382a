// Package membership implements agency, member and invitation operations.
// Every operation takes the acting Caller explicitly and runs its
// authorization check through agencypolicy before touching state.
package membership

import (
	"time"

	"github.com/dalemusser/tripdesk/internal/app/policy/agencypolicy"
	agencystore "github.com/dalemusser/tripdesk/internal/app/store/agencies"
	"github.com/dalemusser/tripdesk/internal/app/store/audit"
	invitationstore "github.com/dalemusser/tripdesk/internal/app/store/invitations"
	memberstore "github.com/dalemusser/tripdesk/internal/app/store/members"
	userstore "github.com/dalemusser/tripdesk/internal/app/store/users"
	"github.com/dalemusser/tripdesk/internal/app/system/auditlog"
	"github.com/dalemusser/tripdesk/internal/app/system/mailer"
	"github.com/dalemusser/tripdesk/internal/app/system/metrics"
	"github.com/dalemusser/tripdesk/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Caller is the acting identity. See agencypolicy.Caller.
type Caller = agencypolicy.Caller

// DefaultInvitationTTL is how long an invitation stays redeemable.
const DefaultInvitationTTL = 7 * 24 * time.Hour

// Config carries tunables.
type Config struct {
	InvitationTTL time.Duration
	SiteName      string
	BaseURL       string // used to build the accept link in invitation emails
}

// Deps are the collaborators the service needs. Only DB is required.
type Deps struct {
	DB      *mongo.Database
	Audit   *auditlog.Logger
	Mailer  mailer.Sender
	Metrics *metrics.Metrics
	Limiter ratelimit.Allower
	Log     *zap.Logger
}

// Service implements the membership operations.
type Service struct {
	db          *mongo.Database
	agencies    *agencystore.Store
	members     *memberstore.Store
	invitations *invitationstore.Store
	users       *userstore.Store
	activity    *audit.Store
	guard       *agencypolicy.Guard

	audit   *auditlog.Logger
	mail    mailer.Sender
	metrics *metrics.Metrics
	limiter ratelimit.Allower
	cfg     Config
	now     func() time.Time
	log     *zap.Logger
}

// New wires a Service over the given database.
func New(d Deps, cfg Config) *Service {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.InvitationTTL <= 0 {
		cfg.InvitationTTL = DefaultInvitationTTL
	}
	if cfg.SiteName == "" {
		cfg.SiteName = "TripDesk"
	}
	mail := d.Mailer
	if mail == nil {
		mail = &mailer.LogSender{Log: log}
	}

	members := memberstore.New(d.DB)
	return &Service{
		db:          d.DB,
		agencies:    agencystore.New(d.DB),
		members:     members,
		invitations: invitationstore.New(d.DB),
		users:       userstore.New(d.DB),
		activity:    audit.New(d.DB),
		guard:       agencypolicy.NewGuard(members, d.Audit, d.Metrics, log),
		audit:       d.Audit,
		mail:        mail,
		metrics:     d.Metrics,
		limiter:     d.Limiter,
		cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log,
	}
}

// WithClock replaces the time source used for invitation expiry.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = func() time.Time { return now().UTC() }
	return s
}

// Guard exposes the authorization guard for handlers that only need a check.
func (s *Service) Guard() *agencypolicy.Guard {
	return s.guard
}
