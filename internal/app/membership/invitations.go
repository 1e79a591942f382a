package membership

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	invitationstore "github.com/dalemusser/tripdesk/internal/app/store/invitations"
	memberstore "github.com/dalemusser/tripdesk/internal/app/store/members"
	userstore "github.com/dalemusser/tripdesk/internal/app/store/users"
	"github.com/dalemusser/tripdesk/internal/app/system/apperr"
	"github.com/dalemusser/tripdesk/internal/app/system/mailer"
	"github.com/dalemusser/tripdesk/internal/app/system/normalize"
	"github.com/dalemusser/tripdesk/internal/app/system/permissions"
	"github.com/dalemusser/tripdesk/internal/app/system/timeouts"
	"github.com/dalemusser/tripdesk/internal/app/system/timezones"
	"github.com/dalemusser/tripdesk/internal/app/system/tokens"
	"github.com/dalemusser/tripdesk/internal/app/system/txn"
	"github.com/dalemusser/tripdesk/internal/domain/models"
	"github.com/dalemusser/waffle/toolkit/validate"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// InvitationInput describes a new invitation. A nil Permissions uses the
// role's template.
type InvitationInput struct {
	Email       string
	Role        string
	Permissions *models.Permissions
}

// CreatedInvitation is returned to the inviter. Token is the only copy of
// the raw credential.
type CreatedInvitation struct {
	InvitationID primitive.ObjectID `json:"invitationId"`
	Token        string             `json:"token"`
	ExpiresAt    time.Time          `json:"expiresAt"`
}

// CreateInvitation invites email into the agency with role. Requires
// canManageMembers. Checks run in order: AlreadyMember, then
// DuplicatePending, then the per-agency rate limit.
func (s *Service) CreateInvitation(ctx context.Context, caller Caller, agencyID primitive.ObjectID, in InvitationInput) (created CreatedInvitation, err error) {
	defer func() { s.metrics.Operation("create_invitation", err) }()

	if _, err := s.guard.RequirePermission(ctx, caller, agencyID, permissions.ManageMembers); err != nil {
		return CreatedInvitation{}, err
	}

	role := normalize.Role(in.Role)
	if !permissions.IsInvitableRole(role) {
		return CreatedInvitation{}, apperr.InvalidOp(fmt.Sprintf("role %q cannot be invited", in.Role))
	}
	email := normalize.Email(in.Email)
	if email == "" || !validate.SimpleEmailValid(email) {
		return CreatedInvitation{}, apperr.Invalid("email %q is not a valid address", in.Email)
	}

	if err := s.checkNotMember(ctx, agencyID, email); err != nil {
		return CreatedInvitation{}, err
	}
	if _, err := s.invitations.FindPending(ctx, agencyID, email); err == nil {
		return CreatedInvitation{}, apperr.ErrDuplicatePending
	} else if !errors.Is(err, invitationstore.ErrNotFound) {
		return CreatedInvitation{}, fmt.Errorf("find pending invitation: %w", err)
	}
	if err := s.allowInvite(ctx, agencyID); err != nil {
		return CreatedInvitation{}, err
	}

	now := s.now()
	token := tokens.New()
	inv, err := s.invitations.Create(ctx, models.Invitation{
		AgencyID:    agencyID,
		Email:       email,
		Role:        role,
		Permissions: permissions.Resolve(role, in.Permissions),
		InvitedBy:   caller.UserID,
		TokenHash:   tokens.Fingerprint(token),
		ExpiresAt:   now.Add(s.cfg.InvitationTTL),
		CreatedAt:   now,
	})
	if errors.Is(err, invitationstore.ErrDuplicatePending) {
		// Lost a race with a concurrent invite for the same email.
		return CreatedInvitation{}, apperr.ErrDuplicatePending
	}
	if err != nil {
		return CreatedInvitation{}, fmt.Errorf("insert invitation: %w", err)
	}

	s.metrics.Invitation("created", 1)
	s.audit.InvitationCreated(ctx, agencyID, caller.UserID, inv.ID, inv.Email, inv.Role)
	s.log.Info("invitation created",
		zap.String("agency_id", agencyID.Hex()),
		zap.String("invitation_id", inv.ID.Hex()),
		zap.String("user_id", caller.UserID.Hex()))

	s.sendInvitation(ctx, caller, inv, token)

	return CreatedInvitation{InvitationID: inv.ID, Token: token, ExpiresAt: inv.ExpiresAt}, nil
}

// checkNotMember fails with ErrAlreadyMember when a user with email has any
// member record in the agency.
func (s *Service) checkNotMember(ctx context.Context, agencyID primitive.ObjectID, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	exists, err := s.members.Exists(ctx, agencyID, u.ID)
	if err != nil {
		return fmt.Errorf("find member: %w", err)
	}
	if exists {
		return apperr.ErrAlreadyMember
	}
	return nil
}

// allowInvite applies the per-agency creation limit. Limiter outages are
// logged and do not block invitations.
func (s *Service) allowInvite(ctx context.Context, agencyID primitive.ObjectID) error {
	if s.limiter == nil {
		return nil
	}
	ok, err := s.limiter.Allow(ctx, agencyID.Hex())
	if err != nil {
		s.log.Warn("invitation rate limiter unavailable",
			zap.String("agency_id", agencyID.Hex()), zap.Error(err))
		return nil
	}
	if !ok {
		s.metrics.Invitation("rate_limited", 1)
		return apperr.ErrRateLimited
	}
	return nil
}

// sendInvitation emails the token to the invitee. Failures are logged only.
func (s *Service) sendInvitation(ctx context.Context, caller Caller, inv models.Invitation, token string) {
	agencyName, zone := "", "UTC"
	if a, err := s.agencies.GetByID(ctx, inv.AgencyID); err == nil {
		agencyName = a.Name
		if timezones.Valid(a.Settings.Timezone) {
			zone = a.Settings.Timezone
		}
	}
	inviter := caller.Name
	if inviter == "" {
		if u, err := s.users.GetByID(ctx, caller.UserID); err == nil {
			inviter = u.Name
		}
	}

	link := strings.TrimRight(s.cfg.BaseURL, "/") + "/invitations/accept?token=" + url.QueryEscape(token)
	email := mailer.BuildInvitationEmail(inv.Email, mailer.InvitationEmailData{
		SiteName:    s.cfg.SiteName,
		AgencyName:  agencyName,
		InviterName: inviter,
		Role:        inv.Role,
		AcceptLink:  link,
		Token:       token,
		ExpiresIn:   humanDuration(s.cfg.InvitationTTL),
		ExpiresOn:   expiresOn(inv.ExpiresAt, zone),
	})

	sendCtx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()
	if err := s.mail.Send(sendCtx, email); err != nil {
		s.metrics.Invitation("mail_failed", 1)
		s.log.Warn("failed to send invitation email",
			zap.String("invitation_id", inv.ID.Hex()),
			zap.String("agency_id", inv.AgencyID.Hex()),
			zap.Error(err))
	}
}

// expiresOn formats at as wall time in the agency's zone, followed by the
// zone label.
func expiresOn(at time.Time, zone string) string {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		loc, zone = time.UTC, "UTC"
	}
	return at.In(loc).Format("Mon, 02 Jan 2006 15:04") + " " + timezones.Label(zone, at)
}

func humanDuration(d time.Duration) string {
	if d >= 24*time.Hour && d%(24*time.Hour) == 0 {
		days := int(d / (24 * time.Hour))
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	if d >= time.Hour && d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}

// statusError maps the status a concurrent writer stored to the failure the
// losing caller sees.
func statusError(status string) error {
	if status == models.InvitationExpired {
		return apperr.ErrExpired
	}
	return apperr.ErrInvalidState
}

// AcceptInvitation redeems token for the caller and returns the new
// membership. A token is redeemable once.
func (s *Service) AcceptInvitation(ctx context.Context, caller Caller, token string) (member models.Member, err error) {
	defer func() { s.metrics.Operation("accept_invitation", err) }()

	if caller.IsZero() {
		return models.Member{}, apperr.ErrUnauthenticated
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return models.Member{}, apperr.NotFound("invitation")
	}
	inv, err := s.invitations.GetByTokenHash(ctx, tokens.Fingerprint(token))
	if errors.Is(err, invitationstore.ErrNotFound) {
		return models.Member{}, apperr.NotFound("invitation")
	}
	if err != nil {
		return models.Member{}, fmt.Errorf("load invitation: %w", err)
	}
	if inv.IsTerminal() {
		return models.Member{}, apperr.ErrInvalidState
	}

	now := s.now()
	if inv.IsExpiredAt(now) {
		return models.Member{}, s.expire(ctx, caller, inv, now)
	}
	if !caller.EmailVerified || normalize.Email(caller.Email) != inv.Email {
		return models.Member{}, apperr.ErrEmailMismatch
	}
	if exists, err := s.members.Exists(ctx, inv.AgencyID, caller.UserID); err != nil {
		return models.Member{}, fmt.Errorf("find member: %w", err)
	} else if exists {
		return models.Member{}, apperr.ErrAlreadyMember
	}

	invitedAt := inv.CreatedAt
	invitedBy := inv.InvitedBy
	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		won, err := s.invitations.Transition(ctx, inv.ID, models.InvitationAccepted, now, &caller.UserID)
		if err != nil {
			return fmt.Errorf("mark invitation accepted: %w", err)
		}
		if !won {
			return s.lostRace(ctx, inv.ID)
		}
		m, err := s.members.Insert(ctx, models.Member{
			AgencyID:     inv.AgencyID,
			UserID:       caller.UserID,
			Role:         inv.Role,
			Permissions:  inv.Permissions,
			Status:       models.MemberActive,
			InvitedBy:    &invitedBy,
			InvitedAt:    &invitedAt,
			JoinedAt:     now,
			LastActiveAt: now,
		})
		if err != nil {
			// Leave the invitation redeemable when no transaction undoes the CAS.
			if !txn.InTransaction(ctx) {
				if rerr := s.invitations.Revert(ctx, inv.ID, models.InvitationAccepted, now); rerr != nil {
					s.log.Error("failed to revert invitation after member insert failure",
						zap.String("invitation_id", inv.ID.Hex()), zap.Error(rerr))
				}
			}
			if errors.Is(err, memberstore.ErrDuplicateMember) {
				return apperr.ErrAlreadyMember
			}
			return fmt.Errorf("insert member: %w", err)
		}
		member = m
		return nil
	})
	if err != nil {
		if apperr.IsKnown(err) {
			return models.Member{}, err
		}
		return models.Member{}, fmt.Errorf("accept invitation: %w", err)
	}

	s.metrics.Invitation("accepted", 1)
	s.audit.InvitationAccepted(ctx, inv.AgencyID, caller.UserID, inv.ID, inv.Role)
	s.log.Info("invitation accepted",
		zap.String("agency_id", inv.AgencyID.Hex()),
		zap.String("invitation_id", inv.ID.Hex()),
		zap.String("member_id", member.ID.Hex()),
		zap.String("user_id", caller.UserID.Hex()))
	return member, nil
}

// expire persists the lazy expiry and reports the failure for this attempt.
func (s *Service) expire(ctx context.Context, caller Caller, inv models.Invitation, now time.Time) error {
	won, err := s.invitations.Transition(ctx, inv.ID, models.InvitationExpired, now, nil)
	if err != nil {
		return fmt.Errorf("mark invitation expired: %w", err)
	}
	if !won {
		return s.lostRace(ctx, inv.ID)
	}
	s.metrics.Invitation("expired", 1)
	s.audit.InvitationExpired(ctx, inv.AgencyID, caller.UserID, inv.ID)
	return apperr.ErrExpired
}

// lostRace re-reads an invitation whose compare-and-swap failed.
func (s *Service) lostRace(ctx context.Context, id primitive.ObjectID) error {
	cur, err := s.invitations.GetByID(ctx, id)
	if errors.Is(err, invitationstore.ErrNotFound) {
		return apperr.NotFound("invitation")
	}
	if err != nil {
		return fmt.Errorf("reload invitation: %w", err)
	}
	return statusError(cur.Status)
}

// CancelInvitation cancels a pending invitation. Requires canManageMembers
// in the invitation's agency. An invitation already in a terminal state is
// left as it is and the call succeeds.
func (s *Service) CancelInvitation(ctx context.Context, caller Caller, invitationID primitive.ObjectID) (err error) {
	defer func() { s.metrics.Operation("cancel_invitation", err) }()

	if caller.IsZero() {
		return apperr.ErrUnauthenticated
	}
	inv, err := s.invitations.GetByID(ctx, invitationID)
	if errors.Is(err, invitationstore.ErrNotFound) {
		return apperr.NotFound("invitation")
	}
	if err != nil {
		return fmt.Errorf("load invitation: %w", err)
	}
	if _, err := s.guard.RequirePermission(ctx, caller, inv.AgencyID, permissions.ManageMembers); err != nil {
		return err
	}
	if inv.IsTerminal() {
		return nil
	}

	won, err := s.invitations.Transition(ctx, inv.ID, models.InvitationCanceled, s.now(), nil)
	if err != nil {
		return fmt.Errorf("cancel invitation: %w", err)
	}
	if won {
		s.metrics.Invitation("canceled", 1)
		s.audit.InvitationCanceled(ctx, inv.AgencyID, caller.UserID, inv.ID)
	}
	return nil
}

// InvitationView is an invitation with its expiry evaluated at read time.
type InvitationView struct {
	models.Invitation
	IsExpired bool `json:"isExpired"`
}

// ListAgencyInvitations returns every invitation of the agency, newest
// first. Requires canManageMembers.
func (s *Service) ListAgencyInvitations(ctx context.Context, caller Caller, agencyID primitive.ObjectID) ([]InvitationView, error) {
	if _, err := s.guard.RequirePermission(ctx, caller, agencyID, permissions.ManageMembers); err != nil {
		return nil, err
	}
	invs, err := s.invitations.ListByAgency(ctx, agencyID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	now := s.now()
	out := make([]InvitationView, 0, len(invs))
	for _, inv := range invs {
		out = append(out, InvitationView{
			Invitation: inv,
			IsExpired:  inv.Status == models.InvitationExpired || inv.IsExpiredAt(now),
		})
	}
	return out, nil
}

// MyInvitation is a pending invitation addressed to the caller.
type MyInvitation struct {
	models.Invitation
	AgencyName   string `json:"agencyName"`
	AgencyLogo   string `json:"agencyLogo,omitempty"`
	InviterName  string `json:"inviterName"`
	InviterEmail string `json:"inviterEmail"`
}

// ListMyInvitations returns pending, unexpired invitations addressed to the
// caller's verified email.
func (s *Service) ListMyInvitations(ctx context.Context, caller Caller) ([]MyInvitation, error) {
	if caller.IsZero() {
		return nil, apperr.ErrUnauthenticated
	}
	if !caller.EmailVerified || caller.Email == "" {
		return []MyInvitation{}, nil
	}
	invs, err := s.invitations.ListPendingByEmail(ctx, caller.Email, s.now())
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}

	agencyIDs := make([]primitive.ObjectID, 0, len(invs))
	inviterIDs := make([]primitive.ObjectID, 0, len(invs))
	for _, inv := range invs {
		agencyIDs = append(agencyIDs, inv.AgencyID)
		inviterIDs = append(inviterIDs, inv.InvitedBy)
	}
	agencies, err := s.agencies.GetByIDs(ctx, agencyIDs)
	if err != nil {
		return nil, fmt.Errorf("load agencies: %w", err)
	}
	inviters, err := s.users.Summaries(ctx, inviterIDs)
	if err != nil {
		return nil, fmt.Errorf("load inviters: %w", err)
	}

	out := make([]MyInvitation, 0, len(invs))
	for _, inv := range invs {
		a, ok := agencies[inv.AgencyID]
		if !ok {
			continue
		}
		inviter := inviters[inv.InvitedBy]
		out = append(out, MyInvitation{
			Invitation:   inv,
			AgencyName:   a.Name,
			AgencyLogo:   a.Logo,
			InviterName:  inviter.Name,
			InviterEmail: inviter.Email,
		})
	}
	return out, nil
}
