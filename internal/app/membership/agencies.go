package membership

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	agencystore "github.com/dalemusser/tripdesk/internal/app/store/agencies"
	memberstore "github.com/dalemusser/tripdesk/internal/app/store/members"
	"github.com/dalemusser/tripdesk/internal/app/system/apperr"
	"github.com/dalemusser/tripdesk/internal/app/system/htmlsanitize"
	"github.com/dalemusser/tripdesk/internal/app/system/normalize"
	"github.com/dalemusser/tripdesk/internal/app/system/permissions"
	"github.com/dalemusser/tripdesk/internal/app/system/timezones"
	"github.com/dalemusser/tripdesk/internal/app/system/txn"
	"github.com/dalemusser/tripdesk/internal/domain/models"
	"github.com/dalemusser/waffle/toolkit/validate"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// AgencyInput is the profile supplied when creating an agency.
type AgencyInput struct {
	Name          string
	Description   string
	Logo          string
	Website       string
	Email         string
	Phone         string
	Address       *models.AgencyAddress
	BusinessType  string
	LicenseNumber string
	Settings      *models.AgencySettings
}

// DefaultSettings are applied when an agency is created without settings.
func DefaultSettings() models.AgencySettings {
	return models.AgencySettings{
		Currency: "USD",
		Timezone: "UTC",
		Language: "en",
	}
}

func checkContact(email, website string) error {
	if email != "" && !validate.SimpleEmailValid(email) {
		return apperr.Invalid("email %q is not a valid address", email)
	}
	if len(website) > 2048 {
		return apperr.Invalid("website is too long")
	}
	return nil
}

// checkSettings validates settings and uppercases the currency code.
func checkSettings(st *models.AgencySettings) error {
	if !timezones.Valid(st.Timezone) {
		return apperr.Invalid("timezone %q is not a known IANA zone", st.Timezone)
	}
	st.Currency = strings.ToUpper(strings.TrimSpace(st.Currency))
	if len(st.Currency) != 3 {
		return apperr.Invalid("currency must be a three-letter code")
	}
	if r := st.CommissionRate; r != nil && (*r < 0 || *r > 100) {
		return apperr.Invalid("commission rate must be between 0 and 100")
	}
	return nil
}

// CreateAgency creates the agency and its owner membership in one
// transaction. The caller becomes the owner.
func (s *Service) CreateAgency(ctx context.Context, caller Caller, in AgencyInput) (agency models.Agency, err error) {
	defer func() { s.metrics.Operation("create_agency", err) }()

	if caller.IsZero() {
		return models.Agency{}, apperr.ErrUnauthenticated
	}
	name := normalize.Name(in.Name)
	if name == "" {
		return models.Agency{}, apperr.Invalid("name is required")
	}
	email := normalize.Email(in.Email)
	if err := checkContact(email, in.Website); err != nil {
		return models.Agency{}, err
	}
	settings := DefaultSettings()
	if in.Settings != nil {
		settings = *in.Settings
	}
	if err := checkSettings(&settings); err != nil {
		return models.Agency{}, err
	}

	a := models.Agency{
		ID:            primitive.NewObjectID(),
		Name:          name,
		Description:   htmlsanitize.Sanitize(in.Description),
		Logo:          in.Logo,
		Website:       in.Website,
		Email:         email,
		Phone:         in.Phone,
		Address:       in.Address,
		BusinessType:  in.BusinessType,
		LicenseNumber: in.LicenseNumber,
		Settings:      settings,
		OwnerID:       caller.UserID,
		IsActive:      true,
	}

	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		created, err := s.agencies.Create(ctx, a)
		if err != nil {
			return fmt.Errorf("insert agency: %w", err)
		}
		if _, err := s.createOwnerMembership(ctx, created.ID, caller.UserID); err != nil {
			// Without a transaction the agency would be left ownerless.
			if !txn.InTransaction(ctx) {
				if _, derr := s.agencies.Delete(ctx, created.ID); derr != nil {
					s.log.Error("failed to remove agency after owner insert failure",
						zap.String("agency_id", created.ID.Hex()), zap.Error(derr))
				}
			}
			return fmt.Errorf("insert owner membership: %w", err)
		}
		agency = created
		return nil
	})
	if err != nil {
		return models.Agency{}, fmt.Errorf("create agency: %w", err)
	}

	s.audit.AgencyCreated(ctx, agency.ID, caller.UserID, agency.Name)
	s.log.Info("agency created",
		zap.String("agency_id", agency.ID.Hex()),
		zap.String("user_id", caller.UserID.Hex()))
	return agency, nil
}

// createOwnerMembership inserts the owner's member record. It runs exactly
// once per agency, inside CreateAgency.
func (s *Service) createOwnerMembership(ctx context.Context, agencyID, userID primitive.ObjectID) (models.Member, error) {
	return s.members.CreateOwner(ctx, agencyID, userID)
}

// loadAgency maps a missing agency to apperr.ErrNotFound.
func (s *Service) loadAgency(ctx context.Context, id primitive.ObjectID) (models.Agency, error) {
	a, err := s.agencies.GetByID(ctx, id)
	if errors.Is(err, agencystore.ErrNotFound) {
		return models.Agency{}, apperr.NotFound("agency")
	}
	return a, err
}

// GetAgency returns the agency to any active member.
func (s *Service) GetAgency(ctx context.Context, caller Caller, id primitive.ObjectID) (models.Agency, error) {
	if caller.IsZero() {
		return models.Agency{}, apperr.ErrUnauthenticated
	}
	a, err := s.loadAgency(ctx, id)
	if err != nil {
		return models.Agency{}, err
	}
	if _, err := s.guard.RequireMember(ctx, caller, id); err != nil {
		return models.Agency{}, err
	}
	return a, nil
}

// AgencyWithRole is an agency together with the caller's role in it.
type AgencyWithRole struct {
	models.Agency
	Role string `json:"role"`
}

// ListMyAgencies returns every agency where the caller has an active
// membership, ordered by name.
func (s *Service) ListMyAgencies(ctx context.Context, caller Caller) ([]AgencyWithRole, error) {
	if caller.IsZero() {
		return nil, apperr.ErrUnauthenticated
	}
	ms, err := s.members.ListActiveByUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	ids := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.AgencyID)
	}
	byID, err := s.agencies.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load agencies: %w", err)
	}

	out := make([]AgencyWithRole, 0, len(ms))
	for _, m := range ms {
		a, ok := byID[m.AgencyID]
		if !ok {
			continue
		}
		out = append(out, AgencyWithRole{Agency: a, Role: m.Role})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].NameCI != out[j].NameCI {
			return out[i].NameCI < out[j].NameCI
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out, nil
}

// UpdateAgency applies a partial profile/settings update. Requires
// canManageSettings.
func (s *Service) UpdateAgency(ctx context.Context, caller Caller, id primitive.ObjectID, u agencystore.Update) (agency models.Agency, err error) {
	defer func() { s.metrics.Operation("update_agency", err) }()

	if caller.IsZero() {
		return models.Agency{}, apperr.ErrUnauthenticated
	}
	current, err := s.loadAgency(ctx, id)
	if err != nil {
		return models.Agency{}, err
	}
	if _, err := s.guard.RequirePermission(ctx, caller, id, permissions.ManageSettings); err != nil {
		return models.Agency{}, err
	}

	if u.Name != nil {
		name := normalize.Name(*u.Name)
		if name == "" {
			return models.Agency{}, apperr.Invalid("name cannot be empty")
		}
		u.Name = &name
	}
	if u.Description != nil {
		d := htmlsanitize.Sanitize(*u.Description)
		u.Description = &d
	}
	if u.Email != nil {
		e := normalize.Email(*u.Email)
		u.Email = &e
	}
	website := ""
	if u.Website != nil {
		website = *u.Website
	}
	email := ""
	if u.Email != nil {
		email = *u.Email
	}
	if err := checkContact(email, website); err != nil {
		return models.Agency{}, err
	}
	if u.Settings != nil {
		st := *u.Settings
		if err := checkSettings(&st); err != nil {
			return models.Agency{}, err
		}
		u.Settings = &st
	}
	if u.Empty() {
		return current, nil
	}

	agency, err = s.agencies.Update(ctx, id, u)
	if errors.Is(err, agencystore.ErrNotFound) {
		return models.Agency{}, apperr.NotFound("agency")
	}
	if err != nil {
		return models.Agency{}, fmt.Errorf("update agency: %w", err)
	}
	s.audit.AgencyUpdated(ctx, id, caller.UserID)
	return agency, nil
}

// DeleteAgency removes the agency with its members and invitations. Only
// the owner may delete.
func (s *Service) DeleteAgency(ctx context.Context, caller Caller, id primitive.ObjectID) (err error) {
	defer func() { s.metrics.Operation("delete_agency", err) }()

	if caller.IsZero() {
		return apperr.ErrUnauthenticated
	}
	a, err := s.loadAgency(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard.RequireOwner(ctx, caller, a); err != nil {
		return err
	}

	var members, invitations int64
	err = txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		var err error
		if invitations, err = s.invitations.DeleteByAgency(ctx, id); err != nil {
			return fmt.Errorf("delete invitations: %w", err)
		}
		if members, err = s.members.DeleteByAgency(ctx, id); err != nil {
			return fmt.Errorf("delete members: %w", err)
		}
		if _, err = s.agencies.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete agency: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete agency: %w", err)
	}

	s.audit.AgencyDeleted(ctx, id, caller.UserID, a.Name, members, invitations)
	s.log.Info("agency deleted",
		zap.String("agency_id", id.Hex()),
		zap.Int64("members", members),
		zap.Int64("invitations", invitations))
	return nil
}

// Stats summarizes an agency's membership.
type Stats struct {
	ActiveMembers      int64            `json:"activeMembers"`
	PendingInvitations int64            `json:"pendingInvitations"`
	RoleCounts         map[string]int64 `json:"roleCounts"`
}

// AgencyStats requires canViewAnalytics. Pending invitations past their
// expiry are not counted.
func (s *Service) AgencyStats(ctx context.Context, caller Caller, id primitive.ObjectID) (Stats, error) {
	if _, err := s.guard.RequirePermission(ctx, caller, id, permissions.ViewAnalytics); err != nil {
		return Stats{}, err
	}
	active, err := s.members.CountActiveByAgency(ctx, id)
	if err != nil {
		return Stats{}, fmt.Errorf("count members: %w", err)
	}
	pending, err := s.invitations.CountPendingByAgency(ctx, id, s.now())
	if err != nil {
		return Stats{}, fmt.Errorf("count invitations: %w", err)
	}
	roles, err := s.members.CountByRole(ctx, id)
	if err != nil {
		return Stats{}, fmt.Errorf("count roles: %w", err)
	}
	return Stats{ActiveMembers: active, PendingInvitations: pending, RoleCounts: roles}, nil
}

// isMemberNotFound reports a missing member record.
func isMemberNotFound(err error) bool {
	return errors.Is(err, memberstore.ErrNotFound)
}
