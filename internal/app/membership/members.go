package membership

import (
	"context"
	"fmt"

	memberstore "github.com/dalemusser/tripdesk/internal/app/store/members"
	userstore "github.com/dalemusser/tripdesk/internal/app/store/users"
	"github.com/dalemusser/tripdesk/internal/app/system/apperr"
	"github.com/dalemusser/tripdesk/internal/app/system/normalize"
	"github.com/dalemusser/tripdesk/internal/app/system/permissions"
	"github.com/dalemusser/tripdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MembershipOf returns the member record for (agencyID, userID) in any
// status. Internal use; no authorization.
func (s *Service) MembershipOf(ctx context.Context, agencyID, userID primitive.ObjectID) (models.Member, error) {
	m, err := s.members.Get(ctx, agencyID, userID)
	if isMemberNotFound(err) {
		return models.Member{}, apperr.NotFound("membership")
	}
	return m, err
}

// GetMembership returns the caller's own membership in the agency.
func (s *Service) GetMembership(ctx context.Context, caller Caller, agencyID primitive.ObjectID) (models.Member, error) {
	if caller.IsZero() {
		return models.Member{}, apperr.ErrUnauthenticated
	}
	return s.MembershipOf(ctx, agencyID, caller.UserID)
}

// MemberPatch is a partial member update; nil fields are left unchanged.
type MemberPatch = memberstore.Patch

// loadManagedMember loads the target member and checks that the caller
// may manage members in its agency. The owner is never a valid target.
func (s *Service) loadManagedMember(ctx context.Context, caller Caller, memberID primitive.ObjectID) (models.Member, error) {
	if caller.IsZero() {
		return models.Member{}, apperr.ErrUnauthenticated
	}
	target, err := s.members.GetByID(ctx, memberID)
	if isMemberNotFound(err) {
		return models.Member{}, apperr.NotFound("member")
	}
	if err != nil {
		return models.Member{}, fmt.Errorf("load member: %w", err)
	}
	if _, err := s.guard.RequirePermission(ctx, caller, target.AgencyID, permissions.ManageMembers); err != nil {
		return models.Member{}, err
	}
	if target.IsOwner() {
		return models.Member{}, apperr.InvalidOp("the owner's membership cannot be changed")
	}
	return target, nil
}

// UpdateMember applies a partial patch to a non-owner member. Requires
// canManageMembers in the member's agency.
func (s *Service) UpdateMember(ctx context.Context, caller Caller, memberID primitive.ObjectID, p MemberPatch) (updated models.Member, err error) {
	defer func() { s.metrics.Operation("update_member", err) }()

	target, err := s.loadManagedMember(ctx, caller, memberID)
	if err != nil {
		return models.Member{}, err
	}

	if p.Role != nil {
		role := normalize.Role(*p.Role)
		if role == models.RoleOwner {
			return models.Member{}, apperr.InvalidOp("the owner role cannot be assigned")
		}
		p.Role = &role
	}
	if p.Status != nil {
		status := normalize.Status(*p.Status)
		p.Status = &status
	}
	if err := p.Validate(); err != nil {
		return models.Member{}, apperr.Invalid("%v", err)
	}
	if p.Empty() {
		return target, nil
	}

	updated, err = s.members.Patch(ctx, memberID, p)
	if isMemberNotFound(err) {
		return models.Member{}, apperr.NotFound("member")
	}
	if err != nil {
		return models.Member{}, fmt.Errorf("update member: %w", err)
	}

	s.audit.MemberUpdated(ctx, updated.AgencyID, caller.UserID, updated.UserID, updated.Role, updated.Status)
	s.log.Info("member updated",
		zap.String("agency_id", updated.AgencyID.Hex()),
		zap.String("member_id", memberID.Hex()),
		zap.String("user_id", caller.UserID.Hex()))
	return updated, nil
}

// RemoveMember deletes a non-owner member. Requires canManageMembers in the
// member's agency.
func (s *Service) RemoveMember(ctx context.Context, caller Caller, memberID primitive.ObjectID) (err error) {
	defer func() { s.metrics.Operation("remove_member", err) }()

	target, err := s.loadManagedMember(ctx, caller, memberID)
	if err != nil {
		return err
	}
	if err := s.members.Delete(ctx, memberID); err != nil {
		if isMemberNotFound(err) {
			return apperr.NotFound("member")
		}
		return fmt.Errorf("remove member: %w", err)
	}

	s.audit.MemberRemoved(ctx, target.AgencyID, caller.UserID, target.UserID, target.Role)
	s.log.Info("member removed",
		zap.String("agency_id", target.AgencyID.Hex()),
		zap.String("member_id", memberID.Hex()),
		zap.String("user_id", caller.UserID.Hex()))
	return nil
}

// LeaveAgency removes the caller's own membership. The owner cannot leave;
// ownership transfer does not exist.
func (s *Service) LeaveAgency(ctx context.Context, caller Caller, agencyID primitive.ObjectID) (err error) {
	defer func() { s.metrics.Operation("leave_agency", err) }()

	m, err := s.GetMembership(ctx, caller, agencyID)
	if err != nil {
		return err
	}
	if m.IsOwner() {
		return apperr.InvalidOp("the owner cannot leave the agency")
	}
	if err := s.members.Delete(ctx, m.ID); err != nil {
		if isMemberNotFound(err) {
			return apperr.NotFound("membership")
		}
		return fmt.Errorf("leave agency: %w", err)
	}

	s.audit.MemberLeft(ctx, agencyID, caller.UserID, m.Role)
	return nil
}

// MemberView is a member with the user's public profile.
type MemberView struct {
	models.Member
	User userstore.Summary `json:"user"`
}

// ListMembers returns the agency's members, owner first, to any active
// member of the agency.
func (s *Service) ListMembers(ctx context.Context, caller Caller, agencyID primitive.ObjectID) ([]MemberView, error) {
	if _, err := s.guard.RequireMember(ctx, caller, agencyID); err != nil {
		return nil, err
	}
	ms, err := s.members.ListByAgency(ctx, agencyID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	ids := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.UserID)
	}
	users, err := s.users.Summaries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	out := make([]MemberView, 0, len(ms))
	for _, m := range ms {
		u, ok := users[m.UserID]
		if !ok {
			u = userstore.Summary{ID: m.UserID}
		}
		out = append(out, MemberView{Member: m, User: u})
	}
	return out, nil
}

// CheckPermission answers whether the caller holds the named permission in
// the agency. It never fails.
func (s *Service) CheckPermission(ctx context.Context, caller Caller, agencyID primitive.ObjectID, name string) bool {
	return s.guard.Check(ctx, caller, agencyID, name)
}

// Touch records activity for the caller's membership.
func (s *Service) Touch(ctx context.Context, caller Caller, agencyID primitive.ObjectID) error {
	m, err := s.guard.RequireMember(ctx, caller, agencyID)
	if err != nil {
		return err
	}
	if err := s.members.Touch(ctx, m.ID, s.now()); err != nil {
		return fmt.Errorf("touch membership: %w", err)
	}
	return nil
}
