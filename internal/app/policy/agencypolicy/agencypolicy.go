// Package agencypolicy is the single authorization gate for agency-scoped
// operations.
//
// Authorization rules:
//   - A caller with no identity is unauthenticated.
//   - A caller acts within an agency only through an active member record.
//   - A permission-guarded action requires that record's flag to be true.
//   - Owner-only actions compare the agency's owner_id to the caller and
//     ignore permission flags.
package agencypolicy

import (
	"context"
	"errors"

	memberstore "github.com/dalemusser/tripdesk/internal/app/store/members"
	"github.com/dalemusser/tripdesk/internal/app/system/apperr"
	"github.com/dalemusser/tripdesk/internal/app/system/auditlog"
	"github.com/dalemusser/tripdesk/internal/app/system/metrics"
	"github.com/dalemusser/tripdesk/internal/app/system/permissions"
	"github.com/dalemusser/tripdesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Caller is the authenticated identity on whose behalf an operation runs.
// It is always passed explicitly; nothing reads identity from ambient state.
type Caller struct {
	UserID        primitive.ObjectID
	Name          string
	Email         string // normalized
	EmailVerified bool
}

// IsZero reports whether no identity is present.
func (c Caller) IsZero() bool {
	return c.UserID.IsZero()
}

// MemberLookup loads a member record. *memberstore.Store satisfies it.
type MemberLookup interface {
	Get(ctx context.Context, agencyID, userID primitive.ObjectID) (models.Member, error)
}

// Guard evaluates authorization against stored memberships.
type Guard struct {
	members MemberLookup
	audit   *auditlog.Logger
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewGuard builds a Guard. audit and m may be nil.
func NewGuard(members MemberLookup, audit *auditlog.Logger, m *metrics.Metrics, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{members: members, audit: audit, metrics: m, log: log}
}

func (g *Guard) deny(ctx context.Context, caller Caller, agencyID primitive.ObjectID, required, reason string) error {
	g.metrics.Denied(required)
	g.audit.PermissionDenied(ctx, agencyID, caller.UserID, required, reason)
	g.log.Debug("permission denied",
		zap.String("agency_id", agencyID.Hex()),
		zap.String("user_id", caller.UserID.Hex()),
		zap.String("required", required),
		zap.String("reason", reason))
	return apperr.Denied(required)
}

// activeMember loads the caller's member record and requires it to be active.
func (g *Guard) activeMember(ctx context.Context, caller Caller, agencyID primitive.ObjectID, required string) (models.Member, error) {
	if caller.IsZero() {
		return models.Member{}, apperr.ErrUnauthenticated
	}
	m, err := g.members.Get(ctx, agencyID, caller.UserID)
	if err != nil {
		if errors.Is(err, memberstore.ErrNotFound) {
			return models.Member{}, g.deny(ctx, caller, agencyID, required, "not a member")
		}
		return models.Member{}, err
	}
	if !m.IsActive() {
		return models.Member{}, g.deny(ctx, caller, agencyID, required, "membership "+m.Status)
	}
	return m, nil
}

// RequirePermission returns the caller's active member record when it grants
// flag. It fails with ErrUnauthenticated for an empty caller and with
// ErrPermissionDenied when there is no record, the record is not active, or
// the flag is false.
func (g *Guard) RequirePermission(ctx context.Context, caller Caller, agencyID primitive.ObjectID, flag permissions.Flag) (models.Member, error) {
	m, err := g.activeMember(ctx, caller, agencyID, flag.String())
	if err != nil {
		return models.Member{}, err
	}
	if !permissions.Has(m.Permissions, flag) {
		return models.Member{}, g.deny(ctx, caller, agencyID, flag.String(), "flag not granted")
	}
	return m, nil
}

// RequireMember returns the caller's active member record, regardless of
// permission flags.
func (g *Guard) RequireMember(ctx context.Context, caller Caller, agencyID primitive.ObjectID) (models.Member, error) {
	return g.activeMember(ctx, caller, agencyID, "member")
}

// RequireOwner succeeds only when the caller owns agency.
func (g *Guard) RequireOwner(ctx context.Context, caller Caller, agency models.Agency) error {
	if caller.IsZero() {
		return apperr.ErrUnauthenticated
	}
	if agency.OwnerID != caller.UserID {
		return g.deny(ctx, caller, agency.ID, "owner", "not the agency owner")
	}
	return nil
}

// Check answers "may the caller do permissionName here" without failing.
// Unknown names, missing identity and lookup errors all answer false.
func (g *Guard) Check(ctx context.Context, caller Caller, agencyID primitive.ObjectID, permissionName string) bool {
	flag, ok := permissions.Parse(permissionName)
	if !ok || caller.IsZero() {
		return false
	}
	m, err := g.members.Get(ctx, agencyID, caller.UserID)
	if err != nil {
		if !errors.Is(err, memberstore.ErrNotFound) {
			g.log.Warn("permission check lookup failed",
				zap.String("agency_id", agencyID.Hex()),
				zap.String("user_id", caller.UserID.Hex()),
				zap.Error(err))
		}
		return false
	}
	return m.IsActive() && permissions.Has(m.Permissions, flag)
}
