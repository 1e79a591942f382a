package agencypolicy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/tripdesk/internal/app/policy/agencypolicy"
	memberstore "github.com/dalemusser/tripdesk/internal/app/store/members"
	"github.com/dalemusser/tripdesk/internal/app/system/apperr"
	"github.com/dalemusser/tripdesk/internal/app/system/metrics"
	"github.com/dalemusser/tripdesk/internal/app/system/permissions"
	"github.com/dalemusser/tripdesk/internal/domain/models"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type key struct{ agency, user primitive.ObjectID }

// fakeMembers is an in-memory MemberLookup.
type fakeMembers struct {
	m   map[key]models.Member
	err error
}

func (f *fakeMembers) Get(_ context.Context, agencyID, userID primitive.ObjectID) (models.Member, error) {
	if f.err != nil {
		return models.Member{}, f.err
	}
	m, ok := f.m[key{agencyID, userID}]
	if !ok {
		return models.Member{}, memberstore.ErrNotFound
	}
	return m, nil
}

func (f *fakeMembers) add(m models.Member) {
	f.m[key{m.AgencyID, m.UserID}] = m
}

type fixture struct {
	guard   *agencypolicy.Guard
	members *fakeMembers
	metrics *metrics.Metrics
	agency  primitive.ObjectID
	owner   agencypolicy.Caller
	agent   agencypolicy.Caller
	idle    agencypolicy.Caller
	outside agencypolicy.Caller
}

func newFixture() fixture {
	f := fixture{
		members: &fakeMembers{m: map[key]models.Member{}},
		metrics: metrics.New(prometheus.NewRegistry()),
		agency:  primitive.NewObjectID(),
		owner:   agencypolicy.Caller{UserID: primitive.NewObjectID()},
		agent:   agencypolicy.Caller{UserID: primitive.NewObjectID()},
		idle:    agencypolicy.Caller{UserID: primitive.NewObjectID()},
		outside: agencypolicy.Caller{UserID: primitive.NewObjectID()},
	}
	f.members.add(models.Member{AgencyID: f.agency, UserID: f.owner.UserID, Role: models.RoleOwner, Status: models.MemberActive, Permissions: permissions.Full()})
	f.members.add(models.Member{AgencyID: f.agency, UserID: f.agent.UserID, Role: models.RoleAgent, Status: models.MemberActive, Permissions: permissions.DefaultPermissions(models.RoleAgent)})
	f.members.add(models.Member{AgencyID: f.agency, UserID: f.idle.UserID, Role: models.RoleAdmin, Status: models.MemberInactive, Permissions: permissions.DefaultPermissions(models.RoleAdmin)})
	f.guard = agencypolicy.NewGuard(f.members, nil, f.metrics, zap.NewNop())
	return f
}

func TestRequirePermission(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tests := []struct {
		name    string
		caller  agencypolicy.Caller
		flag    permissions.Flag
		wantErr error
	}{
		{"owner has everything", f.owner, permissions.ManageMembers, nil},
		{"agent has bookings", f.agent, permissions.CreateBookings, nil},
		{"agent lacks members", f.agent, permissions.ManageMembers, apperr.ErrPermissionDenied},
		{"inactive member denied despite flag", f.idle, permissions.CreateTrips, apperr.ErrPermissionDenied},
		{"non-member denied", f.outside, permissions.ViewAnalytics, apperr.ErrPermissionDenied},
		{"anonymous", agencypolicy.Caller{}, permissions.ViewAnalytics, apperr.ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := f.guard.RequirePermission(ctx, tt.caller, f.agency, tt.flag)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if m.UserID != tt.caller.UserID {
					t.Errorf("returned member for %s, want %s", m.UserID.Hex(), tt.caller.UserID.Hex())
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if got := promtest.ToFloat64(f.metrics.PermissionDenials.WithLabelValues("canManageMembers")); got != 1 {
		t.Errorf("canManageMembers denials = %v, want 1", got)
	}
}

func TestRequirePermission_LookupError(t *testing.T) {
	f := newFixture()
	boom := errors.New("db down")
	f.members.err = boom

	_, err := f.guard.RequirePermission(context.Background(), f.owner, f.agency, permissions.ManageMembers)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want the lookup error", err)
	}
	if errors.Is(err, apperr.ErrPermissionDenied) {
		t.Error("a storage failure must not read as a denial")
	}
}

func TestRequireMember(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.guard.RequireMember(ctx, f.agent, f.agency); err != nil {
		t.Errorf("agent: %v", err)
	}
	if _, err := f.guard.RequireMember(ctx, f.idle, f.agency); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Errorf("inactive: err = %v, want ErrPermissionDenied", err)
	}
	if _, err := f.guard.RequireMember(ctx, f.outside, f.agency); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Errorf("outsider: err = %v, want ErrPermissionDenied", err)
	}
}

func TestRequireOwner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	agency := models.Agency{ID: f.agency, OwnerID: f.owner.UserID}

	if err := f.guard.RequireOwner(ctx, f.owner, agency); err != nil {
		t.Errorf("owner: %v", err)
	}
	// An admin-like flag set does not make someone the owner.
	if err := f.guard.RequireOwner(ctx, f.agent, agency); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Errorf("agent: err = %v, want ErrPermissionDenied", err)
	}
	if err := f.guard.RequireOwner(ctx, agencypolicy.Caller{}, agency); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("anonymous: err = %v, want ErrUnauthenticated", err)
	}
}

func TestCheck(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tests := []struct {
		name   string
		caller agencypolicy.Caller
		perm   string
		want   bool
	}{
		{"owner", f.owner, "canManageSettings", true},
		{"agent granted", f.agent, "canViewAnalytics", true},
		{"agent not granted", f.agent, "canDeleteTrips", false},
		{"inactive", f.idle, "canCreateTrips", false},
		{"non-member", f.outside, "canViewAnalytics", false},
		{"unknown permission", f.owner, "canTeleport", false},
		{"anonymous", agencypolicy.Caller{}, "canViewAnalytics", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.guard.Check(ctx, tt.caller, f.agency, tt.perm); got != tt.want {
				t.Errorf("Check = %v, want %v", got, tt.want)
			}
		})
	}

	f.members.err = errors.New("db down")
	if f.guard.Check(ctx, f.owner, f.agency, "canManageMembers") {
		t.Error("Check must answer false on lookup errors")
	}
}
