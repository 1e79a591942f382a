package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/tripdesk/internal/app/policy/agencypolicy"
	"github.com/dalemusser/tripdesk/internal/app/system/permissions"
	"github.com/dalemusser/tripdesk/internal/app/system/tokens"
	"github.com/dalemusser/tripdesk/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates an active user with a verified email.
func (f *Fixtures) CreateUser(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.insertUser(ctx, name, email, true)
}

// CreateUnverifiedUser creates an active user whose email is not verified.
func (f *Fixtures) CreateUnverifiedUser(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.insertUser(ctx, name, email, false)
}

func (f *Fixtures) insertUser(ctx context.Context, name, email string, verified bool) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	normalized := strings.ToLower(strings.TrimSpace(email))
	u := models.User{
		ID:            primitive.NewObjectID(),
		Name:          name,
		Email:         normalized,
		EmailCI:       normalized,
		EmailVerified: verified,
		Status:        "active",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateAgency creates an agency owned by ownerID together with the owner's
// membership.
func (f *Fixtures) CreateAgency(ctx context.Context, name string, ownerID primitive.ObjectID) models.Agency {
	f.t.Helper()

	now := time.Now().UTC()
	a := models.Agency{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		Settings:  models.AgencySettings{Currency: "USD", Timezone: "UTC", Language: "en"},
		OwnerID:   ownerID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("agencies").InsertOne(ctx, a); err != nil {
		f.t.Fatalf("failed to create test agency: %v", err)
	}

	owner := models.Member{
		ID:           primitive.NewObjectID(),
		AgencyID:     a.ID,
		UserID:       ownerID,
		Role:         models.RoleOwner,
		Permissions:  permissions.Full(),
		Status:       models.MemberActive,
		JoinedAt:     now,
		LastActiveAt: now,
	}
	if _, err := f.db.Collection("members").InsertOne(ctx, owner); err != nil {
		f.t.Fatalf("failed to create test owner membership: %v", err)
	}
	return a
}

// CreateMember adds an active member with the role's default permissions.
func (f *Fixtures) CreateMember(ctx context.Context, agencyID, userID primitive.ObjectID, role string) models.Member {
	f.t.Helper()
	return f.CreateMemberWithStatus(ctx, agencyID, userID, role, models.MemberActive)
}

// CreateMemberWithStatus adds a member with the role's default permissions
// and the given status.
func (f *Fixtures) CreateMemberWithStatus(ctx context.Context, agencyID, userID primitive.ObjectID, role, status string) models.Member {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.Member{
		ID:           primitive.NewObjectID(),
		AgencyID:     agencyID,
		UserID:       userID,
		Role:         role,
		Permissions:  permissions.DefaultPermissions(role),
		Status:       status,
		JoinedAt:     now,
		LastActiveAt: now,
	}
	if _, err := f.db.Collection("members").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test member: %v", err)
	}
	return m
}

// CreateInvitation inserts a pending invitation and returns it with its raw
// token.
func (f *Fixtures) CreateInvitation(ctx context.Context, agencyID primitive.ObjectID, email, role string, invitedBy primitive.ObjectID, expiresAt time.Time) (models.Invitation, string) {
	f.t.Helper()

	now := time.Now().UTC()
	token := tokens.New()
	inv := models.Invitation{
		ID:          primitive.NewObjectID(),
		AgencyID:    agencyID,
		Email:       strings.ToLower(strings.TrimSpace(email)),
		Role:        role,
		Permissions: permissions.DefaultPermissions(role),
		InvitedBy:   invitedBy,
		TokenHash:   tokens.Fingerprint(token),
		ExpiresAt:   expiresAt.UTC(),
		Status:      models.InvitationPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("invitations").InsertOne(ctx, inv); err != nil {
		f.t.Fatalf("failed to create test invitation: %v", err)
	}
	return inv, token
}

// Caller returns the identity of u as the service sees it.
func Caller(u models.User) agencypolicy.Caller {
	return agencypolicy.Caller{
		UserID:        u.ID,
		Name:          u.Name,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
	}
}
