package membership_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dalemusser/tripdesk/internal/app/membership"
	"github.com/dalemusser/tripdesk/internal/app/system/mailer"
	"github.com/dalemusser/tripdesk/internal/app/system/ratelimit"
	"github.com/dalemusser/tripdesk/internal/domain/models"
	"github.com/dalemusser/tripdesk/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// recordingSender captures outbound email.
type recordingSender struct {
	mu   sync.Mutex
	sent []mailer.Email
	err  error
}

func (r *recordingSender) Send(_ context.Context, e mailer.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, e)
	return r.err
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type env struct {
	db   *mongo.Database
	fx   *testutil.Fixtures
	svc  *membership.Service
	mail *recordingSender

	owner  models.User
	admin  models.User
	agent  models.User
	agency models.Agency
}

type envOption func(*membership.Deps)

func withLimiter(l ratelimit.Allower) envOption {
	return func(d *membership.Deps) { d.Limiter = l }
}

// newEnv builds a service over a fresh schema database with an agency owned
// by owner, plus an admin and an agent.
func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()
	db := testutil.SetupSchemaDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	mail := &recordingSender{}
	deps := membership.Deps{DB: db, Mailer: mail, Log: zap.NewNop()}
	for _, o := range opts {
		o(&deps)
	}

	fx := testutil.NewFixtures(t, db)
	e := &env{
		db:    db,
		fx:    fx,
		svc:   membership.New(deps, membership.Config{BaseURL: "https://tripdesk.test"}),
		mail:  mail,
		owner: fx.CreateUser(ctx, "Olivia Owner", "owner@example.com"),
		admin: fx.CreateUser(ctx, "Adam Admin", "admin@example.com"),
		agent: fx.CreateUser(ctx, "Ava Agent", "agent@example.com"),
	}
	e.agency = fx.CreateAgency(ctx, "Sunny Tours", e.owner.ID)
	fx.CreateMember(ctx, e.agency.ID, e.admin.ID, models.RoleAdmin)
	fx.CreateMember(ctx, e.agency.ID, e.agent.ID, models.RoleAgent)
	return e
}

func (e *env) memberOf(t *testing.T, agencyID, userID primitive.ObjectID) (models.Member, bool) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	var m models.Member
	err := e.db.Collection("members").FindOne(ctx, bson.M{"agency_id": agencyID, "user_id": userID}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Member{}, false
	}
	if err != nil {
		t.Fatalf("load member: %v", err)
	}
	return m, true
}

func (e *env) invitation(t *testing.T, id primitive.ObjectID) models.Invitation {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	var inv models.Invitation
	if err := e.db.Collection("invitations").FindOne(ctx, bson.M{"_id": id}).Decode(&inv); err != nil {
		t.Fatalf("load invitation: %v", err)
	}
	return inv
}

func (e *env) count(t *testing.T, coll string, filter bson.M) int64 {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	n, err := e.db.Collection(coll).CountDocuments(ctx, filter)
	if err != nil {
		t.Fatalf("count %s: %v", coll, err)
	}
	return n
}
