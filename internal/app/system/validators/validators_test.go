package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/tripdesk/internal/app/system/permissions"
	"github.com/dalemusser/tripdesk/internal/app/system/validators"
	"github.com/dalemusser/tripdesk/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := make(map[string]bool)
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{"users", "agencies", "members", "invitations", "audit_events"} {
		if !have[want] {
			t.Errorf("expected collection %q to exist", want)
		}
	}
}

func memberDoc(role, status string) bson.M {
	return bson.M{
		"agency_id":   primitive.NewObjectID(),
		"user_id":     primitive.NewObjectID(),
		"role":        role,
		"status":      status,
		"permissions": permissions.DefaultPermissions(role),
		"joined_at":   time.Now(),
	}
}

func TestMembersValidator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	c := db.Collection("members")

	for _, role := range []string{"owner", "admin", "manager", "agent", "editor", "viewer"} {
		if _, err := c.InsertOne(ctx, memberDoc(role, "active")); err != nil {
			t.Errorf("insert valid %s member failed: %v", role, err)
		}
	}

	if _, err := c.InsertOne(ctx, memberDoc("superuser", "active")); err == nil {
		t.Error("expected validation error for invalid role")
	}
	if _, err := c.InsertOne(ctx, memberDoc("agent", "banned")); err == nil {
		t.Error("expected validation error for invalid status")
	}

	partial := memberDoc("agent", "active")
	partial["permissions"] = bson.M{"can_create_bookings": true}
	if _, err := c.InsertOne(ctx, partial); err == nil {
		t.Error("expected validation error for a partial permission set")
	}

	if _, err := c.InsertOne(ctx, bson.M{"role": "agent"}); err == nil {
		t.Error("expected validation error when required fields are missing")
	}
}

func TestInvitationsValidator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	c := db.Collection("invitations")

	doc := func(role, status string) bson.M {
		return bson.M{
			"agency_id":   primitive.NewObjectID(),
			"email":       "someone@example.com",
			"role":        role,
			"status":      status,
			"token_hash":  primitive.NewObjectID().Hex(),
			"expires_at":  time.Now().Add(time.Hour),
			"permissions": permissions.DefaultPermissions(role),
		}
	}

	if _, err := c.InsertOne(ctx, doc("viewer", "pending")); err != nil {
		t.Errorf("insert valid invitation failed: %v", err)
	}
	if _, err := c.InsertOne(ctx, doc("owner", "pending")); err == nil {
		t.Error("expected validation error for an owner invitation")
	}
	if _, err := c.InsertOne(ctx, doc("viewer", "revoked")); err == nil {
		t.Error("expected validation error for invalid status")
	}
}

func TestAgenciesValidator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	c := db.Collection("agencies")

	if _, err := c.InsertOne(ctx, bson.M{
		"name": "Wanderlust", "name_ci": "wanderlust",
		"owner_id": primitive.NewObjectID(), "is_active": true,
	}); err != nil {
		t.Errorf("insert valid agency failed: %v", err)
	}
	if _, err := c.InsertOne(ctx, bson.M{
		"name": "   ", "name_ci": "   ",
		"owner_id": primitive.NewObjectID(), "is_active": true,
	}); err == nil {
		t.Error("expected validation error for a blank name")
	}
}
