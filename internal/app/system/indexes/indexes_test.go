package indexes_test

import (
	"context"
	"testing"

	"github.com/dalemusser/tripdesk/internal/app/system/indexes"
	"github.com/dalemusser/tripdesk/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func indexNames(t *testing.T, ctx context.Context, c *mongo.Collection) map[string]bool {
	t.Helper()
	cur, err := c.Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	expected := map[string][]string{
		"users":    {"uniq_users_email_ci"},
		"agencies": {"idx_agencies_owner", "idx_agencies_nameci_id"},
		"members": {
			"uniq_members_agency_user",
			"uniq_members_agency_owner",
			"idx_members_user_status",
			"idx_members_agency_status_role",
		},
		"invitations": {
			"uniq_invitations_token_hash",
			"uniq_invitations_agency_email_pending",
			"idx_invitations_agency_created",
			"idx_invitations_email_status_expires",
			"idx_invitations_status_updated",
		},
		"audit_events": {
			"idx_audit_timestamp",
			"idx_audit_agency_timestamp",
			"idx_audit_user_timestamp",
			"idx_audit_category_type_timestamp",
		},
	}

	for coll, names := range expected {
		got := indexNames(t, ctx, db.Collection(coll))
		for _, name := range names {
			if !got[name] {
				t.Errorf("%s: expected index %q to exist", coll, name)
			}
		}
	}
}

func TestEnsureAll_OneOwnerPerAgency(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	agencyID := primitive.NewObjectID()
	members := db.Collection("members")

	if _, err := members.InsertOne(ctx, bson.M{"agency_id": agencyID, "user_id": primitive.NewObjectID(), "role": "owner"}); err != nil {
		t.Fatalf("insert owner: %v", err)
	}
	// Any number of non-owner members is fine.
	for i := 0; i < 2; i++ {
		if _, err := members.InsertOne(ctx, bson.M{"agency_id": agencyID, "user_id": primitive.NewObjectID(), "role": "agent"}); err != nil {
			t.Fatalf("insert agent: %v", err)
		}
	}
	if _, err := members.InsertOne(ctx, bson.M{"agency_id": agencyID, "user_id": primitive.NewObjectID(), "role": "owner"}); err == nil {
		t.Error("expected duplicate key error for a second owner")
	}
}

func TestEnsureAll_OnePendingInvitationPerEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	agencyID := primitive.NewObjectID()
	inv := db.Collection("invitations")
	doc := func(status, hash string) bson.M {
		return bson.M{"agency_id": agencyID, "email": "a@example.com", "status": status, "token_hash": hash}
	}

	if _, err := inv.InsertOne(ctx, doc("canceled", "h1")); err != nil {
		t.Fatalf("insert canceled: %v", err)
	}
	if _, err := inv.InsertOne(ctx, doc("expired", "h2")); err != nil {
		t.Fatalf("insert expired: %v", err)
	}
	if _, err := inv.InsertOne(ctx, doc("pending", "h3")); err != nil {
		t.Fatalf("insert pending: %v", err)
	}
	if _, err := inv.InsertOne(ctx, doc("pending", "h4")); err == nil {
		t.Error("expected duplicate key error for a second pending invitation")
	}
	if _, err := inv.InsertOne(ctx, doc("accepted", "h3")); err == nil {
		t.Error("expected duplicate key error for a reused token hash")
	}
}
