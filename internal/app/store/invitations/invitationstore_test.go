package invitationstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	invitationstore "github.com/dalemusser/tripdesk/internal/app/store/invitations"
	"github.com/dalemusser/tripdesk/internal/app/system/permissions"
	"github.com/dalemusser/tripdesk/internal/app/system/tokens"
	"github.com/dalemusser/tripdesk/internal/domain/models"
	"github.com/dalemusser/tripdesk/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newInvitation(agencyID primitive.ObjectID, email string, expiresIn time.Duration) models.Invitation {
	return models.Invitation{
		AgencyID:    agencyID,
		Email:       email,
		Role:        models.RoleAgent,
		Permissions: permissions.DefaultPermissions(models.RoleAgent),
		InvitedBy:   primitive.NewObjectID(),
		TokenHash:   tokens.Fingerprint(tokens.New()),
		ExpiresAt:   time.Now().Add(expiresIn).UTC(),
	}
}

func TestStore_Create(t *testing.T) {
	db := testutil.SetupSchemaDB(t)
	store := invitationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	agencyID := primitive.NewObjectID()
	inv, err := store.Create(ctx, newInvitation(agencyID, "  New.Hire@Example.com ", time.Hour))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if inv.Email != "new.hire@example.com" {
		t.Errorf("Email = %q, want normalized", inv.Email)
	}
	if inv.Status != models.InvitationPending {
		t.Errorf("Status = %q, want pending", inv.Status)
	}

	got, err := store.GetByTokenHash(ctx, inv.TokenHash)
	if err != nil {
		t.Fatalf("GetByTokenHash failed: %v", err)
	}
	if got.ID != inv.ID {
		t.Errorf("GetByTokenHash returned %s", got.ID.Hex())
	}

	// Second pending invite to the same address (any case) collides.
	if _, err := store.Create(ctx, newInvitation(agencyID, "NEW.HIRE@example.com", time.Hour)); !errors.Is(err, invitationstore.ErrDuplicatePending) {
		t.Errorf("duplicate pending err = %v, want ErrDuplicatePending", err)
	}

	// Same address in a different agency is fine.
	if _, err := store.Create(ctx, newInvitation(primitive.NewObjectID(), "new.hire@example.com", time.Hour)); err != nil {
		t.Errorf("other agency Create failed: %v", err)
	}

	// Reused token fingerprint
	dup := newInvitation(primitive.NewObjectID(), "x@example.com", time.Hour)
	dup.TokenHash = inv.TokenHash
	if _, err := store.Create(ctx, dup); !errors.Is(err, invitationstore.ErrDuplicateToken) {
		t.Errorf("duplicate token err = %v, want ErrDuplicateToken", err)
	}

	if _, err := store.GetByTokenHash(ctx, "nope"); !errors.Is(err, invitationstore.ErrNotFound) {
		t.Errorf("GetByTokenHash(missing) err = %v, want ErrNotFound", err)
	}
}

func TestStore_Transition(t *testing.T) {
	db := testutil.SetupSchemaDB(t)
	store := invitationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	inv, err := store.Create(ctx, newInvitation(primitive.NewObjectID(), "a@example.com", time.Hour))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	userID := primitive.NewObjectID()
	changed, err := store.Transition(ctx, inv.ID, models.InvitationAccepted, time.Now(), &userID)
	if err != nil || !changed {
		t.Fatalf("Transition = %v, %v; want true", changed, err)
	}

	// Terminal states are never overwritten.
	changed, err = store.Transition(ctx, inv.ID, models.InvitationCanceled, time.Now(), nil)
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if changed {
		t.Error("accepted invitation must not transition again")
	}

	got, _ := store.GetByID(ctx, inv.ID)
	if got.Status != models.InvitationAccepted {
		t.Errorf("Status = %q, want accepted", got.Status)
	}
	if got.AcceptedBy == nil || *got.AcceptedBy != userID {
		t.Errorf("AcceptedBy = %v, want %s", got.AcceptedBy, userID.Hex())
	}

	// Once terminal, a new pending invite for the same pair is allowed.
	if _, err := store.Create(ctx, newInvitation(inv.AgencyID, "a@example.com", time.Hour)); err != nil {
		t.Errorf("re-invite after acceptance failed: %v", err)
	}

	changed, err = store.Transition(ctx, primitive.NewObjectID(), models.InvitationCanceled, time.Now(), nil)
	if err != nil || changed {
		t.Errorf("Transition(missing) = %v, %v; want false, nil", changed, err)
	}
}

func TestStore_Transition_SingleWinner(t *testing.T) {
	db := testutil.SetupSchemaDB(t)
	store := invitationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	inv, _ := store.Create(ctx, newInvitation(primitive.NewObjectID(), "race@example.com", time.Hour))

	const racers = 8
	results := make(chan bool, racers)
	for i := 0; i < racers; i++ {
		go func() {
			uid := primitive.NewObjectID()
			ok, err := store.Transition(context.Background(), inv.ID, models.InvitationAccepted, time.Now(), &uid)
			results <- err == nil && ok
		}()
	}
	wins := 0
	for i := 0; i < racers; i++ {
		if <-results {
			wins++
		}
	}
	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
}

func TestStore_Revert(t *testing.T) {
	db := testutil.SetupSchemaDB(t)
	store := invitationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	inv, _ := store.Create(ctx, newInvitation(primitive.NewObjectID(), "undo@example.com", time.Hour))
	uid := primitive.NewObjectID()
	if ok, _ := store.Transition(ctx, inv.ID, models.InvitationAccepted, time.Now(), &uid); !ok {
		t.Fatal("Transition should succeed")
	}
	if err := store.Revert(ctx, inv.ID, models.InvitationAccepted, time.Now()); err != nil {
		t.Fatalf("Revert failed: %v", err)
	}
	got, _ := store.GetByID(ctx, inv.ID)
	if got.Status != models.InvitationPending || got.AcceptedBy != nil {
		t.Errorf("after revert: status=%q accepted_by=%v", got.Status, got.AcceptedBy)
	}
}

func TestStore_ListsAndCounts(t *testing.T) {
	db := testutil.SetupSchemaDB(t)
	store := invitationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	agencyID := primitive.NewObjectID()
	live, _ := store.Create(ctx, newInvitation(agencyID, "me@example.com", time.Hour))
	if _, err := store.Create(ctx, newInvitation(primitive.NewObjectID(), "me@example.com", -time.Hour)); err != nil {
		t.Fatalf("Create overdue failed: %v", err)
	}
	if _, err := store.Create(ctx, newInvitation(agencyID, "overdue@example.com", -time.Minute)); err != nil {
		t.Fatalf("Create overdue failed: %v", err)
	}
	canceled, _ := store.Create(ctx, newInvitation(primitive.NewObjectID(), "me@example.com", time.Hour))
	_, _ = store.Transition(ctx, canceled.ID, models.InvitationCanceled, time.Now(), nil)

	mine, err := store.ListPendingByEmail(ctx, "ME@example.com", time.Now())
	if err != nil {
		t.Fatalf("ListPendingByEmail failed: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != live.ID {
		t.Errorf("ListPendingByEmail = %d items, want only the live one", len(mine))
	}

	all, err := store.ListByAgency(ctx, agencyID)
	if err != nil || len(all) != 2 {
		t.Errorf("ListByAgency = %d, %v; want 2", len(all), err)
	}

	n, err := store.CountPendingByAgency(ctx, agencyID, time.Now())
	if err != nil || n != 1 {
		t.Errorf("CountPendingByAgency = %d, %v; want 1 (overdue excluded)", n, err)
	}

	found, err := store.FindPending(ctx, agencyID, "Overdue@Example.com")
	if err != nil {
		t.Errorf("FindPending should see overdue pending invitations: %v", err)
	} else if found.Email != "overdue@example.com" {
		t.Errorf("FindPending returned %q", found.Email)
	}

	deleted, err := store.DeleteByAgency(ctx, agencyID)
	if err != nil || deleted != 2 {
		t.Errorf("DeleteByAgency = %d, %v; want 2", deleted, err)
	}
}

func TestStore_PurgeTerminal(t *testing.T) {
	db := testutil.SetupSchemaDB(t)
	store := invitationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	old := time.Now().Add(-48 * time.Hour)
	agencyID := primitive.NewObjectID()

	pendingOld, _ := store.Create(ctx, newInvitation(agencyID, "p@example.com", -time.Hour))
	acceptedOld, _ := store.Create(ctx, newInvitation(agencyID, "a@example.com", time.Hour))
	canceledNew, _ := store.Create(ctx, newInvitation(agencyID, "c@example.com", time.Hour))

	_, _ = store.Transition(ctx, acceptedOld.ID, models.InvitationAccepted, old, nil)
	_, _ = store.Transition(ctx, canceledNew.ID, models.InvitationCanceled, time.Now(), nil)
	// Age the pending invitation too; it must still survive.
	_, _ = db.Collection("invitations").UpdateOne(ctx, bson.M{"_id": pendingOld.ID}, bson.M{"$set": bson.M{"updated_at": old}})

	n, err := store.PurgeTerminal(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeTerminal failed: %v", err)
	}
	if n != 1 {
		t.Errorf("purged %d, want 1", n)
	}
	if _, err := store.GetByID(ctx, acceptedOld.ID); !errors.Is(err, invitationstore.ErrNotFound) {
		t.Error("old accepted invitation should be purged")
	}
	if _, err := store.GetByID(ctx, pendingOld.ID); err != nil {
		t.Error("pending invitation must never be purged")
	}
	if _, err := store.GetByID(ctx, canceledNew.ID); err != nil {
		t.Error("recent terminal invitation must be kept")
	}
}
