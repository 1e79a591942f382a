package agencystore_test

import (
	"errors"
	"testing"

	agencystore "github.com/dalemusser/tripdesk/internal/app/store/agencies"
	"github.com/dalemusser/tripdesk/internal/domain/models"
	"github.com/dalemusser/tripdesk/internal/testutil"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupSchemaDB(t)
	store := agencystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	created, err := store.Create(ctx, models.Agency{Name: "Élan Voyages", OwnerID: owner, IsActive: true})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID.IsZero() {
		t.Error("expected ID to be assigned")
	}
	if created.NameCI != text.Fold("Élan Voyages") {
		t.Errorf("NameCI = %q, want folded name", created.NameCI)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.OwnerID != owner || got.Name != "Élan Voyages" {
		t.Errorf("unexpected agency: %+v", got)
	}

	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, agencystore.ErrNotFound) {
		t.Errorf("GetByID(missing) err = %v, want ErrNotFound", err)
	}
}

func TestStore_Update(t *testing.T) {
	db := testutil.SetupSchemaDB(t)
	store := agencystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, err := store.Create(ctx, models.Agency{Name: "Old", OwnerID: primitive.NewObjectID(), IsActive: true, Phone: "555"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	name := "New Name"
	settings := models.AgencySettings{Currency: "EUR", Timezone: "Europe/Paris", Language: "fr", BookingPrefix: "NN"}
	updated, err := store.Update(ctx, a.ID, agencystore.Update{Name: &name, Settings: &settings})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Name != "New Name" || updated.NameCI != text.Fold("New Name") {
		t.Errorf("name not updated: %q / %q", updated.Name, updated.NameCI)
	}
	if updated.Settings.Currency != "EUR" {
		t.Errorf("settings not updated: %+v", updated.Settings)
	}
	if updated.Phone != "555" {
		t.Errorf("untouched field changed: Phone = %q", updated.Phone)
	}
	if updated.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}

	if _, err := store.Update(ctx, primitive.NewObjectID(), agencystore.Update{Name: &name}); !errors.Is(err, agencystore.ErrNotFound) {
		t.Errorf("Update(missing) err = %v, want ErrNotFound", err)
	}

	if !(agencystore.Update{}).Empty() {
		t.Error("zero Update should be empty")
	}
}

func TestStore_GetByIDsAndDelete(t *testing.T) {
	db := testutil.SetupSchemaDB(t)
	store := agencystore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, _ := store.Create(ctx, models.Agency{Name: "A", OwnerID: primitive.NewObjectID(), IsActive: true})
	b, _ := store.Create(ctx, models.Agency{Name: "B", OwnerID: primitive.NewObjectID(), IsActive: true})

	got, err := store.GetByIDs(ctx, []primitive.ObjectID{a.ID, b.ID})
	if err != nil {
		t.Fatalf("GetByIDs failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	n, err := store.Delete(ctx, a.ID)
	if err != nil || n != 1 {
		t.Fatalf("Delete = %d, %v", n, err)
	}
	if _, err := store.GetByID(ctx, a.ID); !errors.Is(err, agencystore.ErrNotFound) {
		t.Errorf("deleted agency still found: %v", err)
	}
}
