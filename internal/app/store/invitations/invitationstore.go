// internal/app/store/invitations/invitationstore.go
package invitationstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/tripdesk/internal/app/system/normalize"
	"github.com/dalemusser/tripdesk/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("invitations")}
}

var (
	// ErrNotFound is returned when no invitation matches.
	ErrNotFound = errors.New("invitation not found")
	// ErrDuplicatePending is returned when a pending invitation already exists
	// for the (agency, email) pair.
	ErrDuplicatePending = errors.New("a pending invitation already exists for this email")
	// ErrDuplicateToken is returned when the token fingerprint collides.
	ErrDuplicateToken = errors.New("invitation token already in use")
)

// Create inserts a pending invitation. The email is normalized.
func (s *Store) Create(ctx context.Context, inv models.Invitation) (models.Invitation, error) {
	if inv.ID.IsZero() {
		inv.ID = primitive.NewObjectID()
	}
	inv.Email = normalize.Email(inv.Email)
	inv.Status = models.InvitationPending
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	inv.UpdatedAt = inv.CreatedAt

	if _, err := s.c.InsertOne(ctx, inv); err != nil {
		if wafflemongo.IsDup(err) {
			if strings.Contains(err.Error(), "token_hash") {
				return models.Invitation{}, ErrDuplicateToken
			}
			return models.Invitation{}, ErrDuplicatePending
		}
		return models.Invitation{}, err
	}
	return inv, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Invitation, error) {
	var inv models.Invitation
	if err := s.c.FindOne(ctx, filter).Decode(&inv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Invitation{}, ErrNotFound
		}
		return models.Invitation{}, err
	}
	return inv, nil
}

// GetByID loads one invitation.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Invitation, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByTokenHash loads the invitation whose token fingerprint is hash.
func (s *Store) GetByTokenHash(ctx context.Context, hash string) (models.Invitation, error) {
	return s.findOne(ctx, bson.M{"token_hash": hash})
}

// FindPending returns the pending invitation for (agencyID, email), if any.
// Expiry is not considered: an overdue pending invitation still blocks a new one
// until it is redeemed (and marked expired) or canceled.
func (s *Store) FindPending(ctx context.Context, agencyID primitive.ObjectID, email string) (models.Invitation, error) {
	return s.findOne(ctx, bson.M{
		"agency_id": agencyID,
		"email":     normalize.Email(email),
		"status":    models.InvitationPending,
	})
}

// Transition moves an invitation from pending to status with a single
// compare-and-swap write. It reports whether this call made the change;
// false means the invitation was missing or no longer pending.
func (s *Store) Transition(ctx context.Context, id primitive.ObjectID, status string, at time.Time, acceptedBy *primitive.ObjectID) (bool, error) {
	set := bson.M{"status": status, "updated_at": at.UTC()}
	if acceptedBy != nil {
		set["accepted_by"] = *acceptedBy
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.InvitationPending},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// Revert returns an invitation from status back to pending. Only used to
// undo an acceptance whose member insert failed when no transaction was
// available.
func (s *Store) Revert(ctx context.Context, id primitive.ObjectID, from string, at time.Time) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{
			"$set":   bson.M{"status": models.InvitationPending, "updated_at": at.UTC()},
			"$unset": bson.M{"accepted_by": ""},
		},
	)
	return err
}

// ListByAgency returns all invitations of the agency, newest first.
func (s *Store) ListByAgency(ctx context.Context, agencyID primitive.ObjectID) ([]models.Invitation, error) {
	return s.find(ctx, bson.M{"agency_id": agencyID})
}

// ListPendingByEmail returns pending invitations addressed to email that
// have not passed their expiry at now.
func (s *Store) ListPendingByEmail(ctx context.Context, email string, now time.Time) ([]models.Invitation, error) {
	return s.find(ctx, bson.M{
		"email":      normalize.Email(email),
		"status":     models.InvitationPending,
		"expires_at": bson.M{"$gt": now.UTC()},
	})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Invitation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Invitation
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountPendingByAgency counts pending invitations not yet past expiry at now.
func (s *Store) CountPendingByAgency(ctx context.Context, agencyID primitive.ObjectID, now time.Time) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"agency_id":  agencyID,
		"status":     models.InvitationPending,
		"expires_at": bson.M{"$gt": now.UTC()},
	})
}

// DeleteByAgency removes every invitation of the agency.
func (s *Store) DeleteByAgency(ctx context.Context, agencyID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"agency_id": agencyID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// PurgeTerminal deletes accepted, expired and canceled invitations last
// updated before cutoff. Pending invitations are never purged.
func (s *Store) PurgeTerminal(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{
		"status": bson.M{"$in": bson.A{
			models.InvitationAccepted,
			models.InvitationExpired,
			models.InvitationCanceled,
		}},
		"updated_at": bson.M{"$lt": cutoff.UTC()},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
