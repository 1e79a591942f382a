// internal/app/store/agencies/agencystore.go
package agencystore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/tripdesk/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("agencies")}
}

var ErrNotFound = errors.New("agency not found")

// Create inserts a new agency, assigning its id and timestamps.
func (s *Store) Create(ctx context.Context, a models.Agency) (models.Agency, error) {
	now := time.Now().UTC()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.NameCI = text.Fold(a.Name)
	a.CreatedAt = now
	a.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return models.Agency{}, err
	}
	return a, nil
}

// GetByID loads one agency.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Agency, error) {
	var a models.Agency
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Agency{}, ErrNotFound
		}
		return models.Agency{}, err
	}
	return a, nil
}

// GetByIDs loads the agencies with the given ids, keyed by id.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Agency, error) {
	out := make(map[primitive.ObjectID]models.Agency, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var a models.Agency
		if err := cur.Decode(&a); err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, cur.Err()
}

// Update is a partial update; nil fields are left untouched.
type Update struct {
	Name          *string
	Description   *string
	Logo          *string
	Website       *string
	Email         *string
	Phone         *string
	Address       *models.AgencyAddress
	BusinessType  *string
	LicenseNumber *string
	Settings      *models.AgencySettings
	IsActive      *bool
}

// Empty reports whether u changes nothing.
func (u Update) Empty() bool {
	return u == Update{}
}

func (u Update) setDoc() bson.M {
	set := bson.M{}
	if u.Name != nil {
		set["name"] = *u.Name
		set["name_ci"] = text.Fold(*u.Name)
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Logo != nil {
		set["logo"] = *u.Logo
	}
	if u.Website != nil {
		set["website"] = *u.Website
	}
	if u.Email != nil {
		set["email"] = *u.Email
	}
	if u.Phone != nil {
		set["phone"] = *u.Phone
	}
	if u.Address != nil {
		set["address"] = *u.Address
	}
	if u.BusinessType != nil {
		set["business_type"] = *u.BusinessType
	}
	if u.LicenseNumber != nil {
		set["license_number"] = *u.LicenseNumber
	}
	if u.Settings != nil {
		set["settings"] = *u.Settings
	}
	if u.IsActive != nil {
		set["is_active"] = *u.IsActive
	}
	return set
}

// Update applies u and returns the updated agency.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, u Update) (models.Agency, error) {
	set := u.setDoc()
	set["updated_at"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var a models.Agency
	if err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Agency{}, ErrNotFound
		}
		return models.Agency{}, err
	}
	return a, nil
}

// Delete removes the agency document. Members and invitations are removed
// by their own stores.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
