package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/tripdesk/internal/app/system/normalize"
	"github.com/dalemusser/tripdesk/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Users are owned by the authentication service. This store reads them and
// offers Upsert for seeding dev and test data.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when another user already has this email.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	errBadEmail       = errors.New("email is required")
)

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email_ci": normalize.Email(email)}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// Summary is the public face of a user shown next to members and invitations.
type Summary struct {
	ID    primitive.ObjectID `bson:"_id" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email" json:"email"`
	Image string             `bson:"image,omitempty" json:"image,omitempty"`
}

// Summaries returns name/email for each id that exists, keyed by id.
func (s *Store) Summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]Summary, error) {
	out := make(map[primitive.ObjectID]Summary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	proj := options.Find().SetProjection(bson.M{"_id": 1, "name": 1, "email": 1, "image": 1})
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, proj)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var sm Summary
		if err := cur.Decode(&sm); err != nil {
			return nil, err
		}
		out[sm.ID] = sm
	}
	return out, cur.Err()
}

// Upsert inserts or updates a user keyed by normalized email and returns
// the stored record.
func (s *Store) Upsert(ctx context.Context, u models.User) (models.User, error) {
	email := normalize.Email(u.Email)
	if email == "" {
		return models.User{}, errBadEmail
	}
	now := time.Now().UTC()
	status := normalize.Status(u.Status)
	if status == "" {
		status = "active"
	}

	set := bson.M{
		"name":           normalize.Name(u.Name),
		"email":          email,
		"email_ci":       email,
		"email_verified": u.EmailVerified,
		"status":         status,
		"updated_at":     now,
	}
	if u.Image != "" {
		set["image"] = u.Image
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": now},
	}
	filter := bson.M{"email_ci": email}
	if !u.ID.IsZero() {
		update["$setOnInsert"] = bson.M{"_id": u.ID, "created_at": now}
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var out models.User
	if err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return out, nil
}
