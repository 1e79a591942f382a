// internal/app/store/members/memberstore.go
package memberstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/tripdesk/internal/app/system/permissions"
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
	return &Store{c: db.Collection("members")}
}

var (
	// ErrNotFound is returned when no (non-owner, where applicable) member matches.
	ErrNotFound = errors.New("member not found")
	// ErrDuplicateMember is returned when the user already has a record in the agency.
	ErrDuplicateMember = errors.New("user is already a member of this agency")
	// ErrOwnerExists is returned when a second owner would be created for an agency.
	ErrOwnerExists = errors.New("agency already has an owner")

	errBadRole   = errors.New("role must be one of admin|manager|agent|editor|viewer")
	errBadStatus = errors.New("status must be active or inactive")
)

// notOwner restricts writes to non-owner members; the owner record is
// immutable through Patch and Delete.
var notOwner = bson.M{"$ne": models.RoleOwner}

func mapInsertErr(err error) error {
	if wafflemongo.IsDup(err) {
		if strings.Contains(err.Error(), "uniq_members_agency_owner") {
			return ErrOwnerExists
		}
		return ErrDuplicateMember
	}
	return err
}

// CreateOwner inserts the owner membership for a new agency with the full
// permission set.
func (s *Store) CreateOwner(ctx context.Context, agencyID, userID primitive.ObjectID) (models.Member, error) {
	now := time.Now().UTC()
	m := models.Member{
		ID:           primitive.NewObjectID(),
		AgencyID:     agencyID,
		UserID:       userID,
		Role:         models.RoleOwner,
		Permissions:  permissions.Full(),
		Status:       models.MemberActive,
		JoinedAt:     now,
		LastActiveAt: now,
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Member{}, mapInsertErr(err)
	}
	return m, nil
}

// Insert adds a non-owner member. Role must be invitable.
func (s *Store) Insert(ctx context.Context, m models.Member) (models.Member, error) {
	if !permissions.IsInvitableRole(m.Role) {
		return models.Member{}, errBadRole
	}
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if m.Status == "" {
		m.Status = models.MemberActive
	}
	now := time.Now().UTC()
	if m.JoinedAt.IsZero() {
		m.JoinedAt = now
	}
	if m.LastActiveAt.IsZero() {
		m.LastActiveAt = now
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Member{}, mapInsertErr(err)
	}
	return m, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Member, error) {
	var m models.Member
	if err := s.c.FindOne(ctx, filter).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Member{}, ErrNotFound
		}
		return models.Member{}, err
	}
	return m, nil
}

// Get returns the member record for (agencyID, userID) regardless of status.
func (s *Store) Get(ctx context.Context, agencyID, userID primitive.ObjectID) (models.Member, error) {
	return s.findOne(ctx, bson.M{"agency_id": agencyID, "user_id": userID})
}

// GetByID loads a member by its own id.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Member, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// Exists reports whether userID has any record in agencyID.
func (s *Store) Exists(ctx context.Context, agencyID, userID primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"agency_id": agencyID, "user_id": userID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Patch is a partial member update; nil fields are left untouched.
type Patch struct {
	Role              *string
	Permissions       *models.Permissions
	AssignedRegions   *[]string
	AssignedTripTypes *[]string
	Status            *string
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p == Patch{}
}

// Validate checks role and status values. Owner can never be assigned.
func (p Patch) Validate() error {
	if p.Role != nil && !permissions.IsInvitableRole(*p.Role) {
		return errBadRole
	}
	if p.Status != nil && *p.Status != models.MemberActive && *p.Status != models.MemberInactive {
		return errBadStatus
	}
	return nil
}

// Patch applies p to a non-owner member and returns the updated record.
// ErrNotFound covers both a missing id and an owner target.
func (s *Store) Patch(ctx context.Context, id primitive.ObjectID, p Patch) (models.Member, error) {
	if err := p.Validate(); err != nil {
		return models.Member{}, err
	}
	set := bson.M{}
	if p.Role != nil {
		set["role"] = *p.Role
	}
	if p.Permissions != nil {
		set["permissions"] = *p.Permissions
	}
	if p.AssignedRegions != nil {
		set["assigned_regions"] = *p.AssignedRegions
	}
	if p.AssignedTripTypes != nil {
		set["assigned_trip_types"] = *p.AssignedTripTypes
	}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if len(set) == 0 {
		return s.findOne(ctx, bson.M{"_id": id, "role": notOwner})
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var m models.Member
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id, "role": notOwner}, bson.M{"$set": set}, opts).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Member{}, ErrNotFound
		}
		return models.Member{}, err
	}
	return m, nil
}

// Delete removes a non-owner member. ErrNotFound covers a missing id and an
// owner target.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "role": notOwner})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByAgency returns every member of the agency, owner first, then by
// join time.
func (s *Store) ListByAgency(ctx context.Context, agencyID primitive.ObjectID) ([]models.Member, error) {
	return s.find(ctx, bson.M{"agency_id": agencyID}, options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}, {Key: "_id", Value: 1}}), true)
}

// ListActiveByUser returns the user's active memberships across agencies.
func (s *Store) ListActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Member, error) {
	return s.find(ctx, bson.M{"user_id": userID, "status": models.MemberActive}, options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}}), false)
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions, ownerFirst bool) ([]models.Member, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Member
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	if ownerFirst {
		for i, m := range out {
			if m.IsOwner() && i > 0 {
				copy(out[1:i+1], out[0:i])
				out[0] = m
				break
			}
		}
	}
	return out, nil
}

// CountActiveByAgency counts members with status active.
func (s *Store) CountActiveByAgency(ctx context.Context, agencyID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"agency_id": agencyID, "status": models.MemberActive})
}

// CountByRole returns role -> count for the agency's active members.
func (s *Store) CountByRole(ctx context.Context, agencyID primitive.ObjectID) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"agency_id": agencyID, "status": models.MemberActive}}},
		{{Key: "$group", Value: bson.M{"_id": "$role", "n": bson.M{"$sum": 1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]int64)
	for cur.Next(ctx) {
		var row struct {
			Role string `bson:"_id"`
			N    int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Role] = row.N
	}
	return out, cur.Err()
}

// DeleteByAgency removes every member (owner included) of the agency.
// Used only by agency deletion.
func (s *Store) DeleteByAgency(ctx context.Context, agencyID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"agency_id": agencyID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Touch records activity on the membership.
func (s *Store) Touch(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_active_at": at.UTC()}})
	return err
}
