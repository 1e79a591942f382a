// internal/domain/models/member.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Member roles. RoleOwner is assigned only at agency creation.
const (
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleAgent   = "agent"
	RoleEditor  = "editor"
	RoleViewer  = "viewer"
)

// Member statuses.
const (
	MemberActive   = "active"
	MemberInactive = "inactive"
	MemberPending  = "pending"
)

// MemberRoles lists every role a member document may carry.
var MemberRoles = []string{RoleOwner, RoleAdmin, RoleManager, RoleAgent, RoleEditor, RoleViewer}

// MemberStatuses lists every status a member document may carry.
var MemberStatuses = []string{MemberActive, MemberInactive, MemberPending}

// Member is the authoritative join between a user and an agency.
// Exactly one document per (agency_id, user_id).
type Member struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AgencyID primitive.ObjectID `bson:"agency_id" json:"agencyId"`
	UserID   primitive.ObjectID `bson:"user_id" json:"userId"`
	Role     string             `bson:"role" json:"role"`

	Permissions Permissions `bson:"permissions" json:"permissions"`

	// Assignment restrictions; empty means unrestricted.
	AssignedRegions   []string `bson:"assigned_regions,omitempty" json:"assignedRegions,omitempty"`
	AssignedTripTypes []string `bson:"assigned_trip_types,omitempty" json:"assignedTripTypes,omitempty"`

	Status string `bson:"status" json:"status"`

	// Provenance (set when the membership came from an invitation)
	InvitedBy *primitive.ObjectID `bson:"invited_by,omitempty" json:"invitedBy,omitempty"`
	InvitedAt *time.Time          `bson:"invited_at,omitempty" json:"invitedAt,omitempty"`

	JoinedAt     time.Time `bson:"joined_at" json:"joinedAt"`
	LastActiveAt time.Time `bson:"last_active_at" json:"lastActiveAt"`
}

// IsOwner reports whether m is the agency owner's membership.
func (m Member) IsOwner() bool {
	return m.Role == RoleOwner
}

// IsActive reports whether the membership is in the active status.
func (m Member) IsActive() bool {
	return m.Status == MemberActive
}
