// internal/domain/models/invitation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Invitation statuses. Pending is the only non-terminal state.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationExpired  = "expired"
	InvitationCanceled = "canceled"
)

// InvitationStatuses lists every status an invitation document may carry.
var InvitationStatuses = []string{InvitationPending, InvitationAccepted, InvitationExpired, InvitationCanceled}

// Invitation is a tokenized, time-boxed offer of membership.
//
// At most one pending invitation exists per (agency_id, email). The raw
// token is handed to the invitee out of band; only its fingerprint is stored.
//
// Expiry is lazy: a pending invitation past ExpiresAt still reads as pending
// until someone tries to redeem it. Use IsExpiredAt when listing.
type Invitation struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AgencyID primitive.ObjectID `bson:"agency_id" json:"agencyId"`
	Email    string             `bson:"email" json:"email"` // normalized lowercase
	Role     string             `bson:"role" json:"role"`

	Permissions Permissions `bson:"permissions" json:"permissions"`

	InvitedBy primitive.ObjectID `bson:"invited_by" json:"invitedBy"`
	TokenHash string             `bson:"token_hash" json:"-"`
	ExpiresAt time.Time          `bson:"expires_at" json:"expiresAt"`
	Status    string             `bson:"status" json:"status"`

	AcceptedBy *primitive.ObjectID `bson:"accepted_by,omitempty" json:"acceptedBy,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsTerminal reports whether the invitation can no longer change state.
func (inv Invitation) IsTerminal() bool {
	return inv.Status != InvitationPending
}

// IsExpiredAt reports whether the invitation is past its expiry at now,
// regardless of the stored status.
func (inv Invitation) IsExpiredAt(now time.Time) bool {
	return inv.ExpiresAt.Before(now)
}
