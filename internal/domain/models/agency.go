// internal/domain/models/agency.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Agency is the tenant. It owns its members and invitations; deleting an
// agency deletes both.
//
// OwnerID always matches the user_id of the single member whose role is
// "owner".
type Agency struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name   string             `bson:"name" json:"name"`
	NameCI string             `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped

	Description string         `bson:"description,omitempty" json:"description,omitempty"` // sanitized HTML
	Logo        string         `bson:"logo,omitempty" json:"logo,omitempty"`
	Website     string         `bson:"website,omitempty" json:"website,omitempty"`
	Email       string         `bson:"email,omitempty" json:"email,omitempty"`
	Phone       string         `bson:"phone,omitempty" json:"phone,omitempty"`
	Address     *AgencyAddress `bson:"address,omitempty" json:"address,omitempty"`

	BusinessType  string         `bson:"business_type,omitempty" json:"businessType,omitempty"`
	LicenseNumber string         `bson:"license_number,omitempty" json:"licenseNumber,omitempty"`
	Settings      AgencySettings `bson:"settings" json:"settings"`

	OwnerID  primitive.ObjectID `bson:"owner_id" json:"ownerId"`
	IsActive bool               `bson:"is_active" json:"isActive"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// AgencyAddress is the agency's postal address.
type AgencyAddress struct {
	Street     string `bson:"street" json:"street"`
	City       string `bson:"city" json:"city"`
	State      string `bson:"state,omitempty" json:"state,omitempty"`
	Country    string `bson:"country" json:"country"`
	PostalCode string `bson:"postal_code,omitempty" json:"postalCode,omitempty"`
}

// AgencySettings holds defaults applied to the agency's trips and bookings.
type AgencySettings struct {
	Currency       string         `bson:"currency" json:"currency"`
	Timezone       string         `bson:"timezone" json:"timezone"`
	Language       string         `bson:"language" json:"language"`
	BookingPrefix  string         `bson:"booking_prefix" json:"bookingPrefix"`
	CommissionRate *float64       `bson:"commission_rate,omitempty" json:"commissionRate,omitempty"`
	Features       AgencyFeatures `bson:"features" json:"features"`
}

// AgencyFeatures are per-agency feature toggles.
type AgencyFeatures struct {
	MultiCityBookings  bool `bson:"multi_city_bookings" json:"multiCityBookings"`
	GroupBookings      bool `bson:"group_bookings" json:"groupBookings"`
	CustomItineraries  bool `bson:"custom_itineraries" json:"customItineraries"`
	PriceManagement    bool `bson:"price_management" json:"priceManagement"`
	AnalyticsReporting bool `bson:"analytics_reporting" json:"analyticsReporting"`
	APIAccess          bool `bson:"api_access" json:"apiAccess"`
}
