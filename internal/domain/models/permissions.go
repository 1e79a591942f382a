// internal/domain/models/permissions.go
package models

// Permissions is the fixed capability set a member holds inside one agency.
// Every flag is always stored (no omitempty), so a decoded set never has an
// "unset" flag: missing means false.
type Permissions struct {
	// Trip management
	CanCreateTrips   bool `bson:"can_create_trips" json:"canCreateTrips"`
	CanEditTrips     bool `bson:"can_edit_trips" json:"canEditTrips"`
	CanDeleteTrips   bool `bson:"can_delete_trips" json:"canDeleteTrips"`
	CanManagePricing bool `bson:"can_manage_pricing" json:"canManagePricing"`

	// Booking management
	CanCreateBookings  bool `bson:"can_create_bookings" json:"canCreateBookings"`
	CanEditBookings    bool `bson:"can_edit_bookings" json:"canEditBookings"`
	CanCancelBookings  bool `bson:"can_cancel_bookings" json:"canCancelBookings"`
	CanProcessPayments bool `bson:"can_process_payments" json:"canProcessPayments"`

	// Agency management
	CanManageMembers  bool `bson:"can_manage_members" json:"canManageMembers"`
	CanManageSettings bool `bson:"can_manage_settings" json:"canManageSettings"`
	CanViewAnalytics  bool `bson:"can_view_analytics" json:"canViewAnalytics"`
	CanExportData     bool `bson:"can_export_data" json:"canExportData"`

	// Content management
	CanManageLocations   bool `bson:"can_manage_locations" json:"canManageLocations"`
	CanManageItineraries bool `bson:"can_manage_itineraries" json:"canManageItineraries"`
}
