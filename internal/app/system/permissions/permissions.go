// internal/app/system/permissions/permissions.go
package permissions

import "github.com/dalemusser/tripdesk/internal/domain/models"

// Flag names one capability in models.Permissions.
type Flag int

const (
	CreateTrips Flag = iota
	EditTrips
	DeleteTrips
	ManagePricing
	CreateBookings
	EditBookings
	CancelBookings
	ProcessPayments
	ManageMembers
	ManageSettings
	ViewAnalytics
	ExportData
	ManageLocations
	ManageItineraries

	numFlags
)

var flagNames = [numFlags]string{
	CreateTrips:       "canCreateTrips",
	EditTrips:         "canEditTrips",
	DeleteTrips:       "canDeleteTrips",
	ManagePricing:     "canManagePricing",
	CreateBookings:    "canCreateBookings",
	EditBookings:      "canEditBookings",
	CancelBookings:    "canCancelBookings",
	ProcessPayments:   "canProcessPayments",
	ManageMembers:     "canManageMembers",
	ManageSettings:    "canManageSettings",
	ViewAnalytics:     "canViewAnalytics",
	ExportData:        "canExportData",
	ManageLocations:   "canManageLocations",
	ManageItineraries: "canManageItineraries",
}

// All returns every flag in declaration order.
func All() []Flag {
	out := make([]Flag, 0, numFlags)
	for f := Flag(0); f < numFlags; f++ {
		out = append(out, f)
	}
	return out
}

// String returns the permission's field name, e.g. "canManageMembers".
func (f Flag) String() string {
	if f < 0 || f >= numFlags {
		return "unknown"
	}
	return flagNames[f]
}

// Parse maps a field name ("canManageMembers") back to its Flag.
func Parse(name string) (Flag, bool) {
	for f, n := range flagNames {
		if n == name {
			return Flag(f), true
		}
	}
	return 0, false
}

// Has reports whether p grants f. Unknown flags are never granted.
func Has(p models.Permissions, f Flag) bool {
	switch f {
	case CreateTrips:
		return p.CanCreateTrips
	case EditTrips:
		return p.CanEditTrips
	case DeleteTrips:
		return p.CanDeleteTrips
	case ManagePricing:
		return p.CanManagePricing
	case CreateBookings:
		return p.CanCreateBookings
	case EditBookings:
		return p.CanEditBookings
	case CancelBookings:
		return p.CanCancelBookings
	case ProcessPayments:
		return p.CanProcessPayments
	case ManageMembers:
		return p.CanManageMembers
	case ManageSettings:
		return p.CanManageSettings
	case ViewAnalytics:
		return p.CanViewAnalytics
	case ExportData:
		return p.CanExportData
	case ManageLocations:
		return p.CanManageLocations
	case ManageItineraries:
		return p.CanManageItineraries
	}
	return false
}

// Granted lists the flags p grants, in declaration order.
func Granted(p models.Permissions) []Flag {
	var out []Flag
	for _, f := range All() {
		if Has(p, f) {
			out = append(out, f)
		}
	}
	return out
}

// Full returns a set with every flag granted. Used for the agency owner.
func Full() models.Permissions {
	return models.Permissions{
		CanCreateTrips:       true,
		CanEditTrips:         true,
		CanDeleteTrips:       true,
		CanManagePricing:     true,
		CanCreateBookings:    true,
		CanEditBookings:      true,
		CanCancelBookings:    true,
		CanProcessPayments:   true,
		CanManageMembers:     true,
		CanManageSettings:    true,
		CanViewAnalytics:     true,
		CanExportData:        true,
		CanManageLocations:   true,
		CanManageItineraries: true,
	}
}
