// internal/app/system/permissions/roles.go
package permissions

import "github.com/dalemusser/tripdesk/internal/domain/models"

// DefaultPermissions returns the template for an invitable role.
// Owner and unrecognized roles get the all-false set; the owner's full set
// is assigned once at agency creation via Full.
func DefaultPermissions(role string) models.Permissions {
	switch role {
	case models.RoleAdmin:
		p := Full()
		p.CanManageMembers = false
		p.CanManageSettings = false
		return p
	case models.RoleManager:
		return models.Permissions{
			CanCreateTrips:       true,
			CanEditTrips:         true,
			CanManagePricing:     true,
			CanCreateBookings:    true,
			CanEditBookings:      true,
			CanCancelBookings:    true,
			CanViewAnalytics:     true,
			CanManageLocations:   true,
			CanManageItineraries: true,
		}
	case models.RoleAgent:
		return models.Permissions{
			CanCreateBookings: true,
			CanEditBookings:   true,
			CanViewAnalytics:  true,
		}
	case models.RoleEditor:
		return models.Permissions{
			CanEditTrips:         true,
			CanManageLocations:   true,
			CanManageItineraries: true,
		}
	case models.RoleViewer:
		return models.Permissions{
			CanViewAnalytics: true,
		}
	}
	return models.Permissions{}
}

// Resolve returns explicit when provided, else the role template.
// An explicit set replaces the template wholesale; there is no per-flag merge.
func Resolve(role string, explicit *models.Permissions) models.Permissions {
	if explicit != nil {
		return *explicit
	}
	return DefaultPermissions(role)
}

// InvitableRoles are the roles that may be granted through an invitation
// or a member update.
var InvitableRoles = []string{
	models.RoleAdmin,
	models.RoleManager,
	models.RoleAgent,
	models.RoleEditor,
	models.RoleViewer,
}

// IsInvitableRole reports whether role may be invited or assigned.
// Owner is never invitable.
func IsInvitableRole(role string) bool {
	for _, r := range InvitableRoles {
		if r == role {
			return true
		}
	}
	return false
}
