package model

// Roles, strongest first.
const (
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleViewer = "viewer"
)

// Capability names an action a role may or may not perform. Route guards
// and handlers consult Allowed instead of comparing role strings, so the
// policy lives in one place.
type Capability string

const (
	CapViewInventory     Capability = "view_inventory"
	CapManageItems       Capability = "manage_items"
	CapPostTransactions  Capability = "post_transactions"
	CapManageUsers       Capability = "manage_users"
	CapExportReports     Capability = "export_reports"
	CapReadNotifications Capability = "read_notifications"
)

var roleCapabilities = map[string]map[Capability]bool{
	RoleAdmin: {
		CapViewInventory:     true,
		CapManageItems:       true,
		CapPostTransactions:  true,
		CapManageUsers:       true,
		CapExportReports:     true,
		CapReadNotifications: true,
	},
	RoleStaff: {
		CapViewInventory:     true,
		CapManageItems:       true,
		CapPostTransactions:  true,
		CapExportReports:     true,
		CapReadNotifications: true,
	},
	RoleViewer: {
		CapViewInventory:     true,
		CapExportReports:     true,
		CapReadNotifications: true,
	},
}

// Allowed reports whether a role grants the capability.
// Unknown roles and capabilities fail closed.
func Allowed(role string, cap Capability) bool {
	return roleCapabilities[role][cap]
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	_, ok := roleCapabilities[role]
	return ok
}
