package model

// Role is a login identity's position in the permission table.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleTech   Role = "TECH"
	RoleUser   Role = "USER"
	RoleViewer Role = "VIEWER"
)

// AllRoles lists the closed role set.
var AllRoles = []Role{RoleAdmin, RoleTech, RoleUser, RoleViewer}

// ParseRole reports whether v names a known role.
func ParseRole(v string) (Role, bool) {
	for _, r := range AllRoles {
		if string(r) == v {
			return r, true
		}
	}
	return "", false
}

// Permissions is the fixed capability record for a role.  This table is the
// single source of truth for authorization; the copy returned to clients at
// login exists for UX only and is never trusted for enforcement.
type Permissions struct {
	CanViewDashboard      bool   `json:"canViewDashboard"`
	CanAddRepair          bool   `json:"canAddRepair"`
	CanEditRepair         bool   `json:"canEditRepair"`
	CanDeleteRepair       bool   `json:"canDeleteRepair"`
	CanViewReports        bool   `json:"canViewReports"`
	CanScanQR             bool   `json:"canScanQR"`
	CanAccessRepairCenter bool   `json:"canAccessRepairCenter"`
	CanManageUsers        bool   `json:"canManageUsers"`
	DefaultPage           string `json:"defaultPage"`
}

// RolePermissions returns the capability record for a role.  Exhaustive
// over the closed set; unknown roles get a zero record (no capabilities).
func RolePermissions(r Role) Permissions {
	switch r {
	case RoleAdmin:
		return Permissions{
			CanViewDashboard:      true,
			CanAddRepair:          true,
			CanEditRepair:         true,
			CanDeleteRepair:       true,
			CanViewReports:        true,
			CanScanQR:             true,
			CanAccessRepairCenter: true,
			CanManageUsers:        true,
			DefaultPage:           "dashboard",
		}
	case RoleTech:
		return Permissions{
			CanViewDashboard:      true,
			CanEditRepair:         true,
			CanScanQR:             true,
			CanAccessRepairCenter: true,
			DefaultPage:           "repaircenter",
		}
	case RoleUser:
		return Permissions{
			CanViewDashboard: true,
			CanAddRepair:     true,
			CanScanQR:        true,
			DefaultPage:      "form",
		}
	case RoleViewer:
		return Permissions{
			CanViewDashboard: true,
			CanViewReports:   true,
			DefaultPage:      "reports",
		}
	}
	return Permissions{}
}

// PagePermission maps a frontend page name to the capability that gates it.
// Unknown pages return false.
func PagePermission(p Permissions, page string) bool {
	switch page {
	case "dashboard":
		return p.CanViewDashboard
	case "form":
		return p.CanAddRepair
	case "scanner":
		return p.CanScanQR
	case "reports":
		return p.CanViewReports
	case "repaircenter":
		return p.CanAccessRepairCenter
	}
	return false
}
