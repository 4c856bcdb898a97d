package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleAdmin     = "admin"
	RoleSupport   = "support"
	RoleModerator = "moderator"
	RoleReadonly  = "readonly"
	RoleBuyer     = "buyer"
)

// Permission names. Stable identifiers checked by handlers and middleware.
const (
	PermManageProducts  = "manage_products"
	PermManageOrders    = "manage_orders"
	PermManageUsers     = "manage_users"
	PermManageWallets   = "manage_wallets"
	PermManageDiscounts = "manage_discounts"
	PermManageDisputes  = "manage_disputes"
	PermManageSettings  = "manage_settings"
	PermViewAnalytics   = "view_analytics"
	PermViewAuditLogs   = "view_audit_logs"
)

// rolePermissions is the server-side grant table. The token only carries the
// role name; grants are resolved here on every request.
var rolePermissions = map[string][]string{
	RoleAdmin: {
		PermManageProducts, PermManageOrders, PermManageUsers, PermManageWallets,
		PermManageDiscounts, PermManageDisputes, PermManageSettings,
		PermViewAnalytics, PermViewAuditLogs,
	},
	RoleSupport: {
		PermManageOrders, PermManageUsers, PermManageWallets, PermManageDisputes,
		PermViewAnalytics,
	},
	RoleModerator: {
		PermManageProducts, PermManageDiscounts, PermViewAnalytics,
	},
	RoleReadonly: {
		PermViewAnalytics,
	},
	RoleBuyer: {},
}

func IsAdmin(role string) bool { return role == RoleAdmin }

// HasPermission reports whether the role is granted the permission.
// Admin implicitly holds every permission.
func HasPermission(role, permission string) bool {
	if IsAdmin(role) {
		return true
	}
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}
