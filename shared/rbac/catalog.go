// Package rbac implements the role-based access control core: the static
// feature/permission catalog, the role-permission matrix, the tenant
// hierarchy resolver, and the request-time permission guard.
package rbac

// Feature is a stable key identifying a protected area of the product
type Feature string

// Feature catalog. No runtime mutation; every guard and matrix call speaks
// this vocabulary.
const (
	FeatureProjects         Feature = "projects"
	FeatureWorkRequests     Feature = "work_requests"
	FeatureTenantManagement Feature = "tenant_management"
	FeatureUserManagement   Feature = "user_management"
	FeatureRoleManagement   Feature = "role_management"
	FeatureEmployeeRecords  Feature = "employee_records"
	FeaturePayroll          Feature = "payroll"
	FeatureReporting        Feature = "reporting"
	FeatureNotifications    Feature = "notifications"
	FeatureAttachments      Feature = "attachments"
)

// Permission is a stable key identifying an action on a feature
type Permission string

// Permission catalog
const (
	PermissionView    Permission = "view"
	PermissionCreate  Permission = "create"
	PermissionUpdate  Permission = "update"
	PermissionDelete  Permission = "delete"
	PermissionManage  Permission = "manage"
	PermissionApprove Permission = "approve"
	PermissionExport  Permission = "export"
	PermissionImport  Permission = "import"
)

var features = map[Feature]struct{}{
	FeatureProjects:         {},
	FeatureWorkRequests:     {},
	FeatureTenantManagement: {},
	FeatureUserManagement:   {},
	FeatureRoleManagement:   {},
	FeatureEmployeeRecords:  {},
	FeaturePayroll:          {},
	FeatureReporting:        {},
	FeatureNotifications:    {},
	FeatureAttachments:      {},
}

// Legacy synonyms resolved at the boundary. "edit" and "update" historically
// named the same grant; resolving them here keeps call sites from
// re-interpreting aliases and opening silent authorization gaps.
var permissionAliases = map[string]Permission{
	"view":    PermissionView,
	"read":    PermissionView,
	"list":    PermissionView,
	"create":  PermissionCreate,
	"write":   PermissionCreate,
	"update":  PermissionUpdate,
	"edit":    PermissionUpdate,
	"delete":  PermissionDelete,
	"remove":  PermissionDelete,
	"manage":  PermissionManage,
	"approve": PermissionApprove,
	"export":  PermissionExport,
	"import":  PermissionImport,
}

// ValidFeature reports whether f is in the catalog
func ValidFeature(f Feature) bool {
	_, ok := features[f]
	return ok
}

// CanonicalPermission resolves a raw permission string, including legacy
// aliases, to its canonical catalog entry. Unknown input returns ok=false;
// callers must treat that as a denial, never a pass-through.
func CanonicalPermission(raw string) (Permission, bool) {
	p, ok := permissionAliases[raw]
	return p, ok
}

// Features returns the full feature catalog
func Features() []Feature {
	out := make([]Feature, 0, len(features))
	for f := range features {
		out = append(out, f)
	}
	return out
}
