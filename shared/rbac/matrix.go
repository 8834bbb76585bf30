package rbac

import (
	"github.com/talentbridge/talentbridge/shared/models"
)

// Grant is the permission bitset one role holds on one feature
type Grant struct {
	CanCreate bool
	CanView   bool
	CanUpdate bool
	CanDelete bool
	CanManage bool
}

// Matrix maps roles to their per-feature grants. It is immutable after
// construction and safe for concurrent reads, so the same instance backs
// both UI rendering checks and server-side enforcement.
type Matrix struct {
	grants map[string]map[Feature]Grant
}

// BuildMatrix folds stored role_feature_permissions rows into a Matrix
func BuildMatrix(rows []models.RoleFeaturePermission) *Matrix {
	m := &Matrix{grants: make(map[string]map[Feature]Grant)}
	for _, row := range rows {
		byFeature, ok := m.grants[row.RoleKey]
		if !ok {
			byFeature = make(map[Feature]Grant)
			m.grants[row.RoleKey] = byFeature
		}
		byFeature[Feature(row.Feature)] = Grant{
			CanCreate: row.CanCreate,
			CanView:   row.CanView,
			CanUpdate: row.CanUpdate,
			CanDelete: row.CanDelete,
			CanManage: row.CanManage,
		}
	}
	return m
}

// HasPermission reports whether the role holds the permission on the
// feature. Fail closed: unknown roles, features, or permissions deny.
// host_admin is the platform wildcard; a set "manage" bit subsumes the four
// CRUD permissions. approve/export/import are granted only through manage.
func (m *Matrix) HasPermission(roleKey string, feature Feature, permission Permission) bool {
	if roleKey == models.RoleHostAdmin {
		return true
	}
	if !ValidFeature(feature) {
		return false
	}

	byFeature, ok := m.grants[roleKey]
	if !ok {
		return false
	}
	grant, ok := byFeature[feature]
	if !ok {
		return false
	}
	if grant.CanManage {
		return true
	}

	switch permission {
	case PermissionView:
		return grant.CanView
	case PermissionCreate:
		return grant.CanCreate
	case PermissionUpdate:
		return grant.CanUpdate
	case PermissionDelete:
		return grant.CanDelete
	default:
		return false
	}
}

// Rows flattens the matrix back into row form, the inverse of BuildMatrix.
// Role-management update handlers use it to echo the stored set back to the
// caller after an atomic replace.
func (m *Matrix) Rows() []models.RoleFeaturePermission {
	var rows []models.RoleFeaturePermission
	for roleKey, byFeature := range m.grants {
		for feature, grant := range byFeature {
			rows = append(rows, models.RoleFeaturePermission{
				RoleKey:   roleKey,
				Feature:   string(feature),
				CanCreate: grant.CanCreate,
				CanView:   grant.CanView,
				CanUpdate: grant.CanUpdate,
				CanDelete: grant.CanDelete,
				CanManage: grant.CanManage,
			})
		}
	}
	return rows
}

// DefaultMatrix returns the seeded grants for the system roles. host_admin
// needs no rows; the wildcard covers it.
func DefaultMatrix() *Matrix {
	manage := models.RoleFeaturePermission{CanCreate: true, CanView: true, CanUpdate: true, CanDelete: true, CanManage: true}
	readWrite := models.RoleFeaturePermission{CanCreate: true, CanView: true, CanUpdate: true}
	readOnly := models.RoleFeaturePermission{CanView: true}

	seed := func(role string, feature Feature, bits models.RoleFeaturePermission) models.RoleFeaturePermission {
		bits.RoleKey = role
		bits.Feature = string(feature)
		return bits
	}

	return BuildMatrix([]models.RoleFeaturePermission{
		// primary_client_admin manages everything inside its own customer scope
		seed(models.RolePrimaryClientAdmin, FeatureProjects, manage),
		seed(models.RolePrimaryClientAdmin, FeatureWorkRequests, manage),
		seed(models.RolePrimaryClientAdmin, FeatureTenantManagement, manage),
		seed(models.RolePrimaryClientAdmin, FeatureUserManagement, manage),
		seed(models.RolePrimaryClientAdmin, FeatureRoleManagement, manage),
		seed(models.RolePrimaryClientAdmin, FeatureEmployeeRecords, manage),
		seed(models.RolePrimaryClientAdmin, FeatureReporting, manage),
		seed(models.RolePrimaryClientAdmin, FeatureNotifications, manage),
		seed(models.RolePrimaryClientAdmin, FeatureAttachments, manage),

		// client_admin manages a sub-client, no role or payroll authority
		seed(models.RoleClientAdmin, FeatureProjects, manage),
		seed(models.RoleClientAdmin, FeatureWorkRequests, manage),
		seed(models.RoleClientAdmin, FeatureUserManagement, manage),
		seed(models.RoleClientAdmin, FeatureEmployeeRecords, manage),
		seed(models.RoleClientAdmin, FeatureReporting, readOnly),
		seed(models.RoleClientAdmin, FeatureNotifications, manage),
		seed(models.RoleClientAdmin, FeatureAttachments, manage),

		// program_manager runs delivery: projects and work requests
		seed(models.RoleProgramManager, FeatureProjects, manage),
		seed(models.RoleProgramManager, FeatureWorkRequests, manage),
		seed(models.RoleProgramManager, FeatureReporting, readOnly),
		seed(models.RoleProgramManager, FeatureNotifications, readWrite),
		seed(models.RoleProgramManager, FeatureAttachments, readWrite),

		// client_user submits and reads within its tenant
		seed(models.RoleClientUser, FeatureProjects, readOnly),
		seed(models.RoleClientUser, FeatureWorkRequests, readWrite),
		seed(models.RoleClientUser, FeatureNotifications, readOnly),
		seed(models.RoleClientUser, FeatureAttachments, readOnly),
	})
}

// ResolveTenantRole maps an invitation's (role_level, role) pair to the
// concrete tenant role provisioned on acceptance. The mapping is
// deterministic with a safe default per tier; host invitations ignore the
// role sub-field entirely.
func ResolveTenantRole(roleLevel, role string) string {
	switch roleLevel {
	case models.RoleLevelHost:
		return models.RoleHostAdmin
	case models.RoleLevelPrimaryClient:
		switch role {
		case "admin":
			return models.RolePrimaryClientAdmin
		case "manager":
			return models.RoleProgramManager
		case "user":
			return models.RoleClientUser
		default:
			return models.RolePrimaryClientAdmin
		}
	case models.RoleLevelSubClient:
		switch role {
		case "admin":
			return models.RoleClientAdmin
		case "manager":
			return models.RoleProgramManager
		case "user":
			return models.RoleClientUser
		default:
			return models.RoleClientUser
		}
	default:
		return models.RoleClientUser
	}
}
