package rbac

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentbridge/talentbridge/shared/models"
)

func TestHostAdminWildcard(t *testing.T) {
	m := BuildMatrix(nil)

	for _, f := range Features() {
		for _, p := range []Permission{PermissionView, PermissionCreate, PermissionUpdate, PermissionDelete, PermissionManage, PermissionApprove} {
			assert.True(t, m.HasPermission(models.RoleHostAdmin, f, p), "%s/%s", f, p)
		}
	}
}

func TestManageSubsumesCRUD(t *testing.T) {
	m := BuildMatrix([]models.RoleFeaturePermission{
		{RoleKey: "auditor", Feature: string(FeatureReporting), CanManage: true},
	})

	for _, p := range []Permission{PermissionView, PermissionCreate, PermissionUpdate, PermissionDelete} {
		assert.True(t, m.HasPermission("auditor", FeatureReporting, p), "manage should imply %s", p)
	}
	assert.True(t, m.HasPermission("auditor", FeatureReporting, PermissionApprove))
}

func TestFailClosed(t *testing.T) {
	m := BuildMatrix([]models.RoleFeaturePermission{
		{RoleKey: "auditor", Feature: string(FeatureReporting), CanView: true},
	})

	// unknown role
	assert.False(t, m.HasPermission("nobody", FeatureReporting, PermissionView))
	// unknown feature
	assert.False(t, m.HasPermission("auditor", Feature("bogus"), PermissionView))
	// feature without a row
	assert.False(t, m.HasPermission("auditor", FeaturePayroll, PermissionView))
	// bit not granted
	assert.False(t, m.HasPermission("auditor", FeatureReporting, PermissionDelete))
	// approve without manage
	assert.False(t, m.HasPermission("auditor", FeatureReporting, PermissionApprove))
}

func TestExactBits(t *testing.T) {
	m := BuildMatrix([]models.RoleFeaturePermission{
		{RoleKey: "editor", Feature: string(FeatureProjects), CanView: true, CanUpdate: true},
	})

	assert.True(t, m.HasPermission("editor", FeatureProjects, PermissionView))
	assert.True(t, m.HasPermission("editor", FeatureProjects, PermissionUpdate))
	assert.False(t, m.HasPermission("editor", FeatureProjects, PermissionCreate))
	assert.False(t, m.HasPermission("editor", FeatureProjects, PermissionDelete))
}

func TestRowsRoundTrip(t *testing.T) {
	in := []models.RoleFeaturePermission{
		{RoleKey: "editor", Feature: string(FeatureProjects), CanView: true, CanUpdate: true},
		{RoleKey: "editor", Feature: string(FeatureReporting), CanView: true},
		{RoleKey: "auditor", Feature: string(FeatureReporting), CanManage: true},
	}

	out := BuildMatrix(in).Rows()
	require.Len(t, out, len(in))

	key := func(r models.RoleFeaturePermission) string { return r.RoleKey + "/" + r.Feature }
	sort.Slice(in, func(i, j int) bool { return key(in[i]) < key(in[j]) })
	sort.Slice(out, func(i, j int) bool { return key(out[i]) < key(out[j]) })

	for i := range in {
		assert.Equal(t, in[i].RoleKey, out[i].RoleKey)
		assert.Equal(t, in[i].Feature, out[i].Feature)
		assert.Equal(t, in[i].CanCreate, out[i].CanCreate)
		assert.Equal(t, in[i].CanView, out[i].CanView)
		assert.Equal(t, in[i].CanUpdate, out[i].CanUpdate)
		assert.Equal(t, in[i].CanDelete, out[i].CanDelete)
		assert.Equal(t, in[i].CanManage, out[i].CanManage)
	}
}

func TestDefaultMatrixSystemRoles(t *testing.T) {
	m := DefaultMatrix()

	assert.True(t, m.HasPermission(models.RolePrimaryClientAdmin, FeatureRoleManagement, PermissionManage))
	assert.True(t, m.HasPermission(models.RoleProgramManager, FeatureWorkRequests, PermissionApprove))
	assert.True(t, m.HasPermission(models.RoleClientUser, FeatureWorkRequests, PermissionCreate))
	assert.False(t, m.HasPermission(models.RoleClientUser, FeatureWorkRequests, PermissionDelete))
	assert.False(t, m.HasPermission(models.RoleClientAdmin, FeaturePayroll, PermissionView))
	assert.False(t, m.HasPermission(models.RoleClientUser, FeatureRoleManagement, PermissionView))
}

func TestResolveTenantRole(t *testing.T) {
	cases := []struct {
		roleLevel string
		role      string
		want      string
	}{
		{models.RoleLevelHost, "anything", models.RoleHostAdmin},
		{models.RoleLevelHost, "", models.RoleHostAdmin},
		{models.RoleLevelPrimaryClient, "admin", models.RolePrimaryClientAdmin},
		{models.RoleLevelPrimaryClient, "manager", models.RoleProgramManager},
		{models.RoleLevelPrimaryClient, "user", models.RoleClientUser},
		{models.RoleLevelPrimaryClient, "unrecognized", models.RolePrimaryClientAdmin},
		{models.RoleLevelSubClient, "admin", models.RoleClientAdmin},
		{models.RoleLevelSubClient, "manager", models.RoleProgramManager},
		{models.RoleLevelSubClient, "user", models.RoleClientUser},
		{models.RoleLevelSubClient, "unknown_value", models.RoleClientUser},
		{"bogus_level", "admin", models.RoleClientUser},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, ResolveTenantRole(tc.roleLevel, tc.role), "%s/%s", tc.roleLevel, tc.role)
	}
}
