package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalPermissionAliases(t *testing.T) {
	cases := map[string]Permission{
		"view":    PermissionView,
		"read":    PermissionView,
		"list":    PermissionView,
		"edit":    PermissionUpdate,
		"update":  PermissionUpdate,
		"write":   PermissionCreate,
		"create":  PermissionCreate,
		"remove":  PermissionDelete,
		"delete":  PermissionDelete,
		"manage":  PermissionManage,
		"approve": PermissionApprove,
		"export":  PermissionExport,
		"import":  PermissionImport,
	}

	for raw, want := range cases {
		got, ok := CanonicalPermission(raw)
		require.True(t, ok, "alias %q should resolve", raw)
		assert.Equal(t, want, got, "alias %q", raw)
	}
}

func TestCanonicalPermissionUnknown(t *testing.T) {
	_, ok := CanonicalPermission("administrate")
	assert.False(t, ok)

	_, ok = CanonicalPermission("")
	assert.False(t, ok)
}

func TestValidFeature(t *testing.T) {
	assert.True(t, ValidFeature(FeatureWorkRequests))
	assert.True(t, ValidFeature(FeaturePayroll))
	assert.False(t, ValidFeature(Feature("time_travel")))
}

func TestFeaturesReturnsCatalog(t *testing.T) {
	fs := Features()
	assert.Len(t, fs, 10)
	for _, f := range fs {
		assert.True(t, ValidFeature(f))
	}
}
