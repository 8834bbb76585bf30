package rbac

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentbridge/talentbridge/shared/models"
)

// fixture: platform -> acme -> {acme-east, acme-west}, acme-east -> (none)
// and a second primary customer "globex" beside acme.
type fixture struct {
	tree                                       *Tree
	platform, acme, acmeEast, acmeWest, globex models.Tenant
}

func newFixture() fixture {
	platform := models.Tenant{ID: uuid.New(), Name: "platform", Tier: models.TierPlatform, CanHaveChildren: true, IsActive: true}
	acme := models.Tenant{ID: uuid.New(), Name: "acme", Tier: models.TierPrimaryClient, ParentTenantID: &platform.ID, CanHaveChildren: true, IsActive: true}
	globex := models.Tenant{ID: uuid.New(), Name: "globex", Tier: models.TierPrimaryClient, ParentTenantID: &platform.ID, CanHaveChildren: true, IsActive: true}
	acmeEast := models.Tenant{ID: uuid.New(), Name: "acme-east", Tier: models.TierSubClient, ParentTenantID: &acme.ID, IsActive: true}
	acmeWest := models.Tenant{ID: uuid.New(), Name: "acme-west", Tier: models.TierSubClient, ParentTenantID: &acme.ID, IsActive: true}

	return fixture{
		tree:     NewTree([]models.Tenant{platform, acme, globex, acmeEast, acmeWest}),
		platform: platform, acme: acme, acmeEast: acmeEast, acmeWest: acmeWest, globex: globex,
	}
}

func membership(tenantID uuid.UUID, scope models.PermissionScope) models.TenantUser {
	return models.TenantUser{
		UserID:          "user-1",
		TenantID:        tenantID,
		Role:            models.RoleClientUser,
		IsActive:        true,
		PermissionScope: scope,
	}
}

func TestChildren(t *testing.T) {
	f := newFixture()

	children := f.tree.Children(f.acme.ID)
	require.Len(t, children, 2)

	names := []string{children[0].Name, children[1].Name}
	assert.ElementsMatch(t, []string{"acme-east", "acme-west"}, names)
	assert.Empty(t, f.tree.Children(f.acmeEast.ID))
}

func TestAncestorsTerminateAtRoot(t *testing.T) {
	f := newFixture()

	ancestors := f.tree.Ancestors(f.acmeEast.ID)
	require.Len(t, ancestors, 2)
	assert.Equal(t, f.acme.ID, ancestors[0].ID)
	assert.Equal(t, f.platform.ID, ancestors[1].ID)

	assert.Empty(t, f.tree.Ancestors(f.platform.ID))
}

func TestDescendants(t *testing.T) {
	f := newFixture()

	descendants := f.tree.Descendants(f.platform.ID)
	assert.Len(t, descendants, 4)

	descendants = f.tree.Descendants(f.acme.ID)
	assert.Len(t, descendants, 2)
}

func TestHierarchyStructure(t *testing.T) {
	f := newFixture()

	node, ok := f.tree.Hierarchy(f.platform.ID)
	require.True(t, ok)
	require.Len(t, node.Children, 2)

	_, ok = f.tree.Hierarchy(uuid.New())
	assert.False(t, ok)
}

func TestHierarchyTerminatesOnCorruptParentLinks(t *testing.T) {
	// a <-> b parent cycle, which the tier invariant forbids but defensive
	// traversal must still survive
	a := models.Tenant{ID: uuid.New(), Name: "a", Tier: models.TierPrimaryClient}
	b := models.Tenant{ID: uuid.New(), Name: "b", Tier: models.TierSubClient, ParentTenantID: &a.ID}
	a.ParentTenantID = &b.ID

	tree := NewTree([]models.Tenant{a, b})

	node, ok := tree.Hierarchy(a.ID)
	require.True(t, ok)
	require.Len(t, node.Children, 1)
	assert.Empty(t, node.Children[0].Children)

	assert.NotNil(t, tree.Ancestors(a.ID))
	tree.Descendants(a.ID) // must return, not loop
}

func TestScopeOwn(t *testing.T) {
	f := newFixture()
	ms := []models.TenantUser{membership(f.acme.ID, models.ScopeOwn)}

	assert.True(t, f.tree.CanAccess(ms, f.acme.ID))
	assert.False(t, f.tree.CanAccess(ms, f.acmeEast.ID))
	assert.False(t, f.tree.CanAccess(ms, f.platform.ID))
}

func TestScopeChildrenExcludesSelfAndGrandchildren(t *testing.T) {
	// A membership with "children" scope covers direct children only,
	// not the tenant itself and not deeper descendants.
	platform := models.Tenant{ID: uuid.New(), Tier: models.TierPlatform, CanHaveChildren: true}
	mid := models.Tenant{ID: uuid.New(), Tier: models.TierPrimaryClient, ParentTenantID: &platform.ID, CanHaveChildren: true}
	leaf := models.Tenant{ID: uuid.New(), Tier: models.TierSubClient, ParentTenantID: &mid.ID}
	tree := NewTree([]models.Tenant{platform, mid, leaf})

	ms := []models.TenantUser{membership(platform.ID, models.ScopeChildren)}

	assert.True(t, tree.CanAccess(ms, mid.ID))
	assert.False(t, tree.CanAccess(ms, platform.ID))
	assert.False(t, tree.CanAccess(ms, leaf.ID))
}

func TestScopeDescendantsIncludesSelf(t *testing.T) {
	f := newFixture()
	ms := []models.TenantUser{membership(f.acme.ID, models.ScopeDescendants)}

	assert.True(t, f.tree.CanAccess(ms, f.acme.ID))
	assert.True(t, f.tree.CanAccess(ms, f.acmeEast.ID))
	assert.True(t, f.tree.CanAccess(ms, f.acmeWest.ID))
	assert.False(t, f.tree.CanAccess(ms, f.platform.ID))
	assert.False(t, f.tree.CanAccess(ms, f.globex.ID))
}

func TestScopeAncestors(t *testing.T) {
	f := newFixture()
	ms := []models.TenantUser{membership(f.acmeEast.ID, models.ScopeAncestors)}

	assert.True(t, f.tree.CanAccess(ms, f.acmeEast.ID))
	assert.True(t, f.tree.CanAccess(ms, f.acme.ID))
	assert.True(t, f.tree.CanAccess(ms, f.platform.ID))
	assert.False(t, f.tree.CanAccess(ms, f.acmeWest.ID))
}

func TestScopeSiblings(t *testing.T) {
	f := newFixture()
	ms := []models.TenantUser{membership(f.acmeEast.ID, models.ScopeSiblings)}

	assert.True(t, f.tree.CanAccess(ms, f.acmeEast.ID))
	assert.True(t, f.tree.CanAccess(ms, f.acmeWest.ID))
	assert.False(t, f.tree.CanAccess(ms, f.acme.ID))
	assert.False(t, f.tree.CanAccess(ms, f.globex.ID))
}

func TestCanAccessUnionAcrossMemberships(t *testing.T) {
	f := newFixture()
	ms := []models.TenantUser{
		membership(f.acmeEast.ID, models.ScopeOwn),
		membership(f.globex.ID, models.ScopeOwn),
	}

	assert.True(t, f.tree.CanAccess(ms, f.acmeEast.ID))
	assert.True(t, f.tree.CanAccess(ms, f.globex.ID))
	assert.False(t, f.tree.CanAccess(ms, f.acme.ID))
}

func TestCanAccessIgnoresInactiveMemberships(t *testing.T) {
	f := newFixture()
	m := membership(f.acme.ID, models.ScopeDescendants)
	m.IsActive = false

	assert.False(t, f.tree.CanAccess([]models.TenantUser{m}, f.acme.ID))
}

func TestCanAddChildTierThreeNever(t *testing.T) {
	sub := models.Tenant{Tier: models.TierSubClient, CanHaveChildren: true, MaxChildTenants: 0}
	assert.False(t, sub.CanAddChild())
}

func TestCanAddChildUnlimitedWhenZeroMax(t *testing.T) {
	tenant := models.Tenant{Tier: models.TierPrimaryClient, CanHaveChildren: true, MaxChildTenants: 0, CurrentChildCount: 9999}
	assert.True(t, tenant.CanAddChild())

	tenant.CanHaveChildren = false
	assert.False(t, tenant.CanAddChild())
}

func TestCanAddChildQuota(t *testing.T) {
	tenant := models.Tenant{Tier: models.TierPrimaryClient, CanHaveChildren: true, MaxChildTenants: 2, CurrentChildCount: 1}
	assert.True(t, tenant.CanAddChild())

	tenant.CurrentChildCount = 2
	assert.False(t, tenant.CanAddChild())
}
