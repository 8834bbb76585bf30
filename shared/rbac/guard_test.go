package rbac

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/talentbridge/talentbridge/shared/models"
)

func authCtx(role string, tenantID uuid.UUID, scope models.PermissionScope) *models.AuthContext {
	return &models.AuthContext{
		UserID: "user-1",
		Email:  "user@example.com",
		Memberships: []models.TenantUser{{
			UserID:          "user-1",
			TenantID:        tenantID,
			Role:            role,
			IsActive:        true,
			PermissionScope: scope,
		}},
	}
}

func TestGuardUnauthenticated(t *testing.T) {
	g := NewGuard(&models.AuthContext{}, DefaultMatrix(), nil)

	d := g.Check(FeatureWorkRequests, PermissionView)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonUnauthenticated, d.Reason)
	assert.Equal(t, http.StatusUnauthorized, d.StatusCode())

	d = NewGuard(nil, DefaultMatrix(), nil).Check(FeatureWorkRequests, PermissionView)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonUnauthenticated, d.Reason)
}

func TestGuardDeniesWhileLoading(t *testing.T) {
	tenantID := uuid.New()
	g := NewGuard(authCtx(models.RoleProgramManager, tenantID, models.ScopeOwn), nil, nil)

	d := g.Check(FeatureWorkRequests, PermissionView)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonLoading, d.Reason)
	assert.Equal(t, http.StatusForbidden, d.StatusCode())
}

func TestGuardAllowsGrantedPermission(t *testing.T) {
	tenantID := uuid.New()
	g := NewGuard(authCtx(models.RoleClientUser, tenantID, models.ScopeOwn), DefaultMatrix(), nil)

	assert.True(t, g.Check(FeatureWorkRequests, PermissionCreate).Allowed)

	d := g.Check(FeatureRoleManagement, PermissionView)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonWrongRole, d.Reason)
	assert.Equal(t, http.StatusForbidden, d.StatusCode())
}

func TestGuardCheckTenantScope(t *testing.T) {
	f := newFixture()
	auth := authCtx(models.RoleClientUser, f.acme.ID, models.ScopeOwn)
	g := NewGuard(auth, DefaultMatrix(), f.tree)

	assert.True(t, g.CheckTenant(FeatureWorkRequests, PermissionView, f.acme.ID).Allowed)

	d := g.CheckTenant(FeatureWorkRequests, PermissionView, f.globex.ID)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonWrongScope, d.Reason)
	assert.Equal(t, http.StatusForbidden, d.StatusCode())
}

func TestGuardCheckTenantUnknownTarget(t *testing.T) {
	f := newFixture()
	g := NewGuard(authCtx(models.RoleClientUser, f.acme.ID, models.ScopeOwn), DefaultMatrix(), f.tree)

	d := g.CheckTenant(FeatureWorkRequests, PermissionView, uuid.New())
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonNotFound, d.Reason)
	assert.Equal(t, http.StatusNotFound, d.StatusCode())
}

func TestConcealedScopeDenialMatchesAbsentEntity(t *testing.T) {
	f := newFixture()
	g := NewGuard(authCtx(models.RoleClientUser, f.acme.ID, models.ScopeOwn), DefaultMatrix(), f.tree)

	// A record living in a sibling tenant and a record that does not exist
	// must produce the same decision once concealed: 404, same message.
	outOfScope := g.CheckTenant(FeatureWorkRequests, PermissionView, f.globex.ID).Concealed("Work request not found")
	absent := g.CheckTenant(FeatureWorkRequests, PermissionView, uuid.New()).Concealed("Work request not found")

	assert.Equal(t, absent, outOfScope)
	assert.Equal(t, ReasonNotFound, outOfScope.Reason)
	assert.Equal(t, http.StatusNotFound, outOfScope.StatusCode())
	assert.Equal(t, "Work request not found", outOfScope.Message)
}

func TestConcealedLeavesOtherDecisionsAlone(t *testing.T) {
	f := newFixture()

	// Role denials and allows pass through untouched
	user := NewGuard(authCtx(models.RoleClientUser, f.acme.ID, models.ScopeOwn), DefaultMatrix(), f.tree)
	d := user.CheckTenant(FeatureRoleManagement, PermissionDelete, f.acme.ID)
	assert.Equal(t, d, d.Concealed("not found"))
	assert.Equal(t, ReasonWrongRole, d.Reason)

	ok := user.CheckTenant(FeatureWorkRequests, PermissionView, f.acme.ID)
	assert.True(t, ok.Concealed("not found").Allowed)
}

func TestGuardTransitionAllowList(t *testing.T) {
	f := newFixture()

	pm := NewGuard(authCtx(models.RoleProgramManager, f.acme.ID, models.ScopeOwn), DefaultMatrix(), f.tree)
	assert.True(t, pm.CheckTransition(TransitionApproveWorkRequest, f.acme.ID).Allowed)

	user := NewGuard(authCtx(models.RoleClientUser, f.acme.ID, models.ScopeOwn), DefaultMatrix(), f.tree)
	d := user.CheckTransition(TransitionApproveWorkRequest, f.acme.ID)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonWrongRole, d.Reason)
}

func TestGuardTransitionHostAdminAnyTenant(t *testing.T) {
	f := newFixture()
	g := NewGuard(authCtx(models.RoleHostAdmin, f.platform.ID, models.ScopeDescendants), DefaultMatrix(), f.tree)

	assert.True(t, g.CheckTransition(TransitionApproveWorkRequest, f.acmeEast.ID).Allowed)
	assert.True(t, g.CheckTransition(TransitionRejectWorkRequest, f.globex.ID).Allowed)
}

func TestGuardTransitionScopeBound(t *testing.T) {
	f := newFixture()

	// program_manager at acme with descendants scope reaches acme-east,
	// but never globex
	g := NewGuard(authCtx(models.RoleProgramManager, f.acme.ID, models.ScopeDescendants), DefaultMatrix(), f.tree)
	assert.True(t, g.CheckTransition(TransitionResolveRoadblock, f.acmeEast.ID).Allowed)
	assert.False(t, g.CheckTransition(TransitionResolveRoadblock, f.globex.ID).Allowed)
}

func TestGuardTransitionUnknown(t *testing.T) {
	f := newFixture()
	g := NewGuard(authCtx(models.RoleHostAdmin, f.platform.ID, models.ScopeDescendants), DefaultMatrix(), f.tree)

	assert.False(t, g.CheckTransition("launch_rocket", f.acme.ID).Allowed)
}
