package rbac

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/talentbridge/talentbridge/shared/models"
)

// Reason classifies why a guard check denied
type Reason string

const (
	ReasonAllowed         Reason = ""
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonLoading         Reason = "permissions_loading"
	ReasonWrongRole       Reason = "insufficient_role"
	ReasonWrongScope      Reason = "wrong_tenant_scope"
	ReasonNotFound        Reason = "not_found"
)

// Decision is the structured outcome of a guard check
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// StatusCode maps the decision to its wire-level HTTP status
func (d Decision) StatusCode() int {
	if d.Allowed {
		return http.StatusOK
	}
	switch d.Reason {
	case ReasonUnauthenticated:
		return http.StatusUnauthorized
	case ReasonNotFound:
		return http.StatusNotFound
	default:
		// Loading counts as forbidden: privileged content must never
		// render during the load window.
		return http.StatusForbidden
	}
}

// Concealed rewrites a scope denial as a plain not-found carrying the
// given message. Entity-by-id lookups run their denial through it so a
// record in a tenant the caller cannot see is externally indistinguishable
// from a record that does not exist.
func (d Decision) Concealed(message string) Decision {
	if d.Allowed {
		return d
	}
	switch d.Reason {
	case ReasonWrongScope, ReasonNotFound:
		return deny(ReasonNotFound, message)
	}
	return d
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason Reason, message string) Decision {
	return Decision{Allowed: false, Reason: reason, Message: message}
}

// Transition identifiers guarded by explicit role allow-lists
const (
	TransitionApproveWorkRequest = "approve_work_request"
	TransitionRejectWorkRequest  = "reject_work_request"
	TransitionResolveRoadblock   = "resolve_roadblock"
	TransitionPostHealthUpdate   = "post_health_update"
)

// transitionRoles is the narrow second check layered on top of the matrix:
// only these tenant roles may perform the named state transition.
var transitionRoles = map[string][]string{
	TransitionApproveWorkRequest: {models.RoleHostAdmin, models.RoleProgramManager},
	TransitionRejectWorkRequest:  {models.RoleHostAdmin, models.RoleProgramManager},
	TransitionResolveRoadblock:   {models.RoleHostAdmin, models.RoleProgramManager, models.RolePrimaryClientAdmin},
	TransitionPostHealthUpdate:   {models.RoleHostAdmin, models.RoleProgramManager, models.RolePrimaryClientAdmin},
}

// Guard performs request-time permission checks for one authenticated
// caller. A Guard built before its matrix and tree are loaded denies
// everything with ReasonLoading.
type Guard struct {
	auth   *models.AuthContext
	matrix *Matrix
	tree   *Tree
}

// NewGuard binds a guard to the caller's resolved AuthContext
func NewGuard(auth *models.AuthContext, matrix *Matrix, tree *Tree) *Guard {
	return &Guard{auth: auth, matrix: matrix, tree: tree}
}

// Check evaluates the general feature/permission check against every active
// membership the caller holds
func (g *Guard) Check(feature Feature, permission Permission) Decision {
	if !g.auth.IsAuthenticated() {
		return deny(ReasonUnauthenticated, "authentication required")
	}
	if g.matrix == nil {
		return deny(ReasonLoading, "permission data not loaded")
	}

	for i := range g.auth.Memberships {
		m := &g.auth.Memberships[i]
		if m.IsActive && g.matrix.HasPermission(m.Role, feature, permission) {
			return allow()
		}
	}
	return deny(ReasonWrongRole, "role does not grant "+string(permission)+" on "+string(feature))
}

// CheckTenant evaluates Check plus tenant-scope coverage of the target
// tenant. Both must pass.
func (g *Guard) CheckTenant(feature Feature, permission Permission, targetTenantID uuid.UUID) Decision {
	if d := g.Check(feature, permission); !d.Allowed {
		return d
	}
	if g.tree == nil {
		return deny(ReasonLoading, "tenant hierarchy not loaded")
	}
	if _, ok := g.tree.Get(targetTenantID); !ok {
		return deny(ReasonNotFound, "tenant not found")
	}
	if !g.tree.CanAccess(g.auth.Memberships, targetTenantID) {
		return deny(ReasonWrongScope, "tenant outside the caller's permission scope")
	}
	return allow()
}

// CheckTransition evaluates the transition allow-list for the caller's
// membership in the target tenant. host_admin memberships anywhere qualify;
// other roles must hold a covering membership in the tenant itself.
func (g *Guard) CheckTransition(transition string, targetTenantID uuid.UUID) Decision {
	if !g.auth.IsAuthenticated() {
		return deny(ReasonUnauthenticated, "authentication required")
	}

	allowed, ok := transitionRoles[transition]
	if !ok {
		return deny(ReasonWrongRole, "unknown transition "+transition)
	}

	for i := range g.auth.Memberships {
		m := &g.auth.Memberships[i]
		if !m.IsActive {
			continue
		}
		if !roleIn(m.Role, allowed) {
			continue
		}
		if m.Role == models.RoleHostAdmin || m.TenantID == targetTenantID {
			return allow()
		}
		if g.tree != nil && g.tree.scopeCovers(*m, targetTenantID) {
			return allow()
		}
	}
	return deny(ReasonWrongRole, "role not permitted to "+transition)
}

func roleIn(role string, roles []string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
