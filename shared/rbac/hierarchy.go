package rbac

import (
	"github.com/google/uuid"

	"github.com/talentbridge/talentbridge/shared/models"
)

// TreeNode is a tenant with its children populated recursively, used for
// admin hierarchy visualization
type TreeNode struct {
	Tenant   models.Tenant `json:"tenant"`
	Children []*TreeNode   `json:"children"`
}

// Tree is an in-memory index over a set of tenant rows. Build it from the
// rows relevant to a request; all resolution methods are read-only.
type Tree struct {
	byID       map[uuid.UUID]models.Tenant
	childrenOf map[uuid.UUID][]uuid.UUID
}

// NewTree indexes the given tenants by id and parent
func NewTree(tenants []models.Tenant) *Tree {
	t := &Tree{
		byID:       make(map[uuid.UUID]models.Tenant, len(tenants)),
		childrenOf: make(map[uuid.UUID][]uuid.UUID),
	}
	for _, tenant := range tenants {
		t.byID[tenant.ID] = tenant
		if tenant.ParentTenantID != nil {
			t.childrenOf[*tenant.ParentTenantID] = append(t.childrenOf[*tenant.ParentTenantID], tenant.ID)
		}
	}
	return t
}

// Get returns the tenant with the given id
func (t *Tree) Get(id uuid.UUID) (models.Tenant, bool) {
	tenant, ok := t.byID[id]
	return tenant, ok
}

// Children returns the direct children of the given tenant
func (t *Tree) Children(id uuid.UUID) []models.Tenant {
	ids := t.childrenOf[id]
	out := make([]models.Tenant, 0, len(ids))
	for _, childID := range ids {
		out = append(out, t.byID[childID])
	}
	return out
}

// Ancestors returns the chain of ancestors from the tenant's parent up to
// the tier-1 root. The visited set guards against corrupted parent links.
func (t *Tree) Ancestors(id uuid.UUID) []models.Tenant {
	var out []models.Tenant
	visited := map[uuid.UUID]struct{}{id: {}}

	current, ok := t.byID[id]
	for ok && current.ParentTenantID != nil {
		parentID := *current.ParentTenantID
		if _, seen := visited[parentID]; seen {
			break
		}
		visited[parentID] = struct{}{}
		current, ok = t.byID[parentID]
		if ok {
			out = append(out, current)
		}
	}
	return out
}

// Descendants returns every tenant in the subtree rooted at id, excluding
// id itself. Iterative BFS with a visited set so corrupted data cannot loop.
func (t *Tree) Descendants(id uuid.UUID) []models.Tenant {
	var out []models.Tenant
	visited := map[uuid.UUID]struct{}{id: {}}
	queue := append([]uuid.UUID(nil), t.childrenOf[id]...)

	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if _, seen := visited[next]; seen {
			continue
		}
		visited[next] = struct{}{}
		out = append(out, t.byID[next])
		queue = append(queue, t.childrenOf[next]...)
	}
	return out
}

// Hierarchy builds the recursive node structure rooted at rootID
func (t *Tree) Hierarchy(rootID uuid.UUID) (*TreeNode, bool) {
	root, ok := t.byID[rootID]
	if !ok {
		return nil, false
	}
	visited := make(map[uuid.UUID]struct{})
	return t.buildNode(root, visited), true
}

func (t *Tree) buildNode(tenant models.Tenant, visited map[uuid.UUID]struct{}) *TreeNode {
	visited[tenant.ID] = struct{}{}
	node := &TreeNode{Tenant: tenant, Children: []*TreeNode{}}
	for _, childID := range t.childrenOf[tenant.ID] {
		if _, seen := visited[childID]; seen {
			continue
		}
		node.Children = append(node.Children, t.buildNode(t.byID[childID], visited))
	}
	return node
}

// CanAccess reports whether any of the user's memberships has a permission
// scope covering the target tenant. Union semantics: one covering membership
// is enough.
func (t *Tree) CanAccess(memberships []models.TenantUser, targetID uuid.UUID) bool {
	for i := range memberships {
		if !memberships[i].IsActive {
			continue
		}
		if t.scopeCovers(memberships[i], targetID) {
			return true
		}
	}
	return false
}

func (t *Tree) scopeCovers(membership models.TenantUser, targetID uuid.UUID) bool {
	home := membership.TenantID

	switch membership.PermissionScope {
	case models.ScopeOwn:
		return targetID == home

	case models.ScopeChildren:
		for _, childID := range t.childrenOf[home] {
			if childID == targetID {
				return true
			}
		}
		return false

	case models.ScopeDescendants:
		if targetID == home {
			return true
		}
		for _, d := range t.Descendants(home) {
			if d.ID == targetID {
				return true
			}
		}
		return false

	case models.ScopeAncestors:
		if targetID == home {
			return true
		}
		for _, a := range t.Ancestors(home) {
			if a.ID == targetID {
				return true
			}
		}
		return false

	case models.ScopeSiblings:
		if targetID == home {
			return true
		}
		self, ok := t.byID[home]
		if !ok || self.ParentTenantID == nil {
			return false
		}
		target, ok := t.byID[targetID]
		if !ok || target.ParentTenantID == nil {
			return false
		}
		return *self.ParentTenantID == *target.ParentTenantID

	default:
		return false
	}
}
