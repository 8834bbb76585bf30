package models

import (
	"time"

	"github.com/google/uuid"
)

// PermissionScope is the breadth of the tenant tree a membership's role can
// act across.
type PermissionScope string

const (
	ScopeOwn         PermissionScope = "own"
	ScopeChildren    PermissionScope = "children"
	ScopeDescendants PermissionScope = "descendants"
	ScopeAncestors   PermissionScope = "ancestors"
	ScopeSiblings    PermissionScope = "siblings"
)

// TenantUser binds a user to a tenant with exactly one role. The
// (user_id, tenant_id) pair is unique; provisioning upserts on that key so
// re-invitation never creates duplicates.
type TenantUser struct {
	ID                  uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID              string          `json:"user_id" gorm:"type:varchar(255);not null;uniqueIndex:idx_user_tenant"`
	TenantID            uuid.UUID       `json:"tenant_id" gorm:"type:uuid;not null;uniqueIndex:idx_user_tenant"`
	Role                string          `json:"role" gorm:"type:varchar(100);not null"`
	IsActive            bool            `json:"is_active" gorm:"default:true"`
	CanInviteUsers      bool            `json:"can_invite_users" gorm:"default:false"`
	CanManageSubClients bool            `json:"can_manage_sub_clients" gorm:"default:false"`
	PermissionScope     PermissionScope `json:"permission_scope" gorm:"type:varchar(20);default:'own'"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`

	// Relationships
	Tenant *Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
}

// TableName returns the table name for the TenantUser model
func (TenantUser) TableName() string {
	return "tenant_users"
}

// Profile holds directory-sourced user details mirrored locally. The row is
// recoverable, so provisioning treats its upsert as best-effort.
type Profile struct {
	UserID    string    `json:"user_id" gorm:"type:varchar(255);primaryKey"`
	Email     string    `json:"email" gorm:"type:varchar(255);not null;index"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at" gorm:"default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for the Profile model
func (Profile) TableName() string {
	return "profiles"
}
