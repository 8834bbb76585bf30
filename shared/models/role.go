package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// System tenant role keys. These are seeded at install time and cannot be
// deleted through the role-management API.
const (
	RoleHostAdmin          = "host_admin"
	RolePrimaryClientAdmin = "primary_client_admin"
	RoleClientAdmin        = "client_admin"
	RoleProgramManager     = "program_manager"
	RoleClientUser         = "client_user"
)

// RoleDefinition is a named permission bundle. A nil TenantID means a
// global/system role; a non-nil TenantID means a tenant-custom role whose
// role_key is unique within that tenant.
type RoleDefinition struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RoleKey      string         `json:"role_key" gorm:"type:varchar(100);not null;uniqueIndex:idx_role_key_tenant"`
	RoleName     string         `json:"role_name" gorm:"not null"`
	Description  string         `json:"description"`
	IsSystemRole bool           `json:"is_system_role" gorm:"default:false"`
	IsActive     bool           `json:"is_active" gorm:"default:true"`
	TenantID     *uuid.UUID     `json:"tenant_id" gorm:"type:uuid;uniqueIndex:idx_role_key_tenant"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Relationships
	Tenant      *Tenant                 `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
	Permissions []RoleFeaturePermission `json:"permissions,omitempty" gorm:"foreignKey:RoleKey;references:RoleKey"`
}

// TableName returns the table name for the RoleDefinition model
func (RoleDefinition) TableName() string {
	return "role_definitions"
}

// RoleFeaturePermission grants a bitset of CRUD+manage permissions for one
// role on one feature. "manage" subsumes the four CRUD bits at check time.
type RoleFeaturePermission struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RoleKey   string    `json:"role_key" gorm:"type:varchar(100);not null;uniqueIndex:idx_role_feature"`
	Feature   string    `json:"feature" gorm:"type:varchar(100);not null;uniqueIndex:idx_role_feature"`
	CanCreate bool      `json:"can_create" gorm:"default:false"`
	CanView   bool      `json:"can_view" gorm:"default:false"`
	CanUpdate bool      `json:"can_update" gorm:"default:false"`
	CanDelete bool      `json:"can_delete" gorm:"default:false"`
	CanManage bool      `json:"can_manage" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for the RoleFeaturePermission model
func (RoleFeaturePermission) TableName() string {
	return "role_feature_permissions"
}
