package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant tier levels in the 3-tier hierarchy
const (
	TierPlatform      = 1 // platform host
	TierPrimaryClient = 2 // primary customer
	TierSubClient     = 3 // sub-client, cannot have children
)

// Tenant statuses
const (
	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
	TenantStatusInactive  = "inactive"
)

// Tenant represents an organizational unit in the 3-tier hierarchy
type Tenant struct {
	ID                uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name              string         `json:"name" gorm:"not null"`
	Tier              int            `json:"tier" gorm:"not null;default:3"`
	ParentTenantID    *uuid.UUID     `json:"parent_tenant_id" gorm:"type:uuid;index"`
	CanHaveChildren   bool           `json:"can_have_children" gorm:"default:false"`
	MaxChildTenants   int            `json:"max_child_tenants" gorm:"default:0"` // 0 = unlimited
	CurrentChildCount int            `json:"current_child_count" gorm:"default:0"`
	IsActive          bool           `json:"is_active" gorm:"default:true"`
	Status            string         `json:"status" gorm:"type:varchar(20);default:'active'"`
	TemplateID        *uuid.UUID     `json:"template_id" gorm:"type:uuid"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Relationships
	Parent   *Tenant      `json:"parent,omitempty" gorm:"foreignKey:ParentTenantID"`
	Children []Tenant     `json:"children,omitempty" gorm:"foreignKey:ParentTenantID"`
	Members  []TenantUser `json:"members,omitempty" gorm:"foreignKey:TenantID"`
}

// TableName returns the table name for the Tenant model
func (Tenant) TableName() string {
	return "tenants"
}

// IsRoot reports whether the tenant is a platform (tier 1) node
func (t *Tenant) IsRoot() bool {
	return t.Tier == TierPlatform
}

// CanAddChild reports whether another child tenant may be created under t.
// Tier 3 tenants never accept children; max_child_tenants of 0 means unlimited.
func (t *Tenant) CanAddChild() bool {
	if t.Tier == TierSubClient {
		return false
	}
	if !t.CanHaveChildren {
		return false
	}
	if t.MaxChildTenants == 0 {
		return true
	}
	return t.CurrentChildCount < t.MaxChildTenants
}

// TenantTemplate holds default settings cloned onto newly created tenants
type TenantTemplate struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name            string         `json:"name" gorm:"not null;uniqueIndex"`
	Tier            int            `json:"tier" gorm:"not null"`
	CanHaveChildren bool           `json:"can_have_children" gorm:"default:false"`
	MaxChildTenants int            `json:"max_child_tenants" gorm:"default:0"`
	Settings        string         `json:"settings" gorm:"type:jsonb;default:'{}'"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// TableName returns the table name for the TenantTemplate model
func (TenantTemplate) TableName() string {
	return "tenant_templates"
}

// NewTenantFromTemplate clones a template's defaults into a fresh tenant node
func NewTenantFromTemplate(name string, parentID *uuid.UUID, tmpl *TenantTemplate) Tenant {
	return Tenant{
		ID:              uuid.New(),
		Name:            name,
		Tier:            tmpl.Tier,
		ParentTenantID:  parentID,
		CanHaveChildren: tmpl.CanHaveChildren,
		MaxChildTenants: tmpl.MaxChildTenants,
		IsActive:        true,
		Status:          TenantStatusActive,
		TemplateID:      &tmpl.ID,
	}
}
