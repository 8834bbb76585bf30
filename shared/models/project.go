package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project health values posted by quick status updates
const (
	ProjectHealthGreen  = "green"
	ProjectHealthYellow = "yellow"
	ProjectHealthRed    = "red"
)

// Roadblock statuses
const (
	RoadblockStatusOpen     = "open"
	RoadblockStatusResolved = "resolved"
)

// ErrRoadblockResolved is returned when resolving an already-resolved roadblock
var ErrRoadblockResolved = errors.New("roadblock already resolved")

// ProjectCharter is the tenant-scoped master record for a project
type ProjectCharter struct {
	ID            uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID      uuid.UUID      `json:"tenant_id" gorm:"type:uuid;not null;index"`
	WorkRequestID *uuid.UUID     `json:"work_request_id" gorm:"type:uuid;index"`
	Name          string         `json:"name" gorm:"not null"`
	Health        string         `json:"health" gorm:"type:varchar(10);default:'green'"`
	HealthNote    string         `json:"health_note" gorm:"type:varchar(500)"`
	OwnerID       string         `json:"owner_id" gorm:"type:varchar(255)"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Relationships
	Tenant     *Tenant            `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
	Roadblocks []ProjectRoadblock `json:"roadblocks,omitempty" gorm:"foreignKey:ProjectID"`
}

// TableName returns the table name for the ProjectCharter model
func (ProjectCharter) TableName() string {
	return "project_charters"
}

// SetHealth records a quick health update on the charter
func (pc *ProjectCharter) SetHealth(health, note string) {
	pc.Health = health
	pc.HealthNote = note
	pc.UpdatedAt = time.Now()
}

// ProjectRoadblock is a blocker raised against a project
type ProjectRoadblock struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID    uuid.UUID      `json:"tenant_id" gorm:"type:uuid;not null;index"`
	ProjectID   uuid.UUID      `json:"project_id" gorm:"type:uuid;not null;index"`
	Title       string         `json:"title" gorm:"not null"`
	Description string         `json:"description"`
	Status      string         `json:"status" gorm:"type:varchar(20);not null;default:'open'"`
	RaisedBy    string         `json:"raised_by" gorm:"type:varchar(255);not null"`
	ResolvedBy  *string        `json:"resolved_by,omitempty" gorm:"type:varchar(255)"`
	ResolvedAt  *time.Time     `json:"resolved_at,omitempty"`
	Resolution  *string        `json:"resolution,omitempty" gorm:"type:varchar(500)"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Relationships
	Project *ProjectCharter `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
}

// TableName returns the table name for the ProjectRoadblock model
func (ProjectRoadblock) TableName() string {
	return "project_roadblocks"
}

// Resolve transitions an open roadblock to resolved with audit fields
func (rb *ProjectRoadblock) Resolve(resolvedBy, resolution string) error {
	if rb.Status == RoadblockStatusResolved {
		return ErrRoadblockResolved
	}

	now := time.Now()
	rb.Status = RoadblockStatusResolved
	rb.ResolvedBy = &resolvedBy
	rb.ResolvedAt = &now
	rb.Resolution = &resolution
	rb.UpdatedAt = now
	return nil
}

// CustomerProjectNotification is a customer-visible notification emitted as
// a best-effort side effect of tenant-scoped mutations
type CustomerProjectNotification struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID  uuid.UUID  `json:"tenant_id" gorm:"type:uuid;not null;index"`
	EntityID  uuid.UUID  `json:"entity_id" gorm:"type:uuid;not null;index"`
	Kind      string     `json:"kind" gorm:"type:varchar(50);not null"`
	Title     string     `json:"title" gorm:"not null"`
	Body      string     `json:"body" gorm:"type:varchar(1000)"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName returns the table name for the CustomerProjectNotification model
func (CustomerProjectNotification) TableName() string {
	return "customer_project_notifications"
}
