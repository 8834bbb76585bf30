package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Work request statuses
const (
	WorkRequestStatusPending  = "pending"
	WorkRequestStatusApproved = "approved"
	WorkRequestStatusRejected = "rejected"
)

var (
	// ErrAlreadyApproved is returned when approving a non-pending request
	ErrAlreadyApproved = errors.New("work request already approved")
	// ErrAlreadyRejected is returned when rejecting a non-pending request
	ErrAlreadyRejected = errors.New("work request already rejected")
	// ErrNotPending is returned when a transition requires pending status
	ErrNotPending = errors.New("work request is not pending")
)

// WorkRequest is a customer-submitted request for work, approved or rejected
// by platform-side roles
type WorkRequest struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TenantID        uuid.UUID      `json:"tenant_id" gorm:"type:uuid;not null;index"`
	Title           string         `json:"title" gorm:"not null"`
	Description     string         `json:"description"`
	Priority        string         `json:"priority" gorm:"type:varchar(20);default:'medium'"`
	Status          string         `json:"status" gorm:"type:varchar(20);not null;default:'pending'"`
	RequestedBy     string         `json:"requested_by" gorm:"type:varchar(255);not null"`
	ApprovedBy      *string        `json:"approved_by,omitempty" gorm:"type:varchar(255)"`
	ApprovedAt      *time.Time     `json:"approved_at,omitempty"`
	RejectionReason *string        `json:"rejection_reason,omitempty" gorm:"type:varchar(500)"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Relationships
	Tenant *Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
}

// TableName returns the table name for the WorkRequest model
func (WorkRequest) TableName() string {
	return "work_requests"
}

// Approve transitions a pending request to approved, stamping audit fields.
// A request that already left pending reports which terminal state it is in.
func (wr *WorkRequest) Approve(approvedBy string) error {
	switch wr.Status {
	case WorkRequestStatusApproved:
		return ErrAlreadyApproved
	case WorkRequestStatusRejected:
		return ErrAlreadyRejected
	case WorkRequestStatusPending:
	default:
		return ErrNotPending
	}

	now := time.Now()
	wr.Status = WorkRequestStatusApproved
	wr.ApprovedBy = &approvedBy
	wr.ApprovedAt = &now
	wr.UpdatedAt = now
	return nil
}

// Reject transitions a pending request to rejected with a reason
func (wr *WorkRequest) Reject(rejectedBy, reason string) error {
	switch wr.Status {
	case WorkRequestStatusApproved:
		return ErrAlreadyApproved
	case WorkRequestStatusRejected:
		return ErrAlreadyRejected
	case WorkRequestStatusPending:
	default:
		return ErrNotPending
	}

	now := time.Now()
	wr.Status = WorkRequestStatusRejected
	wr.ApprovedBy = &rejectedBy
	wr.RejectionReason = &reason
	wr.UpdatedAt = now
	return nil
}
