package models

import (
	"time"

	"github.com/google/uuid"
)

// Invitation statuses. Expiry is derived from expires_at, never stored as a
// status transition, and an accepted invitation never goes back to pending.
const (
	InvitationStatusPending  = "pending"
	InvitationStatusAccepted = "accepted"
	InvitationStatusResent   = "resent"
	InvitationStatusExpired  = "expired"
)

// Invitation role levels, selecting the tier of the target tenant
const (
	RoleLevelHost          = "host"
	RoleLevelPrimaryClient = "primary_client"
	RoleLevelSubClient     = "sub_client"
)

// Resend delivery methods reported back to the caller
const (
	ResendMethodInvitation    = "invitation"
	ResendMethodPasswordReset = "password_reset"
)

// UserInvitation is a pending grant of access to a tenant
type UserInvitation struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email      string     `json:"email" gorm:"type:varchar(255);not null;index"`
	Role       string     `json:"role" gorm:"type:varchar(100);not null"`
	RoleLevel  string     `json:"role_level" gorm:"type:varchar(50);not null"`
	TenantID   uuid.UUID  `json:"tenant_id" gorm:"type:uuid;not null;index"`
	InvitedBy  string     `json:"invited_by" gorm:"type:varchar(255);not null"`
	Message    string     `json:"message" gorm:"type:varchar(500)"`
	Status     string     `json:"status" gorm:"type:varchar(20);not null;default:'pending'"`
	ExpiresAt  time.Time  `json:"expires_at" gorm:"not null"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// Relationships
	Tenant *Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
}

// TableName returns the table name for the UserInvitation model
func (UserInvitation) TableName() string {
	return "user_invitations"
}

// IsExpired reports whether the invitation is past its expiry. This is a
// computed state; the stored status is not rewritten when it flips.
func (inv *UserInvitation) IsExpired() bool {
	return time.Now().After(inv.ExpiresAt)
}

// IsPending reports whether the invitation can still be accepted
func (inv *UserInvitation) IsPending() bool {
	return (inv.Status == InvitationStatusPending || inv.Status == InvitationStatusResent) && !inv.IsExpired()
}

// MarkAccepted stamps the invitation as accepted exactly once
func (inv *UserInvitation) MarkAccepted() {
	now := time.Now()
	inv.Status = InvitationStatusAccepted
	inv.AcceptedAt = &now
	inv.UpdatedAt = now
}
