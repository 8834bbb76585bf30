package models

import (
	"time"

	"github.com/google/uuid"
)

// AuthContext is the resolved identity of the authenticated caller, threaded
// explicitly into handlers and the permission guard. It is never read from
// ambient/global state.
type AuthContext struct {
	UserID      string       `json:"user_id"`
	Email       string       `json:"email"`
	Memberships []TenantUser `json:"memberships"`
}

// IsAuthenticated reports whether the context carries a real identity
func (ac *AuthContext) IsAuthenticated() bool {
	return ac != nil && ac.UserID != ""
}

// MembershipFor returns the caller's membership in the given tenant, if any
func (ac *AuthContext) MembershipFor(tenantID uuid.UUID) (*TenantUser, bool) {
	for i := range ac.Memberships {
		if ac.Memberships[i].TenantID == tenantID && ac.Memberships[i].IsActive {
			return &ac.Memberships[i], true
		}
	}
	return nil, false
}

// PrimaryMembership returns the caller's first active membership. Invitation
// creation falls back to it when a platform-tier inviter names no tenant.
func (ac *AuthContext) PrimaryMembership() (*TenantUser, bool) {
	for i := range ac.Memberships {
		if ac.Memberships[i].IsActive {
			return &ac.Memberships[i], true
		}
	}
	return nil, false
}

// HasRole reports whether any active membership carries the given role
func (ac *AuthContext) HasRole(roleKey string) bool {
	for i := range ac.Memberships {
		if ac.Memberships[i].IsActive && ac.Memberships[i].Role == roleKey {
			return true
		}
	}
	return false
}

// CanInviteUsers reports whether any active membership carries the
// invitation flag
func (ac *AuthContext) CanInviteUsers() bool {
	for i := range ac.Memberships {
		if ac.Memberships[i].IsActive && ac.Memberships[i].CanInviteUsers {
			return true
		}
	}
	return false
}

// UserProfile is the session payload cached in Redis
type UserProfile struct {
	UserID      string       `json:"user_id"`
	Email       string       `json:"email"`
	Memberships []TenantUser `json:"memberships"`
}

// TokenSession represents a bearer-token session stored in Redis
type TokenSession struct {
	UserProfile UserProfile `json:"user_profile"`
	CreatedAt   time.Time   `json:"created_at"`
	LastUsedAt  time.Time   `json:"last_used_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
	SessionID   string      `json:"session_id"`
}

// IsExpired reports whether the session is past its expiry
func (ts *TokenSession) IsExpired() bool {
	return time.Now().After(ts.ExpiresAt)
}

// UpdateLastUsed stamps the session's last-used time
func (ts *TokenSession) UpdateLastUsed() {
	ts.LastUsedAt = time.Now()
}
