// Package provisioning implements the invitation workflow that turns an
// email invitation into an authenticated user with a tenant membership and
// a resolved tenant role.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/talentbridge/talentbridge/shared/models"
	"github.com/talentbridge/talentbridge/shared/rbac"
)

var (
	// ErrNoPendingInvitation is returned by Accept when no pending
	// invitation exists for the email. Terminal and user-visible; accept
	// never silently succeeds with a default role.
	ErrNoPendingInvitation = errors.New("no pending invitation for this email")
	// ErrNotAuthorized is returned when the inviter lacks can_invite_users
	ErrNotAuthorized = errors.New("inviter is not permitted to invite users")
	// ErrInvitationNotFound is returned when resending an unknown invitation
	ErrInvitationNotFound = errors.New("invitation not found")
	// ErrTenantRequired is returned when no tenant could be resolved for
	// the invitation
	ErrTenantRequired = errors.New("a target tenant is required")
	// ErrInvalidInvitation is returned for malformed invitation input
	ErrInvalidInvitation = errors.New("invalid invitation")
)

// InvitationStore persists user_invitations rows
type InvitationStore interface {
	Create(ctx context.Context, inv *models.UserInvitation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.UserInvitation, error)
	// LatestPendingByEmail returns the most recent pending, unexpired
	// invitation for the email, or nil when none exists.
	LatestPendingByEmail(ctx context.Context, email string) (*models.UserInvitation, error)
	Update(ctx context.Context, inv *models.UserInvitation) error
}

// MembershipStore persists tenant_users rows. Upsert is keyed on
// (user_id, tenant_id) so repeated accepts never create duplicates.
type MembershipStore interface {
	Upsert(ctx context.Context, membership *models.TenantUser) error
	ListByUser(ctx context.Context, userID string) ([]models.TenantUser, error)
}

// ProfileStore persists mirrored directory profiles
type ProfileStore interface {
	Upsert(ctx context.Context, profile *models.Profile) error
}

// IdentityProvider is the hosted identity service consumed as an opaque
// collaborator: account lookup and email delivery only.
type IdentityProvider interface {
	UserExistsByEmail(ctx context.Context, email string) (bool, error)
	SendInvitationEmail(ctx context.Context, inv *models.UserInvitation) error
	SendPasswordResetEmail(ctx context.Context, email string) error
}

// Service orchestrates the invitation state machine
type Service struct {
	invitations InvitationStore
	memberships MembershipStore
	profiles    ProfileStore
	identity    IdentityProvider
	inviteTTL   time.Duration
}

// NewService wires a provisioning service over its stores and the identity
// provider
func NewService(invitations InvitationStore, memberships MembershipStore, profiles ProfileStore, identity IdentityProvider) *Service {
	return &Service{
		invitations: invitations,
		memberships: memberships,
		profiles:    profiles,
		identity:    identity,
		inviteTTL:   7 * 24 * time.Hour,
	}
}

// CreateInvitationInput is the caller-supplied invitation payload
type CreateInvitationInput struct {
	Email     string
	Role      string
	RoleLevel string
	TenantID  *uuid.UUID
	Message   string
}

// CreateInvitation validates and persists a pending invitation, then
// triggers the invite email. The inviter must hold can_invite_users on an
// active membership. When a platform-tier inviter names no tenant, the
// invitation defaults to the inviter's first accessible tenant.
func (s *Service) CreateInvitation(ctx context.Context, auth *models.AuthContext, in CreateInvitationInput) (*models.UserInvitation, error) {
	if !auth.IsAuthenticated() {
		return nil, ErrNotAuthorized
	}
	if !auth.CanInviteUsers() {
		return nil, ErrNotAuthorized
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email %q", ErrInvalidInvitation, in.Email)
	}
	switch in.RoleLevel {
	case models.RoleLevelHost, models.RoleLevelPrimaryClient, models.RoleLevelSubClient:
	default:
		return nil, fmt.Errorf("%w: role_level %q", ErrInvalidInvitation, in.RoleLevel)
	}

	tenantID := in.TenantID
	if tenantID == nil {
		primary, ok := auth.PrimaryMembership()
		if !ok {
			return nil, ErrTenantRequired
		}
		tenantID = &primary.TenantID
	}

	inv := &models.UserInvitation{
		ID:        uuid.New(),
		Email:     email,
		Role:      in.Role,
		RoleLevel: in.RoleLevel,
		TenantID:  *tenantID,
		InvitedBy: auth.UserID,
		Message:   in.Message,
		Status:    models.InvitationStatusPending,
		ExpiresAt: time.Now().Add(s.inviteTTL),
	}

	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	// Email delivery is best-effort; the pending row already exists and
	// the invite can be resent.
	if err := s.identity.SendInvitationEmail(ctx, inv); err != nil {
		logrus.WithFields(logrus.Fields{
			"invitation_id": inv.ID,
			"email":         inv.Email,
			"error":         err,
		}).Warn("Failed to send invitation email")
	}

	return inv, nil
}

// ResendResult reports which delivery method a resend used
type ResendResult struct {
	Invitation *models.UserInvitation `json:"invitation"`
	Method     string                 `json:"method"`
}

// ResendInvitation re-delivers an invitation. If the email already has an
// identity-provider account a fresh invite would be meaningless, so a
// password-reset email is sent instead. Either branch marks the same row
// resent; no second invitation row is created.
func (s *Service) ResendInvitation(ctx context.Context, id uuid.UUID) (*ResendResult, error) {
	inv, err := s.invitations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load invitation: %w", err)
	}
	if inv == nil {
		return nil, ErrInvitationNotFound
	}

	exists, err := s.identity.UserExistsByEmail(ctx, inv.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up identity account: %w", err)
	}

	method := models.ResendMethodInvitation
	if exists {
		method = models.ResendMethodPasswordReset
		err = s.identity.SendPasswordResetEmail(ctx, inv.Email)
	} else {
		err = s.identity.SendInvitationEmail(ctx, inv)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to deliver %s email: %w", method, err)
	}

	inv.Status = models.InvitationStatusResent
	inv.UpdatedAt = time.Now()
	if err := s.invitations.Update(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to update invitation: %w", err)
	}

	return &ResendResult{Invitation: inv, Method: method}, nil
}

// AcceptResult reports the provisioned membership
type AcceptResult struct {
	InvitationID uuid.UUID `json:"invitation_id"`
	TenantID     uuid.UUID `json:"tenant_id"`
	Role         string    `json:"role"`
}

// Accept provisions a newly authenticated user from their most recent
// pending invitation. The membership upsert is the critical path and aborts
// the transition on failure; the profile upsert and the invitation status
// stamp are best-effort and only logged. Safe to retry: the membership
// upsert is keyed on (user_id, tenant_id).
func (s *Service) Accept(ctx context.Context, userID, email string) (*AcceptResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	inv, err := s.invitations.LatestPendingByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up invitation: %w", err)
	}
	if inv == nil {
		return nil, ErrNoPendingInvitation
	}

	role := rbac.ResolveTenantRole(inv.RoleLevel, inv.Role)

	// Recoverable later if missing, so never fatal here.
	if err := s.profiles.Upsert(ctx, &models.Profile{UserID: userID, Email: email, UpdatedAt: time.Now()}); err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"email":   email,
			"error":   err,
		}).Warn("Profile upsert failed during invitation accept")
	}

	membership := &models.TenantUser{
		UserID:          userID,
		TenantID:        inv.TenantID,
		Role:            role,
		IsActive:        true,
		CanInviteUsers:  roleCanInvite(role),
		PermissionScope: defaultScope(role),
	}
	membership.CanManageSubClients = membership.CanInviteUsers && role != models.RoleClientAdmin

	if err := s.memberships.Upsert(ctx, membership); err != nil {
		return nil, fmt.Errorf("failed to provision tenant membership: %w", err)
	}

	inv.MarkAccepted()
	if err := s.invitations.Update(ctx, inv); err != nil {
		// The user is already provisioned; a stale pending label is a
		// cosmetic inconsistency, not a security issue.
		logrus.WithFields(logrus.Fields{
			"invitation_id": inv.ID,
			"user_id":       userID,
			"error":         err,
		}).Warn("Failed to mark invitation accepted")
	}

	return &AcceptResult{InvitationID: inv.ID, TenantID: inv.TenantID, Role: role}, nil
}

func roleCanInvite(role string) bool {
	switch role {
	case models.RoleHostAdmin, models.RolePrimaryClientAdmin, models.RoleClientAdmin:
		return true
	default:
		return false
	}
}

func defaultScope(role string) models.PermissionScope {
	switch role {
	case models.RoleHostAdmin, models.RolePrimaryClientAdmin, models.RoleProgramManager:
		return models.ScopeDescendants
	default:
		return models.ScopeOwn
	}
}
