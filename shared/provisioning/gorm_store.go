package provisioning

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/talentbridge/talentbridge/shared/models"
)

// GormInvitationStore is the postgres-backed InvitationStore
type GormInvitationStore struct {
	db *gorm.DB
}

// NewGormInvitationStore wraps a gorm connection
func NewGormInvitationStore(db *gorm.DB) *GormInvitationStore {
	return &GormInvitationStore{db: db}
}

// Create inserts a pending invitation row
func (s *GormInvitationStore) Create(ctx context.Context, inv *models.UserInvitation) error {
	return s.db.WithContext(ctx).Create(inv).Error
}

// GetByID loads one invitation, nil when absent
func (s *GormInvitationStore) GetByID(ctx context.Context, id uuid.UUID) (*models.UserInvitation, error) {
	var inv models.UserInvitation
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// LatestPendingByEmail returns the most recent acceptable invitation for the
// email. Resent invitations still count as pending; expired ones never do.
func (s *GormInvitationStore) LatestPendingByEmail(ctx context.Context, email string) (*models.UserInvitation, error) {
	var inv models.UserInvitation
	err := s.db.WithContext(ctx).
		Where("email = ? AND status IN ? AND expires_at > ?",
			email,
			[]string{models.InvitationStatusPending, models.InvitationStatusResent},
			time.Now()).
		Order("created_at DESC").
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Update saves invitation mutations
func (s *GormInvitationStore) Update(ctx context.Context, inv *models.UserInvitation) error {
	return s.db.WithContext(ctx).Save(inv).Error
}

// GormMembershipStore is the postgres-backed MembershipStore
type GormMembershipStore struct {
	db *gorm.DB
}

// NewGormMembershipStore wraps a gorm connection
func NewGormMembershipStore(db *gorm.DB) *GormMembershipStore {
	return &GormMembershipStore{db: db}
}

// Upsert inserts or updates the membership keyed on (user_id, tenant_id)
func (s *GormMembershipStore) Upsert(ctx context.Context, membership *models.TenantUser) error {
	if membership.ID == uuid.Nil {
		membership.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"role", "is_active", "can_invite_users", "can_manage_sub_clients",
			"permission_scope", "updated_at",
		}),
	}).Create(membership).Error
}

// ListByUser returns all active memberships for a user
func (s *GormMembershipStore) ListByUser(ctx context.Context, userID string) ([]models.TenantUser, error) {
	var memberships []models.TenantUser
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&memberships).Error
	return memberships, err
}

// GormProfileStore is the postgres-backed ProfileStore
type GormProfileStore struct {
	db *gorm.DB
}

// NewGormProfileStore wraps a gorm connection
func NewGormProfileStore(db *gorm.DB) *GormProfileStore {
	return &GormProfileStore{db: db}
}

// Upsert inserts or refreshes the profile row keyed on user_id
func (s *GormProfileStore) Upsert(ctx context.Context, profile *models.Profile) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "updated_at"}),
	}).Create(profile).Error
}
