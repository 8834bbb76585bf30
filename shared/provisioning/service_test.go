package provisioning

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentbridge/talentbridge/shared/models"
)

type fakeInvitationStore struct {
	rows      map[uuid.UUID]*models.UserInvitation
	updateErr error
}

func newFakeInvitationStore() *fakeInvitationStore {
	return &fakeInvitationStore{rows: make(map[uuid.UUID]*models.UserInvitation)}
}

func (f *fakeInvitationStore) Create(_ context.Context, inv *models.UserInvitation) error {
	cp := *inv
	f.rows[inv.ID] = &cp
	return nil
}

func (f *fakeInvitationStore) GetByID(_ context.Context, id uuid.UUID) (*models.UserInvitation, error) {
	inv, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeInvitationStore) LatestPendingByEmail(_ context.Context, email string) (*models.UserInvitation, error) {
	var candidates []*models.UserInvitation
	for _, inv := range f.rows {
		if inv.Email == email && inv.IsPending() {
			candidates = append(candidates, inv)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	cp := *candidates[0]
	return &cp, nil
}

func (f *fakeInvitationStore) Update(_ context.Context, inv *models.UserInvitation) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	cp := *inv
	f.rows[inv.ID] = &cp
	return nil
}

type fakeMembershipStore struct {
	rows      map[string]*models.TenantUser // key user_id/tenant_id
	upsertErr error
}

func newFakeMembershipStore() *fakeMembershipStore {
	return &fakeMembershipStore{rows: make(map[string]*models.TenantUser)}
}

func (f *fakeMembershipStore) Upsert(_ context.Context, m *models.TenantUser) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	cp := *m
	f.rows[m.UserID+"/"+m.TenantID.String()] = &cp
	return nil
}

func (f *fakeMembershipStore) ListByUser(_ context.Context, userID string) ([]models.TenantUser, error) {
	var out []models.TenantUser
	for _, m := range f.rows {
		if m.UserID == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

type fakeProfileStore struct {
	rows      map[string]*models.Profile
	upsertErr error
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{rows: make(map[string]*models.Profile)}
}

func (f *fakeProfileStore) Upsert(_ context.Context, p *models.Profile) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	cp := *p
	f.rows[p.UserID] = &cp
	return nil
}

type fakeIdentity struct {
	existing      map[string]bool
	invitesSent   []string
	resetsSent    []string
	sendInviteErr error
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{existing: make(map[string]bool)}
}

func (f *fakeIdentity) UserExistsByEmail(_ context.Context, email string) (bool, error) {
	return f.existing[email], nil
}

func (f *fakeIdentity) SendInvitationEmail(_ context.Context, inv *models.UserInvitation) error {
	if f.sendInviteErr != nil {
		return f.sendInviteErr
	}
	f.invitesSent = append(f.invitesSent, inv.Email)
	return nil
}

func (f *fakeIdentity) SendPasswordResetEmail(_ context.Context, email string) error {
	f.resetsSent = append(f.resetsSent, email)
	return nil
}

type harness struct {
	svc         *Service
	invitations *fakeInvitationStore
	memberships *fakeMembershipStore
	profiles    *fakeProfileStore
	identity    *fakeIdentity
	tenantID    uuid.UUID
}

func newHarness() *harness {
	h := &harness{
		invitations: newFakeInvitationStore(),
		memberships: newFakeMembershipStore(),
		profiles:    newFakeProfileStore(),
		identity:    newFakeIdentity(),
		tenantID:    uuid.New(),
	}
	h.svc = NewService(h.invitations, h.memberships, h.profiles, h.identity)
	return h
}

func (h *harness) inviter() *models.AuthContext {
	return &models.AuthContext{
		UserID: "inviter-1",
		Email:  "inviter@example.com",
		Memberships: []models.TenantUser{{
			UserID:          "inviter-1",
			TenantID:        h.tenantID,
			Role:            models.RoleHostAdmin,
			IsActive:        true,
			CanInviteUsers:  true,
			PermissionScope: models.ScopeDescendants,
		}},
	}
}

func (h *harness) seedInvitation(email, role, roleLevel string) *models.UserInvitation {
	inv := &models.UserInvitation{
		ID:        uuid.New(),
		Email:     email,
		Role:      role,
		RoleLevel: roleLevel,
		TenantID:  h.tenantID,
		InvitedBy: "inviter-1",
		Status:    models.InvitationStatusPending,
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
	h.invitations.rows[inv.ID] = inv
	return inv
}

func TestCreateInvitation(t *testing.T) {
	h := newHarness()

	inv, err := h.svc.CreateInvitation(context.Background(), h.inviter(), CreateInvitationInput{
		Email:     "New.Hire@Example.com",
		Role:      "manager",
		RoleLevel: models.RoleLevelPrimaryClient,
	})
	require.NoError(t, err)

	assert.Equal(t, "new.hire@example.com", inv.Email)
	assert.Equal(t, h.tenantID, inv.TenantID, "should default to the inviter's first accessible tenant")
	assert.Equal(t, models.InvitationStatusPending, inv.Status)
	assert.Equal(t, []string{"new.hire@example.com"}, h.identity.invitesSent)
}

func TestCreateInvitationRequiresInvitePrivilege(t *testing.T) {
	h := newHarness()
	auth := h.inviter()
	auth.Memberships[0].CanInviteUsers = false

	_, err := h.svc.CreateInvitation(context.Background(), auth, CreateInvitationInput{
		Email:     "x@example.com",
		RoleLevel: models.RoleLevelSubClient,
	})
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestCreateInvitationRejectsBadInput(t *testing.T) {
	h := newHarness()

	_, err := h.svc.CreateInvitation(context.Background(), h.inviter(), CreateInvitationInput{
		Email:     "not-an-email",
		RoleLevel: models.RoleLevelSubClient,
	})
	assert.ErrorIs(t, err, ErrInvalidInvitation)

	_, err = h.svc.CreateInvitation(context.Background(), h.inviter(), CreateInvitationInput{
		Email:     "ok@example.com",
		RoleLevel: "galactic",
	})
	assert.ErrorIs(t, err, ErrInvalidInvitation)
}

func TestCreateInvitationSurvivesEmailFailure(t *testing.T) {
	h := newHarness()
	h.identity.sendInviteErr = errors.New("smtp down")

	inv, err := h.svc.CreateInvitation(context.Background(), h.inviter(), CreateInvitationInput{
		Email:     "x@example.com",
		RoleLevel: models.RoleLevelSubClient,
	})
	require.NoError(t, err, "email delivery is best-effort")
	assert.NotNil(t, h.invitations.rows[inv.ID])
}

func TestResendUsesPasswordResetForExistingAccount(t *testing.T) {
	h := newHarness()
	inv := h.seedInvitation("back@example.com", "user", models.RoleLevelSubClient)
	h.identity.existing["back@example.com"] = true

	res, err := h.svc.ResendInvitation(context.Background(), inv.ID)
	require.NoError(t, err)

	assert.Equal(t, models.ResendMethodPasswordReset, res.Method)
	assert.Equal(t, []string{"back@example.com"}, h.identity.resetsSent)
	assert.Empty(t, h.identity.invitesSent)
	assert.Equal(t, models.InvitationStatusResent, h.invitations.rows[inv.ID].Status)
}

func TestResendReinvitesNewAccount(t *testing.T) {
	h := newHarness()
	inv := h.seedInvitation("fresh@example.com", "user", models.RoleLevelSubClient)

	res, err := h.svc.ResendInvitation(context.Background(), inv.ID)
	require.NoError(t, err)

	assert.Equal(t, models.ResendMethodInvitation, res.Method)
	assert.Equal(t, []string{"fresh@example.com"}, h.identity.invitesSent)
	assert.Equal(t, models.InvitationStatusResent, h.invitations.rows[inv.ID].Status)
}

func TestResendUnknownInvitation(t *testing.T) {
	h := newHarness()

	_, err := h.svc.ResendInvitation(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrInvitationNotFound)
}

func TestAcceptMapsPrimaryClientManager(t *testing.T) {
	h := newHarness()
	h.seedInvitation("mgr@example.com", "manager", models.RoleLevelPrimaryClient)

	res, err := h.svc.Accept(context.Background(), "user-42", "mgr@example.com")
	require.NoError(t, err)

	assert.Equal(t, models.RoleProgramManager, res.Role)
	m := h.memberships.rows["user-42/"+h.tenantID.String()]
	require.NotNil(t, m)
	assert.Equal(t, models.RoleProgramManager, m.Role)
}

func TestAcceptMapsUnknownSubClientRoleToClientUser(t *testing.T) {
	h := newHarness()
	h.seedInvitation("who@example.com", "unknown_value", models.RoleLevelSubClient)

	res, err := h.svc.Accept(context.Background(), "user-7", "who@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleClientUser, res.Role)
}

func TestAcceptNoPendingInvitation(t *testing.T) {
	h := newHarness()

	_, err := h.svc.Accept(context.Background(), "user-1", "stranger@example.com")
	assert.ErrorIs(t, err, ErrNoPendingInvitation)
}

func TestAcceptIgnoresExpiredInvitation(t *testing.T) {
	h := newHarness()
	inv := h.seedInvitation("late@example.com", "user", models.RoleLevelSubClient)
	inv.ExpiresAt = time.Now().Add(-time.Hour)

	_, err := h.svc.Accept(context.Background(), "user-1", "late@example.com")
	assert.ErrorIs(t, err, ErrNoPendingInvitation)
}

func TestAcceptPicksMostRecentInvitation(t *testing.T) {
	h := newHarness()
	older := h.seedInvitation("twice@example.com", "user", models.RoleLevelSubClient)
	older.CreatedAt = time.Now().Add(-time.Hour)
	h.seedInvitation("twice@example.com", "admin", models.RoleLevelSubClient)

	res, err := h.svc.Accept(context.Background(), "user-1", "twice@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleClientAdmin, res.Role)
}

func TestAcceptIdempotent(t *testing.T) {
	h := newHarness()
	h.seedInvitation("again@example.com", "admin", models.RoleLevelPrimaryClient)

	first, err := h.svc.Accept(context.Background(), "user-9", "again@example.com")
	require.NoError(t, err)

	// retry after success must not duplicate the membership
	h.seedInvitation("again@example.com", "admin", models.RoleLevelPrimaryClient)
	second, err := h.svc.Accept(context.Background(), "user-9", "again@example.com")
	require.NoError(t, err)

	assert.Equal(t, first.TenantID, second.TenantID)
	assert.Len(t, h.memberships.rows, 1)
}

func TestAcceptMembershipFailureAborts(t *testing.T) {
	h := newHarness()
	inv := h.seedInvitation("crit@example.com", "user", models.RoleLevelSubClient)
	h.memberships.upsertErr = errors.New("db down")

	_, err := h.svc.Accept(context.Background(), "user-1", "crit@example.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoPendingInvitation)
	assert.Equal(t, models.InvitationStatusPending, h.invitations.rows[inv.ID].Status,
		"invitation must stay pending so the accept can be retried")
}

func TestAcceptProfileFailureNonFatal(t *testing.T) {
	h := newHarness()
	h.seedInvitation("soft@example.com", "user", models.RoleLevelSubClient)
	h.profiles.upsertErr = errors.New("profiles table busy")

	res, err := h.svc.Accept(context.Background(), "user-1", "soft@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleClientUser, res.Role)
	assert.Len(t, h.memberships.rows, 1)
}

func TestAcceptStatusStampFailureNonFatal(t *testing.T) {
	h := newHarness()
	h.seedInvitation("stamp@example.com", "user", models.RoleLevelSubClient)
	h.invitations.updateErr = errors.New("write failed")

	_, err := h.svc.Accept(context.Background(), "user-1", "stamp@example.com")
	require.NoError(t, err, "membership is committed; the status stamp is cosmetic")
	assert.Len(t, h.memberships.rows, 1)
}

func TestAcceptMarksInvitationAccepted(t *testing.T) {
	h := newHarness()
	inv := h.seedInvitation("done@example.com", "user", models.RoleLevelSubClient)

	_, err := h.svc.Accept(context.Background(), "user-1", "done@example.com")
	require.NoError(t, err)

	stored := h.invitations.rows[inv.ID]
	assert.Equal(t, models.InvitationStatusAccepted, stored.Status)
	require.NotNil(t, stored.AcceptedAt)
}
