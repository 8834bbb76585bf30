package main

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/talentbridge/talentbridge/shared/middleware"
	"github.com/talentbridge/talentbridge/shared/models"
	"github.com/talentbridge/talentbridge/shared/provisioning"
	"github.com/talentbridge/talentbridge/shared/rbac"
	"github.com/talentbridge/talentbridge/shared/utils"
)

// CreateTenantRequest represents the create tenant request
type CreateTenantRequest struct {
	Name            string  `json:"name" binding:"required"`
	ParentTenantID  string  `json:"parent_tenant_id" binding:"required"`
	TemplateID      *string `json:"template_id"`
	CanHaveChildren *bool   `json:"can_have_children"`
	MaxChildTenants *int    `json:"max_child_tenants"`
}

// UpdateTenantRequest represents the update tenant request
type UpdateTenantRequest struct {
	Name            *string `json:"name"`
	IsActive        *bool   `json:"is_active"`
	Status          *string `json:"status"`
	CanHaveChildren *bool   `json:"can_have_children"`
	MaxChildTenants *int    `json:"max_child_tenants"`
}

// handleGetFeatures returns the feature/permission catalog
func handleGetFeatures() gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.OKResponse(c, "Feature catalog retrieved", map[string]interface{}{
			"features": rbac.Features(),
			"permissions": []rbac.Permission{
				rbac.PermissionView, rbac.PermissionCreate, rbac.PermissionUpdate,
				rbac.PermissionDelete, rbac.PermissionManage, rbac.PermissionApprove,
				rbac.PermissionExport, rbac.PermissionImport,
			},
		})
	}
}

// handleCreateTenant creates a child tenant under an existing parent. The
// parent row is locked inside the transaction so the child-count cap holds
// under concurrent creates.
func handleCreateTenant(db *gorm.DB, permissions *middleware.PermissionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTenantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		parentID, err := uuid.Parse(req.ParentTenantID)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid parent tenant ID")
			return
		}

		// Creating a child is an operation on the parent node
		decision := permissions.GuardFor(c).CheckTenant(rbac.FeatureTenantManagement, rbac.PermissionCreate, parentID)
		if !decision.Allowed {
			utils.DeniedResponse(c, decision.StatusCode(), string(decision.Reason), decision.Message)
			return
		}

		var template *models.TenantTemplate
		if req.TemplateID != nil {
			templateID, err := uuid.Parse(*req.TemplateID)
			if err != nil {
				utils.BadRequestResponse(c, "Invalid template ID")
				return
			}
			var tmpl models.TenantTemplate
			if err := db.Where("id = ?", templateID).First(&tmpl).Error; err != nil {
				utils.NotFoundResponse(c, "Tenant template not found")
				return
			}
			template = &tmpl
		}

		var tenant models.Tenant
		err = db.Transaction(func(tx *gorm.DB) error {
			var parent models.Tenant
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ?", parentID).First(&parent).Error; err != nil {
				return err
			}

			if !parent.CanAddChild() {
				return errChildLimit
			}

			if template != nil {
				tenant = models.NewTenantFromTemplate(req.Name, &parentID, template)
			} else {
				tenant = models.Tenant{
					ID:             uuid.New(),
					Name:           req.Name,
					ParentTenantID: &parentID,
					IsActive:       true,
					Status:         models.TenantStatusActive,
				}
			}

			// Tier is always derived from the parent, never client-supplied
			tenant.Tier = parent.Tier + 1
			if tenant.Tier > models.TierSubClient {
				return errChildLimit
			}
			if req.CanHaveChildren != nil {
				tenant.CanHaveChildren = *req.CanHaveChildren
			}
			if tenant.Tier == models.TierSubClient {
				tenant.CanHaveChildren = false
			}
			if req.MaxChildTenants != nil {
				tenant.MaxChildTenants = *req.MaxChildTenants
			}

			if err := tx.Create(&tenant).Error; err != nil {
				return err
			}

			return tx.Model(&parent).
				Update("current_child_count", gorm.Expr("current_child_count + 1")).Error
		})

		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.NotFoundResponse(c, "Parent tenant not found")
			} else if errors.Is(err, errChildLimit) {
				utils.BadRequestResponse(c, "Parent tenant cannot accept more child tenants")
			} else {
				utils.InternalServerErrorResponse(c, "Failed to create tenant")
			}
			return
		}

		permissions.Invalidate()
		utils.CreatedResponse(c, "Tenant created successfully", tenant)
	}
}

var errChildLimit = errors.New("child tenant limit reached")

// handleGetTenants lists every tenant the caller's memberships can reach
func handleGetTenants(db *gorm.DB, permissions *middleware.PermissionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := middleware.GetAuthContext(c)
		_, tree := permissions.Snapshot()
		if tree == nil {
			utils.InternalServerErrorResponse(c, "Tenant hierarchy unavailable")
			return
		}

		var tenants []models.Tenant
		if err := db.Find(&tenants).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch tenants")
			return
		}

		accessible := make([]models.Tenant, 0, len(tenants))
		for _, tenant := range tenants {
			if tree.CanAccess(auth.Memberships, tenant.ID) {
				accessible = append(accessible, tenant)
			}
		}

		utils.OKResponse(c, "Tenants retrieved successfully", accessible)
	}
}

// handleGetTenant returns a single tenant with its children
func handleGetTenant(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Param("id")

		var tenant models.Tenant
		if err := db.Preload("Children").Where("id = ?", tenantID).First(&tenant).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.NotFoundResponse(c, "Tenant not found")
			} else {
				utils.InternalServerErrorResponse(c, "Failed to fetch tenant")
			}
			return
		}

		utils.OKResponse(c, "Tenant retrieved successfully", tenant)
	}
}

// handleGetHierarchy returns the subtree rooted at the tenant
func handleGetHierarchy(permissions *middleware.PermissionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid tenant ID")
			return
		}

		_, tree := permissions.Snapshot()
		if tree == nil {
			utils.InternalServerErrorResponse(c, "Tenant hierarchy unavailable")
			return
		}

		node, ok := tree.Hierarchy(tenantID)
		if !ok {
			utils.NotFoundResponse(c, "Tenant not found")
			return
		}

		utils.OKResponse(c, "Tenant hierarchy retrieved", node)
	}
}

// handleUpdateTenant updates mutable tenant attributes
func handleUpdateTenant(db *gorm.DB, permissions *middleware.PermissionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Param("id")

		var tenant models.Tenant
		if err := db.Where("id = ?", tenantID).First(&tenant).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.NotFoundResponse(c, "Tenant not found")
			} else {
				utils.InternalServerErrorResponse(c, "Failed to fetch tenant")
			}
			return
		}

		var req UpdateTenantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		if req.Name != nil {
			tenant.Name = *req.Name
		}
		if req.IsActive != nil {
			tenant.IsActive = *req.IsActive
		}
		if req.Status != nil {
			switch *req.Status {
			case models.TenantStatusActive, models.TenantStatusSuspended, models.TenantStatusInactive:
				tenant.Status = *req.Status
			default:
				utils.BadRequestResponse(c, "Invalid tenant status")
				return
			}
		}
		if req.CanHaveChildren != nil && tenant.Tier != models.TierSubClient {
			tenant.CanHaveChildren = *req.CanHaveChildren
		}
		if req.MaxChildTenants != nil {
			tenant.MaxChildTenants = *req.MaxChildTenants
		}

		if err := db.Save(&tenant).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update tenant")
			return
		}

		permissions.Invalidate()
		utils.OKResponse(c, "Tenant updated successfully", tenant)
	}
}

// handleDeleteTenant soft-deletes a tenant. Blocked while the tenant still
// has child tenants or active members.
func handleDeleteTenant(db *gorm.DB, permissions *middleware.PermissionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Param("id")

		var tenant models.Tenant
		if err := db.Where("id = ?", tenantID).First(&tenant).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.NotFoundResponse(c, "Tenant not found")
			} else {
				utils.InternalServerErrorResponse(c, "Failed to fetch tenant")
			}
			return
		}

		var childCount int64
		if err := db.Model(&models.Tenant{}).Where("parent_tenant_id = ?", tenant.ID).Count(&childCount).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to check child tenants")
			return
		}
		if childCount > 0 {
			utils.BadRequestResponse(c, "Cannot delete tenant with existing child tenants")
			return
		}

		var memberCount int64
		if err := db.Model(&models.TenantUser{}).Where("tenant_id = ? AND is_active = ?", tenant.ID, true).Count(&memberCount).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to check tenant members")
			return
		}
		if memberCount > 0 {
			utils.BadRequestResponse(c, "Cannot delete tenant with active members")
			return
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Delete(&tenant).Error; err != nil {
				return err
			}
			if tenant.ParentTenantID != nil {
				return tx.Model(&models.Tenant{}).
					Where("id = ? AND current_child_count > 0", *tenant.ParentTenantID).
					Update("current_child_count", gorm.Expr("current_child_count - 1")).Error
			}
			return nil
		})
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to delete tenant")
			return
		}

		permissions.Invalidate()
		utils.OKResponse(c, "Tenant deleted successfully", nil)
	}
}

// handleGetMembers lists the tenant's memberships
func handleGetMembers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Param("id")

		var members []models.TenantUser
		if err := db.Where("tenant_id = ?", tenantID).Find(&members).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch tenant members")
			return
		}

		utils.OKResponse(c, "Tenant members retrieved successfully", members)
	}
}

// UpdateMemberRequest represents the membership update payload
type UpdateMemberRequest struct {
	Role                *string `json:"role"`
	IsActive            *bool   `json:"is_active"`
	CanInviteUsers      *bool   `json:"can_invite_users"`
	CanManageSubClients *bool   `json:"can_manage_sub_clients"`
	PermissionScope     *string `json:"permission_scope"`
}

// handleUpdateMember updates a membership's role, flags or scope
func handleUpdateMember(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Param("id")
		userID := c.Param("user_id")

		var member models.TenantUser
		if err := db.Where("tenant_id = ? AND user_id = ?", tenantID, userID).First(&member).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.NotFoundResponse(c, "Membership not found")
			} else {
				utils.InternalServerErrorResponse(c, "Failed to fetch membership")
			}
			return
		}

		var req UpdateMemberRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		if req.Role != nil {
			var role models.RoleDefinition
			if err := db.Where("role_key = ? AND is_active = ?", *req.Role, true).First(&role).Error; err != nil {
				utils.BadRequestResponse(c, "Unknown role")
				return
			}
			member.Role = *req.Role
		}
		if req.IsActive != nil {
			member.IsActive = *req.IsActive
		}
		if req.CanInviteUsers != nil {
			member.CanInviteUsers = *req.CanInviteUsers
		}
		if req.CanManageSubClients != nil {
			member.CanManageSubClients = *req.CanManageSubClients
		}
		if req.PermissionScope != nil {
			switch scope := models.PermissionScope(*req.PermissionScope); scope {
			case models.ScopeOwn, models.ScopeChildren, models.ScopeDescendants,
				models.ScopeAncestors, models.ScopeSiblings:
				member.PermissionScope = scope
			default:
				utils.BadRequestResponse(c, "Invalid permission scope")
				return
			}
		}

		if err := db.Save(&member).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update membership")
			return
		}

		utils.OKResponse(c, "Membership updated successfully", member)
	}
}

// handleRemoveMember removes a user's membership in the tenant
func handleRemoveMember(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Param("id")
		userID := c.Param("user_id")

		result := db.Where("tenant_id = ? AND user_id = ?", tenantID, userID).Delete(&models.TenantUser{})
		if result.Error != nil {
			utils.InternalServerErrorResponse(c, "Failed to remove member")
			return
		}
		if result.RowsAffected == 0 {
			utils.NotFoundResponse(c, "Membership not found")
			return
		}

		utils.OKResponse(c, "Member removed from tenant", nil)
	}
}

// CreateInvitationRequest represents the invitation payload
type CreateInvitationRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Role      string `json:"role" binding:"required"`
	RoleLevel string `json:"role_level" binding:"required"`
	Message   string `json:"message"`
}

// handleCreateInvitation records a pending invitation for the tenant and
// triggers the invite email
func handleCreateInvitation(provisioner *provisioning.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid tenant ID")
			return
		}

		var req CreateInvitationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		auth := middleware.GetAuthContext(c)
		inv, err := provisioner.CreateInvitation(c.Request.Context(), auth, provisioning.CreateInvitationInput{
			Email:     req.Email,
			Role:      req.Role,
			RoleLevel: req.RoleLevel,
			TenantID:  &tenantID,
			Message:   req.Message,
		})
		if err != nil {
			switch {
			case errors.Is(err, provisioning.ErrNotAuthorized):
				utils.ForbiddenResponse(c, "Not permitted to invite users")
			case errors.Is(err, provisioning.ErrInvalidInvitation), errors.Is(err, provisioning.ErrTenantRequired):
				utils.BadRequestResponse(c, err.Error())
			default:
				utils.InternalServerErrorResponse(c, "Failed to create invitation")
			}
			return
		}

		utils.CreatedResponse(c, "Invitation created successfully", inv)
	}
}

// handleListInvitations lists invitations for tenants the caller can reach
func handleListInvitations(db *gorm.DB, permissions *middleware.PermissionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := middleware.GetAuthContext(c)
		_, tree := permissions.Snapshot()
		if tree == nil {
			utils.InternalServerErrorResponse(c, "Tenant hierarchy unavailable")
			return
		}

		query := db.Order("created_at DESC")
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}

		var invitations []models.UserInvitation
		if err := query.Find(&invitations).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch invitations")
			return
		}

		visible := make([]models.UserInvitation, 0, len(invitations))
		for _, inv := range invitations {
			if tree.CanAccess(auth.Memberships, inv.TenantID) {
				visible = append(visible, inv)
			}
		}

		utils.OKResponse(c, "Invitations retrieved successfully", visible)
	}
}

// handleResendInvitation re-sends an invitation. Existing accounts get a
// password reset email instead of a fresh invite.
func handleResendInvitation(provisioner *provisioning.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		invitationID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid invitation ID")
			return
		}

		result, err := provisioner.ResendInvitation(c.Request.Context(), invitationID)
		if err != nil {
			if errors.Is(err, provisioning.ErrInvitationNotFound) {
				utils.NotFoundResponse(c, "Invitation not found")
			} else {
				utils.InternalServerErrorResponse(c, "Failed to resend invitation")
			}
			return
		}

		utils.OKResponse(c, "Invitation resent successfully", result)
	}
}

// handleGetTemplates lists tenant templates
func handleGetTemplates(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var templates []models.TenantTemplate
		if err := db.Find(&templates).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch templates")
			return
		}

		utils.OKResponse(c, "Templates retrieved successfully", templates)
	}
}

// CreateTemplateRequest represents the template payload
type CreateTemplateRequest struct {
	Name            string `json:"name" binding:"required"`
	Tier            int    `json:"tier" binding:"required,min=2,max=3"`
	CanHaveChildren bool   `json:"can_have_children"`
	MaxChildTenants int    `json:"max_child_tenants"`
	Settings        string `json:"settings"`
}

// handleCreateTemplate creates a tenant template
func handleCreateTemplate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTemplateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		settings := req.Settings
		if settings == "" {
			settings = "{}"
		}

		template := models.TenantTemplate{
			ID:              uuid.New(),
			Name:            req.Name,
			Tier:            req.Tier,
			CanHaveChildren: req.CanHaveChildren && req.Tier != models.TierSubClient,
			MaxChildTenants: req.MaxChildTenants,
			Settings:        settings,
		}

		if err := db.Create(&template).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create template")
			return
		}

		utils.CreatedResponse(c, "Template created successfully", template)
	}
}
