package main

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge/shared/middleware"
	"github.com/talentbridge/talentbridge/shared/models"
	"github.com/talentbridge/talentbridge/shared/rbac"
	"github.com/talentbridge/talentbridge/shared/utils"
)

// handleGetRoles lists role definitions, optionally filtered by tenant
func handleGetRoles(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.Preload("Permissions")
		if tenantID := c.Query("tenant_id"); tenantID != "" {
			query = query.Where("tenant_id = ? OR tenant_id IS NULL", tenantID)
		}

		var roles []models.RoleDefinition
		if err := query.Find(&roles).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch roles")
			return
		}

		utils.OKResponse(c, "Roles retrieved successfully", roles)
	}
}

// CreateRoleRequest represents the create role payload
type CreateRoleRequest struct {
	RoleKey     string  `json:"role_key" binding:"required"`
	RoleName    string  `json:"role_name" binding:"required"`
	Description string  `json:"description"`
	TenantID    *string `json:"tenant_id"`
}

// handleCreateRole creates a custom role definition
func handleCreateRole(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateRoleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		role := models.RoleDefinition{
			ID:          uuid.New(),
			RoleKey:     req.RoleKey,
			RoleName:    req.RoleName,
			Description: req.Description,
			IsActive:    true,
		}

		if req.TenantID != nil {
			tenantID, err := uuid.Parse(*req.TenantID)
			if err != nil {
				utils.BadRequestResponse(c, "Invalid tenant ID")
				return
			}
			role.TenantID = &tenantID
		}

		var existing models.RoleDefinition
		if err := db.Where("role_key = ?", req.RoleKey).First(&existing).Error; err == nil {
			utils.BadRequestResponse(c, "Role key already exists")
			return
		}

		if err := db.Create(&role).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create role")
			return
		}

		utils.CreatedResponse(c, "Role created successfully", role)
	}
}

// UpdateRoleRequest represents the update role payload
type UpdateRoleRequest struct {
	RoleName    *string `json:"role_name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// handleUpdateRole updates a role's display attributes
func handleUpdateRole(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleKey := c.Param("key")

		var role models.RoleDefinition
		if err := db.Where("role_key = ?", roleKey).First(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.NotFoundResponse(c, "Role not found")
			} else {
				utils.InternalServerErrorResponse(c, "Failed to fetch role")
			}
			return
		}

		var req UpdateRoleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		if req.RoleName != nil {
			role.RoleName = *req.RoleName
		}
		if req.Description != nil {
			role.Description = *req.Description
		}
		if req.IsActive != nil {
			if role.IsSystemRole && !*req.IsActive {
				utils.BadRequestResponse(c, "System roles cannot be deactivated")
				return
			}
			role.IsActive = *req.IsActive
		}

		if err := db.Save(&role).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update role")
			return
		}

		utils.OKResponse(c, "Role updated successfully", role)
	}
}

// handleDeleteRole deletes a custom role. System roles are protected, and a
// role still assigned to members cannot be removed.
func handleDeleteRole(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleKey := c.Param("key")

		var role models.RoleDefinition
		if err := db.Where("role_key = ?", roleKey).First(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.NotFoundResponse(c, "Role not found")
			} else {
				utils.InternalServerErrorResponse(c, "Failed to fetch role")
			}
			return
		}

		if role.IsSystemRole {
			utils.BadRequestResponse(c, "System roles cannot be deleted")
			return
		}

		var assignedCount int64
		if err := db.Model(&models.TenantUser{}).Where("role = ?", roleKey).Count(&assignedCount).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to check role assignments")
			return
		}
		if assignedCount > 0 {
			utils.BadRequestResponse(c, "Cannot delete a role that is still assigned to members")
			return
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("role_key = ?", roleKey).Delete(&models.RoleFeaturePermission{}).Error; err != nil {
				return err
			}
			return tx.Delete(&role).Error
		})
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to delete role")
			return
		}

		utils.OKResponse(c, "Role deleted successfully", nil)
	}
}

// handleGetRolePermissions returns the role's permission rows
func handleGetRolePermissions(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleKey := c.Param("key")

		var role models.RoleDefinition
		if err := db.Where("role_key = ?", roleKey).First(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.NotFoundResponse(c, "Role not found")
			} else {
				utils.InternalServerErrorResponse(c, "Failed to fetch role")
			}
			return
		}

		var rows []models.RoleFeaturePermission
		if err := db.Where("role_key = ?", roleKey).Find(&rows).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch role permissions")
			return
		}

		utils.OKResponse(c, "Role permissions retrieved successfully", rows)
	}
}

// FeaturePermissionsInput grants a set of actions on one feature
type FeaturePermissionsInput struct {
	Feature string   `json:"feature" binding:"required"`
	Actions []string `json:"actions" binding:"required"`
}

// ReplaceRolePermissionsRequest replaces the role's entire permission set
type ReplaceRolePermissionsRequest struct {
	Permissions []FeaturePermissionsInput `json:"permissions" binding:"required"`
}

// handleReplaceRolePermissions atomically swaps the role's permission rows
// and echoes back what was persisted. Action names are canonicalized before
// writing, so "edit" and "update" or "read" and "view" land on the same bit.
func handleReplaceRolePermissions(db *gorm.DB, permissions *middleware.PermissionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleKey := c.Param("key")

		var role models.RoleDefinition
		if err := db.Where("role_key = ?", roleKey).First(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.NotFoundResponse(c, "Role not found")
			} else {
				utils.InternalServerErrorResponse(c, "Failed to fetch role")
			}
			return
		}

		var req ReplaceRolePermissionsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		rows := make([]models.RoleFeaturePermission, 0, len(req.Permissions))
		seen := make(map[rbac.Feature]bool)
		for _, entry := range req.Permissions {
			feature := rbac.Feature(entry.Feature)
			if !rbac.ValidFeature(feature) {
				utils.BadRequestResponse(c, fmt.Sprintf("Unknown feature %q", entry.Feature))
				return
			}
			if seen[feature] {
				utils.BadRequestResponse(c, fmt.Sprintf("Duplicate feature %q", entry.Feature))
				return
			}
			seen[feature] = true

			row := models.RoleFeaturePermission{
				ID:      uuid.New(),
				RoleKey: roleKey,
				Feature: string(feature),
			}
			for _, action := range entry.Actions {
				perm, ok := rbac.CanonicalPermission(action)
				if !ok {
					utils.BadRequestResponse(c, fmt.Sprintf("Unknown permission %q", action))
					return
				}
				switch perm {
				case rbac.PermissionCreate:
					row.CanCreate = true
				case rbac.PermissionView:
					row.CanView = true
				case rbac.PermissionUpdate:
					row.CanUpdate = true
				case rbac.PermissionDelete:
					row.CanDelete = true
				case rbac.PermissionManage:
					row.CanManage = true
				default:
					// approve/export/import are only ever granted through manage
					utils.BadRequestResponse(c, fmt.Sprintf("Permission %q can only be granted via manage", action))
					return
				}
			}
			rows = append(rows, row)
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("role_key = ?", roleKey).Delete(&models.RoleFeaturePermission{}).Error; err != nil {
				return err
			}
			if len(rows) == 0 {
				return nil
			}
			return tx.Create(&rows).Error
		})
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to replace role permissions")
			return
		}

		// Read back what actually persisted rather than echoing the request
		var persisted []models.RoleFeaturePermission
		if err := db.Where("role_key = ?", roleKey).Find(&persisted).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to read back role permissions")
			return
		}

		permissions.Invalidate()
		utils.OKResponse(c, "Role permissions replaced successfully", persisted)
	}
}
