package main

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/talentbridge/talentbridge/shared/middleware"
	"github.com/talentbridge/talentbridge/shared/models"
	"github.com/talentbridge/talentbridge/shared/rbac"
	"github.com/talentbridge/talentbridge/shared/utils"
)

// notify publishes a customer notification event. Delivery is best-effort:
// a full queue falls back to a direct row insert, and a failed insert is
// only logged. Mutations never fail on notification delivery.
func notify(db *gorm.DB, producer *KafkaProducer, event NotificationEvent) {
	if err := producer.PublishNotification(event); err == nil {
		return
	}

	row := models.CustomerProjectNotification{
		ID:       uuid.New(),
		TenantID: event.TenantID,
		EntityID: event.EntityID,
		Kind:     event.Kind,
		Title:    event.Title,
		Body:     event.Body,
	}
	if err := db.Create(&row).Error; err != nil {
		logrus.WithError(err).WithField("kind", event.Kind).Warn("Failed to persist notification")
	}
}

// CreateWorkRequestRequest represents the work request submission payload
type CreateWorkRequestRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
}

// handleCreateWorkRequest submits a work request for the tenant
func handleCreateWorkRequest(db *gorm.DB, producer *KafkaProducer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid tenant ID")
			return
		}

		var req CreateWorkRequestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		auth := middleware.GetAuthContext(c)
		workRequest := models.WorkRequest{
			ID:          uuid.New(),
			TenantID:    tenantID,
			Title:       req.Title,
			Description: req.Description,
			Status:      models.WorkRequestStatusPending,
			RequestedBy: auth.UserID,
		}
		if req.Priority != "" {
			workRequest.Priority = req.Priority
		}

		if err := db.Create(&workRequest).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create work request")
			return
		}

		notify(db, producer, NotificationEvent{
			EventID:   uuid.New(),
			TenantID:  tenantID,
			EntityID:  workRequest.ID,
			Kind:      "work_request_submitted",
			Title:     "Work request submitted",
			Body:      workRequest.Title,
			ActorID:   auth.UserID,
			Timestamp: time.Now(),
		})

		utils.CreatedResponse(c, "Work request created successfully", workRequest)
	}
}

// handleListWorkRequests lists the tenant's work requests, optionally
// filtered by status
func handleListWorkRequests(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Param("id")

		query := db.Where("tenant_id = ?", tenantID).Order("created_at DESC")
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}

		var requests []models.WorkRequest
		if err := query.Find(&requests).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch work requests")
			return
		}

		utils.OKResponse(c, "Work requests retrieved successfully", requests)
	}
}

// entityDenied writes the denial for an entity-by-id load. Scope denials
// come back as the same 404 body the absent-row path writes, so a caller
// cannot probe ids for records in tenants outside their reach.
func entityDenied(c *gin.Context, decision rbac.Decision, notFoundMessage string) {
	decision = decision.Concealed(notFoundMessage)
	if decision.Reason == rbac.ReasonNotFound {
		utils.NotFoundResponse(c, decision.Message)
		return
	}
	utils.DeniedResponse(c, decision.StatusCode(), string(decision.Reason), decision.Message)
}

// loadWorkRequest fetches a work request and runs a tenant-scoped guard
// check against the tenant it belongs to
func loadWorkRequest(c *gin.Context, db *gorm.DB, permissions *middleware.PermissionSource, permission rbac.Permission) (*models.WorkRequest, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid work request ID")
		return nil, false
	}

	var workRequest models.WorkRequest
	if err := db.Where("id = ?", id).First(&workRequest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFoundResponse(c, "Work request not found")
		} else {
			utils.InternalServerErrorResponse(c, "Failed to fetch work request")
		}
		return nil, false
	}

	decision := permissions.GuardFor(c).CheckTenant(rbac.FeatureWorkRequests, permission, workRequest.TenantID)
	if !decision.Allowed {
		entityDenied(c, decision, "Work request not found")
		return nil, false
	}

	return &workRequest, true
}

// handleGetWorkRequest returns a single work request
func handleGetWorkRequest(db *gorm.DB, permissions *middleware.PermissionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		workRequest, ok := loadWorkRequest(c, db, permissions, rbac.PermissionView)
		if !ok {
			return
		}
		utils.OKResponse(c, "Work request retrieved successfully", workRequest)
	}
}

// handleApproveWorkRequest approves a pending work request. The status flip
// is a conditional update keyed on the pending status, so two racing
// approvals cannot both win.
func handleApproveWorkRequest(db *gorm.DB, permissions *middleware.PermissionSource, producer *KafkaProducer) gin.HandlerFunc {
	return func(c *gin.Context) {
		workRequest, ok := loadWorkRequest(c, db, permissions, rbac.PermissionView)
		if !ok {
			return
		}

		decision := permissions.GuardFor(c).CheckTransition(rbac.TransitionApproveWorkRequest, workRequest.TenantID)
		if !decision.Allowed {
			utils.DeniedResponse(c, decision.StatusCode(), string(decision.Reason), decision.Message)
			return
		}

		auth := middleware.GetAuthContext(c)
		now := time.Now()
		result := db.Model(&models.WorkRequest{}).
			Where("id = ? AND status = ?", workRequest.ID, models.WorkRequestStatusPending).
			Updates(map[string]interface{}{
				"status":      models.WorkRequestStatusApproved,
				"approved_by": auth.UserID,
				"approved_at": now,
				"updated_at":  now,
			})
		if result.Error != nil {
			utils.InternalServerErrorResponse(c, "Failed to approve work request")
			return
		}
		if result.RowsAffected == 0 {
			// Someone else already moved it out of pending
			var current models.WorkRequest
			if err := db.Where("id = ?", workRequest.ID).First(&current).Error; err == nil {
				if err := current.Approve(auth.UserID); err != nil {
					utils.BadRequestResponse(c, err.Error())
					return
				}
			}
			utils.BadRequestResponse(c, models.ErrNotPending.Error())
			return
		}

		notify(db, producer, NotificationEvent{
			EventID:   uuid.New(),
			TenantID:  workRequest.TenantID,
			EntityID:  workRequest.ID,
			Kind:      "work_request_approved",
			Title:     "Work request approved",
			Body:      workRequest.Title,
			ActorID:   auth.UserID,
			Timestamp: now,
		})

		var updated models.WorkRequest
		if err := db.Where("id = ?", workRequest.ID).First(&updated).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch work request")
			return
		}
		utils.OKResponse(c, "Work request approved", updated)
	}
}

// RejectWorkRequestRequest carries the mandatory rejection reason
type RejectWorkRequestRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// handleRejectWorkRequest rejects a pending work request with a reason
func handleRejectWorkRequest(db *gorm.DB, permissions *middleware.PermissionSource, producer *KafkaProducer) gin.HandlerFunc {
	return func(c *gin.Context) {
		workRequest, ok := loadWorkRequest(c, db, permissions, rbac.PermissionView)
		if !ok {
			return
		}

		decision := permissions.GuardFor(c).CheckTransition(rbac.TransitionRejectWorkRequest, workRequest.TenantID)
		if !decision.Allowed {
			utils.DeniedResponse(c, decision.StatusCode(), string(decision.Reason), decision.Message)
			return
		}

		var req RejectWorkRequestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Rejection reason is required")
			return
		}

		auth := middleware.GetAuthContext(c)
		now := time.Now()
		result := db.Model(&models.WorkRequest{}).
			Where("id = ? AND status = ?", workRequest.ID, models.WorkRequestStatusPending).
			Updates(map[string]interface{}{
				"status":           models.WorkRequestStatusRejected,
				"approved_by":      auth.UserID,
				"rejection_reason": req.Reason,
				"updated_at":       now,
			})
		if result.Error != nil {
			utils.InternalServerErrorResponse(c, "Failed to reject work request")
			return
		}
		if result.RowsAffected == 0 {
			var current models.WorkRequest
			if err := db.Where("id = ?", workRequest.ID).First(&current).Error; err == nil {
				if err := current.Reject(auth.UserID, req.Reason); err != nil {
					utils.BadRequestResponse(c, err.Error())
					return
				}
			}
			utils.BadRequestResponse(c, models.ErrNotPending.Error())
			return
		}

		notify(db, producer, NotificationEvent{
			EventID:   uuid.New(),
			TenantID:  workRequest.TenantID,
			EntityID:  workRequest.ID,
			Kind:      "work_request_rejected",
			Title:     "Work request rejected",
			Body:      req.Reason,
			ActorID:   auth.UserID,
			Timestamp: now,
		})

		var updated models.WorkRequest
		if err := db.Where("id = ?", workRequest.ID).First(&updated).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch work request")
			return
		}
		utils.OKResponse(c, "Work request rejected", updated)
	}
}

// handleAttachmentUploadURL issues a presigned upload URL for a work request
// attachment
func handleAttachmentUploadURL(db *gorm.DB, permissions *middleware.PermissionSource, storage *utils.AttachmentStorage) gin.HandlerFunc {
	return func(c *gin.Context) {
		workRequest, ok := loadWorkRequest(c, db, permissions, rbac.PermissionView)
		if !ok {
			return
		}

		decision := permissions.GuardFor(c).CheckTenant(rbac.FeatureAttachments, rbac.PermissionCreate, workRequest.TenantID)
		if !decision.Allowed {
			utils.DeniedResponse(c, decision.StatusCode(), string(decision.Reason), decision.Message)
			return
		}

		filename := c.Query("filename")
		if filename == "" {
			utils.BadRequestResponse(c, "Filename is required")
			return
		}

		url, err := storage.SignedUploadURL(workRequest.TenantID, workRequest.ID, filename)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to sign upload URL")
			return
		}

		utils.OKResponse(c, "Upload URL issued", map[string]interface{}{
			"url":      url,
			"filename": filename,
		})
	}
}

// handleAttachmentDownloadURL issues a presigned download URL
func handleAttachmentDownloadURL(db *gorm.DB, permissions *middleware.PermissionSource, storage *utils.AttachmentStorage) gin.HandlerFunc {
	return func(c *gin.Context) {
		workRequest, ok := loadWorkRequest(c, db, permissions, rbac.PermissionView)
		if !ok {
			return
		}

		decision := permissions.GuardFor(c).CheckTenant(rbac.FeatureAttachments, rbac.PermissionView, workRequest.TenantID)
		if !decision.Allowed {
			utils.DeniedResponse(c, decision.StatusCode(), string(decision.Reason), decision.Message)
			return
		}

		filename := c.Query("filename")
		if filename == "" {
			utils.BadRequestResponse(c, "Filename is required")
			return
		}

		url, err := storage.SignedDownloadURL(workRequest.TenantID, workRequest.ID, filename)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to sign download URL")
			return
		}

		utils.OKResponse(c, "Download URL issued", map[string]interface{}{
			"url":      url,
			"filename": filename,
		})
	}
}

// handleListProjects lists the tenant's project charters
func handleListProjects(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Param("id")

		var projects []models.ProjectCharter
		if err := db.Preload("Roadblocks").Where("tenant_id = ?", tenantID).Order("created_at DESC").Find(&projects).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch projects")
			return
		}

		utils.OKResponse(c, "Projects retrieved successfully", projects)
	}
}

// CreateProjectRequest represents the project charter payload
type CreateProjectRequest struct {
	Name          string  `json:"name" binding:"required"`
	WorkRequestID *string `json:"work_request_id"`
}

// handleCreateProject creates a project charter, optionally linked to an
// approved work request
func handleCreateProject(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid tenant ID")
			return
		}

		var req CreateProjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		auth := middleware.GetAuthContext(c)
		project := models.ProjectCharter{
			ID:       uuid.New(),
			TenantID: tenantID,
			Name:     req.Name,
			Health:   models.ProjectHealthGreen,
			OwnerID:  auth.UserID,
		}

		if req.WorkRequestID != nil {
			workRequestID, err := uuid.Parse(*req.WorkRequestID)
			if err != nil {
				utils.BadRequestResponse(c, "Invalid work request ID")
				return
			}
			var workRequest models.WorkRequest
			if err := db.Where("id = ? AND tenant_id = ?", workRequestID, tenantID).First(&workRequest).Error; err != nil {
				utils.NotFoundResponse(c, "Work request not found in this tenant")
				return
			}
			if workRequest.Status != models.WorkRequestStatusApproved {
				utils.BadRequestResponse(c, "Projects can only be chartered from approved work requests")
				return
			}
			project.WorkRequestID = &workRequestID
		}

		if err := db.Create(&project).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create project")
			return
		}

		utils.CreatedResponse(c, "Project created successfully", project)
	}
}

// loadProject fetches a project charter and guards it against the caller
func loadProject(c *gin.Context, db *gorm.DB, permissions *middleware.PermissionSource, permission rbac.Permission) (*models.ProjectCharter, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid project ID")
		return nil, false
	}

	var project models.ProjectCharter
	if err := db.Where("id = ?", id).First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFoundResponse(c, "Project not found")
		} else {
			utils.InternalServerErrorResponse(c, "Failed to fetch project")
		}
		return nil, false
	}

	decision := permissions.GuardFor(c).CheckTenant(rbac.FeatureProjects, permission, project.TenantID)
	if !decision.Allowed {
		entityDenied(c, decision, "Project not found")
		return nil, false
	}

	return &project, true
}

// CreateRoadblockRequest represents the roadblock payload
type CreateRoadblockRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// handleCreateRoadblock raises a roadblock against a project
func handleCreateRoadblock(db *gorm.DB, permissions *middleware.PermissionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		project, ok := loadProject(c, db, permissions, rbac.PermissionUpdate)
		if !ok {
			return
		}

		var req CreateRoadblockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		auth := middleware.GetAuthContext(c)
		roadblock := models.ProjectRoadblock{
			ID:          uuid.New(),
			TenantID:    project.TenantID,
			ProjectID:   project.ID,
			Title:       req.Title,
			Description: req.Description,
			Status:      models.RoadblockStatusOpen,
			RaisedBy:    auth.UserID,
		}

		if err := db.Create(&roadblock).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create roadblock")
			return
		}

		utils.CreatedResponse(c, "Roadblock created successfully", roadblock)
	}
}

// ResolveRoadblockRequest carries the resolution note
type ResolveRoadblockRequest struct {
	Resolution string `json:"resolution" binding:"required"`
}

// handleResolveRoadblock resolves an open roadblock. Resolution is a guarded
// transition with the same conditional-update race protection as work
// request approval.
func handleResolveRoadblock(db *gorm.DB, permissions *middleware.PermissionSource, producer *KafkaProducer) gin.HandlerFunc {
	return func(c *gin.Context) {
		project, ok := loadProject(c, db, permissions, rbac.PermissionView)
		if !ok {
			return
		}

		roadblockID, err := uuid.Parse(c.Param("roadblock_id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid roadblock ID")
			return
		}

		decision := permissions.GuardFor(c).CheckTransition(rbac.TransitionResolveRoadblock, project.TenantID)
		if !decision.Allowed {
			utils.DeniedResponse(c, decision.StatusCode(), string(decision.Reason), decision.Message)
			return
		}

		var req ResolveRoadblockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Resolution is required")
			return
		}

		auth := middleware.GetAuthContext(c)
		now := time.Now()
		result := db.Model(&models.ProjectRoadblock{}).
			Where("id = ? AND project_id = ? AND status = ?", roadblockID, project.ID, models.RoadblockStatusOpen).
			Updates(map[string]interface{}{
				"status":      models.RoadblockStatusResolved,
				"resolved_by": auth.UserID,
				"resolved_at": now,
				"resolution":  req.Resolution,
				"updated_at":  now,
			})
		if result.Error != nil {
			utils.InternalServerErrorResponse(c, "Failed to resolve roadblock")
			return
		}
		if result.RowsAffected == 0 {
			var current models.ProjectRoadblock
			if err := db.Where("id = ? AND project_id = ?", roadblockID, project.ID).First(&current).Error; err != nil {
				utils.NotFoundResponse(c, "Roadblock not found")
				return
			}
			utils.BadRequestResponse(c, models.ErrRoadblockResolved.Error())
			return
		}

		notify(db, producer, NotificationEvent{
			EventID:   uuid.New(),
			TenantID:  project.TenantID,
			EntityID:  roadblockID,
			Kind:      "roadblock_resolved",
			Title:     "Roadblock resolved",
			Body:      req.Resolution,
			ActorID:   auth.UserID,
			Timestamp: now,
		})

		var updated models.ProjectRoadblock
		if err := db.Where("id = ?", roadblockID).First(&updated).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch roadblock")
			return
		}
		utils.OKResponse(c, "Roadblock resolved", updated)
	}
}

// HealthUpdateRequest represents a quick project health update
type HealthUpdateRequest struct {
	Health string `json:"health" binding:"required,oneof=green yellow red"`
	Note   string `json:"note"`
}

// handlePostHealthUpdate posts a health status on a project
func handlePostHealthUpdate(db *gorm.DB, permissions *middleware.PermissionSource, producer *KafkaProducer) gin.HandlerFunc {
	return func(c *gin.Context) {
		project, ok := loadProject(c, db, permissions, rbac.PermissionView)
		if !ok {
			return
		}

		decision := permissions.GuardFor(c).CheckTransition(rbac.TransitionPostHealthUpdate, project.TenantID)
		if !decision.Allowed {
			utils.DeniedResponse(c, decision.StatusCode(), string(decision.Reason), decision.Message)
			return
		}

		var req HealthUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Health must be green, yellow or red")
			return
		}

		project.SetHealth(req.Health, req.Note)
		if err := db.Save(project).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update project health")
			return
		}

		auth := middleware.GetAuthContext(c)
		notify(db, producer, NotificationEvent{
			EventID:   uuid.New(),
			TenantID:  project.TenantID,
			EntityID:  project.ID,
			Kind:      "project_health_updated",
			Title:     "Project health updated",
			Body:      req.Health,
			ActorID:   auth.UserID,
			Timestamp: time.Now(),
		})

		utils.OKResponse(c, "Project health updated", project)
	}
}

// handleListNotifications lists the tenant's customer notifications
func handleListNotifications(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Param("id")

		query := db.Where("tenant_id = ?", tenantID).Order("created_at DESC")
		if c.Query("unread") == "true" {
			query = query.Where("read_at IS NULL")
		}

		var notifications []models.CustomerProjectNotification
		if err := query.Find(&notifications).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch notifications")
			return
		}

		utils.OKResponse(c, "Notifications retrieved successfully", notifications)
	}
}

// handleMarkNotificationRead stamps a notification as read
func handleMarkNotificationRead(db *gorm.DB, permissions *middleware.PermissionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid notification ID")
			return
		}

		var notification models.CustomerProjectNotification
		if err := db.Where("id = ?", id).First(&notification).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.NotFoundResponse(c, "Notification not found")
			} else {
				utils.InternalServerErrorResponse(c, "Failed to fetch notification")
			}
			return
		}

		decision := permissions.GuardFor(c).CheckTenant(rbac.FeatureNotifications, rbac.PermissionUpdate, notification.TenantID)
		if !decision.Allowed {
			entityDenied(c, decision, "Notification not found")
			return
		}

		if notification.ReadAt == nil {
			now := time.Now()
			notification.ReadAt = &now
			if err := db.Save(&notification).Error; err != nil {
				utils.InternalServerErrorResponse(c, "Failed to mark notification read")
				return
			}
		}

		utils.OKResponse(c, "Notification marked read", notification)
	}
}
