package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/talentbridge/talentbridge/shared/config"
	"github.com/talentbridge/talentbridge/shared/identity"
	"github.com/talentbridge/talentbridge/shared/middleware"
	"github.com/talentbridge/talentbridge/shared/provisioning"
	"github.com/talentbridge/talentbridge/shared/rbac"
	"github.com/talentbridge/talentbridge/shared/utils"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}

	// Initialize Redis for session management
	if err := utils.InitRedis(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer utils.CloseRedis()

	// Initialize database
	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize identity provider for invitation emails
	cognito, err := identity.NewCognitoProvider(
		os.Getenv("AWS_REGION"),
		os.Getenv("COGNITO_USER_POOL_ID"),
		os.Getenv("COGNITO_CLIENT_ID"),
	)
	if err != nil {
		log.Fatal("Failed to initialize identity provider:", err)
	}

	provisioner := provisioning.NewService(
		provisioning.NewGormInvitationStore(db),
		provisioning.NewGormMembershipStore(db),
		provisioning.NewGormProfileStore(db),
		cognito,
	)

	authMiddleware := middleware.NewAuthMiddleware(
		db,
		os.Getenv("AWS_REGION"),
		os.Getenv("COGNITO_USER_POOL_ID"),
	)

	// Permission matrix + tenant tree snapshot shared by all guard checks
	permissions := middleware.NewPermissionSource(db, time.Minute)

	// Initialize Gin router
	router := gin.Default()

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Tenant service is healthy", nil)
	})

	// Feature/permission catalog (read-only reference data)
	router.GET("/features", handleGetFeatures())

	// Tenant management routes
	tenants := router.Group("/tenants")
	tenants.Use(authMiddleware.RequireAuth())
	{
		tenants.POST("/", handleCreateTenant(db, permissions))
		tenants.GET("/", handleGetTenants(db, permissions))
		tenants.GET("/:id",
			middleware.RequireTenantPermission(permissions, rbac.FeatureTenantManagement, rbac.PermissionView, "id"),
			handleGetTenant(db))
		tenants.GET("/:id/hierarchy",
			middleware.RequireTenantPermission(permissions, rbac.FeatureTenantManagement, rbac.PermissionView, "id"),
			handleGetHierarchy(permissions))
		tenants.PUT("/:id",
			middleware.RequireTenantPermission(permissions, rbac.FeatureTenantManagement, rbac.PermissionUpdate, "id"),
			handleUpdateTenant(db, permissions))
		tenants.DELETE("/:id",
			middleware.RequireTenantPermission(permissions, rbac.FeatureTenantManagement, rbac.PermissionDelete, "id"),
			handleDeleteTenant(db, permissions))

		// Membership management
		tenants.GET("/:id/members",
			middleware.RequireTenantPermission(permissions, rbac.FeatureUserManagement, rbac.PermissionView, "id"),
			handleGetMembers(db))
		tenants.PUT("/:id/members/:user_id",
			middleware.RequireTenantPermission(permissions, rbac.FeatureUserManagement, rbac.PermissionUpdate, "id"),
			handleUpdateMember(db))
		tenants.DELETE("/:id/members/:user_id",
			middleware.RequireTenantPermission(permissions, rbac.FeatureUserManagement, rbac.PermissionDelete, "id"),
			handleRemoveMember(db))

		// Invitations
		tenants.POST("/:id/invitations",
			middleware.RequireTenantPermission(permissions, rbac.FeatureUserManagement, rbac.PermissionCreate, "id"),
			handleCreateInvitation(provisioner))
	}

	invitations := router.Group("/invitations")
	invitations.Use(authMiddleware.RequireAuth())
	{
		invitations.GET("/", middleware.RequirePermission(permissions, rbac.FeatureUserManagement, rbac.PermissionView), handleListInvitations(db, permissions))
		invitations.POST("/:id/resend", middleware.RequirePermission(permissions, rbac.FeatureUserManagement, rbac.PermissionUpdate), handleResendInvitation(provisioner))
	}

	// Tenant templates (platform-level administration)
	templates := router.Group("/templates")
	templates.Use(authMiddleware.RequireAuth(), middleware.RequirePermission(permissions, rbac.FeatureTenantManagement, rbac.PermissionManage))
	{
		templates.GET("/", handleGetTemplates(db))
		templates.POST("/", handleCreateTemplate(db))
	}

	// Role definitions and their permission sets
	roles := router.Group("/roles")
	roles.Use(authMiddleware.RequireAuth())
	{
		roles.GET("/", middleware.RequirePermission(permissions, rbac.FeatureRoleManagement, rbac.PermissionView), handleGetRoles(db))
		roles.POST("/", middleware.RequirePermission(permissions, rbac.FeatureRoleManagement, rbac.PermissionCreate), handleCreateRole(db))
		roles.PUT("/:key", middleware.RequirePermission(permissions, rbac.FeatureRoleManagement, rbac.PermissionUpdate), handleUpdateRole(db))
		roles.DELETE("/:key", middleware.RequirePermission(permissions, rbac.FeatureRoleManagement, rbac.PermissionDelete), handleDeleteRole(db))
		roles.GET("/:key/permissions", middleware.RequirePermission(permissions, rbac.FeatureRoleManagement, rbac.PermissionView), handleGetRolePermissions(db))
		roles.PUT("/:key/permissions", middleware.RequirePermission(permissions, rbac.FeatureRoleManagement, rbac.PermissionManage), handleReplaceRolePermissions(db, permissions))
	}

	// Start server
	port := os.Getenv("TENANT_SERVICE_PORT")
	if port == "" {
		port = "8002"
	}

	logrus.Infof("Tenant service starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start tenant service:", err)
	}
}
