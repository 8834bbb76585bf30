package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/talentbridge/talentbridge/shared/config"
	"github.com/talentbridge/talentbridge/shared/middleware"
	"github.com/talentbridge/talentbridge/shared/rbac"
	"github.com/talentbridge/talentbridge/shared/utils"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}

	// Initialize Redis for session caching
	if err := utils.InitRedis(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer utils.CloseRedis()

	// Initialize database
	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	authMiddleware := middleware.NewAuthMiddleware(
		db,
		os.Getenv("AWS_REGION"),
		os.Getenv("COGNITO_USER_POOL_ID"),
	)

	permissions := middleware.NewPermissionSource(db, time.Minute)

	// Initialize Kafka producer for customer notifications
	kafkaProducer, err := NewKafkaProducer(os.Getenv("KAFKA_BROKER"))
	if err != nil {
		log.Fatal("Failed to initialize Kafka producer:", err)
	}
	defer kafkaProducer.Close()

	// S3-backed attachment signing
	attachments, err := utils.NewAttachmentStorage()
	if err != nil {
		log.Fatal("Failed to initialize attachment storage:", err)
	}

	// Initialize Gin router
	router := gin.Default()

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Project service is healthy", nil)
	})

	// Tenant-scoped collections
	tenants := router.Group("/tenants/:id")
	tenants.Use(authMiddleware.RequireAuth())
	{
		tenants.POST("/work-requests",
			middleware.RequireTenantPermission(permissions, rbac.FeatureWorkRequests, rbac.PermissionCreate, "id"),
			handleCreateWorkRequest(db, kafkaProducer))
		tenants.GET("/work-requests",
			middleware.RequireTenantPermission(permissions, rbac.FeatureWorkRequests, rbac.PermissionView, "id"),
			handleListWorkRequests(db))

		tenants.GET("/projects",
			middleware.RequireTenantPermission(permissions, rbac.FeatureProjects, rbac.PermissionView, "id"),
			handleListProjects(db))
		tenants.POST("/projects",
			middleware.RequireTenantPermission(permissions, rbac.FeatureProjects, rbac.PermissionCreate, "id"),
			handleCreateProject(db))

		tenants.GET("/notifications",
			middleware.RequireTenantPermission(permissions, rbac.FeatureNotifications, rbac.PermissionView, "id"),
			handleListNotifications(db))
	}

	// Work request lifecycle
	workRequests := router.Group("/work-requests")
	workRequests.Use(authMiddleware.RequireAuth())
	{
		workRequests.GET("/:id", handleGetWorkRequest(db, permissions))
		workRequests.POST("/:id/approve", handleApproveWorkRequest(db, permissions, kafkaProducer))
		workRequests.POST("/:id/reject", handleRejectWorkRequest(db, permissions, kafkaProducer))
		workRequests.GET("/:id/attachments/upload-url", handleAttachmentUploadURL(db, permissions, attachments))
		workRequests.GET("/:id/attachments/download-url", handleAttachmentDownloadURL(db, permissions, attachments))
	}

	// Project roadblocks and health
	projects := router.Group("/projects")
	projects.Use(authMiddleware.RequireAuth())
	{
		projects.POST("/:id/roadblocks", handleCreateRoadblock(db, permissions))
		projects.POST("/:id/roadblocks/:roadblock_id/resolve", handleResolveRoadblock(db, permissions, kafkaProducer))
		projects.POST("/:id/health", handlePostHealthUpdate(db, permissions, kafkaProducer))
	}

	notifications := router.Group("/notifications")
	notifications.Use(authMiddleware.RequireAuth())
	{
		notifications.POST("/:id/read", handleMarkNotificationRead(db, permissions))
	}

	// Start server
	port := os.Getenv("PROJECT_SERVICE_PORT")
	if port == "" {
		port = "8003"
	}

	logrus.Infof("Project service starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start project service:", err)
	}
}
