package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/talentbridge/talentbridge/shared/config"
	"github.com/talentbridge/talentbridge/shared/middleware"
	"github.com/talentbridge/talentbridge/shared/utils"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}

	// Initialize Redis for session caching
	if err := utils.InitRedis(); err != nil {
		logrus.Warnf("Failed to connect to Redis, session caching disabled: %v", err)
	}

	// Initialize database (membership resolution on auth)
	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	awsRegion := os.Getenv("AWS_REGION")
	cognitoUserPoolID := os.Getenv("COGNITO_USER_POOL_ID")
	if awsRegion == "" || cognitoUserPoolID == "" {
		log.Fatal("AWS_REGION and COGNITO_USER_POOL_ID must be set")
	}

	authMiddleware := middleware.NewAuthMiddleware(db, awsRegion, cognitoUserPoolID)

	// Initialize service clients
	serviceClients := &ServiceClients{
		AuthService:     NewServiceClient(os.Getenv("AUTH_SERVICE_URL")),
		TenantService:   NewServiceClient(os.Getenv("TENANT_SERVICE_URL")),
		ProjectService:  NewServiceClient(os.Getenv("PROJECT_SERVICE_URL")),
		NotifierService: NewServiceClient(os.Getenv("NOTIFIER_SERVICE_URL")),
	}

	// Initialize Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check endpoints
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "API Gateway is healthy", nil)
	})
	router.GET("/health/services", func(c *gin.Context) {
		utils.OKResponse(c, "Service status", serviceClients.GetServiceStatus())
	})

	// Authentication routes
	auth := router.Group("/auth")
	{
		auth.POST("/login", serviceClients.AuthService.ProxyRequest)
		auth.POST("/refresh", serviceClients.AuthService.ProxyRequest)
		auth.GET("/invitations/status", serviceClients.AuthService.ProxyRequest)
		auth.POST("/logout", authMiddleware.RequireAuth(), serviceClients.AuthService.ProxyRequest)
		auth.GET("/me", authMiddleware.RequireAuth(), serviceClients.AuthService.ProxyRequest)
		auth.GET("/sessions", authMiddleware.RequireAuth(), serviceClients.AuthService.ProxyRequest)
		auth.POST("/sessions/revoke-all", authMiddleware.RequireAuth(), serviceClients.AuthService.ProxyRequest)
		auth.POST("/invitations/accept", authMiddleware.RequireAuth(), serviceClients.AuthService.ProxyRequest)
	}

	// Feature catalog
	router.GET("/features", serviceClients.TenantService.ProxyRequest)

	// Tenant management routes
	tenants := router.Group("/tenants")
	tenants.Use(authMiddleware.RequireAuth())
	{
		tenants.POST("/", serviceClients.TenantService.ProxyRequest)
		tenants.GET("/", serviceClients.TenantService.ProxyRequest)
		tenants.GET("/:id", serviceClients.TenantService.ProxyRequest)
		tenants.GET("/:id/hierarchy", serviceClients.TenantService.ProxyRequest)
		tenants.PUT("/:id", serviceClients.TenantService.ProxyRequest)
		tenants.DELETE("/:id", serviceClients.TenantService.ProxyRequest)
		tenants.GET("/:id/members", serviceClients.TenantService.ProxyRequest)
		tenants.PUT("/:id/members/:user_id", serviceClients.TenantService.ProxyRequest)
		tenants.DELETE("/:id/members/:user_id", serviceClients.TenantService.ProxyRequest)
		tenants.POST("/:id/invitations", serviceClients.TenantService.ProxyRequest)

		// Tenant-scoped project data
		tenants.POST("/:id/work-requests", serviceClients.ProjectService.ProxyRequest)
		tenants.GET("/:id/work-requests", serviceClients.ProjectService.ProxyRequest)
		tenants.GET("/:id/projects", serviceClients.ProjectService.ProxyRequest)
		tenants.POST("/:id/projects", serviceClients.ProjectService.ProxyRequest)
		tenants.GET("/:id/notifications", serviceClients.ProjectService.ProxyRequest)
	}

	// Invitation administration
	invitations := router.Group("/invitations")
	invitations.Use(authMiddleware.RequireAuth())
	{
		invitations.GET("/", serviceClients.TenantService.ProxyRequest)
		invitations.POST("/:id/resend", serviceClients.TenantService.ProxyRequest)
	}

	// Templates and roles
	templates := router.Group("/templates")
	templates.Use(authMiddleware.RequireAuth())
	{
		templates.GET("/", serviceClients.TenantService.ProxyRequest)
		templates.POST("/", serviceClients.TenantService.ProxyRequest)
	}

	roles := router.Group("/roles")
	roles.Use(authMiddleware.RequireAuth())
	{
		roles.GET("/", serviceClients.TenantService.ProxyRequest)
		roles.POST("/", serviceClients.TenantService.ProxyRequest)
		roles.PUT("/:key", serviceClients.TenantService.ProxyRequest)
		roles.DELETE("/:key", serviceClients.TenantService.ProxyRequest)
		roles.GET("/:key/permissions", serviceClients.TenantService.ProxyRequest)
		roles.PUT("/:key/permissions", serviceClients.TenantService.ProxyRequest)
	}

	// Work request lifecycle
	workRequests := router.Group("/work-requests")
	workRequests.Use(authMiddleware.RequireAuth())
	{
		workRequests.GET("/:id", serviceClients.ProjectService.ProxyRequest)
		workRequests.POST("/:id/approve", serviceClients.ProjectService.ProxyRequest)
		workRequests.POST("/:id/reject", serviceClients.ProjectService.ProxyRequest)
		workRequests.GET("/:id/attachments/upload-url", serviceClients.ProjectService.ProxyRequest)
		workRequests.GET("/:id/attachments/download-url", serviceClients.ProjectService.ProxyRequest)
	}

	// Projects
	projects := router.Group("/projects")
	projects.Use(authMiddleware.RequireAuth())
	{
		projects.POST("/:id/roadblocks", serviceClients.ProjectService.ProxyRequest)
		projects.POST("/:id/roadblocks/:roadblock_id/resolve", serviceClients.ProjectService.ProxyRequest)
		projects.POST("/:id/health", serviceClients.ProjectService.ProxyRequest)
	}

	// Notifications
	notifications := router.Group("/notifications")
	notifications.Use(authMiddleware.RequireAuth())
	{
		notifications.POST("/:id/read", serviceClients.ProjectService.ProxyRequest)
	}

	// Notifier observability
	router.GET("/notifier/stats", authMiddleware.RequireAuth(), serviceClients.NotifierService.ProxyRequest)

	// Start server
	port := os.Getenv("API_GATEWAY_PORT")
	if port == "" {
		port = "8080"
	}

	logrus.Infof("API Gateway starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start API Gateway:", err)
	}
}
