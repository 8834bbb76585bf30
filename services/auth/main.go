package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/talentbridge/talentbridge/shared/config"
	"github.com/talentbridge/talentbridge/shared/identity"
	"github.com/talentbridge/talentbridge/shared/middleware"
	"github.com/talentbridge/talentbridge/shared/provisioning"
	"github.com/talentbridge/talentbridge/shared/utils"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}

	// Initialize database
	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize Redis session cache
	if err := utils.InitRedis(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}

	// Initialize identity provider
	cognito, err := identity.NewCognitoProvider(
		os.Getenv("AWS_REGION"),
		os.Getenv("COGNITO_USER_POOL_ID"),
		os.Getenv("COGNITO_CLIENT_ID"),
	)
	if err != nil {
		log.Fatal("Failed to initialize identity provider:", err)
	}

	// Invitation provisioning over gorm stores
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

	// Initialize Gin router
	router := gin.Default()

	// Health check endpoint, including the identity-provider circuit state
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Auth service is healthy", gin.H{
			"identity_provider": cognito.BreakerStatus(),
		})
	})

	// Authentication routes
	auth := router.Group("/auth")
	{
		auth.POST("/login", handleLogin(db, cognito))
		auth.POST("/refresh", handleRefresh(cognito))
		auth.POST("/logout", authMiddleware.RequireAuth(), handleLogout())
		auth.GET("/me", authMiddleware.RequireAuth(), handleMe())
		auth.GET("/sessions", authMiddleware.RequireAuth(), handleGetSession())
		auth.POST("/sessions/revoke-all", authMiddleware.RequireAuth(), handleRevokeAllSessions())

		auth.GET("/invitations/status", handleInvitationStatus(provisioning.NewGormInvitationStore(db)))
		auth.POST("/invitations/accept", authMiddleware.RequireAuth(), handleAcceptInvitation(provisioner))
	}

	// Start server
	port := os.Getenv("AUTH_SERVICE_PORT")
	if port == "" {
		port = "8001"
	}

	logrus.Infof("Auth service starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start auth service:", err)
	}
}
