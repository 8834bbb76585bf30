package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/talentbridge/talentbridge/shared/config"
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

	// Dead-letter table lives with this service
	if err := db.AutoMigrate(&FailedNotification{}); err != nil {
		log.Fatal("Failed to migrate dead-letter table:", err)
	}

	// Initialize Kafka consumer
	consumer, err := NewKafkaConsumer(os.Getenv("KAFKA_BROKER"), db)
	if err != nil {
		log.Fatal("Failed to initialize Kafka consumer:", err)
	}
	defer consumer.Close()

	retryWorker := NewRetryWorker(db)

	go consumer.Consume()
	go retryWorker.Run()

	// Initialize Gin router
	router := gin.Default()

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, "Notifier service is healthy", nil)
	})

	// Dead-letter queue statistics. The /notifier prefix matches the
	// path the gateway proxies through unchanged.
	statsHandler := func(c *gin.Context) {
		utils.OKResponse(c, "Retry statistics", retryWorker.Stats())
	}
	router.GET("/stats", statsHandler)
	router.GET("/notifier/stats", statsHandler)

	// Start server
	port := os.Getenv("NOTIFIER_SERVICE_PORT")
	if port == "" {
		port = "8004"
	}

	logrus.Infof("Notifier service starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start notifier service:", err)
	}
}
