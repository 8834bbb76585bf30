package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/talentbridge/talentbridge/shared/models"
)

// NotificationEvent is the wire payload published by the project service
type NotificationEvent struct {
	EventID   uuid.UUID `json:"event_id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	EntityID  uuid.UUID `json:"entity_id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
}

// KafkaConsumer materializes notification events into customer notification
// rows
type KafkaConsumer struct {
	reader *kafka.Reader
	db     *gorm.DB
}

// NewKafkaConsumer creates a new Kafka consumer
func NewKafkaConsumer(broker string, db *gorm.DB) (*KafkaConsumer, error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{broker},
		Topic:          "customer-notifications",
		GroupID:        "notifier-service",
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
	})

	return &KafkaConsumer{
		reader: reader,
		db:     db,
	}, nil
}

// Consume reads notification events and writes notification rows. Failed
// writes land in the dead-letter table for the retry worker.
func (kc *KafkaConsumer) Consume() {
	logrus.Info("Starting notification events consumer")

	for {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		msg, err := kc.reader.ReadMessage(ctx)
		cancel()

		if err != nil {
			if err == context.DeadlineExceeded {
				continue
			}
			logrus.WithError(err).Error("Error reading notification message")
			time.Sleep(time.Second)
			continue
		}

		var event NotificationEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logrus.WithError(err).Error("Error unmarshaling notification event")
			continue
		}

		if err := kc.materialize(event); err != nil {
			logrus.WithError(err).WithField("event_id", event.EventID).Warn("Failed to materialize notification")
			if dlqErr := kc.storeFailed(event, err); dlqErr != nil {
				logrus.WithError(dlqErr).Error("Failed to store dead-letter notification")
			}
		}
	}
}

// materialize inserts the notification row. The row ID is the event ID, so
// redelivered messages insert nothing the second time.
func (kc *KafkaConsumer) materialize(event NotificationEvent) error {
	row := models.CustomerProjectNotification{
		ID:       event.EventID,
		TenantID: event.TenantID,
		EntityID: event.EntityID,
		Kind:     event.Kind,
		Title:    event.Title,
		Body:     event.Body,
	}

	return kc.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

// storeFailed records a dead-letter row with its first retry a minute out
func (kc *KafkaConsumer) storeFailed(event NotificationEvent, cause error) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event for dead-letter: %w", err)
	}

	nextRetryAt := time.Now().Add(time.Minute)
	failed := FailedNotification{
		ID:              uuid.New(),
		OriginalEventID: event.EventID,
		TenantID:        event.TenantID,
		Payload:         string(payload),
		ErrorMessage:    cause.Error(),
		Status:          "pending",
		NextRetryAt:     &nextRetryAt,
	}

	return kc.db.Create(&failed).Error
}

// Close closes the Kafka consumer
func (kc *KafkaConsumer) Close() error {
	if err := kc.reader.Close(); err != nil {
		return fmt.Errorf("failed to close notification reader: %w", err)
	}
	return nil
}
