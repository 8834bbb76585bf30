package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/talentbridge/talentbridge/shared/models"
)

// FailedNotification is a dead-lettered notification event awaiting retry
type FailedNotification struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OriginalEventID uuid.UUID  `gorm:"type:uuid;not null;index" json:"original_event_id"`
	TenantID        uuid.UUID  `gorm:"type:uuid;not null" json:"tenant_id"`
	Payload         string     `gorm:"type:jsonb;not null" json:"payload"`
	ErrorMessage    string     `gorm:"not null" json:"error_message"`
	RetryCount      int        `gorm:"default:0" json:"retry_count"`
	Status          string     `gorm:"default:'pending'" json:"status"`
	NextRetryAt     *time.Time `json:"next_retry_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

// TableName returns the table name for the FailedNotification model
func (FailedNotification) TableName() string {
	return "failed_notifications"
}

// RetryWorker re-drives dead-lettered notification events with exponential
// backoff
type RetryWorker struct {
	db            *gorm.DB
	maxRetries    int
	batchSize     int
	checkInterval time.Duration
}

// NewRetryWorker creates a new retry worker
func NewRetryWorker(db *gorm.DB) *RetryWorker {
	return &RetryWorker{
		db:            db,
		maxRetries:    8,
		batchSize:     100,
		checkInterval: 30 * time.Second,
	}
}

// Run processes due dead-letter rows until the process exits
func (rw *RetryWorker) Run() {
	logrus.Info("Starting notification retry worker")

	for {
		var failed []FailedNotification
		err := rw.db.Where("status = ? AND next_retry_at <= ?", "pending", time.Now()).
			Order("created_at ASC").
			Limit(rw.batchSize).
			Find(&failed).Error

		if err != nil {
			logrus.WithError(err).Error("Error fetching failed notifications")
			time.Sleep(rw.checkInterval)
			continue
		}

		if len(failed) == 0 {
			time.Sleep(rw.checkInterval)
			continue
		}

		logrus.Infof("Retrying %d failed notifications", len(failed))

		for _, row := range failed {
			if err := rw.retry(row); err != nil {
				logrus.WithError(err).WithField("id", row.ID).Warn("Retry attempt failed")
			}
		}

		time.Sleep(rw.checkInterval)
	}
}

// retry re-attempts one dead-lettered event
func (rw *RetryWorker) retry(failed FailedNotification) error {
	var event NotificationEvent
	if err := json.Unmarshal([]byte(failed.Payload), &event); err != nil {
		return rw.markPermanentlyFailed(failed, fmt.Sprintf("unreadable payload: %v", err))
	}

	row := models.CustomerProjectNotification{
		ID:       event.EventID,
		TenantID: event.TenantID,
		EntityID: event.EntityID,
		Kind:     event.Kind,
		Title:    event.Title,
		Body:     event.Body,
	}

	if err := rw.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return rw.updateRetryStatus(failed, err)
	}

	return rw.markResolved(failed)
}

// updateRetryStatus bumps the retry count and schedules the next attempt
// with exponential backoff: 1m, 2m, 4m, 8m, ...
func (rw *RetryWorker) updateRetryStatus(failed FailedNotification, cause error) error {
	failed.RetryCount++
	failed.UpdatedAt = time.Now()

	if failed.RetryCount >= rw.maxRetries {
		failed.Status = "permanently_failed"
		now := time.Now()
		failed.ResolvedAt = &now
		failed.ErrorMessage = fmt.Sprintf("max retries reached: %s", cause.Error())
	} else {
		delay := time.Minute * time.Duration(1<<(failed.RetryCount-1))
		nextRetryAt := time.Now().Add(delay)
		failed.NextRetryAt = &nextRetryAt
		failed.ErrorMessage = cause.Error()
	}

	return rw.db.Save(&failed).Error
}

// markResolved closes out a successfully re-driven row
func (rw *RetryWorker) markResolved(failed FailedNotification) error {
	now := time.Now()
	failed.Status = "resolved"
	failed.UpdatedAt = now
	failed.ResolvedAt = &now

	return rw.db.Save(&failed).Error
}

// markPermanentlyFailed gives up on a row
func (rw *RetryWorker) markPermanentlyFailed(failed FailedNotification, reason string) error {
	now := time.Now()
	failed.Status = "permanently_failed"
	failed.UpdatedAt = now
	failed.ResolvedAt = &now
	failed.ErrorMessage = reason

	return rw.db.Save(&failed).Error
}

// Stats returns dead-letter queue statistics
func (rw *RetryWorker) Stats() map[string]interface{} {
	var stats struct {
		Pending           int64 `json:"pending"`
		Resolved          int64 `json:"resolved"`
		PermanentlyFailed int64 `json:"permanently_failed"`
	}

	rw.db.Model(&FailedNotification{}).Where("status = ?", "pending").Count(&stats.Pending)
	rw.db.Model(&FailedNotification{}).Where("status = ?", "resolved").Count(&stats.Resolved)
	rw.db.Model(&FailedNotification{}).Where("status = ?", "permanently_failed").Count(&stats.PermanentlyFailed)

	return map[string]interface{}{
		"retry_stats": stats,
		"config": map[string]interface{}{
			"max_retries":    rw.maxRetries,
			"batch_size":     rw.batchSize,
			"check_interval": rw.checkInterval.String(),
		},
	}
}
