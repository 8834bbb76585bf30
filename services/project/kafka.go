package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// NotificationTopic is the customer-notification event stream
const NotificationTopic = "customer-notifications"

// NotificationEvent is the wire payload published for every customer-visible
// mutation. The notifier service materializes these into notification rows.
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

// KafkaProducer publishes notification events through a worker pool so
// request handlers never block on the broker
type KafkaProducer struct {
	writer       *kafka.Writer
	eventChan    chan NotificationEvent
	workerCount  int
	shutdownChan chan struct{}
	wg           sync.WaitGroup
}

// NewKafkaProducer creates a new Kafka producer with worker pool
func NewKafkaProducer(broker string) (*KafkaProducer, error) {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	kp := &KafkaProducer{
		writer:       writer,
		eventChan:    make(chan NotificationEvent, 1000),
		workerCount:  10,
		shutdownChan: make(chan struct{}),
	}

	kp.startWorkers()

	return kp, nil
}

// startWorkers starts the worker pool for async event publishing
func (kp *KafkaProducer) startWorkers() {
	for i := 0; i < kp.workerCount; i++ {
		kp.wg.Add(1)
		go kp.eventWorker(i)
	}

	logrus.Infof("[Kafka] Started %d notification workers", kp.workerCount)
}

// eventWorker drains events from the channel and writes them to the broker
func (kp *KafkaProducer) eventWorker(id int) {
	defer kp.wg.Done()

	for {
		select {
		case event := <-kp.eventChan:
			if err := kp.sendEventSync(event); err != nil {
				logrus.WithError(err).Warnf("[Kafka Worker %d] Failed to send notification event", id)
			}
		case <-kp.shutdownChan:
			logrus.Infof("[Kafka Worker %d] Shutting down notification worker", id)
			return
		}
	}
}

// PublishNotification queues a notification event without blocking. A full
// queue drops the event; mutations never fail on notification delivery.
func (kp *KafkaProducer) PublishNotification(event NotificationEvent) error {
	select {
	case kp.eventChan <- event:
		return nil
	default:
		return fmt.Errorf("notification event queue full, event dropped")
	}
}

// sendEventSync writes one event to Kafka, keyed by tenant for ordering
func (kp *KafkaProducer) sendEventSync(event NotificationEvent) error {
	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification event: %w", err)
	}

	msg := kafka.Message{
		Topic: NotificationTopic,
		Key:   []byte(event.TenantID.String()),
		Value: message,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Kind)},
			{Key: "tenant_id", Value: []byte(event.TenantID.String())},
			{Key: "actor_id", Value: []byte(event.ActorID)},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := kp.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write notification event to Kafka: %w", err)
	}

	return nil
}

// Close gracefully shuts down the Kafka producer and workers
func (kp *KafkaProducer) Close() error {
	close(kp.shutdownChan)
	kp.wg.Wait()
	close(kp.eventChan)

	if err := kp.writer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka writer: %w", err)
	}

	return nil
}
