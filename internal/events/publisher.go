package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Event types published by the workflows. Downstream consumers (mail
// notifications, analytics) subscribe to these.
const (
	TypeProfileCreated      = "profile.created"
	TypeReportCollected     = "report.collected"
	TypeApplicationApproved = "application.approved"
	TypeApplicationRejected = "application.rejected"
	TypeAccountDeleted      = "account.deleted"
)

// Event is the envelope every published domain event travels in.
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// ===== KAFKA PUBLISHER =====

const eventsTopic = "recicla.events"

type kafkaEventPublisher struct {
	publisher *kafka.Publisher
	logger    *slog.Logger
}

// NewKafkaEventPublisher builds a watermill-kafka backed publisher.
func NewKafkaEventPublisher(brokers []string, logger *slog.Logger) (EventPublisher, error) {
	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return &kafkaEventPublisher{publisher: publisher, logger: logger}, nil
}

func (p *kafkaEventPublisher) Publish(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = watermill.NewUUID()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", event.Type)

	if err := p.publisher.Publish(eventsTopic, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Type, err)
	}

	p.logger.Debug("event published", "type", event.Type, "id", event.ID)
	return nil
}

func (p *kafkaEventPublisher) Close() error {
	return p.publisher.Close()
}

// ===== NOOP PUBLISHER =====

// NoopEventPublisher swallows events; used when no brokers are configured.
type NoopEventPublisher struct{}

func (NoopEventPublisher) Publish(ctx context.Context, event Event) error { return nil }
func (NoopEventPublisher) Close() error                                   { return nil }

// ===== EVENT PAYLOADS =====

type ProfileCreatedEvent struct {
	ProfileID string `json:"profile_id"`
	Role      string `json:"role"`
}

type ReportCollectedEvent struct {
	ReportID    uint    `json:"report_id"`
	OwnerID     string  `json:"owner_id"`
	CollectorID string  `json:"collector_id"`
	Kg          float64 `json:"kg"`
}

type ApplicationDecisionEvent struct {
	ProfileID string `json:"profile_id"`
	Decision  string `json:"decision"`
	AdminID   string `json:"admin_id"`
}

type AccountDeletedEvent struct {
	AccountID string `json:"account_id"`
}
