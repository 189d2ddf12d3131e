package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dadyutenga/driver-app-backend/internal/core/domain"
	"github.com/dadyutenga/driver-app-backend/internal/core/port"
	"github.com/dadyutenga/driver-app-backend/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	AccountID string           `json:"account_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, accountID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		AccountID: accountID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAccountRegistered publishes driver.account.registered events.
func (p *EventPublisher) PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error {
	payload := struct {
		AccountID    string         `json:"account_id"`
		FullName     string         `json:"full_name"`
		Email        *string        `json:"email,omitempty"`
		Phone        *string        `json:"phone,omitempty"`
		RegisteredAt time.Time      `json:"registered_at"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:    event.AccountID,
		FullName:     event.FullName,
		Email:        event.Email,
		Phone:        event.Phone,
		RegisteredAt: event.RegisteredAt.UTC(),
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, "driver.account.registered", event.AccountID, event.RegisteredAt, payload)
}

// PublishChallengeVerified publishes driver.otp.verified events.
func (p *EventPublisher) PublishChallengeVerified(ctx context.Context, event domain.ChallengeVerifiedEvent) error {
	payload := struct {
		ChallengeID string                  `json:"challenge_id"`
		AccountID   string                  `json:"account_id"`
		Purpose     domain.ChallengePurpose `json:"purpose"`
		VerifiedAt  time.Time               `json:"verified_at"`
		Metadata    map[string]any          `json:"metadata,omitempty"`
	}{
		ChallengeID: event.ChallengeID,
		AccountID:   event.AccountID,
		Purpose:     event.Purpose,
		VerifiedAt:  event.VerifiedAt.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "driver.otp.verified", event.AccountID, event.VerifiedAt, payload)
}

// PublishPasswordChanged publishes driver.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		AccountID      string         `json:"account_id"`
		ChangedAt      time.Time      `json:"changed_at"`
		ChangedBy      string         `json:"changed_by"`
		SessionsClosed int            `json:"sessions_closed"`
		Metadata       map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:      event.AccountID,
		ChangedAt:      event.ChangedAt.UTC(),
		ChangedBy:      event.ChangedBy,
		SessionsClosed: event.SessionsClosed,
		Metadata:       event.Metadata,
	}

	return p.publish(ctx, event.EventID, "driver.password.changed", event.AccountID, event.ChangedAt, payload)
}

// PublishSessionClosed publishes driver.session.revoked events.
func (p *EventPublisher) PublishSessionClosed(ctx context.Context, event domain.SessionClosedEvent) error {
	payload := struct {
		SessionID string         `json:"session_id"`
		AccountID string         `json:"account_id"`
		ClosedAt  time.Time      `json:"closed_at"`
		ClosedBy  string         `json:"closed_by"`
		Reason    string         `json:"reason"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		SessionID: event.SessionID,
		AccountID: event.AccountID,
		ClosedAt:  event.ClosedAt.UTC(),
		ClosedBy:  event.ClosedBy,
		Reason:    event.Reason,
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "driver.session.revoked", event.AccountID, event.ClosedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
