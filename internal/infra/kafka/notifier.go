package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Simon-Fontaine/bookworm-backend/internal/core/port"
	"github.com/Simon-Fontaine/bookworm-backend/internal/infra/config"
)

const schemaVersion = "1.0"

const (
	eventEmailVerification  = "notification.email.verification"
	eventEmailPasswordReset = "notification.email.password_reset"
	eventEmailWelcome       = "notification.email.welcome"
)

// Notifier implements port.Notifier by publishing email request events for
// the downstream notification service to deliver.
type Notifier struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewNotifier constructs a Kafka-backed notifier.
func NewNotifier(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *Notifier {
	return &Notifier{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

type emailPayload struct {
	Recipient   string `json:"recipient"`
	DisplayName string `json:"display_name"`
	Token       string `json:"token,omitempty"`
}

func (n *Notifier) publish(ctx context.Context, eventType string, payload any) error {
	envelope := eventEnvelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata: envelopeMetadata{
			"service":     n.appCfg.Name,
			"environment": n.appCfg.Env,
		},
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: n.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case n.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendVerificationEmail publishes a notification.email.verification event.
func (n *Notifier) SendVerificationEmail(ctx context.Context, email, displayName, token string) error {
	return n.publish(ctx, eventEmailVerification, emailPayload{
		Recipient:   email,
		DisplayName: displayName,
		Token:       token,
	})
}

// SendPasswordResetEmail publishes a notification.email.password_reset event.
func (n *Notifier) SendPasswordResetEmail(ctx context.Context, email, displayName, token string) error {
	return n.publish(ctx, eventEmailPasswordReset, emailPayload{
		Recipient:   email,
		DisplayName: displayName,
		Token:       token,
	})
}

// SendWelcomeEmail publishes a notification.email.welcome event.
func (n *Notifier) SendWelcomeEmail(ctx context.Context, email, displayName string) error {
	return n.publish(ctx, eventEmailWelcome, emailPayload{
		Recipient:   email,
		DisplayName: displayName,
	})
}

var _ port.Notifier = (*Notifier)(nil)
