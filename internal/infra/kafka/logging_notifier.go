package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/Simon-Fontaine/bookworm-backend/internal/core/port"
	"github.com/Simon-Fontaine/bookworm-backend/internal/infra/logger"
)

// LoggingNotifier logs email requests instead of publishing them. Useful for
// development environments without a broker.
type LoggingNotifier struct {
	logger *zap.Logger
}

// NewLoggingNotifier constructs a development-friendly notifier.
func NewLoggingNotifier(log *zap.Logger) *LoggingNotifier {
	return &LoggingNotifier{logger: log}
}

func (n *LoggingNotifier) logEmail(kind, email, displayName, token string) {
	fields := []zap.Field{
		zap.String("kind", kind),
		zap.String("recipient", logger.MaskEmail(email)),
		zap.String("display_name", displayName),
	}
	if token != "" {
		fields = append(fields, zap.String("token", logger.MaskToken(token)))
	}

	n.logger.Info("email dispatch requested", fields...)
}

func (n *LoggingNotifier) SendVerificationEmail(_ context.Context, email, displayName, token string) error {
	n.logEmail("verification", email, displayName, token)
	return nil
}

func (n *LoggingNotifier) SendPasswordResetEmail(_ context.Context, email, displayName, token string) error {
	n.logEmail("password_reset", email, displayName, token)
	return nil
}

func (n *LoggingNotifier) SendWelcomeEmail(_ context.Context, email, displayName string) error {
	n.logEmail("welcome", email, displayName, "")
	return nil
}

var _ port.Notifier = (*LoggingNotifier)(nil)
