package port

import "context"

// Notifier dispatches account emails. Implementations are fire-and-forget:
// delivery failures are logged downstream, never surfaced to the caller's
// success contract.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, email, displayName, token string) error
	SendPasswordResetEmail(ctx context.Context, email, displayName, token string) error
	SendWelcomeEmail(ctx context.Context, email, displayName string) error
}
