package port

import (
	"context"
	"time"
)

// ThrottleStore counts recent dispatch attempts inside a sliding window.
// The counters are derived, short-lived data: losing them only means an
// extra email may go out, so implementations may degrade to a no-op.
type ThrottleStore interface {
	RecordAttempt(ctx context.Context, key string, at time.Time) error
	CountAttempts(ctx context.Context, key string, window time.Duration, reference time.Time) (int, error)
	TrimWindow(ctx context.Context, key string, window time.Duration, reference time.Time) error
}
