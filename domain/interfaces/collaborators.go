package interfaces

import (
	"context"
	"time"

	"squares/domain/entities"
)

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// EntropySource supplies uniform random integers in [0, n)
type EntropySource interface {
	Intn(n int) (int, error)
}

// Notifier sends best-effort operator alerts. Callers log and drop its errors.
type Notifier interface {
	NotifyOperator(ctx context.Context, alert entities.OperatorAlert) error
}
