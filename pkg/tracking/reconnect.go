package tracking

import (
	"math/rand"
	"time"
)

const (
	defaultReconnectBaseDelay = 500 * time.Millisecond
	reconnectDelayCeiling     = 10 * time.Minute
)

// ReconnectPolicy bounds how often a dropped push channel is reopened. The
// zero value never reopens.
type ReconnectPolicy struct {
	// Consecutive failed attempts allowed before giving up. A channel that
	// closes without delivering a message counts as failed. The count resets
	// once a channel delivers.
	MaxAttempts int

	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Delay returns a capped exponential backoff with full jitter for the
// given zero based attempt.
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	ceiling := p.BaseDelay
	if ceiling <= 0 {
		ceiling = defaultReconnectBaseDelay
	}

	limit := p.MaxDelay
	if limit <= 0 || limit > reconnectDelayCeiling {
		limit = reconnectDelayCeiling
	}

	for i := 0; i < attempt && ceiling < limit; i++ {
		ceiling *= 2
	}
	if ceiling > limit {
		ceiling = limit
	}

	//nolint:gosec // Jitter, not security.
	return time.Duration(rand.Int63n(int64(ceiling) + 1))
}
