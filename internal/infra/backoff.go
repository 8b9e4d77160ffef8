package infra

import (
	"math/rand"
	"time"
)

const (
	backoffBase = 500 * time.Millisecond
	backoffMax  = 30 * time.Second
)

// ReconnectBackoff returns the randomized exponential delay before
// reconnect attempt n: base * 2^attempt with full jitter, capped at
// backoffMax. The attempt counter is reset by the caller on a
// successful connect.
func ReconnectBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// 2^attempt; anything past 2^30 is already far beyond the cap.
	if attempt > 30 {
		attempt = 30
	}

	ceiling := backoffBase * time.Duration(1<<attempt)
	if ceiling > backoffMax {
		ceiling = backoffMax
	}

	// Full jitter between base and the exponential ceiling, so a fleet
	// of dropped channels does not reconnect in lockstep.
	if ceiling <= backoffBase {
		return backoffBase
	}
	return backoffBase + time.Duration(rand.Int63n(int64(ceiling-backoffBase)))
}
