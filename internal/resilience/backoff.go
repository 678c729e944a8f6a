package resilience

import (
	"math/rand/v2"
	"time"
)

// maxBackoff bounds a single retry wait.
const maxBackoff = 5 * time.Second

// Backoff is base doubled per attempt, capped at maxBackoff, then spread by
// +/- jitter (a fraction, 0.2 is 20%).
func Backoff(base time.Duration, attempt int, jitter float64) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base << min(max(attempt, 1)-1, 16)
	d = min(d, maxBackoff)
	if jitter <= 0 {
		return d
	}
	spread := float64(d) * jitter
	return d + time.Duration((rand.Float64()*2-1)*spread)
}
