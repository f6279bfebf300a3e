package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	minJanitorInterval = 10 * time.Second
)

// janitorInterval sweeps a few times per TTL, but not more often than
// minJanitorInterval.
func janitorInterval(ttl time.Duration) time.Duration {
	return max(ttl/4, minJanitorInterval)
}
