package infra

import "time"

const (
	backoffBase = 1 * time.Second
	backoffMax  = 60 * time.Second
)

// CalculateBackoff returns the reconnect delay for the given retry count:
// exponential from backoffBase, capped at backoffMax.
func CalculateBackoff(retry int) time.Duration {
	if retry < 1 {
		return backoffBase
	}
	delay := backoffBase << uint(retry-1)
	if delay <= 0 || delay > backoffMax {
		return backoffMax
	}
	return delay
}
