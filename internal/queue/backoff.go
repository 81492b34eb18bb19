package queue

import "time"

// maxBackoffShift caps the exponent so the duration cannot overflow.
const maxBackoffShift = 16

// Backoff returns base * 2^retryCount for the retry that carries the
// given (already incremented) retry count.
func Backoff(base time.Duration, retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	if retryCount > maxBackoffShift {
		retryCount = maxBackoffShift
	}
	return base * time.Duration(1<<uint(retryCount))
}
