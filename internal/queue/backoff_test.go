package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDoublesPerRetry(t *testing.T) {
	base := 30 * time.Second

	assert.Equal(t, 60*time.Second, Backoff(base, 1))
	assert.Equal(t, 120*time.Second, Backoff(base, 2))
	assert.Equal(t, 240*time.Second, Backoff(base, 3))
}

func TestBackoffClampsNegativeAndHugeCounts(t *testing.T) {
	base := time.Second

	assert.Equal(t, base, Backoff(base, -5))
	assert.Equal(t, Backoff(base, maxBackoffShift), Backoff(base, 1000))
}
