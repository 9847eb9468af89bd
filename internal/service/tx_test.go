package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryStaleRetriesUntilSuccess(t *testing.T) {
	calls, retries := 0, 0
	err := retryStale(context.Background(), RetryPolicy{Attempts: 3, InitialInterval: time.Millisecond}, func() { retries++ }, func() error {
		calls++
		if calls < 3 {
			return errStaleWrite
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retries)
}

func TestRetryStaleStopsOnBusinessError(t *testing.T) {
	business := errors.New("slot full")
	calls := 0
	err := retryStale(context.Background(), RetryPolicy{Attempts: 5, InitialInterval: time.Millisecond}, nil, func() error {
		calls++
		return business
	})
	assert.ErrorIs(t, err, business)
	assert.Equal(t, 1, calls)
}

func TestRetryStaleGivesUp(t *testing.T) {
	calls := 0
	err := retryStale(context.Background(), RetryPolicy{Attempts: 2, InitialInterval: time.Millisecond}, nil, func() error {
		calls++
		return errStaleWrite
	})
	assert.ErrorIs(t, err, errStaleWrite)
	assert.Equal(t, 2, calls)
}
