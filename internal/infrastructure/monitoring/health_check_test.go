package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHealthChecker_AllHealthy(t *testing.T) {
	checker := NewHealthChecker()
	checker.AddCheck("storage", func(ctx context.Context) (bool, error) {
		return true, nil
	}, time.Minute, time.Second)

	status := checker.CheckAll(context.Background())
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "healthy", status.Checks["storage"])
	assert.False(t, status.Timestamp.IsZero())
}

func TestHealthChecker_OneFailureFlipsVerdict(t *testing.T) {
	checker := NewHealthChecker()
	checker.AddCheck("storage", func(ctx context.Context) (bool, error) {
		return true, nil
	}, time.Minute, time.Second)
	checker.AddCheck("redis", func(ctx context.Context) (bool, error) {
		return false, errors.New("connection refused")
	}, time.Minute, time.Second)

	status := checker.CheckAll(context.Background())
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "healthy", status.Checks["storage"])
	assert.Equal(t, "connection refused", status.Checks["redis"])
}

func TestHealthChecker_FailureWithoutError(t *testing.T) {
	checker := NewHealthChecker()
	checker.AddCheck("storage", func(ctx context.Context) (bool, error) {
		return false, nil
	}, time.Minute, time.Second)

	status := checker.CheckAll(context.Background())
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "check failed", status.Checks["storage"])
}

func TestHealthChecker_ProbeSeesTimeout(t *testing.T) {
	checker := NewHealthChecker()
	checker.AddCheck("storage", func(ctx context.Context) (bool, error) {
		deadline, ok := ctx.Deadline()
		if !ok || time.Until(deadline) > 50*time.Millisecond {
			return false, errors.New("timeout not applied")
		}
		return true, nil
	}, time.Minute, 20*time.Millisecond)

	status := checker.CheckAll(context.Background())
	assert.Equal(t, "healthy", status.Status)
}
