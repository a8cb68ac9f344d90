package monitoring

import (
	"testing"

	"reviewsync/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// One collector per test binary: promauto registers on the global registry.
var testCollector = NewPrometheusCollector()

func TestPrometheusCollector_ActiveGauge(t *testing.T) {
	c := testCollector
	base := testutil.ToFloat64(c.replaysActive)

	t.Run("completion retires the replay", func(t *testing.T) {
		id := domain.SessionID("sess-completes")
		c.ReplayStarted(id)
		assert.Equal(t, base+1, testutil.ToFloat64(c.replaysActive))

		c.ReplayCompleted(id)
		assert.Equal(t, base, testutil.ToFloat64(c.replaysActive))

		// Tearing down an already-finished replay must not decrement again.
		c.ReplayStopped(id)
		assert.Equal(t, base, testutil.ToFloat64(c.replaysActive))
	})

	t.Run("stop retires the replay", func(t *testing.T) {
		id := domain.SessionID("sess-stops")
		c.ReplayStarted(id)
		c.ReplayStopped(id)
		assert.Equal(t, base, testutil.ToFloat64(c.replaysActive))
	})

	t.Run("fatal error retires the replay", func(t *testing.T) {
		id := domain.SessionID("sess-errors")
		c.ReplayStarted(id)
		c.ReplayErrored(id)
		assert.Equal(t, base, testutil.ToFloat64(c.replaysActive))

		c.ReplayStopped(id)
		assert.Equal(t, base, testutil.ToFloat64(c.replaysActive))
	})

	t.Run("concurrent sessions count independently", func(t *testing.T) {
		a := domain.SessionID("sess-a")
		b := domain.SessionID("sess-b")
		c.ReplayStarted(a)
		c.ReplayStarted(b)
		assert.Equal(t, base+2, testutil.ToFloat64(c.replaysActive))

		c.ReplayCompleted(a)
		assert.Equal(t, base+1, testutil.ToFloat64(c.replaysActive))
		c.ReplayStopped(b)
		assert.Equal(t, base, testutil.ToFloat64(c.replaysActive))
	})
}
