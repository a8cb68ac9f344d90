package replay

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeWallClock is a controllable wall-clock source shared by the engine
// tests in this package.
type fakeWallClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeWallClock() *fakeWallClock {
	return &fakeWallClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeWallClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeWallClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func TestClock_AdvancesByWallDelta(t *testing.T) {
	wall := newFakeWallClock()
	c := NewClock(wall.Now)
	c.Reset()

	wall.Advance(500 * time.Millisecond)
	c.Tick()
	assert.Equal(t, 500*time.Millisecond, c.Now())

	wall.Advance(16 * time.Millisecond)
	c.Tick()
	assert.Equal(t, 516*time.Millisecond, c.Now())
}

func TestClock_FrozenWhilePaused(t *testing.T) {
	wall := newFakeWallClock()
	c := NewClock(wall.Now)
	c.Reset()

	wall.Advance(2 * time.Second)
	c.Tick()
	assert.Equal(t, 2*time.Second, c.Now())

	c.Pause(0)
	assert.True(t, c.IsPaused())

	wall.Advance(5 * time.Second)
	c.Tick()
	assert.Equal(t, 2*time.Second, c.Now(), "elapsed must not advance while paused")
	assert.True(t, c.IsPaused(), "an indefinite pause never lifts on its own")

	c.Resume()
	assert.False(t, c.IsPaused())
	wall.Advance(100 * time.Millisecond)
	c.Tick()
	assert.Equal(t, 2100*time.Millisecond, c.Now(), "pause wall time is discarded")
}

func TestClock_TimedHoldLiftsAutonomously(t *testing.T) {
	wall := newFakeWallClock()
	c := NewClock(wall.Now)
	c.Reset()

	wall.Advance(time.Second)
	c.Tick()
	c.Pause(1500 * time.Millisecond)

	wall.Advance(1 * time.Second)
	c.Tick()
	assert.True(t, c.IsPaused(), "hold not elapsed yet")
	assert.Equal(t, time.Second, c.Now())

	wall.Advance(600 * time.Millisecond)
	c.Tick()
	assert.False(t, c.IsPaused(), "hold elapsed on wall clock")
	assert.Equal(t, time.Second, c.Now())

	wall.Advance(250 * time.Millisecond)
	c.Tick()
	assert.Equal(t, 1250*time.Millisecond, c.Now())
}

func TestClock_PauseWhilePausedIsNoop(t *testing.T) {
	wall := newFakeWallClock()
	c := NewClock(wall.Now)
	c.Reset()

	c.Pause(100 * time.Millisecond)
	wall.Advance(80 * time.Millisecond)
	c.Tick()

	// A second pause must not restart the hold window.
	c.Pause(10 * time.Second)
	wall.Advance(30 * time.Millisecond)
	c.Tick()
	assert.False(t, c.IsPaused())
}

func TestClock_TickBeforeResetIsNoop(t *testing.T) {
	wall := newFakeWallClock()
	c := NewClock(wall.Now)

	wall.Advance(time.Hour)
	c.Tick()
	assert.Equal(t, time.Duration(0), c.Now())
}
