package replay

import "time"

// Clock is the single authoritative elapsed-time source for a replay session.
// It advances by wall-clock delta on each Tick, except while paused, during
// which elapsed time is frozen. Timed holds are measured against wall clock
// (not the frozen elapsed time); hold expiry is the only transition in the
// system that happens without a scheduled action being crossed.
//
// No other component reads wall clock directly; everything derives its notion
// of "how far into the replay are we" from Now. The wall-clock source is
// injected so tests control time. Clock is not safe for concurrent use: it is
// owned by the synchronizer's tick loop and guarded by its lock.
type Clock struct {
	now      func() time.Time
	last     time.Time
	elapsed  time.Duration
	running  bool
	paused   bool
	pausedAt time.Time
	hold     time.Duration
}

func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Reset rewinds the clock to zero and starts it.
func (c *Clock) Reset() {
	c.elapsed = 0
	c.paused = false
	c.hold = 0
	c.running = true
	c.last = c.now()
}

// Tick advances elapsed time by the wall-clock delta since the previous tick.
// While paused the delta is discarded; if a timed hold has run out, the clock
// unfreezes autonomously and elapsed time resumes on the next tick.
func (c *Clock) Tick() {
	if !c.running {
		return
	}
	n := c.now()
	if c.paused {
		if c.hold > 0 && n.Sub(c.pausedAt) >= c.hold {
			c.paused = false
		}
		c.last = n
		return
	}
	c.elapsed += n.Sub(c.last)
	c.last = n
}

// Now returns elapsed replay time.
func (c *Clock) Now() time.Duration {
	return c.elapsed
}

func (c *Clock) IsPaused() bool {
	return c.paused
}

// Pause freezes elapsed time. hold > 0 requests an autonomous unfreeze once
// that much wall time has passed; hold == 0 freezes indefinitely until Resume.
// Pausing an already paused clock is a no-op.
func (c *Clock) Pause(hold time.Duration) {
	if c.paused {
		return
	}
	c.paused = true
	c.pausedAt = c.now()
	c.hold = hold
}

// Resume lifts a pause immediately, regardless of any pending hold.
func (c *Clock) Resume() {
	if !c.paused {
		return
	}
	c.paused = false
	c.hold = 0
	c.last = c.now()
}
