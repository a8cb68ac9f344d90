package replay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"reviewsync/internal/core/domain"
	"reviewsync/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeMedia is a controllable ports.MediaResource. All fields are guarded
// because the synchronizer drives it from the replay goroutine while the test
// mutates and inspects it.
type fakeMedia struct {
	mu         sync.Mutex
	loadErr    error
	playErr    error
	runtimeErr error
	playing    bool
	ended      bool
	pos        time.Duration
	duration   time.Duration
	playCalls  int
	pauseCalls int
	seeks      []time.Duration
}

func (f *fakeMedia) Load(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loadErr
}

func (f *fakeMedia) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playCalls++
	if f.playErr != nil {
		return f.playErr
	}
	f.playing = true
	return nil
}

func (f *fakeMedia) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauseCalls++
	f.playing = false
}

func (f *fakeMedia) Position() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

func (f *fakeMedia) Seek(pos time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, pos)
	f.pos = pos
}

func (f *fakeMedia) Duration() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duration
}

func (f *fakeMedia) Playing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *fakeMedia) Ended() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ended
}

func (f *fakeMedia) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runtimeErr
}

func (f *fakeMedia) setPos(pos time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos = pos
}

func (f *fakeMedia) setEnded() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = true
	f.playing = false
}

func (f *fakeMedia) setRuntimeErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runtimeErr = err
}

func (f *fakeMedia) seekCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seeks)
}

func (f *fakeMedia) lastSeek() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.seeks) == 0 {
		return -1
	}
	return f.seeks[len(f.seeks)-1]
}

func testConfig() Config {
	return Config{
		TickInterval:   10 * time.Millisecond,
		DriftTolerance: 100 * time.Millisecond,
		SettleDelay:    0,
	}
}

func newTestSynchronizer(t *testing.T, actions []domain.Action, video, audio ports.MediaResource) (*Synchronizer, *fakeWallClock, *ManualTicker) {
	t.Helper()
	wall := newFakeWallClock()
	ticker := NewManualTicker()
	s := New("sess-test", domain.NewTimeline(actions), video, audio, testConfig(), zap.NewNop().Sugar())
	s.SetNowFunc(wall.Now)
	s.SetTickerFactory(func(time.Duration) ports.Ticker { return ticker })
	return s, wall, ticker
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	assert.Eventually(t, cond, 2*time.Second, time.Millisecond, msg)
}

func TestSynchronizer_PauseHoldResumesAutonomously(t *testing.T) {
	video := &fakeMedia{duration: time.Minute}
	audio := &fakeMedia{duration: time.Minute}
	s, wall, ticker := newTestSynchronizer(t, []domain.Action{
		{Type: domain.ActionPlay, Timestamp: 0},
		{Type: domain.ActionPause, Timestamp: 2000, HoldDuration: 1500},
	}, video, audio)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.True(t, video.Playing(), "playback begins on Start")

	// Cross the pause action.
	wall.Advance(2100 * time.Millisecond)
	ticker.Tick(wall.Now())
	eventually(t, func() bool {
		st := s.Status()
		return st.Paused && st.ActionsExecuted == 2
	}, "pause action executed")
	assert.Equal(t, domain.StatePausedPendingResume, s.State())
	assert.False(t, video.Playing())
	assert.False(t, audio.Playing())
	frozen := s.Status().ClockMs

	// Mid-hold: clock stays frozen no matter how much wall time passes.
	wall.Advance(1000 * time.Millisecond)
	ticker.Tick(wall.Now())
	wall.Advance(100 * time.Millisecond)
	ticker.Tick(wall.Now())
	assert.Equal(t, frozen, s.Status().ClockMs)
	assert.True(t, s.Status().Paused)

	// Hold elapsed on the wall clock: playback resumes without an action.
	wall.Advance(600 * time.Millisecond)
	ticker.Tick(wall.Now())
	eventually(t, func() bool {
		return s.State() == domain.StateRunning && video.Playing()
	}, "playback resumed after hold expiry")
	assert.Equal(t, frozen, s.Status().ClockMs, "pause wall time is discarded")

	wall.Advance(500 * time.Millisecond)
	ticker.Tick(wall.Now())
	ticker.Tick(wall.Now())
	assert.Equal(t, frozen+500, s.Status().ClockMs)
}

func TestSynchronizer_EmptyTimelinePlaysThrough(t *testing.T) {
	video := &fakeMedia{duration: 3 * time.Second}
	s, wall, ticker := newTestSynchronizer(t, nil, video, nil)

	var completions int32
	s.OnComplete(func() { atomic.AddInt32(&completions, 1) })

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.True(t, video.Playing(), "empty log means play straight through")
	assert.False(t, s.Status().AudioAvailable)

	// Clock advances linearly with wall time while nothing is scripted.
	wall.Advance(time.Second)
	ticker.Tick(wall.Now())
	wall.Advance(time.Second)
	ticker.Tick(wall.Now())
	eventually(t, func() bool { return s.Status().ClockMs == 2000 }, "clock tracks wall time")

	video.setEnded()
	wall.Advance(time.Second)
	ticker.Tick(wall.Now())
	eventually(t, func() bool { return s.State() == domain.StateCompleted }, "replay completes")
	eventually(t, func() bool { return atomic.LoadInt32(&completions) == 1 }, "completion callback fired")

	// Completion ends the tick loop: the goroutine exits without a Stop call
	// and the callback stays fired exactly once.
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tick loop still running after completion")
	}
	assert.Equal(t, domain.StateCompleted, s.State())
	assert.Equal(t, int32(1), atomic.LoadInt32(&completions))
}

func TestSynchronizer_SnapsAudioOnDrift(t *testing.T) {
	video := &fakeMedia{duration: time.Minute}
	audio := &fakeMedia{duration: time.Minute}
	s, wall, ticker := newTestSynchronizer(t, []domain.Action{
		{Type: domain.ActionPlay, Timestamp: 0},
	}, video, audio)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	wall.Advance(50 * time.Millisecond)
	ticker.Tick(wall.Now())
	eventually(t, func() bool { return s.Status().ActionsExecuted == 1 }, "play action executed")

	video.setPos(1000 * time.Millisecond)
	audio.setPos(1300 * time.Millisecond)

	wall.Advance(100 * time.Millisecond)
	ticker.Tick(wall.Now())
	eventually(t, func() bool { return s.Status().DriftCorrections == 1 }, "drift beyond tolerance corrected")
	assert.Equal(t, 1000*time.Millisecond, audio.lastSeek(), "audio snapped to the video position")
	assert.Equal(t, video.Position(), audio.Position())

	// Within tolerance nothing moves.
	audio.setPos(1050 * time.Millisecond)
	wall.Advance(100 * time.Millisecond)
	ticker.Tick(wall.Now())
	ticker.Tick(wall.Now())
	assert.Equal(t, int64(1), s.Status().DriftCorrections)
	assert.Equal(t, 1050*time.Millisecond, audio.Position())
}

func TestSynchronizer_SeekIsExact(t *testing.T) {
	video := &fakeMedia{duration: time.Minute}
	audio := &fakeMedia{duration: time.Minute}
	s, wall, ticker := newTestSynchronizer(t, []domain.Action{
		{Type: domain.ActionPlay, Timestamp: 0},
		{Type: domain.ActionSeek, Timestamp: 1000, MediaPosition: 12.5},
	}, video, audio)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	wall.Advance(1100 * time.Millisecond)
	ticker.Tick(wall.Now())
	eventually(t, func() bool { return s.Status().ActionsExecuted == 2 }, "seek action executed")
	assert.Equal(t, 12500*time.Millisecond, video.lastSeek())
	assert.Equal(t, 12500*time.Millisecond, audio.lastSeek())
}

func TestSynchronizer_CatchUpExecutesEachActionOnce(t *testing.T) {
	video := &fakeMedia{duration: time.Minute}
	s, wall, ticker := newTestSynchronizer(t, []domain.Action{
		{Type: domain.ActionSeek, Timestamp: 100, MediaPosition: 1},
		{Type: domain.ActionSeek, Timestamp: 200, MediaPosition: 2},
		{Type: domain.ActionSeek, Timestamp: 300, MediaPosition: 3},
	}, video, nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	// One late tick crosses all three timestamps at once.
	wall.Advance(time.Second)
	ticker.Tick(wall.Now())
	eventually(t, func() bool { return s.Status().ActionsExecuted == 3 }, "all due actions caught up")

	// Start seeks to the first action's position, then each seek runs once.
	assert.Equal(t, 4, video.seekCount())

	wall.Advance(100 * time.Millisecond)
	ticker.Tick(wall.Now())
	ticker.Tick(wall.Now())
	assert.Equal(t, 4, video.seekCount(), "actions never run twice")
	assert.Equal(t, 3, s.Status().ActionsExecuted)
}

func TestSynchronizer_IndefinitePause(t *testing.T) {
	t.Run("lifted by a play action at the frozen timestamp", func(t *testing.T) {
		video := &fakeMedia{duration: time.Minute}
		s, wall, ticker := newTestSynchronizer(t, []domain.Action{
			{Type: domain.ActionPause, Timestamp: 2000},
			{Type: domain.ActionPlay, Timestamp: 2000},
		}, video, nil)
		require.NoError(t, s.Start(context.Background()))
		defer s.Stop()

		wall.Advance(2 * time.Second)
		ticker.Tick(wall.Now())
		eventually(t, func() bool {
			st := s.Status()
			return st.Paused && st.ActionsExecuted == 1
		}, "pause froze the clock before the play was considered")

		// The play shares the frozen timestamp, so the next tick lifts it.
		ticker.Tick(wall.Now())
		eventually(t, func() bool {
			st := s.Status()
			return !st.Paused && st.ActionsExecuted == 2 && video.Playing()
		}, "play at the frozen timestamp resumes")
	})

	t.Run("lifted by external resume", func(t *testing.T) {
		video := &fakeMedia{duration: time.Minute}
		s, wall, ticker := newTestSynchronizer(t, []domain.Action{
			{Type: domain.ActionPlay, Timestamp: 0},
			{Type: domain.ActionPause, Timestamp: 1000},
		}, video, nil)
		require.NoError(t, s.Start(context.Background()))
		defer s.Stop()

		wall.Advance(1100 * time.Millisecond)
		ticker.Tick(wall.Now())
		eventually(t, func() bool { return s.Status().Paused }, "indefinite pause reached")

		wall.Advance(time.Hour)
		ticker.Tick(wall.Now())
		ticker.Tick(wall.Now())
		assert.True(t, s.Status().Paused, "never lifts on its own")

		s.Resume()
		eventually(t, func() bool {
			return !s.Status().Paused && video.Playing()
		}, "external resume lifts the pause")
	})
}

func TestSynchronizer_StartsPausedWhenFirstActionIsPause(t *testing.T) {
	video := &fakeMedia{duration: time.Minute}
	s, _, _ := newTestSynchronizer(t, []domain.Action{
		{Type: domain.ActionPause, Timestamp: 0},
		{Type: domain.ActionPlay, Timestamp: 0},
	}, video, nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.False(t, video.Playing(), "no playback before the opening pause is processed")
}

func TestSynchronizer_AudioFailuresDegrade(t *testing.T) {
	t.Run("load failure", func(t *testing.T) {
		video := &fakeMedia{duration: time.Minute}
		audio := &fakeMedia{loadErr: errors.New("codec unsupported")}
		s, _, _ := newTestSynchronizer(t, []domain.Action{
			{Type: domain.ActionPlay, Timestamp: 0},
		}, video, audio)

		require.NoError(t, s.Start(context.Background()), "audio failure never blocks playback")
		defer s.Stop()

		assert.False(t, s.Status().AudioAvailable)
		assert.True(t, video.Playing())
		assert.Equal(t, 0, audio.playCalls)
	})

	t.Run("runtime failure", func(t *testing.T) {
		video := &fakeMedia{duration: time.Minute}
		audio := &fakeMedia{duration: time.Minute}
		s, wall, ticker := newTestSynchronizer(t, []domain.Action{
			{Type: domain.ActionPlay, Timestamp: 0},
		}, video, audio)
		require.NoError(t, s.Start(context.Background()))
		defer s.Stop()

		assert.True(t, s.Status().AudioAvailable)

		audio.setRuntimeErr(errors.New("decoder stall"))
		wall.Advance(50 * time.Millisecond)
		ticker.Tick(wall.Now())
		eventually(t, func() bool {
			st := s.Status()
			return !st.AudioAvailable && st.State == domain.StateRunning.String()
		}, "audio degraded, replay continues")
		assert.False(t, audio.Playing())
		assert.True(t, video.Playing())
	})

	t.Run("absent audio is not an error", func(t *testing.T) {
		video := &fakeMedia{duration: time.Minute}
		s, _, _ := newTestSynchronizer(t, []domain.Action{
			{Type: domain.ActionPlay, Timestamp: 0},
		}, video, nil)

		require.NoError(t, s.Start(context.Background()))
		defer s.Stop()
		assert.False(t, s.Status().AudioAvailable)
		assert.Equal(t, domain.StateRunning, s.State())
	})
}

func TestSynchronizer_VideoFailuresAreFatal(t *testing.T) {
	t.Run("load failure aborts start", func(t *testing.T) {
		video := &fakeMedia{loadErr: errors.New("404")}
		s, _, _ := newTestSynchronizer(t, nil, video, nil)

		err := s.Start(context.Background())
		require.Error(t, err)
		assert.True(t, domain.IsFatalMedia(err))
		assert.Equal(t, domain.StateErrored, s.State())
	})

	t.Run("runtime failure aborts replay", func(t *testing.T) {
		video := &fakeMedia{duration: time.Minute}
		s, wall, ticker := newTestSynchronizer(t, []domain.Action{
			{Type: domain.ActionPlay, Timestamp: 0},
		}, video, nil)
		require.NoError(t, s.Start(context.Background()))

		video.setRuntimeErr(errors.New("stream reset"))
		wall.Advance(50 * time.Millisecond)
		ticker.Tick(wall.Now())
		eventually(t, func() bool { return s.State() == domain.StateErrored }, "video error is fatal")
		assert.True(t, domain.IsFatalMedia(s.Err()))
		assert.False(t, video.Playing())

		s.Stop()
		assert.Equal(t, domain.StateIdle, s.State())
	})
}

func TestSynchronizer_StopIsIdempotent(t *testing.T) {
	video := &fakeMedia{duration: time.Minute}
	audio := &fakeMedia{duration: time.Minute}
	s, _, _ := newTestSynchronizer(t, []domain.Action{
		{Type: domain.ActionPlay, Timestamp: 0},
	}, video, audio)
	require.NoError(t, s.Start(context.Background()))

	s.Stop()
	assert.Equal(t, domain.StateIdle, s.State())
	assert.False(t, video.Playing())
	assert.False(t, audio.Playing())
	pauses := video.pauseCalls

	s.Stop()
	s.Stop()
	assert.Equal(t, domain.StateIdle, s.State())
	assert.Equal(t, pauses, video.pauseCalls, "repeat stops are no-ops")
}

func TestSynchronizer_StartWhileActiveIsRejected(t *testing.T) {
	video := &fakeMedia{duration: time.Minute}
	s, _, _ := newTestSynchronizer(t, []domain.Action{
		{Type: domain.ActionPlay, Timestamp: 0},
	}, video, nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	err := s.Start(context.Background())
	assert.ErrorIs(t, err, domain.ErrReplayActive)
}

func TestSynchronizer_RestartAfterStop(t *testing.T) {
	video := &fakeMedia{duration: time.Minute}
	s, wall, ticker := newTestSynchronizer(t, []domain.Action{
		{Type: domain.ActionPlay, Timestamp: 0},
	}, video, nil)
	require.NoError(t, s.Start(context.Background()))

	wall.Advance(500 * time.Millisecond)
	ticker.Tick(wall.Now())
	ticker.Tick(wall.Now())
	s.Stop()

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	assert.Equal(t, domain.StateRunning, s.State())
	st := s.Status()
	assert.Equal(t, int64(0), st.ClockMs, "restart begins from a fresh clock")
	assert.Equal(t, 0, st.ActionsExecuted)
}
