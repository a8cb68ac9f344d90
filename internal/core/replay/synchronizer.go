package replay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"reviewsync/internal/core/domain"
	"reviewsync/internal/core/ports"

	"go.uber.org/zap"
)

// Config carries the synchronizer's scheduling parameters. There is exactly
// one drift tolerance for the whole engine; per-player tolerances are gone.
type Config struct {
	// TickInterval is the scheduling granularity, one tick per interval.
	TickInterval time.Duration
	// DriftTolerance is the maximum |audio - video| position gap before the
	// audio track is snapped to the video position.
	DriftTolerance time.Duration
	// SettleDelay is how long Start waits after loading before seeking, so
	// freshly buffered resources accept position changes.
	SettleDelay time.Duration
	// MinOpacity is the fade floor for rendered strokes.
	MinOpacity float64
}

func DefaultConfig() Config {
	return Config{
		TickInterval:   15 * time.Millisecond,
		DriftTolerance: 100 * time.Millisecond,
		SettleDelay:    200 * time.Millisecond,
		MinOpacity:     DefaultMinOpacity,
	}
}

type playResult struct {
	video bool
	gen   uint64
	err   error
}

// Synchronizer replays a recorded critique session: it consumes the timeline
// and the clock, drives the video and optional audio handles to match the
// recorded actions, and corrects clock drift between the two streams.
//
// The video is always the reference clock and audio the follower. Visual
// continuity matters more than audio continuity for a critique review, and
// snapping the more forgiving stream avoids visible video judder.
//
// All engine state is owned by the tick loop goroutine and guarded by mu for
// the external Start/Stop/Resume/Status surface. Asynchronous play-request
// resolutions are routed back into the loop rather than mutating state from
// their own goroutines.
type Synchronizer struct {
	cfg       Config
	sessionID domain.SessionID
	timeline  *domain.Timeline
	video     ports.MediaResource
	audio     ports.MediaResource
	logger    *zap.SugaredLogger

	now       func() time.Time
	newTicker ports.TickerFactory
	metrics   ports.ReplayMetrics

	onComplete func()
	onFrame    func(domain.ReplayStatus)

	mu               sync.Mutex
	clock            *Clock
	state            domain.ReplayState
	cursor           int
	loaded           bool
	audioAvailable   bool
	playGen          uint64
	playResults      chan playResult
	driftCorrections int64
	lastDrift        time.Duration
	lastErr          error
	completedFired   bool
	stopRequested    bool
	stopCh           chan struct{}
	done             chan struct{}
}

// New builds a synchronizer for one replay. audio may be nil; the absence of
// a voice-over track is a supported state, not an error.
func New(sessionID domain.SessionID, timeline *domain.Timeline, video, audio ports.MediaResource, cfg Config, logger *zap.SugaredLogger) *Synchronizer {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}
	if cfg.DriftTolerance <= 0 {
		cfg.DriftTolerance = DefaultConfig().DriftTolerance
	}
	s := &Synchronizer{
		cfg:       cfg,
		sessionID: sessionID,
		timeline:  timeline,
		video:     video,
		audio:     audio,
		logger:    logger,
		now:       time.Now,
		newTicker: NewIntervalTicker,
		state:     domain.StateIdle,
	}
	s.clock = NewClock(s.now)
	return s
}

// SetNowFunc replaces the wall-clock source. Call before Start.
func (s *Synchronizer) SetNowFunc(now func() time.Time) {
	s.now = now
	s.clock = NewClock(now)
}

// SetTickerFactory replaces the tick source. Call before Start.
func (s *Synchronizer) SetTickerFactory(f ports.TickerFactory) {
	s.newTicker = f
}

func (s *Synchronizer) SetMetrics(m ports.ReplayMetrics) {
	s.metrics = m
}

// OnComplete registers the completion callback, invoked exactly once per
// successful full playback, from the replay goroutine.
func (s *Synchronizer) OnComplete(fn func()) {
	s.onComplete = fn
}

// OnFrame registers a per-tick status sink. The sink runs on the replay
// goroutine and must not call back into the synchronizer.
func (s *Synchronizer) OnFrame(fn func(domain.ReplayStatus)) {
	s.onFrame = fn
}

// Start loads both media resources, seeks to the position implied by the
// first action, matches the first action's playback state and begins the tick
// loop. It returns once playback has genuinely begun. A video failure aborts
// with a FatalMediaError; audio failure never blocks playback.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != domain.StateIdle && s.state != domain.StateErrored {
		s.mu.Unlock()
		return domain.ErrReplayActive
	}
	s.resetLocked()
	s.state = domain.StateStarting
	s.mu.Unlock()

	if err := s.video.Load(ctx); err != nil {
		return s.fatal(fmt.Errorf("load video: %w", err))
	}
	audioAvailable := false
	if s.audio != nil {
		if err := s.audio.Load(ctx); err != nil {
			s.logger.Warnw("audio unavailable, continuing video-only",
				"session_id", s.sessionID,
				"error", (&domain.DegradedMediaError{Resource: "audio", Err: err}).Error(),
			)
		} else {
			audioAvailable = true
		}
	}

	if s.cfg.SettleDelay > 0 {
		select {
		case <-ctx.Done():
			s.Stop()
			return ctx.Err()
		case <-time.After(s.cfg.SettleDelay):
		}
	}

	s.mu.Lock()
	if s.state != domain.StateStarting || s.stopRequested {
		// Stop won the race during buffering; stay idle.
		s.mu.Unlock()
		return nil
	}
	s.loaded = true
	s.audioAvailable = audioAvailable

	pos := s.timeline.FirstPosition()
	s.video.Seek(pos)
	if s.audioAvailable {
		s.audio.Seek(pos)
	}

	startPaused := !s.timeline.Empty() && s.timeline.At(0).Type == domain.ActionPause
	if startPaused {
		s.video.Pause()
		if s.audioAvailable {
			s.audio.Pause()
		}
	} else {
		// An empty timeline means "play straight through": one immediate play
		// and no scripted events after it.
		if err := s.video.Play(); err != nil {
			s.mu.Unlock()
			return s.fatal(fmt.Errorf("begin playback: %w", err))
		}
		if s.audioAvailable {
			if err := s.audio.Play(); err != nil {
				s.degradeAudioLocked(err)
			}
		}
	}

	s.playResults = make(chan playResult, 4)
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	s.clock.Reset()
	s.state = domain.StateRunning
	stopCh, done := s.stopCh, s.done
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ReplayStarted(s.sessionID)
	}
	s.logger.Infow("replay started",
		"session_id", s.sessionID,
		"actions", s.timeline.Len(),
		"audio", audioAvailable,
	)

	go s.loop(stopCh, done)
	return nil
}

// Stop pauses both resources, cancels the pending resume (if any) and returns
// the synchronizer to idle. It is idempotent and safe to call from any state,
// including during Start's buffering phase.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	if s.state == domain.StateIdle {
		s.mu.Unlock()
		return
	}
	s.stopRequested = true
	if s.stopCh != nil {
		select {
		case <-s.stopCh:
		default:
			close(s.stopCh)
		}
	}
	if s.loaded {
		s.pauseMediaLocked()
	}
	s.clock.Resume()
	s.state = domain.StateIdle
	done := s.done
	s.mu.Unlock()

	if done != nil {
		<-done
	}
	if s.metrics != nil {
		s.metrics.ReplayStopped(s.sessionID)
	}
}

// Resume lifts an indefinite recorded pause on external command, the same way
// a later explicit play action would.
func (s *Synchronizer) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StateRunning && s.state != domain.StatePausedPendingResume {
		return
	}
	if !s.clock.IsPaused() {
		return
	}
	s.clock.Resume()
	s.resumeMediaLocked()
	s.state = domain.StateRunning
}

// State returns the current lifecycle state.
func (s *Synchronizer) State() domain.ReplayState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that moved the synchronizer to the errored state.
func (s *Synchronizer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Status snapshots the replay for the API and the frame feed.
func (s *Synchronizer) Status() domain.ReplayStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Synchronizer) statusLocked() domain.ReplayStatus {
	st := domain.ReplayStatus{
		SessionID:        s.sessionID,
		State:            s.state.String(),
		ClockMs:          s.clock.Now().Milliseconds(),
		Paused:           s.clock.IsPaused(),
		AudioAvailable:   s.audioAvailable,
		ActionsExecuted:  s.cursor,
		ActionsTotal:     s.timeline.Len(),
		DriftCorrections: s.driftCorrections,
		LastDriftMs:      s.lastDrift.Milliseconds(),
	}
	if s.loaded {
		st.VideoPositionMs = s.video.Position().Milliseconds()
		if s.audioAvailable {
			st.AudioPositionMs = s.audio.Position().Milliseconds()
		}
	}
	return st
}

func (s *Synchronizer) resetLocked() {
	s.cursor = 0
	s.loaded = false
	s.audioAvailable = false
	s.driftCorrections = 0
	s.lastDrift = 0
	s.lastErr = nil
	s.completedFired = false
	s.stopRequested = false
	s.stopCh = nil
	s.done = nil
}

func (s *Synchronizer) loop(stopCh chan struct{}, done chan struct{}) {
	defer close(done)
	ticker := s.newTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C():
			if exit := s.tick(); exit {
				return
			}
		case r := <-s.playResults:
			if exit := s.handlePlayResult(r); exit {
				return
			}
		}
	}
}

// tick is one scheduling pass: advance the clock, execute every action whose
// timestamp has been crossed, correct drift and check completion. Returns
// true when the loop should exit.
func (s *Synchronizer) tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateRunning && s.state != domain.StatePausedPendingResume {
		return false
	}

	if err := s.video.Err(); err != nil {
		s.failLocked(err)
		return true
	}
	if s.audioAvailable {
		if err := s.audio.Err(); err != nil {
			s.degradeAudioLocked(err)
		}
	}

	wasPaused := s.clock.IsPaused()
	s.clock.Tick()

	// A timed hold ran out: the clock unfroze autonomously, resume playback
	// without a scripted action.
	if s.state == domain.StatePausedPendingResume && wasPaused && !s.clock.IsPaused() {
		s.resumeMediaLocked()
		s.state = domain.StateRunning
	}

	// The cursor only moves forward and catches up fully each tick, so no
	// action is skipped under scheduling jitter and none runs twice. The
	// clock is re-read every iteration: once an executed pause freezes it,
	// later timestamps are no longer due.
	for s.cursor < s.timeline.Len() && s.timeline.At(s.cursor).At() <= s.clock.Now() {
		a := s.timeline.At(s.cursor)
		s.cursor++
		s.executeLocked(a)
		if s.clock.IsPaused() {
			break
		}
	}

	s.correctDriftLocked()

	completed := false
	if s.cursor >= s.timeline.Len() && !s.clock.IsPaused() && s.loaded && s.video.Ended() {
		s.state = domain.StateCompleted
		completed = true
		if !s.completedFired {
			s.completedFired = true
			if s.metrics != nil {
				s.metrics.ReplayCompleted(s.sessionID)
			}
			s.logger.Infow("replay completed", "session_id", s.sessionID)
			if s.onComplete != nil {
				go s.onComplete()
			}
		}
	}

	if s.onFrame != nil {
		s.onFrame(s.statusLocked())
	}
	// Completion ends the loop; there is nothing left to schedule and the
	// ticker should not keep a finished replay's goroutine alive.
	return completed
}

func (s *Synchronizer) executeLocked(a domain.Action) {
	if s.metrics != nil {
		s.metrics.ActionExecuted(string(a.Type))
	}
	switch a.Type {
	case domain.ActionPlay:
		if s.clock.IsPaused() {
			s.clock.Resume()
		}
		s.resumeMediaLocked()
		if s.state == domain.StatePausedPendingResume {
			s.state = domain.StateRunning
		}
	case domain.ActionPause:
		s.pauseMediaLocked()
		s.clock.Pause(a.Hold())
		if a.Hold() > 0 {
			s.state = domain.StatePausedPendingResume
		}
	case domain.ActionSeek:
		// Seeks are exact: both resources move to the recorded position,
		// bypassing the drift tolerance.
		s.video.Seek(a.Position())
		if s.audioAvailable {
			s.audio.Seek(a.Position())
		}
	default:
		s.logger.Warnw("unknown action type skipped",
			"session_id", s.sessionID,
			"type", a.Type,
			"timestamp_ms", a.Timestamp,
		)
	}
}

func (s *Synchronizer) correctDriftLocked() {
	if !s.audioAvailable || !s.loaded {
		return
	}
	drift := s.audio.Position() - s.video.Position()
	s.lastDrift = drift
	if drift < 0 {
		drift = -drift
	}
	if drift <= s.cfg.DriftTolerance {
		return
	}
	s.audio.Seek(s.video.Position())
	s.driftCorrections++
	if s.metrics != nil {
		s.metrics.DriftCorrected(drift.Seconds())
	}
	s.logger.Debugw("audio snapped to video position",
		"session_id", s.sessionID,
		"drift_ms", drift.Milliseconds(),
		"video_position_ms", s.video.Position().Milliseconds(),
	)
}

func (s *Synchronizer) resumeMediaLocked() {
	if s.audioAvailable {
		gap := s.audio.Position() - s.video.Position()
		if gap < 0 {
			gap = -gap
		}
		if gap > s.cfg.DriftTolerance {
			s.audio.Seek(s.video.Position())
		}
	}
	if !s.video.Playing() {
		s.requestPlayLocked(s.video, true)
	}
	if s.audioAvailable && !s.audio.Playing() {
		s.requestPlayLocked(s.audio, false)
	}
}

func (s *Synchronizer) pauseMediaLocked() {
	// Invalidate in-flight play requests: their rejections are benign now.
	s.playGen++
	s.video.Pause()
	if s.audioAvailable {
		s.audio.Pause()
	}
}

func (s *Synchronizer) requestPlayLocked(res ports.MediaResource, video bool) {
	gen := s.playGen
	results, stopCh := s.playResults, s.stopCh
	go func() {
		err := res.Play()
		select {
		case results <- playResult{video: video, gen: gen, err: err}:
		case <-stopCh:
		}
	}()
}

// handlePlayResult classifies a resolved play request. Rejections that lost a
// race with a subsequent pause are benign; a video rejection with the element
// confirmed stalled is fatal. Returns true when the loop should exit.
func (s *Synchronizer) handlePlayResult(r playResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.err == nil {
		return false
	}
	if r.gen != s.playGen {
		s.logger.Debugw("play request rejected after pause, ignoring",
			"session_id", s.sessionID,
			"video", r.video,
			"error", r.err,
		)
		return false
	}
	if !r.video {
		s.degradeAudioLocked(r.err)
		return false
	}
	stalled := s.video.Err() != nil ||
		(s.state == domain.StateRunning && !s.clock.IsPaused() && !s.video.Playing())
	if stalled {
		s.failLocked(fmt.Errorf("video play request rejected: %w", r.err))
		return true
	}
	s.logger.Warnw("video play request rejected but playback continues",
		"session_id", s.sessionID,
		"error", r.err,
	)
	return false
}

func (s *Synchronizer) degradeAudioLocked(err error) {
	if !s.audioAvailable {
		return
	}
	s.audioAvailable = false
	s.audio.Pause()
	s.logger.Warnw("audio degraded, continuing video-only",
		"session_id", s.sessionID,
		"error", (&domain.DegradedMediaError{Resource: "audio", Err: err}).Error(),
	)
}

func (s *Synchronizer) failLocked(err error) {
	s.lastErr = &domain.FatalMediaError{Resource: "video", Err: err}
	s.state = domain.StateErrored
	if s.loaded {
		s.pauseMediaLocked()
	}
	s.clock.Resume()
	if s.metrics != nil {
		s.metrics.ReplayErrored(s.sessionID)
	}
	s.logger.Errorw("replay aborted",
		"session_id", s.sessionID,
		"error", s.lastErr,
	)
}

// fatal is failLocked for the Start path, where the caller still expects the
// typed error back.
func (s *Synchronizer) fatal(err error) error {
	s.mu.Lock()
	s.failLocked(err)
	fatalErr := s.lastErr
	s.mu.Unlock()
	return fatalErr
}
