package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"reviewsync/internal/core/domain"
	"reviewsync/internal/core/ports"
	"reviewsync/internal/core/replay"
	"reviewsync/pkg/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// activeReplay is one live synchronizer plus its frame subscribers.
type activeReplay struct {
	synchronizer *replay.Synchronizer
	renderer     *replay.Renderer

	mu      sync.Mutex
	subs    map[int]chan domain.ReplayFrame
	nextSub int
	closed  bool
}

func (a *activeReplay) subscribe() (<-chan domain.ReplayFrame, func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextSub
	a.nextSub++
	ch := make(chan domain.ReplayFrame, 16)
	if a.closed {
		close(ch)
		return ch, func() {}
	}
	a.subs[id] = ch
	return ch, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if _, ok := a.subs[id]; ok {
			delete(a.subs, id)
			close(ch)
		}
	}
}

// publish fans one frame out to every subscriber. Slow consumers lose frames
// rather than stalling the replay goroutine.
func (a *activeReplay) publish(frame domain.ReplayFrame) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	for _, ch := range a.subs {
		select {
		case ch <- frame:
		default:
		}
	}
}

func (a *activeReplay) closeSubs() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	for id, ch := range a.subs {
		delete(a.subs, id)
		close(ch)
	}
}

type replayService struct {
	sessionRepo ports.SessionRepository
	actionRepo  ports.ActionLogRepository
	strokeRepo  ports.StrokeRepository
	media       ports.MediaFactory
	metrics     ports.ReplayMetrics
	cfg         replay.Config
	logger      *zap.SugaredLogger

	mu     sync.Mutex
	active map[domain.SessionID]*activeReplay
}

func NewReplayService(
	sessionRepo ports.SessionRepository,
	actionRepo ports.ActionLogRepository,
	strokeRepo ports.StrokeRepository,
	media ports.MediaFactory,
	metrics ports.ReplayMetrics,
	cfg replay.Config,
	logger *zap.SugaredLogger,
) ports.ReplayService {
	return &replayService{
		sessionRepo: sessionRepo,
		actionRepo:  actionRepo,
		strokeRepo:  strokeRepo,
		media:       media,
		metrics:     metrics,
		cfg:         cfg,
		logger:      logger,
		active:      make(map[domain.SessionID]*activeReplay),
	}
}

func (s *replayService) CreateSession(ctx context.Context, title, videoURL, audioURL string, durationSeconds float64) (*domain.Session, error) {
	if err := validation.ValidateSessionTitle(title); err != nil {
		return nil, err
	}
	if err := validation.ValidateMediaURL(videoURL); err != nil {
		return nil, fmt.Errorf("video url: %w", err)
	}
	if audioURL != "" {
		if err := validation.ValidateMediaURL(audioURL); err != nil {
			return nil, fmt.Errorf("audio url: %w", err)
		}
	}
	if err := validation.ValidateDurationSeconds(durationSeconds); err != nil {
		return nil, err
	}

	session := &domain.Session{
		ID:              domain.SessionID(uuid.NewString()),
		Title:           title,
		VideoURL:        videoURL,
		AudioURL:        audioURL,
		DurationSeconds: durationSeconds,
		CreatedAt:       time.Now(),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Infow("session created",
		"session_id", session.ID,
		"title", session.Title,
		"audio", session.HasAudio(),
	)
	return session, nil
}

func (s *replayService) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	return s.sessionRepo.GetByID(ctx, id)
}

func (s *replayService) ListSessions(ctx context.Context) ([]*domain.Session, error) {
	return s.sessionRepo.List(ctx)
}

// DeleteSession stops a running replay for the session first, then removes
// the session and both of its logs.
func (s *replayService) DeleteSession(ctx context.Context, id domain.SessionID) error {
	if _, err := s.sessionRepo.GetByID(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	ar, reserved := s.active[id]
	if reserved && ar == nil {
		// A start for this session is still in its load phase. Deleting the
		// row under it would let that start finish against a gone session, so
		// the caller has to stop the replay (or wait) first.
		s.mu.Unlock()
		return domain.ErrReplayActive
	}
	if reserved {
		delete(s.active, id)
	}
	s.mu.Unlock()
	if ar != nil {
		ar.synchronizer.Stop()
		ar.closeSubs()
	}

	if err := s.actionRepo.DeleteBySession(ctx, id); err != nil {
		return fmt.Errorf("failed to delete action log: %w", err)
	}
	if err := s.strokeRepo.DeleteBySession(ctx, id); err != nil {
		return fmt.Errorf("failed to delete stroke log: %w", err)
	}
	return s.sessionRepo.Delete(ctx, id)
}

func (s *replayService) AppendActions(ctx context.Context, id domain.SessionID, actions []domain.Action) error {
	if len(actions) == 0 {
		return nil
	}
	for i, a := range actions {
		if err := validateAction(a); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	if _, err := s.sessionRepo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.actionRepo.Append(ctx, id, actions)
}

func (s *replayService) ListActions(ctx context.Context, id domain.SessionID) ([]domain.Action, error) {
	if _, err := s.sessionRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.actionRepo.ListBySession(ctx, id)
}

func (s *replayService) AppendStrokes(ctx context.Context, id domain.SessionID, strokes []domain.Stroke) error {
	if len(strokes) == 0 {
		return nil
	}
	for i, st := range strokes {
		if !st.Valid() {
			return fmt.Errorf("stroke %d: needs at least one point and a positive visibility window", i)
		}
		if err := validation.ValidateStrokeColor(st.Color); err != nil {
			return fmt.Errorf("stroke %d: %w", i, err)
		}
	}
	if _, err := s.sessionRepo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.strokeRepo.Append(ctx, id, strokes)
}

func (s *replayService) ListStrokes(ctx context.Context, id domain.SessionID) ([]domain.Stroke, error) {
	if _, err := s.sessionRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.strokeRepo.ListBySession(ctx, id)
}

// StartReplay snapshots the session's logs, opens the media handles and runs
// a synchronizer for it. The logs are read once here: actions appended after
// this point belong to the next replay, not the running one.
func (s *replayService) StartReplay(ctx context.Context, id domain.SessionID) error {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if _, running := s.active[id]; running {
		s.mu.Unlock()
		return domain.ErrReplayActive
	}
	// Reserve the slot before the slow load phase so concurrent starts for the
	// same session collapse to one.
	s.active[id] = nil
	s.mu.Unlock()

	release := func() {
		s.mu.Lock()
		delete(s.active, id)
		s.mu.Unlock()
	}

	actions, err := s.actionRepo.ListBySession(ctx, id)
	if err != nil {
		release()
		return fmt.Errorf("failed to load action log: %w", err)
	}
	strokes, err := s.strokeRepo.ListBySession(ctx, id)
	if err != nil {
		release()
		return fmt.Errorf("failed to load stroke log: %w", err)
	}

	video, err := s.media.Video(ctx, session)
	if err != nil {
		release()
		return &domain.FatalMediaError{Resource: "video", Err: err}
	}
	audio, err := s.media.Audio(ctx, session)
	if err != nil {
		s.logger.Warnw("audio handle unavailable, replaying video-only",
			"session_id", id,
			"error", err,
		)
		audio = nil
	}

	sync := replay.New(id, domain.NewTimeline(actions), video, audio, s.cfg, s.logger)
	sync.SetMetrics(s.metrics)
	minOpacity := s.cfg.MinOpacity
	if minOpacity <= 0 {
		minOpacity = replay.DefaultMinOpacity
	}
	ar := &activeReplay{
		synchronizer: sync,
		renderer:     replay.NewRenderer(strokes, minOpacity),
		subs:         make(map[int]chan domain.ReplayFrame),
	}
	sync.OnFrame(func(status domain.ReplayStatus) {
		ar.publish(domain.ReplayFrame{
			Status:  status,
			Strokes: ar.renderer.VisibleAt(time.Duration(status.ClockMs) * time.Millisecond),
		})
	})
	sync.OnComplete(func() {
		ar.publish(domain.ReplayFrame{Status: sync.Status()})
		ar.closeSubs()
	})

	if err := sync.Start(ctx); err != nil {
		release()
		return err
	}

	s.mu.Lock()
	s.active[id] = ar
	s.mu.Unlock()
	return nil
}

func (s *replayService) StopReplay(id domain.SessionID) error {
	s.mu.Lock()
	ar := s.active[id]
	if ar != nil {
		delete(s.active, id)
	}
	s.mu.Unlock()

	if ar == nil {
		// Either no replay, or one still in its load phase; the loading one
		// keeps its reservation and finishes Start normally.
		return domain.ErrReplayNotFound
	}
	ar.synchronizer.Stop()
	ar.closeSubs()
	s.logger.Infow("replay stopped", "session_id", id)
	return nil
}

func (s *replayService) ResumeReplay(id domain.SessionID) error {
	s.mu.Lock()
	ar := s.active[id]
	s.mu.Unlock()

	if ar == nil {
		return domain.ErrReplayNotFound
	}
	ar.synchronizer.Resume()
	return nil
}

func (s *replayService) ReplayStatus(id domain.SessionID) (*domain.ReplayStatus, error) {
	s.mu.Lock()
	ar := s.active[id]
	s.mu.Unlock()

	if ar == nil {
		return nil, domain.ErrReplayNotFound
	}
	status := ar.synchronizer.Status()
	return &status, nil
}

func (s *replayService) SessionStats(ctx context.Context, id domain.SessionID) (*domain.SessionStats, error) {
	if _, err := s.sessionRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	actions, err := s.actionRepo.ListBySession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load action log: %w", err)
	}
	strokes, err := s.strokeRepo.ListBySession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load stroke log: %w", err)
	}

	tl := domain.NewTimeline(actions)
	return &domain.SessionStats{
		SessionID:         id,
		ActionCount:       tl.Len(),
		PauseCount:        tl.PauseCount(),
		TotalHoldDuration: tl.TotalHoldDuration().Milliseconds(),
		StrokeCount:       len(strokes),
	}, nil
}

func (s *replayService) Subscribe(id domain.SessionID) (<-chan domain.ReplayFrame, func(), error) {
	s.mu.Lock()
	ar := s.active[id]
	s.mu.Unlock()

	if ar == nil {
		return nil, nil, domain.ErrReplayNotFound
	}
	ch, cancel := ar.subscribe()
	return ch, cancel, nil
}

func validateAction(a domain.Action) error {
	switch a.Type {
	case domain.ActionPlay, domain.ActionPause, domain.ActionSeek:
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	if a.Timestamp < 0 {
		return fmt.Errorf("timestamp must be non-negative, got %d", a.Timestamp)
	}
	if a.HoldDuration < 0 {
		return fmt.Errorf("hold duration must be non-negative, got %d", a.HoldDuration)
	}
	return nil
}
