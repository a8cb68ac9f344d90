package media

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"reviewsync/internal/core/domain"
	"reviewsync/internal/core/ports"
	"reviewsync/pkg/retry"

	"go.uber.org/zap"
)

// Player is a headless playback handle: it tracks a play position against the
// wall clock instead of decoding media. Load probes that the source actually
// exists so missing or unreachable sources fail up front, the way a decoding
// element would.
type Player struct {
	source   string
	duration time.Duration
	probe    func(ctx context.Context) error
	now      func() time.Time

	mu       sync.Mutex
	loaded   bool
	playing  bool
	basePos  time.Duration
	playedAt time.Time
	err      error
}

func newPlayer(source string, duration time.Duration, probe func(ctx context.Context) error) *Player {
	return &Player{
		source:   source,
		duration: duration,
		probe:    probe,
		now:      time.Now,
	}
}

func (p *Player) Load(ctx context.Context) error {
	if err := p.probe(ctx); err != nil {
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		return err
	}
	p.mu.Lock()
	p.loaded = true
	p.err = nil
	p.mu.Unlock()
	return nil
}

func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if !p.loaded {
		return fmt.Errorf("source not loaded: %s", p.source)
	}
	if p.playing {
		return nil
	}
	p.playing = true
	p.playedAt = p.now()
	return nil
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return
	}
	p.basePos = p.positionLocked()
	p.playing = false
}

func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

func (p *Player) positionLocked() time.Duration {
	pos := p.basePos
	if p.playing {
		pos += p.now().Sub(p.playedAt)
	}
	if pos > p.duration {
		pos = p.duration
	}
	return pos
}

func (p *Player) Seek(pos time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pos < 0 {
		pos = 0
	}
	if pos > p.duration {
		pos = p.duration
	}
	p.basePos = pos
	if p.playing {
		p.playedAt = p.now()
	}
}

func (p *Player) Duration() time.Duration {
	return p.duration
}

func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing && p.positionLocked() < p.duration
}

func (p *Player) Ended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded && p.positionLocked() >= p.duration
}

func (p *Player) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// PlayerFactory opens headless players for a session's media sources.
type PlayerFactory struct {
	loadTimeout time.Duration
	retryCfg    retry.Config
	client      *http.Client
	logger      *zap.SugaredLogger
}

func NewPlayerFactory(loadTimeout time.Duration, loadRetries int, retryInterval time.Duration, logger *zap.SugaredLogger) ports.MediaFactory {
	retryCfg := retry.DefaultConfig()
	retryCfg.Enabled = loadRetries > 0
	retryCfg.MaxAttempts = loadRetries
	retryCfg.InitialDelay = retryInterval

	return &PlayerFactory{
		loadTimeout: loadTimeout,
		retryCfg:    retryCfg,
		client:      &http.Client{Timeout: loadTimeout},
		logger:      logger,
	}
}

func (f *PlayerFactory) Video(ctx context.Context, session *domain.Session) (ports.MediaResource, error) {
	return f.open(session.VideoURL, session.Duration())
}

func (f *PlayerFactory) Audio(ctx context.Context, session *domain.Session) (ports.MediaResource, error) {
	if !session.HasAudio() {
		return nil, nil
	}
	return f.open(session.AudioURL, session.Duration())
}

func (f *PlayerFactory) open(source string, duration time.Duration) (ports.MediaResource, error) {
	if source == "" {
		return nil, fmt.Errorf("empty media source")
	}
	probe, err := f.probeFor(source)
	if err != nil {
		return nil, err
	}
	return newPlayer(source, duration, probe), nil
}

// probeFor builds the existence check for a source: HEAD for http(s) URLs,
// a stat for local paths. Transient probe failures are retried with backoff.
func (f *PlayerFactory) probeFor(source string) (func(ctx context.Context) error, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("invalid media source %q: %w", source, err)
	}

	var once func(ctx context.Context) error
	switch {
	case u.Scheme == "http" || u.Scheme == "https":
		once = func(ctx context.Context) error {
			req, err := http.NewRequestWithContext(ctx, http.MethodHead, source, nil)
			if err != nil {
				return err
			}
			resp, err := f.client.Do(req)
			if err != nil {
				return fmt.Errorf("failed to reach media source: %w", err)
			}
			resp.Body.Close()
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				// A 404 will not heal on a second HEAD.
				return retry.Permanent(fmt.Errorf("media source returned %s", resp.Status))
			}
			if resp.StatusCode >= 500 {
				return fmt.Errorf("media source returned %s", resp.Status)
			}
			return nil
		}
	case u.Scheme == "" || u.Scheme == "file":
		path := source
		if u.Scheme == "file" {
			path = u.Path
		}
		once = func(ctx context.Context) error {
			if _, err := os.Stat(path); err != nil {
				if os.IsNotExist(err) {
					return retry.Permanent(fmt.Errorf("failed to stat media file: %w", err))
				}
				return fmt.Errorf("failed to stat media file: %w", err)
			}
			return nil
		}
	default:
		return nil, fmt.Errorf("unsupported media source scheme %q", u.Scheme)
	}

	retryCfg := f.retryCfg
	logger := f.logger
	return func(ctx context.Context) error {
		loadCtx, cancel := context.WithTimeout(ctx, f.loadTimeout)
		defer cancel()
		err := retry.Retry(loadCtx, retryCfg, func() error { return once(loadCtx) })
		if err != nil && logger != nil {
			logger.Warnw("media probe failed",
				"source", redactSource(source),
				"error", err,
			)
		}
		return err
	}, nil
}

// redactSource strips query strings, which often carry signed tokens.
func redactSource(source string) string {
	if i := strings.IndexByte(source, '?'); i >= 0 {
		return source[:i]
	}
	return source
}
