package reliability

import (
	"context"

	"reviewsync/internal/core/domain"
	"reviewsync/internal/core/ports"
	"reviewsync/pkg/circuitbreaker"

	"go.uber.org/zap"
)

// MediaFactoryWrapper wraps a MediaFactory with circuit breakers. A media
// host that keeps refusing probes trips the breaker, so replay starts fail
// fast instead of burning the full load timeout on every attempt. Video and
// audio get separate breakers: a dead commentary host must not block
// video-only replays.
type MediaFactoryWrapper struct {
	factory ports.MediaFactory
	logger  *zap.SugaredLogger

	videoBreaker *circuitbreaker.CircuitBreaker
	audioBreaker *circuitbreaker.CircuitBreaker
}

func NewMediaFactoryWrapper(
	factory ports.MediaFactory,
	cbConfig circuitbreaker.Config,
	logger *zap.SugaredLogger,
) *MediaFactoryWrapper {
	wrapper := &MediaFactoryWrapper{
		factory:      factory,
		logger:       logger,
		videoBreaker: circuitbreaker.New(cbConfig),
		audioBreaker: circuitbreaker.New(cbConfig),
	}

	wrapper.videoBreaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Infow("video media circuit breaker state changed",
			"from", from.String(),
			"to", to.String(),
		)
	})
	wrapper.audioBreaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Infow("audio media circuit breaker state changed",
			"from", from.String(),
			"to", to.String(),
		)
	})

	return wrapper
}

func (w *MediaFactoryWrapper) Video(ctx context.Context, session *domain.Session) (ports.MediaResource, error) {
	res, err := w.videoBreaker.ExecuteWithResult(ctx, func() (interface{}, error) {
		return w.factory.Video(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	return res.(ports.MediaResource), nil
}

func (w *MediaFactoryWrapper) Audio(ctx context.Context, session *domain.Session) (ports.MediaResource, error) {
	if !session.HasAudio() {
		return w.factory.Audio(ctx, session)
	}

	res, err := w.audioBreaker.ExecuteWithResult(ctx, func() (interface{}, error) {
		return w.factory.Audio(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	return res.(ports.MediaResource), nil
}

// GetVideoBreakerStats returns circuit breaker statistics for the video path
func (w *MediaFactoryWrapper) GetVideoBreakerStats() circuitbreaker.Stats {
	return w.videoBreaker.GetStats()
}

// GetAudioBreakerStats returns circuit breaker statistics for the audio path
func (w *MediaFactoryWrapper) GetAudioBreakerStats() circuitbreaker.Stats {
	return w.audioBreaker.GetStats()
}
