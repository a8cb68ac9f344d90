package ports

import (
	"context"
	"time"

	"reviewsync/internal/core/domain"
)

// MediaResource is the playback handle surface the synchronizer drives. Both
// the video and the optional audio track expose the same handle.
//
// Play has asynchronous request semantics: the synchronizer issues it off the
// tick loop and routes the result back in. A rejection that races with a
// subsequent pause is benign; the synchronizer decides, the resource only
// reports. Err returns the resource's failure, if any, and is polled each
// tick; a failed resource stays failed until reloaded.
type MediaResource interface {
	Load(ctx context.Context) error
	Play() error
	Pause()
	Position() time.Duration
	Seek(pos time.Duration)
	Duration() time.Duration
	Playing() bool
	Ended() bool
	Err() error
}

// MediaFactory opens playback handles for a session's media. Audio returns
// (nil, nil) when the session has no voice-over track; the absence of audio
// is a first-class state, not an error.
type MediaFactory interface {
	Video(ctx context.Context, session *domain.Session) (MediaResource, error)
	Audio(ctx context.Context, session *domain.Session) (MediaResource, error)
}

// Ticker abstracts the per-frame scheduling loop so the synchronizer's logic
// is independent of the tick source (interval timer in production, a manual
// ticker in tests).
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates the ticker a synchronizer runs on.
type TickerFactory func(interval time.Duration) Ticker

// Canvas is the output surface the annotation renderer paints on. SetSize is
// called before any paint in a tick where the video's displayed dimensions
// changed.
type Canvas interface {
	Size() (width, height int)
	SetSize(width, height int)
	Clear()
	StrokePath(points []domain.Point, color string, width, opacity float64)
}
