package replay

import (
	"time"

	"reviewsync/internal/core/domain"
	"reviewsync/internal/core/ports"
)

// DefaultMinOpacity keeps expiring strokes faintly visible until the instant
// their window closes instead of vanishing abruptly.
const DefaultMinOpacity = 0.1

// Renderer paints the subset of strokes currently inside their visibility
// window, faded by how close the window is to closing. It owns no state
// across ticks beyond the stroke set itself: visibility is recomputed from
// scratch every frame. Strokes are few and short-lived, so an active/inactive
// index would be complexity without payoff.
type Renderer struct {
	strokes    []domain.Stroke
	minOpacity float64
}

func NewRenderer(strokes []domain.Stroke, minOpacity float64) *Renderer {
	if minOpacity <= 0 || minOpacity >= 1 {
		minOpacity = DefaultMinOpacity
	}
	kept := make([]domain.Stroke, 0, len(strokes))
	for _, s := range strokes {
		// Zero- or negative-duration strokes can never render; drop them here
		// rather than re-checking every frame.
		if s.Valid() {
			kept = append(kept, s)
		}
	}
	return &Renderer{strokes: kept, minOpacity: minOpacity}
}

// VisibleAt returns the strokes visible at the given clock value with their
// computed fade opacity, in authoring order.
func (r *Renderer) VisibleAt(now time.Duration) []domain.VisibleStroke {
	var visible []domain.VisibleStroke
	for _, s := range r.strokes {
		if !s.VisibleAt(now) {
			continue
		}
		visible = append(visible, domain.VisibleStroke{
			Stroke:  s,
			Opacity: s.OpacityAt(now, r.minOpacity),
		})
	}
	return visible
}

// RenderFrame paints one tick of annotations. The canvas is resized to the
// video's displayed dimensions before any paint call in a tick where they
// changed, then cleared and repainted. Invisible strokes are skipped
// entirely, not drawn at zero opacity.
func (r *Renderer) RenderFrame(canvas ports.Canvas, now time.Duration, videoWidth, videoHeight int) {
	w, h := canvas.Size()
	if w != videoWidth || h != videoHeight {
		canvas.SetSize(videoWidth, videoHeight)
	}
	canvas.Clear()
	for _, vs := range r.VisibleAt(now) {
		canvas.StrokePath(vs.Stroke.Points, vs.Stroke.Color, vs.Stroke.Width, vs.Opacity)
	}
}
