package domain

import "time"

// Point is a 2D coordinate in the video's displayed coordinate space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one freehand drawing gesture with a visibility window on the
// session clock. StartTime and EndTime are milliseconds; typically
// EndTime = StartTime + a fixed fade duration chosen by the recorder.
type Stroke struct {
	Points    []Point `json:"points"`
	Color     string  `json:"color"`
	Width     float64 `json:"width"`
	StartTime int64   `json:"start_time"`
	EndTime   int64   `json:"end_time"`
}

// Valid reports whether the stroke can ever be rendered: it needs at least
// one point and a positive-length visibility window.
func (s Stroke) Valid() bool {
	return len(s.Points) > 0 && s.EndTime > s.StartTime
}

func (s Stroke) start() time.Duration {
	return time.Duration(s.StartTime) * time.Millisecond
}

func (s Stroke) end() time.Duration {
	return time.Duration(s.EndTime) * time.Millisecond
}

// VisibleAt reports whether the stroke is inside its visibility window at the
// given clock value. Invalid strokes are never visible.
func (s Stroke) VisibleAt(now time.Duration) bool {
	if !s.Valid() {
		return false
	}
	return now >= s.start() && now <= s.end()
}

// OpacityAt computes the fade opacity at the given clock value: full opacity
// at the start of the window, decaying linearly toward the floor as the
// window closes. The floor keeps strokes faintly visible until the instant
// they expire instead of vanishing abruptly.
func (s Stroke) OpacityAt(now time.Duration, floor float64) float64 {
	if !s.VisibleAt(now) {
		return 0
	}
	progress := float64(s.end()-now) / float64(s.end()-s.start())
	if progress > 1.0 {
		progress = 1.0
	}
	if progress < floor {
		progress = floor
	}
	return progress
}

// VisibleStroke pairs a stroke with the opacity computed for the current
// frame. It is what the renderer hands to its output surface and what the
// replay feed pushes to viewing clients.
type VisibleStroke struct {
	Stroke  Stroke  `json:"stroke"`
	Opacity float64 `json:"opacity"`
}
