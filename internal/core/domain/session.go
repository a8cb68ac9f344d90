package domain

import (
	"time"
)

type SessionID string

// Session is one recorded critique: a base performance video, an optional
// voice-over track, and the action/stroke logs stored alongside them. An
// empty AudioURL is a valid, supported state meaning the adjudicator recorded
// no commentary.
type Session struct {
	ID              SessionID `json:"id"`
	Title           string    `json:"title"`
	VideoURL        string    `json:"video_url"`
	AudioURL        string    `json:"audio_url,omitempty"`
	DurationSeconds float64   `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}

func (s *Session) HasAudio() bool {
	return s.AudioURL != ""
}

// Duration returns the base video duration.
func (s *Session) Duration() time.Duration {
	return time.Duration(s.DurationSeconds * float64(time.Second))
}

// ReplayState is the synchronizer's lifecycle state.
type ReplayState int32

const (
	StateIdle ReplayState = iota
	StateStarting
	StateRunning
	StatePausedPendingResume
	StateCompleted
	StateErrored
)

func (s ReplayState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StatePausedPendingResume:
		return "paused_pending_resume"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// ReplayStatus is a point-in-time snapshot of a running (or finished) replay.
type ReplayStatus struct {
	SessionID        SessionID `json:"session_id"`
	State            string    `json:"state"`
	ClockMs          int64     `json:"clock_ms"`
	Paused           bool      `json:"paused"`
	VideoPositionMs  int64     `json:"video_position_ms"`
	AudioPositionMs  int64     `json:"audio_position_ms,omitempty"`
	AudioAvailable   bool      `json:"audio_available"`
	ActionsExecuted  int       `json:"actions_executed"`
	ActionsTotal     int       `json:"actions_total"`
	DriftCorrections int64     `json:"drift_corrections"`
	LastDriftMs      int64     `json:"last_drift_ms"`
}

// ReplayFrame is one tick of replay output pushed to viewing clients: the
// authoritative clock value plus the strokes visible at that instant.
type ReplayFrame struct {
	Status  ReplayStatus    `json:"status"`
	Strokes []VisibleStroke `json:"strokes,omitempty"`
}

// SessionStats are the derived read-only aggregates shown next to a replay.
type SessionStats struct {
	SessionID         SessionID `json:"session_id"`
	ActionCount       int       `json:"action_count"`
	PauseCount        int       `json:"pause_count"`
	TotalHoldDuration int64     `json:"total_hold_duration_ms"`
	StrokeCount       int       `json:"stroke_count"`
}
