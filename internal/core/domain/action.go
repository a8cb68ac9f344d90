package domain

import (
	"sort"
	"time"
)

type ActionType string

const (
	ActionPlay  ActionType = "play"
	ActionPause ActionType = "pause"
	ActionSeek  ActionType = "seek"
)

// Action is one recorded reviewer event. Timestamp is milliseconds since
// session start and is the scheduling key. MediaPosition is seconds into the
// base video at the moment of the event. HoldDuration (milliseconds) is only
// meaningful for pause actions: a value > 0 requests an automatic resume once
// that many milliseconds of wall time have elapsed, 0 means an indefinite
// pause that a later play action has to lift.
type Action struct {
	Type          ActionType `json:"type"`
	Timestamp     int64      `json:"timestamp"`
	MediaPosition float64    `json:"media_position,omitempty"`
	HoldDuration  int64      `json:"hold_duration,omitempty"`
}

// At returns the schedule time of the action on the session clock.
func (a Action) At() time.Duration {
	return time.Duration(a.Timestamp) * time.Millisecond
}

// Hold returns the automatic-resume delay of a pause action.
func (a Action) Hold() time.Duration {
	if a.HoldDuration < 0 {
		return 0
	}
	return time.Duration(a.HoldDuration) * time.Millisecond
}

// Position returns the media position carried by the action.
func (a Action) Position() time.Duration {
	return time.Duration(a.MediaPosition * float64(time.Second))
}

// Timeline is a read-only, time-ordered view of recorded actions.
//
// The recording log may be appended out of order by concurrent recorders, so
// construction sorts a copy of the input by timestamp. The sort is stable:
// actions sharing a timestamp keep their original insertion order. A new
// recording produces a new Timeline; there is no mutation after construction.
type Timeline struct {
	actions []Action
}

// NewTimeline builds a timeline from an unordered action log. An empty log is
// valid and means "play the video straight through with no scripted events".
func NewTimeline(actions []Action) *Timeline {
	sorted := make([]Action, len(actions))
	copy(sorted, actions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})
	return &Timeline{actions: sorted}
}

func (t *Timeline) Len() int {
	return len(t.actions)
}

func (t *Timeline) Empty() bool {
	return len(t.actions) == 0
}

// At returns the i-th action in schedule order.
func (t *Timeline) At(i int) Action {
	return t.actions[i]
}

// Actions returns a copy of the ordered action sequence.
func (t *Timeline) Actions() []Action {
	out := make([]Action, len(t.actions))
	copy(out, t.actions)
	return out
}

// PauseCount returns the number of recorded pause actions.
func (t *Timeline) PauseCount() int {
	count := 0
	for _, a := range t.actions {
		if a.Type == ActionPause {
			count++
		}
	}
	return count
}

// TotalHoldDuration sums the hold durations of all pause actions. Pauses
// without a hold contribute nothing.
func (t *Timeline) TotalHoldDuration() time.Duration {
	var total time.Duration
	for _, a := range t.actions {
		if a.Type == ActionPause {
			total += a.Hold()
		}
	}
	return total
}

// FirstPosition returns the media position implied by the first action, or 0
// when the timeline is empty or the first action carries no position.
func (t *Timeline) FirstPosition() time.Duration {
	if len(t.actions) == 0 {
		return 0
	}
	return t.actions[0].Position()
}
