package model

import "time"

// TaskState is the lifecycle state of a download task. Transitions are
// monotonic; terminal tasks are never resurrected.
type TaskState string

// Task states.
const (
	TaskQueued      TaskState = "queued"
	TaskDownloading TaskState = "downloading"
	TaskVerifying   TaskState = "verifying"
	TaskCompleted   TaskState = "completed"
	TaskFailed      TaskState = "failed"
	TaskCancelled   TaskState = "cancelled"
)

// Terminal reports whether the state is final.
func (s TaskState) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// TaskSnapshot is an immutable copy of a download task's state, safe to read
// without synchronization.
type TaskSnapshot struct {
	Reference       Reference
	State           TaskState
	BytesDownloaded int64
	BytesTotal      int64 // 0 when unknown
	StartedAt       time.Time
	LastUpdateAt    time.Time
	Error           string
}

// Progress is a single record in a task's progress feed. Percent and
// ETASeconds are negative when the total size is unknown.
type Progress struct {
	Reference       Reference
	State           TaskState
	BytesDownloaded int64
	BytesTotal      int64
	Percent         float64
	SpeedBPS        float64
	ETASeconds      float64
	Error           string
}
