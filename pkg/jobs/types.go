// Package jobs tracks background ffmpeg invocations for a single serve
// session.
//
// The registry is memory-resident only: state is rebuilt empty on every
// process start, and terminal entries are evicted opportunistically when a
// snapshot is taken. There is no persistence, no retry, and no cancellation.
package jobs

import "time"

// Status is the lifecycle state of a tracked job.
//
// Transitions are processing -> completed or processing -> failed, exactly
// once. Terminal states are final.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Mode is the handling decision for a requested operation.
type Mode int

const (
	// ModeImmediate means the caller should run the command synchronously.
	ModeImmediate Mode = iota

	// ModeBackground means the work is expected to outlive the request
	// and must go through Submit.
	ModeBackground
)

// String implements fmt.Stringer for log fields.
func (m Mode) String() string {
	if m == ModeBackground {
		return "background"
	}
	return "immediate"
}

// Job is one tracked external-process invocation.
//
// All fields except status, endedAt, failureDetail, and proc are immutable
// after creation. Mutation happens only under the owning Manager's lock.
type Job struct {
	ID      string
	Status  Status
	Input   string
	Output  string
	Command string
	SizeGiB float64

	StartedAt time.Time
	EndedAt   *time.Time

	// FailureDetail holds the process's reported error text. Set only on
	// the transition to StatusFailed.
	FailureDetail string

	// proc keeps the underlying process handle reachable. It is never
	// signalled: there is no cancel operation in the current design.
	proc Handle
}

// JobView is the snapshot projection of a Job with derived display fields.
type JobView struct {
	ID      string  `json:"id"`
	Status  Status  `json:"status"`
	Input   string  `json:"input"`
	Output  string  `json:"output"`
	SizeGiB float64 `json:"size_gib"`

	// Size is the human-readable rendering of SizeGiB (e.g. "2.5 GiB").
	Size string `json:"size"`

	// Elapsed is (endedAt ?? now) - startedAt, rounded to seconds.
	Elapsed string `json:"elapsed"`

	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	FailureDetail string     `json:"failure_detail,omitempty"`
}

// Snapshot is a point-in-time, partitioned read of the registry.
//
// Within each partition, insertion order is preserved. All three slices are
// non-nil even when empty.
type Snapshot struct {
	Active    []JobView `json:"active"`
	Completed []JobView `json:"completed"`
	Failed    []JobView `json:"failed"`
}
