package jobs

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default policy constants. These mirror the serve defaults in
// internal/config; the Manager falls back to them when Config leaves the
// corresponding field zero.
const (
	// DefaultThresholdGiB is the size at and above which an operation is
	// classified as background work. This is a policy boundary, not a hard
	// technical limit: it exists so a request handler never blocks past the
	// client's expected response window.
	DefaultThresholdGiB = 1.0

	// DefaultRetention is how long terminal jobs stay visible in snapshots
	// before being evicted.
	DefaultRetention = time.Hour

	// DefaultMinutesPerGiB drives the human-facing completion estimate.
	DefaultMinutesPerGiB = 3.0
)

// Config configures a Manager. Zero values fall back to the defaults above.
type Config struct {
	// Runner launches external commands. Required.
	Runner Runner

	// ThresholdGiB overrides DefaultThresholdGiB.
	ThresholdGiB float64

	// Retention overrides DefaultRetention.
	Retention time.Duration

	// MinutesPerGiB overrides DefaultMinutesPerGiB.
	MinutesPerGiB float64

	// Logger receives job lifecycle events. Optional.
	Logger *zap.Logger
}

// Manager owns the in-memory job registry for one serve session.
//
// It is constructed explicitly and passed to whichever component handles
// requests; there is no package-level singleton. All registry access is
// serialised by an internal mutex, so a reader can never observe a
// half-updated entry (e.g. a completed job with no end time).
type Manager struct {
	mu    sync.Mutex
	jobs  map[string]*Job
	order []string

	runner        Runner
	thresholdGiB  float64
	retention     time.Duration
	minutesPerGiB float64

	log *zap.Logger

	// now is swapped in tests to drive retention eviction.
	now func() time.Time
}

// NewManager creates a Manager. Config.Runner must be set.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("jobs: runner is required")
	}
	if cfg.ThresholdGiB <= 0 {
		cfg.ThresholdGiB = DefaultThresholdGiB
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.MinutesPerGiB <= 0 {
		cfg.MinutesPerGiB = DefaultMinutesPerGiB
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Manager{
		jobs:          make(map[string]*Job),
		runner:        cfg.Runner,
		thresholdGiB:  cfg.ThresholdGiB,
		retention:     cfg.Retention,
		minutesPerGiB: cfg.MinutesPerGiB,
		log:           cfg.Logger,
		now:           time.Now,
	}, nil
}

// Classify decides how an operation on an artifact of the given size should
// be handled. Pure; no side effects.
func (m *Manager) Classify(sizeGiB float64) Mode {
	if sizeGiB >= m.thresholdGiB {
		return ModeBackground
	}
	return ModeImmediate
}

// SubmitRequest describes one background invocation.
type SubmitRequest struct {
	// Input and Output identify the source and destination artifacts in
	// the caller's domain (paths under the workdir, typically).
	Input  string
	Output string

	// Name and Args form the fully-built external invocation. Command
	// construction is the caller's responsibility.
	Name string
	Args []string

	// SizeGiB is the size classification of the input.
	SizeGiB float64
}

// Submit registers a processing job and launches its command without waiting
// for completion. It returns the job id as soon as the registry entry exists.
//
// Any failure of the underlying process, including launch failure, is
// reported asynchronously: the job transitions to failed and the process's
// diagnostic text becomes its failure detail, readable from the next
// Snapshot. Submit itself only fails on malformed arguments.
//
// There is no cap on concurrently running jobs and no queueing; every call
// spawns an independent process. That is a known gap in the current design,
// not an invariant to rely on.
func (m *Manager) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if strings.TrimSpace(req.Input) == "" {
		return "", fmt.Errorf("jobs: input is required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return "", fmt.Errorf("jobs: command name is required")
	}

	started := m.now()
	id := newJobID(req.Input, started)

	job := &Job{
		ID:        id,
		Status:    StatusProcessing,
		Input:     req.Input,
		Output:    req.Output,
		Command:   commandString(req.Name, req.Args),
		SizeGiB:   req.SizeGiB,
		StartedAt: started,
	}

	m.mu.Lock()
	m.jobs[id] = job
	m.order = append(m.order, id)
	m.mu.Unlock()

	m.log.Info("background job submitted",
		zap.String("job_id", id),
		zap.String("input", req.Input),
		zap.String("output", req.Output),
		zap.Float64("size_gib", req.SizeGiB))

	go m.run(ctx, id, req.Name, req.Args)

	return id, nil
}

// run launches the process and records its eventual exit. It is the only
// writer of terminal states.
func (m *Manager) run(ctx context.Context, id, name string, args []string) {
	handle, err := m.runner.Start(ctx, name, args...)
	if err != nil {
		m.recordExit(id, err)
		return
	}

	m.mu.Lock()
	if job, ok := m.jobs[id]; ok {
		job.proc = handle
	}
	m.mu.Unlock()

	m.recordExit(id, handle.Wait())
}

// recordExit applies the processing -> terminal transition for id.
//
// If the entry was already evicted the exit is silently ignored: eviction is
// a legitimate reason for absence, not an error.
func (m *Manager) recordExit(id string, runErr error) {
	ended := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return
	}
	if job.Status != StatusProcessing {
		return
	}

	job.EndedAt = &ended
	if runErr != nil {
		job.Status = StatusFailed
		job.FailureDetail = runErr.Error()
		m.log.Warn("background job failed",
			zap.String("job_id", id),
			zap.String("detail", job.FailureDetail))
		return
	}
	job.Status = StatusCompleted
	m.log.Info("background job completed", zap.String("job_id", id))
}

// Snapshot evicts stale terminal entries, then returns the remaining jobs
// partitioned by status in insertion order.
//
// Cleanup is deliberately coupled to this read: there is no timer-driven
// sweep, so a registry that is never queried is never pruned.
func (m *Manager) Snapshot() Snapshot {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.order[:0]
	for _, id := range m.order {
		job := m.jobs[id]
		if job.Status != StatusProcessing && job.EndedAt != nil && now.Sub(*job.EndedAt) > m.retention {
			delete(m.jobs, id)
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept

	snap := Snapshot{
		Active:    []JobView{},
		Completed: []JobView{},
		Failed:    []JobView{},
	}
	for _, id := range m.order {
		view := m.jobs[id].view(now)
		switch view.Status {
		case StatusCompleted:
			snap.Completed = append(snap.Completed, view)
		case StatusFailed:
			snap.Failed = append(snap.Failed, view)
		default:
			snap.Active = append(snap.Active, view)
		}
	}
	return snap
}

// EstimateDuration renders a human-facing completion estimate for a
// submission of the given size.
//
// The model is minutes = sizeGiB * minutesPerGiB. The speed factor is
// accepted but does not participate in the formula; that asymmetry is
// preserved from the observed behavior of the original tool.
func (m *Manager) EstimateDuration(sizeGiB, speedFactor float64) string {
	_ = speedFactor

	minutes := int(sizeGiB*m.minutesPerGiB + 0.5)
	if minutes < 60 {
		return fmt.Sprintf("~%d minutes", minutes)
	}
	return fmt.Sprintf("~%dh %dm", minutes/60, minutes%60)
}

func (j *Job) view(now time.Time) JobView {
	end := now
	if j.EndedAt != nil {
		end = *j.EndedAt
	}
	return JobView{
		ID:            j.ID,
		Status:        j.Status,
		Input:         j.Input,
		Output:        j.Output,
		SizeGiB:       j.SizeGiB,
		Size:          humanSize(j.SizeGiB),
		Elapsed:       end.Sub(j.StartedAt).Round(time.Second).String(),
		StartedAt:     j.StartedAt,
		EndedAt:       j.EndedAt,
		FailureDetail: j.FailureDetail,
	}
}

// newJobID composes the input's base name with a millisecond timestamp.
//
// Two submissions for the same input within the same millisecond could
// collide; the composition matches the id scheme agents already rely on, so
// stronger uniqueness is not applied here.
func newJobID(input string, t time.Time) string {
	base := filepath.Base(strings.TrimSpace(input))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = sanitizeIDPart(base)
	if base == "" {
		base = "job"
	}
	return fmt.Sprintf("%s-%d", base, t.UnixMilli())
}

func sanitizeIDPart(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

func commandString(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, name)
	for _, a := range args {
		if strings.ContainsAny(a, " \t") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// humanSize renders a GiB magnitude for display.
func humanSize(sizeGiB float64) string {
	if sizeGiB < 1.0 {
		return fmt.Sprintf("%d MiB", int(sizeGiB*1024+0.5))
	}
	return fmt.Sprintf("%.1f GiB", sizeGiB)
}
