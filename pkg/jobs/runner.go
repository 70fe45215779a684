package jobs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner launches external commands on behalf of the Manager.
//
// The indirection exists so the registry's mutation path can be exercised in
// tests without spawning real processes.
type Runner interface {
	// Start launches the command and returns once it is running. The
	// returned handle's Wait blocks until the process exits.
	Start(ctx context.Context, name string, args ...string) (Handle, error)
}

// Handle is an opaque reference to a started process.
type Handle interface {
	// Wait blocks until the process exits. A non-nil error carries the
	// process's reported diagnostic text (stderr tail for ffmpeg).
	Wait() error
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

var _ Runner = (*ExecRunner)(nil)

// Start launches the command with stderr captured for failure reporting.
func (ExecRunner) Start(ctx context.Context, name string, args ...string) (Handle, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", name, err)
	}
	return &execHandle{cmd: cmd, stderr: &stderr}, nil
}

type execHandle struct {
	cmd    *exec.Cmd
	stderr *bytes.Buffer
}

func (h *execHandle) Wait() error {
	err := h.cmd.Wait()
	if err == nil {
		return nil
	}

	detail := stderrTail(h.stderr.String(), 12)
	if detail == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, detail)
}

// stderrTail returns the last n non-empty lines of the captured stderr.
// ffmpeg prints its banner and progress first; the actual cause is at the end.
func stderrTail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	kept := make([]string, 0, n)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return strings.Join(kept, "\n")
}
