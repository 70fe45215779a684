// Package tools implements the dispatch table behind the clipforge line
// protocol.
//
// Each tool is a named handler over a JSON argument object. Handlers build
// ffmpeg invocations, classify the work by input size, and either run it
// synchronously or hand it to the job manager.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/3leaps/clipforge/pkg/jobs"
	"github.com/3leaps/clipforge/pkg/media"
	"github.com/3leaps/clipforge/pkg/protocol"
)

// Fetcher resolves a remote source URI to a local file in destDir.
type Fetcher interface {
	Fetch(ctx context.Context, rawURI, destDir string) (string, error)
}

// Deps wires a Registry. Jobs, Runner, and Prober are required.
type Deps struct {
	// Jobs owns background execution and status snapshots.
	Jobs *jobs.Manager

	// Runner executes immediate (small-file) commands synchronously.
	Runner jobs.Runner

	// Prober inspects media metadata.
	Prober *media.Prober

	// Fetcher is optional; nil disables the fetch_source tool.
	Fetcher Fetcher

	// Workdir roots all relative artifact paths.
	Workdir string

	// FFmpegBin overrides the ffmpeg binary name.
	FFmpegBin string

	Logger *zap.Logger
}

type handlerFunc func(ctx context.Context, args json.RawMessage) (any, string, error)

// Registry routes tool calls to handlers. It implements protocol.Dispatcher.
type Registry struct {
	deps     Deps
	handlers map[string]handlerFunc
}

var _ protocol.Dispatcher = (*Registry)(nil)

// NewRegistry builds the dispatch table.
func NewRegistry(deps Deps) (*Registry, error) {
	if deps.Jobs == nil {
		return nil, fmt.Errorf("tools: job manager is required")
	}
	if deps.Runner == nil {
		return nil, fmt.Errorf("tools: runner is required")
	}
	if deps.Prober == nil {
		return nil, fmt.Errorf("tools: prober is required")
	}
	if strings.TrimSpace(deps.Workdir) == "" {
		deps.Workdir = "."
	}
	if strings.TrimSpace(deps.FFmpegBin) == "" {
		deps.FFmpegBin = media.DefaultFFmpegBin
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	r := &Registry{deps: deps, handlers: map[string]handlerFunc{}}
	r.handlers["probe"] = r.handleProbe
	r.handlers["extract_segment"] = r.handleExtract
	r.handlers["concat"] = r.handleConcat
	r.handlers["change_speed"] = r.handleSpeed
	r.handlers["assemble_reel"] = r.handleReel
	r.handlers["list_files"] = r.handleListFiles
	r.handlers["job_status"] = r.handleJobStatus
	if deps.Fetcher != nil {
		r.handlers["fetch_source"] = r.handleFetchSource
	}
	return r, nil
}

// Dispatch implements protocol.Dispatcher.
func (r *Registry) Dispatch(ctx context.Context, tool string, args json.RawMessage) (any, string, error) {
	h, ok := r.handlers[tool]
	if !ok {
		return nil, "", fmt.Errorf("%w: %q (known tools: %s)",
			protocol.ErrUnknownTool, tool, strings.Join(r.Tools(), ", "))
	}
	return h(ctx, args)
}

// Tools returns the registered tool names, sorted.
func (r *Registry) Tools() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// decodeArgs unmarshals strictly: unknown argument fields are errors, so an
// agent that misspells an option hears about it instead of getting defaults.
func decodeArgs(args json.RawMessage, into any) error {
	if len(args) == 0 {
		args = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// resolvePath roots a relative path in the workdir and rejects escapes.
// The workdir is the contract boundary for an agent-driven session: every
// artifact it names lives under there.
func (r *Registry) resolvePath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", fmt.Errorf("path is required")
	}
	if filepath.IsAbs(p) {
		return "", fmt.Errorf("absolute paths are not allowed: %s", p)
	}
	clean := filepath.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes the working directory: %s", p)
	}
	return filepath.Join(r.deps.Workdir, clean), nil
}

func (r *Registry) resolvePaths(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		resolved, err := r.resolvePath(p)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	return out, nil
}
