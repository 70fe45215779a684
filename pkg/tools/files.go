package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/3leaps/clipforge/pkg/jobs"
)

// mediaExtensions is the allow-list for list_files. Non-media files in the
// workdir (concat lists, plans, logs) stay out of the agent's view.
var mediaExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".avi": true, ".webm": true,
	".m4v": true, ".mpg": true, ".mpeg": true, ".ts": true,
	".mp3": true, ".wav": true, ".aac": true, ".m4a": true, ".flac": true, ".ogg": true,
}

type listFilesArgs struct {
	// Pattern is a doublestar glob relative to the workdir.
	// Defaults to "**/*" (everything).
	Pattern string `json:"pattern,omitempty"`
}

// FileEntry is one row of a list_files result.
type FileEntry struct {
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	Size      string    `json:"size"`
	Modified  time.Time `json:"modified"`
}

type listFilesResult struct {
	Workdir string      `json:"workdir"`
	Pattern string      `json:"pattern"`
	Files   []FileEntry `json:"files"`
}

func (r *Registry) handleListFiles(_ context.Context, raw json.RawMessage) (any, string, error) {
	var args listFilesArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, "", err
	}
	pattern := strings.TrimSpace(args.Pattern)
	if pattern == "" {
		pattern = "**/*"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, "", fmt.Errorf("invalid glob pattern: %s", pattern)
	}

	fsys := os.DirFS(r.deps.Workdir)
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, "", fmt.Errorf("glob %s: %w", pattern, err)
	}

	result := listFilesResult{
		Workdir: r.deps.Workdir,
		Pattern: pattern,
		Files:   []FileEntry{},
	}
	for _, m := range matches {
		if !mediaExtensions[strings.ToLower(filepath.Ext(m))] {
			continue
		}
		info, err := fs.Stat(fsys, m)
		if err != nil || info.IsDir() {
			continue
		}
		result.Files = append(result.Files, FileEntry{
			Path:      m,
			SizeBytes: info.Size(),
			Size:      humanBytes(info.Size()),
			Modified:  info.ModTime().UTC(),
		})
	}
	sort.Slice(result.Files, func(i, j int) bool {
		return result.Files[i].Path < result.Files[j].Path
	})
	return &result, "", nil
}

// recentTerminalJobs is how many completed/failed entries job_status shows.
// The full set stays in the registry until retention evicts it; this is a
// presentation choice, not a storage one.
const recentTerminalJobs = 3

type jobStatusResult struct {
	Active    []jobs.JobView `json:"active"`
	Completed []jobs.JobView `json:"completed"`
	Failed    []jobs.JobView `json:"failed"`
}

func (r *Registry) handleJobStatus(_ context.Context, raw json.RawMessage) (any, string, error) {
	var args struct{}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, "", err
	}

	snap := r.deps.Jobs.Snapshot()
	return &jobStatusResult{
		Active:    snap.Active,
		Completed: lastN(snap.Completed, recentTerminalJobs),
		Failed:    lastN(snap.Failed, recentTerminalJobs),
	}, "", nil
}

func lastN(views []jobs.JobView, n int) []jobs.JobView {
	if len(views) <= n {
		return views
	}
	return views[len(views)-n:]
}

type fetchSourceArgs struct {
	URI string `json:"uri"`
}

type fetchSourceResult struct {
	URI   string `json:"uri"`
	Local string `json:"local"`
	Size  string `json:"size"`
}

func (r *Registry) handleFetchSource(ctx context.Context, raw json.RawMessage) (any, string, error) {
	var args fetchSourceArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(args.URI) == "" {
		return nil, "", fmt.Errorf("uri is required")
	}

	local, err := r.deps.Fetcher.Fetch(ctx, args.URI, r.deps.Workdir)
	if err != nil {
		return nil, "", err
	}

	info, err := os.Stat(local)
	if err != nil {
		return nil, "", fmt.Errorf("stat fetched file: %w", err)
	}
	rel, err := filepath.Rel(r.deps.Workdir, local)
	if err != nil {
		rel = local
	}
	return &fetchSourceResult{
		URI:   args.URI,
		Local: rel,
		Size:  humanBytes(info.Size()),
	}, fmt.Sprintf("Fetched %s to %s.", args.URI, rel), nil
}

func humanBytes(n int64) string {
	const (
		kib = 1 << 10
		mib = 1 << 20
		gib = 1 << 30
	)
	switch {
	case n >= gib:
		return fmt.Sprintf("%.1f GiB", float64(n)/gib)
	case n >= mib:
		return fmt.Sprintf("%.1f MiB", float64(n)/mib)
	case n >= kib:
		return fmt.Sprintf("%.1f KiB", float64(n)/kib)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
