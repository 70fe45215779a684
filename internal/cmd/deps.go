package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/3leaps/clipforge/internal/config"
	"github.com/3leaps/clipforge/internal/observability"
	"github.com/3leaps/clipforge/pkg/jobs"
	"github.com/3leaps/clipforge/pkg/media"
	"github.com/3leaps/clipforge/pkg/source"
	"github.com/3leaps/clipforge/pkg/tools"
)

// runtimeDeps bundles everything a command needs to execute tool calls.
type runtimeDeps struct {
	registry *tools.Registry
	manager  *jobs.Manager
	cfg      *config.Config
}

// buildDeps assembles the job manager and tool registry from the loaded
// configuration.
func buildDeps(ctx context.Context) (*runtimeDeps, error) {
	cfg := appConfig
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	manager, err := jobs.NewManager(jobs.Config{
		Runner:        jobs.ExecRunner{},
		ThresholdGiB:  cfg.Jobs.ThresholdGiB,
		Retention:     cfg.Jobs.Retention,
		MinutesPerGiB: cfg.Jobs.MinutesPerGiB,
		Logger:        observability.CLILogger,
	})
	if err != nil {
		return nil, fmt.Errorf("build job manager: %w", err)
	}

	var fetcher tools.Fetcher
	if cfg.Source.Enabled {
		f, err := source.NewS3Fetcher(ctx, source.Config{
			Region:          cfg.Source.Region,
			Endpoint:        cfg.Source.Endpoint,
			Profile:         cfg.Source.Profile,
			AccessKeyID:     cfg.Source.AccessKeyID,
			SecretAccessKey: cfg.Source.SecretAccessKey,
			ForcePathStyle:  cfg.Source.ForcePathStyle,
			BytesPerSecond:  int(cfg.Source.BytesPerSecond),
		})
		if err != nil {
			return nil, fmt.Errorf("build source fetcher: %w", err)
		}
		fetcher = f
	}

	registry, err := tools.NewRegistry(tools.Deps{
		Jobs:      manager,
		Runner:    jobs.ExecRunner{},
		Prober:    media.NewProber(cfg.FFprobeBin),
		Fetcher:   fetcher,
		Workdir:   cfg.Workdir,
		FFmpegBin: cfg.FFmpegBin,
		Logger:    observability.CLILogger,
	})
	if err != nil {
		return nil, fmt.Errorf("build tool registry: %w", err)
	}

	return &runtimeDeps{registry: registry, manager: manager, cfg: cfg}, nil
}

// runTool executes one tool call and prints the result as indented JSON.
// Shared by the one-shot subcommands; serve has its own loop.
func runTool(ctx context.Context, tool string, args any) error {
	deps, err := buildDeps(ctx)
	if err != nil {
		return err
	}

	rawArgs, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode %s arguments: %w", tool, err)
	}

	result, message, err := deps.registry.Dispatch(ctx, tool, rawArgs)
	if err != nil {
		return err
	}
	if message != "" {
		fmt.Fprintln(os.Stderr, message)
	}

	// A serve session hands background jobs back to the client to poll. A
	// one-shot invocation has nobody to poll, so wait for the job here.
	if op, ok := result.(*tools.OperationResult); ok && op.JobID != "" {
		finished, err := waitForJob(ctx, deps.manager, op.JobID)
		if err != nil {
			return err
		}
		result = finished
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode %s result: %w", tool, err)
	}
	return nil
}

func waitForJob(ctx context.Context, manager *jobs.Manager, id string) (*jobs.JobView, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		snap := manager.Snapshot()
		for _, v := range snap.Completed {
			if v.ID == id {
				return &v, nil
			}
		}
		for _, v := range snap.Failed {
			if v.ID == id {
				return nil, fmt.Errorf("job %s failed: %s", id, v.FailureDetail)
			}
		}
	}
}
