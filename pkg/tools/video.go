package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/3leaps/clipforge/pkg/jobs"
	"github.com/3leaps/clipforge/pkg/media"
	"github.com/3leaps/clipforge/pkg/plan"
)

// OperationResult is the common result shape for editing tools.
type OperationResult struct {
	// Status is "completed" for immediate runs, "processing" for
	// background submissions.
	Status string `json:"status"`

	Output  string `json:"output"`
	Command string `json:"command"`

	// JobID is set only for background submissions; poll job_status
	// with it.
	JobID string `json:"job_id,omitempty"`

	// Estimate is the human-facing completion estimate for background
	// submissions.
	Estimate string `json:"estimate,omitempty"`
}

type probeArgs struct {
	Path string `json:"path"`
}

func (r *Registry) handleProbe(ctx context.Context, raw json.RawMessage) (any, string, error) {
	var args probeArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, "", err
	}
	path, err := r.resolvePath(args.Path)
	if err != nil {
		return nil, "", err
	}
	result, err := r.deps.Prober.Probe(ctx, path)
	if err != nil {
		return nil, "", err
	}
	// Report the workdir-relative path the agent asked about, not the
	// resolved one.
	result.Path = args.Path
	return result, "", nil
}

type extractArgs struct {
	Input    string  `json:"input"`
	Output   string  `json:"output"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Reencode bool    `json:"reencode,omitempty"`
}

func (r *Registry) handleExtract(ctx context.Context, raw json.RawMessage) (any, string, error) {
	var args extractArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, "", err
	}
	input, err := r.resolvePath(args.Input)
	if err != nil {
		return nil, "", err
	}
	output, err := r.resolvePath(args.Output)
	if err != nil {
		return nil, "", err
	}

	argv, err := media.ExtractArgs(input, output, args.Start, args.End, args.Reencode)
	if err != nil {
		return nil, "", err
	}
	sizeGiB, err := media.FileSizeGiB(input)
	if err != nil {
		return nil, "", err
	}
	return r.runOrSubmit(ctx, runSpec{
		input: input, output: args.Output, argv: argv,
		sizeGiB: sizeGiB, speedFactor: 1,
	})
}

type concatArgs struct {
	Inputs []string `json:"inputs"`
	Output string   `json:"output"`
}

func (r *Registry) handleConcat(ctx context.Context, raw json.RawMessage) (any, string, error) {
	var args concatArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, "", err
	}
	inputs, err := r.resolvePaths(args.Inputs)
	if err != nil {
		return nil, "", err
	}
	output, err := r.resolvePath(args.Output)
	if err != nil {
		return nil, "", err
	}

	body, err := media.ConcatList(inputs)
	if err != nil {
		return nil, "", err
	}
	listFile, err := writeConcatList(r.deps.Workdir, body)
	if err != nil {
		return nil, "", err
	}

	argv, err := media.ConcatArgs(listFile, output)
	if err != nil {
		return nil, "", err
	}
	sizeGiB, err := media.TotalSizeGiB(inputs)
	if err != nil {
		return nil, "", err
	}
	return r.runOrSubmit(ctx, runSpec{
		input: inputs[0], output: args.Output, argv: argv,
		sizeGiB: sizeGiB, speedFactor: 1,
	})
}

// writeConcatList persists the demuxer list next to the media it names.
// The list must outlive this request when the concat runs in background.
func writeConcatList(workdir, body string) (string, error) {
	f, err := os.CreateTemp(workdir, "concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create concat list: %w", err)
	}
	if _, err := f.WriteString(body); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write concat list: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close concat list: %w", err)
	}
	return f.Name(), nil
}

type speedArgs struct {
	Input  string  `json:"input"`
	Output string  `json:"output"`
	Factor float64 `json:"factor"`
}

func (r *Registry) handleSpeed(ctx context.Context, raw json.RawMessage) (any, string, error) {
	var args speedArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, "", err
	}
	input, err := r.resolvePath(args.Input)
	if err != nil {
		return nil, "", err
	}
	output, err := r.resolvePath(args.Output)
	if err != nil {
		return nil, "", err
	}

	argv, err := media.SpeedArgs(input, output, args.Factor)
	if err != nil {
		return nil, "", err
	}
	sizeGiB, err := media.FileSizeGiB(input)
	if err != nil {
		return nil, "", err
	}
	return r.runOrSubmit(ctx, runSpec{
		input: input, output: args.Output, argv: argv,
		sizeGiB: sizeGiB, speedFactor: args.Factor,
	})
}

type reelArgs struct {
	// PlanPath loads a YAML/JSON plan file; mutually exclusive with the
	// inline fields below.
	PlanPath string `json:"plan_path,omitempty"`

	Sources  []string       `json:"sources,omitempty"`
	Segments []plan.Segment `json:"segments,omitempty"`
	Speed    float64        `json:"speed,omitempty"`
	Output   string         `json:"output,omitempty"`
}

func (r *Registry) handleReel(ctx context.Context, raw json.RawMessage) (any, string, error) {
	var args reelArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, "", err
	}

	var p *plan.Plan
	switch {
	case args.PlanPath != "":
		if len(args.Sources) > 0 || len(args.Segments) > 0 || args.Output != "" {
			return nil, "", fmt.Errorf("plan_path and inline plan fields are mutually exclusive")
		}
		planPath, err := r.resolvePath(args.PlanPath)
		if err != nil {
			return nil, "", err
		}
		p, err = plan.Load(planPath)
		if err != nil {
			return nil, "", err
		}
	default:
		p = &plan.Plan{
			Version:  "1.0",
			Sources:  args.Sources,
			Segments: args.Segments,
			Speed:    args.Speed,
			Output:   args.Output,
		}
	}

	sources, err := r.resolvePaths(p.Sources)
	if err != nil {
		return nil, "", err
	}
	output, err := r.resolvePath(p.Output)
	if err != nil {
		return nil, "", err
	}

	argv, err := media.ReelArgs(sources, p.MediaSegments(), output, p.Speed)
	if err != nil {
		return nil, "", err
	}
	sizeGiB, err := media.TotalSizeGiB(sources)
	if err != nil {
		return nil, "", err
	}
	speedFactor := p.Speed
	if speedFactor == 0 {
		speedFactor = 1
	}
	return r.runOrSubmit(ctx, runSpec{
		input: sources[0], output: p.Output, argv: argv,
		sizeGiB: sizeGiB, speedFactor: speedFactor,
	})
}

type runSpec struct {
	input   string
	output  string
	argv    []string
	sizeGiB float64

	// speedFactor is forwarded to the duration estimate, which currently
	// ignores it.
	speedFactor float64
}

// runOrSubmit is the immediate-vs-background fork every editing tool goes
// through.
func (r *Registry) runOrSubmit(ctx context.Context, spec runSpec) (any, string, error) {
	commandDesc := r.deps.FFmpegBin + " " + joinArgs(spec.argv)

	if r.deps.Jobs.Classify(spec.sizeGiB) == jobs.ModeImmediate {
		handle, err := r.deps.Runner.Start(ctx, r.deps.FFmpegBin, spec.argv...)
		if err != nil {
			return nil, "", err
		}
		if err := handle.Wait(); err != nil {
			return nil, "", err
		}
		r.deps.Logger.Info("operation completed",
			zap.String("output", spec.output))
		return &OperationResult{
			Status:  string(jobs.StatusCompleted),
			Output:  spec.output,
			Command: commandDesc,
		}, "", nil
	}

	id, err := r.deps.Jobs.Submit(ctx, jobs.SubmitRequest{
		Input:   spec.input,
		Output:  spec.output,
		Name:    r.deps.FFmpegBin,
		Args:    spec.argv,
		SizeGiB: spec.sizeGiB,
	})
	if err != nil {
		return nil, "", err
	}

	estimate := r.deps.Jobs.EstimateDuration(spec.sizeGiB, spec.speedFactor)
	message := fmt.Sprintf(
		"Input is large; processing in the background. Estimated time: %s. Poll job_status with job_id %s.",
		estimate, id)
	return &OperationResult{
		Status:   string(jobs.StatusProcessing),
		Output:   spec.output,
		Command:  commandDesc,
		JobID:    id,
		Estimate: estimate,
	}, message, nil
}

func joinArgs(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		if strings.ContainsAny(a, " \t") {
			a = fmt.Sprintf("%q", a)
		}
		quoted[i] = a
	}
	return strings.Join(quoted, " ")
}
