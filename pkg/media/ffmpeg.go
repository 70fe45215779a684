// Package media builds ffmpeg/ffprobe invocations for the editing
// operations clipforge exposes.
//
// Builders are pure: they validate inputs and return argv slices. Nothing in
// this package runs a process; execution belongs to the caller (directly for
// immediate work, via the job manager for background work).
package media

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultFFmpegBin is used when configuration does not name a binary.
const DefaultFFmpegBin = "ffmpeg"

// Segment is a half-open [Start, End) slice of a source, in seconds.
type Segment struct {
	// Source is an index into the reel's source list. Unused (always 0)
	// for single-input operations.
	Source int

	Start float64
	End   float64
}

func (s Segment) validate(nSources int) error {
	if s.Source < 0 || s.Source >= nSources {
		return fmt.Errorf("segment source %d out of range (have %d sources)", s.Source, nSources)
	}
	if s.Start < 0 {
		return fmt.Errorf("segment start %s is negative", formatSeconds(s.Start))
	}
	if s.End <= s.Start {
		return fmt.Errorf("segment end %s must be after start %s", formatSeconds(s.End), formatSeconds(s.Start))
	}
	return nil
}

// ExtractArgs builds an argv that cuts [start, end) out of input.
//
// By default streams are copied without re-encoding, which is fast but cuts
// on keyframes; reencode trades speed for frame accuracy.
func ExtractArgs(input, output string, start, end float64, reencode bool) ([]string, error) {
	if err := (Segment{Start: start, End: end}).validate(1); err != nil {
		return nil, err
	}
	if err := checkPaths(input, output); err != nil {
		return nil, err
	}

	args := []string{
		"-y",
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-i", input,
	}
	if reencode {
		args = append(args, "-c:v", "libx264", "-c:a", "aac")
	} else {
		args = append(args, "-c", "copy")
	}
	return append(args, output), nil
}

// ConcatArgs builds an argv for the concat demuxer over a prepared list file.
//
// The list file must be written with ConcatList first. -safe 0 is required
// because list entries are arbitrary paths.
func ConcatArgs(listFile, output string) ([]string, error) {
	if err := checkPaths(listFile, output); err != nil {
		return nil, err
	}
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		output,
	}, nil
}

// ConcatList renders the concat demuxer's list-file body for the inputs.
//
// Single quotes inside a path are escaped the way the demuxer expects:
// the quoted string is closed, an escaped quote emitted, and reopened.
func ConcatList(inputs []string) (string, error) {
	if len(inputs) < 2 {
		return "", fmt.Errorf("concat needs at least 2 inputs, got %d", len(inputs))
	}
	var b strings.Builder
	for _, in := range inputs {
		if strings.TrimSpace(in) == "" {
			return "", fmt.Errorf("concat input path is empty")
		}
		escaped := strings.ReplaceAll(in, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}
	return b.String(), nil
}

// SpeedArgs builds an argv that changes playback speed by factor.
//
// Video uses setpts=PTS/factor. Audio uses atempo, which only accepts
// 0.5-2.0 per filter instance, so factors outside that range are realised
// as a chain of atempo filters.
func SpeedArgs(input, output string, factor float64) ([]string, error) {
	if err := checkPaths(input, output); err != nil {
		return nil, err
	}
	chain, err := atempoChain(factor)
	if err != nil {
		return nil, err
	}

	graph := fmt.Sprintf("[0:v]setpts=PTS/%s[v];[0:a]%s[a]",
		formatSeconds(factor), strings.Join(chain, ","))

	return []string{
		"-y",
		"-i", input,
		"-filter_complex", graph,
		"-map", "[v]",
		"-map", "[a]",
		output,
	}, nil
}

// ReelArgs builds a single filter_complex invocation that trims every
// segment from its source and concatenates them into one output, optionally
// retimed by speed (0 or 1 means no speed change).
//
// Assembling the reel in one process keeps the whole operation a single
// tracked job instead of a multi-step pipeline with intermediate files.
func ReelArgs(sources []string, segments []Segment, output string, speed float64) ([]string, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("reel needs at least one source")
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("reel needs at least one segment")
	}
	for _, src := range sources {
		if strings.TrimSpace(src) == "" {
			return nil, fmt.Errorf("reel source path is empty")
		}
	}
	if strings.TrimSpace(output) == "" {
		return nil, fmt.Errorf("output path is required")
	}

	var graph strings.Builder
	for i, seg := range segments {
		if err := seg.validate(len(sources)); err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		fmt.Fprintf(&graph, "[%d:v]trim=start=%s:end=%s,setpts=PTS-STARTPTS[v%d];",
			seg.Source, formatSeconds(seg.Start), formatSeconds(seg.End), i)
		fmt.Fprintf(&graph, "[%d:a]atrim=start=%s:end=%s,asetpts=PTS-STARTPTS[a%d];",
			seg.Source, formatSeconds(seg.Start), formatSeconds(seg.End), i)
	}
	for i := range segments {
		fmt.Fprintf(&graph, "[v%d][a%d]", i, i)
	}
	fmt.Fprintf(&graph, "concat=n=%d:v=1:a=1", len(segments))

	vout, aout := "[vout]", "[aout]"
	if speed > 0 && speed != 1 {
		chain, err := atempoChain(speed)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&graph, "[vcat][acat];[vcat]setpts=PTS/%s%s;[acat]%s%s",
			formatSeconds(speed), vout, strings.Join(chain, ","), aout)
	} else {
		fmt.Fprintf(&graph, "%s%s", vout, aout)
	}

	args := []string{"-y"}
	for _, src := range sources {
		args = append(args, "-i", src)
	}
	args = append(args,
		"-filter_complex", graph.String(),
		"-map", vout,
		"-map", aout,
		output,
	)
	return args, nil
}

// atempoChain decomposes a speed factor into atempo filter instances, each
// within the filter's legal 0.5-2.0 range.
func atempoChain(factor float64) ([]string, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("speed factor must be > 0, got %s", formatSeconds(factor))
	}
	// Clamp extreme factors: beyond 16x (or 1/16x) the audio is useless
	// and the chain length unbounded.
	if factor > 16 || factor < 1.0/16 {
		return nil, fmt.Errorf("speed factor %s out of supported range [1/16, 16]", formatSeconds(factor))
	}

	var chain []string
	for factor > 2.0 {
		chain = append(chain, "atempo=2.0")
		factor /= 2.0
	}
	for factor < 0.5 {
		chain = append(chain, "atempo=0.5")
		factor /= 0.5
	}
	chain = append(chain, "atempo="+formatSeconds(factor))
	return chain, nil
}

func checkPaths(input, output string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("input path is required")
	}
	if strings.TrimSpace(output) == "" {
		return fmt.Errorf("output path is required")
	}
	if input == output {
		return fmt.Errorf("input and output must differ")
	}
	return nil
}

// formatSeconds renders a float without trailing zeros, matching what
// agents see echoed back in command descriptions.
func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
