package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// DefaultFFprobeBin is used when configuration does not name a binary.
const DefaultFFprobeBin = "ffprobe"

// ProbeResult is the parsed metadata for one media file.
type ProbeResult struct {
	Path            string  `json:"path"`
	Container       string  `json:"container"`
	DurationSeconds float64 `json:"duration_seconds"`
	SizeBytes       int64   `json:"size_bytes"`
	BitRate         int64   `json:"bit_rate,omitempty"`

	Streams []StreamInfo `json:"streams"`
}

// StreamInfo summarises one stream from ffprobe output.
type StreamInfo struct {
	Type      string `json:"type"`
	Codec     string `json:"codec"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	FrameRate string `json:"frame_rate,omitempty"`
	Channels  int    `json:"channels,omitempty"`
	SampleRt  string `json:"sample_rate,omitempty"`
}

// Prober runs ffprobe and parses its JSON output. Probing is always
// synchronous: it is metadata-only and completes in well under a second
// regardless of file size.
type Prober struct {
	bin string

	// run is swapped in tests to avoid requiring ffprobe on PATH.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewProber creates a Prober using the given ffprobe binary. Empty bin
// falls back to DefaultFFprobeBin.
func NewProber(bin string) *Prober {
	if strings.TrimSpace(bin) == "" {
		bin = DefaultFFprobeBin
	}
	return &Prober{bin: bin, run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return nil, fmt.Errorf("%s: %s", name, stderrFirstLine(string(ee.Stderr)))
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func stderrFirstLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	// ffprobe puts the useful diagnostic on the last line.
	return strings.TrimSpace(lines[len(lines)-1])
}

// ProbeArgs is the exact invocation Probe issues, exported so callers can
// echo it in command descriptions.
func ProbeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
}

// Probe inspects one media file.
func (p *Prober) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("probe path is required")
	}

	out, err := p.run(ctx, p.bin, ProbeArgs(path)...)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", path, err)
	}
	return parseProbeOutput(path, out)
}

// ffprobe's JSON shape: numbers arrive as strings.
type ffprobeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		Size       string `json:"size"`
		BitRate    string `json:"bit_rate"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		Channels     int    `json:"channels"`
		SampleRate   string `json:"sample_rate"`
	} `json:"streams"`
}

func parseProbeOutput(path string, data []byte) (*ProbeResult, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe output for %s: %w", path, err)
	}

	result := &ProbeResult{
		Path:      path,
		Container: raw.Format.FormatName,
	}
	if raw.Format.Duration != "" {
		d, err := strconv.ParseFloat(raw.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("parse duration %q: %w", raw.Format.Duration, err)
		}
		result.DurationSeconds = d
	}
	if raw.Format.Size != "" {
		n, err := strconv.ParseInt(raw.Format.Size, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse size %q: %w", raw.Format.Size, err)
		}
		result.SizeBytes = n
	}
	if raw.Format.BitRate != "" {
		if n, err := strconv.ParseInt(raw.Format.BitRate, 10, 64); err == nil {
			result.BitRate = n
		}
	}

	for _, s := range raw.Streams {
		result.Streams = append(result.Streams, StreamInfo{
			Type:      s.CodecType,
			Codec:     s.CodecName,
			Width:     s.Width,
			Height:    s.Height,
			FrameRate: s.AvgFrameRate,
			Channels:  s.Channels,
			SampleRt:  s.SampleRate,
		})
	}
	return result, nil
}
