// Package plan loads and validates highlight-reel plans.
//
// A plan is a declarative YAML or JSON document naming source files and the
// segments to assemble from them. Plans are validated against an embedded
// JSON schema before any command construction happens, so a bad plan fails
// with a field pointer instead of an ffmpeg parse error.
package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/3leaps/clipforge/pkg/media"
)

// Plan describes one highlight-reel assembly.
type Plan struct {
	Version string `json:"version" yaml:"version"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`

	// Sources are the input files segments draw from.
	Sources []string `json:"sources" yaml:"sources"`

	Segments []Segment `json:"segments" yaml:"segments"`

	// Speed retimes the assembled reel. Zero or 1 means unchanged.
	Speed float64 `json:"speed,omitempty" yaml:"speed,omitempty"`

	Output string `json:"output" yaml:"output"`
}

// Segment selects [Start, End) seconds of the source at index Source.
type Segment struct {
	Source int     `json:"source" yaml:"source"`
	Start  float64 `json:"start" yaml:"start"`
	End    float64 `json:"end" yaml:"end"`
}

// MediaSegments converts the plan's segments for command construction.
func (p *Plan) MediaSegments() []media.Segment {
	out := make([]media.Segment, 0, len(p.Segments))
	for _, s := range p.Segments {
		out = append(out, media.Segment{Source: s.Source, Start: s.Start, End: s.End})
	}
	return out
}

// Load reads and validates a plan from the given file path.
//
// The file format is determined by extension: .yaml/.yml for YAML, .json for
// JSON. Unrecognized extensions try YAML first, then JSON.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("plan file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	return LoadFromBytes(data, path)
}

// LoadFromBytes parses and validates a plan from raw bytes.
//
// Validation runs on the raw data (converted to JSON) before parsing into
// the typed struct, so unknown fields are rejected rather than silently
// ignored.
func LoadFromBytes(data []byte, path string) (*Plan, error) {
	if len(data) == 0 {
		return nil, errors.New("plan file is empty")
	}

	jsonData, err := toJSON(data, path)
	if err != nil {
		return nil, err
	}
	if err := ValidateRaw(jsonData); err != nil {
		return nil, err
	}

	var p Plan
	if err := json.Unmarshal(jsonData, &p); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	if err := p.checkSemantics(); err != nil {
		return nil, err
	}
	return &p, nil
}

// checkSemantics covers what the schema cannot: cross-field constraints.
func (p *Plan) checkSemantics() error {
	for i, seg := range p.Segments {
		if seg.Source < 0 || seg.Source >= len(p.Sources) {
			return fmt.Errorf("segment %d: source index %d out of range (plan has %d sources)",
				i, seg.Source, len(p.Sources))
		}
		if seg.End <= seg.Start {
			return fmt.Errorf("segment %d: end %v must be after start %v", i, seg.End, seg.Start)
		}
	}
	for i, src := range p.Sources {
		if strings.TrimSpace(src) == "" {
			return fmt.Errorf("source %d is empty", i)
		}
	}
	return nil
}

// toJSON converts plan data to JSON for schema validation.
func toJSON(data []byte, path string) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".json":
		var raw any
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid JSON in plan: %w", err)
		}
		return data, nil
	case ".yaml", ".yml":
		return yamlToJSON(data)
	default:
		jsonData, err := yamlToJSON(data)
		if err == nil {
			return jsonData, nil
		}
		var raw any
		if jsonErr := json.Unmarshal(data, &raw); jsonErr == nil {
			return data, nil
		}
		return nil, fmt.Errorf("failed to parse plan (tried YAML and JSON): %w", err)
	}
}

func yamlToJSON(data []byte) ([]byte, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid YAML in plan: %w", err)
	}
	jsonData, err := json.Marshal(normalizeYAML(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to convert plan YAML to JSON: %w", err)
	}
	return jsonData, nil
}

// normalizeYAML rewrites map[any]any (yaml.v3 for merged keys) into
// map[string]any so json.Marshal accepts it.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeYAML(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeYAML(item)
		}
		return out
	default:
		return v
	}
}
