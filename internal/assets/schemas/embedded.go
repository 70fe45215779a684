// Package schemasassets provides embedded JSON schemas for standalone binary behavior.
//
// Schemas are embedded at compile time to ensure the CLI and library work
// correctly regardless of the working directory or installation location.
package schemasassets

import _ "embed"

// ToolRequestSchema is the embedded tool-request JSON schema.
//
// Every inbound protocol line is validated against this schema before
// dispatch, so malformed or unknown-field requests are rejected with a
// pointer to the offending field.
//
//go:embed tool-request.schema.json
var ToolRequestSchema []byte

// ReelPlanSchema is the embedded reel-plan JSON schema.
//
// Highlight-reel plans loaded from YAML/JSON files are validated against
// this schema before any ffmpeg command is built.
//
//go:embed reel-plan.schema.json
var ReelPlanSchema []byte
