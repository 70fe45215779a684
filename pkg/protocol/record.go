// Package protocol implements clipforge's line-oriented request/response
// channel.
//
// The transport is newline-delimited JSON over a single long-lived pipe
// (stdin/stdout of a serve session). Each line is a self-contained envelope
// with a typed payload; requests are processed in arrival order for exactly
// one client.
package protocol

import (
	"encoding/json"
	"errors"
	"time"
)

// Envelope type constants follow the pattern clipforge.<type>.v<version>.
const (
	// TypeRequest identifies inbound tool-call requests.
	TypeRequest = "clipforge.request.v1"

	// TypeResponse identifies successful tool results.
	TypeResponse = "clipforge.response.v1"

	// TypeError identifies request-level failures.
	TypeError = "clipforge.error.v1"
)

// Record is the envelope for every protocol line.
type Record struct {
	// Type identifies the record type (e.g. "clipforge.request.v1").
	Type string `json:"type"`

	// TS is when the record was created.
	TS time.Time `json:"ts"`

	// RequestID correlates a response or error with its request. Assigned
	// by the server when the client omits it.
	RequestID string `json:"request_id,omitempty"`

	// Data is the type-specific payload.
	Data json.RawMessage `json:"data"`
}

// Request is the data payload of a TypeRequest record.
type Request struct {
	// Tool names the operation (e.g. "extract_segment").
	Tool string `json:"tool"`

	// Args is the tool-specific argument object.
	Args json.RawMessage `json:"args,omitempty"`
}

// Response is the data payload of a TypeResponse record.
type Response struct {
	Tool string `json:"tool"`

	// Result is the tool-specific result object.
	Result json.RawMessage `json:"result"`

	// Message is an optional human-facing note (e.g. the completion
	// estimate attached to a background submission).
	Message string `json:"message,omitempty"`
}

// ErrorRecord is the data payload of a TypeError record.
type ErrorRecord struct {
	// Code is a stable machine-readable identifier.
	Code string `json:"code"`

	// Message describes the failure.
	Message string `json:"message"`

	// Detail carries supplementary diagnostics (validation paths,
	// process stderr, ...).
	Detail string `json:"detail,omitempty"`
}

// Error codes emitted by the server loop.
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeUnknownTool    = "UNKNOWN_TOOL"
	CodeToolFailed     = "TOOL_FAILED"
)

// ErrWriterClosed is returned when writing to a closed writer.
var ErrWriterClosed = errors.New("protocol writer is closed")
