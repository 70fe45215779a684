package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrUnknownTool is wrapped by dispatchers when a request names a tool that
// is not registered. The server answers it with CodeUnknownTool instead of
// CodeToolFailed.
var ErrUnknownTool = errors.New("unknown tool")

// Dispatcher routes a validated tool call to its handler.
type Dispatcher interface {
	// Dispatch runs the named tool. result is marshalled into the
	// response payload; message is an optional human-facing note.
	Dispatch(ctx context.Context, tool string, args json.RawMessage) (result any, message string, err error)
}

// Server runs the request/response loop for one client session.
//
// Requests are processed strictly in arrival order; a request-level failure
// produces an error record and the loop continues. Only transport errors
// (broken pipe, oversized line) end the session.
type Server struct {
	dec     *Decoder
	out     *Writer
	handler Dispatcher
	log     *zap.Logger
}

func NewServer(r io.Reader, w io.Writer, handler Dispatcher, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		dec:     NewDecoder(r),
		out:     NewWriter(w),
		handler: handler,
		log:     log,
	}
}

// Run processes requests until EOF, a transport error, or ctx cancellation.
func (s *Server) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := s.dec.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}

		if err := s.handleLine(ctx, line); err != nil {
			return err
		}
	}
}

func (s *Server) handleLine(ctx context.Context, line []byte) error {
	// Pull the request id out early so even schema failures correlate.
	var envelope Record
	_ = json.Unmarshal(line, &envelope)
	requestID := envelope.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	if err := ValidateRequest(line); err != nil {
		s.log.Warn("invalid request", zap.String("request_id", requestID), zap.Error(err))
		return s.out.WriteError(requestID, &ErrorRecord{
			Code:    CodeInvalidRequest,
			Message: "request failed schema validation",
			Detail:  err.Error(),
		})
	}

	var req Request
	if err := json.Unmarshal(envelope.Data, &req); err != nil {
		return s.out.WriteError(requestID, &ErrorRecord{
			Code:    CodeInvalidRequest,
			Message: "request payload is not a tool call",
			Detail:  err.Error(),
		})
	}

	s.log.Debug("dispatching tool call",
		zap.String("request_id", requestID),
		zap.String("tool", req.Tool))

	result, message, err := s.handler.Dispatch(ctx, req.Tool, req.Args)
	if err != nil {
		code := CodeToolFailed
		if errors.Is(err, ErrUnknownTool) {
			code = CodeUnknownTool
		}
		s.log.Warn("tool call failed",
			zap.String("request_id", requestID),
			zap.String("tool", req.Tool),
			zap.Error(err))
		return s.out.WriteError(requestID, &ErrorRecord{
			Code:    code,
			Message: fmt.Sprintf("%s failed", req.Tool),
			Detail:  err.Error(),
		})
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		return s.out.WriteError(requestID, &ErrorRecord{
			Code:    CodeToolFailed,
			Message: fmt.Sprintf("%s produced an unencodable result", req.Tool),
			Detail:  err.Error(),
		})
	}

	return s.out.WriteResponse(requestID, &Response{
		Tool:    req.Tool,
		Result:  resultBytes,
		Message: message,
	})
}
