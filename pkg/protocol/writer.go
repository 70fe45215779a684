package protocol

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// Writer emits protocol records as newline-delimited JSON.
//
// Writer is safe for concurrent use: line writes are serialised by a mutex
// so output never interleaves, which matters once background job completions
// log while a response is being written.
type Writer struct {
	w  io.Writer
	mu sync.Mutex

	closed bool
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteResponse emits a response record correlated to requestID.
func (pw *Writer) WriteResponse(requestID string, resp *Response) error {
	return pw.writeRecord(TypeResponse, requestID, resp)
}

// WriteError emits an error record correlated to requestID (empty when the
// request could not even be parsed).
func (pw *Writer) WriteError(requestID string, rec *ErrorRecord) error {
	return pw.writeRecord(TypeError, requestID, rec)
}

// Close marks the writer as closed. The underlying writer is not closed;
// that stays with whoever opened it.
func (pw *Writer) Close() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	pw.closed = true
	return nil
}

func (pw *Writer) writeRecord(recordType, requestID string, data any) error {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", recordType, err)
	}

	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.closed {
		return ErrWriterClosed
	}

	record := Record{
		Type:      recordType,
		TS:        time.Now().UTC(),
		RequestID: requestID,
		Data:      dataBytes,
	}
	recordBytes, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", recordType, err)
	}

	recordBytes = append(recordBytes, '\n')
	if _, err := pw.w.Write(recordBytes); err != nil {
		return fmt.Errorf("write %s record: %w", recordType, err)
	}
	return nil
}
