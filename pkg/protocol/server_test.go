package protocol

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedDispatcher struct {
	result  any
	message string
	err     error

	calls []string
}

func (d *scriptedDispatcher) Dispatch(_ context.Context, tool string, _ json.RawMessage) (any, string, error) {
	d.calls = append(d.calls, tool)
	if d.err != nil {
		return nil, "", d.err
	}
	return d.result, d.message, nil
}

func runSession(t *testing.T, input string, d Dispatcher) []Record {
	t.Helper()

	var out bytes.Buffer
	srv := NewServer(strings.NewReader(input), &out, d, nil)
	require.NoError(t, srv.Run(context.Background()))

	var records []Record
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var rec Record
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		records = append(records, rec)
	}
	return records
}

func requestLine(id, tool string) string {
	return fmt.Sprintf(
		`{"type": "clipforge.request.v1", "request_id": %q, "data": {"tool": %q, "args": {}}}`,
		id, tool) + "\n"
}

func TestServer_RespondsToToolCall(t *testing.T) {
	d := &scriptedDispatcher{
		result:  map[string]string{"status": "completed"},
		message: "done",
	}

	records := runSession(t, requestLine("req-1", "probe"), d)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, TypeResponse, rec.Type)
	assert.Equal(t, "req-1", rec.RequestID)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Data, &resp))
	assert.Equal(t, "probe", resp.Tool)
	assert.Equal(t, "done", resp.Message)
	assert.JSONEq(t, `{"status": "completed"}`, string(resp.Result))

	assert.Equal(t, []string{"probe"}, d.calls)
}

func TestServer_InvalidRequestGetsErrorRecord(t *testing.T) {
	d := &scriptedDispatcher{}

	// Second line is valid: one bad request must not end the session.
	input := `{"type": "clipforge.request.v1", "data": {"nope": true}}` + "\n" +
		requestLine("req-2", "probe")

	records := runSession(t, input, d)
	require.Len(t, records, 2)

	var errRec ErrorRecord
	require.NoError(t, json.Unmarshal(records[0].Data, &errRec))
	assert.Equal(t, CodeInvalidRequest, errRec.Code)
	assert.NotEmpty(t, records[0].RequestID, "server assigns an id when the client omits one")

	assert.Equal(t, TypeResponse, records[1].Type)
	assert.Equal(t, []string{"probe"}, d.calls, "invalid request never reaches the dispatcher")
}

func TestServer_MalformedJSONGetsErrorRecord(t *testing.T) {
	records := runSession(t, "{not json}\n", &scriptedDispatcher{})
	require.Len(t, records, 1)

	var errRec ErrorRecord
	require.NoError(t, json.Unmarshal(records[0].Data, &errRec))
	assert.Equal(t, CodeInvalidRequest, errRec.Code)
}

func TestServer_UnknownToolCode(t *testing.T) {
	d := &scriptedDispatcher{err: fmt.Errorf("%w: %q", ErrUnknownTool, "transcode")}

	records := runSession(t, requestLine("req-3", "transcode"), d)
	require.Len(t, records, 1)

	var errRec ErrorRecord
	require.NoError(t, json.Unmarshal(records[0].Data, &errRec))
	assert.Equal(t, CodeUnknownTool, errRec.Code)
	assert.Contains(t, errRec.Detail, "transcode")
}

func TestServer_ToolFailureCode(t *testing.T) {
	d := &scriptedDispatcher{err: errors.New("ffmpeg exited with status 1")}

	records := runSession(t, requestLine("req-4", "concat"), d)
	require.Len(t, records, 1)

	assert.Equal(t, "req-4", records[0].RequestID)
	var errRec ErrorRecord
	require.NoError(t, json.Unmarshal(records[0].Data, &errRec))
	assert.Equal(t, CodeToolFailed, errRec.Code)
	assert.Equal(t, "concat failed", errRec.Message)
	assert.Contains(t, errRec.Detail, "status 1")
}

func TestServer_ProcessesRequestsInOrder(t *testing.T) {
	d := &scriptedDispatcher{result: map[string]string{}}

	input := requestLine("a", "probe") + requestLine("b", "list_files") + requestLine("c", "job_status")
	records := runSession(t, input, d)

	require.Len(t, records, 3)
	assert.Equal(t, []string{"a", "b", "c"},
		[]string{records[0].RequestID, records[1].RequestID, records[2].RequestID})
	assert.Equal(t, []string{"probe", "list_files", "job_status"}, d.calls)
}

func TestServer_CleanEOF(t *testing.T) {
	var out bytes.Buffer
	srv := NewServer(strings.NewReader(""), &out, &scriptedDispatcher{}, nil)
	assert.NoError(t, srv.Run(context.Background()))
	assert.Empty(t, out.String())
}

func TestServer_ContextCancellationStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := NewServer(strings.NewReader(requestLine("x", "probe")), &bytes.Buffer{}, &scriptedDispatcher{}, nil)
	assert.ErrorIs(t, srv.Run(ctx), context.Canceled)
}
