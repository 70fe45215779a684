package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/clipforge/internal/config"
	"github.com/3leaps/clipforge/pkg/jobs"
)

type noopHandle struct{}

func (noopHandle) Wait() error { return nil }

type noopRunner struct{}

func (noopRunner) Start(context.Context, string, ...string) (jobs.Handle, error) {
	return noopHandle{}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	manager, err := jobs.NewManager(jobs.Config{Runner: noopRunner{}})
	require.NoError(t, err)
	return New(config.ServerConfig{Host: "localhost", Port: 0}, "1.2.3", manager, nil)
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		s := newTestServer(t)
		s.RegisterChecker("jobs", CheckerFunc(func(context.Context) error { return nil }))

		rec := httptest.NewRecorder()
		s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp HealthResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "1.2.3", resp.Version)
		assert.Equal(t, "healthy", resp.Checks["jobs"])
	})

	t.Run("unhealthy check flips status", func(t *testing.T) {
		s := newTestServer(t)
		s.RegisterChecker("disk", CheckerFunc(func(context.Context) error {
			return errors.New("workdir not writable")
		}))

		rec := httptest.NewRecorder()
		s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var resp HealthResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "unhealthy", resp.Status)
		assert.Contains(t, resp.Checks["disk"], "not writable")
	})
}

func TestVersion(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp VersionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "1.2.3", resp.Version)
}

func TestJobsEndpoint(t *testing.T) {
	manager, err := jobs.NewManager(jobs.Config{Runner: noopRunner{}})
	require.NoError(t, err)
	s := New(config.ServerConfig{Host: "localhost"}, "dev", manager, nil)

	_, err = manager.Submit(context.Background(), jobs.SubmitRequest{
		Input:   "raw/a.mp4",
		Output:  "out/a.mp4",
		Name:    "ffmpeg",
		Args:    []string{"-i", "raw/a.mp4"},
		SizeGiB: 2,
	})
	require.NoError(t, err)

	// The noop runner finishes instantly; wait for the terminal state.
	require.Eventually(t, func() bool {
		return len(manager.Snapshot().Completed) == 1
	}, time.Second, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var snap jobs.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	require.Len(t, snap.Completed, 1)
	assert.Equal(t, "raw/a.mp4", snap.Completed[0].Input)
	assert.Empty(t, snap.Active)
}

func TestStart_ShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx, time.Second) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}
