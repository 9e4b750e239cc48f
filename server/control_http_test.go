package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/PavelAgarkov/halt-pkg/halt"
	"github.com/PavelAgarkov/halt-pkg/readiness_barrier"
	"github.com/PavelAgarkov/halt-pkg/registry"
	"github.com/stretchr/testify/require"
)

func controlFixture(t *testing.T) (*registry.Registry, *halt.Halt, *halt.Halt) {
	t.Helper()
	reg := registry.NewRegistry()
	a, b := halt.New(), halt.New()
	require.NoError(t, reg.Register("ingest", a.Remote(), "pipeline"))
	require.NoError(t, reg.Register("export", b.Remote(), "pipeline"))
	return reg, a, b
}

func doJSON(t *testing.T, h http.Handler, method, path string, out any) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec.Code
}

func TestChiListRemotes(t *testing.T) {
	reg, a, _ := controlFixture(t)
	a.Remote().Pause()

	s := newHTTPServer(":0")
	NewControlAPI(reg, nil).RegisterChiRoutes(s)

	var body struct {
		Remotes map[string]string `json:"remotes"`
	}
	code := doJSON(t, s.Router, http.MethodGet, "/halt/remotes", &body)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, map[string]string{"ingest": "paused", "export": "running"}, body.Remotes)
}

func TestChiRemoteState(t *testing.T) {
	reg, _, _ := controlFixture(t)

	s := newHTTPServer(":0")
	NewControlAPI(reg, nil).RegisterChiRoutes(s)

	var status remoteStatus
	code := doJSON(t, s.Router, http.MethodGet, "/halt/remotes/ingest", &status)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, remoteStatus{Name: "ingest", State: "running"}, status)

	code = doJSON(t, s.Router, http.MethodGet, "/halt/remotes/ghost", nil)
	require.Equal(t, http.StatusNotFound, code)
}

func TestChiApplyRemote(t *testing.T) {
	reg, a, _ := controlFixture(t)

	s := newHTTPServer(":0")
	NewControlAPI(reg, nil).RegisterChiRoutes(s)

	var result applyResult
	code := doJSON(t, s.Router, http.MethodPost, "/halt/remotes/ingest/pause", &result)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, applyResult{Target: "ingest", Op: "pause", Changed: 1, State: "paused"}, result)
	require.Equal(t, halt.Paused, a.State())

	code = doJSON(t, s.Router, http.MethodPost, "/halt/remotes/ingest/pause", &result)
	require.Equal(t, http.StatusOK, code)
	require.Zero(t, result.Changed, "repeated pause reports no transition")

	code = doJSON(t, s.Router, http.MethodPost, "/halt/remotes/ingest/explode", nil)
	require.Equal(t, http.StatusBadRequest, code)

	code = doJSON(t, s.Router, http.MethodPost, "/halt/remotes/ghost/pause", nil)
	require.Equal(t, http.StatusNotFound, code)
}

func TestChiGroupRoutes(t *testing.T) {
	reg, a, b := controlFixture(t)

	s := newHTTPServer(":0")
	NewControlAPI(reg, nil).RegisterChiRoutes(s)

	var groups struct {
		Groups []string `json:"groups"`
	}
	code := doJSON(t, s.Router, http.MethodGet, "/halt/groups", &groups)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, []string{"pipeline"}, groups.Groups)

	var result applyResult
	code = doJSON(t, s.Router, http.MethodPost, "/halt/groups/pipeline/pause", &result)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 2, result.Changed)
	require.Equal(t, halt.Paused, a.State())
	require.Equal(t, halt.Paused, b.State())

	var status groupStatus
	code = doJSON(t, s.Router, http.MethodGet, "/halt/groups/pipeline", &status)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, map[string]string{"ingest": "paused", "export": "paused"}, status.Members)

	code = doJSON(t, s.Router, http.MethodGet, "/halt/groups/ghost", nil)
	require.Equal(t, http.StatusNotFound, code)
}

func TestChiApplyAll(t *testing.T) {
	reg, a, b := controlFixture(t)

	s := newHTTPServer(":0")
	NewControlAPI(reg, nil).RegisterChiRoutes(s)

	var result applyResult
	code := doJSON(t, s.Router, http.MethodPost, "/halt/all/stop", &result)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 2, result.Changed)
	require.True(t, a.Remote().IsStopped())
	require.True(t, b.Remote().IsStopped())
}

func TestChiReadyz(t *testing.T) {
	reg, a, _ := controlFixture(t)
	barrier := readiness_barrier.NewReadinessBarrier(context.Background(), readiness_barrier.ReadinessBarrierConfig{
		Name:           "api",
		SampleInterval: 10 * time.Millisecond,
	}, reg)
	t.Cleanup(barrier.Stop)

	s := newHTTPServer(":0")
	NewControlAPI(reg, barrier).RegisterChiRoutes(s)

	require.Equal(t, http.StatusServiceUnavailable,
		doJSON(t, s.Router, http.MethodGet, "/readyz", nil), "not ready before barrier start")

	barrier.Start()
	require.Eventually(t, func() bool {
		return doJSON(t, s.Router, http.MethodGet, "/readyz", nil) == http.StatusOK
	}, 2*time.Second, 5*time.Millisecond)

	a.Remote().Pause()
	require.Eventually(t, func() bool {
		return doJSON(t, s.Router, http.MethodGet, "/readyz", nil) == http.StatusServiceUnavailable
	}, 2*time.Second, 5*time.Millisecond)
}

func TestMuxRoutesMirrorChi(t *testing.T) {
	reg, a, _ := controlFixture(t)

	s := newSimpleHTTPServer(":0")
	NewControlAPI(reg, nil).RegisterMuxRoutes(s)

	var body struct {
		Remotes map[string]string `json:"remotes"`
	}
	code := doJSON(t, s.Router, http.MethodGet, "/halt/remotes", &body)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body.Remotes, 2)

	var result applyResult
	code = doJSON(t, s.Router, http.MethodPost, "/halt/remotes/ingest/pause", &result)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1, result.Changed)
	require.Equal(t, halt.Paused, a.State())

	code = doJSON(t, s.Router, http.MethodPost, "/halt/groups/pipeline/resume", &result)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1, result.Changed, "only the paused member flips back")
}
