package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CSroseX/load-degradation-simulator/internal/config"
	"github.com/CSroseX/load-degradation-simulator/internal/middleware"
	"github.com/CSroseX/load-degradation-simulator/internal/simulator"
)

func newTestServer(t *testing.T, opts ...simulator.Option) (*Server, *simulator.Simulator) {
	t.Helper()
	metrics := middleware.NewMetrics()
	sim := simulator.New(append(opts, simulator.WithObserver(metrics))...)
	metrics.TrackInFlight(sim)

	srv, err := New(Options{
		Config:    config.Default(),
		Simulator: sim,
		Profiles:  simulator.DefaultProfiles(),
		Metrics:   metrics,
	})
	require.NoError(t, err)
	return srv, sim
}

func instant(ctx context.Context, d time.Duration) error { return ctx.Err() }

func TestRoutes_ProfileEndpoints(t *testing.T) {
	srv, sim := newTestServer(t,
		simulator.WithSource(simulator.SourceFunc(func() float64 { return 0.5 })),
		simulator.WithSleeper(instant))
	h := srv.Routes()

	for _, path := range []string{"/", "/sensitive", "/steep"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "Ok", rec.Body.String(), path)
	}
	assert.Equal(t, int64(3), sim.Stats().SucceededRequests)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRoutes_SyntheticFailureUnderLoad(t *testing.T) {
	srv, sim := newTestServer(t,
		simulator.WithSource(simulator.SourceFunc(func() float64 { return 0.2 })),
		simulator.WithSleeper(instant))
	h := srv.Routes()

	var releases []func()
	for i := 0; i < 149; i++ {
		_, r := sim.Begin()
		releases = append(releases, r)
	}
	defer func() {
		for _, r := range releases {
			r()
		}
	}()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sensitive", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Server error", rec.Body.String())
}

func TestRoutes_AdminSurface(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/simulator/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status simulator.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Len(t, status.Profiles, 3)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "simulator_in_flight_requests")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/analytics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "analytics is off without redis")
}

func TestNew_RejectsInvalidProfiles(t *testing.T) {
	_, err := New(Options{
		Config:    config.Default(),
		Simulator: simulator.New(),
		Profiles:  []simulator.Profile{{Name: "bad", Path: "/bad", K: 0.5}},
	})
	assert.ErrorIs(t, err, simulator.ErrInvalidProfile)
}

// Concurrent callers over real connections, some of which hang up while
// their response is delayed, leave the counter where it started.
func TestServer_CounterBalancesOverHTTP(t *testing.T) {
	profile := simulator.Profile{Name: "quick", Path: "/quick", K: 1.5, Lambda: 0.05, BaseMs: 500, C: 0.5, P: 1.3}
	sim := simulator.New(simulator.WithSource(simulator.SourceFunc(func() float64 { return 0.999 })))
	srv, err := New(Options{
		Config:    config.Default(),
		Simulator: sim,
		Profiles:  []simulator.Profile{profile},
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	const callers = 40
	cancels := make([]context.CancelFunc, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancels[i] = cancel
		wg.Add(1)
		go func(ctx context.Context) {
			defer wg.Done()
			req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/quick", nil)
			resp, err := ts.Client().Do(req)
			if err != nil {
				return
			}
			defer resp.Body.Close()
			io.Copy(io.Discard, resp.Body)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		}(ctx)
	}

	require.Eventually(t, func() bool { return sim.InFlight() == callers }, 2*time.Second, time.Millisecond)
	for i := 0; i < callers; i += 4 {
		cancels[i]()
	}
	wg.Wait()
	for _, cancel := range cancels {
		cancel()
	}

	require.Eventually(t, func() bool { return sim.InFlight() == 0 }, 2*time.Second, 5*time.Millisecond)
	st := sim.Stats()
	assert.Equal(t, int64(callers), st.TotalRequests)
	assert.Equal(t, int64(callers/4), st.AbandonedRequests)
	assert.Equal(t, int64(callers-callers/4), st.SucceededRequests)
	assert.Equal(t, int64(callers), st.PeakInFlight)
}

func TestServer_StartShutdown(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = 0
	srv, err := New(Options{
		Config:    cfg,
		Simulator: simulator.New(),
		Profiles:  simulator.DefaultProfiles(),
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}
