package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"skirmish-server/internal/objectdata"
	"skirmish-server/internal/pathfind"
	"skirmish-server/internal/sim"
	"skirmish-server/internal/transport"
	"skirmish-server/internal/wire"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	srv := sim.NewServer(sim.NewServerParams{
		TickRate:            30,
		Layout:              sim.Layout{Width: 35000, Height: 13000},
		CollisionCellSize:   2000,
		PathGroupMaxWorkers: 4,
		PathGroupBaseCost:   1,
		PathGroupCellSpread: 3,
		ObjectData:          objectdata.DefaultRegistry(),
		Pathfinder:          pathfind.NewRequester(pathfind.NewNaiveOracle()),
	})
	enc := wire.NewEncoder(30, 2, 262144, false)
	hub := transport.NewHub(srv, enc, func(string) bool { return true }, func(string) bool { return true })

	return NewRouter(RouterConfig{
		Hub:             hub,
		RateLimitConfig: &RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		DisableLogging:  true,
	})
}

func TestHealthzReturnsOK(t *testing.T) {
	router := newTestRouter(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestWSRouteRejectsInvalidPlayerBeforeUpgrade(t *testing.T) {
	router := newTestRouter(t)
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/ws/not-a-number")
	if err != nil {
		t.Fatalf("GET /ws/not-a-number: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for a non-numeric player segment, got %d", resp.StatusCode)
	}
}
