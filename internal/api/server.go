package api

import (
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"skirmish-server/internal/config"
	"skirmish-server/internal/objectdata"
	"skirmish-server/internal/pathfind"
	"skirmish-server/internal/sim"
	"skirmish-server/internal/transport"
	"skirmish-server/internal/wire"

	"github.com/go-chi/chi/v5"
)

// Server is the HTTP + websocket front for one match: it owns the
// simulation, the wire encoder, the transport hub, and the ops router.
type Server struct {
	sim         *sim.Server
	hub         *transport.Hub
	router      *chi.Mux
	rateLimiter *IPRateLimiter

	// lastTickDurationNanos is updated from the tick goroutine (via
	// sim.Server.TickObserver) and read once a second by reportMetrics, so
	// it is an atomic rather than a plain field.
	lastTickDurationNanos atomic.Int64
}

// NewServer builds a Server from the application configuration. Background
// workers (the tick loop, the HTTP listener) do NOT start until Start() is
// called, so the router can be exercised with httptest without a live match
// running underneath it.
func NewServer(cfg config.AppConfig) *Server {
	sc := cfg.Sim
	srv := sim.NewServer(sim.NewServerParams{
		TickRate:            sc.TickRate,
		Layout:              sim.Layout{Width: sc.LayoutWidth, Height: sc.LayoutHeight},
		CollisionCellSize:   sc.CollisionCellSize,
		PathGroupMaxWorkers: sc.PathGroupMaxWorkers,
		PathGroupBaseCost:   sc.PathGroupBaseCost,
		PathGroupCellSpread: sc.PathGroupCellSpread,
		ObjectData:          loadObjectData(sc.SeedFile),
		Pathfinder:          pathfind.NewRequester(pathfind.NewNaiveOracle()),
	})
	encoder := wire.NewEncoder(sc.TickRate, sc.FullUpdatePeriodSec, sc.ScratchBufferBytes, false)

	rateLimiter := NewIPRateLimiter(RateLimitConfig{
		RequestsPerSecond: cfg.HTTP.RequestsPerSecond,
		Burst:             cfg.HTTP.Burst,
		CleanupInterval:   DefaultRateLimitConfig.CleanupInterval,
	})
	wsLimiter := NewWebSocketRateLimiter(cfg.HTTP.MaxConnsPerIP)
	checkOrigin := NewOriginChecker(cfg.HTTP.CORSOrigins)

	hub := transport.NewHub(srv, encoder, checkOrigin, wsLimiter.Allow)
	hub.OnFrameSent = RecordFrameBytes
	hub.OnCommandDropped = RecordCommandDropped
	srv.Outbound = hub
	srv.DroppedCommand = RecordCommandDropped

	s := &Server{sim: srv, hub: hub, rateLimiter: rateLimiter}
	srv.TickObserver = func(d time.Duration) {
		s.lastTickDurationNanos.Store(int64(d))
		RecordTick(d)
	}
	s.router = NewRouter(RouterConfig{
		Hub:         hub,
		RateLimiter: rateLimiter,
		CORSOrigins: cfg.HTTP.CORSOrigins,
	})
	return s
}

// loadObjectData loads the unit-type table from seedFile if given, falling
// back to the built-in roster (and logging) on a missing or unparseable
// file, so a bad SEED_FILE value degrades to a working default rather than
// failing construction.
func loadObjectData(seedFile string) *objectdata.Registry {
	if seedFile == "" {
		return objectdata.DefaultRegistry()
	}
	reg, err := objectdata.LoadFromFile(seedFile)
	if err != nil {
		log.Printf("api: failed to load seed file %q, falling back to the built-in roster: %v", seedFile, err)
		return objectdata.DefaultRegistry()
	}
	return reg
}

// Start begins the simulation tick loop AND the HTTP listener.
// Call this method only once. To stop the server, signal the process.
func (s *Server) Start(addr string) error {
	s.sim.Start()
	go s.reportMetrics()

	log.Printf("api server starting on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

// reportMetrics periodically samples the simulation for the live-state
// Prometheus gauges and broadcasts the once-per-second "stats" diagnostic
// message (spec.md §4.8), mirroring the teacher's periodic-broadcast idiom.
func (s *Server) reportMetrics() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		units, projectiles := 0, 0
		s.sim.ForEachUnit(func(*sim.Unit) { units++ })
		s.sim.ForEachProjectile(func(*sim.Projectile) { projectiles++ })
		UpdateUnitCount(units)
		UpdateProjectileCount(projectiles)

		tickDurationMs := float64(s.lastTickDurationNanos.Load()) / 1e6
		s.hub.SendStats(s.sim.GameTime(), units, tickDurationMs)
	}
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Sim returns the underlying simulation server, for callers (mainly
// cmd/server) that need to spawn initial units before Start.
func (s *Server) Sim() *sim.Server {
	return s.sim
}

// Stop performs graceful shutdown of the tick loop and background workers.
func (s *Server) Stop() {
	s.sim.Stop()
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}
