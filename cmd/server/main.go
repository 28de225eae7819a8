package main

import (
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"

	"skirmish-server/internal/api"
	"skirmish-server/internal/config"
	"skirmish-server/internal/sim"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("no .env file found, using environment variables only")
		}
	} else {
		log.Println("loaded environment from ../.env")
	}

	log.Println("================================")
	log.Println(" SKIRMISH SERVER")
	log.Println("================================")

	appConfig := config.Load()
	log.Printf("sim: %d tps, %dx%d world, full update every %.1fs",
		appConfig.Sim.TickRate, int(appConfig.Sim.LayoutWidth), int(appConfig.Sim.LayoutHeight),
		appConfig.Sim.FullUpdatePeriodSec)

	debugCfg := api.DefaultObservabilityConfig()
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("debug server disabled: %v", err)
		}
	}

	server := api.NewServer(appConfig)
	spawnRoster(server.Sim(), appConfig)

	go func() {
		log.Printf("api server on http://localhost%s", appConfig.HTTP.ListenAddr)
		if err := server.Start(appConfig.HTTP.ListenAddr); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("server ready, press Ctrl+C to stop")
	<-quit

	log.Println("shutting down...")
	server.Stop()
	log.Println("goodbye")
}

// spawnRoster seeds the match with each player's starting units before the
// tick timer begins, per spec.md §5's resource lifecycle ("spawning the
// initial unit roster" precedes "beginning the tick timer"). Units are laid
// out in a single column per player, mirrored across the map's centerline
// and facing each other, since spec.md leaves initial placement unspecified.
func spawnRoster(s *sim.Server, cfg config.AppConfig) {
	n := cfg.Sim.RosterUnitsPerPlayer
	if n <= 0 {
		return
	}

	width, height := cfg.Sim.LayoutWidth, cfg.Sim.LayoutHeight
	spacing := cfg.Sim.RosterSpacing
	startY := height/2 - float64(n-1)*spacing/2

	for i := 0; i < n; i++ {
		y := startY + float64(i)*spacing
		if _, err := s.SpawnUnit(0, cfg.Sim.RosterUnitType, width*0.08, y, 0); err != nil {
			log.Printf("main: failed to spawn player 0 roster unit %d: %v", i, err)
		}
		if _, err := s.SpawnUnit(1, cfg.Sim.RosterUnitType, width*0.92, y, math.Pi); err != nil {
			log.Printf("main: failed to spawn player 1 roster unit %d: %v", i, err)
		}
	}
	log.Printf("spawned %d units per player (type=%q)", n, cfg.Sim.RosterUnitType)
}
