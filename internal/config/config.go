// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all simulation and server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
)

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimConfig holds the "recognised configuration options" spec.md §6 names:
// tick rate, full-update cadence, pathfinding-group tunables, the collision
// grid's cell size, and the scratch serialization buffer size.
type SimConfig struct {
	TickRate            int     // Ticks per second for the fixed-rate loop
	FullUpdatePeriodSec float64 // Target seconds between full updates per unit
	PathGroupMaxWorkers int     // Max concurrent pathfinding workers per group
	PathGroupBaseCost   float64 // Base cost passed to the pathfinding oracle
	PathGroupCellSpread int     // Cell spread passed to the pathfinding oracle
	CollisionCellSize   float64 // Spatial grid cell size in pixels
	ScratchBufferBytes  int     // Pre-allocated per-tick frame-encoding buffer

	LayoutWidth  float64 // World width in pixels
	LayoutHeight float64 // World height in pixels

	SeedFile             string  // Optional YAML object-type table; falls back to the built-in roster if unset
	RosterUnitsPerPlayer int     // Units spawned per player at match start
	RosterUnitType       string  // objectdata type name spawned for the initial roster
	RosterSpacing        float64 // Pixel spacing between roster units along the formation line
}

// DefaultSim returns the default simulation configuration. This is the
// SINGLE SOURCE OF TRUTH for tick rate and tunables named in spec.md §6.
func DefaultSim() SimConfig {
	return SimConfig{
		TickRate:            30,
		FullUpdatePeriodSec: 2,
		PathGroupMaxWorkers: 4,
		PathGroupBaseCost:   1,
		PathGroupCellSpread: 3,
		CollisionCellSize:   2000,
		ScratchBufferBytes:  262144,
		LayoutWidth:         35000,
		LayoutHeight:        13000,

		RosterUnitsPerPlayer: 6,
		RosterUnitType:       "tank",
		RosterSpacing:        400,
	}
}

// SimFromEnv returns simulation configuration with environment variable
// overrides. Environment variables take precedence over defaults.
func SimFromEnv() SimConfig {
	cfg := DefaultSim()

	if v := getEnvInt("TICK_RATE", 0); v > 0 {
		cfg.TickRate = v
	}
	if v := getEnvFloat("FULL_UPDATE_PERIOD_SEC", -1); v >= 0 {
		cfg.FullUpdatePeriodSec = v
	}
	if v := getEnvInt("PATH_GROUP_MAX_WORKERS", 0); v > 0 {
		cfg.PathGroupMaxWorkers = v
	}
	if v := getEnvFloat("PATH_GROUP_BASE_COST", -1); v >= 0 {
		cfg.PathGroupBaseCost = v
	}
	if v := getEnvInt("PATH_GROUP_CELL_SPREAD", 0); v > 0 {
		cfg.PathGroupCellSpread = v
	}
	if v := getEnvFloat("COLLISION_CELL_SIZE", -1); v >= 0 {
		cfg.CollisionCellSize = v
	}
	if v := getEnvInt("SCRATCH_BUFFER_BYTES", 0); v > 0 {
		cfg.ScratchBufferBytes = v
	}
	if v := getEnvFloat("LAYOUT_WIDTH", -1); v >= 0 {
		cfg.LayoutWidth = v
	}
	if v := getEnvFloat("LAYOUT_HEIGHT", -1); v >= 0 {
		cfg.LayoutHeight = v
	}
	if v := os.Getenv("SEED_FILE"); v != "" {
		cfg.SeedFile = v
	}
	if v := getEnvInt("ROSTER_UNITS_PER_PLAYER", -1); v >= 0 {
		cfg.RosterUnitsPerPlayer = v
	}
	if v := os.Getenv("ROSTER_UNIT_TYPE"); v != "" {
		cfg.RosterUnitType = v
	}
	if v := getEnvFloat("ROSTER_SPACING", -1); v >= 0 {
		cfg.RosterSpacing = v
	}

	return cfg
}

// =============================================================================
// HTTP / OPS CONFIGURATION
// =============================================================================

// HTTPConfig holds the HTTP surface settings: listen address, CORS origins,
// and per-IP rate limiting.
type HTTPConfig struct {
	ListenAddr        string
	DebugListenAddr   string
	CORSOrigins       []string
	RequestsPerSecond float64
	Burst             int
	MaxConnsPerIP     int
}

// DefaultHTTP returns the default HTTP configuration.
func DefaultHTTP() HTTPConfig {
	return HTTPConfig{
		ListenAddr:        ":8080",
		DebugListenAddr:   "127.0.0.1:6060",
		CORSOrigins:       []string{"http://localhost:3000"},
		RequestsPerSecond: 20,
		Burst:             40,
		MaxConnsPerIP:     4,
	}
}

// HTTPFromEnv returns HTTP configuration with environment variable overrides.
func HTTPFromEnv() HTTPConfig {
	cfg := DefaultHTTP()

	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("DEBUG_LISTEN_ADDR"); v != "" {
		cfg.DebugListenAddr = v
	}
	if v := getEnvFloat("RATE_LIMIT_RPS", -1); v >= 0 {
		cfg.RequestsPerSecond = v
	}
	if v := getEnvInt("RATE_LIMIT_BURST", 0); v > 0 {
		cfg.Burst = v
	}
	if v := getEnvInt("MAX_CONNS_PER_IP", 0); v > 0 {
		cfg.MaxConnsPerIP = v
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Sim  SimConfig
	HTTP HTTPConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Sim:  SimFromEnv(),
		HTTP: HTTPFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
