package sim

import (
	"math"
	"testing"

	"skirmish-server/internal/collision"
	"skirmish-server/internal/objectdata"
)

func tankData() *objectdata.Data {
	return &objectdata.Data{
		TypeName:        "tank",
		Width:           40,
		Height:          40,
		FullPolygon:     objectdata.RectPolygon(40, 40),
		ObstaclePolygon: objectdata.RectPolygon(48, 48),
		MaxSpeed:        250,
		MaxAcceleration: 250,
		MaxDeceleration: 500,
		RotateSpeed:     math.Pi / 2,
		TurretRange:     600,
		TurretRotateSpeed: math.Pi,
	}
}

func newTestUnit(t *testing.T, grid *collision.Grid, x, y, angle float64) *Unit {
	t.Helper()
	data := tankData()
	platform := NewPlatform(data, grid, x, y, angle)
	turret := NewTurret(data.TurretRange, data.TurretRotateSpeed, 1.0)
	return NewUnit(1, 0, platform, turret)
}

const testTickDt = 1.0 / 30.0

// TestSoloMoveStraightPath reproduces the straight-path scenario: a unit at
// rest accelerates, cruises, brakes and arrives within ±2px of the target
// with speed and acceleration both back at zero.
func TestSoloMoveStraightPath(t *testing.T) {
	grid := collision.NewGrid(35000, 13000, 2000)
	u := newTestUnit(t, grid, 1000, 1000, 0)
	layout := Layout{Width: 35000, Height: 13000}

	ctrl := newMovementController(u, u.Platform, grid, layout)
	u.Platform.Controller = ctrl
	ctrl.StartMovingAlongWaypoints([]waypoint{{X: 1400, Y: 1000}})

	sawPositionDelta := false
	sawSpeedDelta := false

	const maxTicks = 600
	ticks := 0
	for ; ticks < maxTicks; ticks++ {
		u.Platform.Flags = 0
		ctrl.Tick(testTickDt)
		if u.Platform.Flags&DeltaPosition != 0 {
			sawPositionDelta = true
		}
		if u.Platform.Flags&DeltaSpeed != 0 {
			sawSpeedDelta = true
		}
		if ctrl.Released() {
			break
		}
	}

	if ticks >= maxTicks {
		t.Fatalf("unit never released after %d ticks", maxTicks)
	}
	dx := u.Platform.X - 1400
	dy := u.Platform.Y - 1000
	if math.Hypot(dx, dy) > 2.0001 {
		t.Errorf("final position (%.4f,%.4f) not within 2px of (1400,1000)", u.Platform.X, u.Platform.Y)
	}
	if u.Platform.Speed != 0 {
		t.Errorf("expected speed 0 at arrival, got %v", u.Platform.Speed)
	}
	if u.Platform.Accel != 0 {
		t.Errorf("expected acceleration 0 at arrival, got %v", u.Platform.Accel)
	}
	if !sawPositionDelta {
		t.Error("expected at least one position delta over the course of the move")
	}
	if !sawSpeedDelta {
		t.Error("expected at least one speed delta over the course of the move")
	}
}

// TestStoppingWithNoWaypointsReleasesImmediately covers the stopping state's
// other exit: a controller started with an empty waypoint queue should
// release on the first tick once speed settles at zero.
func TestStoppingWithNoWaypointsReleasesImmediately(t *testing.T) {
	grid := collision.NewGrid(35000, 13000, 2000)
	u := newTestUnit(t, grid, 500, 500, 0)
	layout := Layout{Width: 35000, Height: 13000}

	ctrl := newMovementController(u, u.Platform, grid, layout)
	u.Platform.Controller = ctrl
	ctrl.StartMovingAlongWaypoints(nil)

	ctrl.Tick(testTickDt)
	if !ctrl.Released() {
		t.Fatalf("expected controller released after one tick with no waypoints, state=%v", ctrl.state)
	}
}

// TestRotateFirstAdvancesOnceAligned checks that rotate-first hands off to
// moving as soon as the platform is within the rotation epsilon of the
// first waypoint's direction.
func TestRotateFirstAdvancesOnceAligned(t *testing.T) {
	grid := collision.NewGrid(35000, 13000, 2000)
	u := newTestUnit(t, grid, 1000, 1000, 0)
	layout := Layout{Width: 35000, Height: 13000}

	ctrl := newMovementController(u, u.Platform, grid, layout)
	ctrl.waypoints = []waypoint{{X: 1400, Y: 1000}}
	ctrl.state = stateRotateFirst

	ctrl.Tick(testTickDt)

	if ctrl.state != stateMoving {
		t.Fatalf("expected state moving after one tick already aligned, got %v", ctrl.state)
	}
}

// TestLookaheadTurnEventuallyDiscardsFirstWaypoint exercises the
// intermediate-waypoint branch's turn-circle geometry: a unit cruising east
// and then needing to turn south (toward larger y) should, after enough ticks, discard the
// corner waypoint and proceed toward the final one.
func TestLookaheadTurnEventuallyDiscardsFirstWaypoint(t *testing.T) {
	grid := collision.NewGrid(35000, 13000, 2000)
	u := newTestUnit(t, grid, 0, 2000, 0)
	u.Platform.SetSpeed(250) // start already cruising to isolate the turn geometry
	layout := Layout{Width: 35000, Height: 13000}

	ctrl := newMovementController(u, u.Platform, grid, layout)
	u.Platform.Controller = ctrl
	ctrl.waypoints = []waypoint{{X: 1000, Y: 2000}, {X: 1000, Y: 2500}}
	ctrl.state = stateMoving

	const maxTicks = 600
	discarded := false
	for i := 0; i < maxTicks; i++ {
		ctrl.Tick(testTickDt)
		if len(ctrl.waypoints) <= 1 {
			discarded = true
			break
		}
	}
	if !discarded {
		t.Fatal("first waypoint was never discarded")
	}
}
