package sim

import (
	"math"

	"skirmish-server/internal/collision"
	"skirmish-server/internal/mathutil"
)

// movementStateKind tags the five states of C8's state machine. Per the
// Design Notes in spec.md §9 ("prefer a tagged variant over class
// polymorphism if the target language favours it"), the machine is a single
// Go type switching on this tag rather than five separate interface
// implementations — idiomatic for a small, fixed, non-extensible state set.
// The numeric values double as the "debug byte (1..4)" spec.md §4.5 asks
// each non-terminal state to set.
type movementStateKind uint8

const (
	stateStopping movementStateKind = iota + 1
	stateRotateFirst
	stateMoving
	stateReverse
	stateReleased
)

const rotateEpsilon = 0.01 * math.Pi / 180 // "within 0.01°"
const collinearEpsilon = 2 * math.Pi / 180 // "within 2°"

// movementController drives one platform along a queue of waypoints. It is
// lazily created on the unit's first path command and releases itself (sets
// platform.Controller back to nil) on reaching stateReleased, per spec.md
// §4.5.
type movementController struct {
	unit     *Unit
	platform *Platform
	grid     *collision.Grid
	layout   Layout

	waypoints []waypoint

	state       movementStateKind
	pendingNext movementStateKind
	hasPending  bool

	reverseElapsed  float64
	reverseDuration float64
	reverseNext     movementStateKind
}

// waypoint is a single target point in world space.
type waypoint struct {
	X, Y float64
}

// newMovementController builds a controller for unit/platform, not yet
// started — callers must call StartMovingAlongWaypoints to enter stopping.
func newMovementController(u *Unit, p *Platform, grid *collision.Grid, layout Layout) *movementController {
	return &movementController{unit: u, platform: p, grid: grid, layout: layout}
}

// StartMovingAlongWaypoints installs a new waypoint queue and (re)enters
// stopping, matching spec.md §4.9's platform.MoveToPosition flow.
func (c *movementController) StartMovingAlongWaypoints(path []waypoint) {
	c.waypoints = path
	c.state = stateStopping
	c.hasPending = false
}

func (c *movementController) requestTransition(next movementStateKind) {
	c.pendingNext = next
	c.hasPending = true
}

// Tick advances the controller by dt; the requested successor state (if
// any) is latched and applied only after the current state's logic has
// fully run, per spec.md §4.5.
func (c *movementController) Tick(dt float64) {
	switch c.state {
	case stateStopping:
		c.tickStopping(dt)
	case stateRotateFirst:
		c.tickRotateFirst(dt)
	case stateMoving:
		switch {
		case len(c.waypoints) >= 2:
			c.tickMovingIntermediate(dt)
		case len(c.waypoints) == 1:
			c.tickMovingFinal(dt)
		default:
			c.requestTransition(stateReleased)
		}
	case stateReverse:
		c.tickReverse(dt)
	case stateReleased:
		c.tickReleased()
	}

	if c.hasPending {
		c.state = c.pendingNext
		c.hasPending = false
	}
}

// Released reports whether the controller has reached its terminal state.
// It detaches itself from the platform on the next Tick after that.
func (c *movementController) Released() bool {
	return c.state == stateReleased
}

// stepMovement is the shared StepMovement(dt,targetSpeed) helper from
// spec.md §4.5: accelerates/decelerates speed toward targetSpeed and
// integrates position accordingly, without itself emitting an acceleration
// delta (the client predicts using the transmitted acceleration).
func (c *movementController) stepMovement(dt, targetSpeed float64) {
	data := c.platform.Data
	currentSpeed := c.platform.Speed

	diff := targetSpeed - currentSpeed
	var accel float64
	switch {
	case diff > 0:
		accel = data.MaxAcceleration
	case diff < 0:
		accel = -data.MaxDeceleration
	}
	stepDelta := accel * dt

	ds := currentSpeed*dt + 0.5*accel*dt*dt
	maxDs := data.MaxSpeed * dt
	ds = mathutil.Clamp(ds, -maxDs, maxDs)

	sin, cos := math.Sincos(c.platform.Angle)
	c.platform.SetPosition(c.platform.X+ds*cos, c.platform.Y+ds*sin, c.layout)

	if math.Abs(diff) <= math.Abs(stepDelta) {
		c.platform.SetSpeed(targetSpeed)
	} else {
		c.platform.SetSpeed(currentSpeed + stepDelta)
	}
	c.platform.SetAcceleration(accel)
}

// tickStopping implements spec.md §4.5's `stopping` state.
func (c *movementController) tickStopping(dt float64) {
	c.unit.SetDebugState(uint8(stateStopping))

	savedX, savedY := c.platform.X, c.platform.Y
	c.stepMovement(dt, 0)

	if c.platform.CollidesWithAny(c.grid) {
		c.platform.SetPosition(savedX, savedY, c.layout)
		c.platform.SetSpeed(0)
		c.platform.Flags |= DeltaPosition
	}

	if c.platform.Speed == 0 {
		c.platform.SetAcceleration(0)
		if len(c.waypoints) > 0 {
			c.requestTransition(stateRotateFirst)
		} else {
			c.requestTransition(stateReleased)
		}
	}
}

// tickRotateFirst implements spec.md §4.5's `rotate-first` state. The
// Open-Question resolution recorded in SPEC_FULL.md §5 takes the
// "unconditionally advance to moving after a collision" reading.
func (c *movementController) tickRotateFirst(dt float64) {
	c.unit.SetDebugState(uint8(stateRotateFirst))

	target := mathutil.AngleTo(c.platform.X, c.platform.Y, c.waypoints[0].X, c.waypoints[0].Y)
	saved := c.platform.Angle
	step := c.platform.Data.RotateSpeed * dt
	c.platform.SetAngle(mathutil.AngleRotate(c.platform.Angle, target, step))

	if c.platform.CollidesWithAny(c.grid) {
		c.platform.SetAngle(saved)
		c.requestTransition(stateMoving)
		return
	}

	if mathutil.AngleDifference(c.platform.Angle, target) <= rotateEpsilon {
		c.requestTransition(stateMoving)
	}
}

// tickMovingIntermediate implements the "≥2 remaining waypoints" branch of
// spec.md §4.5's `moving` state: lookahead-turn geometry around the next
// waypoint so the unit begins curving before it arrives.
func (c *movementController) tickMovingIntermediate(dt float64) {
	c.unit.SetDebugState(uint8(stateMoving))

	w1 := c.waypoints[0]
	w2 := c.waypoints[1]

	angleToW1 := mathutil.AngleTo(c.platform.X, c.platform.Y, w1.X, w1.Y)
	angleW1toW2 := mathutil.AngleTo(w1.X, w1.Y, w2.X, w2.Y)

	if mathutil.AngleDifference(angleToW1, angleW1toW2) <= collinearEpsilon {
		c.waypoints = c.waypoints[1:]
		return
	}

	distSqToW1 := mathutil.DistanceSquared(c.platform.X, c.platform.Y, w1.X, w1.Y)
	c.rotateTowardsAngle(dt, angleToW1, distSqToW1)

	angleW1toU := mathutil.WrapAngle(angleToW1 + math.Pi)
	turnAngle := mathutil.AngleDifference(angleW1toU, angleW1toW2)
	if turnAngle < 1e-6 {
		turnAngle = 1e-6
	}

	data := c.platform.Data
	rotateSpeed := data.RotateSpeed
	if rotateSpeed <= 0 {
		rotateSpeed = 1e-6
	}
	r := math.Abs(c.platform.Speed) / rotateSpeed
	turnDist := r / math.Tan(turnAngle/2)

	segLen := mathutil.DistanceTo(w1.X, w1.Y, w2.X, w2.Y)
	halfSeg := segLen / 2

	curMaxSpeed := data.MaxSpeed
	if turnDist > halfSeg {
		turnDist = halfSeg
		slow := turnDist * math.Tan(turnAngle/2) * rotateSpeed
		slowdownDist := turnDist + (data.MaxSpeed-slow)*(data.MaxSpeed-slow)/(2*data.MaxDeceleration)
		if math.Sqrt(distSqToW1) <= slowdownDist {
			curMaxSpeed = slow
		}
	}

	c.stepMovement(dt, curMaxSpeed)

	advanceThreshold := math.Max(turnDist, math.Max(2*c.platform.Speed*dt, 10))
	if mathutil.DistanceTo(c.platform.X, c.platform.Y, w1.X, w1.Y) <= advanceThreshold {
		c.waypoints = c.waypoints[1:]
	}
}

// tickMovingFinal implements the "final waypoint" branch of spec.md §4.5's
// `moving` state: braking distance and an exact-arrival snap.
func (c *movementController) tickMovingFinal(dt float64) {
	c.unit.SetDebugState(uint8(stateMoving))

	w := c.waypoints[0]
	distSq := mathutil.DistanceSquared(c.platform.X, c.platform.Y, w.X, w.Y)

	arriveThreshold := math.Max(c.platform.Speed*dt, 2)
	if arriveThreshold*arriveThreshold >= distSq {
		c.platform.SetPosition(w.X, w.Y, c.layout)
		c.platform.SetSpeed(0)
		c.platform.SetAcceleration(0)
		c.requestTransition(stateReleased)
		return
	}

	data := c.platform.Data
	dist := math.Sqrt(distSq)
	targetSpeed := data.MaxSpeed
	stoppingDist := (c.platform.Speed * c.platform.Speed) / (2 * data.MaxDeceleration)
	if dist <= stoppingDist {
		targetSpeed = math.Sqrt(2 * data.MaxDeceleration * dist)
	}

	finalAngle := mathutil.AngleTo(c.platform.X, c.platform.Y, w.X, w.Y)
	c.rotateTowardsAngle(dt, finalAngle, distSq)
	c.stepMovement(dt, targetSpeed)
}

// rotateTowardsAngle is the shared RotateTowardsAngle(targetAngle,dt,
// sqDistToTarget) helper from spec.md §4.5.
func (c *movementController) rotateTowardsAngle(dt, targetAngle, sqDistToTarget float64) {
	diff := mathutil.AngleDifference(c.platform.Angle, targetAngle)
	if diff <= rotateEpsilon {
		c.platform.SetAngle(targetAngle)
		return
	}

	saved := c.platform.Angle
	step := c.platform.Data.RotateSpeed * dt
	c.platform.SetAngle(mathutil.AngleRotate(c.platform.Angle, targetAngle, step))

	if c.platform.CollidesWithAny(c.grid) {
		c.platform.SetAngle(saved)
		return
	}

	rotateSpeed := c.platform.Data.RotateSpeed
	if rotateSpeed <= 0 {
		return
	}
	dist := math.Sqrt(sqDistToTarget)
	// Geometric unreachability: the unit physically cannot turn tightly
	// enough, given its current speed, to line up before covering the
	// remaining distance. Guarded by a small epsilon so a unit sitting
	// almost exactly on its destination does not oscillate back into
	// stopping every tick (see SPEC_FULL.md §5).
	const minTurnClearance = 1.0 // px
	if c.platform.Speed*(diff/rotateSpeed) > dist && dist > minTurnClearance {
		c.requestTransition(stateStopping)
	}
}

// tickReverse implements spec.md §4.5's `reverse` state.
func (c *movementController) tickReverse(dt float64) {
	c.unit.SetDebugState(uint8(stateReverse))

	c.reverseElapsed += dt
	c.stepMovement(dt, -c.platform.Data.MaxSpeed/2)

	if c.platform.CollidesWithAny(c.grid) {
		c.requestTransition(c.reverseNext)
		return
	}
	if c.reverseElapsed >= c.reverseDuration {
		c.requestTransition(c.reverseNext)
	}
}

// EnterReverse switches the controller into reverse for duration seconds,
// then transitions to next. spec.md §4.5 describes the reverse state's own
// behaviour but does not specify what triggers entry into it beyond the
// general "stuck-recovery" framing in §1; callers (e.g. a future
// stuck-detector) invoke this directly.
func (c *movementController) EnterReverse(next movementStateKind, duration float64) {
	c.reverseElapsed = 0
	c.reverseDuration = duration
	c.reverseNext = next
	c.state = stateReverse
	c.hasPending = false
}

// tickReleased implements spec.md §4.5's `released` (terminal) state: the
// controller detaches itself from the platform and clears debug state.
func (c *movementController) tickReleased() {
	c.unit.ClearDebugState()
	c.platform.Controller = nil
}
