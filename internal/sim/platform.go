package sim

import (
	"skirmish-server/internal/collision"
	"skirmish-server/internal/mathutil"
	"skirmish-server/internal/objectdata"
)

// DeltaFlags is the five-bit-plus-debug set described in spec.md §3: each
// bit marks one field changed since the last emission (full or delta).
type DeltaFlags uint8

const (
	DeltaPosition DeltaFlags = 1 << iota
	DeltaSpeed
	DeltaAcceleration
	DeltaPlatformAngle
	DeltaTurretAngle
	_
	_
	DeltaDebugState DeltaFlags = 1 << 7
)

// Platform is a unit's physical body: position, orientation, kinematics and
// collision state. Grounded on internal/game/player.go's transform fields,
// generalised from the brawler's X/Y/VX/VY model to spec.md's
// position+angle+signed-speed-along-heading model required by the
// turn-circle movement machine.
type Platform struct {
	Data *objectdata.Data

	// Unit back-references the owning unit so collision-grid callbacks
	// (which only see a Platform's identity) can recover id/owner/alive
	// state for turret targeting and projectile hit attribution.
	Unit *Unit

	X, Y  float64
	Angle float64 // radians, wrapped to [0, 2π)
	Speed float64 // signed, pixels/s, positive = forward along Angle
	Accel float64 // signed, pixels/s^2

	lastAngle16 uint16
	lastSpeed   float64

	FullShape     *collision.Shape
	ObstacleShape *collision.Shape
	Box           *collision.Box

	Controller *movementController // nil when idle

	Flags DeltaFlags
}

// NewPlatform builds a platform of the given type at (x,y,angle), wired into
// grid for broad-phase collision via a Box keyed on this platform's own
// identity.
func NewPlatform(data *objectdata.Data, grid *collision.Grid, x, y, angle float64) *Platform {
	p := &Platform{
		Data:          data,
		X:             x,
		Y:             y,
		Angle:         mathutil.WrapAngle(angle),
		FullShape:     collision.NewShape(data.FullPolygon),
		ObstacleShape: collision.NewShape(data.ObstaclePolygon),
	}
	p.Box = collision.NewBox(grid, p)
	p.syncShapes()
	p.lastAngle16 = mathutil.AngleToUint16(p.Angle)
	p.lastSpeed = p.Speed
	return p
}

// syncShapes recomputes both collision shapes and the grid membership box
// for the platform's current position/angle.
func (p *Platform) syncShapes() {
	p.FullShape.Update(p.X, p.Y, p.Angle)
	p.ObstacleShape.Update(p.X, p.Y, p.Angle)
	l, t, r, b := p.FullShape.Box()
	p.Box.Update(l, t, r, b)
}

// SetPosition moves the platform, clamping to the layout rect, updates
// collision state, and marks the position delta if it actually changed.
func (p *Platform) SetPosition(x, y float64, layout Layout) {
	x = mathutil.Clamp(x, 0, layout.Width)
	y = mathutil.Clamp(y, 0, layout.Height)
	if x != p.X || y != p.Y {
		p.X, p.Y = x, y
		p.Flags |= DeltaPosition
	}
	p.syncShapes()
}

// SetAngle rotates the platform, wrapping to [0,2π), and marks the
// platform-angle delta if the encoded uint16 actually changed (avoiding
// no-op deltas from sub-quantum float jitter, per spec.md §3).
func (p *Platform) SetAngle(theta float64) {
	theta = mathutil.WrapAngle(theta)
	p.Angle = theta
	encoded := mathutil.AngleToUint16(theta)
	if encoded != p.lastAngle16 {
		p.lastAngle16 = encoded
		p.Flags |= DeltaPlatformAngle
	}
	p.syncShapes()
}

// SetSpeed updates speed, clamping to [-maxSpeed,maxSpeed] and marking the
// speed delta. Crossing to/from exactly zero also forces a position delta so
// the client resynchronises the unit's resting position promptly, per
// spec.md §4.5.
func (p *Platform) SetSpeed(speed float64) {
	speed = mathutil.Clamp(speed, -p.Data.MaxSpeed, p.Data.MaxSpeed)
	wasZero := p.lastSpeed == 0
	isZero := speed == 0
	if speed != p.Speed {
		p.Speed = speed
		p.Flags |= DeltaSpeed
	}
	if wasZero != isZero {
		p.Flags |= DeltaPosition | DeltaSpeed
	}
	p.lastSpeed = speed
}

// SetAcceleration updates acceleration, clamping to [-maxDecel,maxAccel].
// Per spec.md §4.5, acceleration changes made purely to steer speed toward a
// target do not themselves emit a delta — the client predicts using the
// transmitted acceleration value already on the wire — so this setter does
// not touch Flags; callers that need an acceleration delta set
// DeltaAcceleration explicitly.
func (p *Platform) SetAcceleration(accel float64) {
	p.Accel = mathutil.Clamp(accel, -p.Data.MaxDeceleration, p.Data.MaxAcceleration)
}

// Layout describes the match's fixed play-area rectangle.
type Layout struct {
	Width, Height float64
}

// ClearFlags resets the delta-flag bitset, called after a full or delta
// record has been written for this platform's owning unit.
func (p *Platform) ClearFlags() {
	p.Flags = 0
}

// Release removes the platform from the collision grid. Called exactly once
// when the owning unit is destroyed.
func (p *Platform) Release() {
	p.Box.Release()
}

// Angle16 returns the platform's angle encoded for the wire.
func (p *Platform) Angle16() uint16 {
	return mathutil.AngleToUint16(p.Angle)
}

// identity returns the owning unit's id, owning player, and whether it is
// still alive, for use by collision-grid callbacks that only see the
// Platform's identity.
func (p *Platform) identity() (id uint16, owner uint8, alive bool) {
	if p.Unit == nil {
		return 0, 0, false
	}
	return p.Unit.ID, p.Unit.Player, !p.Unit.Destroyed
}

// CollidesWithAny reports whether this platform's full shape currently
// intersects any other platform registered in the grid within range of its
// own bounding box (used by the movement states' collision-revert checks).
func (p *Platform) CollidesWithAny(grid *collision.Grid) bool {
	l, t, r, b := p.FullShape.Box()
	collided := false
	grid.ForEachItemInArea(l, t, r, b, func(o collision.Owner) bool {
		other, ok := o.(*Platform)
		if !ok || other == p {
			return false
		}
		if p.FullShape.IntersectsOther(other.FullShape) {
			collided = true
			return true
		}
		return false
	})
	return collided
}
