package sim

import (
	"skirmish-server/internal/collision"
	"skirmish-server/internal/mathutil"
)

// Turret is a unit's weapon sub-entity: its angle is stored as an offset
// from the platform so it stays stable under platform rotation, per
// spec.md §3/§4.6. Targeting is grounded on internal/game/player.go's
// findTarget (grid-radius scan, refetch-by-id, clear-on-miss/out-of-range).
type Turret struct {
	Offset      float64 // radians, relative to platform angle
	lastOffset  uint16
	RotateSpeed float64
	Range       float64

	hasTarget    bool
	TargetUnitID uint16

	FireCooldown   float64 // seconds remaining before the turret may fire again
	cooldownPeriod float64

	Flags DeltaFlags
}

// NewTurret builds an idle turret with the given range/rotate speed and a
// fixed fire-cooldown period.
func NewTurret(rangeDist, rotateSpeed, cooldownPeriod float64) *Turret {
	return &Turret{
		RotateSpeed:    rotateSpeed,
		Range:          rangeDist,
		cooldownPeriod: cooldownPeriod,
	}
}

// WorldAngle returns the turret's absolute world-space angle given its
// platform's current heading.
func (t *Turret) WorldAngle(platformAngle float64) float64 {
	return mathutil.WrapAngle(platformAngle + t.Offset)
}

// setOffset stores a new offset, marking the turret-angle delta if the
// encoded value actually changed.
func (t *Turret) setOffset(offset float64) {
	t.Offset = mathutil.WrapAngle(offset)
	encoded := mathutil.AngleToUint16(t.Offset)
	if encoded != t.lastOffset {
		t.lastOffset = encoded
		t.Flags |= DeltaTurretAngle
	}
}

// ClearFlags resets the turret's own delta-flag bitset.
func (t *Turret) ClearFlags() {
	t.Flags = 0
}

// targetLookup resolves a unit id to its current platform position/owner,
// or reports the unit is gone.
type targetLookup func(id uint16) (x, y float64, owner uint8, alive bool)

// Tick runs one tick of turret targeting and aim-tracking. ownerPlayer is
// this turret's owning player (so it never targets its own team); grid and
// selfX/selfY/platformAngle locate candidates for a fresh target scan.
func (t *Turret) Tick(dt float64, platformAngle float64, ownerPlayer uint8, selfX, selfY float64, grid *collision.Grid, lookup targetLookup) {
	if !t.hasTarget {
		t.scanForTarget(ownerPlayer, selfX, selfY, grid)
	}

	if !t.hasTarget {
		// No target: relax back toward dead-ahead.
		t.setOffset(mathutil.AngleRotate(t.Offset, 0, t.RotateSpeed*dt))
		t.decayCooldown(dt)
		return
	}

	tx, ty, owner, alive := lookup(t.TargetUnitID)
	if !alive || owner == ownerPlayer {
		t.hasTarget = false
		t.decayCooldown(dt)
		return
	}
	if mathutil.DistanceSquared(selfX, selfY, tx, ty) > t.Range*t.Range {
		t.hasTarget = false
		t.decayCooldown(dt)
		return
	}

	worldDesired := mathutil.AngleTo(selfX, selfY, tx, ty)
	currentWorld := t.WorldAngle(platformAngle)
	newWorld := mathutil.AngleRotate(currentWorld, worldDesired, t.RotateSpeed*dt)
	t.setOffset(newWorld - platformAngle)

	t.decayCooldown(dt)
}

func (t *Turret) decayCooldown(dt float64) {
	if t.FireCooldown > 0 {
		t.FireCooldown -= dt
		if t.FireCooldown < 0 {
			t.FireCooldown = 0
		}
	}
}

func (t *Turret) scanForTarget(ownerPlayer uint8, selfX, selfY float64, grid *collision.Grid) {
	// Brute-force scan over all live platforms in the grid's full extent;
	// spec.md §4.6 documents this as a known limit, not a bug.
	cols, rows, cellSize := grid.Dimensions()
	width := float64(cols) * cellSize
	height := float64(rows) * cellSize

	bestDistSq := t.Range * t.Range
	found := false
	var bestID uint16

	grid.ForEachItemInArea(0, 0, width, height, func(o collision.Owner) bool {
		cand, ok := o.(*Platform)
		if !ok {
			return false
		}
		id, owner, alive := cand.identity()
		if !alive || owner == ownerPlayer {
			return false
		}
		d2 := mathutil.DistanceSquared(selfX, selfY, cand.X, cand.Y)
		if d2 <= bestDistSq {
			bestDistSq = d2
			bestID = id
			found = true
		}
		return false
	})

	if found {
		t.hasTarget = true
		t.TargetUnitID = bestID
	}
}

// CanFire reports whether the turret is currently aimed closely enough at
// its target and off cooldown to fire — the firing rule implied but elided
// from the legacy source, per spec.md §4.6.
func (t *Turret) CanFire(platformAngle float64, targetX, targetY, selfX, selfY float64) bool {
	if !t.hasTarget || t.FireCooldown > 0 {
		return false
	}
	desired := mathutil.AngleTo(selfX, selfY, targetX, targetY)
	current := t.WorldAngle(platformAngle)
	const aimTolerance = 0.02 // radians
	return mathutil.AngleDifference(current, desired) <= aimTolerance
}

// MarkFired resets the fire cooldown after a shot is produced.
func (t *Turret) MarkFired() {
	t.FireCooldown = t.cooldownPeriod
}

// HasTarget reports whether the turret currently has a locked target.
func (t *Turret) HasTarget() bool {
	return t.hasTarget
}

// ClearTarget forgets the current target (used when the unit itself dies or
// a match resets).
func (t *Turret) ClearTarget() {
	t.hasTarget = false
}
