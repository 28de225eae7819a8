package sim

import (
	"math"

	"skirmish-server/internal/collision"
	"skirmish-server/internal/mathutil"
)

// Projectile is a ballistic point: ticked forward each frame, queried
// against the collision grid, and destroyed on range expiry or hit.
// Grounded on internal/game/projectile.go's Projectile (position/velocity,
// trail, hit test), adapted from that file's fixed-tick-count lifetime to
// spec.md §3/§4.7's range + distanceTravelled model.
type Projectile struct {
	ID               uint16
	OwnerUnitID      uint16
	OwnerPlayer      uint8
	X, Y             float64
	Angle            float64
	Speed            float64
	Range            float64
	DistanceTraveled float64
	Damage           int

	DidHit bool
}

// maxWireDistance is the largest value representable by the uint16
// range/distanceTravelled wire fields (spec.md §9: "ranges > 65535 px are
// unrepresentable — note and guard against misconfiguration").
const maxWireDistance = 65535

// ClampRangeForWire guards against a configured range that would silently
// wrap on the wire.
func ClampRangeForWire(r float64) float64 {
	if r > maxWireDistance {
		return maxWireDistance
	}
	return r
}

// Tick advances the projectile by dt along its angle, queries the grid for
// platforms at its new position, and applies damage on a hit. It returns
// true once ShouldDestroy() would report true, so the caller can remove it
// from the registry.
func (p *Projectile) Tick(dt float64, grid *collision.Grid, applyDamage func(targetUnitID uint16, targetOwner uint8)) bool {
	sin, cos := math.Sincos(p.Angle)
	step := p.Speed * dt
	p.X += step * cos
	p.Y += step * sin
	p.DistanceTraveled += math.Abs(step)

	grid.ForEachItemInArea(p.X, p.Y, p.X, p.Y, func(o collision.Owner) bool {
		platform, ok := o.(*Platform)
		if !ok || platform.Unit == nil {
			return false
		}
		if platform.Unit.Player == p.OwnerPlayer {
			return false
		}
		if !platform.FullShape.ContainsPoint(p.X, p.Y) {
			return false
		}
		p.DidHit = true
		if applyDamage != nil {
			applyDamage(platform.Unit.ID, platform.Unit.Player)
		}
		return true
	})

	return p.ShouldDestroy()
}

// ShouldDestroy reports whether the projectile has exceeded its range or
// already hit something, per spec.md §3.
func (p *Projectile) ShouldDestroy() bool {
	return p.DistanceTraveled > p.Range || p.DidHit
}

// AngleToUint16 is a thin convenience wrapper so callers building wire
// records don't need to import mathutil separately just for this field.
func (p *Projectile) AngleToUint16() uint16 {
	return mathutil.AngleToUint16(p.Angle)
}
