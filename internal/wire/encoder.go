package wire

import (
	"encoding/binary"
	"math"

	"skirmish-server/internal/mathutil"
	"skirmish-server/internal/sim"
)

// Encoder composes one binary game-update frame per tick (spec.md §4.8) into
// a single reused scratch buffer, and owns the full-update scheduler's
// pendingFull set across ticks. Grounded on internal/game/game_snapshot.go's
// pre-allocated buffer-reuse idiom, adapted from that file's triple-buffered
// producer/consumer layout to the single scratch buffer spec.md §5 calls
// for, since the tick loop here hands the buffer straight to the transport
// within the same goroutine rather than publishing across a boundary.
type Encoder struct {
	tickRate            int
	fullUpdatePeriodSec float64
	includeDebugState   bool

	pendingFull map[uint16]struct{}
	fullRate    int

	buf []byte
}

// NewEncoder builds an Encoder with a scratch buffer pre-sized to
// scratchBufferBytes (spec.md §6's scratchBufferBytes option).
// includeDebugState toggles whether the optional debug-state byte is ever
// written, independent of whether any unit currently has one set.
func NewEncoder(tickRate int, fullUpdatePeriodSec float64, scratchBufferBytes int, includeDebugState bool) *Encoder {
	return &Encoder{
		tickRate:            tickRate,
		fullUpdatePeriodSec: fullUpdatePeriodSec,
		includeDebugState:   includeDebugState,
		pendingFull:         make(map[uint16]struct{}),
		buf:                 make([]byte, 0, scratchBufferBytes),
	}
}

// EncodeFrame writes one frame into the Encoder's scratch buffer and returns
// it. The returned slice is only valid until the next call to EncodeFrame —
// callers must hand it to the transport and not retain it, per spec.md §5.
// ok is false if the full, delta and event sections would all be empty, in
// which case the frame must not be sent at all.
func (e *Encoder) EncodeFrame(s *sim.Server) (frame []byte, ok bool) {
	var units []*sim.Unit
	s.ForEachUnit(func(u *sim.Unit) { units = append(units, u) })

	e.refillPendingFull(units)
	fullSet := e.drawFullSet(units)

	e.buf = e.buf[:0]
	e.buf = append(e.buf, 0) // messageType 0: game-updates
	e.buf = appendFloat64(e.buf, s.GameTime())

	fullCountAt := len(e.buf)
	e.buf = appendUint16(e.buf, 0)
	var fullCount uint16
	for _, u := range units {
		if _, drawn := fullSet[u.ID]; !drawn {
			continue
		}
		e.writeFullRecord(u)
		fullCount++
	}
	binary.BigEndian.PutUint16(e.buf[fullCountAt:], fullCount)

	deltaCountAt := len(e.buf)
	e.buf = appendUint16(e.buf, 0)
	var deltaCount uint16
	for _, u := range units {
		if _, drawn := fullSet[u.ID]; drawn {
			continue
		}
		flags := u.Platform.Flags | u.Turret.Flags
		if flags == 0 {
			continue
		}
		e.writeDeltaRecord(u, flags)
		deltaCount++
	}
	binary.BigEndian.PutUint16(e.buf[deltaCountAt:], deltaCount)

	events := s.Events()
	eventCountAt := len(e.buf)
	e.buf = appendUint16(e.buf, 0)
	for _, ev := range events {
		e.writeEvent(ev)
	}
	binary.BigEndian.PutUint16(e.buf[eventCountAt:], uint16(len(events)))

	if fullCount == 0 && deltaCount == 0 && len(events) == 0 {
		return nil, false
	}
	return e.buf, true
}

// refillPendingFull repopulates the full-update queue from the live
// registry once it has drained, and recomputes the per-tick draw rate —
// spec.md §4.8: "the rate is recomputed then, adapting to population
// changes."
func (e *Encoder) refillPendingFull(units []*sim.Unit) {
	if len(e.pendingFull) > 0 {
		return
	}
	for _, u := range units {
		e.pendingFull[u.ID] = struct{}{}
	}
	ticksPerPeriod := float64(e.tickRate) * e.fullUpdatePeriodSec
	rate := 1
	if ticksPerPeriod > 0 {
		rate = int(math.Ceil(float64(len(units)) / ticksPerPeriod))
		if rate < 1 {
			rate = 1
		}
	}
	e.fullRate = rate
}

// drawFullSet draws up to e.fullRate units for this tick's full update,
// falling back to the live registry (and re-enqueuing the overflow) when
// the pending queue runs dry mid-period, per spec.md §4.8.
func (e *Encoder) drawFullSet(units []*sim.Unit) map[uint16]struct{} {
	drawn := make(map[uint16]struct{}, e.fullRate)
	for id := range e.pendingFull {
		if len(drawn) >= e.fullRate {
			break
		}
		drawn[id] = struct{}{}
		delete(e.pendingFull, id)
	}
	if len(drawn) < e.fullRate {
		for _, u := range units {
			if len(drawn) >= e.fullRate {
				break
			}
			if _, already := drawn[u.ID]; already {
				continue
			}
			drawn[u.ID] = struct{}{}
			e.pendingFull[u.ID] = struct{}{}
		}
	}
	return drawn
}

// writeFullRecord implements spec.md §4.8's "per-unit full record" and
// clears the unit's delta flags afterward.
func (e *Encoder) writeFullRecord(u *sim.Unit) {
	e.buf = appendUint16(e.buf, u.ID)
	e.buf = append(e.buf, u.Player)
	if e.includeDebugState {
		e.buf = append(e.buf, u.DebugState)
	}
	e.buf = appendUint16(e.buf, toUint16Position(u.Platform.X))
	e.buf = appendUint16(e.buf, toUint16Position(u.Platform.Y))
	e.buf = appendInt16(e.buf, toInt16Signed(u.Platform.Speed))
	e.buf = appendInt16(e.buf, toInt16Signed(u.Platform.Accel))
	e.buf = appendUint16(e.buf, mathutil.AngleToUint16(u.Platform.Angle))
	e.buf = appendUint16(e.buf, mathutil.AngleToUint16(u.Turret.Offset))

	u.Platform.ClearFlags()
	u.Turret.ClearFlags()
}

// writeDeltaRecord implements spec.md §4.8's "per-unit delta record": the
// id, a flags byte, then only the changed fields in the fixed bit order.
func (e *Encoder) writeDeltaRecord(u *sim.Unit, flags sim.DeltaFlags) {
	wireFlags := flags
	if !e.includeDebugState {
		wireFlags &^= sim.DeltaDebugState
	}

	e.buf = appendUint16(e.buf, u.ID)
	e.buf = append(e.buf, byte(wireFlags))

	if wireFlags&sim.DeltaPosition != 0 {
		e.buf = appendUint16(e.buf, toUint16Position(u.Platform.X))
		e.buf = appendUint16(e.buf, toUint16Position(u.Platform.Y))
	}
	if wireFlags&sim.DeltaSpeed != 0 {
		e.buf = appendInt16(e.buf, toInt16Signed(u.Platform.Speed))
	}
	if wireFlags&sim.DeltaAcceleration != 0 {
		e.buf = appendInt16(e.buf, toInt16Signed(u.Platform.Accel))
	}
	if wireFlags&sim.DeltaPlatformAngle != 0 {
		e.buf = appendUint16(e.buf, mathutil.AngleToUint16(u.Platform.Angle))
	}
	if wireFlags&sim.DeltaTurretAngle != 0 {
		e.buf = appendUint16(e.buf, mathutil.AngleToUint16(u.Turret.Offset))
	}
	if wireFlags&sim.DeltaDebugState != 0 {
		e.buf = append(e.buf, u.DebugState)
	}

	u.Platform.ClearFlags()
	u.Turret.ClearFlags()
}

// writeEvent implements spec.md §4.8's event table.
func (e *Encoder) writeEvent(ev sim.Event) {
	e.buf = append(e.buf, byte(ev.Kind))
	switch ev.Kind {
	case sim.EventFireProjectile:
		e.buf = appendUint16(e.buf, ev.ProjectileID)
		e.buf = appendUint16(e.buf, toUint16Position(ev.X))
		e.buf = appendUint16(e.buf, toUint16Position(ev.Y))
		e.buf = appendUint16(e.buf, mathutil.AngleToUint16(ev.Angle))
		e.buf = appendUint16(e.buf, toUint16Magnitude(ev.Speed))
		e.buf = appendUint16(e.buf, toUint16Magnitude(ev.Range))
		e.buf = appendUint16(e.buf, toUint16Magnitude(ev.DistanceTraveled))
	case sim.EventProjectileHit:
		e.buf = appendUint16(e.buf, ev.ProjectileID)
		e.buf = appendUint16(e.buf, toUint16Position(ev.X))
		e.buf = appendUint16(e.buf, toUint16Position(ev.Y))
	case sim.EventUnitDestroyed:
		e.buf = appendUint16(e.buf, ev.UnitID)
	}
}

func appendUint16(buf []byte, v uint16) []byte {
	return append(buf, byte(v>>8), byte(v))
}

func appendInt16(buf []byte, v int16) []byte {
	return appendUint16(buf, uint16(v))
}

func appendFloat64(buf []byte, v float64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], math.Float64bits(v))
	return append(buf, tmp[:]...)
}

// toUint16Position encodes a layout coordinate, clamping to the wire's
// representable range rather than silently wrapping.
func toUint16Position(v float64) uint16 {
	return uint16(math.Round(mathutil.Clamp(v, 0, 65535)))
}

// toUint16Magnitude encodes a non-negative magnitude (speed, range,
// distance travelled) for the fixed-width event bodies.
func toUint16Magnitude(v float64) uint16 {
	return uint16(math.Round(mathutil.Clamp(v, 0, 65535)))
}

// toInt16Signed encodes a signed pixel/s or pixel/s² quantity, clamping to
// the representable range.
func toInt16Signed(v float64) int16 {
	return int16(math.Round(mathutil.Clamp(v, -32768, 32767)))
}
