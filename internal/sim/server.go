package sim

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"skirmish-server/internal/collision"
	"skirmish-server/internal/mathutil"
	"skirmish-server/internal/objectdata"
	"skirmish-server/internal/pathfind"
)

// defaultFireCooldown is the turret reload period. Not specified by the
// source material's firing rule (§4.6 calls firing "elided from legacy
// source"); chosen as a plausible rate of fire.
const defaultFireCooldown = 1.0 // seconds

// CommandKind tags the inbound instructions a Server accepts, per spec.md
// §4.8's dispatch-by-type map, plus an internal kind used to thread an async
// pathfinder result back onto the tick goroutine.
type CommandKind uint8

const (
	CommandMoveUnits CommandKind = iota
	CommandPing
	CommandRelease
	commandPathResolved
)

// MoveRequest is one entry of a move-units command's payload.
type MoveRequest struct {
	ID   uint16
	X, Y float64
}

// Command is one inbound instruction, already labelled with its sending
// player by the transport layer (never trusted from the payload itself, per
// spec.md §6). It is queued on Server.commands and drained at the start of
// the next tick (spec.md §4.1 step 1).
type Command struct {
	Kind   CommandKind
	Player uint8

	Moves []MoveRequest // CommandMoveUnits
	PingID uint32        // CommandPing

	pathUnitID uint16          // commandPathResolved
	path       []pathfind.Point
	pathErr    error
	pathStale  bool
}

// Outbound is implemented by the package that turns simulation state into
// wire messages (C10) and hands them to a transport. Every method is called
// only from the tick goroutine, so implementations need no locking of their
// own against the Server.
type Outbound interface {
	// SendFrame composes and sends one binary update frame from the
	// server's current unit/projectile/event state (spec.md §4.8). The
	// implementation must itself skip sending when full, delta and event
	// sections would all be empty.
	SendFrame(s *Server)
	// SendPong replies to a ping from the given player.
	SendPong(player uint8, id uint32, gameTime float64)
	// SendGameOver is called exactly once, the tick the game-end condition
	// first latches.
	SendGameOver(winningPlayer int)
}

// NewServerParams collects the tunables spec.md §6 calls "recognised
// configuration options" plus the collaborators a Server needs to run.
type NewServerParams struct {
	TickRate          int
	Layout            Layout
	CollisionCellSize float64

	PathGroupMaxWorkers int
	PathGroupBaseCost   float64
	PathGroupCellSpread int

	ObjectData *objectdata.Registry
	Pathfinder *pathfind.Requester
	Outbound   Outbound
}

// Server is the authoritative simulation (C11): entity registries, the
// collision grid, the game clock, and the fixed-rate tick loop. Grounded on
// internal/game/engine.go's Engine — goroutine-plus-timer loop, a command
// queue drained at tick start replacing the teacher's direct mutex-guarded
// method calls, since spec.md §5 requires commands to be queued and drained
// cooperatively rather than applied the instant they arrive.
type Server struct {
	objectData *objectdata.Registry
	layout     Layout
	grid       *collision.Grid
	clock      *Clock

	units         map[uint16]*Unit
	projectiles   map[uint16]*Projectile
	unitIDs       idAllocator
	projectileIDs idAllocator
	everSpawned   bool

	pathfinder          *pathfind.Requester
	pathGroupMaxWorkers int
	pathGroupBaseCost   float64
	pathGroupCellSpread int

	events []Event

	gameOverLatched bool
	winningPlayer   int

	tickRate      int
	interval      time.Duration
	nextScheduled time.Time
	startWall     time.Time

	commands chan Command
	stopChan chan struct{}

	mu            sync.Mutex // guards running/stopChan lifecycle only
	running       bool
	stopRequested bool

	Outbound Outbound

	// TickObserver, if set, is called once per tick with the wall-clock time
	// spent executing that tick's sub-phases (scheduler wait excluded).
	TickObserver func(time.Duration)
	// DroppedCommand, if set, is called whenever an inbound command entry is
	// discarded rather than applied, labelled with a reason ("unauthorized",
	// "unknown_target").
	DroppedCommand func(reason string)
}

// NewServer constructs a Server ready for unit spawning and Start.
func NewServer(p NewServerParams) *Server {
	grid := collision.NewGrid(p.Layout.Width, p.Layout.Height, p.CollisionCellSize)
	return &Server{
		objectData:          p.ObjectData,
		layout:              p.Layout,
		grid:                grid,
		clock:               NewClock(),
		units:               make(map[uint16]*Unit),
		projectiles:         make(map[uint16]*Projectile),
		pathfinder:          p.Pathfinder,
		pathGroupMaxWorkers: p.PathGroupMaxWorkers,
		pathGroupBaseCost:   p.PathGroupBaseCost,
		pathGroupCellSpread: p.PathGroupCellSpread,
		tickRate:            p.TickRate,
		interval:            time.Second / time.Duration(p.TickRate),
		commands:            make(chan Command, 256),
		winningPlayer:       -1,
		Outbound:            p.Outbound,
	}
}

// SpawnUnit registers a new unit of typeName for player at (x,y,angle),
// allocating an id per spec.md §9's wrap-and-skip rule.
func (s *Server) SpawnUnit(player uint8, typeName string, x, y, angle float64) (*Unit, error) {
	data, err := s.objectData.Get(typeName)
	if err != nil {
		return nil, err
	}
	id, ok := s.unitIDs.allocate(func(candidate uint16) bool {
		_, exists := s.units[candidate]
		return exists
	})
	if !ok {
		return nil, fmt.Errorf("sim: unit id space exhausted")
	}

	platform := NewPlatform(data, s.grid, x, y, angle)
	turret := NewTurret(data.TurretRange, data.TurretRotateSpeed, defaultFireCooldown)
	u := NewUnit(id, player, platform, turret)
	s.units[id] = u
	s.everSpawned = true
	return u, nil
}

// EnqueueCommand queues cmd for the next tick's drain. Safe to call from any
// goroutine (the transport's read loop, typically). The queue is bounded;
// under backpressure a command is logged and dropped rather than blocking
// the caller, mirroring spec.md §7's "drop, don't fail" posture for bad or
// excess input.
func (s *Server) EnqueueCommand(cmd Command) {
	select {
	case s.commands <- cmd:
	default:
		log.Printf("sim: command queue full, dropping command kind %d from player %d", cmd.Kind, cmd.Player)
	}
}

// Start begins the fixed-rate tick loop in its own goroutine.
func (s *Server) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	s.startWall = time.Now()
	s.nextScheduled = s.startWall.Add(s.interval)

	go s.loop()

	log.Printf("sim: server started at %d ticks/sec", s.tickRate)
}

// Stop halts the tick loop and releases all entity registries, per spec.md
// §5's resource-lifecycle note ("stopping the tick timer, and releasing
// unit and projectile registries in that order").
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.releaseAll()
	log.Println("sim: server stopped")
}

func (s *Server) releaseAll() {
	for _, u := range s.units {
		u.Platform.Release()
	}
	s.units = make(map[uint16]*Unit)
	s.projectiles = make(map[uint16]*Projectile)
}

// loop runs the self-correcting fixed-rate scheduler from spec.md §4.1 step
// 7: sleep until the next scheduled instant, tick, then either reset the
// schedule (if the tick ran late) or advance it by exactly one interval —
// compensating for late timer fires without permanently drifting.
func (s *Server) loop() {
	for {
		now := time.Now()
		wait := s.nextScheduled.Sub(now)
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-s.stopChan:
				timer.Stop()
				return
			}
		} else {
			select {
			case <-s.stopChan:
				return
			default:
			}
		}

		s.tick()

		if s.stopRequested {
			s.Stop()
			return
		}

		now = time.Now()
		if now.After(s.nextScheduled) {
			s.nextScheduled = now.Add(s.interval)
		} else {
			s.nextScheduled = s.nextScheduled.Add(s.interval)
		}
	}
}

// monotonicSeconds returns elapsed time since Start, in seconds, as the
// "now" fed to the game clock.
func (s *Server) monotonicSeconds() float64 {
	return time.Since(s.startWall).Seconds()
}

// tick runs the seven ordered steps of spec.md §4.1. Each sub-phase is
// wrapped so a panic in one bad entity does not abort the rest of the frame
// (spec.md §7: "the tick loop catches around each sub-phase").
func (s *Server) tick() {
	tickStart := time.Now()

	now := s.monotonicSeconds()
	dt := s.clock.GetTimeSinceLastTick(now)
	s.clock.SetTickStart(now)

	s.safely("commands", s.drainCommands)
	s.safely("projectiles", func() { s.tickProjectiles(dt) })
	s.safely("units", func() { s.tickUnits(dt) })
	s.safely("frame", func() {
		if s.Outbound != nil {
			s.Outbound.SendFrame(s)
		}
	})
	s.events = s.events[:0]
	s.safely("game-end", s.checkGameEndCondition)

	s.clock.Advance(dt)

	if s.TickObserver != nil {
		s.TickObserver(time.Since(tickStart))
	}
}

func (s *Server) reportDropped(reason string) {
	if s.DroppedCommand != nil {
		s.DroppedCommand(reason)
	}
}

func (s *Server) safely(phase string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("sim: recovered panic in %s phase: %v", phase, r)
		}
	}()
	fn()
}

// drainCommands applies every command queued since the last tick.
func (s *Server) drainCommands() {
	for {
		select {
		case cmd := <-s.commands:
			s.handleCommand(cmd)
		default:
			return
		}
	}
}

func (s *Server) handleCommand(cmd Command) {
	switch cmd.Kind {
	case CommandMoveUnits:
		if s.gameOverLatched {
			return // §8 scenario 6: ignore move-units once game-over has latched
		}
		s.handleMoveUnits(cmd.Player, cmd.Moves)
	case CommandPing:
		if s.Outbound != nil {
			now := s.monotonicSeconds()
			s.Outbound.SendPong(cmd.Player, cmd.PingID, s.clock.GameTime()+s.clock.GetTimeSinceLastTick(now))
		}
	case CommandRelease:
		if cmd.Player == 0 {
			s.stopRequested = true
		}
	case commandPathResolved:
		s.applyResolvedPath(cmd.pathUnitID, cmd.path, cmd.pathErr, cmd.pathStale)
	}
}

// moveTarget pairs a unit with its commanded destination, for quadrant
// interleaving in handleMoveUnits.
type moveTarget struct {
	unit  *Unit
	destX float64
	destY float64
}

// handleMoveUnits implements spec.md §4.9.
func (s *Server) handleMoveUnits(player uint8, moves []MoveRequest) {
	var owned []moveTarget
	for _, m := range moves {
		u, ok := s.units[m.ID]
		if !ok || u.Destroyed {
			s.reportDropped("unknown_target")
			continue // §7: unknown entries are dropped, the rest proceed
		}
		if u.Player != player {
			s.reportDropped("unauthorized")
			continue // §7: unauthorised entries are dropped, the rest proceed
		}
		owned = append(owned, moveTarget{unit: u, destX: m.X, destY: m.Y})
	}
	if len(owned) == 0 {
		return
	}

	grouped := len(owned) > s.pathGroupMaxWorkers
	if grouped && s.pathfinder != nil {
		s.pathfinder.StartGroup(s.pathGroupBaseCost, s.pathGroupCellSpread, s.pathGroupMaxWorkers)
	}

	for _, t := range quadrantInterleave(owned) {
		s.moveUnitToPosition(t.unit, t.destX, t.destY)
	}

	if grouped && s.pathfinder != nil {
		s.pathfinder.EndGroup()
	}
}

// quadrantInterleave sorts targets left/right by current X, then each half
// top/bottom by current Y, then round-robins one from each quadrant — spec.md
// §4.9's diversification so simultaneous path requests don't all land on the
// same contested corridor.
func quadrantInterleave(ts []moveTarget) []moveTarget {
	if len(ts) <= 1 {
		return ts
	}

	byX := append([]moveTarget(nil), ts...)
	sort.Slice(byX, func(i, j int) bool { return byX[i].unit.Platform.X < byX[j].unit.Platform.X })
	mid := len(byX) / 2
	left, right := byX[:mid], byX[mid:]

	splitByY := func(half []moveTarget) (top, bottom []moveTarget) {
		cp := append([]moveTarget(nil), half...)
		sort.Slice(cp, func(i, j int) bool { return cp[i].unit.Platform.Y < cp[j].unit.Platform.Y })
		m := len(cp) / 2
		return cp[:m], cp[m:]
	}

	lt, lb := splitByY(left)
	rt, rb := splitByY(right)

	quadrants := [][]moveTarget{lt, lb, rt, rb}
	out := make([]moveTarget, 0, len(ts))
	for {
		progressed := false
		for i := range quadrants {
			if len(quadrants[i]) == 0 {
				continue
			}
			out = append(out, quadrants[i][0])
			quadrants[i] = quadrants[i][1:]
			progressed = true
		}
		if !progressed {
			break
		}
	}
	return out
}

// moveUnitToPosition implements platform.MoveToPosition(x,y) from spec.md
// §4.9: clamp to layout, stop any current controller, then asynchronously
// await the pathfinder. The await happens off the tick goroutine; the
// result is threaded back in as a commandPathResolved command so it is only
// ever applied between ticks, per spec.md §5.
func (s *Server) moveUnitToPosition(u *Unit, x, y float64) {
	x = mathutil.Clamp(x, 0, s.layout.Width)
	y = mathutil.Clamp(y, 0, s.layout.Height)

	if u.Platform.Controller != nil {
		u.Platform.Controller = nil
		u.ClearDebugState()
	}

	if s.pathfinder == nil {
		return
	}

	unitID := u.ID
	fromX, fromY := u.Platform.X, u.Platform.Y
	results := s.pathfinder.Request(context.Background(), unitID, fromX, fromY, x, y)
	go func() {
		res := <-results
		s.EnqueueCommand(Command{
			Kind:       commandPathResolved,
			pathUnitID: unitID,
			path:       res.Path,
			pathErr:    res.Err,
			pathStale:  res.Stale,
		})
	}()
}

// applyResolvedPath installs a resolved path on its unit's movement
// controller, or leaves the unit stopped per spec.md §7's treatment of a
// null/failed/stale path as a non-error outcome.
func (s *Server) applyResolvedPath(unitID uint16, path []pathfind.Point, err error, stale bool) {
	if stale {
		return // superseded by a newer move command for the same unit
	}
	u, ok := s.units[unitID]
	if !ok || u.Destroyed {
		return
	}
	if err != nil || path == nil {
		return
	}

	waypoints := make([]waypoint, len(path))
	for i, p := range path {
		waypoints[i] = waypoint{X: p.X, Y: p.Y}
	}
	if u.Platform.Controller == nil {
		u.Platform.Controller = newMovementController(u, u.Platform, s.grid, s.layout)
	}
	u.Platform.Controller.StartMovingAlongWaypoints(waypoints)
}

// tickProjectiles implements spec.md §4.1 step 2.
func (s *Server) tickProjectiles(dt float64) {
	for id, p := range s.projectiles {
		destroyed := p.Tick(dt, s.grid, func(targetUnitID uint16, targetOwner uint8) {
			// p.X/p.Y already reflect this tick's move, so this is the
			// point of impact, not the projectile's pre-tick position.
			s.events = append(s.events, Event{Kind: EventProjectileHit, ProjectileID: p.ID, X: p.X, Y: p.Y})
			s.applyDamageTo(targetUnitID, p.Damage)
		})
		if destroyed {
			delete(s.projectiles, id)
		}
	}
}

// applyDamageTo applies amount damage to unitID, emitting UnitDestroyed and
// releasing the platform's grid membership exactly once if this kills it.
func (s *Server) applyDamageTo(unitID uint16, amount int) {
	u, ok := s.units[unitID]
	if !ok || u.Destroyed {
		return
	}
	if u.ApplyDamage(amount) {
		s.events = append(s.events, Event{Kind: EventUnitDestroyed, UnitID: u.ID})
		u.Platform.Release()
		delete(s.units, unitID)
	}
}

// tickUnits implements spec.md §4.1 step 3: platform before turret, per
// the reference ordering so a freshly rotated turret's muzzle position is
// used for any projectile it fires this tick.
func (s *Server) tickUnits(dt float64) {
	for _, u := range s.units {
		if u.Destroyed {
			continue
		}
		if u.Platform.Controller != nil {
			u.Platform.Controller.Tick(dt)
		}

		u.Turret.Tick(dt, u.Platform.Angle, u.Player, u.Platform.X, u.Platform.Y, s.grid, s.lookupUnit)

		if u.Turret.HasTarget() {
			tx, ty, _, alive := s.lookupUnit(u.Turret.TargetUnitID)
			if alive && u.Turret.CanFire(u.Platform.Angle, tx, ty, u.Platform.X, u.Platform.Y) {
				s.fireProjectile(u)
			}
		}
	}
}

func (s *Server) lookupUnit(id uint16) (x, y float64, owner uint8, alive bool) {
	u, ok := s.units[id]
	if !ok || u.Destroyed {
		return 0, 0, 0, false
	}
	return u.Platform.X, u.Platform.Y, u.Player, true
}

// fireProjectile spawns a projectile from u's turret muzzle and emits
// FireProjectile, per spec.md §4.6's elided-but-implied firing rule.
func (s *Server) fireProjectile(u *Unit) {
	id, ok := s.projectileIDs.allocate(func(candidate uint16) bool {
		_, exists := s.projectiles[candidate]
		return exists
	})
	if !ok {
		return // id space exhausted; drop this shot rather than fail the tick
	}

	data := u.Platform.Data
	angle := u.Turret.WorldAngle(u.Platform.Angle)
	proj := &Projectile{
		ID:          id,
		OwnerUnitID: u.ID,
		OwnerPlayer: u.Player,
		X:           u.Platform.X,
		Y:           u.Platform.Y,
		Angle:       angle,
		Speed:       data.ProjectileSpeed,
		Range:       ClampRangeForWire(data.TurretRange),
		Damage:      data.ProjectileDamage,
	}
	s.projectiles[id] = proj
	u.Turret.MarkFired()

	s.events = append(s.events, Event{
		Kind:             EventFireProjectile,
		ProjectileID:     id,
		X:                proj.X,
		Y:                proj.Y,
		Angle:            angle,
		Speed:            proj.Speed,
		Range:            proj.Range,
		DistanceTraveled: 0,
	})
}

// checkGameEndCondition implements spec.md §4.1 step 5 for a two-player
// match: winning-player is 0 or 1 if exactly one side still has live units,
// or -1 for simultaneous elimination. Suppresses duplicate game-over
// messages once latched, per spec.md §7.
func (s *Server) checkGameEndCondition() {
	if !s.everSpawned || s.gameOverLatched {
		return
	}

	var aliveP0, aliveP1 int
	for _, u := range s.units {
		switch u.Player {
		case 0:
			aliveP0++
		case 1:
			aliveP1++
		}
	}
	if aliveP0 > 0 && aliveP1 > 0 {
		return
	}

	winner := -1
	switch {
	case aliveP0 > 0:
		winner = 0
	case aliveP1 > 0:
		winner = 1
	}

	s.gameOverLatched = true
	s.winningPlayer = winner
	if s.Outbound != nil {
		s.Outbound.SendGameOver(winner)
	}
}

// --- Accessors for the wire/transport layers ---

// ForEachUnit calls fn for every live unit. fn must not mutate the registry.
func (s *Server) ForEachUnit(fn func(*Unit)) {
	for _, u := range s.units {
		fn(u)
	}
}

// ForEachProjectile calls fn for every live projectile.
func (s *Server) ForEachProjectile(fn func(*Projectile)) {
	for _, p := range s.projectiles {
		fn(p)
	}
}

// Events returns this tick's buffered events. Valid only until the tick's
// frame phase completes; the slice is reset immediately afterward.
func (s *Server) Events() []Event {
	return s.events
}

// FindUnit looks up a unit by id.
func (s *Server) FindUnit(id uint16) (*Unit, bool) {
	u, ok := s.units[id]
	return u, ok
}

// GameOverInfo reports whether the game-end condition has latched and, if
// so, the winning player (0, 1, or -1 for simultaneous elimination).
func (s *Server) GameOverInfo() (latched bool, winningPlayer int) {
	return s.gameOverLatched, s.winningPlayer
}

// Layout returns the match's fixed play-area rectangle.
func (s *Server) Layout() Layout {
	return s.layout
}

// GameTime returns the Kahan-summed game clock.
func (s *Server) GameTime() float64 {
	return s.clock.GameTime()
}

// TickRate returns the configured ticks-per-second.
func (s *Server) TickRate() int {
	return s.tickRate
}

// UnitCount returns the number of live units, for the full-update scheduler.
func (s *Server) UnitCount() int {
	return len(s.units)
}
