package sim

import (
	"testing"

	"skirmish-server/internal/objectdata"
	"skirmish-server/internal/pathfind"
)

type fakeOutbound struct {
	frames    int
	pongs     []struct {
		player uint8
		id     uint32
		time   float64
	}
	gameOvers []int
}

func (f *fakeOutbound) SendFrame(s *Server) { f.frames++ }
func (f *fakeOutbound) SendPong(player uint8, id uint32, gameTime float64) {
	f.pongs = append(f.pongs, struct {
		player uint8
		id     uint32
		time   float64
	}{player, id, gameTime})
}
func (f *fakeOutbound) SendGameOver(winningPlayer int) {
	f.gameOvers = append(f.gameOvers, winningPlayer)
}

func newTestServer(t *testing.T, out Outbound) *Server {
	t.Helper()
	return NewServer(NewServerParams{
		TickRate:            30,
		Layout:              Layout{Width: 35000, Height: 13000},
		CollisionCellSize:   2000,
		PathGroupMaxWorkers: 4,
		PathGroupBaseCost:   1,
		PathGroupCellSpread: 3,
		ObjectData:          objectdata.DefaultRegistry(),
		Pathfinder:          pathfind.NewRequester(pathfind.NewNaiveOracle()),
		Outbound:            out,
	})
}

// TestHandleMoveUnitsDropsUnauthorizedAndUnknownIDs covers spec.md §8's
// boundary behaviour: "Move command with all unowned ids: no side effects."
func TestHandleMoveUnitsDropsUnauthorizedAndUnknownIDs(t *testing.T) {
	srv := newTestServer(t, nil)
	u, err := srv.SpawnUnit(0, "tank", 1000, 1000, 0)
	if err != nil {
		t.Fatalf("SpawnUnit: %v", err)
	}

	srv.handleMoveUnits(1, []MoveRequest{
		{ID: u.ID, X: 2000, Y: 2000}, // wrong player
		{ID: 9999, X: 0, Y: 0},       // unknown unit
	})

	if u.Platform.Controller != nil {
		t.Error("expected no controller to be installed for an unauthorized move")
	}
	select {
	case cmd := <-srv.commands:
		t.Errorf("expected no command enqueued, got %+v", cmd)
	default:
	}
}

// TestHandleMoveUnitsAuthorizedResolvesAndInstallsController checks the
// happy path end to end through the async pathfinder round-trip.
func TestHandleMoveUnitsAuthorizedResolvesAndInstallsController(t *testing.T) {
	srv := newTestServer(t, nil)
	u, err := srv.SpawnUnit(0, "tank", 1000, 1000, 0)
	if err != nil {
		t.Fatalf("SpawnUnit: %v", err)
	}

	srv.handleMoveUnits(0, []MoveRequest{{ID: u.ID, X: 1400, Y: 1000}})

	cmd := <-srv.commands
	if cmd.Kind != commandPathResolved {
		t.Fatalf("expected commandPathResolved, got %v", cmd.Kind)
	}
	srv.handleCommand(cmd)

	if u.Platform.Controller == nil {
		t.Fatal("expected a movement controller to be installed once the path resolved")
	}
}

// TestCheckGameEndConditionLatchesOnce covers the "game-over already
// latched" suppression and the winning-player-by-elimination computation.
func TestCheckGameEndConditionLatchesOnce(t *testing.T) {
	out := &fakeOutbound{}
	srv := newTestServer(t, out)

	winner, err := srv.SpawnUnit(0, "tank", 1000, 1000, 0)
	if err != nil {
		t.Fatalf("SpawnUnit: %v", err)
	}
	loser, err := srv.SpawnUnit(1, "tank", 2000, 1000, 0)
	if err != nil {
		t.Fatalf("SpawnUnit: %v", err)
	}
	_ = winner

	srv.applyDamageTo(loser.ID, loser.MaxHealth)
	if !loser.Destroyed {
		t.Fatal("expected loser to be destroyed")
	}

	srv.checkGameEndCondition()
	srv.checkGameEndCondition() // must not re-fire

	latched, winningPlayer := srv.GameOverInfo()
	if !latched {
		t.Fatal("expected game-over to be latched")
	}
	if winningPlayer != 0 {
		t.Errorf("expected player 0 to win, got %d", winningPlayer)
	}
	if len(out.gameOvers) != 1 {
		t.Errorf("expected exactly one SendGameOver call, got %d", len(out.gameOvers))
	}
}

// TestCheckGameEndConditionSimultaneousElimination checks the winner=-1 case.
func TestCheckGameEndConditionSimultaneousElimination(t *testing.T) {
	out := &fakeOutbound{}
	srv := newTestServer(t, out)

	a, _ := srv.SpawnUnit(0, "tank", 1000, 1000, 0)
	b, _ := srv.SpawnUnit(1, "tank", 2000, 1000, 0)

	srv.applyDamageTo(a.ID, a.MaxHealth)
	srv.applyDamageTo(b.ID, b.MaxHealth)

	srv.checkGameEndCondition()

	_, winningPlayer := srv.GameOverInfo()
	if winningPlayer != -1 {
		t.Errorf("expected simultaneous elimination (-1), got %d", winningPlayer)
	}
}

// TestQuadrantInterleavePreservesAllTargets checks the diversification
// shuffle is a permutation, not a filter.
func TestQuadrantInterleavePreservesAllTargets(t *testing.T) {
	var grid interface{} // moveTarget only reads unit.Platform.X/Y, built without a grid dependency here
	_ = grid

	coords := [][2]float64{{0, 0}, {100, 0}, {0, 100}, {100, 100}, {50, 50}}
	var targets []moveTarget
	for i, c := range coords {
		u := &Unit{ID: uint16(i), Platform: &Platform{X: c[0], Y: c[1]}}
		targets = append(targets, moveTarget{unit: u, destX: 1, destY: 1})
	}

	out := quadrantInterleave(targets)
	if len(out) != len(targets) {
		t.Fatalf("expected %d targets, got %d", len(targets), len(out))
	}
	seen := make(map[uint16]bool)
	for _, t2 := range out {
		seen[t2.unit.ID] = true
	}
	if len(seen) != len(targets) {
		t.Errorf("expected all %d unit ids present exactly once, got %d distinct", len(targets), len(seen))
	}
}
