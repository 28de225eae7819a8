package wire

import (
	"encoding/binary"
	"math"
	"testing"

	"skirmish-server/internal/objectdata"
	"skirmish-server/internal/pathfind"
	"skirmish-server/internal/sim"
)

func newTestServer(t *testing.T) *sim.Server {
	t.Helper()
	return sim.NewServer(sim.NewServerParams{
		TickRate:            30,
		Layout:              sim.Layout{Width: 35000, Height: 13000},
		CollisionCellSize:   2000,
		PathGroupMaxWorkers: 4,
		PathGroupBaseCost:   1,
		PathGroupCellSpread: 3,
		ObjectData:          objectdata.DefaultRegistry(),
		Pathfinder:          pathfind.NewRequester(pathfind.NewNaiveOracle()),
	})
}

func TestEncodeFrameSkipsWhenEverythingIsEmpty(t *testing.T) {
	srv := newTestServer(t)
	enc := NewEncoder(30, 2, 262144, false)

	_, ok := enc.EncodeFrame(srv)
	if ok {
		t.Fatal("expected an empty frame (no units, no events) to be skipped")
	}
}

func TestEncodeFrameWritesFullRecordForNewUnit(t *testing.T) {
	srv := newTestServer(t)
	u, err := srv.SpawnUnit(0, "tank", 1234, 5678, 0)
	if err != nil {
		t.Fatalf("SpawnUnit: %v", err)
	}
	enc := NewEncoder(30, 2, 262144, false)

	frame, ok := enc.EncodeFrame(srv)
	if !ok {
		t.Fatal("expected a non-empty frame once a unit has spawned")
	}
	if frame[0] != 0 {
		t.Errorf("expected messageType 0, got %d", frame[0])
	}

	gameTime := math.Float64frombits(binary.BigEndian.Uint64(frame[1:9]))
	if gameTime != 0 {
		t.Errorf("expected game time 0 on the first frame, got %v", gameTime)
	}

	fullCount := binary.BigEndian.Uint16(frame[9:11])
	if fullCount != 1 {
		t.Fatalf("expected exactly one full record (single spawned unit), got %d", fullCount)
	}

	rec := frame[11:]
	id := binary.BigEndian.Uint16(rec[0:2])
	player := rec[2]
	x := binary.BigEndian.Uint16(rec[3:5])
	y := binary.BigEndian.Uint16(rec[5:7])

	if id != u.ID {
		t.Errorf("expected unit id %d, got %d", u.ID, id)
	}
	if player != 0 {
		t.Errorf("expected player 0, got %d", player)
	}
	if x != 1234 || y != 5678 {
		t.Errorf("expected position (1234,5678), got (%d,%d)", x, y)
	}
}

func TestEncodeFrameRotatesFullRecordsAcrossAllUnits(t *testing.T) {
	srv := newTestServer(t)
	enc := NewEncoder(30, 2, 262144, false)

	var ids []uint16
	for i := 0; i < 5; i++ {
		u, err := srv.SpawnUnit(0, "tank", float64(1000+i*50), 1000, 0)
		if err != nil {
			t.Fatalf("SpawnUnit: %v", err)
		}
		ids = append(ids, u.ID)
	}

	// fullRate = ceil(5/(30*2)) = 1, so each of the first 5 frames should
	// carry exactly one full record and (since nothing else changed since
	// spawn) no deltas.
	seen := make(map[uint16]bool)
	for i := 0; i < 5; i++ {
		frame, ok := enc.EncodeFrame(srv)
		if !ok {
			t.Fatalf("frame %d: expected a non-empty frame", i)
		}
		fullCount := binary.BigEndian.Uint16(frame[9:11])
		if fullCount != 1 {
			t.Fatalf("frame %d: expected exactly one full record, got %d", i, fullCount)
		}
		id := binary.BigEndian.Uint16(frame[11:13])
		seen[id] = true
	}

	if len(seen) != len(ids) {
		t.Errorf("expected all %d units to receive a full update across 5 frames, saw %d distinct", len(ids), len(seen))
	}
}
