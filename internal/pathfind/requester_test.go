package pathfind

import (
	"context"
	"testing"
	"time"
)

// blockingOracle lets the test control exactly when FindPath resolves, so it
// can construct the "stale response arrives late" scenario deterministically.
type blockingOracle struct {
	release chan struct{}
}

func (b *blockingOracle) FindPath(ctx context.Context, fromX, fromY, toX, toY float64) ([]Point, error) {
	<-b.release
	return []Point{{X: toX, Y: toY}}, nil
}

func TestRequesterMarksSupersededRequestStale(t *testing.T) {
	oracle := &blockingOracle{release: make(chan struct{})}
	r := NewRequester(oracle)

	firstResult := r.Request(context.Background(), 1, 0, 0, 100, 100)

	// Issue a second, newer request for the same unit before the first
	// resolves.
	second := r.Request(context.Background(), 1, 0, 0, 200, 200)

	close(oracle.release)

	res1 := <-firstResult
	if !res1.Stale {
		t.Error("expected first (superseded) request to be marked stale")
	}

	select {
	case res2 := <-second:
		if res2.Stale {
			t.Error("expected second (current) request to not be stale")
		}
	case <-time.After(time.Second):
		t.Fatal("second request never resolved")
	}
}

func TestNaiveOracleStraightLine(t *testing.T) {
	oracle := NewNaiveOracle()
	path, err := oracle.FindPath(context.Background(), 0, 0, 500, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(path) != 1 || path[0].X != 500 || path[0].Y != 500 {
		t.Errorf("unexpected path: %+v", path)
	}
}

func TestNaiveOracleRespectsContextCancellation(t *testing.T) {
	oracle := NewNaiveOracle()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := oracle.FindPath(ctx, 0, 0, 1, 1)
	if err == nil {
		t.Error("expected context cancellation error")
	}
}
