// Package pathfind defines the async path-oracle interface the movement
// state machine consumes (C6). The real grid-based pathfinder is out of
// scope per spec.md §1 ("the pathfinding grid implementation... consumed as
// an oracle"); this package only implements the proxy/request-lifecycle
// machinery plus a reference oracle good enough to exercise it end to end.
package pathfind

import "context"

// Point is a single waypoint, in layout pixel coordinates.
type Point struct {
	X, Y float64
}

// Oracle is the external path provider's interface: FindPath resolves
// asynchronously (it may be backed by a remote service or a worker pool) and
// returns nil, nil when no path exists — spec.md §7 treats "no path" as a
// normal outcome, not an error.
type Oracle interface {
	FindPath(ctx context.Context, fromX, fromY, toX, toY float64) ([]Point, error)
}

// Grouper is implemented by oracles that support batched group requests
// (spec.md §4.9): StartGroup biases subsequent FindPath calls within the
// group onto alternate routes so units spread out; EndGroup closes the
// batch. An oracle that does not support grouping simply does not implement
// this interface, and callers fall back to ungrouped requests.
type Grouper interface {
	StartGroup(baseCost float64, cellSpread, maxWorkers int)
	EndGroup()
}

// NaiveOracle is the bundled reference implementation: a direct line from
// source to destination, with no obstacle avoidance. It exists so the
// server runs out of the box; a production deployment is expected to swap
// in a real navmesh/grid pathfinder behind the same Oracle interface.
type NaiveOracle struct{}

// NewNaiveOracle returns an Oracle that always returns the straight-line
// path to the destination.
func NewNaiveOracle() *NaiveOracle {
	return &NaiveOracle{}
}

// FindPath implements Oracle.
func (n *NaiveOracle) FindPath(ctx context.Context, fromX, fromY, toX, toY float64) ([]Point, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return []Point{{X: toX, Y: toY}}, nil
}

// StartGroup and EndGroup are no-ops for the naive oracle; it satisfies
// Grouper only so callers can exercise the group lifecycle without a type
// assertion failing.
func (n *NaiveOracle) StartGroup(baseCost float64, cellSpread, maxWorkers int) {}
func (n *NaiveOracle) EndGroup()                                              {}
