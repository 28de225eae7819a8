package pathfind

import (
	"context"
	"sync/atomic"
)

// Requester wraps an Oracle with per-unit request sequencing so that a path
// result arriving after a newer request was issued for the same unit is
// discarded rather than overwriting fresher state — spec.md §5's
// cancellation requirement ("attach a monotonically increasing request id
// per unit; discard responses whose id is not the current one").
type Requester struct {
	oracle  Oracle
	seq     map[uint16]*uint64
	nextSeq func(unitID uint16) uint64
}

// NewRequester wraps oracle for use by many units concurrently.
func NewRequester(oracle Oracle) *Requester {
	return &Requester{
		oracle: oracle,
		seq:    make(map[uint16]*uint64),
	}
}

func (r *Requester) counterFor(unitID uint16) *uint64 {
	c, ok := r.seq[unitID]
	if !ok {
		c = new(uint64)
		r.seq[unitID] = c
	}
	return c
}

// Request issues a FindPath call for unitID and returns a result channel.
// The channel receives exactly one Result; if a newer Request for the same
// unitID is issued before this one resolves, this call's result is marked
// stale instead of being delivered as if current.
func (r *Requester) Request(ctx context.Context, unitID uint16, fromX, fromY, toX, toY float64) <-chan Result {
	counter := r.counterFor(unitID)
	mySeq := atomic.AddUint64(counter, 1)

	out := make(chan Result, 1)
	go func() {
		path, err := r.oracle.FindPath(ctx, fromX, fromY, toX, toY)
		stale := atomic.LoadUint64(counter) != mySeq
		out <- Result{Path: path, Err: err, Stale: stale}
		close(out)
	}()
	return out
}

// Result is the outcome of a Request: a resolved path (possibly nil, for
// "no path found"), an error, and whether a newer request superseded this
// one before it resolved.
type Result struct {
	Path  []Point
	Err   error
	Stale bool
}

// StartGroup begins a batch of related requests, if the underlying oracle
// supports it (see Grouper); otherwise it is a no-op.
func (r *Requester) StartGroup(baseCost float64, cellSpread, maxWorkers int) {
	if g, ok := r.oracle.(Grouper); ok {
		g.StartGroup(baseCost, cellSpread, maxWorkers)
	}
}

// EndGroup closes a batch started with StartGroup, if supported.
func (r *Requester) EndGroup() {
	if g, ok := r.oracle.(Grouper); ok {
		g.EndGroup()
	}
}
