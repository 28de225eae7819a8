package collision

// Box tracks one platform's membership in a Grid, diffing the platform's
// current world AABB against the cell rectangle it last occupied so the
// grid is only touched (remove + add) when the occupied cell range actually
// changes — per spec.md §4.4.
type Box struct {
	grid  *Grid
	owner Owner

	haveRect              bool
	left, top, right, bot float64
}

// NewBox creates a collision box bound to grid, reporting membership under
// owner's identity.
func NewBox(grid *Grid, owner Owner) *Box {
	return &Box{grid: grid, owner: owner}
}

// Update is called whenever the owner's world AABB changes. It converts both
// the previous and new rect to cell coordinates and only issues a
// Remove/Add pair to the grid if the covered cell range actually differs —
// CollisionBox.Update with the same rect is a documented no-op on the grid.
func (b *Box) Update(left, top, right, bottom float64) {
	if b.haveRect && b.sameCellRange(left, top, right, bottom) {
		b.left, b.top, b.right, b.bot = left, top, right, bottom
		return
	}

	if b.haveRect {
		b.grid.Remove(b.owner, b.left, b.top, b.right, b.bot)
	}
	b.grid.Add(b.owner, left, top, right, bottom)
	b.left, b.top, b.right, b.bot = left, top, right, bottom
	b.haveRect = true
}

// sameCellRange reports whether rect occupies the same cell range as the
// box's currently stored rect.
func (b *Box) sameCellRange(left, top, right, bottom float64) bool {
	oldL, oldT, oldR, oldB := b.grid.cellRange(b.left, b.top, b.right, b.bot)
	newL, newT, newR, newB := b.grid.cellRange(left, top, right, bottom)
	return oldL == newL && oldT == newT && oldR == newR && oldB == newB
}

// Release removes the owner from its last occupied cell range, if any. Safe
// to call more than once.
func (b *Box) Release() {
	if !b.haveRect {
		return
	}
	b.grid.Remove(b.owner, b.left, b.top, b.right, b.bot)
	b.haveRect = false
}
