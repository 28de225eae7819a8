package collision

import "math"

// Owner is the opaque per-platform token the grid stores; callers pass the
// same value (typically a *sim.Platform, compared by identity) to Add and
// Remove. The grid never dereferences it.
type Owner any

// Grid is a uniform spatial hash sized by CELL=2000px (per spec.md §3),
// directly grounded on internal/game/spatial/grid.go's SpatialGrid: same
// row-major cell layout and cell-index arithmetic, generalised from a
// per-frame Clear()+Insert() grid into a persistent grid whose members are
// added/removed as platforms move (spec.md §4.4).
type Grid struct {
	cellSize    float64
	invCellSize float64
	cols, rows  int
	cells       [][]Owner
}

// NewGrid builds a grid covering [0,worldWidth) x [0,worldHeight) with the
// given cell size.
func NewGrid(worldWidth, worldHeight, cellSize float64) *Grid {
	cols := int(math.Ceil(worldWidth / cellSize))
	rows := int(math.Ceil(worldHeight / cellSize))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	cells := make([][]Owner, cols*rows)
	return &Grid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
	}
}

// PositionToCell returns the (col,row) cell coordinates containing (x,y),
// clamped to the grid bounds.
func (g *Grid) PositionToCell(x, y float64) (col, row int) {
	col = int(math.Floor(x * g.invCellSize))
	row = int(math.Floor(y * g.invCellSize))
	return g.clampCol(col), g.clampRow(row)
}

func (g *Grid) clampCol(col int) int {
	if col < 0 {
		return 0
	}
	if col >= g.cols {
		return g.cols - 1
	}
	return col
}

func (g *Grid) clampRow(row int) int {
	if row < 0 {
		return 0
	}
	if row >= g.rows {
		return g.rows - 1
	}
	return row
}

// cellRange converts a world rect to an inclusive, clamped (colL,rowT,colR,rowB) range.
func (g *Grid) cellRange(left, top, right, bottom float64) (colL, rowT, colR, rowB int) {
	colL, rowT = g.PositionToCell(left, top)
	colR, rowB = g.PositionToCell(right, bottom)
	return
}

// Add registers owner in every cell intersecting the inclusive rect
// [left,top]..[right,bottom].
func (g *Grid) Add(owner Owner, left, top, right, bottom float64) {
	colL, rowT, colR, rowB := g.cellRange(left, top, right, bottom)
	for row := rowT; row <= rowB; row++ {
		for col := colL; col <= colR; col++ {
			idx := row*g.cols + col
			g.cells[idx] = append(g.cells[idx], owner)
		}
	}
}

// Remove removes one instance of owner from every cell intersecting the
// inclusive rect. Matches Add's rect exactly, or it will silently leave
// stale entries — callers must pass back the same rect they added.
func (g *Grid) Remove(owner Owner, left, top, right, bottom float64) {
	colL, rowT, colR, rowB := g.cellRange(left, top, right, bottom)
	for row := rowT; row <= rowB; row++ {
		for col := colL; col <= colR; col++ {
			idx := row*g.cols + col
			g.cells[idx] = removeOne(g.cells[idx], owner)
		}
	}
}

func removeOne(s []Owner, owner Owner) []Owner {
	for i, o := range s {
		if o == owner {
			last := len(s) - 1
			s[i] = s[last]
			return s[:last]
		}
	}
	return s
}

// ForEachItemInArea iterates every owner in every cell overlapping
// [left,top]..[right,bottom], invoking cb for each. Iteration stops early
// when cb returns true. The same owner may be visited more than once if it
// spans multiple cells in the query range — callers must tolerate
// duplicates, per spec.md §4.4.
func (g *Grid) ForEachItemInArea(left, top, right, bottom float64, cb func(Owner) bool) {
	colL, rowT, colR, rowB := g.cellRange(left, top, right, bottom)
	for row := rowT; row <= rowB; row++ {
		for col := colL; col <= colR; col++ {
			idx := row*g.cols + col
			for _, owner := range g.cells[idx] {
				if cb(owner) {
					return
				}
			}
		}
	}
}

// Dimensions returns the grid's column/row counts and cell size.
func (g *Grid) Dimensions() (cols, rows int, cellSize float64) {
	return g.cols, g.rows, g.cellSize
}

// CellMembers returns the owners currently occupying exactly one cell —
// used by tests and diagnostics; not used on the hot path.
func (g *Grid) CellMembers(col, row int) []Owner {
	if col < 0 || col >= g.cols || row < 0 || row >= g.rows {
		return nil
	}
	return g.cells[row*g.cols+col]
}
