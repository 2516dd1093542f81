package physics

import (
	"math"

	"github.com/tomz197/balls/internal/particle"
)

// cellSlack widens cells slightly so rounding in posToCell can never push two
// touching particles more than one cell apart.
const cellSlack = 1 + 1e-6

// minGridCells is the cell budget for small populations.
const minGridCells = 64

// Grid is a uniform grid broad phase. Particles are inserted by center, then
// pairs are found in the 3x3 neighborhood of each cell.
//
// Cell size is at least the largest diameter so every overlapping pair lies in
// neighboring cells. The grid spans the particles' current extents and does not
// wrap: the overlap test is not toroidal either.
type Grid struct {
	cellSize    float64
	invCellSize float64 // 1 / cellSize (precomputed to avoid division)
	minX, minY  float64
	cols        int
	rows        int
	cells       []gridCell

	prepared bool
}

// gridCell stores the slot indices of particles whose center falls within a cell.
// The slice is reused between ticks (reset to [:0]) to avoid allocations.
type gridCell struct {
	items []int
}

func (*Grid) Kind() Kind { return KindGrid }

// Prepare sizes the grid to the live particles and inserts them.
func (g *Grid) Prepare(s *particle.Store) {
	g.prepared = true

	var minX, minY, maxX, maxY, maxR float64
	first := true
	for i, n := 0, s.Slots(); i < n; i++ {
		if !s.Alive(i) {
			continue
		}
		p := s.At(i)
		if first {
			minX, maxX, minY, maxY = p.Pos.X, p.Pos.X, p.Pos.Y, p.Pos.Y
			first = false
		}
		minX = math.Min(minX, p.Pos.X)
		maxX = math.Max(maxX, p.Pos.X)
		minY = math.Min(minY, p.Pos.Y)
		maxY = math.Max(maxY, p.Pos.Y)
		maxR = math.Max(maxR, p.Radius)
	}
	if first {
		g.resize(0, 0)
		return
	}

	budget := max(minGridCells, 4*s.Live())
	cell := 2 * maxR * cellSlack
	cols, rows := span(maxX-minX, cell, budget), span(maxY-minY, cell, budget)
	for cols*rows > budget {
		cell *= 2
		if math.IsInf(cell, 1) {
			// Extents beyond float range: one cell holding everything
			cols, rows = 1, 1
			break
		}
		cols, rows = span(maxX-minX, cell, budget), span(maxY-minY, cell, budget)
	}

	g.cellSize = cell
	g.invCellSize = 1 / cell
	g.minX, g.minY = minX, minY
	g.resize(cols, rows)

	for i, n := 0, s.Slots(); i < n; i++ {
		if s.Alive(i) {
			p := s.At(i)
			g.insert(p.Pos.X, p.Pos.Y, i)
		}
	}
}

// Detect reports every overlapping pair once, visiting cells in row-major order.
// If Prepare was not called since the last Detect the grid is rebuilt first.
func (g *Grid) Detect(s *particle.Store, fn PairFunc) {
	if !g.prepared {
		g.Prepare(s)
	}
	g.prepared = false

	for row := 0; row < g.rows; row++ {
		for col := 0; col < g.cols; col++ {
			for _, i := range g.cells[row*g.cols+col].items {
				g.queryAround(col, row, func(j int) {
					if j <= i {
						return
					}
					p1, p2 := s.At(i), s.At(j)
					if CirclesOverlap(p1.Pos, p1.Radius, p2.Pos, p2.Radius) {
						fn(i, j)
					}
				})
			}
		}
	}
}

// queryAround calls fn for each item in the 3x3 neighborhood of a cell.
func (g *Grid) queryAround(col, row int, fn func(index int)) {
	for r := max(row-1, 0); r <= min(row+1, g.rows-1); r++ {
		rowOffset := r * g.cols
		for c := max(col-1, 0); c <= min(col+1, g.cols-1); c++ {
			for _, idx := range g.cells[rowOffset+c].items {
				fn(idx)
			}
		}
	}
}

// resize sets the grid dimensions and empties every cell, keeping cell memory.
func (g *Grid) resize(cols, rows int) {
	n := cols * rows
	if cap(g.cells) < n {
		g.cells = append(g.cells[:cap(g.cells)], make([]gridCell, n-cap(g.cells))...)
	}
	g.cells = g.cells[:n]
	for i := range g.cells {
		g.cells[i].items = g.cells[i].items[:0]
	}
	g.cols, g.rows = cols, rows
}

func (g *Grid) insert(x, y float64, index int) {
	col, row := g.posToCell(x, y)
	idx := row*g.cols + col
	g.cells[idx].items = append(g.cells[idx].items, index)
}

// posToCell converts world coordinates to grid cell coordinates.
// Clamps in float space so far or non-finite offsets still land in range.
func (g *Grid) posToCell(x, y float64) (col, row int) {
	return clampCell((x-g.minX)*g.invCellSize, g.cols), clampCell((y-g.minY)*g.invCellSize, g.rows)
}

func clampCell(f float64, n int) int {
	if !(f > 0) {
		return 0
	}
	if f >= float64(n) {
		return n - 1
	}
	return int(f)
}

// span returns the number of cells needed to cover extent, capped at
// limit+1 so the product of two spans cannot overflow.
func span(extent, cell float64, limit int) int {
	n := math.Floor(extent/cell) + 1
	if !(n <= float64(limit)) {
		return limit + 1
	}
	return int(n)
}
