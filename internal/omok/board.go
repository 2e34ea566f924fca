package omok

// axes are the four line orientations: horizontal, vertical, diagonal ↘, diagonal ↙.
var axes = [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}

// Board is a BoardSize×BoardSize grid. It is owned by a Match and not safe
// for concurrent use on its own.
type Board struct {
	cells  [BoardSize][BoardSize]Cell
	filled int
}

// InBounds reports whether (row, col) addresses a cell.
func InBounds(row, col int) bool {
	return row >= 0 && row < BoardSize && col >= 0 && col < BoardSize
}

// Place writes color into an empty in-range cell.
func (b *Board) Place(row, col int, color Color) error {
	if color != Black && color != White {
		return ErrInvalidColor
	}
	if !InBounds(row, col) {
		return ErrOutOfBounds
	}
	if b.cells[row][col] != Empty {
		return ErrCellOccupied
	}
	b.cells[row][col] = color
	b.filled++
	return nil
}

// At returns the cell at (row, col); out-of-range reads are Empty.
func (b *Board) At(row, col int) Cell {
	if !InBounds(row, col) {
		return Empty
	}
	return b.cells[row][col]
}

// CheckFive reports whether the stone just placed at (row, col) completes a
// run of at least WinLength stones of color along any axis.
func (b *Board) CheckFive(row, col int, color Color) bool {
	if color == Empty || b.At(row, col) != color {
		return false
	}
	for _, d := range axes {
		count := 1
		count += b.run(row, col, d[0], d[1], color)
		count += b.run(row, col, -d[0], -d[1], color)
		if count >= WinLength {
			return true
		}
	}
	return false
}

// run counts consecutive cells of color starting next to (row, col) in direction (dr, dc).
func (b *Board) run(row, col, dr, dc int, color Color) int {
	n := 0
	r, c := row+dr, col+dc
	for InBounds(r, c) && b.cells[r][c] == color {
		n++
		r += dr
		c += dc
	}
	return n
}

// Full reports whether every cell is occupied.
func (b *Board) Full() bool { return b.filled == BoardSize*BoardSize }

// Stones returns the number of occupied cells.
func (b *Board) Stones() int { return b.filled }

// Cells returns a copy of the grid.
func (b *Board) Cells() [BoardSize][BoardSize]Cell { return b.cells }

// Reset empties every cell.
func (b *Board) Reset() {
	b.cells = [BoardSize][BoardSize]Cell{}
	b.filled = 0
}
