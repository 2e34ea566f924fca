package omok

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceRejectsOccupiedAndOutOfBounds(t *testing.T) {
	var b Board
	require.NoError(t, b.Place(7, 7, Black))
	assert.ErrorIs(t, b.Place(7, 7, White), ErrCellOccupied)
	assert.Equal(t, Black, b.At(7, 7), "failed place must not overwrite")

	for _, rc := range [][2]int{{-1, 0}, {0, -1}, {BoardSize, 0}, {0, BoardSize}, {99, 99}} {
		assert.ErrorIs(t, b.Place(rc[0], rc[1], Black), ErrOutOfBounds, "(%d,%d)", rc[0], rc[1])
	}
	assert.ErrorIs(t, b.Place(0, 0, Empty), ErrInvalidColor)
	assert.Equal(t, 1, b.Stones())
}

// Every run of five along every axis, placed anywhere it fits, wins when the
// last stone is checked. Each stone of the run is tried as the last one.
func TestCheckFiveAllAxesEverywhere(t *testing.T) {
	for _, d := range axes {
		for r := 0; r < BoardSize; r++ {
			for c := 0; c < BoardSize; c++ {
				endR, endC := r+d[0]*(WinLength-1), c+d[1]*(WinLength-1)
				if !InBounds(endR, endC) {
					continue
				}
				for last := 0; last < WinLength; last++ {
					var b Board
					for i := 0; i < WinLength; i++ {
						require.NoError(t, b.Place(r+d[0]*i, c+d[1]*i, White))
					}
					lr, lc := r+d[0]*last, c+d[1]*last
					if !b.CheckFive(lr, lc, White) {
						t.Fatalf("axis %v start (%d,%d) last %d: expected win", d, r, c, last)
					}
				}
			}
		}
	}
}

func TestCheckFiveCappedFourIsNotWin(t *testing.T) {
	for _, d := range axes {
		var b Board
		r0, c0 := 5, 5
		if d[1] < 0 {
			c0 = 9
		}
		// W B B B B W along the axis.
		require.NoError(t, b.Place(r0, c0, White))
		for i := 1; i <= 4; i++ {
			require.NoError(t, b.Place(r0+d[0]*i, c0+d[1]*i, Black))
		}
		require.NoError(t, b.Place(r0+d[0]*5, c0+d[1]*5, White))
		for i := 1; i <= 4; i++ {
			assert.False(t, b.CheckFive(r0+d[0]*i, c0+d[1]*i, Black), "axis %v stone %d", d, i)
		}
	}
}

func TestCheckFiveLongerRunAndEdges(t *testing.T) {
	var b Board
	for c := 0; c < 6; c++ {
		require.NoError(t, b.Place(0, c, Black))
	}
	assert.True(t, b.CheckFive(0, 5, Black), "overline counts")
	assert.True(t, b.CheckFive(0, 0, Black))

	var corner Board
	for i := 0; i < 4; i++ {
		require.NoError(t, corner.Place(BoardSize-1-i, i, Black))
	}
	assert.False(t, corner.CheckFive(BoardSize-1, 0, Black), "four against the edge")
	require.NoError(t, corner.Place(BoardSize-5, 4, Black))
	assert.True(t, corner.CheckFive(BoardSize-1, 0, Black))
}

func TestCheckFiveWrongColor(t *testing.T) {
	var b Board
	for c := 3; c < 8; c++ {
		require.NoError(t, b.Place(2, c, Black))
	}
	assert.False(t, b.CheckFive(2, 5, White))
	assert.False(t, b.CheckFive(3, 5, Black), "empty cell")
}

func TestBoardFullAndReset(t *testing.T) {
	var b Board
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			color := Black
			if (r+c)%2 == 1 {
				color = White
			}
			require.NoError(t, b.Place(r, c, color))
		}
	}
	assert.True(t, b.Full())
	b.Reset()
	assert.False(t, b.Full())
	assert.Equal(t, 0, b.Stones())
	assert.Equal(t, Empty, b.At(3, 3))
}
