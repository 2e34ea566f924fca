package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Point is a board intersection.
type Point struct{ Row, Col int }

type Options struct {
	// LastMove is ringed when set.
	LastMove *Point
}

const (
	cellSize = 36
	margin   = 40
	stoneDim = 32
)

var (
	woodColor   = color.RGBA{222, 184, 120, 255}
	lineColor   = color.RGBA{60, 40, 20, 255}
	labelColor  = color.RGBA{70, 50, 30, 255}
	markerColor = color.RGBA{220, 40, 40, 255}
)

// Renderer draws board positions as PNG images.
type Renderer struct {
	stones stoneCache
}

func NewRenderer() *Renderer { return &Renderer{} }

// Size returns the image side length for an n×n board.
func Size(n int) int { return (n-1)*cellSize + 2*margin }

// RenderPNG draws board (row-major, 0 empty, 1 black, 2 white).
func (r *Renderer) RenderPNG(ctx context.Context, board [][]int, opts Options) ([]byte, error) {
	n := len(board)
	if n < 2 {
		return nil, fmt.Errorf("board too small: %d", n)
	}
	for i, row := range board {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), n)
		}
	}

	side := Size(n)
	img := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(img, img.Bounds(), image.NewUniform(woodColor), image.Point{}, draw.Src)
	drawGrid(img, n)
	drawCoordinates(img, n)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			cell := board[row][col]
			if cell == 0 {
				continue
			}
			stone, err := r.stones.get(cell, stoneDim)
			if err != nil {
				return nil, err
			}
			x, y := center(row, col)
			rect := image.Rect(x-stoneDim/2, y-stoneDim/2, x+stoneDim/2, y+stoneDim/2)
			draw.Draw(img, rect, stone, image.Point{}, draw.Over)
		}
	}
	if lm := opts.LastMove; lm != nil && lm.Row >= 0 && lm.Row < n && lm.Col >= 0 && lm.Col < n {
		x, y := center(lm.Row, lm.Col)
		fillRect(img, x-3, y-3, x+3, y+3, markerColor)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func center(row, col int) (int, int) {
	return margin + col*cellSize, margin + row*cellSize
}

func drawGrid(img *image.RGBA, n int) {
	end := margin + (n-1)*cellSize
	for i := 0; i < n; i++ {
		p := margin + i*cellSize
		fillRect(img, margin, p, end+1, p+1, lineColor)
		fillRect(img, p, margin, p+1, end+1, lineColor)
	}
	// star points on the standard 15 board
	if n == 15 {
		for _, rc := range [][2]int{{3, 3}, {3, 11}, {7, 7}, {11, 3}, {11, 11}} {
			x, y := center(rc[0], rc[1])
			fillRect(img, x-2, y-2, x+3, y+3, lineColor)
		}
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	draw.Draw(img, image.Rect(x0, y0, x1, y1), image.NewUniform(c), image.Point{}, draw.Src)
}

// drawCoordinates labels columns A.. along the top and rows 1.. on the left.
func drawCoordinates(img *image.RGBA, n int) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(labelColor), Face: face}
	ascent := face.Metrics().Ascent.Ceil()
	for i := 0; i < n; i++ {
		x, y := center(i, i)
		drawCenteredText(d, string(rune('A'+i)), x, margin/2+ascent/2)
		drawCenteredText(d, strconv.Itoa(i+1), margin/2, y+ascent/2)
	}
}

func drawCenteredText(d *font.Drawer, text string, cx, baseline int) {
	w := d.MeasureString(text).Ceil()
	d.Dot = fixed.P(cx-w/2, baseline)
	d.DrawString(text)
}
