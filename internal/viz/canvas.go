package viz

import (
	"math"
	"strings"

	"github.com/san-kum/pathloop/internal/geom"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set sets a pixel at (x, y) in sub-pixel coordinates. The canvas is
// Width*2 by Height*4 sub-pixels; out of range pixels are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawCross draws a small plus centered on (x, y).
func (c *Canvas) DrawCross(x, y, r int) {
	c.DrawLine(x-r, y, x+r, y)
	c.DrawLine(x, y-r, x, y+r)
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Viewport maps field coordinates in meters onto canvas sub-pixels with a
// uniform scale, +Y up.
type Viewport struct {
	minX, minY float64
	scale      float64
	pxHeight   int
}

// FitViewport frames every point in pts, plus margin meters on each side,
// inside a canvas of w by h cells.
func FitViewport(w, h int, margin float64, pts ...geom.Translation) Viewport {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	if len(pts) == 0 {
		minX, minY, maxX, maxY = 0, 0, 1, 1
	}
	minX, minY = minX-margin, minY-margin
	maxX, maxY = maxX+margin, maxY+margin

	pw, ph := float64(w*2-1), float64(h*4-1)
	spanX := math.Max(maxX-minX, 1e-6)
	spanY := math.Max(maxY-minY, 1e-6)
	scale := math.Min(pw/spanX, ph/spanY)

	// center the shorter axis
	minX -= (pw/scale - spanX) / 2
	minY -= (ph/scale - spanY) / 2
	return Viewport{minX: minX, minY: minY, scale: scale, pxHeight: h * 4}
}

// Project returns the sub-pixel for a field point.
func (v Viewport) Project(p geom.Translation) (int, int) {
	x := int(math.Round((p.X - v.minX) * v.scale))
	y := v.pxHeight - 1 - int(math.Round((p.Y-v.minY)*v.scale))
	return x, y
}

// Scale is sub-pixels per meter.
func (v Viewport) Scale() float64 { return v.scale }
