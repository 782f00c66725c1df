package app

import (
	"math"

	"github.com/Gaurav-Gosain/linkpeek/internal/geometry"
	"github.com/Gaurav-Gosain/linkpeek/internal/interaction"
)

// CellRect is a window rectangle snapped to whole cells.
type CellRect struct {
	X, Y, W, H int
}

// Cells rounds r to the grid the window is drawn on.
func Cells(r geometry.Rect) CellRect {
	x := int(math.Round(r.X))
	y := int(math.Round(r.Y))
	return CellRect{
		X: x,
		Y: y,
		W: int(math.Round(r.Right())) - x,
		H: int(math.Round(r.Bottom())) - y,
	}
}

// Contains reports whether the cell is inside the rectangle.
func (c CellRect) Contains(x, y int) bool {
	return x >= c.X && x < c.X+c.W && y >= c.Y && y < c.Y+c.H
}

// CellPoint is the center of a cell in window coordinates.
func CellPoint(x, y int) geometry.Point {
	return geometry.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5}
}

// Hit is the part of a window under a cell.
type Hit int

const (
	HitNone Hit = iota
	HitContent
	HitTitle
	HitClose
	HitPin
	HitRefresh
	HitOpenTab
	HitLeft
	HitRight
	HitBottom
	HitBottomLeft
	HitBottomRight
)

// Kind returns the drag or resize a hit starts, if any.
func (h Hit) Kind() (interaction.Kind, bool) {
	switch h {
	case HitTitle:
		return interaction.Move, true
	case HitLeft:
		return interaction.ResizeEdgeLeft, true
	case HitRight:
		return interaction.ResizeEdgeRight, true
	case HitBottom:
		return interaction.ResizeHeight, true
	case HitBottomLeft:
		return interaction.ResizeCornerLeft, true
	case HitBottomRight:
		return interaction.ResizeCornerRight, true
	}
	return 0, false
}

// IsButton reports whether h is one of the title bar buttons.
func (h Hit) IsButton() bool {
	return h == HitClose || h == HitPin || h == HitRefresh || h == HitOpenTab
}

// titleButtons are drawn right-aligned on the top border. off is the
// distance of the glyph from the window's right edge.
var titleButtons = []struct {
	hit Hit
	off int
}{
	{HitPin, 9},
	{HitRefresh, 7},
	{HitOpenTab, 5},
	{HitClose, 3},
}

// buttonsWidth is the span of the button strip, including its padding.
const buttonsWidth = 9

// HitTest locates the cell (x, y) on a window drawn at r.
func HitTest(r CellRect, x, y int) Hit {
	if !r.Contains(x, y) {
		return HitNone
	}
	lx, ly := x-r.X, y-r.Y
	right, bottom := r.W-1, r.H-1
	switch {
	case ly == bottom && lx == 0:
		return HitBottomLeft
	case ly == bottom && lx == right:
		return HitBottomRight
	case ly == bottom:
		return HitBottom
	case ly == 0:
		for _, b := range titleButtons {
			if g := r.W - b.off; lx == g || lx == g+1 {
				return b.hit
			}
		}
		return HitTitle
	case lx == 0:
		return HitLeft
	case lx == right:
		return HitRight
	}
	return HitContent
}
