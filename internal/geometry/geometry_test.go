package geometry

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampRect(t *testing.T) {
	vp := Size{Width: 1000, Height: 800}
	tests := []struct {
		name string
		in   Rect
		want Rect
	}{
		{
			name: "already inside",
			in:   Rect{X: 100, Y: 100, Width: 300, Height: 200},
			want: Rect{X: 100, Y: 100, Width: 300, Height: 200},
		},
		{
			name: "left of margin",
			in:   Rect{X: -50, Y: 100, Width: 300, Height: 200},
			want: Rect{X: 16, Y: 100, Width: 300, Height: 200},
		},
		{
			name: "past bottom right",
			in:   Rect{X: 900, Y: 700, Width: 300, Height: 200},
			want: Rect{X: 684, Y: 584, Width: 300, Height: 200},
		},
		{
			name: "wider than viewport",
			in:   Rect{X: 0, Y: 0, Width: 5000, Height: 5000},
			want: Rect{X: 16, Y: 16, Width: 968, Height: 768},
		},
		{
			name: "negative size",
			in:   Rect{X: 200, Y: 200, Width: -10, Height: -10},
			want: Rect{X: 200, Y: 200, Width: 0, Height: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampRect(tt.in, vp, 16))
		})
	}
}

func TestClampRectDegenerateViewport(t *testing.T) {
	got := ClampRect(Rect{X: 40, Y: 40, Width: 320, Height: 240}, Size{Width: 20, Height: 10}, 16)
	assert.Equal(t, Rect{X: 16, Y: 16, Width: 0, Height: 0}, got)
}

func TestClampRectIdempotent(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 5000; i++ {
		rect := Rect{
			X:      r.Float64()*4000 - 2000,
			Y:      r.Float64()*4000 - 2000,
			Width:  r.Float64()*3000 - 100,
			Height: r.Float64()*3000 - 100,
		}
		vp := Size{Width: r.Float64() * 2500, Height: r.Float64() * 2500}
		margin := r.Float64() * 40

		once := ClampRect(rect, vp, margin)
		twice := ClampRect(once, vp, margin)
		if once != twice {
			t.Fatalf("not idempotent for %+v in %+v (m=%v): %+v then %+v", rect, vp, margin, once, twice)
		}
	}
}

func TestResolveAnchoredResizeKeepsRightEdge(t *testing.T) {
	const minW, maxW = 320.0, 1600.0
	for startW := minW; startW <= maxW; startW += 37 {
		startX := 250.0
		right := startX + startW
		for d := -1000.0; d <= 1000; d += 7.5 {
			res := ResolveAnchoredResize(EdgeStart, startW, d, minW, maxW)
			newRight := startX + res.PositionDelta + res.Size
			if math.Abs(newRight-right) >= 1 {
				t.Fatalf("right edge moved: w=%v d=%v got %v want %v", startW, d, newRight, right)
			}
			if res.Size < minW || res.Size > maxW {
				t.Fatalf("size %v outside [%v, %v]", res.Size, minW, maxW)
			}
		}
	}
}

func TestResolveAnchoredResize(t *testing.T) {
	tests := []struct {
		name  string
		edge  Edge
		start float64
		delta float64
		min   float64
		max   float64
		want  AnchoredResize
	}{
		{"start edge grows leftwards", EdgeStart, 400, -100, 320, 1000, AnchoredResize{Size: 500, PositionDelta: -100}},
		{"start edge shrinks to floor", EdgeStart, 400, 300, 320, 1000, AnchoredResize{Size: 320, PositionDelta: 80}},
		{"start edge capped at max", EdgeStart, 900, -500, 320, 1000, AnchoredResize{Size: 1000, PositionDelta: -100}},
		{"end edge grows", EdgeEnd, 400, 50, 320, 1000, AnchoredResize{Size: 450}},
		{"end edge floor", EdgeEnd, 400, -200, 320, 1000, AnchoredResize{Size: 320}},
		{"floor beats max", EdgeEnd, 400, 0, 320, 100, AnchoredResize{Size: 320}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveAnchoredResize(tt.edge, tt.start, tt.delta, tt.min, tt.max))
		})
	}
}

func TestResolveNamedPlacement(t *testing.T) {
	vp := Size{Width: 1000, Height: 800}
	win := Size{Width: 400, Height: 300}
	last := Point{X: 900, Y: -20}
	cursor := Point{X: 100, Y: 100}
	farCursor := Point{X: 900, Y: 700}

	tests := []struct {
		name   string
		place  Placement
		cursor *Point
		last   *Point
		want   Point
	}{
		{"center", PlaceCenter, nil, nil, Point{X: 300, Y: 250}},
		{"left", PlaceLeft, nil, nil, Point{X: 16, Y: 250}},
		{"right", PlaceRight, nil, nil, Point{X: 584, Y: 250}},
		{"top right", PlaceTopRight, nil, nil, Point{X: 584, Y: 16}},
		{"bottom left", PlaceBottomLeft, nil, nil, Point{X: 16, Y: 484}},
		{"last clamped into viewport", PlaceLast, nil, &last, Point{X: 584, Y: 16}},
		{"last without memory centers", PlaceLast, nil, nil, Point{X: 300, Y: 250}},
		{"follow offsets from cursor", PlaceFollow, &cursor, nil, Point{X: 120, Y: 120}},
		{"follow flips near far edge", PlaceFollow, &farCursor, nil, Point{X: 480, Y: 380}},
		{"follow without cursor centers", PlaceFollow, nil, nil, Point{X: 300, Y: 250}},
		{"unknown name centers", Placement("sideways"), nil, nil, Point{X: 300, Y: 250}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveNamedPlacement(tt.place, vp, win, 16, tt.cursor, tt.last))
		})
	}
}

func TestResolveNamedPlacementStaysInside(t *testing.T) {
	vp := Size{Width: 640, Height: 480}
	win := Size{Width: 320, Height: 240}
	for _, name := range []Placement{PlaceCenter, PlaceLeft, PlaceRight, PlaceFollow, PlaceTopLeft, PlaceBottomRight} {
		for x := -100.0; x < 800; x += 50 {
			c := Point{X: x, Y: x / 2}
			p := ResolveNamedPlacement(name, vp, win, 16, &c, nil)
			r := RectFrom(p, win)
			assert.GreaterOrEqual(t, r.X, 16.0, name)
			assert.LessOrEqual(t, r.Right(), vp.Width-16, name)
			assert.GreaterOrEqual(t, r.Y, 16.0, name)
			assert.LessOrEqual(t, r.Bottom(), vp.Height-16, name)
		}
	}
}
