package mcpserver

import (
	"math"

	"neuralflow/internal/domain"
	"neuralflow/internal/editor"
)

const (
	NodeWidth  = 200.0 // node card footprint around its centre
	NodeHeight = 100.0
	Padding    = 40.0
	MaxRowW    = 1600.0
)

// LayoutEngine places nodes added by agents without coordinates so they
// don't land on top of existing ones.
type LayoutEngine struct {
	gridSize float64
	padding  float64
	maxRowW  float64
	origin   domain.Point
}

func NewLayoutEngine(gridSize float64) *LayoutEngine {
	if gridSize <= 0 {
		gridSize = editor.DefaultGridSize
	}
	return &LayoutEngine{
		gridSize: gridSize,
		padding:  Padding,
		maxRowW:  MaxRowW,
		origin:   domain.Point{X: NodeWidth / 2, Y: NodeHeight / 2},
	}
}

// snap rounds v to the nearest grid point.
func (le *LayoutEngine) snap(v float64) float64 {
	return math.Round(v/le.gridSize) * le.gridSize
}

// rect is a simple axis-aligned bounding box.
type rect struct {
	x, y, w, h float64
}

func (a rect) intersects(b rect) bool {
	return a.x < b.x+b.w && a.x+a.w > b.x &&
		a.y < b.y+b.h && a.y+a.h > b.y
}

// footprint boxes a node card centred on c.
func footprint(c domain.Point) rect {
	return rect{x: c.X - NodeWidth/2, y: c.Y - NodeHeight/2, w: NodeWidth, h: NodeHeight}
}

// NextPosition finds the first free grid position, scanning rows
// top-to-bottom and columns left-to-right, for a node centre.
func (le *LayoutEngine) NextPosition(existing []domain.Node) domain.Point {
	if len(existing) == 0 {
		return domain.Point{X: le.snap(le.origin.X), Y: le.snap(le.origin.Y)}
	}

	occupied := make([]rect, len(existing))
	for i, n := range existing {
		r := footprint(n.Position())
		occupied[i] = rect{
			x: r.x - le.padding,
			y: r.y - le.padding,
			w: r.w + le.padding*2,
			h: r.h + le.padding*2,
		}
	}

	for y := le.origin.Y; y < 100000; y += le.gridSize {
		for x := le.origin.X; x < le.maxRowW; x += le.gridSize {
			c := domain.Point{X: le.snap(x), Y: le.snap(y)}
			candidate := footprint(c)

			overlaps := false
			for _, occ := range occupied {
				if candidate.intersects(occ) {
					overlaps = true
					break
				}
			}
			if !overlaps {
				return c
			}
		}
	}

	// Fallback: below everything
	maxY := 0.0
	for _, n := range existing {
		maxY = math.Max(maxY, n.Y+NodeHeight/2)
	}
	return domain.Point{X: le.snap(le.origin.X), Y: le.snap(maxY + le.padding + NodeHeight)}
}
