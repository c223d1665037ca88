package generate

import (
	"math"

	"neuralflow/internal/domain"
)

// CircleLayout places nodes evenly around a circle.
type CircleLayout struct {
	Center domain.Point
	Radius float64
}

// DefaultLayout is centred in the initial viewport.
var DefaultLayout = CircleLayout{
	Center: domain.Point{X: 400, Y: 350},
	Radius: 250,
}

// Position returns the slot of node i out of n.
func (l CircleLayout) Position(i, n int) domain.Point {
	if n <= 0 {
		return l.Center
	}
	angle := float64(i) / float64(n) * 2 * math.Pi
	return domain.Point{
		X: l.Center.X + math.Cos(angle)*l.Radius,
		Y: l.Center.Y + math.Sin(angle)*l.Radius,
	}
}
