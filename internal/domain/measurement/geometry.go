package measurement

import (
	"math"

	"github.com/okian/fitmeasure/internal/domain/model"
)

// PixelDistance denormalizes a and b to pixel space and returns the
// Euclidean distance between them. Every distance in this package goes
// through it.
func PixelDistance(a, b model.Landmark, size model.ImageSize) float64 {
	dx := (b.X - a.X) * float64(size.Width)
	dy := (b.Y - a.Y) * float64(size.Height)
	return math.Sqrt(dx*dx + dy*dy)
}

// verticalDistance is the pixel distance between the rows of a and b.
func verticalDistance(a, b model.Landmark, size model.ImageSize) float64 {
	return PixelDistance(a, model.Landmark{X: a.X, Y: b.Y}, size)
}

func meanVisibility(points ...model.Landmark) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		sum += p.Visibility
	}
	return sum / float64(len(points))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
