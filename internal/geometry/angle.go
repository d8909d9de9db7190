package geometry

import (
	"math"

	"github.com/biomech-visualizer/backend/internal/models"
)

// JointAngle returns the interior angle at vertex p2 formed by rays to p1
// and p3, in degrees within [0,180]. Coincident points yield 0.
func JointAngle(p1, p2, p3 models.Point) float64 {
	a := math.Atan2(p3.Y-p2.Y, p3.X-p2.X)
	b := math.Atan2(p1.Y-p2.Y, p1.X-p2.X)
	raw := math.Abs(a-b) * 180 / math.Pi
	if raw > 180 {
		return 360 - raw
	}
	return raw
}

// CircularDiff returns the shortest angular distance between two headings.
func CircularDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	return math.Min(d, 360-d)
}
