// Package painmap holds the anatomical pain-point model: immutable point
// reducers, the interactive Store that wraps them, and region hit-testing
// for the rotatable body diagram.
package painmap

import (
	"math"

	"github.com/biomech-visualizer/backend/internal/geometry"
	"github.com/biomech-visualizer/backend/internal/models"
)

// VisibilityLimit is the angular distance (degrees) from the current view
// beyond which a point is hidden.
const VisibilityLimit = 85.0

// NewPoint builds a point with default intensity and type. Coordinates
// are clamped to the [0,100] surface.
func NewPoint(id, region string, x, y, viewAngle float64) models.PainPoint {
	return models.PainPoint{
		ID:          id,
		X:           geometry.Clamp(x, 0, 100),
		Y:           geometry.Clamp(y, 0, 100),
		Angle:       geometry.NormalizeAngle(viewAngle),
		Intensity:   models.DefaultIntensity,
		Type:        models.DefaultPainType,
		MuscleGroup: region,
		Agravantes:  []string{},
		Aliviantes:  []string{},
	}
}

// AddPoint returns a new snapshot with p appended.
func AddPoint(points []models.PainPoint, p models.PainPoint) []models.PainPoint {
	next := make([]models.PainPoint, len(points), len(points)+1)
	copy(next, points)
	return append(next, p.Clone())
}

// UpdatePoint merges patch into the point with id. Intensity and
// coordinates are clamped; an unknown pain type keeps the previous one.
// The input is returned unchanged when id is not present.
func UpdatePoint(points []models.PainPoint, id string, patch models.PointPatch) []models.PainPoint {
	idx := indexOf(points, id)
	if idx < 0 {
		return points
	}
	p := points[idx].Clone()
	if patch.X != nil {
		p.X = geometry.Clamp(*patch.X, 0, 100)
	}
	if patch.Y != nil {
		p.Y = geometry.Clamp(*patch.Y, 0, 100)
	}
	if patch.Intensity != nil {
		p.Intensity = clampIntensity(*patch.Intensity)
	}
	if patch.Type != nil && models.ValidPainTypes[*patch.Type] {
		p.Type = *patch.Type
	}
	if patch.MuscleGroup != nil {
		p.MuscleGroup = *patch.MuscleGroup
	}
	if patch.Notes != nil {
		p.Notes = *patch.Notes
	}
	if patch.Agravantes != nil {
		p.Agravantes = append([]string{}, (*patch.Agravantes)...)
	}
	if patch.Aliviantes != nil {
		p.Aliviantes = append([]string{}, (*patch.Aliviantes)...)
	}
	return replaceAt(points, idx, p)
}

// MovePoint sets the coordinates of id, clamped to [0,100].
func MovePoint(points []models.PainPoint, id string, x, y float64) []models.PainPoint {
	idx := indexOf(points, id)
	if idx < 0 {
		return points
	}
	p := points[idx].Clone()
	p.X = geometry.Clamp(x, 0, 100)
	p.Y = geometry.Clamp(y, 0, 100)
	return replaceAt(points, idx, p)
}

// RemovePoint returns a snapshot without id.
func RemovePoint(points []models.PainPoint, id string) []models.PainPoint {
	idx := indexOf(points, id)
	if idx < 0 {
		return points
	}
	next := make([]models.PainPoint, 0, len(points)-1)
	next = append(next, points[:idx]...)
	return append(next, points[idx+1:]...)
}

// ClearPoints returns an empty snapshot.
func ClearPoints() []models.PainPoint {
	return []models.PainPoint{}
}

// IsVisible reports whether p faces a viewer rotated to viewAngle.
func IsVisible(p models.PainPoint, viewAngle float64) bool {
	return geometry.CircularDiff(p.Angle, viewAngle) < VisibilityLimit
}

// FilterVisible returns the points visible at viewAngle, in order.
func FilterVisible(points []models.PainPoint, viewAngle float64) []models.PainPoint {
	out := make([]models.PainPoint, 0, len(points))
	for _, p := range points {
		if IsVisible(p, viewAngle) {
			out = append(out, p.Clone())
		}
	}
	return out
}

// ComputeStats summarizes points. The average is rounded to one decimal.
func ComputeStats(points []models.PainPoint) models.PainStats {
	if len(points) == 0 {
		return models.PainStats{}
	}
	sum, peak := 0, 0
	for _, p := range points {
		sum += p.Intensity
		if p.Intensity > peak {
			peak = p.Intensity
		}
	}
	avg := float64(sum) / float64(len(points))
	return models.PainStats{
		Count:            len(points),
		AverageIntensity: math.Round(avg*10) / 10,
		MaxIntensity:     peak,
	}
}

func clampIntensity(v int) int {
	if v < models.MinIntensity {
		return models.MinIntensity
	}
	if v > models.MaxIntensity {
		return models.MaxIntensity
	}
	return v
}

func indexOf(points []models.PainPoint, id string) int {
	for i := range points {
		if points[i].ID == id {
			return i
		}
	}
	return -1
}

func replaceAt(points []models.PainPoint, idx int, p models.PainPoint) []models.PainPoint {
	next := make([]models.PainPoint, len(points))
	copy(next, points)
	next[idx] = p
	return next
}
