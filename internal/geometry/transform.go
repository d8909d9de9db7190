// Package geometry converts pointer coordinates into the normalized surface
// space shared by the body map and the annotation board, and holds the
// angle math used by the measurement tools and the pose overlay.
package geometry

import (
	"math"

	"github.com/biomech-visualizer/backend/internal/models"
)

// Rect is the client-space bounding rectangle of an interactive surface.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether the rect describes a mounted surface.
func (r Rect) Valid() bool {
	if math.IsNaN(r.Left) || math.IsNaN(r.Top) || math.IsNaN(r.Width) || math.IsNaN(r.Height) {
		return false
	}
	if math.IsInf(r.Width, 0) || math.IsInf(r.Height, 0) {
		return false
	}
	return r.Width > 0 && r.Height > 0
}

// ToNormalized maps client coordinates onto [0,100]² relative to rect.
// The result is not clamped. ok is false when rect is not usable.
func ToNormalized(clientX, clientY float64, rect Rect) (models.Point, bool) {
	if !rect.Valid() {
		return models.Point{}, false
	}
	return models.Point{
		X: (clientX - rect.Left) / rect.Width * 100,
		Y: (clientY - rect.Top) / rect.Height * 100,
	}, true
}

// ToNormalizedClamped is ToNormalized with both axes clamped to [0,100].
// Drag repositioning uses this form.
func ToNormalizedClamped(clientX, clientY float64, rect Rect) (models.Point, bool) {
	p, ok := ToNormalized(clientX, clientY, rect)
	if !ok {
		return p, false
	}
	return models.Point{X: Clamp(p.X, 0, 100), Y: Clamp(p.Y, 0, 100)}, true
}

// Clamp limits v to [lo,hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// Finite reports whether every value is neither NaN nor infinite.
func Finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// InSurface reports whether p lies on the [0,100]² surface, edges included.
func InSurface(p models.Point) bool {
	return Finite(p.X, p.Y) && p.X >= 0 && p.X <= 100 && p.Y >= 0 && p.Y <= 100
}

// Viewport is the zoom/pan/rotation state owned by the host page.
// Zoom scales the surface about its center; Pan translates it in client pixels.
type Viewport struct {
	Zoom     float64 `json:"zoom"`
	PanX     float64 `json:"panX"`
	PanY     float64 `json:"panY"`
	Rotation float64 `json:"rotation"`
}

// Identity returns a viewport that leaves the surface untouched.
func Identity() Viewport {
	return Viewport{Zoom: 1}
}

// Apply returns the bounding rectangle of base after the viewport transform.
// The image and its overlay are transformed as one unit, so this single rect
// is what every pointer conversion on the surface must use.
func (v Viewport) Apply(base Rect) Rect {
	zoom := v.Zoom
	if zoom <= 0 || math.IsNaN(zoom) {
		zoom = 1
	}
	cx := base.Left + base.Width/2
	cy := base.Top + base.Height/2
	w := base.Width * zoom
	h := base.Height * zoom
	return Rect{
		Left:   cx - w/2 + v.PanX,
		Top:    cy - h/2 + v.PanY,
		Width:  w,
		Height: h,
	}
}

// NormalizeAngle maps degrees onto [0,360).
func NormalizeAngle(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	a := math.Mod(deg, 360)
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		a = 0
	}
	return a
}
