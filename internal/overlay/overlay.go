package overlay

import (
	"fmt"
	"image/color"
	"math"

	"github.com/biomech-visualizer/backend/internal/geometry"
	"github.com/biomech-visualizer/backend/internal/models"
)

// Config controls what the overlay draws.
type Config struct {
	// VisibilityThreshold is the exclusive lower bound a landmark's
	// visibility must exceed to be drawn. Missing visibility counts as 1.
	VisibilityThreshold float64
	// Joints is the (proximal, vertex, distal) landmark triple of the metric.
	Joints [3]int
	// AngleThreshold splits the label color: below is Low, at or above is High.
	AngleThreshold float64

	BoneColor  color.RGBA
	JointColor color.RGBA
	LowColor   color.RGBA
	HighColor  color.RGBA
	BoneWidth  float64
	JointSize  float64
}

// DefaultConfig measures the left knee between hip and ankle.
func DefaultConfig() Config {
	return Config{
		VisibilityThreshold: 0.5,
		Joints:              [3]int{LeftHip, LeftKnee, LeftAnkle},
		AngleThreshold:      90,
		BoneColor:           color.RGBA{R: 0x00, G: 0xff, B: 0x00, A: 0xff},
		JointColor:          color.RGBA{R: 0xff, G: 0x00, B: 0x00, A: 0xff},
		LowColor:            color.RGBA{R: 0xff, G: 0x00, B: 0x00, A: 0xff},
		HighColor:           color.RGBA{R: 0x00, G: 0xff, B: 0x00, A: 0xff},
		BoneWidth:           4,
		JointSize:           4,
	}
}

// FrameMetrics reports what one Draw produced.
type FrameMetrics struct {
	Angle  float64 `json:"angle" msgpack:"angle"`
	Drawn  bool    `json:"drawn" msgpack:"drawn"` // angle label rendered
	Bones  int     `json:"bones" msgpack:"bones"`
	Joints int     `json:"joints" msgpack:"joints"`
}

// Overlay draws landmark frames. It keeps no per-frame state, so Draw may
// be called any number of times per display refresh.
type Overlay struct {
	cfg Config
}

// New creates an overlay with cfg.
func New(cfg Config) *Overlay {
	return &Overlay{cfg: cfg}
}

// Config returns the overlay configuration.
func (o *Overlay) Config() Config { return o.cfg }

// maxLandmarkExtent bounds normalized landmark coordinates. Estimators
// report points slightly outside the frame; anything further is noise.
const maxLandmarkExtent = 100

// Eligible reports whether l passes the confidence gate and has usable
// coordinates.
func (o *Overlay) Eligible(l models.Landmark) bool {
	if !geometry.Finite(l.X, l.Y) || math.Abs(l.X) > maxLandmarkExtent || math.Abs(l.Y) > maxLandmarkExtent {
		return false
	}
	v := 1.0
	if l.Visibility != nil {
		v = *l.Visibility
	}
	return v > o.cfg.VisibilityThreshold
}

// Draw resizes c to the frame's intrinsic size, which clears it, then
// draws bones, joints and the joint-angle label.
func (o *Overlay) Draw(c Canvas, results models.FrameResults) FrameMetrics {
	var m FrameMetrics
	c.Resize(results.Width, results.Height)
	w, h := c.Size()
	if w <= 0 || h <= 0 || len(results.Landmarks) == 0 {
		return m
	}
	lm := results.Landmarks
	fw, fh := float64(w), float64(h)

	ok := func(i int) bool {
		return i >= 0 && i < len(lm) && o.Eligible(lm[i])
	}

	for _, conn := range PoseConnections {
		a, b := conn[0], conn[1]
		if !ok(a) || !ok(b) {
			continue
		}
		c.Line(lm[a].X*fw, lm[a].Y*fh, lm[b].X*fw, lm[b].Y*fh, o.cfg.BoneColor, o.cfg.BoneWidth)
		m.Bones++
	}

	for i := range lm {
		if !ok(i) {
			continue
		}
		c.Dot(lm[i].X*fw, lm[i].Y*fh, o.cfg.JointSize, o.cfg.JointColor)
		m.Joints++
	}

	p, v, d := o.cfg.Joints[0], o.cfg.Joints[1], o.cfg.Joints[2]
	if !ok(p) || !ok(v) || !ok(d) {
		return m
	}
	m.Angle = geometry.JointAngle(
		models.Point{X: lm[p].X, Y: lm[p].Y},
		models.Point{X: lm[v].X, Y: lm[v].Y},
		models.Point{X: lm[d].X, Y: lm[d].Y},
	)
	col := o.cfg.HighColor
	if m.Angle < o.cfg.AngleThreshold {
		col = o.cfg.LowColor
	}
	c.Text(lm[v].X*fw, lm[v].Y*fh, FormatAngle(m.Angle), col)
	m.Drawn = true
	return m
}

// FormatAngle renders the live metric rounded to whole degrees.
func FormatAngle(v float64) string {
	return fmt.Sprintf("%.0f°", v)
}
