package annotation

import (
	"fmt"
	"image/color"

	"github.com/biomech-visualizer/backend/internal/models"
	"github.com/biomech-visualizer/backend/internal/raster"
)

// Label offset from the vertex, in percent of the surface.
const (
	labelOffsetX = 2.0
	labelOffsetY = -2.0
)

var fallbackColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// FormatAngle renders a measured angle the way the board labels it.
func FormatAngle(v float64) string {
	return fmt.Sprintf("%.1f°", v)
}

// Render draws annotations on c. Normalized coordinates are scaled to the
// canvas size, so c must be the same surface the clicks were taken on.
func Render(c *raster.Canvas, annotations []models.Annotation) {
	w, h := c.Size()
	if w == 0 || h == 0 {
		return
	}
	stroke := strokeWidth(w, h)
	toPx := func(p models.Point) (float64, float64) {
		return p.X / 100 * float64(w), p.Y / 100 * float64(h)
	}

	for _, a := range annotations {
		col, err := raster.ParseHex(a.Color)
		if err != nil {
			col = fallbackColor
		}

		switch {
		case a.Type == models.AnnotationLine && len(a.Points) == 2:
			x1, y1 := toPx(a.Points[0])
			x2, y2 := toPx(a.Points[1])
			c.Line(x1, y1, x2, y2, col, stroke)

		case (a.Type == models.AnnotationAngle || a.Type == models.AnnotationCobb) && len(a.Points) == 3:
			x1, y1 := toPx(a.Points[0])
			x2, y2 := toPx(a.Points[1])
			x3, y3 := toPx(a.Points[2])
			dash := stroke * 4
			c.DashedLine(x1, y1, x2, y2, col, stroke, dash)
			c.DashedLine(x2, y2, x3, y3, col, stroke, dash)
			if a.Value != nil {
				lx, ly := toPx(models.Point{X: a.Points[1].X + labelOffsetX, Y: a.Points[1].Y + labelOffsetY})
				c.Text(lx, ly, FormatAngle(*a.Value), col)
			}

		default:
			// pending: show the clicks placed so far
			for _, p := range a.Points {
				x, y := toPx(p)
				c.Dot(x, y, stroke*1.5, col)
			}
		}
	}
}

func strokeWidth(w, h int) float64 {
	m := w
	if h < m {
		m = h
	}
	s := float64(m) / 300
	if s < 1 {
		return 1
	}
	return s
}
