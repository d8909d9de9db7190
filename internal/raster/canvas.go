// Package raster draws measurement overlays onto RGBA images.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Canvas is a resizable RGBA drawing surface.
type Canvas struct {
	img  *image.RGBA
	face font.Face
}

// New creates a transparent canvas of the given size.
func New(width, height int) *Canvas {
	c := &Canvas{face: basicfont.Face7x13}
	c.Resize(width, height)
	return c
}

// FromImage copies src into a new canvas so annotations can be drawn over it.
func FromImage(src image.Image) *Canvas {
	b := src.Bounds()
	c := New(b.Dx(), b.Dy())
	draw.Draw(c.img, c.img.Bounds(), src, b.Min, draw.Src)
	return c
}

// Resize reallocates the backing image, which also clears it.
// Non-positive dimensions produce an empty canvas.
func (c *Canvas) Resize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	c.img = image.NewRGBA(image.Rect(0, 0, width, height))
}

// Size returns the current pixel dimensions.
func (c *Canvas) Size() (int, int) {
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

// Clear resets every pixel to transparent.
func (c *Canvas) Clear() {
	draw.Draw(c.img, c.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

// Image exposes the backing image.
func (c *Canvas) Image() *image.RGBA {
	return c.img
}

// ScaleToWidth returns a copy scaled to maxWidth when the canvas is wider.
func (c *Canvas) ScaleToWidth(maxWidth int) *Canvas {
	w, h := c.Size()
	if maxWidth <= 0 || w <= maxWidth || w == 0 {
		return c
	}
	nh := int(math.Round(float64(h) * float64(maxWidth) / float64(w)))
	if nh < 1 {
		nh = 1
	}
	out := New(maxWidth, nh)
	draw.ApproxBiLinear.Scale(out.img, out.img.Bounds(), c.img, c.img.Bounds(), draw.Over, nil)
	return out
}

// EncodePNG writes the canvas as PNG.
func (c *Canvas) EncodePNG(w io.Writer) error {
	return png.Encode(w, c.img)
}

// maxCoord bounds text origins so they stay representable as fixed.Int26_6.
const maxCoord = 1 << 20

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func clampf(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// diagonal is the canvas diagonal, the longest visible extent of any stroke.
func (c *Canvas) diagonal() float64 {
	w, h := c.Size()
	return math.Hypot(float64(w), float64(h)) + 1
}

// visible intersects the segment with the canvas grown by pad on every side
// (Liang-Barsky). Clipped endpoints are placed exactly on the boundary they
// crossed and pinned to the padded canvas, so the result stays bounded even
// when the input is not. t0 is the parameter of the first visible point.
func (c *Canvas) visible(x1, y1, x2, y2, pad float64) (ax, ay, bx, by, t0 float64, ok bool) {
	dx, dy := x2-x1, y2-y1
	if !finite(dx, dy) {
		return 0, 0, 0, 0, 0, false
	}
	w, h := c.Size()
	bounds := [4]float64{-pad, float64(w) + pad, -pad, float64(h) + pad}
	edges := [4][2]float64{
		{-dx, x1 - bounds[0]},
		{dx, bounds[1] - x1},
		{-dy, y1 - bounds[2]},
		{dy, bounds[3] - y1},
	}
	t1 := 1.0
	enter, exit := -1, -1
	for i, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, 0, false
			}
			continue
		}
		r := q / p
		if p < 0 && r > t0 {
			t0, enter = r, i
		} else if p > 0 && r < t1 {
			t1, exit = r, i
		}
		if t0 > t1 {
			return 0, 0, 0, 0, 0, false
		}
	}

	at := func(t float64, edge int, x, y float64) (float64, float64) {
		switch {
		case edge < 0:
		case edge < 2:
			x, y = bounds[edge], y1+dy*t
		default:
			x, y = x1+dx*t, bounds[edge]
		}
		return clampf(x, bounds[0], bounds[1]), clampf(y, bounds[2], bounds[3])
	}
	ax, ay = at(t0, enter, x1, y1)
	bx, by = at(t1, exit, x2, y2)
	return ax, ay, bx, by, t0, true
}

// Line draws a solid segment of the given thickness. Only the part that
// crosses the canvas is rasterized; non-finite input draws nothing.
func (c *Canvas) Line(x1, y1, x2, y2 float64, col color.RGBA, width float64) {
	if !finite(x1, y1, x2, y2, width) {
		return
	}
	dx := x2 - x1
	dy := y2 - y1
	dist := math.Hypot(dx, dy)
	if dist < 1 {
		c.Dot(x1, y1, width/2, col)
		return
	}
	half := clampf(width/2, 0.5, c.diagonal())
	perpX := -dy / dist
	perpY := dx / dist
	if !finite(perpX, perpY) {
		return
	}

	x1, y1, x2, y2, _, ok := c.visible(x1, y1, x2, y2, half+1)
	if !ok {
		return
	}
	dx = x2 - x1
	dy = y2 - y1
	steps := math.Max(math.Abs(dx), math.Abs(dy))
	if steps < 1 {
		steps = 1
	}
	for i := 0.0; i <= steps; i++ {
		t := i / steps
		cx := x1 + dx*t
		cy := y1 + dy*t
		for off := -half; off <= half; off += 0.5 {
			c.img.Set(int(cx+perpX*off), int(cy+perpY*off), col)
		}
	}
}

// DashedLine draws alternating dash-long segments. The dash phase is kept
// relative to (x1,y1) when the segment is clipped.
func (c *Canvas) DashedLine(x1, y1, x2, y2 float64, col color.RGBA, width, dash float64) {
	if !finite(x1, y1, x2, y2, width) {
		return
	}
	dist := math.Hypot(x2-x1, y2-y1)
	if !finite(dash) || dash <= 0 || dist <= dash {
		c.Line(x1, y1, x2, y2, col, width)
		return
	}
	if !finite(dist) {
		return
	}
	pad := clampf(width/2, 0.5, c.diagonal()) + 1
	ax, ay, bx, by, t0, ok := c.visible(x1, y1, x2, y2, pad)
	if !ok {
		return
	}
	length := math.Hypot(bx-ax, by-ay)
	if length == 0 {
		return
	}
	ux := (bx - ax) / length
	uy := (by - ay) / length
	period := 2 * dash
	phase := math.Mod(t0*dist, period)
	n := int(math.Ceil((length + phase) / period))
	for i := 0; i < n; i++ {
		s := float64(i)*period - phase
		a := math.Max(s, 0)
		e := math.Min(s+dash, length)
		if e > a {
			c.Line(ax+ux*a, ay+uy*a, ax+ux*e, ay+uy*e, col, width)
		}
	}
}

// Dot fills a circle of radius r centered on (x,y), limited to the pixels
// inside the canvas.
func (c *Canvas) Dot(x, y, r float64, col color.RGBA) {
	if !finite(x, y, r) {
		return
	}
	r = clampf(r, 0.5, c.diagonal())
	w, h := c.Size()
	if x+r < -1 || y+r < -1 || x-r > float64(w)+1 || y-r > float64(h)+1 {
		return
	}
	ri := int(math.Ceil(r))
	cx, cy := int(x), int(y)
	for py := max(-ri, -cy-1); py <= min(ri, h-cy); py++ {
		for px := max(-ri, -cx-1); px <= min(ri, w-cx); px++ {
			if float64(px*px+py*py) <= r*r {
				c.img.Set(cx+px, cy+py, col)
			}
		}
	}
}

// Text draws s with its baseline-left at (x,y).
func (c *Canvas) Text(x, y float64, s string, col color.RGBA) {
	if !finite(x, y) || math.Abs(x) > maxCoord || math.Abs(y) > maxCoord {
		return
	}
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: c.face,
		Dot:  fixed.P(int(x), int(y)),
	}
	d.DrawString(s)
}

// ParseHex parses "#rrggbb" or "#rgb" into an opaque color.
func ParseHex(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// Hex formats c as "#rrggbb".
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
