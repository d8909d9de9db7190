// Package overlay renders pose landmark frames as a skeleton with a
// derived joint angle, and provides the frame sources that feed it.
package overlay

import (
	"image/color"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/biomech-visualizer/backend/internal/raster"
)

// Canvas is a drawing surface sized in pixels. Resize must discard
// previous content.
type Canvas interface {
	Resize(width, height int)
	Size() (int, int)
	Line(x1, y1, x2, y2 float64, col color.RGBA, width float64)
	Dot(x, y, r float64, col color.RGBA)
	Text(x, y float64, s string, col color.RGBA)
}

var (
	_ Canvas = (*raster.Canvas)(nil)
	_ Canvas = (*DisplayList)(nil)
)

// NewRasterCanvas returns an empty pixel canvas.
func NewRasterCanvas() *raster.Canvas {
	return raster.New(0, 0)
}

// Draw command ops.
const (
	OpLine = "line"
	OpDot  = "dot"
	OpText = "text"
)

// Command is one recorded draw call.
type Command struct {
	Op    string  `msgpack:"op" json:"op"`
	X1    float64 `msgpack:"x1" json:"x1"`
	Y1    float64 `msgpack:"y1" json:"y1"`
	X2    float64 `msgpack:"x2,omitempty" json:"x2,omitempty"`
	Y2    float64 `msgpack:"y2,omitempty" json:"y2,omitempty"`
	Size  float64 `msgpack:"size,omitempty" json:"size,omitempty"` // stroke width or dot radius
	Color string  `msgpack:"color" json:"color"`
	Text  string  `msgpack:"text,omitempty" json:"text,omitempty"`
}

// DisplayList records draw calls so the browser can replay them on its
// own canvas.
type DisplayList struct {
	Width    int       `msgpack:"width" json:"width"`
	Height   int       `msgpack:"height" json:"height"`
	Commands []Command `msgpack:"commands" json:"commands"`
}

// Resize sets the surface size and drops recorded commands.
func (d *DisplayList) Resize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	d.Width, d.Height = width, height
	d.Commands = d.Commands[:0]
}

func (d *DisplayList) Size() (int, int) { return d.Width, d.Height }

func (d *DisplayList) Line(x1, y1, x2, y2 float64, col color.RGBA, width float64) {
	d.Commands = append(d.Commands, Command{Op: OpLine, X1: x1, Y1: y1, X2: x2, Y2: y2, Size: width, Color: raster.Hex(col)})
}

func (d *DisplayList) Dot(x, y, r float64, col color.RGBA) {
	d.Commands = append(d.Commands, Command{Op: OpDot, X1: x, Y1: y, Size: r, Color: raster.Hex(col)})
}

func (d *DisplayList) Text(x, y float64, s string, col color.RGBA) {
	d.Commands = append(d.Commands, Command{Op: OpText, X1: x, Y1: y, Text: s, Color: raster.Hex(col)})
}

// Count returns the number of commands of kind op.
func (d *DisplayList) Count(op string) int {
	n := 0
	for _, c := range d.Commands {
		if c.Op == op {
			n++
		}
	}
	return n
}

// EncodeMsgpack serializes the list for the browser replayer.
func (d *DisplayList) EncodeMsgpack() ([]byte, error) {
	return msgpack.Marshal(d)
}
