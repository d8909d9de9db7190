package annotation

import (
	"github.com/google/uuid"

	"github.com/biomech-visualizer/backend/internal/geometry"
	"github.com/biomech-visualizer/backend/internal/models"
)

// DefaultColors are the stroke colors used when a tool is selected without one.
var DefaultColors = map[models.AnnotationType]string{
	models.AnnotationLine:  "#22c55e",
	models.AnnotationAngle: "#3b82f6",
	models.AnnotationCobb:  "#ef4444",
}

// Board owns the annotation list of one static image and forwards every
// mutation to OnChange.
type Board struct {
	state    State
	colors   map[models.AnnotationType]string
	newID    func() string
	onChange func([]models.Annotation)
}

// Option configures a Board.
type Option func(*Board)

// WithOnChange registers the mutation callback.
func WithOnChange(fn func([]models.Annotation)) Option {
	return func(b *Board) { b.onChange = fn }
}

// WithColors overrides the default per-tool colors.
func WithColors(colors map[models.AnnotationType]string) Option {
	return func(b *Board) {
		for t, c := range colors {
			b.colors[t] = c
		}
	}
}

// WithIDGenerator replaces the UUID generator (tests).
func WithIDGenerator(fn func() string) Option {
	return func(b *Board) { b.newID = fn }
}

// NewBoard creates a board seeded with initial annotations and no active tool.
func NewBoard(initial []models.Annotation, opts ...Option) *Board {
	b := &Board{
		colors: make(map[models.AnnotationType]string, len(DefaultColors)),
		newID:  uuid.NewString,
	}
	for t, c := range DefaultColors {
		b.colors[t] = c
	}
	seed := make([]models.Annotation, 0, len(initial))
	for _, a := range initial {
		seed = append(seed, a.Clone())
	}
	b.state = State{Annotations: seed}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetTool activates tool; an empty color picks the tool default.
func (b *Board) SetTool(tool models.AnnotationType, color string) {
	if color == "" {
		color = b.colors[tool]
	}
	b.state = SelectTool(b.state, tool, color)
}

// State returns the current snapshot.
func (b *Board) State() State {
	return b.state
}

// Tool returns the active tool.
func (b *Board) Tool() models.AnnotationType {
	return b.state.Tool
}

// Annotations returns a copy of the annotation list.
func (b *Board) Annotations() []models.Annotation {
	out := make([]models.Annotation, 0, len(b.state.Annotations))
	for _, a := range b.state.Annotations {
		out = append(out, a.Clone())
	}
	return out
}

// Click converts a pointer event on the image surface and applies it.
// Returns false when no tool is active, the surface is not mounted or the
// pointer lies outside it.
func (b *Board) Click(clientX, clientY float64, rect geometry.Rect) (models.Annotation, bool) {
	p, ok := geometry.ToNormalized(clientX, clientY, rect)
	if !ok {
		return models.Annotation{}, false
	}
	return b.ClickAt(p)
}

// ClickAt applies a click already expressed in normalized coordinates.
// Points off the image surface are ignored.
func (b *Board) ClickAt(p models.Point) (models.Annotation, bool) {
	if b.state.Tool == models.AnnotationNone || !geometry.InSurface(p) {
		return models.Annotation{}, false
	}
	next, idx := Click(b.state, p, b.newID())
	if idx < 0 {
		return models.Annotation{}, false
	}
	b.state = next
	b.emit()
	return next.Annotations[idx].Clone(), true
}

// Clear removes every annotation.
func (b *Board) Clear() {
	b.state = Clear(b.state)
	b.emit()
}

func (b *Board) emit() {
	if b.onChange != nil {
		b.onChange(b.Annotations())
	}
}
