// Package annotation implements the measurement tool state machine used on
// static images: line, angle and Cobb-angle tools driven by clicks.
package annotation

import (
	"github.com/biomech-visualizer/backend/internal/geometry"
	"github.com/biomech-visualizer/backend/internal/models"
)

// State is an immutable snapshot of a board. Reducers return new snapshots
// and never modify the slices of the input.
type State struct {
	Tool        models.AnnotationType `json:"tool"`
	Color       string                `json:"color"`
	Annotations []models.Annotation   `json:"annotations"`
}

// SelectTool switches the active tool. Pending annotations of the previous
// tool stay in the list untouched.
func SelectTool(s State, tool models.AnnotationType, color string) State {
	if tool != models.AnnotationNone && !models.ValidAnnotationTypes[tool] {
		return s
	}
	s.Tool = tool
	s.Color = color
	return s
}

// Click applies one click at normalized point p. If the most recently
// created annotation of the active tool is pending, p is appended to it;
// otherwise a new annotation with id is started. With no tool the state is
// returned unchanged. The index of the touched annotation is returned, or -1.
func Click(s State, p models.Point, id string) (State, int) {
	if s.Tool == models.AnnotationNone {
		return s, -1
	}

	next := make([]models.Annotation, len(s.Annotations), len(s.Annotations)+1)
	copy(next, s.Annotations)

	if idx := lastOfType(next, s.Tool); idx >= 0 && next[idx].Pending() {
		a := next[idx].Clone()
		a.Points = append(a.Points, p)
		next[idx] = withValue(a)
		s.Annotations = next
		return s, idx
	}

	a := models.Annotation{
		ID:     id,
		Type:   s.Tool,
		Points: []models.Point{p},
		Color:  s.Color,
	}
	next = append(next, withValue(a))
	s.Annotations = next
	return s, len(next) - 1
}

// Clear drops every annotation regardless of tool or completion.
func Clear(s State) State {
	s.Annotations = []models.Annotation{}
	return s
}

func lastOfType(list []models.Annotation, t models.AnnotationType) int {
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].Type == t {
			return i
		}
	}
	return -1
}

// withValue caches the derived angle once an angle-type annotation is full.
func withValue(a models.Annotation) models.Annotation {
	if a.Type == models.AnnotationLine || a.Pending() || len(a.Points) < 3 {
		a.Value = nil
		return a
	}
	v := geometry.JointAngle(a.Points[0], a.Points[1], a.Points[2])
	a.Value = &v
	return a
}

// ActionKind names a reducer action.
type ActionKind string

const (
	ActionSelectTool ActionKind = "selectTool"
	ActionClick      ActionKind = "click"
	ActionClear      ActionKind = "clear"
)

// Action is a serializable board event.
type Action struct {
	Kind  ActionKind            `json:"kind"`
	Tool  models.AnnotationType `json:"tool,omitempty"`
	Color string                `json:"color,omitempty"`
	Point models.Point          `json:"point"`
	ID    string                `json:"id,omitempty"`
}

// Reduce applies a to s. Unknown actions leave s unchanged.
func Reduce(s State, a Action) State {
	switch a.Kind {
	case ActionSelectTool:
		return SelectTool(s, a.Tool, a.Color)
	case ActionClick:
		next, _ := Click(s, a.Point, a.ID)
		return next
	case ActionClear:
		return Clear(s)
	}
	return s
}
