package models

// Point is a position in normalized [0,100]² surface coordinates.
type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// AnnotationType identifies a measurement tool.
type AnnotationType string

const (
	AnnotationNone  AnnotationType = ""
	AnnotationLine  AnnotationType = "line"
	AnnotationAngle AnnotationType = "angle"
	AnnotationCobb  AnnotationType = "cobb"
)

// ValidAnnotationTypes are the selectable measurement tools.
var ValidAnnotationTypes = map[AnnotationType]bool{
	AnnotationLine:  true,
	AnnotationAngle: true,
	AnnotationCobb:  true,
}

// MaxPoints returns how many clicks complete an annotation of type t.
func MaxPoints(t AnnotationType) int {
	switch t {
	case AnnotationLine:
		return 2
	case AnnotationAngle, AnnotationCobb:
		return 3
	default:
		return 0
	}
}

// Annotation is a geometric measurement drawn over a static image.
type Annotation struct {
	ID     string         `json:"id" msgpack:"id"`
	Type   AnnotationType `json:"type" msgpack:"type"`
	Points []Point        `json:"points" msgpack:"points"`
	Color  string         `json:"color" msgpack:"color"`
	Value  *float64       `json:"value,omitempty" msgpack:"value,omitempty"` // derived angle, degrees
}

// Pending reports whether the annotation still accepts points.
func (a Annotation) Pending() bool {
	return len(a.Points) < MaxPoints(a.Type)
}

// Clone returns a copy that does not share the points slice.
func (a Annotation) Clone() Annotation {
	a.Points = append(make([]Point, 0, len(a.Points)), a.Points...)
	if a.Value != nil {
		v := *a.Value
		a.Value = &v
	}
	return a
}
