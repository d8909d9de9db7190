// Package models contains domain types for the biomechanical visualizer.
package models

// PainType is the pain quality reported for a PainPoint.
type PainType string

const (
	PainTypeAguda        PainType = "aguda"
	PainTypeCronica      PainType = "cronica"
	PainTypeQueimacao    PainType = "queimacao"
	PainTypeFormigamento PainType = "formigamento"
	PainTypeLatejante    PainType = "latejante"
	PainTypePontada      PainType = "pontada"
	PainTypeIrradiada    PainType = "irradiada"
	PainTypeRigidez      PainType = "rigidez"
)

// DefaultPainType is assigned to newly placed points.
const DefaultPainType = PainTypeAguda

// ValidPainTypes are the allowed pain qualities.
var ValidPainTypes = map[PainType]bool{
	PainTypeAguda:        true,
	PainTypeCronica:      true,
	PainTypeQueimacao:    true,
	PainTypeFormigamento: true,
	PainTypeLatejante:    true,
	PainTypePontada:      true,
	PainTypeIrradiada:    true,
	PainTypeRigidez:      true,
}

// Intensity bounds for a PainPoint.
const (
	MinIntensity     = 0
	MaxIntensity     = 10
	DefaultIntensity = 5
)

// PainPoint is a user-placed marker on the anatomical diagram.
// X and Y are percentages of the body surface; Angle is the view rotation
// (degrees) the point was created at.
type PainPoint struct {
	ID          string   `json:"id" msgpack:"id"`
	X           float64  `json:"x" msgpack:"x"`
	Y           float64  `json:"y" msgpack:"y"`
	Angle       float64  `json:"angle" msgpack:"angle"`
	Intensity   int      `json:"intensity" msgpack:"intensity"`
	Type        PainType `json:"type" msgpack:"type"`
	MuscleGroup string   `json:"muscleGroup" msgpack:"muscleGroup"`
	Notes       string   `json:"notes" msgpack:"notes"`
	Agravantes  []string `json:"agravantes" msgpack:"agravantes"`
	Aliviantes  []string `json:"aliviantes" msgpack:"aliviantes"`
}

// Clone returns a deep copy so snapshots never share factor slices.
func (p PainPoint) Clone() PainPoint {
	p.Agravantes = append(make([]string, 0, len(p.Agravantes)), p.Agravantes...)
	p.Aliviantes = append(make([]string, 0, len(p.Aliviantes)), p.Aliviantes...)
	return p
}

// PointPatch carries the fields of an explicit edit. Nil fields are left untouched.
type PointPatch struct {
	X           *float64  `json:"x,omitempty"`
	Y           *float64  `json:"y,omitempty"`
	Intensity   *int      `json:"intensity,omitempty"`
	Type        *PainType `json:"type,omitempty"`
	MuscleGroup *string   `json:"muscleGroup,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
	Agravantes  *[]string `json:"agravantes,omitempty"`
	Aliviantes  *[]string `json:"aliviantes,omitempty"`
}

// PainStats summarizes a set of points.
type PainStats struct {
	Count            int     `json:"count" msgpack:"count"`
	AverageIntensity float64 `json:"averageIntensity" msgpack:"averageIntensity"`
	MaxIntensity     int     `json:"maxIntensity" msgpack:"maxIntensity"`
}
