package painmap

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/biomech-visualizer/backend/internal/geometry"
)

// Unmapped labels a point outside every known region.
const Unmapped = "unmapped"

// Region is a named rectangle on one side of the body diagram, in
// normalized [0,100] coordinates.
type Region struct {
	Label  string  `yaml:"label" json:"label"`
	Left   float64 `yaml:"left" json:"left"`
	Top    float64 `yaml:"top" json:"top"`
	Right  float64 `yaml:"right" json:"right"`
	Bottom float64 `yaml:"bottom" json:"bottom"`
}

// Contains reports whether (x, y) lies inside r, edges included.
func (r Region) Contains(x, y float64) bool {
	return x >= r.Left && x <= r.Right && y >= r.Top && y <= r.Bottom
}

// RegionMap labels diagram positions with muscle groups. Regions are
// matched in order, so narrower regions go first.
type RegionMap struct {
	Front []Region `yaml:"front" json:"front"`
	Back  []Region `yaml:"back" json:"back"`
}

// Lookup returns the label at (x, y) for a viewer rotated to viewAngle.
func (m *RegionMap) Lookup(x, y, viewAngle float64) string {
	side := m.Back
	if geometry.CircularDiff(viewAngle, 0) < 90 {
		side = m.Front
	}
	for _, r := range side {
		if r.Contains(x, y) {
			return r.Label
		}
	}
	return Unmapped
}

// LoadRegionMap reads a YAML region map from path.
func LoadRegionMap(path string) (*RegionMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseRegionMap(f)
}

// ParseRegionMap decodes a YAML region map.
func ParseRegionMap(r io.Reader) (*RegionMap, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var m RegionMap
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse region map: %w", err)
	}
	for _, side := range [][]Region{m.Front, m.Back} {
		for _, reg := range side {
			if reg.Label == "" || reg.Right < reg.Left || reg.Bottom < reg.Top {
				return nil, fmt.Errorf("invalid region %+v", reg)
			}
		}
	}
	return &m, nil
}

// DefaultRegionMap is the built-in map of the standard body diagram.
// The front view shows the patient's right side on the viewer's left.
func DefaultRegionMap() *RegionMap {
	return &RegionMap{
		Front: []Region{
			{Label: "Cabeça", Left: 40, Top: 0, Right: 60, Bottom: 12},
			{Label: "Pescoço", Left: 43, Top: 12, Right: 57, Bottom: 17},
			{Label: "Deltoide direito", Left: 25, Top: 17, Right: 35, Bottom: 26},
			{Label: "Deltoide esquerdo", Left: 65, Top: 17, Right: 75, Bottom: 26},
			{Label: "Peitoral", Left: 35, Top: 17, Right: 65, Bottom: 32},
			{Label: "Braço direito", Left: 15, Top: 26, Right: 35, Bottom: 52},
			{Label: "Braço esquerdo", Left: 65, Top: 26, Right: 85, Bottom: 52},
			{Label: "Abdômen", Left: 35, Top: 32, Right: 65, Bottom: 50},
			{Label: "Quadril", Left: 33, Top: 50, Right: 67, Bottom: 56},
			{Label: "Quadríceps direito", Left: 33, Top: 56, Right: 50, Bottom: 72},
			{Label: "Quadríceps esquerdo", Left: 50, Top: 56, Right: 67, Bottom: 72},
			{Label: "Joelho direito", Left: 33, Top: 72, Right: 50, Bottom: 78},
			{Label: "Joelho esquerdo", Left: 50, Top: 72, Right: 67, Bottom: 78},
			{Label: "Tibial direito", Left: 33, Top: 78, Right: 50, Bottom: 94},
			{Label: "Tibial esquerdo", Left: 50, Top: 78, Right: 67, Bottom: 94},
			{Label: "Pé direito", Left: 30, Top: 94, Right: 50, Bottom: 100},
			{Label: "Pé esquerdo", Left: 50, Top: 94, Right: 70, Bottom: 100},
		},
		Back: []Region{
			{Label: "Cabeça", Left: 40, Top: 0, Right: 60, Bottom: 12},
			{Label: "Cervical", Left: 43, Top: 12, Right: 57, Bottom: 17},
			{Label: "Trapézio", Left: 30, Top: 17, Right: 70, Bottom: 24},
			{Label: "Dorsal", Left: 35, Top: 24, Right: 65, Bottom: 38},
			{Label: "Lombar", Left: 35, Top: 38, Right: 65, Bottom: 50},
			{Label: "Braço esquerdo", Left: 15, Top: 24, Right: 35, Bottom: 52},
			{Label: "Braço direito", Left: 65, Top: 24, Right: 85, Bottom: 52},
			{Label: "Glúteo", Left: 33, Top: 50, Right: 67, Bottom: 58},
			{Label: "Isquiotibiais esquerdos", Left: 33, Top: 58, Right: 50, Bottom: 74},
			{Label: "Isquiotibiais direitos", Left: 50, Top: 58, Right: 67, Bottom: 74},
			{Label: "Panturrilha esquerda", Left: 33, Top: 74, Right: 50, Bottom: 94},
			{Label: "Panturrilha direita", Left: 50, Top: 74, Right: 67, Bottom: 94},
			{Label: "Calcanhar esquerdo", Left: 30, Top: 94, Right: 50, Bottom: 100},
			{Label: "Calcanhar direito", Left: 50, Top: 94, Right: 70, Bottom: 100},
		},
	}
}
