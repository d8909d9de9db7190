package painmap

import (
	"github.com/google/uuid"

	"github.com/biomech-visualizer/backend/internal/geometry"
	"github.com/biomech-visualizer/backend/internal/models"
)

// PrimaryButton is the pointer button that may start a drag.
const PrimaryButton = 0

// Store is the interactive point model of one body diagram. It is not
// safe for concurrent use; callers serialize events.
type Store struct {
	points   []models.PainPoint
	readOnly bool
	selected string
	dragging string
	regions  *RegionMap
	newID    func() string
	onChange func([]models.PainPoint)
	onSelect func(string)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithReadOnly disables every mutation; selection still works.
func WithReadOnly(readOnly bool) StoreOption {
	return func(s *Store) { s.readOnly = readOnly }
}

// WithOnChange registers the callback fired with the full list after every mutation.
func WithOnChange(fn func([]models.PainPoint)) StoreOption {
	return func(s *Store) { s.onChange = fn }
}

// WithOnSelect registers the callback fired when the user selects a point.
func WithOnSelect(fn func(string)) StoreOption {
	return func(s *Store) { s.onSelect = fn }
}

// WithRegionMap sets the map used to label points placed without a region.
func WithRegionMap(m *RegionMap) StoreOption {
	return func(s *Store) { s.regions = m }
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *Store) { s.newID = fn }
}

// NewStore seeds a store with initial points.
func NewStore(initial []models.PainPoint, opts ...StoreOption) *Store {
	s := &Store{
		points: ClearPoints(),
		newID:  uuid.NewString,
	}
	for _, p := range initial {
		s.points = append(s.points, p.Clone())
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReadOnly reports whether mutations are disabled.
func (s *Store) ReadOnly() bool { return s.readOnly }

// SetReadOnly toggles read-only mode and ends any drag in progress.
func (s *Store) SetReadOnly(readOnly bool) {
	s.readOnly = readOnly
	if readOnly {
		s.dragging = ""
	}
}

// Points returns a copy of every point.
func (s *Store) Points() []models.PainPoint {
	out := make([]models.PainPoint, 0, len(s.points))
	for _, p := range s.points {
		out = append(out, p.Clone())
	}
	return out
}

// Get returns the point with id.
func (s *Store) Get(id string) (models.PainPoint, bool) {
	if idx := indexOf(s.points, id); idx >= 0 {
		return s.points[idx].Clone(), true
	}
	return models.PainPoint{}, false
}

// Visible returns the points facing a viewer rotated to viewAngle.
func (s *Store) Visible(viewAngle float64) []models.PainPoint {
	return FilterVisible(s.points, viewAngle)
}

// Stats summarizes every point, including hidden ones.
func (s *Store) Stats() models.PainStats {
	return ComputeStats(s.points)
}

// Selected returns the highlighted point id, or "".
func (s *Store) Selected() string { return s.selected }

// Select sets the highlight from outside (host-controlled selection).
// It does not fire OnSelect.
func (s *Store) Select(id string) {
	if id != "" && indexOf(s.points, id) < 0 {
		return
	}
	s.selected = id
}

// AddPoint creates a point at normalized (x, y). Positions off the
// [0,100] surface are ignored. An empty region is resolved through the
// region map. The new point becomes selected.
func (s *Store) AddPoint(region string, x, y, viewAngle float64) (models.PainPoint, bool) {
	if s.readOnly || !geometry.InSurface(models.Point{X: x, Y: y}) || !geometry.Finite(viewAngle) {
		return models.PainPoint{}, false
	}
	if region == "" && s.regions != nil {
		region = s.regions.Lookup(x, y, viewAngle)
	}
	p := NewPoint(s.newID(), region, x, y, viewAngle)
	s.points = AddPoint(s.points, p)
	s.emit()
	s.selectByUser(p.ID)
	return p.Clone(), true
}

// Click places a point where the pointer hit the diagram surface.
func (s *Store) Click(clientX, clientY float64, rect geometry.Rect, rotation float64, region string) (models.PainPoint, bool) {
	if s.readOnly {
		return models.PainPoint{}, false
	}
	p, ok := geometry.ToNormalized(clientX, clientY, rect)
	if !ok {
		return models.PainPoint{}, false
	}
	return s.AddPoint(region, p.X, p.Y, rotation)
}

// UpdatePoint applies an explicit edit.
func (s *Store) UpdatePoint(id string, patch models.PointPatch) (models.PainPoint, bool) {
	if s.readOnly || indexOf(s.points, id) < 0 {
		return models.PainPoint{}, false
	}
	s.points = UpdatePoint(s.points, id, patch)
	s.emit()
	return s.Get(id)
}

// RemovePoint deletes id and drops it from the selection.
func (s *Store) RemovePoint(id string) bool {
	if s.readOnly || indexOf(s.points, id) < 0 {
		return false
	}
	s.points = RemovePoint(s.points, id)
	if s.selected == id {
		s.selected = ""
	}
	if s.dragging == id {
		s.dragging = ""
	}
	s.emit()
	return true
}

// Clear removes every point.
func (s *Store) Clear() bool {
	if s.readOnly {
		return false
	}
	s.points = ClearPoints()
	s.selected = ""
	s.dragging = ""
	s.emit()
	return true
}

// PointerDown handles a press on a point: it selects the point and, for
// the primary button outside read-only mode, starts dragging it.
func (s *Store) PointerDown(id string, button int) bool {
	if indexOf(s.points, id) < 0 {
		return false
	}
	s.selectByUser(id)
	if s.readOnly || button != PrimaryButton {
		return false
	}
	s.dragging = id
	return true
}

// PointerMove repositions the dragged point to the clamped pointer
// position. Without an active drag or with an unmounted surface it is a no-op.
func (s *Store) PointerMove(clientX, clientY float64, rect geometry.Rect) (models.PainPoint, bool) {
	if s.dragging == "" || s.readOnly {
		return models.PainPoint{}, false
	}
	p, ok := geometry.ToNormalizedClamped(clientX, clientY, rect)
	if !ok {
		return models.PainPoint{}, false
	}
	s.points = MovePoint(s.points, s.dragging, p.X, p.Y)
	s.emit()
	return s.Get(s.dragging)
}

// PointerUp ends the drag.
func (s *Store) PointerUp() {
	s.dragging = ""
}

// Dragging returns the id being dragged, or "".
func (s *Store) Dragging() string { return s.dragging }

func (s *Store) selectByUser(id string) {
	s.selected = id
	if s.onSelect != nil {
		s.onSelect(id)
	}
}

func (s *Store) emit() {
	if s.onChange != nil {
		s.onChange(s.Points())
	}
}
