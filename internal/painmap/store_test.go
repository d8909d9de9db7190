package painmap

import (
	"math"
	"testing"

	"github.com/biomech-visualizer/backend/internal/geometry"
	"github.com/biomech-visualizer/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var surface = geometry.Rect{Left: 0, Top: 0, Width: 200, Height: 400}

func TestStoreClickAddsSelectedPoint(t *testing.T) {
	var changed [][]models.PainPoint
	var selected []string
	s := NewStore(nil,
		WithIDGenerator(func() string { return "new" }),
		WithOnChange(func(p []models.PainPoint) { changed = append(changed, p) }),
		WithOnSelect(func(id string) { selected = append(selected, id) }),
		WithRegionMap(DefaultRegionMap()),
	)

	p, ok := s.Click(100, 180, surface, 0, "")
	require.True(t, ok)
	assert.Equal(t, 50.0, p.X)
	assert.Equal(t, 45.0, p.Y)
	assert.Equal(t, "Abdômen", p.MuscleGroup)
	assert.Equal(t, "new", s.Selected())
	assert.Equal(t, []string{"new"}, selected)
	require.Len(t, changed, 1)
	assert.Len(t, changed[0], 1)
}

func TestStoreExplicitRegionWins(t *testing.T) {
	s := NewStore(nil, WithRegionMap(DefaultRegionMap()))
	p, ok := s.AddPoint("Trapézio", 50, 45, 0)
	require.True(t, ok)
	assert.Equal(t, "Trapézio", p.MuscleGroup)
}

func TestStoreReadOnlyIgnoresMutations(t *testing.T) {
	calls := 0
	seed := []models.PainPoint{NewPoint("p1", "Lombar", 50, 50, 180)}
	s := NewStore(seed, WithReadOnly(true), WithOnChange(func([]models.PainPoint) { calls++ }))

	_, ok := s.AddPoint("x", 1, 1, 0)
	assert.False(t, ok)
	_, ok = s.Click(1, 1, surface, 0, "")
	assert.False(t, ok)
	nine := 9
	_, ok = s.UpdatePoint("p1", models.PointPatch{Intensity: &nine})
	assert.False(t, ok)
	assert.False(t, s.RemovePoint("p1"))
	assert.False(t, s.Clear())

	// a press only selects
	assert.False(t, s.PointerDown("p1", PrimaryButton))
	assert.Equal(t, "p1", s.Selected())
	_, ok = s.PointerMove(10, 10, surface)
	assert.False(t, ok)

	assert.Equal(t, 0, calls)
	assert.Equal(t, seed, s.Points())
}

func TestStoreDragLifecycle(t *testing.T) {
	var last []models.PainPoint
	s := NewStore([]models.PainPoint{NewPoint("p1", "", 10, 10, 0)},
		WithOnChange(func(p []models.PainPoint) { last = p }))

	assert.False(t, s.PointerDown("p1", 2), "secondary button does not drag")
	assert.Empty(t, s.Dragging())

	require.True(t, s.PointerDown("p1", PrimaryButton))
	p, ok := s.PointerMove(50, 100, surface)
	require.True(t, ok)
	assert.Equal(t, 25.0, p.X)
	assert.Equal(t, 25.0, p.Y)
	require.Len(t, last, 1)
	assert.Equal(t, 25.0, last[0].X)

	// outside the surface clamps
	p, _ = s.PointerMove(-40, 900, surface)
	assert.Equal(t, 0.0, p.X)
	assert.Equal(t, 100.0, p.Y)

	s.PointerUp()
	_, ok = s.PointerMove(100, 100, surface)
	assert.False(t, ok)
	got, _ := s.Get("p1")
	assert.Equal(t, 0.0, got.X)
}

func TestStoreVisibleAndStatsOverAll(t *testing.T) {
	front := NewPoint("f", "", 1, 1, 0)
	front.Intensity = 8
	back := NewPoint("b", "", 1, 1, 180)
	back.Intensity = 4
	s := NewStore([]models.PainPoint{front, back})

	vis := s.Visible(0)
	require.Len(t, vis, 1)
	assert.Equal(t, "f", vis[0].ID)

	stats := s.Stats()
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, 6.0, stats.AverageIntensity)
	assert.Equal(t, 8, stats.MaxIntensity)
}

func TestStoreRemoveClearsSelection(t *testing.T) {
	s := NewStore([]models.PainPoint{{ID: "a"}, {ID: "b"}})
	s.Select("a")
	require.True(t, s.RemovePoint("a"))
	assert.Empty(t, s.Selected())

	s.Select("missing")
	assert.Empty(t, s.Selected())
}

func TestStoreIgnoresOffSurfacePoints(t *testing.T) {
	calls := 0
	s := NewStore(nil, WithOnChange(func([]models.PainPoint) { calls++ }))

	for _, xy := range [][2]float64{{150, -20}, {-0.1, 50}, {50, 100.1}, {math.NaN(), 10}, {10, math.Inf(-1)}} {
		_, ok := s.AddPoint("Lombar", xy[0], xy[1], 0)
		assert.False(t, ok, "(%v, %v)", xy[0], xy[1])
	}
	// outside the rect the click maps off the surface
	_, ok := s.Click(-10, 500, surface, 0, "")
	assert.False(t, ok)
	_, ok = s.AddPoint("Lombar", 50, 50, math.NaN())
	assert.False(t, ok, "view angle must be finite")
	assert.Empty(t, s.Points())
	assert.Zero(t, calls)

	p, ok := s.AddPoint("Lombar", 100, 0, 0)
	require.True(t, ok)
	assert.Equal(t, 100.0, p.X)
	assert.Equal(t, 0.0, p.Y)
}

func TestStoreUnmountedSurfaceIsNoop(t *testing.T) {
	s := NewStore(nil)
	_, ok := s.Click(10, 10, geometry.Rect{}, 0, "")
	assert.False(t, ok)
	assert.Empty(t, s.Points())
}

func TestStoreSeedIsCopied(t *testing.T) {
	seed := []models.PainPoint{NewPoint("p1", "", 1, 1, 0)}
	s := NewStore(seed)
	five := 7
	s.UpdatePoint("p1", models.PointPatch{Intensity: &five})
	assert.Equal(t, 5, seed[0].Intensity)
}
