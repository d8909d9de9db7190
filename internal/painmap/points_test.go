package painmap

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"github.com/biomech-visualizer/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisibilityBoundary(t *testing.T) {
	tests := []struct {
		name      string
		angle     float64
		viewAngle float64
		visible   bool
	}{
		{"84 degrees away", 0, 84, true},
		{"86 degrees away", 0, 86, false},
		{"exactly 85 is hidden", 0, 85, false},
		{"wraps across zero", 350, 10, true},
		{"back side", 180, 0, false},
		{"same side", 90, 90, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := models.PainPoint{Angle: tt.angle}
			assert.Equal(t, tt.visible, IsVisible(p, tt.viewAngle))
		})
	}
}

func TestVisibilityPeriodic(t *testing.T) {
	for _, a := range []float64{0, 37, 90, 200, 359} {
		for _, theta := range []float64{0, 45, 84, 86, 180, 300} {
			p := models.PainPoint{Angle: a}
			assert.Equal(t, IsVisible(p, theta), IsVisible(p, theta+360), "a=%v θ=%v", a, theta)
			assert.Equal(t, IsVisible(p, theta), IsVisible(p, theta-720), "a=%v θ=%v", a, theta)
		}
	}
}

func TestComputeStats(t *testing.T) {
	stats := ComputeStats([]models.PainPoint{{Intensity: 8}, {Intensity: 4}})
	assert.Equal(t, models.PainStats{Count: 2, AverageIntensity: 6.0, MaxIntensity: 8}, stats)

	stats = ComputeStats([]models.PainPoint{{Intensity: 1}, {Intensity: 2}, {Intensity: 2}})
	assert.Equal(t, 1.7, stats.AverageIntensity)

	assert.Equal(t, models.PainStats{}, ComputeStats(nil))
}

func TestUpdatePointClampsAndValidates(t *testing.T) {
	points := []models.PainPoint{NewPoint("p1", "Lombar", 50, 50, 180)}

	high := 14
	bogus := models.PainType("bogus")
	x := 120.0
	next := UpdatePoint(points, "p1", models.PointPatch{Intensity: &high, Type: &bogus, X: &x})
	assert.Equal(t, 10, next[0].Intensity)
	assert.Equal(t, models.PainTypeAguda, next[0].Type)
	assert.Equal(t, 100.0, next[0].X)

	low := -3
	burn := models.PainTypeQueimacao
	next = UpdatePoint(next, "p1", models.PointPatch{Intensity: &low, Type: &burn})
	assert.Equal(t, 0, next[0].Intensity)
	assert.Equal(t, models.PainTypeQueimacao, next[0].Type)

	// original snapshot untouched
	assert.Equal(t, 5, points[0].Intensity)
	assert.Equal(t, 50.0, points[0].X)
}

func TestUpdatePointFactorListsAreCopied(t *testing.T) {
	points := []models.PainPoint{NewPoint("p1", "", 1, 1, 0)}
	factors := []string{"sentado"}
	next := UpdatePoint(points, "p1", models.PointPatch{Agravantes: &factors})
	factors[0] = "changed"
	assert.Equal(t, []string{"sentado"}, next[0].Agravantes)
	assert.Empty(t, points[0].Agravantes)
}

func TestRemoveAndUnknownIDs(t *testing.T) {
	points := []models.PainPoint{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	next := RemovePoint(points, "b")
	require.Len(t, next, 2)
	assert.Equal(t, "c", next[1].ID)
	assert.Len(t, points, 3)

	assert.Equal(t, points, RemovePoint(points, "zzz"))
	assert.Equal(t, points, MovePoint(points, "zzz", 1, 1))
}

func TestNewPointDefaults(t *testing.T) {
	p := NewPoint("id", "Trapézio", 10, 20, -90)
	assert.Equal(t, 5, p.Intensity)
	assert.Equal(t, models.PainTypeAguda, p.Type)
	assert.Equal(t, 270.0, p.Angle)
	assert.NotNil(t, p.Agravantes)
	assert.NotNil(t, p.Aliviantes)
}

func TestNewPointClampsCoordinates(t *testing.T) {
	tests := []struct {
		name         string
		x, y         float64
		wantX, wantY float64
	}{
		{"inside", 12.5, 99, 12.5, 99},
		{"past the edges", 150, -20, 100, 0},
		{"not a number", math.NaN(), math.Inf(1), 0, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPoint("id", "", tt.x, tt.y, 0)
			assert.Equal(t, tt.wantX, p.X)
			assert.Equal(t, tt.wantY, p.Y)
		})
	}
}

func TestAddedPointsStayOnSurface(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := NewStore(nil)
	for i := 0; i < 500; i++ {
		x := rng.Float64()*400 - 150
		y := rng.Float64()*400 - 150
		if p, ok := s.AddPoint("", x, y, rng.Float64()*360); ok {
			assert.GreaterOrEqual(t, p.X, 0.0)
			assert.LessOrEqual(t, p.X, 100.0)
			assert.GreaterOrEqual(t, p.Y, 0.0)
			assert.LessOrEqual(t, p.Y, 100.0)
			assert.GreaterOrEqual(t, p.Intensity, models.MinIntensity)
			assert.LessOrEqual(t, p.Intensity, models.MaxIntensity)
		}
	}
	for _, p := range s.Points() {
		require.True(t, p.X >= 0 && p.X <= 100 && p.Y >= 0 && p.Y <= 100, "point %s at (%v, %v)", p.ID, p.X, p.Y)
	}
	assert.NotEmpty(t, s.Points())
}

func TestPainPointJSONShape(t *testing.T) {
	p := NewPoint("id-1", "Lombar", 12.5, 40, 180)
	p.Notes = "pior de manhã"
	p.Aliviantes = []string{"calor"}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"id", "x", "y", "angle", "intensity", "type", "muscleGroup", "notes", "agravantes", "aliviantes"} {
		assert.Contains(t, raw, key)
	}

	var back models.PainPoint
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, p, back)
}
