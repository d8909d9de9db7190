package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biomech-visualizer/backend/internal/models"
)

func openTestRepository(t *testing.T) *DuckRepository {
	t.Helper()
	repo, err := NewDuckRepository(filepath.Join(t.TempDir(), "data", "biomech.duckdb"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestDuckRepositoryPointsRoundTrip(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	points := []models.PainPoint{
		{ID: "p1", X: 10, Y: 20, Angle: 0, Intensity: 8, Type: models.PainTypeAguda,
			MuscleGroup: "Trapézio", Agravantes: []string{"sentado"}, Aliviantes: []string{}},
		{ID: "p2", X: 50, Y: 60, Angle: 180, Intensity: 4, Type: models.PainTypeRigidez,
			Notes: "manhã", Agravantes: []string{}, Aliviantes: []string{"calor", "alongamento"}},
	}
	require.NoError(t, repo.SavePoints(ctx, "patient-1", points))

	got, err := repo.LoadPoints(ctx, "patient-1")
	require.NoError(t, err)
	assert.Equal(t, points, got)

	other, err := repo.LoadPoints(ctx, "patient-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestDuckRepositorySaveReplacesSnapshot(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.SavePoints(ctx, "p", []models.PainPoint{{ID: "a", Type: models.PainTypeAguda}, {ID: "b", Type: models.PainTypeAguda}}))
	require.NoError(t, repo.SavePoints(ctx, "p", []models.PainPoint{{ID: "b", Type: models.PainTypeAguda, Intensity: 9}}))

	got, err := repo.LoadPoints(ctx, "p")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, 9, got[0].Intensity)

	require.NoError(t, repo.SavePoints(ctx, "p", nil))
	got, err = repo.LoadPoints(ctx, "p")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDuckRepositoryAnnotationsRoundTrip(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	v := 42.5
	list := []models.Annotation{
		{ID: "l", Type: models.AnnotationLine, Points: []models.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}, Color: "#22c55e"},
		{ID: "c", Type: models.AnnotationCobb, Points: []models.Point{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 1}}, Color: "#ef4444", Value: &v},
		{ID: "pending", Type: models.AnnotationAngle, Points: []models.Point{{X: 9, Y: 9}}, Color: "#3b82f6"},
	}
	require.NoError(t, repo.SaveAnnotations(ctx, "img-1", list))

	got, err := repo.LoadAnnotations(ctx, "img-1")
	require.NoError(t, err)
	assert.Equal(t, list, got)
}

func TestDuckRepositoryReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.duckdb")
	ctx := context.Background()

	repo, err := NewDuckRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.SavePoints(ctx, "p", []models.PainPoint{{ID: "x", Type: models.PainTypeCronica}}))
	require.NoError(t, repo.Close())

	repo, err = NewDuckRepository(path)
	require.NoError(t, err)
	defer repo.Close()
	got, err := repo.LoadPoints(ctx, "p")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.PainTypeCronica, got[0].Type)
}
