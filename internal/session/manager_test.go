package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biomech-visualizer/backend/internal/models"
	"github.com/biomech-visualizer/backend/internal/testutil"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func TestCreateLoadsSavedPoints(t *testing.T) {
	repo := testutil.NewMockRepository()
	ctx := context.Background()
	require.NoError(t, repo.SavePoints(ctx, "pat-1", []models.PainPoint{{ID: "saved", Intensity: 3, Type: models.PainTypeAguda}}))

	m := NewManager(repo)
	info, err := m.Create(ctx, "pat-1", nil, false)
	require.NoError(t, err)
	assert.Equal(t, 1, info.PointCount)

	// explicit initial points win over stored ones
	info, err = m.Create(ctx, "pat-1", []models.PainPoint{}, false)
	require.NoError(t, err)
	assert.Equal(t, 0, info.PointCount)
}

func TestMutationsArePersisted(t *testing.T) {
	repo := testutil.NewMockRepository()
	ctx := context.Background()
	m := NewManager(repo)
	info, err := m.Create(ctx, "pat-1", nil, false)
	require.NoError(t, err)

	err = m.With(info.ID, func(w *Workspace) error {
		_, ok := w.Points.AddPoint("Lombar", 50, 50, 180)
		require.True(t, ok)
		w.Board.SetTool(models.AnnotationLine, "")
		w.Board.ClickAt(models.Point{X: 1, Y: 1})
		return nil
	})
	require.NoError(t, err)

	saved, err := repo.LoadPoints(ctx, "pat-1")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "Lombar", saved[0].MuscleGroup)

	// without an image, annotations are stored under the session id
	anns, err := repo.LoadAnnotations(ctx, info.ID)
	require.NoError(t, err)
	assert.Len(t, anns, 1)
}

func TestPersistenceErrorsDoNotFailMutation(t *testing.T) {
	repo := testutil.NewMockRepository()
	m := NewManager(repo)
	info, err := m.Create(context.Background(), "pat", nil, false)
	require.NoError(t, err)

	repo.SetErr(errors.New("disk full"))
	err = m.With(info.ID, func(w *Workspace) error {
		_, ok := w.Points.AddPoint("", 10, 10, 0)
		assert.True(t, ok)
		return nil
	})
	require.NoError(t, err)

	got, _ := m.GetSession(info.ID)
	assert.Equal(t, 1, got.PointCount)
}

func TestSetImageSwitchesBoard(t *testing.T) {
	repo := testutil.NewMockRepository()
	ctx := context.Background()
	require.NoError(t, repo.SaveAnnotations(ctx, "img-2", []models.Annotation{
		{ID: "old", Type: models.AnnotationLine, Points: []models.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}},
	}))

	m := NewManager(repo)
	info, _ := m.Create(ctx, "pat", nil, false)

	err := m.With(info.ID, func(w *Workspace) error {
		w.Board.SetTool(models.AnnotationAngle, "#123456")
		require.NoError(t, w.SetImage(ctx, "img-2"))
		assert.Equal(t, "img-2", w.ImageID())
		assert.Equal(t, models.AnnotationAngle, w.Board.Tool())
		assert.Len(t, w.Board.Annotations(), 1)

		w.Board.ClickAt(models.Point{X: 5, Y: 5})
		return nil
	})
	require.NoError(t, err)

	anns, _ := repo.LoadAnnotations(ctx, "img-2")
	assert.Len(t, anns, 2)
}

func TestSetImageEmptyDetaches(t *testing.T) {
	repo := testutil.NewMockRepository()
	ctx := context.Background()
	m := NewManager(repo)
	info, _ := m.Create(ctx, "pat", nil, false)

	err := m.With(info.ID, func(w *Workspace) error {
		w.Board.SetTool(models.AnnotationLine, "")
		w.Board.ClickAt(models.Point{X: 10, Y: 10})

		require.NoError(t, w.SetImage(ctx, "img-1"))
		assert.Empty(t, w.Board.Annotations())

		require.NoError(t, w.SetImage(ctx, ""))
		assert.Empty(t, w.ImageID())
		assert.Equal(t, models.AnnotationLine, w.Board.Tool())
		assert.Len(t, w.Board.Annotations(), 1, "session board is restored")
		return nil
	})
	require.NoError(t, err)
}

func TestUnknownSession(t *testing.T) {
	m := NewManager(nil)
	err := m.With("nope", func(*Workspace) error { return nil })
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Delete("nope"), ErrSessionNotFound)
	assert.False(t, m.TouchSession("nope"))
	_, ok := m.GetSession("nope")
	assert.False(t, ok)
}

func TestCleanupOldSessions(t *testing.T) {
	clock := newClock()
	m := NewManager(nil, WithClock(clock.Now))
	ctx := context.Background()

	idle, _ := m.Create(ctx, "a", nil, false)
	active, _ := m.Create(ctx, "b", nil, false)

	clock.Advance(40 * time.Minute)
	require.True(t, m.TouchSession(active.ID))

	removed := m.CleanupOldSessions(30 * time.Minute)
	assert.Equal(t, 1, removed)

	_, ok := m.GetSession(idle.ID)
	assert.False(t, ok)
	_, ok = m.GetSession(active.ID)
	assert.True(t, ok)
}

func TestMaxSessionsEvictsLeastRecentlyUsed(t *testing.T) {
	clock := newClock()
	m := NewManager(nil, WithMaxSessions(2), WithClock(clock.Now))
	ctx := context.Background()

	first, _ := m.Create(ctx, "a", nil, false)
	clock.Advance(time.Second)
	second, _ := m.Create(ctx, "b", nil, false)
	clock.Advance(time.Second)
	m.TouchSession(first.ID)
	clock.Advance(time.Second)

	third, _ := m.Create(ctx, "c", nil, false)
	assert.Equal(t, 2, m.Count())

	_, ok := m.GetSession(second.ID)
	assert.False(t, ok, "least recently used is evicted")
	_, ok = m.GetSession(first.ID)
	assert.True(t, ok)
	_, ok = m.GetSession(third.ID)
	assert.True(t, ok)
}

func TestListOrdersByRecentUse(t *testing.T) {
	clock := newClock()
	m := NewManager(nil, WithClock(clock.Now))
	ctx := context.Background()
	a, _ := m.Create(ctx, "a", nil, false)
	clock.Advance(time.Second)
	b, _ := m.Create(ctx, "b", nil, true)

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.True(t, list[0].ReadOnly)
	assert.Equal(t, a.ID, list[1].ID)
}
