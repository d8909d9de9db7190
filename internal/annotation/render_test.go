package annotation

import (
	"image/color"
	"math"
	"testing"
	"time"

	"github.com/biomech-visualizer/backend/internal/models"
	"github.com/biomech-visualizer/backend/internal/raster"
	"github.com/stretchr/testify/assert"
)

func painted(c *raster.Canvas, x, y int) bool {
	return c.Image().RGBAAt(x, y).A != 0
}

func TestFormatAngle(t *testing.T) {
	assert.Equal(t, "90.0°", FormatAngle(90))
	assert.Equal(t, "33.3°", FormatAngle(33.333))
}

func TestRenderLine(t *testing.T) {
	c := raster.New(200, 100)
	Render(c, []models.Annotation{{
		Type:   models.AnnotationLine,
		Points: []models.Point{{X: 10, Y: 50}, {X: 90, Y: 50}},
		Color:  "#ff0000",
	}})
	assert.True(t, painted(c, 100, 50))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, c.Image().RGBAAt(100, 50))
	assert.False(t, painted(c, 100, 10))
}

func TestRenderPendingAsDots(t *testing.T) {
	c := raster.New(100, 100)
	Render(c, []models.Annotation{{
		Type:   models.AnnotationLine,
		Points: []models.Point{{X: 50, Y: 50}},
		Color:  "#00ff00",
	}})
	assert.True(t, painted(c, 50, 50))
	assert.False(t, painted(c, 60, 50))
}

func TestRenderAngleDrawsLabel(t *testing.T) {
	v := 90.0
	c := raster.New(300, 300)
	Render(c, []models.Annotation{{
		Type:   models.AnnotationAngle,
		Points: []models.Point{{X: 10, Y: 50}, {X: 50, Y: 50}, {X: 50, Y: 90}},
		Color:  "#0000ff",
		Value:  &v,
	}})
	// first dash starts at p1
	assert.True(t, painted(c, 30, 150))

	// label region sits up and right of the vertex
	found := false
	for y := 120; y < 150 && !found; y++ {
		for x := 156; x < 220; x++ {
			if painted(c, x, y) {
				found = true
				break
			}
		}
	}
	assert.True(t, found)
}

func TestRenderEmptyCanvas(t *testing.T) {
	c := raster.New(0, 0)
	assert.NotPanics(t, func() {
		Render(c, []models.Annotation{{Type: models.AnnotationLine, Points: []models.Point{{}, {}}}})
	})
}

func TestRenderStoredFarPoints(t *testing.T) {
	c := raster.New(40, 20)
	stored := []models.Annotation{
		{Type: models.AnnotationLine, Color: "#ff0000", Points: []models.Point{{X: 10, Y: 50}, {X: 1e300, Y: 50}}},
		{Type: models.AnnotationAngle, Color: "#00ff00", Points: []models.Point{{X: -1e300, Y: 1e300}, {X: 50, Y: 50}, {X: math.NaN(), Y: 10}}},
		{Type: models.AnnotationCobb, Points: []models.Point{{X: math.Inf(1), Y: 0}}},
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		Render(c, stored)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("render did not finish")
	}
	assert.True(t, painted(c, 20, 10), "visible part of the line is drawn")
}
