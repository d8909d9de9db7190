// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/biomech-visualizer/backend/internal/models"
	"github.com/biomech-visualizer/backend/internal/session"
)

// SessionHandler handles workspace lifecycle operations
type SessionHandler interface {
	HandleCreateSession(c echo.Context) error
	HandleListSessions(c echo.Context) error
	HandleGetSession(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
	HandleSessionKeepAlive(c echo.Context) error
}

// PointHandler handles body map operations
type PointHandler interface {
	HandleListPoints(c echo.Context) error
	HandleListPointsMsgpack(c echo.Context) error
	HandleAddPoint(c echo.Context) error
	HandlePointClick(c echo.Context) error
	HandlePointDrag(c echo.Context) error
	HandleUpdatePoint(c echo.Context) error
	HandleRemovePoint(c echo.Context) error
	HandleClearPoints(c echo.Context) error
	HandleSetSelection(c echo.Context) error
	HandleGetRegions(c echo.Context) error
}

// AnnotationHandler handles measurement board operations
type AnnotationHandler interface {
	HandleSelectTool(c echo.Context) error
	HandleAnnotationClick(c echo.Context) error
	HandleListAnnotations(c echo.Context) error
	HandleClearAnnotations(c echo.Context) error
	HandleUploadImage(c echo.Context) error
	HandleListImages(c echo.Context) error
	HandleGetImage(c echo.Context) error
	HandleDeleteImage(c echo.Context) error
	HandleRenderAnnotations(c echo.Context) error
}

// OverlayHandler handles live pose overlay operations
type OverlayHandler interface {
	HandleRenderFrame(c echo.Context) error
	HandleOverlayStream(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SessionManager defines the interface for workspace management
// This allows mocking in tests
type SessionManager interface {
	Create(ctx context.Context, patientID string, initial []models.PainPoint, readOnly bool) (models.Session, error)
	With(id string, fn func(w *session.Workspace) error) error
	GetSession(id string) (models.Session, bool)
	TouchSession(id string) bool
	Delete(id string) error
	List() []models.Session
	Count() int
}

var _ SessionManager = (*session.Manager)(nil)
