// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"github.com/labstack/echo/v4"

	"github.com/biomech-visualizer/backend/internal/models"
	"github.com/biomech-visualizer/backend/internal/overlay"
	"github.com/biomech-visualizer/backend/internal/painmap"
	"github.com/biomech-visualizer/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Images     storage.Store
	SessionMgr SessionManager
	Regions    *painmap.RegionMap
	Overlay    *overlay.Overlay
	// Replay, when set, is played to overlay clients that ask for the demo stream.
	Replay          []models.FrameResults
	ReplayFPS       float64
	ReplayLoop      bool
	MaxMessageBytes int64
	Version         string
}

// Handlers holds all handler instances
type Handlers struct {
	Health     HealthHandler
	Session    SessionHandler
	Point      PointHandler
	Annotation AnnotationHandler
	Overlay    OverlayHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:     NewHealthHandler(deps.Version, deps.SessionMgr),
		Session:    NewSessionHandler(deps.SessionMgr),
		Point:      NewPointHandler(deps.SessionMgr, deps.Regions),
		Annotation: NewAnnotationHandler(deps.SessionMgr, deps.Images),
		Overlay:    NewOverlayHandler(deps.Overlay, OverlayStreamConfig{
			Replay:          deps.Replay,
			ReplayFPS:       deps.ReplayFPS,
			ReplayLoop:      deps.ReplayLoop,
			MaxMessageBytes: deps.MaxMessageBytes,
		}),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Workspace routes
	sessions := apiGroup.Group("/sessions")
	sessions.POST("", handlers.Session.HandleCreateSession)
	sessions.GET("", handlers.Session.HandleListSessions)
	sessions.GET("/:id", handlers.Session.HandleGetSession)
	sessions.DELETE("/:id", handlers.Session.HandleDeleteSession)
	sessions.POST("/:id/keepalive", handlers.Session.HandleSessionKeepAlive)

	// Body map routes
	sessions.GET("/:id/points", handlers.Point.HandleListPoints)
	sessions.GET("/:id/points/msgpack", handlers.Point.HandleListPointsMsgpack)
	sessions.POST("/:id/points", handlers.Point.HandleAddPoint)
	sessions.POST("/:id/points/click", handlers.Point.HandlePointClick)
	sessions.POST("/:id/points/drag", handlers.Point.HandlePointDrag)
	sessions.PATCH("/:id/points/:pointId", handlers.Point.HandleUpdatePoint)
	sessions.DELETE("/:id/points/:pointId", handlers.Point.HandleRemovePoint)
	sessions.DELETE("/:id/points", handlers.Point.HandleClearPoints)
	sessions.PUT("/:id/selection", handlers.Point.HandleSetSelection)
	apiGroup.GET("/bodymap/regions", handlers.Point.HandleGetRegions)

	// Annotation routes
	sessions.PUT("/:id/annotations/tool", handlers.Annotation.HandleSelectTool)
	sessions.POST("/:id/annotations/click", handlers.Annotation.HandleAnnotationClick)
	sessions.GET("/:id/annotations", handlers.Annotation.HandleListAnnotations)
	sessions.DELETE("/:id/annotations", handlers.Annotation.HandleClearAnnotations)
	sessions.GET("/:id/annotations/render", handlers.Annotation.HandleRenderAnnotations)
	sessions.POST("/:id/image", handlers.Annotation.HandleUploadImage)
	sessions.GET("/:id/image", handlers.Annotation.HandleGetImage)
	sessions.DELETE("/:id/image", handlers.Annotation.HandleDeleteImage)
	apiGroup.GET("/images", handlers.Annotation.HandleListImages)

	// Live overlay routes
	apiGroup.POST("/overlay/frame", handlers.Overlay.HandleRenderFrame)
	apiGroup.GET("/overlay/ws", handlers.Overlay.HandleOverlayStream)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo) {
	e.HTTPErrorHandler = ErrorHandler
}
