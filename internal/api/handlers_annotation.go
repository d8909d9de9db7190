// handlers_annotation.go - Measurement board handlers
package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/biomech-visualizer/backend/internal/annotation"
	"github.com/biomech-visualizer/backend/internal/geometry"
	"github.com/biomech-visualizer/backend/internal/models"
	"github.com/biomech-visualizer/backend/internal/raster"
	"github.com/biomech-visualizer/backend/internal/session"
	"github.com/biomech-visualizer/backend/internal/storage"
)

// SelectToolRequest activates a measurement tool. An empty tool deactivates.
type SelectToolRequest struct {
	Tool  models.AnnotationType `json:"tool"`
	Color string                `json:"color,omitempty"`
}

// AnnotationClickRequest is a pointer click on the image surface. When
// Viewport is set, Rect is the untransformed surface and the viewport is
// applied to it; otherwise Rect is the on-screen bounding rectangle.
type AnnotationClickRequest struct {
	ClientX  float64            `json:"clientX"`
	ClientY  float64            `json:"clientY"`
	Rect     geometry.Rect      `json:"rect"`
	Viewport *geometry.Viewport `json:"viewport,omitempty"`
}

// BoardResponse is the board snapshot returned by every annotation route.
type BoardResponse struct {
	annotation.State
	ImageID string `json:"imageId,omitempty"`
}

// AnnotationClickResponse reports the annotation touched by a click.
type AnnotationClickResponse struct {
	Applied    bool               `json:"applied"`
	Annotation *models.Annotation `json:"annotation,omitempty"`
}

// AnnotationHandlerImpl implements the AnnotationHandler interface
type AnnotationHandlerImpl struct {
	sessionMgr SessionManager
	images     storage.Store
}

// NewAnnotationHandler creates a new annotation handler
func NewAnnotationHandler(sessionMgr SessionManager, images storage.Store) AnnotationHandler {
	return &AnnotationHandlerImpl{
		sessionMgr: sessionMgr,
		images:     images,
	}
}

func boardSnapshot(w *session.Workspace) BoardResponse {
	state := w.Board.State()
	state.Annotations = w.Board.Annotations()
	return BoardResponse{State: state, ImageID: w.ImageID()}
}

// HandleSelectTool activates a tool and color
func (h *AnnotationHandlerImpl) HandleSelectTool(c echo.Context) error {
	id := c.Param("id")
	var req SelectToolRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Tool != models.AnnotationNone && !models.ValidAnnotationTypes[req.Tool] {
		return NewValidationError("tool")
	}
	if req.Color != "" {
		if _, err := raster.ParseHex(req.Color); err != nil {
			return NewBadRequestError("invalid color", err)
		}
	}

	var resp BoardResponse
	err := h.sessionMgr.With(id, func(w *session.Workspace) error {
		w.Board.SetTool(req.Tool, req.Color)
		resp = boardSnapshot(w)
		return nil
	})
	if err != nil {
		return FromError(err, "session", id)
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleAnnotationClick applies one click to the board
func (h *AnnotationHandlerImpl) HandleAnnotationClick(c echo.Context) error {
	id := c.Param("id")
	var req AnnotationClickRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	rect := req.Rect
	if req.Viewport != nil {
		rect = req.Viewport.Apply(rect)
	}

	var resp AnnotationClickResponse
	err := h.sessionMgr.With(id, func(w *session.Workspace) error {
		a, ok := w.Board.Click(req.ClientX, req.ClientY, rect)
		resp.Applied = ok
		if ok {
			resp.Annotation = &a
		}
		return nil
	})
	if err != nil {
		return FromError(err, "session", id)
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleListAnnotations returns the board snapshot
func (h *AnnotationHandlerImpl) HandleListAnnotations(c echo.Context) error {
	id := c.Param("id")
	var resp BoardResponse
	err := h.sessionMgr.With(id, func(w *session.Workspace) error {
		resp = boardSnapshot(w)
		return nil
	})
	if err != nil {
		return FromError(err, "session", id)
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleClearAnnotations removes every annotation on the board
func (h *AnnotationHandlerImpl) HandleClearAnnotations(c echo.Context) error {
	id := c.Param("id")
	err := h.sessionMgr.With(id, func(w *session.Workspace) error {
		w.Board.Clear()
		return nil
	})
	if err != nil {
		return FromError(err, "session", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleUploadImage stores a static image and switches the board to it
func (h *AnnotationHandlerImpl) HandleUploadImage(c echo.Context) error {
	id := c.Param("id")
	if _, ok := h.sessionMgr.GetSession(id); !ok {
		return NewNotFoundError("session", id)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}
	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return NewInternalError("failed to read uploaded file", err)
	}
	cfg, format, err := sniffImage(data)
	if err != nil {
		return NewBadRequestError("unsupported image", err)
	}
	if cfg.Width > maxRenderSize || cfg.Height > maxRenderSize {
		return NewBadRequestError(fmt.Sprintf("image exceeds %dx%d pixels", maxRenderSize, maxRenderSize), nil)
	}

	info, err := h.images.Save(file.Filename, "image/"+format, bytes.NewReader(data))
	if err != nil {
		return NewInternalError("failed to save image", err)
	}

	var resp BoardResponse
	err = h.sessionMgr.With(id, func(w *session.Workspace) error {
		if err := w.SetImage(c.Request().Context(), info.ID); err != nil {
			return err
		}
		resp = boardSnapshot(w)
		return nil
	})
	if err != nil {
		return FromError(err, "session", id)
	}

	log.Infof("[Image %s] Uploaded %s (%dx%d %s, %d bytes)", info.ID, info.Name, cfg.Width, cfg.Height, format, info.Size)
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"file":  info,
		"board": resp,
	})
}

// HandleListImages returns the most recent uploads, newest first. ?limit
// caps the list.
func (h *AnnotationHandlerImpl) HandleListImages(c echo.Context) error {
	limit, err := sizeParam(c, "limit", 0, 0)
	if err != nil {
		return err
	}
	list, err := h.images.List(limit)
	if err != nil {
		return NewInternalError("failed to list images", err)
	}
	return c.JSON(http.StatusOK, list)
}

// HandleGetImage streams the image the board is drawn on
func (h *AnnotationHandlerImpl) HandleGetImage(c echo.Context) error {
	id := c.Param("id")
	var imageID string
	err := h.sessionMgr.With(id, func(w *session.Workspace) error {
		imageID = w.ImageID()
		return nil
	})
	if err != nil {
		return FromError(err, "session", id)
	}
	if imageID == "" {
		return NewNotFoundError("image", id)
	}

	info, err := h.images.Get(imageID)
	if err != nil {
		return FromError(err, "image", imageID)
	}
	rc, err := h.images.Open(imageID)
	if err != nil {
		return FromError(err, "image", imageID)
	}
	defer rc.Close()
	return c.Stream(http.StatusOK, info.ContentType, rc)
}

// HandleDeleteImage removes the board's image and switches back to the
// session's own board
func (h *AnnotationHandlerImpl) HandleDeleteImage(c echo.Context) error {
	id := c.Param("id")
	var (
		imageID string
		resp    BoardResponse
	)
	err := h.sessionMgr.With(id, func(w *session.Workspace) error {
		imageID = w.ImageID()
		if imageID == "" {
			return NewNotFoundError("image", id)
		}
		if err := h.images.Delete(imageID); err != nil {
			return FromError(err, "image", imageID)
		}
		if err := w.SetImage(c.Request().Context(), ""); err != nil {
			return err
		}
		resp = boardSnapshot(w)
		return nil
	})
	if err != nil {
		return FromError(err, "session", id)
	}

	log.Infof("[Image %s] Deleted from session %s", imageID, id)
	return c.JSON(http.StatusOK, resp)
}

// HandleRenderAnnotations draws the board over its image and returns a PNG.
// Without an image the board is drawn on a transparent canvas of
// ?width x ?height. ?maxWidth downsizes the image first.
func (h *AnnotationHandlerImpl) HandleRenderAnnotations(c echo.Context) error {
	id := c.Param("id")

	var (
		imageID string
		list    []models.Annotation
	)
	err := h.sessionMgr.With(id, func(w *session.Workspace) error {
		imageID = w.ImageID()
		list = w.Board.Annotations()
		return nil
	})
	if err != nil {
		return FromError(err, "session", id)
	}

	var canvas *raster.Canvas
	if imageID != "" {
		rc, err := h.images.Open(imageID)
		if err != nil {
			return FromError(err, "image", imageID)
		}
		defer rc.Close()
		canvas, _, err = decodeImage(rc)
		if err != nil {
			return NewInternalError("failed to decode image", err)
		}
	} else {
		width, err := sizeParam(c, "width", defaultBlankSize, 1)
		if err != nil {
			return err
		}
		height, err := sizeParam(c, "height", defaultBlankSize, 1)
		if err != nil {
			return err
		}
		canvas = raster.New(width, height)
	}

	maxWidth, err := sizeParam(c, "maxWidth", 0, 0)
	if err != nil {
		return err
	}
	canvas = canvas.ScaleToWidth(maxWidth)
	annotation.Render(canvas, list)

	data, err := writePNG(canvas)
	if err != nil {
		return NewInternalError("failed to render annotations", err)
	}
	return c.Blob(http.StatusOK, "image/png", data)
}

func sizeParam(c echo.Context, name string, def, lo int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > maxRenderSize {
		return 0, NewValidationError(name)
	}
	return v, nil
}
