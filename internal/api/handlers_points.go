// handlers_points.go - Body map (pain point) handlers
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/biomech-visualizer/backend/internal/geometry"
	"github.com/biomech-visualizer/backend/internal/models"
	"github.com/biomech-visualizer/backend/internal/painmap"
	"github.com/biomech-visualizer/backend/internal/session"
)

// MIMEApplicationMsgpack is the content type of msgpack responses.
const MIMEApplicationMsgpack = "application/x-msgpack"

// Drag phases accepted by the drag endpoint.
const (
	DragPhaseDown = "down"
	DragPhaseMove = "move"
	DragPhaseUp   = "up"
)

var errReadOnly = NewForbiddenError("session is read-only")

// PointsResponse lists the points facing the viewer. Stats cover every point.
type PointsResponse struct {
	Rotation float64            `json:"rotation" msgpack:"rotation"`
	Points   []models.PainPoint `json:"points" msgpack:"points"`
	Stats    models.PainStats   `json:"stats" msgpack:"stats"`
	Selected string             `json:"selected,omitempty" msgpack:"selected,omitempty"`
}

// AddPointRequest places a point at normalized coordinates.
type AddPointRequest struct {
	RegionLabel string  `json:"regionLabel"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Angle       float64 `json:"angle"`
}

// PointClickRequest is a pointer click on the diagram surface.
type PointClickRequest struct {
	ClientX     float64       `json:"clientX"`
	ClientY     float64       `json:"clientY"`
	Rect        geometry.Rect `json:"rect"`
	Rotation    float64       `json:"rotation"`
	RegionLabel string        `json:"regionLabel,omitempty"`
}

// DragRequest carries one phase of a pointer drag.
type DragRequest struct {
	Phase   string        `json:"phase"`
	PointID string        `json:"pointId,omitempty"`
	Button  int           `json:"button"`
	ClientX float64       `json:"clientX"`
	ClientY float64       `json:"clientY"`
	Rect    geometry.Rect `json:"rect"`
}

// SelectionRequest sets the highlighted point. An empty id clears it.
type SelectionRequest struct {
	PointID string `json:"pointId"`
}

// PointResult reports the outcome of an event that may be ignored.
type PointResult struct {
	Applied  bool              `json:"applied"`
	Point    *models.PainPoint `json:"point,omitempty"`
	Selected string            `json:"selected,omitempty"`
	Dragging string            `json:"dragging,omitempty"`
}

// PointHandlerImpl implements the PointHandler interface
type PointHandlerImpl struct {
	sessionMgr SessionManager
	regions    *painmap.RegionMap
}

// NewPointHandler creates a new point handler
func NewPointHandler(sessionMgr SessionManager, regions *painmap.RegionMap) PointHandler {
	if regions == nil {
		regions = painmap.DefaultRegionMap()
	}
	return &PointHandlerImpl{
		sessionMgr: sessionMgr,
		regions:    regions,
	}
}

// HandleListPoints returns the points visible at ?rotation=θ (default 0)
func (h *PointHandlerImpl) HandleListPoints(c echo.Context) error {
	id := c.Param("id")
	rotation := 0.0
	if raw := c.QueryParam("rotation"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return NewBadRequestError("invalid rotation", err)
		}
		if !geometry.Finite(v) {
			return NewValidationError("rotation")
		}
		rotation = v
	}

	var resp PointsResponse
	err := h.sessionMgr.With(id, func(w *session.Workspace) error {
		resp = PointsResponse{
			Rotation: rotation,
			Points:   w.Points.Visible(rotation),
			Stats:    w.Points.Stats(),
			Selected: w.Points.Selected(),
		}
		return nil
	})
	if err != nil {
		return FromError(err, "session", id)
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleListPointsMsgpack exports every point, hidden ones included, as msgpack
func (h *PointHandlerImpl) HandleListPointsMsgpack(c echo.Context) error {
	id := c.Param("id")

	var resp PointsResponse
	err := h.sessionMgr.With(id, func(w *session.Workspace) error {
		resp = PointsResponse{
			Points:   w.Points.Points(),
			Stats:    w.Points.Stats(),
			Selected: w.Points.Selected(),
		}
		return nil
	})
	if err != nil {
		return FromError(err, "session", id)
	}

	data, err := msgpack.Marshal(resp)
	if err != nil {
		return NewInternalError("failed to encode points", err)
	}
	return c.Blob(http.StatusOK, MIMEApplicationMsgpack, data)
}

// HandleAddPoint places a point at normalized coordinates
func (h *PointHandlerImpl) HandleAddPoint(c echo.Context) error {
	id := c.Param("id")
	var req AddPointRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if !geometry.InSurface(models.Point{X: req.X, Y: req.Y}) {
		return NewValidationError("x/y")
	}
	if !geometry.Finite(req.Angle) {
		return NewValidationError("angle")
	}

	var point models.PainPoint
	err := h.sessionMgr.With(id, func(w *session.Workspace) error {
		if w.Points.ReadOnly() {
			return errReadOnly
		}
		p, ok := w.Points.AddPoint(req.RegionLabel, req.X, req.Y, req.Angle)
		if !ok {
			return NewValidationError("x/y")
		}
		point = p
		return nil
	})
	if err != nil {
		return FromError(err, "session", id)
	}
	return c.JSON(http.StatusCreated, point)
}

// HandlePointClick places a point where the pointer hit the diagram
func (h *PointHandlerImpl) HandlePointClick(c echo.Context) error {
	id := c.Param("id")
	var req PointClickRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	var result PointResult
	err := h.sessionMgr.With(id, func(w *session.Workspace) error {
		if w.Points.ReadOnly() {
			return errReadOnly
		}
		p, ok := w.Points.Click(req.ClientX, req.ClientY, req.Rect, req.Rotation, req.RegionLabel)
		result.Applied = ok
		if ok {
			result.Point = &p
		}
		result.Selected = w.Points.Selected()
		return nil
	})
	if err != nil {
		return FromError(err, "session", id)
	}
	if result.Applied {
		return c.JSON(http.StatusCreated, result)
	}
	return c.JSON(http.StatusOK, result)
}

// HandlePointDrag drives the pointer down/move/up sequence
func (h *PointHandlerImpl) HandlePointDrag(c echo.Context) error {
	id := c.Param("id")
	var req DragRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	var result PointResult
	err := h.sessionMgr.With(id, func(w *session.Workspace) error {
		switch req.Phase {
		case DragPhaseDown:
			if req.PointID == "" {
				return NewValidationError("pointId")
			}
			if _, ok := w.Points.Get(req.PointID); !ok {
				return NewNotFoundError("point", req.PointID)
			}
			result.Applied = w.Points.PointerDown(req.PointID, req.Button)
		case DragPhaseMove:
			p, ok := w.Points.PointerMove(req.ClientX, req.ClientY, req.Rect)
			result.Applied = ok
			if ok {
				result.Point = &p
			}
		case DragPhaseUp:
			result.Applied = w.Points.Dragging() != ""
			w.Points.PointerUp()
		default:
			return NewValidationError("phase")
		}
		result.Selected = w.Points.Selected()
		result.Dragging = w.Points.Dragging()
		return nil
	})
	if err != nil {
		return FromError(err, "session", id)
	}
	return c.JSON(http.StatusOK, result)
}

// HandleUpdatePoint applies an explicit edit to one point
func (h *PointHandlerImpl) HandleUpdatePoint(c echo.Context) error {
	id := c.Param("id")
	pointID := c.Param("pointId")
	var patch models.PointPatch
	if err := c.Bind(&patch); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if patch.Type != nil && !models.ValidPainTypes[*patch.Type] {
		return NewValidationError("type")
	}

	var point models.PainPoint
	err := h.sessionMgr.With(id, func(w *session.Workspace) error {
		if w.Points.ReadOnly() {
			return errReadOnly
		}
		p, ok := w.Points.UpdatePoint(pointID, patch)
		if !ok {
			return NewNotFoundError("point", pointID)
		}
		point = p
		return nil
	})
	if err != nil {
		return FromError(err, "session", id)
	}
	return c.JSON(http.StatusOK, point)
}

// HandleRemovePoint deletes one point
func (h *PointHandlerImpl) HandleRemovePoint(c echo.Context) error {
	id := c.Param("id")
	pointID := c.Param("pointId")

	err := h.sessionMgr.With(id, func(w *session.Workspace) error {
		if w.Points.ReadOnly() {
			return errReadOnly
		}
		if !w.Points.RemovePoint(pointID) {
			return NewNotFoundError("point", pointID)
		}
		return nil
	})
	if err != nil {
		return FromError(err, "session", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleClearPoints removes every point of the workspace
func (h *PointHandlerImpl) HandleClearPoints(c echo.Context) error {
	id := c.Param("id")

	err := h.sessionMgr.With(id, func(w *session.Workspace) error {
		if !w.Points.Clear() {
			return errReadOnly
		}
		return nil
	})
	if err != nil {
		return FromError(err, "session", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleSetSelection sets the highlighted point from the host
func (h *PointHandlerImpl) HandleSetSelection(c echo.Context) error {
	id := c.Param("id")
	var req SelectionRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	var selected string
	err := h.sessionMgr.With(id, func(w *session.Workspace) error {
		w.Points.Select(req.PointID)
		selected = w.Points.Selected()
		if selected != req.PointID {
			return NewNotFoundError("point", req.PointID)
		}
		return nil
	})
	if err != nil {
		return FromError(err, "session", id)
	}
	return c.JSON(http.StatusOK, SelectionRequest{PointID: selected})
}

// HandleGetRegions returns the body region map used for muscle groups
func (h *PointHandlerImpl) HandleGetRegions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.regions)
}
