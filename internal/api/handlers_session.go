// handlers_session.go - Workspace lifecycle handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/biomech-visualizer/backend/internal/models"
)

// CreateSessionRequest opens a patient workspace. A missing initialPoints
// loads the patient's saved points.
type CreateSessionRequest struct {
	PatientID     string             `json:"patientId"`
	InitialPoints []models.PainPoint `json:"initialPoints,omitempty"`
	ReadOnly      bool               `json:"readOnly"`
}

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	sessionMgr SessionManager
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionMgr SessionManager) SessionHandler {
	return &SessionHandlerImpl{sessionMgr: sessionMgr}
}

// HandleCreateSession opens a new workspace
func (h *SessionHandlerImpl) HandleCreateSession(c echo.Context) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.PatientID == "" {
		return NewValidationError("patientId")
	}

	sess, err := h.sessionMgr.Create(c.Request().Context(), req.PatientID, req.InitialPoints, req.ReadOnly)
	if err != nil {
		return NewInternalError("failed to open session", err)
	}
	return c.JSON(http.StatusCreated, sess)
}

// HandleListSessions returns every open workspace
func (h *SessionHandlerImpl) HandleListSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sessionMgr.List())
}

// HandleGetSession returns a workspace summary
func (h *SessionHandlerImpl) HandleGetSession(c echo.Context) error {
	id := c.Param("id")
	sess, ok := h.sessionMgr.GetSession(id)
	if !ok {
		return NewNotFoundError("session", id)
	}
	return c.JSON(http.StatusOK, sess)
}

// HandleDeleteSession closes a workspace. Saved data is kept.
func (h *SessionHandlerImpl) HandleDeleteSession(c echo.Context) error {
	id := c.Param("id")
	if err := h.sessionMgr.Delete(id); err != nil {
		return FromError(err, "session", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleSessionKeepAlive keeps an idle workspace from being cleaned up
func (h *SessionHandlerImpl) HandleSessionKeepAlive(c echo.Context) error {
	id := c.Param("id")
	if !h.sessionMgr.TouchSession(id) {
		return NewNotFoundError("session", id)
	}
	log.Debugf("[Session %s] Keep-alive", id)
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
