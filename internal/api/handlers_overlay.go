// handlers_overlay.go - Live pose overlay handlers
package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/biomech-visualizer/backend/internal/models"
	"github.com/biomech-visualizer/backend/internal/overlay"
)

// DefaultMaxMessageBytes bounds one inbound overlay frame.
const DefaultMaxMessageBytes = 512 * 1024

// OverlayStreamConfig configures the overlay websocket.
type OverlayStreamConfig struct {
	// Replay is a recorded frame list served to clients that ask for ?source=replay.
	Replay    []models.FrameResults
	ReplayFPS float64
	// ReplayLoop restarts the recording after its last frame. Without it
	// clients get a "replay finished" status when playback ends.
	ReplayLoop      bool
	MaxMessageBytes int64
}

// OverlayHandlerImpl implements the OverlayHandler interface
type OverlayHandlerImpl struct {
	overlay  *overlay.Overlay
	cfg      OverlayStreamConfig
	upgrader websocket.Upgrader
}

// NewOverlayHandler creates a new overlay handler
func NewOverlayHandler(o *overlay.Overlay, cfg OverlayStreamConfig) OverlayHandler {
	if o == nil {
		o = overlay.New(overlay.DefaultConfig())
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = DefaultMaxMessageBytes
	}
	return &OverlayHandlerImpl{
		overlay: o,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
	}
}

// HandleRenderFrame draws one frame of landmarks. The body is JSON or, with
// a msgpack content type, msgpack. The response is a PNG, or the recorded
// display list as msgpack when ?format=displaylist.
func (h *OverlayHandlerImpl) HandleRenderFrame(c echo.Context) error {
	frame, err := readFrame(c)
	if err != nil {
		return err
	}
	if frame.Width <= 0 || frame.Height <= 0 || frame.Width > maxRenderSize || frame.Height > maxRenderSize {
		return NewValidationError("width/height")
	}

	if c.QueryParam("format") == "displaylist" {
		dl := &overlay.DisplayList{}
		metrics := h.overlay.Draw(dl, frame)
		data, err := dl.EncodeMsgpack()
		if err != nil {
			return NewInternalError("failed to encode display list", err)
		}
		setMetricHeaders(c, metrics)
		return c.Blob(http.StatusOK, MIMEApplicationMsgpack, data)
	}

	canvas := overlay.NewRasterCanvas()
	metrics := h.overlay.Draw(canvas, frame)
	data, err := writePNG(canvas)
	if err != nil {
		return NewInternalError("failed to render frame", err)
	}
	setMetricHeaders(c, metrics)
	return c.Blob(http.StatusOK, "image/png", data)
}

func readFrame(c echo.Context) (models.FrameResults, error) {
	var frame models.FrameResults
	if strings.Contains(c.Request().Header.Get(echo.HeaderContentType), "msgpack") {
		data, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return frame, NewBadRequestError("failed to read body", err)
		}
		if err := msgpack.Unmarshal(data, &frame); err != nil {
			return frame, NewBadRequestError("invalid msgpack frame", err)
		}
		return frame, nil
	}
	if err := c.Bind(&frame); err != nil {
		return frame, NewBadRequestError("invalid frame", err)
	}
	return frame, nil
}

func setMetricHeaders(c echo.Context, m overlay.FrameMetrics) {
	header := c.Response().Header()
	header.Set("X-Overlay-Bones", fmt.Sprint(m.Bones))
	header.Set("X-Overlay-Joints", fmt.Sprint(m.Joints))
	if m.Drawn {
		header.Set("X-Overlay-Angle", fmt.Sprintf("%.1f", m.Angle))
	}
}
