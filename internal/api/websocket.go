package api

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/biomech-visualizer/backend/internal/models"
	"github.com/biomech-visualizer/backend/internal/overlay"
)

// WebSocket message types for the overlay protocol
const (
	// Client -> Server messages
	MsgTypeFrame = "frame"
	MsgTypePing  = "ping"
	MsgTypeStats = "stats"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeStatus    = "status"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// Stream modes reported in the status message.
const (
	StreamModeLive     = "live"
	StreamModeReplay   = "replay"
	StreamModeDegraded = "degraded"
)

// WSMessage is a JSON text message. Frames may also arrive as msgpack
// binary messages holding a bare FrameResults.
type WSMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WSStatusPayload tells the client whether overlays will be drawn.
type WSStatusPayload struct {
	Mode    string `json:"mode"`
	Message string `json:"message,omitempty"`
}

// WSErrorResponse reports a rejected client message
type WSErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WSFrameMessage is the binary msgpack reply for each rendered frame.
type WSFrameMessage struct {
	Type      string               `msgpack:"type"`
	Display   *overlay.DisplayList `msgpack:"display"`
	Metrics   overlay.FrameMetrics `msgpack:"metrics"`
	Stats     overlay.MailboxStats `msgpack:"stats"`
	Timestamp int64                `msgpack:"timestamp,omitempty"`
}

// overlayConn serializes writes to one websocket.
type overlayConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (oc *overlayConn) sendJSON(msg WSMessage) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	if err := oc.ws.WriteJSON(msg); err != nil {
		log.Debugf("[Overlay] Failed to send message: %v", err)
	}
}

func (oc *overlayConn) sendBinary(data []byte) error {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.ws.WriteMessage(websocket.BinaryMessage, data)
}

func (oc *overlayConn) sendError(message, code string) {
	oc.sendJSON(WSMessage{
		Type:      MsgTypeError,
		Timestamp: time.Now().UnixMilli(),
		Payload:   mustJSON(WSErrorResponse{Message: message, Code: code}),
	})
}

func (oc *overlayConn) sendStatus(mode, message string) {
	oc.sendJSON(WSMessage{
		Type:      MsgTypeStatus,
		Timestamp: time.Now().UnixMilli(),
		Payload:   mustJSON(WSStatusPayload{Mode: mode, Message: message}),
	})
}

// HandleOverlayStream upgrades to a websocket that renders pose frames.
// Query: ?source=replay plays the configured recording; ?estimator=0 tells
// the server the client has no pose estimator.
func (h *OverlayHandlerImpl) HandleOverlayStream(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	ws.SetReadLimit(h.cfg.MaxMessageBytes)

	conn := &overlayConn{ws: ws}
	log.Infof("[Overlay] Client connected from %s", c.RealIP())

	var (
		src    overlay.Source
		stream *overlay.StreamSource
		replay *overlay.ReplaySource
		mode   = StreamModeLive
	)
	if c.QueryParam("source") == StreamModeReplay {
		replay = overlay.NewReplaySource(h.cfg.Replay, h.cfg.ReplayFPS, h.cfg.ReplayLoop)
		src = replay
		mode = StreamModeReplay
	} else {
		stream = overlay.NewStreamSource(c.QueryParam("estimator") != "0")
		src = stream
	}

	mailbox := overlay.NewMailbox()
	src.OnFrame(mailbox.Publish)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn.sendJSON(WSMessage{Type: MsgTypeConnected, Timestamp: time.Now().UnixMilli()})

	if err := src.Start(ctx); err != nil {
		if !errors.Is(err, overlay.ErrEstimatorUnavailable) {
			conn.sendError("Failed to start frame source: "+err.Error(), "SOURCE_ERROR")
			return nil
		}
		log.Warnf("[Overlay] %v, streaming without overlay", err)
		mode = StreamModeDegraded
	}
	defer src.Stop()
	conn.sendStatus(mode, "")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.renderLoop(conn, mailbox)
	}()

	disconnected := make(chan struct{})
	if replay != nil && mode == StreamModeReplay {
		finished := replay.Done()
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case <-finished:
				log.Infof("[Overlay] Replay finished")
				conn.sendStatus(StreamModeReplay, "replay finished")
			case <-disconnected:
			}
		}()
	}

	h.readLoop(conn, stream, mailbox)

	close(disconnected)
	mailbox.Close()
	wg.Wait()
	stats := mailbox.Stats()
	log.Infof("[Overlay] Client disconnected (published=%d rendered=%d dropped=%d)",
		stats.Published, stats.Rendered, stats.Dropped)
	return nil
}

// readLoop consumes client messages until the connection closes.
// stream is nil in replay mode, where client frames are ignored.
func (h *OverlayHandlerImpl) readLoop(conn *overlayConn, stream *overlay.StreamSource, mailbox *overlay.Mailbox) {
	for {
		msgType, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("[Overlay] Connection error: %v", err)
			}
			return
		}

		if msgType == websocket.BinaryMessage {
			var frame models.FrameResults
			if err := msgpack.Unmarshal(data, &frame); err != nil {
				conn.sendError("Invalid msgpack frame: "+err.Error(), "INVALID_PAYLOAD")
				continue
			}
			if stream != nil {
				stream.Push(frame)
			}
			continue
		}

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.sendError("Invalid message: "+err.Error(), "INVALID_PAYLOAD")
			continue
		}
		switch msg.Type {
		case MsgTypePing:
			conn.sendJSON(WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()})
		case MsgTypeStats:
			conn.sendJSON(WSMessage{
				Type:      MsgTypeStats,
				Timestamp: time.Now().UnixMilli(),
				Payload:   mustJSON(mailbox.Stats()),
			})
		case MsgTypeFrame:
			var frame models.FrameResults
			if err := json.Unmarshal(msg.Payload, &frame); err != nil {
				conn.sendError("Invalid frame payload: "+err.Error(), "INVALID_PAYLOAD")
				continue
			}
			if stream != nil {
				stream.Push(frame)
			}
		default:
			conn.sendError("Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}
}

// renderLoop draws the latest frame each time one is available.
func (h *OverlayHandlerImpl) renderLoop(conn *overlayConn, mailbox *overlay.Mailbox) {
	display := &overlay.DisplayList{}
	for {
		frame, ok := mailbox.Next()
		if !ok {
			return
		}
		metrics := h.overlay.Draw(display, frame)
		data, err := msgpack.Marshal(WSFrameMessage{
			Type:      MsgTypeFrame,
			Display:   display,
			Metrics:   metrics,
			Stats:     mailbox.Stats(),
			Timestamp: frame.Timestamp,
		})
		if err != nil {
			log.Errorf("[Overlay] Encoding frame: %v", err)
			continue
		}
		if err := conn.sendBinary(data); err != nil {
			log.Debugf("[Overlay] Write failed: %v", err)
			return
		}
	}
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
