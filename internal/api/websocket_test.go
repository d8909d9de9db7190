package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/biomech-visualizer/backend/internal/models"
)

func dialOverlay(t *testing.T, ts *testServer, query string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(ts.e)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/overlay/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, msgType)
	var msg WSMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func readStatus(t *testing.T, conn *websocket.Conn) WSStatusPayload {
	t.Helper()
	require.Equal(t, MsgTypeConnected, readJSON(t, conn).Type)
	msg := readJSON(t, conn)
	require.Equal(t, MsgTypeStatus, msg.Type)
	var status WSStatusPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &status))
	return status
}

func readFrameMessage(t *testing.T, conn *websocket.Conn) WSFrameMessage {
	t.Helper()
	for {
		msgType, data, err := conn.ReadMessage()
		require.NoError(t, err)
		if msgType != websocket.BinaryMessage {
			continue
		}
		var msg WSFrameMessage
		require.NoError(t, msgpack.Unmarshal(data, &msg))
		return msg
	}
}

func TestOverlayStreamRendersBinaryFrames(t *testing.T) {
	ts := newTestServer(t, nil)
	conn := dialOverlay(t, ts, "")
	assert.Equal(t, StreamModeLive, readStatus(t, conn).Mode)

	data, err := msgpack.Marshal(standingFrame(640, 480))
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, data))

	msg := readFrameMessage(t, conn)
	assert.Equal(t, MsgTypeFrame, msg.Type)
	require.NotNil(t, msg.Display)
	assert.Equal(t, 640, msg.Display.Width)
	assert.Equal(t, 480, msg.Display.Height)
	assert.True(t, msg.Metrics.Drawn)
	assert.InDelta(t, 180, msg.Metrics.Angle, 1e-6)
	assert.EqualValues(t, 1, msg.Stats.Rendered)
}

func TestOverlayStreamAcceptsJSONFrames(t *testing.T) {
	ts := newTestServer(t, nil)
	conn := dialOverlay(t, ts, "")
	readStatus(t, conn)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgTypePing}))
	assert.Equal(t, MsgTypePong, readJSON(t, conn).Type)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: "bogus"}))
	assert.Equal(t, MsgTypeError, readJSON(t, conn).Type)

	frame := models.FrameResults{Width: 100, Height: 50}
	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgTypeFrame, Payload: mustJSON(frame)}))

	msg := readFrameMessage(t, conn)
	assert.Equal(t, 100, msg.Display.Width)
	assert.Empty(t, msg.Display.Commands)
	assert.False(t, msg.Metrics.Drawn)
}

func TestOverlayStreamDegradesWithoutEstimator(t *testing.T) {
	ts := newTestServer(t, nil)
	conn := dialOverlay(t, ts, "?estimator=0")
	assert.Equal(t, StreamModeDegraded, readStatus(t, conn).Mode)

	data, err := msgpack.Marshal(standingFrame(64, 64))
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, data))

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgTypeStats}))
	msg := readJSON(t, conn)
	require.Equal(t, MsgTypeStats, msg.Type)
	var stats struct {
		Published uint64 `json:"published"`
	}
	require.NoError(t, json.Unmarshal(msg.Payload, &stats))
	assert.Zero(t, stats.Published)
}

func TestOverlayStreamReplay(t *testing.T) {
	ts := newTestServer(t, &Dependencies{
		Replay:     []models.FrameResults{standingFrame(320, 240), standingFrame(320, 240)},
		ReplayFPS:  50,
		ReplayLoop: true,
	})
	conn := dialOverlay(t, ts, "?source=replay")
	assert.Equal(t, StreamModeReplay, readStatus(t, conn).Mode)

	// a looping replay keeps producing past the end of the recording
	for i := 0; i < 4; i++ {
		msg := readFrameMessage(t, conn)
		assert.Equal(t, 320, msg.Display.Width)
		assert.True(t, msg.Metrics.Drawn)
	}
}

func TestOverlayStreamReplayReportsFinish(t *testing.T) {
	ts := newTestServer(t, &Dependencies{
		Replay:    []models.FrameResults{standingFrame(160, 120)},
		ReplayFPS: 50,
	})
	conn := dialOverlay(t, ts, "?source=replay")
	assert.Equal(t, StreamModeReplay, readStatus(t, conn).Mode)

	for {
		msgType, data, err := conn.ReadMessage()
		require.NoError(t, err)
		if msgType == websocket.BinaryMessage {
			continue
		}
		var msg WSMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		require.Equal(t, MsgTypeStatus, msg.Type)
		var status WSStatusPayload
		require.NoError(t, json.Unmarshal(msg.Payload, &status))
		assert.Equal(t, StreamModeReplay, status.Mode)
		assert.Equal(t, "replay finished", status.Message)
		return
	}
}

func TestOverlayStreamReplayWithoutRecording(t *testing.T) {
	ts := newTestServer(t, nil)
	conn := dialOverlay(t, ts, "?source=replay")
	assert.Equal(t, StreamModeDegraded, readStatus(t, conn).Mode)
}
