// Package ws serves the bidirectional audio streaming websocket the
// call-control platform opens after a call is answered.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"voicebridge-backend/internal/acs"
	"voicebridge-backend/internal/session"
	"voicebridge-backend/pkg/logger"
	"voicebridge-backend/pkg/metrics"
)

// ModelDialer opens a fresh speech model session for one connection
type ModelDialer func(ctx context.Context) (session.ModelConn, error)

var mediaUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// The platform connects server-to-server and sends no Origin
		return true
	},
}

// MediaHandler accepts media streaming connections and runs one speech
// session handler per connection.
type MediaHandler struct {
	dial    ModelDialer
	tools   session.ToolInvoker
	metrics *metrics.Metrics
}

// NewMediaHandler creates the websocket front door
func NewMediaHandler(dial ModelDialer, tools session.ToolInvoker, m *metrics.Metrics) *MediaHandler {
	return &MediaHandler{dial: dial, tools: tools, metrics: m}
}

// ServeWS upgrades the connection, starts a speech session, and relays
// inbound text frames until disconnect or error. Every exit path closes
// both the websocket and the model session.
func (h *MediaHandler) ServeWS(c *gin.Context) {
	conn, err := mediaUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.metrics.WebSocketConnected()
	defer h.metrics.WebSocketDisconnected()
	logger.Info("media streaming client connected", zap.String("remote_addr", conn.RemoteAddr().String()))

	ctx := c.Request.Context()

	modelConn, err := h.dial(ctx)
	if err != nil {
		logger.Error("failed to open model session", zap.Error(err))
		return
	}

	handler := session.New(modelConn, newFrameWriter(conn), h.tools, h.metrics)
	defer handler.Close()

	if err := handler.Start(ctx); err != nil {
		logger.Error("failed to start speech session", zap.Error(err))
		return
	}

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket connection closed", zap.Error(err))
				h.metrics.RecordWebSocketError()
			} else {
				logger.Info("media streaming client disconnected")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		h.metrics.RecordWebSocketMessage("inbound")
		handler.HandleMediaFrame(data)
		handler.SendWelcome()
	}
}

// frameWriter serializes outbound frames onto the media websocket. The
// model event loop is the only steady-state writer, but close frames
// can race with it, so writes take a lock.
type frameWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newFrameWriter(conn *websocket.Conn) *frameWriter {
	return &frameWriter{conn: conn}
}

// SendFrame writes one JSON text frame to the caller-facing channel
func (w *frameWriter) SendFrame(frame acs.OutboundFrame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, payload)
}
