package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"concierge/internal/session"
)

// WebSocket upgrader configuration
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// wsRequest is one user utterance sent over the socket.
type wsRequest struct {
	Text string `json:"text"`
}

// wsEvent is a server-to-client frame: streamed reply chunks while the model
// generates, then the full turn view.
type wsEvent struct {
	Type    string      `json:"type"` // "chunk", "turn", "error"
	Content string      `json:"content,omitempty"`
	Turn    interface{} `json:"turn,omitempty"`
}

// wsConnection maintains the WebSocket connection for one session's chat.
// ctx lives as long as the connection; a disconnect cancels any in-flight
// model call.
type wsConnection struct {
	conn       *websocket.Conn
	send       chan []byte
	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	sess       *session.Session
	controller *session.Controller
	logger     *zap.Logger
}

// HandleWebSocket upgrades the connection and runs the streaming chat loop
// for a session.
func (s *Server) HandleWebSocket(c *gin.Context) {
	sess, ok := s.lookupSession(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	ws := &wsConnection{
		conn:       conn,
		send:       make(chan []byte, 256),
		ctx:        ctx,
		cancel:     cancel,
		sess:       sess,
		controller: s.controller,
		logger:     s.logger,
	}

	go ws.writePump()
	go ws.readPump()
}

// readPump pumps messages from the WebSocket connection to the turn handler.
// Turns run inline: a session's turns are strictly sequential.
func (c *wsConnection) readPump() {
	defer func() {
		c.cancel()
		close(c.send)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(64 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket error", zap.Error(err))
			}
			break
		}
		c.handleMessage(message)
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	}
}

// writePump pumps frames from the server to the WebSocket connection.
func (c *wsConnection) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes one incoming utterance and streams the reply.
func (c *wsConnection) handleMessage(message []byte) {
	var req wsRequest
	if err := json.Unmarshal(message, &req); err != nil {
		c.sendEvent(wsEvent{Type: "error", Content: "malformed message"})
		return
	}
	if req.Text == "" {
		c.sendEvent(wsEvent{Type: "error", Content: "text is required"})
		return
	}

	view := c.controller.StreamTurn(c.ctx, c.sess, req.Text, func(chunk string) error {
		c.sendEvent(wsEvent{Type: "chunk", Content: chunk})
		return nil
	})

	c.sendEvent(wsEvent{Type: "turn", Turn: view})
}

// sendEvent queues one frame for the client, dropping it if the buffer is
// full.
func (c *wsConnection) sendEvent(event wsEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		c.logger.Warn("failed to marshal websocket event", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case c.send <- data:
	default:
		c.logger.Warn("websocket buffer full, dropping message")
	}
}
