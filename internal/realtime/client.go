package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/comunidad-app/backend/internal/models"
	"github.com/comunidad-app/backend/pkg/response"
)

const (
	pingPeriod     = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The Expo client sends no Origin header.
	CheckOrigin: func(*http.Request) bool { return true },
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client is one viewer connected to a room. Viewers only listen; writes go through the REST API.
type Client struct {
	ID     string
	Room   string
	UserID string
	Role   models.Role
	hub    *Hub
	conn   *websocket.Conn
	send   chan WSMessage
	logger *zap.Logger
}

// ServeWs handles GET /ws?event_id=&token=. Without event_id the client watches the whole collection.
func ServeWs(hub *Hub, logger *zap.Logger, authenticate func(token string) (models.User, error)) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			response.BadRequest(c, "token required")
			return
		}
		user, err := authenticate(token)
		if err != nil {
			response.Unauthorized(c, "invalid token")
			return
		}
		room := c.DefaultQuery("event_id", AllRoom)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err), zap.String("room", room))
			return
		}
		client := &Client{
			ID:     uuid.NewString(),
			Room:   room,
			UserID: user.ID,
			Role:   user.Role,
			hub:    hub,
			conn:   conn,
			send:   make(chan WSMessage, sendBuffer),
			logger: logger.With(zap.String("room", room), zap.String("user_id", user.ID)),
		}
		hub.Register(client)
		go client.writeLoop()
		client.readLoop()
	}
}

// readLoop answers viewer requests until the connection drops, then leaves the room.
func (c *Client) readLoop() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	extend := func() { _ = c.conn.SetReadDeadline(time.Now().Add(pongWait)) }
	extend()
	c.conn.SetPongHandler(func(string) error { extend(); return nil })

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("viewer connection closed", zap.Error(err))
			}
			return
		}
		extend()

		switch msg.Event {
		case "ping":
			c.push(Pong, nil)
		case "viewers":
			c.push(ViewerCount, map[string]int{"count": c.hub.Viewers(c.Room)})
		}
	}
}

func (c *Client) push(event string, payload any) {
	msg, ok := envelope(event, payload)
	if !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
