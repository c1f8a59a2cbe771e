package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/your-org/brandtrack/internal/auth"
	"github.com/your-org/brandtrack/internal/observability"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// wsConn is the connection surface the registry needs; *websocket.Conn
// satisfies it.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one live connection for one user. At most one Client per user id
// is registered at a time.
type Client struct {
	userID    string
	conn      wsConn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
		observability.WSConnections.Dec()
	})
}

// Registry maps user ids to live connections for real-time delivery. One
// mutex covers both lookup and register/deregister; every operation is a
// cheap map access.
type Registry struct {
	mu      sync.Mutex
	clients map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Register replaces any prior connection for the user: the old handle is
// closed, the new one takes its slot.
func (r *Registry) Register(userID string, conn wsConn) *Client {
	client := &Client{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, 64),
		done:   make(chan struct{}),
	}

	r.mu.Lock()
	prev := r.clients[userID]
	r.clients[userID] = client
	r.mu.Unlock()

	if prev != nil {
		prev.close()
		slog.Debug("ws connection replaced", "user", userID)
	}
	observability.WSConnections.Inc()
	return client
}

// remove deregisters the client if it still owns the user's slot. Safe to
// call multiple times and concurrently with Send.
func (r *Registry) remove(c *Client) {
	r.mu.Lock()
	if r.clients[c.userID] == c {
		delete(r.clients, c.userID)
	}
	r.mu.Unlock()
}

// Connected reports whether the user currently has a live connection.
func (r *Registry) Connected(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clients[userID] != nil
}

// Send pushes a payload to the recipient's live connection, if any. The push
// is best-effort: no connection, a closed connection, or a full client
// buffer all yield false, and a dead handle is removed rather than left
// registered.
func (r *Registry) Send(recipient string, payload []byte) bool {
	r.mu.Lock()
	client := r.clients[recipient]
	r.mu.Unlock()

	if client == nil {
		return false
	}

	// A closed handle may still have buffer space; enqueueing there would
	// report delivery to a connection nobody drains.
	select {
	case <-client.done:
		r.remove(client)
		return false
	default:
	}

	select {
	case client.send <- payload:
		return true
	case <-client.done:
		r.remove(client)
		return false
	default:
		// Client not draining its buffer — treat as broken.
		slog.Warn("ws client buffer full, dropping connection", "user", recipient)
		r.remove(client)
		client.close()
		return false
	}
}

// SendJSON marshals v and pushes it to the recipient.
func (r *Registry) SendJSON(recipient string, v any) bool {
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshal ws payload", "error", err)
		return false
	}
	return r.Send(recipient, payload)
}

// HandleWS upgrades the request and registers the connection for the
// authenticated user.
func (r *Registry) HandleWS(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "error", err)
		return
	}

	client := r.Register(userID, conn)
	slog.Debug("ws client connected", "user", userID)

	go client.writePump(r)
	go client.readPump(r)
}

func (c *Client) writePump(r *Registry) {
	defer func() {
		r.remove(c)
		c.close()
	}()
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) readPump(r *Registry) {
	defer func() {
		r.remove(c)
		c.close()
		slog.Debug("ws client disconnected", "user", c.userID)
	}()

	for {
		// Inbound messages are not processed; this loop exists to detect
		// disconnection.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
