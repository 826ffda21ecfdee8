package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"minyoung-maker/apps/server/internal/auth"
	"minyoung-maker/apps/server/internal/codec"
	"minyoung-maker/apps/server/internal/lobby"
	"minyoung-maker/apps/server/internal/session"
	"minyoung-maker/journal"
)

const (
	sendBuffer   = 256
	readLimit    = 65536
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: check Origin against ALLOWED_ORIGINS once the web client has a fixed host
	},
}

// Connection is one player's websocket.
type Connection struct {
	ID       string
	PlayerID uint64
	Conn     *websocket.Conn
	Send     chan []byte
	Gateway  *Gateway

	mu      sync.Mutex
	session *session.Session
	gen     uint64

	done     chan struct{}
	stopOnce sync.Once
}

// Gateway manages WebSocket connections
type Gateway struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	nextConnID  uint64
	lobby       *lobby.Lobby
	players     auth.Service
}

func New(lby *lobby.Lobby, players auth.Service) *Gateway {
	return &Gateway{
		connections: make(map[string]*Connection),
		lobby:       lby,
		players:     players,
	}
}

// HandleWebSocket authenticates the request and upgrades it. Browsers
// cannot set headers on a websocket, so the token may also come in the
// query string.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = auth.BearerToken(r.Header.Get("Authorization"))
	}
	player, ok := g.players.ResolveSession(token)
	if !ok {
		auth.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	playerID := player.ID

	g.mu.Lock()
	g.nextConnID++
	c := &Connection{
		ID:       fmt.Sprintf("conn_%d", g.nextConnID),
		PlayerID: playerID,
		Send:     make(chan []byte, sendBuffer),
		Gateway:  g,
		done:     make(chan struct{}),
	}
	g.mu.Unlock()

	// Attach before upgrading so a save that cannot be loaded is reported
	// as a plain HTTP error. Frames queue in Send until writePump starts.
	if err := c.attach(); err != nil {
		log.Printf("[Gateway] Attach failed for player %d: %v", playerID, err)
		auth.WriteError(w, http.StatusServiceUnavailable, "save unavailable, try again")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] Upgrade error: %v", err)
		c.stopOnce.Do(func() { close(c.done) })
		_, gen := c.current()
		g.lobby.Detach(playerID, gen)
		return
	}
	c.Conn = conn

	g.mu.Lock()
	g.connections[c.ID] = c
	total := len(g.connections)
	g.mu.Unlock()
	log.Printf("[Gateway] Client connected: %s (player=%d), total: %d", c.ID, playerID, total)

	go c.readPump()
	go c.writePump()
}

func (c *Connection) attach() error {
	s, gen, err := c.Gateway.lobby.Attach(c.PlayerID, c.pushFrame)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.session = s
	c.gen = gen
	c.mu.Unlock()
	return nil
}

func (c *Connection) current() (*session.Session, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session, c.gen
}

func (c *Connection) readPump() {
	defer func() {
		c.Gateway.removeConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(readLimit)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Gateway] Read error: %v", err)
			}
			break
		}
		if messageType == websocket.TextMessage {
			c.handleMessage(message)
		}
	}
}

func (c *Connection) handleMessage(data []byte) {
	frame, err := codec.DecodeClient(data)
	if err != nil {
		c.reply("", journal.Reply{}, fmt.Errorf("%w: %v", journal.ErrBadCommand, err))
		return
	}

	if frame.Op == codec.OpReset {
		c.reply(frame.ID, journal.Reply{Done: true}, c.reset())
		return
	}

	s, _ := c.current()
	reply, err := s.Submit(frame.Command)
	c.reply(frame.ID, reply, err)
}

// reset wipes the player's save and attaches this connection to a fresh
// session.
func (c *Connection) reset() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Gateway.lobby.Reset(ctx, c.PlayerID); err != nil {
		return err
	}
	log.Printf("[Gateway] Player %d reset their save", c.PlayerID)
	return c.attach()
}

func (c *Connection) reply(id string, reply journal.Reply, err error) {
	data, encErr := codec.EncodeReply(id, reply, err)
	if encErr != nil {
		log.Printf("[Gateway] Encode reply failed: %v", encErr)
		return
	}
	c.enqueue(data)
}

// pushFrame is the session sink. It runs on the session goroutine.
func (c *Connection) pushFrame(f session.Frame) {
	data, err := codec.EncodeEvent(f)
	if err != nil {
		log.Printf("[Gateway] Encode frame failed: %v", err)
		return
	}
	c.enqueue(data)
}

func (c *Connection) enqueue(data []byte) {
	select {
	case <-c.done:
	case c.Send <- data:
	default:
		log.Printf("[Gateway] Send buffer full for %s, dropping frame", c.ID)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (g *Gateway) removeConnection(c *Connection) {
	c.stopOnce.Do(func() { close(c.done) })
	_, gen := c.current()
	g.lobby.Detach(c.PlayerID, gen)

	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.connections, c.ID)
	log.Printf("[Gateway] Client disconnected: %s, total: %d", c.ID, len(g.connections))
}

// Connections reports how many sockets are open.
func (g *Gateway) Connections() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.connections)
}
