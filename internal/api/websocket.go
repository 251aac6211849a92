package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"hostbridge/internal/network"
	"hostbridge/internal/protocol"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
	wsReadLimit  = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins, access is controlled by the API token
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSManager tracks WebSocket command clients
type WSManager struct {
	server     *Server
	clients    map[*WebSocketClient]bool
	clientsMu  sync.RWMutex
	register   chan *WebSocketClient
	unregister chan *WebSocketClient
	shutdown   chan struct{}
	stopOnce   sync.Once
}

// WebSocketClient is one connected command client
type WebSocketClient struct {
	manager *WSManager
	conn    *websocket.Conn
	codec   protocol.Codec
	send    chan protocol.Message
	done    chan struct{}
	ip      string
}

func newWSManager(s *Server) *WSManager {
	return &WSManager{
		server:     s,
		clients:    make(map[*WebSocketClient]bool),
		register:   make(chan *WebSocketClient),
		unregister: make(chan *WebSocketClient),
		shutdown:   make(chan struct{}),
	}
}

func (m *WSManager) start() {
	log := m.server.log
	for {
		select {
		case client := <-m.register:
			m.clientsMu.Lock()
			m.clients[client] = true
			count := len(m.clients)
			m.clientsMu.Unlock()
			log.Info().Str("remote", client.ip).Str("codec", client.codec.Name()).Int("clients", count).Msg("WS: client connected")

		case client := <-m.unregister:
			m.clientsMu.Lock()
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				close(client.done)
				log.Info().Str("remote", client.ip).Int("clients", len(m.clients)).Msg("WS: client disconnected")
			}
			m.clientsMu.Unlock()

		case <-m.shutdown:
			m.clientsMu.Lock()
			for client := range m.clients {
				delete(m.clients, client)
				close(client.done)
			}
			m.clientsMu.Unlock()
			return
		}
	}
}

func (m *WSManager) stop() {
	m.stopOnce.Do(func() { close(m.shutdown) })
}

func (m *WSManager) count() int {
	m.clientsMu.RLock()
	defer m.clientsMu.RUnlock()
	return len(m.clients)
}

func (m *WSManager) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("codec")
	if name == "" {
		name = m.server.configMgr.Get().API.Codec
	}
	codec, err := protocol.CodecByName(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.server.log.Warn().Err(err).Msg("WS: failed to upgrade connection")
		return
	}

	client := &WebSocketClient{
		manager: m,
		conn:    conn,
		codec:   codec,
		send:    make(chan protocol.Message, 64),
		done:    make(chan struct{}),
		ip:      r.RemoteAddr,
	}

	select {
	case m.register <- client:
	case <-m.shutdown:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump decodes envelopes and queues their replies.
func (c *WebSocketClient) readPump() {
	defer func() {
		select {
		case c.manager.unregister <- c:
		case <-c.manager.shutdown:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(wsReadLimit)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(wsPongWait)) })

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.manager.server.log.Warn().Err(err).Msg("WS: read error")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))

		msg, err := c.codec.Decode(frame)
		if err != nil {
			c.manager.server.log.Warn().Err(err).Str("remote", c.ip).Msg("WS: invalid message format")
			continue
		}

		if msg.Type == protocol.TypeCommand {
			go c.reply(msg)
		} else {
			c.reply(msg)
		}
	}
}

func (c *WebSocketClient) reply(msg protocol.Message) {
	out, ok := network.Reply(c.manager.server.commands, c.codec, "ws", msg)
	if !ok {
		return
	}
	select {
	case c.send <- out:
	case <-c.done:
	}
}

// writePump writes queued replies and keeps the connection alive.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	kind := websocket.TextMessage
	if c.codec.Binary() {
		kind = websocket.BinaryMessage
	}

	for {
		select {
		case msg := <-c.send:
			frame, err := c.codec.Encode(msg)
			if err != nil {
				c.manager.server.log.Error().Err(err).Msg("WS: failed to encode reply")
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(kind, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(wsWriteWait))
			return
		}
	}
}
