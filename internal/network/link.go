package network

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"hostbridge/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxInboundSize = 1 << 20
)

// LinkConfig configures the connection to a controller.
type LinkConfig struct {
	// Address is host:port of the controller
	Address string
	// Path is the WebSocket endpoint, e.g. /api/ws/device
	Path string
	// Token, if set, is sent as a bearer token on the upgrade request
	Token string
	// Codec selects text (JSON) or binary (CBOR) frames
	Codec protocol.Codec
	// ReconnectInterval is the pause between connection attempts
	ReconnectInterval time.Duration
	// Registration is sent as soon as a connection is up
	Registration protocol.DeviceRegisterData
}

// Link keeps a WebSocket connection to the controller, registers this device
// on it and answers the commands it receives.
type Link struct {
	cfg        LinkConfig
	dispatcher Dispatcher
	log        zerolog.Logger

	send chan protocol.Message
	done chan struct{}
	stop sync.Once
	wg   sync.WaitGroup

	// OnStateChange is called with true once registered and with false when
	// the connection drops. Set it before Start.
	OnStateChange func(connected bool)

	mu          sync.Mutex
	isConnected bool
	sessionID   string
}

// NewLink creates a controller link. Nothing is dialed until Start.
func NewLink(cfg LinkConfig, d Dispatcher, log zerolog.Logger) *Link {
	if cfg.Codec == nil {
		cfg.Codec = protocol.JSON
	}
	if cfg.ReconnectInterval <= 0 {
		cfg.ReconnectInterval = 5 * time.Second
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	return &Link{
		cfg:        cfg,
		dispatcher: d,
		log:        log.With().Str("component", "link").Logger(),
		send:       make(chan protocol.Message, 100),
		done:       make(chan struct{}),
	}
}

// Start begins the client loop (connect & process)
func (l *Link) Start() {
	l.wg.Add(1)
	go l.loop()
}

func (l *Link) loop() {
	defer l.wg.Done()
	for {
		l.connect()

		select {
		case <-l.done:
			return
		case <-time.After(l.cfg.ReconnectInterval):
			l.log.Debug().Msg("Link: attempting reconnection")
		}
	}
}

func (l *Link) url() string {
	u := url.URL{Scheme: "ws", Host: l.cfg.Address, Path: l.cfg.Path}
	return u.String()
}

func (l *Link) connect() {
	target := l.url()
	l.log.Info().Str("url", target).Msg("Link: connecting")

	header := http.Header{}
	if l.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+l.cfg.Token)
	}

	conn, _, err := websocket.DefaultDialer.Dial(target, header)
	if err != nil {
		l.log.Warn().Err(err).Msg("Link: connection failed")
		return
	}
	defer conn.Close()

	l.log.Info().Msg("Link: connected to controller")

	reg, err := protocol.NewMessage(l.cfg.Codec, protocol.TypeDeviceRegister, uuid.NewString(), l.cfg.Registration)
	if err != nil {
		l.log.Error().Err(err).Msg("Link: cannot encode registration")
		return
	}
	if err := l.write(conn, reg); err != nil {
		l.log.Warn().Err(err).Msg("Link: registration failed")
		return
	}

	connDone := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		l.writePump(conn, connDone)
	}()

	l.readPump(conn)

	close(connDone)
	<-writerDone
	l.setConnected(false, "")
}

func (l *Link) setConnected(connected bool, session string) {
	l.mu.Lock()
	changed := l.isConnected != connected
	l.isConnected = connected
	l.sessionID = session
	l.mu.Unlock()

	if changed && l.OnStateChange != nil {
		l.OnStateChange(connected)
	}
}

func (l *Link) write(conn *websocket.Conn, msg protocol.Message) error {
	frame, err := l.cfg.Codec.Encode(msg)
	if err != nil {
		return err
	}
	kind := websocket.TextMessage
	if l.cfg.Codec.Binary() {
		kind = websocket.BinaryMessage
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(kind, frame)
}

func (l *Link) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxInboundSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.log.Warn().Err(err).Msg("Link: read error")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		msg, err := l.cfg.Codec.Decode(data)
		if err != nil {
			l.log.Warn().Err(err).Msg("Link: invalid message")
			continue
		}
		l.handleMessage(msg)
	}
}

func (l *Link) writePump(conn *websocket.Conn, connDone <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-l.send:
			if err := l.write(conn, msg); err != nil {
				l.log.Warn().Err(err).Msg("Link: write error")
				conn.Close()
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}

		case <-connDone:
			return

		case <-l.done:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			conn.Close()
			return
		}
	}
}

func (l *Link) handleMessage(msg protocol.Message) {
	switch msg.Type {
	case protocol.TypeDeviceRegisterResponse:
		l.log.Info().Str("session", msg.SessionID).Msg("Link: registered with controller")
		l.setConnected(true, msg.SessionID)
		return

	case protocol.TypeCommand:
		// Commands can run for a long time; keep reading meanwhile.
		go l.reply(msg)
		return
	}
	l.reply(msg)
}

func (l *Link) reply(msg protocol.Message) {
	out, ok := Reply(l.dispatcher, l.cfg.Codec, "controller", msg)
	if !ok {
		return
	}
	if out.SessionID == "" {
		out.SessionID = l.SessionID()
	}
	select {
	case l.send <- out:
	case <-l.done:
	}
}

// IsConnected returns true while the link is registered with the controller
func (l *Link) IsConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isConnected
}

// SessionID returns the session assigned by the controller on registration
func (l *Link) SessionID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessionID
}

// Close stops the link and waits for the connection loop to exit. Commands
// still executing finish in the background; their results are dropped.
func (l *Link) Close() {
	l.stop.Do(func() { close(l.done) })
	l.wg.Wait()
}
