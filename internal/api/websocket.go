package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/febos-bridge/internal/infrastructure/config"
	"github.com/nerrad567/febos-bridge/internal/infrastructure/logging"
)

// Frame types on the event socket.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// Event channels clients can subscribe to.
const (
	ChannelStateChanged = "entity.state_changed"
	ChannelDiscovered   = "bridge.discovered"
)

var knownChannels = map[string]bool{
	ChannelStateChanged: true,
	ChannelDiscovered:   true,
}

const (
	outboxSize       = 256
	fallbackPingWait = 30 * time.Second
	fallbackPongWait = 10 * time.Second
)

// WSMessage is one frame exchanged with a client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload lists the channels of a subscribe or unsubscribe frame.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// clientFrame is the inbound shape; the payload is decoded per type.
type clientFrame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// Hub pushes bridge events to connected sockets.
type Hub struct {
	logger    *logging.Logger
	upgrader  websocket.Upgrader
	readLimit int64
	pingEvery time.Duration
	writeWait time.Duration

	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

// subscriber is one socket with its channel set and bounded outbox.
// A full outbox drops events for that socket only.
type subscriber struct {
	hub  *Hub
	conn *websocket.Conn
	out  chan []byte

	mu       sync.Mutex
	channels map[string]bool
	closed   bool
}

// NewHub creates a hub using cfg for frame size and keepalive timing.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	ping := time.Duration(cfg.PingInterval) * time.Second
	if ping <= 0 {
		ping = fallbackPingWait
	}
	pong := time.Duration(cfg.PongTimeout) * time.Second
	if pong <= 0 {
		pong = fallbackPongWait
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CORS middleware has already vetted the origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		readLimit: int64(cfg.MaxMessageSize),
		pingEvery: ping,
		writeWait: pong,
		subs:      make(map[*subscriber]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every socket.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[*subscriber]struct{})
	h.mu.Unlock()

	for s := range subs {
		s.shutdown()
		if s.conn != nil {
			s.conn.Close()
		}
	}
}

// ClientCount returns the number of connected sockets.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast queues an event for every socket subscribed to channel.
func (h *Hub) Broadcast(channel string, payload any) {
	frame, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("encoding event failed", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*subscriber, 0, len(h.subs))
	for s := range h.subs {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range targets {
		if s.wants(channel) && s.deliver(frame) {
			delivered++
		}
	}
	if delivered > 0 {
		h.logger.Debug("event pushed", "channel", channel, "sockets", delivered)
	}
}

func (h *Hub) add(s *subscriber) {
	h.mu.Lock()
	h.subs[s] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	h.logger.Debug("event socket opened", "sockets", n)
}

// remove drops s; calling it twice is harmless.
func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	n := len(h.subs)
	h.mu.Unlock()
	s.shutdown()
	h.logger.Debug("event socket closed", "sockets", n)
}

// serve upgrades the request and runs the socket until either side hangs up.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	s := &subscriber{
		hub:      h,
		conn:     conn,
		out:      make(chan []byte, outboxSize),
		channels: make(map[string]bool),
	}
	h.add(s)

	go s.writeLoop()
	go s.readLoop()
}

// handleWebSocket serves the event socket. The API has no authentication,
// so any client reaching the listener may subscribe.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.hub.serve(w, r)
}

func (s *subscriber) readLoop() {
	defer func() {
		s.hub.remove(s)
		s.conn.Close()
	}()

	if s.hub.readLimit > 0 {
		s.conn.SetReadLimit(s.hub.readLimit)
	}
	alive := func() error {
		return s.conn.SetReadDeadline(time.Now().Add(s.hub.pingEvery + s.hub.writeWait))
	}
	//nolint:errcheck // a failed deadline surfaces on the next read
	alive()
	s.conn.SetPongHandler(func(string) error { return alive() })

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.logger.Warn("event socket read failed", "error", err)
			}
			return
		}
		//nolint:errcheck // a failed deadline surfaces on the next read
		alive()
		s.handle(data)
	}
}

func (s *subscriber) writeLoop() {
	ping := time.NewTicker(s.hub.pingEvery)
	defer func() {
		ping.Stop()
		s.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.hub.writeWait)); err != nil {
			return err
		}
		return s.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case frame, ok := <-s.out:
			if !ok {
				//nolint:errcheck // peer may already be gone
				write(websocket.CloseMessage, nil)
				return
			}
			if write(websocket.TextMessage, frame) != nil {
				return
			}
		case <-ping.C:
			if write(websocket.PingMessage, nil) != nil {
				return
			}
		}
	}
}

func (s *subscriber) handle(data []byte) {
	var in clientFrame
	if err := json.Unmarshal(data, &in); err != nil {
		s.reply("", WSTypeError, errorBody("malformed frame"))
		return
	}

	switch in.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		s.changeChannels(in)
	case WSTypePing:
		s.reply(in.ID, WSTypePong, nil)
	default:
		s.reply(in.ID, WSTypeError, errorBody("unsupported frame type "+in.Type))
	}
}

// changeChannels applies a subscribe or unsubscribe frame. One unknown
// channel rejects the whole frame.
func (s *subscriber) changeChannels(in clientFrame) {
	var body WSSubscribePayload
	if len(in.Payload) == 0 || json.Unmarshal(in.Payload, &body) != nil || len(body.Channels) == 0 {
		s.reply(in.ID, WSTypeError, errorBody("payload must list channels"))
		return
	}
	for _, ch := range body.Channels {
		if !knownChannels[ch] {
			s.reply(in.ID, WSTypeError, errorBody("unknown channel "+ch))
			return
		}
	}

	on := in.Type == WSTypeSubscribe
	s.mu.Lock()
	for _, ch := range body.Channels {
		if on {
			s.channels[ch] = true
		} else {
			delete(s.channels, ch)
		}
	}
	s.mu.Unlock()

	s.reply(in.ID, WSTypeResponse, map[string]any{in.Type + "d": body.Channels})
}

func (s *subscriber) wants(channel string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channels[channel]
}

// deliver queues frame without blocking and reports whether it was queued.
func (s *subscriber) deliver(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.out <- frame:
		return true
	default:
		return false
	}
}

// shutdown closes the outbox once, which ends writeLoop.
func (s *subscriber) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
}

func (s *subscriber) reply(id, kind string, payload any) {
	frame, err := json.Marshal(WSMessage{
		Type:      kind,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	s.deliver(frame)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"message": msg}
}
