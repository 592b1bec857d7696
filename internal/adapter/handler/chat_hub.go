package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

var ErrRecipientOffline = errors.New("recipient offline")

const (
	writeTimeout = 5 * time.Second
	maxFrameSize = 64 * 1024

	FrameReply  = "reply"
	FrameDigest = "digest"
	FrameError  = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// InboundFrame is what a chat client sends.
type InboundFrame struct {
	Text string `json:"text"`
}

// OutboundFrame is what the server pushes to a chat client.
type OutboundFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type chatConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *chatConn) write(frame OutboundFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteJSON(frame)
}

// ChatHub is the WebSocket chat transport. Clients connect with a user_id,
// send text frames that go through the bot, and receive replies and digests.
// A newer connection for the same user replaces the older one.
type ChatHub struct {
	bot       MessageHandler
	logger    *slog.Logger
	ratePerS  rate.Limit
	rateBurst int

	mu    sync.RWMutex
	conns map[string]*chatConn
}

func NewChatHub(bot MessageHandler, messagesPerSecond float64, burst int, logger *slog.Logger) *ChatHub {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if messagesPerSecond > 0 {
		limit = rate.Limit(messagesPerSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &ChatHub{
		bot:       bot,
		logger:    logger,
		ratePerS:  limit,
		rateBurst: burst,
		conns:     make(map[string]*chatConn),
	}
}

// Send pushes text to a connected user. It implements port.Transport.
func (h *ChatHub) Send(ctx context.Context, recipientID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.RLock()
	conn, ok := h.conns[recipientID]
	h.mu.RUnlock()
	if !ok {
		return ErrRecipientOffline
	}
	return conn.write(OutboundFrame{Type: FrameDigest, Text: text})
}

// Connected reports how many users currently hold a connection.
func (h *ChatHub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *ChatHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}
	ws.SetReadLimit(maxFrameSize)

	conn := &chatConn{ws: ws}
	h.register(userID, conn)
	defer h.unregister(userID, conn)
	h.logger.Info("chat client connected", "user_id", userID)

	limiter := rate.NewLimiter(h.ratePerS, h.rateBurst)
	for {
		var in InboundFrame
		if err := ws.ReadJSON(&in); err != nil {
			h.logger.Info("chat client disconnected", "user_id", userID, "error", err)
			return
		}
		if !limiter.Allow() {
			if err := conn.write(OutboundFrame{Type: FrameError, Text: "Too many messages, slow down."}); err != nil {
				return
			}
			continue
		}

		reply, err := h.bot.HandleMessage(r.Context(), userID, in.Text)
		frame := OutboundFrame{Type: FrameReply, Text: reply}
		if err != nil {
			frame.Type = FrameError
		}
		if err := conn.write(frame); err != nil {
			h.logger.Warn("chat write failed", "user_id", userID, "error", err)
			return
		}
	}
}

func (h *ChatHub) register(userID string, conn *chatConn) {
	h.mu.Lock()
	old := h.conns[userID]
	h.conns[userID] = conn
	h.mu.Unlock()
	if old != nil {
		_ = old.ws.Close()
	}
}

func (h *ChatHub) unregister(userID string, conn *chatConn) {
	h.mu.Lock()
	if h.conns[userID] == conn {
		delete(h.conns, userID)
	}
	h.mu.Unlock()
	_ = conn.ws.Close()
}
