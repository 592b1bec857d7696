package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type fakeBot struct {
	mu    sync.Mutex
	calls []string
	fail  error
}

func (b *fakeBot) HandleMessage(ctx context.Context, userID, text string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, userID+":"+text)
	if b.fail != nil {
		return "internal", b.fail
	}
	return "echo " + text, nil
}

func (b *fakeBot) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func postMessage(t *testing.T, h *HTTPHandler, body string) (*httptest.ResponseRecorder, MessageHTTPResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.Message(rec, req)

	var resp MessageHTTPResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestHTTPMessage_Success(t *testing.T) {
	bot := &fakeBot{}
	h := NewHTTPHandler(bot, nil)

	rec, resp := postMessage(t, h, `{"user_id":"u1","text":"/list"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "echo /list", resp.Reply)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, []string{"u1:/list"}, bot.calls)
}

func TestHTTPMessage_BadRequests(t *testing.T) {
	bot := &fakeBot{}
	h := NewHTTPHandler(bot, nil)

	for _, body := range []string{`{`, `{"user_id":"","text":"x"}`, `{"user_id":"u1","text":"  "}`} {
		rec, resp := postMessage(t, h, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.False(t, resp.Success, body)
	}
	assert.Empty(t, bot.calls)

	req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	rec := httptest.NewRecorder()
	h.Message(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHTTPMessage_StoreFault(t *testing.T) {
	h := NewHTTPHandler(&fakeBot{fail: errors.New("db down")}, nil)

	rec, resp := postMessage(t, h, `{"user_id":"u1","text":"/list"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal", resp.Reply)
}

func dialHub(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?user_id=" + userID
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func waitConnected(t *testing.T, hub *ChatHub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Connected() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestChatHub_ReplyAndDigest(t *testing.T) {
	bot := &fakeBot{}
	hub := NewChatHub(bot, 0, 0, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	ws := dialHub(t, srv, "u1")
	waitConnected(t, hub, 1)

	require.NoError(t, ws.WriteJSON(InboundFrame{Text: "/stats"}))
	var frame OutboundFrame
	require.NoError(t, ws.ReadJSON(&frame))
	assert.Equal(t, OutboundFrame{Type: FrameReply, Text: "echo /stats"}, frame)

	require.NoError(t, hub.Send(context.Background(), "u1", "digest text"))
	require.NoError(t, ws.ReadJSON(&frame))
	assert.Equal(t, OutboundFrame{Type: FrameDigest, Text: "digest text"}, frame)
}

func TestChatHub_SendOffline(t *testing.T) {
	hub := NewChatHub(&fakeBot{}, 0, 0, nil)
	err := hub.Send(context.Background(), "ghost", "digest")
	assert.ErrorIs(t, err, ErrRecipientOffline)
}

func TestChatHub_RateLimited(t *testing.T) {
	bot := &fakeBot{}
	hub := NewChatHub(bot, 0.001, 1, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	ws := dialHub(t, srv, "u1")
	waitConnected(t, hub, 1)

	var frame OutboundFrame
	require.NoError(t, ws.WriteJSON(InboundFrame{Text: "one"}))
	require.NoError(t, ws.ReadJSON(&frame))
	assert.Equal(t, FrameReply, frame.Type)

	require.NoError(t, ws.WriteJSON(InboundFrame{Text: "two"}))
	require.NoError(t, ws.ReadJSON(&frame))
	assert.Equal(t, FrameError, frame.Type)
	assert.Equal(t, 1, bot.count())
}

func TestChatHub_RequiresUserID(t *testing.T) {
	hub := NewChatHub(&fakeBot{}, 0, 0, nil)
	rec := httptest.NewRecorder()
	hub.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGRPCHealth(t *testing.T) {
	srv, _ := NewGRPCServer()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go srv.Serve(lis)
	defer srv.Stop()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
