package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// MessageHandler answers one incoming chat message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, userID, text string) (string, error)
}

type HTTPHandler struct {
	bot    MessageHandler
	logger *slog.Logger
}

type MessageHTTPRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type MessageHTTPResponse struct {
	Success bool   `json:"success"`
	Reply   string `json:"reply,omitempty"`
	Message string `json:"message,omitempty"`
}

func NewHTTPHandler(bot MessageHandler, logger *slog.Logger) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandler{bot: bot, logger: logger}
}

func (h *HTTPHandler) Message(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", requestID)

	var req MessageHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, MessageHTTPResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, MessageHTTPResponse{
			Success: false,
			Message: "missing required fields",
		})
		return
	}

	reply, err := h.bot.HandleMessage(r.Context(), req.UserID, req.Text)
	if err != nil {
		h.logger.Error("message failed", "request_id", requestID, "user_id", req.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, MessageHTTPResponse{
			Success: false,
			Reply:   reply,
			Message: "internal error",
		})
		return
	}

	writeJSON(w, http.StatusOK, MessageHTTPResponse{
		Success: true,
		Reply:   reply,
	})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
