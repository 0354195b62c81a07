package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ashureev/support-chat/internal/domain"
	"github.com/ashureev/support-chat/internal/knowledge"
	"github.com/ashureev/support-chat/internal/support"
)

// ChatService is the support pipeline used by SupportHandler.
type ChatService interface {
	Chat(ctx context.Context, req support.ChatRequest) (*support.ChatResponse, error)
	Session(ctx context.Context, sessionID string) (*domain.Session, error)
}

// SupportHandler handles the support chat endpoints.
type SupportHandler struct {
	svc         ChatService
	maxBodySize int64
}

// NewSupportHandler creates a new support handler.
func NewSupportHandler(svc ChatService) *SupportHandler {
	return &SupportHandler{svc: svc, maxBodySize: defaultMaxRequestBodySize}
}

// RegisterRoutes registers support routes.
func (h *SupportHandler) RegisterRoutes(r chi.Router) {
	r.Route("/support", func(r chi.Router) {
		r.Post("/chat", h.Chat)
		r.Get("/session/{id}", h.GetSession)
	})
}

// Chat handles POST /support/chat.
func (h *SupportHandler) Chat(w http.ResponseWriter, r *http.Request) {
	reqID := chiMiddleware.GetReqID(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req support.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		Error(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if req.Message == nil {
		Error(w, http.StatusUnprocessableEntity, "message is required")
		return
	}

	resp, err := h.svc.Chat(r.Context(), req)
	if err != nil {
		slog.Error("Support chat failed", "error", err, "request_id", reqID)
		if errors.Is(err, knowledge.ErrNotFound) || errors.Is(err, knowledge.ErrMalformed) {
			Error(w, http.StatusInternalServerError, "knowledge base unavailable")
			return
		}
		Error(w, http.StatusInternalServerError, "internal server error")
		return
	}

	JSON(w, http.StatusOK, resp)
}

// GetSession handles GET /support/session/{id}.
func (h *SupportHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	sess, err := h.svc.Session(r.Context(), sessionID)
	if err != nil {
		slog.Error("Failed to get support session", "error", err, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if sess == nil {
		JSON(w, http.StatusOK, map[string]interface{}{
			"ok":    false,
			"error": "session not found",
		})
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"session": sess,
	})
}
