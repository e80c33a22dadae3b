package messages

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/skillsvault/backend/internal/httpx"
	"github.com/skillsvault/backend/internal/middleware"
	"github.com/skillsvault/backend/internal/models"
	"github.com/skillsvault/backend/internal/validation"
)

type SendMessageRequest struct {
	RecipientID uuid.UUID  `json:"recipient_id"`
	Content     string     `json:"content"`
	RequestID   *uuid.UUID `json:"request_id"`
}

type Handler struct {
	svc       Service
	validator *validation.Validator
	log       *slog.Logger
}

func NewHandler(svc Service, validator *validation.Validator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, validator: validator, log: log}
}

// POST /api/v1/messages
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := h.validator.DecodeRequest(r, validation.SendMessage, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	m, err := h.svc.Send(r.Context(), middleware.UserIDFromCtx(r.Context()), req.RecipientID, req.Content, req.RequestID)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, m)
}

// GET /api/v1/messages[?with=]
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	other := uuid.Nil
	if raw := r.URL.Query().Get("with"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "invalid with parameter")
			return
		}
		other = id
	}
	list, err := h.svc.List(r.Context(), middleware.UserIDFromCtx(r.Context()), other)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	if list == nil {
		list = []*models.Message{}
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

// GET /api/v1/messages/conversations
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Conversations(r.Context(), middleware.UserIDFromCtx(r.Context()))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	if list == nil {
		list = []*models.Conversation{}
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}
