package ratings

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/skillsvault/backend/internal/httpx"
	"github.com/skillsvault/backend/internal/middleware"
	"github.com/skillsvault/backend/internal/validation"
)

type RateRequest struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Rating        int       `json:"rating"`
	Review        *string   `json:"review"`
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

// POST /api/v1/ratings
func (h *Handler) Rate(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if err := h.validator.DecodeRequest(r, validation.RateTransaction, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	review := ""
	if req.Review != nil {
		review = *req.Review
	}
	rt, err := h.svc.Rate(r.Context(), middleware.UserIDFromCtx(r.Context()), req.TransactionID, req.Rating, review)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, rt)
}

// GET /api/v1/ratings/{user_id}
func (h *Handler) ListForUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathUUID(r, "user_id")
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid user id")
		return
	}
	sum, err := h.svc.ForUser(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sum)
}
