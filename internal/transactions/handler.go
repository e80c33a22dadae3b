// Package transactions exposes the ledger's transaction history over HTTP.
package transactions

import (
	"log/slog"
	"net/http"

	"github.com/skillsvault/backend/internal/httpx"
	"github.com/skillsvault/backend/internal/ledger"
	"github.com/skillsvault/backend/internal/middleware"
	"github.com/skillsvault/backend/internal/models"
)

type Handler struct {
	ledger ledger.Service
	log    *slog.Logger
}

func NewHandler(ledgerSvc ledger.Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{ledger: ledgerSvc, log: log}
}

// GET /api/v1/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	list, err := h.ledger.ListTransactions(r.Context(), middleware.UserIDFromCtx(r.Context()))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	if list == nil {
		list = []*models.Transaction{}
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

// GET /api/v1/transactions/{id}
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathUUID(r, "id")
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	t, err := h.ledger.GetTransaction(r.Context(), id, middleware.UserIDFromCtx(r.Context()))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}
