// Package admin serves operator-only endpoints: platform stats, the profile
// list, manual balance adjustments and skill verification.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/skillsvault/backend/internal/httpx"
	"github.com/skillsvault/backend/internal/ledger"
	"github.com/skillsvault/backend/internal/middleware"
	"github.com/skillsvault/backend/internal/models"
	"github.com/skillsvault/backend/internal/repository"
	"github.com/skillsvault/backend/internal/validation"
)

type ProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	List(ctx context.Context) ([]*models.Profile, error)
	Count(ctx context.Context) (int64, error)
}

type SkillStore interface {
	Count(ctx context.Context) (int64, error)
	ListPending(ctx context.Context, limit int) ([]*models.Skill, error)
	SetVerified(ctx context.Context, id uuid.UUID, verified bool) (*models.Skill, error)
}

type RequestCounter interface {
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type TransactionTotals interface {
	Totals(ctx context.Context) (count, hours int64, err error)
}

// Stores groups the read models the admin endpoints aggregate.
type Stores struct {
	Profiles     ProfileStore
	Skills       SkillStore
	Requests     RequestCounter
	Transactions TransactionTotals
}

type Stats struct {
	Users          int64            `json:"users"`
	Skills         int64            `json:"skills"`
	Requests       map[string]int64 `json:"requests_by_status"`
	Transactions   int64            `json:"transactions"`
	HoursExchanged int64            `json:"hours_exchanged"`
}

type AdjustBalanceRequest struct {
	Delta  int64  `json:"delta"`
	Reason string `json:"reason"`
}

type VerifySkillRequest struct {
	IsVerified bool `json:"is_verified"`
}

// reviewQueueLimit caps the pending-skill listing.
const reviewQueueLimit = 50

type Handler struct {
	stores Stores
	ledger ledger.Service
	v      *validation.Validator
	log    *slog.Logger
}

func NewHandler(stores Stores, ledgerSvc ledger.Service, v *validation.Validator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{stores: stores, ledger: ledgerSvc, v: v, log: log}
}

// GET /api/v1/admin/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.collect(r.Context())
	if err != nil {
		httpx.WriteError(w, h.log, fmt.Errorf("%w: collect stats: %w", ledger.ErrDependency, err))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) collect(ctx context.Context) (*Stats, error) {
	var s Stats
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		s.Users, err = h.stores.Profiles.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		s.Skills, err = h.stores.Skills.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		s.Requests, err = h.stores.Requests.CountByStatus(ctx)
		return err
	})
	g.Go(func() (err error) {
		s.Transactions, s.HoursExchanged, err = h.stores.Transactions.Totals(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if s.Requests == nil {
		s.Requests = map[string]int64{}
	}
	for _, status := range []string{models.RequestStatusPending, models.RequestStatusAccepted, models.RequestStatusRejected} {
		s.Requests[status] += 0
	}
	return &s, nil
}

// GET /api/v1/admin/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.stores.Profiles.List(r.Context())
	if err != nil {
		httpx.WriteError(w, h.log, fmt.Errorf("%w: list profiles: %w", ledger.ErrDependency, err))
		return
	}
	if list == nil {
		list = []*models.Profile{}
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

// POST /api/v1/admin/users/{id}/balance
func (h *Handler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathUUID(r, "id")
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req AdjustBalanceRequest
	if err := h.v.DecodeRequest(r, validation.AdjustBalance, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	if _, err := h.stores.Profiles.GetByID(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = fmt.Errorf("%w: profile %s", ledger.ErrNotFound, id)
		} else {
			err = fmt.Errorf("%w: load profile: %w", ledger.ErrDependency, err)
		}
		httpx.WriteError(w, h.log, err)
		return
	}

	balance, err := h.ledger.ApplyDelta(r.Context(), id, req.Delta)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	h.log.Info("admin balance adjustment",
		"admin_id", middleware.UserIDFromCtx(r.Context()),
		"user_id", id,
		"delta", req.Delta,
		"reason", req.Reason,
		"balance", balance,
	)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"user_id": id, "time_balance": balance})
}

// GET /api/v1/admin/skills
func (h *Handler) ListPendingSkills(w http.ResponseWriter, r *http.Request) {
	list, err := h.stores.Skills.ListPending(r.Context(), reviewQueueLimit)
	if err != nil {
		httpx.WriteError(w, h.log, fmt.Errorf("%w: list pending skills: %w", ledger.ErrDependency, err))
		return
	}
	if list == nil {
		list = []*models.Skill{}
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

// PATCH /api/v1/admin/skills/{id}
func (h *Handler) VerifySkill(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathUUID(r, "id")
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid skill id")
		return
	}
	var req VerifySkillRequest
	if err := h.v.DecodeRequest(r, validation.VerifySkill, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	sk, err := h.stores.Skills.SetVerified(r.Context(), id, req.IsVerified)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = fmt.Errorf("%w: skill %s", ledger.ErrNotFound, id)
		} else {
			err = fmt.Errorf("%w: verify skill: %w", ledger.ErrDependency, err)
		}
		httpx.WriteError(w, h.log, err)
		return
	}
	h.log.Info("admin skill review",
		"admin_id", middleware.UserIDFromCtx(r.Context()),
		"skill_id", id,
		"verification_status", sk.VerificationStatus,
	)
	httpx.WriteJSON(w, http.StatusOK, sk)
}
