package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skillsvault/backend/internal/admin"
	"github.com/skillsvault/backend/internal/auth"
	"github.com/skillsvault/backend/internal/config"
	"github.com/skillsvault/backend/internal/httpx"
	"github.com/skillsvault/backend/internal/ledger"
	"github.com/skillsvault/backend/internal/messages"
	"github.com/skillsvault/backend/internal/notify"
	"github.com/skillsvault/backend/internal/ratings"
	"github.com/skillsvault/backend/internal/repository"
	"github.com/skillsvault/backend/internal/requests"
	"github.com/skillsvault/backend/internal/router"
	"github.com/skillsvault/backend/internal/skills"
	"github.com/skillsvault/backend/internal/transactions"
	"github.com/skillsvault/backend/internal/validation"
)

type repositories struct {
	profiles     *repository.ProfileRepo
	skills       *repository.SkillRepo
	requests     *repository.RequestRepo
	transactions *repository.TransactionRepo
	messages     *repository.MessageRepo
	ratings      *repository.RatingRepo
}

// newMux builds the services over the Postgres repositories and mounts the
// /api/v1 routes.
func newMux(
	cfg *config.Config,
	repos repositories,
	ledgerSvc ledger.Service,
	notifier *notify.Notifier,
	publisher notify.Publisher,
	logger *slog.Logger,
) (*http.ServeMux, error) {
	v, err := validation.New()
	if err != nil {
		return nil, err
	}
	authSvc := auth.NewService(repos.profiles, cfg.JWTSecret)

	h := router.Handlers{
		Auth:         auth.NewHandler(authSvc, v, logger),
		Skills:       skills.NewHandler(skills.NewService(repos.skills), v, logger),
		Requests:     requests.NewHandler(requests.NewService(repos.requests, ledgerSvc, notifier, logger), repos.skills, v, logger),
		Transactions: transactions.NewHandler(ledgerSvc, logger),
		Messages:     messages.NewHandler(messages.NewService(repos.messages, repos.profiles, publisher, logger), v, logger),
		Ratings:      ratings.NewHandler(ratings.NewService(repos.ratings, repos.transactions), v, logger),
		Admin: admin.NewHandler(admin.Stores{
			Profiles:     repos.profiles,
			Skills:       repos.skills,
			Requests:     repos.requests,
			Transactions: repos.transactions,
		}, ledgerSvc, v, logger),
	}
	return router.New(h, authSvc), nil
}

// registerOps adds the health and metrics endpoints next to the API.
func registerOps(mux *http.ServeMux, pool *pgxpool.Pool, reg *prometheus.Registry) {
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			httpx.Fail(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
