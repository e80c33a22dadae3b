package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/skillsvault/backend/internal/models"
	"github.com/skillsvault/backend/internal/repository"
)

// Decision is the provider's answer to a pending request.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// ParseDecision accepts the verb form ("accept") and the status form
// ("accepted") case-insensitively.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accept", models.RequestStatusAccepted:
		return DecisionAccept, nil
	case "reject", models.RequestStatusRejected:
		return DecisionReject, nil
	}
	return "", fmt.Errorf("%w: decision must be accept or reject", ErrValidation)
}

func (d Decision) targetStatus() (string, error) {
	switch d {
	case DecisionAccept:
		return models.RequestStatusAccepted, nil
	case DecisionReject:
		return models.RequestStatusRejected, nil
	}
	return "", fmt.Errorf("%w: unknown decision %q", ErrValidation, string(d))
}

// TxBeginner starts a database transaction. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// RequestStore is the subset of the request repository the ledger needs.
type RequestStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.SkillRequest, error)
	TransitionFromPending(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) (*models.SkillRequest, error)
}

// BalanceStore applies signed deltas to a user's time balance atomically.
type BalanceStore interface {
	ApplyDelta(ctx context.Context, tx pgx.Tx, userID uuid.UUID, delta int64) (newBalance int64, err error)
}

// TransactionStore is the append-only transaction log.
type TransactionStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error)
}

// ResolutionNotifier is told about committed resolutions. Errors are logged
// and never affect the resolution.
type ResolutionNotifier interface {
	RequestResolved(ctx context.Context, req *models.SkillRequest) error
}

// Recorder receives ledger metrics.
type Recorder interface {
	ObserveResolution(decision, outcome string)
	ObserveTransfer(hours int64)
	ObserveRetry(op string)
}

type Service interface {
	ResolveRequest(ctx context.Context, requestID, actorID uuid.UUID, decision Decision) (*models.SkillRequest, error)
	ApplyDelta(ctx context.Context, userID uuid.UUID, delta int64) (int64, error)
	CreateTransaction(ctx context.Context, tx pgx.Tx, requestID, fromUser, toUser uuid.UUID, hours int64) (*models.Transaction, error)
	GetTransaction(ctx context.Context, id, actorID uuid.UUID) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error)
}

// Stores groups the persistence dependencies of the ledger.
type Stores struct {
	DB           TxBeginner
	Requests     RequestStore
	Balances     BalanceStore
	Transactions TransactionStore
}

type Option func(*service)

func WithLogger(log *slog.Logger) Option {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}

func WithNotifier(n ResolutionNotifier) Option {
	return func(s *service) { s.notifier = n }
}

func WithRecorder(r Recorder) Option {
	return func(s *service) {
		if r != nil {
			s.rec = r
		}
	}
}

// WithRetry bounds how often a unit of work is re-run after a serialization
// failure or deadlock. Non-positive delays keep the defaults.
func WithRetry(maxRetries int, baseDelay, maxDelay time.Duration) Option {
	return func(s *service) {
		if maxRetries >= 0 {
			s.retry.maxRetries = maxRetries
		}
		if baseDelay > 0 && maxDelay >= baseDelay {
			s.retry.baseDelay = baseDelay
			s.retry.maxDelay = maxDelay
		}
	}
}

// WithTxTimeout caps each database transaction. Zero means no cap beyond the
// caller's context.
func WithTxTimeout(d time.Duration) Option {
	return func(s *service) { s.txTimeout = d }
}

type service struct {
	db        TxBeginner
	requests  RequestStore
	balances  BalanceStore
	txns      TransactionStore
	notifier  ResolutionNotifier
	rec       Recorder
	retry     retryConfig
	txTimeout time.Duration
	log       *slog.Logger
}

func NewService(stores Stores, opts ...Option) Service {
	s := &service{
		db:       stores.DB,
		requests: stores.Requests,
		balances: stores.Balances,
		txns:     stores.Transactions,
		rec:      nopRecorder{},
		retry:    defaultRetryConfig(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ Service = (*service)(nil)

// ResolveRequest moves a pending request to accepted or rejected on behalf of
// its provider. Acceptance records the transaction and moves the hours from
// requester to provider in the same database transaction as the status
// change; either all four writes commit or none do.
func (s *service) ResolveRequest(ctx context.Context, requestID, actorID uuid.UUID, decision Decision) (*models.SkillRequest, error) {
	updated, err := s.resolve(ctx, requestID, actorID, decision)
	s.rec.ObserveResolution(string(decision), Kind(err))
	if err != nil {
		if errors.Is(err, ErrDependency) {
			s.log.Error("resolve request failed", "request_id", requestID, "decision", decision, "error", err)
		}
		return nil, err
	}
	if updated.Status == models.RequestStatusAccepted {
		s.rec.ObserveTransfer(updated.HoursRequested)
	}
	s.log.Info("request resolved",
		"request_id", updated.ID,
		"status", updated.Status,
		"hours", updated.HoursRequested,
		"requester_id", updated.RequesterID,
		"provider_id", updated.ProviderID,
	)
	s.notifyResolved(ctx, updated)
	return updated, nil
}

func (s *service) resolve(ctx context.Context, requestID, actorID uuid.UUID, decision Decision) (*models.SkillRequest, error) {
	status, err := decision.targetStatus()
	if err != nil {
		return nil, err
	}
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: request %s", ErrNotFound, requestID)
		}
		return nil, dependency("load request", err)
	}
	if req.ProviderID != actorID {
		return nil, fmt.Errorf("%w: only the provider can resolve this request", ErrForbidden)
	}
	if req.IsResolved() {
		return nil, ErrAlreadyResolved
	}

	updated, err := runWithRetry(ctx, s.retry, s.onRetry("resolve_request"), func(ctx context.Context) (*models.SkillRequest, error) {
		return s.resolveOnce(ctx, req.ID, status)
	})
	return updated, classify(err)
}

// resolveOnce is one attempt at the unit of work. The conditional status
// update goes first: if another caller already moved the request out of
// pending nothing else is written.
func (s *service) resolveOnce(ctx context.Context, requestID uuid.UUID, status string) (*models.SkillRequest, error) {
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, dependency("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	updated, err := s.requests.TransitionFromPending(ctx, tx, requestID, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			return nil, fmt.Errorf("%w: request %s was resolved concurrently", ErrAlreadyResolved, requestID)
		}
		return nil, dependency("update request status", err)
	}

	if status == models.RequestStatusAccepted {
		if _, err := s.createTransaction(ctx, tx, updated.ID, updated.RequesterID, updated.ProviderID, updated.HoursRequested); err != nil {
			return nil, err
		}
		if err := s.transfer(ctx, tx, updated.RequesterID, updated.ProviderID, updated.HoursRequested); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, dependency("commit", err)
	}
	return updated, nil
}

// transfer debits from and credits to by hours. Both balance rows are updated
// in a fixed order (by id) so two transfers between the same pair of users in
// opposite directions cannot deadlock.
func (s *service) transfer(ctx context.Context, tx pgx.Tx, from, to uuid.UUID, hours int64) error {
	deltas := map[uuid.UUID]int64{to: hours, from: -hours}
	ids := []uuid.UUID{from, to}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	for _, id := range ids {
		if _, err := s.balances.ApplyDelta(ctx, tx, id, deltas[id]); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: profile %s", ErrNotFound, id)
			}
			return dependency("apply balance delta", err)
		}
	}
	return nil
}

// CreateTransaction appends a completed transaction. With a non-nil tx it
// joins the caller's transaction, otherwise it runs in its own.
func (s *service) CreateTransaction(ctx context.Context, tx pgx.Tx, requestID, fromUser, toUser uuid.UUID, hours int64) (*models.Transaction, error) {
	if tx != nil {
		return s.createTransaction(ctx, tx, requestID, fromUser, toUser, hours)
	}
	t, err := runWithRetry(ctx, s.retry, s.onRetry("create_transaction"), func(ctx context.Context) (*models.Transaction, error) {
		own, err := s.db.Begin(ctx)
		if err != nil {
			return nil, dependency("begin transaction", err)
		}
		defer own.Rollback(ctx)
		t, err := s.createTransaction(ctx, own, requestID, fromUser, toUser, hours)
		if err != nil {
			return nil, err
		}
		if err := own.Commit(ctx); err != nil {
			return nil, dependency("commit", err)
		}
		return t, nil
	})
	return t, classify(err)
}

func (s *service) createTransaction(ctx context.Context, tx pgx.Tx, requestID, fromUser, toUser uuid.UUID, hours int64) (*models.Transaction, error) {
	if hours <= 0 {
		return nil, fmt.Errorf("%w: hours exchanged must be positive", ErrValidation)
	}
	if fromUser == toUser {
		return nil, fmt.Errorf("%w: payer and receiver must differ", ErrValidation)
	}
	t := &models.Transaction{
		ID:             uuid.New(),
		RequestID:      requestID,
		FromUserID:     fromUser,
		ToUserID:       toUser,
		HoursExchanged: hours,
		Type:           models.TransactionTypeSkillExchange,
		Status:         models.TransactionStatusCompleted,
	}
	if err := s.txns.CreateTx(ctx, tx, t); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: transaction already recorded for request %s", ErrConflict, requestID)
		}
		return nil, dependency("insert transaction", err)
	}
	return t, nil
}

// ApplyDelta adds delta to userID's balance in its own transaction and
// returns the new balance.
func (s *service) ApplyDelta(ctx context.Context, userID uuid.UUID, delta int64) (int64, error) {
	balance, err := runWithRetry(ctx, s.retry, s.onRetry("apply_delta"), func(ctx context.Context) (int64, error) {
		tx, err := s.db.Begin(ctx)
		if err != nil {
			return 0, dependency("begin transaction", err)
		}
		defer tx.Rollback(ctx)
		balance, err := s.balances.ApplyDelta(ctx, tx, userID, delta)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return 0, fmt.Errorf("%w: profile %s", ErrNotFound, userID)
			}
			return 0, dependency("apply balance delta", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return 0, dependency("commit", err)
		}
		return balance, nil
	})
	if err != nil {
		return 0, classify(err)
	}
	s.log.Info("balance adjusted", "user_id", userID, "delta", delta, "balance", balance)
	return balance, nil
}

// GetTransaction returns a transaction visible to actorID, i.e. one where the
// actor is payer or receiver.
func (s *service) GetTransaction(ctx context.Context, id, actorID uuid.UUID) (*models.Transaction, error) {
	t, err := s.txns.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: transaction %s", ErrNotFound, id)
		}
		return nil, dependency("load transaction", err)
	}
	if !t.Involves(actorID) {
		return nil, fmt.Errorf("%w: not a party to this transaction", ErrForbidden)
	}
	return t, nil
}

func (s *service) ListTransactions(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	list, err := s.txns.ListByUser(ctx, userID)
	if err != nil {
		return nil, dependency("list transactions", err)
	}
	return list, nil
}

func (s *service) onRetry(op string) func(attempt int, err error) {
	return func(attempt int, err error) {
		s.rec.ObserveRetry(op)
		s.log.Warn("retrying ledger operation", "op", op, "attempt", attempt, "error", err)
	}
}

func (s *service) notifyResolved(ctx context.Context, req *models.SkillRequest) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.RequestResolved(ctx, req); err != nil {
		s.log.Warn("resolution notification failed (non-blocking)", "request_id", req.ID, "error", err)
	}
}

type nopRecorder struct{}

func (nopRecorder) ObserveResolution(string, string) {}
func (nopRecorder) ObserveTransfer(int64)            {}
func (nopRecorder) ObserveRetry(string)              {}
