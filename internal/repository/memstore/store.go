// Package memstore is an in-memory implementation of the repository layer.
//
// Transactions are serialized: Begin takes an exclusive lock and works on a
// private copy of the state. Commit publishes the copy, Rollback discards it,
// so readers outside the transaction only ever see committed data.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/skillsvault/backend/internal/models"
	"github.com/skillsvault/backend/internal/repository"
)

var errForeignTx = errors.New("memstore: transaction is not active on this store")

type state struct {
	profiles     map[uuid.UUID]models.Profile
	skills       map[uuid.UUID]models.Skill
	requests     map[uuid.UUID]models.SkillRequest
	transactions []models.Transaction
	messages     []models.Message
	ratings      []models.Rating
}

func newState() *state {
	return &state{
		profiles: make(map[uuid.UUID]models.Profile),
		skills:   make(map[uuid.UUID]models.Skill),
		requests: make(map[uuid.UUID]models.SkillRequest),
	}
}

func (st *state) clone() *state {
	out := newState()
	for k, v := range st.profiles {
		out.profiles[k] = v
	}
	for k, v := range st.skills {
		out.skills[k] = v
	}
	for k, v := range st.requests {
		out.requests[k] = v
	}
	out.transactions = append([]models.Transaction(nil), st.transactions...)
	out.messages = append([]models.Message(nil), st.messages...)
	out.ratings = append([]models.Rating(nil), st.ratings...)
	return out
}

type Store struct {
	txMu sync.Mutex // held for the lifetime of a transaction or a standalone write

	mu    sync.RWMutex
	data  *state
	seq   int64
	clock func() time.Time
}

func New() *Store {
	return &Store{data: newState(), clock: time.Now}
}

// stamp returns a strictly increasing timestamp. Caller holds mu.
func (s *Store) stamp() time.Time {
	s.seq++
	return s.clock().Add(time.Duration(s.seq))
}

// Begin starts a transaction. It blocks until any other transaction finishes.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.txMu.Lock()
	s.mu.RLock()
	work := s.data.clone()
	s.mu.RUnlock()
	return &memTx{store: s, work: work}, nil
}

// write applies fn to the transaction's working copy, or with a nil tx to the
// committed state as a single-statement transaction of its own.
func (s *Store) write(ctx context.Context, tx pgx.Tx, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx == nil {
		s.txMu.Lock()
		defer s.txMu.Unlock()
		s.mu.Lock()
		defer s.mu.Unlock()
		work := s.data.clone()
		if err := fn(work); err != nil {
			return err
		}
		s.data = work
		return nil
	}
	mt, ok := tx.(*memTx)
	if !ok || mt.store != s || mt.closed {
		return errForeignTx
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(mt.work)
}

func (s *Store) read(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

// memTx satisfies pgx.Tx. Only Commit and Rollback are implemented; the
// embedded nil interface panics on anything else, which no repository method
// calls.
type memTx struct {
	pgx.Tx
	store  *Store
	work   *state
	closed bool
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	if err := ctx.Err(); err != nil {
		t.work = nil
		t.store.txMu.Unlock()
		return err
	}
	t.store.mu.Lock()
	t.store.data = t.work
	t.store.mu.Unlock()
	t.work = nil
	t.store.txMu.Unlock()
	return nil
}

func (t *memTx) Rollback(context.Context) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	t.work = nil
	t.store.txMu.Unlock()
	return nil
}

// Accessors mirroring the Postgres repositories.

func (s *Store) Profiles() *Profiles         { return &Profiles{s} }
func (s *Store) Requests() *Requests         { return &Requests{s} }
func (s *Store) Transactions() *Transactions { return &Transactions{s} }
func (s *Store) Skills() *Skills             { return &Skills{s} }
func (s *Store) Messages() *Messages         { return &Messages{s} }
func (s *Store) Ratings() *Ratings           { return &Ratings{s} }

// ---------------------------------------------------------------------------
// Profiles
// ---------------------------------------------------------------------------

type Profiles struct{ s *Store }

func (r *Profiles) Create(ctx context.Context, p *models.Profile) error {
	return r.s.write(ctx, nil, func(st *state) error {
		for _, existing := range st.profiles {
			if existing.Email == p.Email {
				return repository.ErrDuplicate
			}
		}
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		p.CreatedAt = r.s.stamp()
		p.UpdatedAt = p.CreatedAt
		st.profiles[p.ID] = *p
		return nil
	})
}

func (r *Profiles) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var out *models.Profile
	err := r.s.read(ctx, func(st *state) error {
		p, ok := st.profiles[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *Profiles) UpdateDetails(ctx context.Context, id uuid.UUID, fullName, bio string) (*models.Profile, error) {
	var out *models.Profile
	err := r.s.write(ctx, nil, func(st *state) error {
		p, ok := st.profiles[id]
		if !ok {
			return repository.ErrNotFound
		}
		p.FullName, p.Bio = fullName, bio
		p.UpdatedAt = r.s.stamp()
		st.profiles[id] = p
		out = &p
		return nil
	})
	return out, err
}

func (r *Profiles) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var out *models.Profile
	err := r.s.read(ctx, func(st *state) error {
		for _, p := range st.profiles {
			if p.Email == email {
				out = &p
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *Profiles) List(ctx context.Context) ([]*models.Profile, error) {
	var out []*models.Profile
	err := r.s.read(ctx, func(st *state) error {
		for _, p := range st.profiles {
			out = append(out, &p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (r *Profiles) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.s.read(ctx, func(st *state) error {
		n = int64(len(st.profiles))
		return nil
	})
	return n, err
}

func (r *Profiles) ApplyDelta(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int64) (int64, error) {
	var balance int64
	err := r.s.write(ctx, tx, func(st *state) error {
		p, ok := st.profiles[id]
		if !ok {
			return repository.ErrNotFound
		}
		p.TimeBalance += delta
		p.UpdatedAt = r.s.stamp()
		st.profiles[id] = p
		balance = p.TimeBalance
		return nil
	})
	return balance, err
}

// ---------------------------------------------------------------------------
// Skill requests
// ---------------------------------------------------------------------------

type Requests struct{ s *Store }

func (r *Requests) Create(ctx context.Context, sr *models.SkillRequest) error {
	return r.s.write(ctx, nil, func(st *state) error {
		if sr.ID == uuid.Nil {
			sr.ID = uuid.New()
		}
		sr.Status = models.RequestStatusPending
		sr.CreatedAt = r.s.stamp()
		sr.UpdatedAt = sr.CreatedAt
		st.requests[sr.ID] = *sr
		return nil
	})
}

func (r *Requests) GetByID(ctx context.Context, id uuid.UUID) (*models.SkillRequest, error) {
	var out *models.SkillRequest
	err := r.s.read(ctx, func(st *state) error {
		sr, ok := st.requests[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &sr
		return nil
	})
	return out, err
}

func (r *Requests) TransitionFromPending(ctx context.Context, tx pgx.Tx, id uuid.UUID, status string) (*models.SkillRequest, error) {
	var out *models.SkillRequest
	err := r.s.write(ctx, tx, func(st *state) error {
		sr, ok := st.requests[id]
		if !ok || sr.Status != models.RequestStatusPending {
			return repository.ErrNotPending
		}
		sr.Status = status
		sr.UpdatedAt = r.s.stamp()
		st.requests[id] = sr
		out = &sr
		return nil
	})
	return out, err
}

func (r *Requests) ListForUser(ctx context.Context, userID uuid.UUID, direction string) ([]*models.SkillRequest, error) {
	var out []*models.SkillRequest
	err := r.s.read(ctx, func(st *state) error {
		for _, sr := range st.requests {
			match := sr.ProviderID == userID || sr.RequesterID == userID
			switch direction {
			case repository.DirectionReceived:
				match = sr.ProviderID == userID
			case repository.DirectionSent:
				match = sr.RequesterID == userID
			}
			if match {
				out = append(out, &sr)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (r *Requests) DeletePending(ctx context.Context, id uuid.UUID) error {
	return r.s.write(ctx, nil, func(st *state) error {
		sr, ok := st.requests[id]
		if !ok || sr.Status != models.RequestStatusPending {
			return repository.ErrNotPending
		}
		delete(st.requests, id)
		return nil
	})
}

func (r *Requests) CountByStatus(ctx context.Context) (map[string]int64, error) {
	out := map[string]int64{}
	err := r.s.read(ctx, func(st *state) error {
		for _, sr := range st.requests {
			out[sr.Status]++
		}
		return nil
	})
	return out, err
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

type Transactions struct{ s *Store }

func (r *Transactions) CreateTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error {
	return r.s.write(ctx, tx, func(st *state) error {
		for _, existing := range st.transactions {
			if existing.RequestID == t.RequestID {
				return repository.ErrDuplicate
			}
		}
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		t.CreatedAt = r.s.stamp()
		st.transactions = append(st.transactions, *t)
		return nil
	})
}

func (r *Transactions) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var out *models.Transaction
	err := r.s.read(ctx, func(st *state) error {
		for _, t := range st.transactions {
			if t.ID == id {
				out = &t
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *Transactions) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	var out []*models.Transaction
	err := r.s.read(ctx, func(st *state) error {
		for i := len(st.transactions) - 1; i >= 0; i-- {
			t := st.transactions[i]
			if t.Involves(userID) {
				out = append(out, &t)
			}
		}
		return nil
	})
	return out, err
}

// ListByRequest is a test helper for counting transactions per request.
func (r *Transactions) ListByRequest(ctx context.Context, requestID uuid.UUID) ([]*models.Transaction, error) {
	var out []*models.Transaction
	err := r.s.read(ctx, func(st *state) error {
		for _, t := range st.transactions {
			if t.RequestID == requestID {
				out = append(out, &t)
			}
		}
		return nil
	})
	return out, err
}

func (r *Transactions) Totals(ctx context.Context) (count, hours int64, err error) {
	err = r.s.read(ctx, func(st *state) error {
		for _, t := range st.transactions {
			count++
			hours += t.HoursExchanged
		}
		return nil
	})
	return count, hours, err
}

// ---------------------------------------------------------------------------
// Skills
// ---------------------------------------------------------------------------

type Skills struct{ s *Store }

func (r *Skills) Create(ctx context.Context, sk *models.Skill) error {
	return r.s.write(ctx, nil, func(st *state) error {
		if sk.ID == uuid.Nil {
			sk.ID = uuid.New()
		}
		sk.IsVerified = false
		sk.VerificationStatus = models.VerificationPending
		sk.CreatedAt = r.s.stamp()
		sk.UpdatedAt = sk.CreatedAt
		st.skills[sk.ID] = *sk
		return nil
	})
}

func (r *Skills) Update(ctx context.Context, sk *models.Skill) error {
	return r.s.write(ctx, nil, func(st *state) error {
		cur, ok := st.skills[sk.ID]
		if !ok {
			return repository.ErrNotFound
		}
		cur.Title, cur.Description, cur.Category = sk.Title, sk.Description, sk.Category
		cur.IsVerified = false
		cur.VerificationStatus = models.VerificationPending
		cur.UpdatedAt = r.s.stamp()
		st.skills[sk.ID] = cur
		*sk = cur
		return nil
	})
}

func (r *Skills) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.write(ctx, nil, func(st *state) error {
		if _, ok := st.skills[id]; !ok {
			return repository.ErrNotFound
		}
		delete(st.skills, id)
		return nil
	})
}

func (r *Skills) SetVerified(ctx context.Context, id uuid.UUID, verified bool) (*models.Skill, error) {
	var out *models.Skill
	err := r.s.write(ctx, nil, func(st *state) error {
		sk, ok := st.skills[id]
		if !ok {
			return repository.ErrNotFound
		}
		sk.IsVerified = verified
		sk.VerificationStatus = models.VerificationRejected
		if verified {
			sk.VerificationStatus = models.VerificationVerified
		}
		sk.UpdatedAt = r.s.stamp()
		st.skills[id] = sk
		out = &sk
		return nil
	})
	return out, err
}

func (r *Skills) ListPending(ctx context.Context, limit int) ([]*models.Skill, error) {
	var out []*models.Skill
	err := r.s.read(ctx, func(st *state) error {
		for _, sk := range st.skills {
			if sk.VerificationStatus == models.VerificationPending {
				out = append(out, &sk)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r *Skills) GetByID(ctx context.Context, id uuid.UUID) (*models.Skill, error) {
	var out *models.Skill
	err := r.s.read(ctx, func(st *state) error {
		sk, ok := st.skills[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &sk
		return nil
	})
	return out, err
}

func (r *Skills) List(ctx context.Context, ownerID uuid.UUID) ([]*models.Skill, error) {
	var out []*models.Skill
	err := r.s.read(ctx, func(st *state) error {
		for _, sk := range st.skills {
			if ownerID == uuid.Nil || sk.UserID == ownerID {
				out = append(out, &sk)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, err
}

func (r *Skills) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.s.read(ctx, func(st *state) error {
		n = int64(len(st.skills))
		return nil
	})
	return n, err
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

type Messages struct{ s *Store }

func (r *Messages) Create(ctx context.Context, m *models.Message) error {
	return r.s.write(ctx, nil, func(st *state) error {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.CreatedAt = r.s.stamp()
		st.messages = append(st.messages, *m)
		return nil
	})
}

func (r *Messages) ListForUser(ctx context.Context, userID, otherID uuid.UUID) ([]*models.Message, error) {
	var out []*models.Message
	err := r.s.read(ctx, func(st *state) error {
		for _, m := range st.messages {
			var match bool
			if otherID == uuid.Nil {
				match = m.SenderID == userID || m.RecipientID == userID
			} else {
				match = (m.SenderID == userID && m.RecipientID == otherID) ||
					(m.SenderID == otherID && m.RecipientID == userID)
			}
			if match {
				out = append(out, &m)
			}
		}
		return nil
	})
	return out, err
}

func (r *Messages) ListConversations(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error) {
	latest := map[uuid.UUID]models.Message{}
	err := r.s.read(ctx, func(st *state) error {
		for _, m := range st.messages {
			var other uuid.UUID
			switch userID {
			case m.SenderID:
				other = m.RecipientID
			case m.RecipientID:
				other = m.SenderID
			default:
				continue
			}
			latest[other] = m
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]*models.Conversation, 0, len(latest))
	for other, m := range latest {
		out = append(out, &models.Conversation{OtherUserID: other, LastMessage: m})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessage.CreatedAt.After(out[j].LastMessage.CreatedAt)
	})
	return out, nil
}

// ---------------------------------------------------------------------------
// Ratings
// ---------------------------------------------------------------------------

type Ratings struct{ s *Store }

func (r *Ratings) Create(ctx context.Context, rt *models.Rating) error {
	return r.s.write(ctx, nil, func(st *state) error {
		for _, existing := range st.ratings {
			if existing.TransactionID == rt.TransactionID && existing.RaterID == rt.RaterID {
				return repository.ErrDuplicate
			}
		}
		if rt.ID == uuid.Nil {
			rt.ID = uuid.New()
		}
		rt.CreatedAt = r.s.stamp()
		st.ratings = append(st.ratings, *rt)
		return nil
	})
}

func (r *Ratings) ListByRatedUser(ctx context.Context, userID uuid.UUID) ([]*models.Rating, error) {
	var out []*models.Rating
	err := r.s.read(ctx, func(st *state) error {
		for i := len(st.ratings) - 1; i >= 0; i-- {
			if rt := st.ratings[i]; rt.RatedUserID == userID {
				out = append(out, &rt)
			}
		}
		return nil
	})
	return out, err
}
