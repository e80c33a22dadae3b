package requests

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/skillsvault/backend/internal/ledger"
	"github.com/skillsvault/backend/internal/models"
	"github.com/skillsvault/backend/internal/repository"
	"github.com/skillsvault/backend/internal/repository/memstore"
)

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type stubNotifier struct {
	mu      sync.Mutex
	created []*models.SkillRequest
	err     error
}

func (n *stubNotifier) RequestCreated(_ context.Context, req *models.SkillRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, req)
	return n.err
}

type env struct {
	store     *memstore.Store
	svc       *service
	notifier  *stubNotifier
	requester uuid.UUID
	provider  uuid.UUID
	skill     *models.Skill
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	led := ledger.NewService(ledger.Stores{
		DB:           st,
		Requests:     st.Requests(),
		Balances:     st.Profiles(),
		Transactions: st.Transactions(),
	})
	n := &stubNotifier{}
	e := &env{store: st, notifier: n, svc: NewService(st.Requests(), led, n, nil)}

	for _, id := range []*uuid.UUID{&e.requester, &e.provider} {
		p := &models.Profile{Email: uuid.NewString() + "@example.com", FullName: "user", TimeBalance: models.SignupGrantHours}
		if err := st.Profiles().Create(ctx, p); err != nil {
			t.Fatalf("create profile: %v", err)
		}
		*id = p.ID
	}
	e.skill = &models.Skill{UserID: e.provider, Title: "Woodworking"}
	if err := st.Skills().Create(ctx, e.skill); err != nil {
		t.Fatalf("create skill: %v", err)
	}
	return e
}

func (e *env) count(t *testing.T) int {
	t.Helper()
	list, err := e.store.Requests().ListForUser(context.Background(), e.requester, repository.DirectionAll)
	if err != nil {
		t.Fatalf("list requests: %v", err)
	}
	return len(list)
}

func (e *env) balance(t *testing.T, id uuid.UUID) int64 {
	t.Helper()
	p, err := e.store.Profiles().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	return p.TimeBalance
}

func strPtr(s string) *string { return &s }

// ---------------------------------------------------------------------------
// CreateRequest
// ---------------------------------------------------------------------------

func TestCreateRequest_HoursBounds(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for _, hours := range []int64{0, -1, 169, 1000} {
		_, err := e.svc.CreateRequest(ctx, e.skill.ID, e.requester, e.provider, hours, nil)
		if !errors.Is(err, ledger.ErrHoursOutOfRange) || !errors.Is(err, ledger.ErrValidation) {
			t.Errorf("hours=%d: expected ErrHoursOutOfRange, got %v", hours, err)
		}
	}
	if n := e.count(t); n != 0 {
		t.Fatalf("rejected requests were stored: %d", n)
	}

	for _, hours := range []int64{models.MinRequestHours, models.MaxRequestHours} {
		req, err := e.svc.CreateRequest(ctx, e.skill.ID, e.requester, e.provider, hours, nil)
		if err != nil {
			t.Fatalf("hours=%d: %v", hours, err)
		}
		if req.Status != models.RequestStatusPending || req.HoursRequested != hours {
			t.Errorf("hours=%d: got status %q hours %d", hours, req.Status, req.HoursRequested)
		}
	}
}

func TestCreateRequest_MissingIDs(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.svc.CreateRequest(ctx, uuid.Nil, e.requester, e.provider, 2, nil); !errors.Is(err, ledger.ErrValidation) {
		t.Errorf("missing skill: expected ErrValidation, got %v", err)
	}
	if _, err := e.svc.CreateRequest(ctx, e.skill.ID, e.requester, uuid.Nil, 2, nil); !errors.Is(err, ledger.ErrValidation) {
		t.Errorf("missing provider: expected ErrValidation, got %v", err)
	}
	if n := e.count(t); n != 0 {
		t.Errorf("invalid requests were stored: %d", n)
	}
}

func TestCreateRequest_SkillIDNeedOnlyBePresent(t *testing.T) {
	e := newEnv(t)
	unknown := uuid.New()

	req, err := e.svc.CreateRequest(context.Background(), unknown, e.requester, e.provider, 2, nil)
	if err != nil {
		t.Fatalf("CreateRequest with uncatalogued skill: %v", err)
	}
	if req.SkillID != unknown || req.Status != models.RequestStatusPending {
		t.Errorf("got skill %s status %q", req.SkillID, req.Status)
	}
	if e.count(t) != 1 {
		t.Errorf("request not stored")
	}
}

func TestCreateRequest_NoteLengthCountsCharacters(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// 2000 two-byte characters: 4000 bytes but within the limit.
	atLimit := strings.Repeat("é", maxNoteLength)
	req, err := e.svc.CreateRequest(ctx, e.skill.ID, e.requester, e.provider, 2, &atLimit)
	if err != nil {
		t.Fatalf("multibyte note at limit: %v", err)
	}
	if req.Note == nil || *req.Note != atLimit {
		t.Errorf("note was altered")
	}

	over := strings.Repeat("日", maxNoteLength+1)
	if _, err := e.svc.CreateRequest(ctx, e.skill.ID, e.requester, e.provider, 2, &over); !errors.Is(err, ledger.ErrValidation) {
		t.Errorf("note over limit: expected ErrValidation, got %v", err)
	}
}

func TestCreateRequest_SelfRequest(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.CreateRequest(context.Background(), e.skill.ID, e.provider, e.provider, 2, nil)
	if !errors.Is(err, ledger.ErrSelfRequest) {
		t.Fatalf("expected ErrSelfRequest, got %v", err)
	}
	if err.Error() == "" || !errors.Is(err, ledger.ErrValidation) {
		t.Errorf("expected a validation error, got %v", err)
	}
	list, _ := e.store.Requests().ListForUser(context.Background(), e.provider, repository.DirectionAll)
	if len(list) != 0 {
		t.Errorf("self request was stored")
	}
	if len(e.notifier.created) != 0 {
		t.Errorf("notifier called for rejected request")
	}
}

func TestCreateRequest_NotifierFailureIsSwallowed(t *testing.T) {
	e := newEnv(t)
	e.notifier.err = errors.New("queue down")

	req, err := e.svc.CreateRequest(context.Background(), e.skill.ID, e.requester, e.provider, 2, strPtr("  weekends  "))
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if len(e.notifier.created) != 1 || e.notifier.created[0].ID != req.ID {
		t.Errorf("notifier not called with the new request")
	}
	if req.Note == nil || *req.Note != "weekends" {
		t.Errorf("note: got %v", req.Note)
	}
	if e.count(t) != 1 {
		t.Errorf("request not stored")
	}
}

func TestCreateRequest_BlankNoteIsDropped(t *testing.T) {
	e := newEnv(t)
	req, err := e.svc.CreateRequest(context.Background(), e.skill.ID, e.requester, e.provider, 2, strPtr("   "))
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if req.Note != nil {
		t.Errorf("expected nil note, got %q", *req.Note)
	}
}

// ---------------------------------------------------------------------------
// List / Get / Delete
// ---------------------------------------------------------------------------

func TestListRequests_Direction(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	if _, err := e.svc.CreateRequest(ctx, e.skill.ID, e.requester, e.provider, 2, nil); err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	cases := []struct {
		user      uuid.UUID
		direction string
		want      int
	}{
		{e.provider, "received", 1},
		{e.provider, "sent", 0},
		{e.requester, "sent", 1},
		{e.requester, "received", 0},
		{e.requester, "", 1},
		{e.provider, "all", 1},
	}
	for _, tc := range cases {
		list, err := e.svc.ListRequests(ctx, tc.user, tc.direction)
		if err != nil {
			t.Fatalf("ListRequests(%q): %v", tc.direction, err)
		}
		if len(list) != tc.want {
			t.Errorf("ListRequests(%q): got %d, want %d", tc.direction, len(list), tc.want)
		}
	}
	if _, err := e.svc.ListRequests(ctx, e.provider, "sideways"); !errors.Is(err, ledger.ErrValidation) {
		t.Errorf("bad type: expected ErrValidation, got %v", err)
	}
}

func TestGetRequest_PartiesOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	req, err := e.svc.CreateRequest(ctx, e.skill.ID, e.requester, e.provider, 2, nil)
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	for _, actor := range []uuid.UUID{e.requester, e.provider} {
		if _, err := e.svc.GetRequest(ctx, req.ID, actor); err != nil {
			t.Errorf("party %s: %v", actor, err)
		}
	}
	if _, err := e.svc.GetRequest(ctx, req.ID, uuid.New()); !errors.Is(err, ledger.ErrForbidden) {
		t.Errorf("outsider: expected ErrForbidden, got %v", err)
	}
	if _, err := e.svc.GetRequest(ctx, uuid.New(), e.requester); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("missing: expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRequest(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	req, err := e.svc.CreateRequest(ctx, e.skill.ID, e.requester, e.provider, 2, nil)
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if err := e.svc.DeleteRequest(ctx, req.ID, uuid.New()); !errors.Is(err, ledger.ErrForbidden) {
		t.Errorf("outsider delete: expected ErrForbidden, got %v", err)
	}
	if err := e.svc.DeleteRequest(ctx, req.ID, e.requester); err != nil {
		t.Fatalf("requester delete: %v", err)
	}
	if err := e.svc.DeleteRequest(ctx, req.ID, e.requester); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}

	resolved, err := e.svc.CreateRequest(ctx, e.skill.ID, e.requester, e.provider, 2, nil)
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if _, err := e.svc.ResolveRequest(ctx, resolved.ID, e.provider, ledger.DecisionReject); err != nil {
		t.Fatalf("ResolveRequest: %v", err)
	}
	if err := e.svc.DeleteRequest(ctx, resolved.ID, e.provider); !errors.Is(err, ledger.ErrConflict) {
		t.Errorf("delete resolved: expected ErrConflict, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// End to end
// ---------------------------------------------------------------------------

func TestRequestLifecycle_AcceptMovesHours(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	req, err := e.svc.CreateRequest(ctx, e.skill.ID, e.requester, e.provider, 3, nil)
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if _, err := e.svc.ResolveRequest(ctx, req.ID, e.requester, ledger.DecisionAccept); !errors.Is(err, ledger.ErrForbidden) {
		t.Fatalf("requester accept: expected ErrForbidden, got %v", err)
	}

	updated, err := e.svc.ResolveRequest(ctx, req.ID, e.provider, ledger.DecisionAccept)
	if err != nil {
		t.Fatalf("ResolveRequest: %v", err)
	}
	if updated.Status != models.RequestStatusAccepted {
		t.Errorf("status: got %q", updated.Status)
	}
	if got := e.balance(t, e.requester); got != 7 {
		t.Errorf("requester balance: got %d, want 7", got)
	}
	if got := e.balance(t, e.provider); got != 13 {
		t.Errorf("provider balance: got %d, want 13", got)
	}

	if _, err := e.svc.ResolveRequest(ctx, req.ID, e.provider, ledger.DecisionAccept); !errors.Is(err, ledger.ErrAlreadyResolved) {
		t.Errorf("second accept: expected ErrAlreadyResolved, got %v", err)
	}
	if got := e.balance(t, e.provider); got != 13 {
		t.Errorf("provider balance after second accept: got %d, want 13", got)
	}
}
