package requests

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/skillsvault/backend/internal/middleware"
	"github.com/skillsvault/backend/internal/models"
	"github.com/skillsvault/backend/internal/validation"
)

// asUser simulates RequireAuth upstream.
func asUser(id uuid.UUID, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(middleware.WithUserID(r.Context(), id)))
	})
}

type handlerEnv struct {
	*env
	mux *http.ServeMux
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	e := newEnv(t)
	v, err := validation.New()
	if err != nil {
		t.Fatalf("validation.New: %v", err)
	}
	h := NewHandler(e.svc, e.store.Skills(), v, nil)
	mux := http.NewServeMux()
	mux.Handle("POST /requests", middleware.NormalizeSkillRequest(http.HandlerFunc(h.CreateRequest)))
	mux.HandleFunc("GET /requests", h.ListRequests)
	mux.HandleFunc("GET /requests/{id}", h.GetRequest)
	mux.HandleFunc("PUT /requests/{id}", h.ResolveRequest)
	mux.HandleFunc("DELETE /requests/{id}", h.DeleteRequest)
	return &handlerEnv{env: e, mux: mux}
}

func (he *handlerEnv) do(t *testing.T, user uuid.UUID, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	asUser(user, he.mux).ServeHTTP(rec, req)
	return rec
}

func decodeRequest(t *testing.T, rec *httptest.ResponseRecorder) models.SkillRequest {
	t.Helper()
	var sr models.SkillRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &sr); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return sr
}

// ---------------------------------------------------------------------------
// POST /requests
// ---------------------------------------------------------------------------

func TestHandler_CreateRequest_Coercion(t *testing.T) {
	he := newHandlerEnv(t)

	cases := []struct {
		name      string
		body      string
		wantCode  int
		wantHours int64
	}{
		{"numeric hours", `{"skill_id":"%s","provider_id":"%p","hours_requested":3}`, http.StatusCreated, 3},
		{"string hours", `{"skill_id":"%s","provider_id":"%p","hours_requested":"4"}`, http.StatusCreated, 4},
		{"absent hours default", `{"skill_id":"%s","provider_id":"%p"}`, http.StatusCreated, 1},
		{"upper bound", `{"skill_id":"%s","provider_id":"%p","hours_requested":168}`, http.StatusCreated, 168},
		{"legacy user_id alias", `{"skill_id":"%s","user_id":"%p","hours_requested":2}`, http.StatusCreated, 2},
		{"provider defaults to skill owner", `{"skill_id":"%s","hours_requested":2}`, http.StatusCreated, 2},
		{"zero hours", `{"skill_id":"%s","provider_id":"%p","hours_requested":0}`, http.StatusBadRequest, 0},
		{"too many hours", `{"skill_id":"%s","provider_id":"%p","hours_requested":169}`, http.StatusBadRequest, 0},
		{"non-numeric hours", `{"skill_id":"%s","provider_id":"%p","hours_requested":"abc"}`, http.StatusBadRequest, 0},
		{"fractional hours", `{"skill_id":"%s","provider_id":"%p","hours_requested":1.5}`, http.StatusBadRequest, 0},
		{"missing skill", `{"provider_id":"%p","hours_requested":2}`, http.StatusBadRequest, 0},
		{"uncatalogued skill with provider", `{"skill_id":"` + uuid.NewString() + `","provider_id":"%p"}`, http.StatusCreated, 1},
		{"uncatalogued skill without provider", `{"skill_id":"` + uuid.NewString() + `"}`, http.StatusBadRequest, 0},
		{"blank hours string", `{"skill_id":"%s","provider_id":"%p","hours_requested":"  "}`, http.StatusBadRequest, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := strings.NewReplacer("%s", he.skill.ID.String(), "%p", he.provider.String()).Replace(tc.body)
			rec := he.do(t, he.requester, http.MethodPost, "/requests", body)
			if rec.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d: %s", tc.wantCode, rec.Code, rec.Body.String())
			}
			if tc.wantCode != http.StatusCreated {
				return
			}
			sr := decodeRequest(t, rec)
			if sr.HoursRequested != tc.wantHours {
				t.Errorf("hours: got %d, want %d", sr.HoursRequested, tc.wantHours)
			}
			if sr.ProviderID != he.provider || sr.RequesterID != he.requester {
				t.Errorf("parties: got requester=%s provider=%s", sr.RequesterID, sr.ProviderID)
			}
			if sr.Status != models.RequestStatusPending {
				t.Errorf("status: got %q", sr.Status)
			}
		})
	}
}

func TestHandler_CreateRequest_SelfRequest(t *testing.T) {
	he := newHandlerEnv(t)
	body := `{"skill_id":"` + he.skill.ID.String() + `","hours_requested":2}`
	rec := he.do(t, he.provider, http.MethodPost, "/requests", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "cannot request your own skill") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

// ---------------------------------------------------------------------------
// PUT /requests/{id}
// ---------------------------------------------------------------------------

func TestHandler_ResolveRequest(t *testing.T) {
	he := newHandlerEnv(t)
	body := `{"skill_id":"` + he.skill.ID.String() + `","hours_requested":3}`
	created := decodeRequest(t, he.do(t, he.requester, http.MethodPost, "/requests", body))
	path := "/requests/" + created.ID.String()

	if rec := he.do(t, he.provider, http.MethodPut, path, `{"status":"pending"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("pending status: expected 400, got %d", rec.Code)
	}
	if rec := he.do(t, he.requester, http.MethodPut, path, `{"status":"accepted"}`); rec.Code != http.StatusForbidden {
		t.Errorf("requester resolve: expected 403, got %d", rec.Code)
	}

	rec := he.do(t, he.provider, http.MethodPut, path, `{"status":"accepted"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("accept: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeRequest(t, rec).Status; got != models.RequestStatusAccepted {
		t.Errorf("status: got %q", got)
	}
	if he.balance(t, he.requester) != 7 || he.balance(t, he.provider) != 13 {
		t.Errorf("balances: requester=%d provider=%d", he.balance(t, he.requester), he.balance(t, he.provider))
	}

	if rec := he.do(t, he.provider, http.MethodPut, path, `{"decision":"reject"}`); rec.Code != http.StatusConflict {
		t.Errorf("second resolve: expected 409, got %d", rec.Code)
	}
	if rec := he.do(t, he.provider, http.MethodPut, "/requests/"+uuid.NewString(), `{"decision":"accept"}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown request: expected 404, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// GET / DELETE
// ---------------------------------------------------------------------------

func TestHandler_ListGetDelete(t *testing.T) {
	he := newHandlerEnv(t)
	body := `{"skill_id":"` + he.skill.ID.String() + `"}`
	created := decodeRequest(t, he.do(t, he.requester, http.MethodPost, "/requests", body))
	path := "/requests/" + created.ID.String()

	rec := he.do(t, he.provider, http.MethodGet, "/requests?type=received", "")
	var list []models.SkillRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Fatalf("received list: got %d items, %v", len(list), err)
	}
	if rec := he.do(t, he.provider, http.MethodGet, "/requests?type=sent", ""); rec.Body.String() != "[]\n" {
		t.Errorf("sent list: got %s", rec.Body.String())
	}
	if rec := he.do(t, uuid.New(), http.MethodGet, path, ""); rec.Code != http.StatusForbidden {
		t.Errorf("outsider get: expected 403, got %d", rec.Code)
	}
	if rec := he.do(t, he.provider, http.MethodDelete, path, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := he.do(t, he.provider, http.MethodGet, path, ""); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: expected 404, got %d", rec.Code)
	}
	if rec := he.do(t, he.provider, http.MethodGet, "/requests/not-a-uuid", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: expected 400, got %d", rec.Code)
	}
}

type failingSkills struct{}

func (failingSkills) GetByID(context.Context, uuid.UUID) (*models.Skill, error) {
	return nil, errors.New("connection reset")
}

func TestHandler_CreateRequest_SkillLookupFailure(t *testing.T) {
	he := newHandlerEnv(t)
	v, err := validation.New()
	if err != nil {
		t.Fatalf("validation.New: %v", err)
	}
	h := NewHandler(he.svc, failingSkills{}, v, nil)
	handler := middleware.NormalizeSkillRequest(http.HandlerFunc(h.CreateRequest))

	body := `{"skill_id":"` + he.skill.ID.String() + `","hours_requested":2}`
	req := httptest.NewRequest(http.MethodPost, "/requests", strings.NewReader(body))
	rec := httptest.NewRecorder()
	asUser(he.requester, handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", rec.Code, rec.Body.String())
	}
	if he.count(t) != 0 {
		t.Errorf("request stored despite lookup failure")
	}
}
