package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillsvault/backend/internal/middleware"
	"github.com/skillsvault/backend/internal/validation"
)

func newTestHandler(t *testing.T) (*Handler, *service) {
	t.Helper()
	svc, _ := newTestService(t)
	v, err := validation.New()
	require.NoError(t, err)
	return NewHandler(svc, v, nil), svc
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestHandler_RegisterAndLogin(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := post(h.Register, `{"email":"eve@example.com","password":"password1","full_name":"Eve"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")
	assert.Contains(t, rec.Body.String(), `"time_balance":10`)

	rec = post(h.Register, `{"email":"eve@example.com","password":"password1","full_name":"Eve"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = post(h.Register, `{"email":"eve2@example.com","password":"short","full_name":"Eve"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(h.Login, `{"email":"eve@example.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(h.Login, `{"email":"eve@example.com","password":"password1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
}

func TestHandler_ProfileVisibility(t *testing.T) {
	h, svc := newTestHandler(t)
	ctx := t.Context()
	me, err := svc.Register(ctx, "me@example.com", "password1", "Me")
	require.NoError(t, err)
	other, err := svc.Register(ctx, "other@example.com", "password1", "Other")
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /profile/me", h.Me)
	mux.HandleFunc("GET /profile/{id}", h.GetProfile)

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req = req.WithContext(middleware.WithUserID(req.Context(), me.ID))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	rec := get("/profile/me")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "me@example.com")

	rec = get("/profile/" + other.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "other@example.com")
	assert.NotContains(t, rec.Body.String(), "time_balance")

	assert.Equal(t, http.StatusNotFound, get("/profile/"+uuid.NewString()).Code)
	assert.Equal(t, http.StatusBadRequest, get("/profile/not-a-uuid").Code)
}

func TestHandler_UpdateProfile(t *testing.T) {
	h, svc := newTestHandler(t)
	me, err := svc.Register(t.Context(), "dana@example.com", "password1", "Dana")
	require.NoError(t, err)

	put := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/profile", strings.NewReader(body))
		req = req.WithContext(middleware.WithUserID(req.Context(), me.ID))
		rec := httptest.NewRecorder()
		h.UpdateProfile(rec, req)
		return rec
	}

	rec := put(`{"full_name":"Dana Q","bio":"Bikes","time_balance":999,"is_admin":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Dana Q", body["full_name"])
	assert.Equal(t, "Bikes", body["bio"])
	assert.EqualValues(t, me.TimeBalance, body["time_balance"])
	assert.Equal(t, false, body["is_admin"])

	assert.Equal(t, http.StatusBadRequest, put(`{}`).Code)
	assert.Equal(t, http.StatusBadRequest, put(`{"full_name":""}`).Code)
}
