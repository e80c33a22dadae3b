package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/skillsvault/backend/internal/httpx"
	"github.com/skillsvault/backend/internal/middleware"
	"github.com/skillsvault/backend/internal/models"
	"github.com/skillsvault/backend/internal/validation"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token   string          `json:"token"`
	Profile *models.Profile `json:"profile"`
}

// UpdateProfileRequest carries the self-editable fields; absent ones are kept.
type UpdateProfileRequest struct {
	FullName *string `json:"full_name"`
	Bio      *string `json:"bio"`
}

// PublicProfile is what other users see.
type PublicProfile struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Bio       string    `json:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
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

// POST /api/v1/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := h.validator.DecodeRequest(r, validation.Register, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	p, err := h.svc.Register(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	h.log.Info("profile registered", "user_id", p.ID)
	httpx.WriteJSON(w, http.StatusCreated, p)
}

// POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.Fail(w, http.StatusBadRequest, "missing email or password")
		return
	}
	token, p, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httpx.Fail(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, LoginResponse{Token: token, Profile: p})
}

// GET /api/v1/profile/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Profile(r.Context(), middleware.UserIDFromCtx(r.Context()))
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

// PUT /api/v1/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := h.validator.DecodeRequest(r, validation.UpdateProfile, &req); err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	p, err := h.svc.UpdateProfile(r.Context(), middleware.UserIDFromCtx(r.Context()), req.FullName, req.Bio)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

// GET /api/v1/profile/{id}
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.PathUUID(r, "id")
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid profile id")
		return
	}
	p, err := h.svc.Profile(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, h.log, err)
		return
	}
	if id == middleware.UserIDFromCtx(r.Context()) {
		httpx.WriteJSON(w, http.StatusOK, p)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, PublicProfile{ID: p.ID.String(), FullName: p.FullName, Bio: p.Bio, CreatedAt: p.CreatedAt})
}
