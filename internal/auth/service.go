package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/skillsvault/backend/internal/ledger"
	"github.com/skillsvault/backend/internal/models"
	"github.com/skillsvault/backend/internal/repository"
)

var (
	// ErrDuplicateEmail is returned when registering with an email that already exists.
	ErrDuplicateEmail = fmt.Errorf("%w: email already registered", ledger.ErrConflict)
	// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const tokenTTL = 24 * time.Hour

// ProfileStore is the subset of the profile repository auth needs.
type ProfileStore interface {
	Create(ctx context.Context, p *models.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, fullName, bio string) (*models.Profile, error)
}

type Service interface {
	Register(ctx context.Context, email, password, fullName string) (*models.Profile, error)
	Login(ctx context.Context, email, password string) (string, *models.Profile, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, bool, error)
	Profile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	// UpdateProfile changes the caller's own name and bio; nil keeps a field.
	UpdateProfile(ctx context.Context, id uuid.UUID, fullName, bio *string) (*models.Profile, error)
}

type service struct {
	profiles ProfileStore
	secret   []byte
	now      func() time.Time
}

func NewService(profiles ProfileStore, secret string) *service {
	return &service{profiles: profiles, secret: []byte(secret), now: time.Now}
}

// Ensure service implements Service at compile time.
var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	Admin bool `json:"admin,omitempty"`
}

// Register creates a profile holding the signup grant.
func (s *service) Register(ctx context.Context, email, password, fullName string) (*models.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	p := &models.Profile{
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: string(hash),
		TimeBalance:  models.SignupGrantHours,
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("%w: create profile: %w", ledger.ErrDependency, err)
	}
	return p, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, *models.Profile, error) {
	p, err := s.profiles.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("%w: load profile: %w", ledger.ErrDependency, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := s.issueToken(p.ID, p.IsAdmin)
	if err != nil {
		return "", nil, err
	}
	return token, p, nil
}

func (s *service) issueToken(userID uuid.UUID, admin bool) (string, error) {
	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Admin: admin,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(_ context.Context, token string) (uuid.UUID, bool, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return uuid.Nil, false, err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return uuid.Nil, false, errors.New("invalid token")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, c.Admin, nil
}

func (s *service) Profile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: profile %s", ledger.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: load profile: %w", ledger.ErrDependency, err)
	}
	return p, nil
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, fullName, bio *string) (*models.Profile, error) {
	p, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}
	name, about := p.FullName, p.Bio
	if fullName != nil {
		name = strings.TrimSpace(*fullName)
		if name == "" {
			return nil, fmt.Errorf("%w: full_name must not be blank", ledger.ErrValidation)
		}
	}
	if bio != nil {
		about = strings.TrimSpace(*bio)
	}
	updated, err := s.profiles.UpdateDetails(ctx, id, name, about)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: profile %s", ledger.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: update profile: %w", ledger.ErrDependency, err)
	}
	return updated, nil
}
