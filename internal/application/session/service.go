package session

import (
	"context"
	"fmt"

	"github.com/go-todo-api/internal/domain"
	jwtinfra "github.com/go-todo-api/internal/infrastructure/jwt"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the claim fields a client may overlay onto its
// current session token. Absent fields keep the values already in the token.
type RefreshRequest struct {
	Username      *string `json:"username" validate:"omitempty,min=3,max=32"`
	Email         *string `json:"email" validate:"omitempty,email"`
	Image         *string `json:"image"`
	VerifiedEmail *bool   `json:"verified_email"`
}

type LoginResult struct {
	Bearer string
	User   *domain.User
}

type Service interface {
	// Login authenticates by email and password and issues a session token.
	// Unverified accounts may log in; verified_email rides along in the claims.
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	// Refresh re-signs the caller's claims with a fresh expiry, overlaying
	// any fields present in req.
	Refresh(ctx context.Context, claims *jwtinfra.Claims, req RefreshRequest) (string, error)
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type tokenSigner interface {
	Sign(u *domain.User) (string, error)
	SignClaims(c *jwtinfra.Claims) (string, error)
}

type service struct {
	userRepo userStore
	signer   tokenSigner
}

type ServiceDeps struct {
	UserRepo userStore
	Signer   tokenSigner
}

func NewService(deps ServiceDeps) Service {
	return &service{userRepo: deps.UserRepo, signer: deps.Signer}
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	u, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	bearer, err := s.signer.Sign(u)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Bearer: bearer, User: u}, nil
}

func (s *service) Refresh(ctx context.Context, claims *jwtinfra.Claims, req RefreshRequest) (string, error) {
	next := *claims
	if req.Username != nil {
		next.Username = *req.Username
	}
	if req.Email != nil {
		next.Email = *req.Email
	}
	if req.Image != nil {
		next.Image = req.Image
	}
	if req.VerifiedEmail != nil {
		next.VerifiedEmail = *req.VerifiedEmail
	}
	return s.signer.SignClaims(&next)
}
