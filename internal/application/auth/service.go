package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-todo-api/internal/domain"
	"github.com/go-todo-api/internal/pkg/id"
	"github.com/go-todo-api/internal/pkg/ratelimit"
	pkgtoken "github.com/go-todo-api/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

// Token lifetimes are policy constants, not negotiated per call.
const (
	verificationTokenTTL = 24 * time.Hour
	resetTokenTTL        = time.Hour
)

// ErrMailDelivery marks a token that was issued but whose email could not be
// delivered. Callers surface it as a warning, not a failure: the token record
// is already committed.
var ErrMailDelivery = errors.New("mail delivery failed")

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

type Service interface {
	// SendVerificationEmail issues a fresh verification token for email,
	// superseding any previously issued ones, and mails the confirmation link.
	SendVerificationEmail(ctx context.Context, email string) error
	// VerifyEmail consumes a verification token and marks the subject verified.
	VerifyEmail(ctx context.Context, token string) error
	// ForgotPassword issues a reset token for the account behind email. Returns
	// a domain.ErrNotFound-wrapped error for unknown addresses; the HTTP layer
	// collapses that into the generic success response.
	ForgotPassword(ctx context.Context, email string) error
	// ResetPassword consumes a raw reset secret and replaces the password hash.
	ResetPassword(ctx context.Context, rawSecret, newPassword string) error
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type verificationTokenStore interface {
	Put(ctx context.Context, t *domain.VerificationToken) error
	Get(ctx context.Context, token string) (*domain.VerificationToken, error)
	Delete(ctx context.Context, token string) error
	DeleteAllForEmail(ctx context.Context, email string) error
}

type resetTokenStore interface {
	Put(ctx context.Context, t *domain.PasswordResetToken) error
	ScanLive(ctx context.Context, now time.Time) ([]domain.PasswordResetToken, error)
	MarkUsed(ctx context.Context, tokenID string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

type mailer interface {
	SendVerificationEmail(to, verifyURL string) error
	SendPasswordResetEmail(to, resetURL string) error
}

type service struct {
	userRepo          userStore
	verificationRepo  verificationTokenStore
	resetRepo         resetTokenStore
	mailer            mailer
	verificationLimit ratelimit.Limiter
	baseURL           string
}

type ServiceDeps struct {
	UserRepo          userStore
	VerificationRepo  verificationTokenStore
	ResetRepo         resetTokenStore
	Mailer            mailer
	VerificationLimit ratelimit.Limiter
	BaseURL           string
}

func NewService(deps ServiceDeps) Service {
	return &service{
		userRepo:          deps.UserRepo,
		verificationRepo:  deps.VerificationRepo,
		resetRepo:         deps.ResetRepo,
		mailer:            deps.Mailer,
		verificationLimit: deps.VerificationLimit,
		baseURL:           deps.BaseURL,
	}
}

func (s *service) SendVerificationEmail(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	if allowed, retryAfter := s.verificationLimit.Check(email); !allowed {
		return &domain.RateLimitError{RetryAfter: retryAfter}
	}

	if u, err := s.userRepo.GetByEmail(ctx, email); err == nil && u.Verified() {
		return fmt.Errorf("email already verified: %w", domain.ErrConflict)
	}

	// Purge prior tokens first so at most one live token per subject exists.
	if err := s.verificationRepo.DeleteAllForEmail(ctx, email); err != nil {
		return err
	}

	secret, err := pkgtoken.NewSecret()
	if err != nil {
		return err
	}
	now := time.Now()
	t := &domain.VerificationToken{
		Token:     secret,
		Email:     email,
		ExpiresAt: now.Add(verificationTokenTTL).Unix(),
		Attempts:  1,
		CreatedAt: now.Unix(),
	}
	if err := s.verificationRepo.Put(ctx, t); err != nil {
		return err
	}

	verifyURL := fmt.Sprintf("%s/verify-email?token=%s", s.baseURL, url.QueryEscape(secret))
	if err := s.mailer.SendVerificationEmail(email, verifyURL); err != nil {
		slog.Warn("verification email send failed", "email", email, "err", err)
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}
	return nil
}

func (s *service) VerifyEmail(ctx context.Context, token string) error {
	t, err := s.verificationRepo.Get(ctx, token)
	if err != nil {
		return fmt.Errorf("token not found: %w", domain.ErrNotFound)
	}
	if t.Expired(time.Now()) {
		// Remove the stale row as a side effect of the rejected attempt.
		if err := s.verificationRepo.Delete(ctx, token); err != nil {
			slog.Warn("failed to delete expired verification token", "err", err)
		}
		return fmt.Errorf("token expired: %w", domain.ErrExpired)
	}
	u, err := s.userRepo.GetByEmail(ctx, t.Email)
	if err != nil {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	if u.Verified() {
		// Already in the desired state. Still consume the token.
		if err := s.verificationRepo.Delete(ctx, token); err != nil {
			slog.Warn("failed to delete verification token", "err", err)
		}
		return fmt.Errorf("email already verified: %w", domain.ErrConflict)
	}

	// Effect write, then token invalidation, with no other I/O in between.
	if err := s.userRepo.Update(ctx, u.UserID, map[string]interface{}{
		"verified_at": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return err
	}
	if err := s.verificationRepo.Delete(ctx, token); err != nil {
		slog.Warn("failed to delete consumed verification token", "email", t.Email, "err", err)
	}
	return nil
}

func (s *service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}

	if err := s.resetRepo.DeleteAllForUser(ctx, u.UserID); err != nil {
		return err
	}

	secret, err := pkgtoken.NewSecret()
	if err != nil {
		return err
	}
	// Only the hash is persisted. The raw secret exists solely in the email.
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := time.Now()
	t := &domain.PasswordResetToken{
		TokenID:   id.New(),
		UserID:    u.UserID,
		TokenHash: string(hash),
		ExpiresAt: now.Add(resetTokenTTL).Unix(),
		CreatedAt: now.Unix(),
	}
	if err := s.resetRepo.Put(ctx, t); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, url.QueryEscape(secret))
	if err := s.mailer.SendPasswordResetEmail(u.Email, resetURL); err != nil {
		slog.Warn("reset email send failed", "email", u.Email, "err", err)
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}
	return nil
}

func (s *service) ResetPassword(ctx context.Context, rawSecret, newPassword string) error {
	now := time.Now()
	candidates, err := s.resetRepo.ScanLive(ctx, now)
	if err != nil {
		return err
	}

	// Hashes are salted, so there is no keyed lookup: compare the presented
	// secret against each live candidate and stop at the first match. Live
	// cardinality is at most one per user with an in-flight reset.
	var match *domain.PasswordResetToken
	for i := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(candidates[i].TokenHash), []byte(rawSecret)) == nil {
			match = &candidates[i]
			break
		}
	}
	if match == nil {
		return fmt.Errorf("invalid or expired reset token: %w", domain.ErrNotFound)
	}
	if match.Used {
		return fmt.Errorf("reset token already used: %w", domain.ErrConflict)
	}
	if match.Expired(now) {
		return fmt.Errorf("reset token expired: %w", domain.ErrExpired)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	// Password write and token invalidation are fenced back to back.
	if err := s.userRepo.Update(ctx, match.UserID, map[string]interface{}{
		"password_hash": string(hash),
	}); err != nil {
		return err
	}
	if err := s.resetRepo.MarkUsed(ctx, match.TokenID); err != nil {
		return err
	}
	// Purge every token for the subject, whichever one was consumed.
	if err := s.resetRepo.DeleteAllForUser(ctx, match.UserID); err != nil {
		slog.Warn("failed to purge reset tokens", "user_id", match.UserID, "err", err)
	}
	return nil
}
