package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-todo-api/internal/config"
	"github.com/go-todo-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the session claim set: the fields copied from a User record at
// authentication time. Nothing is persisted server-side.
type Claims struct {
	UserID        string  `json:"user_id"`
	Email         string  `json:"email"`
	Username      string  `json:"username"`
	Image         *string `json:"image,omitempty"`
	Role          string  `json:"role"`
	VerifiedEmail bool    `json:"verified_email"`
	jwt.RegisteredClaims
}

// Provider signs and verifies RS256 JWTs.
type Provider struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	expiry     time.Duration
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	privBytes, err := os.ReadFile(cfg.JWTPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubBytes, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return &Provider{privateKey: privKey, publicKey: pubKey, expiry: cfg.JWTExpiry}, nil
}

// Sign issues a session token for an authenticated user.
func (p *Provider) Sign(u *domain.User) (string, error) {
	claims := Claims{
		UserID:        u.UserID,
		Email:         u.Email,
		Username:      u.Username,
		Image:         u.Image,
		Role:          u.Role,
		VerifiedEmail: u.Verified(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(p.privateKey)
}

// SignClaims re-signs an already-built claim set with a fresh expiry window.
// Used by the session refresh path after profile edits.
func (p *Provider) SignClaims(c *Claims) (string, error) {
	c.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(p.expiry)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, *c)
	return token.SignedString(p.privateKey)
}

// Verify checks the signature and expiry, returning the embedded claims.
// No claim field may be trusted before this call succeeds.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.publicKey, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
