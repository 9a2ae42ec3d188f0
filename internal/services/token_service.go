package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ledger_backend/internal/models"
	"ledger_backend/internal/repositories"
	"ledger_backend/pkg/utils"
)

// TokenPair is the result of a successful sign-in.
type TokenPair struct {
	Access    string
	Refresh   string
	ExpiresAt time.Time
}

// TokenConfig holds the signing key and lifetimes.
type TokenConfig struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// --- TokenService Interface ---
type TokenService interface {
	Issue(ctx context.Context, user *models.User) (*TokenPair, error)
	Validate(ctx context.Context, token string) (*models.PublicUser, error)
}

// TokenOption customises a token service.
type TokenOption func(*tokenService)

// WithTokenClock replaces time.Now.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(s *tokenService) { s.now = now }
}

type tokenService struct {
	tokens repositories.TokenRepository
	users  repositories.UserRepository
	cfg    TokenConfig
	now    func() time.Time
}

// NewTokenService creates a new instance of TokenService.
func NewTokenService(tokens repositories.TokenRepository, users repositories.UserRepository, cfg TokenConfig, opts ...TokenOption) TokenService {
	s := &tokenService{
		tokens: tokens,
		users:  users,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue signs a new access/refresh pair and replaces the user's stored token record.
func (s *tokenService) Issue(ctx context.Context, user *models.User) (*TokenPair, error) {
	now := s.now().UTC()

	access, err := utils.SignToken(s.cfg.Secret,
		utils.NewClaims(user.ID, user.Email, utils.TokenTypeAccess, s.cfg.Issuer, uuid.NewString(), now, s.cfg.AccessTTL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	refresh, err := utils.SignToken(s.cfg.Secret,
		utils.NewClaims(user.ID, user.Email, utils.TokenTypeRefresh, s.cfg.Issuer, uuid.NewString(), now, s.cfg.RefreshTTL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	record := &models.JWTToken{
		UserID:    user.ID,
		Token:     access,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.cfg.AccessTTL),
	}
	if err := s.tokens.UpsertToken(ctx, record); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("storing token for user %d: %w", user.ID, err)
	}

	return &TokenPair{Access: access, Refresh: refresh, ExpiresAt: record.ExpiresAt}, nil
}

// Validate looks the token up by exact value. Only the stored record decides
// validity; the signature and exp claim are not consulted.
func (s *tokenService) Validate(ctx context.Context, token string) (*models.PublicUser, error) {
	if token == "" {
		return nil, newValidationError("token", "Token is required.")
	}

	record, err := s.tokens.FindTokenByValue(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("looking up token: %w", err)
	}
	if !record.IsValidAt(s.now()) {
		return nil, ErrTokenExpired
	}

	user, err := s.users.FindUserByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("loading token owner %d: %w", record.UserID, err)
	}
	public := user.Public()
	return &public, nil
}
