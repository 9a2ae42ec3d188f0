package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"ledger_backend/internal/models"
)

// TokenRepository stores at most one access token record per user.
type TokenRepository interface {
	// UpsertToken creates the user's record or replaces its token and expiry.
	UpsertToken(ctx context.Context, token *models.JWTToken) error
	// FindTokenByValue looks a record up by exact token string.
	FindTokenByValue(ctx context.Context, token string) (*models.JWTToken, error)
}

type tokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new instance of TokenRepository.
func NewTokenRepository(db *sql.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) UpsertToken(ctx context.Context, token *models.JWTToken) error {
	query := `INSERT INTO jwt_tokens (user_id, token, created_at, updated_at, expires_at)
	          VALUES ($1, $2, $3, $3, $4)
	          ON CONFLICT (user_id) DO UPDATE
	            SET token = EXCLUDED.token, updated_at = EXCLUDED.updated_at, expires_at = EXCLUDED.expires_at
	          RETURNING id, created_at`

	now := token.UpdatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	token.UpdatedAt = now

	err := r.db.QueryRowContext(ctx, query, token.UserID, token.Token, now, token.ExpiresAt).
		Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return fmt.Errorf("%w: user ID %d", ErrNotFound, token.UserID)
		}
		return wrapWriteError(err, fmt.Sprintf("upserting token for user ID %d", token.UserID))
	}
	return nil
}

func (r *tokenRepository) FindTokenByValue(ctx context.Context, value string) (*models.JWTToken, error) {
	query := `SELECT id, user_id, token, created_at, updated_at, expires_at
	          FROM jwt_tokens WHERE token = $1 LIMIT 1`
	token := &models.JWTToken{}
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&token.ID, &token.UserID, &token.Token, &token.CreatedAt, &token.UpdatedAt, &token.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: finding token: %v", ErrDatabaseError, err)
	}
	return token, nil
}
