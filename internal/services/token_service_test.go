package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger_backend/internal/models"
	"ledger_backend/pkg/utils"
)

func TestTokenService_IssueAndValidate(t *testing.T) {
	e := newTestEnv(t)
	user := e.createUser(t, "alice@example.com", "s3cret", true)

	pair, err := e.tokens.Issue(context.Background(), user)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)
	assert.NotEqual(t, pair.Access, pair.Refresh)
	assert.Equal(t, e.clock.Now().Add(5*time.Minute), pair.ExpiresAt)

	claims := &utils.Claims{}
	_, err = jwt.ParseWithClaims(pair.Access, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	}, jwt.WithTimeFunc(e.clock.Now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, utils.TokenTypeAccess, claims.TokenType)
	assert.NotEmpty(t, claims.ID)

	got, err := e.tokens.Validate(context.Background(), pair.Access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "Test", got.FirstName)
}

func TestTokenService_ValidateUnknown(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.tokens.Validate(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	_, err = e.tokens.Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTokenService_Expiry(t *testing.T) {
	e := newTestEnv(t)
	user := e.createUser(t, "bob@example.com", "pw", true)
	pair, err := e.tokens.Issue(context.Background(), user)
	require.NoError(t, err)

	e.clock.Advance(5*time.Minute - time.Nanosecond)
	_, err = e.tokens.Validate(context.Background(), pair.Access)
	require.NoError(t, err)

	e.clock.Advance(time.Nanosecond)
	_, err = e.tokens.Validate(context.Background(), pair.Access)
	assert.ErrorIs(t, err, ErrTokenExpired, "expiry equal to now is expired")

	e.clock.Advance(time.Hour)
	_, err = e.tokens.Validate(context.Background(), pair.Access)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_ReissueReplacesRecord(t *testing.T) {
	e := newTestEnv(t)
	user := e.createUser(t, "carol@example.com", "pw", true)

	first, err := e.tokens.Issue(context.Background(), user)
	require.NoError(t, err)
	e.clock.Advance(time.Second)
	second, err := e.tokens.Issue(context.Background(), user)
	require.NoError(t, err)
	require.NotEqual(t, first.Access, second.Access)

	_, err = e.tokens.Validate(context.Background(), first.Access)
	assert.ErrorIs(t, err, ErrTokenNotFound)
	_, err = e.tokens.Validate(context.Background(), second.Access)
	assert.NoError(t, err)

	record, err := e.store.Tokens.FindTokenByValue(context.Background(), second.Access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, record.UserID)
	assert.Equal(t, e.clock.Now().Add(5*time.Minute), record.ExpiresAt)
}

func TestTokenService_IssueForMissingUser(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.tokens.Issue(context.Background(), &models.User{ID: 404, Email: "ghost@example.com"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}
