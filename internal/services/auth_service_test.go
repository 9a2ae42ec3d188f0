package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger_backend/internal/models"
)

func TestAuthService_SignInThenAuthenticate(t *testing.T) {
	e := newTestEnv(t)
	user := e.createUser(t, "alice@example.com", "s3cret", true)
	assert.Empty(t, user.LastLogin)

	res, err := e.auth.SignIn(context.Background(), models.Credentials{Email: "alice@example.com", Password: "s3cret"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Refresh)
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.Zero(t, res.User.ID)

	who, err := e.tokens.Validate(context.Background(), res.Access)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", who.Email)

	stored, err := e.auth.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)
	assert.True(t, stored.LastLogin.Equal(e.clock.Now()))
}

func TestAuthService_SignInFailures(t *testing.T) {
	e := newTestEnv(t)
	e.createUser(t, "active@example.com", "good", true)
	e.createUser(t, "inactive@example.com", "good", false)

	cases := map[string]struct {
		creds models.Credentials
		want  error
	}{
		"missing email":              {models.Credentials{Password: "good"}, ErrValidation},
		"missing password":           {models.Credentials{Email: "active@example.com"}, ErrValidation},
		"unknown email":              {models.Credentials{Email: "nobody@example.com", Password: "good"}, ErrInvalidCredentials},
		"wrong password":             {models.Credentials{Email: "active@example.com", Password: "bad"}, ErrInvalidCredentials},
		"inactive":                   {models.Credentials{Email: "inactive@example.com", Password: "good"}, ErrAccountDisabled},
		"inactive with bad password": {models.Credentials{Email: "inactive@example.com", Password: "bad"}, ErrInvalidCredentials},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.auth.SignIn(context.Background(), tc.creds)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAuthService_SignInReplacesPreviousToken(t *testing.T) {
	e := newTestEnv(t)
	e.createUser(t, "dave@example.com", "pw", true)
	creds := models.Credentials{Email: "dave@example.com", Password: "pw"}

	first, err := e.auth.SignIn(context.Background(), creds)
	require.NoError(t, err)
	e.clock.Advance(time.Second)
	second, err := e.auth.SignIn(context.Background(), creds)
	require.NoError(t, err)

	_, err = e.tokens.Validate(context.Background(), first.Access)
	assert.ErrorIs(t, err, ErrTokenNotFound)
	_, err = e.tokens.Validate(context.Background(), second.Access)
	assert.NoError(t, err)
}

func TestAuthService_RegisterUser(t *testing.T) {
	e := newTestEnv(t)
	user := e.createUser(t, "erin@Example.com", "pw", true)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "erin@example.com", user.Email)
	assert.NotEqual(t, "pw", user.PasswordHash)
	assert.False(t, user.IsStaff)
	assert.False(t, user.DateJoined.IsZero())

	cmd, err := NewUserCommand(models.RegistrationPayload{Email: "erin@example.com", FirstName: "E", LastName: "R", Password: "x"})
	require.NoError(t, err)
	_, err = e.auth.RegisterUser(context.Background(), cmd)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "email")
}

func TestAuthService_CreateSuperuserAndList(t *testing.T) {
	e := newTestEnv(t)
	e.createUser(t, "plain@example.com", "pw", true)

	cmd, err := NewUserCommand(models.RegistrationPayload{Email: "root@example.com", FirstName: "Root", LastName: "Admin", Password: "pw"})
	require.NoError(t, err)
	admin, err := e.auth.CreateSuperuser(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, admin.IsStaff)
	assert.True(t, admin.IsSuperuser)
	assert.True(t, admin.IsActive)

	users, err := e.auth.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "plain@example.com", users[0].Email)
	assert.Equal(t, "root@example.com", users[1].Email)

	_, err = e.auth.GetUser(context.Background(), 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthService_RegisterUserPasswordTooLong(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.auth.RegisterUser(context.Background(), RegisterUserCommand{
		Email: "long@example.com", FirstName: "L", LastName: "P", Password: strings.Repeat("p", 100), IsActive: true,
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Contains(t, verr.Fields, "password")

	users, err := e.auth.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}
