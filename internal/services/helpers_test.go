package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ledger_backend/internal/models"
	"ledger_backend/internal/repositories"
	"ledger_backend/internal/repositories/memstore"
)

// fakeClock is a settable clock shared by the services under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	store  *repositories.Store
	clock  *fakeClock
	tokens TokenService
	auth   AuthService
	ledger LedgerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memstore.New().Store()
	clock := newFakeClock()
	tokens := NewTokenService(store.Tokens, store.Users, TokenConfig{
		Secret:     []byte("test-secret"),
		Issuer:     "ledger-test",
		AccessTTL:  5 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}, WithTokenClock(clock.Now))

	return &testEnv{
		store:  store,
		clock:  clock,
		tokens: tokens,
		auth:   NewAuthService(store.Users, tokens, WithBcryptCost(bcrypt.MinCost), WithAuthClock(clock.Now)),
		ledger: NewLedgerService(store.Customers, store.Payments, WithLedgerClock(clock.Now)),
	}
}

func (e *testEnv) createUser(t *testing.T, email, password string, active bool) *models.User {
	t.Helper()
	cmd, err := NewUserCommand(models.RegistrationPayload{
		Email:     email,
		FirstName: "Test",
		LastName:  "User",
		Password:  password,
		IsActive:  &active,
	})
	require.NoError(t, err)
	user, err := e.auth.RegisterUser(context.Background(), cmd)
	require.NoError(t, err)
	return user
}

func (e *testEnv) createCustomer(t *testing.T, name, phone string) *models.Customer {
	t.Helper()
	cmd, err := NewCustomerCommand(models.CustomerPayload{Name: name, PhoneNumber: phone})
	require.NoError(t, err)
	customer, err := e.ledger.CreateCustomer(context.Background(), cmd)
	require.NoError(t, err)
	return customer
}

func moneyPtr(s string) *models.Money {
	m := models.MustMoney(s)
	return &m
}
