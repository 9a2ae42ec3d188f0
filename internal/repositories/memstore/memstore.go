// Package memstore is an in-process implementation of the repository
// interfaces. A single mutex guards all tables, so every method is atomic
// with respect to the others.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"ledger_backend/internal/models"
	"ledger_backend/internal/repositories"
)

// DB holds the tables.
type DB struct {
	mu sync.RWMutex

	users      map[int64]models.User
	userEmails map[string]int64

	customers      map[int64]models.Customer
	customerPhones map[string]int64

	payments map[int64][]models.Payment // by customer, insertion order

	tokens      map[int64]models.JWTToken // by user ID
	tokenToUser map[string]int64
	nextID      map[string]int64
	now         func() time.Time
}

// New returns an empty store.
func New() *DB {
	return &DB{
		users:          map[int64]models.User{},
		userEmails:     map[string]int64{},
		customers:      map[int64]models.Customer{},
		customerPhones: map[string]int64{},
		payments:       map[int64][]models.Payment{},
		tokens:         map[int64]models.JWTToken{},
		tokenToUser:    map[string]int64{},
		nextID:         map[string]int64{},
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Store exposes the DB through the repository interfaces.
func (db *DB) Store() *repositories.Store {
	return &repositories.Store{
		Users:     userRepo{db},
		Customers: customerRepo{db},
		Payments:  paymentRepo{db},
		Tokens:    tokenRepo{db},
	}
}

func (db *DB) id(table string) int64 {
	db.nextID[table]++
	return db.nextID[table]
}

type userRepo struct{ db *DB }

func (r userRepo) CreateUser(_ context.Context, user *models.User) error {
	db := r.db
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, taken := db.userEmails[user.Email]; taken {
		return repositories.ErrDuplicateKey
	}
	if user.DateJoined.IsZero() {
		user.DateJoined = db.now()
	}
	user.ID = db.id("users")
	db.users[user.ID] = *user
	db.userEmails[user.Email] = user.ID
	return nil
}

func (r userRepo) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	id, ok := r.db.userEmails[email]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	user := r.db.users[id]
	return &user, nil
}

func (r userRepo) FindUserByID(_ context.Context, userID int64) (*models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	user, ok := r.db.users[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &user, nil
}

func (r userRepo) GetUsers(_ context.Context) ([]models.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	users := make([]models.User, 0, len(r.db.users))
	for _, u := range r.db.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r userRepo) UpdateLastLogin(_ context.Context, userID int64, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	user, ok := r.db.users[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	user.LastLogin = &at
	r.db.users[userID] = user
	return nil
}

type customerRepo struct{ db *DB }

func (r customerRepo) CreateCustomer(_ context.Context, customer *models.Customer) error {
	db := r.db
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, taken := db.customerPhones[customer.PhoneNumber]; taken {
		return repositories.ErrDuplicateKey
	}
	customer.ID = db.id("customers")
	customer.TotalAmount = models.ZeroMoney()
	customer.Payments = nil
	db.customers[customer.ID] = *customer
	db.customerPhones[customer.PhoneNumber] = customer.ID
	return nil
}

func (r customerRepo) GetCustomerByID(_ context.Context, id int64) (*models.Customer, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	customer, ok := r.db.customers[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &customer, nil
}

func (r customerRepo) GetCustomers(_ context.Context, searchTerm string) ([]models.Customer, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	term := strings.ToLower(strings.TrimSpace(searchTerm))
	customers := []models.Customer{}
	for _, c := range r.db.customers {
		if term != "" && !strings.Contains(strings.ToLower(c.Name), term) && !strings.Contains(strings.ToLower(c.PhoneNumber), term) {
			continue
		}
		customers = append(customers, c)
	}
	sort.Slice(customers, func(i, j int) bool { return customers[i].ID < customers[j].ID })
	return customers, nil
}

type paymentRepo struct{ db *DB }

func (r paymentRepo) RecordPayment(_ context.Context, payment *models.Payment) (models.Money, error) {
	db := r.db
	db.mu.Lock()
	defer db.mu.Unlock()

	customer, ok := db.customers[payment.CustomerID]
	if !ok {
		return models.Money{}, repositories.ErrNotFound
	}
	total := customer.TotalAmount.Add(payment.Amount)
	if err := total.CheckPrecision(); err != nil {
		return models.Money{}, fmt.Errorf("%w: total for customer ID %d: %v", repositories.ErrOutOfRange, customer.ID, err)
	}
	if payment.Date.IsZero() {
		payment.Date = db.now()
	}
	payment.ID = db.id("payments")
	customer.TotalAmount = total

	db.customers[customer.ID] = customer
	db.payments[customer.ID] = append(db.payments[customer.ID], *payment)
	return customer.TotalAmount, nil
}

func (r paymentRepo) GetPaymentsByCustomerID(_ context.Context, customerID int64) ([]models.Payment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return r.db.newestFirst(customerID), nil
}

func (r paymentRepo) GetPaymentsByCustomerIDs(_ context.Context, customerIDs []int64) (map[int64][]models.Payment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	byCustomer := make(map[int64][]models.Payment, len(customerIDs))
	for _, id := range customerIDs {
		if payments := r.db.newestFirst(id); len(payments) > 0 {
			byCustomer[id] = payments
		}
	}
	return byCustomer, nil
}

// newestFirst must be called with the lock held.
func (db *DB) newestFirst(customerID int64) []models.Payment {
	stored := db.payments[customerID]
	payments := make([]models.Payment, len(stored))
	copy(payments, stored)
	sort.SliceStable(payments, func(i, j int) bool {
		if payments[i].Date.Equal(payments[j].Date) {
			return payments[i].ID > payments[j].ID
		}
		return payments[i].Date.After(payments[j].Date)
	})
	return payments
}

type tokenRepo struct{ db *DB }

func (r tokenRepo) UpsertToken(_ context.Context, token *models.JWTToken) error {
	db := r.db
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.users[token.UserID]; !ok {
		return repositories.ErrNotFound
	}
	if token.UpdatedAt.IsZero() {
		token.UpdatedAt = db.now()
	}

	if prev, ok := db.tokens[token.UserID]; ok {
		delete(db.tokenToUser, prev.Token)
		token.ID = prev.ID
		token.CreatedAt = prev.CreatedAt
	} else {
		token.ID = db.id("jwt_tokens")
		token.CreatedAt = token.UpdatedAt
	}
	db.tokens[token.UserID] = *token
	db.tokenToUser[token.Token] = token.UserID
	return nil
}

func (r tokenRepo) FindTokenByValue(_ context.Context, value string) (*models.JWTToken, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	userID, ok := r.db.tokenToUser[value]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	token := r.db.tokens[userID]
	return &token, nil
}
