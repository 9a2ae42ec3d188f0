package repositories

import "database/sql"

// Store bundles the repositories a server needs.
type Store struct {
	Users     UserRepository
	Customers CustomerRepository
	Payments  PaymentRepository
	Tokens    TokenRepository
}

// NewPostgresStore wires every repository to the same connection pool.
func NewPostgresStore(db *sql.DB) *Store {
	return &Store{
		Users:     NewUserRepository(db),
		Customers: NewCustomerRepository(db),
		Payments:  NewPaymentRepository(db),
		Tokens:    NewTokenRepository(db),
	}
}
