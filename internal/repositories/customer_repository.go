package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ledger_backend/internal/models"
)

// CustomerRepository defines the interface for customer-related database operations.
// Customers are returned without their payments; see PaymentRepository.
type CustomerRepository interface {
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error)
	GetCustomers(ctx context.Context, searchTerm string) ([]models.Customer, error)
}

type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository creates a new instance of CustomerRepository.
func NewCustomerRepository(db *sql.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func scanCustomer(row scanner) (*models.Customer, error) {
	customer := &models.Customer{}
	if err := row.Scan(&customer.ID, &customer.Name, &customer.PhoneNumber, &customer.TotalAmount); err != nil {
		return nil, err
	}
	return customer, nil
}

// CreateCustomer inserts a new customer. The running total always starts at zero.
func (r *customerRepository) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	query := `INSERT INTO customers (name, phone_number, total_amount)
	          VALUES ($1, $2, 0)
	          RETURNING id, total_amount`

	err := r.db.QueryRowContext(ctx, query, customer.Name, customer.PhoneNumber).
		Scan(&customer.ID, &customer.TotalAmount)
	if err != nil {
		return wrapWriteError(err, "creating customer")
	}
	return nil
}

// GetCustomerByID retrieves a customer by ID.
func (r *customerRepository) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	query := `SELECT id, name, phone_number, total_amount FROM customers WHERE id = $1`
	customer, err := scanCustomer(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting customer by ID %d: %v", ErrDatabaseError, id, err)
	}
	return customer, nil
}

// GetCustomers lists customers ordered by ID, optionally filtered by a
// case-insensitive match on name or phone number.
func (r *customerRepository) GetCustomers(ctx context.Context, searchTerm string) ([]models.Customer, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT id, name, phone_number, total_amount FROM customers`)

	var args []interface{}
	if term := strings.TrimSpace(searchTerm); term != "" {
		queryBuilder.WriteString(` WHERE name ILIKE $1 OR phone_number ILIKE $1`)
		args = append(args, "%"+term+"%")
	}
	queryBuilder.WriteString(` ORDER BY id ASC`)

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying customers: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	customers := []models.Customer{}
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning customer: %v", ErrDatabaseError, err)
		}
		customers = append(customers, *customer)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating customer rows: %v", ErrDatabaseError, err)
	}
	return customers, nil
}
