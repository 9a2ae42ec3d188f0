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

// PaymentRepository defines the interface for payment-related database operations.
type PaymentRepository interface {
	// RecordPayment inserts the payment and adds its amount to the customer's
	// running total as one atomic unit. It returns the customer's new total,
	// or ErrNotFound when the customer does not exist.
	RecordPayment(ctx context.Context, payment *models.Payment) (models.Money, error)
	GetPaymentsByCustomerID(ctx context.Context, customerID int64) ([]models.Payment, error)
	GetPaymentsByCustomerIDs(ctx context.Context, customerIDs []int64) (map[int64][]models.Payment, error)
}

type paymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository creates a new instance of PaymentRepository.
func NewPaymentRepository(db *sql.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `id, customer_id, description, amount, date`

func scanPayment(row scanner) (*models.Payment, error) {
	payment := &models.Payment{}
	if err := row.Scan(&payment.ID, &payment.CustomerID, &payment.Description, &payment.Amount, &payment.Date); err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *paymentRepository) RecordPayment(ctx context.Context, payment *models.Payment) (models.Money, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Money{}, fmt.Errorf("%w: starting payment transaction: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	// The row lock taken by the UPDATE serialises concurrent payments for the same customer.
	total, err := incrementCustomerTotal(ctx, tx, payment.CustomerID, payment.Amount)
	if err != nil {
		return models.Money{}, err
	}

	if payment.Date.IsZero() {
		payment.Date = time.Now().UTC().Truncate(time.Microsecond)
	}
	query := `INSERT INTO payments (customer_id, description, amount, date)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id`
	err = tx.QueryRowContext(ctx, query, payment.CustomerID, payment.Description, payment.Amount, payment.Date).
		Scan(&payment.ID)
	if err != nil {
		return models.Money{}, wrapWriteError(err, "creating payment")
	}

	if err := tx.Commit(); err != nil {
		return models.Money{}, fmt.Errorf("%w: committing payment transaction: %v", ErrDatabaseError, err)
	}
	return total, nil
}

func incrementCustomerTotal(ctx context.Context, executor SQLExecutor, customerID int64, amount models.Money) (models.Money, error) {
	query := `UPDATE customers SET total_amount = total_amount + $1 WHERE id = $2 RETURNING total_amount`
	var total models.Money
	if err := executor.QueryRowContext(ctx, query, amount, customerID).Scan(&total); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Money{}, ErrNotFound
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "numeric_value_out_of_range" {
			return models.Money{}, fmt.Errorf("%w: total for customer ID %d", ErrOutOfRange, customerID)
		}
		return models.Money{}, fmt.Errorf("%w: incrementing total for customer ID %d: %v", ErrDatabaseError, customerID, err)
	}
	return total, nil
}

// GetPaymentsByCustomerID returns the customer's payments newest first.
func (r *paymentRepository) GetPaymentsByCustomerID(ctx context.Context, customerID int64) ([]models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE customer_id = $1 ORDER BY date DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying payments for customer ID %d: %v", ErrDatabaseError, customerID, err)
	}
	defer rows.Close()

	payments := []models.Payment{}
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning payment: %v", ErrDatabaseError, err)
		}
		payments = append(payments, *payment)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating payment rows: %v", ErrDatabaseError, err)
	}
	return payments, nil
}

// GetPaymentsByCustomerIDs loads the payments of several customers in one query, newest first per customer.
func (r *paymentRepository) GetPaymentsByCustomerIDs(ctx context.Context, customerIDs []int64) (map[int64][]models.Payment, error) {
	byCustomer := make(map[int64][]models.Payment, len(customerIDs))
	if len(customerIDs) == 0 {
		return byCustomer, nil
	}

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE customer_id = ANY($1) ORDER BY date DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(customerIDs))
	if err != nil {
		return nil, fmt.Errorf("%w: querying payments: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning payment: %v", ErrDatabaseError, err)
		}
		byCustomer[payment.CustomerID] = append(byCustomer[payment.CustomerID], *payment)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating payment rows: %v", ErrDatabaseError, err)
	}
	return byCustomer, nil
}
