package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledger_backend/internal/events"
	"ledger_backend/internal/models"
	"ledger_backend/internal/repositories"
	"ledger_backend/pkg/utils"
)

// PaymentRecordedEvent is the payload of a payment.recorded event.
type PaymentRecordedEvent struct {
	Payment     models.Payment `json:"payment"`
	TotalAmount models.Money   `json:"total_amount"`
}

// --- LedgerService Interface ---
type LedgerService interface {
	CreateCustomer(ctx context.Context, cmd CreateCustomerCommand) (*models.Customer, error)
	ListCustomers(ctx context.Context, search string) ([]models.Customer, error)
	GetCustomer(ctx context.Context, customerID int64) (*models.Customer, error)
	RecordPayment(ctx context.Context, cmd RecordPaymentCommand) (*models.Payment, error)
	ListPayments(ctx context.Context, customerID int64) ([]models.Payment, error)
}

// LedgerOption customises a ledger service.
type LedgerOption func(*ledgerService)

// WithLedgerClock replaces time.Now for payment dates.
func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(s *ledgerService) { s.now = now }
}

// WithPublisher sends ledger events to p.
func WithPublisher(p events.Publisher) LedgerOption {
	return func(s *ledgerService) { s.publisher = p }
}

// --- ledgerService Implementation ---
type ledgerService struct {
	customers repositories.CustomerRepository
	payments  repositories.PaymentRepository
	publisher events.Publisher
	now       func() time.Time
}

// NewLedgerService creates a new instance of LedgerService.
func NewLedgerService(customers repositories.CustomerRepository, payments repositories.PaymentRepository, opts ...LedgerOption) LedgerService {
	s := &ledgerService{
		customers: customers,
		payments:  payments,
		publisher: events.NopPublisher{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ledgerService) CreateCustomer(ctx context.Context, cmd CreateCustomerCommand) (*models.Customer, error) {
	customer := &models.Customer{
		Name:        cmd.Name,
		PhoneNumber: cmd.PhoneNumber,
	}
	if err := s.customers.CreateCustomer(ctx, customer); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, newValidationError("phone_number", "Customer with this phone number already exists.")
		}
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	customer.Payments = []models.Payment{}

	s.publish(ctx, events.CustomerCreated, customer)
	return customer, nil
}

// ListCustomers returns customers ordered by id, each with its payments newest first.
func (s *ledgerService) ListCustomers(ctx context.Context, search string) ([]models.Customer, error) {
	customers, err := s.customers.GetCustomers(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	if len(customers) == 0 {
		return customers, nil
	}

	ids := make([]int64, len(customers))
	for i := range customers {
		ids[i] = customers[i].ID
	}
	byCustomer, err := s.payments.GetPaymentsByCustomerIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("listing payments for customers: %w", err)
	}
	for i := range customers {
		customers[i].Payments = byCustomer[customers[i].ID]
		if customers[i].Payments == nil {
			customers[i].Payments = []models.Payment{}
		}
	}
	return customers, nil
}

func (s *ledgerService) GetCustomer(ctx context.Context, customerID int64) (*models.Customer, error) {
	customer, err := s.customers.GetCustomerByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("loading customer %d: %w", customerID, err)
	}
	payments, err := s.ListPayments(ctx, customerID)
	if err != nil {
		return nil, err
	}
	customer.Payments = payments
	return customer, nil
}

// RecordPayment stores the payment and bumps the customer's running total atomically.
func (s *ledgerService) RecordPayment(ctx context.Context, cmd RecordPaymentCommand) (*models.Payment, error) {
	payment := &models.Payment{
		CustomerID:  cmd.CustomerID,
		Description: cmd.Description,
		Amount:      cmd.Amount,
		Date:        s.now().UTC().Truncate(time.Microsecond),
	}
	total, err := s.payments.RecordPayment(ctx, payment)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		if errors.Is(err, repositories.ErrOutOfRange) {
			return nil, newValidationError("amount", "Payment would push the customer's total past 99999999.99.")
		}
		return nil, fmt.Errorf("failed to record payment for customer %d: %w", cmd.CustomerID, err)
	}

	s.publish(ctx, events.PaymentRecorded, PaymentRecordedEvent{Payment: *payment, TotalAmount: total})
	return payment, nil
}

// ListPayments returns the customer's payments newest first. An unknown
// customer yields an empty list.
func (s *ledgerService) ListPayments(ctx context.Context, customerID int64) ([]models.Payment, error) {
	payments, err := s.payments.GetPaymentsByCustomerID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing payments for customer %d: %w", customerID, err)
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return payments, nil
}

func (s *ledgerService) publish(ctx context.Context, eventType string, data interface{}) {
	if err := s.publisher.Publish(ctx, eventType, data); err != nil {
		utils.LogWarn(err, "Failed to publish ledger event", map[string]interface{}{"event": eventType})
	}
}
