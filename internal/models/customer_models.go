package models

import "time"

// Customer accumulates payments and a running balance.
type Customer struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	PhoneNumber string    `json:"phone_number" db:"phone_number"`
	Payments    []Payment `json:"payments"`
	TotalAmount Money     `json:"total_amount" db:"total_amount"`
}

// Payment is an immutable amount recorded against a customer.
type Payment struct {
	ID          int64     `json:"id" db:"id"`
	CustomerID  int64     `json:"customer" db:"customer_id"`
	Description string    `json:"description" db:"description"`
	Amount      Money     `json:"amount" db:"amount"`
	Date        time.Time `json:"date" db:"date"`
}

// CustomerPayload is the untrusted body of a customer creation request.
type CustomerPayload struct {
	Name        string `json:"name" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required"`
}

// PaymentPayload is the untrusted body of a payment request. The customer
// comes from the URL, never from the body.
type PaymentPayload struct {
	Description string `json:"description" binding:"required"`
	Amount      *Money `json:"amount" binding:"required"`
}
