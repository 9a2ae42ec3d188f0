package services

import (
	"strings"
	"unicode/utf8"

	"ledger_backend/internal/models"
	"ledger_backend/pkg/utils"
)

const (
	maxCustomerNameLen = 255
	maxPhoneNumberLen  = 15
	maxUserNameLen     = 30
	maxEmailLen        = 254
	// bcrypt rejects longer input.
	maxPasswordBytes = 72
)

// CreateCustomerCommand is a validated customer creation request.
type CreateCustomerCommand struct {
	Name        string
	PhoneNumber string
}

// NewCustomerCommand validates an untrusted payload.
func NewCustomerCommand(payload models.CustomerPayload) (CreateCustomerCommand, error) {
	cmd := CreateCustomerCommand{
		Name:        strings.TrimSpace(payload.Name),
		PhoneNumber: strings.TrimSpace(payload.PhoneNumber),
	}

	verr := &ValidationError{}
	checkRequired(verr, "name", cmd.Name, maxCustomerNameLen)
	checkRequired(verr, "phone_number", cmd.PhoneNumber, maxPhoneNumberLen)
	if !verr.empty() {
		return CreateCustomerCommand{}, verr
	}
	return cmd, nil
}

// RecordPaymentCommand is a validated payment. CustomerID comes from the
// trusted request path, the rest from the untrusted body.
type RecordPaymentCommand struct {
	CustomerID  int64
	Description string
	Amount      models.Money
}

// NewPaymentCommand assembles a payment command for customerID.
func NewPaymentCommand(customerID int64, payload models.PaymentPayload) (RecordPaymentCommand, error) {
	if customerID <= 0 {
		return RecordPaymentCommand{}, newValidationError("customer", "Invalid customer ID.")
	}

	cmd := RecordPaymentCommand{
		CustomerID:  customerID,
		Description: strings.TrimSpace(payload.Description),
	}

	verr := &ValidationError{}
	if cmd.Description == "" {
		verr.add("description", "This field is required.")
	}
	switch {
	case payload.Amount == nil:
		verr.add("amount", "This field is required.")
	case payload.Amount.CheckPrecision() != nil:
		verr.add("amount", sentence(payload.Amount.CheckPrecision().Error()))
	case !payload.Amount.IsPositive():
		verr.add("amount", "Ensure this value is greater than 0.")
	default:
		cmd.Amount = *payload.Amount
	}
	if !verr.empty() {
		return RecordPaymentCommand{}, verr
	}
	return cmd, nil
}

// RegisterUserCommand is a validated user creation request.
type RegisterUserCommand struct {
	Email       string
	FirstName   string
	LastName    string
	Password    string
	IsActive    bool
	IsStaff     bool
	IsSuperuser bool
}

// NewUserCommand validates a user payload. is_active defaults to true and is_staff to false.
func NewUserCommand(payload models.RegistrationPayload) (RegisterUserCommand, error) {
	cmd := RegisterUserCommand{
		Email:     utils.NormalizeEmail(payload.Email),
		FirstName: strings.TrimSpace(payload.FirstName),
		LastName:  strings.TrimSpace(payload.LastName),
		Password:  payload.Password,
		IsActive:  true,
	}
	if payload.IsActive != nil {
		cmd.IsActive = *payload.IsActive
	}
	if payload.IsStaff != nil {
		cmd.IsStaff = *payload.IsStaff
	}

	verr := &ValidationError{}
	if checkRequired(verr, "email", cmd.Email, maxEmailLen) && !utils.IsValidEmail(cmd.Email) {
		verr.add("email", "Enter a valid email address.")
	}
	checkRequired(verr, "first_name", cmd.FirstName, maxUserNameLen)
	checkRequired(verr, "last_name", cmd.LastName, maxUserNameLen)
	if utils.IsEmpty(cmd.Password) {
		verr.add("password", "This field is required.")
	} else if len([]byte(cmd.Password)) > maxPasswordBytes {
		verr.add("password", "Ensure this field has no more than "+utils.Int64ToStr(maxPasswordBytes)+" bytes.")
	}
	if !verr.empty() {
		return RegisterUserCommand{}, verr
	}
	return cmd, nil
}

// checkRequired records a message for a missing or over-long value and reports whether it passed.
func checkRequired(verr *ValidationError, field, value string, maxLen int) bool {
	if value == "" {
		verr.add(field, "This field is required.")
		return false
	}
	if utf8.RuneCountInString(value) > maxLen {
		verr.add(field, "Ensure this field has no more than "+utils.Int64ToStr(int64(maxLen))+" characters.")
		return false
	}
	return true
}

func sentence(msg string) string {
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}
