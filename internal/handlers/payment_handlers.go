package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger_backend/internal/models"
	"ledger_backend/internal/services"
)

// PaymentHandler serves /payments/:customerId/.
type PaymentHandler struct {
	ledger services.LedgerService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(ls services.LedgerService) *PaymentHandler {
	return &PaymentHandler{ledger: ls}
}

// ListPayments returns the customer's payments newest first.
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	customerID, ok := int64Param(c, "customerId", "customer")
	if !ok {
		return
	}
	payments, err := h.ledger.ListPayments(c.Request.Context(), customerID)
	if err != nil {
		respondServiceError(c, err, "ListPayments: Error from ledger.ListPayments", "Failed to fetch payments.")
		return
	}
	c.JSON(http.StatusOK, payments)
}

// RecordPayment records a payment for the customer in the path. A customer
// field in the body is ignored.
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	customerID, ok := int64Param(c, "customerId", "customer")
	if !ok {
		return
	}
	var payload models.PaymentPayload
	if !bindJSON(c, &payload, "RecordPayment") {
		return
	}

	cmd, err := services.NewPaymentCommand(customerID, payload)
	if err != nil {
		respondServiceError(c, err, "RecordPayment: invalid command", "Failed to record payment.")
		return
	}
	payment, err := h.ledger.RecordPayment(c.Request.Context(), cmd)
	if err != nil {
		respondServiceError(c, err, "RecordPayment: Error from ledger.RecordPayment", "Failed to record payment.")
		return
	}
	c.JSON(http.StatusCreated, payment)
}
