package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger_backend/internal/models"
	"ledger_backend/internal/services"
)

// CustomerHandler serves /customers/.
type CustomerHandler struct {
	ledger services.LedgerService
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(ls services.LedgerService) *CustomerHandler {
	return &CustomerHandler{ledger: ls}
}

// ListCustomers returns every customer with nested payments. ?search= filters
// on name or phone number.
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	customers, err := h.ledger.ListCustomers(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondServiceError(c, err, "ListCustomers: Error from ledger.ListCustomers", "Failed to fetch customers.")
		return
	}
	c.JSON(http.StatusOK, customers)
}

// CreateCustomer validates the body and creates a customer with a zero total.
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var payload models.CustomerPayload
	if !bindJSON(c, &payload, "CreateCustomer") {
		return
	}

	cmd, err := services.NewCustomerCommand(payload)
	if err != nil {
		respondServiceError(c, err, "CreateCustomer: invalid command", "Failed to create customer.")
		return
	}
	customer, err := h.ledger.CreateCustomer(c.Request.Context(), cmd)
	if err != nil {
		respondServiceError(c, err, "CreateCustomer: Error from ledger.CreateCustomer", "Failed to create customer.")
		return
	}
	c.JSON(http.StatusCreated, customer)
}

// GetCustomer returns one customer with nested payments, or 404.
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	customerID, ok := int64Param(c, "customerId", "customer")
	if !ok {
		return
	}
	customer, err := h.ledger.GetCustomer(c.Request.Context(), customerID)
	if err != nil {
		respondServiceError(c, err, "GetCustomer: Error from ledger.GetCustomer", "Failed to fetch customer.")
		return
	}
	c.JSON(http.StatusOK, customer)
}
