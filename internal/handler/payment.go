package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"realty/internal/domain"
	"realty/internal/service"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreatePaymentRequest is the HTTP request body for creating a payment.
type CreatePaymentRequest struct {
	UserID               string  `json:"userId"`
	OrderID              string  `json:"orderId"`
	Amount               float64 `json:"amount"`
	Currency             string  `json:"currency"`
	PaymentGateway       string  `json:"paymentGateway"`
	GatewayTransactionID string  `json:"gatewayTransactionId"`
}

// CompletePaymentRequest is the HTTP request body for completing a payment.
type CompletePaymentRequest struct {
	PerformedBy string         `json:"performedBy"`
	Details     map[string]any `json:"details"`
}

// FailPaymentRequest is the HTTP request body for failing a payment.
type FailPaymentRequest struct {
	PerformedBy string `json:"performedBy"`
	Reason      string `json:"reason"`
}

// RefundPaymentRequest is the HTTP request body for refunding a payment.
type RefundPaymentRequest struct {
	Amount      float64 `json:"amount"`
	Reason      string  `json:"reason"`
	PerformedBy string  `json:"performedBy"`
}

// WebhookRequest is the gateway callback body.
type WebhookRequest struct {
	PaymentID   string         `json:"paymentId"`
	Status      string         `json:"status"`
	PerformedBy string         `json:"performedBy"`
	Details     map[string]any `json:"details"`
}

// RefundResponse is the refund sub-record of a payment response.
type RefundResponse struct {
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	BaseAmount float64   `json:"baseAmount"`
	FXRate     float64   `json:"fxRate"`
	RefundedAt time.Time `json:"refundedAt"`
	Reason     string    `json:"reason"`
}

// PaymentResponse is the HTTP response for payment operations.
type PaymentResponse struct {
	ID                   string              `json:"id"`
	UserID               string              `json:"userId"`
	OrderID              string              `json:"orderId"`
	Amount               float64             `json:"amount"`
	Currency             string              `json:"currency"`
	BaseCurrency         string              `json:"baseCurrency"`
	FXRate               float64             `json:"fxRate"`
	BaseAmount           float64             `json:"baseAmount"`
	PaymentGateway       string              `json:"paymentGateway"`
	GatewayTransactionID string              `json:"gatewayTransactionId"`
	Status               string              `json:"status"`
	Refund               *RefundResponse     `json:"refund,omitempty"`
	AuditLog             []domain.AuditEntry `json:"auditLog"`
	CreatedAt            time.Time           `json:"createdAt"`
	UpdatedAt            time.Time           `json:"updatedAt"`
}

// CreatePayment handles POST /v1/payments
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	payment, err := h.paymentService.CreatePayment(c.Request.Context(), service.CreatePaymentRequest{
		UserID:               req.UserID,
		OrderID:              req.OrderID,
		Amount:               req.Amount,
		Currency:             req.Currency,
		PaymentGateway:       req.PaymentGateway,
		GatewayTransactionID: req.GatewayTransactionID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toPaymentResponse(payment))
}

// GetPayment handles GET /v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.paymentService.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

// ListUserPayments handles GET /v1/users/:userId/payments
func (h *PaymentHandler) ListUserPayments(c *gin.Context) {
	payments, err := h.paymentService.ListPaymentsByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		response = append(response, toPaymentResponse(p))
	}

	respondJSON(c, http.StatusOK, response)
}

// CompletePayment handles POST /v1/payments/:id/complete
func (h *PaymentHandler) CompletePayment(c *gin.Context) {
	var req CompletePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	payment, err := h.paymentService.CompletePayment(c.Request.Context(), c.Param("id"), req.PerformedBy, req.Details)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

// FailPayment handles POST /v1/payments/:id/fail
func (h *PaymentHandler) FailPayment(c *gin.Context) {
	var req FailPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	payment, err := h.paymentService.FailPayment(c.Request.Context(), c.Param("id"), req.PerformedBy, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

// RefundPayment handles POST /v1/payments/:id/refund
func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	var req RefundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	payment, err := h.paymentService.RefundPayment(c.Request.Context(), service.RefundPaymentRequest{
		PaymentID:   c.Param("id"),
		Amount:      req.Amount,
		Reason:      req.Reason,
		PerformedBy: req.PerformedBy,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

// Webhook handles POST /v1/payments/webhook
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	payment, err := h.paymentService.HandleWebhook(c.Request.Context(), service.WebhookEvent{
		PaymentID:   req.PaymentID,
		Status:      req.Status,
		PerformedBy: req.PerformedBy,
		Details:     req.Details,
	})
	if err != nil {
		_ = c.Error(err)
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

func toPaymentResponse(p *domain.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:                   p.ID,
		UserID:               p.UserID,
		OrderID:              p.OrderID,
		Amount:               p.Amount,
		Currency:             p.Currency,
		BaseCurrency:         p.BaseCurrency,
		FXRate:               p.FXRate,
		BaseAmount:           p.BaseAmount,
		PaymentGateway:       p.PaymentGateway,
		GatewayTransactionID: p.GatewayTransactionID,
		Status:               string(p.Status),
		AuditLog:             p.AuditLog,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
	if resp.AuditLog == nil {
		resp.AuditLog = []domain.AuditEntry{}
	}
	if p.Refund != nil {
		resp.Refund = &RefundResponse{
			Amount:     p.Refund.Amount,
			Currency:   p.Refund.Currency,
			BaseAmount: p.Refund.BaseAmount,
			FXRate:     p.Refund.FXRate,
			RefundedAt: p.Refund.RefundedAt,
			Reason:     p.Refund.Reason,
		}
	}
	return resp
}
