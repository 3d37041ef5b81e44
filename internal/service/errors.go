package service

import (
	"errors"

	"realty/internal/exchange"
)

// Validation errors.
var (
	// ErrInvalidUserID is returned when user ID is empty.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidOrderID is returned when order ID is empty.
	ErrInvalidOrderID = errors.New("invalid order id")

	// ErrInvalidPaymentID is returned when payment ID is empty.
	ErrInvalidPaymentID = errors.New("invalid payment id")

	// ErrInvalidPaymentAmount is returned when payment amount is not a positive number.
	ErrInvalidPaymentAmount = errors.New("invalid payment amount")

	// ErrInvalidRefundAmount is returned when a refund amount is not positive.
	ErrInvalidRefundAmount = errors.New("invalid refund amount")

	// ErrRefundExceedsPayment is returned when a refund is larger than the original payment.
	ErrRefundExceedsPayment = errors.New("refund amount exceeds payment amount")

	// ErrInvalidCurrency is returned when a currency code is not a 3-letter code.
	ErrInvalidCurrency = errors.New("invalid currency code")

	// ErrInvalidWebhookDetails is returned when webhook details lack required fields.
	ErrInvalidWebhookDetails = errors.New("invalid webhook details")

	// ErrUnknownWebhookStatus is returned for a webhook status with no matching transition.
	ErrUnknownWebhookStatus = errors.New("unknown webhook status")
)

// State machine errors.
var (
	// ErrInvalidTransition is returned when the payment's current status does not allow the operation.
	ErrInvalidTransition = errors.New("invalid payment status transition")

	// ErrPaymentLocked is returned when another operation holds the payment's lock.
	ErrPaymentLocked = errors.New("payment is being modified by another request")
)

// FX errors.
var (
	// ErrConversion wraps any failure to obtain a rate while creating a payment.
	ErrConversion = errors.New("currency conversion failed")

	// ErrUnsupportedCurrency is returned when a code is absent from the rate table.
	ErrUnsupportedCurrency = errors.New("unsupported currency")

	// ErrUpstreamUnavailable is returned when the rate table cannot be fetched.
	ErrUpstreamUnavailable = exchange.ErrUpstreamUnavailable
)
