package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"realty/internal/service"
)

// FXHandler exposes exchange rate lookups.
type FXHandler struct {
	fxService *service.FXService
}

// NewFXHandler creates a new FXHandler.
func NewFXHandler(fxService *service.FXService) *FXHandler {
	return &FXHandler{fxService: fxService}
}

// RateResponse is the HTTP response for a rate lookup.
type RateResponse struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Rate float64 `json:"rate"`
}

// ConversionResponse is the HTTP response for a conversion quote.
type ConversionResponse struct {
	From            string  `json:"from"`
	To              string  `json:"to"`
	Amount          float64 `json:"amount"`
	Rate            float64 `json:"rate"`
	ConvertedAmount float64 `json:"convertedAmount"`
}

// GetRate handles GET /v1/fx/rate?from=EUR&to=USD
func (h *FXHandler) GetRate(c *gin.Context) {
	quote, err := h.fxService.Quote(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, RateResponse{
		From: quote.From,
		To:   quote.To,
		Rate: quote.Rate,
	})
}

// Convert handles GET /v1/fx/convert?amount=100&from=EUR&to=USD
func (h *FXHandler) Convert(c *gin.Context) {
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "amount must be a number"})
		return
	}

	conversion, err := h.fxService.Convert(c.Request.Context(), amount, c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, ConversionResponse{
		From:            conversion.From,
		To:              conversion.To,
		Amount:          conversion.Amount,
		Rate:            conversion.Rate,
		ConvertedAmount: conversion.ConvertedAmount,
	})
}
