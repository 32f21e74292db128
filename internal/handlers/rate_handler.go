package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "kasa/internal/errors"
	"kasa/internal/fxrate"
	"kasa/internal/services"
)

// RateStore saves operator-supplied rates.
type RateStore interface {
	SaveManualRate(ctx context.Context, currency string, date time.Time, buying, selling decimal.Decimal) (fxrate.Rate, error)
}

// rateForgetter drops a cached rate after a manual overwrite.
type rateForgetter interface {
	Forget(currency string, date time.Time)
}

// RateHandler serves exchange rates against TRY.
type RateHandler struct {
	rates        fxrate.Provider
	store        RateStore
	auditService services.AuditServicer
	now          func() time.Time
}

// NewRateHandler creates a new RateHandler. rates is consulted for lookups and,
// when it caches, is told to forget a day whose rate is overwritten.
func NewRateHandler(rates fxrate.Provider, store RateStore, auditService services.AuditServicer) *RateHandler {
	return &RateHandler{rates: rates, store: store, auditService: auditService, now: time.Now}
}

// SaveRateRequest represents the request payload for a manual rate.
type SaveRateRequest struct {
	Date    string `json:"date"`
	Buying  string `json:"buying" binding:"required,decimal"`
	Selling string `json:"selling" binding:"required,decimal"`
}

// RateResponse represents a rate in the response.
type RateResponse struct {
	Currency string          `json:"currency"`
	Date     string          `json:"date"`
	Buying   decimal.Decimal `json:"buying"`
	Selling  decimal.Decimal `json:"selling"`
}

func rateResponse(r fxrate.Rate) RateResponse {
	return RateResponse{Currency: r.Currency, Date: fxrate.DayKey(r.Date), Buying: r.Buying, Selling: r.Selling}
}

func (h *RateHandler) currencyParam(c *gin.Context) (string, error) {
	code := strings.ToUpper(c.Param("currency"))
	if len(code) != 3 {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid currency")
	}
	return code, nil
}

// GetRate returns the rate of a currency on a day, defaulting to today.
// @Summary     Get an exchange rate
// @Tags        rates
// @Produce     json
// @Param       currency path  string true  "ISO 4217 code"
// @Param       date     query string false "Day (YYYY-MM-DD)"
// @Success     200 {object} RateResponse
// @Failure     422 {object} ErrorResponse "Rate unavailable"
// @Router      /rates/{currency} [get]
func (h *RateHandler) GetRate(c *gin.Context) {
	code, err := h.currencyParam(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	date, err := parseDate("date", c.Query("date"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	if date.IsZero() {
		date = h.now()
	}

	rate, err := fxrate.Lookup(c.Request.Context(), h.rates, code, date)
	if err != nil {
		if errors.Is(err, fxrate.ErrRateUnavailable) {
			respondWithError(c, apperrors.Wrap(apperrors.ErrRateUnavailable, err))
			return
		}
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"rate": rateResponse(rate)})
}

// SaveRate stores a manual rate for a currency and day, replacing any stored one.
// @Summary     Save a manual exchange rate
// @Tags        rates
// @Accept      json
// @Produce     json
// @Param       currency path string          true "ISO 4217 code"
// @Param       request  body SaveRateRequest true "Rate"
// @Success     200 {object} RateResponse
// @Router      /rates/{currency} [put]
func (h *RateHandler) SaveRate(c *gin.Context) {
	userID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	code, err := h.currencyParam(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if fxrate.IsBase(code) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "TRY is the base currency"))
		return
	}

	var req SaveRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if date.IsZero() {
		date = h.now()
	}
	buying, err := parseDecimal("buying", req.Buying)
	if err != nil {
		respondWithError(c, err)
		return
	}
	selling, err := parseDecimal("selling", req.Selling)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if !buying.IsPositive() || !selling.IsPositive() {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "buying and selling must be positive"))
		return
	}

	rate, err := h.store.SaveManualRate(c.Request.Context(), code, date, buying, selling)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	if f, ok := h.rates.(rateForgetter); ok {
		f.Forget(code, date)
	}

	h.auditService.Log(userID, services.AuditManualRate, "exchange_rate", code+"|"+fxrate.DayKey(date), c.ClientIP(),
		map[string]interface{}{"buying": buying.String(), "selling": selling.String()})

	c.JSON(http.StatusOK, gin.H{"rate": rateResponse(rate)})
}
