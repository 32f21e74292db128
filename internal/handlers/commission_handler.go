package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kasa/internal/pagination"
	"kasa/internal/services"
)

// CommissionHandler handles commission summaries and payouts.
type CommissionHandler struct {
	commissionService services.CommissionServicer
	auditService      services.AuditServicer
}

// NewCommissionHandler creates a new CommissionHandler.
func NewCommissionHandler(commissionService services.CommissionServicer, auditService services.AuditServicer) *CommissionHandler {
	return &CommissionHandler{commissionService: commissionService, auditService: auditService}
}

// RecordPayoutRequest represents the request payload for a commission payout.
type RecordPayoutRequest struct {
	Amount      string  `json:"amount" binding:"required,decimal"`
	PaymentDate string  `json:"payment_date"`
	PeriodStart *string `json:"period_start"`
	PeriodEnd   *string `json:"period_end"`
	Notes       string  `json:"notes" binding:"max=500"`
}

func parsePeriod(c *gin.Context) (services.CommissionPeriod, error) {
	var period services.CommissionPeriod
	var err error
	if v := c.Query("from"); v != "" {
		if period.From, err = parseOptionalDate("from", &v); err != nil {
			return period, err
		}
	}
	if v := c.Query("to"); v != "" {
		if period.To, err = parseOptionalUpperBound("to", &v); err != nil {
			return period, err
		}
	}
	return period, nil
}

// Summary returns accrued, paid and pending commission for a period.
// @Summary     Commission summary
// @Tags        commissions
// @Produce     json
// @Param       from query string false "Period start (YYYY-MM-DD)"
// @Param       to   query string false "Period end (YYYY-MM-DD)"
// @Success     200 {object} services.CommissionSummary
// @Router      /commissions/summary [get]
func (h *CommissionHandler) Summary(c *gin.Context) {
	userID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	period, err := parsePeriod(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	summary, err := h.commissionService.Summary(c.Request.Context(), userID, period)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// GetUserCommissions lists accrued commissions, newest first.
// @Summary     List commissions
// @Tags        commissions
// @Produce     json
// @Param       from query string false "Period start (YYYY-MM-DD)"
// @Param       to   query string false "Period end (YYYY-MM-DD)"
// @Success     200 {object} pagination.PageResponse[models.Commission]
// @Router      /commissions [get]
func (h *CommissionHandler) GetUserCommissions(c *gin.Context) {
	userID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindError(err))
		return
	}
	period, err := parsePeriod(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.commissionService.GetUserCommissions(userID, period, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RecordPayout records a commission payment to the actor.
// @Summary     Record a commission payout
// @Tags        commissions
// @Accept      json
// @Produce     json
// @Param       request body RecordPayoutRequest true "Payout details"
// @Success     201 {object} models.CommissionPayout
// @Failure     400 {object} ErrorResponse "Invalid input or payout exceeds pending"
// @Router      /commissions/payouts [post]
func (h *CommissionHandler) RecordPayout(c *gin.Context) {
	userID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RecordPayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	input := services.RecordPayoutInput{Notes: req.Notes}
	if input.Amount, err = parseDecimal("amount", req.Amount); err != nil {
		respondWithError(c, err)
		return
	}
	if input.PaymentDate, err = parseDate("payment_date", req.PaymentDate); err != nil {
		respondWithError(c, err)
		return
	}
	if input.PeriodStart, err = parseOptionalDate("period_start", req.PeriodStart); err != nil {
		respondWithError(c, err)
		return
	}
	if input.PeriodEnd, err = parseOptionalUpperBound("period_end", req.PeriodEnd); err != nil {
		respondWithError(c, err)
		return
	}

	payout, err := h.commissionService.RecordPayout(c.Request.Context(), userID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditCommissionPayout, "commission_payout", payout.ID, c.ClientIP(),
		map[string]interface{}{"amount": payout.Amount.String()})

	c.JSON(http.StatusCreated, gin.H{"payout": payout})
}
