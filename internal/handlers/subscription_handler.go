package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kasa/internal/services"
)

// SubscriptionHandler handles quick duplicates and subscription schedules.
type SubscriptionHandler struct {
	subscriptionService services.SubscriptionServicer
	auditService        services.AuditServicer
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(subscriptionService services.SubscriptionServicer, auditService services.AuditServicer) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService, auditService: auditService}
}

// QuickDuplicate records a copy of a transaction dated now. A subscription's
// schedule advances in the same database transaction.
// @Summary     Duplicate a transaction
// @Tags        subscriptions
// @Produce     json
// @Param       id path string true "Transaction ID"
// @Success     201 {object} services.DuplicateResult
// @Router      /transactions/{id}/duplicate [post]
func (h *SubscriptionHandler) QuickDuplicate(c *gin.Context) {
	userID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.subscriptionService.QuickDuplicate(c.Request.Context(), userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditDuplicate, "transaction", result.Duplicate.ID, c.ClientIP(),
		map[string]interface{}{"duplicate_of": result.Original.ID})

	c.JSON(http.StatusCreated, result)
}

// AdvanceSchedule moves a subscription's next payment date one period forward.
// @Summary     Advance a subscription
// @Tags        subscriptions
// @Produce     json
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction
// @Failure     400 {object} ErrorResponse "Not a subscription"
// @Router      /transactions/{id}/advance [post]
func (h *SubscriptionHandler) AdvanceSchedule(c *gin.Context) {
	userID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	tx, err := h.subscriptionService.AdvanceSchedule(c.Request.Context(), userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditAdvanceSchedule, "transaction", tx.ID, c.ClientIP(),
		map[string]interface{}{"next_payment_date": tx.NextPaymentDate})

	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// EndSubscription stops a subscription. The transaction itself is kept.
// @Summary     End a subscription
// @Tags        subscriptions
// @Produce     json
// @Param       id path string true "Transaction ID"
// @Success     200 {object} models.Transaction
// @Router      /transactions/{id}/subscription [delete]
func (h *SubscriptionHandler) EndSubscription(c *gin.Context) {
	userID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	transactionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	tx, err := h.subscriptionService.EndSubscription(c.Request.Context(), userID, transactionID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditEndSubscription, "transaction", tx.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

// DueSubscriptions lists subscriptions whose next payment falls on or before
// as_of, which defaults to today.
// @Summary     List due subscriptions
// @Tags        subscriptions
// @Produce     json
// @Param       as_of query string false "Day to check (YYYY-MM-DD)"
// @Success     200 {array} models.Transaction
// @Router      /subscriptions/due [get]
func (h *SubscriptionHandler) DueSubscriptions(c *gin.Context) {
	userID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	asOf, err := parseDate("as_of", c.Query("as_of"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	due, err := h.subscriptionService.DueSubscriptions(c.Request.Context(), userID, asOf)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscriptions": due, "count": len(due)})
}
