package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kasa/internal/services"
)

// UserHandler handles owner records and commission settings.
type UserHandler struct {
	userService  services.UserServicer
	auditService services.AuditServicer
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService services.UserServicer, auditService services.AuditServicer) *UserHandler {
	return &UserHandler{userService: userService, auditService: auditService}
}

// CreateUserRequest represents the request payload for registering an owner.
type CreateUserRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=100"`
	Email string `json:"email" binding:"required,email"`
}

// CommissionSettingsRequest represents the request payload for commission settings.
type CommissionSettingsRequest struct {
	HasCommission  bool   `json:"has_commission"`
	CommissionRate string `json:"commission_rate" binding:"required,decimal"`
}

// ErrorDetail represents the inner error object in an error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// CreateUser registers a new owner. It is the only route that needs no actor.
// @Summary     Register an owner
// @Tags        users
// @Accept      json
// @Produce     json
// @Param       request body CreateUserRequest true "Owner details"
// @Success     201 {object} models.User
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Email already registered"
// @Router      /users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	user, err := h.userService.CreateUser(req.Name, req.Email)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// GetMe returns the acting owner.
// @Summary     Get the acting owner
// @Tags        users
// @Produce     json
// @Success     200 {object} models.User
// @Router      /users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	userID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateCommissionSettings changes the rate future income accrues commission at.
// @Summary     Update commission settings
// @Tags        users
// @Accept      json
// @Produce     json
// @Param       request body CommissionSettingsRequest true "Commission settings"
// @Success     200 {object} models.User
// @Router      /users/me/commission [put]
func (h *UserHandler) UpdateCommissionSettings(c *gin.Context) {
	userID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CommissionSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}
	rate, err := parseDecimal("commission_rate", req.CommissionRate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.UpdateCommissionSettings(userID, req.HasCommission, rate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, services.AuditCommissionSettings, "user", user.ID, c.ClientIP(),
		map[string]interface{}{"has_commission": req.HasCommission, "commission_rate": rate.String()})

	c.JSON(http.StatusOK, gin.H{"user": user})
}
