package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "kasa/internal/errors"
	"kasa/internal/models"
)

const (
	// ActorHeader carries the ID of the owner a request acts for.
	ActorHeader = "X-Actor-ID"
	// ActorKey is the gin context key holding the acting owner's ID.
	ActorKey = "actorID"
)

// UserLookup resolves an actor ID to an active owner.
type UserLookup interface {
	GetUserByID(id string) (*models.User, error)
}

// Actor reads the acting owner from the X-Actor-ID header, checks that it
// names an active user and stores its ID in the context. Requests without a
// valid actor are rejected with UNAUTHORIZED.
func Actor(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(ActorHeader)
		if raw == "" {
			abortWith(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "X-Actor-ID header is required"))
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			abortWith(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "X-Actor-ID must be a UUID"))
			return
		}

		user, err := users.GetUserByID(id.String())
		if err != nil {
			if errors.Is(err, apperrors.ErrUserNotFound) {
				abortWith(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "unknown or inactive actor"))
				return
			}
			abortWith(c, err)
			return
		}

		c.Set(ActorKey, user.ID)
		c.Next()
	}
}

// APIKey rejects requests whose X-API-Key header does not match key.
func APIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"error": gin.H{"code": "INVALID_API_KEY", "message": "Invalid or missing API key"}})
			return
		}
		c.Next()
	}
}

func abortWith(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
