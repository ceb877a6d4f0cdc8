// internal/middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dataatlas/catalog-backend/internal/apperrors"
	"github.com/dataatlas/catalog-backend/internal/models"
	"github.com/dataatlas/catalog-backend/internal/utils"
)

const actorContextKey = "actor"

// AuthRequired parses the Bearer token and stores the actor on the context.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := actorFromHeader(c)
		if err != nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
			c.Abort()
			return
		}
		c.Set(actorContextKey, actor)
		c.Next()
	}
}

// AdminRequired assumes AuthRequired already ran.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok || !actor.IsAdmin() {
			utils.RespondError(c, apperrors.Forbidden("administrator access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuth sets the actor when a valid token is present and stays quiet
// otherwise.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor, err := actorFromHeader(c); err == nil {
			c.Set(actorContextKey, actor)
		}
		c.Next()
	}
}

// CurrentActor retrieves the authenticated principal from the request.
func CurrentActor(c *gin.Context) (models.Actor, bool) {
	value, ok := c.Get(actorContextKey)
	if !ok {
		return models.Actor{}, false
	}
	actor, ok := value.(models.Actor)
	return actor, ok
}

func actorFromHeader(c *gin.Context) (models.Actor, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return models.Actor{}, apperrors.Forbidden("authorization header required")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return models.Actor{}, apperrors.Forbidden("invalid authorization header")
	}

	claims, err := utils.ValidateJWT(parts[1])
	if err != nil {
		return models.Actor{}, apperrors.Forbidden("invalid or expired token")
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return models.Actor{}, apperrors.Forbidden("invalid token subject")
	}

	return models.Actor{ID: userID, Role: models.Role(claims.Role)}, nil
}
