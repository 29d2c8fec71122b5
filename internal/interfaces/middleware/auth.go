package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/funnelsync/backend/pkg/auth"
	"github.com/funnelsync/backend/pkg/constants"
	"github.com/funnelsync/backend/pkg/errors"
)

// RequireAPIKey validates the x-api-key header against a stored bcrypt
// hash. An empty configured hash disables the route group entirely
// rather than leaving it open.
func RequireAPIKey(keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if keyHash == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				constants.ResponseSuccess: false,
				constants.ResponseError:   "integration API key is not configured",
			})
			c.Abort()
			return
		}

		key := c.GetHeader(constants.HeaderAPIKey)
		if key == "" {
			abortUnauthorized(c, errors.NewUnauthorizedError("missing "+constants.HeaderAPIKey+" header"))
			return
		}

		if !auth.VerifyAPIKey(key, keyHash) {
			abortUnauthorized(c, errors.NewUnauthorizedError("invalid api key"))
			return
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, err *errors.UnauthorizedError) {
	c.JSON(err.HTTPStatus(), gin.H{
		constants.ResponseSuccess: false,
		constants.ResponseError:   err.Error(),
	})
	c.Abort()
}
