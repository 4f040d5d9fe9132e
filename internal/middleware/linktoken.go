package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/timetable-skill/pkg/errors"
	"github.com/noah-isme/timetable-skill/pkg/response"
)

// TokenVerifier validates a form link token for a uid.
type TokenVerifier interface {
	Enabled() bool
	Verify(token, uid string) error
}

// LinkToken guards uid-scoped routes with the token issued in registration
// links. The token is read from the token query parameter or a Bearer header.
func LinkToken(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil || !verifier.Enabled() {
			c.Next()
			return
		}
		if err := verifier.Verify(TokenFromRequest(c), c.Param("uid")); err != nil {
			_ = c.Error(err)
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired link token"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// TokenFromRequest extracts a link token from the query string or Authorization header.
func TokenFromRequest(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
