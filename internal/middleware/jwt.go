package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/sports-facility-booking/internal/auth"
)

// JWTAuth validates the Bearer access token and stores the caller claims in
// the echo context. Handlers read them back with Claims(c).
func JWTAuth(v *auth.Verifier, logger *logrus.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "missing bearer token"})
			}
			claims, err := v.Verify(strings.TrimSpace(raw))
			if err != nil {
				logger.WithError(err).WithField("request_id", RequestID(c)).Debug("rejected access token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "invalid token"})
			}
			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}
