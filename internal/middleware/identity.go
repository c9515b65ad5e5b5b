package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sports-facility-booking/internal/model"
)

const claimsKey = "claims"

// Claims returns the claims stored by JWTAuth. ok is false on routes that
// are not behind it.
func Claims(c echo.Context) (model.Claims, bool) {
	cl, ok := c.Get(claimsKey).(model.Claims)
	return cl, ok
}

// userID is the subject id as a string, or "guest" when unauthenticated.
func userID(c echo.Context) string {
	if cl, ok := Claims(c); ok && cl.SubjectID > 0 {
		return strconv.FormatInt(cl.SubjectID, 10)
	}
	return "guest"
}
