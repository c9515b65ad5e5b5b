package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const requestIDKey = "request_id"

// RequestLog reuses an incoming X-Request-ID or mints a UUID, echoes it on
// the response and logs one line per request.
func RequestLog(logger *logrus.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Set(requestIDKey, id)
			c.Response().Header().Set(echo.HeaderXRequestID, id)

			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.WithFields(logrus.Fields{
				"request_id": id,
				"method":     c.Request().Method,
				"route":      c.Path(),
				"status":     c.Response().Status,
				"user":       userID(c),
			}).Info("request")
			return nil
		}
	}
}

// RequestID returns the id assigned by RequestLog, or "" outside it.
func RequestID(c echo.Context) string {
	id, _ := c.Get(requestIDKey).(string)
	return id
}
