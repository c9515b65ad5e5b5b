// Package handler adapts the services to HTTP. Handlers bind the request,
// call the Authorized service variant with the caller claims and render the
// result or the error.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/sports-facility-booking/internal/apperr"
	"github.com/iliyamo/sports-facility-booking/internal/middleware"
	"github.com/iliyamo/sports-facility-booking/internal/model"
)

var errUnauthenticated = errors.New("missing caller claims")

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// respond writes err as {"error": code, "message": ...}. Domain errors map
// through apperr; echo errors such as a malformed body keep their status.
func respond(c echo.Context, log *logrus.Logger, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		status := apperr.HTTPStatus(ae)
		if status >= http.StatusInternalServerError {
			// Store details stay in the log, the caller gets a generic message.
			return c.JSON(status, errorBody{Error: ae.Code(), Message: "internal error"})
		}
		return c.JSON(status, errorBody{Error: ae.Code(), Message: ae.Error()})
	}
	if errors.Is(err, errUnauthenticated) {
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthorized", Message: err.Error()})
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, _ := he.Message.(string)
		return c.JSON(he.Code, errorBody{Error: strings.ReplaceAll(strings.ToLower(http.StatusText(he.Code)), " ", "_"), Message: msg})
	}
	log.WithError(err).WithField("request_id", middleware.RequestID(c)).Error("unhandled error")
	return c.JSON(http.StatusInternalServerError, errorBody{Error: "store_error", Message: "internal error"})
}

func claims(c echo.Context) (model.Claims, error) {
	cl, ok := middleware.Claims(c)
	if !ok {
		return model.Claims{}, errUnauthenticated
	}
	return cl, nil
}

// bindBody decodes the request body only; path and query are read explicitly.
func bindBody(c echo.Context, v any) error {
	return (&echo.DefaultBinder{}).BindBody(c, v)
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (int64, error) {
	n, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || n <= 0 {
		return 0, apperr.Validationf("%s must be a positive integer", name)
	}
	return n, nil
}

func queryInt64(c echo.Context, name string) (*int64, error) {
	s := c.QueryParam(name)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, apperr.Validationf("%s must be an integer", name)
	}
	return &n, nil
}

func queryTime(c echo.Context, name string) (*time.Time, error) {
	s := c.QueryParam(name)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, apperr.Validationf("%s must be an RFC 3339 timestamp", name)
	}
	t = t.UTC()
	return &t, nil
}
