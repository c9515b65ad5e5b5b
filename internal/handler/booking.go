package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/sports-facility-booking/internal/model"
	"github.com/iliyamo/sports-facility-booking/internal/service"
)

// BookingHandler serves the booking aggregate and its event routes.
type BookingHandler struct {
	Bookings *service.BookingService
	Log      *logrus.Logger
}

func NewBookingHandler(s *service.BookingService, logger *logrus.Logger) *BookingHandler {
	if s == nil {
		panic("nil booking service passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: s, Log: logger}
}

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	var body model.NewBookingData
	if err := bindBody(c, &body); err != nil {
		return respond(c, h.Log, err)
	}
	out, err := h.Bookings.AuthorizedCreateBooking(c.Request().Context(), cl, body)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	out, err := h.Bookings.AuthorizedFindBooking(c.Request().Context(), cl, id)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// List handles GET /v1/bookings?author_id=&from=&to=&sport=&limit=&offset=.
func (h *BookingHandler) List(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	var f model.BookingFilter
	if f.AuthorID, err = queryInt64(c, "author_id"); err != nil {
		return respond(c, h.Log, err)
	}
	if f.From, err = queryTime(c, "from"); err != nil {
		return respond(c, h.Log, err)
	}
	if f.To, err = queryTime(c, "to"); err != nil {
		return respond(c, h.Log, err)
	}
	if f.Limit, err = queryInt64(c, "limit"); err != nil {
		return respond(c, h.Log, err)
	}
	if f.Offset, err = queryInt64(c, "offset"); err != nil {
		return respond(c, h.Log, err)
	}
	if s := c.QueryParam("sport"); s != "" {
		f.Sport = &s
	}
	out, err := h.Bookings.AuthorizedListBookings(c.Request().Context(), cl, f)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Update handles PUT /v1/bookings/:id.
func (h *BookingHandler) Update(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	var body model.NewBookingData
	if err := bindBody(c, &body); err != nil {
		return respond(c, h.Log, err)
	}
	out, err := h.Bookings.AuthorizedUpdateBooking(c.Request().Context(), cl, id, body)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Delete handles DELETE /v1/bookings/:id and returns the removed aggregate.
func (h *BookingHandler) Delete(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	out, err := h.Bookings.AuthorizedDeleteBooking(c.Request().Context(), cl, id)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// DeleteGame handles DELETE /v1/games/:id. The booking stays.
func (h *BookingHandler) DeleteGame(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	out, err := h.Bookings.AuthorizedDeleteGame(c.Request().Context(), cl, id)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// DeleteTraining handles DELETE /v1/trainings/:id.
func (h *BookingHandler) DeleteTraining(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	out, err := h.Bookings.AuthorizedDeleteTraining(c.Request().Context(), cl, id)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}
