package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/sports-facility-booking/internal/model"
	"github.com/iliyamo/sports-facility-booking/internal/service"
)

// RecordingHandler serves recording sessions and their camera sets.
type RecordingHandler struct {
	Recordings *service.RecordingService
	Log        *logrus.Logger
}

func NewRecordingHandler(s *service.RecordingService, logger *logrus.Logger) *RecordingHandler {
	if s == nil {
		panic("nil recording service passed to NewRecordingHandler")
	}
	return &RecordingHandler{Recordings: s, Log: logger}
}

// Create handles POST /v1/recording-sessions.
func (h *RecordingHandler) Create(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	var body model.RecordingSessionInput
	if err := bindBody(c, &body); err != nil {
		return respond(c, h.Log, err)
	}
	out, err := h.Recordings.AuthorizedCreateRecordingSession(c.Request().Context(), cl, body)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *RecordingHandler) Get(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	out, err := h.Recordings.AuthorizedFindRecordingSession(c.Request().Context(), cl, id)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ListByBooking handles GET /v1/bookings/:id/recording-sessions?limit=&offset=.
func (h *RecordingHandler) ListByBooking(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	var limit, offset int64
	if p, err := queryInt64(c, "limit"); err != nil {
		return respond(c, h.Log, err)
	} else if p != nil {
		limit = *p
	}
	if p, err := queryInt64(c, "offset"); err != nil {
		return respond(c, h.Log, err)
	} else if p != nil {
		offset = *p
	}
	out, err := h.Recordings.AuthorizedListRecordingSessionsByBooking(c.Request().Context(), cl, bookingID, limit, offset)
	if err != nil {
		return respond(c, h.Log, err)
	}
	if out == nil {
		out = []model.RecordingSessionWithCameras{}
	}
	return c.JSON(http.StatusOK, out)
}

// Update handles PUT /v1/recording-sessions/:id. camera_ids is the full
// desired set.
func (h *RecordingHandler) Update(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	var body model.RecordingSessionInput
	if err := bindBody(c, &body); err != nil {
		return respond(c, h.Log, err)
	}
	out, err := h.Recordings.AuthorizedUpdateRecordingSession(c.Request().Context(), cl, id, body)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RecordingHandler) Delete(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	out, err := h.Recordings.AuthorizedDeleteRecordingSession(c.Request().Context(), cl, id)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}
