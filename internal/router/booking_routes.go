package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sports-facility-booking/internal/handler"
)

// RegisterBookings registers the booking aggregate, roster and recording
// routes under /v1. mw runs before every handler; it must include the
// JWT middleware.
func RegisterBookings(e *echo.Echo, b *handler.BookingHandler, r *handler.RosterHandler, rec *handler.RecordingHandler, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1", mw...)

	// ---- Bookings ----
	g.POST("/bookings", b.Create)
	g.GET("/bookings", b.List)
	g.GET("/bookings/:id", b.Get)
	g.PUT("/bookings/:id", b.Update)
	g.DELETE("/bookings/:id", b.Delete)

	// ---- Events ----
	g.DELETE("/games/:id", b.DeleteGame)
	g.DELETE("/trainings/:id", b.DeleteTraining)

	// ---- Rosters ----
	g.GET("/games/:game_id/formations/:formation_id/players", r.GetFormation)
	g.POST("/games/:game_id/formations/:formation_id/players", r.AddFormation)
	g.DELETE("/games/:game_id/formations/:formation_id/players", r.RemoveFormation)
	g.GET("/trainings/:id/players", r.GetTraining)
	g.POST("/trainings/:id/players", r.AddTraining)
	g.DELETE("/trainings/:id/players", r.RemoveTraining)

	// ---- Recording sessions ----
	g.POST("/recording-sessions", rec.Create)
	g.GET("/recording-sessions/:id", rec.Get)
	g.PUT("/recording-sessions/:id", rec.Update)
	g.DELETE("/recording-sessions/:id", rec.Delete)
	g.GET("/bookings/:id/recording-sessions", rec.ListByBooking)
}
