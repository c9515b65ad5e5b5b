package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sports-facility-booking/internal/handler"
)

// RegisterClubs registers the club, team and person routes under /v1.
func RegisterClubs(e *echo.Echo, h *handler.ClubHandler, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1", mw...)

	g.POST("/clubs", h.CreateClub)
	g.PUT("/clubs/:vat", h.UpdateClub)
	g.DELETE("/clubs/:vat", h.DeleteClub)
	g.POST("/clubs/:vat/responsibles", h.AddResponsible)
	g.DELETE("/clubs/:vat/responsibles/:user_id", h.RemoveResponsible)

	g.POST("/teams", h.CreateTeam)
	g.PUT("/teams/:id", h.UpdateTeam)
	g.DELETE("/teams/:id", h.DeleteTeam)

	g.PUT("/persons/:id", h.UpdatePerson)
	g.POST("/persons/:id/profiles", h.AddProfile)
	g.POST("/persons/:id/teams/:team_id", h.JoinTeam)
	g.DELETE("/persons/:id/teams/:team_id", h.LeaveTeam)
}
