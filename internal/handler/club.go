package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/sports-facility-booking/internal/apperr"
	"github.com/iliyamo/sports-facility-booking/internal/model"
	"github.com/iliyamo/sports-facility-booking/internal/service"
)

// ClubHandler serves clubs, teams and persons: the role edges the
// authorization rules read.
type ClubHandler struct {
	Clubs   *service.ClubService
	Teams   *service.TeamService
	Persons *service.PersonService
	Log     *logrus.Logger
}

func NewClubHandler(clubs *service.ClubService, teams *service.TeamService, persons *service.PersonService, logger *logrus.Logger) *ClubHandler {
	if clubs == nil || teams == nil || persons == nil {
		panic("nil service passed to NewClubHandler")
	}
	return &ClubHandler{Clubs: clubs, Teams: teams, Persons: persons, Log: logger}
}

func clubID(c echo.Context) (string, error) {
	id := strings.TrimSpace(c.Param("vat"))
	if id == "" {
		return "", apperr.Validation("vat_number is required")
	}
	return id, nil
}

// CreateClub handles POST /v1/clubs. The caller becomes the first
// responsible of the new club.
func (h *ClubHandler) CreateClub(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	var body model.SportsClub
	if err := bindBody(c, &body); err != nil {
		return respond(c, h.Log, err)
	}
	out, err := h.Clubs.AuthorizedCreateClub(c.Request().Context(), cl, body)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// UpdateClub handles PUT /v1/clubs/:vat. The path wins over any vat_number
// in the body.
func (h *ClubHandler) UpdateClub(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	id, err := clubID(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	var body model.SportsClub
	if err := bindBody(c, &body); err != nil {
		return respond(c, h.Log, err)
	}
	body.ID = id
	out, err := h.Clubs.AuthorizedUpdateClub(c.Request().Context(), cl, body)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ClubHandler) DeleteClub(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	id, err := clubID(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	out, err := h.Clubs.AuthorizedDeleteClub(c.Request().Context(), cl, id)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// AddResponsible handles POST /v1/clubs/:vat/responsibles with {"user_id": n}.
func (h *ClubHandler) AddResponsible(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	id, err := clubID(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	var body struct {
		UserID int64 `json:"user_id"`
	}
	if err := bindBody(c, &body); err != nil {
		return respond(c, h.Log, err)
	}
	if err := h.Clubs.AuthorizedAddClubResponsible(c.Request().Context(), cl, id, body.UserID); err != nil {
		return respond(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// RemoveResponsible handles DELETE /v1/clubs/:vat/responsibles/:user_id.
func (h *ClubHandler) RemoveResponsible(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	id, err := clubID(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	userID, err := pathID(c, "user_id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	if err := h.Clubs.AuthorizedRemoveClubResponsible(c.Request().Context(), cl, id, userID); err != nil {
		return respond(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ClubHandler) CreateTeam(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	var body model.Team
	if err := bindBody(c, &body); err != nil {
		return respond(c, h.Log, err)
	}
	body.ID = 0
	out, err := h.Teams.AuthorizedCreateTeam(c.Request().Context(), cl, body)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *ClubHandler) UpdateTeam(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	var body model.Team
	if err := bindBody(c, &body); err != nil {
		return respond(c, h.Log, err)
	}
	body.ID = id
	out, err := h.Teams.AuthorizedUpdateTeam(c.Request().Context(), cl, body)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ClubHandler) DeleteTeam(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	out, err := h.Teams.AuthorizedDeleteTeam(c.Request().Context(), cl, id)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ClubHandler) UpdatePerson(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	var body model.PersonInput
	if err := bindBody(c, &body); err != nil {
		return respond(c, h.Log, err)
	}
	out, err := h.Persons.AuthorizedUpdatePerson(c.Request().Context(), cl, id, body)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// AddProfile handles POST /v1/persons/:id/profiles.
func (h *ClubHandler) AddProfile(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	var body model.NewProfile
	if err := bindBody(c, &body); err != nil {
		return respond(c, h.Log, err)
	}
	if err := h.Persons.AuthorizedAddProfile(c.Request().Context(), cl, id, body); err != nil {
		return respond(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func membershipIDs(c echo.Context) (int64, int64, error) {
	personID, err := pathID(c, "id")
	if err != nil {
		return 0, 0, err
	}
	teamID, err := pathID(c, "team_id")
	return personID, teamID, err
}

// JoinTeam handles POST /v1/persons/:id/teams/:team_id.
func (h *ClubHandler) JoinTeam(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	personID, teamID, err := membershipIDs(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	var body model.JoinInfo
	if err := bindBody(c, &body); err != nil {
		return respond(c, h.Log, err)
	}
	if err := h.Teams.AuthorizedJoinTeam(c.Request().Context(), cl, personID, teamID, body); err != nil {
		return respond(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// LeaveTeam handles DELETE /v1/persons/:id/teams/:team_id. The edge is kept
// with its until date stamped.
func (h *ClubHandler) LeaveTeam(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	personID, teamID, err := membershipIDs(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	var body model.LeaveInfo
	if err := bindBody(c, &body); err != nil {
		return respond(c, h.Log, err)
	}
	if err := h.Teams.AuthorizedLeaveTeam(c.Request().Context(), cl, personID, teamID, body); err != nil {
		return respond(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
