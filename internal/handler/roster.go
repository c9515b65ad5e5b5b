package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/sports-facility-booking/internal/model"
	"github.com/iliyamo/sports-facility-booking/internal/service"
)

// RosterHandler serves the formation and training player lists.
type RosterHandler struct {
	Rosters *service.RosterService
	Log     *logrus.Logger
}

func NewRosterHandler(s *service.RosterService, logger *logrus.Logger) *RosterHandler {
	if s == nil {
		panic("nil roster service passed to NewRosterHandler")
	}
	return &RosterHandler{Rosters: s, Log: logger}
}

type removePlayersBody struct {
	PlayerIDs []int64 `json:"player_ids"`
}

func (h *RosterHandler) formationIDs(c echo.Context) (model.Claims, int64, int64, error) {
	cl, err := claims(c)
	if err != nil {
		return cl, 0, 0, err
	}
	gameID, err := pathID(c, "game_id")
	if err != nil {
		return cl, 0, 0, err
	}
	formationID, err := pathID(c, "formation_id")
	return cl, gameID, formationID, err
}

// GetFormation handles GET /v1/games/:game_id/formations/:formation_id/players.
func (h *RosterHandler) GetFormation(c echo.Context) error {
	cl, gameID, formationID, err := h.formationIDs(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	out, err := h.Rosters.AuthorizedFindFormationRoster(c.Request().Context(), cl, gameID, formationID)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// AddFormation handles POST on the same route with a JSON array of players.
func (h *RosterHandler) AddFormation(c echo.Context) error {
	cl, gameID, formationID, err := h.formationIDs(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	var body []model.FormationPlayerInput
	if err := bindBody(c, &body); err != nil {
		return respond(c, h.Log, err)
	}
	out, err := h.Rosters.AuthorizedAddFormationPlayers(c.Request().Context(), cl, gameID, formationID, body)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// RemoveFormation handles DELETE on the same route with {"player_ids": [...]}.
func (h *RosterHandler) RemoveFormation(c echo.Context) error {
	cl, gameID, formationID, err := h.formationIDs(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	var body removePlayersBody
	if err := bindBody(c, &body); err != nil {
		return respond(c, h.Log, err)
	}
	out, err := h.Rosters.AuthorizedRemoveFormationPlayers(c.Request().Context(), cl, gameID, formationID, body.PlayerIDs)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// GetTraining handles GET /v1/trainings/:id/players.
func (h *RosterHandler) GetTraining(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	out, err := h.Rosters.AuthorizedFindTrainingRoster(c.Request().Context(), cl, id)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RosterHandler) AddTraining(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	var body []model.TrainingPlayerInput
	if err := bindBody(c, &body); err != nil {
		return respond(c, h.Log, err)
	}
	out, err := h.Rosters.AuthorizedAddTrainingPlayers(c.Request().Context(), cl, id, body)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RosterHandler) RemoveTraining(c echo.Context) error {
	cl, err := claims(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	var body removePlayersBody
	if err := bindBody(c, &body); err != nil {
		return respond(c, h.Log, err)
	}
	out, err := h.Rosters.AuthorizedRemoveTrainingPlayers(c.Request().Context(), cl, id, body.PlayerIDs)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}
