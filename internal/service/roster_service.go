package service

import (
	"context"
	"database/sql"

	"github.com/iliyamo/sports-facility-booking/internal/apperr"
	"github.com/iliyamo/sports-facility-booking/internal/authz"
	"github.com/iliyamo/sports-facility-booking/internal/database"
	"github.com/iliyamo/sports-facility-booking/internal/model"
	"github.com/iliyamo/sports-facility-booking/internal/repository"
)

// RosterService manages the players and RFID tags of formations and
// trainings.
type RosterService struct {
	Deps
	roster    *repository.RosterRepo
	games     *repository.GameRepo
	trainings *repository.TrainingRepo
}

func NewRosterService(d Deps) *RosterService {
	d = d.withDefaults()
	return &RosterService{
		Deps:      d,
		roster:    repository.NewRosterRepo(d.DB),
		games:     repository.NewGameRepo(d.DB),
		trainings: repository.NewTrainingRepo(d.DB),
	}
}

type playerTag struct {
	PlayerID int64
	TagID    int64
}

// groupTags attaches to every player row the tags that player carries.
// Entries keep the order of players; a player without tags gets an empty list.
func groupTags(players []model.RosterEntry, tags []playerTag) []model.RosterEntry {
	byPlayer := make(map[int64][]int64, len(players))
	for _, t := range tags {
		byPlayer[t.PlayerID] = append(byPlayer[t.PlayerID], t.TagID)
	}
	out := make([]model.RosterEntry, 0, len(players))
	for _, p := range players {
		p.RFIDTagIDs = byPlayer[p.PlayerID]
		if p.RFIDTagIDs == nil {
			p.RFIDTagIDs = []int64{}
		}
		out = append(out, p)
	}
	return out
}

// checkFormation fails with NotFound unless the formation plays in the game.
func (s *RosterService) checkFormation(ctx context.Context, op string, gameID, formationID int64) error {
	g, err := s.games.FindByFormation(ctx, formationID)
	if err != nil {
		return s.fail(op, "formation", formationID, err)
	}
	if g.ID != gameID {
		return apperr.NotFound(op, "formation", formationID)
	}
	return nil
}

func (s *RosterService) checkTraining(ctx context.Context, op string, trainingID int64) error {
	if _, err := s.trainings.FindByID(ctx, trainingID); err != nil {
		return s.fail(op, "training", trainingID, err)
	}
	return nil
}

func validatePlayerIDs(op string, ids []int64) error {
	if len(ids) == 0 {
		return apperr.WithOp(op, apperr.Validation("at least one player id is required"))
	}
	for _, id := range ids {
		if id <= 0 {
			return apperr.WithOp(op, apperr.Validationf("invalid player id %d", id))
		}
	}
	return nil
}

func (s *RosterService) formationRoster(ctx context.Context, op string, formationID int64) ([]model.RosterEntry, error) {
	players, err := s.roster.FormationPlayers(ctx, formationID)
	if err != nil {
		return nil, s.fail(op, "formation", formationID, err)
	}
	tags, err := s.roster.FormationTags(ctx, formationID)
	if err != nil {
		return nil, s.fail(op, "formation", formationID, err)
	}
	entries := make([]model.RosterEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, model.RosterEntry{ID: p.ID, ParentID: p.FormationID, PlayerID: p.PlayerID})
	}
	pt := make([]playerTag, 0, len(tags))
	for _, t := range tags {
		pt = append(pt, playerTag{PlayerID: t.PlayerID, TagID: t.RFIDTagID})
	}
	return groupTags(entries, pt), nil
}

func (s *RosterService) trainingRoster(ctx context.Context, op string, trainingID int64) ([]model.RosterEntry, error) {
	players, err := s.roster.TrainingPlayers(ctx, trainingID)
	if err != nil {
		return nil, s.fail(op, "training", trainingID, err)
	}
	tags, err := s.roster.TrainingTags(ctx, trainingID)
	if err != nil {
		return nil, s.fail(op, "training", trainingID, err)
	}
	entries := make([]model.RosterEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, model.RosterEntry{ID: p.ID, ParentID: p.TrainingID, PlayerID: p.PlayerID})
	}
	pt := make([]playerTag, 0, len(tags))
	for _, t := range tags {
		pt = append(pt, playerTag{PlayerID: t.PlayerID, TagID: t.RFIDTagID})
	}
	return groupTags(entries, pt), nil
}

// AddFormationPlayers adds tagged players to a formation of the game and
// returns the refreshed roster.
func (s *RosterService) AddFormationPlayers(ctx context.Context, gameID, formationID int64, in []model.FormationPlayerInput) ([]model.RosterEntry, error) {
	const op = "add_formation_players"
	if err := s.checkFormation(ctx, op, gameID, formationID); err != nil {
		return nil, s.done(op, err)
	}
	return s.addFormationPlayers(ctx, formationID, in)
}

func (s *RosterService) addFormationPlayers(ctx context.Context, formationID int64, in []model.FormationPlayerInput) ([]model.RosterEntry, error) {
	const op = "add_formation_players"
	if len(in) == 0 {
		return nil, s.done(op, apperr.WithOp(op, apperr.Validation("at least one player is required")))
	}
	for _, p := range in {
		if err := p.Validate(); err != nil {
			return nil, s.done(op, apperr.WithOp(op, err))
		}
	}
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		return s.roster.AddFormationPlayersTx(ctx, tx, formationID, in)
	})
	if err != nil {
		return nil, s.done(op, s.fail(op, "formation", formationID, err))
	}
	s.done(op, nil)
	return s.formationRoster(ctx, op, formationID)
}

// RemoveFormationPlayers removes the players and their tags from a
// formation of the game and returns the refreshed roster.
func (s *RosterService) RemoveFormationPlayers(ctx context.Context, gameID, formationID int64, playerIDs []int64) ([]model.RosterEntry, error) {
	const op = "remove_formation_players"
	if err := s.checkFormation(ctx, op, gameID, formationID); err != nil {
		return nil, s.done(op, err)
	}
	return s.removeFormationPlayers(ctx, formationID, playerIDs)
}

func (s *RosterService) removeFormationPlayers(ctx context.Context, formationID int64, playerIDs []int64) ([]model.RosterEntry, error) {
	const op = "remove_formation_players"
	if err := validatePlayerIDs(op, playerIDs); err != nil {
		return nil, s.done(op, err)
	}
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		return s.roster.RemoveFormationPlayersTx(ctx, tx, formationID, playerIDs)
	})
	if err != nil {
		return nil, s.done(op, s.fail(op, "formation", formationID, err))
	}
	s.done(op, nil)
	return s.formationRoster(ctx, op, formationID)
}

// FindFormationRoster returns the roster of a formation of the game.
func (s *RosterService) FindFormationRoster(ctx context.Context, gameID, formationID int64) ([]model.RosterEntry, error) {
	const op = "find_formation_roster"
	if err := s.checkFormation(ctx, op, gameID, formationID); err != nil {
		return nil, err
	}
	return s.formationRoster(ctx, op, formationID)
}

// AddTrainingPlayers adds tagged players to a training and returns the
// refreshed roster.
func (s *RosterService) AddTrainingPlayers(ctx context.Context, trainingID int64, in []model.TrainingPlayerInput) ([]model.RosterEntry, error) {
	const op = "add_training_players"
	if len(in) == 0 {
		return nil, s.done(op, apperr.WithOp(op, apperr.Validation("at least one player is required")))
	}
	for _, p := range in {
		if err := p.Validate(); err != nil {
			return nil, s.done(op, apperr.WithOp(op, err))
		}
	}
	if err := s.checkTraining(ctx, op, trainingID); err != nil {
		return nil, s.done(op, err)
	}
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		return s.roster.AddTrainingPlayersTx(ctx, tx, trainingID, in)
	})
	if err != nil {
		return nil, s.done(op, s.fail(op, "training", trainingID, err))
	}
	s.done(op, nil)
	return s.trainingRoster(ctx, op, trainingID)
}

// RemoveTrainingPlayers removes players and their tags from a training and
// returns the refreshed roster.
func (s *RosterService) RemoveTrainingPlayers(ctx context.Context, trainingID int64, playerIDs []int64) ([]model.RosterEntry, error) {
	const op = "remove_training_players"
	if err := validatePlayerIDs(op, playerIDs); err != nil {
		return nil, s.done(op, err)
	}
	if err := s.checkTraining(ctx, op, trainingID); err != nil {
		return nil, s.done(op, err)
	}
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		return s.roster.RemoveTrainingPlayersTx(ctx, tx, trainingID, playerIDs)
	})
	if err != nil {
		return nil, s.done(op, s.fail(op, "training", trainingID, err))
	}
	s.done(op, nil)
	return s.trainingRoster(ctx, op, trainingID)
}

// FindTrainingRoster returns the roster of a training.
func (s *RosterService) FindTrainingRoster(ctx context.Context, trainingID int64) ([]model.RosterEntry, error) {
	const op = "find_training_roster"
	if err := s.checkTraining(ctx, op, trainingID); err != nil {
		return nil, err
	}
	return s.trainingRoster(ctx, op, trainingID)
}

// The authorized formation variants check the game/formation pairing first,
// so a wrong pairing reads as NotFound rather than Forbidden.

func (s *RosterService) AuthorizedAddFormationPlayers(ctx context.Context, c model.Claims, gameID, formationID int64, in []model.FormationPlayerInput) ([]model.RosterEntry, error) {
	const op = "add_formation_players"
	if err := s.checkFormation(ctx, op, gameID, formationID); err != nil {
		return nil, err
	}
	ctx, err := s.authorize(ctx, op, c.SubjectID, authz.FormationRes{ID: formationID}, authz.ActionEditRoster)
	if err != nil {
		return nil, err
	}
	return s.addFormationPlayers(ctx, formationID, in)
}

func (s *RosterService) AuthorizedRemoveFormationPlayers(ctx context.Context, c model.Claims, gameID, formationID int64, playerIDs []int64) ([]model.RosterEntry, error) {
	const op = "remove_formation_players"
	if err := s.checkFormation(ctx, op, gameID, formationID); err != nil {
		return nil, err
	}
	ctx, err := s.authorize(ctx, op, c.SubjectID, authz.FormationRes{ID: formationID}, authz.ActionEditRoster)
	if err != nil {
		return nil, err
	}
	return s.removeFormationPlayers(ctx, formationID, playerIDs)
}

func (s *RosterService) AuthorizedFindFormationRoster(ctx context.Context, c model.Claims, gameID, formationID int64) ([]model.RosterEntry, error) {
	const op = "find_formation_roster"
	if err := s.checkFormation(ctx, op, gameID, formationID); err != nil {
		return nil, err
	}
	ctx, err := s.authorize(ctx, op, c.SubjectID, authz.FormationRes{ID: formationID}, authz.ActionReadRoster)
	if err != nil {
		return nil, err
	}
	return s.formationRoster(ctx, op, formationID)
}

func (s *RosterService) AuthorizedAddTrainingPlayers(ctx context.Context, c model.Claims, trainingID int64, in []model.TrainingPlayerInput) ([]model.RosterEntry, error) {
	ctx, err := s.authorize(ctx, "add_training_players", c.SubjectID, authz.TrainingRes{ID: trainingID}, authz.ActionEditRoster)
	if err != nil {
		return nil, err
	}
	return s.AddTrainingPlayers(ctx, trainingID, in)
}

func (s *RosterService) AuthorizedRemoveTrainingPlayers(ctx context.Context, c model.Claims, trainingID int64, playerIDs []int64) ([]model.RosterEntry, error) {
	ctx, err := s.authorize(ctx, "remove_training_players", c.SubjectID, authz.TrainingRes{ID: trainingID}, authz.ActionEditRoster)
	if err != nil {
		return nil, err
	}
	return s.RemoveTrainingPlayers(ctx, trainingID, playerIDs)
}

func (s *RosterService) AuthorizedFindTrainingRoster(ctx context.Context, c model.Claims, trainingID int64) ([]model.RosterEntry, error) {
	ctx, err := s.authorize(ctx, "find_training_roster", c.SubjectID, authz.TrainingRes{ID: trainingID}, authz.ActionReadRoster)
	if err != nil {
		return nil, err
	}
	return s.FindTrainingRoster(ctx, trainingID)
}
