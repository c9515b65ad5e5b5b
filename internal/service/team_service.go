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

// TeamService manages teams and the player and coach membership edges.
type TeamService struct {
	Deps
	teams *repository.TeamRepo
}

func NewTeamService(d Deps) *TeamService {
	d = d.withDefaults()
	return &TeamService{Deps: d, teams: repository.NewTeamRepo(d.DB)}
}

func (s *TeamService) CreateTeam(ctx context.Context, t model.Team) (model.Team, error) {
	const op = "create_team"
	if err := t.Validate(); err != nil {
		return model.Team{}, s.done(op, apperr.WithOp(op, err))
	}
	out, err := s.teams.Create(ctx, t)
	if err != nil {
		return model.Team{}, s.done(op, s.fail(op, "team", "new", err))
	}
	return out, s.done(op, nil)
}

func (s *TeamService) UpdateTeam(ctx context.Context, t model.Team) (model.Team, error) {
	const op = "update_team"
	if err := t.Validate(); err != nil {
		return model.Team{}, s.done(op, apperr.WithOp(op, err))
	}
	if err := s.teams.Update(ctx, t); err != nil {
		return model.Team{}, s.done(op, s.fail(op, "team", t.ID, err))
	}
	return t, s.done(op, nil)
}

// DeleteTeam removes the team and returns it as it was. A team still
// referenced by memberships or events cannot be deleted.
func (s *TeamService) DeleteTeam(ctx context.Context, id int64) (model.Team, error) {
	const op = "delete_team"
	var snapshot model.Team
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		if snapshot, err = s.teams.LockTx(ctx, tx, id); err != nil {
			return err
		}
		return s.teams.DeleteTx(ctx, tx, id)
	})
	if err != nil {
		return model.Team{}, s.done(op, s.fail(op, "team", id, err))
	}
	return snapshot, s.done(op, nil)
}

// JoinTeam opens a player or coach edge for the person.
func (s *TeamService) JoinTeam(ctx context.Context, personID, teamID int64, info model.JoinInfo) error {
	const op = "join_team"
	if err := info.Validate(); err != nil {
		return s.done(op, apperr.WithOp(op, err))
	}
	if _, err := s.teams.FindByID(ctx, teamID); err != nil {
		return s.done(op, s.fail(op, "team", teamID, err))
	}
	if err := s.teams.Join(ctx, personID, teamID, info); err != nil {
		return s.done(op, s.fail(op, "team", teamID, err))
	}
	return s.done(op, nil)
}

// LeaveTeam ends the active edge of the person for the role. The edge is
// kept with its until date set to info.Until, or today when unset.
func (s *TeamService) LeaveTeam(ctx context.Context, personID, teamID int64, info model.LeaveInfo) error {
	const op = "leave_team"
	if err := info.Validate(); err != nil {
		return s.done(op, apperr.WithOp(op, err))
	}
	until := info.Until
	if until.IsZero() {
		until = s.Now()
	}
	if err := s.teams.Leave(ctx, personID, teamID, info.Role, until); err != nil {
		return s.done(op, s.fail(op, "team_membership", teamID, err))
	}
	return s.done(op, nil)
}

func (s *TeamService) AuthorizedCreateTeam(ctx context.Context, c model.Claims, t model.Team) (model.Team, error) {
	ctx, err := s.authorize(ctx, "create_team", c.SubjectID, authz.NewTeamRes{ClubID: t.ClubID}, authz.ActionCreate)
	if err != nil {
		return model.Team{}, err
	}
	return s.CreateTeam(ctx, t)
}

func (s *TeamService) AuthorizedUpdateTeam(ctx context.Context, c model.Claims, t model.Team) (model.Team, error) {
	ctx, err := s.authorize(ctx, "update_team", c.SubjectID, authz.TeamRes{ID: t.ID}, authz.ActionUpdate)
	if err != nil {
		return model.Team{}, err
	}
	return s.UpdateTeam(ctx, t)
}

func (s *TeamService) AuthorizedDeleteTeam(ctx context.Context, c model.Claims, id int64) (model.Team, error) {
	ctx, err := s.authorize(ctx, "delete_team", c.SubjectID, authz.TeamRes{ID: id}, authz.ActionDelete)
	if err != nil {
		return model.Team{}, err
	}
	return s.DeleteTeam(ctx, id)
}

func (s *TeamService) AuthorizedJoinTeam(ctx context.Context, c model.Claims, personID, teamID int64, info model.JoinInfo) error {
	res := authz.TeamMembershipRes{PersonID: personID, TeamID: teamID}
	ctx, err := s.authorize(ctx, "join_team", c.SubjectID, res, authz.ActionJoin)
	if err != nil {
		return err
	}
	return s.JoinTeam(ctx, personID, teamID, info)
}

func (s *TeamService) AuthorizedLeaveTeam(ctx context.Context, c model.Claims, personID, teamID int64, info model.LeaveInfo) error {
	res := authz.TeamMembershipRes{PersonID: personID, TeamID: teamID}
	ctx, err := s.authorize(ctx, "leave_team", c.SubjectID, res, authz.ActionLeave)
	if err != nil {
		return err
	}
	return s.LeaveTeam(ctx, personID, teamID, info)
}
