package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/sports-facility-booking/internal/apperr"
	"github.com/iliyamo/sports-facility-booking/internal/authz"
	"github.com/iliyamo/sports-facility-booking/internal/database"
	"github.com/iliyamo/sports-facility-booking/internal/model"
	"github.com/iliyamo/sports-facility-booking/internal/repository"
)

// ClubService manages sports clubs and the users responsible for them.
type ClubService struct {
	Deps
	clubs *repository.ClubRepo
}

func NewClubService(d Deps) *ClubService {
	d = d.withDefaults()
	return &ClubService{Deps: d, clubs: repository.NewClubRepo(d.DB)}
}

// CreateClub inserts the club and makes creatorID its first responsible in
// the same transaction, so a club never exists without one.
func (s *ClubService) CreateClub(ctx context.Context, c model.SportsClub, creatorID int64) (model.SportsClub, error) {
	const op = "create_club"
	c.ID = strings.TrimSpace(c.ID)
	if err := c.Validate(); err != nil {
		return model.SportsClub{}, s.done(op, apperr.WithOp(op, err))
	}
	if creatorID <= 0 {
		return model.SportsClub{}, s.done(op, apperr.WithOp(op, apperr.Validation("the creating user is required")))
	}
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if err := s.clubs.CreateTx(ctx, tx, c); err != nil {
			return err
		}
		return s.clubs.AddResponsibleTx(ctx, tx, c.ID, creatorID, s.Now())
	})
	if err != nil {
		return model.SportsClub{}, s.done(op, s.fail(op, "sports_club", c.ID, err))
	}
	return c, s.done(op, nil)
}

// UpdateClub overwrites the club name and contact fields.
func (s *ClubService) UpdateClub(ctx context.Context, c model.SportsClub) (model.SportsClub, error) {
	const op = "update_club"
	c.ID = strings.TrimSpace(c.ID)
	if err := c.Validate(); err != nil {
		return model.SportsClub{}, s.done(op, apperr.WithOp(op, err))
	}
	if err := s.clubs.Update(ctx, c); err != nil {
		return model.SportsClub{}, s.done(op, s.fail(op, "sports_club", c.ID, err))
	}
	return c, s.done(op, nil)
}

// DeleteClub removes the club with its responsible edges and returns it as
// it was. A club that still has teams cannot be deleted.
func (s *ClubService) DeleteClub(ctx context.Context, id string) (model.SportsClub, error) {
	const op = "delete_club"
	var snapshot model.SportsClub
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		if snapshot, err = s.clubs.LockTx(ctx, tx, id); err != nil {
			return err
		}
		return s.clubs.DeleteTx(ctx, tx, id)
	})
	if err != nil {
		return model.SportsClub{}, s.done(op, s.fail(op, "sports_club", id, err))
	}
	return snapshot, s.done(op, nil)
}

// AddClubResponsible makes userID responsible for the club from today.
func (s *ClubService) AddClubResponsible(ctx context.Context, clubID string, userID int64) error {
	const op = "add_club_responsible"
	if userID <= 0 {
		return s.done(op, apperr.WithOp(op, apperr.Validation("user_id is required")))
	}
	if _, err := s.clubs.FindByID(ctx, clubID); err != nil {
		return s.done(op, s.fail(op, "sports_club", clubID, err))
	}
	if err := s.clubs.AddResponsible(ctx, clubID, userID, s.Now()); err != nil {
		return s.done(op, s.fail(op, "user_club", userID, err))
	}
	return s.done(op, nil)
}

// RemoveClubResponsible ends the active responsibility of userID. The last
// active responsible of a club cannot step down. The edge is kept with its
// until date stamped.
func (s *ClubService) RemoveClubResponsible(ctx context.Context, clubID string, userID int64) error {
	const op = "remove_club_responsible"
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		active, err := s.clubs.ActiveResponsiblesTx(ctx, tx, clubID)
		if err != nil {
			return err
		}
		found := false
		for _, id := range active {
			if id == userID {
				found = true
				break
			}
		}
		if !found {
			return apperr.NotFound(op, "user_club", userID)
		}
		if len(active) <= 1 {
			return apperr.Conflict(op, "sports_club", clubID, "a club must keep at least one active responsible")
		}
		return s.clubs.EndResponsibleTx(ctx, tx, clubID, userID, s.Now())
	})
	if err != nil {
		return s.done(op, s.fail(op, "user_club", userID, err))
	}
	return s.done(op, nil)
}

// AuthorizedCreateClub creates a club with the subject as its responsible.
func (s *ClubService) AuthorizedCreateClub(ctx context.Context, c model.Claims, club model.SportsClub) (model.SportsClub, error) {
	ctx, err := s.authorize(ctx, "create_club", c.SubjectID, authz.NewClubRes{ID: club.ID}, authz.ActionCreate)
	if err != nil {
		return model.SportsClub{}, err
	}
	return s.CreateClub(ctx, club, c.SubjectID)
}

func (s *ClubService) AuthorizedUpdateClub(ctx context.Context, c model.Claims, club model.SportsClub) (model.SportsClub, error) {
	ctx, err := s.authorize(ctx, "update_club", c.SubjectID, authz.ClubRes{ID: club.ID}, authz.ActionUpdate)
	if err != nil {
		return model.SportsClub{}, err
	}
	return s.UpdateClub(ctx, club)
}

func (s *ClubService) AuthorizedDeleteClub(ctx context.Context, c model.Claims, id string) (model.SportsClub, error) {
	ctx, err := s.authorize(ctx, "delete_club", c.SubjectID, authz.ClubRes{ID: id}, authz.ActionDelete)
	if err != nil {
		return model.SportsClub{}, err
	}
	return s.DeleteClub(ctx, id)
}

func (s *ClubService) AuthorizedAddClubResponsible(ctx context.Context, c model.Claims, clubID string, userID int64) error {
	ctx, err := s.authorize(ctx, "add_club_responsible", c.SubjectID, authz.ClubRes{ID: clubID}, authz.ActionManageResponsibles)
	if err != nil {
		return err
	}
	return s.AddClubResponsible(ctx, clubID, userID)
}

func (s *ClubService) AuthorizedRemoveClubResponsible(ctx context.Context, c model.Claims, clubID string, userID int64) error {
	ctx, err := s.authorize(ctx, "remove_club_responsible", c.SubjectID, authz.ClubRes{ID: clubID}, authz.ActionManageResponsibles)
	if err != nil {
		return err
	}
	return s.RemoveClubResponsible(ctx, clubID, userID)
}
