package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sirupsen/logrus"
)

// RoleRepo answers the role graph questions the authorization gate asks.
// Every method is a single existence check; none of them loads a collection.
// activeOnly restricts temporal edges to rows whose until_date is unset.
type RoleRepo struct {
	db  *sql.DB
	log *logrus.Logger
}

// NewRoleRepo returns a RoleRepo bound to db. A nil logger falls back to logrus.New().
func NewRoleRepo(db *sql.DB, logger *logrus.Logger) *RoleRepo {
	if logger == nil {
		logger = logrus.New()
	}
	return &RoleRepo{db: db, log: logger}
}

func (r *RoleRepo) exists(ctx context.Context, check string, query string, args ...any) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		r.log.WithFields(logrus.Fields{"check": check, "args": args}).Trace("role check: no match")
		return false, nil
	case err != nil:
		return false, err
	}
	r.log.WithFields(logrus.Fields{"check": check, "args": args}).Trace("role check: match")
	return true, nil
}

// IsAdministrator reports whether the person has an administrator profile.
func (r *RoleRepo) IsAdministrator(ctx context.Context, personID int64) (bool, error) {
	return r.exists(ctx, "administrator",
		`SELECT 1 FROM administrator WHERE person_id = ? LIMIT 1`, personID)
}

// IsCoachOfTeam reports whether the person coaches teamID, or any team when
// teamID is nil.
func (r *RoleRepo) IsCoachOfTeam(ctx context.Context, personID int64, teamID *int64, activeOnly bool) (bool, error) {
	q := `SELECT 1 FROM coach_team WHERE coach_id = ?`
	args := []any{personID}
	if teamID != nil {
		q += ` AND team_id = ?`
		args = append(args, *teamID)
	}
	if activeOnly {
		q += ` AND until_date IS NULL`
	}
	return r.exists(ctx, "coach_of_team", q+` LIMIT 1`, args...)
}

// IsPlayerOfTeam reports whether the person plays for teamID, or any team
// when teamID is nil.
func (r *RoleRepo) IsPlayerOfTeam(ctx context.Context, personID int64, teamID *int64, activeOnly bool) (bool, error) {
	q := `SELECT 1 FROM player_team WHERE player_id = ?`
	args := []any{personID}
	if teamID != nil {
		q += ` AND team_id = ?`
		args = append(args, *teamID)
	}
	if activeOnly {
		q += ` AND until_date IS NULL`
	}
	return r.exists(ctx, "player_of_team", q+` LIMIT 1`, args...)
}

// IsResponsibleOfTeam reports whether the user is responsible of the club
// that owns teamID.
func (r *RoleRepo) IsResponsibleOfTeam(ctx context.Context, userID, teamID int64, activeOnly bool) (bool, error) {
	q := `SELECT 1 FROM team t
		JOIN user_club uc ON uc.club_id = t.club_id
		WHERE t.id = ? AND uc.user_id = ?`
	if activeOnly {
		q += ` AND uc.until_date IS NULL`
	}
	return r.exists(ctx, "responsible_of_team", q+` LIMIT 1`, teamID, userID)
}

// IsClubResponsible reports whether the user is responsible of clubID, or of
// any club when clubID is nil.
func (r *RoleRepo) IsClubResponsible(ctx context.Context, userID int64, clubID *string, activeOnly bool) (bool, error) {
	q := `SELECT 1 FROM user_club WHERE user_id = ?`
	args := []any{userID}
	if clubID != nil {
		q += ` AND club_id = ?`
		args = append(args, *clubID)
	}
	if activeOnly {
		q += ` AND until_date IS NULL`
	}
	return r.exists(ctx, "club_responsible", q+` LIMIT 1`, args...)
}

// IsPersonWithUser reports whether the person has login credentials.
func (r *RoleRepo) IsPersonWithUser(ctx context.Context, personID int64) (bool, error) {
	return r.exists(ctx, "person_with_user",
		"SELECT 1 FROM `user` WHERE person_id = ? LIMIT 1", personID)
}

// IsSamePerson is identity equality on person ids.
func IsSamePerson(a, b int64) bool { return a == b }
