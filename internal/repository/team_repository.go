package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/sports-facility-booking/internal/model"
)

// TeamRepo reads and writes teams and the player/coach membership edges.
type TeamRepo struct {
	db *sql.DB
}

// NewTeamRepo returns a TeamRepo bound to db.
func NewTeamRepo(db *sql.DB) *TeamRepo { return &TeamRepo{db: db} }

const teamSelect = `SELECT id, name, club_id, sport FROM team WHERE id = ?`

func scanTeam(s rowScanner) (model.Team, error) {
	var t model.Team
	err := s.Scan(&t.ID, &t.Name, &t.ClubID, &t.Sport)
	return t, err
}

// FindByID returns the team or sql.ErrNoRows.
func (r *TeamRepo) FindByID(ctx context.Context, id int64) (model.Team, error) {
	return scanTeam(r.db.QueryRowContext(ctx, teamSelect, id))
}

// LockTx returns the team row locked until tx ends.
func (r *TeamRepo) LockTx(ctx context.Context, tx *sql.Tx, id int64) (model.Team, error) {
	return scanTeam(tx.QueryRowContext(ctx, teamSelect+` FOR UPDATE`, id))
}

// DeleteTx removes the team row. Memberships, trainings or formations still
// referencing the team make the store reject the delete.
func (r *TeamRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id int64) error {
	return affectedOrNoRows(tx.ExecContext(ctx, `DELETE FROM team WHERE id = ?`, id))
}

// Create inserts a team and returns it with its generated id.
func (r *TeamRepo) Create(ctx context.Context, t model.Team) (model.Team, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO team (name, club_id, sport) VALUES (?, ?, ?)`, t.Name, t.ClubID, t.Sport)
	if err != nil {
		return model.Team{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Team{}, err
	}
	t.ID = id
	return t, nil
}

// Update overwrites name, club and sport of the team.
func (r *TeamRepo) Update(ctx context.Context, t model.Team) error {
	const q = `UPDATE team SET name = ?, club_id = ?, sport = ? WHERE id = ?`
	return affectedOrNoRows(r.db.ExecContext(ctx, q, t.Name, t.ClubID, t.Sport, t.ID))
}

func membershipTable(role model.TeamRole) (table, personCol string, err error) {
	switch role {
	case model.RolePlayer:
		return "player_team", "player_id", nil
	case model.RoleCoach:
		return "coach_team", "coach_id", nil
	}
	return "", "", fmt.Errorf("unknown team role %d", role)
}

// Join opens a membership edge for the person in the table matching info.Role.
func (r *TeamRepo) Join(ctx context.Context, personID, teamID int64, info model.JoinInfo) error {
	table, col, err := membershipTable(info.Role)
	if err != nil {
		return err
	}
	q := `INSERT INTO ` + table + ` (` + col + `, team_id, since_date, until_date) VALUES (?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, q, personID, teamID, info.Since, info.Until)
	return err
}

// Leave stamps until on the active membership edge. Returns sql.ErrNoRows
// when the person holds no active edge for that role.
func (r *TeamRepo) Leave(ctx context.Context, personID, teamID int64, role model.TeamRole, until time.Time) error {
	table, col, err := membershipTable(role)
	if err != nil {
		return err
	}
	q := `UPDATE ` + table + ` SET until_date = ? WHERE ` + col + ` = ? AND team_id = ? AND until_date IS NULL`
	return affectedOrNoRows(r.db.ExecContext(ctx, q, until, personID, teamID))
}
