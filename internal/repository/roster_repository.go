package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/sports-facility-booking/internal/model"
)

// RosterRepo manages the player and RFID tag rows of formations and
// trainings. Inserts are issued as one multi-row statement per table.
type RosterRepo struct {
	db *sql.DB
}

// NewRosterRepo returns a RosterRepo bound to db.
func NewRosterRepo(db *sql.DB) *RosterRepo { return &RosterRepo{db: db} }

// bulkInsert builds "INSERT INTO table (cols) VALUES (?, ?), (?, ?)" for
// rows and executes it. Empty input is a no-op.
func bulkInsert(ctx context.Context, tx *sql.Tx, table string, cols []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES ")
	args := make([]any, 0, len(rows)*len(cols))
	tuple := "(" + placeholders(len(cols)) + ")"
	for i, r := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(tuple)
		args = append(args, r...)
	}
	_, err := tx.ExecContext(ctx, sb.String(), args...)
	return err
}

// AddFormationPlayersTx inserts one player row per input and one tag row
// per RFID tag of that input.
func (r *RosterRepo) AddFormationPlayersTx(ctx context.Context, tx *sql.Tx, formationID int64, in []model.FormationPlayerInput) error {
	var players, tags [][]any
	for _, p := range in {
		players = append(players, []any{formationID, p.PlayerID, p.Starting, p.EntryMinute, p.ExitMinute})
		for _, tag := range p.RFIDTagIDs {
			tags = append(tags, []any{formationID, p.PlayerID, tag})
		}
	}
	if err := bulkInsert(ctx, tx, "formation_player",
		[]string{"formation_id", "player_id", "starting", "entry_minute", "exit_minute"}, players); err != nil {
		return err
	}
	return bulkInsert(ctx, tx, "formation_player_tag",
		[]string{"formation_id", "player_id", "rfid_tag_id"}, tags)
}

// RemoveFormationPlayersTx deletes the tag rows and then the player rows of
// the given players, one statement per table.
func (r *RosterRepo) RemoveFormationPlayersTx(ctx context.Context, tx *sql.Tx, formationID int64, playerIDs []int64) error {
	if len(playerIDs) == 0 {
		return nil
	}
	in := placeholders(len(playerIDs))
	args := append([]any{formationID}, int64Args(playerIDs)...)
	if _, err := tx.ExecContext(ctx, `DELETE FROM formation_player_tag WHERE formation_id = ? AND player_id IN (`+in+`)`, args...); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM formation_player WHERE formation_id = ? AND player_id IN (`+in+`)`, args...)
	return err
}

// FormationPlayers lists the player rows of a formation ordered by id.
func (r *RosterRepo) FormationPlayers(ctx context.Context, formationID int64) ([]model.FormationPlayer, error) {
	const q = `SELECT id, formation_id, player_id, starting, entry_minute, exit_minute
		FROM formation_player WHERE formation_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, formationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FormationPlayer
	for rows.Next() {
		var (
			p           model.FormationPlayer
			entry, exit sql.NullInt32
		)
		if err := rows.Scan(&p.ID, &p.FormationID, &p.PlayerID, &p.Starting, &entry, &exit); err != nil {
			return nil, err
		}
		if entry.Valid {
			v := int(entry.Int32)
			p.EntryMinute = &v
		}
		if exit.Valid {
			v := int(exit.Int32)
			p.ExitMinute = &v
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// FormationTags lists the tag rows of a formation.
func (r *RosterRepo) FormationTags(ctx context.Context, formationID int64) ([]model.FormationPlayerTag, error) {
	const q = `SELECT formation_id, player_id, rfid_tag_id FROM formation_player_tag WHERE formation_id = ? ORDER BY player_id, rfid_tag_id`
	rows, err := r.db.QueryContext(ctx, q, formationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FormationPlayerTag
	for rows.Next() {
		var t model.FormationPlayerTag
		if err := rows.Scan(&t.FormationID, &t.PlayerID, &t.RFIDTagID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AddTrainingPlayersTx inserts one player row per input and its tag rows.
func (r *RosterRepo) AddTrainingPlayersTx(ctx context.Context, tx *sql.Tx, trainingID int64, in []model.TrainingPlayerInput) error {
	var players, tags [][]any
	for _, p := range in {
		players = append(players, []any{trainingID, p.PlayerID})
		for _, tag := range p.RFIDTagIDs {
			tags = append(tags, []any{trainingID, p.PlayerID, tag})
		}
	}
	if err := bulkInsert(ctx, tx, "training_player", []string{"training_id", "player_id"}, players); err != nil {
		return err
	}
	return bulkInsert(ctx, tx, "training_player_tag",
		[]string{"training_id", "player_id", "rfid_tag_id"}, tags)
}

// RemoveTrainingPlayersTx deletes tag rows and then player rows of the given players.
func (r *RosterRepo) RemoveTrainingPlayersTx(ctx context.Context, tx *sql.Tx, trainingID int64, playerIDs []int64) error {
	if len(playerIDs) == 0 {
		return nil
	}
	in := placeholders(len(playerIDs))
	args := append([]any{trainingID}, int64Args(playerIDs)...)
	if _, err := tx.ExecContext(ctx, `DELETE FROM training_player_tag WHERE training_id = ? AND player_id IN (`+in+`)`, args...); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM training_player WHERE training_id = ? AND player_id IN (`+in+`)`, args...)
	return err
}

// TrainingPlayers lists the player rows of a training ordered by id.
func (r *RosterRepo) TrainingPlayers(ctx context.Context, trainingID int64) ([]model.TrainingPlayer, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, training_id, player_id FROM training_player WHERE training_id = ? ORDER BY id`, trainingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TrainingPlayer
	for rows.Next() {
		var p model.TrainingPlayer
		if err := rows.Scan(&p.ID, &p.TrainingID, &p.PlayerID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// TrainingTags lists the tag rows of a training.
func (r *RosterRepo) TrainingTags(ctx context.Context, trainingID int64) ([]model.TrainingPlayerTag, error) {
	const q = `SELECT training_id, player_id, rfid_tag_id FROM training_player_tag WHERE training_id = ? ORDER BY player_id, rfid_tag_id`
	rows, err := r.db.QueryContext(ctx, q, trainingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TrainingPlayerTag
	for rows.Next() {
		var t model.TrainingPlayerTag
		if err := rows.Scan(&t.TrainingID, &t.PlayerID, &t.RFIDTagID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
