package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/sports-facility-booking/internal/model"
)

// The functions below are the only place that knows in which order the
// aggregate tables are emptied. Children always go before their parents:
// tag rows, then player rows, then the formation or training. A game row
// references its formations, so it is deleted before them. Every function
// runs on the caller's transaction.

// DeleteFormationTx removes a formation with its roster and tag rows.
func DeleteFormationTx(ctx context.Context, tx *sql.Tx, formationID int64) error {
	steps := []string{
		`DELETE FROM formation_player_tag WHERE formation_id = ?`,
		`DELETE FROM formation_player WHERE formation_id = ?`,
		`DELETE FROM formation WHERE id = ?`,
	}
	for _, q := range steps {
		if _, err := tx.ExecContext(ctx, q, formationID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteGameTx removes the game row and then both of its formations.
func DeleteGameTx(ctx context.Context, tx *sql.Tx, g *model.Game) error {
	if err := affectedOrNoRows(tx.ExecContext(ctx, `DELETE FROM game WHERE id = ?`, g.ID)); err != nil {
		return err
	}
	for _, fid := range g.FormationIDs() {
		if err := DeleteFormationTx(ctx, tx, fid); err != nil {
			return err
		}
	}
	return nil
}

// DeleteTrainingTx removes a training with its roster and tag rows.
func DeleteTrainingTx(ctx context.Context, tx *sql.Tx, t *model.Training) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM training_player_tag WHERE training_id = ?`, t.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM training_player WHERE training_id = ?`, t.ID); err != nil {
		return err
	}
	return affectedOrNoRows(tx.ExecContext(ctx, `DELETE FROM training WHERE id = ?`, t.ID))
}

// DeleteRecordingSessionTx removes a session and its camera links.
func DeleteRecordingSessionTx(ctx context.Context, tx *sql.Tx, sessionID int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM camera_session WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	return affectedOrNoRows(tx.ExecContext(ctx, `DELETE FROM recording_session WHERE id = ?`, sessionID))
}

// DeleteBookingTx removes the whole aggregate: the event and its rosters,
// the recording sessions filmed for the booking with their camera links,
// and finally the booking row.
func DeleteBookingTx(ctx context.Context, tx *sql.Tx, agg model.BookingWithEvent) error {
	switch ev := agg.Event.(type) {
	case *model.Game:
		if err := DeleteGameTx(ctx, tx, ev); err != nil {
			return err
		}
	case *model.Training:
		if err := DeleteTrainingTx(ctx, tx, ev); err != nil {
			return err
		}
	}
	const unlinkCameras = `DELETE FROM camera_session WHERE session_id IN (SELECT id FROM recording_session WHERE booking_id = ?)`
	if _, err := tx.ExecContext(ctx, unlinkCameras, agg.Booking.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM recording_session WHERE booking_id = ?`, agg.Booking.ID); err != nil {
		return err
	}
	return affectedOrNoRows(tx.ExecContext(ctx, `DELETE FROM booking WHERE id = ?`, agg.Booking.ID))
}
