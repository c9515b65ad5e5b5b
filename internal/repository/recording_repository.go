package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/sports-facility-booking/internal/model"
)

// RecordingRepo reads and writes recording sessions and their camera links.
type RecordingRepo struct {
	db *sql.DB
}

// NewRecordingRepo returns a RecordingRepo bound to db.
func NewRecordingRepo(db *sql.DB) *RecordingRepo { return &RecordingRepo{db: db} }

const sessionSelect = `SELECT id, author_id, start_datetime, end_datetime, booking_id FROM recording_session`

func scanSession(s rowScanner) (model.RecordingSession, error) {
	var rs model.RecordingSession
	err := s.Scan(&rs.ID, &rs.AuthorID, &rs.Start, &rs.End, &rs.BookingID)
	return rs, err
}

// FindByID returns the session row or sql.ErrNoRows.
func (r *RecordingRepo) FindByID(ctx context.Context, id int64) (model.RecordingSession, error) {
	return scanSession(r.db.QueryRowContext(ctx, sessionSelect+` WHERE id = ?`, id))
}

// LockTx returns the session row locked until tx ends.
func (r *RecordingRepo) LockTx(ctx context.Context, tx *sql.Tx, id int64) (model.RecordingSession, error) {
	return scanSession(tx.QueryRowContext(ctx, sessionSelect+` WHERE id = ? FOR UPDATE`, id))
}

// FindWithCameras returns the session and its cameras ordered by camera id.
func (r *RecordingRepo) FindWithCameras(ctx context.Context, id int64) (model.RecordingSessionWithCameras, error) {
	rs, err := r.FindByID(ctx, id)
	if err != nil {
		return model.RecordingSessionWithCameras{}, err
	}
	cams, err := r.cameras(ctx, r.db, id)
	if err != nil {
		return model.RecordingSessionWithCameras{}, err
	}
	return model.RecordingSessionWithCameras{Session: rs, Cameras: cams}, nil
}

// LockWithCamerasTx is FindWithCameras on tx with the session row locked.
func (r *RecordingRepo) LockWithCamerasTx(ctx context.Context, tx *sql.Tx, id int64) (model.RecordingSessionWithCameras, error) {
	rs, err := r.LockTx(ctx, tx, id)
	if err != nil {
		return model.RecordingSessionWithCameras{}, err
	}
	cams, err := r.cameras(ctx, tx, id)
	if err != nil {
		return model.RecordingSessionWithCameras{}, err
	}
	return model.RecordingSessionWithCameras{Session: rs, Cameras: cams}, nil
}

// ListByBooking returns the sessions of a booking with their cameras.
// limit <= 0 means no limit.
func (r *RecordingRepo) ListByBooking(ctx context.Context, bookingID int64, limit, offset int64) ([]model.RecordingSessionWithCameras, error) {
	q := sessionSelect + ` WHERE booking_id = ? ORDER BY start_datetime, id`
	args := []any{bookingID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	} else if offset > 0 {
		q += ` LIMIT 18446744073709551615`
	}
	if offset > 0 {
		q += ` OFFSET ?`
		args = append(args, offset)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	var sessions []model.RecordingSession
	for rows.Next() {
		rs, err := scanSession(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		sessions = append(sessions, rs)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]model.RecordingSessionWithCameras, 0, len(sessions))
	for _, rs := range sessions {
		cams, err := r.cameras(ctx, r.db, rs.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, model.RecordingSessionWithCameras{Session: rs, Cameras: cams})
	}
	return out, nil
}

func (r *RecordingRepo) cameras(ctx context.Context, q DBTX, sessionID int64) ([]model.Camera, error) {
	const query = `SELECT c.id, c.ipv4_address, c.ipv6_address, c.port, c.username, c.password
		FROM camera c JOIN camera_session cs ON cs.camera_id = c.id
		WHERE cs.session_id = ? ORDER BY c.id`
	rows, err := q.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Camera, 0)
	for rows.Next() {
		var (
			c    model.Camera
			ipv6 sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.IPv4, &ipv6, &c.Port, &c.Username, &c.Password); err != nil {
			return nil, err
		}
		c.IPv6 = stringPtr(ipv6)
		out = append(out, c)
	}
	return out, rows.Err()
}

// CameraIDsTx returns the camera ids currently linked to the session.
func (r *RecordingRepo) CameraIDsTx(ctx context.Context, tx *sql.Tx, sessionID int64) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT camera_id FROM camera_session WHERE session_id = ? ORDER BY camera_id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateTx inserts the session row and returns it with its generated id.
func (r *RecordingRepo) CreateTx(ctx context.Context, tx *sql.Tx, in model.RecordingSessionFields) (model.RecordingSession, error) {
	const q = `INSERT INTO recording_session (author_id, start_datetime, end_datetime, booking_id) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, in.AuthorID, in.Start, in.End, in.BookingID)
	if err != nil {
		return model.RecordingSession{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.RecordingSession{}, err
	}
	return model.RecordingSession{ID: id, AuthorID: in.AuthorID, Start: in.Start, End: in.End, BookingID: in.BookingID}, nil
}

// UpdateTx overwrites the session fields.
func (r *RecordingRepo) UpdateTx(ctx context.Context, tx *sql.Tx, id int64, in model.RecordingSessionFields) error {
	const q = `UPDATE recording_session SET author_id = ?, start_datetime = ?, end_datetime = ?, booking_id = ? WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, in.AuthorID, in.Start, in.End, in.BookingID, id)
	return err
}

// LinkCamerasTx inserts one camera_session row per camera id.
func (r *RecordingRepo) LinkCamerasTx(ctx context.Context, tx *sql.Tx, sessionID int64, cameraIDs []int64) error {
	rows := make([][]any, 0, len(cameraIDs))
	for _, id := range cameraIDs {
		rows = append(rows, []any{sessionID, id})
	}
	return bulkInsert(ctx, tx, "camera_session", []string{"session_id", "camera_id"}, rows)
}

// UnlinkCamerasTx deletes the camera_session rows of the given cameras.
func (r *RecordingRepo) UnlinkCamerasTx(ctx context.Context, tx *sql.Tx, sessionID int64, cameraIDs []int64) error {
	if len(cameraIDs) == 0 {
		return nil
	}
	q := `DELETE FROM camera_session WHERE session_id = ? AND camera_id IN (` + placeholders(len(cameraIDs)) + `)`
	_, err := tx.ExecContext(ctx, q, append([]any{sessionID}, int64Args(cameraIDs)...)...)
	return err
}
