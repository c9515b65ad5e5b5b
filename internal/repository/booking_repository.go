package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/sports-facility-booking/internal/model"
)

// BookingRepo reads and writes booking rows. Bookings are always read
// together with their optional game or training through left joins so the
// caller gets the whole aggregate in one round trip.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to db.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingWithEventSelect = `SELECT b.id, b.author_id, b.start_datetime, b.end_datetime, b.sport, b.notes,
	g.id, g.home_formation_id, g.visiting_formation_id, g.start_datetime, g.end_datetime,
	t.id, t.team_id, t.start_datetime, t.end_datetime
FROM booking b
LEFT JOIN game g ON g.booking_id = b.id
LEFT JOIN training t ON t.booking_id = b.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBookingWithEvent(s rowScanner) (model.BookingWithEvent, error) {
	var (
		out                model.BookingWithEvent
		notes              sql.NullString
		gID, gHome, gVisit sql.NullInt64
		gStart, gEnd       sql.NullTime
		tID, tTeam         sql.NullInt64
		tStart, tEnd       sql.NullTime
	)
	b := &out.Booking
	if err := s.Scan(&b.ID, &b.AuthorID, &b.Start, &b.End, &b.Sport, &notes,
		&gID, &gHome, &gVisit, &gStart, &gEnd,
		&tID, &tTeam, &tStart, &tEnd); err != nil {
		return model.BookingWithEvent{}, err
	}
	b.Notes = stringPtr(notes)

	switch {
	case gID.Valid && tID.Valid:
		return model.BookingWithEvent{}, ErrCorruptAggregate
	case gID.Valid:
		out.Event = &model.Game{
			ID:                  gID.Int64,
			HomeFormationID:     gHome.Int64,
			VisitingFormationID: int64Ptr(gVisit),
			Start:               gStart.Time,
			End:                 timePtr(gEnd),
			BookingID:           b.ID,
		}
	case tID.Valid:
		out.Event = &model.Training{
			ID:        tID.Int64,
			TeamID:    tTeam.Int64,
			Start:     tStart.Time,
			End:       timePtr(tEnd),
			BookingID: b.ID,
		}
	}
	return out, nil
}

// FindWithEvent returns the booking and its event, or sql.ErrNoRows.
func (r *BookingRepo) FindWithEvent(ctx context.Context, id int64) (model.BookingWithEvent, error) {
	return findBookingWithEvent(ctx, r.db, id, false)
}

// LockWithEventTx is FindWithEvent with the booking, game and training rows
// locked until tx ends.
func (r *BookingRepo) LockWithEventTx(ctx context.Context, tx *sql.Tx, id int64) (model.BookingWithEvent, error) {
	return findBookingWithEvent(ctx, tx, id, true)
}

func findBookingWithEvent(ctx context.Context, q DBTX, id int64, forUpdate bool) (model.BookingWithEvent, error) {
	query := bookingWithEventSelect + ` WHERE b.id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return scanBookingWithEvent(q.QueryRowContext(ctx, query, id))
}

// List returns the bookings matching f ordered by start time. A From bound
// matches bookings starting at or after it, a To bound those ending at or
// before it.
func (r *BookingRepo) List(ctx context.Context, f model.BookingFilter) ([]model.BookingWithEvent, error) {
	var (
		where []string
		args  []any
	)
	if f.AuthorID != nil {
		where = append(where, "b.author_id = ?")
		args = append(args, *f.AuthorID)
	}
	if f.From != nil {
		where = append(where, "b.start_datetime >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		where = append(where, "b.end_datetime <= ?")
		args = append(args, *f.To)
	}
	if f.Sport != nil {
		where = append(where, "b.sport = ?")
		args = append(args, *f.Sport)
	}

	query := bookingWithEventSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY b.start_datetime, b.id"
	switch {
	case f.Limit != nil:
		query += " LIMIT ?"
		args = append(args, *f.Limit)
	case f.Offset != nil:
		// MySQL has no OFFSET without LIMIT.
		query += " LIMIT 18446744073709551615"
	}
	if f.Offset != nil {
		query += " OFFSET ?"
		args = append(args, *f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.BookingWithEvent, 0)
	for rows.Next() {
		b, err := scanBookingWithEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CreateTx inserts a booking row. The id comes from the insert result of the
// same connection, so concurrent writers cannot hand back each other's rows.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, in model.BookingInput) (model.Booking, error) {
	const q = `INSERT INTO booking (author_id, start_datetime, end_datetime, sport, notes) VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, in.AuthorID, in.Start, in.End, in.Sport, in.Notes)
	if err != nil {
		return model.Booking{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Booking{}, err
	}
	return model.Booking{ID: id, AuthorID: in.AuthorID, Start: in.Start, End: in.End, Sport: in.Sport, Notes: in.Notes}, nil
}

// UpdateTx overwrites the writable booking fields.
func (r *BookingRepo) UpdateTx(ctx context.Context, tx *sql.Tx, id int64, in model.BookingInput) (model.Booking, error) {
	const q = `UPDATE booking SET author_id = ?, start_datetime = ?, end_datetime = ?, sport = ?, notes = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, q, in.AuthorID, in.Start, in.End, in.Sport, in.Notes, id); err != nil {
		return model.Booking{}, err
	}
	return model.Booking{ID: id, AuthorID: in.AuthorID, Start: in.Start, End: in.End, Sport: in.Sport, Notes: in.Notes}, nil
}

// GameRepo reads and writes game rows.
type GameRepo struct {
	db *sql.DB
}

// NewGameRepo returns a GameRepo bound to db.
func NewGameRepo(db *sql.DB) *GameRepo { return &GameRepo{db: db} }

const gameSelect = `SELECT id, home_formation_id, visiting_formation_id, start_datetime, end_datetime, booking_id FROM game`

func scanGame(s rowScanner) (model.Game, error) {
	var (
		g     model.Game
		visit sql.NullInt64
		end   sql.NullTime
	)
	if err := s.Scan(&g.ID, &g.HomeFormationID, &visit, &g.Start, &end, &g.BookingID); err != nil {
		return model.Game{}, err
	}
	g.VisitingFormationID = int64Ptr(visit)
	g.End = timePtr(end)
	return g, nil
}

// FindByID returns the game or sql.ErrNoRows.
func (r *GameRepo) FindByID(ctx context.Context, id int64) (model.Game, error) {
	return scanGame(r.db.QueryRowContext(ctx, gameSelect+` WHERE id = ?`, id))
}

// LockTx returns the game with its row locked until tx ends.
func (r *GameRepo) LockTx(ctx context.Context, tx *sql.Tx, id int64) (model.Game, error) {
	return scanGame(tx.QueryRowContext(ctx, gameSelect+` WHERE id = ? FOR UPDATE`, id))
}

// FindByFormation returns the game that the formation plays in, home or away.
func (r *GameRepo) FindByFormation(ctx context.Context, formationID int64) (model.Game, error) {
	q := gameSelect + ` WHERE home_formation_id = ? OR visiting_formation_id = ? LIMIT 1`
	return scanGame(r.db.QueryRowContext(ctx, q, formationID, formationID))
}

// CreateTx inserts a game row for bookingID referencing already inserted formations.
func (r *GameRepo) CreateTx(ctx context.Context, tx *sql.Tx, bookingID, homeFormationID int64, visitingFormationID *int64, in model.GameInput) (model.Game, error) {
	const q = `INSERT INTO game (home_formation_id, visiting_formation_id, start_datetime, end_datetime, booking_id) VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, homeFormationID, visitingFormationID, in.Start, in.End, bookingID)
	if err != nil {
		return model.Game{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Game{}, err
	}
	return model.Game{
		ID:                  id,
		HomeFormationID:     homeFormationID,
		VisitingFormationID: visitingFormationID,
		Start:               in.Start,
		End:                 in.End,
		BookingID:           bookingID,
	}, nil
}

// UpdatePeriodTx changes the game start and end. Formations are untouched.
func (r *GameRepo) UpdatePeriodTx(ctx context.Context, tx *sql.Tx, g *model.Game, in model.GameInput) error {
	const q = `UPDATE game SET start_datetime = ?, end_datetime = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, q, in.Start, in.End, g.ID); err != nil {
		return err
	}
	g.Start, g.End = in.Start, in.End
	return nil
}

// TrainingRepo reads and writes training rows.
type TrainingRepo struct {
	db *sql.DB
}

// NewTrainingRepo returns a TrainingRepo bound to db.
func NewTrainingRepo(db *sql.DB) *TrainingRepo { return &TrainingRepo{db: db} }

const trainingSelect = `SELECT id, team_id, start_datetime, end_datetime, booking_id FROM training`

func scanTraining(s rowScanner) (model.Training, error) {
	var (
		t   model.Training
		end sql.NullTime
	)
	if err := s.Scan(&t.ID, &t.TeamID, &t.Start, &end, &t.BookingID); err != nil {
		return model.Training{}, err
	}
	t.End = timePtr(end)
	return t, nil
}

// FindByID returns the training or sql.ErrNoRows.
func (r *TrainingRepo) FindByID(ctx context.Context, id int64) (model.Training, error) {
	return scanTraining(r.db.QueryRowContext(ctx, trainingSelect+` WHERE id = ?`, id))
}

// LockTx returns the training with its row locked until tx ends.
func (r *TrainingRepo) LockTx(ctx context.Context, tx *sql.Tx, id int64) (model.Training, error) {
	return scanTraining(tx.QueryRowContext(ctx, trainingSelect+` WHERE id = ? FOR UPDATE`, id))
}

// CreateTx inserts a training row for bookingID.
func (r *TrainingRepo) CreateTx(ctx context.Context, tx *sql.Tx, bookingID int64, in model.TrainingInput) (model.Training, error) {
	const q = `INSERT INTO training (team_id, start_datetime, end_datetime, booking_id) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, in.TeamID, in.Start, in.End, bookingID)
	if err != nil {
		return model.Training{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Training{}, err
	}
	return model.Training{ID: id, TeamID: in.TeamID, Start: in.Start, End: in.End, BookingID: bookingID}, nil
}

// UpdatePeriodTx changes the training start and end. The team is kept.
func (r *TrainingRepo) UpdatePeriodTx(ctx context.Context, tx *sql.Tx, t *model.Training, in model.TrainingInput) error {
	const q = `UPDATE training SET start_datetime = ?, end_datetime = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, q, in.Start, in.End, t.ID); err != nil {
		return err
	}
	t.Start, t.End = in.Start, in.End
	return nil
}

// FormationRepo reads and writes formation rows.
type FormationRepo struct {
	db *sql.DB
}

// NewFormationRepo returns a FormationRepo bound to db.
func NewFormationRepo(db *sql.DB) *FormationRepo { return &FormationRepo{db: db} }

// FindByID returns the formation or sql.ErrNoRows.
func (r *FormationRepo) FindByID(ctx context.Context, id int64) (model.Formation, error) {
	var f model.Formation
	err := r.db.QueryRowContext(ctx, `SELECT id, team_id FROM formation WHERE id = ?`, id).Scan(&f.ID, &f.TeamID)
	return f, err
}

// CreateTx inserts an empty formation for teamID.
func (r *FormationRepo) CreateTx(ctx context.Context, tx *sql.Tx, teamID int64) (model.Formation, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO formation (team_id) VALUES (?)`, teamID)
	if err != nil {
		return model.Formation{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Formation{}, err
	}
	return model.Formation{ID: id, TeamID: teamID}, nil
}
