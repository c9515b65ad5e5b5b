package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/sports-facility-booking/internal/model"
)

// Lookups bundles the find-by-id helpers the authorization gate resolves
// resources with.
type Lookups struct {
	Bookings   *BookingRepo
	Games      *GameRepo
	Trainings  *TrainingRepo
	Formations *FormationRepo
	Recordings *RecordingRepo
}

// NewLookups wires every lookup repository to db.
func NewLookups(db *sql.DB) *Lookups {
	return &Lookups{
		Bookings:   NewBookingRepo(db),
		Games:      NewGameRepo(db),
		Trainings:  NewTrainingRepo(db),
		Formations: NewFormationRepo(db),
		Recordings: NewRecordingRepo(db),
	}
}

func (l *Lookups) FindBookingWithEvent(ctx context.Context, id int64) (model.BookingWithEvent, error) {
	return l.Bookings.FindWithEvent(ctx, id)
}

func (l *Lookups) FindGame(ctx context.Context, id int64) (model.Game, error) {
	return l.Games.FindByID(ctx, id)
}

func (l *Lookups) FindTraining(ctx context.Context, id int64) (model.Training, error) {
	return l.Trainings.FindByID(ctx, id)
}

func (l *Lookups) FindFormation(ctx context.Context, id int64) (model.Formation, error) {
	return l.Formations.FindByID(ctx, id)
}

func (l *Lookups) FindRecordingSession(ctx context.Context, id int64) (model.RecordingSession, error) {
	return l.Recordings.FindByID(ctx, id)
}

