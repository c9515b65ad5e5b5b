package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/sports-facility-booking/internal/apperr"
	"github.com/iliyamo/sports-facility-booking/internal/authz"
	"github.com/iliyamo/sports-facility-booking/internal/database"
	"github.com/iliyamo/sports-facility-booking/internal/model"
	"github.com/iliyamo/sports-facility-booking/internal/queue"
	"github.com/iliyamo/sports-facility-booking/internal/repository"
)

// BookingService keeps a booking, its event and the event formations
// consistent. Every write runs in one transaction.
type BookingService struct {
	Deps
	bookings   *repository.BookingRepo
	games      *repository.GameRepo
	trainings  *repository.TrainingRepo
	formations *repository.FormationRepo
}

func NewBookingService(d Deps) *BookingService {
	d = d.withDefaults()
	return &BookingService{
		Deps:       d,
		bookings:   repository.NewBookingRepo(d.DB),
		games:      repository.NewGameRepo(d.DB),
		trainings:  repository.NewTrainingRepo(d.DB),
		formations: repository.NewFormationRepo(d.DB),
	}
}

// transition is what an update does with the booking event.
type transition int

const (
	keepNoEvent transition = iota
	createEvent
	updateEventInPlace
)

var (
	errSwitchEvent = errors.New("first delete the existing event via its dedicated route")
	errDropEvent   = errors.New("use the delete route to remove an event")
)

// decideTransition maps the current event kind and the requested event to
// the action an update performs. Changing the kind of an existing event or
// dropping it is rejected.
func decideTransition(existing model.EventKind, requested model.EventInput) (transition, error) {
	want := model.KindOfInput(requested)
	switch {
	case existing == model.EventNone && want == model.EventNone:
		return keepNoEvent, nil
	case existing == model.EventNone:
		return createEvent, nil
	case want == model.EventNone:
		return 0, errDropEvent
	case existing != want:
		return 0, errSwitchEvent
	}
	return updateEventInPlace, nil
}

// createEventTx inserts the requested event for bookingID. A game gets one
// formation per participating team before the game row that references them.
func (s *BookingService) createEventTx(ctx context.Context, tx *sql.Tx, bookingID int64, in model.EventInput) (model.Event, error) {
	switch ev := in.(type) {
	case model.GameInput:
		home, err := s.formations.CreateTx(ctx, tx, ev.HomeTeamID)
		if err != nil {
			return nil, err
		}
		var visiting *int64
		if ev.VisitingTeamID != nil {
			f, err := s.formations.CreateTx(ctx, tx, *ev.VisitingTeamID)
			if err != nil {
				return nil, err
			}
			visiting = &f.ID
		}
		g, err := s.games.CreateTx(ctx, tx, bookingID, home.ID, visiting, ev)
		if err != nil {
			return nil, err
		}
		return &g, nil
	case model.TrainingInput:
		t, err := s.trainings.CreateTx(ctx, tx, bookingID, ev)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}
	return nil, nil
}

// CreateBooking inserts the booking with its event, if any, as one unit.
func (s *BookingService) CreateBooking(ctx context.Context, data model.NewBookingData) (model.BookingWithEvent, error) {
	const op = "create_booking"
	if err := data.Validate(); err != nil {
		return model.BookingWithEvent{}, s.done(op, apperr.WithOp(op, err))
	}
	if data.Booking.AuthorID == 0 {
		return model.BookingWithEvent{}, s.done(op, apperr.WithOp(op, apperr.Validation("author_id is required")))
	}

	var out model.BookingWithEvent
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		b, err := s.bookings.CreateTx(ctx, tx, data.Booking)
		if err != nil {
			return err
		}
		ev, err := s.createEventTx(ctx, tx, b.ID, data.Event)
		if err != nil {
			return err
		}
		out = model.BookingWithEvent{Booking: b, Event: ev}
		return nil
	})
	if err != nil {
		return model.BookingWithEvent{}, s.done(op, s.fail(op, "booking", "new", err))
	}
	s.publish(ctx, queue.TypeBookingCreated, out)
	return out, s.done(op, nil)
}

// FindBooking returns the booking aggregate.
func (s *BookingService) FindBooking(ctx context.Context, id int64) (model.BookingWithEvent, error) {
	b, err := s.bookings.FindWithEvent(ctx, id)
	if err != nil {
		return model.BookingWithEvent{}, s.fail("find_booking", "booking", id, err)
	}
	return b, nil
}

// ListBookings returns the bookings matching f ordered by start.
func (s *BookingService) ListBookings(ctx context.Context, f model.BookingFilter) ([]model.BookingWithEvent, error) {
	const op = "list_bookings"
	if f.Limit != nil && *f.Limit < 0 || f.Offset != nil && *f.Offset < 0 {
		return nil, apperr.WithOp(op, apperr.Validation("limit and offset must not be negative"))
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, apperr.WithOp(op, apperr.Validation("the range end must not be before its start"))
	}
	list, err := s.bookings.List(ctx, f)
	if err != nil {
		return nil, s.fail(op, "booking", "list", err)
	}
	return list, nil
}

// UpdateBooking overwrites the booking fields and applies the event
// transition. A zero author keeps the current one. The booking row stays
// locked for the whole transaction and an invalid transition aborts before
// anything is written.
func (s *BookingService) UpdateBooking(ctx context.Context, id int64, data model.NewBookingData) (model.BookingWithEvent, error) {
	const op = "update_booking"
	if err := data.Validate(); err != nil {
		return model.BookingWithEvent{}, s.done(op, apperr.WithOp(op, err))
	}

	var out model.BookingWithEvent
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		cur, err := s.bookings.LockWithEventTx(ctx, tx, id)
		if err != nil {
			return s.fail(op, "booking", id, err)
		}
		tr, err := decideTransition(model.KindOf(cur.Event), data.Event)
		if err != nil {
			return apperr.InvalidTransition(op, id, err.Error())
		}
		if data.Booking.AuthorID == 0 {
			data.Booking.AuthorID = cur.Booking.AuthorID
		}

		b, err := s.bookings.UpdateTx(ctx, tx, id, data.Booking)
		if err != nil {
			return err
		}
		out = model.BookingWithEvent{Booking: b, Event: cur.Event}

		switch tr {
		case createEvent:
			out.Event, err = s.createEventTx(ctx, tx, id, data.Event)
			return err
		case updateEventInPlace:
			switch ev := cur.Event.(type) {
			case *model.Game:
				return s.games.UpdatePeriodTx(ctx, tx, ev, data.Event.(model.GameInput))
			case *model.Training:
				return s.trainings.UpdatePeriodTx(ctx, tx, ev, data.Event.(model.TrainingInput))
			}
		}
		return nil
	})
	if err != nil {
		return model.BookingWithEvent{}, s.done(op, s.fail(op, "booking", id, err))
	}
	s.publish(ctx, queue.TypeBookingUpdated, out)
	return out, s.done(op, nil)
}

// DeleteBooking removes the whole aggregate and returns it as it was.
func (s *BookingService) DeleteBooking(ctx context.Context, id int64) (model.BookingWithEvent, error) {
	const op = "delete_booking"
	var snapshot model.BookingWithEvent
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		if snapshot, err = s.bookings.LockWithEventTx(ctx, tx, id); err != nil {
			return err
		}
		return repository.DeleteBookingTx(ctx, tx, snapshot)
	})
	if err != nil {
		return model.BookingWithEvent{}, s.done(op, s.fail(op, "booking", id, err))
	}
	s.publish(ctx, queue.TypeBookingDeleted, snapshot)
	return snapshot, s.done(op, nil)
}

// DeleteGame removes a game with its formations. The booking stays.
func (s *BookingService) DeleteGame(ctx context.Context, id int64) (model.Game, error) {
	const op = "delete_game"
	var g model.Game
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		if g, err = s.games.LockTx(ctx, tx, id); err != nil {
			return err
		}
		return repository.DeleteGameTx(ctx, tx, &g)
	})
	if err != nil {
		return model.Game{}, s.done(op, s.fail(op, "game", id, err))
	}
	s.publish(ctx, queue.TypeBookingUpdated, model.BookingWithEvent{Booking: model.Booking{ID: g.BookingID}})
	return g, s.done(op, nil)
}

// DeleteTraining removes a training with its roster. The booking stays.
func (s *BookingService) DeleteTraining(ctx context.Context, id int64) (model.Training, error) {
	const op = "delete_training"
	var t model.Training
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		if t, err = s.trainings.LockTx(ctx, tx, id); err != nil {
			return err
		}
		return repository.DeleteTrainingTx(ctx, tx, &t)
	})
	if err != nil {
		return model.Training{}, s.done(op, s.fail(op, "training", id, err))
	}
	s.publish(ctx, queue.TypeBookingUpdated, model.BookingWithEvent{Booking: model.Booking{ID: t.BookingID}})
	return t, s.done(op, nil)
}

// AuthorizedCreateBooking creates a booking on behalf of the subject. The
// author defaults to the subject.
func (s *BookingService) AuthorizedCreateBooking(ctx context.Context, c model.Claims, data model.NewBookingData) (model.BookingWithEvent, error) {
	if data.Booking.AuthorID == 0 {
		data.Booking.AuthorID = c.SubjectID
	}
	ctx, err := s.authorize(ctx, "create_booking", c.SubjectID, authz.NewBookingRes{Data: data}, authz.ActionCreate)
	if err != nil {
		return model.BookingWithEvent{}, err
	}
	return s.CreateBooking(ctx, data)
}

func (s *BookingService) AuthorizedFindBooking(ctx context.Context, c model.Claims, id int64) (model.BookingWithEvent, error) {
	ctx, err := s.authorize(ctx, "find_booking", c.SubjectID, authz.BookingRes{ID: id}, authz.ActionRead)
	if err != nil {
		return model.BookingWithEvent{}, err
	}
	return s.FindBooking(ctx, id)
}

func (s *BookingService) AuthorizedListBookings(ctx context.Context, c model.Claims, f model.BookingFilter) ([]model.BookingWithEvent, error) {
	ctx, err := s.authorize(ctx, "list_bookings", c.SubjectID, authz.BookingRes{}, authz.ActionRead)
	if err != nil {
		return nil, err
	}
	return s.ListBookings(ctx, f)
}

// AuthorizedUpdateBooking applies the booking edit rule. When the update
// attaches an event to a booking that has none, the subject must also pass
// the create rule for that event.
func (s *BookingService) AuthorizedUpdateBooking(ctx context.Context, c model.Claims, id int64, data model.NewBookingData) (model.BookingWithEvent, error) {
	const op = "update_booking"
	ctx, err := s.authorize(ctx, op, c.SubjectID, authz.BookingRes{ID: id}, authz.ActionUpdate)
	if err != nil {
		return model.BookingWithEvent{}, err
	}
	if data.Event != nil {
		cur, err := s.bookings.FindWithEvent(ctx, id)
		if err != nil {
			return model.BookingWithEvent{}, s.fail(op, "booking", id, err)
		}
		if model.KindOf(cur.Event) == model.EventNone {
			if ctx, err = s.authorize(ctx, op, c.SubjectID, authz.NewBookingRes{Data: data}, authz.ActionCreate); err != nil {
				return model.BookingWithEvent{}, err
			}
		}
	}
	return s.UpdateBooking(ctx, id, data)
}

func (s *BookingService) AuthorizedDeleteBooking(ctx context.Context, c model.Claims, id int64) (model.BookingWithEvent, error) {
	ctx, err := s.authorize(ctx, "delete_booking", c.SubjectID, authz.BookingRes{ID: id}, authz.ActionDelete)
	if err != nil {
		return model.BookingWithEvent{}, err
	}
	return s.DeleteBooking(ctx, id)
}

func (s *BookingService) AuthorizedDeleteGame(ctx context.Context, c model.Claims, id int64) (model.Game, error) {
	ctx, err := s.authorize(ctx, "delete_game", c.SubjectID, authz.GameRes{ID: id}, authz.ActionDelete)
	if err != nil {
		return model.Game{}, err
	}
	return s.DeleteGame(ctx, id)
}

func (s *BookingService) AuthorizedDeleteTraining(ctx context.Context, c model.Claims, id int64) (model.Training, error) {
	ctx, err := s.authorize(ctx, "delete_training", c.SubjectID, authz.TrainingRes{ID: id}, authz.ActionDelete)
	if err != nil {
		return model.Training{}, err
	}
	return s.DeleteTraining(ctx, id)
}
