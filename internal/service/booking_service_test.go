package service

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sports-facility-booking/internal/apperr"
	"github.com/iliyamo/sports-facility-booking/internal/authz"
	"github.com/iliyamo/sports-facility-booking/internal/model"
	"github.com/iliyamo/sports-facility-booking/internal/queue"
)

func q(s string) string { return regexp.QuoteMeta(s) }

func int64p(v int64) *int64 { return &v }

func gameBookingData() model.NewBookingData {
	return model.NewBookingData{
		Booking: model.BookingInput{AuthorID: 42, Start: slotFrom, End: slotTo, Sport: "volleyball"},
		Event:   model.GameInput{HomeTeamID: 100, VisitingTeamID: int64p(200), Start: slotFrom},
	}
}

func TestDecideTransition(t *testing.T) {
	game := model.GameInput{HomeTeamID: 1, Start: slotFrom}
	training := model.TrainingInput{TeamID: 1, Start: slotFrom}

	cases := []struct {
		name     string
		existing model.EventKind
		req      model.EventInput
		want     transition
		err      error
	}{
		{"none to none", model.EventNone, nil, keepNoEvent, nil},
		{"none to game", model.EventNone, game, createEvent, nil},
		{"none to training", model.EventNone, training, createEvent, nil},
		{"game to game", model.EventGame, game, updateEventInPlace, nil},
		{"training to training", model.EventTraining, training, updateEventInPlace, nil},
		{"game to training", model.EventGame, training, 0, errSwitchEvent},
		{"training to game", model.EventTraining, game, 0, errSwitchEvent},
		{"game to none", model.EventGame, nil, 0, errDropEvent},
		{"training to none", model.EventTraining, nil, 0, errDropEvent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decideTransition(tc.existing, tc.req)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCreateBookingWithGame(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBookingService(env.deps)

	env.mock.ExpectBegin()
	env.mock.ExpectExec(q("INSERT INTO booking")).
		WithArgs(42, slotFrom, slotTo, "volleyball", nil).
		WillReturnResult(sqlmock.NewResult(7, 1))
	env.mock.ExpectExec(q("INSERT INTO formation (team_id)")).WithArgs(100).WillReturnResult(sqlmock.NewResult(1000, 1))
	env.mock.ExpectExec(q("INSERT INTO formation (team_id)")).WithArgs(200).WillReturnResult(sqlmock.NewResult(2000, 1))
	env.mock.ExpectExec(q("INSERT INTO game")).
		WithArgs(1000, 2000, slotFrom, nil, 7).
		WillReturnResult(sqlmock.NewResult(9, 1))
	env.mock.ExpectCommit()

	out, err := svc.CreateBooking(context.Background(), gameBookingData())
	require.NoError(t, err)
	require.NoError(t, env.mock.ExpectationsWereMet())

	assert.Equal(t, int64(7), out.Booking.ID)
	g, ok := out.Game()
	require.True(t, ok)
	assert.Equal(t, int64(9), g.ID)
	assert.Equal(t, int64(1000), g.HomeFormationID)
	require.NotNil(t, g.VisitingFormationID)
	assert.Equal(t, int64(2000), *g.VisitingFormationID)
	assert.Equal(t, int64(7), g.BookingID)

	assert.Equal(t, []string{queue.TypeBookingCreated}, env.events.types())
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.AggregateOperationsTotal.WithLabelValues("create_booking", "ok")))
}

func TestCreateBookingRollsBackWhenGameInsertFails(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBookingService(env.deps)

	env.mock.ExpectBegin()
	env.mock.ExpectExec(q("INSERT INTO booking")).WillReturnResult(sqlmock.NewResult(7, 1))
	env.mock.ExpectExec(q("INSERT INTO formation")).WillReturnResult(sqlmock.NewResult(1000, 1))
	env.mock.ExpectExec(q("INSERT INTO formation")).WillReturnResult(sqlmock.NewResult(2000, 1))
	env.mock.ExpectExec(q("INSERT INTO game")).WillReturnError(errors.New("deadlock found"))
	env.mock.ExpectRollback()

	_, err := svc.CreateBooking(context.Background(), gameBookingData())
	require.Error(t, err)
	require.NoError(t, env.mock.ExpectationsWereMet())

	assert.ErrorIs(t, err, apperr.ErrStore)
	assert.Empty(t, env.events.types())
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.StoreErrorsTotal.WithLabelValues("create_booking")))

	require.Len(t, env.hook.Entries, 1)
	assert.Equal(t, logrus.ErrorLevel, env.hook.LastEntry().Level)
	assert.Equal(t, "create_booking", env.hook.LastEntry().Data["operation"])
}

func TestCreateBookingValidatesBeforeTouchingTheStore(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBookingService(env.deps)

	data := gameBookingData()
	data.Booking.End = data.Booking.Start

	_, err := svc.CreateBooking(context.Background(), data)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestUpdateBookingRejectsSwitchingEventKind(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBookingService(env.deps)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(q("FROM booking b")).WithArgs(7).
		WillReturnRows(bookingRow(7, 42, []driver.Value{int64(9), int64(1000), int64(2000), slotFrom, nil}, nil))
	env.mock.ExpectRollback()

	data := model.NewBookingData{
		Booking: model.BookingInput{AuthorID: 42, Start: slotFrom, End: slotTo, Sport: "volleyball"},
		Event:   model.TrainingInput{TeamID: 100, Start: slotFrom},
	}
	_, err := svc.UpdateBooking(context.Background(), 7, data)
	require.Error(t, err)
	require.NoError(t, env.mock.ExpectationsWereMet())

	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Equal(t, "invalid_transition", apperr.Code(err))
	assert.Contains(t, err.Error(), "first delete the existing event")
	assert.Empty(t, env.events.types())
}

func TestUpdateBookingRejectsDroppingEvent(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBookingService(env.deps)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(q("FROM booking b")).WithArgs(7).
		WillReturnRows(bookingRow(7, 42, nil, []driver.Value{int64(5), int64(100), slotFrom, nil}))
	env.mock.ExpectRollback()

	data := model.NewBookingData{
		Booking: model.BookingInput{AuthorID: 42, Start: slotFrom, End: slotTo, Sport: "volleyball"},
	}
	_, err := svc.UpdateBooking(context.Background(), 7, data)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestUpdateBookingUpdatesTrainingInPlace(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBookingService(env.deps)

	later := slotFrom.Add(30 * time.Minute)
	env.mock.ExpectBegin()
	env.mock.ExpectQuery(q("FROM booking b")).WithArgs(7).
		WillReturnRows(bookingRow(7, 42, nil, []driver.Value{int64(5), int64(100), slotFrom, nil}))
	env.mock.ExpectExec(q("UPDATE booking SET")).
		WithArgs(42, slotFrom, slotTo, "tennis", nil, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectExec(q("UPDATE training SET start_datetime = ?, end_datetime = ? WHERE id = ?")).
		WithArgs(later, nil, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectCommit()

	data := model.NewBookingData{
		Booking: model.BookingInput{AuthorID: 42, Start: slotFrom, End: slotTo, Sport: "tennis"},
		Event:   model.TrainingInput{TeamID: 100, Start: later},
	}
	out, err := svc.UpdateBooking(context.Background(), 7, data)
	require.NoError(t, err)
	require.NoError(t, env.mock.ExpectationsWereMet())

	tr, ok := out.Training()
	require.True(t, ok)
	assert.Equal(t, later, tr.Start)
	assert.Equal(t, "tennis", out.Booking.Sport)
	assert.Equal(t, []string{queue.TypeBookingUpdated}, env.events.types())
}

func TestUpdateBookingCreatesMissingEvent(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBookingService(env.deps)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(q("FROM booking b")).WithArgs(7).WillReturnRows(bookingRow(7, 42, nil, nil))
	env.mock.ExpectExec(q("UPDATE booking SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectExec(q("INSERT INTO training")).
		WithArgs(100, slotFrom, nil, 7).
		WillReturnResult(sqlmock.NewResult(5, 1))
	env.mock.ExpectCommit()

	data := model.NewBookingData{
		Booking: model.BookingInput{AuthorID: 42, Start: slotFrom, End: slotTo, Sport: "volleyball"},
		Event:   model.TrainingInput{TeamID: 100, Start: slotFrom},
	}
	out, err := svc.UpdateBooking(context.Background(), 7, data)
	require.NoError(t, err)
	require.NoError(t, env.mock.ExpectationsWereMet())
	assert.Equal(t, model.EventTraining, model.KindOf(out.Event))
}

func TestUpdateBookingNotFound(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBookingService(env.deps)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(q("FROM booking b")).WithArgs(404).WillReturnRows(sqlmock.NewRows(bookingColumns))
	env.mock.ExpectRollback()

	_, err := svc.UpdateBooking(context.Background(), 404, model.NewBookingData{
		Booking: model.BookingInput{AuthorID: 42, Start: slotFrom, End: slotTo, Sport: "volleyball"},
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	require.NoError(t, env.mock.ExpectationsWereMet())
	assert.Empty(t, env.hook.Entries)
}

func TestDeleteBookingCascadesGameAndReturnsSnapshot(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBookingService(env.deps)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(q("FROM booking b")).WithArgs(7).
		WillReturnRows(bookingRow(7, 42, []driver.Value{int64(9), int64(1000), int64(2000), slotFrom, nil}, nil))
	env.mock.ExpectExec(q("DELETE FROM game WHERE id = ?")).WithArgs(9).WillReturnResult(sqlmock.NewResult(0, 1))
	for _, fid := range []int64{1000, 2000} {
		env.mock.ExpectExec(q("DELETE FROM formation_player_tag WHERE formation_id = ?")).WithArgs(fid).WillReturnResult(sqlmock.NewResult(0, 3))
		env.mock.ExpectExec(q("DELETE FROM formation_player WHERE formation_id = ?")).WithArgs(fid).WillReturnResult(sqlmock.NewResult(0, 2))
		env.mock.ExpectExec(q("DELETE FROM formation WHERE id = ?")).WithArgs(fid).WillReturnResult(sqlmock.NewResult(0, 1))
	}
	env.mock.ExpectExec(q("DELETE FROM camera_session WHERE session_id IN")).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 0))
	env.mock.ExpectExec(q("DELETE FROM recording_session WHERE booking_id = ?")).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 0))
	env.mock.ExpectExec(q("DELETE FROM booking WHERE id = ?")).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectCommit()

	snap, err := svc.DeleteBooking(context.Background(), 7)
	require.NoError(t, err)
	require.NoError(t, env.mock.ExpectationsWereMet())

	assert.Equal(t, int64(42), snap.Booking.AuthorID)
	g, ok := snap.Game()
	require.True(t, ok)
	assert.Equal(t, []int64{1000, 2000}, g.FormationIDs())
	assert.Equal(t, []string{queue.TypeBookingDeleted}, env.events.types())
}

func TestDeleteBookingCascadesTraining(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBookingService(env.deps)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(q("FROM booking b")).WithArgs(8).
		WillReturnRows(bookingRow(8, 42, nil, []driver.Value{int64(5), int64(100), slotFrom, nil}))
	env.mock.ExpectExec(q("DELETE FROM training_player_tag WHERE training_id = ?")).WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectExec(q("DELETE FROM training_player WHERE training_id = ?")).WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectExec(q("DELETE FROM training WHERE id = ?")).WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectExec(q("DELETE FROM camera_session")).WithArgs(8).WillReturnResult(sqlmock.NewResult(0, 0))
	env.mock.ExpectExec(q("DELETE FROM recording_session")).WithArgs(8).WillReturnResult(sqlmock.NewResult(0, 0))
	env.mock.ExpectExec(q("DELETE FROM booking WHERE id = ?")).WithArgs(8).WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectCommit()

	snap, err := svc.DeleteBooking(context.Background(), 8)
	require.NoError(t, err)
	require.NoError(t, env.mock.ExpectationsWereMet())
	assert.Equal(t, model.EventTraining, model.KindOf(snap.Event))
}

func TestDeleteBookingThenFindIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBookingService(env.deps)

	env.mock.ExpectQuery(q("FROM booking b")).WithArgs(7).WillReturnRows(sqlmock.NewRows(bookingColumns))

	_, err := svc.FindBooking(context.Background(), 7)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestFindBookingWithBothEventsIsAStoreError(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBookingService(env.deps)

	env.mock.ExpectQuery(q("FROM booking b")).WithArgs(7).
		WillReturnRows(bookingRow(7, 42,
			[]driver.Value{int64(9), int64(1000), nil, slotFrom, nil},
			[]driver.Value{int64(5), int64(100), slotFrom, nil}))

	_, err := svc.FindBooking(context.Background(), 7)
	assert.ErrorIs(t, err, apperr.ErrStore)
}

func TestListBookingsRejectsNegativePaging(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBookingService(env.deps)

	_, err := svc.ListBookings(context.Background(), model.BookingFilter{Limit: int64p(-1)})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestAuthorizedCreateBookingDeniedWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBookingService(env.deps)

	_, err := svc.AuthorizedCreateBooking(context.Background(), model.Claims{SubjectID: 77}, gameBookingData())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	require.NoError(t, env.mock.ExpectationsWereMet())
	assert.Equal(t, []string{queue.TypeAuthzDenied}, env.events.types())
}

func TestCreateBookingRequiresAuthor(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBookingService(env.deps)

	data := gameBookingData()
	data.Booking.AuthorID = 0
	_, err := svc.CreateBooking(context.Background(), data)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	data.Booking.AuthorID = -3
	_, err = svc.CreateBooking(context.Background(), data)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestUpdateBookingKeepsAuthorWhenOmitted(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBookingService(env.deps)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(q("FROM booking b")).WithArgs(7).WillReturnRows(bookingRow(7, 42, nil, nil))
	env.mock.ExpectExec(q("UPDATE booking SET")).
		WithArgs(42, slotFrom, slotTo, "tennis", nil, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectCommit()

	out, err := svc.UpdateBooking(context.Background(), 7, model.NewBookingData{
		Booking: model.BookingInput{Start: slotFrom, End: slotTo, Sport: "tennis"},
	})
	require.NoError(t, err)
	require.NoError(t, env.mock.ExpectationsWereMet())
	assert.Equal(t, int64(42), out.Booking.AuthorID)
}

func TestUpdateBookingUpdatesGameInPlace(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBookingService(env.deps)

	later := slotFrom.Add(time.Hour)
	end := slotTo
	env.mock.ExpectBegin()
	env.mock.ExpectQuery(q("FROM booking b")).WithArgs(7).
		WillReturnRows(bookingRow(7, 42, []driver.Value{int64(9), int64(1000), int64(2000), slotFrom, nil}, nil))
	env.mock.ExpectExec(q("UPDATE booking SET")).
		WithArgs(42, slotFrom, slotTo, "volleyball", nil, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectExec(q("UPDATE game SET start_datetime = ?, end_datetime = ? WHERE id = ?")).
		WithArgs(later, end, 9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectCommit()

	data := gameBookingData()
	data.Event = model.GameInput{HomeTeamID: 100, VisitingTeamID: int64p(200), Start: later, End: &end}
	out, err := svc.UpdateBooking(context.Background(), 7, data)
	require.NoError(t, err)
	require.NoError(t, env.mock.ExpectationsWereMet())

	g, ok := out.Game()
	require.True(t, ok)
	assert.Equal(t, later, g.Start)
	require.NotNil(t, g.End)
	assert.Equal(t, end, *g.End)
	assert.Equal(t, []int64{1000, 2000}, g.FormationIDs())
	assert.Equal(t, []string{queue.TypeBookingUpdated}, env.events.types())
}

func TestDeleteGameKeepsBooking(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBookingService(env.deps)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(q("FROM game WHERE id = ? FOR UPDATE")).WithArgs(9).
		WillReturnRows(sqlmock.NewRows(gameColumns).AddRow(int64(9), int64(1000), int64(2000), slotFrom, nil, int64(7)))
	env.mock.ExpectExec(q("DELETE FROM game WHERE id = ?")).WithArgs(9).WillReturnResult(sqlmock.NewResult(0, 1))
	for _, fid := range []int64{1000, 2000} {
		env.mock.ExpectExec(q("DELETE FROM formation_player_tag WHERE formation_id = ?")).WithArgs(fid).WillReturnResult(sqlmock.NewResult(0, 2))
		env.mock.ExpectExec(q("DELETE FROM formation_player WHERE formation_id = ?")).WithArgs(fid).WillReturnResult(sqlmock.NewResult(0, 1))
		env.mock.ExpectExec(q("DELETE FROM formation WHERE id = ?")).WithArgs(fid).WillReturnResult(sqlmock.NewResult(0, 1))
	}
	env.mock.ExpectCommit()

	g, err := svc.DeleteGame(context.Background(), 9)
	require.NoError(t, err)
	require.NoError(t, env.mock.ExpectationsWereMet())

	assert.Equal(t, int64(7), g.BookingID)
	assert.Equal(t, []int64{1000, 2000}, g.FormationIDs())
	assert.Equal(t, []string{queue.TypeBookingUpdated}, env.events.types())
}

func TestDeleteGameNotFound(t *testing.T) {
	env := newTestEnv(t)
	svc := NewBookingService(env.deps)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(q("FROM game WHERE id = ? FOR UPDATE")).WithArgs(9).WillReturnRows(sqlmock.NewRows(gameColumns))
	env.mock.ExpectRollback()

	_, err := svc.DeleteGame(context.Background(), 9)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	require.NoError(t, env.mock.ExpectationsWereMet())
	assert.Empty(t, env.events.types())
}

// authoredLookup knows one booking without event, written by author 42.
type authoredLookup struct{ emptyLookup }

func (authoredLookup) FindBookingWithEvent(_ context.Context, id int64) (model.BookingWithEvent, error) {
	return model.BookingWithEvent{Booking: model.Booking{ID: id, AuthorID: 42}}, nil
}

func TestAuthorizedUpdateBookingAttachingEventNeedsTeamRole(t *testing.T) {
	env := newTestEnv(t)
	env.deps.Gate = authz.NewGate(denyAllRoles{}, authoredLookup{}, env.deps.Log, env.metrics, env.events)
	svc := NewBookingService(env.deps)

	env.mock.ExpectQuery(q("FROM booking b")).WithArgs(7).WillReturnRows(bookingRow(7, 42, nil, nil))

	data := model.NewBookingData{
		Booking: model.BookingInput{AuthorID: 42, Start: slotFrom, End: slotTo, Sport: "volleyball"},
		Event:   model.TrainingInput{TeamID: 300, Start: slotFrom},
	}
	_, err := svc.AuthorizedUpdateBooking(context.Background(), model.Claims{SubjectID: 42}, 7, data)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	require.NoError(t, env.mock.ExpectationsWereMet())
	assert.Equal(t, []string{queue.TypeAuthzDenied}, env.events.types())
}
