package service

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sports-facility-booking/internal/apperr"
	"github.com/iliyamo/sports-facility-booking/internal/model"
)

var (
	sessionColumns = []string{"id", "author_id", "start_datetime", "end_datetime", "booking_id"}
	cameraColumns  = []string{"id", "ipv4_address", "ipv6_address", "port", "username", "password"}
)

func TestDiffCameras(t *testing.T) {
	cases := []struct {
		name            string
		current, wanted []int64
		add, remove     []int64
	}{
		{"empty", nil, nil, nil, nil},
		{"add all", nil, []int64{3, 1}, []int64{1, 3}, nil},
		{"remove all", []int64{2, 1}, nil, nil, []int64{1, 2}},
		{"overlap", []int64{1, 2}, []int64{2, 3}, []int64{3}, []int64{1}},
		{"same set", []int64{1, 2}, []int64{2, 1}, nil, nil},
		{"duplicates in request", []int64{1}, []int64{4, 4, 1}, []int64{4}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			add, remove := diffCameras(tc.current, tc.wanted)
			assert.Equal(t, tc.add, add)
			assert.Equal(t, tc.remove, remove)
		})
	}
}

func sessionInput(cameras ...int64) model.RecordingSessionInput {
	return model.RecordingSessionInput{
		Session:   model.RecordingSessionFields{AuthorID: 42, Start: slotFrom, End: slotTo, BookingID: 7},
		CameraIDs: cameras,
	}
}

// expectSessionUpdate queues the statements of one update of session 3 whose
// stored camera set is current. Link and unlink are expected only when given.
func expectSessionUpdate(mock sqlmock.Sqlmock, current []int64, link, unlink []int64) {
	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM recording_session WHERE id = ? FOR UPDATE")).WithArgs(3).
		WillReturnRows(sqlmock.NewRows(sessionColumns).AddRow(int64(3), int64(42), slotFrom, slotTo, int64(7)))
	mock.ExpectExec(q("UPDATE recording_session SET")).WithArgs(42, slotFrom, slotTo, 7, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	rows := sqlmock.NewRows([]string{"camera_id"})
	for _, id := range current {
		rows.AddRow(id)
	}
	mock.ExpectQuery(q("SELECT camera_id FROM camera_session WHERE session_id = ?")).WithArgs(3).WillReturnRows(rows)
	if len(link) > 0 {
		mock.ExpectExec(q("INSERT INTO camera_session (session_id, camera_id)")).WillReturnResult(sqlmock.NewResult(0, int64(len(link))))
	}
	if len(unlink) > 0 {
		mock.ExpectExec(q("DELETE FROM camera_session WHERE session_id = ? AND camera_id IN")).WillReturnResult(sqlmock.NewResult(0, int64(len(unlink))))
	}
	mock.ExpectCommit()
	mock.ExpectQuery(q("FROM recording_session WHERE id = ?")).WithArgs(3).
		WillReturnRows(sqlmock.NewRows(sessionColumns).AddRow(int64(3), int64(42), slotFrom, slotTo, int64(7)))
	mock.ExpectQuery(q("FROM camera c JOIN camera_session cs")).WithArgs(3).
		WillReturnRows(sqlmock.NewRows(cameraColumns).
			AddRow(int64(2), "10.0.0.2", nil, int64(554), "cam", "secret").
			AddRow(int64(3), "10.0.0.3", nil, int64(554), "cam", "secret"))
}

func TestUpdateRecordingSessionCameraSyncIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	svc := NewRecordingService(env.deps)

	expectSessionUpdate(env.mock, []int64{1, 2}, []int64{3}, []int64{1})
	first, err := svc.UpdateRecordingSession(context.Background(), 3, sessionInput(2, 3))
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, first.CameraIDs())

	expectSessionUpdate(env.mock, []int64{2, 3}, nil, nil)
	second, err := svc.UpdateRecordingSession(context.Background(), 3, sessionInput(2, 3))
	require.NoError(t, err)
	assert.Equal(t, first.CameraIDs(), second.CameraIDs())

	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestUpdateRecordingSessionNotFound(t *testing.T) {
	env := newTestEnv(t)
	svc := NewRecordingService(env.deps)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(q("FROM recording_session WHERE id = ? FOR UPDATE")).WithArgs(3).
		WillReturnRows(sqlmock.NewRows(sessionColumns))
	env.mock.ExpectRollback()

	_, err := svc.UpdateRecordingSession(context.Background(), 3, sessionInput(1))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCreateRecordingSessionLinksCameras(t *testing.T) {
	env := newTestEnv(t)
	svc := NewRecordingService(env.deps)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(q("FROM booking b")).WithArgs(7).WillReturnRows(bookingRow(7, 42, nil, nil))
	env.mock.ExpectExec(q("INSERT INTO recording_session")).WithArgs(42, slotFrom, slotTo, 7).
		WillReturnResult(sqlmock.NewResult(3, 1))
	env.mock.ExpectQuery(q("SELECT camera_id FROM camera_session")).WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"camera_id"}))
	env.mock.ExpectExec(q("INSERT INTO camera_session (session_id, camera_id) VALUES (?, ?), (?, ?)")).
		WithArgs(3, 2, 3, 3).
		WillReturnResult(sqlmock.NewResult(0, 2))
	env.mock.ExpectCommit()
	env.mock.ExpectQuery(q("FROM recording_session WHERE id = ?")).WithArgs(3).
		WillReturnRows(sqlmock.NewRows(sessionColumns).AddRow(int64(3), int64(42), slotFrom, slotTo, int64(7)))
	env.mock.ExpectQuery(q("FROM camera c JOIN camera_session cs")).WithArgs(3).
		WillReturnRows(sqlmock.NewRows(cameraColumns).
			AddRow(int64(2), "10.0.0.2", nil, int64(554), "cam", "secret").
			AddRow(int64(3), "10.0.0.3", "fe80::3", int64(554), "cam", "secret"))

	out, err := svc.CreateRecordingSession(context.Background(), sessionInput(3, 2))
	require.NoError(t, err)
	require.NoError(t, env.mock.ExpectationsWereMet())
	assert.Equal(t, int64(3), out.Session.ID)
	require.Len(t, out.Cameras, 2)
	require.NotNil(t, out.Cameras[1].IPv6)
	assert.Equal(t, "fe80::3", *out.Cameras[1].IPv6)
}

func TestCreateRecordingSessionForMissingBooking(t *testing.T) {
	env := newTestEnv(t)
	svc := NewRecordingService(env.deps)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(q("FROM booking b")).WithArgs(7).WillReturnRows(sqlmock.NewRows(bookingColumns))
	env.mock.ExpectRollback()

	_, err := svc.CreateRecordingSession(context.Background(), sessionInput(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "booking", err.(*apperr.Error).Resource)
	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestDeleteRecordingSessionReturnsSnapshot(t *testing.T) {
	env := newTestEnv(t)
	svc := NewRecordingService(env.deps)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(q("FROM recording_session WHERE id = ? FOR UPDATE")).WithArgs(3).
		WillReturnRows(sqlmock.NewRows(sessionColumns).AddRow(int64(3), int64(42), slotFrom, slotTo, int64(7)))
	env.mock.ExpectQuery(q("FROM camera c JOIN camera_session cs")).WithArgs(3).
		WillReturnRows(sqlmock.NewRows(cameraColumns).AddRow(int64(2), "10.0.0.2", nil, int64(554), "cam", "secret"))
	env.mock.ExpectExec(q("DELETE FROM camera_session WHERE session_id = ?")).WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectExec(q("DELETE FROM recording_session WHERE id = ?")).WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectCommit()

	snap, err := svc.DeleteRecordingSession(context.Background(), 3)
	require.NoError(t, err)
	require.NoError(t, env.mock.ExpectationsWereMet())
	assert.Equal(t, []int64{2}, snap.CameraIDs())
}

func TestDeleteRecordingSessionNotFound(t *testing.T) {
	env := newTestEnv(t)
	svc := NewRecordingService(env.deps)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery(q("FROM recording_session WHERE id = ? FOR UPDATE")).WithArgs(3).
		WillReturnRows(sqlmock.NewRows(sessionColumns))
	env.mock.ExpectRollback()

	_, err := svc.DeleteRecordingSession(context.Background(), 3)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	require.NoError(t, env.mock.ExpectationsWereMet())
}
