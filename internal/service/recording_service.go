package service

import (
	"context"
	"database/sql"
	"sort"

	"github.com/iliyamo/sports-facility-booking/internal/apperr"
	"github.com/iliyamo/sports-facility-booking/internal/authz"
	"github.com/iliyamo/sports-facility-booking/internal/database"
	"github.com/iliyamo/sports-facility-booking/internal/model"
	"github.com/iliyamo/sports-facility-booking/internal/repository"
)

// RecordingService manages recording sessions and the cameras filming them.
type RecordingService struct {
	Deps
	recordings *repository.RecordingRepo
	bookings   *repository.BookingRepo
}

func NewRecordingService(d Deps) *RecordingService {
	d = d.withDefaults()
	return &RecordingService{
		Deps:       d,
		recordings: repository.NewRecordingRepo(d.DB),
		bookings:   repository.NewBookingRepo(d.DB),
	}
}

// diffCameras returns the cameras of desired missing from current and the
// cameras of current missing from desired, both sorted and free of
// duplicates.
func diffCameras(current, desired []int64) (toAdd, toRemove []int64) {
	have := make(map[int64]bool, len(current))
	for _, id := range current {
		have[id] = true
	}
	want := make(map[int64]bool, len(desired))
	for _, id := range desired {
		if !want[id] && !have[id] {
			toAdd = append(toAdd, id)
		}
		want[id] = true
	}
	for id := range have {
		if !want[id] {
			toRemove = append(toRemove, id)
		}
	}
	sort.Slice(toAdd, func(i, j int) bool { return toAdd[i] < toAdd[j] })
	sort.Slice(toRemove, func(i, j int) bool { return toRemove[i] < toRemove[j] })
	return toAdd, toRemove
}

// syncCamerasTx makes the camera set of the session equal to desired.
func (s *RecordingService) syncCamerasTx(ctx context.Context, tx *sql.Tx, sessionID int64, desired []int64) error {
	current, err := s.recordings.CameraIDsTx(ctx, tx, sessionID)
	if err != nil {
		return err
	}
	toAdd, toRemove := diffCameras(current, desired)
	if len(toAdd) > 0 {
		if err := s.recordings.LinkCamerasTx(ctx, tx, sessionID, toAdd); err != nil {
			return err
		}
	}
	if len(toRemove) > 0 {
		if err := s.recordings.UnlinkCamerasTx(ctx, tx, sessionID, toRemove); err != nil {
			return err
		}
	}
	return nil
}

// CreateRecordingSession attaches a new session with its cameras to a
// booking. The booking row is locked so a concurrent delete cannot orphan
// the session.
func (s *RecordingService) CreateRecordingSession(ctx context.Context, in model.RecordingSessionInput) (model.RecordingSessionWithCameras, error) {
	const op = "create_recording_session"
	if err := in.Validate(); err != nil {
		return model.RecordingSessionWithCameras{}, s.done(op, apperr.WithOp(op, err))
	}
	var id int64
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := s.bookings.LockWithEventTx(ctx, tx, in.Session.BookingID); err != nil {
			return s.fail(op, "booking", in.Session.BookingID, err)
		}
		rs, err := s.recordings.CreateTx(ctx, tx, in.Session)
		if err != nil {
			return err
		}
		id = rs.ID
		return s.syncCamerasTx(ctx, tx, id, in.CameraIDs)
	})
	if err != nil {
		return model.RecordingSessionWithCameras{}, s.done(op, s.fail(op, "recording_session", "new", err))
	}
	s.done(op, nil)
	return s.FindRecordingSession(ctx, id)
}

// FindRecordingSession returns the session with its cameras.
func (s *RecordingService) FindRecordingSession(ctx context.Context, id int64) (model.RecordingSessionWithCameras, error) {
	rs, err := s.recordings.FindWithCameras(ctx, id)
	if err != nil {
		return model.RecordingSessionWithCameras{}, s.fail("find_recording_session", "recording_session", id, err)
	}
	return rs, nil
}

// ListRecordingSessionsByBooking pages through the sessions of a booking.
func (s *RecordingService) ListRecordingSessionsByBooking(ctx context.Context, bookingID, limit, offset int64) ([]model.RecordingSessionWithCameras, error) {
	const op = "list_recording_sessions"
	if limit < 0 || offset < 0 {
		return nil, apperr.WithOp(op, apperr.Validation("limit and offset must not be negative"))
	}
	if _, err := s.bookings.FindWithEvent(ctx, bookingID); err != nil {
		return nil, s.fail(op, "booking", bookingID, err)
	}
	list, err := s.recordings.ListByBooking(ctx, bookingID, limit, offset)
	if err != nil {
		return nil, s.fail(op, "recording_session", bookingID, err)
	}
	return list, nil
}

// UpdateRecordingSession overwrites the session fields and syncs its camera
// set in the same transaction. Cameras present in both the stored and the
// requested set are left alone.
func (s *RecordingService) UpdateRecordingSession(ctx context.Context, id int64, in model.RecordingSessionInput) (model.RecordingSessionWithCameras, error) {
	const op = "update_recording_session"
	if err := in.Validate(); err != nil {
		return model.RecordingSessionWithCameras{}, s.done(op, apperr.WithOp(op, err))
	}
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		cur, err := s.recordings.LockTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if cur.BookingID != in.Session.BookingID {
			if _, err := s.bookings.LockWithEventTx(ctx, tx, in.Session.BookingID); err != nil {
				return s.fail(op, "booking", in.Session.BookingID, err)
			}
		}
		if err := s.recordings.UpdateTx(ctx, tx, id, in.Session); err != nil {
			return err
		}
		return s.syncCamerasTx(ctx, tx, id, in.CameraIDs)
	})
	if err != nil {
		return model.RecordingSessionWithCameras{}, s.done(op, s.fail(op, "recording_session", id, err))
	}
	s.done(op, nil)
	return s.FindRecordingSession(ctx, id)
}

// DeleteRecordingSession removes the session with its camera links and
// returns it as it was.
func (s *RecordingService) DeleteRecordingSession(ctx context.Context, id int64) (model.RecordingSessionWithCameras, error) {
	const op = "delete_recording_session"
	var snapshot model.RecordingSessionWithCameras
	err := database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		if snapshot, err = s.recordings.LockWithCamerasTx(ctx, tx, id); err != nil {
			return err
		}
		return repository.DeleteRecordingSessionTx(ctx, tx, id)
	})
	if err != nil {
		return model.RecordingSessionWithCameras{}, s.done(op, s.fail(op, "recording_session", id, err))
	}
	return snapshot, s.done(op, nil)
}

// AuthorizedCreateRecordingSession creates a session on behalf of the
// subject, who becomes its author unless the payload names one.
func (s *RecordingService) AuthorizedCreateRecordingSession(ctx context.Context, c model.Claims, in model.RecordingSessionInput) (model.RecordingSessionWithCameras, error) {
	if in.Session.AuthorID == 0 {
		in.Session.AuthorID = c.SubjectID
	}
	ctx, err := s.authorize(ctx, "create_recording_session", c.SubjectID,
		authz.BookingSessionsRes{BookingID: in.Session.BookingID}, authz.ActionCreate)
	if err != nil {
		return model.RecordingSessionWithCameras{}, err
	}
	return s.CreateRecordingSession(ctx, in)
}

func (s *RecordingService) AuthorizedFindRecordingSession(ctx context.Context, c model.Claims, id int64) (model.RecordingSessionWithCameras, error) {
	ctx, err := s.authorize(ctx, "find_recording_session", c.SubjectID, authz.RecordingSessionRes{ID: id}, authz.ActionRead)
	if err != nil {
		return model.RecordingSessionWithCameras{}, err
	}
	return s.FindRecordingSession(ctx, id)
}

func (s *RecordingService) AuthorizedListRecordingSessionsByBooking(ctx context.Context, c model.Claims, bookingID, limit, offset int64) ([]model.RecordingSessionWithCameras, error) {
	ctx, err := s.authorize(ctx, "list_recording_sessions", c.SubjectID, authz.BookingSessionsRes{BookingID: bookingID}, authz.ActionRead)
	if err != nil {
		return nil, err
	}
	return s.ListRecordingSessionsByBooking(ctx, bookingID, limit, offset)
}

func (s *RecordingService) AuthorizedUpdateRecordingSession(ctx context.Context, c model.Claims, id int64, in model.RecordingSessionInput) (model.RecordingSessionWithCameras, error) {
	res := authz.RecordingSessionRes{ID: id, TargetBookingID: in.Session.BookingID}
	ctx, err := s.authorize(ctx, "update_recording_session", c.SubjectID, res, authz.ActionUpdate)
	if err != nil {
		return model.RecordingSessionWithCameras{}, err
	}
	return s.UpdateRecordingSession(ctx, id, in)
}

func (s *RecordingService) AuthorizedDeleteRecordingSession(ctx context.Context, c model.Claims, id int64) (model.RecordingSessionWithCameras, error) {
	ctx, err := s.authorize(ctx, "delete_recording_session", c.SubjectID, authz.RecordingSessionRes{ID: id}, authz.ActionDelete)
	if err != nil {
		return model.RecordingSessionWithCameras{}, err
	}
	return s.DeleteRecordingSession(ctx, id)
}
