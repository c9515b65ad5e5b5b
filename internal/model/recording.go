package model

import (
	"time"

	"github.com/iliyamo/sports-facility-booking/internal/apperr"
)

// RecordingSession is a span of recording attached to a booking and filmed by
// one or more cameras.
type RecordingSession struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"author_id"`
	Start     time.Time `json:"start_datetime"`
	End       time.Time `json:"end_datetime"`
	BookingID int64     `json:"booking_id"`
}

// Camera mirrors the camera table. Credentials are never serialized.
type Camera struct {
	ID       int64   `json:"id"`
	IPv4     string  `json:"ipv4_address"`
	IPv6     *string `json:"ipv6_address,omitempty"`
	Port     uint16  `json:"port"`
	Username string  `json:"username"`
	Password string  `json:"-"`
}

// RecordingSessionWithCameras is a session plus its camera set.
type RecordingSessionWithCameras struct {
	Session RecordingSession `json:"recording_session"`
	Cameras []Camera         `json:"cameras"`
}

// CameraIDs returns the ids of the session cameras.
func (s RecordingSessionWithCameras) CameraIDs() []int64 {
	ids := make([]int64, 0, len(s.Cameras))
	for _, c := range s.Cameras {
		ids = append(ids, c.ID)
	}
	return ids
}

// RecordingSessionFields are the writable columns of a session.
type RecordingSessionFields struct {
	AuthorID  int64     `json:"author_id"`
	Start     time.Time `json:"start_datetime"`
	End       time.Time `json:"end_datetime"`
	BookingID int64     `json:"booking_id"`
}

// RecordingSessionInput is the payload of create and update. CameraIDs is the
// desired camera set.
type RecordingSessionInput struct {
	Session   RecordingSessionFields `json:"recording_session"`
	CameraIDs []int64                `json:"camera_ids"`
}

func (in RecordingSessionInput) Validate() error {
	if in.Session.BookingID <= 0 {
		return apperr.Validation("booking_id is required")
	}
	if in.Session.Start.IsZero() || in.Session.End.IsZero() {
		return apperr.Validation("start_datetime and end_datetime are required")
	}
	if !in.Session.Start.Before(in.Session.End) {
		return apperr.Validation("the start datetime must be before the end datetime")
	}
	for _, id := range in.CameraIDs {
		if id <= 0 {
			return apperr.Validationf("invalid camera id %d", id)
		}
	}
	return nil
}
