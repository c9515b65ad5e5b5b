package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/sports-facility-booking/internal/apperr"
)

// Booking mirrors the bookings table. A booking reserves a facility for a
// time range and owns at most one Event.
type Booking struct {
	ID       int64     `json:"id"`
	AuthorID int64     `json:"author_id"`
	Start    time.Time `json:"start_datetime"`
	End      time.Time `json:"end_datetime"`
	Sport    string    `json:"sport"`
	Notes    *string   `json:"notes,omitempty"`
}

// EventKind discriminates the Event union. EventNone is the kind of a booking
// without an event.
type EventKind int

const (
	EventNone EventKind = iota
	EventGame
	EventTraining
)

func (k EventKind) String() string {
	switch k {
	case EventGame:
		return "game"
	case EventTraining:
		return "training"
	default:
		return "none"
	}
}

// Event is the sealed union of the things a booking can host. Only *Game and
// *Training implement it.
type Event interface {
	Kind() EventKind
	isEvent()
}

// Game is a match between a home formation and an optional visiting one.
type Game struct {
	ID                  int64      `json:"id"`
	HomeFormationID     int64      `json:"home_formation_id"`
	VisitingFormationID *int64     `json:"visiting_formation_id,omitempty"`
	Start               time.Time  `json:"start_datetime"`
	End                 *time.Time `json:"end_datetime,omitempty"`
	BookingID           int64      `json:"booking_id"`
}

func (*Game) Kind() EventKind { return EventGame }
func (*Game) isEvent()        {}

// FormationIDs returns the home formation id followed by the visiting one when set.
func (g *Game) FormationIDs() []int64 {
	ids := []int64{g.HomeFormationID}
	if g.VisitingFormationID != nil {
		ids = append(ids, *g.VisitingFormationID)
	}
	return ids
}

// Training is a team practice session.
type Training struct {
	ID        int64      `json:"id"`
	TeamID    int64      `json:"team_id"`
	Start     time.Time  `json:"start_datetime"`
	End       *time.Time `json:"end_datetime,omitempty"`
	BookingID int64      `json:"booking_id"`
}

func (*Training) Kind() EventKind { return EventTraining }
func (*Training) isEvent()        {}

// Formation is the per-team roster of one side of a game.
type Formation struct {
	ID     int64 `json:"id"`
	TeamID int64 `json:"team_id"`
}

// KindOf returns the kind of ev, treating nil as EventNone.
func KindOf(ev Event) EventKind {
	if ev == nil {
		return EventNone
	}
	return ev.Kind()
}

// BookingWithEvent is the Booking aggregate: the booking row plus its event,
// which is nil, *Game or *Training.
type BookingWithEvent struct {
	Booking Booking
	Event   Event
}

type eventJSON struct {
	Game     *Game     `json:"game,omitempty"`
	Training *Training `json:"training,omitempty"`
}

type bookingWithEventJSON struct {
	Booking Booking    `json:"booking"`
	Event   *eventJSON `json:"event"`
}

// MarshalJSON renders the union as {"game": {...}} or {"training": {...}}.
func (b BookingWithEvent) MarshalJSON() ([]byte, error) {
	out := bookingWithEventJSON{Booking: b.Booking}
	switch ev := b.Event.(type) {
	case *Game:
		out.Event = &eventJSON{Game: ev}
	case *Training:
		out.Event = &eventJSON{Training: ev}
	}
	return json.Marshal(out)
}

// Game returns the game event when present.
func (b *BookingWithEvent) Game() (*Game, bool) {
	g, ok := b.Event.(*Game)
	return g, ok
}

// Training returns the training event when present.
func (b *BookingWithEvent) Training() (*Training, bool) {
	t, ok := b.Event.(*Training)
	return t, ok
}

// BookingInput carries the writable booking fields.
type BookingInput struct {
	AuthorID int64     `json:"author_id"`
	Start    time.Time `json:"start_datetime"`
	End      time.Time `json:"end_datetime"`
	Sport    string    `json:"sport"`
	Notes    *string   `json:"notes,omitempty"`
}

// Validate checks field-level constraints.
func (in BookingInput) Validate() error {
	if in.AuthorID < 0 {
		return apperr.Validation("author_id must be positive")
	}
	if strings.TrimSpace(in.Sport) == "" {
		return apperr.Validation("sport is required")
	}
	if in.Start.IsZero() || in.End.IsZero() {
		return apperr.Validation("start_datetime and end_datetime are required")
	}
	if !in.Start.Before(in.End) {
		return apperr.Validation("the start datetime must be before the end datetime")
	}
	return nil
}

// EventInput is the sealed union of requested events: GameInput or TrainingInput.
type EventInput interface {
	Kind() EventKind
	Validate() error
	isEventInput()
}

// GameInput requests a game. A formation is created for the home team and,
// when set, for the visiting team.
type GameInput struct {
	HomeTeamID     int64      `json:"home_team_id"`
	VisitingTeamID *int64     `json:"visiting_team_id,omitempty"`
	Start          time.Time  `json:"start_datetime"`
	End            *time.Time `json:"end_datetime,omitempty"`
}

func (GameInput) Kind() EventKind { return EventGame }
func (GameInput) isEventInput()   {}

// TeamIDs lists the teams involved in the requested game.
func (in GameInput) TeamIDs() []int64 {
	ids := []int64{in.HomeTeamID}
	if in.VisitingTeamID != nil {
		ids = append(ids, *in.VisitingTeamID)
	}
	return ids
}

func (in GameInput) Validate() error {
	if in.HomeTeamID <= 0 {
		return apperr.Validation("home_team_id is required")
	}
	if in.VisitingTeamID != nil && *in.VisitingTeamID == in.HomeTeamID {
		return apperr.Validation("home and visiting team must differ")
	}
	return validatePeriod(in.Start, in.End)
}

// TrainingInput requests a training for one team.
type TrainingInput struct {
	TeamID int64      `json:"team_id"`
	Start  time.Time  `json:"start_datetime"`
	End    *time.Time `json:"end_datetime,omitempty"`
}

func (TrainingInput) Kind() EventKind { return EventTraining }
func (TrainingInput) isEventInput()   {}

func (in TrainingInput) Validate() error {
	if in.TeamID <= 0 {
		return apperr.Validation("team_id is required")
	}
	return validatePeriod(in.Start, in.End)
}

func validatePeriod(start time.Time, end *time.Time) error {
	if start.IsZero() {
		return apperr.Validation("start_datetime is required")
	}
	if end != nil && !start.Before(*end) {
		return apperr.Validation("the start datetime must be before the end datetime")
	}
	return nil
}

// KindOfInput returns the kind of in, treating nil as EventNone.
func KindOfInput(in EventInput) EventKind {
	if in == nil {
		return EventNone
	}
	return in.Kind()
}

// NewBookingData is the payload of create and update.
type NewBookingData struct {
	Booking BookingInput
	Event   EventInput
}

type newBookingDataJSON struct {
	Booking BookingInput `json:"booking"`
	Event   *struct {
		Game     *GameInput     `json:"game,omitempty"`
		Training *TrainingInput `json:"training,omitempty"`
	} `json:"event"`
}

// UnmarshalJSON accepts {"booking": {...}, "event": {"game": {...}}} and the
// training equivalent. Supplying both variants is rejected.
func (d *NewBookingData) UnmarshalJSON(b []byte) error {
	var raw newBookingDataJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d.Booking = raw.Booking
	d.Event = nil
	if raw.Event == nil {
		return nil
	}
	switch {
	case raw.Event.Game != nil && raw.Event.Training != nil:
		return fmt.Errorf("event must be either a game or a training, not both")
	case raw.Event.Game != nil:
		d.Event = *raw.Event.Game
	case raw.Event.Training != nil:
		d.Event = *raw.Event.Training
	}
	return nil
}

// Validate checks the booking and the event, if any.
func (d NewBookingData) Validate() error {
	if err := d.Booking.Validate(); err != nil {
		return err
	}
	if d.Event != nil {
		return d.Event.Validate()
	}
	return nil
}

// BookingFilter narrows ListBookings. Zero values mean "no filter".
type BookingFilter struct {
	AuthorID *int64
	From     *time.Time
	To       *time.Time
	Sport    *string
	Limit    *int64
	Offset   *int64
}
