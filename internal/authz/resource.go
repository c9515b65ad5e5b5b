package authz

import (
	"strconv"

	"github.com/iliyamo/sports-facility-booking/internal/model"
)

// Action is what the subject wants to do with a resource.
type Action string

const (
	ActionRead               Action = "read"
	ActionCreate             Action = "create"
	ActionUpdate             Action = "update"
	ActionDelete             Action = "delete"
	ActionManageResponsibles Action = "manage_responsibles"
	ActionEditRoster         Action = "edit_roster"
	ActionReadRoster         Action = "read_roster"
	ActionAddProfile         Action = "add_profile"
	ActionJoin               Action = "join"
	ActionLeave              Action = "leave"
)

// Resource identifies the target of a decision. The set is closed: only the
// descriptors in this file implement it.
type Resource interface {
	// Name is the resource kind used in logs and errors.
	Name() string
	// Key is the resource identity used in logs and errors.
	Key() string
	isResource()
}

// BookingRes is an existing booking. A zero ID stands for the booking
// collection when listing.
type BookingRes struct{ ID int64 }

// NewBookingRes is a booking about to be created.
type NewBookingRes struct{ Data model.NewBookingData }

type GameRes struct{ ID int64 }

type TrainingRes struct{ ID int64 }

type FormationRes struct{ ID int64 }

// RecordingSessionRes is an existing session. TargetBookingID is set on
// update when the payload moves the session to another booking.
type RecordingSessionRes struct {
	ID              int64
	TargetBookingID int64
}

// BookingSessionsRes is the recording sessions collection of a booking.
type BookingSessionsRes struct{ BookingID int64 }

type ClubRes struct{ ID string }

// NewClubRes is a club about to be created with VAT number ID.
type NewClubRes struct{ ID string }

// NewTeamRes is a team about to be created in ClubID.
type NewTeamRes struct{ ClubID string }

type TeamRes struct{ ID int64 }

type PersonRes struct{ ID int64 }

// TeamMembershipRes is the membership of a person in a team.
type TeamMembershipRes struct {
	PersonID int64
	TeamID   int64
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func (BookingRes) Name() string           { return "booking" }
func (r BookingRes) Key() string          { return itoa(r.ID) }
func (BookingRes) isResource()            {}
func (NewBookingRes) Name() string        { return "booking" }
func (NewBookingRes) Key() string         { return "new" }
func (NewBookingRes) isResource()         {}
func (GameRes) Name() string              { return "game" }
func (r GameRes) Key() string             { return itoa(r.ID) }
func (GameRes) isResource()               {}
func (TrainingRes) Name() string          { return "training" }
func (r TrainingRes) Key() string         { return itoa(r.ID) }
func (TrainingRes) isResource()           {}
func (FormationRes) Name() string         { return "formation" }
func (r FormationRes) Key() string        { return itoa(r.ID) }
func (FormationRes) isResource()          {}
func (RecordingSessionRes) Name() string  { return "recording_session" }
func (r RecordingSessionRes) Key() string { return itoa(r.ID) }
func (RecordingSessionRes) isResource()   {}
func (BookingSessionsRes) Name() string   { return "booking" }
func (r BookingSessionsRes) Key() string  { return itoa(r.BookingID) }
func (BookingSessionsRes) isResource()    {}
func (ClubRes) Name() string              { return "sports_club" }
func (r ClubRes) Key() string             { return r.ID }
func (ClubRes) isResource()               {}
func (NewClubRes) Name() string           { return "sports_club" }
func (r NewClubRes) Key() string          { return r.ID }
func (NewClubRes) isResource()            {}
func (NewTeamRes) Name() string           { return "sports_club" }
func (r NewTeamRes) Key() string          { return r.ClubID }
func (NewTeamRes) isResource()            {}
func (TeamRes) Name() string              { return "team" }
func (r TeamRes) Key() string             { return itoa(r.ID) }
func (TeamRes) isResource()               {}
func (PersonRes) Name() string            { return "person" }
func (r PersonRes) Key() string           { return itoa(r.ID) }
func (PersonRes) isResource()             {}
func (TeamMembershipRes) Name() string    { return "team" }
func (r TeamMembershipRes) Key() string   { return itoa(r.TeamID) }
func (TeamMembershipRes) isResource()     {}
