package model

import (
	"strings"
	"time"

	"github.com/iliyamo/sports-facility-booking/internal/apperr"
)

// Claims is the already-verified identity of the caller.
type Claims struct {
	SubjectID int64 `json:"sub"`
}

// Person is the root identity. It may or may not have a login (User).
type Person struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
}

// PersonInput carries the writable fields of a person.
type PersonInput struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
}

func (in PersonInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Surname) == "" {
		return apperr.Validation("name and surname are required")
	}
	return nil
}

// SportsClub is keyed by its VAT number.
type SportsClub struct {
	ID      string  `json:"vat_number"`
	Name    string  `json:"name"`
	Address *string `json:"address,omitempty"`
	City    *string `json:"city,omitempty"`
	Phone   *string `json:"phone,omitempty"`
}

func (c SportsClub) Validate() error {
	if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.Name) == "" {
		return apperr.Validation("vat_number and name are required")
	}
	return nil
}

// Team belongs to exactly one club.
type Team struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	ClubID string `json:"club_id"`
	Sport  string `json:"sport"`
}

func (t Team) Validate() error {
	if strings.TrimSpace(t.Name) == "" || strings.TrimSpace(t.ClubID) == "" || strings.TrimSpace(t.Sport) == "" {
		return apperr.Validation("name, club_id and sport are required")
	}
	return nil
}

// TenureState is the lifecycle of a role edge.
type TenureState int

const (
	TenureActive TenureState = iota
	TenureEnded
)

// Tenure is the temporal validity of a role edge. An edge is active while
// Until is unset; leaving stamps Until instead of deleting the row.
type Tenure struct {
	Since time.Time  `json:"since_date"`
	Until *time.Time `json:"until_date,omitempty"`
}

func (t Tenure) State() TenureState {
	if t.Until == nil {
		return TenureActive
	}
	return TenureEnded
}

func (t Tenure) Active() bool { return t.State() == TenureActive }

// PlayerTeam is a player membership edge.
type PlayerTeam struct {
	ID       int64 `json:"id"`
	PlayerID int64 `json:"player_id"`
	TeamID   int64 `json:"team_id"`
	Tenure
}

// CoachTeam is a coach membership edge.
type CoachTeam struct {
	ID      int64 `json:"id"`
	CoachID int64 `json:"coach_id"`
	TeamID  int64 `json:"team_id"`
	Tenure
}

// UserClub is a club responsibility edge.
type UserClub struct {
	UserID int64  `json:"user_id"`
	ClubID string `json:"club_id"`
	Tenure
}

// TeamRole selects which membership table a join or leave targets.
type TeamRole uint8

const (
	RolePlayer TeamRole = 0
	RoleCoach  TeamRole = 1
)

// JoinInfo is the payload of a join-team request.
type JoinInfo struct {
	Role  TeamRole   `json:"role"`
	Since time.Time  `json:"since_date"`
	Until *time.Time `json:"until_date,omitempty"`
}

func (in JoinInfo) Validate() error {
	if in.Role != RolePlayer && in.Role != RoleCoach {
		return apperr.Validation("invalid role")
	}
	if in.Since.IsZero() {
		return apperr.Validation("since_date is required")
	}
	if in.Until != nil && !in.Since.Before(*in.Until) {
		return apperr.Validation("the since date must be before the until date")
	}
	return nil
}

// LeaveInfo is the payload of a leave-team request.
type LeaveInfo struct {
	Role  TeamRole  `json:"role"`
	Until time.Time `json:"until_date"`
}

func (in LeaveInfo) Validate() error {
	if in.Role != RolePlayer && in.Role != RoleCoach {
		return apperr.Validation("invalid role")
	}
	return nil
}

// CoachProfile carries the coach-specific profile data.
type CoachProfile struct {
	Role string `json:"role"`
}

// NewProfile lists the profiles to attach to a person.
type NewProfile struct {
	Administrator bool          `json:"administrator"`
	Coach         *CoachProfile `json:"coach,omitempty"`
	Fan           bool          `json:"fan"`
	Player        bool          `json:"player"`
}

func (p NewProfile) Validate() error {
	if !p.Administrator && p.Coach == nil && !p.Fan && !p.Player {
		return apperr.Validation("at least one profile is required")
	}
	if p.Coach != nil && strings.TrimSpace(p.Coach.Role) == "" {
		return apperr.Validation("coach role is required")
	}
	return nil
}
