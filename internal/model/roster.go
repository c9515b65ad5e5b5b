package model

import "github.com/iliyamo/sports-facility-booking/internal/apperr"

// FormationPlayer mirrors formation_player. The surrogate id allows the same
// player to appear more than once in a formation across substitutions.
type FormationPlayer struct {
	ID          int64 `json:"id"`
	FormationID int64 `json:"formation_id"`
	PlayerID    int64 `json:"player_id"`
	Starting    bool  `json:"starting"`
	EntryMinute *int  `json:"entry_minute,omitempty"`
	ExitMinute  *int  `json:"exit_minute,omitempty"`
}

// FormationPlayerTag links a player to an RFID tag within one formation.
type FormationPlayerTag struct {
	FormationID int64 `json:"formation_id"`
	PlayerID    int64 `json:"player_id"`
	RFIDTagID   int64 `json:"rfid_tag_id"`
}

// TrainingPlayer mirrors training_player.
type TrainingPlayer struct {
	ID         int64 `json:"id"`
	TrainingID int64 `json:"training_id"`
	PlayerID   int64 `json:"player_id"`
}

// TrainingPlayerTag links a player to an RFID tag within one training.
type TrainingPlayerTag struct {
	TrainingID int64 `json:"training_id"`
	PlayerID   int64 `json:"player_id"`
	RFIDTagID  int64 `json:"rfid_tag_id"`
}

// FormationPlayerInput adds one player with its tags to a formation.
type FormationPlayerInput struct {
	PlayerID    int64   `json:"player_id"`
	RFIDTagIDs  []int64 `json:"rfid_tag_ids"`
	Starting    bool    `json:"starting"`
	EntryMinute *int    `json:"entry_minute,omitempty"`
	ExitMinute  *int    `json:"exit_minute,omitempty"`
}

func (in FormationPlayerInput) Validate() error {
	if in.PlayerID <= 0 {
		return apperr.Validation("player_id is required")
	}
	if in.EntryMinute != nil && *in.EntryMinute < 0 || in.ExitMinute != nil && *in.ExitMinute < 0 {
		return apperr.Validation("minutes must not be negative")
	}
	if in.EntryMinute != nil && in.ExitMinute != nil && *in.EntryMinute >= *in.ExitMinute {
		return apperr.Validation("the entry minute must be before the exit minute")
	}
	return nil
}

// TrainingPlayerInput adds one player with its tags to a training.
type TrainingPlayerInput struct {
	PlayerID   int64   `json:"player_id"`
	RFIDTagIDs []int64 `json:"rfid_tag_ids"`
}

func (in TrainingPlayerInput) Validate() error {
	if in.PlayerID <= 0 {
		return apperr.Validation("player_id is required")
	}
	return nil
}

// RosterEntry is one player row of a formation or training with the RFID
// tags the player carries there. ParentID is the formation or training id.
type RosterEntry struct {
	ID         int64   `json:"id"`
	ParentID   int64   `json:"parent_id"`
	PlayerID   int64   `json:"player_id"`
	RFIDTagIDs []int64 `json:"rfid_tag_ids"`
}
