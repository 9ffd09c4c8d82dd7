package game

import "encoding/json"

type ActionType string

const (
	ActionPlayerJoin     ActionType = "PLAYER_JOIN"
	ActionUpdateAvatar   ActionType = "UPDATE_AVATAR"
	ActionUpdateSettings ActionType = "UPDATE_SETTINGS"
	ActionStartGame      ActionType = "START_GAME"
	ActionChooseLetter   ActionType = "CHOOSE_LETTER"
	ActionEndRound       ActionType = "END_ROUND"
	ActionNextRound      ActionType = "NEXT_ROUND"
	ActionOverrideScore  ActionType = "MANUAL_OVERRIDE_SCORE"
	ActionEndGame        ActionType = "END_GAME"
	ActionPlayAgain      ActionType = "PLAY_AGAIN"
	ActionPlayerLeave    ActionType = "PLAYER_LEAVE"
)

// Action is the envelope published on a room's actions topic.
type Action struct {
	Type    ActionType      `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewAction marshals payload into an action envelope. A nil payload
// produces an envelope with no payload field.
func NewAction(t ActionType, payload any) (Action, error) {
	act := Action{Type: t}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Action{}, err
		}
		act.Payload = raw
	}
	return act, nil
}

type AvatarPayload struct {
	PlayerID  string `json:"playerId"`
	AvatarURL string `json:"avatarUrl"`
}

// SettingsPayload overwrites lobby settings. Nil fields are left untouched.
type SettingsPayload struct {
	Rounds        *int     `json:"rounds,omitempty"`
	RoundDuration *int     `json:"roundDuration,omitempty"`
	Categories    []string `json:"categories,omitempty"`
}

type LetterPayload struct {
	Letter string `json:"letter"`
}

type EndRoundPayload struct {
	PlayerID string  `json:"playerId"`
	Answers  Answers `json:"answers"`
}

type OverridePayload struct {
	PlayerID string `json:"playerId"`
	Category string `json:"category"`
	IsValid  bool   `json:"isValid"`
	Score    int    `json:"score"`
}

type LeavePayload struct {
	PlayerID string `json:"playerId"`
}
