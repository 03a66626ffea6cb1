package game

// ActionType is the closed set of player/bot mutations the engine accepts,
// spec §9's "tagged union whose arms carry typed payloads". Dispatch keys
// off (phase, ActionType); see submitAction.
type ActionType string

const (
	ActionNightWolfKill         ActionType = "night.wolfKill"
	ActionNightSeerCheck        ActionType = "night.seerCheck"
	ActionNightGuardProtect     ActionType = "night.guardProtect"
	ActionNightWitchSave        ActionType = "night.witch.save"
	ActionNightWitchPoison      ActionType = "night.witch.poison"
	ActionSheriffEnroll         ActionType = "sheriff.enroll"
	ActionSheriffQuit           ActionType = "sheriff.quit"
	ActionSheriffVote           ActionType = "sheriff.vote"
	ActionGameNextSpeaker       ActionType = "game.nextSpeaker"
	ActionDayVote               ActionType = "day.vote"
	ActionSettlementHunterShoot ActionType = "settlement.hunterShoot"
)

// Each action carries a typed payload struct; submitAction type-asserts the
// Payload against the variant its ActionType expects and rejects a mismatch
// as TARGET_INVALID. The empty-payload actions (sheriff.enroll, sheriff.quit,
// game.nextSpeaker) do not inspect Payload.

type NightWolfKillPayload struct {
	TargetSeat int `json:"targetSeat"`
}

type NightSeerCheckPayload struct {
	TargetSeat int `json:"targetSeat"`
}

// NightGuardProtectPayload's TargetSeat of 0 means "no-op", per spec §4.4.
type NightGuardProtectPayload struct {
	TargetSeat int `json:"targetSeat"`
}

type NightWitchSavePayload struct {
	Use bool `json:"use"`
}

// NightWitchPoisonPayload's nil TargetSeat means "no poison this night".
type NightWitchPoisonPayload struct {
	TargetSeat *int `json:"targetSeat,omitempty"`
}

type SheriffEnrollPayload struct{}

type SheriffQuitPayload struct{}

// SheriffVotePayload / DayVotePayload's nil TargetSeat is an explicit
// abstain.
type SheriffVotePayload struct {
	TargetSeat *int `json:"targetSeat,omitempty"`
}

type GameNextSpeakerPayload struct{}

type DayVotePayload struct {
	TargetSeat *int `json:"targetSeat,omitempty"`
}

type SettlementHunterShootPayload struct {
	TargetSeat *int `json:"targetSeat,omitempty"`
}

// SubmittedAction is the envelope passed to submitAction: a discriminant
// plus its variant payload.
type SubmittedAction struct {
	Type    ActionType
	Payload interface{}
}

// SubmitResult is the outcome of a successful submitAction or
// advanceGameOnTimeout call: the fields the Request Adapter / Timer Pump
// need to broadcast a diff, spec §4.1/§4.8.
type SubmitResult struct {
	GamePublic     GamePublic
	PrivateUserIDs []string
	RoomEnded      bool
}
