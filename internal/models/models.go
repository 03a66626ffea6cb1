// Package models holds the durable and wire-level shapes shared by the
// store, game engine, and API layers: rooms, games, players, and the enums
// that make phase/role/action dispatch a closed set instead of open strings.
package models

import "github.com/google/uuid"

// ============================================================================
// ROOM MODELS
// ============================================================================

type RoomStatus string

const (
	RoomStatusWaiting RoomStatus = "waiting"
	RoomStatusPlaying RoomStatus = "playing"
	RoomStatusEnded   RoomStatus = "ended"
)

type Room struct {
	ID          uuid.UUID  `json:"id"`
	RoomNumber  string     `json:"room_number"`
	Name        string     `json:"name"`
	OwnerUserID uuid.UUID  `json:"owner_user_id"`
	Status      RoomStatus `json:"status"`
	MaxPlayers  int        `json:"max_players"`
	Members     []Seat     `json:"members"`
	RoleConfig  RoleConfig `json:"role_config"`
	Timers      Timers     `json:"timers"`
	GameID      *uuid.UUID `json:"game_id,omitempty"`
	CreatedAt   int64      `json:"created_at"`
}

// Seat is a fixed position [1..maxPlayers] in a room's lobby, empty until a
// player joins it.
type Seat struct {
	Seat     int        `json:"seat"`
	UserID   *uuid.UUID `json:"user_id,omitempty"`
	Nickname string     `json:"nickname,omitempty"`
	IsReady  bool       `json:"is_ready"`
	IsAlive  bool       `json:"is_alive"`
	IsBot    bool       `json:"is_bot"`
}

// RoleConfig is the special-role composition an owner picks when creating a
// room. Any seat not covered by a special role becomes a villager.
type RoleConfig struct {
	Werewolf int `json:"werewolf"`
	Seer     int `json:"seer"`
	Witch    int `json:"witch"`
	Hunter   int `json:"hunter"`
	Guard    int `json:"guard"`
}

func (rc RoleConfig) SpecialTotal() int {
	return rc.Werewolf + rc.Seer + rc.Witch + rc.Hunter + rc.Guard
}

// Validate enforces spec §4.2: at least one werewolf, and the special roles
// plus werewolves must fit inside the seated player count.
func (rc RoleConfig) Validate(playerCount int) bool {
	if rc.Werewolf < 1 {
		return false
	}
	if rc.Seer < 0 || rc.Witch < 0 || rc.Hunter < 0 || rc.Guard < 0 {
		return false
	}
	return rc.SpecialTotal() <= playerCount
}

// Timers holds the per-phase countdown budgets a room configures. Zero
// values fall back to the game engine's built-in defaults at game start.
type Timers struct {
	NightSeconds      int `json:"night_seconds"`
	DaySpeechSeconds  int `json:"day_speech_seconds"`
	DayVoteSeconds    int `json:"day_vote_seconds"`
	SettlementSeconds int `json:"settlement_seconds"`
}

// ============================================================================
// GAME MODELS
// ============================================================================

type Phase string

const (
	PhaseNight           Phase = "night"
	PhaseSheriffElection Phase = "sheriff_election"
	PhaseSheriffSpeech   Phase = "sheriff_speech"
	PhaseSheriffVote     Phase = "sheriff_vote"
	PhaseDaySpeech       Phase = "day_speech"
	PhaseDayVote         Phase = "day_vote"
	PhaseSettlement      Phase = "settlement"
	PhaseGameOver        Phase = "game_over"
)

type Role string

const (
	RoleWerewolf Role = "werewolf"
	RoleSeer     Role = "seer"
	RoleWitch    Role = "witch"
	RoleHunter   Role = "hunter"
	RoleGuard    Role = "guard"
	RoleVillager Role = "villager"
)

// NightRoles is the fixed cycling order of night sub-roles, spec §4.3.
var NightRoles = []Role{RoleWerewolf, RoleSeer, RoleWitch, RoleGuard}

type Winner string

const (
	WinnerVillagers  Winner = "villagers"
	WinnerWerewolves Winner = "werewolves"
)

// Player is a seat sealed with a role at game start; identity never changes
// once the game begins.
type Player struct {
	Seat     int       `json:"seat"`
	UserID   uuid.UUID `json:"user_id"`
	Nickname string    `json:"nickname"`
	Role     Role      `json:"role"`
	IsAlive  bool      `json:"is_alive"`
	IsBot    bool      `json:"is_bot"`
}

// LogEntry is one line of the public transcript, spec §3 publicLog.
type LogEntry struct {
	ID   int    `json:"id"`
	At   int64  `json:"at"`
	Text string `json:"text"`
}

// Hint is a private per-user log entry (seer results, end-game summary).
type Hint struct {
	ID   int    `json:"id"`
	At   int64  `json:"at"`
	Text string `json:"text"`
}

// Event is one append-only entry in the game's replay log, spec §6.6.
type Event struct {
	T       int64       `json:"t"`
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}

type EventType string

const (
	EventPhaseChanged     EventType = "phase_changed"
	EventChatMessage      EventType = "chat_message"
	EventActionSubmitted  EventType = "action_submitted"
	EventVoteResult       EventType = "vote_result"
	EventNightResult      EventType = "night_result"
	EventPlayerEliminated EventType = "player_eliminated"
	EventGameResult       EventType = "game_result"
	EventSpeakerChanged   EventType = "speaker_changed"
	EventSheriffElected   EventType = "sheriff_elected"
)

// ChatChannel is a closed set of chat destinations, spec §4.1 appendChat.
type ChatChannel string

const (
	ChatPublic ChatChannel = "public"
	ChatWolf   ChatChannel = "wolf"
)

type ChatMessage struct {
	ID       int         `json:"id"`
	At       int64       `json:"at"`
	UserID   uuid.UUID   `json:"user_id"`
	Nickname string      `json:"nickname"`
	Channel  ChatChannel `json:"channel"`
	Text     string      `json:"text"`
}
