package game

import (
	"github.com/google/uuid"
	"github.com/duskfall/hollowvale/internal/models"
)

// Game is the complete runtime state of one in-progress match: the opaque
// blob that round-trips through the Snapshot Store between operations. It
// carries no collaborator references — everything needed to resume a
// transition lives in this struct, per spec §9's "no process-wide
// singleton" note.
type Game struct {
	GameID    uuid.UUID `json:"gameId"`
	RoomID    uuid.UUID `json:"roomId"`
	RoomName  string    `json:"roomName"`
	StartedAt int64     `json:"startedAt"`

	Phase       models.Phase `json:"phase"`
	DayNo       int          `json:"dayNo"`
	PhaseEndsAt int64        `json:"phaseEndsAt"`

	Players    []models.Player  `json:"players"`
	RoleConfig models.RoleConfig `json:"roleConfig"`
	Timers     models.Timers    `json:"timers"`

	PublicLog     []models.LogEntry           `json:"publicLog"`
	HintsByUserID map[uuid.UUID][]models.Hint `json:"hintsByUserId"`

	Night      NightScratch      `json:"night"`
	Day        DayScratch        `json:"day"`
	Settlement SettlementScratch `json:"settlement"`
	Election   ElectionScratch   `json:"election"`

	ActiveRole        *models.Role `json:"activeRole"`
	ActiveSpeakerSeat *int         `json:"activeSpeakerSeat"`
	SpeakingQueue     []int        `json:"speakingQueue"`

	SheriffSeat *int `json:"sheriffSeat"`

	Events []models.Event `json:"events"`
	Winner *models.Winner `json:"winner"`
}

// NightScratch holds the per-night collection buffers. WitchSaveUsed and
// WitchPoisonUsed are the only two fields that persist across nights; every
// other field is reset at each `night` entry (spec §3).
type NightScratch struct {
	WolfVotes         map[uuid.UUID]int `json:"wolfVotes"`
	WolfVoteOrder     []uuid.UUID       `json:"wolfVoteOrder"`
	SeerTarget        *int              `json:"seerTarget,omitempty"`
	GuardTarget       *int              `json:"guardTarget,omitempty"`
	WitchSave         bool              `json:"witchSave"`
	WitchPoisonTarget *int              `json:"witchPoisonTarget,omitempty"`
	WitchSaveUsed     bool              `json:"witchSaveUsed"`
	WitchPoisonUsed   bool              `json:"witchPoisonUsed"`

	// Acted tracks "<userId>:<actionType>" keys already submitted this
	// sub-role, so a second submission of the same action raises
	// ALREADY_ACTED (witch has two distinct actions per sub-role).
	Acted map[string]bool `json:"acted"`
}

// DayScratch holds the day-vote ballot box. Votes maps a voter's userId to
// their chosen seat; a present key with a nil value records an explicit
// abstain, distinguishing it from "has not voted yet".
type DayScratch struct {
	Votes      map[uuid.UUID]*int `json:"votes"`
	Stage      int                `json:"stage"`
	Candidates []int              `json:"candidates,omitempty"`
}

type SettlementScratch struct {
	PendingHunterSeat *int `json:"pendingHunterSeat,omitempty"`
}

type ElectionScratch struct {
	Candidates []int              `json:"candidates"`
	Votes      map[uuid.UUID]*int `json:"votes"`
	Stage      int                `json:"stage"`
}

func newNightScratch() NightScratch {
	return NightScratch{
		WolfVotes: map[uuid.UUID]int{},
		Acted:     map[string]bool{},
	}
}

func newDayScratch() DayScratch {
	return DayScratch{Votes: map[uuid.UUID]*int{}, Stage: 1}
}

func newElectionScratch() ElectionScratch {
	return ElectionScratch{Votes: map[uuid.UUID]*int{}, Stage: 1}
}

// resetNightScratch clears everything except the two "used" potion flags,
// per spec §3's night-scratch invariant.
func (g *Game) resetNightScratch() {
	saveUsed := g.Night.WitchSaveUsed
	poisonUsed := g.Night.WitchPoisonUsed
	g.Night = newNightScratch()
	g.Night.WitchSaveUsed = saveUsed
	g.Night.WitchPoisonUsed = poisonUsed
}

func (g *Game) playerBySeat(seat int) *models.Player {
	for i := range g.Players {
		if g.Players[i].Seat == seat {
			return &g.Players[i]
		}
	}
	return nil
}

func (g *Game) playerByUserID(userID uuid.UUID) *models.Player {
	for i := range g.Players {
		if g.Players[i].UserID == userID {
			return &g.Players[i]
		}
	}
	return nil
}

func (g *Game) aliveSeatsAsc() []int {
	seats := make([]int, 0, len(g.Players))
	for _, p := range g.Players {
		if p.IsAlive {
			seats = append(seats, p.Seat)
		}
	}
	return seats
}

func (g *Game) aliveHoldersOf(role models.Role) []models.Player {
	var out []models.Player
	for _, p := range g.Players {
		if p.IsAlive && p.Role == role {
			out = append(out, p)
		}
	}
	return out
}

func (g *Game) countAlive() int {
	n := 0
	for _, p := range g.Players {
		if p.IsAlive {
			n++
		}
	}
	return n
}

func (g *Game) appendLog(text string, nowMs int64) {
	g.PublicLog = append(g.PublicLog, models.LogEntry{
		ID:   len(g.PublicLog) + 1,
		At:   nowMs,
		Text: text,
	})
	if len(g.PublicLog) > 60 {
		g.PublicLog = g.PublicLog[len(g.PublicLog)-60:]
	}
}

func (g *Game) pushHint(userID uuid.UUID, text string, nowMs int64) {
	if g.HintsByUserID == nil {
		g.HintsByUserID = map[uuid.UUID][]models.Hint{}
	}
	hints := g.HintsByUserID[userID]
	hints = append(hints, models.Hint{ID: len(hints) + 1, At: nowMs, Text: text})
	if len(hints) > 60 {
		hints = hints[len(hints)-60:]
	}
	g.HintsByUserID[userID] = hints
}

func (g *Game) pushEvent(nowMs int64, eventType models.EventType, payload interface{}) {
	g.Events = append(g.Events, models.Event{
		T:       nowMs - g.StartedAt,
		Type:    eventType,
		Payload: payload,
	})
}

// setPhase is the single place phaseEndsAt and phase move together, per
// spec §3's "strictly monotonically set at each startPhase entry" invariant.
func (g *Game) setPhase(phase models.Phase, endsAt int64, nowMs int64) {
	g.Phase = phase
	g.PhaseEndsAt = endsAt
	g.pushEvent(nowMs, models.EventPhaseChanged, map[string]interface{}{
		"phase": phase,
		"dayNo": g.DayNo,
	})
}
