package game

import (
	"sort"

	"github.com/google/uuid"
	"github.com/duskfall/hollowvale/internal/models"
)

// GamePublic is the payload every observer receives, spec §6.4.
type GamePublic struct {
	GameID            uuid.UUID          `json:"gameId"`
	RoomID            uuid.UUID          `json:"roomId"`
	Phase             models.Phase       `json:"phase"`
	DayNo             int                `json:"dayNo"`
	ServerNow         int64              `json:"serverNow"`
	PhaseEndsAt       int64              `json:"phaseEndsAt"`
	Players           []PublicPlayer     `json:"players"`
	PublicLog         []models.LogEntry  `json:"publicLog"`
	ActiveRole        *models.Role       `json:"activeRole"`
	ActiveSpeakerSeat *int               `json:"activeSpeakerSeat"`
	SpeakingQueue     []int              `json:"speakingQueue"`
	SheriffSeat       *int               `json:"sheriffSeat"`
}

type PublicPlayer struct {
	Seat    int        `json:"seat"`
	User    PublicUser `json:"user"`
	IsAlive bool       `json:"isAlive"`
}

type PublicUser struct {
	ID       uuid.UUID `json:"id"`
	Nickname string    `json:"nickname"`
}

// GamePrivate is the payload a single player receives, spec §6.5.
type GamePrivate struct {
	Role               models.Role      `json:"role"`
	Seat               int              `json:"seat"`
	Hints              []models.Hint    `json:"hints"`
	Actions            PrivateActions   `json:"actions"`
	SelectedTargetSeat *int             `json:"selectedTargetSeat,omitempty"`
	WitchSaveDecision  *bool            `json:"witchSaveDecision,omitempty"`
	WitchInfo          *WitchInfo       `json:"witchInfo,omitempty"`
	WolfTeam           []WolfTeamMember `json:"wolfTeam,omitempty"`
}

type PrivateActions struct {
	HunterShoot bool `json:"hunterShoot"`
}

type WitchInfo struct {
	NightVictimSeat *int `json:"nightVictimSeat,omitempty"`
	SaveUsed        bool `json:"saveUsed"`
	PoisonUsed      bool `json:"poisonUsed"`
}

type WolfTeamMember struct {
	Seat     int    `json:"seat"`
	Nickname string `json:"nickname"`
	IsAlive  bool   `json:"isAlive"`
}

// VoiceTurnInfo backs getVoiceTurnInfo, spec §6.7.
type VoiceTurnInfo struct {
	GameID              uuid.UUID    `json:"gameId"`
	Phase               models.Phase `json:"phase"`
	IsSpeechPhase       bool         `json:"isSpeechPhase"`
	ActiveSpeakerSeat   *int         `json:"activeSpeakerSeat"`
	ActiveSpeakerUserID *uuid.UUID   `json:"activeSpeakerUserId,omitempty"`
	Seat                int          `json:"seat"`
	UserID              uuid.UUID    `json:"userId"`
	IsCurrentSpeaker    bool         `json:"isCurrentSpeaker"`
}

func lastHints(hints []models.Hint, n int) []models.Hint {
	if len(hints) <= n {
		return hints
	}
	return hints[len(hints)-n:]
}

func projectPublic(g *Game, nowMs int64) GamePublic {
	players := make([]PublicPlayer, 0, len(g.Players))
	for _, p := range g.Players {
		players = append(players, PublicPlayer{
			Seat:    p.Seat,
			User:    PublicUser{ID: p.UserID, Nickname: p.Nickname},
			IsAlive: p.IsAlive,
		})
	}
	sort.Slice(players, func(i, j int) bool { return players[i].Seat < players[j].Seat })

	return GamePublic{
		GameID:            g.GameID,
		RoomID:            g.RoomID,
		Phase:             g.Phase,
		DayNo:             g.DayNo,
		ServerNow:         nowMs,
		PhaseEndsAt:       g.PhaseEndsAt,
		Players:           players,
		PublicLog:         g.PublicLog,
		ActiveRole:        g.ActiveRole,
		ActiveSpeakerSeat: g.ActiveSpeakerSeat,
		SpeakingQueue:     g.SpeakingQueue,
		SheriffSeat:       g.SheriffSeat,
	}
}

func projectPrivate(g *Game, player *models.Player) GamePrivate {
	priv := GamePrivate{
		Role:  player.Role,
		Seat:  player.Seat,
		Hints: lastHints(g.HintsByUserID[player.UserID], 60),
	}
	priv.Actions.HunterShoot = player.Role == models.RoleHunter &&
		g.Phase == models.PhaseSettlement &&
		g.Settlement.PendingHunterSeat != nil &&
		*g.Settlement.PendingHunterSeat == player.Seat

	switch player.Role {
	case models.RoleWerewolf:
		if seat, ok := g.Night.WolfVotes[player.UserID]; ok {
			s := seat
			priv.SelectedTargetSeat = &s
		}
		for _, p := range g.Players {
			if p.Role == models.RoleWerewolf {
				priv.WolfTeam = append(priv.WolfTeam, WolfTeamMember{Seat: p.Seat, Nickname: p.Nickname, IsAlive: p.IsAlive})
			}
		}
	case models.RoleSeer:
		priv.SelectedTargetSeat = g.Night.SeerTarget
	case models.RoleGuard:
		priv.SelectedTargetSeat = g.Night.GuardTarget
	case models.RoleWitch:
		save := g.Night.WitchSave
		priv.WitchSaveDecision = &save
		var victim *int
		if g.Phase == models.PhaseNight {
			victim = resolveWolfVictim(g)
		}
		priv.WitchInfo = &WitchInfo{NightVictimSeat: victim, SaveUsed: g.Night.WitchSaveUsed, PoisonUsed: g.Night.WitchPoisonUsed}
	}

	return priv
}
