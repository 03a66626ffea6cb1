package game

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/duskfall/hollowvale/internal/models"
)

func actedKey(userID uuid.UUID, actionType ActionType) string {
	return userID.String() + ":" + string(actionType)
}

// actionRequiredRole is the actor role each night action is restricted to,
// spec §4.4's action table.
func actionRequiredRole(t ActionType) models.Role {
	switch t {
	case ActionNightWolfKill:
		return models.RoleWerewolf
	case ActionNightSeerCheck:
		return models.RoleSeer
	case ActionNightGuardProtect:
		return models.RoleGuard
	case ActionNightWitchSave, ActionNightWitchPoison:
		return models.RoleWitch
	}
	return ""
}

// handleNightAction validates and applies one of the five night.* actions,
// spec §4.4.
func (e *Engine) handleNightAction(g *Game, actor *models.Player, action SubmittedAction) ([]string, error) {
	if g.Phase != models.PhaseNight {
		return nil, newErr(ErrPhaseForbids, "not night")
	}
	if !actor.IsAlive {
		return nil, newErr(ErrPlayerDead, "")
	}
	if g.ActiveRole == nil {
		return nil, newErr(ErrPhaseForbids, "no active sub-role")
	}
	required := actionRequiredRole(action.Type)
	if required != actor.Role {
		return nil, newErr(ErrNotYourTurn, "wrong role for this action")
	}
	if *g.ActiveRole != required {
		return nil, newErr(ErrPhaseForbids, "not this sub-role's turn")
	}
	key := actedKey(actor.UserID, action.Type)
	if g.Night.Acted[key] {
		return nil, newErr(ErrAlreadyActed, string(action.Type))
	}

	var payloadType ActionType
	switch action.Payload.(type) {
	case NightWolfKillPayload:
		payloadType = ActionNightWolfKill
	case NightSeerCheckPayload:
		payloadType = ActionNightSeerCheck
	case NightGuardProtectPayload:
		payloadType = ActionNightGuardProtect
	case NightWitchSavePayload:
		payloadType = ActionNightWitchSave
	case NightWitchPoisonPayload:
		payloadType = ActionNightWitchPoison
	}
	if payloadType != action.Type {
		return nil, newErr(ErrTargetInvalid, "payload does not match actionType")
	}

	now := e.nowMs()
	var privateIDs []string

	switch payload := action.Payload.(type) {
	case NightWolfKillPayload:
		target := g.playerBySeat(payload.TargetSeat)
		if target == nil || !target.IsAlive || target.Role == models.RoleWerewolf {
			return nil, newErr(ErrTargetInvalid, "")
		}
		if _, seen := g.Night.WolfVotes[actor.UserID]; !seen {
			g.Night.WolfVoteOrder = append(g.Night.WolfVoteOrder, actor.UserID)
		}
		g.Night.WolfVotes[actor.UserID] = payload.TargetSeat

	case NightSeerCheckPayload:
		target := g.playerBySeat(payload.TargetSeat)
		if target == nil || !target.IsAlive || target.Seat == actor.Seat {
			return nil, newErr(ErrTargetInvalid, "")
		}
		seat := payload.TargetSeat
		g.Night.SeerTarget = &seat
		alignment := "好人"
		if target.Role == models.RoleWerewolf {
			alignment = "狼人"
		}
		g.pushHint(actor.UserID, fmt.Sprintf("你查验了 %d 号：%s", target.Seat, alignment), now)
		privateIDs = append(privateIDs, actor.UserID.String())

	case NightGuardProtectPayload:
		if payload.TargetSeat != 0 {
			target := g.playerBySeat(payload.TargetSeat)
			if target == nil || !target.IsAlive {
				return nil, newErr(ErrTargetInvalid, "")
			}
		}
		seat := payload.TargetSeat
		g.Night.GuardTarget = &seat

	case NightWitchSavePayload:
		if g.Night.WitchSaveUsed {
			return nil, newErr(ErrPotionUsed, "save")
		}
		g.Night.WitchSave = payload.Use

	case NightWitchPoisonPayload:
		if g.Night.WitchPoisonUsed {
			return nil, newErr(ErrPotionUsed, "poison")
		}
		if payload.TargetSeat != nil {
			target := g.playerBySeat(*payload.TargetSeat)
			if target == nil || !target.IsAlive || target.Seat == actor.Seat {
				return nil, newErr(ErrTargetInvalid, "")
			}
		}
		g.Night.WitchPoisonTarget = payload.TargetSeat

	default:
		return nil, newErr(ErrTargetInvalid, "payload does not match actionType")
	}

	g.Night.Acted[key] = true
	if e.nightSubRoleComplete(g) {
		ids := e.advanceNightSubRole(g, now, false)
		privateIDs = append(privateIDs, ids...)
	}
	return privateIDs, nil
}

// nightSubRoleComplete reports whether every living holder of the current
// sub-role has submitted everything that sub-role requires (witch needs
// both a save and a poison decision).
func (e *Engine) nightSubRoleComplete(g *Game) bool {
	if g.ActiveRole == nil {
		return true
	}
	holders := g.aliveHoldersOf(*g.ActiveRole)
	if len(holders) == 0 {
		return true
	}
	for _, h := range holders {
		switch *g.ActiveRole {
		case models.RoleWerewolf:
			if !g.Night.Acted[actedKey(h.UserID, ActionNightWolfKill)] {
				return false
			}
		case models.RoleSeer:
			if !g.Night.Acted[actedKey(h.UserID, ActionNightSeerCheck)] {
				return false
			}
		case models.RoleGuard:
			if !g.Night.Acted[actedKey(h.UserID, ActionNightGuardProtect)] {
				return false
			}
		case models.RoleWitch:
			if !g.Night.Acted[actedKey(h.UserID, ActionNightWitchSave)] || !g.Night.Acted[actedKey(h.UserID, ActionNightWitchPoison)] {
				return false
			}
		}
	}
	return true
}

var nightRoleAnnouncements = map[models.Role]string{
	models.RoleWerewolf: "狼人请睁眼",
	models.RoleSeer:     "狼人请闭眼，预言家请睁眼",
	models.RoleWitch:    "预言家请闭眼，女巫请睁眼",
	models.RoleGuard:    "女巫请闭眼，守卫请睁眼",
}

// nextNightRole returns the next sub-role after the current one in
// werewolf→seer→witch→guard order, skipping roles with no living holders,
// or nil when the cycle is exhausted.
func (g *Game) nextNightRole() *models.Role {
	if g.ActiveRole == nil {
		return nil
	}
	idx := -1
	for i, r := range models.NightRoles {
		if r == *g.ActiveRole {
			idx = i
			break
		}
	}
	for i := idx + 1; i < len(models.NightRoles); i++ {
		role := models.NightRoles[i]
		if len(g.aliveHoldersOf(role)) > 0 {
			return &role
		}
	}
	return nil
}

// advanceNightSubRole moves past the current sub-role: forceBots fills in
// any bot holders that have not yet acted (the deferred bot-on-tick path,
// spec §4.7/§9); it always applies regardless of forceBots when called
// after a human completion, since the completion check already excludes
// sub-roles with an un-acted bot.
func (e *Engine) advanceNightSubRole(g *Game, now int64, forceBots bool) []string {
	if forceBots {
		e.fillBotNightActions(g, now)
	}
	next := g.nextNightRole()
	if next == nil {
		return e.resolveNight(g, now)
	}
	g.ActiveRole = next
	g.appendLog(nightRoleAnnouncements[*next], now)
	g.setPhase(models.PhaseNight, now+int64(g.Timers.NightSeconds)*1000, now)
	return nil
}

// resolveNight runs the night-resolution algorithm of spec §4.4 once every
// sub-role has been exhausted.
func (e *Engine) resolveNight(g *Game, now int64) []string {
	victim := resolveWolfVictim(g)

	witchAlive := len(g.aliveHoldersOf(models.RoleWitch)) > 0
	saved := victim != nil && witchAlive && !g.Night.WitchSaveUsed && g.Night.WitchSave
	if saved {
		g.Night.WitchSaveUsed = true
	}

	eliminated := map[int]bool{}
	if victim != nil {
		guarded := g.Night.GuardTarget != nil && *g.Night.GuardTarget == *victim
		if !saved && !guarded {
			eliminated[*victim] = true
		}
	}
	if g.Night.WitchPoisonTarget != nil && !g.Night.WitchPoisonUsed {
		g.Night.WitchPoisonUsed = true
		eliminated[*g.Night.WitchPoisonTarget] = true
	}

	seats := make([]int, 0, len(eliminated))
	for seat := range eliminated {
		if p := g.playerBySeat(seat); p != nil && p.IsAlive {
			seats = append(seats, seat)
		}
	}
	sort.Ints(seats)

	var hunterSeat *int
	for _, seat := range seats {
		p := g.playerBySeat(seat)
		p.IsAlive = false
		if p.Role == models.RoleHunter && hunterSeat == nil {
			s := seat
			hunterSeat = &s
		}
	}

	if len(seats) == 0 {
		g.appendLog("天亮了，无人出局", now)
	} else {
		parts := make([]string, len(seats))
		for i, s := range seats {
			parts[i] = fmt.Sprintf("%d", s)
		}
		g.appendLog(fmt.Sprintf("天亮了，%s号出局", strings.Join(parts, "、")), now)
	}
	g.pushEvent(now, models.EventNightResult, map[string]interface{}{"eliminatedSeats": seats})
	for _, s := range seats {
		g.pushEvent(now, models.EventPlayerEliminated, map[string]interface{}{"seat": s, "reason": "night"})
	}

	g.ActiveRole = nil

	if hunterSeat != nil {
		g.Settlement.PendingHunterSeat = hunterSeat
		g.setPhase(models.PhaseSettlement, now+int64(settlementDurationSec)*1000, now)
		return nil
	}

	g.DayNo++
	if g.DayNo == 1 && len(g.Players) >= minPlayersForSheriff && g.SheriffSeat == nil {
		g.setPhase(models.PhaseSheriffElection, now+int64(electionDurationSec)*1000, now)
		return nil
	}
	e.enterDaySpeech(g, seats, now)
	return nil
}

// resolveWolfVictim picks the seat with the most wolf votes; a tie goes to
// the tied seat that received its first vote earliest, spec §4.4.
func resolveWolfVictim(g *Game) *int {
	counts := map[int]int{}
	var firstSeen []int
	for _, voterID := range g.Night.WolfVoteOrder {
		seat, ok := g.Night.WolfVotes[voterID]
		if !ok {
			continue
		}
		if counts[seat] == 0 {
			firstSeen = append(firstSeen, seat)
		}
		counts[seat]++
	}
	if len(firstSeen) == 0 {
		return nil
	}
	best := firstSeen[0]
	for _, seat := range firstSeen[1:] {
		if counts[seat] > counts[best] {
			best = seat
		}
	}
	return &best
}

// enterNight resets night scratch and starts a fresh night at the werewolf
// sub-role, spec §3's night-scratch-reset invariant.
func (e *Engine) enterNight(g *Game, now int64) {
	g.resetNightScratch()
	role := models.RoleWerewolf
	g.ActiveRole = &role
	g.ActiveSpeakerSeat = nil
	g.SpeakingQueue = nil
	g.setPhase(models.PhaseNight, now+int64(g.Timers.NightSeconds)*1000, now)
	g.appendLog("天黑请闭眼", now)
	g.appendLog("狼人请睁眼", now)
}
