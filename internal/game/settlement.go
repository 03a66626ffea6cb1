package game

import (
	"fmt"

	"github.com/duskfall/hollowvale/internal/models"
)

// handleHunterShoot implements settlement.hunterShoot, spec §4.4.
func (e *Engine) handleHunterShoot(g *Game, actor *models.Player, action SubmittedAction) ([]string, error) {
	if g.Phase != models.PhaseSettlement || g.Settlement.PendingHunterSeat == nil {
		return nil, newErr(ErrPhaseForbids, "not settlement")
	}
	hunter := g.playerBySeat(*g.Settlement.PendingHunterSeat)
	if hunter == nil || hunter.UserID != actor.UserID {
		return nil, newErr(ErrNotYourTurn, "")
	}
	payload, ok := action.Payload.(SettlementHunterShootPayload)
	if !ok {
		return nil, newErr(ErrTargetInvalid, "")
	}

	now := e.nowMs()
	if payload.TargetSeat != nil {
		target := g.playerBySeat(*payload.TargetSeat)
		if target == nil || !target.IsAlive {
			return nil, newErr(ErrTargetInvalid, "")
		}
		target.IsAlive = false
		g.appendLog(fmt.Sprintf("猎人开枪带走%d号", *payload.TargetSeat), now)
		g.pushEvent(now, models.EventPlayerEliminated, map[string]interface{}{"seat": *payload.TargetSeat, "reason": "hunter"})
	}

	g.Settlement.PendingHunterSeat = nil
	e.advanceAfterSettlement(g, now)
	return nil, nil
}

// resolveSettlementTimeout handles a settlement phase whose hunter never
// shot before the deadline: no shot is taken, play continues.
func (e *Engine) resolveSettlementTimeout(g *Game, now int64) {
	g.Settlement.PendingHunterSeat = nil
	e.advanceAfterSettlement(g, now)
}

// advanceAfterSettlement implements spec §4.4's "next phase is night when
// dayNo > 0, else day_speech".
func (e *Engine) advanceAfterSettlement(g *Game, now int64) {
	if g.DayNo > 0 {
		e.enterNight(g, now)
		return
	}
	e.enterDaySpeech(g, nil, now)
}
