package game

import (
	"context"

	"github.com/google/uuid"
	"github.com/duskfall/hollowvale/internal/models"
)

// computeWinner implements spec §4.6: wolves win at parity or better,
// villagers win once no wolf remains.
func computeWinner(players []models.Player) *models.Winner {
	aliveWolves, alive := 0, 0
	for _, p := range players {
		if !p.IsAlive {
			continue
		}
		alive++
		if p.Role == models.RoleWerewolf {
			aliveWolves++
		}
	}
	others := alive - aliveWolves

	if aliveWolves == 0 {
		w := models.WinnerVillagers
		return &w
	}
	if aliveWolves >= others {
		w := models.WinnerWerewolves
		return &w
	}
	return nil
}

func winnerLogText(w models.Winner) string {
	if w == models.WinnerWerewolves {
		return "狼人胜利"
	}
	return "好人胜利"
}

// evaluateWinIfNeeded is run after every mutation that can kill a player,
// spec §4.6/§8 testable property 3.
func (e *Engine) evaluateWinIfNeeded(g *Game) {
	if g.Phase == models.PhaseGameOver {
		return
	}
	winner := computeWinner(g.Players)
	if winner == nil {
		return
	}

	now := e.nowMs()
	g.Winner = winner
	g.setPhase(models.PhaseGameOver, now+10_000, now)
	g.appendLog(winnerLogText(*winner), now)

	reveal := make([]map[string]interface{}, 0, len(g.Players))
	for _, p := range g.Players {
		reveal = append(reveal, map[string]interface{}{
			"seat": p.Seat, "role": p.Role, "nickname": p.Nickname, "isAlive": p.IsAlive,
		})
	}
	g.pushEvent(now, models.EventGameResult, map[string]interface{}{
		"winner": *winner,
		"roles":  reveal,
	})
}

// finalizeGame persists the replay, retires the game from active-games,
// marks the room ended, and sends every player a game:private message
// carrying the replay id (no entry is added to HintsByUserID), spec §4.6's
// "on winner" effects.
func (e *Engine) finalizeGame(ctx context.Context, g *Game) error {
	ownerIDs := make([]uuid.UUID, 0, len(g.Players))
	for _, p := range g.Players {
		ownerIDs = append(ownerIDs, p.UserID)
	}
	summary := winnerLogText(models.WinnerVillagers)
	if g.Winner != nil {
		summary = winnerLogText(*g.Winner)
	}

	replay := Replay{
		GameID:        g.GameID,
		RoomID:        g.RoomID,
		RoomName:      g.RoomName,
		OwnerUserIDs:  ownerIDs,
		CreatedAt:     g.StartedAt,
		DurationMs:    e.nowMs() - g.StartedAt,
		ResultSummary: summary,
		Events:        g.Events,
	}
	replayID, err := e.rs.SaveReplay(ctx, replay)
	if err != nil {
		return newErr(ErrDBUnavailable, err.Error())
	}

	if err := e.ss.SRem(ctx, activeGamesSet, g.GameID.String()); err != nil {
		return newErr(ErrSnapshotUnavailable, err.Error())
	}
	if err := e.ss.Del(ctx, gameKey(g.GameID)); err != nil {
		return newErr(ErrSnapshotUnavailable, err.Error())
	}
	if err := e.rr.MarkRoomEnded(ctx, g.RoomID); err != nil {
		return newErr(ErrDBUnavailable, err.Error())
	}

	for _, p := range g.Players {
		e.bc.EmitUser(p.UserID, "game:private", map[string]interface{}{"replayId": replayID})
	}
	return nil
}
