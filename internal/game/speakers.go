package game

import "github.com/duskfall/hollowvale/internal/models"

func indexOfSeat(seats []int, seat int) int {
	for i, s := range seats {
		if s == seat {
			return i
		}
	}
	return -1
}

// buildDaySpeechQueue implements spec §4.5: the queue starts at the first
// living seat strictly greater than the lowest seat eliminated the
// preceding night, wrapping back to the smallest alive seat if none is
// greater.
func buildDaySpeechQueue(aliveSeats []int, eliminatedSeats []int) []int {
	if len(aliveSeats) == 0 {
		return nil
	}
	start := aliveSeats[0]
	if len(eliminatedSeats) > 0 {
		firstElim := eliminatedSeats[0]
		found := false
		for _, s := range aliveSeats {
			if s > firstElim {
				start = s
				found = true
				break
			}
		}
		if !found {
			start = aliveSeats[0]
		}
	}
	idx := indexOfSeat(aliveSeats, start)
	queue := make([]int, 0, len(aliveSeats))
	queue = append(queue, aliveSeats[idx:]...)
	queue = append(queue, aliveSeats[:idx]...)
	return queue
}

// enterDaySpeech starts the speaking rotation over living players, spec
// §4.5.
func (e *Engine) enterDaySpeech(g *Game, eliminatedSeats []int, now int64) {
	g.ActiveRole = nil
	queue := buildDaySpeechQueue(g.aliveSeatsAsc(), eliminatedSeats)
	g.SpeakingQueue = queue
	if len(queue) > 0 {
		seat := queue[0]
		g.ActiveSpeakerSeat = &seat
	} else {
		g.ActiveSpeakerSeat = nil
	}
	g.setPhase(models.PhaseDaySpeech, now+int64(g.Timers.DaySpeechSeconds)*1000, now)
	g.pushEvent(now, models.EventSpeakerChanged, map[string]interface{}{"seat": g.ActiveSpeakerSeat})
}

// advanceDaySpeaker moves to the next seat in the queue, or to day_vote
// after the last speaker, spec §4.3/§4.5.
func (e *Engine) advanceDaySpeaker(g *Game, now int64) bool {
	if len(g.SpeakingQueue) == 0 || g.ActiveSpeakerSeat == nil {
		e.enterDayVote(g, now)
		return true
	}
	idx := indexOfSeat(g.SpeakingQueue, *g.ActiveSpeakerSeat)
	if idx == -1 || idx == len(g.SpeakingQueue)-1 {
		e.enterDayVote(g, now)
		return true
	}
	next := g.SpeakingQueue[idx+1]
	g.ActiveSpeakerSeat = &next
	g.setPhase(models.PhaseDaySpeech, now+int64(g.Timers.DaySpeechSeconds)*1000, now)
	g.pushEvent(now, models.EventSpeakerChanged, map[string]interface{}{"seat": next})
	return true
}

// handleNextSpeaker implements the explicit-advance half of spec §4.5:
// "actor may invoke game.nextSpeaker if currently active speaker".
func (e *Engine) handleNextSpeaker(g *Game, actor *models.Player) ([]string, error) {
	if g.Phase != models.PhaseDaySpeech && g.Phase != models.PhaseSheriffSpeech {
		return nil, newErr(ErrPhaseForbids, "not a speech phase")
	}
	if g.ActiveSpeakerSeat == nil || actor.Seat != *g.ActiveSpeakerSeat {
		return nil, newErr(ErrNotYourTurn, "")
	}
	now := e.nowMs()
	if g.Phase == models.PhaseDaySpeech {
		e.advanceDaySpeaker(g, now)
	} else {
		e.advanceSheriffSpeaker(g, now)
	}
	return nil, nil
}
