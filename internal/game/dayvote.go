package game

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/duskfall/hollowvale/internal/models"
)

// handleDayVote implements day.vote, spec §4.4.
func (e *Engine) handleDayVote(g *Game, actor *models.Player, action SubmittedAction) ([]string, error) {
	if g.Phase != models.PhaseDayVote {
		return nil, newErr(ErrPhaseForbids, "not day_vote")
	}
	if !actor.IsAlive {
		return nil, newErr(ErrPlayerDead, "")
	}
	if _, voted := g.Day.Votes[actor.UserID]; voted {
		return nil, newErr(ErrAlreadyActed, "")
	}
	payload, ok := action.Payload.(DayVotePayload)
	if !ok {
		return nil, newErr(ErrTargetInvalid, "")
	}
	if payload.TargetSeat != nil {
		target := g.playerBySeat(*payload.TargetSeat)
		if target == nil || !target.IsAlive {
			return nil, newErr(ErrTargetInvalid, "")
		}
		if g.Day.Stage == 2 && !containsSeat(g.Day.Candidates, *payload.TargetSeat) {
			return nil, newErr(ErrTargetInvalid, "")
		}
	}
	g.Day.Votes[actor.UserID] = payload.TargetSeat

	if e.allAliveVotedDay(g) {
		e.resolveDayVote(g, e.nowMs())
	}
	return nil, nil
}

func (e *Engine) allAliveVotedDay(g *Game) bool {
	return len(g.Day.Votes) >= g.countAlive()
}

// enterDayVote starts a fresh stage-1 ballot, spec §4.3's day_speech →
// day_vote transition.
func (e *Engine) enterDayVote(g *Game, now int64) {
	g.Day = newDayScratch()
	e.runDayVoteRound(g, now)
}

// runoffDayVote restarts the ballot restricted to the tied seats, spec
// §4.4's single stage-2 runoff.
func (e *Engine) runoffDayVote(g *Game, tied []int, now int64) {
	g.Day.Stage = 2
	g.Day.Candidates = tied
	g.Day.Votes = map[uuid.UUID]*int{}
	e.runDayVoteRound(g, now)
}

// runDayVoteRound fills in bot votes immediately (day_vote bots are not
// deferred to the timer tick, unlike night bots, per spec §4.7) and
// resolves early if every alive voter is already in.
func (e *Engine) runDayVoteRound(g *Game, now int64) {
	g.ActiveSpeakerSeat = nil
	g.SpeakingQueue = nil
	e.fillBotDayVotes(g)
	g.setPhase(models.PhaseDayVote, now+int64(g.Timers.DayVoteSeconds)*1000, now)
	if e.allAliveVotedDay(g) {
		e.resolveDayVote(g, now)
	}
}

// resolveDayVote tallies with the sheriff's vote weighted 1.5×, spec §4.4.
func (e *Engine) resolveDayVote(g *Game, now int64) []string {
	counts := map[int]float64{}
	for userID, seatPtr := range g.Day.Votes {
		if seatPtr == nil {
			continue
		}
		weight := 1.0
		if voter := g.playerByUserID(userID); voter != nil && g.SheriffSeat != nil && voter.Seat == *g.SheriffSeat {
			weight = sheriffVoteWeight
		}
		counts[*seatPtr] += weight
	}

	if len(counts) == 0 {
		e.advanceAfterDayVote(g, nil, now)
		return nil
	}

	max := 0.0
	for _, c := range counts {
		if c > max {
			max = c
		}
	}
	var tied []int
	for seat, c := range counts {
		if c == max {
			tied = append(tied, seat)
		}
	}
	sort.Ints(tied)

	switch {
	case len(tied) == 1:
		seat := tied[0]
		p := g.playerBySeat(seat)
		p.IsAlive = false
		g.appendLog(fmt.Sprintf("%d号被放逐", seat), now)
		g.pushEvent(now, models.EventVoteResult, map[string]interface{}{"eliminatedSeat": seat})
		g.pushEvent(now, models.EventPlayerEliminated, map[string]interface{}{"seat": seat, "reason": "vote"})
		e.advanceAfterDayVote(g, &seat, now)
	case g.Day.Stage == 1:
		e.runoffDayVote(g, tied, now)
	default:
		e.advanceAfterDayVote(g, nil, now)
	}
	return nil
}

// advanceAfterDayVote routes to settlement when a hunter was eliminated,
// else to night, spec §4.4.
func (e *Engine) advanceAfterDayVote(g *Game, eliminatedSeat *int, now int64) {
	if eliminatedSeat != nil {
		if p := g.playerBySeat(*eliminatedSeat); p != nil && p.Role == models.RoleHunter {
			g.Settlement.PendingHunterSeat = eliminatedSeat
			g.setPhase(models.PhaseSettlement, now+int64(settlementDurationSec)*1000, now)
			return
		}
	}
	e.enterNight(g, now)
}
