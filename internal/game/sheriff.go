package game

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/duskfall/hollowvale/internal/models"
)

func containsSeat(seats []int, seat int) bool {
	for _, s := range seats {
		if s == seat {
			return true
		}
	}
	return false
}

func removeSeat(seats []int, seat int) []int {
	out := seats[:0]
	for _, s := range seats {
		if s != seat {
			out = append(out, s)
		}
	}
	return out
}

// handleSheriffAction implements sheriff.enroll, sheriff.quit and
// sheriff.vote, spec §4.4.
func (e *Engine) handleSheriffAction(g *Game, actor *models.Player, action SubmittedAction) ([]string, error) {
	switch action.Type {
	case ActionSheriffEnroll:
		if g.Phase != models.PhaseSheriffElection {
			return nil, newErr(ErrPhaseForbids, "not sheriff_election")
		}
		if !actor.IsAlive {
			return nil, newErr(ErrPlayerDead, "")
		}
		if containsSeat(g.Election.Candidates, actor.Seat) {
			return nil, newErr(ErrAlreadyActed, "already a candidate")
		}
		g.Election.Candidates = append(g.Election.Candidates, actor.Seat)
		return nil, nil

	case ActionSheriffQuit:
		if g.Phase != models.PhaseSheriffElection {
			return nil, newErr(ErrPhaseForbids, "not sheriff_election")
		}
		g.Election.Candidates = removeSeat(g.Election.Candidates, actor.Seat)
		return nil, nil

	case ActionSheriffVote:
		if g.Phase != models.PhaseSheriffVote {
			return nil, newErr(ErrPhaseForbids, "not sheriff_vote")
		}
		if !actor.IsAlive {
			return nil, newErr(ErrPlayerDead, "")
		}
		if containsSeat(g.Election.Candidates, actor.Seat) {
			return nil, newErr(ErrNotYourTurn, "candidates do not vote")
		}
		if _, voted := g.Election.Votes[actor.UserID]; voted {
			return nil, newErr(ErrAlreadyActed, "")
		}
		payload, ok := action.Payload.(SheriffVotePayload)
		if !ok {
			return nil, newErr(ErrTargetInvalid, "")
		}
		if payload.TargetSeat != nil {
			target := g.playerBySeat(*payload.TargetSeat)
			if target == nil || !target.IsAlive || !containsSeat(g.Election.Candidates, *payload.TargetSeat) {
				return nil, newErr(ErrTargetInvalid, "")
			}
		}
		g.Election.Votes[actor.UserID] = payload.TargetSeat

		if e.allEligibleSheriffVotesIn(g) {
			return e.resolveSheriffVote(g, e.nowMs()), nil
		}
		return nil, nil

	default:
		return nil, newErr(ErrTargetInvalid, "unknown actionType")
	}
}

func (g *Game) eligibleSheriffVoterCount() int {
	n := 0
	for _, p := range g.Players {
		if p.IsAlive && !containsSeat(g.Election.Candidates, p.Seat) {
			n++
		}
	}
	return n
}

func (e *Engine) allEligibleSheriffVotesIn(g *Game) bool {
	return len(g.Election.Votes) >= g.eligibleSheriffVoterCount()
}

// startSheriffSpeech begins the candidate speaking order, spec §4.4. With
// no candidates enrolled, no sheriff is possible this game and the engine
// falls through directly to day_speech.
func (e *Engine) startSheriffSpeech(g *Game, now int64) {
	if len(g.Election.Candidates) == 0 {
		e.enterDaySpeech(g, nil, now)
		return
	}
	g.SpeakingQueue = append([]int{}, g.Election.Candidates...)
	seat := g.SpeakingQueue[0]
	g.ActiveSpeakerSeat = &seat
	g.setPhase(models.PhaseSheriffSpeech, now+int64(g.Timers.DaySpeechSeconds)*1000, now)
}

// advanceSheriffSpeaker mirrors advanceDaySpeaker over the candidate list.
func (e *Engine) advanceSheriffSpeaker(g *Game, now int64) bool {
	if len(g.SpeakingQueue) == 0 || g.ActiveSpeakerSeat == nil {
		e.enterSheriffVote(g, now)
		return true
	}
	idx := indexOfSeat(g.SpeakingQueue, *g.ActiveSpeakerSeat)
	if idx == -1 || idx == len(g.SpeakingQueue)-1 {
		e.enterSheriffVote(g, now)
		return true
	}
	next := g.SpeakingQueue[idx+1]
	g.ActiveSpeakerSeat = &next
	g.setPhase(models.PhaseSheriffSpeech, now+int64(g.Timers.DaySpeechSeconds)*1000, now)
	return true
}

func (e *Engine) enterSheriffVote(g *Game, now int64) {
	g.ActiveSpeakerSeat = nil
	g.SpeakingQueue = nil
	g.setPhase(models.PhaseSheriffVote, now+int64(sheriffVoteDurationSec)*1000, now)
}

// resolveSheriffVote tallies by plurality; a first-round tie restricts a
// single runoff to the tied seats, a second tie elects nobody, spec §4.4.
func (e *Engine) resolveSheriffVote(g *Game, now int64) []string {
	counts := map[int]int{}
	for _, seatPtr := range g.Election.Votes {
		if seatPtr != nil {
			counts[*seatPtr]++
		}
	}

	if len(counts) > 0 {
		max := 0
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

		if len(tied) == 1 {
			s := tied[0]
			g.SheriffSeat = &s
			g.appendLog(fmt.Sprintf("%d号当选警长", s), now)
			g.pushEvent(now, models.EventSheriffElected, map[string]interface{}{"seat": s})
		} else if g.Election.Stage == 1 {
			g.Election.Stage = 2
			g.Election.Candidates = tied
			g.Election.Votes = map[uuid.UUID]*int{}
			e.startSheriffSpeech(g, now)
			return nil
		}
		// second-stage tie: no sheriff, fall through to day_speech.
	}

	e.enterDaySpeech(g, nil, now)
	return nil
}
