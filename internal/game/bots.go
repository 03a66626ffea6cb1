package game

import "github.com/duskfall/hollowvale/internal/models"

// Bots never reason about the game; spec §1 Non-goals rules out
// natural-language AI, so every bot decision here is a uniformly random
// choice among the legal targets for its role and phase, spec §4.7.

func (g *Game) aliveSeatsExcept(exclude int) []int {
	var out []int
	for _, p := range g.Players {
		if p.IsAlive && p.Seat != exclude {
			out = append(out, p.Seat)
		}
	}
	return out
}

func (g *Game) aliveNonWolfSeats() []int {
	var out []int
	for _, p := range g.Players {
		if p.IsAlive && p.Role != models.RoleWerewolf {
			out = append(out, p.Seat)
		}
	}
	return out
}

// fillBotNightActions fills in the current sub-role's un-acted bot holders.
// Called only from the timeout path (spec §9: "do not act-on-submit inside
// night phases, or human clients skip the role announcement frame").
func (e *Engine) fillBotNightActions(g *Game, now int64) {
	if g.ActiveRole == nil {
		return
	}
	holders := g.aliveHoldersOf(*g.ActiveRole)
	for _, h := range holders {
		if !h.IsBot {
			continue
		}
		switch *g.ActiveRole {
		case models.RoleWerewolf:
			key := actedKey(h.UserID, ActionNightWolfKill)
			if g.Night.Acted[key] {
				continue
			}
			if targets := g.aliveNonWolfSeats(); len(targets) > 0 {
				seat := targets[e.rng.Intn(len(targets))]
				if _, seen := g.Night.WolfVotes[h.UserID]; !seen {
					g.Night.WolfVoteOrder = append(g.Night.WolfVoteOrder, h.UserID)
				}
				g.Night.WolfVotes[h.UserID] = seat
			}
			g.Night.Acted[key] = true

		case models.RoleSeer:
			key := actedKey(h.UserID, ActionNightSeerCheck)
			if g.Night.Acted[key] {
				continue
			}
			if targets := g.aliveSeatsExcept(h.Seat); len(targets) > 0 {
				seat := targets[e.rng.Intn(len(targets))]
				g.Night.SeerTarget = &seat
			}
			g.Night.Acted[key] = true

		case models.RoleGuard:
			key := actedKey(h.UserID, ActionNightGuardProtect)
			if g.Night.Acted[key] {
				continue
			}
			if targets := g.aliveSeatsAsc(); len(targets) > 0 {
				seat := targets[e.rng.Intn(len(targets))]
				g.Night.GuardTarget = &seat
			}
			g.Night.Acted[key] = true

		case models.RoleWitch:
			saveKey := actedKey(h.UserID, ActionNightWitchSave)
			if !g.Night.Acted[saveKey] {
				if !g.Night.WitchSaveUsed {
					g.Night.WitchSave = e.rng.Float64() < 0.5
				}
				g.Night.Acted[saveKey] = true
			}
			poisonKey := actedKey(h.UserID, ActionNightWitchPoison)
			if !g.Night.Acted[poisonKey] {
				if !g.Night.WitchPoisonUsed && e.rng.Float64() < 0.15 {
					if targets := g.aliveSeatsExcept(h.Seat); len(targets) > 0 {
						seat := targets[e.rng.Intn(len(targets))]
						g.Night.WitchPoisonTarget = &seat
					}
				}
				g.Night.Acted[poisonKey] = true
			}
		}
	}
}

// fillBotDayVotes makes every alive bot vote uniformly among the legal
// candidates, spec §4.7. Eligible voters exclude the sheriff-weight
// reasoning entirely; that happens at tally time.
func (e *Engine) fillBotDayVotes(g *Game) {
	legal := g.Day.Candidates
	if legal == nil {
		legal = g.aliveSeatsAsc()
	}
	for _, p := range g.Players {
		if !p.IsAlive || !p.IsBot {
			continue
		}
		if _, voted := g.Day.Votes[p.UserID]; voted {
			continue
		}
		if len(legal) == 0 {
			continue
		}
		seat := legal[e.rng.Intn(len(legal))]
		g.Day.Votes[p.UserID] = &seat
	}
}
