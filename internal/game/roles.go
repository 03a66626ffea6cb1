package game

import (
	"math/rand"
	"sync"

	"github.com/duskfall/hollowvale/internal/models"
)

// RNG wraps a *rand.Rand behind a mutex: the engine only ever touches it
// while holding a per-game lock, but a single shared source is cheaper than
// one per game and the mutex keeps the race detector happy in tests
// that exercise two games concurrently.
type RNG struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewRNG(seed int64) *RNG {
	return &RNG{r: rand.New(rand.NewSource(seed))}
}

func (g *RNG) Shuffle(n int, swap func(i, j int)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.r.Shuffle(n, swap)
}

func (g *RNG) Intn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.r.Intn(n)
}

func (g *RNG) Float64() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.r.Float64()
}

// rolePool expands a RoleConfig plus a villager fill into one role per
// seated player, per spec §4.2's residual-seats-become-villager rule.
func rolePool(cfg models.RoleConfig, playerCount int) []models.Role {
	pool := make([]models.Role, 0, playerCount)
	add := func(role models.Role, n int) {
		for i := 0; i < n; i++ {
			pool = append(pool, role)
		}
	}
	add(models.RoleWerewolf, cfg.Werewolf)
	add(models.RoleSeer, cfg.Seer)
	add(models.RoleWitch, cfg.Witch)
	add(models.RoleHunter, cfg.Hunter)
	add(models.RoleGuard, cfg.Guard)
	for len(pool) < playerCount {
		pool = append(pool, models.RoleVillager)
	}
	return pool
}

// assignRoles performs a uniform-random shuffle of the role pool over the
// seated players, spec §4.1's startGame effect.
func assignRoles(seats []models.Seat, cfg models.RoleConfig, rng *RNG) []models.Player {
	pool := rolePool(cfg, len(seats))
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	players := make([]models.Player, 0, len(seats))
	for i, seat := range seats {
		players = append(players, models.Player{
			Seat:     seat.Seat,
			UserID:   *seat.UserID,
			Nickname: seat.Nickname,
			Role:     pool[i],
			IsAlive:  true,
			IsBot:    seat.IsBot,
		})
	}
	return players
}
