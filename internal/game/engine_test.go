package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskfall/hollowvale/internal/models"
	"github.com/duskfall/hollowvale/internal/store"
)

// recordingBroadcaster is the in-memory test double for Broadcaster: it
// just appends every emit to a slice instead of fanning out over
// websockets, the way the teacher's tests swap a real dependency for a
// recorder rather than a mock framework.
type recordingBroadcaster struct {
	mu    sync.Mutex
	room  []roomEmit
	user  []userEmit
}

type roomEmit struct {
	RoomID  uuid.UUID
	Event   string
	Payload interface{}
}

type userEmit struct {
	UserID  uuid.UUID
	Event   string
	Payload interface{}
}

func (b *recordingBroadcaster) EmitRoom(roomID uuid.UUID, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.room = append(b.room, roomEmit{roomID, event, payload})
}

func (b *recordingBroadcaster) EmitUser(userID uuid.UUID, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.user = append(b.user, userEmit{userID, event, payload})
}

func (b *recordingBroadcaster) userEventsFor(userID uuid.UUID, event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.user {
		if e.UserID == userID && e.Event == event {
			n++
		}
	}
	return n
}

// fakeClock gives tests control over the engine's notion of now, the way
// spec §8 Scenario E demands: advanceGameOnTimeout must be a deterministic
// function of (snapshot, now).
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{t: time.Now()} }

func (f *fakeClock) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

type testHarness struct {
	engine *Engine
	rooms  *store.MemoryRoomRegistry
	ss     *store.MemorySnapshotStore
	rs     *store.MemoryReplayStore
	bc     *recordingBroadcaster
	clock  *fakeClock
}

func newTestHarness() *testHarness {
	h := &testHarness{
		rooms: store.NewMemoryRoomRegistry(),
		ss:    store.NewMemorySnapshotStore(),
		rs:    store.NewMemoryReplayStore(),
		bc:    &recordingBroadcaster{},
		clock: newFakeClock(),
	}
	h.engine = NewEngine(h.ss, h.rooms, h.bc, h.rs, NewRNG(1)).WithClock(h.clock.now)
	return h
}

// newWaitingRoom builds a room with n seated, ready players and puts it in
// the registry, returning the room and the seated user-ids in seat order.
func (h *testHarness) newWaitingRoom(t *testing.T, n int, cfg models.RoleConfig) (*models.Room, []uuid.UUID) {
	t.Helper()
	owner := uuid.New()
	userIDs := make([]uuid.UUID, n)
	members := make([]models.Seat, n)
	for i := 0; i < n; i++ {
		uid := uuid.New()
		if i == 0 {
			uid = owner
		}
		userIDs[i] = uid
		members[i] = models.Seat{Seat: i + 1, UserID: &uid, Nickname: "p", IsReady: true}
	}
	room := &models.Room{
		ID:          uuid.New(),
		RoomNumber:  "TEST01",
		Name:        "test room",
		OwnerUserID: owner,
		Status:      models.RoomStatusWaiting,
		MaxPlayers:  n,
		Members:     members,
		RoleConfig:  cfg,
	}
	h.rooms.Put(room)
	return room, userIDs
}

func (h *testHarness) startGame(t *testing.T, room *models.Room, owner uuid.UUID) *Game {
	t.Helper()
	ctx := context.Background()
	_, _, err := h.engine.StartGame(ctx, room.ID, owner)
	require.NoError(t, err)
	updated, err := h.rooms.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.GameID)
	g, err := h.engine.loadGame(ctx, *updated.GameID)
	require.NoError(t, err)
	return g
}

func (h *testHarness) reload(t *testing.T, gameID uuid.UUID) *Game {
	t.Helper()
	g, err := h.engine.loadGame(context.Background(), gameID)
	require.NoError(t, err)
	return g
}

// advanceUntilPhase drives advanceGameOnTimeout forward, jumping the fake
// clock well past every phase deadline, until the target phase (or
// game_over) is reached.
func (h *testHarness) advanceUntilPhase(t *testing.T, gameID uuid.UUID, target models.Phase) *Game {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 50; i++ {
		g := h.reload(t, gameID)
		if g.Phase == target {
			return g
		}
		h.clock.advance(2 * time.Minute)
		_, err := h.engine.AdvanceGameOnTimeout(ctx, gameID)
		require.NoError(t, err)
	}
	t.Fatalf("phase %s never reached", target)
	return nil
}

func seatOf(g *Game, role models.Role) *models.Player {
	for i := range g.Players {
		if g.Players[i].Role == role {
			return &g.Players[i]
		}
	}
	return nil
}

func seatsOf(g *Game, role models.Role) []models.Player {
	var out []models.Player
	for _, p := range g.Players {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out
}

// ---------------------------------------------------------------------
// Scenario A: minimal wolf win.
// ---------------------------------------------------------------------

func TestWerewolvesWinAtParity(t *testing.T) {
	h := newTestHarness()
	room, userIDs := h.newWaitingRoom(t, 4, models.RoleConfig{Werewolf: 1, Seer: 1})
	g := h.startGame(t, room, userIDs[0])

	assert.Equal(t, models.PhaseNight, g.Phase)
	assert.NotNil(t, g.ActiveRole)
	assert.Equal(t, models.RoleWerewolf, *g.ActiveRole)

	wolf := seatOf(g, models.RoleWerewolf)
	seer := seatOf(g, models.RoleSeer)
	villagers := seatsOf(g, models.RoleVillager)
	require.Len(t, villagers, 2)

	ctx := context.Background()

	// Wolf kills the first villager.
	_, err := h.engine.SubmitAction(ctx, room.ID, wolf.UserID, SubmittedAction{
		Type:    ActionNightWolfKill,
		Payload: NightWolfKillPayload{TargetSeat: villagers[0].Seat},
	})
	require.NoError(t, err)

	// Seer checks the wolf and learns 狼人.
	_, err = h.engine.SubmitAction(ctx, room.ID, seer.UserID, SubmittedAction{
		Type:    ActionNightSeerCheck,
		Payload: NightSeerCheckPayload{TargetSeat: wolf.Seat},
	})
	require.NoError(t, err)

	// With only werewolf/seer holders, both sub-roles completing resolves
	// the night immediately — no timeout needed.
	g = h.reload(t, g.GameID)
	assert.Equal(t, models.PhaseDaySpeech, g.Phase)
	eliminated := g.playerBySeat(villagers[0].Seat)
	require.NotNil(t, eliminated)
	assert.False(t, eliminated.IsAlive)

	hints := g.HintsByUserID[seer.UserID]
	require.Len(t, hints, 1)
	assert.Contains(t, hints[0].Text, "狼人")

	// Drive past the speech rotation into day_vote.
	g = h.advanceUntilPhase(t, g.GameID, models.PhaseDayVote)

	remainingVillager := villagers[1]
	alive := []models.Player{}
	for _, p := range g.Players {
		if p.IsAlive {
			alive = append(alive, p)
		}
	}
	require.Len(t, alive, 3)

	for _, voter := range alive {
		seat := remainingVillager.Seat
		res, err := h.engine.SubmitAction(ctx, room.ID, voter.UserID, SubmittedAction{
			Type:    ActionDayVote,
			Payload: DayVotePayload{TargetSeat: &seat},
		})
		require.NoError(t, err)
		_ = res
	}

	g = h.reload(t, g.GameID)
	require.Equal(t, models.PhaseGameOver, g.Phase)
	require.NotNil(t, g.Winner)
	assert.Equal(t, models.WinnerWerewolves, *g.Winner)

	// Property 6: the replay's ownerUserIds is exactly the seated user set.
	require.Len(t, h.rs.Replays, 1)
	for _, replay := range h.rs.Replays {
		assert.ElementsMatch(t, userIDs, replay.OwnerUserIDs)
	}
}

// ---------------------------------------------------------------------
// Scenario B: witch save + poison the same night.
// ---------------------------------------------------------------------

func TestWitchSaveAndPoisonSameNight(t *testing.T) {
	h := newTestHarness()
	room, _ := h.newWaitingRoom(t, 6, models.RoleConfig{Werewolf: 1, Witch: 1})
	g := h.startGame(t, room, room.OwnerUserID)

	wolf := seatOf(g, models.RoleWerewolf)
	witch := seatOf(g, models.RoleWitch)
	victims := seatsOf(g, models.RoleVillager)
	require.GreaterOrEqual(t, len(victims), 2)

	ctx := context.Background()
	killSeat := victims[0].Seat
	poisonSeat := victims[1].Seat

	_, err := h.engine.SubmitAction(ctx, room.ID, wolf.UserID, SubmittedAction{
		Type:    ActionNightWolfKill,
		Payload: NightWolfKillPayload{TargetSeat: killSeat},
	})
	require.NoError(t, err)

	_, err = h.engine.SubmitAction(ctx, room.ID, witch.UserID, SubmittedAction{
		Type:    ActionNightWitchSave,
		Payload: NightWitchSavePayload{Use: true},
	})
	require.NoError(t, err)

	_, err = h.engine.SubmitAction(ctx, room.ID, witch.UserID, SubmittedAction{
		Type:    ActionNightWitchPoison,
		Payload: NightWitchPoisonPayload{TargetSeat: &poisonSeat},
	})
	require.NoError(t, err)

	g = h.reload(t, g.GameID)
	saved := g.playerBySeat(killSeat)
	poisoned := g.playerBySeat(poisonSeat)
	require.NotNil(t, saved)
	require.NotNil(t, poisoned)
	assert.True(t, saved.IsAlive, "witch-saved victim should survive")
	assert.False(t, poisoned.IsAlive, "poisoned seat should die")
	assert.True(t, g.Night.WitchSaveUsed)
	assert.True(t, g.Night.WitchPoisonUsed)

	// Property 2: the used-flags never reset mid-game; submitting another
	// potion action next night raises POTION_USED.
	if g.Phase == models.PhaseGameOver {
		return
	}
	g = h.advanceUntilPhase(t, g.GameID, models.PhaseNight)
	assert.True(t, g.Night.WitchSaveUsed)
	assert.True(t, g.Night.WitchPoisonUsed)
	require.Equal(t, models.RoleWerewolf, *g.ActiveRole, "a fresh night always reopens at werewolf")

	// Advance the sub-role cursor to witch: the wolf's vote doesn't resolve
	// anything by itself, it only lets the sole wolf holder's completion
	// hand the turn to the next living sub-role.
	stillAlive := seatsOf(g, models.RoleVillager)
	require.NotEmpty(t, stillAlive)
	nextKillSeat := stillAlive[0].Seat
	_, err = h.engine.SubmitAction(ctx, room.ID, wolf.UserID, SubmittedAction{
		Type:    ActionNightWolfKill,
		Payload: NightWolfKillPayload{TargetSeat: nextKillSeat},
	})
	require.NoError(t, err)
	g = h.reload(t, g.GameID)
	require.Equal(t, models.RoleWitch, *g.ActiveRole)

	_, err = h.engine.SubmitAction(ctx, room.ID, witch.UserID, SubmittedAction{
		Type:    ActionNightWitchSave,
		Payload: NightWitchSavePayload{Use: true},
	})
	gerr, ok := err.(*GameError)
	require.True(t, ok)
	assert.Equal(t, ErrPotionUsed, gerr.Code)
}

// ---------------------------------------------------------------------
// Property 4 / Scenario C: sheriff's 1.5x vote weight.
// ---------------------------------------------------------------------

func TestDayVoteSheriffWeightDecidesPlurality(t *testing.T) {
	h := newTestHarness()
	room, _ := h.newWaitingRoom(t, 12, models.RoleConfig{Werewolf: 2})
	g := h.startGame(t, room, room.OwnerUserID)
	ctx := context.Background()

	alive := g.Players
	require.Len(t, alive, 12)
	sheriff := alive[0]
	seat9Backers := alive[1:5]  // sheriff + 4 others = 5 voters on targetA
	seat10Backers := alive[5:10] // 5 voters on targetB
	targetA := alive[10].Seat
	targetB := alive[11].Seat

	// Force the scratch directly: this test targets the tally invariant,
	// not the sheriff-election or night-resolution machinery.
	g.Phase = models.PhaseDayVote
	g.PhaseEndsAt = h.clock.now().Add(time.Hour).UnixMilli()
	g.Day = newDayScratch()
	sheriffSeat := sheriff.Seat
	g.SheriffSeat = &sheriffSeat
	require.NoError(t, h.engine.storeGame(ctx, g))

	vote := func(voter models.Player, seat int) {
		s := seat
		_, err := h.engine.SubmitAction(ctx, room.ID, voter.UserID, SubmittedAction{
			Type:    ActionDayVote,
			Payload: DayVotePayload{TargetSeat: &s},
		})
		require.NoError(t, err)
	}

	vote(sheriff, targetA)
	for _, v := range seat9Backers {
		vote(v, targetA)
	}
	for _, v := range seat10Backers {
		vote(v, targetB)
	}
	// The two targets abstain so every living voter has cast a ballot and
	// the tally resolves without a separate timeout call.
	abstain := func(voter models.Player) {
		_, err := h.engine.SubmitAction(ctx, room.ID, voter.UserID, SubmittedAction{
			Type:    ActionDayVote,
			Payload: DayVotePayload{TargetSeat: nil},
		})
		require.NoError(t, err)
	}
	abstain(alive[10])
	abstain(alive[11])

	g = h.reload(t, g.GameID)
	// sheriff + 4 backers on targetA = 1.5 + 4 = 5.5; 5 backers on targetB = 5.0.
	eliminatedA := g.playerBySeat(targetA)
	eliminatedB := g.playerBySeat(targetB)
	require.NotNil(t, eliminatedA)
	require.NotNil(t, eliminatedB)
	assert.False(t, eliminatedA.IsAlive, "higher-weighted seat should be eliminated")
	assert.True(t, eliminatedB.IsAlive)
}

func TestDayVoteDoubleTieEliminatesNobody(t *testing.T) {
	h := newTestHarness()
	room, _ := h.newWaitingRoom(t, 4, models.RoleConfig{Werewolf: 1})
	g := h.startGame(t, room, room.OwnerUserID)
	ctx := context.Background()

	players := g.Players
	require.Len(t, players, 4)

	g.Phase = models.PhaseDayVote
	g.PhaseEndsAt = h.clock.now().Add(time.Hour).UnixMilli()
	g.Day = newDayScratch()
	require.NoError(t, h.engine.storeGame(ctx, g))

	vote := func(voter models.Player, seat int) {
		s := seat
		_, err := h.engine.SubmitAction(ctx, room.ID, voter.UserID, SubmittedAction{
			Type:    ActionDayVote,
			Payload: DayVotePayload{TargetSeat: &s},
		})
		require.NoError(t, err)
	}

	// 2-2 tie: players[0],[1] vote players[2]; players[2],[3] vote players[1].
	vote(players[0], players[2].Seat)
	vote(players[1], players[2].Seat)
	vote(players[2], players[1].Seat)
	vote(players[3], players[1].Seat)

	g = h.reload(t, g.GameID)
	require.Equal(t, 2, g.Day.Stage, "first tie should trigger a stage-2 runoff")

	// Runoff tie again: alternate the same way among the tied candidates.
	vote(players[0], players[2].Seat)
	vote(players[1], players[1].Seat)
	vote(players[2], players[1].Seat)
	vote(players[3], players[2].Seat)

	g = h.reload(t, g.GameID)
	for _, p := range players {
		live := g.playerBySeat(p.Seat)
		require.NotNil(t, live)
		assert.True(t, live.IsAlive, "a second consecutive tie must eliminate nobody")
	}
	assert.Equal(t, models.PhaseNight, g.Phase)
}

// ---------------------------------------------------------------------
// Scenario D: hunter chain.
// ---------------------------------------------------------------------

func TestHunterShootsOnEliminationThenPlayContinues(t *testing.T) {
	h := newTestHarness()
	room, _ := h.newWaitingRoom(t, 5, models.RoleConfig{Werewolf: 1, Hunter: 1})
	g := h.startGame(t, room, room.OwnerUserID)
	ctx := context.Background()

	hunter := seatOf(g, models.RoleHunter)
	target := seatOf(g, models.RoleVillager)
	require.NotNil(t, hunter)
	require.NotNil(t, target)

	hunterSeat := hunter.Seat
	g.DayNo = 1
	g.Phase = models.PhaseSettlement
	g.PhaseEndsAt = h.clock.now().Add(time.Hour).UnixMilli()
	g.Settlement.PendingHunterSeat = &hunterSeat
	require.NoError(t, h.engine.storeGame(ctx, g))

	targetSeat := target.Seat
	_, err := h.engine.SubmitAction(ctx, room.ID, hunter.UserID, SubmittedAction{
		Type:    ActionSettlementHunterShoot,
		Payload: SettlementHunterShootPayload{TargetSeat: &targetSeat},
	})
	require.NoError(t, err)

	g = h.reload(t, g.GameID)
	dead := g.playerBySeat(targetSeat)
	require.NotNil(t, dead)
	assert.False(t, dead.IsAlive)
	assert.Nil(t, g.Settlement.PendingHunterSeat)
	if g.Phase != models.PhaseGameOver {
		assert.Equal(t, models.PhaseNight, g.Phase)
	}
}

// ---------------------------------------------------------------------
// Property 1 / Scenario E: advanceGameOnTimeout determinism and idempotence.
// ---------------------------------------------------------------------

func TestAdvanceGameOnTimeoutIsIdempotentBeforeAndAfterDeadline(t *testing.T) {
	h := newTestHarness()
	room, _ := h.newWaitingRoom(t, 8, models.RoleConfig{Werewolf: 2})
	g := h.startGame(t, room, room.OwnerUserID)
	ctx := context.Background()

	deadline := g.PhaseEndsAt
	activeRole := *g.ActiveRole

	// Before the deadline: any number of calls are no-ops.
	for i := 0; i < 3; i++ {
		res, err := h.engine.AdvanceGameOnTimeout(ctx, g.GameID)
		require.NoError(t, err)
		assert.Nil(t, res)
	}
	g = h.reload(t, g.GameID)
	assert.Equal(t, deadline, g.PhaseEndsAt)
	assert.Equal(t, activeRole, *g.ActiveRole)

	// First call at/after the deadline mutates (forces past the werewolf
	// sub-role since nobody acted).
	h.clock.advance(time.Duration(g.Timers.NightSeconds+5) * time.Second)
	res, err := h.engine.AdvanceGameOnTimeout(ctx, g.GameID)
	require.NoError(t, err)
	require.NotNil(t, res)
	g2 := h.reload(t, g.GameID)
	newDeadline := g2.PhaseEndsAt

	// Subsequent calls in the same phase, same now, are no-ops again.
	res, err = h.engine.AdvanceGameOnTimeout(ctx, g.GameID)
	require.NoError(t, err)
	assert.Nil(t, res)
	g3 := h.reload(t, g.GameID)
	assert.Equal(t, newDeadline, g3.PhaseEndsAt)
}

func TestAdvanceGameOnTimeoutAfterGameOverIsNoop(t *testing.T) {
	h := newTestHarness()
	room, userIDs := h.newWaitingRoom(t, 4, models.RoleConfig{Werewolf: 1})
	g := h.startGame(t, room, room.OwnerUserID)
	ctx := context.Background()
	_ = userIDs

	wolf := seatOf(g, models.RoleWerewolf)
	others := []models.Player{}
	for _, p := range g.Players {
		if p.Role != models.RoleWerewolf {
			others = append(others, p)
		}
	}
	require.Len(t, others, 3)

	// Kill everyone but the wolf and one other player via direct scratch
	// manipulation to reach game_over quickly.
	for i := 0; i < len(others)-1; i++ {
		seat := g.playerBySeat(others[i].Seat)
		seat.IsAlive = false
	}
	h.engine.evaluateWinIfNeeded(g)
	require.NoError(t, h.engine.storeGame(ctx, g))
	_ = wolf

	g = h.reload(t, g.GameID)
	require.Equal(t, models.PhaseGameOver, g.Phase)

	// Property 1: once game_over, advanceGameOnTimeout returns nil and
	// never mutates, regardless of how far the clock moves.
	h.clock.advance(time.Hour)
	res, err := h.engine.AdvanceGameOnTimeout(ctx, g.GameID)
	require.NoError(t, err)
	assert.Nil(t, res)
}

// ---------------------------------------------------------------------
// Scenario F: wolf-channel isolation.
// ---------------------------------------------------------------------

func TestWolfChatNeverReachesPublicLogOrNonWolves(t *testing.T) {
	h := newTestHarness()
	room, _ := h.newWaitingRoom(t, 6, models.RoleConfig{Werewolf: 2})
	g := h.startGame(t, room, room.OwnerUserID)
	ctx := context.Background()

	wolves := seatsOf(g, models.RoleWerewolf)
	require.Len(t, wolves, 2)
	nonWolves := []models.Player{}
	for _, p := range g.Players {
		if p.Role != models.RoleWerewolf {
			nonWolves = append(nonWolves, p)
		}
	}

	_, err := h.engine.AppendChat(ctx, room.ID, wolves[0].UserID, "wolfy", "hi", models.ChatWolf)
	require.NoError(t, err)

	g = h.reload(t, g.GameID)
	for _, entry := range g.PublicLog {
		assert.NotContains(t, entry.Text, "hi")
	}
	for _, ev := range g.Events {
		assert.NotEqual(t, models.EventChatMessage, ev.Type)
	}

	for _, w := range wolves {
		assert.Equal(t, 1, h.bc.userEventsFor(w.UserID, "chat:new"))
	}
	for _, nw := range nonWolves {
		assert.Equal(t, 0, h.bc.userEventsFor(nw.UserID, "chat:new"))
	}
}

func TestPublicChatOnlyDuringSpeakersTurn(t *testing.T) {
	h := newTestHarness()
	room, _ := h.newWaitingRoom(t, 4, models.RoleConfig{Werewolf: 1})
	g := h.startGame(t, room, room.OwnerUserID)
	ctx := context.Background()

	someone := g.Players[0]
	_, err := h.engine.AppendChat(ctx, room.ID, someone.UserID, "n", "hello", models.ChatPublic)
	gerr, ok := err.(*GameError)
	require.True(t, ok)
	assert.Equal(t, ErrPhaseForbids, gerr.Code)
}

// ---------------------------------------------------------------------
// Property 5: serialized concurrent actions on the same game — one write
// wins, the loser observes ALREADY_ACTED.
// ---------------------------------------------------------------------

func TestConcurrentSameActionOneWriteWins(t *testing.T) {
	h := newTestHarness()
	// Two werewolves keeps the sub-role open after the first submission —
	// with a single wolf, that submission alone would complete the night
	// and change the phase, masking the ALREADY_ACTED precondition this
	// test targets.
	room, _ := h.newWaitingRoom(t, 8, models.RoleConfig{Werewolf: 2})
	g := h.startGame(t, room, room.OwnerUserID)
	ctx := context.Background()

	wolf := seatsOf(g, models.RoleWerewolf)[0]
	target := seatsOf(g, models.RoleVillager)[0]

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seat := target.Seat
			_, err := h.engine.SubmitAction(ctx, room.ID, wolf.UserID, SubmittedAction{
				Type:    ActionNightWolfKill,
				Payload: NightWolfKillPayload{TargetSeat: seat},
			})
			errs[i] = err
		}(i)
	}
	wg.Wait()

	successes, alreadyActed := 0, 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		gerr, ok := err.(*GameError)
		require.True(t, ok)
		if gerr.Code == ErrAlreadyActed {
			alreadyActed++
		}
	}
	assert.Equal(t, 1, successes, "exactly one submission should succeed")
	assert.Equal(t, 1, alreadyActed, "the loser should observe ALREADY_ACTED")
}

// ---------------------------------------------------------------------
// RoleConfig validation and startGame preconditions.
// ---------------------------------------------------------------------

func TestStartGameRejectsWhenNotAllReady(t *testing.T) {
	h := newTestHarness()
	room, _ := h.newWaitingRoom(t, 4, models.RoleConfig{Werewolf: 1})
	room.Members[2].IsReady = false
	h.rooms.Put(room)

	_, _, err := h.engine.StartGame(context.Background(), room.ID, room.OwnerUserID)
	gerr, ok := err.(*GameError)
	require.True(t, ok)
	assert.Equal(t, ErrNotAllReady, gerr.Code)
}

func TestStartGameRejectsNonOwner(t *testing.T) {
	h := newTestHarness()
	room, userIDs := h.newWaitingRoom(t, 4, models.RoleConfig{Werewolf: 1})

	_, _, err := h.engine.StartGame(context.Background(), room.ID, userIDs[1])
	gerr, ok := err.(*GameError)
	require.True(t, ok)
	assert.Equal(t, ErrOnlyOwnerMayStart, gerr.Code)
}
