package game

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/duskfall/hollowvale/internal/models"
)

const (
	activeGamesSet = "games:active"

	nightRoleDurationSec   = 60
	electionDurationSec    = 20
	sheriffVoteDurationSec = 30
	settlementDurationSec  = 20

	sheriffVoteWeight    = 1.5
	minPlayersForSheriff = 12
)

func gameKey(gameID uuid.UUID) string { return fmt.Sprintf("gamert:%s", gameID.String()) }

// Clock is overridable so tests can drive advanceGameOnTimeout
// deterministically, per spec §8 Scenario E.
type Clock func() time.Time

// Engine is the Game Engine component of spec §2.5: the phase state
// machine, action validator, bot driver, and win evaluator, wired to its
// four collaborators by interface rather than by concrete package import,
// per spec §9's "injectable port/adapter" redesign note.
type Engine struct {
	ss SnapshotStore
	rr RoomRegistry
	bc Broadcaster
	rs ReplayStore

	rng   *RNG
	clock Clock

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
}

func NewEngine(ss SnapshotStore, rr RoomRegistry, bc Broadcaster, rs ReplayStore, rng *RNG) *Engine {
	return &Engine{
		ss:    ss,
		rr:    rr,
		bc:    bc,
		rs:    rs,
		rng:   rng,
		clock: time.Now,
		locks: map[uuid.UUID]*sync.Mutex{},
	}
}

// WithClock overrides the engine's notion of now; used by tests.
func (e *Engine) WithClock(c Clock) *Engine {
	e.clock = c
	return e
}

func (e *Engine) nowMs() int64 {
	return e.clock().UnixMilli()
}

// lockFor returns the per-gameId mutex, creating it on first use. Holding
// this mutex across a full load-mutate-store cycle is what spec §5 calls
// "a per-game lock spanning the whole RMW".
func (e *Engine) lockFor(gameID uuid.UUID) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	m, ok := e.locks[gameID]
	if !ok {
		m = &sync.Mutex{}
		e.locks[gameID] = m
	}
	return m
}

func (e *Engine) loadGame(ctx context.Context, gameID uuid.UUID) (*Game, error) {
	raw, err := e.ss.Get(ctx, gameKey(gameID))
	if err != nil {
		return nil, newErr(ErrSnapshotUnavailable, err.Error())
	}
	if raw == nil {
		return nil, newErr(ErrGameNotFound, gameID.String())
	}
	var g Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, newErr(ErrSnapshotUnavailable, "corrupt snapshot: "+err.Error())
	}
	return &g, nil
}

func (e *Engine) storeGame(ctx context.Context, g *Game) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return newErr(ErrSnapshotUnavailable, err.Error())
	}
	if err := e.ss.Set(ctx, gameKey(g.GameID), raw, 0); err != nil {
		return newErr(ErrSnapshotUnavailable, err.Error())
	}
	return nil
}

// withGame performs the load → mutate → store cycle under the per-game
// lock. fn returns privateUserIds to include in the result alongside the
// always-broadcast public state.
func (e *Engine) withGame(ctx context.Context, gameID uuid.UUID, fn func(g *Game) ([]string, error)) (*SubmitResult, error) {
	mu := e.lockFor(gameID)
	mu.Lock()
	defer mu.Unlock()

	g, err := e.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	privateUserIDs, err := fn(g)
	if err != nil {
		return nil, err
	}

	roomEnded := g.Phase == models.PhaseGameOver
	if roomEnded {
		if err := e.finalizeGame(ctx, g); err != nil {
			return nil, err
		}
		pub := projectPublic(g, e.nowMs())
		e.broadcastState(g, pub, privateUserIDs)
		return &SubmitResult{GamePublic: pub, PrivateUserIDs: privateUserIDs, RoomEnded: true}, nil
	}

	if err := e.storeGame(ctx, g); err != nil {
		return nil, err
	}
	pub := projectPublic(g, e.nowMs())
	e.broadcastState(g, pub, privateUserIDs)
	return &SubmitResult{GamePublic: pub, PrivateUserIDs: privateUserIDs}, nil
}

// StartGame implements spec §4.1's startGame operation.
func (e *Engine) StartGame(ctx context.Context, roomID uuid.UUID, requesterUserID uuid.UUID) (*models.Room, *GamePublic, error) {
	room, err := e.rr.GetRoom(ctx, roomID)
	if err != nil {
		return nil, nil, newErr(ErrRoomNotFound, roomID.String())
	}
	if room.Status != models.RoomStatusWaiting {
		return nil, nil, newErr(ErrNotPlaying, "room is not waiting")
	}
	if room.OwnerUserID != requesterUserID {
		return nil, nil, newErr(ErrOnlyOwnerMayStart, "")
	}

	var seated []models.Seat
	for _, seat := range room.Members {
		if seat.UserID == nil {
			continue
		}
		if !seat.IsReady {
			return nil, nil, newErr(ErrNotAllReady, fmt.Sprintf("seat %d not ready", seat.Seat))
		}
		seated = append(seated, seat)
	}
	if len(seated) != room.MaxPlayers {
		return nil, nil, newErr(ErrNeedBots, fmt.Sprintf("%d", room.MaxPlayers-len(seated)))
	}
	if !room.RoleConfig.Validate(len(seated)) {
		return nil, nil, newErr(ErrInvalidRoleConfig, "")
	}

	now := e.nowMs()
	timers := effectiveTimers(room.Timers)

	g := &Game{
		GameID:        uuid.New(),
		RoomID:        room.ID,
		RoomName:      room.Name,
		StartedAt:     now,
		DayNo:         0,
		Players:       assignRoles(seated, room.RoleConfig, e.rng),
		RoleConfig:    room.RoleConfig,
		Timers:        timers,
		HintsByUserID: map[uuid.UUID][]models.Hint{},
		Night:         newNightScratch(),
		Day:           newDayScratch(),
		Election:      newElectionScratch(),
	}
	role := models.RoleWerewolf
	g.ActiveRole = &role
	g.setPhase(models.PhaseNight, now+int64(nightRoleDurationSec)*1000, now)
	g.appendLog("天黑请闭眼", now)
	g.appendLog("狼人请睁眼", now)

	if err := e.storeGame(ctx, g); err != nil {
		return nil, nil, err
	}
	if err := e.ss.SAdd(ctx, activeGamesSet, g.GameID.String()); err != nil {
		return nil, nil, newErr(ErrSnapshotUnavailable, err.Error())
	}
	if err := e.rr.SetRoomPlaying(ctx, room.ID, g.GameID); err != nil {
		return nil, nil, newErr(ErrDBUnavailable, err.Error())
	}

	room.Status = models.RoomStatusPlaying
	room.GameID = &g.GameID
	pub := projectPublic(g, now)
	return room, &pub, nil
}

// effectiveTimers falls back to engine defaults (60/45/30/20 seconds) for
// any zero-valued field, as the models.Timers doc comment describes.
func effectiveTimers(t models.Timers) models.Timers {
	if t.NightSeconds == 0 {
		t.NightSeconds = nightRoleDurationSec
	}
	if t.DaySpeechSeconds == 0 {
		t.DaySpeechSeconds = 45
	}
	if t.DayVoteSeconds == 0 {
		t.DayVoteSeconds = 30
	}
	if t.SettlementSeconds == 0 {
		t.SettlementSeconds = settlementDurationSec
	}
	return t
}

// SubmitAction implements spec §4.1's submitAction operation: dispatch on
// (phase, actionType) per the table in §4.4.
func (e *Engine) SubmitAction(ctx context.Context, roomID uuid.UUID, userID uuid.UUID, action SubmittedAction) (*SubmitResult, error) {
	room, err := e.rr.GetRoom(ctx, roomID)
	if err != nil {
		return nil, newErr(ErrRoomNotFound, roomID.String())
	}
	if room.GameID == nil {
		return nil, newErr(ErrNotPlaying, "")
	}
	gameID := *room.GameID

	return e.withGame(ctx, gameID, func(g *Game) ([]string, error) {
		if g.Phase == models.PhaseGameOver {
			return nil, newErr(ErrNotPlaying, "game over")
		}
		player := g.playerByUserID(userID)
		if player == nil {
			return nil, newErr(ErrNotInGame, "")
		}

		privateUserIDs, err := e.dispatch(g, player, action)
		if err != nil {
			return nil, err
		}
		e.evaluateWinIfNeeded(g)
		return privateUserIDs, nil
	})
}

// dispatch routes a validated actor+action to the phase-specific handler.
// Every arm either mutates g and returns the private recipients for this
// mutation, or returns a *GameError without mutating.
func (e *Engine) dispatch(g *Game, actor *models.Player, action SubmittedAction) ([]string, error) {
	switch action.Type {
	case ActionNightWolfKill, ActionNightSeerCheck, ActionNightGuardProtect, ActionNightWitchSave, ActionNightWitchPoison:
		return e.handleNightAction(g, actor, action)
	case ActionSheriffEnroll, ActionSheriffQuit, ActionSheriffVote:
		return e.handleSheriffAction(g, actor, action)
	case ActionGameNextSpeaker:
		return e.handleNextSpeaker(g, actor)
	case ActionDayVote:
		return e.handleDayVote(g, actor, action)
	case ActionSettlementHunterShoot:
		return e.handleHunterShoot(g, actor, action)
	default:
		return nil, newErr(ErrTargetInvalid, "unknown actionType")
	}
}

// AdvanceGameOnTimeout implements spec §4.1's advanceGameOnTimeout
// operation: a no-op before the deadline, idempotent after it, and it runs
// cascading transitions to a fixpoint within the call, per spec §4.8.
func (e *Engine) AdvanceGameOnTimeout(ctx context.Context, gameID uuid.UUID) (*SubmitResult, error) {
	mu := e.lockFor(gameID)
	mu.Lock()
	defer mu.Unlock()

	g, err := e.loadGame(ctx, gameID)
	if err != nil {
		if ge, ok := err.(*GameError); ok && ge.Code == ErrGameNotFound {
			return nil, nil
		}
		return nil, err
	}

	now := e.nowMs()
	if g.Phase == models.PhaseGameOver || now < g.PhaseEndsAt {
		return nil, nil
	}

	var privateUserIDs []string
	for {
		ids, transitioned := e.runTimeoutTransition(g, now)
		privateUserIDs = append(privateUserIDs, ids...)
		e.evaluateWinIfNeeded(g)
		if g.Phase == models.PhaseGameOver {
			break
		}
		if !transitioned || now < g.PhaseEndsAt {
			break
		}
	}

	if g.Phase == models.PhaseGameOver {
		if err := e.finalizeGame(ctx, g); err != nil {
			return nil, err
		}
		pub := projectPublic(g, now)
		e.broadcastState(g, pub, privateUserIDs)
		return &SubmitResult{GamePublic: pub, PrivateUserIDs: privateUserIDs, RoomEnded: true}, nil
	}
	if err := e.storeGame(ctx, g); err != nil {
		return nil, err
	}
	pub := projectPublic(g, now)
	e.broadcastState(g, pub, privateUserIDs)
	return &SubmitResult{GamePublic: pub, PrivateUserIDs: privateUserIDs}, nil
}

// broadcastState fans the post-mutation public state out to the room
// channel, and each affected player's private state to their user channel,
// spec §6.3's game:state / game:private events.
func (e *Engine) broadcastState(g *Game, pub GamePublic, privateUserIDs []string) {
	e.bc.EmitRoom(g.RoomID, "game:state", pub)
	for _, idStr := range privateUserIDs {
		userID, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		player := g.playerByUserID(userID)
		if player == nil {
			continue
		}
		e.bc.EmitUser(userID, "game:private", projectPrivate(g, player))
	}
}

// runTimeoutTransition applies exactly one phase's timeout rule and reports
// whether a transition actually occurred (false means the phase has no
// timeout-driven move left, avoiding an infinite fixpoint loop).
func (e *Engine) runTimeoutTransition(g *Game, now int64) ([]string, bool) {
	switch g.Phase {
	case models.PhaseNight:
		return e.advanceNightSubRole(g, now, true), true
	case models.PhaseSheriffElection:
		e.startSheriffSpeech(g, now)
		return nil, true
	case models.PhaseSheriffSpeech:
		return nil, e.advanceSheriffSpeaker(g, now)
	case models.PhaseSheriffVote:
		return e.resolveSheriffVote(g, now), true
	case models.PhaseDaySpeech:
		return nil, e.advanceDaySpeaker(g, now)
	case models.PhaseDayVote:
		return e.resolveDayVote(g, now), true
	case models.PhaseSettlement:
		e.resolveSettlementTimeout(g, now)
		return nil, true
	default:
		return nil, false
	}
}

// AppendChat implements spec §4.1's appendChat operation.
func (e *Engine) AppendChat(ctx context.Context, roomID uuid.UUID, userID uuid.UUID, nickname, text string, channel models.ChatChannel) (*models.ChatMessage, error) {
	room, err := e.rr.GetRoom(ctx, roomID)
	if err != nil {
		return nil, newErr(ErrRoomNotFound, roomID.String())
	}
	if room.GameID == nil {
		return nil, newErr(ErrNotPlaying, "")
	}
	gameID := *room.GameID

	var msg *models.ChatMessage
	_, err = e.withGame(ctx, gameID, func(g *Game) ([]string, error) {
		player := g.playerByUserID(userID)
		if player == nil {
			return nil, newErr(ErrNotInGame, "")
		}
		now := e.nowMs()

		switch channel {
		case models.ChatPublic:
			allowedPhase := g.Phase == models.PhaseDaySpeech || g.Phase == models.PhaseSheriffSpeech
			if !allowedPhase {
				return nil, newErr(ErrPhaseForbids, "chat only during a speech phase")
			}
			if g.ActiveSpeakerSeat == nil || player.Seat != *g.ActiveSpeakerSeat {
				return nil, newErr(ErrNotYourTurn, "")
			}
			m := models.ChatMessage{ID: len(g.PublicLog) + 1, At: now, UserID: userID, Nickname: nickname, Channel: channel, Text: text}
			msg = &m
			g.appendLog(fmt.Sprintf("%s: %s", nickname, text), now)
			g.pushEvent(now, models.EventChatMessage, m)
			e.bc.EmitRoom(roomID, "chat:new", m)
			return nil, nil

		case models.ChatWolf:
			if player.Role != models.RoleWerewolf {
				return nil, newErr(ErrNotWolfChannel, "")
			}
			m := models.ChatMessage{ID: 0, At: now, UserID: userID, Nickname: nickname, Channel: channel, Text: text}
			msg = &m
			var wolfIDs []string
			for _, wolfID := range e.wolfUserIDs(g) {
				e.bc.EmitUser(wolfID, "chat:new", m)
				wolfIDs = append(wolfIDs, wolfID.String())
			}
			return wolfIDs, nil

		default:
			return nil, newErr(ErrTargetInvalid, "unknown channel")
		}
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (e *Engine) wolfUserIDs(g *Game) []uuid.UUID {
	var ids []uuid.UUID
	for _, p := range g.Players {
		if p.Role == models.RoleWerewolf {
			ids = append(ids, p.UserID)
		}
	}
	return ids
}

// ListActiveGameIds is the read-only projection backing the Timer Pump's
// per-tick enumeration, spec §4.8.
func (e *Engine) ListActiveGameIds(ctx context.Context) ([]uuid.UUID, error) {
	members, err := e.ss.SMembers(ctx, activeGamesSet)
	if err != nil {
		return nil, newErr(ErrSnapshotUnavailable, err.Error())
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (e *Engine) GetGamePublicState(ctx context.Context, gameID uuid.UUID) (*GamePublic, error) {
	g, err := e.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	pub := projectPublic(g, e.nowMs())
	return &pub, nil
}

func (e *Engine) GetGamePrivateState(ctx context.Context, gameID, userID uuid.UUID) (*GamePrivate, error) {
	g, err := e.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	player := g.playerByUserID(userID)
	if player == nil {
		return nil, newErr(ErrNotInGame, "")
	}
	priv := projectPrivate(g, player)
	return &priv, nil
}

func (e *Engine) GetWolfUserIds(ctx context.Context, gameID uuid.UUID) ([]uuid.UUID, error) {
	g, err := e.loadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return e.wolfUserIDs(g), nil
}

func (e *Engine) GetVoiceTurnInfo(ctx context.Context, roomID, userID uuid.UUID) (*VoiceTurnInfo, error) {
	room, err := e.rr.GetRoom(ctx, roomID)
	if err != nil {
		return nil, newErr(ErrRoomNotFound, roomID.String())
	}
	if room.GameID == nil {
		return nil, newErr(ErrNotPlaying, "")
	}
	g, err := e.loadGame(ctx, *room.GameID)
	if err != nil {
		return nil, err
	}
	player := g.playerByUserID(userID)
	if player == nil {
		return nil, newErr(ErrNotInGame, "")
	}
	isSpeechPhase := g.Phase == models.PhaseDaySpeech || g.Phase == models.PhaseSheriffSpeech
	info := VoiceTurnInfo{
		GameID:            g.GameID,
		Phase:             g.Phase,
		IsSpeechPhase:     isSpeechPhase,
		ActiveSpeakerSeat: g.ActiveSpeakerSeat,
		Seat:              player.Seat,
		UserID:            userID,
	}
	if g.ActiveSpeakerSeat != nil {
		if sp := g.playerBySeat(*g.ActiveSpeakerSeat); sp != nil {
			info.ActiveSpeakerUserID = &sp.UserID
			info.IsCurrentSpeaker = sp.UserID == userID
		}
	}
	return &info, nil
}
