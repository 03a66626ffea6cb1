package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/duskfall/hollowvale/internal/broadcast"
	"github.com/duskfall/hollowvale/internal/config"
	"github.com/duskfall/hollowvale/internal/database"
	"github.com/duskfall/hollowvale/internal/game"
	"github.com/duskfall/hollowvale/internal/metrics"
	"github.com/duskfall/hollowvale/internal/middleware"
	"github.com/duskfall/hollowvale/internal/models"
	"github.com/duskfall/hollowvale/internal/store"
	"github.com/duskfall/hollowvale/internal/voice"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS policy governs origin checks; configured at the gin layer
	},
}

// Handler is the Request Adapter of spec §2's collaborator list: it fronts
// the Game Engine, Room Registry, and Broadcaster, translating HTTP/JSON and
// websocket frames into engine calls and never touching game state directly.
type Handler struct {
	db      *database.Database
	engine  *game.Engine
	rooms   *store.PostgresRoomRegistry
	replay  *store.PostgresReplayStore
	voice   *voice.Service
	hub     *broadcast.Hub
	metrics *metrics.Metrics
}

func NewHandler(db *database.Database, engine *game.Engine, rooms *store.PostgresRoomRegistry, replay *store.PostgresReplayStore, voiceSvc *voice.Service, hub *broadcast.Hub, m *metrics.Metrics) *Handler {
	return &Handler{db: db, engine: engine, rooms: rooms, replay: replay, voice: voiceSvc, hub: hub, metrics: m}
}

// ============================================================================
// ROOM HANDLERS
// ============================================================================

type createRoomRequest struct {
	Name       string            `json:"name" binding:"required"`
	MaxPlayers int               `json:"maxPlayers"`
	RoleConfig models.RoleConfig `json:"roleConfig"`
	Timers     models.Timers     `json:"timers"`
}

func (h *Handler) CreateRoom(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MaxPlayers == 0 {
		req.MaxPlayers = 12
	}
	if req.MaxPlayers < 6 || req.MaxPlayers > 24 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "maxPlayers must be between 6 and 24"})
		return
	}
	if !req.RoleConfig.Validate(req.MaxPlayers) {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(game.ErrInvalidRoleConfig)})
		return
	}

	room, err := h.rooms.CreateRoom(context.Background(), userID, req.Name, req.MaxPlayers, req.RoleConfig, req.Timers)
	if err != nil {
		log.Printf("❌ CreateRoom - %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}
	log.Printf("✓ CreateRoom - %s (%s) by %s", room.Name, room.RoomNumber, userID)
	c.JSON(http.StatusCreated, room)
}

func (h *Handler) GetRooms(c *gin.Context) {
	rooms, err := h.rooms.ListWaitingRooms(context.Background())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rooms"})
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (h *Handler) GetRoom(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("roomId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}
	room, err := h.rooms.GetRoom(context.Background(), roomID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": string(game.ErrRoomNotFound)})
		return
	}
	c.JSON(http.StatusOK, room)
}

type joinRoomRequest struct {
	RoomNumber string `json:"roomNumber" binding:"required"`
	Nickname   string `json:"nickname" binding:"required"`
}

func (h *Handler) JoinRoom(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)

	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := context.Background()
	existing, err := h.rooms.GetRoomByNumber(ctx, req.RoomNumber)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": string(game.ErrRoomNotFound)})
		return
	}

	room, err := h.rooms.JoinRoom(ctx, existing.ID, userID, req.Nickname)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.hub.EmitRoom(room.ID, "room:state", room)
	c.JSON(http.StatusOK, room)
}

func (h *Handler) LeaveRoom(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)
	roomID, err := uuid.Parse(c.Param("roomId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	ctx := context.Background()
	if err := h.rooms.LeaveRoom(ctx, roomID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to leave room"})
		return
	}
	room, err := h.rooms.GetRoom(ctx, roomID)
	if err == nil {
		h.hub.EmitRoom(roomID, "room:state", room)
	}
	c.JSON(http.StatusOK, gin.H{"message": "left room"})
}

func (h *Handler) SetReady(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)
	roomID, err := uuid.Parse(c.Param("roomId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	var req struct {
		Ready bool `json:"ready"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := context.Background()
	if err := h.rooms.SetReady(ctx, roomID, userID, req.Ready); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update ready status"})
		return
	}
	room, err := h.rooms.GetRoom(ctx, roomID)
	if err == nil {
		h.hub.EmitRoom(roomID, "room:state", room)
	}
	c.JSON(http.StatusOK, gin.H{"ready": req.Ready})
}

// StartGame transitions a waiting room into a running game, spec §4.2's
// startGame operation. Broadcasting the resulting game:state is the engine's
// own responsibility once the game begins.
func (h *Handler) StartGame(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)
	roomID, err := uuid.Parse(c.Param("roomId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	room, pub, err := h.engine.StartGame(context.Background(), roomID, userID)
	if err != nil {
		h.writeGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"roomId": room.ID, "gamePublic": pub})
}

// ============================================================================
// GAME HANDLERS
// ============================================================================

func (h *Handler) GetGamePublicState(c *gin.Context) {
	gameID, err := uuid.Parse(c.Param("gameId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game id"})
		return
	}
	pub, err := h.engine.GetGamePublicState(context.Background(), gameID)
	if err != nil {
		h.writeGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, pub)
}

func (h *Handler) GetGamePrivateState(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)
	gameID, err := uuid.Parse(c.Param("gameId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game id"})
		return
	}
	priv, err := h.engine.GetGamePrivateState(context.Background(), gameID, userID)
	if err != nil {
		h.writeGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, priv)
}

type submitActionRequest struct {
	Type    game.ActionType `json:"type" binding:"required"`
	Payload json.RawMessage `json:"payload"`
}

// decodeActionPayload unmarshals the raw JSON payload into the concrete
// struct submitAction's dispatch table type-asserts against (spec §9's
// tagged union, actions.go's variant list).
func decodeActionPayload(req submitActionRequest) (interface{}, error) {
	var payload interface{}
	switch req.Type {
	case game.ActionNightWolfKill:
		payload = &game.NightWolfKillPayload{}
	case game.ActionNightSeerCheck:
		payload = &game.NightSeerCheckPayload{}
	case game.ActionNightGuardProtect:
		payload = &game.NightGuardProtectPayload{}
	case game.ActionNightWitchSave:
		payload = &game.NightWitchSavePayload{}
	case game.ActionNightWitchPoison:
		payload = &game.NightWitchPoisonPayload{}
	case game.ActionSheriffEnroll:
		payload = &game.SheriffEnrollPayload{}
	case game.ActionSheriffQuit:
		payload = &game.SheriffQuitPayload{}
	case game.ActionSheriffVote:
		payload = &game.SheriffVotePayload{}
	case game.ActionGameNextSpeaker:
		payload = &game.GameNextSpeakerPayload{}
	case game.ActionDayVote:
		payload = &game.DayVotePayload{}
	case game.ActionSettlementHunterShoot:
		payload = &game.SettlementHunterShootPayload{}
	default:
		return nil, fmt.Errorf("unknown action type %q", req.Type)
	}
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, payload); err != nil {
			return nil, err
		}
	}
	return derefPayload(payload), nil
}

// derefPayload returns the pointed-to value, matching the value-typed
// assertions (e.g. action.Payload.(DayVotePayload)) in the engine's dispatch
// arms.
func derefPayload(p interface{}) interface{} {
	switch v := p.(type) {
	case *game.NightWolfKillPayload:
		return *v
	case *game.NightSeerCheckPayload:
		return *v
	case *game.NightGuardProtectPayload:
		return *v
	case *game.NightWitchSavePayload:
		return *v
	case *game.NightWitchPoisonPayload:
		return *v
	case *game.SheriffEnrollPayload:
		return *v
	case *game.SheriffQuitPayload:
		return *v
	case *game.SheriffVotePayload:
		return *v
	case *game.GameNextSpeakerPayload:
		return *v
	case *game.DayVotePayload:
		return *v
	case *game.SettlementHunterShootPayload:
		return *v
	default:
		return p
	}
}

func (h *Handler) SubmitAction(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)
	roomID, err := uuid.Parse(c.Param("roomId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	var req submitActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payload, err := decodeActionPayload(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(game.ErrTargetInvalid)})
		return
	}

	result, err := h.engine.SubmitAction(context.Background(), roomID, userID, game.SubmittedAction{Type: req.Type, Payload: payload})
	if err != nil {
		h.writeGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, result.GamePublic)
}

// PollGame is the polling fallback spec §5's "BC emit failure" note
// describes: clients that missed a broadcast call this idempotently to
// re-drive advanceGameOnTimeout.
func (h *Handler) PollGame(c *gin.Context) {
	gameID, err := uuid.Parse(c.Param("gameId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game id"})
		return
	}
	result, err := h.engine.AdvanceGameOnTimeout(context.Background(), gameID)
	if err != nil {
		h.writeGameError(c, err)
		return
	}
	if result == nil {
		pub, err := h.engine.GetGamePublicState(context.Background(), gameID)
		if err != nil {
			h.writeGameError(c, err)
			return
		}
		c.JSON(http.StatusOK, pub)
		return
	}
	c.JSON(http.StatusOK, result.GamePublic)
}

type sendChatRequest struct {
	Nickname string             `json:"nickname" binding:"required"`
	Text     string             `json:"text" binding:"required"`
	Channel  models.ChatChannel `json:"channel" binding:"required"`
}

func (h *Handler) SendChat(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)
	roomID, err := uuid.Parse(c.Param("roomId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	var req sendChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.engine.AppendChat(context.Background(), roomID, userID, req.Nickname, req.Text, req.Channel)
	if err != nil {
		h.writeGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// GetGameHistory returns the caller's own completed-game replay archive,
// spec §2.3's Replay Store queried by owning user-id.
func (h *Handler) GetGameHistory(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)
	replays, err := h.replay.ListReplaysForUser(context.Background(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
		return
	}
	c.JSON(http.StatusOK, replays)
}

// ============================================================================
// VOICE HANDLERS
// ============================================================================

func (h *Handler) GetVoiceToken(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)
	roomID, err := uuid.Parse(c.Param("roomId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}
	var req struct {
		UID uint32 `json:"uid"`
	}
	_ = c.ShouldBindJSON(&req)

	token, turn, err := h.voice.IssueToken(context.Background(), roomID, userID, req.UID)
	if err != nil {
		h.writeGameError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "appId": h.voice.GetAppID(), "turn": turn})
}

type relaySignalRequest struct {
	ToUserID   uuid.UUID       `json:"toUserId" binding:"required"`
	SignalType string          `json:"signalType" binding:"required"`
	Payload    json.RawMessage `json:"payload"`
}

// RelaySignal is spec §6.7's signal relay: every offer/answer/candidate
// passes through AuthorizeSignal before reaching the other peer, so a
// non-speaker can never originate an offer and an answer/candidate can
// never skip the active speaker entirely.
func (h *Handler) RelaySignal(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)
	roomID, err := uuid.Parse(c.Param("roomId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	var req relaySignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := context.Background()
	if err := h.voice.AuthorizeSignal(ctx, roomID, userID, req.ToUserID, req.SignalType); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	}

	h.hub.EmitUser(req.ToUserID, "webrtc:signal", gin.H{
		"fromUserId": userID,
		"signalType": req.SignalType,
		"payload":    req.Payload,
	})
	c.JSON(http.StatusOK, gin.H{"status": "relayed"})
}

// ============================================================================
// WEBSOCKET HANDLER
// ============================================================================

// HandleWebSocket upgrades to a room+user dual-channel subscription; clients
// never mutate state over this socket, only read broadcasts (spec §6.3).
func (h *Handler) HandleWebSocket(c *gin.Context) {
	userIDVal, exists := c.Get("user_id")
	var userID uuid.UUID
	if !exists {
		tokenString := c.Query("token")
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		cfg, err := config.Load()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load configuration"})
			return
		}
		claims, err := middleware.ValidateToken(tokenString, cfg.JWT.Secret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		userID = claims.UserID
	} else {
		userID = userIDVal.(uuid.UUID)
	}

	roomID, err := uuid.Parse(c.Query("roomId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := broadcast.NewClient(h.hub, conn, roomID, userID)
	client.Register()
	go client.WritePump()
	go client.ReadPump()
}

// ============================================================================
// ERROR MAPPING
// ============================================================================

// writeGameError maps the engine's closed ErrCode taxonomy (spec §7) onto
// HTTP status, so a toast-displaying client never has to parse prose. It
// also drives the actions-rejected counter so submitAction's error rate is
// visible on the metrics surface, not just its logs.
func (h *Handler) writeGameError(c *gin.Context, err error) {
	gerr, ok := err.(*game.GameError)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if h.metrics != nil {
		h.metrics.ActionsRejected.WithLabelValues(string(gerr.Code)).Inc()
	}

	status := http.StatusBadRequest
	switch gerr.Code {
	case game.ErrRoomNotFound, game.ErrGameNotFound:
		status = http.StatusNotFound
	case game.ErrOnlyOwnerMayStart, game.ErrOnlyOwnerMayConfig, game.ErrNotWolfChannel, game.ErrNotYourTurn:
		status = http.StatusForbidden
	case game.ErrSnapshotUnavailable, game.ErrDBUnavailable:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"code": gerr.Code, "error": gerr.Message})
}
