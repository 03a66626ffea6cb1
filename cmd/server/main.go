package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/duskfall/hollowvale/internal/api"
	"github.com/duskfall/hollowvale/internal/broadcast"
	"github.com/duskfall/hollowvale/internal/config"
	"github.com/duskfall/hollowvale/internal/database"
	"github.com/duskfall/hollowvale/internal/game"
	"github.com/duskfall/hollowvale/internal/metrics"
	"github.com/duskfall/hollowvale/internal/middleware"
	"github.com/duskfall/hollowvale/internal/scheduler"
	"github.com/duskfall/hollowvale/internal/store"
	"github.com/duskfall/hollowvale/internal/voice"
)

func main() {
	_ = godotenv.Load("../../.env")
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("✓ Connected to database")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	// Collaborator adapters, spec §6.
	snapshotStore := store.NewRedisSnapshotStore(db.Redis)
	roomRegistry := store.NewPostgresRoomRegistry(db.PG)
	replayStore := store.NewPostgresReplayStore(db.PG)
	hub := broadcast.NewHub(m)
	go hub.Run()
	log.Println("✓ Broadcaster hub started")

	engine := game.NewEngine(snapshotStore, roomRegistry, hub, replayStore, game.NewRNG(time.Now().UnixNano()))
	voiceService := voice.NewService(engine, &cfg.Agora)

	pump := scheduler.NewPump(engine, cfg.Game.TickInterval, m)
	go pump.Run(ctx)
	log.Println("✓ Timer Pump started")

	go runWaitingRoomSweep(ctx, roomRegistry, hub, cfg.Game.WaitingRoomExpiry)

	handler := api.NewHandler(db, engine, roomRegistry, replayStore, voiceService, hub, m)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		if err := db.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	public := router.Group("/api/v1")
	{
		public.POST("/auth/register", handler.Register)
		public.POST("/auth/login", handler.Login)
		public.POST("/auth/refresh", handler.RefreshToken)
		public.GET("/rooms", handler.GetRooms)
		public.GET("/ws", handler.HandleWebSocket)
	}

	protected := router.Group("/api/v1")
	protected.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		protected.GET("/users/me", handler.GetCurrentUser)

		protected.POST("/rooms", handler.CreateRoom)
		protected.POST("/rooms/join", handler.JoinRoom)
		protected.GET("/rooms/:roomId", handler.GetRoom)
		protected.POST("/rooms/:roomId/start", handler.StartGame)
		protected.POST("/rooms/:roomId/leave", handler.LeaveRoom)
		protected.POST("/rooms/:roomId/ready", handler.SetReady)
		protected.POST("/rooms/:roomId/action", handler.SubmitAction)
		protected.POST("/rooms/:roomId/chat", handler.SendChat)
		protected.GET("/rooms/:roomId/voice-token", handler.GetVoiceToken)
		protected.POST("/rooms/:roomId/signal", handler.RelaySignal)

		protected.GET("/games/:gameId/public", handler.GetGamePublicState)
		protected.GET("/games/:gameId/private", handler.GetGamePrivateState)
		protected.POST("/games/:gameId/poll", handler.PollGame)
		protected.GET("/games/history", handler.GetGameHistory)
	}

	// Metrics surface, spec SPEC_FULL.md's DOMAIN STACK prometheus entry.
	metricsRouter := http.NewServeMux()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		log.Printf("✓ Metrics listening on %s", cfg.Game.MetricsAddress)
		if err := http.ListenAndServe(cfg.Game.MetricsAddress, metricsRouter); err != nil && err != http.ErrServerClosed {
			log.Printf("⚠️  Metrics server error: %v", err)
		}
	}()

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server starting on %s", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel()
	pump.Stop()
	hub.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited gracefully")
}

// runWaitingRoomSweep periodically closes abandoned waiting rooms, spec.md
// §3's 120-second lifecycle note (SPEC_FULL.md's SUPPLEMENTED FEATURES),
// grounded on the teacher's LifecycleManager.Start ticker loop.
func runWaitingRoomSweep(ctx context.Context, rooms *store.PostgresRoomRegistry, hub *broadcast.Hub, expiry time.Duration) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := rooms.SweepExpiredWaitingRooms(ctx, expiry)
			if err != nil {
				log.Printf("⚠️  waiting-room sweep failed: %v", err)
				continue
			}
			for _, roomID := range swept {
				hub.EmitRoom(roomID, "room:dissolved", nil)
			}
		}
	}
}
