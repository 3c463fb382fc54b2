package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gasy-hub-backend/internal/config"
	"gasy-hub-backend/internal/database"
	"gasy-hub-backend/internal/handlers"
	"gasy-hub-backend/internal/middleware"
	"gasy-hub-backend/internal/repository"
	"gasy-hub-backend/internal/repository/memory"
	"gasy-hub-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// stores groups the repositories the services run on
type stores struct {
	users    services.UserStore
	alerts   services.AlertStore
	comments services.CommentStore
	audit    services.AuditStore
}

func Run() {
	configPath := os.Getenv("GASY_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	ctx := context.Background()

	// Initialize repositories
	var repos stores
	switch cfg.Database.Driver {
	case "memory":
		store := memory.New()
		repos = stores{users: store.Users(), alerts: store.Alerts(), comments: store.Comments(), audit: store.Audit()}
		log.Warn().Msg("Using in-memory store, data is lost on restart")
	default:
		db, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()
		log.Info().Msg("Database connection established")

		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply schema")
		}

		repos = stores{
			users:    repository.NewUserRepository(db),
			alerts:   repository.NewAlertRepository(db),
			comments: repository.NewCommentRepository(db),
			audit:    repository.NewAuditRepository(db),
		}
	}

	// Initialize services
	policy := services.Policy{
		ConfirmThreshold:    cfg.Alerts.ConfirmThreshold,
		FakeThreshold:       cfg.Alerts.FakeThreshold,
		AllowResolvePending: *cfg.Alerts.AllowResolvePending,
		AutoConfirmVerified: cfg.Alerts.AutoConfirmVerified,
	}
	userService := services.NewUserService(repos.users, cfg.JWT.Secret, cfg.Accounts.AdminPhones)
	alertService := services.NewAlertService(repos.alerts, repos.users, repos.audit, policy)
	commentService := services.NewCommentService(repos.comments, repos.alerts, repos.users)

	mediaService, err := services.NewMediaService(ctx, services.MediaOptions{
		Region:     cfg.AWS.Region,
		Bucket:     cfg.AWS.S3Bucket,
		AccessKey:  cfg.AWS.AccessKey,
		SecretKey:  cfg.AWS.SecretKey,
		Endpoint:   cfg.AWS.Endpoint,
		DisableSSL: cfg.AWS.DisableSSL,
		MaxFiles:   cfg.AWS.MaxFiles,
		MaxBytes:   cfg.AWS.MaxFileMB << 20,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create media service")
	}
	if !mediaService.Enabled() {
		log.Warn().Msg("No S3 bucket configured, media uploads are disabled")
	}

	var pushService *services.PushService
	if cfg.APNs.KeyFile != "" {
		pushService, err = services.NewPushService(services.PushOptions{
			KeyFile:    cfg.APNs.KeyFile,
			KeyID:      cfg.APNs.KeyID,
			TeamID:     cfg.APNs.TeamID,
			Topic:      cfg.APNs.Topic,
			Production: cfg.APNs.Production,
			Timeout:    cfg.APNs.Timeout,
		}, repos.users)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create push service")
		}
		log.Info().Bool("production", cfg.APNs.Production).Msg("APNs push enabled")
	}

	wsHub := services.NewWSHub(services.WSHubOptions{
		SendBuffer:   cfg.WebSocket.SendBuffer,
		WriteTimeout: cfg.WebSocket.WriteTimeout,
		PingInterval: cfg.WebSocket.PongTimeout * 9 / 10,
	})

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	alertHandler := handlers.NewAlertHandler(alertService, mediaService, wsHub, pushService, handlers.Paging{
		DefaultLimit: cfg.Alerts.PageSize,
		MaxLimit:     cfg.Alerts.MaxPageSize,
	})
	commentHandler := handlers.NewCommentHandler(commentService)
	wsHandler := handlers.NewWebSocketHandler(wsHub, userService, cfg.WebSocket.PongTimeout)

	r := newRouter(userService, userHandler, alertHandler, commentHandler, wsHandler)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("driver", cfg.Database.Driver).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by Shutdown
	wsHub.Close()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func newRouter(
	userService *services.UserService,
	userHandler *handlers.UserHandler,
	alertHandler *handlers.AlertHandler,
	commentHandler *handlers.CommentHandler,
	wsHandler *handlers.WebSocketHandler,
) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Routes
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/users", userHandler.CreateUser)
		r.Post("/auth/login", userHandler.Login)
		r.Get("/alerts", alertHandler.ListAlerts)
		r.Get("/alerts/{id}", alertHandler.GetAlert)
		r.Get("/alerts/{id}/comments", commentHandler.ListComments)
		r.Get("/alerts/{id}/media", alertHandler.GetMedia)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(userService))
			r.Get("/users/me", userHandler.Me)
			r.Put("/users/me/push-token", userHandler.UpdatePushToken)
			r.Post("/alerts", alertHandler.CreateAlert)
			r.Post("/alerts/{id}/validate", alertHandler.ValidateAlert)
			r.Get("/alerts/{id}/validate", alertHandler.GetVoteStatus)
			r.Put("/alerts/{id}/status", alertHandler.UpdateStatus)
			r.Patch("/alerts/{id}/status", alertHandler.UpdateStatus)
			r.Post("/alerts/{id}/comments", commentHandler.CreateComment)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/alerts/{id}/audit", alertHandler.GetAuditTrail)
				r.Delete("/alerts/{id}", alertHandler.DeleteAlert)
				r.Put("/users/{id}/verify", userHandler.Verify)
			})
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	return r
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
