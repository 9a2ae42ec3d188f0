package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"ledger_backend/internal/config"
	"ledger_backend/internal/database"
	"ledger_backend/internal/events"
	"ledger_backend/internal/middleware"
	"ledger_backend/internal/repositories"
	"ledger_backend/internal/repositories/memstore"
	"ledger_backend/internal/router"
	"ledger_backend/internal/services"
	"ledger_backend/pkg/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.InitLogger("info", true)
		utils.LogError(err, "Invalid configuration")
		os.Exit(1)
	}
	utils.InitLogger(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		utils.LogError(err, "Failed to open store")
		os.Exit(1)
	}
	defer closeStore()

	publisher := openPublisher(cfg)
	defer publisher.Close()

	tokens := services.NewTokenService(store.Tokens, store.Users, services.TokenConfig{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	})
	authService := services.NewAuthService(store.Users, tokens)
	ledgerService := services.NewLedgerService(store.Customers, store.Payments, services.WithPublisher(publisher))

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(utils.GinLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	corsConfig.AllowCredentials = true
	engine.Use(cors.New(corsConfig))

	var limiter *middleware.IPRateLimiter
	if cfg.SignInRate > 0 {
		limiter = middleware.NewIPRateLimiter(cfg.SignInRate, cfg.SignInBurst)
	}
	router.Setup(engine, router.Deps{
		Auth:          authService,
		Tokens:        tokens,
		Ledger:        ledgerService,
		RequireAuth:   cfg.RequireAuth,
		SignInLimiter: limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		utils.LogInfo("Server starting", map[string]interface{}{
			"port":         cfg.Port,
			"store":        cfg.StoreDriver,
			"token_store":  cfg.TokenStore,
			"require_auth": cfg.RequireAuth,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.LogError(err, "Failed to start server")
			stop()
		}
	}()

	<-ctx.Done()
	utils.LogInfo("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.LogError(err, "Server forced to shut down")
	}
}

// openStore builds the repositories for the configured drivers and returns a
// cleanup func releasing their connections.
func openStore(ctx context.Context, cfg *config.Config) (*repositories.Store, func(), error) {
	var (
		store   *repositories.Store
		closers []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		utils.LogWarn(nil, "Using the in-memory store; data is lost on restart")
		store = memstore.New().Store()
	default:
		db, err := database.Open(ctx, cfg.PostgresDSN(), database.Options{MaxOpenConns: cfg.DBMaxOpenConns})
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = db.Close() })
		if cfg.DBApplySchema {
			if err := database.ApplySchema(ctx, db); err != nil {
				cleanup()
				return nil, nil, err
			}
		}
		store = repositories.NewPostgresStore(db)
		utils.LogInfo("Database initialized", map[string]interface{}{"schema_applied": cfg.DBApplySchema})
	}

	if cfg.TokenStore == config.TokenStoreRedis {
		client, err := repositories.NewRedisClient(ctx, cfg.RedisURL, cfg.RedisAddr)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = client.Close() })
		store.Tokens = repositories.NewRedisTokenRepository(client)
		utils.LogInfo("Token records stored in Redis")
	}

	return store, cleanup, nil
}

func openPublisher(cfg *config.Config) events.Publisher {
	if cfg.NATSURL == "" {
		return events.NopPublisher{}
	}
	publisher, err := events.ConnectNATS(cfg.NATSURL, cfg.NATSSubjectPrefix)
	if err != nil {
		utils.LogWarn(err, "NATS unavailable, ledger events disabled")
		return events.NopPublisher{}
	}
	utils.LogInfo("Publishing ledger events to NATS", map[string]interface{}{"url": cfg.NATSURL})
	return publisher
}
