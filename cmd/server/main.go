package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yukikurage/team-task-api/internal/config"
	"github.com/yukikurage/team-task-api/internal/database"
	"github.com/yukikurage/team-task-api/internal/logger"
	"github.com/yukikurage/team-task-api/internal/repository"
	"github.com/yukikurage/team-task-api/internal/router"
	"github.com/yukikurage/team-task-api/internal/services"
	"github.com/yukikurage/team-task-api/internal/tokens"
	"github.com/yukikurage/team-task-api/internal/validation"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Dev:    cfg.LogDev,
		File:   cfg.LogFile,
		MaxAge: cfg.LogMaxAge,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()
	zap.ReplaceGlobals(zlog)

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.GinMode)
	validation.Register()

	// Connect to database
	if err := database.Connect(cfg, zlog); err != nil {
		return err
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(database.GetDB(), zlog); err != nil {
		return err
	}

	store := repository.NewStore(database.GetDB())
	issuer := tokens.NewIssuer(tokens.Config{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	hasher := services.NewBcryptHasher(cfg.BcryptCost)
	sessionManager := services.NewSessionManager(store, issuer, cfg.MaxSessionsPerUser, zlog)
	authService := services.NewAuthService(store, sessionManager, hasher, cfg.AllowAdminSignup, zlog)

	if cfg.BootstrapAdmin() {
		created, err := authService.BootstrapAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return err
		}
		if !created {
			zlog.Debug("admin account already present")
		}
	}

	violations, err := services.NewConsistencyChecker(store).Verify(ctx)
	if err != nil {
		return err
	}
	for _, v := range violations {
		zlog.Warn("team reference inconsistency", zap.Stringer("violation", v))
	}

	sessionStore, err := router.NewSessionStore(cfg)
	if err != nil {
		return err
	}

	engine := router.New(router.Deps{
		Auth:         authService,
		Sessions:     sessionManager,
		Tasks:        services.NewTaskService(store),
		Teams:        services.NewTeamService(store, zlog),
		Users:        services.NewUserService(store, hasher, zlog),
		SessionStore: sessionStore,
		Cookie:       router.CookieOptions(cfg),
		Log:          zlog,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
