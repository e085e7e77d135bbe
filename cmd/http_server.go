package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/noeralma/procure-flow-organize-sub000/internal"
	"github.com/noeralma/procure-flow-organize-sub000/internal/auth"
	authPostgres "github.com/noeralma/procure-flow-organize-sub000/internal/auth/postgres"
	"github.com/noeralma/procure-flow-organize-sub000/internal/core/events"
	"github.com/noeralma/procure-flow-organize-sub000/internal/pengadaan"
	pengadaanPostgres "github.com/noeralma/procure-flow-organize-sub000/internal/pengadaan/postgres"
	"github.com/noeralma/procure-flow-organize-sub000/internal/permission"
	permissionPostgres "github.com/noeralma/procure-flow-organize-sub000/internal/permission/postgres"
	"github.com/noeralma/procure-flow-organize-sub000/internal/transport/rest"
	"github.com/noeralma/procure-flow-organize-sub000/internal/user"
	userPostgres "github.com/noeralma/procure-flow-organize-sub000/internal/user/postgres"
	"github.com/noeralma/procure-flow-organize-sub000/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config            *internal.Config
	DB                *sqlx.DB
	GormDB            *gorm.DB
	Router            *chi.Mux
	Logger            *slog.Logger
	AuthHandler       *auth.Handler
	UserHandler       *user.Handler
	PengadaanHandler  *pengadaan.Handler
	PermissionHandler *permission.Handler
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	rest.RegisterAllRoutes(deps.Router, deps.DB.DB,
		deps.AuthHandler, deps.UserHandler, deps.PengadaanHandler, deps.PermissionHandler,
		deps.Logger)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	appLogger := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// gorm shares the pgx connection pool opened through sqlx
	gormDB, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	eventBus := events.NewEventBus(appLogger)
	registerEventLogging(eventBus, appLogger)

	// auth + user
	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authRepo := authPostgres.NewRepository(gormDB)
	authService := auth.NewService(authRepo, tokenGen)
	authHandler := auth.NewHandler(authService)

	userRepo := userPostgres.NewUserRepository(gormDB)
	userService := user.NewService(userRepo)
	userHandler := user.NewHandler(userService)

	// permission workflow; the pengadaan directory is attached after the
	// pengadaan service exists because the two services reference each other
	permissionRepo := permissionPostgres.NewPermissionRepository(gormDB)
	permissionService := permission.NewService(
		permissionRepo, userService, nil, eventBus,
		config.Permission.GrantDuration, appLogger)
	permissionHandler := permission.NewHandler(permissionService)

	gate := permission.NewGate(permissionService, appLogger)

	pengadaanRepo := pengadaanPostgres.NewPengadaanRepository(gormDB)
	pengadaanService := pengadaan.NewService(pengadaanRepo, gate, eventBus, appLogger)
	pengadaanHandler := pengadaan.NewHandler(pengadaanService)

	permissionService.SetPengadaanDirectory(pengadaanService)

	return &Dependencies{
		Config:            config,
		Logger:            appLogger,
		DB:                db,
		GormDB:            gormDB,
		Router:            chi.NewRouter(),
		AuthHandler:       authHandler,
		UserHandler:       userHandler,
		PengadaanHandler:  pengadaanHandler,
		PermissionHandler: permissionHandler,
	}, nil
}

// registerEventLogging subscribes audit logging for workflow events.
func registerEventLogging(bus *events.EventBus, appLogger *slog.Logger) {
	logEvent := func(ctx context.Context, event events.Event) error {
		appLogger.Info("workflow event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	}

	bus.Subscribe(events.EventTypePermissionRequested, logEvent)
	bus.Subscribe(events.EventTypePermissionResponded, logEvent)
	bus.Subscribe(events.EventTypePermissionRevoked, logEvent)
	bus.Subscribe(events.EventTypePengadaanSubmitted, logEvent)
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
