package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/noeralma/procure-flow-organize-sub000/internal/permission"
	permissionPostgres "github.com/noeralma/procure-flow-organize-sub000/internal/permission/postgres"
	"github.com/noeralma/procure-flow-organize-sub000/pkg/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var sweeperCmd = &cobra.Command{
	Use:   "sweeper",
	Short: "Start the permission expiry sweeper",
	Long:  `Run the scheduled sweep that transitions stale APPROVED permissions to EXPIRED.`,
	Run: func(cmd *cobra.Command, args []string) {
		startSweeper()
	},
}

func startSweeper() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(os.Getenv("APP_ENV"))
	appLogger := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	gormDB, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize gorm: %v\n", err)
		os.Exit(1)
	}

	// the sweep only touches the ledger; no directories or bus needed
	repo := permissionPostgres.NewPermissionRepository(gormDB)
	service := permission.NewService(repo, nil, nil, nil, config.Permission.GrantDuration, appLogger)

	scheduler := cron.New()
	_, err = scheduler.AddFunc(config.Permission.SweepSchedule, func() {
		count, err := service.CleanupExpiredPermissions()
		if err != nil {
			appLogger.Error("permission sweep failed", "error", err)
			return
		}
		if count > 0 {
			appLogger.Info("permission sweep completed", "expired_count", count)
		}
	})
	if err != nil {
		appLogger.Error("invalid sweep schedule", "schedule", config.Permission.SweepSchedule, "error", err)
		os.Exit(1)
	}

	appLogger.Info("permission sweeper started",
		"schedule", config.Permission.SweepSchedule,
		"grant_duration", config.Permission.GrantDuration)

	scheduler.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	appLogger.Info("received signal, shutting down sweeper", "signal", sig)

	ctx := scheduler.Stop()
	<-ctx.Done()
	appLogger.Info("sweeper shutdown complete")
}
