package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"crm-updater/internal/config"
	"crm-updater/internal/database"
	"crm-updater/internal/logging"
	"crm-updater/internal/manager"
	"crm-updater/internal/models"
	"crm-updater/internal/updater"
)

// Global flags.
var (
	cfgFile  string
	dbPath   string
	logLevel string
	dryRun   bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "updaterctl",
		Short: "CRM demo-data updater control",
		Long: `updaterctl drives the CRM database updater directly: it schedules
and runs the synthetic-data generators (business record activity,
service tickets, new leads) against the configured tenant's store,
and inspects their status, metrics, and logs.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file")
	cmd.PersistentFlags().StringVar(&dbPath, "database", "", "sqlite database path (overrides config)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(newStartCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newExecuteCmd())
	cmd.AddCommand(newTestCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())

	return cmd
}

// buildManager loads config, opens the store, and wires a manager the
// way the server's composition root does.
func buildManager() (*manager.Manager, *gorm.DB, error) {
	godotenv.Load()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := database.AutoMigrate(
		&models.BusinessRecord{},
		&models.BusinessRecordActivity{},
		&models.ServiceTicket{},
	); err != nil {
		return nil, nil, fmt.Errorf("migrating database: %w", err)
	}

	appLog := logging.New(logging.Options{
		Level:       logging.ParseLevel(cfg.Logging.Level),
		Dir:         cfg.Logging.Dir,
		Console:     cfg.Logging.Console,
		File:        cfg.Logging.File,
		MaxFileSize: int64(cfg.Logging.MaxFileSizeMB) * 1024 * 1024,
		MaxFiles:    cfg.Logging.MaxFiles,
	})

	var overrides *updater.Overrides
	if cfg.Updater.TenantID != "" || cfg.Updater.CustomerID != "" {
		overrides = &updater.Overrides{}
		if cfg.Updater.TenantID != "" {
			overrides.TenantID = &cfg.Updater.TenantID
		}
		if cfg.Updater.CustomerID != "" {
			overrides.CustomerID = &cfg.Updater.CustomerID
		}
	}

	mgr, err := manager.New(db, manager.Options{
		Overrides: overrides,
		DryRun:    dryRun || cfg.Updater.DryRun,
		Logger:    appLog,
	})
	if err != nil {
		return nil, nil, err
	}
	return mgr, db, nil
}

// buildMemoryManager wires a manager against a throwaway in-memory
// store seeded with one business record, so dry runs work without
// touching the real database.
func buildMemoryManager() (*manager.Manager, *gorm.DB, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	db, err := database.ConnectMemory()
	if err != nil {
		return nil, nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	if err := database.AutoMigrate(
		&models.BusinessRecord{},
		&models.BusinessRecordActivity{},
		&models.ServiceTicket{},
	); err != nil {
		return nil, nil, fmt.Errorf("migrating database: %w", err)
	}

	appLog := logging.New(logging.Options{Level: logging.LevelWarn, Console: true})

	var overrides *updater.Overrides
	if cfg.Updater.TenantID != "" || cfg.Updater.CustomerID != "" {
		overrides = &updater.Overrides{}
		if cfg.Updater.TenantID != "" {
			overrides.TenantID = &cfg.Updater.TenantID
		}
		if cfg.Updater.CustomerID != "" {
			overrides.CustomerID = &cfg.Updater.CustomerID
		}
	}

	mgr, err := manager.New(db, manager.Options{
		Overrides: overrides,
		DryRun:    true,
		Logger:    appLog,
	})
	if err != nil {
		return nil, nil, err
	}

	seed := &models.BusinessRecord{
		ID:       updater.NewID(),
		TenantID: mgr.Config().TenantID,
		Name:     "Sample Account",
		Status:   "customer",
	}
	if err := db.Create(seed).Error; err != nil {
		return nil, nil, fmt.Errorf("seeding in-memory store: %w", err)
	}
	return mgr, db, nil
}
