package main

import (
	"fmt"
	"os"

	"github.com/indyforge/groupindustry/internal/config"
	"github.com/indyforge/groupindustry/internal/models"
	"github.com/indyforge/groupindustry/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "industryctl",
	Short: "Operate group industry projects from the command line",
	Long: `industryctl reads the same configuration as the API server and works
directly against its database: payout tables, BOM exports, price refreshes
and access tokens.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logLevel)
		// stdout carries command output (tokens, JSON).
		logger.SetOutput(os.Stderr)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", os.Getenv("CONFIG_PATH"), "config file (default is config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "loglevel", "l", "warn", "Set log level. Available: debug, info, warn, error")
}

// loadConfig reads the config and opens the database without migrating it.
func loadConfig() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := models.Open(&cfg.Database, gormlogger.Silent)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
