package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sqptrack/internal/config"
	sqperrors "sqptrack/internal/errors"
	"sqptrack/internal/logging"
	"sqptrack/internal/paths"
	"sqptrack/internal/products"
	"sqptrack/internal/spapi"
	"sqptrack/internal/store"
)

var (
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize sqptrack in the current directory",
	Long:  "Creates a .sqptrack/ directory with default configuration, an empty product registry, and the tracking database",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Force reinitialization (removes existing .sqptrack directory)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	logger := logging.NewLogger(logging.Config{
		Format: "human",
		Level:  "info",
	})

	cwd, err := os.Getwd()
	if err != nil {
		return sqperrors.NewSqpError(sqperrors.InternalError, "failed to get current directory", err, nil)
	}

	if paths.Initialized(cwd) {
		if !initForce {
			// Idempotent behavior: already initialized is success (CI-friendly)
			fmt.Println("sqptrack already initialized.")
			fmt.Printf("Configuration at: %s\n", paths.ConfigPath(cwd))
			fmt.Println("\nRun 'sqptrack init --force' to reinitialize.")
			return nil
		}
		if removeErr := os.RemoveAll(paths.StateDir(cwd)); removeErr != nil {
			return sqperrors.NewSqpError(sqperrors.InternalError, "failed to remove existing .sqptrack directory", removeErr, nil)
		}
		logger.Info("Removed existing .sqptrack directory", nil)
	}

	if mkdirErr := paths.EnsureStateDir(cwd); mkdirErr != nil {
		return sqperrors.NewSqpError(sqperrors.InternalError, "failed to create .sqptrack directory", mkdirErr, nil)
	}

	if saveErr := config.DefaultConfig().Save(cwd); saveErr != nil {
		return sqperrors.NewSqpError(sqperrors.ConfigError, "failed to write config file", saveErr, nil)
	}
	if saveErr := spapi.DefaultConfig().Save(cwd); saveErr != nil {
		return sqperrors.NewSqpError(sqperrors.ConfigError, "failed to write spapi.toml", saveErr, nil)
	}
	if regErr := products.CreateEmptyRegistry(cwd); regErr != nil {
		return sqperrors.NewSqpError(sqperrors.InternalError, "failed to write PRODUCTS.toml", regErr, nil)
	}

	// Opening the store creates the schema
	db, err := store.Open(cwd, logger)
	if err != nil {
		return sqperrors.NewSqpError(sqperrors.InternalError, "failed to create tracking database", err, nil)
	}
	if closeErr := db.Close(); closeErr != nil {
		return sqperrors.NewSqpError(sqperrors.InternalError, "failed to close tracking database", closeErr, nil)
	}

	logger.Info("sqptrack initialized successfully", map[string]interface{}{
		"config_path": paths.ConfigPath(cwd),
	})

	fmt.Println("sqptrack initialized successfully!")
	fmt.Printf("Configuration written to: %s\n", paths.ConfigPath(cwd))
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Run 'sqptrack products add <ASIN>' to declare your product")
	fmt.Println("  2. Run 'sqptrack track --csv <export>' to start a tracking cycle")
	fmt.Println("  3. Run 'sqptrack status' to see the active cycle")

	return nil
}
