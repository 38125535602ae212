package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/category-allocator/cmd/cli/commands"
	"github.com/jakechorley/category-allocator/internal/config"
	"github.com/jakechorley/category-allocator/pkg/clients/bitableclient"
	"github.com/jakechorley/category-allocator/pkg/clients/sheetsclient"
	"github.com/jakechorley/category-allocator/pkg/core/services"
	"github.com/jakechorley/category-allocator/pkg/postgres"
	"github.com/jakechorley/category-allocator/pkg/recordstore"
	"github.com/jakechorley/category-allocator/pkg/utils/logging"
)

var (
	env     string
	verbose bool
	app     = &commands.AppContext{}
	history *postgres.DB
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cli",
		Short: "Category Allocator CLI - distribute category quantities across products",
		Long: `A CLI tool that reads a category table and a product table from a record store
(Lark Bitable or Google Sheets), allocates each category's required quantity
across its products, and writes the result back to a target table.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if history != nil {
				history.Close()
			}
			if app.Logger != nil {
				app.Logger.Sync()
			}
		},
	}

	// Add persistent flags
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to the console")
	rootCmd.MarkPersistentFlagRequired("env")

	// Add all commands
	rootCmd.AddCommand(commands.LoadCategoriesCmd(app))
	rootCmd.AddCommand(commands.ListCategoriesCmd(app))
	rootCmd.AddCommand(commands.SelectCategoryCmd(app))
	rootCmd.AddCommand(commands.LoadProductsCmd(app))
	rootCmd.AddCommand(commands.AllocateCmd(app))
	rootCmd.AddCommand(commands.WriteResultsCmd(app))
	rootCmd.AddCommand(commands.RefreshCmd(app))
	rootCmd.AddCommand(commands.StatusCmd(app))
	rootCmd.AddCommand(commands.HistoryCmd(app))
	rootCmd.AddCommand(commands.ResetCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, record store, history and state store
func initApp() error {
	var err error
	app.Ctx = context.Background()

	// Initialize logger
	app.Logger, err = logging.InitLogger(env, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	// Load configuration
	app.Logger.Debug("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully", zap.String("backend", string(app.Cfg.Backend)))

	// Initialize record store
	app.Store, err = newRecordStore(app.Cfg)
	if err != nil {
		return err
	}

	// Initialize allocation history (optional)
	if app.Cfg.HistoryDatabaseURL != "" {
		app.Logger.Debug("Connecting to history database")
		history, err = postgres.NewDB(app.Ctx, app.Cfg.HistoryDatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to history database: %w", err)
		}
		if err := history.RunMigrations(app.Ctx); err != nil {
			return fmt.Errorf("failed to run history migrations: %w", err)
		}
		app.History = history
		app.Logger.Debug("History database ready")
	} else {
		app.Logger.Debug("Allocation history disabled")
	}

	// Initialize workflow state store
	stateStore, err := services.NewFileStateStore(env)
	if err != nil {
		return fmt.Errorf("failed to create state store: %w", err)
	}
	app.StateStore = stateStore
	app.Logger.Debug("Workflow state store ready", zap.String("path", stateStore.Path()))

	return nil
}

// newRecordStore connects to the configured backend
func newRecordStore(cfg *config.Config) (recordstore.Store, error) {
	switch cfg.Backend {
	case config.BackendBitable:
		secrets, err := config.LoadSecrets(env)
		if err != nil {
			return nil, fmt.Errorf("failed to load secrets: %w", err)
		}
		if secrets.BitableAppSecret == "" {
			return nil, fmt.Errorf("%s is not set", config.BitableAppSecretEnv)
		}

		app.Logger.Debug("Initializing Bitable client", zap.String("endpoint", cfg.Bitable.APIEndpoint))
		client, err := bitableclient.NewClient(app.Ctx, bitableclient.Options{
			Endpoint:  cfg.Bitable.APIEndpoint,
			AppID:     cfg.Bitable.AppID,
			AppSecret: secrets.BitableAppSecret,
			BatchSize: cfg.BatchSize,
			Logger:    app.Logger.Named("bitable"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Bitable client: %w", err)
		}
		return client, nil

	case config.BackendSheets:
		app.Logger.Debug("Loading OAuth client", zap.String("path", cfg.Sheets.OAuthClientFile))
		googleClient, err := cfg.GoogleClient()
		if err != nil {
			return nil, fmt.Errorf("failed to load OAuth client: %w", err)
		}

		app.Logger.Debug("Initializing sheets client")
		client, err := sheetsclient.NewClient(app.Ctx, googleClient, env, cfg.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create sheets client: %w", err)
		}
		return client, nil
	}

	return nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
}
