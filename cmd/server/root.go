package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go-auth-api/internal/app"
	"go-auth-api/internal/config"
	"go-auth-api/internal/database"
	"go-auth-api/internal/logger"
)

// NewRootCmd creates the root command. Running it without a subcommand
// serves the API.
func NewRootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:           "auth-api",
		Short:         "User registration, login and token refresh API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, envFile)
		},
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	cmd.AddCommand(newMigrateCmd(&envFile))

	return cmd
}

func runServe(cmd *cobra.Command, envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "invalid configuration:", err)
		return err
	}

	log := logger.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize application", "error", err)
		return err
	}

	if err := application.Run(ctx); err != nil {
		log.Error("application run failed", "error", err)
		return err
	}
	return nil
}

func newMigrateCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply all pending migrations to the database named by DATABASE_URL, then exit.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			databaseURL, err := config.LoadDatabaseURL(*envFile)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "invalid configuration:", err)
				return err
			}

			log := logger.New(cmd.ErrOrStderr(), "pretty", "info")
			if err := database.Migrate(databaseURL, log); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "migration failed:", err)
				return err
			}

			cmd.Println("Migrations completed successfully")
			return nil
		},
	}
}
