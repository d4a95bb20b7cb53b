package main

import (
	"Plant-Care-Backend/cmd/config"
	migration "Plant-Care-Backend/cmd/database/migrate"
	"Plant-Care-Backend/internal/utils"
	"Plant-Care-Backend/internal/utils/logger"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "plantcare",
		Short:         "Plant Care identification API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if configFlag != "" {
				os.Setenv("CONFIG_PATH", configFlag)
			}
			utils.LoadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMigrateCommand())
	return rootCmd
}

func newServeCommand() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log, err := logger.New(utils.GetConfigOr("LOG_MODE", "dev"))
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer log.Sync()

			db, err := config.ConnectDB()
			if err != nil {
				return err
			}
			if migrate {
				if err := migration.Migrate(db, log); err != nil {
					return err
				}
			}

			app, err := config.NewApp(ctx, db, log)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				addr := ":" + utils.GetConfigOr("PORT", "8080")
				log.Info("listening", "addr", addr)
				errCh <- app.Listen(addr)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return app.ShutdownWithContext(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "Run database migrations before serving")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.New(utils.GetConfigOr("LOG_MODE", "dev"))
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer log.Sync()

			db, err := config.ConnectDB()
			if err != nil {
				return err
			}
			return migration.Migrate(db, log)
		},
	}
}
