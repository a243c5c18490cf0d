// Command opsctl runs the backend's sync and import jobs from a shell or a
// cron entry, against the same database the server uses.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apps/appointments"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apps/stock"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/apps/tasks"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/cache"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/google"
	"github.com/ahmetcoskunkizilkaya/ops-backend/internal/services"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// cliEnv is the state shared by every subcommand once the root command has
// connected to the database.
type cliEnv struct {
	cfg     *config.Config
	db      *gorm.DB
	rdb     *redis.Client
	history *services.SyncHistory
	tokens  *services.TokenManager
}

func (rt *cliEnv) close() {
	if rt.rdb != nil {
		_ = rt.rdb.Close()
	}
	if rt.db != nil {
		if sqlDB, err := rt.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

func newRootCmd() (*cobra.Command, *cliEnv) {
	rt := &cliEnv{}
	var verbose bool

	root := &cobra.Command{
		Use:           "opsctl",
		Short:         "Operations jobs for the ops backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelInfo
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

			rt.cfg = config.Load()
			db, err := database.Open(rt.cfg.DBDriver, rt.cfg.DSN())
			if err != nil {
				return err
			}
			rt.db = db
			if err := database.MigrateShared(db); err != nil {
				return fmt.Errorf("shared migration failed: %w", err)
			}
			if err := database.MigrateModels(db, []interface{}{
				&tasks.Task{}, &stock.StockItem{}, &appointments.Appointment{},
			}); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			opts := []services.TokenManagerOption{
				services.WithTokenCipher(services.NewTokenCipher(rt.cfg.TokenEncryptionKey)),
			}
			if rt.rdb = cache.Connect(cmd.Context(), rt.cfg.RedisAddr); rt.rdb != nil {
				opts = append(opts, services.WithCredentialCache(cache.NewTokenCache(rt.rdb), rt.cfg.CredentialCacheTTL))
			}
			rt.tokens = services.NewTokenManager(db, google.OAuthConfig(rt.cfg), opts...)
			rt.history = services.NewSyncHistory(db)
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log progress to stderr")

	root.AddCommand(
		newSyncCalendarCmd(rt),
		newImportStockCmd(rt),
		newLowStockCmd(rt),
		newExportStockCmd(rt),
	)
	return root, rt
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root, rt := newRootCmd()
	err := root.ExecuteContext(ctx)
	rt.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}
