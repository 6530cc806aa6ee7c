package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/SscSPs/invoice_review_app/internal/adapters/notify"
	"github.com/SscSPs/invoice_review_app/internal/adapters/objectstore"
	"github.com/SscSPs/invoice_review_app/internal/core/ports"
	portssvc "github.com/SscSPs/invoice_review_app/internal/core/ports/services"
	"github.com/SscSPs/invoice_review_app/internal/core/services"
	"github.com/SscSPs/invoice_review_app/internal/platform/config"
	"github.com/SscSPs/invoice_review_app/internal/repositories/database/pgsql"
	"github.com/SscSPs/invoice_review_app/pkg/database"
	"github.com/spf13/cobra"
)

var version = "1.0.0"

var logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))

var rootCmd = &cobra.Command{
	Use:   "invoicectl",
	Short: "Operator commands for the invoice review backend",
	Long: `invoicectl runs schema migrations and the maintenance tasks that the
server otherwise schedules: reclaiming stuck review claims, hygiene,
and ledger verification.

Configuration is read from the same environment variables as the server
(PGSQL_URL, MIGRATIONS_PATH, OBJECT_STORE, S3_BUCKET, ...).`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		logger.Error("Command execution failed", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return nil, fmt.Errorf("invoicectl needs STORE_DRIVER=%s, got %s", config.StoreDriverPostgres, cfg.StoreDriver)
	}
	return cfg, nil
}

// withServices connects to the database, builds the service container and hands it to fn.
// Notifications are logged rather than pushed.
func withServices(ctx context.Context, fn func(*portssvc.ServiceContainer) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer database.ClosePgxPool(pool, logger)

	var objects ports.ObjectStore = objectstore.NewMemoryStore()
	if cfg.ObjectStore == config.ObjectStoreMemory {
		logger.Warn("OBJECT_STORE=memory, the orphan audit will see no stored objects")
	}
	if cfg.ObjectStore == config.ObjectStoreS3 {
		s3Store, err := objectstore.NewS3Store(objectstore.S3Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
			Prefix:   cfg.S3Prefix,
		})
		if err != nil {
			return err
		}
		objects = s3Store
	}

	container := services.NewServiceContainer(cfg, pgsql.NewRepositoryProvider(pool), services.Dependencies{
		ObjectStore: objects,
		Notifier:    notify.LogNotifier{},
		Transient:   pgsql.IsTransient,
	})
	return fn(container)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
