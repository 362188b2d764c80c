// Package cli implements hubctl, the operator tool for inspecting and
// re-driving asset processing.
package cli

import (
	"context"
	"fmt"

	"github.com/contenthub/contenthub/internal/catalog"
	"github.com/contenthub/contenthub/internal/config"
	"github.com/contenthub/contenthub/internal/dispatch"
	"github.com/contenthub/contenthub/internal/logger"
	"github.com/contenthub/contenthub/internal/queue"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var (
	cfg   *config.Config
	pool  *pgxpool.Pool
	store catalog.Store
)

var rootCmd = &cobra.Command{
	Use:   "hubctl",
	Short: "Content Hub operations - inspect and re-drive asset processing",
	Long: `hubctl is the operator tool for the Content Hub processing core.

Examples:
  hubctl status 4f1c...            # Show an asset's processing state
  hubctl reprocess 4f1c...         # Re-dispatch an asset
  hubctl stuck --older-than 30m    # Requeue assets stranded in PENDING`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logger.Init("error")

		pool, err = pgxpool.New(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		store = catalog.NewPostgresStore(pool)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if pool != nil {
			pool.Close()
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reprocessCmd)
	rootCmd.AddCommand(stuckCmd)
}

// newDispatcher builds a dispatcher backed by a connected queue client.
// The caller owns closing the returned client.
func newDispatcher(ctx context.Context) (*dispatch.Dispatcher, *queue.Client, error) {
	client, err := queue.NewClient(queue.ClientConfig{
		RedisURL:   cfg.RedisURL,
		MaxRetries: cfg.MaxRetries,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := client.Connect(ctx); err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	d := dispatch.New(client, store, dispatch.Config{
		JobTimeout:      cfg.JobTimeout,
		VideoJobTimeout: cfg.VideoJobTimeout,
	})
	return d, client, nil
}
