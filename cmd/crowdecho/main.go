// Command crowdecho aggregates user comments from multiple sources
// until a target count of unique comments is reached.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crowdecho/crowdecho/internal/config"
	"github.com/crowdecho/crowdecho/internal/storage"
)

var (
	configPath string

	cfg   *config.Config
	store storage.Storage
)

var rootCmd = &cobra.Command{
	Use:   "crowdecho",
	Short: "Multi-source comment aggregation engine",
	Long: `CrowdEcho collects comments and replies from multiple sources
(YouTube, Reddit) for a set of search queries, deduplicates them across
sources and queries, and reports progress toward a target count.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		store, err = storage.NewStorage(cmd.Context(), &storage.Config{Path: cfg.DBPath})
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			store.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "crowdecho.yaml", "Path to config file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
