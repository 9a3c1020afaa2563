// Package cmd implements the kdforest command-line interface: batch,
// query, sync, optimize, plus the info, init and serve subcommands
// (spec §6).
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/kdforest/pkg/config"
	"github.com/ssargent/kdforest/pkg/di"
	"github.com/ssargent/kdforest/pkg/forest"
	"github.com/ssargent/kdforest/pkg/spatial"
)

// contextKey avoids the plain-string context key collisions a larger CLI
// would risk once more subcommands stash values in cmd.Context().
type contextKey string

const dbContextKey contextKey = "forest-db"

// container is the dependency-injection seam the api package's server and
// system-service factories are resolved through, mirroring the teacher's
// cmd/freyja wiring.
var container *di.Container

// SetContainer injects the DI container; called once from main before Execute.
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "kdforest",
	Short: "kdforest - an immutable k-d forest spatial database",
	Long: `kdforest stores multi-dimensional rows (points or axis-aligned
intervals) in an append-only forest of immutable k-d trees, merged with a
binary-counter cascade on every batch.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		dim, _ := cmd.Flags().GetInt("dim")
		branchFactor, _ := cmd.Flags().GetInt("branch-factor")
		maxDataSize, _ := cmd.Flags().GetInt("leaf-capacity")
		maxTreeBytes, _ := cmd.Flags().GetInt64("max-tree-bytes")
		rebuildDepth, _ := cmd.Flags().GetInt("rebuild-depth")
		valueWidth, _ := cmd.Flags().GetInt("value-width")

		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}

		setup := forest.DefaultSetup[float64, spatial.BytesValue](dim, spatial.BytesDecoder{Len: valueWidth})

		// A config file's forest: section supplies defaults on top of
		// DefaultSetup's, the same fallback serve.go already uses for
		// client_api_key; explicit CLI flags below still win over both.
		configPath, _ := cmd.Flags().GetString("config")
		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}
		if config.ConfigExists(configPath) {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Forest.Dim > 0 {
				setup.Dim = cfg.Forest.Dim
			}
			if cfg.Forest.BranchFactor > 0 {
				setup.BranchFactor = cfg.Forest.BranchFactor
			}
			if cfg.Forest.MaxDataSize > 0 {
				setup.MaxDataSize = cfg.Forest.MaxDataSize
			}
			if cfg.Forest.BaseSize > 0 {
				setup.BaseSize = uint64(cfg.Forest.BaseSize)
			}
			if cfg.Forest.MaxTreeBytes > 0 {
				setup.MaxTreeBytes = cfg.Forest.MaxTreeBytes
			}
			if cfg.Forest.TreeCacheSize > 0 {
				setup.TreeCacheSize = cfg.Forest.TreeCacheSize
			}
			if cfg.Forest.RebuildDepth > 0 {
				setup.RebuildDepth = cfg.Forest.RebuildDepth
			}
			setup.ErrorIfMissing = cfg.Forest.ErrorIfMissing
		}
		setup.Path = dataDir

		if cmd.Flags().Changed("dim") {
			setup.Dim = dim
		}
		if branchFactor > 0 {
			setup.BranchFactor = branchFactor
		}
		if maxDataSize > 0 {
			setup.MaxDataSize = maxDataSize
		}
		if maxTreeBytes > 0 {
			setup.MaxTreeBytes = maxTreeBytes
		}
		if rebuildDepth > 0 {
			setup.RebuildDepth = rebuildDepth
		}

		db, err := forest.OpenFromSetup[float64, spatial.BytesValue](setup)
		if err != nil {
			return fmt.Errorf("failed to open forest: %w", err)
		}

		cmd.SetContext(context.WithValue(cmd.Context(), dbContextKey, db))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if db, ok := dbFromContext(cmd); ok {
			return db.Close()
		}
		return nil
	},
}

// dbFromContext retrieves the forest handle PersistentPreRunE opened.
func dbFromContext(cmd *cobra.Command) (*forest.DB[float64, spatial.BytesValue], bool) {
	db, ok := cmd.Context().Value(dbContextKey).(*forest.DB[float64, spatial.BytesValue])
	return db, ok
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("data-dir", "d", "./data", "Data directory for the forest")
	rootCmd.PersistentFlags().Int("dim", 2, "Number of dimensions (2-8)")
	rootCmd.PersistentFlags().Int("branch-factor", 0, "Branch factor override (0 = Setup default)")
	rootCmd.PersistentFlags().Int("leaf-capacity", 0, "Leaf capacity override (0 = Setup default)")
	rootCmd.PersistentFlags().Int64("max-tree-bytes", 0, "Cap a single tree's encoded size (0 = unbounded)")
	rootCmd.PersistentFlags().Int("rebuild-depth", 0, "Cap a batch's cascade depth (0 = Setup default)")
	rootCmd.PersistentFlags().Int("value-width", 0, "Reject submitted values whose length differs (0 = no validation)")
}
