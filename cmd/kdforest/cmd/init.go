package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/kdforest/pkg/config"
)

// initCmd bootstraps a config file with generated keys and initializes the
// system store, mirroring the teacher's init command but against
// pkg/sysstore instead of a second KV log.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap configuration and the system store",
	Long: `Bootstrap creates a config file with freshly generated keys (if one
doesn't already exist) and initializes the system store that holds the
administrative API key.

Examples:
  kdforest init --data-dir ./data
  kdforest init --config ./custom-config.yaml --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := cmd.Flags().GetString("data-dir")
		configPath, _ := cmd.Flags().GetString("config")
		force, _ := cmd.Flags().GetBool("force")

		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}

		var cfg *config.Config
		var err error
		if config.ConfigExists(configPath) && !force {
			cfg, err = config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load existing config: %w", err)
			}
			cmd.Printf("loaded existing configuration from %s\n", configPath)
		} else {
			cfg, err = config.BootstrapConfig(configPath, dataDir)
			if err != nil {
				return fmt.Errorf("failed to bootstrap config: %w", err)
			}
			cmd.Printf("created configuration at %s\n", configPath)
		}

		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}

		if container == nil {
			return fmt.Errorf("dependency container not initialized")
		}
		factory := container.GetSystemServiceFactory()
		svc, err := factory.CreateSystemService(cfg.DataDir, cfg.Security.SystemKey, true, 0)
		if err != nil {
			return fmt.Errorf("failed to create system service: %w", err)
		}
		if err := svc.InitializeSystem(cfg.DataDir, cfg.Security.SystemKey, cfg.Security.SystemAPIKey); err != nil {
			return fmt.Errorf("failed to initialize system store: %w", err)
		}

		cmd.Printf("system initialized\n")
		cmd.Printf("client API key: %s\n", cfg.Security.ClientAPIKey)
		cmd.Printf("data directory: %s\n", cfg.DataDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().String("config", "", "Path to config file (default: OS-specific location)")
	initCmd.Flags().Bool("force", false, "Force re-bootstrapping even if config already exists")
}
