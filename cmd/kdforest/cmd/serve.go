package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/kdforest/pkg/api"
	"github.com/ssargent/kdforest/pkg/config"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server over the open forest",
	Long: `Start the kdforest REST API server: batch, query, sync, optimize, and
explain endpoints behind X-API-Key authentication.

Example:
  kdforest serve --api-key=mysecretkey --port=8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, ok := dbFromContext(cmd)
		if !ok {
			return fmt.Errorf("forest not open")
		}

		port, _ := cmd.Flags().GetInt("port")
		apiKey, _ := cmd.Flags().GetString("api-key")
		configPath, _ := cmd.Flags().GetString("config")

		if apiKey == "" {
			if configPath == "" {
				configPath = config.GetDefaultConfigPath()
			}
			if config.ConfigExists(configPath) {
				cfg, err := config.LoadConfig(configPath)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				apiKey = cfg.Security.ClientAPIKey
			}
		}
		if apiKey == "" {
			return fmt.Errorf("--api-key is required (or set client_api_key in config)")
		}

		dataDir, _ := cmd.Flags().GetString("data-dir")
		dim, _ := cmd.Flags().GetInt("dim")
		valueWidth, _ := cmd.Flags().GetInt("value-width")

		if container == nil {
			return fmt.Errorf("dependency container not initialized")
		}
		serverFactory := container.GetServerFactory()
		starter := serverFactory.CreateServerStarter()

		return starter.StartServer(db, api.ServerConfig{
			Port:           port,
			APIKey:         apiKey,
			DataDir:        dataDir,
			Dim:            dim,
			ValueByteWidth: valueWidth,
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("api-key", "", "API key for authentication (falls back to config's client_api_key)")
	serveCmd.Flags().String("config", "", "Path to config file (default: OS-specific location)")
}
