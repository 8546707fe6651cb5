// Command server runs the DreamUI backend and a few operator commands.
package main

import (
	"fmt"
	"os"

	"dreamui/backend/pkg/config"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "DreamUI chat, roleplay and story backend",
	Long: `Serves the chat, notebook, archive, world-info, character and preference
endpoints in front of a local OpenAI-compatible inference server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			return os.Setenv("CONFIG_FILE", configFile)
		}
		return nil
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "yaml, json or toml config file (overrides CONFIG_FILE)")
	rootCmd.AddCommand(serveCmd, archiveCmd, worldCmd)
}

// loadConfig reads configuration fresh so --config takes effect
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
