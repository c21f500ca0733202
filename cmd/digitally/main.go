// Command digitally runs the agency backend.
package main

import (
	"fmt"
	"os"

	"github.com/adeilh/digitally/config"
	"github.com/adeilh/digitally/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:   "digitally",
		Short: "Digitally agency backend",
		Long: `Serves the agency website API: contact capture, AI tools (website roasts,
lead qualification, career helpers), resume analysis, accounts and payments.

Settings come from an optional YAML file and are overridden by environment
variables such as PORT, DATABASE_URL and OPENROUTER_API_KEY.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file (optional)")

	root.AddCommand(newServeCmd(&configPath), newMigrateCmd(&configPath))
	return root
}

// setup loads and validates configuration and builds the process logger.
func setup(configPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg.Env, cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
