package main

import (
	"github.com/spf13/cobra"
)

// buildServeCmd creates the "serve" command that starts the assistant.
func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ClawFT assistant",
		Long: `Start the ClawFT assistant with all configured channels and providers.

The server will:
1. Load configuration from the specified file (or the default state dir)
2. Start all enabled channel adapters (Telegram, Discord, Slack, WhatsApp, Signal, Matrix)
3. Initialize LLM providers (Anthropic, OpenAI, Bedrock)
4. Wire the classify/route/assemble/transport pipeline behind the message bus
5. Serve /healthz and /metrics for operational visibility

Graceful shutdown is handled on SIGINT/SIGTERM signals.`,
		Example: `  # Start with default config
  clawft serve

  # Start with custom config
  clawft serve --config /etc/clawft/production.yaml

  # Start with debug logging
  clawft serve --debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath = resolveConfigPath(configPath)
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", clawftConfigPath(),
		"Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false,
		"Enable debug logging (verbose output)")

	return cmd
}
