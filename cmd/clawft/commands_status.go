package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/clawft/clawft/internal/config"
)

// buildStatusCmd creates the "status" command that reports which channels
// and providers a config file would enable, without starting anything.
func buildStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configured channels and providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath = resolveConfigPath(configPath)
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ClawFT %s (commit: %s)\n", version, commit)
			fmt.Fprintf(out, "Config: %s\n\n", configPath)

			fmt.Fprintln(out, "Channels:")
			printChannelStatus(out, "telegram", cfg.Channels.Telegram.Enabled)
			printChannelStatus(out, "discord", cfg.Channels.Discord.Enabled)
			printChannelStatus(out, "slack", cfg.Channels.Slack.Enabled)
			printChannelStatus(out, "whatsapp", cfg.Channels.WhatsApp.Enabled)
			printChannelStatus(out, "signal", cfg.Channels.Signal.Enabled)
			printChannelStatus(out, "matrix", cfg.Channels.Matrix.Enabled)

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Providers:")
			if len(cfg.LLM.Providers) == 0 {
				fmt.Fprintln(out, "  (none configured)")
			}
			for name := range cfg.LLM.Providers {
				marker := ""
				if name == cfg.LLM.DefaultProvider {
					marker = " (default)"
				}
				fmt.Fprintf(out, "  - %s%s\n", name, marker)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", clawftConfigPath(),
		"Path to YAML configuration file")
	return cmd
}

func printChannelStatus(out io.Writer, name string, enabled bool) {
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Fprintf(out, "  - %s: %s\n", name, state)
}
