// Package main provides the CLI entry point for the ClawFT multi-channel
// AI assistant.
//
// ClawFT connects messaging platforms (Telegram, Discord, Slack, WhatsApp,
// Signal, Matrix) to LLM providers (Anthropic, OpenAI, Bedrock) through a
// classify/route/assemble/transport pipeline, with per-session tool
// execution handled by the agent runtime.
//
// # Basic Usage
//
// Start the assistant:
//
//	clawft serve --config clawft.yaml
//
// Check configured channels and providers:
//
//	clawft status
//
// # Environment Variables
//
//   - CLAWFT_HOST: server bind address
//   - CLAWFT_METRICS_PORT: metrics/health port
//   - CLAWFT_JWT_SECRET: auth token signing secret
//   - CLAWFT_TOKEN_EXPIRY: auth token lifetime
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build-time metadata, overridden via:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "clawft",
		Short: "ClawFT - multi-channel AI assistant",
		Long: `ClawFT connects messaging platforms to LLM providers through a
classify/route/assemble/transport pipeline.

Supported channels: Telegram, Discord, Slack, WhatsApp, Signal, Matrix
Supported LLM providers: Anthropic (Claude), OpenAI (GPT), AWS Bedrock`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildStatusCmd(),
	)

	return rootCmd
}

func resolveConfigPath(path string) string {
	if path == "" {
		return clawftConfigPath()
	}
	return path
}
