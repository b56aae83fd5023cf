package config

import (
	"time"

	"github.com/clawft/clawft/internal/ratelimit"
)

type ToolsConfig struct {
	WebSearch WebSearchConfig     `yaml:"websearch"`
	Execution ToolExecutionConfig `yaml:"execution"`
	Elevated  ElevatedConfig      `yaml:"elevated"`
}

// ToolExecutionConfig controls runtime tool execution behavior.
type ToolExecutionConfig struct {
	MaxIterations   int              `yaml:"max_iterations"`
	Parallelism     int              `yaml:"parallelism"`
	Timeout         time.Duration    `yaml:"timeout"`
	MaxAttempts     int              `yaml:"max_attempts"`
	RetryBackoff    time.Duration    `yaml:"retry_backoff"`
	DisableEvents   bool             `yaml:"disable_events"`
	MaxToolCalls    int              `yaml:"max_tool_calls"`
	RequireApproval []string         `yaml:"require_approval"`
	Approval        ApprovalConfig   `yaml:"approval"`
	ResultGuard     ToolResultGuardConfig `yaml:"result_guard"`
	// RateLimit bounds concurrent adapter-side operations (spec default: 3).
	RateLimit ratelimit.Config `yaml:"rate_limit"`
}

// ApprovalConfig controls tool approval behavior.
type ApprovalConfig struct {
	// Profile is a pre-configured tool access level.
	// Valid profiles: "coding", "messaging", "readonly", "full", "minimal".
	Profile string `yaml:"profile"`

	// Allowlist contains tools that are always allowed (no approval needed).
	Allowlist []string `yaml:"allowlist"`

	// Denylist contains tools that are always denied.
	Denylist []string `yaml:"denylist"`

	// DefaultDecision when no rule matches: "allowed", "denied", or "pending".
	DefaultDecision string `yaml:"default_decision"`

	// RequestTTL is how long approval requests remain valid.
	RequestTTL time.Duration `yaml:"request_ttl"`
}

// ToolResultGuardConfig controls redaction of tool results before persistence.
type ToolResultGuardConfig struct {
	Enabled         bool     `yaml:"enabled"`
	MaxChars        int      `yaml:"max_chars"`
	Denylist        []string `yaml:"denylist"`
	RedactPatterns  []string `yaml:"redact_patterns"`
	RedactionText   string   `yaml:"redaction_text"`
	TruncateSuffix  string   `yaml:"truncate_suffix"`
	SanitizeSecrets bool     `yaml:"sanitize_secrets"`
}

// ElevatedConfig controls elevated tool execution behavior and allowlists.
type ElevatedConfig struct {
	// Enabled gates elevated execution. When nil, elevated is disabled by default.
	Enabled *bool `yaml:"enabled"`

	// AllowFrom maps channel/provider to allowed sender identifiers.
	AllowFrom map[string][]string `yaml:"allow_from"`

	// Tools lists tool patterns that elevated-full can bypass approvals for.
	Tools []string `yaml:"tools"`
}

type WebSearchConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Provider    string `yaml:"provider"`
	URL         string `yaml:"url"`
	BraveAPIKey string `yaml:"brave_api_key"`
}

func applyToolsDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.Tools.Execution.MaxIterations == 0 {
		cfg.Tools.Execution.MaxIterations = 8
	}
	if cfg.Tools.Execution.MaxToolCalls == 0 {
		cfg.Tools.Execution.MaxToolCalls = 8
	}
	if cfg.Tools.Execution.Timeout == 0 {
		cfg.Tools.Execution.Timeout = 30 * time.Second
	}
	if cfg.Tools.Execution.MaxAttempts == 0 {
		cfg.Tools.Execution.MaxAttempts = 3
	}
	if cfg.Tools.Execution.RetryBackoff == 0 {
		cfg.Tools.Execution.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.Tools.Execution.RateLimit.RequestsPerSecond == 0 {
		cfg.Tools.Execution.RateLimit = ratelimit.Config{
			RequestsPerSecond: 3,
			BurstSize:         3,
			Enabled:           true,
		}
	}
	if cfg.Tools.Execution.ResultGuard.MaxChars == 0 {
		cfg.Tools.Execution.ResultGuard.MaxChars = 65536
	}
}
