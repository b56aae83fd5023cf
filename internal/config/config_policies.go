package config

import (
	"fmt"
	"strings"

	"github.com/clawft/clawft/internal/audit"
)

// PoliciesConfig groups the security policies enforced by the tool registry:
// which commands an exec tool may run, which URLs a fetch tool may reach, and
// which filesystem paths a file tool may touch.
type PoliciesConfig struct {
	Command    CommandPolicyConfig    `yaml:"command"`
	URL        URLPolicyConfig        `yaml:"url"`
	Filesystem FilesystemPolicyConfig `yaml:"filesystem"`
	Audit      audit.Config           `yaml:"audit"`
}

// CommandPolicyConfig controls which executables the exec tool may invoke.
// Matching is against the executable's basename, not the full path.
type CommandPolicyConfig struct {
	// Mode is "allowlist" (only Allow may run) or "denylist" (everything but Deny may run).
	Mode  string   `yaml:"mode"`
	Allow []string `yaml:"allow"`
	Deny  []string `yaml:"deny"`
}

// URLPolicyConfig controls which URLs the fetch/websearch tools may reach.
type URLPolicyConfig struct {
	// AllowPrivate permits requests to private/loopback/link-local addresses.
	// Default false: SSRF protection is on by default.
	AllowPrivate bool     `yaml:"allow_private"`
	AllowDomains []string `yaml:"allow_domains"`
	DenyDomains  []string `yaml:"deny_domains"`
}

// FilesystemPolicyConfig controls the workspace root that file tools are
// contained to. Any resolved path outside Root is rejected.
type FilesystemPolicyConfig struct {
	Root     string `yaml:"root"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// AgentConfig describes a single addressable agent: the provider/model it
// defaults to, its system prompt, and the tool names it may call.
type AgentConfig struct {
	SystemPrompt string   `yaml:"system_prompt"`
	Provider     string   `yaml:"provider"`
	Model        string   `yaml:"model"`
	Tools        []string `yaml:"tools"`
	MaxSteps     int      `yaml:"max_steps"`
}

func applyPoliciesDefaults(cfg *PoliciesConfig) {
	if cfg == nil {
		return
	}
	if cfg.Command.Mode == "" {
		cfg.Command.Mode = "denylist"
	}
	if len(cfg.Command.Deny) == 0 && cfg.Command.Mode == "denylist" {
		cfg.Command.Deny = []string{"rm", "sudo", "su", "shutdown", "reboot", "mkfs", "dd"}
	}
	if cfg.Filesystem.Root == "" {
		cfg.Filesystem.Root = "."
	}
	if cfg.Filesystem.MaxBytes == 0 {
		cfg.Filesystem.MaxBytes = 1 << 20
	}
	if cfg.Audit.Format == "" {
		cfg.Audit.Format = audit.FormatJSON
	}
	if cfg.Audit.Output == "" {
		cfg.Audit.Output = "stdout"
	}
}

func validatePolicies(cfg *PoliciesConfig) []string {
	if cfg == nil {
		return nil
	}
	var issues []string
	switch strings.ToLower(strings.TrimSpace(cfg.Command.Mode)) {
	case "allowlist", "denylist":
	default:
		issues = append(issues, fmt.Sprintf("policies.command.mode must be \"allowlist\" or \"denylist\", got %q", cfg.Command.Mode))
	}
	if cfg.Command.Mode == "allowlist" && len(cfg.Command.Allow) == 0 {
		issues = append(issues, "policies.command.allow must be non-empty when mode is \"allowlist\"")
	}
	if cfg.Filesystem.MaxBytes < 0 {
		issues = append(issues, "policies.filesystem.max_bytes must be >= 0")
	}
	return issues
}
