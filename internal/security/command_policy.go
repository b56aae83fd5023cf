package security

import "path/filepath"

// CommandMode selects how CommandPolicy.Validate interprets Patterns.
type CommandMode string

const (
	CommandModeAllowlist CommandMode = "allowlist"
	CommandModeDenylist  CommandMode = "denylist"
)

// defaultCommandAllowlist applies when Mode is allowlist and Patterns is
// empty, per spec.md §8 ("Command allowlist empty -> default-allowlist
// applies").
var defaultCommandAllowlist = []string{
	"ls", "cat", "echo", "grep", "find", "git", "go", "node", "npm", "python", "python3",
}

// CommandPolicy governs which commands the shell tool may execute. Matching
// is always against the command's basename.
type CommandPolicy struct {
	Mode     CommandMode
	Patterns []string
}

// Validate rejects command unless it is permitted by the policy. On
// rejection it returns a *PermissionDenied naming the command.
func (p CommandPolicy) Validate(command string) error {
	base := filepath.Base(command)

	switch p.Mode {
	case CommandModeDenylist:
		if matchesAny(p.Patterns, base) {
			return NewPermissionDenied(command)
		}
		return nil
	default:
		patterns := p.Patterns
		if len(patterns) == 0 {
			patterns = defaultCommandAllowlist
		}
		if matchesAny(patterns, base) {
			return nil
		}
		return NewPermissionDenied(command)
	}
}

func matchesAny(patterns []string, base string) bool {
	for _, pattern := range patterns {
		if pattern == base {
			return true
		}
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}
