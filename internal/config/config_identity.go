package config

// WorkspaceConfig configures the root directory that filesystem tools are
// contained to (see PoliciesConfig.Filesystem for the containment check itself).
type WorkspaceConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Path     string `yaml:"path"`
	MaxChars int    `yaml:"max_chars"`
}
