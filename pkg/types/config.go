package types

// Config is the application configuration assembled by internal/config.
type Config struct {
	// Model selects the default model as "provider/model".
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Provider holds per-provider configuration keyed by provider ID.
	Provider map[string]ProviderConfig `json:"provider,omitempty" yaml:"provider,omitempty"`

	// MCP holds external MCP server definitions keyed by server name.
	MCP map[string]MCPServerConfig `json:"mcp,omitempty" yaml:"mcp,omitempty"`

	// AutoTitle enables model-assisted session titles. When disabled the
	// deterministic truncation policy is used.
	AutoTitle *bool `json:"autoTitle,omitempty" yaml:"autoTitle,omitempty"`

	// TitleMaxLength bounds generated titles. Zero means the default.
	TitleMaxLength int `json:"titleMaxLength,omitempty" yaml:"titleMaxLength,omitempty"`

	// LogLevel sets the minimum log level (debug, info, warn, error).
	LogLevel string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
}

// ProviderConfig configures a single model provider.
type ProviderConfig struct {
	APIKey   string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
	BaseURL  string `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`
	Disabled bool   `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// MCPServerConfig configures one external MCP tool server.
type MCPServerConfig struct {
	Command string            `json:"command" yaml:"command"`
	Args    []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// AutoTitleEnabled reports whether model-assisted titling is on.
// It defaults to true when unset.
func (c *Config) AutoTitleEnabled() bool {
	if c == nil || c.AutoTitle == nil {
		return true
	}
	return *c.AutoTitle
}
