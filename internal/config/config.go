package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/parley-ai/parley/pkg/types"
)

var envPattern = regexp.MustCompile(`\{env:([^}]+)\}`)

// Load assembles configuration from multiple sources, later sources
// overriding earlier ones:
//  1. Global config (~/.config/parley/parley.{json,jsonc,yaml})
//  2. Project config (<directory>/parley.{json,jsonc,yaml})
//  3. PARLEY_CONFIG file override
//  4. PARLEY_CONFIG_CONTENT inline JSON
//  5. Environment variables
func Load(directory string) (*types.Config, error) {
	config := &types.Config{
		Provider: make(map[string]types.ProviderConfig),
		MCP:      make(map[string]types.MCPServerConfig),
	}

	loaded := make(map[string]bool)
	loadOnce := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil || loaded[abs] {
			return
		}
		if loadFile(path, config) == nil {
			loaded[abs] = true
		}
	}

	globalDir := GetPaths().Config
	for _, name := range configFileNames() {
		loadOnce(filepath.Join(globalDir, name))
	}

	if directory != "" {
		for _, name := range configFileNames() {
			loadOnce(filepath.Join(directory, name))
		}
	}

	if path := os.Getenv("PARLEY_CONFIG"); path != "" {
		loadOnce(path)
	}

	if content := os.Getenv("PARLEY_CONFIG_CONTENT"); content != "" {
		var inline types.Config
		if err := json.Unmarshal([]byte(content), &inline); err == nil {
			merge(config, &inline)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

func configFileNames() []string {
	return []string{"parley.json", "parley.jsonc", "parley.yaml", "parley.yml"}
}

// loadFile parses one config file, dispatching on extension. JSON files
// may carry jsonc comments; {env:VAR} placeholders are interpolated in
// both formats.
func loadFile(path string, config *types.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	data = interpolate(data)

	var fileConfig types.Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return err
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &fileConfig); err != nil {
			return err
		}
	}

	merge(config, &fileConfig)
	return nil
}

// interpolate replaces {env:VAR} placeholders with environment values.
func interpolate(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

func merge(target, source *types.Config) {
	if source.Model != "" {
		target.Model = source.Model
	}
	if source.AutoTitle != nil {
		target.AutoTitle = source.AutoTitle
	}
	if source.TitleMaxLength != 0 {
		target.TitleMaxLength = source.TitleMaxLength
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
	}
	for id, p := range source.Provider {
		if target.Provider == nil {
			target.Provider = make(map[string]types.ProviderConfig)
		}
		target.Provider[id] = p
	}
	for name, srv := range source.MCP {
		if target.MCP == nil {
			target.MCP = make(map[string]types.MCPServerConfig)
		}
		target.MCP[name] = srv
	}
}

// applyEnvOverrides applies PARLEY_* environment variables on top of
// file configuration. Provider API keys come from the providers' own
// conventional variables (ANTHROPIC_API_KEY, OPENAI_API_KEY) inside the
// provider constructors, not here.
func applyEnvOverrides(config *types.Config) {
	if model := os.Getenv("PARLEY_MODEL"); model != "" {
		config.Model = model
	}
	if level := os.Getenv("PARLEY_LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}
	if v := os.Getenv("PARLEY_AUTO_TITLE"); v != "" {
		enabled := v != "0" && !strings.EqualFold(v, "false")
		config.AutoTitle = &enabled
	}
}
