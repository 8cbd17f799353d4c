package analyzer

import (
	"fmt"

	"go.uber.org/config"
)

// LanguageConfig names the subprocess command to spawn for a given
// languageId, rendered by internal/core.NewConfig from the
// GOPLS_PATH/TS_SERVER_PATH environment variables of spec.md §6.
type LanguageConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// languageAliases maps a client-reported languageId to the config section
// that actually names its analyzer binary. spec.md §4.1 treats JavaScript
// and TypeScript as served by the same analyzer.
var languageAliases = map[string]string{
	"go":         "go",
	"typescript": "typescript",
	"javascript": "typescript",
}

// LoadLanguageConfigs populates the analyzer.<section>.* entries
// internal/core.NewConfig renders into the language configs this proxy
// knows how to spawn.
func LoadLanguageConfigs(provider config.Provider) (map[string]LanguageConfig, error) {
	sections := map[string]struct{}{}
	for _, section := range languageAliases {
		sections[section] = struct{}{}
	}

	configs := make(map[string]LanguageConfig, len(sections))
	for section := range sections {
		var cfg LanguageConfig
		if err := provider.Get("analyzer." + section).Populate(&cfg); err != nil {
			return nil, fmt.Errorf("loading analyzer config for %q: %w", section, err)
		}
		configs[section] = cfg
	}
	return configs, nil
}

// Resolve returns the LanguageConfig an analyzer.Manager should spawn for
// languageID, following the alias table above.
func Resolve(configs map[string]LanguageConfig, languageID string) (LanguageConfig, bool) {
	section, ok := languageAliases[languageID]
	if !ok {
		return LanguageConfig{}, false
	}
	cfg, ok := configs[section]
	return cfg, ok
}
