/*
Package config manages TOML config for WildServe.
*/
package config

import (
	"path/filepath"

	"github.com/bastiangx/wildserve/internal/utils"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Wildcards WildcardsConfig `toml:"wildcards"`
	Cache     CacheConfig     `toml:"cache"`
	Index     IndexConfig     `toml:"index"`
	CLI       CliConfig       `toml:"cli"`
}

// ServerConfig has IPC server options.
type ServerConfig struct {
	MaxLimit  int `toml:"max_limit"`
	MaxPrefix int `toml:"max_prefix"`
	MaxPhrase int `toml:"max_phrase"`
}

// WildcardsConfig locates the wildcard files.
type WildcardsConfig struct {
	Dir        string `toml:"dir"`
	Pattern    string `toml:"pattern"`
	Watch      bool   `toml:"watch"`
	DebounceMS int    `toml:"debounce_ms"`
}

// CacheConfig selects where the wildcard content is persisted.
// An empty path is resolved to the platform data dir.
type CacheConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

// IndexConfig tunes the suggestion index.
type IndexConfig struct {
	QueryCacheSize int `toml:"query_cache_size"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit int `toml:"default_limit"`
	PhraseWords  int `toml:"phrase_words"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			MaxLimit:  64,
			MaxPrefix: 60,
			MaxPhrase: 240,
		},
		Wildcards: WildcardsConfig{
			Dir:        "wildcards",
			Pattern:    "**/*.txt",
			Watch:      false,
			DebounceMS: 300,
		},
		Cache: CacheConfig{
			Backend: "file",
			Path:    "",
		},
		Index: IndexConfig{
			QueryCacheSize: 256,
		},
		CLI: CliConfig{
			DefaultLimit: 24,
			PhraseWords:  3,
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse keeps every well-typed value it can find and defaults the rest
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "wildcards"); ok {
		extractWildcardsConfig(section, &config.Wildcards)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cache"); ok {
		extractCacheConfig(section, &config.Cache)
	}
	if section, ok := utils.ExtractSection(tempConfig, "index"); ok {
		if val, ok := utils.ExtractInt64(section, "query_cache_size"); ok {
			config.Index.QueryCacheSize = val
		}
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	return config, nil
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		server.MaxLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "max_prefix"); ok {
		server.MaxPrefix = val
	}
	if val, ok := utils.ExtractInt64(data, "max_phrase"); ok {
		server.MaxPhrase = val
	}
}

func extractWildcardsConfig(data map[string]any, wc *WildcardsConfig) {
	if val, ok := utils.ExtractString(data, "dir"); ok {
		wc.Dir = val
	}
	if val, ok := utils.ExtractString(data, "pattern"); ok {
		wc.Pattern = val
	}
	if val, ok := utils.ExtractBool(data, "watch"); ok {
		wc.Watch = val
	}
	if val, ok := utils.ExtractInt64(data, "debounce_ms"); ok {
		wc.DebounceMS = val
	}
}

func extractCacheConfig(data map[string]any, cache *CacheConfig) {
	if val, ok := utils.ExtractString(data, "backend"); ok {
		cache.Backend = val
	}
	if val, ok := utils.ExtractString(data, "path"); ok {
		cache.Path = val
	}
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		cli.DefaultLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "phrase_words"); ok {
		cli.PhraseWords = val
	}
}

// CachePath returns the configured cache path, or resolves the backend's
// default file name, e.g. with PathResolver.GetDataPath
func (c *Config) CachePath(resolve func(filename string) string) string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	name := "wildcards.msgpack"
	if c.Cache.Backend == "sqlite" {
		name = "wildcards.db"
	}
	return resolve(name)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
