package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
)

// Translation layouts for the song view.
const (
	LayoutGrouped = "grouped"
	LayoutInline  = "inline"
)

// Color modes for terminal output.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config represents the complete songbook configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Corpus  CorpusConfig  `yaml:"corpus" json:"corpus"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Cache   CacheConfig   `yaml:"cache" json:"cache"`
	Display DisplayConfig `yaml:"display" json:"display"`
	Server  ServerConfig  `yaml:"server" json:"server"`
}

// CorpusConfig locates the song corpus and controls reloading.
type CorpusConfig struct {
	// Path is the JSON corpus file. Relative paths resolve against the
	// directory passed to Load.
	Path string `yaml:"path" json:"path"`

	// Watch reloads the corpus when the file changes (serve mode).
	Watch bool `yaml:"watch" json:"watch"`

	// WatchDebounce is how long to wait for writes to settle, e.g. "200ms".
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`

	// ForcePolling polls the file instead of using fsnotify.
	ForcePolling bool `yaml:"force_polling" json:"force_polling"`
}

// SearchConfig configures lookup and snippet parameters.
type SearchConfig struct {
	// MaxResults is the default result limit.
	MaxResults int `yaml:"max_results" json:"max_results"`

	// SnippetPad is the number of characters kept on each side of a match.
	SnippetPad int `yaml:"snippet_pad" json:"snippet_pad"`

	// Workers bounds index build and sharded search parallelism.
	Workers int `yaml:"workers" json:"workers"`

	// ShardThreshold is the corpus size above which searches are sharded.
	ShardThreshold int `yaml:"shard_threshold" json:"shard_threshold"`

	MarkOpen  string `yaml:"mark_open" json:"mark_open"`
	MarkClose string `yaml:"mark_close" json:"mark_close"`
}

// CacheConfig configures the SQLite offline copy of the corpus.
type CacheConfig struct {
	Enabled         bool   `yaml:"enabled" json:"enabled"`
	Path            string `yaml:"path" json:"path"`
	LookupCacheSize int    `yaml:"lookup_cache_size" json:"lookup_cache_size"`
}

// DisplayConfig holds reader preferences for rendering songs.
type DisplayConfig struct {
	ShowTranslations bool `yaml:"show_translations" json:"show_translations"`

	// TranslationLayout is "grouped" (all translations after the verse) or
	// "inline" (each translation under its line).
	TranslationLayout string `yaml:"translation_layout" json:"translation_layout"`

	// InternalSearch highlights the query inside an opened song.
	InternalSearch bool `yaml:"internal_search" json:"internal_search"`

	// Color is "auto", "always" or "never".
	Color string `yaml:"color" json:"color"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Corpus: CorpusConfig{
			Path:          "songs.json",
			Watch:         false,
			WatchDebounce: "200ms",
		},
		Search: SearchConfig{
			MaxResults:     50,
			SnippetPad:     40,
			Workers:        runtime.NumCPU(),
			ShardThreshold: 2000,
			MarkOpen:       "<mark>",
			MarkClose:      "</mark>",
		},
		Cache: CacheConfig{
			Enabled:         true,
			Path:            defaultCachePath(),
			LookupCacheSize: 256,
		},
		Display: DisplayConfig{
			ShowTranslations:  true,
			TranslationLayout: LayoutGrouped,
			InternalSearch:    true,
			Color:             ColorAuto,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

// defaultCachePath returns ~/.songbook/cache/songs.db.
func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".songbook", "cache", "songs.db")
	}
	return filepath.Join(home, ".songbook", "cache", "songs.db")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/songbook/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/songbook/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "songbook", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "songbook", "config.yaml")
	}
	return filepath.Join(home, ".config", "songbook", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load loads configuration for the project in dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/songbook/config.yaml)
//  3. Project config (.songbook.yaml in dir)
//  4. Environment variables (SONGBOOK_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()
	cfg.resolvePaths(dir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile attempts to load configuration from .songbook.yaml or .songbook.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".songbook.yaml")
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".songbook.yml")
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}

	return nil
}

// loadYAML decodes a YAML file over c. Keys absent from the file keep
// their current values, so each layer only overrides what it names.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return sberrors.New(sberrors.ErrCodeConfigNotFound,
			fmt.Sprintf("failed to read config file %s", path), err).
			WithDetail("path", path)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return sberrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("path", path).
			WithSuggestion("check the file against 'songbook config init' output")
	}
	return nil
}

// applyEnvOverrides applies SONGBOOK_* environment variable overrides.
// Values that do not parse are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SONGBOOK_CORPUS"); v != "" {
		c.Corpus.Path = v
	}
	if v := os.Getenv("SONGBOOK_WATCH"); v != "" {
		c.Corpus.Watch = parseBool(v)
	}
	if v := os.Getenv("SONGBOOK_FORCE_POLLING"); v != "" {
		c.Corpus.ForcePolling = parseBool(v)
	}

	if v := os.Getenv("SONGBOOK_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.MaxResults = n
		}
	}
	if v := os.Getenv("SONGBOOK_SNIPPET_PAD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Search.SnippetPad = n
		}
	}
	if v := os.Getenv("SONGBOOK_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.Workers = n
		}
	}

	if v := os.Getenv("SONGBOOK_CACHE_ENABLED"); v != "" {
		c.Cache.Enabled = parseBool(v)
	}
	if v := os.Getenv("SONGBOOK_CACHE_PATH"); v != "" {
		c.Cache.Path = v
	}

	if v := os.Getenv("SONGBOOK_TRANSLATION_LAYOUT"); v != "" {
		c.Display.TranslationLayout = v
	}
	if v := os.Getenv("SONGBOOK_COLOR"); v != "" {
		c.Display.Color = v
	}

	if v := os.Getenv("SONGBOOK_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("SONGBOOK_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

// resolvePaths expands ~ and makes relative paths absolute against dir.
func (c *Config) resolvePaths(dir string) {
	c.Corpus.Path = resolvePath(dir, c.Corpus.Path)
	c.Cache.Path = resolvePath(dir, c.Cache.Path)
}

func resolvePath(dir, p string) string {
	if p == "" {
		return p
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	if filepath.IsAbs(p) || dir == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}

// FindProjectRoot walks up from startDir looking for a .songbook.yaml,
// .songbook.yml or .git entry. It returns startDir (absolute) when none is
// found.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	if _, err := os.Stat(absDir); err != nil {
		return "", fmt.Errorf("start directory: %w", err)
	}

	currentDir := absDir
	for {
		if fileExists(filepath.Join(currentDir, ".songbook.yaml")) ||
			fileExists(filepath.Join(currentDir, ".songbook.yml")) ||
			dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// WatchDebounceDuration parses Corpus.WatchDebounce. Validate guarantees it
// parses for a loaded config.
func (c *Config) WatchDebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Corpus.WatchDebounce)
	if err != nil {
		return 0
	}
	return d
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Corpus.Path) == "" {
		return sberrors.ConfigError("corpus.path must not be empty", nil)
	}
	if c.Corpus.WatchDebounce != "" {
		d, err := time.ParseDuration(c.Corpus.WatchDebounce)
		if err != nil {
			return sberrors.ConfigError(fmt.Sprintf("corpus.watch_debounce is not a duration: %q", c.Corpus.WatchDebounce), err)
		}
		if d < 0 {
			return sberrors.ConfigError(fmt.Sprintf("corpus.watch_debounce must be non-negative, got %s", d), nil)
		}
	}

	if c.Search.MaxResults < 0 {
		return sberrors.ConfigError(fmt.Sprintf("search.max_results must be non-negative, got %d", c.Search.MaxResults), nil)
	}
	if c.Search.SnippetPad < 0 {
		return sberrors.ConfigError(fmt.Sprintf("search.snippet_pad must be non-negative, got %d", c.Search.SnippetPad), nil)
	}
	if c.Search.Workers < 0 {
		return sberrors.ConfigError(fmt.Sprintf("search.workers must be non-negative, got %d", c.Search.Workers), nil)
	}
	if c.Search.ShardThreshold < 0 {
		return sberrors.ConfigError(fmt.Sprintf("search.shard_threshold must be non-negative, got %d", c.Search.ShardThreshold), nil)
	}
	if (c.Search.MarkOpen == "") != (c.Search.MarkClose == "") {
		return sberrors.ConfigError("search.mark_open and search.mark_close must be set together", nil)
	}

	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Path) == "" {
		return sberrors.ConfigError("cache.path must be set when cache.enabled is true", nil)
	}
	if c.Cache.LookupCacheSize < 0 {
		return sberrors.ConfigError(fmt.Sprintf("cache.lookup_cache_size must be non-negative, got %d", c.Cache.LookupCacheSize), nil)
	}

	switch strings.ToLower(c.Display.TranslationLayout) {
	case LayoutGrouped, LayoutInline:
	default:
		return sberrors.ConfigError(fmt.Sprintf("display.translation_layout must be 'grouped' or 'inline', got %s", c.Display.TranslationLayout), nil)
	}
	switch strings.ToLower(c.Display.Color) {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return sberrors.ConfigError(fmt.Sprintf("display.color must be 'auto', 'always' or 'never', got %s", c.Display.Color), nil)
	}

	if strings.ToLower(c.Server.Transport) != "stdio" {
		return sberrors.ConfigError(fmt.Sprintf("server.transport must be 'stdio', got %s", c.Server.Transport), nil)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return sberrors.ConfigError(fmt.Sprintf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel), nil)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadUserConfig loads the user configuration file over the defaults.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	path := GetUserConfigPath()
	if !fileExists(path) {
		return nil, nil
	}
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MergeNewDefaults fills fields that an older config file left at their
// zero value. Returns the dotted names of the fields it filled.
func (c *Config) MergeNewDefaults() []string {
	defaults := NewConfig()
	var added []string

	if c.Version == 0 {
		c.Version = defaults.Version
		added = append(added, "version")
	}
	if c.Corpus.Path == "" {
		c.Corpus.Path = defaults.Corpus.Path
		added = append(added, "corpus.path")
	}
	if c.Corpus.WatchDebounce == "" {
		c.Corpus.WatchDebounce = defaults.Corpus.WatchDebounce
		added = append(added, "corpus.watch_debounce")
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = defaults.Search.MaxResults
		added = append(added, "search.max_results")
	}
	if c.Search.SnippetPad == 0 {
		c.Search.SnippetPad = defaults.Search.SnippetPad
		added = append(added, "search.snippet_pad")
	}
	if c.Search.ShardThreshold == 0 {
		c.Search.ShardThreshold = defaults.Search.ShardThreshold
		added = append(added, "search.shard_threshold")
	}
	if c.Search.MarkOpen == "" && c.Search.MarkClose == "" {
		c.Search.MarkOpen = defaults.Search.MarkOpen
		c.Search.MarkClose = defaults.Search.MarkClose
		added = append(added, "search.mark_open", "search.mark_close")
	}
	if c.Cache.Path == "" {
		c.Cache.Path = defaults.Cache.Path
		added = append(added, "cache.path")
	}
	if c.Cache.LookupCacheSize == 0 {
		c.Cache.LookupCacheSize = defaults.Cache.LookupCacheSize
		added = append(added, "cache.lookup_cache_size")
	}
	if c.Display.TranslationLayout == "" {
		c.Display.TranslationLayout = defaults.Display.TranslationLayout
		added = append(added, "display.translation_layout")
	}
	if c.Display.Color == "" {
		c.Display.Color = defaults.Display.Color
		added = append(added, "display.color")
	}
	// Booleans cannot tell "unset" from "false", so they are left alone.

	return added
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
