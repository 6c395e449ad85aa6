package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/logbook/internal/draft"
	"github.com/mesh-intelligence/logbook/internal/logging"
	"github.com/mesh-intelligence/logbook/internal/paths"
	"github.com/mesh-intelligence/logbook/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "LOGBOOK"

	cfgKeyBackend       = "backend"
	cfgKeyDataDir       = "data_dir"
	cfgKeyDraftDebounce = "draft_debounce"
	cfgKeyListen        = "listen"
	cfgKeyLogLevel      = "log_level"
	cfgKeyLogFormat     = "log_format"

	defaultBackend   = types.BackendFile
	defaultListen    = "127.0.0.1:4780"
	defaultLogLevel  = "warn"
	defaultLogFormat = logging.FormatConsole
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# Logbook configuration

# Storage backend: file, sqlite or memory
backend: file

# Data directory (optional; overridable by --data-dir or LOGBOOK_DATA_DIR)
# data_dir:

# Delay between the last draft edit and its autosave
draft_debounce: 400ms

# Address of "logbook serve"
listen: 127.0.0.1:4780

# Logging
log_level: warn
log_format: console
`

// configFile holds the structure written to config.yaml by init.
type configFile struct {
	Backend       string `yaml:"backend"`
	DataDir       string `yaml:"data_dir,omitempty"`
	DraftDebounce string `yaml:"draft_debounce"`
	Listen        string `yaml:"listen"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
}

// settings is the resolved configuration of one invocation.
type settings struct {
	ConfigDir     string
	DataDir       string
	Backend       string
	DraftDebounce time.Duration
	Listen        string
	LogLevel      string
	LogFormat     string
}

// loadSettings resolves the config directory, reads config.yaml and
// applies environment and flag overrides.
func loadSettings() (settings, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return settings{}, fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return settings{}, err
	}

	s := settings{
		ConfigDir:     configDir,
		Backend:       v.GetString(cfgKeyBackend),
		DraftDebounce: v.GetDuration(cfgKeyDraftDebounce),
		Listen:        v.GetString(cfgKeyListen),
		LogLevel:      v.GetString(cfgKeyLogLevel),
		LogFormat:     v.GetString(cfgKeyLogFormat),
	}
	if flags.backend != "" {
		s.Backend = flags.backend
	}
	if flags.logLevel != "" {
		s.LogLevel = flags.logLevel
	}
	if s.DraftDebounce <= 0 {
		s.DraftDebounce = draft.DefaultDebounce
	}

	s.DataDir, err = paths.ResolveDataDir(flags.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return settings{}, fmt.Errorf("resolve data dir: %w", err)
	}
	return s, nil
}

// loadConfig reads config.yaml from the resolved config directory using Viper.
// It creates the config directory and a default config.yaml on first run.
// A missing config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := ensureConfigDir(configDir); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}

	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, defaultBackend)
	v.SetDefault(cfgKeyDraftDebounce, draft.DefaultDebounce.String())
	v.SetDefault(cfgKeyListen, defaultListen)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeyLogFormat, defaultLogFormat)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	return v, nil
}

// ensureConfigDir creates the config directory if it does not exist.
func ensureConfigDir(configDir string) error {
	return os.MkdirAll(configDir, 0o755)
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// writeConfigIfMissing creates config.yaml from cfg if the file does not
// exist. If it already exists, the function returns nil (idempotent).
func writeConfigIfMissing(path string, cfg configFile) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}

	return true, os.WriteFile(path, data, 0o644)
}
