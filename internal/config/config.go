// Package config provides centralized configuration loading for the network watchdog using spf13/viper.
// All config access must go through this package.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Exported configuration keys
const (
	LogLevelKey  = "log_level"
	LogFormatKey = "log_format"

	// EnvPrefix is prepended to environment overrides, e.g. NWWATCHDOG_WATCHDOG_CHECK_SECONDS.
	EnvPrefix = "NWWATCHDOG"

	// DefaultConfigPath is where packaged installs keep the configuration.
	DefaultConfigPath = "/etc/waggle/nw/config.yaml"
)

// Config holds the configuration state and provides thread-safe access
type Config struct {
	viper       *viper.Viper
	initialized bool
	initOnce    sync.Once
	mu          sync.RWMutex
	configPath  string
	searchPaths []string
	loadErr     error
}

var (
	instance          *Config
	instanceOnce      sync.Once
	requiredKeys      []string
	requiredKeysMutex sync.Mutex
	// MissingKeys holds the keys reported missing by the last CheckRequiredKeys call.
	MissingKeys []string
)

// getInstance returns the singleton config instance
func getInstance() *Config {
	instanceOnce.Do(func() {
		instance = &Config{
			searchPaths: []string{"./configs", "/etc/waggle/nw"},
		}
	})
	return instance
}

// InitConfig explicitly initializes the configuration with optional parameters
func InitConfig(opts ...ConfigOption) error {
	cfg := getInstance()
	return cfg.init(opts...)
}

// ConfigOption allows for functional options pattern
type ConfigOption func(*Config)

// WithConfigPath sets a specific config file path.
// It overrides any search paths.
func WithConfigPath(path string) ConfigOption {
	return func(c *Config) {
		c.configPath = path
		c.searchPaths = nil
	}
}

// WithSearchPaths sets additional search paths for config files.
// Only used if no explicit config path is set.
func WithSearchPaths(paths ...string) ConfigOption {
	return func(c *Config) {
		if c.configPath == "" {
			c.searchPaths = append(c.searchPaths, paths...)
		}
	}
}

// init initializes the config instance with the provided options
func (c *Config) init(opts ...ConfigOption) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	c.initOnce.Do(func() {
		for _, opt := range opts {
			opt(c)
		}

		c.viper, err = c.loadConfig()
		if err == nil {
			c.initialized = true
		}
	})
	return err
}

// loadConfig initializes viper and loads config from file and env.
// A missing file leaves the defaults in place; an unparsable file is an error.
func (c *Config) loadConfig() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("config")

	if c.configPath != "" {
		v.SetConfigFile(c.configPath)
	} else {
		for _, path := range c.searchPaths {
			v.AddConfigPath(path)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		if isNotExist(err) {
			return v, nil
		}
		c.loadErr = fmt.Errorf("failed to parse config file: %w", err)
		return v, c.loadErr
	}
	return v, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// ensureInitialized ensures config is initialized (lazy loading fallback)
func (c *Config) ensureInitialized() error {
	c.mu.RLock()
	if c.initialized {
		c.mu.RUnlock()
		return nil
	}
	c.mu.RUnlock()

	return c.init()
}

// ConfigFileUsed returns the path of the loaded config file, if any.
func ConfigFileUsed() string {
	cfg := getInstance()
	_ = cfg.ensureInitialized()
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	if cfg.viper == nil {
		return ""
	}
	return cfg.viper.ConfigFileUsed()
}

// GetString returns a string config value.
func GetString(key string) string {
	cfg := getInstance()
	_ = cfg.ensureInitialized()
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	if cfg.viper == nil {
		return ""
	}
	return cfg.viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	cfg := getInstance()
	_ = cfg.ensureInitialized()
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	if cfg.viper == nil {
		return 0
	}
	return cfg.viper.GetInt(key)
}

// GetFloat64 returns a float64 config value.
func GetFloat64(key string) float64 {
	cfg := getInstance()
	_ = cfg.ensureInitialized()
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	if cfg.viper == nil {
		return 0
	}
	return cfg.viper.GetFloat64(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	cfg := getInstance()
	_ = cfg.ensureInitialized()
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	if cfg.viper == nil {
		return false
	}
	return cfg.viper.GetBool(key)
}

// GetStringSlice returns a []string config value.
func GetStringSlice(key string) []string {
	cfg := getInstance()
	_ = cfg.ensureInitialized()
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	if cfg.viper == nil {
		return nil
	}
	return cfg.viper.GetStringSlice(key)
}

// GetDuration returns a time.Duration config value.
func GetDuration(key string) time.Duration {
	cfg := getInstance()
	_ = cfg.ensureInitialized()
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	if cfg.viper == nil {
		return 0
	}
	return cfg.viper.GetDuration(key)
}

// UnmarshalKey decodes the subtree at key into out using mapstructure tags.
func UnmarshalKey(key string, out interface{}) error {
	cfg := getInstance()
	_ = cfg.ensureInitialized()
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	if cfg.viper == nil {
		return fmt.Errorf("config not initialized")
	}
	return cfg.viper.UnmarshalKey(key, out)
}

// RegisterRequiredKey adds a key to the list of required configuration items.
// Packages call this from init(); CheckRequiredKeys validates them later.
func RegisterRequiredKey(key string) {
	requiredKeysMutex.Lock()
	defer requiredKeysMutex.Unlock()
	for _, k := range requiredKeys {
		if k == key {
			return
		}
	}
	requiredKeys = append(requiredKeys, key)
}

// CheckRequiredKeys validates that all registered required keys are present in the configuration.
func CheckRequiredKeys() error {
	requiredKeysMutex.Lock()
	defer requiredKeysMutex.Unlock()

	MissingKeys = nil
	for _, key := range requiredKeys {
		if !HasKey(key) {
			MissingKeys = append(MissingKeys, key)
		}
	}

	if len(MissingKeys) > 0 {
		return fmt.Errorf("missing required configuration keys: %s", strings.Join(MissingKeys, ", "))
	}
	return nil
}

// HasKey returns true if the config has the key.
func HasKey(key string) bool {
	cfg := getInstance()
	_ = cfg.ensureInitialized()
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	if cfg.viper == nil {
		return false
	}
	return cfg.viper.IsSet(key)
}

// SetForTest sets a configuration value for testing purposes only.
func SetForTest(key string, value interface{}) {
	cfg := getInstance()
	_ = cfg.ensureInitialized()
	cfg.mu.Lock()
	defer cfg.mu.Unlock()

	if cfg.viper != nil {
		cfg.viper.Set(key, value)
	}
}

// ResetForTest resets the config singleton for test use only.
func ResetForTest() {
	instanceOnce = sync.Once{}
	instance = nil
	requiredKeysMutex.Lock()
	requiredKeys = nil
	MissingKeys = nil
	requiredKeysMutex.Unlock()
}
