package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// configName is the base name of the config file, without extension.
const configName = "restprovider"

// InitViper initializes Viper with the configuration file and environment variables.
// If configFile is empty, it searches for restprovider.yaml/.yml in standard locations.
// The search requires an explicit YAML extension to avoid matching the binary itself.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		// Set name/type without search paths so ReadInConfig returns
		// ConfigFileNotFoundError (handled gracefully by callers).
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}

	// Environment variable support: RESTPROVIDER_BACKEND_BASE_URL
	viper.SetEnvPrefix("RESTPROVIDER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// findConfigFile searches standard locations for a restprovider config file.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".restprovider"),
	}
	if runtime.GOOS == "windows" {
		if pd := os.Getenv("ProgramData"); pd != "" {
			paths = append(paths, filepath.Join(pd, configName))
		}
	} else {
		paths = append(paths, "/etc/restprovider")
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths searches the given directories for restprovider.yaml or .yml.
// Returns the full path of the first match, or empty string if none found.
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, configName+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds every config key for environment variable support.
// Example: RESTPROVIDER_SANDBOX_HTTP_ADDR overrides sandbox.http_addr
func bindNestedEnvKeys() {
	_ = viper.BindEnv("backend.base_url")
	_ = viper.BindEnv("backend.primary_key")
	_ = viper.BindEnv("backend.timeout")
	_ = viper.BindEnv("backend.user_agent")

	_ = viper.BindEnv("log_level")
	_ = viper.BindEnv("output")

	_ = viper.BindEnv("sandbox.http_addr")
	_ = viper.BindEnv("sandbox.store")
	_ = viper.BindEnv("sandbox.sqlite_path")
	_ = viper.BindEnv("sandbox.seed_file")
	_ = viper.BindEnv("sandbox.rate_limit")
	_ = viper.BindEnv("sandbox.rate_burst")

	_ = viper.BindEnv("tracing.enabled")
	_ = viper.BindEnv("tracing.metrics")
	_ = viper.BindEnv("tracing.output")
}

// LoadConfig reads the configuration file, applies environment overrides,
// sets defaults, validates, and returns the Config.
func LoadConfig() (*Config, error) {
	cfg, err := LoadConfigRaw()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigRaw reads the configuration file and applies defaults,
// but does NOT validate.
// Use this when CLI flags may override values before validation.
func LoadConfigRaw() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars only
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	return &cfg, nil
}

// ConfigFileUsed returns the path to the configuration file that was loaded.
// Returns an empty string if no config file was found (env vars only mode).
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
