package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the application configuration as loaded by viper.
type Config struct {
	Store struct {
		Dir string `mapstructure:"dir" yaml:"dir"`
	} `mapstructure:"store" yaml:"store"`
	ClipTime        int    `mapstructure:"clip_time" yaml:"clip_time"`
	GeneratedLength int    `mapstructure:"generated_length" yaml:"generated_length"`
	Editor          string `mapstructure:"editor" yaml:"editor"`
	Language        string `mapstructure:"language" yaml:"language"`
	Gpg             struct {
		Binary string `mapstructure:"binary" yaml:"binary"`
	} `mapstructure:"gpg" yaml:"gpg"`
	Audit struct {
		Type string `mapstructure:"type" yaml:"type"`
		Dsn  string `mapstructure:"dsn" yaml:"dsn"`
	} `mapstructure:"audit" yaml:"audit"`
	Sync struct {
		Remote string `mapstructure:"remote" yaml:"remote"`
		Path   string `mapstructure:"path" yaml:"path"`
	} `mapstructure:"sync" yaml:"sync"`
}

// lastFileUsed records the config file the previous LoadConfig read, or ""
// when it ran on defaults only.
var lastFileUsed string

// FileUsed returns the path of the config file the last LoadConfig call
// read, or "" when no file was found.
func FileUsed() string { return lastFileUsed }

// getConfigPath returns the full path for the configuration file.
func getConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		// System-wide configuration paths
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "PointGuard")
		default: // Linux, macOS, etc.
			configDir = "/etc/pointguard"
		}
	} else {
		// User-specific configuration paths
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "pointguard")
	}

	return filepath.Join(configDir, "pointguard.yaml"), nil
}

// LoadConfig builds the configuration from defaults, config files, the
// environment, and the command's flags, in ascending precedence.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, additionalConfigFilePath *string) (T, error) {
	var c T
	v := viper.New()

	// 1. Set defaults
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// 2. Set up file search paths
	v.SetConfigName("pointguard")
	v.SetConfigType("yaml")

	// 3. Add explicit config file path if provided via --config flag.
	// This has the highest precedence for file-based configuration.
	if additionalConfigFilePath != nil {
		v.SetConfigFile(*additionalConfigFilePath)
	}

	// 4. Add standard config locations
	if userConfigPath, err := getConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := getConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".") // Look for pointguard.yaml in current dir

	// 5. Read in the primary config file.
	if err := v.ReadInConfig(); err != nil {
		// It's okay if the file is not found, but other errors are fatal.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
	}
	lastFileUsed = v.ConfigFileUsed()

	// 6. Read from environment variables
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix("pointguard")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 7. Bind CLI flags
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return c, err
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}

	return c, nil
}

// WriteConfigFile persists the configuration as YAML to the user or system
// config path.
func WriteConfigFile[T any](c *T, system bool) error {
	path, err := getConfigPath(system)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	err = os.WriteFile(path, data, 0600) // Use 0600 for security, as it may contain secrets
	if err != nil {
		return err
	}

	return nil
}
