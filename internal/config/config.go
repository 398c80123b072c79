package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sarveshkapre/secretive-x/internal/model"
	"github.com/sarveshkapre/secretive-x/internal/policy"
)

// Error reports an invalid configuration value.
type Error struct {
	Field string
	Msg   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Msg)
}

// Config is the effective configuration after merging file, environment and
// command-line flags.
type Config struct {
	KeyDir          string         `mapstructure:"key_dir" yaml:"key_dir"`
	ManifestPath    string         `mapstructure:"manifest_path" yaml:"manifest_path"`
	DefaultProvider string         `mapstructure:"default_provider" yaml:"default_provider"`
	Language        string         `mapstructure:"language" yaml:"language"`
	Policy          PolicyConfig   `mapstructure:"policy" yaml:"policy"`
	Database        DatabaseConfig `mapstructure:"database" yaml:"database"`
}

// PolicyConfig feeds the policy engine. Empty lists and patterns mean no
// restriction.
type PolicyConfig struct {
	AllowedProviders []string `mapstructure:"allowed_providers" yaml:"allowed_providers"`
	NamePattern      string   `mapstructure:"name_pattern" yaml:"name_pattern"`
}

// DatabaseConfig selects the audit log backend.
type DatabaseConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
	Dsn  string `mapstructure:"dsn" yaml:"dsn"`
}

// DatabaseTypes lists the accepted database.type values. "none" disables the
// audit log entirely.
var DatabaseTypes = []string{"sqlite", "postgres", "mysql", "none"}

// Default returns the built-in configuration: keys under ~/.ssh/secretive-x,
// manifest next to the config file, sqlite audit log in the working
// directory.
func Default() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("could not get user home directory: %w", err)
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Config{}, fmt.Errorf("could not get user config directory: %w", err)
	}
	return Config{
		KeyDir:          filepath.Join(home, ".ssh", "secretive-x"),
		ManifestPath:    filepath.Join(configDir, "secretive-x", "keys.json"),
		DefaultProvider: model.ProviderSoftware,
		Language:        "en",
		Database:        DatabaseConfig{Type: "sqlite", Dsn: "./secretive-x.db"},
	}, nil
}

// GetConfigPath returns the full path for the configuration file.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		// System-wide configuration paths
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "secretive-x")
		default: // Linux, macOS, etc.
			configDir = "/etc/secretive-x"
		}
	} else {
		// User-specific configuration paths
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "secretive-x")
	}

	return filepath.Join(configDir, "secretive-x.yaml"), nil
}

// LoadConfig merges defaults, the config file, environment variables and
// command-line flags into a config value. It returns the config file that was
// actually read, or "" when the process is running on defaults. A missing
// config file is reported as viper.ConfigFileNotFoundError so callers can
// treat the first run specially.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, explicitConfigFile *string) (T, string, error) {
	var c T
	v := viper.New()

	// 1. Register defaults
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// 2. Set up file search: secretive-x.yaml in the user config dir, the
	// system dir, then the working directory. An explicit --config path
	// overrides the search entirely.
	v.SetConfigName("secretive-x")
	v.SetConfigType("yaml")
	if explicitConfigFile != nil {
		v.SetConfigFile(*explicitConfigFile)
	}
	if userConfigPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	// 3. Read the config file. Not having one is fine; the caller decides
	// whether to write a default.
	var notFound error
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, "", err
		}
		notFound = err
	}

	// 4. Environment overrides: SECRETIVE_X_KEY_DIR, SECRETIVE_X_DATABASE_TYPE, ...
	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix("secretive_x")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 5. Command-line flags win over everything.
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return c, "", err
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, "", err
	}
	return c, v.ConfigFileUsed(), notFound
}

// WriteConfigFile persists the configuration to the standard path with owner
// only permissions.
func WriteConfigFile[T any](c *T, system bool) error {
	path, err := GetConfigPath(system)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	// 0600: the file may name private key locations.
	return os.WriteFile(path, data, 0o600)
}

// Normalize fills empty fields from the defaults and turns the path fields
// into absolute paths, expanding a leading ~.
func (c *Config) Normalize() error {
	def, err := Default()
	if err != nil {
		return err
	}
	if c.KeyDir == "" {
		c.KeyDir = def.KeyDir
	}
	if c.ManifestPath == "" {
		c.ManifestPath = def.ManifestPath
	}
	if c.DefaultProvider == "" {
		c.DefaultProvider = def.DefaultProvider
	}
	if c.Language == "" {
		c.Language = def.Language
	}
	if c.Database.Type == "" {
		c.Database.Type = def.Database.Type
	}
	if c.Database.Dsn == "" {
		c.Database.Dsn = def.Database.Dsn
	}

	if c.KeyDir, err = absPath(c.KeyDir); err != nil {
		return &Error{Field: "key_dir", Msg: err.Error()}
	}
	if c.ManifestPath, err = absPath(c.ManifestPath); err != nil {
		return &Error{Field: "manifest_path", Msg: err.Error()}
	}
	return nil
}

// Validate rejects values the engine cannot work with. Call after Normalize.
func (c *Config) Validate() error {
	if !filepath.IsAbs(c.KeyDir) {
		return &Error{Field: "key_dir", Msg: fmt.Sprintf("must be an absolute path, got %q", c.KeyDir)}
	}
	if !filepath.IsAbs(c.ManifestPath) {
		return &Error{Field: "manifest_path", Msg: fmt.Sprintf("must be an absolute path, got %q", c.ManifestPath)}
	}
	if !slices.Contains(model.KnownProviders, c.DefaultProvider) {
		return &Error{Field: "default_provider", Msg: fmt.Sprintf("unknown provider %q, known: %s", c.DefaultProvider, strings.Join(model.KnownProviders, ", "))}
	}
	for _, p := range c.Policy.AllowedProviders {
		if !slices.Contains(model.KnownProviders, p) {
			return &Error{Field: "policy.allowed_providers", Msg: fmt.Sprintf("unknown provider %q, known: %s", p, strings.Join(model.KnownProviders, ", "))}
		}
	}
	if _, err := policy.Compile(c.Policy.AllowedProviders, c.Policy.NamePattern); err != nil {
		return &Error{Field: "policy.name_pattern", Msg: err.Error()}
	}
	if !slices.Contains(DatabaseTypes, c.Database.Type) {
		return &Error{Field: "database.type", Msg: fmt.Sprintf("unknown type %q, known: %s", c.Database.Type, strings.Join(DatabaseTypes, ", "))}
	}
	return nil
}

// CompilePolicy builds the policy engine input from the validated config.
func (c *Config) CompilePolicy() (policy.Policy, error) {
	return policy.Compile(c.Policy.AllowedProviders, c.Policy.NamePattern)
}

func absPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}
	return filepath.Abs(path)
}
