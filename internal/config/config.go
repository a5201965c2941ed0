// Package config defines vibejira's settings and loads them through viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable viper reads.
const EnvPrefix = "VIBEJIRA"

type Config struct {
	StateDir string       `mapstructure:"state_dir"`
	DB       DBConfig     `mapstructure:"db"`
	Server   ServerConfig `mapstructure:"server"`
	Jira     JiraConfig   `mapstructure:"jira"`
	Auth     AuthConfig   `mapstructure:"auth"`
	Log      LogConfig    `mapstructure:"log"`
}

type DBConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

// Source returns the store DSN for the configured driver.
func (c DBConfig) Source() string {
	if c.Driver == "postgres" {
		return c.DSN
	}
	return c.Path
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"`
}

type JiraConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Email   string        `mapstructure:"email"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Key describes a config key and the environment variables that set it,
// highest precedence first.
type Key struct {
	Name    string
	EnvVars []string
}

// Keys lists every config key in display order.
var Keys = []Key{
	{Name: "state_dir"},
	{Name: "db.driver"},
	{Name: "db.path"},
	{Name: "db.dsn"},
	{Name: "server.addr"},
	{Name: "server.mode"},
	{Name: "jira.base_url", EnvVars: []string{"JIRA_BASE_URL"}},
	{Name: "jira.email", EnvVars: []string{"JIRA_USER_EMAIL"}},
	{Name: "jira.token", EnvVars: []string{"JIRA_PAT"}},
	{Name: "jira.timeout"},
	{Name: "auth.secret"},
	{Name: "auth.token_ttl"},
	{Name: "log.level"},
	{Name: "log.format"},
}

func init() {
	for i, k := range Keys {
		Keys[i].EnvVars = append([]string{EnvVar(k.Name)}, k.EnvVars...)
	}
}

// EnvVar returns the prefixed environment variable for a dotted key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// DefaultDir returns ~/.config/vibejira.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "vibejira"), nil
}

// SetDefaults registers the default of every key, rooted at stateDir.
func SetDefaults(v *viper.Viper, stateDir string) {
	v.SetDefault("state_dir", stateDir)
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.path", filepath.Join(stateDir, "vibejira.db"))
	v.SetDefault("db.dsn", "")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("jira.base_url", "")
	v.SetDefault("jira.email", "")
	v.SetDefault("jira.token", "")
	v.SetDefault("jira.timeout", "10s")
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// BindEnv wires the prefixed environment variables plus the unprefixed JIRA
// variables older deployments export.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range Keys {
		if len(k.EnvVars) > 1 {
			_ = v.BindEnv(append([]string{k.Name}, k.EnvVars...)...)
		}
	}
}

// LoadDotEnv loads a .env file from the working directory if there is one.
// Variables already set in the environment win.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "sqlite":
		if c.DB.Path == "" {
			return fmt.Errorf("db.path is required for the sqlite driver")
		}
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("db.driver must be sqlite or postgres, got %q", c.DB.Driver)
	}

	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode)
	}
	return nil
}

// RequireSecret reports a missing token signing secret.
func (c *Config) RequireSecret() error {
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is not set (export %s or add it to the config file)", EnvVar("auth.secret"))
	}
	return nil
}
