// Package config loads server settings from defaults, an optional config
// file and ONECLICK_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const EnvPrefix = "ONECLICK"

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	GitHub    GitHubConfig    `mapstructure:"github"`
	Build     BuildConfig     `mapstructure:"build"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Keyring   KeyringConfig   `mapstructure:"keyring"`
	Workspace WorkspaceConfig `mapstructure:"workspace"`
}

type HTTPConfig struct {
	Addr        string   `mapstructure:"addr" validate:"required"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `mapstructure:"pretty"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=sqlite postgres mysql"`
	// DSN is a file path for sqlite and a connection string otherwise.
	DSN string `mapstructure:"dsn"`
}

type AuthConfig struct {
	JWTSecret   string        `mapstructure:"jwt_secret" validate:"required,min=16"`
	TokenTTL    time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
	AdminEmails []string      `mapstructure:"admin_emails" validate:"dive,email"`
}

type GitHubConfig struct {
	APIURL string `mapstructure:"api_url" validate:"required,url"`
}

type BuildConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	MaxPollAttempts int           `mapstructure:"max_poll_attempts" validate:"gt=0"`
	MaxPollDuration time.Duration `mapstructure:"max_poll_duration" validate:"gte=0"`
}

type GeneratorConfig struct {
	DefaultModel       string `mapstructure:"default_model"`
	HistoryTurns       int    `mapstructure:"history_turns" validate:"gt=0"`
	HistoryTokenBudget int    `mapstructure:"history_token_budget" validate:"gte=0"`
}

type WorkspaceConfig struct {
	// IdleTimeout closes a user's in-memory workspace after this much
	// inactivity. Zero disables eviction.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"gte=0"`
}

type KeyringConfig struct {
	// Backend is "file" or an OS keychain name understood by the keyring
	// library, e.g. "secret-service" or "keychain".
	Backend  string `mapstructure:"backend"`
	Dir      string `mapstructure:"dir"`
	Password string `mapstructure:"password"`
}

// SetDefaults registers every key so environment overrides resolve even when
// no config file is present.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.admin_emails", []string{})
	v.SetDefault("github.api_url", "https://api.github.com")
	v.SetDefault("build.poll_interval", 10*time.Second)
	v.SetDefault("build.max_poll_attempts", 90)
	v.SetDefault("build.max_poll_duration", 20*time.Minute)
	v.SetDefault("generator.default_model", "gemini|gemini-3-pro-preview")
	v.SetDefault("generator.history_turns", 15)
	v.SetDefault("generator.history_token_budget", 24000)
	v.SetDefault("keyring.backend", "file")
	v.SetDefault("keyring.dir", "")
	v.SetDefault("keyring.password", "")
	v.SetDefault("workspace.idle_timeout", 30*time.Minute)
}

// New returns a viper instance wired for ONECLICK_ variables, reading file
// when it is non-empty.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file == "" {
		v.SetConfigName("oneclick")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(file)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return v, nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.HTTP.CORSOrigins = splitList(cfg.HTTP.CORSOrigins)
	cfg.Auth.AdminEmails = splitList(cfg.Auth.AdminEmails)
	for i, e := range cfg.Auth.AdminEmails {
		cfg.Auth.AdminEmails[i] = strings.ToLower(e)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// splitList accepts both real lists and a single comma separated value, which
// is what environment variables produce.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
