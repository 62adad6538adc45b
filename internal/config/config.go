package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Autosave  AutosaveConfig  `yaml:"autosave"`
	Auth      AuthConfig      `yaml:"auth"`
	OAuth     OAuthConfig     `yaml:"oauth"`
	SMTP      SMTPConfig      `yaml:"smtp"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// PublicURL is the app address sign-in and recovery links return to.
	PublicURL string `yaml:"public_url"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

type TransportConfig struct {
	// Mode is "stdio" or "http".
	Mode string `yaml:"mode"`
}

type AutosaveConfig struct {
	Quiescence   time.Duration `yaml:"quiescence"`
	FlushTimeout time.Duration `yaml:"flush_timeout"`
}

type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret"`
	Issuer      string        `yaml:"issuer"`
	Audience    string        `yaml:"audience"`
	AccessTTL   time.Duration `yaml:"access_ttl"`
	RefreshTTL  time.Duration `yaml:"refresh_ttl"`
	RecoveryTTL time.Duration `yaml:"recovery_ttl"`
	// RecoveryURL overrides where password-recovery links point.
	RecoveryURL string `yaml:"recovery_url"`
	// PurgeInterval controls how often expired revocations are removed.
	// Zero disables purging.
	PurgeInterval time.Duration `yaml:"purge_interval"`
}

type OAuthConfig struct {
	StateTTL time.Duration  `yaml:"state_ttl"`
	Google   ProviderConfig `yaml:"google"`
}

type ProviderConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// Enabled reports whether the provider has credentials.
func (p ProviderConfig) Enabled() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Sender   string `yaml:"sender"`
}

// Enabled reports whether mail should go through a relay.
func (s SMTPConfig) Enabled() bool {
	return s.Host != ""
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      8080,
			PublicURL: "http://localhost:8080/",
		},
		DB: DBConfig{
			Path: "wellnest.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		Autosave: AutosaveConfig{
			Quiescence:   5 * time.Second,
			FlushTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			Issuer:        "wellnest",
			Audience:      "wellnest",
			AccessTTL:     time.Hour,
			RefreshTTL:    30 * 24 * time.Hour,
			RecoveryTTL:   time.Hour,
			PurgeInterval: time.Hour,
		},
		OAuth: OAuthConfig{
			StateTTL: 10 * time.Minute,
		},
		SMTP: SMTPConfig{
			Port: 587,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("WELLNEST_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid transport mode %q: want stdio or http", c.Transport.Mode)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Autosave.Quiescence <= 0 {
		return fmt.Errorf("autosave quiescence must be positive")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"WELLNEST_SERVER_HOST", &cfg.Server.Host},
		{"WELLNEST_PUBLIC_URL", &cfg.Server.PublicURL},
		{"WELLNEST_DB_PATH", &cfg.DB.Path},
		{"WELLNEST_LOG_LEVEL", &cfg.Log.Level},
		{"WELLNEST_LOG_PATH", &cfg.Log.Path},
		{"WELLNEST_TRANSPORT", &cfg.Transport.Mode},
		{"WELLNEST_JWT_SECRET", &cfg.Auth.JWTSecret},
		{"WELLNEST_JWT_ISSUER", &cfg.Auth.Issuer},
		{"WELLNEST_JWT_AUDIENCE", &cfg.Auth.Audience},
		{"WELLNEST_RECOVERY_URL", &cfg.Auth.RecoveryURL},
		{"WELLNEST_GOOGLE_CLIENT_ID", &cfg.OAuth.Google.ClientID},
		{"WELLNEST_GOOGLE_CLIENT_SECRET", &cfg.OAuth.Google.ClientSecret},
		{"WELLNEST_GOOGLE_REDIRECT_URL", &cfg.OAuth.Google.RedirectURL},
		{"WELLNEST_SMTP_HOST", &cfg.SMTP.Host},
		{"WELLNEST_SMTP_USERNAME", &cfg.SMTP.Username},
		{"WELLNEST_SMTP_PASSWORD", &cfg.SMTP.Password},
		{"WELLNEST_SMTP_SENDER", &cfg.SMTP.Sender},
	}
	for _, s := range strs {
		if v := os.Getenv(s.key); v != "" {
			*s.dst = v
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"WELLNEST_SERVER_PORT", &cfg.Server.Port},
		{"WELLNEST_SMTP_PORT", &cfg.SMTP.Port},
	}
	for _, i := range ints {
		if v := os.Getenv(i.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", i.key, err)
			}
			*i.dst = n
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"WELLNEST_AUTOSAVE_QUIESCENCE", &cfg.Autosave.Quiescence},
		{"WELLNEST_AUTOSAVE_FLUSH_TIMEOUT", &cfg.Autosave.FlushTimeout},
		{"WELLNEST_ACCESS_TTL", &cfg.Auth.AccessTTL},
		{"WELLNEST_REFRESH_TTL", &cfg.Auth.RefreshTTL},
		{"WELLNEST_RECOVERY_TTL", &cfg.Auth.RecoveryTTL},
		{"WELLNEST_PURGE_INTERVAL", &cfg.Auth.PurgeInterval},
		{"WELLNEST_OAUTH_STATE_TTL", &cfg.OAuth.StateTTL},
	}
	for _, d := range durations {
		if v := os.Getenv(d.key); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", d.key, err)
			}
			*d.dst = parsed
		}
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
