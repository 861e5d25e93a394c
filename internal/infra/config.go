package infra

import (
	"errors"
	"fmt"
	"os"
	"time"

	"trade_relay/internal/domain"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	BackendJSON   = "json"
	BackendSQLite = "sqlite"

	DefaultConfigPath  = "configs/config.yaml"
	DefaultGraphURL    = "https://graph.facebook.com"
	DefaultSendTimeout = 10 * time.Second
)

// Config holds every setting of the relay.
// LoadConfig reads the YAML file first, then environment variables override secrets.
type Config struct {
	App struct {
		Name       string `yaml:"name"`
		Env        string `yaml:"env"`
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"app"`

	WhatsApp struct {
		BaseURL       string `yaml:"base_url"`
		Version       string `yaml:"version"`
		PhoneNumberID string `yaml:"phone_number_id"`
		AccessToken   string `yaml:"access_token"`
		AppSecret     string `yaml:"app_secret"`
		VerifyToken   string `yaml:"verify_token"`
		ApproverWAID  string `yaml:"approver_waid"`
		TimeoutSec    int    `yaml:"timeout_sec"`
		Flow          struct {
			ID     string `yaml:"id"`
			Token  string `yaml:"token"`
			Screen string `yaml:"screen"`
			CTA    string `yaml:"cta"`
			// Data seeds the first flow screen (flow_action_payload.data)
			Data map[string]any `yaml:"data"`
		} `yaml:"flow"`
	} `yaml:"whatsapp"`

	Storage struct {
		Backend    string `yaml:"backend"`
		JSONPath   string `yaml:"json_path"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
// A .env file in the working directory is loaded into the environment first.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return ParseConfig(data)
}

// ParseConfig builds a Config from YAML bytes, applying defaults and env overrides.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.App.Env != EnvDevelopment && c.App.Env != EnvProduction {
		return &domain.ConfigError{Field: "app.env", Err: fmt.Errorf("unknown environment %q", c.App.Env)}
	}

	if c.WhatsApp.Version == "" {
		return &domain.ConfigError{Field: "whatsapp.version", Err: errors.New("api version is required")}
	}
	if c.WhatsApp.PhoneNumberID == "" {
		return &domain.ConfigError{Field: "whatsapp.phone_number_id", Err: errors.New("sender phone id is required")}
	}
	if c.WhatsApp.TimeoutSec <= 0 {
		return &domain.ConfigError{Field: "whatsapp.timeout_sec", Err: errors.New("timeout must be positive")}
	}
	if c.App.Env == EnvProduction && c.WhatsApp.AppSecret == "" {
		return &domain.ConfigError{Field: "whatsapp.app_secret", Err: errors.New("app secret is required in production")}
	}

	switch c.Storage.Backend {
	case BackendJSON:
		if c.Storage.JSONPath == "" {
			return &domain.ConfigError{Field: "storage.json_path", Err: errors.New("path is required")}
		}
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return &domain.ConfigError{Field: "storage.sqlite_path", Err: errors.New("path is required")}
		}
	default:
		return &domain.ConfigError{Field: "storage.backend", Err: fmt.Errorf("unknown backend %q", c.Storage.Backend)}
	}

	return nil
}

// SendTimeout returns the outbound request deadline
func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.WhatsApp.TimeoutSec) * time.Second
}

// IsProduction reports whether development-only operations must be refused
func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "trade-relay"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = EnvDevelopment
	}
	if cfg.App.ListenAddr == "" {
		cfg.App.ListenAddr = ":8000"
	}
	if cfg.WhatsApp.BaseURL == "" {
		cfg.WhatsApp.BaseURL = DefaultGraphURL
	}
	if cfg.WhatsApp.TimeoutSec == 0 {
		cfg.WhatsApp.TimeoutSec = int(DefaultSendTimeout / time.Second)
	}
	if cfg.WhatsApp.Flow.CTA == "" {
		cfg.WhatsApp.Flow.CTA = "Start trade"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendJSON
	}
	if cfg.Storage.JSONPath == "" {
		cfg.Storage.JSONPath = "data/development_data.json"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/development.db"
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
}

// overrideWithEnv replaces settings with environment variables when they are set.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("RELAY_ENV"); v != "" {
		cfg.App.Env = v
	}
	if v := os.Getenv("RELAY_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("ACCESS_TOKEN"); v != "" {
		cfg.WhatsApp.AccessToken = v
	}
	if v := os.Getenv("APP_SECRET"); v != "" {
		cfg.WhatsApp.AppSecret = v
	}
	if v := os.Getenv("VERIFY_TOKEN"); v != "" {
		cfg.WhatsApp.VerifyToken = v
	}
	if v := os.Getenv("PHONE_NUMBER_ID"); v != "" {
		cfg.WhatsApp.PhoneNumberID = v
	}
	if v := os.Getenv("VERSION"); v != "" {
		cfg.WhatsApp.Version = v
	}
	if v := os.Getenv("APPROVER_WAID"); v != "" {
		cfg.WhatsApp.ApproverWAID = v
	}
}
