package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration for the service. Values come from
// a YAML file (CONFIG_PATH or ./config.yaml) with SIGNBRIDGE_* environment
// overrides taking precedence.
type Config struct {
	ListenAddr  string `mapstructure:"listen_addr"`
	DatabaseURL string `mapstructure:"database_url"`
	JWTSecret   string `mapstructure:"jwt_secret"`

	Provider ProviderConfig `mapstructure:"provider"`
	Legacy   LegacyConfig   `mapstructure:"legacy"`
}

// ProviderConfig configures the e-signature provider client and webhook.
type ProviderConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	APIKey        string `mapstructure:"api_key"`
	CallbackKey   string `mapstructure:"callback_key"`
	SenderEmail   string `mapstructure:"sender_email"`
	DocPath       string `mapstructure:"doc_path"`
	DocExpiryDays int    `mapstructure:"doc_expiry_days"`
}

// LegacyConfig configures the mainframe gateway client.
type LegacyConfig struct {
	BaseURI     string        `mapstructure:"base_uri"`
	Environment string        `mapstructure:"environment"`
	Library     string        `mapstructure:"library"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Load reads configuration from path (or ./config.yaml when empty) merged
// with SIGNBRIDGE_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = "config.yaml"
	}
	v.SetConfigFile(path)
	v.SetEnvPrefix("SIGNBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("provider.doc_expiry_days", 30)
	v.SetDefault("legacy.timeout", 10*time.Second)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	missing := []string{}
	if c.DatabaseURL == "" {
		missing = append(missing, "database_url")
	}
	if c.Provider.BaseURL == "" {
		missing = append(missing, "provider.base_url")
	}
	if c.Provider.APIKey == "" {
		missing = append(missing, "provider.api_key")
	}
	if c.Provider.CallbackKey == "" {
		missing = append(missing, "provider.callback_key")
	}
	if c.Provider.DocPath == "" {
		missing = append(missing, "provider.doc_path")
	}
	if c.Legacy.BaseURI == "" {
		missing = append(missing, "legacy.base_uri")
	}
	if c.Legacy.Library == "" {
		missing = append(missing, "legacy.library")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required keys: %s", strings.Join(missing, ", "))
	}
	if c.Provider.DocExpiryDays <= 0 {
		return fmt.Errorf("config: provider.doc_expiry_days must be positive")
	}
	return nil
}
