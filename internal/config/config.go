package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	RefData RefDataConfig `yaml:"refdata" mapstructure:"refdata"`
	Email   EmailConfig   `yaml:"email" mapstructure:"email"`
	CRM     CRMConfig     `yaml:"crm" mapstructure:"crm"`
	Retry   RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the lead storage backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// RefDataConfig configures where the six reference datasets come from.
type RefDataConfig struct {
	// Source is "dir" (local JSON files) or "http" (BaseURL + "/<dataset>.json").
	Source          string `yaml:"source" mapstructure:"source"`
	Dir             string `yaml:"dir" mapstructure:"dir"`
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	LoadTimeoutSecs int    `yaml:"load_timeout_secs" mapstructure:"load_timeout_secs"`
	StrictBands     bool   `yaml:"strict_bands" mapstructure:"strict_bands"`
}

// LoadTimeout returns the reference data load timeout.
func (c RefDataConfig) LoadTimeout() time.Duration {
	return time.Duration(c.LoadTimeoutSecs) * time.Second
}

// EmailConfig holds EmailJS credentials and template routing.
type EmailConfig struct {
	Enabled            bool   `yaml:"enabled" mapstructure:"enabled"`
	BaseURL            string `yaml:"base_url" mapstructure:"base_url"`
	ServiceID          string `yaml:"service_id" mapstructure:"service_id"`
	PublicKey          string `yaml:"public_key" mapstructure:"public_key"`
	PrivateKey         string `yaml:"private_key" mapstructure:"private_key"`
	CustomerTemplateID string `yaml:"customer_template_id" mapstructure:"customer_template_id"`
	SalesTemplateID    string `yaml:"sales_template_id" mapstructure:"sales_template_id"`
	SalesAddress       string `yaml:"sales_address" mapstructure:"sales_address"`
	FromName           string `yaml:"from_name" mapstructure:"from_name"`
	TimeoutSecs        int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout returns the per-send email timeout.
func (c EmailConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Validate reports missing credentials when email delivery is enabled.
func (c EmailConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	var missing []string
	if c.ServiceID == "" {
		missing = append(missing, "email.service_id")
	}
	if c.PublicKey == "" {
		missing = append(missing, "email.public_key")
	}
	if c.CustomerTemplateID == "" {
		missing = append(missing, "email.customer_template_id")
	}
	if c.SalesTemplateID == "" {
		missing = append(missing, "email.sales_template_id")
	}
	if c.SalesAddress == "" {
		missing = append(missing, "email.sales_address")
	}
	if len(missing) > 0 {
		return eris.Errorf("config: email enabled but missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// CRMConfig selects an optional CRM sink for captured leads.
type CRMConfig struct {
	// Provider is "", "salesforce" or "notion".
	Provider   string           `yaml:"provider" mapstructure:"provider"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// NotionConfig holds the Notion token and the lead database ID.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	LeadDB string `yaml:"lead_db" mapstructure:"lead_db"`
}

// RetryConfig configures retries and circuit breaking for outbound calls.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	CircuitThreshold int `yaml:"circuit_threshold" mapstructure:"circuit_threshold"`
	CircuitResetSecs int `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks the settings a command mode depends on. Modes: "serve",
// "simulate", "leads".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		errs = append(errs, c.validateRefData()...)
		errs = append(errs, c.validateStore()...)
		if err := c.Email.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
		errs = append(errs, c.validateCRM()...)
	case "simulate":
		errs = append(errs, c.validateRefData()...)
	case "leads":
		errs = append(errs, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateRefData() []string {
	var errs []string
	switch c.RefData.Source {
	case "dir":
		if c.RefData.Dir == "" {
			errs = append(errs, "refdata.dir is required for source dir")
		}
	case "http":
		if c.RefData.BaseURL == "" {
			errs = append(errs, "refdata.base_url is required for source http")
		}
	default:
		errs = append(errs, "refdata.source must be dir or http")
	}
	if c.RefData.LoadTimeoutSecs <= 0 {
		errs = append(errs, "refdata.load_timeout_secs must be > 0")
	}
	return errs
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "sqlite", "memory":
		return nil
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required for postgres"}
		}
		return nil
	default:
		return []string{"store.driver must be sqlite, postgres or memory"}
	}
}

func (c *Config) validateCRM() []string {
	switch c.CRM.Provider {
	case "":
		return nil
	case "salesforce":
		if c.CRM.Salesforce.ClientID == "" || c.CRM.Salesforce.KeyPath == "" {
			return []string{"crm.salesforce.client_id and crm.salesforce.key_path are required"}
		}
		return nil
	case "notion":
		if c.CRM.Notion.Token == "" || c.CRM.Notion.LeadDB == "" {
			return []string{"crm.notion.token and crm.notion.lead_db are required"}
		}
		return nil
	default:
		return []string{"crm.provider must be salesforce or notion"}
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LEADQUOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leadquote.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("refdata.source", "dir")
	v.SetDefault("refdata.dir", "data")
	v.SetDefault("refdata.load_timeout_secs", 15)
	v.SetDefault("refdata.strict_bands", true)
	v.SetDefault("email.enabled", false)
	v.SetDefault("email.base_url", "https://api.emailjs.com")
	v.SetDefault("email.sales_template_id", "template_equipe_comercial")
	v.SetDefault("email.sales_address", "comercial@sinergia.com.br")
	v.SetDefault("email.from_name", "Sinergia Energia")
	v.SetDefault("email.timeout_secs", 10)
	v.SetDefault("crm.salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 5000)
	v.SetDefault("retry.circuit_threshold", 5)
	v.SetDefault("retry.circuit_reset_secs", 30)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:8080"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
