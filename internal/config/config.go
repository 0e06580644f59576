// Package config loads config.yaml for the invoicer CLI.
//
// The raw file is pre-processed by SubstituteEnv, so secrets are kept in the
// environment (or a .env file) and referenced as ${VAR}. Parsing, defaults and
// type conversion are handled by viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
	"invoicer/internal/logger"
)

// DefaultPath is used when --config is not given.
const DefaultPath = "./config.yaml"

var (
	// ErrMissingEnvVar is returned when config.yaml references an unset variable.
	ErrMissingEnvVar = errors.New("environment variable referenced in config is not set")

	// ErrInvalidConfig is returned when a required setting is missing or out of range.
	ErrInvalidConfig = errors.New("invalid configuration")
)

var validLogLevels = []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}

type Config struct {
	Mite      MiteConfig      `mapstructure:"mite" yaml:"mite"`
	Alphaflow AlphaflowConfig `mapstructure:"alphaflow" yaml:"alphaflow"`
	Lock      LockConfig      `mapstructure:"lock" yaml:"lock"`
	Journal   JournalConfig   `mapstructure:"journal" yaml:"journal"`
	Sheets    SheetsConfig    `mapstructure:"sheets" yaml:"sheets"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

type MiteConfig struct {
	Account           string  `mapstructure:"account" yaml:"account"`
	APIKey            string  `mapstructure:"api_key" yaml:"api_key"`
	BaseURL           string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

type AlphaflowConfig struct {
	DvelopBaseURL              string   `mapstructure:"dvelop_base_url" yaml:"dvelop_base_url"`
	DvelopAPIKey               string   `mapstructure:"dvelop_api_key" yaml:"dvelop_api_key"`
	OrganizationID             string   `mapstructure:"organization_id" yaml:"organization_id"`
	ResponsibleAdministratorID string   `mapstructure:"responsible_administrator_id" yaml:"responsible_administrator_id"`
	DefaultHourlyRate          float64  `mapstructure:"default_hourly_rate" yaml:"default_hourly_rate"`
	DefaultVATRate             float64  `mapstructure:"default_vat_rate" yaml:"default_vat_rate"`
	DefaultDueDays             int      `mapstructure:"default_due_days" yaml:"default_due_days"`
	DefaultCurrency            string   `mapstructure:"default_currency" yaml:"default_currency"`
	DefaultTradingPartnerID    string   `mapstructure:"default_trading_partner_id" yaml:"default_trading_partner_id"`
	InvoiceTypeValue           string   `mapstructure:"invoice_type_value" yaml:"invoice_type_value"`
	WorkflowName               string   `mapstructure:"workflow_name" yaml:"workflow_name"`
	WorkflowForwardFlowID      string   `mapstructure:"workflow_forward_flow_id" yaml:"workflow_forward_flow_id"`
	ProjectBlacklist           []string `mapstructure:"project_blacklist" yaml:"project_blacklist"`
	TimeoutSeconds             int      `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`

	Retry              RetryConfig              `mapstructure:"retry" yaml:"retry"`
	DocumentGeneration DocumentGenerationConfig `mapstructure:"document_generation" yaml:"document_generation"`
}

// RetryConfig controls retries of d.velop/Alphaflow requests.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay" yaml:"initial_delay"`
	Multiplier   float64       `mapstructure:"multiplier" yaml:"multiplier"`
}

// DocumentGenerationConfig holds the Alphaflow ids used after the invoice exists.
type DocumentGenerationConfig struct {
	DocTemplate        string `mapstructure:"doc_template" yaml:"doc_template"`
	Category           string `mapstructure:"category" yaml:"category"`
	AttachmentCategory string `mapstructure:"attachment_category" yaml:"attachment_category"`
	DocumentJoinType   string `mapstructure:"document_join_type" yaml:"document_join_type"`
	Type               string `mapstructure:"type" yaml:"type"`
	StoreToDMS         bool   `mapstructure:"store_to_dms" yaml:"store_to_dms"`
	AttachmentFilename string `mapstructure:"attachment_filename" yaml:"attachment_filename"`
}

type LockConfig struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

type JournalConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type SheetsConfig struct {
	URL       string `mapstructure:"url" yaml:"url"`
	Worksheet string `mapstructure:"worksheet" yaml:"worksheet"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	Output     string `mapstructure:"output" yaml:"output"`
	TimeFormat string `mapstructure:"time_format" yaml:"time_format"`
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	if path == "" {
		path = DefaultPath
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: read %s: %w", op, path, err)
	}

	cfg, err := Parse(raw, os.LookupEnv)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, path, err)
	}
	return cfg, nil
}

// Parse substitutes environment references, applies defaults and validates.
func Parse(raw []byte, lookup LookupFunc) (*Config, error) {
	expanded, err := SubstituteEnv(string(raw), lookup)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadConfig(strings.NewReader(expanded)); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyEnvOverrides(lookup)
	cfg.normalize()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mite.requests_per_second", 5.0)

	v.SetDefault("alphaflow.dvelop_base_url", "https://alphaflow-test.d-velop.cloud")
	v.SetDefault("alphaflow.organization_id", "5f3a530a83809e7e377788a5")
	v.SetDefault("alphaflow.responsible_administrator_id", "78728E3E-4025-4B19-B969-74C64E459A40")
	v.SetDefault("alphaflow.default_hourly_rate", 190.0)
	v.SetDefault("alphaflow.default_vat_rate", 19.0)
	v.SetDefault("alphaflow.default_due_days", 30)
	v.SetDefault("alphaflow.default_currency", "EUR")
	v.SetDefault("alphaflow.default_trading_partner_id", "5f438d2fc40da20fc4efc338")
	v.SetDefault("alphaflow.project_blacklist", []string{})
	v.SetDefault("alphaflow.timeout_seconds", 30)

	v.SetDefault("alphaflow.retry.max_attempts", 3)
	v.SetDefault("alphaflow.retry.initial_delay", "1s")
	v.SetDefault("alphaflow.retry.multiplier", 2.0)

	v.SetDefault("alphaflow.document_generation.doc_template", "609bb93bd152c934f2d7a0b3")
	v.SetDefault("alphaflow.document_generation.category", "62456b6cfb9b51283472ed35")
	v.SetDefault("alphaflow.document_generation.attachment_category", "62456b7ffb9b51283472ed36")
	v.SetDefault("alphaflow.document_generation.document_join_type", "62456b6cfb9b51283472ed35")
	v.SetDefault("alphaflow.document_generation.type", "PDF")
	v.SetDefault("alphaflow.document_generation.store_to_dms", true)
	v.SetDefault("alphaflow.document_generation.attachment_filename", "Dienstleistungsnachweis.pdf")

	v.SetDefault("lock.concurrency", 1)
	v.SetDefault("journal.path", "invoicer.db")
	v.SetDefault("sheets.worksheet", "Ausgangsrechnungen")

	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.time_format", time.RFC3339)
}

func (c *Config) applyEnvOverrides(lookup LookupFunc) {
	c.Logging.Level = getEnv(lookup, "LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv(lookup, "LOG_FORMAT", c.Logging.Format)
	c.Logging.Output = getEnv(lookup, "LOG_OUTPUT", c.Logging.Output)
	c.Logging.TimeFormat = getEnv(lookup, "LOG_TIME_FORMAT", c.Logging.TimeFormat)
}

func (c *Config) normalize() {
	c.Logging.Level = strings.ToUpper(strings.TrimSpace(c.Logging.Level))
	c.Alphaflow.DvelopBaseURL = strings.TrimRight(c.Alphaflow.DvelopBaseURL, "/")
	for i, id := range c.Alphaflow.ProjectBlacklist {
		c.Alphaflow.ProjectBlacklist[i] = strings.TrimSpace(id)
	}
}

func (c *Config) validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"mite.account", c.Mite.Account},
		{"mite.api_key", c.Mite.APIKey},
		{"alphaflow.dvelop_base_url", c.Alphaflow.DvelopBaseURL},
		{"alphaflow.dvelop_api_key", c.Alphaflow.DvelopAPIKey},
		{"alphaflow.organization_id", c.Alphaflow.OrganizationID},
		{"alphaflow.responsible_administrator_id", c.Alphaflow.ResponsibleAdministratorID},
		{"alphaflow.default_trading_partner_id", c.Alphaflow.DefaultTradingPartnerID},
		{"alphaflow.default_currency", c.Alphaflow.DefaultCurrency},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidConfig, field.name)
		}
	}

	if c.Alphaflow.DefaultHourlyRate <= 0 {
		return fmt.Errorf("%w: alphaflow.default_hourly_rate must be greater than 0", ErrInvalidConfig)
	}
	if c.Alphaflow.DefaultVATRate < 0 || c.Alphaflow.DefaultVATRate > 100 {
		return fmt.Errorf("%w: alphaflow.default_vat_rate must be between 0 and 100", ErrInvalidConfig)
	}
	if c.Alphaflow.DefaultDueDays <= 0 {
		return fmt.Errorf("%w: alphaflow.default_due_days must be greater than 0", ErrInvalidConfig)
	}
	if c.Alphaflow.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: alphaflow.retry.max_attempts must be at least 1", ErrInvalidConfig)
	}
	if c.Lock.Concurrency < 1 {
		return fmt.Errorf("%w: lock.concurrency must be at least 1", ErrInvalidConfig)
	}
	if !slices.Contains(validLogLevels, c.Logging.Level) {
		return fmt.Errorf("%w: logging.level must be one of: %s", ErrInvalidConfig, strings.Join(validLogLevels, ", "))
	}
	return nil
}

// IsProjectBlacklisted reports whether a mite project must never be invoiced.
func (c *Config) IsProjectBlacklisted(projectID string) bool {
	return slices.Contains(c.Alphaflow.ProjectBlacklist, projectID)
}

// WithTradingPartner returns a copy of the config whose default trading
// partner is replaced, used for the --trading-partner-* overrides.
func (c *Config) WithTradingPartner(id string) *Config {
	clone := *c
	if id != "" {
		clone.Alphaflow.DefaultTradingPartnerID = id
	}
	return &clone
}

// HTTPTimeout returns the request timeout for Alphaflow calls.
func (c *Config) HTTPTimeout() time.Duration {
	if c.Alphaflow.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Alphaflow.TimeoutSeconds) * time.Second
}

// Redacted returns a copy safe for printing.
func (c *Config) Redacted() *Config {
	clone := *c
	clone.Mite.APIKey = redact(c.Mite.APIKey)
	clone.Alphaflow.DvelopAPIKey = redact(c.Alphaflow.DvelopAPIKey)
	clone.Alphaflow.ProjectBlacklist = slices.Clone(c.Alphaflow.ProjectBlacklist)
	return &clone
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		TimeFormat: c.Logging.TimeFormat,
		Output:     c.Logging.Output,
	}
}

func redact(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + strings.Repeat("*", len(secret)-4) + secret[len(secret)-2:]
}

func getEnv(lookup LookupFunc, key, defaultValue string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return defaultValue
}
