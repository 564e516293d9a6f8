package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the governance pipeline.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	DKIM        DKIMConfig        `yaml:"dkim"`
	Unsubscribe UnsubscribeConfig `yaml:"unsubscribe"`
	AIGate      AIGateConfig      `yaml:"ai_gate"`
	SES         SESConfig         `yaml:"ses"`
	Audit       AuditConfig       `yaml:"audit"`
	Snowflake   SnowflakeConfig   `yaml:"snowflake"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	APIKey         string   `yaml:"api_key"`
	WebhookSecret  string   `yaml:"webhook_secret"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GetHost returns the server host, with ECS detection.
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the shared counter-store connection settings. The rate
// limiter sits on the hot path, so the operation timeout is kept tight.
// Leaving addr empty selects the in-process counter store instead.
type RedisConfig struct {
	Addr        string `yaml:"addr"`
	Password    string `yaml:"password"`
	DB          int    `yaml:"db"`
	OpTimeoutMS int    `yaml:"op_timeout_ms"`
}

// OpTimeout returns the per-operation timeout as a duration.
func (c RedisConfig) OpTimeout() time.Duration {
	return time.Duration(c.OpTimeoutMS) * time.Millisecond
}

// PipelineConfig holds sending-identity settings shared by every stage.
type PipelineConfig struct {
	// WarmupIdentity keys the warmup ramp. One shared identity means the whole
	// deployment ramps together; per-domain identities ramp independently.
	WarmupIdentity string `yaml:"warmup_identity"`
	FromAddress    string `yaml:"from_address"`
}

// DKIMConfig holds signing key material locations.
type DKIMConfig struct {
	Domain   string `yaml:"domain"`
	Selector string `yaml:"selector"`
	KeyPath  string `yaml:"key_path"`
}

// UnsubscribeConfig holds the token secret and the public base URL embedded
// in List-Unsubscribe headers.
type UnsubscribeConfig struct {
	Secret  string `yaml:"secret"`
	BaseURL string `yaml:"base_url"`
}

// AIGateConfig holds the allowlist consulted when classifying links in
// machine-authored content.
type AIGateConfig struct {
	AllowedLinkDomains []string `yaml:"allowed_link_domains"`
}

// SESConfig holds AWS SES transport configuration.
type SESConfig struct {
	Enabled          bool   `yaml:"enabled"`
	Region           string `yaml:"region"`
	AccessKey        string `yaml:"access_key"`
	SecretKey        string `yaml:"secret_key"`
	ConfigurationSet string `yaml:"configuration_set"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration.
func (c SESConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AuditConfig holds cold-storage settings for decision archival.
type AuditConfig struct {
	S3Bucket               string `yaml:"s3_bucket"`
	DynamoDBTable          string `yaml:"dynamodb_table"`
	AWSRegion              string `yaml:"aws_region"`
	AWSProfile             string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
	ArchiveIntervalSeconds int    `yaml:"archive_interval_seconds"`
	ArchiveBatchSize       int    `yaml:"archive_batch_size"`
	RetentionDays          int    `yaml:"retention_days"`
}

// ArchiveInterval returns how often the archiver sweeps for unarchived rows.
func (c AuditConfig) ArchiveInterval() time.Duration {
	return time.Duration(c.ArchiveIntervalSeconds) * time.Second
}

// GetAWSProfile returns the AWS profile, with environment variable override.
func (c AuditConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return "" // Use default credential chain (IAM role)
		}
		return envProfile
	}
	// On ECS/Lambda, don't use a profile - use IAM role
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// SnowflakeConfig holds warehouse settings for daily outcome exports.
type SnowflakeConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Account   string `yaml:"account"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	Warehouse string `yaml:"warehouse"`
}

// LoggingConfig holds log level and redaction settings.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// RedactEnabled defaults redaction on unless explicitly disabled.
func (c LoggingConfig) RedactEnabled() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Redis.OpTimeoutMS == 0 {
		cfg.Redis.OpTimeoutMS = 250
	}
	if cfg.Pipeline.WarmupIdentity == "" {
		cfg.Pipeline.WarmupIdentity = "system"
	}
	if cfg.DKIM.Selector == "" {
		cfg.DKIM.Selector = "default"
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-east-1"
	}
	if cfg.SES.TimeoutSeconds == 0 {
		cfg.SES.TimeoutSeconds = 30
	}
	if cfg.Audit.ArchiveIntervalSeconds == 0 {
		cfg.Audit.ArchiveIntervalSeconds = 300
	}
	if cfg.Audit.ArchiveBatchSize == 0 {
		cfg.Audit.ArchiveBatchSize = 500
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = 90
	}
	if cfg.Snowflake.Database == "" {
		cfg.Snowflake.Database = "MAILGUARD"
	}
	if cfg.Snowflake.Schema == "" {
		cfg.Snowflake.Schema = "GOVERNANCE"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		cfg.Server.WebhookSecret = v
	}
	if v := os.Getenv("UNSUBSCRIBE_SECRET"); v != "" {
		cfg.Unsubscribe.Secret = v
	}
	if v := os.Getenv("UNSUBSCRIBE_BASE_URL"); v != "" {
		cfg.Unsubscribe.BaseURL = v
	}
	if v := os.Getenv("DKIM_DOMAIN"); v != "" {
		cfg.DKIM.Domain = v
	}
	if v := os.Getenv("DKIM_SELECTOR"); v != "" {
		cfg.DKIM.Selector = v
	}
	if v := os.Getenv("DKIM_KEY_PATH"); v != "" {
		cfg.DKIM.KeyPath = v
	}
	if v := os.Getenv("FROM_ADDRESS"); v != "" {
		cfg.Pipeline.FromAddress = v
	}
	if v := os.Getenv("WARMUP_IDENTITY"); v != "" {
		cfg.Pipeline.WarmupIdentity = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.SES.Region = v
	}
	if v := os.Getenv("AUDIT_S3_BUCKET"); v != "" {
		cfg.Audit.S3Bucket = v
	}
	if v := os.Getenv("AUDIT_DYNAMODB_TABLE"); v != "" {
		cfg.Audit.DynamoDBTable = v
	}
	if v := os.Getenv("SNOWFLAKE_PASSWORD"); v != "" {
		cfg.Snowflake.Password = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return cfg, nil
}

// Validate checks settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required (or set DATABASE_URL)")
	}
	if c.Unsubscribe.Secret == "" {
		return fmt.Errorf("unsubscribe.secret is required (or set UNSUBSCRIBE_SECRET)")
	}
	if c.Pipeline.FromAddress == "" {
		return fmt.Errorf("pipeline.from_address is required (or set FROM_ADDRESS)")
	}
	return nil
}
