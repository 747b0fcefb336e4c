package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"invite-tracker-backend/internal/domain"
)

const (
	StorageMemory    = "memory"
	StorageFile      = "file"
	StoragePostgres  = "postgres"
	StorageFirestore = "firestore"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig           `yaml:"server"`
	Policy    domain.MilestonePolicy `yaml:"policy"`
	Storage   StorageConfig          `yaml:"storage"`
	Auth      AuthConfig             `yaml:"auth"`
	Notify    NotifyConfig           `yaml:"notify"`
	Scheduler SchedulerConfig        `yaml:"scheduler"`
	Log       LogConfig              `yaml:"log"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
}

// StorageConfig selects the ledger backend
type StorageConfig struct {
	Type      string          `yaml:"type"`      // "memory", "file", "postgres" or "firestore"
	FilePath  string          `yaml:"file_path"` // For file storage
	Database  DatabaseConfig  `yaml:"database"`
	Firestore FirestoreConfig `yaml:"firestore"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// FirestoreConfig contains Firestore settings
type FirestoreConfig struct {
	ProjectID        string `yaml:"project_id"`
	CredentialsFile  string `yaml:"credentials_file"`
	CollectionPrefix string `yaml:"collection_prefix"`
}

// AuthConfig contains service token settings
type AuthConfig struct {
	Secret string `yaml:"secret"`
}

// NotifyConfig contains intent delivery settings
type NotifyConfig struct {
	Log      bool           `yaml:"log"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	SendGrid SendGridConfig `yaml:"sendgrid"`
}

type WebhookConfig struct {
	URL                 string `yaml:"url"`
	Token               string `yaml:"token"`
	TimeoutSeconds      int    `yaml:"timeout_seconds"`
	MaxRetryWaitSeconds int    `yaml:"max_retry_wait_seconds"`
}

// SendGridConfig enables operator e-mail when a member becomes eligible
type SendGridConfig struct {
	APIKey        string `yaml:"api_key"`
	FromEmail     string `yaml:"from_email"`
	FromName      string `yaml:"from_name"`
	OperatorEmail string `yaml:"operator_email"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	Enabled           bool   `yaml:"enabled"`
	ReportLedgerStats string `yaml:"report_ledger_stats"`
	ExportSnapshot    string `yaml:"export_snapshot"`
	SnapshotPath      string `yaml:"snapshot_path"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and defaults, and validates.
func Parse(data []byte) (*Config, error) {
	cfg := Config{Policy: domain.DefaultMilestonePolicy()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables if present
	cfg.overrideWithEnv()
	cfg.applyDefaults()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Policy
	if val := os.Getenv("POLICY_ELIGIBILITY_THRESHOLD"); val != "" {
		fmt.Sscanf(val, "%d", &c.Policy.EligibilityThreshold)
	}
	if val := os.Getenv("POLICY_PROGRESS_INTERVAL"); val != "" {
		fmt.Sscanf(val, "%d", &c.Policy.ProgressInterval)
	}
	if val := os.Getenv("POLICY_REWARD_PER_INVITE"); val != "" {
		fmt.Sscanf(val, "%d", &c.Policy.RewardPerInvite)
	}

	// Storage
	if val := os.Getenv("STORAGE_TYPE"); val != "" {
		c.Storage.Type = val
	}
	if val := os.Getenv("STORAGE_FILE_PATH"); val != "" {
		c.Storage.FilePath = val
	}

	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Storage.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Storage.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Storage.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Storage.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Storage.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Storage.Database.SSLMode = val
	}

	// Firestore
	if val := os.Getenv("FIRESTORE_PROJECT_ID"); val != "" {
		c.Storage.Firestore.ProjectID = val
	}
	if val := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); val != "" && c.Storage.Firestore.CredentialsFile == "" {
		c.Storage.Firestore.CredentialsFile = val
	}

	// Auth
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.Auth.Secret = val
	}

	// Notify
	if val := os.Getenv("NOTIFY_WEBHOOK_URL"); val != "" {
		c.Notify.Webhook.URL = val
	}
	if val := os.Getenv("NOTIFY_WEBHOOK_TOKEN"); val != "" {
		c.Notify.Webhook.Token = val
	}
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Notify.SendGrid.APIKey = val
	}

	// Scheduler
	if val := os.Getenv("SNAPSHOT_PATH"); val != "" {
		c.Scheduler.SnapshotPath = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeoutSeconds == 0 {
		c.Server.ReadTimeoutSeconds = 10
	}
	if c.Server.WriteTimeoutSeconds == 0 {
		c.Server.WriteTimeoutSeconds = 10
	}

	if c.Storage.Type == "" {
		c.Storage.Type = StorageMemory
	}
	if c.Storage.Database.Port == 0 {
		c.Storage.Database.Port = 5432
	}
	if c.Storage.Database.SSLMode == "" {
		c.Storage.Database.SSLMode = "disable"
	}

	if c.Notify.Webhook.TimeoutSeconds == 0 {
		c.Notify.Webhook.TimeoutSeconds = 5
	}
	if c.Notify.Webhook.MaxRetryWaitSeconds == 0 {
		c.Notify.Webhook.MaxRetryWaitSeconds = 30
	}
	if c.Notify.SendGrid.FromName == "" {
		c.Notify.SendGrid.FromName = "Invite Tracker"
	}

	if c.Scheduler.ReportLedgerStats == "" {
		c.Scheduler.ReportLedgerStats = "0 0 * * * *" // Hourly
	}
	if c.Scheduler.ExportSnapshot == "" {
		c.Scheduler.ExportSnapshot = "0 0 3 * * *" // 3 AM UTC
	}
	if c.Scheduler.SnapshotPath == "" {
		c.Scheduler.SnapshotPath = "data/snapshot.json"
	}

	// Set defaults for log if not configured
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if err := c.Policy.Validate(); err != nil {
		return err
	}

	// Storage validation
	switch c.Storage.Type {
	case StorageMemory:
	case StorageFile:
		if c.Storage.FilePath == "" {
			return fmt.Errorf("storage file path is required for file storage")
		}
	case StoragePostgres:
		if c.Storage.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Storage.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Storage.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	case StorageFirestore:
		if c.Storage.Firestore.ProjectID == "" {
			return fmt.Errorf("firestore project id is required")
		}
	default:
		return fmt.Errorf("unknown storage type: %q", c.Storage.Type)
	}

	// JWT validation
	if c.Auth.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.Auth.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	if c.Notify.SendGrid.APIKey != "" && (c.Notify.SendGrid.FromEmail == "" || c.Notify.SendGrid.OperatorEmail == "") {
		return fmt.Errorf("sendgrid requires from_email and operator_email")
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	db := c.Storage.Database
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		db.User,
		db.Password,
		db.Host,
		db.Port,
		db.Database,
		db.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

func (c WebhookConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c WebhookConfig) MaxRetryWait() time.Duration {
	return time.Duration(c.MaxRetryWaitSeconds) * time.Second
}
