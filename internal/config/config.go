package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cloud-gov/pages-core-sub005/internal/logger"
)

// Config holds the application's configuration values.
type Config struct {
	Server     ServerConfig
	Logging    logger.Config
	Database   DBConfig
	Redis      RedisConfig
	Queue      QueueConfig
	GitHub     GitHubConfig
	Storage    StorageConfig
	Platform   PlatformConfig
	Sandbox    SandboxConfig
	Identities IdentityConfig
	Alerts     AlertConfig
	Schedule   ScheduleConfig
	AppURL     string
}

// ServerConfig configures the webhook HTTP listener.
type ServerConfig struct {
	Port string
}

// DBConfig configures the Postgres connection pool.
type DBConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	SSLMode         string
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig configures the queue backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// QueueConfig controls the readiness wait performed before each enqueue.
type QueueConfig struct {
	ReadyAttempts int
	ReadyBackoff  string // fixed|linear|exponential
	ReadyInitial  time.Duration
	ReadyMax      time.Duration
}

// GitHubConfig configures access to the code host.
type GitHubConfig struct {
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
	// Token is a personal access token used when no App is configured.
	Token         string
	WebhookSecret string
	StatusContext string
}

// StorageConfig configures the S3-compatible object store holding site files.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// PlatformConfig configures the API used to remove provisioned site infrastructure.
type PlatformConfig struct {
	APIURL string
	Token  string
}

// SandboxConfig controls the sandbox organization lifecycle.
type SandboxConfig struct {
	// CleaningDays is the interval between two cleanings.
	CleaningDays int
	// NoticeDays is how long before a cleaning managers are notified.
	NoticeDays int
}

// IdentityConfig names the service accounts and organizations the core acts as or on.
type IdentityConfig struct {
	AuditorUsername    string
	EditorUsername     string
	FederalistUsersOrg string
}

// AlertConfig lists operational alert recipients.
type AlertConfig struct {
	Recipients []string
}

// ScheduleConfig holds cron expressions for the daily jobs.
type ScheduleConfig struct {
	Nightly       string
	SandboxNotice string
	SandboxClean  string
	Timezone      string
}

// LoadConfig reads configuration from environment variables and a .env file,
// sets sensible defaults, and validates required fields. It uses the Viper
// library to handle configuration loading and precedence.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !strings.Contains(err.Error(), "no such file") {
			slog.Error("failed to read config file", "error", err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_OUTPUT", "stdout")
	v.SetDefault("LOG_FILE", "pages-core.log")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 5)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USERNAME", "postgres")
	v.SetDefault("DB_NAME", "pages")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", 5*time.Minute)

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_PREFIX", "pages")

	v.SetDefault("QUEUE_READY_ATTEMPTS", 5)
	v.SetDefault("QUEUE_READY_BACKOFF", "exponential")
	v.SetDefault("QUEUE_READY_INITIAL", 200*time.Millisecond)
	v.SetDefault("QUEUE_READY_MAX", 5*time.Second)

	v.SetDefault("GITHUB_PRIVATE_KEY_PATH", "keys/pages-core.private-key.pem")
	v.SetDefault("GITHUB_STATUS_CONTEXT", "federalist/build")

	v.SetDefault("STORAGE_USE_SSL", true)

	v.SetDefault("SANDBOX_CLEANING_DAYS", 90)
	v.SetDefault("SANDBOX_NOTICE_DAYS", 5)

	v.SetDefault("AUDITOR_USERNAME", "federalist")
	v.SetDefault("EDITOR_USERNAME", "pages-editor")
	v.SetDefault("FEDERALIST_USERS_ORG", "federalist-users")

	v.SetDefault("SCHEDULE_NIGHTLY", "0 5 * * *")
	v.SetDefault("SCHEDULE_SANDBOX_NOTICE", "0 6 * * *")
	v.SetDefault("SCHEDULE_SANDBOX_CLEAN", "0 7 * * *")
	v.SetDefault("SCHEDULE_TIMEZONE", "UTC")

	v.SetDefault("APP_URL", "http://localhost:1337")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{Port: v.GetString("SERVER_PORT")},
		Logging: logger.Config{
			Level:      v.GetString("LOG_LEVEL"),
			Format:     v.GetString("LOG_FORMAT"),
			Output:     v.GetString("LOG_OUTPUT"),
			File:       v.GetString("LOG_FILE"),
			MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
		},
		Database: DBConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			Username:        v.GetString("DB_USERNAME"),
			Password:        v.GetString("DB_PASSWORD"),
			Database:        v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: v.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			Prefix:   v.GetString("REDIS_PREFIX"),
		},
		Queue: QueueConfig{
			ReadyAttempts: v.GetInt("QUEUE_READY_ATTEMPTS"),
			ReadyBackoff:  v.GetString("QUEUE_READY_BACKOFF"),
			ReadyInitial:  v.GetDuration("QUEUE_READY_INITIAL"),
			ReadyMax:      v.GetDuration("QUEUE_READY_MAX"),
		},
		GitHub: GitHubConfig{
			AppID:          v.GetInt64("GITHUB_APP_ID"),
			InstallationID: v.GetInt64("GITHUB_INSTALLATION_ID"),
			PrivateKeyPath: v.GetString("GITHUB_PRIVATE_KEY_PATH"),
			Token:          v.GetString("GITHUB_TOKEN"),
			WebhookSecret:  v.GetString("GITHUB_WEBHOOK_SECRET"),
			StatusContext:  v.GetString("GITHUB_STATUS_CONTEXT"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
		},
		Platform: PlatformConfig{
			APIURL: v.GetString("PLATFORM_API_URL"),
			Token:  v.GetString("PLATFORM_TOKEN"),
		},
		Sandbox: SandboxConfig{
			CleaningDays: v.GetInt("SANDBOX_CLEANING_DAYS"),
			NoticeDays:   v.GetInt("SANDBOX_NOTICE_DAYS"),
		},
		Identities: IdentityConfig{
			AuditorUsername:    v.GetString("AUDITOR_USERNAME"),
			EditorUsername:     v.GetString("EDITOR_USERNAME"),
			FederalistUsersOrg: v.GetString("FEDERALIST_USERS_ORG"),
		},
		Alerts: AlertConfig{
			Recipients: splitList(v.GetString("ALERT_RECIPIENTS")),
		},
		Schedule: ScheduleConfig{
			Nightly:       v.GetString("SCHEDULE_NIGHTLY"),
			SandboxNotice: v.GetString("SCHEDULE_SANDBOX_NOTICE"),
			SandboxClean:  v.GetString("SCHEDULE_SANDBOX_CLEAN"),
			Timezone:      v.GetString("SCHEDULE_TIMEZONE"),
		},
		AppURL: strings.TrimSuffix(v.GetString("APP_URL"), "/"),
	}
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.GitHub.WebhookSecret == "" {
		return fmt.Errorf("GITHUB_WEBHOOK_SECRET must be set")
	}
	if c.GitHub.AppID == 0 && c.GitHub.Token == "" {
		return fmt.Errorf("either GITHUB_APP_ID or GITHUB_TOKEN must be set")
	}
	if c.GitHub.AppID != 0 && c.GitHub.InstallationID == 0 {
		return fmt.Errorf("GITHUB_INSTALLATION_ID must be set when GITHUB_APP_ID is set")
	}
	if c.Sandbox.CleaningDays <= 0 {
		return fmt.Errorf("SANDBOX_CLEANING_DAYS must be positive, got %d", c.Sandbox.CleaningDays)
	}
	if c.Sandbox.NoticeDays < 0 || c.Sandbox.NoticeDays >= c.Sandbox.CleaningDays {
		return fmt.Errorf("SANDBOX_NOTICE_DAYS must be between 0 and %d, got %d", c.Sandbox.CleaningDays-1, c.Sandbox.NoticeDays)
	}
	if c.Identities.AuditorUsername == "" || c.Identities.EditorUsername == "" {
		return fmt.Errorf("AUDITOR_USERNAME and EDITOR_USERNAME must be set")
	}
	if c.Queue.ReadyAttempts <= 0 {
		return fmt.Errorf("QUEUE_READY_ATTEMPTS must be positive, got %d", c.Queue.ReadyAttempts)
	}
	switch c.Queue.ReadyBackoff {
	case "fixed", "linear", "exponential":
	default:
		return fmt.Errorf("QUEUE_READY_BACKOFF must be fixed, linear or exponential, got %q", c.Queue.ReadyBackoff)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("invalid SCHEDULE_TIMEZONE %q: %w", c.Schedule.Timezone, err)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
