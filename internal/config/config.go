package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	AWS       AWSConfig       `yaml:"aws"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Accounts  AccountsConfig  `yaml:"accounts"`
	APNs      APNsConfig      `yaml:"apns"`
	WebSocket WebSocketConfig `yaml:"websocket"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "postgres" or "memory"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
}

// AWSConfig holds S3 configuration for alert media
type AWSConfig struct {
	Region     string `yaml:"region"`
	S3Bucket   string `yaml:"s3_bucket"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Endpoint   string `yaml:"endpoint"` // S3-compatible endpoint, e.g. MinIO
	MaxFiles   int    `yaml:"max_files"`
	MaxFileMB  int64  `yaml:"max_file_mb"`
	DisableSSL bool   `yaml:"disable_ssl"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// AlertsConfig holds the alert lifecycle policy
type AlertsConfig struct {
	ConfirmThreshold    int   `yaml:"confirm_threshold"`
	FakeThreshold       int   `yaml:"fake_threshold"` // 0 disables automatic fake
	AllowResolvePending *bool `yaml:"allow_resolve_pending"`
	AutoConfirmVerified bool  `yaml:"auto_confirm_verified"`
	PageSize            int   `yaml:"page_size"`
	MaxPageSize         int   `yaml:"max_page_size"`
}

// AccountsConfig holds account bootstrap settings
type AccountsConfig struct {
	AdminPhones []string `yaml:"admin_phones"`
}

// APNsConfig holds Apple push configuration. Push is off when KeyFile is empty.
type APNsConfig struct {
	KeyFile    string        `yaml:"key_file"`
	KeyID      string        `yaml:"key_id"`
	TeamID     string        `yaml:"team_id"`
	Topic      string        `yaml:"topic"`
	Production bool          `yaml:"production"`
	Timeout    time.Duration `yaml:"timeout"`
}

// WebSocketConfig holds fan-out tuning
type WebSocketConfig struct {
	SendBuffer   int           `yaml:"send_buffer"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PongTimeout  time.Duration `yaml:"pong_timeout"`
}

// Load reads configuration from a YAML file. A missing file falls back to
// defaults; a .env file and GASY_* variables override what the file says.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setString("GASY_DB_DRIVER", &c.Database.Driver)
	setString("GASY_DB_HOST", &c.Database.Host)
	setString("GASY_DB_USER", &c.Database.User)
	setString("GASY_DB_PASSWORD", &c.Database.Password)
	setString("GASY_DB_NAME", &c.Database.DBName)
	setString("GASY_JWT_SECRET", &c.JWT.Secret)
	setString("GASY_AWS_ACCESS_KEY", &c.AWS.AccessKey)
	setString("GASY_AWS_SECRET_KEY", &c.AWS.SecretKey)
	setString("GASY_S3_BUCKET", &c.AWS.S3Bucket)
	setString("GASY_LOG_LEVEL", &c.Log.Level)

	for key, dst := range map[string]*int{
		"GASY_SERVER_PORT": &c.Server.Port,
		"GASY_DB_PORT":     &c.Database.Port,
	} {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 10
	}
	if c.AWS.MaxFiles == 0 {
		c.AWS.MaxFiles = 5
	}
	if c.AWS.MaxFileMB == 0 {
		c.AWS.MaxFileMB = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Alerts.ConfirmThreshold == 0 {
		c.Alerts.ConfirmThreshold = 3
	}
	if c.Alerts.AllowResolvePending == nil {
		allow := true
		c.Alerts.AllowResolvePending = &allow
	}
	if c.Alerts.PageSize == 0 {
		c.Alerts.PageSize = 20
	}
	if c.Alerts.MaxPageSize == 0 {
		c.Alerts.MaxPageSize = 100
	}
	if c.APNs.Timeout == 0 {
		c.APNs.Timeout = 10 * time.Second
	}
	if c.WebSocket.SendBuffer == 0 {
		c.WebSocket.SendBuffer = 16
	}
	if c.WebSocket.WriteTimeout == 0 {
		c.WebSocket.WriteTimeout = 10 * time.Second
	}
	if c.WebSocket.PongTimeout == 0 {
		c.WebSocket.PongTimeout = 60 * time.Second
	}
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" || c.Database.DBName == "" {
			return fmt.Errorf("database.host and database.dbname are required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Alerts.ConfirmThreshold < 1 {
		return fmt.Errorf("alerts.confirm_threshold must be at least 1")
	}
	if c.Alerts.FakeThreshold < 0 {
		return fmt.Errorf("alerts.fake_threshold must not be negative")
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
