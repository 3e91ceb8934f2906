package config

import (
	"fmt"
	"net"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Env      string
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	SLA      SLAConfig
	Push     PushConfig
	Redis    RedisConfig
	Log      LogConfig
	Workflow WorkflowConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Server       string // DB_SERVER: host, or host:port
	Port         string
	User         string
	Password     string
	DBName       string
	MaxOpenConns int
	MaxIdleConns int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port string
}

// AuthConfig holds login token settings
type AuthConfig struct {
	JWTSecret string
	Required  bool // AUTH_REQUIRED: reject mutating calls without a bearer token
}

// SLAConfig holds breach detector settings
type SLAConfig struct {
	ScanInterval  time.Duration
	WorkerEnabled bool
	Timezone      string
	Location      *time.Location
	LockTTL       time.Duration
}

// PushConfig holds push provider settings. An empty server key logs pushes instead of sending them.
type PushConfig struct {
	ServerKey string
	Endpoint  string
}

// RedisConfig holds the optional scan lock store. Empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string
}

// WorkflowConfig points at an optional YAML registry override
type WorkflowConfig struct {
	File string
}

var keys = []string{
	"ENV", "LOG_LEVEL",
	"DB_USER", "DB_PASSWORD", "DB_SERVER", "DB_PORT", "DB_NAME", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS",
	"PORT", "SERVER_HOST",
	"JWT_SECRET", "AUTH_REQUIRED",
	"DISPLAY_TIMEZONE", "SLA_SCAN_INTERVAL_SECONDS", "SLA_WORKER_ENABLED", "SLA_LOCK_TTL_SECONDS",
	"PUSH_SERVER_KEY", "PUSH_ENDPOINT",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"WORKFLOW_FILE",
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("PORT", "5000")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("AUTH_REQUIRED", false)
	v.SetDefault("DISPLAY_TIMEZONE", "Asia/Kolkata")
	v.SetDefault("SLA_SCAN_INTERVAL_SECONDS", 60)
	v.SetDefault("SLA_WORKER_ENABLED", true)
	v.SetDefault("SLA_LOCK_TTL_SECONDS", 120)
	v.SetDefault("PUSH_ENDPOINT", "https://fcm.googleapis.com/fcm/send")
	v.SetDefault("REDIS_DB", 0)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{
		Env: v.GetString("ENV"),
		Database: DatabaseConfig{
			Server:       v.GetString("DB_SERVER"),
			Port:         v.GetString("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			DBName:       v.GetString("DB_NAME"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		},
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetString("PORT"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
			Required:  v.GetBool("AUTH_REQUIRED"),
		},
		SLA: SLAConfig{
			ScanInterval:  time.Duration(v.GetInt("SLA_SCAN_INTERVAL_SECONDS")) * time.Second,
			WorkerEnabled: v.GetBool("SLA_WORKER_ENABLED"),
			Timezone:      v.GetString("DISPLAY_TIMEZONE"),
			LockTTL:       time.Duration(v.GetInt("SLA_LOCK_TTL_SECONDS")) * time.Second,
		},
		Push: PushConfig{
			ServerKey: v.GetString("PUSH_SERVER_KEY"),
			Endpoint:  v.GetString("PUSH_ENDPOINT"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Log:      LogConfig{Level: v.GetString("LOG_LEVEL")},
		Workflow: WorkflowConfig{File: v.GetString("WORKFLOW_FILE")},
	}

	loc, err := time.LoadLocation(cfg.SLA.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid DISPLAY_TIMEZONE %q: %w", cfg.SLA.Timezone, err)
	}
	cfg.SLA.Location = loc

	if cfg.SLA.ScanInterval <= 0 {
		return nil, fmt.Errorf("SLA_SCAN_INTERVAL_SECONDS must be positive")
	}

	if cfg.Auth.JWTSecret == "" {
		if !cfg.IsDev() {
			return nil, fmt.Errorf("JWT_SECRET is required when ENV is %s", cfg.Env)
		}
		cfg.Auth.JWTSecret = devJWTSecret
	}

	return cfg, nil
}

const devJWTSecret = "dtracker-dev-secret-change-in-production"

// IsDev reports whether ENV is development.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks the settings every database-backed command needs.
func (c *Config) Validate() error {
	var missing []string
	if c.Database.Server == "" {
		missing = append(missing, "DB_SERVER")
	}
	if c.Database.DBName == "" {
		missing = append(missing, "DB_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Addr returns the database host:port. A port in DB_SERVER wins over DB_PORT.
func (d DatabaseConfig) Addr() string {
	if _, _, err := net.SplitHostPort(d.Server); err == nil {
		return d.Server
	}
	return net.JoinHostPort(d.Server, d.Port)
}

// DSN builds the MySQL data source name. Times are read and written as UTC (the driver default),
// and UPDATE reports matched rows so idempotent writes are not mistaken for misses.
func (d DatabaseConfig) DSN() string {
	mc := mysql.NewConfig()
	mc.User = d.User
	mc.Passwd = d.Password
	mc.Net = "tcp"
	mc.Addr = d.Addr()
	mc.DBName = d.DBName
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.ClientFoundRows = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// ListenAddr returns the HTTP listen address.
func (s ServerConfig) ListenAddr() string {
	return net.JoinHostPort(s.Host, s.Port)
}
