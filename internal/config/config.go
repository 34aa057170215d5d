package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Config holds the application configuration
type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Guard     GuardConfig     `yaml:"guard"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AppConfig holds app-specific configuration
type AppConfig struct {
	Name string `yaml:"name"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// AuthConfig holds token issuance configuration. The signing secrets are
// never read from the YAML file; they come from the environment.
type AuthConfig struct {
	Issuer           string `yaml:"issuer"`
	AccessTTLMinutes int    `yaml:"access_ttl_minutes"`
	RefreshTTLHours  int    `yaml:"refresh_ttl_hours"`

	AccessSecret  string `yaml:"-"`
	RefreshSecret string `yaml:"-"`
}

// AccessTTL returns the access token lifetime
func (a *AuthConfig) AccessTTL() time.Duration {
	if a.AccessTTLMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(a.AccessTTLMinutes) * time.Minute
}

// RefreshTTL returns the refresh token and session lifetime
func (a *AuthConfig) RefreshTTL() time.Duration {
	if a.RefreshTTLHours <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(a.RefreshTTLHours) * time.Hour
}

// GuardConfig holds login brute-force guard thresholds
type GuardConfig struct {
	MaxFailures    int  `yaml:"max_failures"`
	WindowMinutes  int  `yaml:"window_minutes"`
	LockoutMinutes int  `yaml:"lockout_minutes"`
	UseRedis       bool `yaml:"use_redis"`
}

// Window returns the trailing failure-counting window
func (g *GuardConfig) Window() time.Duration {
	if g.WindowMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(g.WindowMinutes) * time.Minute
}

// Lockout returns the lock duration once the threshold is reached
func (g *GuardConfig) Lockout() time.Duration {
	if g.LockoutMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(g.LockoutMinutes) * time.Minute
}

// RateLimitConfig holds fixed-window limits for the public surface and the
// stricter login path
type RateLimitConfig struct {
	MaxRequests      int  `yaml:"max_requests"`
	WindowMs         int  `yaml:"window_ms"`
	LoginMaxRequests int  `yaml:"login_max_requests"`
	LoginWindowMs    int  `yaml:"login_window_ms"`
	UseRedis         bool `yaml:"use_redis"`
}

// Window returns the public fixed window
func (r *RateLimitConfig) Window() time.Duration {
	if r.WindowMs <= 0 {
		return time.Minute
	}
	return time.Duration(r.WindowMs) * time.Millisecond
}

// LoginWindow returns the login-path fixed window
func (r *RateLimitConfig) LoginWindow() time.Duration {
	if r.LoginWindowMs <= 0 {
		return time.Minute
	}
	return time.Duration(r.LoginWindowMs) * time.Millisecond
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Address returns the Redis address in the format "host:port"
func (r *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Enabled reports whether a Redis host is configured
func (r *RedisConfig) Enabled() bool {
	return r.Host != ""
}

// LoggingConfig holds logging-specific configuration
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// Validate fails fast on configuration that would leave an unguarded code
// path at runtime. Called once at startup, after the env overlay.
func (c *Config) Validate() error {
	if c.Auth.AccessSecret == "" {
		return fmt.Errorf("auth: ACCESS_TOKEN_SECRET is required")
	}
	if c.Auth.RefreshSecret == "" {
		return fmt.Errorf("auth: REFRESH_TOKEN_SECRET is required")
	}
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return fmt.Errorf("auth: access and refresh secrets must differ")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database: host is required")
	}
	return nil
}

// Address returns the server address in the format "host:port"
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// quoteDSNValue quotes a DSN value if it contains spaces or special characters.
// Single quotes inside the value are escaped by doubling them.
func quoteDSNValue(value string) string {
	needsQuoting := false
	for _, r := range value {
		if r == ' ' || r == '\'' || r == '\\' || r == '=' {
			needsQuoting = true
			break
		}
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '-' || r == '_' || r == '/' || r == '@' || r == ':') {
			needsQuoting = true
			break
		}
	}

	if !needsQuoting {
		return value
	}

	escaped := ""
	for _, r := range value {
		if r == '\'' {
			escaped += "''"
		} else {
			escaped += string(r)
		}
	}

	return "'" + escaped + "'"
}

// DSN returns the database connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteDSNValue(d.Host),
		d.Port,
		quoteDSNValue(d.User),
		quoteDSNValue(d.Password),
		quoteDSNValue(d.DBName),
		quoteDSNValue(d.SSLMode),
	)
}

// URL returns the database connection URL in postgres:// format for golang-migrate
func (d *DatabaseConfig) URL() string {
	userInfo := url.UserPassword(d.User, d.Password)
	host := net.JoinHostPort(d.Host, fmt.Sprintf("%d", d.Port))

	u := &url.URL{
		Scheme:   "postgres",
		User:     userInfo,
		Host:     host,
		Path:     "/" + d.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s&search_path=public", url.QueryEscape(d.SSLMode)),
	}

	return u.String()
}
