package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all service configuration.
type Config struct {
	Env       string          `yaml:"env"`
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	AI        AIConfig        `yaml:"ai"`
	Auth      AuthConfig      `yaml:"auth"`
	Notify    NotifyConfig    `yaml:"notify"`
	Payments  PaymentsConfig  `yaml:"payments"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// ServerConfig configures the HTTP listener and static assets.
type ServerConfig struct {
	Address      string        `yaml:"address"`
	PublicDir    string        `yaml:"public_dir"`
	CORSOrigins  []string      `yaml:"cors_origins"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	BodyLimit    string        `yaml:"body_limit"`
}

// DatabaseConfig selects the durable store. An empty DSN keeps records in memory.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

// AIConfig configures the model gateway and everything in front of it.
type AIConfig struct {
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	Model           string        `yaml:"model"`
	Referer         string        `yaml:"referer"`
	Title           string        `yaml:"title"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxConcurrent   int           `yaml:"max_concurrent"`
	MaxPending      int           `yaml:"max_pending"`
	TaskTimeout     time.Duration `yaml:"task_timeout"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	JanitorInterval time.Duration `yaml:"janitor_interval"`
	Freshness       time.Duration `yaml:"freshness"`
	SiteSnapshot    bool          `yaml:"site_snapshot"`
}

type AuthConfig struct {
	JWTSecret         string        `yaml:"jwt_secret"`
	TokenTTL          time.Duration `yaml:"token_ttl"`
	AdminUser         string        `yaml:"admin_user"`
	AdminPassword     string        `yaml:"admin_password"`
	AdminPasswordHash string        `yaml:"admin_password_hash"`
	AdminTokenTTL     time.Duration `yaml:"admin_token_ttl"`
}

// NotifyConfig holds the lead alert channels. A channel without
// credentials is skipped.
type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
	Email    EmailConfig    `yaml:"email"`
	// Cooldown pauses a channel after repeated failures.
	Cooldown     time.Duration `yaml:"cooldown"`
	AlertTimeout time.Duration `yaml:"alert_timeout"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	BaseURL  string `yaml:"base_url"`
}

type WhatsAppConfig struct {
	Phone   string `yaml:"phone"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type EmailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	To       string `yaml:"to"`
}

type PaymentsConfig struct {
	KeyID         string `yaml:"key_id"`
	KeySecret     string `yaml:"key_secret"`
	WebhookSecret string `yaml:"webhook_secret"`
	BaseURL       string `yaml:"base_url"`
	Currency      string `yaml:"currency"`
}

// Limit is a request budget per client IP.
type Limit struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type RateLimitConfig struct {
	API    Limit `yaml:"api"`
	AI     Limit `yaml:"ai"`
	Strict Limit `yaml:"strict"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Env: "development",
		Server: ServerConfig{
			Address:      ":5000",
			PublicDir:    "public",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			BodyLimit:    "6M",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			AutoMigrate:     true,
		},
		AI: AIConfig{
			BaseURL:       "https://openrouter.ai/api/v1",
			Model:         "mistralai/mixtral-8x7b-instruct",
			Referer:       "https://digitally.vercel.app",
			Title:         "Digitally",
			Timeout:       50 * time.Second,
			MaxConcurrent: 3,
			CacheTTL:      5 * time.Minute,
			Freshness:     24 * time.Hour,
			SiteSnapshot:  true,
		},
		Auth: AuthConfig{
			TokenTTL:      30 * 24 * time.Hour,
			AdminUser:     "admin",
			AdminPassword: "password",
			AdminTokenTTL: 12 * time.Hour,
		},
		Notify: NotifyConfig{
			Telegram:     TelegramConfig{BaseURL: "https://api.telegram.org"},
			WhatsApp:     WhatsAppConfig{BaseURL: "https://api.callmebot.com"},
			Email:        EmailConfig{Port: 587},
			Cooldown:     time.Minute,
			AlertTimeout: 30 * time.Second,
		},
		Payments: PaymentsConfig{
			BaseURL:  "https://api.razorpay.com/v1",
			Currency: "INR",
		},
		RateLimit: RateLimitConfig{
			API:    Limit{Requests: 100, Window: 15 * time.Minute},
			AI:     Limit{Requests: 10, Window: 15 * time.Minute},
			Strict: Limit{Requests: 5, Window: time.Hour},
		},
	}
}

// Load reads path (when it exists) over the defaults and then applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Production reports whether the service runs in production mode.
func (c *Config) Production() bool { return c.Env == "production" }

// Validate reports settings that would make the service misbehave.
func (c *Config) Validate() error {
	var errs []error
	if c.AI.MaxConcurrent < 1 {
		errs = append(errs, errors.New("config: ai.max_concurrent must be at least 1"))
	}
	if c.AI.MaxPending < 0 {
		errs = append(errs, errors.New("config: ai.max_pending must not be negative"))
	}
	if c.AI.CacheTTL <= 0 {
		errs = append(errs, errors.New("config: ai.cache_ttl must be positive"))
	}
	if c.AI.Freshness <= 0 {
		errs = append(errs, errors.New("config: ai.freshness must be positive"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("config: auth.token_ttl must be positive"))
	}
	if c.Production() {
		if len(c.Auth.JWTSecret) < 32 {
			errs = append(errs, errors.New("config: auth.jwt_secret must be at least 32 bytes in production"))
		}
		if c.Auth.AdminPasswordHash == "" && c.Auth.AdminPassword == "password" {
			errs = append(errs, errors.New("config: default admin password is not allowed in production"))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) applyEnvOverrides() error {
	setString(&c.Env, "NODE_ENV")
	setString(&c.Env, "APP_ENV")
	setString(&c.Log.Level, "LOG_LEVEL")

	if port := os.Getenv("PORT"); port != "" {
		c.Server.Address = ":" + strings.TrimPrefix(port, ":")
	}
	setString(&c.Server.PublicDir, "PUBLIC_DIR")
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.Server.CORSOrigins = splitList(origins)
	}

	setString(&c.Database.DSN, "DATABASE_URL")

	setString(&c.AI.APIKey, "OPENROUTER_API_KEY")
	setString(&c.AI.Model, "OPENROUTER_MODEL")
	setString(&c.AI.BaseURL, "OPENROUTER_BASE_URL")
	if err := setInt(&c.AI.MaxConcurrent, "AI_MAX_CONCURRENT"); err != nil {
		return err
	}
	if err := setInt(&c.AI.MaxPending, "AI_MAX_PENDING"); err != nil {
		return err
	}

	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Auth.AdminUser, "ADMIN_USER")
	setString(&c.Auth.AdminPassword, "ADMIN_PASS")
	setString(&c.Auth.AdminPasswordHash, "ADMIN_PASS_HASH")

	setString(&c.Notify.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.Notify.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setString(&c.Notify.WhatsApp.Phone, "WHATSAPP_PHONE")
	setString(&c.Notify.WhatsApp.APIKey, "WHATSAPP_API_KEY")
	setString(&c.Notify.Email.Host, "EMAIL_HOST")
	setString(&c.Notify.Email.User, "EMAIL_USER")
	setString(&c.Notify.Email.Password, "EMAIL_PASS")
	setString(&c.Notify.Email.To, "EMAIL_TO")
	if err := setInt(&c.Notify.Email.Port, "EMAIL_PORT"); err != nil {
		return err
	}

	setString(&c.Payments.KeyID, "RAZORPAY_KEY_ID")
	setString(&c.Payments.KeySecret, "RAZORPAY_KEY_SECRET")
	setString(&c.Payments.WebhookSecret, "RAZORPAY_WEBHOOK_SECRET")
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = n
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
