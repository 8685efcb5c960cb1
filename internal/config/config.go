// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
	// Postgres connection string; DATABASE_URL overrides it.
	URL       string `yaml:"url,omitempty"`
	AuthToken string `yaml:"-"` // Loaded from environment
}

// WindowConfig is an operating window written as HH:MM offsets. Closing times past
// midnight are written past 24:00, so "26:00" closes at 02:00 the next day.
type WindowConfig struct {
	Opens  string `yaml:"opens"`
	Closes string `yaml:"closes"`
}

type ClubConfig struct {
	Name           string                  `yaml:"name"`
	Timezone       string                  `yaml:"timezone"`
	Durations      []int                   `yaml:"durations"`
	HorizonDays    int                     `yaml:"horizon_days"`
	ConflictPolicy string                  `yaml:"conflict_policy"`
	DefaultHours   WindowConfig            `yaml:"default_hours"`
	Hours          map[string]WindowConfig `yaml:"hours"`
}

type PricingRuleConfig struct {
	Resource string `yaml:"resource"`
	Duration int    `yaml:"duration"`
	Coaching bool   `yaml:"coaching"`
	Amount   int64  `yaml:"amount"`
}

type PricingConfig struct {
	Currency string              `yaml:"currency"`
	CacheTTL time.Duration       `yaml:"cache_ttl"`
	Rules    []PricingRuleConfig `yaml:"rules"`
}

type RateLimitConfig struct {
	Cooldown    time.Duration `yaml:"cooldown"`
	HourlyCap   int           `yaml:"hourly_cap"`
	IPHourlyCap int           `yaml:"ip_hourly_cap"`
	TrustProxy  bool          `yaml:"trust_proxy"`
}

type BookingConfig struct {
	StoreTimeout time.Duration   `yaml:"store_timeout"`
	MaxBatch     int             `yaml:"max_batch"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
}

type EmailConfig struct {
	Region           string `yaml:"region"`
	Sender           string `yaml:"sender"`
	ReplyTo          string `yaml:"reply_to"`
	ConfigurationSet string `yaml:"configuration_set"`
	AccessKeyID      string `yaml:"-"` // Loaded from environment
	SecretAccessKey  string `yaml:"-"` // Loaded from environment
}

type TwilioConfig struct {
	SMSFrom      string `yaml:"sms_from"`
	WhatsAppFrom string `yaml:"whatsapp_from"`
	AccountSID   string `yaml:"-"` // Loaded from environment
	AuthToken    string `yaml:"-"` // Loaded from environment
}

type DedupeConfig struct {
	Backend       string        `yaml:"backend"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisDB       int           `yaml:"redis_db"`
	RedisPassword string        `yaml:"-"` // Loaded from environment
	TTL           time.Duration `yaml:"ttl"`
}

type NotificationsConfig struct {
	Enabled       bool          `yaml:"enabled"`
	DefaultRegion string        `yaml:"default_region"`
	AdminEmail    string        `yaml:"admin_email"`
	AdminPhone    string        `yaml:"admin_phone"`
	SendTimeout   time.Duration `yaml:"send_timeout"`
	Email         EmailConfig   `yaml:"email"`
	Twilio        TwilioConfig  `yaml:"twilio"`
	Dedupe        DedupeConfig  `yaml:"dedupe"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

type EventsConfig struct {
	Backend string      `yaml:"backend"`
	Workers int         `yaml:"workers"`
	Buffer  int         `yaml:"buffer"`
	Kafka   KafkaConfig `yaml:"kafka"`
}

type RemindersConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Cron        string `yaml:"cron"`
	HoursBefore int    `yaml:"hours_before"`
}

type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type Config struct {
	App struct {
		Name            string        `yaml:"name"`
		Environment     string        `yaml:"environment"`
		Port            int           `yaml:"port"`
		BaseURL         string        `yaml:"base_url"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		AdminTokenHash  string        `yaml:"-"` // Loaded from environment
	} `yaml:"app"`

	Database      DatabaseConfig      `yaml:"database"`
	Club          ClubConfig          `yaml:"club"`
	Pricing       PricingConfig       `yaml:"pricing"`
	Booking       BookingConfig       `yaml:"booking"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Events        EventsConfig        `yaml:"events"`
	Reminders     RemindersConfig     `yaml:"reminders"`
	Tracing       TracingConfig       `yaml:"tracing"`

	Features struct {
		EnableTracing bool `yaml:"enable_tracing"`
		EnableDebug   bool `yaml:"enable_debug"`
	} `yaml:"features"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Load sensitive values from environment
	cfg.loadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration and fills defaults. It does not read the environment
// or validate.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Default returns the club configuration Spinergy runs with when config.yaml is silent.
func Default() *Config {
	cfg := &Config{}
	cfg.App.Name = "Spinergy"
	cfg.App.Environment = "development"
	cfg.App.Port = 8080
	cfg.Database.Driver = "sqlite"
	cfg.Database.Filename = "data/spinergy.db"
	cfg.Club = ClubConfig{
		Name:           "Spinergy",
		Timezone:       "Asia/Karachi",
		Durations:      []int{30, 60},
		HorizonDays:    7,
		ConflictPolicy: "per_duration",
		DefaultHours:   WindowConfig{Opens: "14:00", Closes: "26:00"},
		Hours: map[string]WindowConfig{
			"saturday": {Opens: "12:00", Closes: "27:00"},
			"sunday":   {Opens: "12:00", Closes: "27:00"},
		},
	}
	cfg.Pricing.Currency = "PKR"
	cfg.Notifications.DefaultRegion = "PK"
	cfg.Notifications.Dedupe.Backend = "memory"
	cfg.Events.Backend = "local"
	cfg.Reminders.Cron = "*/15 * * * *"
	cfg.Reminders.HoursBefore = 24
	cfg.Tracing.ServiceName = "spinergy"
	cfg.Tracing.SampleRatio = 1
	return cfg
}

func (c *Config) applyDefaults() {
	if c.App.ShutdownTimeout <= 0 {
		c.App.ShutdownTimeout = 30 * time.Second
	}
	if c.Pricing.CacheTTL <= 0 {
		c.Pricing.CacheTTL = 5 * time.Minute
	}
	if c.Booking.StoreTimeout <= 0 {
		c.Booking.StoreTimeout = 5 * time.Second
	}
	if c.Booking.MaxBatch <= 0 {
		c.Booking.MaxBatch = 8
	}
	if c.Booking.RateLimit.Cooldown <= 0 {
		c.Booking.RateLimit.Cooldown = 2 * time.Second
	}
	if c.Booking.RateLimit.HourlyCap <= 0 {
		c.Booking.RateLimit.HourlyCap = 30
	}
	if c.Booking.RateLimit.IPHourlyCap <= 0 {
		c.Booking.RateLimit.IPHourlyCap = 120
	}
	if c.Notifications.SendTimeout <= 0 {
		c.Notifications.SendTimeout = 10 * time.Second
	}
	if c.Notifications.Dedupe.TTL <= 0 {
		c.Notifications.Dedupe.TTL = 72 * time.Hour
	}
	if c.Events.Workers <= 0 {
		c.Events.Workers = 2
	}
	if c.Events.Buffer <= 0 {
		c.Events.Buffer = 256
	}
	if c.Events.Kafka.Topic == "" {
		c.Events.Kafka.Topic = "spinergy.reservations"
	}
	if c.Events.Kafka.GroupID == "" {
		c.Events.Kafka.GroupID = "spinergy-notifications"
	}
}

func (c *Config) loadEnv() {
	c.App.AdminTokenHash = os.Getenv("ADMIN_TOKEN_HASH")
	c.Database.AuthToken = os.Getenv("DATABASE_AUTH_TOKEN")
	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.Database.URL = url
	}
	c.Notifications.Email.AccessKeyID = os.Getenv("AWS_SES_ACCESS_KEY_ID")
	c.Notifications.Email.SecretAccessKey = os.Getenv("AWS_SES_SECRET_ACCESS_KEY")
	c.Notifications.Twilio.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	c.Notifications.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	c.Notifications.Dedupe.RedisPassword = os.Getenv("REDIS_PASSWORD")
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	// Validate based on database driver
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if err := c.Club.validate(); err != nil {
		return err
	}

	for i, rule := range c.Pricing.Rules {
		if rule.Resource == "" || rule.Duration <= 0 || rule.Amount < 0 {
			return fmt.Errorf("pricing rule %d requires resource, positive duration and non-negative amount", i)
		}
	}

	switch c.Notifications.Dedupe.Backend {
	case "memory":
	case "redis":
		if c.Notifications.Dedupe.RedisAddr == "" {
			return fmt.Errorf("notifications.dedupe.redis_addr is required for redis dedupe")
		}
	default:
		return fmt.Errorf("unsupported dedupe backend: %s", c.Notifications.Dedupe.Backend)
	}

	switch c.Events.Backend {
	case "local":
	case "kafka":
		if len(c.Events.Kafka.Brokers) == 0 {
			return fmt.Errorf("events.kafka.brokers is required for kafka events")
		}
	default:
		return fmt.Errorf("unsupported events backend: %s", c.Events.Backend)
	}

	if c.Reminders.Enabled {
		if _, err := cron.ParseStandard(c.Reminders.Cron); err != nil {
			return fmt.Errorf("invalid reminders cron %q: %w", c.Reminders.Cron, err)
		}
		if c.Reminders.HoursBefore <= 0 {
			return fmt.Errorf("reminders.hours_before must be positive")
		}
	}

	if c.Features.EnableTracing && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing endpoint is required when tracing is enabled")
	}

	return nil
}

func (c ClubConfig) validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid club timezone %q: %w", c.Timezone, err)
	}
	if len(c.Durations) == 0 {
		return fmt.Errorf("club durations are required")
	}
	for _, d := range c.Durations {
		if d <= 0 || d > 24*60 {
			return fmt.Errorf("invalid club duration %d", d)
		}
	}
	if c.HorizonDays <= 0 {
		return fmt.Errorf("club horizon_days must be positive")
	}
	switch c.ConflictPolicy {
	case "", "per_duration", "overlap":
	default:
		return fmt.Errorf("unsupported conflict policy: %s", c.ConflictPolicy)
	}
	for day := range c.Hours {
		if _, ok := weekdays[strings.ToLower(day)]; !ok {
			return fmt.Errorf("unknown weekday %q in club hours", day)
		}
	}
	if _, err := c.WeeklyWindows(); err != nil {
		return err
	}
	return nil
}

// Location loads the club timezone, falling back to UTC.
func (c ClubConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
