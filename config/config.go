package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"raffle/database"
	"raffle/domain/entities"
	"raffle/domain/interfaces"

	"gopkg.in/yaml.v3"
)

// Ledger backends
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all application configuration. Values come from an optional
// YAML file named by CONFIG_FILE, then environment variables override them.
type Config struct {
	// Database configuration
	DatabaseURL  string `yaml:"database_url"`
	DatabaseName string `yaml:"database_name"`
	DBMaxConns   int32  `yaml:"db_max_conns"`

	// Ledger backend, "postgres" or "memory"
	LedgerBackend string `yaml:"ledger_backend"`

	// NATS configuration
	NATSServers string `yaml:"nats_servers"` // comma-separated, empty disables NATS

	// HTTP API
	HTTPAddr       string  `yaml:"http_addr"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	// Round defaults applied when a round opens
	TicketPrice      int64         `yaml:"ticket_price"`
	MinParticipants  int           `yaml:"min_participants"`
	MinRoundDuration time.Duration `yaml:"min_round_duration"`
	RoundSchedule    string        `yaml:"round_schedule"` // standard cron expression
	CloseRule        string        `yaml:"close_rule"`

	// Round close worker
	CloseCheckInterval time.Duration `yaml:"close_check_interval"`

	// Development oracle answering randomness requests in process
	LocalOracle bool `yaml:"local_oracle"`

	// Discord announcements
	DiscordToken     string `yaml:"discord_token"`
	DiscordChannelID string `yaml:"discord_channel_id"`

	LogLevel    string `yaml:"log_level"`
	Environment string `yaml:"environment"` // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// Load reads configuration without touching the global instance
func Load() (*Config, error) {
	return load()
}

// Set installs cfg as the global instance returned by Get
func Set(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = cfg
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// NATSEnabled reports whether a message bus is configured
func (c *Config) NATSEnabled() bool {
	return strings.TrimSpace(c.NATSServers) != ""
}

// DiscordEnabled reports whether round announcements are posted
func (c *Config) DiscordEnabled() bool {
	return c.DiscordToken != "" && c.DiscordChannelID != ""
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// RoundDefaults converts the round settings into the parameters used to open rounds
func (c *Config) RoundDefaults() (interfaces.RoundParams, error) {
	rule, err := entities.ParseCloseRule(c.CloseRule)
	if err != nil {
		return interfaces.RoundParams{}, err
	}
	return interfaces.RoundParams{
		TicketPrice: c.TicketPrice,
		Policy: entities.RoundPolicy{
			MinParticipants: c.MinParticipants,
			MinDuration:     c.MinRoundDuration,
			CloseRule:       rule,
		},
	}, nil
}

func defaults() *Config {
	return &Config{
		DBMaxConns:         10,
		LedgerBackend:      BackendPostgres,
		NATSServers:        "nats://nats:4222",
		HTTPAddr:           ":8080",
		RateLimitRPS:       20,
		RateLimitBurst:     40,
		TicketPrice:        1,
		MinParticipants:    2,
		MinRoundDuration:   time.Hour,
		CloseRule:          string(entities.CloseRuleTimeAndParticipants),
		CloseCheckInterval: 30 * time.Second,
		LogLevel:           "info",
		Environment:        "development",
	}
}

// load builds configuration from defaults, the optional file and the environment
func load() (*Config, error) {
	config := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := config.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.DatabaseName, "DATABASE_NAME")
	setString(&c.LedgerBackend, "LEDGER_BACKEND")
	setString(&c.HTTPAddr, "HTTP_ADDR")
	setString(&c.RoundSchedule, "ROUND_SCHEDULE")
	setString(&c.CloseRule, "CLOSE_RULE")
	setString(&c.DiscordToken, "DISCORD_TOKEN")
	setString(&c.DiscordChannelID, "DISCORD_CHANNEL_ID")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Environment, "ENVIRONMENT")

	// An explicitly empty NATS_SERVERS disables the bus
	if servers, ok := os.LookupEnv("NATS_SERVERS"); ok {
		c.NATSServers = servers
	}

	if v := os.Getenv("DB_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("DB_MAX_CONNS: %w", err)
		}
		c.DBMaxConns = int32(n)
	}
	if v := os.Getenv("TICKET_PRICE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TICKET_PRICE: %w", err)
		}
		c.TicketPrice = n
	}
	if v := os.Getenv("MIN_PARTICIPANTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MIN_PARTICIPANTS: %w", err)
		}
		c.MinParticipants = n
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_BURST: %w", err)
		}
		c.RateLimitBurst = n
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		c.RateLimitRPS = f
	}
	if v := os.Getenv("MIN_ROUND_DURATION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MIN_ROUND_DURATION: %w", err)
		}
		c.MinRoundDuration = d
	}
	if v := os.Getenv("CLOSE_CHECK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CLOSE_CHECK_INTERVAL: %w", err)
		}
		c.CloseCheckInterval = d
	}
	if v := os.Getenv("LOCAL_ORACLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOCAL_ORACLE: %w", err)
		}
		c.LocalOracle = b
	}
	return nil
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	switch c.LedgerBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" && c.Environment != "test" {
			return fmt.Errorf("DATABASE_URL is required for the postgres ledger")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown ledger backend %q", c.LedgerBackend)
	}

	if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
		return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
	}
	if c.TicketPrice <= 0 {
		return fmt.Errorf("ticket price must be positive, got %d", c.TicketPrice)
	}
	if c.MinParticipants < 1 {
		return fmt.Errorf("min participants must be at least 1, got %d", c.MinParticipants)
	}
	if c.MinRoundDuration < 0 {
		return fmt.Errorf("min round duration cannot be negative")
	}
	if _, err := entities.ParseCloseRule(c.CloseRule); err != nil {
		return err
	}
	if c.CloseCheckInterval <= 0 {
		return fmt.Errorf("close check interval must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit must allow at least one request")
	}
	if c.DiscordToken != "" && c.DiscordChannelID == "" {
		return fmt.Errorf("DISCORD_CHANNEL_ID is required when DISCORD_TOKEN is set")
	}
	return nil
}

func setString(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

// Test helpers - only use in tests

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	config := defaults()
	config.Environment = "test"
	config.LedgerBackend = BackendMemory
	config.NATSServers = ""
	config.LocalOracle = true
	config.CloseCheckInterval = 10 * time.Millisecond
	return config
}
