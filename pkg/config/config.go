package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"LevRecon/internal/domain/models"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level      string `yaml:"level" default:"info"`
		Format     string `yaml:"format" default:"json"`
		Output     string `yaml:"output" default:"stdout"`
		TimeFormat string `yaml:"time_format"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"500ms"`
		WSPingInterval  time.Duration `yaml:"ws_ping_interval" default:"30s"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Policy models.Policy `yaml:"policy"`
	Venues struct {
		// Participants compete in the street aggregate, in tie-break order.
		Participants []string `yaml:"participants" default:"[\"binance\",\"weex\",\"mexc\",\"bybit\"]"`
		// Reference is shown beside the aggregate but never competes.
		Reference string `yaml:"reference" default:"surf"`
	} `yaml:"venues"`
	Classify struct {
		Quote   string               `yaml:"quote" default:"USDT"`
		Exclude []string             `yaml:"exclude" default:"[\"USDT\",\"USDC\"]"`
		Groups  map[string][]float64 `yaml:"groups"`
	} `yaml:"classify"`
	Reconcile struct {
		Workers   int           `yaml:"workers" default:"8"`
		Timeout   time.Duration `yaml:"timeout" default:"2m"`
		LockTTL   time.Duration `yaml:"lock_ttl" default:"5m"`
		ReportTTL time.Duration `yaml:"report_ttl" default:"24h"`
		OnCycle   bool          `yaml:"on_cycle" default:"true"`
	} `yaml:"reconcile"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Topics       struct {
			VenueTiers string `yaml:"venue_tiers" default:"venue_tiers"`
			Universe   string `yaml:"symbol_universe" default:"symbol_universe"`
			Cycles     string `yaml:"refresh_cycles" default:"refresh_cycles"`
			Reports    string `yaml:"tier_reports" default:"tier_reports"`
			Anomalies  string `yaml:"tier_anomalies" default:"tier_anomalies"`
		} `yaml:"topics"`
		Producer struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"200ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"levrecon"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"venue_tiers_dlq"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
			SlowAfter  time.Duration `yaml:"slow_after" default:"1s"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"levrecon"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
		BatchSize        int           `yaml:"batch_size" default:"500"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled    bool          `yaml:"enabled"`
		Addr       string        `yaml:"addr" default:"localhost:6379"`
		Password   string        `yaml:"password"`
		DB         int           `yaml:"db"`
		Prefix     string        `yaml:"prefix" default:"levrecon"`
		MemorySize int           `yaml:"memory_size" default:"10000"`
		MemoryTTL  time.Duration `yaml:"memory_ttl" default:"1m"`

		// MemoryCleanup is the expiry sweep interval of the in-process cache.
		MemoryCleanup time.Duration `yaml:"memory_cleanup" default:"1m"`
		PoolSize      int           `yaml:"pool_size" default:"10"`
		MinIdleConns  int           `yaml:"min_idle_conns" default:"2"`
		PoolTimeout   time.Duration `yaml:"pool_timeout" default:"30s"`
	} `yaml:"redis"`
	RateLimit struct {
		RPS   float64 `yaml:"rps" default:"20"`
		Burst int     `yaml:"burst" default:"40"`
	} `yaml:"rate_limit"`
	Anomalies struct {
		Enabled   bool          `yaml:"enabled" default:"true"`
		Interval  time.Duration `yaml:"interval" default:"30s"`
		Threshold int           `yaml:"threshold" default:"100"`
	} `yaml:"anomalies"`
	Breaker struct {
		MaxFailures uint32        `yaml:"max_failures" default:"5"`
		OpenTimeout time.Duration `yaml:"open_timeout" default:"30s"`
		CallTimeout time.Duration `yaml:"call_timeout" default:"10s"`
	} `yaml:"breaker"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file over the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from the environment through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	float := func(key string, dst *float64) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("env %s: %w", key, err)
		}
		*dst = f
		return nil
	}

	str("APP_ENV", &c.Environment)
	str("LOG_LEVEL", &c.Log.Level)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("CLICKHOUSE_HOST", &c.ClickHouse.Host)
	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v, ok := lookup("VENUES"); ok && v != "" {
		c.Venues.Participants = strings.Split(v, ",")
	}
	for key, dst := range map[string]*float64{
		"POLICY_LEV_STEP":         &c.Policy.LevStep,
		"POLICY_LEV_MAX":          &c.Policy.LevMax,
		"POLICY_FLOOR":            &c.Policy.Floor,
		"POLICY_DEFAULT_LEVERAGE": &c.Policy.DefaultLeverage,
	} {
		if err := float(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks if the configuration is valid. Policy errors are fatal at
// startup.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if err := c.Policy.Validate(); err != nil {
		return err
	}
	participants, err := c.ParticipantVenues()
	if err != nil {
		return err
	}
	if len(participants) == 0 {
		return fmt.Errorf("venues.participants cannot be empty")
	}
	if ref, ok := c.ReferenceVenue(); ok {
		for _, p := range participants {
			if p == ref {
				return fmt.Errorf("venues.reference %q cannot also participate", ref)
			}
		}
	} else if c.Venues.Reference != "" {
		return fmt.Errorf("venues.reference: unknown venue %q", c.Venues.Reference)
	}
	if c.Classify.Quote == "" {
		return fmt.Errorf("classify.quote is required")
	}
	for g, th := range c.Classify.Groups {
		for _, v := range th {
			if v <= 0 {
				return fmt.Errorf("classify.groups.%s: threshold %v must be positive", g, v)
			}
		}
	}
	if c.Reconcile.Workers <= 0 {
		return fmt.Errorf("reconcile.workers must be positive, got %d", c.Reconcile.Workers)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit values cannot be negative")
	}
	return nil
}

// ParticipantVenues parses venues.participants in configured order.
func (c *Config) ParticipantVenues() ([]models.Venue, error) {
	out := make([]models.Venue, 0, len(c.Venues.Participants))
	seen := make(map[models.Venue]bool)
	for _, s := range c.Venues.Participants {
		v, ok := models.ParseVenue(s)
		if !ok {
			return nil, fmt.Errorf("venues.participants: unknown venue %q", s)
		}
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out, nil
}

// ReferenceVenue returns the configured reference venue, if any.
func (c *Config) ReferenceVenue() (models.Venue, bool) {
	if c.Venues.Reference == "" {
		return "", false
	}
	return models.ParseVenue(c.Venues.Reference)
}
