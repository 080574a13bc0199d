package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	Log          LogConfig          `mapstructure:"log"`
	HTTP         HTTPConfig         `mapstructure:"http"`
	Database     DatabaseConfig     `mapstructure:"database"`
	ClickHouse   ClickHouseConfig   `mapstructure:"clickhouse"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	Queue        QueueConfig        `mapstructure:"queue"`
	Commit       CommitConfig       `mapstructure:"commit"`
	Progress     ProgressConfig     `mapstructure:"progress"`
	Tracking     TrackingConfig     `mapstructure:"tracking"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Presence     PresenceConfig     `mapstructure:"presence"`
	Presentation PresentationConfig `mapstructure:"presentation"`
	Supervisor   SupervisorConfig   `mapstructure:"supervisor"`
	Recommend    RecommendConfig    `mapstructure:"recommend"`
}

// ---- Leaf structs ----

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"` // json | console
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // mysql | sqlite
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"` // sqlite only
}

type ClickHouseConfig struct {
	DSN             string        `mapstructure:"dsn"` // empty disables reports
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	GroupID        string   `mapstructure:"group_id"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

type QueueConfig struct {
	Backend        string        `mapstructure:"backend"` // redis | kafka
	ViewQueue      string        `mapstructure:"view_queue"`
	PopTimeout     time.Duration `mapstructure:"pop_timeout"`
	RequeueBackoff time.Duration `mapstructure:"requeue_backoff"`
	Breaker        BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	FailThreshold int `mapstructure:"fail_threshold" yaml:"fail_threshold"`
	OpenForMs     int `mapstructure:"open_for_ms"    yaml:"open_for_ms"`
}

type CommitConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Backoff  time.Duration `mapstructure:"backoff"`
}

type ProgressConfig struct {
	KeyPrefix    string        `mapstructure:"key_prefix"`
	ScanInterval time.Duration `mapstructure:"scan_interval"`
	ScanCount    int64         `mapstructure:"scan_count"`
	KeyTTL       time.Duration `mapstructure:"key_ttl"`
}

type TrackingConfig struct {
	ViewDebounce time.Duration `mapstructure:"view_debounce"`
}

type RateLimitConfig struct {
	RPS int `mapstructure:"rps"`
}

type PresenceConfig struct {
	OnlineTTL time.Duration `mapstructure:"online_ttl"`
}

type PresentationConfig struct {
	StateTTL time.Duration `mapstructure:"state_ttl"`
}

type SupervisorConfig struct {
	FailureThreshold float64       `mapstructure:"failure_threshold"`
	FailureDecay     float64       `mapstructure:"failure_decay"`
	FailureBackoff   time.Duration `mapstructure:"failure_backoff"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"`
}

type RecommendConfig struct {
	ViewWeight   float64 `mapstructure:"view_weight"`
	RatingWeight float64 `mapstructure:"rating_weight"`
	QuizWeight   float64 `mapstructure:"quiz_weight"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (AGENTHUB_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (AGENTHUB_DATABASE_DSN -> database.dsn)
	v.SetEnvPrefix("AGENTHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the workers cannot run with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("database.driver: unsupported %q", c.Database.Driver)
	}
	switch c.Queue.Backend {
	case "redis", "kafka":
	default:
		return fmt.Errorf("queue.backend: unsupported %q", c.Queue.Backend)
	}
	if c.Queue.Backend == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("queue.backend=kafka requires kafka.brokers")
	}
	if strings.TrimSpace(c.Queue.ViewQueue) == "" {
		return fmt.Errorf("queue.view_queue is empty")
	}
	if c.Queue.PopTimeout <= 0 || c.Queue.RequeueBackoff <= 0 {
		return fmt.Errorf("queue: pop_timeout and requeue_backoff must be positive")
	}
	if c.Commit.Attempts < 1 || c.Commit.Backoff <= 0 {
		return fmt.Errorf("commit: attempts must be >= 1 and backoff positive")
	}
	if c.Progress.ScanInterval <= 0 {
		return fmt.Errorf("progress.scan_interval must be positive")
	}
	if strings.TrimSpace(c.Progress.KeyPrefix) == "" {
		return fmt.Errorf("progress.key_prefix is empty")
	}
	return nil
}
