package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"OilScope/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Data struct {
		PricesCSV string `yaml:"prices_csv"`
		EventsCSV string `yaml:"events_csv"`
	} `yaml:"data"`
	Sampling struct {
		Draws        int     `yaml:"draws"`
		Tune         int     `yaml:"tune"`
		Chains       int     `yaml:"chains"`
		TargetAccept float64 `yaml:"target_accept"`
		Seed         int64   `yaml:"seed"`
	} `yaml:"sampling"`
	Analysis struct {
		EventWindowDays  int  `yaml:"event_window_days"`
		RunOnStartup     bool `yaml:"run_on_startup"`
		VolatilityWindow int  `yaml:"volatility_window"`
	} `yaml:"analysis"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Queue    struct {
			Workers    int           `yaml:"workers"`
			QueueSize  int           `yaml:"queue_size"`
			RetryLimit int           `yaml:"retry_limit"`
			RetryDelay time.Duration `yaml:"retry_delay"`
		} `yaml:"queue"`
	} `yaml:"redis"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		Table            string        `yaml:"table"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		ResultsTopic string   `yaml:"results_topic"`
		LogsTopic    string   `yaml:"logs_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PRICES_CSV"); v != "" {
		c.Data.PricesCSV = v
	}
	if v := os.Getenv("EVENTS_CSV"); v != "" {
		c.Data.EventsCSV = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Redis.Host = host
		if ok {
			c.Redis.Port = util.ParseIntDefault(port, c.Redis.Port)
		}
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_RESULTS_TOPIC"); v != "" {
		c.Kafka.ResultsTopic = v
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Sampling.Draws == 0 {
		c.Sampling.Draws = 2000
	}
	if c.Sampling.Tune == 0 {
		c.Sampling.Tune = 1000
	}
	if c.Sampling.Chains == 0 {
		c.Sampling.Chains = 4
	}
	if c.Sampling.TargetAccept == 0 {
		c.Sampling.TargetAccept = 0.9
	}
	if c.Sampling.Seed == 0 {
		c.Sampling.Seed = 42
	}
	if c.Analysis.EventWindowDays == 0 {
		c.Analysis.EventWindowDays = 90
	}
	if c.Analysis.VolatilityWindow == 0 {
		c.Analysis.VolatilityWindow = 30
	}
	if c.Redis.Queue.Workers == 0 {
		c.Redis.Queue.Workers = 1
	}
	if c.Redis.Queue.QueueSize == 0 {
		c.Redis.Queue.QueueSize = 100
	}
	if c.Redis.Queue.RetryDelay == 0 {
		c.Redis.Queue.RetryDelay = 30 * time.Second
	}
	if c.ClickHouse.Table == "" {
		c.ClickHouse.Table = "oilscope.brent_prices"
	}
	if c.Kafka.ResultsTopic == "" {
		c.Kafka.ResultsTopic = "oilscope.analysis-results"
	}
	if c.Kafka.LogsTopic == "" {
		c.Kafka.LogsTopic = "oilscope.error-logs"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Data.PricesCSV == "" {
		return fmt.Errorf("data.prices_csv is required")
	}
	if c.Data.EventsCSV == "" {
		return fmt.Errorf("data.events_csv is required")
	}
	if c.Sampling.TargetAccept <= 0 || c.Sampling.TargetAccept >= 1 {
		return fmt.Errorf("sampling.target_accept must be in (0, 1), got %v", c.Sampling.TargetAccept)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}
