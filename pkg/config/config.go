package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ShareWise/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Signals struct {
		Engine        string        `yaml:"engine"`
		Symbols       []string      `yaml:"symbols"`
		Timeframe     string        `yaml:"timeframe"`
		LookbackBars  int           `yaml:"lookback_bars"`
		MinConfidence float64       `yaml:"min_confidence"`
		BatchTimeout  time.Duration `yaml:"batch_timeout"`
	} `yaml:"signals"`
	Pricing struct {
		RiskFreeRate float64 `yaml:"risk_free_rate"`
	} `yaml:"pricing"`
	Backtest struct {
		Workers    int           `yaml:"workers"`
		RetryMax   int           `yaml:"retry_max"`
		RetryDelay time.Duration `yaml:"retry_delay"`
	} `yaml:"backtest"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		CandlesTopic string   `yaml:"candles_topic"`
		SignalsTopic string   `yaml:"signals_topic"`
		AlertsTopic  string   `yaml:"alerts_topic"`
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
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
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
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Analytics struct {
		BaseURL  string        `yaml:"base_url"`
		Timeout  time.Duration `yaml:"timeout"`
		Retries  int           `yaml:"retries"`
		CacheTTL struct {
			Signals time.Duration `yaml:"signals"`
			Drift   time.Duration `yaml:"drift"`
		} `yaml:"cache_ttl"`
	} `yaml:"analytics"`
	Stream struct {
		MaxPerSecond int `yaml:"max_per_second"`
		BufferSize   int `yaml:"buffer_size"`
	} `yaml:"stream"`
}

// Load reads the YAML file at path into a validated Config.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads the YAML file and then applies environment overrides,
// which win over file values. Unset variables leave the file value alone.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	c.Signals.Symbols = util.EnvList("SYMBOLS", c.Signals.Symbols)
	c.Signals.Engine = util.EnvStr("SIGNAL_ENGINE", c.Signals.Engine)
	c.Signals.MinConfidence = util.EnvFloat("MIN_CONFIDENCE", c.Signals.MinConfidence)
	c.Kafka.Brokers = util.EnvList("KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.CandlesTopic = util.EnvStr("KAFKA_CANDLES_TOPIC", c.Kafka.CandlesTopic)
	c.ClickHouse.Host = util.EnvStr("CLICKHOUSE_HOST", c.ClickHouse.Host)
	c.ClickHouse.Password = util.EnvStr("CLICKHOUSE_PASSWORD", c.ClickHouse.Password)
	c.Redis.Addr = util.EnvStr("REDIS_ADDR", c.Redis.Addr)
	c.Analytics.BaseURL = util.EnvStr("ANALYTICS_BASE_URL", c.Analytics.BaseURL)
	c.Server.Port = util.EnvInt("SERVER_PORT", c.Server.Port)

	return c, nil
}

// Validate rejects configs the app cannot start with. Anything optional gets
// a default at the provider that consumes it.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Signals.Engine == "" {
		return fmt.Errorf("signals.engine is required")
	}
	switch c.Signals.Engine {
	case "traditional", "ensemble", "deep_learning", "automl":
	default:
		return fmt.Errorf("signals.engine must be one of 'traditional', 'ensemble', 'deep_learning' or 'automl', got '%s'", c.Signals.Engine)
	}
	if len(c.Signals.Symbols) == 0 {
		return fmt.Errorf("signals.symbols cannot be empty")
	}
	switch c.Signals.Timeframe {
	case "", "5m", "15m", "1h", "1d":
	default:
		return fmt.Errorf("signals.timeframe must be one of '5m', '15m', '1h' or '1d', got '%s'", c.Signals.Timeframe)
	}
	if c.Signals.Engine != "traditional" && c.Analytics.BaseURL == "" {
		return fmt.Errorf("analytics.base_url is required for engine '%s'", c.Signals.Engine)
	}
	return nil
}
