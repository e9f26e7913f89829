package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// ConfigFileEnv names the optional YAML file read before the environment.
const ConfigFileEnv = "CONFIG_FILE"

// Config is read from the environment under fully qualified names such as
// SERVER_PORT and DATASET_FILE.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Dataset   DatasetConfig   `yaml:"dataset"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Logger    LoggerConfig    `yaml:"logger"`
	Security  SecurityConfig  `yaml:"security"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"SERVER_HOST"`
	Port            int           `yaml:"port" envconfig:"SERVER_PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"SERVER_IDLE_TIMEOUT" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SERVER_SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

type DatasetConfig struct {
	File        string        `yaml:"file" envconfig:"DATASET_FILE" validate:"required"`
	CacheDir    string        `yaml:"cache_dir" envconfig:"DATASET_CACHE_DIR"`
	LoadTimeout time.Duration `yaml:"load_timeout" envconfig:"DATASET_LOAD_TIMEOUT" validate:"gt=0"`
}

type DashboardConfig struct {
	CurrencySymbol        string `yaml:"currency_symbol" envconfig:"DASHBOARD_CURRENCY_SYMBOL"`
	TopCountries          int    `yaml:"top_countries" envconfig:"DASHBOARD_TOP_COUNTRIES" validate:"gte=0,lte=100"`
	TopProducts           int    `yaml:"top_products" envconfig:"DASHBOARD_TOP_PRODUCTS" validate:"gte=0,lte=100"`
	TopCustomers          int    `yaml:"top_customers" envconfig:"DASHBOARD_TOP_CUSTOMERS" validate:"gte=0,lte=100"`
	TopProductsByQuantity int    `yaml:"top_products_by_quantity" envconfig:"DASHBOARD_TOP_PRODUCTS_BY_QUANTITY" validate:"gte=0,lte=100"`
	ZeroFillMonths        bool   `yaml:"zero_fill_months" envconfig:"DASHBOARD_ZERO_FILL_MONTHS"`
}

type LoggerConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT" validate:"oneof=json text"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `yaml:"rate_limit_enabled" envconfig:"SECURITY_RATE_LIMIT_ENABLED"`
	RateLimitRPS    int      `yaml:"rate_limit_rps" envconfig:"SECURITY_RATE_LIMIT_RPS" validate:"gt=0"`
	RateLimitBurst  int      `yaml:"rate_limit_burst" envconfig:"SECURITY_RATE_LIMIT_BURST" validate:"gt=0"`
	AllowedOrigins  []string `yaml:"allowed_origins" envconfig:"SECURITY_ALLOWED_ORIGINS"`
	TrustedProxies  []string `yaml:"trusted_proxies" envconfig:"SECURITY_TRUSTED_PROXIES"`
}

type TelemetryConfig struct {
	ServiceName   string  `yaml:"service_name" envconfig:"TELEMETRY_SERVICE_NAME" validate:"required"`
	EnableTracing bool    `yaml:"tracing_enabled" envconfig:"TELEMETRY_TRACING_ENABLED"`
	TraceExporter string  `yaml:"trace_exporter" envconfig:"TELEMETRY_TRACE_EXPORTER" validate:"oneof=stdout none"`
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"TELEMETRY_SAMPLE_RATIO" validate:"gte=0,lte=1"`
	EnableMetrics bool    `yaml:"metrics_enabled" envconfig:"TELEMETRY_METRICS_ENABLED"`
}

// Default returns the built-in configuration every other source overrides.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8084,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Dataset: DatasetConfig{
			File:        "data/retail.csv",
			LoadTimeout: 2 * time.Minute,
		},
		Dashboard: DashboardConfig{
			CurrencySymbol:        "$",
			TopCountries:          5,
			TopProducts:           10,
			TopCustomers:          5,
			TopProductsByQuantity: 5,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "json",
		},
		Security: SecurityConfig{
			EnableRateLimit: true,
			RateLimitRPS:    100,
			RateLimitBurst:  10,
			AllowedOrigins:  []string{"http://localhost:8084"},
			TrustedProxies:  []string{"127.0.0.1"},
		},
		Telemetry: TelemetryConfig{
			ServiceName:   "retail-dashboard",
			EnableTracing: false,
			TraceExporter: "stdout",
			SampleRatio:   1.0,
			EnableMetrics: true,
		},
	}
}

// Load layers the YAML file named by CONFIG_FILE, if any, and then the
// environment over Default, and validates the result.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
