package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Graph    GraphConfig    `mapstructure:"graph"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Log      LogConfig      `mapstructure:"log"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	SchemaPrefix   string        `mapstructure:"schema_prefix"`
	DefaultSchema  string        `mapstructure:"default_schema"`
	MaxConns       int32         `mapstructure:"max_conns"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type ServerConfig struct {
	ListenAddr string        `mapstructure:"listen_addr"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
}

type GraphConfig struct {
	MinWeight float64 `mapstructure:"min_weight"`
	EdgeLimit int     `mapstructure:"edge_limit"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	Environment  string  `mapstructure:"environment"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.Database.URL == "" {
		warnings = append(warnings, "database url is empty; set database.url or MNEMOSCOPE_DATABASE_URL")
	}

	// Check weight filter range [0, 1]
	if c.Graph.MinWeight < 0 || c.Graph.MinWeight > 1 {
		warnings = append(warnings, fmt.Sprintf("graph min_weight %.2f is outside range [0.0, 1.0]", c.Graph.MinWeight))
	}

	// Check for negative edge limit
	if c.Graph.EdgeLimit < 0 {
		warnings = append(warnings, fmt.Sprintf("graph edge_limit %d is negative", c.Graph.EdgeLimit))
	}

	// Check sampling rate range [0, 1]
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		warnings = append(warnings, fmt.Sprintf("tracing sample_rate %.2f is outside range [0.0, 1.0]", c.Tracing.SampleRate))
	}

	if c.Server.CacheTTL < 0 {
		warnings = append(warnings, fmt.Sprintf("server cache_ttl %s is negative; caching will be disabled", c.Server.CacheTTL))
	}

	return warnings
}

// Load reads configuration from file and environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("MNEMOSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Validate configuration and print warnings
	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults always unmarshal.
		panic(err)
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.schema_prefix", "kdm")
	v.SetDefault("database.max_conns", 5)
	v.SetDefault("database.connect_timeout", 10*time.Second)
	v.SetDefault("server.listen_addr", ":9090")
	v.SetDefault("server.cache_ttl", 5*time.Minute)
	v.SetDefault("graph.min_weight", 0.0)
	v.SetDefault("graph.edge_limit", 500)
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
