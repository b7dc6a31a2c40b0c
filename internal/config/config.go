package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Transport TransportConfig `mapstructure:"transport"`
	Protocol  ProtocolConfig  `mapstructure:"protocol"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig configures the HTTP stats API exposed by the receiver daemon.
type ServerConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	ListenAddr      string        `mapstructure:"listen_addr"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// TransportConfig configures the UDP datagram channel.
type TransportConfig struct {
	ListenAddr  string        `mapstructure:"listen_addr"`
	Port        int           `mapstructure:"port"`
	RemoteAddr  string        `mapstructure:"remote_addr"` // host:port the sender dials
	BufferSize  int           `mapstructure:"buffer_size"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"` // soft deadline per read, drives ctx checks
	MaxDatagram int           `mapstructure:"max_datagram"`
}

// ProtocolConfig carries the Go-Back-N parameters. The core consumes these; it
// does not own them.
type ProtocolConfig struct {
	WindowSize         int           `mapstructure:"window_size"`
	Timeout            time.Duration `mapstructure:"timeout"`
	LossProbability    float64       `mapstructure:"loss_probability"`     // forward (packet) path
	AckLossProbability float64       `mapstructure:"ack_loss_probability"` // reverse (ACK) path
	Seed               int64         `mapstructure:"seed"`                 // 0 means time-seeded
	MaxRetries         int           `mapstructure:"max_retries"`          // 0 means unbounded (the documented default)
	Deadline           time.Duration `mapstructure:"deadline"`             // 0 means no overall deadline
	PacketsPerSecond   float64       `mapstructure:"packets_per_second"`   // 0 disables pacing
}

// RegistryConfig configures the optional redis-backed session registry.
type RegistryConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
	DialTimeout   time.Duration `mapstructure:"dial_timeout"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json or text
	Output     string `mapstructure:"output"` // stdout, stderr, or file path
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Port    int    `mapstructure:"port"`
}

func Load(configPath string) (*Config, error) {
	viper.SetConfigType("yaml")
	viper.SetConfigFile(configPath)

	// Environment variable override
	viper.SetEnvPrefix("ARQ")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Default returns a validated configuration without reading any file. The demo
// harness uses it so it can run without a config on disk.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Enabled:         true,
			ListenAddr:      "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Transport: TransportConfig{
			ListenAddr:  "0.0.0.0",
			Port:        12345,
			RemoteAddr:  "localhost:12345",
			BufferSize:  1 << 20,
			ReadTimeout: time.Second,
			MaxDatagram: 65535,
		},
		Protocol: ProtocolConfig{
			WindowSize: 3,
			Timeout:    2 * time.Second,
		},
		Registry: RegistryConfig{
			RedisAddr:   "localhost:6379",
			TTL:         5 * time.Minute,
			DialTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9090,
		},
	}
	return cfg
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.enabled", true)
	viper.SetDefault("server.listen_addr", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.shutdown_timeout", "10s")

	// Transport defaults
	viper.SetDefault("transport.listen_addr", "0.0.0.0")
	viper.SetDefault("transport.port", 12345)
	viper.SetDefault("transport.remote_addr", "localhost:12345")
	viper.SetDefault("transport.buffer_size", 1<<20)
	viper.SetDefault("transport.read_timeout", "1s")
	viper.SetDefault("transport.max_datagram", 65535)

	// Protocol defaults track the documented demo parameters
	viper.SetDefault("protocol.window_size", 3)
	viper.SetDefault("protocol.timeout", "2s")
	viper.SetDefault("protocol.loss_probability", 0.0)
	viper.SetDefault("protocol.ack_loss_probability", 0.0)
	viper.SetDefault("protocol.seed", 0)
	viper.SetDefault("protocol.max_retries", 0)
	viper.SetDefault("protocol.deadline", "0s")
	viper.SetDefault("protocol.packets_per_second", 0.0)

	// Registry defaults
	viper.SetDefault("registry.enabled", false)
	viper.SetDefault("registry.redis_addr", "localhost:6379")
	viper.SetDefault("registry.redis_db", 0)
	viper.SetDefault("registry.ttl", "5m")
	viper.SetDefault("registry.dial_timeout", "5s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 5)
	viper.SetDefault("logging.max_age", 30)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("metrics.port", 9090)
}
