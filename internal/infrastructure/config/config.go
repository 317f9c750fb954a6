package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override (e.g. MEDIACOORD_API_PORT).
const EnvPrefix = "MEDIACOORD_"

// Delivery modes accepted by dispatch.delivery.
const (
	DeliveryBestEffort = "best_effort"
	DeliveryConfirmed  = "confirmed"
)

// Config is the root configuration structure for the media coordinator.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	API       APIConfig       `yaml:"api"       envPrefix:"API_"`
	WebSocket WebSocketConfig `yaml:"websocket" envPrefix:"WEBSOCKET_"`
	Inventory InventoryConfig `yaml:"inventory" envPrefix:"INVENTORY_"`
	Dispatch  DispatchConfig  `yaml:"dispatch"  envPrefix:"DISPATCH_"`
	Devices   DevicesConfig   `yaml:"devices"   envPrefix:"DEVICES_"`
	Database  DatabaseConfig  `yaml:"database"  envPrefix:"DATABASE_"`
	MQTT      MQTTConfig      `yaml:"mqtt"      envPrefix:"MQTT_"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"  envPrefix:"INFLUXDB_"`
	Tracing   TracingConfig   `yaml:"tracing"   envPrefix:"TRACING_"`
	Logging   LoggingConfig   `yaml:"logging"   envPrefix:"LOGGING_"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host" env:"HOST"`
	Port     int              `yaml:"port" env:"PORT"`
	Timeouts APITimeoutConfig `yaml:"timeouts" envPrefix:"TIMEOUT_"`
	CORS     CORSConfig       `yaml:"cors"     envPrefix:"CORS_"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"  env:"READ"`
	Write int `yaml:"write" env:"WRITE"`
	Idle  int `yaml:"idle"  env:"IDLE"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	AllowedMethods []string `yaml:"allowed_methods" env:"ALLOWED_METHODS" envSeparator:","`
	AllowedHeaders []string `yaml:"allowed_headers" env:"ALLOWED_HEADERS" envSeparator:","`
}

// WebSocketConfig contains WebSocket event stream settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size" env:"MAX_MESSAGE_SIZE"`
	PingInterval   int `yaml:"ping_interval"    env:"PING_INTERVAL"`
	PongTimeout    int `yaml:"pong_timeout"     env:"PONG_TIMEOUT"`
}

// InventoryConfig points at the static device inventory document.
type InventoryConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

// DispatchConfig controls how the dispatcher treats downstream device calls.
type DispatchConfig struct {
	// Delivery is "best_effort" (local state commits regardless of the device
	// call) or "confirmed" (local state commits only after the device
	// acknowledges).
	Delivery string `yaml:"delivery" env:"DELIVERY"`

	// LockTimeout bounds how long a command waits for another command on the
	// same session to finish (seconds). 0 waits for the request context.
	LockTimeout int `yaml:"lock_timeout" env:"LOCK_TIMEOUT"`
}

// DevicesConfig contains outbound device call settings.
type DevicesConfig struct {
	// TimeoutSeconds caps each device call. 0 keeps the transport default.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"TIMEOUT_SECONDS"`
}

// DatabaseConfig contains SQLite settings for the command audit trail.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"      env:"ENABLED"`
	Path        string `yaml:"path"         env:"PATH"`
	WALMode     bool   `yaml:"wal_mode"     env:"WAL_MODE"`
	BusyTimeout int    `yaml:"busy_timeout" env:"BUSY_TIMEOUT"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"      env:"ENABLED"`
	Broker      MQTTBrokerConfig    `yaml:"broker"       envPrefix:"BROKER_"`
	Auth        MQTTAuthConfig      `yaml:"auth"         envPrefix:"AUTH_"`
	QoS         int                 `yaml:"qos"          env:"QOS"`
	TopicPrefix string              `yaml:"topic_prefix" env:"TOPIC_PREFIX"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"    envPrefix:"RECONNECT_"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"      env:"HOST"`
	Port     int    `yaml:"port"      env:"PORT"`
	TLS      bool   `yaml:"tls"       env:"TLS"`
	ClientID string `yaml:"client_id" env:"CLIENT_ID"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username" env:"USERNAME"`
	Password string `yaml:"password" env:"PASSWORD"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay" env:"INITIAL_DELAY"`
	MaxDelay     int `yaml:"max_delay"     env:"MAX_DELAY"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"        env:"ENABLED"`
	URL           string `yaml:"url"            env:"URL"`
	Token         string `yaml:"token"          env:"TOKEN"`
	Org           string `yaml:"org"            env:"ORG"`
	Bucket        string `yaml:"bucket"         env:"BUCKET"`
	BatchSize     int    `yaml:"batch_size"     env:"BATCH_SIZE"`
	FlushInterval int    `yaml:"flush_interval" env:"FLUSH_INTERVAL"`
}

// TracingConfig contains OpenTelemetry trace export settings.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"      env:"ENABLED"`
	Endpoint    string `yaml:"endpoint"     env:"ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"  env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
	Output string `yaml:"output" env:"OUTPUT"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: MEDIACOORD_SECTION_KEY
// For example: MEDIACOORD_API_PORT, MEDIACOORD_DISPATCH_DELIVERY
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overlays MEDIACOORD_* environment variables onto cfg.
// Variables that are not set leave the existing value untouched.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("applying environment overrides: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Inventory: InventoryConfig{
			Path: "configs/inventory.json",
		},
		Dispatch: DispatchConfig{
			Delivery: DeliveryBestEffort,
		},
		Database: DatabaseConfig{
			Path:        "./data/coordinator.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "media-coordinator",
			},
			QoS:         1,
			TopicPrefix: "mediacoord",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Tracing: TracingConfig{
			ServiceName: "media-coordinator",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Inventory.Path == "" {
		errs = append(errs, "inventory.path is required")
	}

	switch c.Dispatch.Delivery {
	case DeliveryBestEffort, DeliveryConfirmed:
	default:
		errs = append(errs, fmt.Sprintf("dispatch.delivery must be %q or %q", DeliveryBestEffort, DeliveryConfirmed))
	}
	if c.Dispatch.LockTimeout < 0 {
		errs = append(errs, "dispatch.lock_timeout must not be negative")
	}

	if c.Devices.TimeoutSeconds < 0 {
		errs = append(errs, "devices.timeout_seconds must not be negative")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}

	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.TopicPrefix == "" {
			errs = append(errs, "mqtt.topic_prefix is required when mqtt is enabled")
		}
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		errs = append(errs, "tracing.endpoint is required when tracing is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// DeviceTimeout returns the outbound device call timeout (0 means none).
func (c *Config) DeviceTimeout() time.Duration {
	return time.Duration(c.Devices.TimeoutSeconds) * time.Second
}

// LockTimeout returns the per-session lock wait as a Duration (0 means none).
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Dispatch.LockTimeout) * time.Second
}
