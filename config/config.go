package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// URL is the user:pass@host form the migration tool expects.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	GroupID            string   `yaml:"group_id"`
	HeartbeatSeconds   int      `yaml:"heartbeat_interval_seconds"`
	SessionSeconds     int      `yaml:"session_timeout_seconds"`
}

// BookingConfig carries the three independent timing knobs plus the deposit
// threshold. Keep the lock TTL at or below the hold window so a released lock
// cannot outlive the Pending record that claims it.
type BookingConfig struct {
	HoldWindowMinutes       int `yaml:"hold_window_minutes"`
	LockTTLMinutes          int `yaml:"lock_ttl_minutes"`
	InventoryTTLMinutes     int `yaml:"inventory_cache_ttl_minutes"`
	DepositThresholdPercent int `yaml:"deposit_threshold_percent"`
}

type GatewayConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ClientID    string `yaml:"client_id"`
	APIKey      string `yaml:"api_key"`
	ChecksumKey string `yaml:"checksum_key"`
}

type WorkerConfig struct {
	ExpirationSweepSeconds int `yaml:"expiration_sweep_seconds"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
