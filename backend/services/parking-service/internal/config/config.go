package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "parkingsystem/backend/libs/config"
	"parkingsystem/backend/services/parking-service/internal/models"
	"parkingsystem/backend/services/parking-service/internal/rates"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageMemory   = "memory"
)

// Recognition providers. An empty provider disables plate recognition.
const (
	RecognitionHTTP        = "http"
	RecognitionRekognition = "rekognition"
)

type httpConfig struct {
	Port string `yaml:"port" env:"PARKING_HTTP_PORT"`
}

type storageConfig struct {
	Driver string `yaml:"driver" env:"PARKING_STORAGE_DRIVER"`
}

type databaseConfig struct {
	DSN string `yaml:"dsn" env:"PARKING_POSTGRES_DSN"`
}

type sqliteConfig struct {
	Path string `yaml:"path" env:"PARKING_SQLITE_PATH"`
}

type redisConfig struct {
	Addr          string `yaml:"addr" env:"PARKING_REDIS_ADDR"`
	Password      string `yaml:"password" env:"PARKING_REDIS_PASSWORD"`
	DB            int    `yaml:"db" env:"PARKING_REDIS_DB"`
	LockTTLMillis int    `yaml:"lockTTLMillis" env:"PARKING_REDIS_LOCK_TTL_MS"`
}

type lockConfig struct {
	WaitMillis int `yaml:"waitMillis" env:"PARKING_LOCK_WAIT_MS"`
}

type ratesConfig struct {
	Car        int64 `yaml:"car" env:"PARKING_RATE_CAR"`
	Motorcycle int64 `yaml:"motorcycle" env:"PARKING_RATE_MOTORCYCLE"`
	Bicycle    int64 `yaml:"bicycle" env:"PARKING_RATE_BICYCLE"`
	Truck      int64 `yaml:"truck" env:"PARKING_RATE_TRUCK"`
}

type billingConfig struct {
	Rates ratesConfig `yaml:"rates"`
}

// facilityConfig sizes the facility. Floors and SlotsPerFloor seed one block per floor
// into an empty layout. A positive Capacity overrides the block slot total.
type facilityConfig struct {
	Capacity      int64 `yaml:"capacity" env:"PARKING_CAPACITY"`
	Floors        int64 `yaml:"floors" env:"PARKING_FLOORS"`
	SlotsPerFloor int64 `yaml:"slotsPerFloor" env:"PARKING_SLOTS_PER_FLOOR"`
}

type recognitionConfig struct {
	Provider        string  `yaml:"provider" env:"PARKING_RECOGNITION_PROVIDER"`
	URL             string  `yaml:"url" env:"PARKING_AI_SERVICE_URL"`
	TimeoutSeconds  int     `yaml:"timeoutSeconds" env:"PARKING_AI_TIMEOUT_SECONDS"`
	CacheTTLSeconds int     `yaml:"cacheTTLSeconds" env:"PARKING_AI_CACHE_TTL_SECONDS"`
	AWSRegion       string  `yaml:"awsRegion" env:"PARKING_AWS_REGION"`
	MinConfidence   float64 `yaml:"minConfidence" env:"PARKING_MIN_CONFIDENCE"`
}

type kafkaConfig struct {
	Brokers []string `yaml:"brokers" env:"PARKING_KAFKA_BROKERS"`
	Topic   string   `yaml:"topic" env:"PARKING_KAFKA_TOPIC"`
}

// Config defines parking service configuration.
type Config struct {
	HTTP        httpConfig        `yaml:"http"`
	Storage     storageConfig     `yaml:"storage"`
	Database    databaseConfig    `yaml:"database"`
	SQLite      sqliteConfig      `yaml:"sqlite"`
	Redis       redisConfig       `yaml:"redis"`
	Lock        lockConfig        `yaml:"lock"`
	Billing     billingConfig     `yaml:"billing"`
	Facility    facilityConfig    `yaml:"facility"`
	Recognition recognitionConfig `yaml:"recognition"`
	Kafka       kafkaConfig       `yaml:"kafka"`
}

// Defaults returns configuration before file and env overrides.
func Defaults() *Config {
	return &Config{
		HTTP:    httpConfig{Port: "8080"},
		Storage: storageConfig{Driver: StorageSQLite},
		SQLite:  sqliteConfig{Path: "parking.db"},
		Redis:   redisConfig{LockTTLMillis: 10000},
		Lock:    lockConfig{WaitMillis: 5000},
		Billing: billingConfig{Rates: ratesConfig{
			Car:        rates.DefaultCarRate,
			Motorcycle: rates.DefaultMotorcycleRate,
			Bicycle:    rates.DefaultBicycleRate,
			Truck:      rates.DefaultTruckRate,
		}},
		Facility: facilityConfig{Floors: 4, SlotsPerFloor: 250},
		Recognition: recognitionConfig{
			TimeoutSeconds:  30,
			CacheTTLSeconds: 10,
			MinConfidence:   0.5,
		},
		Kafka: kafkaConfig{Topic: "parking.sessions"},
	}
}

// Load reads configuration via shared helper.
func Load() (*Config, error) {
	cfg := Defaults()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field rules and normalises enumerations.
func (c *Config) Validate() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case StoragePostgres:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return errors.New("config: database dsn required for postgres storage")
		}
	case StorageSQLite:
		if strings.TrimSpace(c.SQLite.Path) == "" {
			return errors.New("config: sqlite path required for sqlite storage")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}

	if c.Redis.DB < 0 {
		return errors.New("config: redis db must be non-negative")
	}
	if c.Lock.WaitMillis <= 0 {
		return errors.New("config: lock wait must be positive")
	}

	if c.Facility.Capacity < 0 || c.Facility.Floors < 0 || c.Facility.SlotsPerFloor < 0 {
		return errors.New("config: facility sizes must be non-negative")
	}
	if c.FacilityCapacity() <= 0 {
		return errors.New("config: facility capacity must be positive")
	}

	c.Recognition.Provider = strings.ToLower(strings.TrimSpace(c.Recognition.Provider))
	switch c.Recognition.Provider {
	case "":
	case RecognitionHTTP:
		if strings.TrimSpace(c.Recognition.URL) == "" {
			return errors.New("config: recognition url required for http provider")
		}
	case RecognitionRekognition:
	default:
		return fmt.Errorf("config: unknown recognition provider %q", c.Recognition.Provider)
	}
	if c.Recognition.MinConfidence < 0 || c.Recognition.MinConfidence > 1 {
		return errors.New("config: recognition min confidence must be within [0,1]")
	}

	if len(c.Kafka.Brokers) > 0 && strings.TrimSpace(c.Kafka.Topic) == "" {
		return errors.New("config: kafka topic required when brokers are set")
	}

	if _, err := rates.NewTable(c.RateOverrides()); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// FacilityCapacity returns the explicit capacity or floors times slots per floor.
func (c *Config) FacilityCapacity() int64 {
	if c.Facility.Capacity > 0 {
		return c.Facility.Capacity
	}
	return c.Facility.Floors * c.Facility.SlotsPerFloor
}

// RateOverrides returns configured hourly rates keyed by category.
func (c *Config) RateOverrides() map[models.VehicleCategory]int64 {
	r := c.Billing.Rates
	return map[models.VehicleCategory]int64{
		models.CategoryCar:        r.Car,
		models.CategoryMotorcycle: r.Motorcycle,
		models.CategoryBicycle:    r.Bicycle,
		models.CategoryTruck:      r.Truck,
	}
}

// LockWait returns the plate lock wait as duration.
func (c *Config) LockWait() time.Duration {
	return time.Duration(c.Lock.WaitMillis) * time.Millisecond
}

// LockTTL returns the distributed lock expiry as duration.
func (c *Config) LockTTL() time.Duration {
	if c.Redis.LockTTLMillis <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Redis.LockTTLMillis) * time.Millisecond
}

// DistributedLocks reports whether plate locks go through Redis.
func (c *Config) DistributedLocks() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}

// RecognitionTimeout returns upstream timeout as duration.
func (c *Config) RecognitionTimeout() time.Duration {
	if c.Recognition.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Recognition.TimeoutSeconds) * time.Second
}

// RecognitionCacheTTL returns how long detections are reused. Zero disables the cache.
func (c *Config) RecognitionCacheTTL() time.Duration {
	if c.Recognition.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Recognition.CacheTTLSeconds) * time.Second
}
