package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	NewRelic  NewRelicConfig
	JWT       JWTConfig
	Search    SearchConfig
	Proximity ProximityConfig
	Pricing   PricingConfig
	WebSocket WebSocketConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port string
	Env  string
	Host string
}

type DatabaseConfig struct {
	Host           string
	Port           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	MaxConnections int
	MaxIdleConns   int
	MaxLifetime    time.Duration
}

type RedisConfig struct {
	Host        string
	Port        string
	Password    string
	DB          int
	MaxRetries  int
	PoolSize    int
	MinIdleConn int
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

type NewRelicConfig struct {
	LicenseKey string
	AppName    string
	Enabled    bool
	LogLevel   string
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

// SearchConfig tunes the driver search: rides scan a tighter radius than
// deliveries, both share the overall timeout, and reservations placed
// during a search hold for the lease duration.
type SearchConfig struct {
	RideRadiusKM     float64
	DeliveryRadiusKM float64
	Timeout          time.Duration
	ReservationLease time.Duration
}

// ProximityConfig holds the distance guards on trip operations.
type ProximityConfig struct {
	PaymentKM        float64
	RouteChangeMinKM float64
}

type PricingConfig struct {
	Region             string
	MaxSurgeMultiplier float64
	MinSurgeMultiplier float64
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			Name:           getEnv("DB_NAME", "swiftcab"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxConnections: getEnvAsInt("DB_MAX_CONNECTIONS", 100),
			MaxIdleConns:   getEnvAsInt("DB_MAX_IDLE_CONNECTIONS", 10),
			MaxLifetime:    time.Duration(getEnvAsInt("DB_MAX_LIFETIME_MINUTES", 30)) * time.Minute,
		},
		Redis: RedisConfig{
			Host:        getEnv("REDIS_HOST", "localhost"),
			Port:        getEnv("REDIS_PORT", "6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvAsInt("REDIS_DB", 0),
			MaxRetries:  getEnvAsInt("REDIS_MAX_RETRIES", 3),
			PoolSize:    getEnvAsInt("REDIS_POOL_SIZE", 100),
			MinIdleConn: 10,
			DialTimeout: 5 * time.Second,
			ReadTimeout: 3 * time.Second,
		},
		NewRelic: NewRelicConfig{
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			AppName:    getEnv("NEW_RELIC_APP_NAME", "SwiftCab-RideBackend"),
			Enabled:    getEnvAsBool("NEW_RELIC_ENABLED", true),
			LogLevel:   getEnv("NEW_RELIC_LOG_LEVEL", "info"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your_jwt_secret_key_here"),
			Expiry: parseDuration(getEnv("JWT_EXPIRY", "24h"), 24*time.Hour),
		},
		Search: SearchConfig{
			RideRadiusKM:     getEnvAsFloat64("SEARCH_RIDE_RADIUS_KM", 2.0),
			DeliveryRadiusKM: getEnvAsFloat64("SEARCH_DELIVERY_RADIUS_KM", 3.0),
			Timeout:          time.Duration(getEnvAsInt("SEARCH_TIMEOUT_SECONDS", 120)) * time.Second,
			ReservationLease: time.Duration(getEnvAsInt("RESERVATION_LEASE_SECONDS", 30)) * time.Second,
		},
		Proximity: ProximityConfig{
			PaymentKM:        getEnvAsFloat64("PROXIMITY_PAYMENT_KM", 1.0),
			RouteChangeMinKM: getEnvAsFloat64("PROXIMITY_ROUTE_CHANGE_MIN_KM", 5.0),
		},
		Pricing: PricingConfig{
			Region:             getEnv("PRICING_REGION", "default"),
			MaxSurgeMultiplier: getEnvAsFloat64("MAX_SURGE_MULTIPLIER", 3.0),
			MinSurgeMultiplier: getEnvAsFloat64("MIN_SURGE_MULTIPLIER", 1.0),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getEnvAsInt("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize: getEnvAsInt("WS_WRITE_BUFFER_SIZE", 1024),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.JWT.Secret == "your_jwt_secret_key_here" && c.Server.Env == "production" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if c.Search.RideRadiusKM <= 0 || c.Search.DeliveryRadiusKM <= 0 {
		return fmt.Errorf("search radii must be positive")
	}
	if c.Search.Timeout <= 0 {
		return fmt.Errorf("SEARCH_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultValue
}
