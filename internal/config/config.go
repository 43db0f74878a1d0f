package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Ledger storage backends.
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config holds application configuration
type Config struct {
	// Server
	Env  string
	Port string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Ledger storage
	LedgerBackend string
	MongoURI      string
	MongoDatabase string
	MongoTimeout  time.Duration

	// Redis (idempotency keys)
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	IdempotencyTTL time.Duration

	// Kafka (activity events)
	KafkaBrokers       []string
	KafkaActivityTopic string

	// Activity notifier
	NotifierPoolSize int

	// Ledger rules
	DuplicateWindow  time.Duration
	UndoWindow       time.Duration
	DefaultPageLimit int

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration
	JWTRefreshDur    time.Duration

	// Admin API
	AdminAPIKey string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "walletwise"),
		DBPassword: getEnv("DB_PASSWORD", "walletwise"),
		DBName:     getEnv("DB_NAME", "walletwise"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		LedgerBackend: strings.ToLower(getEnv("LEDGER_BACKEND", BackendPostgres)),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
		MongoDatabase: getEnv("MONGO_DATABASE", "walletwise"),
		MongoTimeout:  getDuration("MONGO_TIMEOUT", 10*time.Second),

		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getInt("REDIS_DB", 0),
		IdempotencyTTL: getDuration("IDEMPOTENCY_TTL", 24*time.Hour),

		KafkaBrokers:       splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaActivityTopic: getEnv("KAFKA_ACTIVITY_TOPIC", "walletwise.activity"),

		NotifierPoolSize: getInt("NOTIFIER_POOL_SIZE", 16),

		DuplicateWindow:  getDuration("DUPLICATE_WINDOW", 24*time.Hour),
		UndoWindow:       getDuration("UNDO_WINDOW", 30*time.Minute),
		DefaultPageLimit: getInt("DEFAULT_PAGE_LIMIT", 10),

		JWTSecret:        getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),
		JWTExpirationDur: getDuration("JWT_EXPIRES_IN", 10*time.Minute),
		JWTRefreshDur:    getDuration("JWT_REFRESH_EXPIRES_IN", 24*time.Hour),

		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// Set replaces the process-wide configuration. Used by tests and by cmd/api
// after overrides are applied.
func Set(cfg *Config) {
	appConfig = cfg
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
