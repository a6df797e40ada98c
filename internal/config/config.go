package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	JWTSecret   string
	MongoURI    string
	DBName      string
	RedisAddr   string // empty disables the catalog cache
	SkipAuth    bool
	Environment string
	AppId       string

	MaxPageSize        int64         // upper bound for a single result page
	RowCap             int64         // safety cap on materialized rows per execution
	ExecutionTimeout   time.Duration // budget for one report execution
	CompanyConcurrency int64         // simultaneous heavy executions per company
	SnapshotRetention  time.Duration // age after which result snapshots are dropped
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "go-reporting"),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		SkipAuth:    getEnv("SKIP_AUTH", "false") == "true",
		Environment: getEnv("ENVIRONMENT", "development"),
		AppId:       getEnv("APP_ID", "go-reporting"),

		MaxPageSize:        getEnvInt64("MAX_PAGE_SIZE", 500),
		RowCap:             getEnvInt64("EXECUTION_ROW_CAP", 50000),
		ExecutionTimeout:   getEnvDuration("EXECUTION_TIMEOUT", 30*time.Second),
		CompanyConcurrency: getEnvInt64("COMPANY_CONCURRENCY", 4),
		SnapshotRetention:  getEnvDuration("SNAPSHOT_RETENTION", 30*24*time.Hour),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil && n > 0 {
			return n
		}
		log.Printf("Invalid value for %s, using default %d", key, fallback)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
		log.Printf("Invalid value for %s, using default %s", key, fallback)
	}
	return fallback
}
