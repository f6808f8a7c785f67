package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	JWTSecret      string
	MongoURI       string
	DBName         string
	SkipAuth       bool
	Environment    string
	AppId          string
	LogToDB        bool
	CORSOrigins    string
	SwaggerEnabled bool

	// Empty RedisURL disables the dashboard cache
	RedisURL          string
	DashboardCacheTTL time.Duration

	// Empty RollupSchedule disables the nightly capture job
	RollupSchedule string

	WarehouseDriver string // "postgres", "mysql" or empty
	WarehouseDSN    string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		JWTSecret:         getEnv("JWT_SECRET", "secret"),
		MongoURI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:            getEnv("DB_NAME", "salescrm"),
		SkipAuth:          getEnv("SKIP_AUTH", "false") == "true",
		Environment:       getEnv("ENVIRONMENT", "development"),
		AppId:             getEnv("APP_ID", "salescrm"),
		LogToDB:           getEnv("LOG_TO_DB", "false") == "true",
		CORSOrigins:       getEnv("CORS_ORIGINS", "http://localhost:3000, http://localhost:8000"),
		SwaggerEnabled:    getEnv("SWAGGER_ENABLED", "false") == "true",
		RedisURL:          getEnv("REDIS_URL", ""),
		DashboardCacheTTL: getDuration("DASHBOARD_CACHE_TTL", time.Minute),
		RollupSchedule:    getEnv("ROLLUP_SCHEDULE", "5 0 * * *"),
		WarehouseDriver:   strings.ToLower(getEnv("WAREHOUSE_DRIVER", "")),
		WarehouseDSN:      getEnv("WAREHOUSE_DSN", ""),
	}, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid duration for %s (%q), using %s", key, value, fallback)
		return fallback
	}
	return d
}
