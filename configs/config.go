package configs

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort int
	Storage string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBNameTest string

	RedisHost     string
	RedisPort     int
	RedisPassword string

	JWTSecret string
	TokenTTL  time.Duration
	AdminName string
	AdminPIN  string

	UploadDir    string
	LogDir       string
	RateLimitMax int
	JobsCacheTTL time.Duration
	AllowOrigins string

	// Field client settings.
	APIBaseURL     string
	LocalDBPath    string
	LocalStoreKey  string
	ProbeInterval  time.Duration
	RequestTimeout time.Duration
}

func LoadConfig() Config {
	// Muat file .env
	if err := godotenv.Load(); err != nil {
		// Only log outside tests.
		if os.Getenv("GO_ENV") != "test" {
			log.Println("No .env file found, using default values")
		}
	}

	return Config{
		AppPort: getEnvInt("APP_PORT", 3004),
		Storage: getEnv("STORAGE", "postgres"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 10501),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBNameTest: os.Getenv("DB_NAME_TEST"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnvInt("REDIS_PORT", 6379),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		JWTSecret: getEnv("JWT_SECRET", "secret"),
		TokenTTL:  getEnvDuration("TOKEN_TTL", 12*time.Hour),
		AdminName: getEnv("ADMIN_NAME", "Admin"),
		AdminPIN:  os.Getenv("ADMIN_PIN"),

		UploadDir:    getEnv("UPLOAD_DIR", "uploads"),
		LogDir:       getEnv("LOG_DIR", "logs"),
		RateLimitMax: getEnvInt("RATE_LIMIT_MAX", 100),
		JobsCacheTTL: getEnvDuration("JOBS_CACHE_TTL", 5*time.Minute),
		AllowOrigins: getEnv("ALLOW_ORIGINS", "*"),

		APIBaseURL:     getEnv("GHOST_API_URL", "http://localhost:3004"),
		LocalDBPath:    getEnv("GHOST_LOCAL_DB", "ghost-local.db"),
		LocalStoreKey:  getEnv("GHOST_LOCAL_KEY", "ghost-local-store-key"),
		ProbeInterval:  getEnvDuration("GHOST_PROBE_INTERVAL", 15*time.Second),
		RequestTimeout: getEnvDuration("GHOST_REQUEST_TIMEOUT", 10*time.Second),
	}
}

// PostgresDSN builds the lib/pq connection string for dbName.
func (c Config) PostgresDSN(dbName string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, dbName)
}

// String masks secrets.
func (c Config) String() string {
	return fmt.Sprintf("Config{port: %d, db: %s@%s:%d/%s, redis: %s:%d, jwt: ***}",
		c.AppPort, c.DBUser, c.DBHost, c.DBPort, c.DBName, c.RedisHost, c.RedisPort)
}

func getEnv(key, defaultVal string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return v
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return v
}
