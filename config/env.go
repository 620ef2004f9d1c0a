package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Redis      RedisConfig
	DB         DBConfig
	Auth       AuthConfig
	HTTP       HTTPConfig
	GRPC       GRPCConfig
	Settlement SettlementConfig
}

type DBConfig struct {
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type HTTPConfig struct {
	Port        string
	CORSOrigins []string
	RateLimit   string
}

type GRPCConfig struct {
	HealthPort string
}

type SettlementConfig struct {
	VATRate  decimal.Decimal
	Location *time.Location
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	tokenTTL, err := time.ParseDuration(getEnv("JWT_TOKEN_TTL", "12h"))
	if err != nil {
		log.Printf("Invalid JWT_TOKEN_TTL, falling back to 12h: %v", err)
		tokenTTL = 12 * time.Hour
	}

	vatRate, err := decimal.NewFromString(getEnv("VAT_RATE", "0.16"))
	if err != nil || vatRate.IsNegative() {
		log.Printf("Invalid VAT_RATE, falling back to 0.16")
		vatRate = decimal.RequireFromString("0.16")
	}

	loc, err := time.LoadLocation(getEnv("BUSINESS_TIMEZONE", "Africa/Nairobi"))
	if err != nil {
		log.Printf("Unknown BUSINESS_TIMEZONE, using UTC: %v", err)
		loc = time.UTC
	}

	db := DBConfig{
		DSN:      getEnv("SETTLEMENT_DSN", ""),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "emirates"),
	}

	return Config{
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		DB: db,
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET_KEY", ""),
			TokenTTL:  tokenTTL,
		},
		HTTP: HTTPConfig{
			Port:        getEnv("API_PORT", "8080"),
			CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000"), ","),
			RateLimit:   getEnv("RATE_LIMIT", "100-M"),
		},
		GRPC: GRPCConfig{
			HealthPort: getEnv("GRPC_HEALTH_PORT", "50053"),
		},
		Settlement: SettlementConfig{
			VATRate:  vatRate,
			Location: loc,
		},
	}
}

// PostgresDSN returns SETTLEMENT_DSN when set, otherwise builds one from the DB_* parts.
func (c DBConfig) PostgresDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" sslmode=disable TimeZone=UTC"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
