package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Redis      RedisConfig
	Storage    StorageConfig
	S3         S3Config
	Mail       MailConfig
	SMS        SMSConfig
	RateLimit  RateLimitConfig
	Compliance ComplianceConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
	LogFormat   string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// StorageConfig selects where uploaded documents live.
type StorageConfig struct {
	Driver        string // local, s3
	LocalPath     string
	EncryptFiles  bool
	EncryptionKey string // 32 bytes, hex encoded
	MaxSize       int64
	AllowedTypes  []string
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
}

type MailConfig struct {
	Driver      string // ses, memory
	Region      string
	FromAddress string
	FromName    string
}

type SMSConfig struct {
	Enabled bool
	Region  string
}

// RateLimitConfig bounds requests per client IP.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond int
	Burst             int
}

// ComplianceConfig holds the notification and scanning policy.
type ComplianceConfig struct {
	Timezone          string
	LookaheadDays     int
	ScanSchedule      string
	DedupWindow       time.Duration
	ScanLockTTL       time.Duration
	SchedulerDisabled bool
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogFormat:   getEnv("LOG_FORMAT", "console"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "compliance"),
			Password: getEnv("DB_PASSWORD", "compliance"),
			DBName:   getEnv("DB_NAME", "compliance"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", "your-secret-key"),
			AccessTokenExpiry:  parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "15m"), 15*time.Minute),
			RefreshTokenExpiry: parseDuration(getEnv("JWT_REFRESH_TOKEN_EXPIRY", "168h"), 168*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Redis: RedisConfig{
			Enabled:  parseBool(getEnv("REDIS_ENABLED", "false")),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		Storage: StorageConfig{
			Driver:        getEnv("STORAGE_DRIVER", "local"),
			LocalPath:     getEnv("STORAGE_LOCAL_PATH", "./storage/uploads"),
			EncryptFiles:  parseBool(getEnv("STORAGE_ENCRYPT_FILES", "false")),
			EncryptionKey: getEnv("STORAGE_ENCRYPTION_KEY", ""),
			MaxSize:       int64(parseInt(getEnv("STORAGE_MAX_SIZE", "10485760"), 10*1024*1024)),
			AllowedTypes:  parseSlice(getEnv("STORAGE_ALLOWED_TYPES", "pdf,doc,docx,jpg,jpeg,png")),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "me-central-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", "compliance-documents"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
		Mail: MailConfig{
			Driver:      getEnv("MAIL_DRIVER", "memory"),
			Region:      getEnv("MAIL_REGION", getEnv("AWS_REGION", "me-central-1")),
			FromAddress: getEnv("MAIL_FROM_ADDRESS", "no-reply@example.com"),
			FromName:    getEnv("MAIL_FROM_NAME", "Compliance Tracker"),
		},
		SMS: SMSConfig{
			Enabled: parseBool(getEnv("SMS_ENABLED", "false")),
			Region:  getEnv("SMS_REGION", getEnv("AWS_REGION", "me-central-1")),
		},
		RateLimit: RateLimitConfig{
			Enabled:           parseBool(getEnv("RATE_LIMIT_ENABLED", "true")),
			RequestsPerSecond: parseInt(getEnv("RATE_LIMIT_RPS", "10"), 10),
			Burst:             parseInt(getEnv("RATE_LIMIT_BURST", "20"), 20),
		},
		Compliance: ComplianceConfig{
			Timezone:          getEnv("COMPLIANCE_TIMEZONE", "Asia/Dubai"),
			LookaheadDays:     parseInt(getEnv("COMPLIANCE_LOOKAHEAD_DAYS", "30"), 30),
			ScanSchedule:      getEnv("COMPLIANCE_SCAN_SCHEDULE", "0 6 * * *"),
			DedupWindow:       parseDuration(getEnv("COMPLIANCE_DEDUP_WINDOW", "0s"), 0),
			ScanLockTTL:       parseDuration(getEnv("COMPLIANCE_SCAN_LOCK_TTL", "10m"), 10*time.Minute),
			SchedulerDisabled: parseBool(getEnv("COMPLIANCE_SCHEDULER_DISABLED", "false")),
		},
	}

	if config.Compliance.LookaheadDays <= 0 {
		return nil, fmt.Errorf("COMPLIANCE_LOOKAHEAD_DAYS must be positive, got %d", config.Compliance.LookaheadDays)
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Location resolves the configured compliance timezone, falling back to UTC.
func (c *ComplianceConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("Invalid timezone %s, using UTC", c.Timezone)
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
