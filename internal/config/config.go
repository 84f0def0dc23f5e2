package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI     string
	DBName       string
	JWTSecret    string
	JWTExpiresIn time.Duration
	GeminiAPIKey string
	GeminiModel  string
	GeminiTier   string
	Port         string
	GinMode      string
	CORSOrigins  []string

	// Upload limits
	MaxFileSize  int64
	MaxBatchSize int
	AllowedTypes []string

	// Intake pipeline tuning
	MinTextLength   int
	VisionMaxPages  int
	PipelineTimeout time.Duration

	// Object storage. Backend is "local" or "drive".
	StorageBackend        string
	StoragePath           string
	DriveParentFolderID   string
	GoogleCredentialsFile string

	// Outbound email
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	AdminEmails  []string

	BcryptCost   int
	OTLPEndpoint string
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	expiresIn, err := time.ParseDuration(getEnv("JWT_EXPIRES_IN", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRES_IN: %v", err)
	}

	pipelineTimeout, err := time.ParseDuration(getEnv("PIPELINE_TIMEOUT", "120s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PIPELINE_TIMEOUT: %v", err)
	}

	cfg := &Config{
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017/student_intake"),
		DBName:       getEnv("DB_NAME", "student_intake"),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTExpiresIn: expiresIn,
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTier:   getEnv("GEMINI_TIER", "free"),
		Port:         getEnv("PORT", "4000"),
		GinMode:      getEnv("GIN_MODE", "debug"),
		CORSOrigins:  strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),

		MaxFileSize:  getEnvInt64("MAX_FILE_SIZE", 10485760), // 10MB per file
		MaxBatchSize: getEnvInt("MAX_BATCH_SIZE", 20),
		AllowedTypes: strings.Split(getEnv("ALLOWED_FILE_TYPES",
			"application/pdf,application/vnd.openxmlformats-officedocument.wordprocessingml.document,text/plain,image/png,image/jpeg"), ","),

		MinTextLength:   getEnvInt("MIN_TEXT_LENGTH", 50),
		VisionMaxPages:  getEnvInt("VISION_MAX_PAGES", 40),
		PipelineTimeout: pipelineTimeout,

		StorageBackend:        getEnv("STORAGE_BACKEND", "local"),
		StoragePath:           getEnv("STORAGE_PATH", "./uploads"),
		DriveParentFolderID:   getEnv("DRIVE_PARENT_FOLDER_ID", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		AdminEmails:  splitNonEmpty(getEnv("ADMIN_EMAILS", "")),

		BcryptCost:   getEnvInt("BCRYPT_COST", 12),
		OTLPEndpoint: getEnv("OTLP_ENDPOINT", "localhost:4317"),
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	if cfg.StorageBackend != "local" && cfg.StorageBackend != "drive" {
		return nil, fmt.Errorf("STORAGE_BACKEND must be local or drive, got %q", cfg.StorageBackend)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
