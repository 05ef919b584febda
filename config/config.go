package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageGCS = "gcs"
	StorageR2  = "r2"
)

type DatabaseConfig struct {
	Username string
	Password string
	Host     string
	Port     string
	Name     string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s", d.Username, d.Password, d.Host, d.Port, d.Name)
	if d.SSLMode != "" {
		dsn += "?sslmode=" + d.SSLMode
	}
	return dsn
}

type StorageConfig struct {
	Provider string
	Bucket   string
	// GCS service account key; empty means application default credentials.
	CredentialsFile string
	R2AccountID     string
	R2AccessKeyID   string
	R2AccessSecret  string
	SignedURLTTL    time.Duration
}

type AIConfig struct {
	GeminiAPIKey    string
	GCPProjectID    string
	GCPLocation     string
	VisionModel     string
	TextModel       string
	ImagenModel     string
	ImageModel      string
	EnhancePrompts  bool
	UseGeminiImages bool
}

func (a AIConfig) HasGemini() bool { return a.GeminiAPIKey != "" }

func (a AIConfig) HasVertex() bool { return a.GCPProjectID != "" }

type MattingConfig struct {
	RembgURL     string
	LocalMatting bool
}

type TimeoutConfig struct {
	Storage  time.Duration
	Classify time.Duration
	Generate time.Duration
	Matting  time.Duration
}

type SentryConfig struct {
	DSN     string
	Release string
}

type Config struct {
	Env       string
	Port      string
	RateLimit float64
	JWTSecret string
	// Uploads above this size are rejected before any processing.
	MaxUploadBytes int64
	Database       DatabaseConfig
	Storage        StorageConfig
	AI             AIConfig
	Matting        MattingConfig
	Timeouts       TimeoutConfig
	Sentry         SentryConfig
}

func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off", "":
		return false
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		fmt.Printf("[Config] invalid duration %s=%q, using %v\n", key, value, fallback)
		return fallback
	}
	return d
}

func getFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		fmt.Printf("[Config] invalid number %s=%q, using %v\n", key, value, fallback)
		return fallback
	}
	return f
}

// LoadDotEnv reads .env files when present. Existing variables win.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			fmt.Printf("[Config] failed to load %s: %v\n", f, err)
		}
	}
}

// Load builds the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Env:            GetEnv("ENV", "local"),
		Port:           GetEnv("PORT", "8083"),
		RateLimit:      getFloat("RATE_LIMIT", 3),
		JWTSecret:      GetEnv("JWT_SECRET", ""),
		MaxUploadBytes: int64(getFloat("MAX_UPLOAD_MB", 20) * 1024 * 1024),
		Database: DatabaseConfig{
			Username: GetEnv("DB_USERNAME", ""),
			Password: GetEnv("DB_PASSWORD", ""),
			Host:     GetEnv("DB_HOST", "localhost"),
			Port:     GetEnv("DB_PORT", "5432"),
			Name:     GetEnv("DB_NAME", ""),
			SSLMode:  GetEnv("DB_SSLMODE", ""),
		},
		Storage: StorageConfig{
			Provider:        strings.ToLower(GetEnv("STORAGE_PROVIDER", StorageGCS)),
			Bucket:          GetEnv("GCS_BUCKET", GetEnv("R2_BUCKET_NAME", "")),
			CredentialsFile: GetEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			R2AccountID:     GetEnv("R2_ACCOUNT_ID", ""),
			R2AccessKeyID:   GetEnv("R2_ACCESS_KEY_ID", ""),
			R2AccessSecret:  GetEnv("R2_ACCESS_KEY_SECRET", ""),
			SignedURLTTL:    getDuration("SIGNED_URL_TTL", 60*time.Minute),
		},
		AI: AIConfig{
			GeminiAPIKey:    GetEnv("GEMINI_API_KEY", ""),
			GCPProjectID:    GetEnv("GCP_PROJECT_ID", ""),
			GCPLocation:     GetEnv("GCP_LOCATION", "us-central1"),
			VisionModel:     GetEnv("GEMINI_VISION_MODEL", ""),
			TextModel:       GetEnv("GEMINI_TEXT_MODEL", ""),
			ImagenModel:     GetEnv("IMAGEN_MODEL", "imagen-3.0-generate-002"),
			ImageModel:      GetEnv("GEMINI_IMAGE_MODEL", ""),
			EnhancePrompts:  getBool("AI_ENHANCE_PROMPTS", true),
			UseGeminiImages: getBool("AI_GEMINI_IMAGES", true),
		},
		Matting: MattingConfig{
			RembgURL:     GetEnv("REMBG_URL", ""),
			LocalMatting: getBool("LOCAL_MATTING", true),
		},
		Timeouts: TimeoutConfig{
			Storage:  getDuration("STORAGE_TIMEOUT", 30*time.Second),
			Classify: getDuration("CLASSIFY_TIMEOUT", 45*time.Second),
			Generate: getDuration("GENERATE_TIMEOUT", 120*time.Second),
			Matting:  getDuration("MATTING_TIMEOUT", 60*time.Second),
		},
		Sentry: SentryConfig{
			DSN:     GetEnv("SENTRY_DSN", ""),
			Release: GetEnv("SENTRY_RELEASE", "wardrobeapi@1.0.0"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks only what the server cannot start without; missing AI
// credentials degrade at call time instead.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}
	switch c.Storage.Provider {
	case StorageGCS, StorageR2:
	default:
		return fmt.Errorf("unsupported STORAGE_PROVIDER %q", c.Storage.Provider)
	}
	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage bucket is not configured")
	}
	if c.Storage.SignedURLTTL <= 0 {
		return fmt.Errorf("SIGNED_URL_TTL must be positive")
	}
	return nil
}
