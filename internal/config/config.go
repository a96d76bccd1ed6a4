package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage and blob driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	BlobLocal      = "local"
	BlobS3         = "s3"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port          string
	StorageDriver string
	SQLitePath    string
	DatabaseURL   string

	JWTSecret  string
	JWTIssuer  string
	JWTTTL     time.Duration
	RefreshTTL time.Duration

	CORSOrigins []string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string

	UploadDir   string
	BlobDriver  string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	SeedAdmin bool
}

// Load reads configuration from the environment and performs minimal
// validation. Everything defaults to a zero-setup local deployment.
func Load() (Config, error) {
	cfg := Config{
		Port:          fallback(os.Getenv("PORT"), "3001"),
		StorageDriver: fallback(os.Getenv("STORAGE_DRIVER"), DriverSQLite),
		SQLitePath:    fallback(os.Getenv("SQLITE_PATH"), "data/partes.db"),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:     fallback(os.Getenv("JWT_SECRET"), "local-dev-secret"),
		JWTIssuer:     fallback(os.Getenv("JWT_ISSUER"), "partes-app"),
		CORSOrigins:   parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		SMTPHost:      fallback(os.Getenv("SMTP_HOST"), "smtp.gmail.com"),
		SMTPUser:      strings.TrimSpace(os.Getenv("SMTP_USER")),
		SMTPPass:      strings.TrimSpace(os.Getenv("SMTP_PASS")),
		UploadDir:     fallback(os.Getenv("UPLOAD_DIR"), "uploads"),
		BlobDriver:    fallback(os.Getenv("BLOB_DRIVER"), BlobLocal),
		S3Bucket:      strings.TrimSpace(os.Getenv("S3_BUCKET")),
		S3Region:      strings.TrimSpace(os.Getenv("S3_REGION")),
		S3Endpoint:    strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		S3AccessKey:   strings.TrimSpace(os.Getenv("S3_ACCESS_KEY")),
		S3SecretKey:   strings.TrimSpace(os.Getenv("S3_SECRET_KEY")),
	}

	cfg.SMTPPort = parsePositiveInt(os.Getenv("SMTP_PORT"), 587)
	cfg.JWTTTL = time.Duration(parsePositiveInt(os.Getenv("JWT_TTL_MINUTES"), 60)) * time.Minute
	cfg.RefreshTTL = time.Duration(parsePositiveInt(os.Getenv("REFRESH_TTL_HOURS"), 720)) * time.Hour

	seed := fallback(os.Getenv("SEED_ADMIN"), "true")
	cfg.SeedAdmin = seed == "true" || seed == "1"

	switch cfg.StorageDriver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required when STORAGE_DRIVER=postgres")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	switch cfg.BlobDriver {
	case BlobLocal:
	case BlobS3:
		if cfg.S3Bucket == "" || cfg.S3Region == "" {
			return Config{}, errors.New("S3_BUCKET and S3_REGION are required when BLOB_DRIVER=s3")
		}
	default:
		return Config{}, fmt.Errorf("unknown BLOB_DRIVER %q", cfg.BlobDriver)
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// SMTPConfigured reports whether outbound mail credentials are present.
func (c Config) SMTPConfigured() bool {
	return c.SMTPUser != ""
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parsePositiveInt(value string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
		return n
	}
	return def
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
