package config

import (
	"os"
	"strconv"
)

// Storage driver names recognized in STORAGE_DRIVER.
const (
	DriverLocal = "local"
	DriverMinIO = "minio"
)

// SlackConfig holds the app-level Slack OAuth client settings. Per-tenant
// tokens are not configured here; they live in the credential store.
type SlackConfig struct {
	ClientID     string
	ClientSecret string
}

// StorageConfig selects and parameterizes the backing store.
type StorageConfig struct {
	Driver string
	// LocalDir is the molecule directory for the local driver.
	LocalDir string
	// Registry is the location of the persisted tenant registry: a file path
	// for the local driver, an object name for the minio driver.
	Registry string
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the externally reachable base URL under which staged
	// objects can be fetched without credentials.
	PublicURL string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	// AppURL is this service's own externally reachable base URL, used to
	// build public URLs for locally staged files.
	AppURL  string
	Port    string
	Slack   SlackConfig
	Storage StorageConfig
	MinIO   MinIOConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppURL: getEnv("APP_URL", "http://localhost:8080"),
		Port:   getEnv("PORT", "8080"), // default only for non-sensitive value
		Slack: SlackConfig{
			ClientID:     getEnv("SLACK_CLIENT_ID", ""),
			ClientSecret: getEnv("SLACK_CLIENT_SECRET", ""),
		},
		Storage: StorageConfig{
			Driver:   getEnv("STORAGE_DRIVER", DriverLocal),
			LocalDir: getEnv("MOLECULES_DIR", "./molecules"),
			Registry: getEnv("TENANT_REGISTRY", "tenants.csv"),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			PublicURL: getEnv("MINIO_PUBLIC_URL", ""),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}
